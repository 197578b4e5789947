package validation

import (
	"strings"

	"github.com/ndewijer/Portfolio-Valuation-Backend/internal/api/request"
	"github.com/ndewijer/Portfolio-Valuation-Backend/internal/model"
)

// maxSymbolLength bounds symbols to what either price source lists.
const maxSymbolLength = 20

func ValidateCreatePortfolio(req request.CreatePortfolioRequest) error {
	errors := make(map[string]string)

	if strings.TrimSpace(req.Type) == "" {
		errors["type"] = "type is required"
	} else if _, err := model.ParseAssetClass(req.Type); err != nil {
		errors["type"] = err.Error()
	}

	if len(errors) > 0 {
		return &Error{Fields: errors}
	}
	return nil
}

// ValidateCreateItem validates a request to add a position.
//
// Required fields:
//   - symbol: Non-empty, at most 20 characters, no whitespace inside
//   - quantity: Must be greater than zero
//   - buyPrice: Must not be negative
//
// Optional fields:
//   - purchaseDate: YYYY-MM-DD or RFC 3339
func ValidateCreateItem(req request.CreateItemRequest) error {
	errors := make(map[string]string)

	symbol := strings.TrimSpace(req.Symbol)
	switch {
	case symbol == "":
		errors["symbol"] = "symbol is required"
	case len(symbol) > maxSymbolLength:
		errors["symbol"] = "symbol must be 20 characters or less"
	case strings.ContainsAny(symbol, " \t\r\n"):
		errors["symbol"] = "symbol must not contain whitespace"
	}

	if !req.Quantity.IsPositive() {
		errors["quantity"] = "quantity must be greater than zero"
	}

	if req.BuyPrice.IsNegative() {
		errors["buyPrice"] = "buyPrice cannot be negative"
	}

	if req.PurchaseDate != "" {
		if _, err := ParseDate(req.PurchaseDate); err != nil {
			errors["purchaseDate"] = err.Error()
		}
	}

	if len(errors) > 0 {
		return &Error{Fields: errors}
	}
	return nil
}

// ValidateUpdateItem validates a partial position update.
// Only provided fields are checked, against the same rules as ValidateCreateItem.
func ValidateUpdateItem(req request.UpdateItemRequest) error {
	errors := make(map[string]string)

	if req.Quantity == nil && req.BuyPrice == nil && req.PurchaseDate == nil {
		errors["body"] = "at least one field must be provided"
	}

	if req.Quantity != nil && !req.Quantity.IsPositive() {
		errors["quantity"] = "quantity must be greater than zero"
	}

	if req.BuyPrice != nil && req.BuyPrice.IsNegative() {
		errors["buyPrice"] = "buyPrice cannot be negative"
	}

	if req.PurchaseDate != nil {
		if _, err := ParseDate(*req.PurchaseDate); err != nil {
			errors["purchaseDate"] = err.Error()
		}
	}

	if len(errors) > 0 {
		return &Error{Fields: errors}
	}
	return nil
}
