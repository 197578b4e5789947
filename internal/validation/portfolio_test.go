package validation

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ndewijer/Portfolio-Valuation-Backend/internal/api/request"
)

func fieldErrors(t *testing.T, err error) map[string]string {
	t.Helper()
	var verr *Error
	require.True(t, errors.As(err, &verr), "expected *validation.Error, got %v", err)
	return verr.Fields
}

func TestValidateCreatePortfolio(t *testing.T) {
	assert.NoError(t, ValidateCreatePortfolio(request.CreatePortfolioRequest{Type: "stock"}))
	assert.NoError(t, ValidateCreatePortfolio(request.CreatePortfolioRequest{Type: "Crypto"}))

	fields := fieldErrors(t, ValidateCreatePortfolio(request.CreatePortfolioRequest{Type: "bond"}))
	assert.Contains(t, fields["type"], "unsupported asset class")

	fields = fieldErrors(t, ValidateCreatePortfolio(request.CreatePortfolioRequest{}))
	assert.Equal(t, "type is required", fields["type"])
}

// TestValidateCreateItem tests item creation rules.
//
// WHY: A zero quantity or negative price would poison every later valuation of
// the portfolio, so they are rejected at the edge.
func TestValidateCreateItem(t *testing.T) {
	valid := request.CreateItemRequest{
		Symbol:   "THYAO",
		Quantity: decimal.NewFromInt(10),
		BuyPrice: decimal.NewFromInt(100),
	}

	tests := []struct {
		name   string
		mutate func(r *request.CreateItemRequest)
		field  string
	}{
		{"missing symbol", func(r *request.CreateItemRequest) { r.Symbol = " " }, "symbol"},
		{"symbol too long", func(r *request.CreateItemRequest) { r.Symbol = "ABCDEFGHIJKLMNOPQRSTUVWXYZ" }, "symbol"},
		{"symbol with space", func(r *request.CreateItemRequest) { r.Symbol = "TH YAO" }, "symbol"},
		{"zero quantity", func(r *request.CreateItemRequest) { r.Quantity = decimal.Zero }, "quantity"},
		{"negative price", func(r *request.CreateItemRequest) { r.BuyPrice = decimal.NewFromInt(-1) }, "buyPrice"},
		{"bad date", func(r *request.CreateItemRequest) { r.PurchaseDate = "01/02/2024" }, "purchaseDate"},
	}

	require.NoError(t, ValidateCreateItem(valid))

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := valid
			tt.mutate(&req)
			fields := fieldErrors(t, ValidateCreateItem(req))
			assert.Contains(t, fields, tt.field)
			assert.Len(t, fields, 1)
		})
	}

	t.Run("zero buy price is allowed", func(t *testing.T) {
		req := valid
		req.BuyPrice = decimal.Zero
		assert.NoError(t, ValidateCreateItem(req))
	})
}

func TestValidateUpdateItem(t *testing.T) {
	qty := decimal.NewFromInt(3)
	zero := decimal.Zero
	date := "2024-02-30"

	assert.NoError(t, ValidateUpdateItem(request.UpdateItemRequest{Quantity: &qty}))

	fields := fieldErrors(t, ValidateUpdateItem(request.UpdateItemRequest{}))
	assert.Contains(t, fields, "body")

	fields = fieldErrors(t, ValidateUpdateItem(request.UpdateItemRequest{Quantity: &zero, PurchaseDate: &date}))
	assert.Contains(t, fields, "quantity")
	assert.Contains(t, fields, "purchaseDate")
}

func TestParseDate(t *testing.T) {
	d, err := ParseDate("2024-03-05")
	require.NoError(t, err)
	assert.Equal(t, 5, d.Day())

	d, err = ParseDate("2024-03-05T10:00:00+03:00")
	require.NoError(t, err)
	assert.Equal(t, 7, d.Hour())

	_, err = ParseDate("yesterday")
	assert.ErrorIs(t, err, ErrInvalidDate)
}

func TestError_SortsFields(t *testing.T) {
	err := &Error{Fields: map[string]string{"b": "second", "a": "first"}}
	assert.Equal(t, "a: first; b: second", err.Error())
}
