// Package valuation computes item and portfolio valuations from positions and
// price quotes. Everything here is pure: no I/O, no clocks, no randomness.
package valuation

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/ndewijer/Portfolio-Valuation-Backend/internal/model"
)

// percentPlaces is the rounding applied to every percentage.
const percentPlaces = 2

var hundred = decimal.NewFromInt(100)

// Item values a single position against its quote.
// A nil quote or a quote whose Outcome is not ok yields an unavailable item.
func Item(pos model.Position, quote *model.PriceQuote) model.ItemValuation {
	costBasis := pos.CostBasisPerUnit.Mul(pos.Quantity)
	item := model.ItemValuation{
		PositionID:       pos.ID,
		Symbol:           pos.Symbol,
		Quantity:         pos.Quantity,
		CostBasisPerUnit: pos.CostBasisPerUnit,
		AcquiredAt:       pos.AcquiredAt,
		CostBasis:        costBasis,
	}

	switch {
	case quote == nil:
		item.Status = model.ItemStatusUnavailable
		item.Reason = "no price quote"
		return item
	case !quote.OK():
		item.Status = model.ItemStatusUnavailable
		item.Reason = fmt.Sprintf("%s: %s", quote.Outcome, quote.Reason)
		return item
	}

	marketValue := quote.Value.Mul(pos.Quantity)
	profit := marketValue.Sub(costBasis)

	item.Status = model.ItemStatusOK
	item.CurrentPrice = decimal.NewNullDecimal(quote.Value)
	item.MarketValue = decimal.NewNullDecimal(marketValue)
	item.Profit = decimal.NewNullDecimal(profit)
	item.ProfitPct = decimal.NewNullDecimal(Percent(profit, costBasis))
	return item
}

// Portfolio values every position of p. Quotes are looked up by position symbol.
// Unavailable items are listed but excluded from TotalValue and TotalCost.
func Portfolio(p model.Portfolio, quotes map[string]model.PriceQuote) model.PortfolioValuation {
	pv := model.PortfolioValuation{
		PortfolioID: p.ID,
		AssetClass:  p.AssetClass,
		TotalValue:  decimal.Zero,
		TotalCost:   decimal.Zero,
		Items:       make([]model.ItemValuation, 0, len(p.Positions)),
	}

	for _, pos := range p.Positions {
		var quote *model.PriceQuote
		if q, ok := quotes[pos.Symbol]; ok {
			quote = &q
		}

		item := Item(pos, quote)
		pv.Items = append(pv.Items, item)

		if !item.Available() {
			pv.UnavailableCount++
			continue
		}
		pv.TotalValue = pv.TotalValue.Add(item.MarketValue.Decimal)
		pv.TotalCost = pv.TotalCost.Add(item.CostBasis)
	}

	pv.TotalProfit = pv.TotalValue.Sub(pv.TotalCost)
	pv.TotalProfitPct = Percent(pv.TotalProfit, pv.TotalCost)
	return pv
}

// Percent returns part/whole × 100 rounded to two places, or zero when whole
// is not positive.
func Percent(part, whole decimal.Decimal) decimal.Decimal {
	if !whole.IsPositive() {
		return decimal.Zero
	}
	return part.Div(whole).Mul(hundred).Round(percentPlaces)
}
