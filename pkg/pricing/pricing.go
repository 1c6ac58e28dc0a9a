package pricing

import "github.com/shopspring/decimal"

var hundred = decimal.NewFromInt(100)

// LineTotal computes unitPrice x qty, applies an optional percentage
// discount, and rounds to the currency's minor unit using round-half-even.
func LineTotal(unitPrice decimal.Decimal, qty int, discountPercent *decimal.Decimal) decimal.Decimal {
	total := unitPrice.Mul(decimal.NewFromInt(int64(qty)))
	if discountPercent != nil && discountPercent.IsPositive() {
		factor := decimal.NewFromInt(1).Sub(discountPercent.Div(hundred))
		total = total.Mul(factor)
	}
	return total.RoundBank(2)
}
