package sale

import (
	"cashpoint/internal/core/types"
)

// PriceLine computes a line subtotal and the discount it grants.
// subtotal = unitPrice * qty * (1 - discount/100), rounded to cents.
func PriceLine(unitPrice types.Money, qty int64, discountPct types.Money) (subtotal, discount types.Money) {
	gross := unitPrice.Mul(types.FromInt(qty))
	subtotal = types.Round(types.ApplyDiscount(gross, discountPct))
	return subtotal, types.Round(gross).Sub(subtotal)
}

// Totals are the header amounts of a sale.
type Totals struct {
	Subtotal types.Money
	Discount types.Money
	Tax      types.Money
	Total    types.Money
}

// ComputeTotals applies the tax rate to the sum of line subtotals.
func ComputeTotals(items []Item, discount types.Money, taxRate types.Money) Totals {
	subtotal := types.Zero()
	for _, it := range items {
		subtotal = subtotal.Add(it.Subtotal)
	}
	tax := types.Round(subtotal.Mul(taxRate))
	return Totals{
		Subtotal: subtotal,
		Discount: discount,
		Tax:      tax,
		Total:    subtotal.Add(tax),
	}
}
