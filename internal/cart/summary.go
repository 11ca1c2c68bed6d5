package cart

import "github.com/shopspring/decimal"

// Summary is the order summary shown next to the cart. Amounts are in the
// same minor-unit-agnostic integers the catalog uses.
type Summary struct {
	TotalItems int
	MRP        decimal.Decimal
	Subtotal   decimal.Decimal
	Savings    decimal.Decimal
	Shipping   decimal.Decimal
	Total      decimal.Decimal
}

// Summarize prices items at their discounted price. Shipping is free.
func Summarize(items []Item) Summary {
	s := Summary{
		MRP:      decimal.Zero,
		Subtotal: decimal.Zero,
		Shipping: decimal.Zero,
	}
	for _, it := range items {
		qty := decimal.NewFromInt(int64(it.Quantity))
		s.TotalItems += it.Quantity
		s.MRP = s.MRP.Add(decimal.NewFromInt(it.Product.Price).Mul(qty))
		s.Subtotal = s.Subtotal.Add(decimal.NewFromInt(it.Product.DiscountedPrice).Mul(qty))
	}
	s.Savings = s.MRP.Sub(s.Subtotal)
	s.Total = s.Subtotal.Add(s.Shipping)
	return s
}
