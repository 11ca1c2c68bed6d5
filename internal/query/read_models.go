package query

import (
	"github.com/example/ceremic-storefront/internal/cart"
	"github.com/example/ceremic-storefront/internal/catalog"
)

// CartView is what the cart page renders.
type CartView struct {
	Items   []cart.Item
	Summary cart.Summary
	// Pending is the product waiting for login, if any.
	Pending *catalog.Product
}

func (v CartView) Empty() bool {
	return len(v.Items) == 0
}
