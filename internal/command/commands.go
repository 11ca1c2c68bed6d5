package command

import (
	"github.com/example/ceremic-storefront/internal/auth"
	"github.com/example/ceremic-storefront/internal/catalog"
)

// Cart Commands
type AddToCart struct {
	Product catalog.Product `json:"product"`
	// Bulk adds six units instead of one.
	Bulk bool `json:"bulk"`
}

type IncreaseQuantity struct {
	ProductID int64 `json:"product_id"`
}

type DecreaseQuantity struct {
	ProductID int64 `json:"product_id"`
}

type RemoveFromCart struct {
	ProductID int64 `json:"product_id"`
}

type LoadCart struct{}

// Order Commands
type PlaceOrder struct{}

// Account Commands
type Signup struct {
	Form auth.SignupForm `json:"form"`
}

type Login struct {
	PhoneNumber string `json:"phone_number"`
}

type Logout struct{}

// Track records a page visit or click that changes no state.
type Track struct {
	Action     string `json:"action"`
	ElementTag string `json:"element_tag"`
	PageName   string `json:"page_name"`
}
