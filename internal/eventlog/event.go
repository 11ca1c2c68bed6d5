// Package eventlog records shopper actions without ever making the action
// wait for, or fail because of, the telemetry path.
package eventlog

import "time"

// Pages and actions reported by the storefront.
const (
	PageCollections = "COLLECTIONS"
	PageProduct     = "PRODUCT"
	PageCart        = "CART"
	PageOrders      = "ORDERS"
	PageAuth        = "AUTH"

	ActionVisit       = "VISIT"
	ActionView        = "VIEW"
	ActionAllProducts = "ALL_PRODUCTS"
	ActionNewArrivals = "NEW_ARRIVALS"
	ActionAddToCart   = "ADD_TO_CART"
	ActionBulkAdd     = "ADD_SIX_TO_CART"
	ActionIncrease    = "INCREASE_QUANTITY"
	ActionDecrease    = "DECREASE_QUANTITY"
	ActionRemove      = "REMOVE_FROM_CART"
	ActionPlaceOrder  = "PLACE_ORDER"
	ActionLogin       = "LOGIN"
	ActionSignup      = "SIGNUP"
	ActionLogout      = "LOGOUT"
)

// Event is one logged action.
type Event struct {
	ID         string    `json:"id"`
	IP         string    `json:"ip"`
	UserID     int64     `json:"userId"`
	PageName   string    `json:"pageName"`
	Action     string    `json:"action"`
	ElementTag string    `json:"elementTag"`
	At         time.Time `json:"at"`
}
