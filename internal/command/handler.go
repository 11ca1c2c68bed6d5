package command

import (
	"context"
	"log/slog"
	"strconv"

	"github.com/example/ceremic-storefront/internal/auth"
	"github.com/example/ceremic-storefront/internal/cart"
	"github.com/example/ceremic-storefront/internal/eventlog"
	"github.com/example/ceremic-storefront/internal/order"
	"github.com/example/ceremic-storefront/internal/session"
)

// Handler executes storefront commands against the cart, order and auth
// components. Every command is reported to the event log without
// waiting for it.
type Handler struct {
	cart     *cart.Reconciler
	auth     *auth.Service
	orders   *order.Placer
	events   *eventlog.Logger
	sessions session.Provider
	logger   *slog.Logger
}

func NewHandler(
	cartState *cart.Reconciler,
	authSvc *auth.Service,
	orders *order.Placer,
	events *eventlog.Logger,
	sessions session.Provider,
	logger *slog.Logger,
) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		cart:     cartState,
		auth:     authSvc,
		orders:   orders,
		events:   events,
		sessions: sessions,
		logger:   logger.With("component", "command"),
	}
}

// AddToCart adds one unit, or six for a bulk add, and returns the
// quantity the server confirmed. Logged out, the product is kept for
// after login and cart.ErrAuthRequired is returned.
func (h *Handler) AddToCart(ctx context.Context, cmd AddToCart) (int, error) {
	action := eventlog.ActionAddToCart
	if cmd.Bulk {
		action = eventlog.ActionBulkAdd
	}
	h.track(ctx, action, productTag(cmd.Product.ID), eventlog.PageProduct)

	if cmd.Bulk {
		return h.cart.AddSix(ctx, cmd.Product)
	}
	return h.cart.AddOne(ctx, cmd.Product)
}

func (h *Handler) IncreaseQuantity(ctx context.Context, cmd IncreaseQuantity) (int, error) {
	h.track(ctx, eventlog.ActionIncrease, productTag(cmd.ProductID), eventlog.PageCart)
	return h.cart.Increase(ctx, cmd.ProductID)
}

func (h *Handler) DecreaseQuantity(ctx context.Context, cmd DecreaseQuantity) (int, error) {
	h.track(ctx, eventlog.ActionDecrease, productTag(cmd.ProductID), eventlog.PageCart)
	return h.cart.Decrease(ctx, cmd.ProductID)
}

func (h *Handler) RemoveFromCart(ctx context.Context, cmd RemoveFromCart) (int, error) {
	h.track(ctx, eventlog.ActionRemove, productTag(cmd.ProductID), eventlog.PageCart)
	return h.cart.Remove(ctx, cmd.ProductID)
}

func (h *Handler) LoadCart(ctx context.Context, _ LoadCart) error {
	h.track(ctx, eventlog.ActionVisit, "CART_PAGE", eventlog.PageCart)
	return h.cart.Load(ctx)
}

func (h *Handler) PlaceOrder(ctx context.Context, _ PlaceOrder) (*order.Result, error) {
	h.track(ctx, eventlog.ActionPlaceOrder, "PLACE_ORDER_BUTTON", eventlog.PageCart)
	return h.orders.Place(ctx)
}

// Signup creates the account and then runs the post-login steps.
func (h *Handler) Signup(ctx context.Context, cmd Signup) (*session.Session, error) {
	s, err := h.auth.Signup(ctx, cmd.Form)
	if err != nil {
		return nil, err
	}
	h.track(ctx, eventlog.ActionSignup, "SIGNUP_FORM", eventlog.PageAuth)
	h.afterLogin(ctx)
	return s, nil
}

func (h *Handler) Login(ctx context.Context, cmd Login) (*session.Session, error) {
	s, err := h.auth.Login(ctx, cmd.PhoneNumber)
	if err != nil {
		return nil, err
	}
	h.track(ctx, eventlog.ActionLogin, "LOGIN_FORM", eventlog.PageAuth)
	h.afterLogin(ctx)
	return s, nil
}

// Logout clears the session and forgets the local cart.
func (h *Handler) Logout(ctx context.Context, _ Logout) error {
	h.track(ctx, eventlog.ActionLogout, "LOGOUT_BUTTON", eventlog.PageAuth)
	if err := h.auth.Logout(ctx); err != nil {
		return err
	}
	h.cart.Reset()
	return nil
}

func (h *Handler) Track(ctx context.Context, cmd Track) {
	h.track(ctx, cmd.Action, cmd.ElementTag, cmd.PageName)
}

// afterLogin pulls the server cart and then performs the add that was
// deferred while logged out. Failures here do not undo the login.
func (h *Handler) afterLogin(ctx context.Context) {
	if err := h.cart.Load(ctx); err != nil {
		h.logger.Warn("cart load after login failed", "error", err)
	}
	flushed, err := h.cart.FlushPending(ctx)
	if err != nil {
		h.logger.Warn("deferred add failed", "error", err)
		return
	}
	if flushed {
		h.logger.Info("deferred add completed")
	}
}

func (h *Handler) track(ctx context.Context, action, elementTag, pageName string) {
	h.events.Log(action, elementTag, pageName, session.UserID(ctx, h.sessions))
}

func productTag(id int64) string {
	return strconv.FormatInt(id, 10)
}
