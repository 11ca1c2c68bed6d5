// Package order submits the cart as an order and sends the shopper to the
// confirmation view afterwards.
package order

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/example/ceremic-storefront/internal/backend"
	"github.com/example/ceremic-storefront/internal/session"
)

const (
	DefaultFallbackPath = "/Ceremic/thank-you"
	DefaultDisplayDelay = 2 * time.Second

	tracerName = "github.com/example/ceremic-storefront/internal/order"
)

var (
	ErrNotLoggedIn       = errors.New("order: not logged in")
	ErrEmptyCart         = errors.New("order: cart is empty")
	ErrPlacementFailed   = errors.New("order: placement failed")
	ErrHistoryLoadFailed = errors.New("order: history load failed")
)

// Message returns the text shown to the shopper for err.
func Message(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrNotLoggedIn):
		return "Please login to place an order"
	case errors.Is(err, ErrEmptyCart):
		return "Your cart is empty"
	case errors.Is(err, ErrHistoryLoadFailed):
		return "Failed to load orders. Please try again."
	default:
		return "Failed to place order. Please try again."
	}
}

// Backend is the part of the REST client the order flow talks to.
type Backend interface {
	PlaceOrder(ctx context.Context, u backend.User) (*backend.OrderConfirmation, error)
	LoadOrderBook(ctx context.Context, u backend.User) (*backend.OrderBookResponse, error)
}

// Cart is the local cart the flow checks and refreshes.
type Cart interface {
	Len() int
	Load(ctx context.Context) error
}

// Navigator moves the front end to an internal path.
type Navigator interface {
	Navigate(ctx context.Context, path string)
}

// NavigatorFunc adapts a function to Navigator.
type NavigatorFunc func(ctx context.Context, path string)

func (f NavigatorFunc) Navigate(ctx context.Context, path string) { f(ctx, path) }

type Config struct {
	RedirectURL  string
	FallbackPath string
	DisplayDelay time.Duration
}

type Result struct {
	RequestID    string
	Confirmation *backend.OrderConfirmation
	// Redirect is the internal path the shopper is sent to.
	Redirect  string
	Navigated bool
}

type Placer struct {
	backend   Backend
	sessions  session.Provider
	cart      Cart
	navigator Navigator
	cfg       Config
	logger    *slog.Logger
	tracer    trace.Tracer
	sleep     func(ctx context.Context, d time.Duration) error
}

func NewPlacer(b Backend, sessions session.Provider, cart Cart, navigator Navigator, cfg Config, logger *slog.Logger) *Placer {
	if cfg.FallbackPath == "" {
		cfg.FallbackPath = DefaultFallbackPath
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Placer{
		backend:   b,
		sessions:  sessions,
		cart:      cart,
		navigator: navigator,
		cfg:       cfg,
		logger:    logger.With("component", "order"),
		tracer:    otel.Tracer(tracerName),
		sleep:     sleepCtx,
	}
}

// Place submits the server-side cart. On success the local cart is
// reloaded and, after the display delay, the navigator is sent to the
// resolved confirmation path. If ctx ends during the delay the order
// still stands but no navigation happens.
func (p *Placer) Place(ctx context.Context) (*Result, error) {
	s := session.Current(ctx, p.sessions)
	if s == nil {
		return nil, ErrNotLoggedIn
	}
	if p.cart.Len() == 0 {
		return nil, ErrEmptyCart
	}

	res := &Result{RequestID: uuid.NewString()}
	logger := p.logger.With("request_id", res.RequestID, "user_id", s.ID)

	ctx, span := p.tracer.Start(ctx, "order.place", trace.WithAttributes(
		attribute.String("order.request_id", res.RequestID),
		attribute.Int64("user.id", s.ID),
	))
	defer span.End()

	conf, err := p.backend.PlaceOrder(ctx, s.User())
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "place order failed")
		logger.Error("order placement failed", "error", err)
		return nil, fmt.Errorf("%w: %w", ErrPlacementFailed, err)
	}
	res.Confirmation = conf
	logger.Info("order placed")

	if err := p.cart.Load(ctx); err != nil {
		logger.Warn("cart reload after order failed", "error", err)
	}

	res.Redirect = ResolveRedirect(p.cfg.RedirectURL, p.cfg.FallbackPath)
	if strings.TrimSpace(p.cfg.RedirectURL) != "" && !internal(p.cfg.RedirectURL) {
		logger.Warn("external redirect target rejected, using fallback", "target", p.cfg.RedirectURL, "fallback", res.Redirect)
	}

	if err := p.sleep(ctx, p.cfg.DisplayDelay); err != nil {
		logger.Info("navigation skipped", "reason", err)
		return res, nil
	}
	if p.navigator != nil {
		p.navigator.Navigate(ctx, res.Redirect)
		res.Navigated = true
	}
	return res, nil
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
