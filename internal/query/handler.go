package query

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/example/ceremic-storefront/internal/backend"
	"github.com/example/ceremic-storefront/internal/cart"
	"github.com/example/ceremic-storefront/internal/catalog"
	"github.com/example/ceremic-storefront/internal/order"
)

var (
	ErrCatalogUnavailable = errors.New("query: catalog unavailable")
	ErrProductNotFound    = errors.New("query: product not found")
)

// Message returns the text shown when a page-level read fails.
func Message(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrProductNotFound):
		return "Product not found."
	case errors.Is(err, cart.ErrAuthRequired):
		return "Please login to view your cart"
	case errors.Is(err, order.ErrNotLoggedIn), errors.Is(err, order.ErrHistoryLoadFailed):
		return order.Message(err)
	default:
		return "Failed to load products. Please try again later."
	}
}

// CatalogBackend is the part of the REST client the read side uses.
type CatalogBackend interface {
	FetchCollections(ctx context.Context) ([]*backend.RawProduct, error)
	FetchProduct(ctx context.Context, id int64) (*backend.RawProduct, error)
}

type Handler struct {
	backend     CatalogBackend
	cache       *catalog.Cache
	transformer *catalog.Transformer
	cart        *cart.Reconciler
	history     *order.History
	logger      *slog.Logger
}

func NewHandler(
	b CatalogBackend,
	cache *catalog.Cache,
	transformer *catalog.Transformer,
	cartState *cart.Reconciler,
	history *order.History,
	logger *slog.Logger,
) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		backend:     b,
		cache:       cache,
		transformer: transformer,
		cart:        cartState,
		history:     history,
		logger:      logger.With("component", "query"),
	}
}

// ListProducts serves the catalog from cache, fetching and caching it on
// a miss. Only raw payloads are cached; products are transformed on every
// call.
func (h *Handler) ListProducts(ctx context.Context) ([]catalog.Product, error) {
	raw, err := h.rawCatalog(ctx)
	if err != nil {
		return nil, err
	}
	return h.transformer.TransformAll(raw), nil
}

// ListNewArrivals is the "new" category of the collections page.
func (h *Handler) ListNewArrivals(ctx context.Context) ([]catalog.Product, error) {
	products, err := h.ListProducts(ctx)
	if err != nil {
		return nil, err
	}
	out := products[:0]
	for _, p := range products {
		if p.Category == catalog.DefaultCategory {
			out = append(out, p)
		}
	}
	return out, nil
}

// GetProduct looks id up in the cached catalog first and asks the backend
// only when it is not there.
func (h *Handler) GetProduct(ctx context.Context, id int64) (*catalog.Product, error) {
	if raw, ok := h.cache.Get(ctx); ok {
		for _, r := range raw {
			if r != nil && r.ID == id {
				return h.transformer.Transform(r), nil
			}
		}
	}

	raw, err := h.backend.FetchProduct(ctx, id)
	if err != nil {
		h.logger.Error("fetch product failed", "product_id", id, "error", err)
		return nil, fmt.Errorf("%w: %w", ErrCatalogUnavailable, err)
	}
	p := h.transformer.Transform(raw)
	if p == nil {
		return nil, fmt.Errorf("product %d: %w", id, ErrProductNotFound)
	}
	return p, nil
}

// Cart returns the local cart as last reconciled.
func (h *Handler) Cart() CartView {
	v := CartView{
		Items:   h.cart.Items(),
		Summary: h.cart.Summary(),
	}
	if p, ok := h.cart.Pending(); ok {
		v.Pending = &p
	}
	return v
}

// Orders returns the order history grouped by day.
func (h *Handler) Orders(ctx context.Context) ([]order.DayGroup, error) {
	return h.history.Load(ctx)
}

func (h *Handler) rawCatalog(ctx context.Context) ([]*backend.RawProduct, error) {
	if raw, ok := h.cache.Get(ctx); ok {
		h.logger.Debug("catalog served from cache", "products", len(raw))
		return raw, nil
	}

	raw, err := h.backend.FetchCollections(ctx)
	if err != nil {
		h.logger.Error("fetch collections failed", "error", err)
		return nil, fmt.Errorf("%w: %w", ErrCatalogUnavailable, err)
	}
	if err := h.cache.Put(ctx, raw); err != nil {
		h.logger.Warn("catalog cache write failed", "error", err)
	}
	return raw, nil
}
