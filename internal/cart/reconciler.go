// Package cart keeps a local mirror of the server-side cart. Every
// mutation asks the server for a target quantity and then adopts whatever
// quantity the server confirms.
package cart

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/example/ceremic-storefront/internal/backend"
	"github.com/example/ceremic-storefront/internal/catalog"
	"github.com/example/ceremic-storefront/internal/session"
)

const (
	tracerName = "github.com/example/ceremic-storefront/internal/cart"

	BulkQuantity = 6
)

var (
	ErrAuthRequired      = errors.New("authentication required")
	ErrOperationInFlight = errors.New("another cart operation for this product is in progress")
	ErrUnknownProduct    = errors.New("product is not in the cart")
)

// Backend is the part of the REST client the reconciler talks to.
type Backend interface {
	UpdateCartItem(ctx context.Context, userID, productID int64, quantity int) (*backend.CartItemRecord, error)
	LoadCart(ctx context.Context, u backend.User) (*backend.CartResponse, error)
}

// Item is one cart line. Quantity is always at least 1.
type Item struct {
	Product    catalog.Product
	Quantity   int
	CartItemID int64
}

// Observer receives a snapshot of the cart after every local change.
type Observer func(items []Item)

type Reconciler struct {
	backend     Backend
	sessions    session.Provider
	transformer *catalog.Transformer
	logger      *slog.Logger
	tracer      trace.Tracer

	mu        sync.Mutex
	items     map[int64]Item
	order     []int64
	inFlight  map[int64]struct{}
	pending   *catalog.Product
	observers map[int]Observer
	nextObs   int
}

func NewReconciler(b Backend, sessions session.Provider, transformer *catalog.Transformer, logger *slog.Logger) *Reconciler {
	if transformer == nil {
		transformer = catalog.NewTransformer(nil)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Reconciler{
		backend:     b,
		sessions:    sessions,
		transformer: transformer,
		logger:      logger.With("component", "cart"),
		tracer:      otel.Tracer(tracerName),
		items:       make(map[int64]Item),
		inFlight:    make(map[int64]struct{}),
		observers:   make(map[int]Observer),
	}
}

// AddOne adds a single unit of p. While logged out, p is remembered as
// the pending add and ErrAuthRequired is returned.
func (r *Reconciler) AddOne(ctx context.Context, p catalog.Product) (int, error) {
	return r.add(ctx, "cart.add_one", p, 1)
}

// AddSix is the bulk variant of AddOne.
func (r *Reconciler) AddSix(ctx context.Context, p catalog.Product) (int, error) {
	return r.add(ctx, "cart.add_six", p, BulkQuantity)
}

func (r *Reconciler) add(ctx context.Context, op string, p catalog.Product, delta int) (int, error) {
	s := session.Current(ctx, r.sessions)
	if s == nil {
		r.mu.Lock()
		pending := p
		r.pending = &pending
		r.mu.Unlock()
		r.logger.Info("deferring add until login", "product_id", p.ID)
		return 0, ErrAuthRequired
	}
	return r.mutate(ctx, op, s, p.ID, &p, func(current int) int { return current + delta })
}

func (r *Reconciler) Increase(ctx context.Context, productID int64) (int, error) {
	return r.mutateExisting(ctx, "cart.increase", productID, func(current int) int { return current + 1 })
}

// Decrease lowers the quantity by one. Reaching zero removes the item once
// the server confirms it.
func (r *Reconciler) Decrease(ctx context.Context, productID int64) (int, error) {
	return r.mutateExisting(ctx, "cart.decrease", productID, func(current int) int { return max(0, current-1) })
}

// Remove asks the server to drop the item and removes it locally after
// confirmation.
func (r *Reconciler) Remove(ctx context.Context, productID int64) (int, error) {
	return r.mutateExisting(ctx, "cart.remove", productID, func(int) int { return 0 })
}

func (r *Reconciler) mutateExisting(ctx context.Context, op string, productID int64, target func(int) int) (int, error) {
	s := session.Current(ctx, r.sessions)
	if s == nil {
		return 0, ErrAuthRequired
	}
	r.mu.Lock()
	_, ok := r.items[productID]
	r.mu.Unlock()
	if !ok {
		return 0, fmt.Errorf("product %d: %w", productID, ErrUnknownProduct)
	}
	return r.mutate(ctx, op, s, productID, nil, target)
}

// mutate runs one request/reconcile round trip for productID. p is the
// product to insert when the item is not yet in the cart.
func (r *Reconciler) mutate(ctx context.Context, op string, s *session.Session, productID int64, p *catalog.Product, target func(int) int) (int, error) {
	ctx, span := r.tracer.Start(ctx, op, trace.WithAttributes(attribute.Int64("product.id", productID)))
	defer span.End()

	if err := r.acquire(productID); err != nil {
		span.SetStatus(codes.Error, err.Error())
		return r.Quantity(productID), err
	}
	defer r.release(productID)

	current := r.Quantity(productID)
	requested := target(current)
	span.SetAttributes(attribute.Int("cart.quantity.current", current), attribute.Int("cart.quantity.requested", requested))

	rec, err := r.backend.UpdateCartItem(ctx, s.ID, productID, requested)
	if errors.Is(err, backend.ErrNoRecord) && requested <= 0 {
		// a deletion may answer with nothing to show
		rec, err = &backend.CartItemRecord{ProductID: productID}, nil
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "update failed")
		r.logger.Error("cart update failed", "op", op, "product_id", productID, "requested", requested, "error", err)
		return current, fmt.Errorf("%s product %d: %w", op, productID, err)
	}

	confirmed := rec.Quantity
	span.SetAttributes(attribute.Int("cart.quantity.confirmed", confirmed))
	if confirmed != requested {
		r.logger.Info("server adjusted quantity", "product_id", productID, "requested", requested, "confirmed", confirmed)
	}

	r.apply(productID, p, confirmed, rec.ID)
	return confirmed, nil
}

// apply adopts the confirmed quantity and notifies observers.
func (r *Reconciler) apply(productID int64, p *catalog.Product, confirmed int, cartItemID int64) {
	r.mu.Lock()
	item, exists := r.items[productID]
	switch {
	case confirmed <= 0:
		if exists {
			r.deleteLocked(productID)
		}
	case exists:
		item.Quantity = confirmed
		if cartItemID != 0 {
			item.CartItemID = cartItemID
		}
		r.items[productID] = item
	case p != nil:
		r.items[productID] = Item{Product: *p, Quantity: confirmed, CartItemID: cartItemID}
		r.order = append(r.order, productID)
	default:
		// The item went away while the request was in flight and there
		// is nothing to rebuild it from; the next Load picks it up.
		r.logger.Warn("confirmed quantity for product missing locally", "product_id", productID, "confirmed", confirmed)
	}
	snapshot, observers := r.snapshotLocked()
	r.mu.Unlock()

	notify(observers, snapshot)
}

// Load replaces the local cart with the server's. Entries whose product
// is not in the accompanying catalog snapshot are dropped.
func (r *Reconciler) Load(ctx context.Context) error {
	ctx, span := r.tracer.Start(ctx, "cart.load")
	defer span.End()

	s := session.Current(ctx, r.sessions)
	if s == nil {
		return ErrAuthRequired
	}

	resp, err := r.backend.LoadCart(ctx, s.User())
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "load failed")
		r.logger.Error("cart load failed", "user_id", s.ID, "error", err)
		return fmt.Errorf("load cart: %w", err)
	}

	products := catalog.Index(r.transformer.TransformAll(resp.Ceremics))
	items := make(map[int64]Item, len(resp.Cart))
	order := make([]int64, 0, len(resp.Cart))
	for _, rec := range resp.Cart {
		p, ok := products[rec.ProductID]
		if !ok {
			r.logger.Debug("dropping cart entry with unknown product", "product_id", rec.ProductID)
			continue
		}
		if rec.Quantity <= 0 {
			continue
		}
		if _, dup := items[rec.ProductID]; !dup {
			order = append(order, rec.ProductID)
		}
		items[rec.ProductID] = Item{Product: p, Quantity: rec.Quantity, CartItemID: rec.ID}
	}
	span.SetAttributes(attribute.Int("cart.items", len(items)))

	r.mu.Lock()
	r.items = items
	r.order = order
	snapshot, observers := r.snapshotLocked()
	r.mu.Unlock()

	notify(observers, snapshot)
	return nil
}

// FlushPending performs the add deferred by a logged-out AddOne or AddSix
// as a single-unit add. The pending slot is cleared whatever the outcome.
func (r *Reconciler) FlushPending(ctx context.Context) (bool, error) {
	r.mu.Lock()
	p := r.pending
	r.pending = nil
	r.mu.Unlock()

	if p == nil {
		return false, nil
	}
	_, err := r.AddOne(ctx, *p)
	if errors.Is(err, ErrAuthRequired) {
		// still logged out; AddOne parked it again
		return false, err
	}
	return true, err
}

// Pending returns the product waiting for login, if any.
func (r *Reconciler) Pending() (catalog.Product, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.pending == nil {
		return catalog.Product{}, false
	}
	return *r.pending, true
}

// Reset empties the local cart and the pending slot, e.g. on logout.
func (r *Reconciler) Reset() {
	r.mu.Lock()
	r.items = make(map[int64]Item)
	r.order = nil
	r.pending = nil
	snapshot, observers := r.snapshotLocked()
	r.mu.Unlock()

	notify(observers, snapshot)
}

// Items returns the cart lines in the order they were first added.
func (r *Reconciler) Items() []Item {
	r.mu.Lock()
	defer r.mu.Unlock()
	items, _ := r.snapshotLocked()
	return items
}

func (r *Reconciler) Quantity(productID int64) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.items[productID].Quantity
}

// Len is the number of distinct products in the cart.
func (r *Reconciler) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.items)
}

func (r *Reconciler) Summary() Summary {
	return Summarize(r.Items())
}

// Busy reports whether a mutation for productID is in flight.
func (r *Reconciler) Busy(productID int64) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.inFlight[productID]
	return ok
}

// Subscribe registers o and returns a func that unregisters it.
func (r *Reconciler) Subscribe(o Observer) func() {
	r.mu.Lock()
	defer r.mu.Unlock()
	id := r.nextObs
	r.nextObs++
	r.observers[id] = o
	return func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		delete(r.observers, id)
	}
}

func (r *Reconciler) acquire(productID int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, busy := r.inFlight[productID]; busy {
		return fmt.Errorf("product %d: %w", productID, ErrOperationInFlight)
	}
	r.inFlight[productID] = struct{}{}
	return nil
}

func (r *Reconciler) release(productID int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.inFlight, productID)
}

func (r *Reconciler) deleteLocked(productID int64) {
	delete(r.items, productID)
	for i, id := range r.order {
		if id == productID {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
}

func (r *Reconciler) snapshotLocked() ([]Item, []Observer) {
	items := make([]Item, 0, len(r.order))
	for _, id := range r.order {
		items = append(items, r.items[id])
	}
	observers := make([]Observer, 0, len(r.observers))
	for _, o := range r.observers {
		observers = append(observers, o)
	}
	return items, observers
}

func notify(observers []Observer, snapshot []Item) {
	for _, o := range observers {
		o(append([]Item(nil), snapshot...))
	}
}
