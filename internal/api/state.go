package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/example/ceremic-storefront/internal/backend"
)

var (
	ErrUnknownUser    = errors.New("unknown user")
	ErrUnknownProduct = errors.New("unknown product")
	ErrEmptyCart      = errors.New("cart is empty")
)

type cartLine struct {
	id       int64
	quantity int
}

// State is the in-memory data behind the emulated backend.
type State struct {
	mu sync.RWMutex

	products     map[int64]backend.RawProduct
	usersByID    map[int64]backend.User
	usersByPhone map[string]int64
	carts        map[int64]map[int64]*cartLine
	orderBooks   map[int64][]backend.OrderBookRecord
	logs         []backend.LogEntry

	nextUserID  int64
	nextLineID  int64
	nextOrderID int64

	// maxQuantity caps a single cart line. Zero means no cap.
	maxQuantity int
	now         func() time.Time
}

func NewState(products []backend.RawProduct, maxQuantity int) *State {
	s := &State{
		products:     make(map[int64]backend.RawProduct, len(products)),
		usersByID:    make(map[int64]backend.User),
		usersByPhone: make(map[string]int64),
		carts:        make(map[int64]map[int64]*cartLine),
		orderBooks:   make(map[int64][]backend.OrderBookRecord),
		maxQuantity:  maxQuantity,
		now:          time.Now,
	}
	for _, p := range products {
		s.products[p.ID] = p
	}
	return s
}

// Products returns the catalog ordered by id.
func (s *State) Products() []backend.RawProduct {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]backend.RawProduct, 0, len(s.products))
	for _, p := range s.products {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (s *State) Product(id int64) (backend.RawProduct, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.products[id]
	return p, ok
}

// CreateUser registers u. The second result is false when the phone
// number is already taken.
func (s *State) CreateUser(u backend.User) (backend.User, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	phone := backend.DigitsOnly(u.PhoneNumber)
	if _, exists := s.usersByPhone[phone]; exists {
		return backend.User{}, false
	}
	s.nextUserID++
	u.ID = s.nextUserID
	u.PhoneNumber = phone
	s.usersByID[u.ID] = u
	s.usersByPhone[phone] = u.ID
	return u, true
}

func (s *State) Login(phoneNumber string) (backend.User, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.usersByPhone[backend.DigitsOnly(phoneNumber)]
	if !ok {
		return backend.User{}, false
	}
	return s.usersByID[id], true
}

// SetCartItem stores quantity for the product, clamped to the per-line
// cap. A quantity of zero or less removes the line.
func (s *State) SetCartItem(userID, productID int64, quantity int) (backend.CartItemRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.usersByID[userID]; !ok {
		return backend.CartItemRecord{}, fmt.Errorf("user %d: %w", userID, ErrUnknownUser)
	}
	if _, ok := s.products[productID]; !ok {
		return backend.CartItemRecord{}, fmt.Errorf("product %d: %w", productID, ErrUnknownProduct)
	}

	lines := s.carts[userID]
	if lines == nil {
		lines = make(map[int64]*cartLine)
		s.carts[userID] = lines
	}

	rec := backend.CartItemRecord{UserID: userID, ProductID: productID}
	if quantity <= 0 {
		if line, ok := lines[productID]; ok {
			rec.ID = line.id
			delete(lines, productID)
		}
		return rec, nil
	}

	if s.maxQuantity > 0 && quantity > s.maxQuantity {
		quantity = s.maxQuantity
	}
	line, ok := lines[productID]
	if !ok {
		s.nextLineID++
		line = &cartLine{id: s.nextLineID}
		lines[productID] = line
	}
	line.quantity = quantity
	rec.ID = line.id
	rec.Quantity = quantity
	return rec, nil
}

// Cart returns the user's cart with the products it references.
func (s *State) Cart(userID int64) backend.CartResponse {
	s.mu.RLock()
	defer s.mu.RUnlock()

	resp := backend.CartResponse{
		Cart:     []backend.CartItemRecord{},
		Ceremics: []*backend.RawProduct{},
	}
	for productID, line := range s.carts[userID] {
		resp.Cart = append(resp.Cart, backend.CartItemRecord{
			ID: line.id, UserID: userID, ProductID: productID, Quantity: line.quantity,
		})
		if p, ok := s.products[productID]; ok {
			resp.Ceremics = append(resp.Ceremics, &p)
		}
	}
	sort.Slice(resp.Cart, func(i, j int) bool { return resp.Cart[i].ID < resp.Cart[j].ID })
	return resp
}

// PlaceOrder moves every cart line into the order book and empties the
// cart. It returns the new order book records.
func (s *State) PlaceOrder(userID int64) ([]backend.OrderBookRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.usersByID[userID]; !ok {
		return nil, fmt.Errorf("user %d: %w", userID, ErrUnknownUser)
	}
	lines := s.carts[userID]
	if len(lines) == 0 {
		return nil, ErrEmptyCart
	}

	created := s.now().UTC().Format(time.RFC3339)
	productIDs := make([]int64, 0, len(lines))
	for id := range lines {
		productIDs = append(productIDs, id)
	}
	sort.Slice(productIDs, func(i, j int) bool { return productIDs[i] < productIDs[j] })

	records := make([]backend.OrderBookRecord, 0, len(lines))
	for _, productID := range productIDs {
		s.nextOrderID++
		records = append(records, backend.OrderBookRecord{
			ID:        s.nextOrderID,
			ProductID: productID,
			Quantity:  lines[productID].quantity,
			CreatedOn: created,
		})
	}
	s.orderBooks[userID] = append(s.orderBooks[userID], records...)
	delete(s.carts, userID)
	return records, nil
}

func (s *State) OrderBook(userID int64) backend.OrderBookResponse {
	s.mu.RLock()
	defer s.mu.RUnlock()

	resp := backend.OrderBookResponse{
		OrderBooks: append([]backend.OrderBookRecord{}, s.orderBooks[userID]...),
		Ceremics:   []*backend.RawProduct{},
	}
	seen := make(map[int64]bool)
	for _, rec := range resp.OrderBooks {
		if seen[rec.ProductID] {
			continue
		}
		seen[rec.ProductID] = true
		if p, ok := s.products[rec.ProductID]; ok {
			resp.Ceremics = append(resp.Ceremics, &p)
		}
	}
	return resp
}

func (s *State) AppendLog(e backend.LogEntry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.logs = append(s.logs, e)
}

func (s *State) Logs() []backend.LogEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]backend.LogEntry(nil), s.logs...)
}

// LoadCatalog reads raw products from a JSON file or from every *.json
// file in a directory. Each file holds one product or an array of them.
func LoadCatalog(path string) ([]backend.RawProduct, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	files := []string{path}
	if info.IsDir() {
		files, err = filepath.Glob(filepath.Join(path, "*.json"))
		if err != nil {
			return nil, err
		}
		sort.Strings(files)
	}

	var products []backend.RawProduct
	for _, f := range files {
		raw, err := os.ReadFile(f)
		if err != nil {
			return nil, err
		}
		trimmed := strings.TrimSpace(string(raw))
		if strings.HasPrefix(trimmed, "[") {
			var batch []backend.RawProduct
			if err := json.Unmarshal(raw, &batch); err != nil {
				return nil, fmt.Errorf("parse %s: %w", f, err)
			}
			products = append(products, batch...)
			continue
		}
		var p backend.RawProduct
		if err := json.Unmarshal(raw, &p); err != nil {
			return nil, fmt.Errorf("parse %s: %w", f, err)
		}
		products = append(products, p)
	}
	return products, nil
}

// DefaultCatalog is served when no seed is configured.
func DefaultCatalog() []backend.RawProduct {
	rating := func(v float64) *float64 { return &v }
	return []backend.RawProduct{
		{
			ID: 1, Name: "Indigo Bud Vase", Price: 1200,
			Description: "Wheel-thrown stoneware vase with an indigo glaze.",
			Discounts:   &backend.RawDiscount{Enable: true, Discount: 25},
			Images: []backend.RawImage{
				{ID: 1, Base64: "data:image/png;base64,aW5kaWdvLXNpZGU="},
				{ID: 2, Base64: "data:image/png;base64,aW5kaWdvLWZyb250", CatalogImage: true},
			},
			Benefits:          []backend.RawBenefit{{ID: 1, Value: "Handmade", Description: "Thrown and glazed by hand"}},
			ProductLovePoints: []backend.RawLovePoint{{ID: 1, Value: "Food safe glaze"}},
			ProductDetails: []backend.RawProductDetail{
				{ID: 1, Value: "18", Dimension: &backend.RawDimension{Name: "Height", Unit: "cm"}},
			},
			Reviews: []backend.RawReview{
				{ID: 1, User: &backend.RawReviewUser{Username: "meera"}, Rating: rating(5), Description: "Gorgeous colour", CreatedOn: "2024-01-12T09:30:00Z"},
			},
		},
		{
			ID: 2, Name: "Terracotta Mug", Price: 450,
			Description: "Everyday mug in unglazed terracotta.",
			Image:       "data:image/png;base64,bXVn",
		},
		{
			ID: 3, Name: "Speckled Serving Bowl", Price: 2100,
			Discounts:       &backend.RawDiscount{Enable: false, Discount: 10},
			ReviewsMetaData: &backend.RawReviewsMeta{Rating: 4.6, Reviews: 31},
		},
	}
}
