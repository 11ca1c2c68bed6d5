package mocks

import (
	"context"
	"sync"

	"github.com/example/ceremic-storefront/internal/backend"
)

// MockBackend is a mock implementation of the REST backend client for testing
type MockBackend struct {
	mu sync.Mutex

	Products  []backend.RawProduct
	Cart      map[int64]int
	OrderBook []backend.OrderBookRecord

	// Appended to every product array the mock returns, e.g. nil to
	// mimic null entries in the payload
	ExtraProducts []*backend.RawProduct

	// UpdateCartFunc overrides the default server behavior for cart updates
	UpdateCartFunc func(userID, productID int64, quantity int) (*backend.CartItemRecord, error)

	// For tracking calls in tests
	UpdateCartCalls []UpdateCartCall
	LoadCartCalls   []backend.User
	PlaceOrderCalls []backend.User
	CreateUserCalls []backend.User
	LoginCalls      []string
	LogCalls        []backend.LogEntry
	FetchCalls      int

	// Errors returned instead of the default behavior, when set
	FetchErr      error
	CreateUserErr error
	LoginErr      error
	LoadCartErr   error
	PlaceOrderErr error
	OrderBookErr  error
	LogErr        error

	// Users returned by CreateUser and Login
	User *backend.User
}

// UpdateCartCall records parameters passed to UpdateCartItem
type UpdateCartCall struct {
	UserID    int64
	ProductID int64
	Quantity  int
}

// NewMockBackend creates a new MockBackend with an empty server cart
func NewMockBackend(products ...backend.RawProduct) *MockBackend {
	return &MockBackend{
		Products: products,
		Cart:     make(map[int64]int),
	}
}

func (m *MockBackend) FetchCollections(_ context.Context) ([]*backend.RawProduct, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.FetchCalls++
	if m.FetchErr != nil {
		return nil, m.FetchErr
	}
	return m.catalogLocked(), nil
}

func (m *MockBackend) FetchProduct(_ context.Context, id int64) (*backend.RawProduct, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.FetchCalls++
	if m.FetchErr != nil {
		return nil, m.FetchErr
	}
	for i := range m.Products {
		if m.Products[i].ID == id {
			p := m.Products[i]
			return &p, nil
		}
	}
	return nil, nil
}

func (m *MockBackend) CreateUser(_ context.Context, u backend.User) (*backend.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.CreateUserCalls = append(m.CreateUserCalls, u)
	if m.CreateUserErr != nil {
		return nil, m.CreateUserErr
	}
	if m.User != nil {
		created := *m.User
		return &created, nil
	}
	u.ID = int64(len(m.CreateUserCalls))
	return &u, nil
}

func (m *MockBackend) Login(_ context.Context, phoneNumber string) (*backend.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.LoginCalls = append(m.LoginCalls, phoneNumber)
	if m.LoginErr != nil {
		return nil, m.LoginErr
	}
	if m.User != nil {
		u := *m.User
		return &u, nil
	}
	return &backend.User{ID: 1, PhoneNumber: backend.DigitsOnly(phoneNumber)}, nil
}

// UpdateCartItem stores the requested quantity unless UpdateCartFunc is set
func (m *MockBackend) UpdateCartItem(_ context.Context, userID, productID int64, quantity int) (*backend.CartItemRecord, error) {
	m.mu.Lock()
	m.UpdateCartCalls = append(m.UpdateCartCalls, UpdateCartCall{UserID: userID, ProductID: productID, Quantity: quantity})
	fn := m.UpdateCartFunc
	m.mu.Unlock()

	if fn != nil {
		return fn(userID, productID, quantity)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if quantity <= 0 {
		delete(m.Cart, productID)
	} else {
		m.Cart[productID] = quantity
	}
	return &backend.CartItemRecord{UserID: userID, ProductID: productID, Quantity: quantity}, nil
}

func (m *MockBackend) LoadCart(_ context.Context, u backend.User) (*backend.CartResponse, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.LoadCartCalls = append(m.LoadCartCalls, u)
	if m.LoadCartErr != nil {
		return nil, m.LoadCartErr
	}
	resp := &backend.CartResponse{Ceremics: m.catalogLocked()}
	for productID, qty := range m.Cart {
		resp.Cart = append(resp.Cart, backend.CartItemRecord{UserID: u.ID, ProductID: productID, Quantity: qty})
	}
	return resp, nil
}

// PlaceOrder moves the server cart into the order book
func (m *MockBackend) PlaceOrder(_ context.Context, u backend.User) (*backend.OrderConfirmation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.PlaceOrderCalls = append(m.PlaceOrderCalls, u)
	if m.PlaceOrderErr != nil {
		return nil, m.PlaceOrderErr
	}
	for productID, qty := range m.Cart {
		m.OrderBook = append(m.OrderBook, backend.OrderBookRecord{
			ID:        int64(len(m.OrderBook) + 1),
			ProductID: productID,
			Quantity:  qty,
		})
	}
	m.Cart = make(map[int64]int)
	return &backend.OrderConfirmation{Success: true}, nil
}

func (m *MockBackend) LoadOrderBook(_ context.Context, _ backend.User) (*backend.OrderBookResponse, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.OrderBookErr != nil {
		return nil, m.OrderBookErr
	}
	return &backend.OrderBookResponse{
		OrderBooks: append([]backend.OrderBookRecord(nil), m.OrderBook...),
		Ceremics:   m.catalogLocked(),
	}, nil
}

func (m *MockBackend) Log(_ context.Context, e backend.LogEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.LogCalls = append(m.LogCalls, e)
	return m.LogErr
}

func (m *MockBackend) catalogLocked() []*backend.RawProduct {
	out := make([]*backend.RawProduct, 0, len(m.Products)+len(m.ExtraProducts))
	for i := range m.Products {
		p := m.Products[i]
		out = append(out, &p)
	}
	return append(out, m.ExtraProducts...)
}

// Updates returns a copy of the recorded cart update calls
func (m *MockBackend) Updates() []UpdateCartCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]UpdateCartCall(nil), m.UpdateCartCalls...)
}

// Logs returns a copy of the recorded log entries
func (m *MockBackend) Logs() []backend.LogEntry {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]backend.LogEntry(nil), m.LogCalls...)
}

// Reset clears recorded calls and configured errors
func (m *MockBackend) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.UpdateCartFunc = nil
	m.UpdateCartCalls = nil
	m.LoadCartCalls = nil
	m.PlaceOrderCalls = nil
	m.CreateUserCalls = nil
	m.LoginCalls = nil
	m.LogCalls = nil
	m.FetchCalls = 0
	m.FetchErr = nil
	m.CreateUserErr = nil
	m.LoginErr = nil
	m.LoadCartErr = nil
	m.PlaceOrderErr = nil
	m.OrderBookErr = nil
	m.LogErr = nil
}
