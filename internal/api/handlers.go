package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/example/ceremic-storefront/internal/backend"
)

type Handlers struct {
	state  *State
	logger *slog.Logger
}

func NewHandlers(state *State, logger *slog.Logger) *Handlers {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handlers{
		state:  state,
		logger: logger.With("component", "fake_backend"),
	}
}

// Catalog Handlers

func (h *Handlers) GetCollections(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.state.Products())
}

// GetProduct answers an unknown id with a null body, as the real backend
// does.
func (h *Handlers) GetProduct(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(extractPathParam(r.URL.Path, backend.PathCollections+"/"), 10, 64)
	if err != nil {
		http.Error(w, "Invalid product id", http.StatusBadRequest)
		return
	}
	p, ok := h.state.Product(id)
	if !ok {
		respondJSON(w, http.StatusOK, nil)
		return
	}
	respondJSON(w, http.StatusOK, p)
}

// User Handlers

// CreateUser answers a duplicate phone number with 200 and an empty body.
func (h *Handlers) CreateUser(w http.ResponseWriter, r *http.Request) {
	u := userFromQuery(r)
	if u.Username == "" || backend.DigitsOnly(u.PhoneNumber) == "" {
		http.Error(w, "username and phoneNumber are required", http.StatusBadRequest)
		return
	}

	created, ok := h.state.CreateUser(u)
	if !ok {
		h.logger.Info("signup for existing phone number")
		w.WriteHeader(http.StatusOK)
		return
	}
	h.logger.Info("user created", "user_id", created.ID)
	respondJSON(w, http.StatusOK, created)
}

func (h *Handlers) Login(w http.ResponseWriter, r *http.Request) {
	u, ok := h.state.Login(r.URL.Query().Get("phoneNumber"))
	if !ok {
		http.Error(w, "User not found", http.StatusNotFound)
		return
	}
	respondJSON(w, http.StatusOK, u)
}

// Cart Handlers

func (h *Handlers) UpdateCart(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	userID, err1 := strconv.ParseInt(q.Get("userId"), 10, 64)
	productID, err2 := strconv.ParseInt(q.Get("productId"), 10, 64)
	quantity, err3 := strconv.Atoi(q.Get("quantity"))
	if err := errors.Join(err1, err2, err3); err != nil {
		http.Error(w, "Invalid cart parameters", http.StatusBadRequest)
		return
	}

	rec, err := h.state.SetCartItem(userID, productID, quantity)
	if err != nil {
		respondStateError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, rec)
}

func (h *Handlers) LoadCart(w http.ResponseWriter, r *http.Request) {
	userID, err := strconv.ParseInt(r.URL.Query().Get("id"), 10, 64)
	if err != nil {
		http.Error(w, "Invalid user id", http.StatusBadRequest)
		return
	}
	respondJSON(w, http.StatusOK, h.state.Cart(userID))
}

// Order Handlers

func (h *Handlers) PlaceOrder(w http.ResponseWriter, r *http.Request) {
	userID, err := strconv.ParseInt(r.URL.Query().Get("id"), 10, 64)
	if err != nil {
		http.Error(w, "Invalid user id", http.StatusBadRequest)
		return
	}

	records, err := h.state.PlaceOrder(userID)
	if err != nil {
		respondStateError(w, err)
		return
	}
	h.logger.Info("order placed", "user_id", userID, "lines", len(records))
	respondJSON(w, http.StatusOK, map[string]any{"orderBooks": records})
}

func (h *Handlers) LoadOrderBook(w http.ResponseWriter, r *http.Request) {
	userID, err := strconv.ParseInt(r.URL.Query().Get("id"), 10, 64)
	if err != nil {
		http.Error(w, "Invalid user id", http.StatusBadRequest)
		return
	}
	respondJSON(w, http.StatusOK, h.state.OrderBook(userID))
}

// Log Handlers

func (h *Handlers) Log(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	userID, err := strconv.ParseInt(q.Get("userId"), 10, 64)
	if err != nil {
		userID = -1
	}
	h.state.AppendLog(backend.LogEntry{
		IP:         q.Get("ip"),
		UserID:     userID,
		PageName:   q.Get("pageName"),
		Action:     q.Get("action"),
		ElementTag: q.Get("elementTag"),
	})
	w.WriteHeader(http.StatusOK)
}

// Helper functions

func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondStateError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrUnknownUser), errors.Is(err, ErrUnknownProduct):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, ErrEmptyCart):
		http.Error(w, err.Error(), http.StatusBadRequest)
	default:
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func extractPathParam(path, prefix string) string {
	return strings.TrimPrefix(path, prefix)
}

func userFromQuery(r *http.Request) backend.User {
	q := r.URL.Query()
	id, _ := strconv.ParseInt(q.Get("id"), 10, 64)
	return backend.User{
		ID:          id,
		Username:    q.Get("username"),
		PhoneNumber: q.Get("phoneNumber"),
		Email:       q.Get("email"),
		Address:     q.Get("address"),
		Pincode:     q.Get("pincode"),
	}
}
