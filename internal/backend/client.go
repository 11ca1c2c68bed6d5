package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
)

const (
	PathCollections = "/collections"
	PathUserCreate  = "/user/create"
	PathUserLogin   = "/user/login"
	PathUserCart    = "/user/cart"
	PathLoadCart    = "/user/load/cart"
	PathOrder       = "/user/order"
	PathOrderBook   = "/user/orderbook"
	PathLog         = "/log"

	// Sent on every request so the tunnel in front of the backend does not
	// answer with its browser interstitial instead of JSON.
	tunnelWarningHeader = "ngrok-skip-browser-warning"

	maxBodyBytes = 64 << 20
)

var (
	// ErrAccountExists is returned by CreateUser when the backend answers
	// a signup with an empty or unparseable body.
	ErrAccountExists = errors.New("account already exists")

	// ErrNoRecord is returned when a 2xx answer that should carry a
	// record is empty or null.
	ErrNoRecord = errors.New("response carried no record")
)

// StatusError reports a non-2xx answer from the backend.
type StatusError struct {
	Op         string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s: unexpected HTTP status %d", e.Op, e.StatusCode)
}

// Client talks to the storefront REST backend. It is safe for concurrent use.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
}

func NewClient(baseURL string, httpClient *http.Client, logger *slog.Logger) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: httpClient,
		logger:     logger.With("component", "backend"),
	}
}

// BaseURL returns the root every endpoint path is appended to.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// FetchCollections returns the full raw catalog. Null entries are kept
// as nil.
func (c *Client) FetchCollections(ctx context.Context) ([]*RawProduct, error) {
	body, err := c.do(ctx, "fetch collections", http.MethodGet, PathCollections, nil)
	if err != nil {
		return nil, err
	}
	var products []*RawProduct
	if err := json.Unmarshal(body, &products); err != nil {
		return nil, fmt.Errorf("fetch collections: decode: %w", err)
	}
	return products, nil
}

// FetchProduct returns one raw product. A null body yields (nil, nil).
func (c *Client) FetchProduct(ctx context.Context, id int64) (*RawProduct, error) {
	path := PathCollections + "/" + strconv.FormatInt(id, 10)
	body, err := c.do(ctx, "fetch product", http.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}
	if isBlank(body) {
		return nil, nil
	}
	var p *RawProduct
	if err := json.Unmarshal(body, &p); err != nil {
		return nil, fmt.Errorf("fetch product %d: decode: %w", id, err)
	}
	return p, nil
}

// CreateUser signs a new account up. An empty, "null" or unparseable 2xx
// body means the phone number is already registered.
func (c *Client) CreateUser(ctx context.Context, u User) (*User, error) {
	params := userParams(User{
		Username:    u.Username,
		PhoneNumber: u.PhoneNumber,
		Email:       u.Email,
		Address:     u.Address,
		Pincode:     u.Pincode,
	})
	body, err := c.do(ctx, "create user", http.MethodPost, PathUserCreate, params)
	if err != nil {
		return nil, err
	}
	if isBlank(body) {
		return nil, ErrAccountExists
	}
	var created User
	if err := json.Unmarshal(body, &created); err != nil {
		return nil, ErrAccountExists
	}
	return &created, nil
}

// Login looks an account up by phone number. Formatting characters in the
// number are stripped before sending.
func (c *Client) Login(ctx context.Context, phoneNumber string) (*User, error) {
	params := url.Values{"phoneNumber": {DigitsOnly(phoneNumber)}}
	body, err := c.do(ctx, "login", http.MethodPost, PathUserLogin, params)
	if err != nil {
		return nil, err
	}
	if isBlank(body) {
		return nil, fmt.Errorf("login: %w", ErrNoRecord)
	}
	var u User
	if err := json.Unmarshal(body, &u); err != nil {
		return nil, fmt.Errorf("login: decode: %w", err)
	}
	return &u, nil
}

// UpdateCartItem asks the server to set the quantity of one product in the
// user's cart and returns the quantity the server actually stored. An
// empty or null 2xx body yields ErrNoRecord.
func (c *Client) UpdateCartItem(ctx context.Context, userID, productID int64, quantity int) (*CartItemRecord, error) {
	params := url.Values{
		"id":        {"0"},
		"userId":    {strconv.FormatInt(userID, 10)},
		"productId": {strconv.FormatInt(productID, 10)},
		"quantity":  {strconv.Itoa(quantity)},
	}
	body, err := c.do(ctx, "update cart item", http.MethodPost, PathUserCart, params)
	if err != nil {
		return nil, err
	}
	if isBlank(body) {
		return nil, fmt.Errorf("update cart item: %w", ErrNoRecord)
	}
	var rec CartItemRecord
	if err := json.Unmarshal(body, &rec); err != nil {
		return nil, fmt.Errorf("update cart item: decode: %w", err)
	}
	return &rec, nil
}

func (c *Client) LoadCart(ctx context.Context, u User) (*CartResponse, error) {
	body, err := c.do(ctx, "load cart", http.MethodPost, PathLoadCart, userParams(u))
	if err != nil {
		return nil, err
	}
	var resp CartResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("load cart: decode: %w", err)
	}
	return &resp, nil
}

// PlaceOrder submits the user's current server-side cart as an order.
func (c *Client) PlaceOrder(ctx context.Context, u User) (*OrderConfirmation, error) {
	body, err := c.do(ctx, "place order", http.MethodPost, PathOrder, userParams(u))
	if err != nil {
		return nil, err
	}
	conf := &OrderConfirmation{Success: true}
	if isBlank(body) {
		return conf, nil
	}
	var payload map[string]any
	if err := json.Unmarshal(body, &payload); err != nil {
		c.logger.Debug("order response body not JSON, treating as success", "bytes", len(body))
		return conf, nil
	}
	conf.Body = payload
	return conf, nil
}

func (c *Client) LoadOrderBook(ctx context.Context, u User) (*OrderBookResponse, error) {
	body, err := c.do(ctx, "load order book", http.MethodPost, PathOrderBook, userParams(u))
	if err != nil {
		return nil, err
	}
	var resp OrderBookResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("load order book: decode: %w", err)
	}
	return &resp, nil
}

// Log records one telemetry entry. Only the status is inspected.
func (c *Client) Log(ctx context.Context, e LogEntry) error {
	params := url.Values{
		"id":         {"0"},
		"ip":         {e.IP},
		"userId":     {strconv.FormatInt(e.UserID, 10)},
		"pageName":   {e.PageName},
		"action":     {e.Action},
		"elementTag": {e.ElementTag},
	}
	_, err := c.do(ctx, "log", http.MethodPost, PathLog, params)
	return err
}

func (c *Client) do(ctx context.Context, op, method, path string, params url.Values) ([]byte, error) {
	target := c.baseURL + path
	if len(params) > 0 {
		target += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, target, nil)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	req.Header.Set("accept", "*/*")
	req.Header.Set(tunnelWarningHeader, "true")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		// Drain so the connection can be reused.
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxBodyBytes))
		return nil, &StatusError{Op: op, StatusCode: resp.StatusCode}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("%s: read body: %w", op, err)
	}
	return body, nil
}

func userParams(u User) url.Values {
	return url.Values{
		"id":          {strconv.FormatInt(u.ID, 10)},
		"username":    {u.Username},
		"phoneNumber": {u.PhoneNumber},
		"email":       {u.Email},
		"address":     {u.Address},
		"pincode":     {u.Pincode},
	}
}

func isBlank(body []byte) bool {
	trimmed := bytes.TrimSpace(body)
	return len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null"))
}

// DigitsOnly drops every non-digit rune, turning "+91 98765-43210" style
// input into the bare number the backend indexes on.
func DigitsOnly(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
