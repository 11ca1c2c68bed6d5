package backend

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordedRequest struct {
	Method string
	Path   string
	Query  map[string]string
	Header http.Header
}

type recorder struct {
	mu    sync.Mutex
	calls []recordedRequest
}

func (r *recorder) all() []recordedRequest {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]recordedRequest(nil), r.calls...)
}

func newTestServer(t *testing.T, status int, body string) (*Client, *recorder) {
	t.Helper()
	rec := &recorder{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := map[string]string{}
		for k := range r.URL.Query() {
			q[k] = r.URL.Query().Get(k)
		}
		rec.mu.Lock()
		defer rec.mu.Unlock()
		rec.calls = append(rec.calls, recordedRequest{
			Method: r.Method,
			Path:   r.URL.Path,
			Query:  q,
			Header: r.Header.Clone(),
		})
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return NewClient(srv.URL+"/", srv.Client(), nil), rec
}

// ============================================
// Catalog Tests
// ============================================

func TestClient_FetchCollections(t *testing.T) {
	client, calls := newTestServer(t, http.StatusOK, `[{"id":7,"name":"Vase","price":100,"discounts":{"enable":true,"discount":25}}]`)

	products, err := client.FetchCollections(context.Background())

	require.NoError(t, err)
	require.Len(t, products, 1)
	assert.Equal(t, int64(7), products[0].ID)
	assert.Equal(t, int64(100), products[0].Price)
	require.NotNil(t, products[0].Discounts)
	assert.Equal(t, 25.0, products[0].Discounts.Discount)

	require.Len(t, calls.all(), 1)
	call := calls.all()[0]
	assert.Equal(t, http.MethodGet, call.Method)
	assert.Equal(t, "/collections", call.Path)
	assert.Equal(t, "*/*", call.Header.Get("accept"))
	assert.Equal(t, "true", call.Header.Get("ngrok-skip-browser-warning"))
}

func TestClient_FetchCollections_KeepsNullEntries(t *testing.T) {
	client, _ := newTestServer(t, http.StatusOK, `[null, {"id":1,"name":"Vase","price":100}]`)

	products, err := client.FetchCollections(context.Background())

	require.NoError(t, err)
	require.Len(t, products, 2)
	assert.Nil(t, products[0])
	assert.Equal(t, int64(1), products[1].ID)
}

func TestClient_FetchCollections_StatusError(t *testing.T) {
	client, _ := newTestServer(t, http.StatusBadGateway, "")

	_, err := client.FetchCollections(context.Background())

	var se *StatusError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, http.StatusBadGateway, se.StatusCode)
}

func TestClient_FetchProduct_NullBody(t *testing.T) {
	client, calls := newTestServer(t, http.StatusOK, "null")

	p, err := client.FetchProduct(context.Background(), 12)

	require.NoError(t, err)
	assert.Nil(t, p)
	assert.Equal(t, "/collections/12", calls.all()[0].Path)
}

// ============================================
// User Tests
// ============================================

func TestClient_CreateUser_Success(t *testing.T) {
	client, calls := newTestServer(t, http.StatusOK, `{"id":3,"username":"asha","phoneNumber":"9876543210"}`)

	u, err := client.CreateUser(context.Background(), User{
		Username:    "asha",
		PhoneNumber: "9876543210",
		Email:       "asha@example.com",
		Address:     "1 Clay St",
		Pincode:     "560001",
	})

	require.NoError(t, err)
	assert.Equal(t, int64(3), u.ID)
	q := calls.all()[0].Query
	assert.Equal(t, "0", q["id"])
	assert.Equal(t, "asha", q["username"])
	assert.Equal(t, "560001", q["pincode"])
	assert.Equal(t, "/user/create", calls.all()[0].Path)
}

func TestClient_CreateUser_AlreadyExists(t *testing.T) {
	for _, body := range []string{"", "   ", "null", "<html>exists</html>"} {
		t.Run(body, func(t *testing.T) {
			client, _ := newTestServer(t, http.StatusOK, body)

			u, err := client.CreateUser(context.Background(), User{Username: "a"})

			assert.ErrorIs(t, err, ErrAccountExists)
			assert.Nil(t, u)
		})
	}
}

func TestClient_Login_StripsFormatting(t *testing.T) {
	client, calls := newTestServer(t, http.StatusOK, `{"id":9,"phoneNumber":"9876543210"}`)

	u, err := client.Login(context.Background(), "(987) 654-3210")

	require.NoError(t, err)
	assert.Equal(t, int64(9), u.ID)
	assert.Equal(t, "9876543210", calls.all()[0].Query["phoneNumber"])
}

func TestClient_Login_BlankBody(t *testing.T) {
	for _, body := range []string{"", "null"} {
		t.Run(body, func(t *testing.T) {
			client, _ := newTestServer(t, http.StatusOK, body)

			u, err := client.Login(context.Background(), "9876543210")

			assert.ErrorIs(t, err, ErrNoRecord)
			assert.Nil(t, u)
		})
	}
}

// ============================================
// Cart / Order Tests
// ============================================

func TestClient_UpdateCartItem(t *testing.T) {
	client, calls := newTestServer(t, http.StatusOK, `{"id":1,"userId":4,"productId":7,"quantity":5}`)

	rec, err := client.UpdateCartItem(context.Background(), 4, 7, 6)

	require.NoError(t, err)
	assert.Equal(t, 5, rec.Quantity)
	q := calls.all()[0].Query
	assert.Equal(t, "4", q["userId"])
	assert.Equal(t, "7", q["productId"])
	assert.Equal(t, "6", q["quantity"])
	assert.Equal(t, "0", q["id"])
}

func TestClient_UpdateCartItem_BlankBody(t *testing.T) {
	for _, body := range []string{"", " null "} {
		t.Run(body, func(t *testing.T) {
			client, _ := newTestServer(t, http.StatusOK, body)

			rec, err := client.UpdateCartItem(context.Background(), 4, 7, 2)

			assert.ErrorIs(t, err, ErrNoRecord)
			assert.Nil(t, rec)
		})
	}
}

func TestClient_LoadCart_NullCatalogEntry(t *testing.T) {
	client, _ := newTestServer(t, http.StatusOK, `{"cart":[{"id":1,"productId":7,"quantity":2}],"ceremics":[null,{"id":7,"name":"Vase"}]}`)

	resp, err := client.LoadCart(context.Background(), User{ID: 4})

	require.NoError(t, err)
	require.Len(t, resp.Ceremics, 2)
	assert.Nil(t, resp.Ceremics[0])
	assert.Equal(t, int64(7), resp.Ceremics[1].ID)
}

func TestClient_LoadCart(t *testing.T) {
	payload := CartResponse{
		Cart:     []CartItemRecord{{ID: 1, ProductID: 7, Quantity: 2}},
		Ceremics: []*RawProduct{{ID: 7, Name: "Vase", Price: 100}},
	}
	raw, _ := json.Marshal(payload)
	client, calls := newTestServer(t, http.StatusOK, string(raw))

	resp, err := client.LoadCart(context.Background(), User{ID: 4, Username: "asha"})

	require.NoError(t, err)
	assert.Equal(t, payload.Cart, resp.Cart)
	assert.Equal(t, "4", calls.all()[0].Query["id"])
	assert.Equal(t, "/user/load/cart", calls.all()[0].Path)
}

func TestClient_PlaceOrder_EmptyBodyIsSuccess(t *testing.T) {
	for _, body := range []string{"", "not json", `{"orderId":12}`} {
		t.Run(body, func(t *testing.T) {
			client, _ := newTestServer(t, http.StatusOK, body)

			conf, err := client.PlaceOrder(context.Background(), User{ID: 1})

			require.NoError(t, err)
			assert.True(t, conf.Success)
		})
	}
}

func TestClient_PlaceOrder_Failure(t *testing.T) {
	client, _ := newTestServer(t, http.StatusInternalServerError, "boom")

	_, err := client.PlaceOrder(context.Background(), User{ID: 1})

	assert.Error(t, err)
}

func TestClient_Log(t *testing.T) {
	client, calls := newTestServer(t, http.StatusOK, "")

	err := client.Log(context.Background(), LogEntry{
		IP: "203.0.113.9", UserID: -1, PageName: "COLLECTIONS", Action: "VISIT", ElementTag: "COLLECTIONS_PAGE",
	})

	require.NoError(t, err)
	q := calls.all()[0].Query
	assert.Equal(t, "-1", q["userId"])
	assert.Equal(t, "VISIT", q["action"])
	assert.Equal(t, "203.0.113.9", q["ip"])
}

func TestDigitsOnly(t *testing.T) {
	assert.Equal(t, "919876543210", DigitsOnly("+91 98765-43210"))
	assert.Equal(t, "", DigitsOnly("abc"))
}
