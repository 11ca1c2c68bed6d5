package app

import (
	"context"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/ceremic-storefront/internal/api"
	"github.com/example/ceremic-storefront/internal/auth"
	"github.com/example/ceremic-storefront/internal/command"
	"github.com/example/ceremic-storefront/internal/config"
	"github.com/example/ceremic-storefront/internal/logger"
	"github.com/example/ceremic-storefront/internal/order"
	"github.com/example/ceremic-storefront/internal/session"
)

func testConfig(t *testing.T, baseURL string) config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.API.BaseURL = baseURL
	cfg.Storage.Backend = config.StorageFile
	cfg.Storage.Path = filepath.Join(t.TempDir(), "storage.json")
	cfg.Telemetry.IPLookupURL = ""
	cfg.Order.DisplayDelay = 0
	return cfg
}

func newFakeBackend(t *testing.T) (*httptest.Server, *api.State) {
	t.Helper()
	state := api.NewState(api.DefaultCatalog(), 0)
	srv := httptest.NewServer(api.NewRouter(api.NewHandlers(state, logger.Discard()), logger.Discard()))
	t.Cleanup(srv.Close)
	return srv, state
}

func closeApp(t *testing.T, a *App) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, a.Close(ctx))
}

// ============================================
// Wiring Tests
// ============================================

func TestApp_SessionAndCartSurviveRestart(t *testing.T) {
	srv, state := newFakeBackend(t)
	cfg := testConfig(t, srv.URL)
	ctx := context.Background()

	first, err := New(ctx, cfg, srv.Client(), nil, logger.Discard())
	require.NoError(t, err)

	_, err = first.Commands.Signup(ctx, command.Signup{Form: auth.SignupForm{
		Username: "asha", PhoneNumber: "9876543210", Email: "asha@example.com", Address: "1 Clay St", Pincode: "560001",
	}})
	require.NoError(t, err)

	products, err := first.Queries.ListProducts(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, products)
	_, err = first.Commands.AddToCart(ctx, command.AddToCart{Product: products[0], Bulk: true})
	require.NoError(t, err)
	closeApp(t, first)

	second, err := New(ctx, cfg, srv.Client(), nil, logger.Discard())
	require.NoError(t, err)
	defer closeApp(t, second)

	second.Restore(ctx)

	assert.True(t, session.LoggedIn(ctx, second.Sessions))
	assert.Equal(t, 6, second.Cart.Quantity(products[0].ID))
	assert.NotEmpty(t, state.Logs())
}

func TestApp_CatalogServedFromCacheAfterFirstFetch(t *testing.T) {
	srv, _ := newFakeBackend(t)
	cfg := testConfig(t, srv.URL)
	ctx := context.Background()

	a, err := New(ctx, cfg, srv.Client(), nil, logger.Discard())
	require.NoError(t, err)
	defer closeApp(t, a)

	first, err := a.Queries.ListProducts(ctx)
	require.NoError(t, err)

	srv.Close()

	second, err := a.Queries.ListProducts(ctx)
	require.NoError(t, err)
	require.Len(t, second, len(first))
	for i := range first {
		assert.Equal(t, first[i].ID, second[i].ID)
		assert.Equal(t, first[i].DiscountedPrice, second[i].DiscountedPrice)
	}
}

func TestApp_PlaceOrderNavigates(t *testing.T) {
	srv, _ := newFakeBackend(t)
	cfg := testConfig(t, srv.URL)
	cfg.Order.RedirectURL = "orders/done"
	ctx := context.Background()

	var got string
	a, err := New(ctx, cfg, srv.Client(), order.NavigatorFunc(func(_ context.Context, path string) { got = path }), logger.Discard())
	require.NoError(t, err)
	defer closeApp(t, a)

	_, err = a.Commands.Signup(ctx, command.Signup{Form: auth.SignupForm{
		Username: "ravi", PhoneNumber: "9123456780", Email: "ravi@example.com", Address: "2 Kiln Rd", Pincode: "400001",
	}})
	require.NoError(t, err)
	p, err := a.Queries.GetProduct(ctx, 2)
	require.NoError(t, err)
	_, err = a.Commands.AddToCart(ctx, command.AddToCart{Product: *p})
	require.NoError(t, err)

	res, err := a.Commands.PlaceOrder(ctx, command.PlaceOrder{})

	require.NoError(t, err)
	assert.Equal(t, "/orders/done", res.Redirect)
	assert.Equal(t, "/orders/done", got)
}

func TestApp_TelemetryDisabled(t *testing.T) {
	srv, state := newFakeBackend(t)
	cfg := testConfig(t, srv.URL)
	cfg.Telemetry.Enabled = false
	ctx := context.Background()

	a, err := New(ctx, cfg, srv.Client(), nil, logger.Discard())
	require.NoError(t, err)

	a.Commands.Track(ctx, command.Track{Action: "VISIT", ElementTag: "HOME", PageName: "COLLECTIONS"})
	closeApp(t, a)

	assert.Nil(t, a.Events)
	assert.Empty(t, state.Logs())
}

// ============================================
// Storage Selection Tests
// ============================================

func TestOpenStorage(t *testing.T) {
	ctx := context.Background()

	s, closer, err := OpenStorage(ctx, config.StorageConfig{Backend: config.StorageMemory})
	require.NoError(t, err)
	assert.Nil(t, closer)
	require.NoError(t, s.Set(ctx, "k", []byte("v")))

	_, _, err = OpenStorage(ctx, config.StorageConfig{Backend: config.StorageFile})
	assert.Error(t, err)

	_, _, err = OpenStorage(ctx, config.StorageConfig{Backend: "tape"})
	assert.Error(t, err)
}

func TestOpenStorage_Redis(t *testing.T) {
	mr := miniredis.RunT(t)
	ctx := context.Background()

	s, closer, err := OpenStorage(ctx, config.StorageConfig{Backend: config.StorageRedis, RedisURL: "redis://" + mr.Addr()})
	require.NoError(t, err)
	defer closer.Close()

	require.NoError(t, s.Set(ctx, "session", []byte("1")))
	assert.True(t, mr.Exists("ceremic:storefront:session"))
	assert.Zero(t, mr.TTL("ceremic:storefront:session"))
}

func TestOpenStorage_RedisPrefixAndTTL(t *testing.T) {
	mr := miniredis.RunT(t)
	ctx := context.Background()

	s, closer, err := OpenStorage(ctx, config.StorageConfig{
		Backend:     config.StorageRedis,
		RedisURL:    "redis://" + mr.Addr(),
		RedisPrefix: "shop:",
		RedisKeyTTL: time.Hour,
	})
	require.NoError(t, err)
	defer closer.Close()

	require.NoError(t, s.Set(ctx, "cart", []byte("[]")))
	assert.True(t, mr.Exists("shop:cart"))
	assert.False(t, mr.Exists("ceremic:storefront:cart"))
	assert.Equal(t, time.Hour, mr.TTL("shop:cart"))
}
