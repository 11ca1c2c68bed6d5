package order

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/ceremic-storefront/internal/backend/mocks"
	"github.com/example/ceremic-storefront/internal/session"
)

type fakeCart struct {
	n       int
	loads   int
	loadErr error
}

func (c *fakeCart) Len() int { return c.n }

func (c *fakeCart) Load(context.Context) error {
	c.loads++
	if c.loadErr == nil {
		c.n = 0
	}
	return c.loadErr
}

type recordingNavigator struct {
	paths []string
}

func (n *recordingNavigator) Navigate(_ context.Context, path string) {
	n.paths = append(n.paths, path)
}

func newTestPlacer(t *testing.T, cfg Config, loggedIn bool, items int) (*Placer, *mocks.MockBackend, *fakeCart, *recordingNavigator, *[]time.Duration) {
	t.Helper()
	mb := mocks.NewMockBackend()
	mb.Cart[7] = items
	sessions := session.NewMemoryProvider()
	if loggedIn {
		require.NoError(t, sessions.Set(context.Background(), session.Session{ID: 4, Username: "asha"}))
	}
	cart := &fakeCart{n: items}
	nav := &recordingNavigator{}
	p := NewPlacer(mb, sessions, cart, nav, cfg, nil)

	var slept []time.Duration
	p.sleep = func(_ context.Context, d time.Duration) error {
		slept = append(slept, d)
		return nil
	}
	return p, mb, cart, nav, &slept
}

// ============================================
// Place Tests
// ============================================

func TestPlacer_Place_Success(t *testing.T) {
	p, mb, cart, nav, slept := newTestPlacer(t, Config{RedirectURL: "thank-you", DisplayDelay: DefaultDisplayDelay}, true, 2)

	res, err := p.Place(context.Background())

	require.NoError(t, err)
	assert.NotEmpty(t, res.RequestID)
	assert.True(t, res.Confirmation.Success)
	assert.Equal(t, "/thank-you", res.Redirect)
	assert.True(t, res.Navigated)
	assert.Equal(t, []string{"/thank-you"}, nav.paths)
	assert.Equal(t, []time.Duration{2 * time.Second}, *slept)
	assert.Len(t, mb.PlaceOrderCalls, 1)
	assert.Equal(t, int64(4), mb.PlaceOrderCalls[0].ID)
	assert.Equal(t, 1, cart.loads)
	assert.Equal(t, 0, cart.Len())
}

func TestPlacer_Place_ExternalRedirectRejected(t *testing.T) {
	p, _, _, nav, _ := newTestPlacer(t, Config{RedirectURL: "https://external.example/x"}, true, 1)

	res, err := p.Place(context.Background())

	require.NoError(t, err)
	assert.Equal(t, DefaultFallbackPath, res.Redirect)
	assert.Equal(t, []string{DefaultFallbackPath}, nav.paths)
	for _, path := range nav.paths {
		assert.NotContains(t, path, "external.example")
	}
}

func TestPlacer_Place_NotLoggedIn(t *testing.T) {
	p, mb, _, nav, _ := newTestPlacer(t, Config{}, false, 1)

	res, err := p.Place(context.Background())

	assert.ErrorIs(t, err, ErrNotLoggedIn)
	assert.Nil(t, res)
	assert.Equal(t, "Please login to place an order", Message(err))
	assert.Empty(t, mb.PlaceOrderCalls)
	assert.Empty(t, nav.paths)
}

func TestPlacer_Place_EmptyCart(t *testing.T) {
	p, mb, _, _, _ := newTestPlacer(t, Config{}, true, 0)

	_, err := p.Place(context.Background())

	assert.ErrorIs(t, err, ErrEmptyCart)
	assert.Equal(t, "Your cart is empty", Message(err))
	assert.Empty(t, mb.PlaceOrderCalls)
}

func TestPlacer_Place_BackendFailure(t *testing.T) {
	p, mb, cart, nav, _ := newTestPlacer(t, Config{}, true, 1)
	boom := errors.New("500")
	mb.PlaceOrderErr = boom

	res, err := p.Place(context.Background())

	assert.Nil(t, res)
	assert.ErrorIs(t, err, ErrPlacementFailed)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, "Failed to place order. Please try again.", Message(err))
	assert.Equal(t, 0, cart.loads)
	assert.Empty(t, nav.paths)
}

func TestPlacer_Place_CartReloadFailureStillSucceeds(t *testing.T) {
	p, _, cart, nav, _ := newTestPlacer(t, Config{}, true, 1)
	cart.loadErr = errors.New("reload failed")

	res, err := p.Place(context.Background())

	require.NoError(t, err)
	assert.Equal(t, DefaultFallbackPath, res.Redirect)
	assert.Len(t, nav.paths, 1)
}

func TestPlacer_Place_CancelledDuringDelay(t *testing.T) {
	p, mb, _, nav, _ := newTestPlacer(t, Config{DisplayDelay: time.Hour}, true, 1)
	p.sleep = sleepCtx
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	res, err := p.Place(ctx)

	require.NoError(t, err)
	assert.False(t, res.Navigated)
	assert.Empty(t, nav.paths)
	assert.Len(t, mb.PlaceOrderCalls, 1)
}

// ============================================
// Redirect Tests
// ============================================

func TestResolveRedirect(t *testing.T) {
	cases := []struct {
		target, fallback, want string
	}{
		{"https://external.example/x", "/Ceremic/thank-you", "/Ceremic/thank-you"},
		{"http://evil.test", "/done", "/done"},
		{"//evil.test/path", "/done", "/done"},
		{`/\evil.test`, "/done", "/done"},
		{"javascript:alert(1)", "/done", "/done"},
		{"", "/done", "/done"},
		{"   ", "", DefaultFallbackPath},
		{"thank-you", "/done", "/thank-you"},
		{"/Ceremic/thank-you?ref=order", "/done", "/Ceremic/thank-you?ref=order"},
		{"https://x.test", "https://also-external.test", DefaultFallbackPath},
		{"https://x.test", "done", "/done"},
	}
	for _, tc := range cases {
		t.Run(tc.target, func(t *testing.T) {
			assert.Equal(t, tc.want, ResolveRedirect(tc.target, tc.fallback))
		})
	}
}
