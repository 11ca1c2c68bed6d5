package cart

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/ceremic-storefront/internal/backend"
	"github.com/example/ceremic-storefront/internal/logger"
	"github.com/example/ceremic-storefront/internal/session"
)

// scriptedBackend answers cart loads with a fixed payload and cart updates
// with whatever body was set last.
type scriptedBackend struct {
	mu         sync.Mutex
	updateBody string
}

func (s *scriptedBackend) setUpdateBody(body string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.updateBody = body
}

func (s *scriptedBackend) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	switch r.URL.Path {
	case backend.PathLoadCart:
		io.WriteString(w, `{"cart":[{"id":1,"userId":4,"productId":7,"quantity":2}],"ceremics":[null,{"id":7,"name":"Vase","price":100}]}`)
	case backend.PathUserCart:
		s.mu.Lock()
		body := s.updateBody
		s.mu.Unlock()
		io.WriteString(w, body)
	default:
		http.NotFound(w, r)
	}
}

func newClientReconciler(t *testing.T) (*Reconciler, *scriptedBackend) {
	t.Helper()
	sb := &scriptedBackend{}
	srv := httptest.NewServer(sb)
	t.Cleanup(srv.Close)

	sessions := session.NewMemoryProvider()
	require.NoError(t, sessions.Set(context.Background(), session.Session{ID: 4, Username: "asha"}))
	client := backend.NewClient(srv.URL, srv.Client(), logger.Discard())
	r := NewReconciler(client, sessions, nil, logger.Discard())
	require.NoError(t, r.Load(context.Background()))
	return r, sb
}

// ============================================
// Blank Payload Tests
// ============================================

func TestReconciler_Load_IgnoresNullCatalogEntries(t *testing.T) {
	r, _ := newClientReconciler(t)

	items := r.Items()
	require.Len(t, items, 1)
	assert.Equal(t, int64(7), items[0].Product.ID)
	assert.Equal(t, 2, items[0].Quantity)
	assert.Equal(t, 0, r.Quantity(0))
}

func TestReconciler_IncreaseWithBlankAnswerKeepsItem(t *testing.T) {
	for _, body := range []string{"null", ""} {
		t.Run(body, func(t *testing.T) {
			r, sb := newClientReconciler(t)
			sb.setUpdateBody(body)

			qty, err := r.Increase(context.Background(), 7)

			assert.ErrorIs(t, err, backend.ErrNoRecord)
			assert.Equal(t, 2, qty)
			assert.Equal(t, 2, r.Quantity(7))
			assert.Equal(t, 1, r.Len())
		})
	}
}

func TestReconciler_RemoveWithBlankAnswerDeletesItem(t *testing.T) {
	for _, body := range []string{"null", ""} {
		t.Run(body, func(t *testing.T) {
			r, sb := newClientReconciler(t)
			sb.setUpdateBody(body)

			qty, err := r.Remove(context.Background(), 7)

			require.NoError(t, err)
			assert.Equal(t, 0, qty)
			assert.Equal(t, 0, r.Len())
		})
	}
}
