package api

import (
	"log/slog"
	"net/http"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/example/ceremic-storefront/internal/backend"
)

func NewRouter(handlers *Handlers, logger *slog.Logger) http.Handler {
	if logger == nil {
		logger = slog.Default()
	}
	mux := http.NewServeMux()

	// Catalog
	mux.HandleFunc(backend.PathCollections, func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			handlers.GetCollections(w, r)
		default:
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		}
	})

	mux.HandleFunc(backend.PathCollections+"/", func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			handlers.GetProduct(w, r)
		default:
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		}
	})

	// Users, carts and orders are all POST with query parameters
	post := map[string]http.HandlerFunc{
		backend.PathUserCreate: handlers.CreateUser,
		backend.PathUserLogin:  handlers.Login,
		backend.PathUserCart:   handlers.UpdateCart,
		backend.PathLoadCart:   handlers.LoadCart,
		backend.PathOrder:      handlers.PlaceOrder,
		backend.PathOrderBook:  handlers.LoadOrderBook,
		backend.PathLog:        handlers.Log,
	}
	for path, h := range post {
		mux.HandleFunc(path, func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodPost {
				http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
				return
			}
			h(w, r)
		})
	}

	return otelhttp.NewHandler(withLogging(mux, logger), "fakebackend")
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func withLogging(next http.Handler, logger *slog.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		logger.Debug("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"duration", time.Since(start),
		)
	})
}
