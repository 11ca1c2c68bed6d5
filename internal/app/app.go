// Package app wires the storefront components from configuration.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"

	"github.com/example/ceremic-storefront/internal/auth"
	"github.com/example/ceremic-storefront/internal/backend"
	"github.com/example/ceremic-storefront/internal/cart"
	"github.com/example/ceremic-storefront/internal/catalog"
	"github.com/example/ceremic-storefront/internal/command"
	"github.com/example/ceremic-storefront/internal/config"
	"github.com/example/ceremic-storefront/internal/eventlog"
	"github.com/example/ceremic-storefront/internal/infrastructure/kafka"
	"github.com/example/ceremic-storefront/internal/infrastructure/store"
	"github.com/example/ceremic-storefront/internal/order"
	"github.com/example/ceremic-storefront/internal/query"
	"github.com/example/ceremic-storefront/internal/session"
	"github.com/example/ceremic-storefront/internal/tracing"
)

// App holds every wired component of one storefront process.
type App struct {
	Config   config.Config
	Client   *backend.Client
	Sessions session.Provider
	Cart     *cart.Reconciler
	Commands *command.Handler
	Queries  *query.Handler
	Events   *eventlog.Logger

	logger  *slog.Logger
	closers []io.Closer
}

// New builds the application. httpClient may be nil, in which case a
// traced client with cfg.API.Timeout is used.
func New(ctx context.Context, cfg config.Config, httpClient *http.Client, navigator order.Navigator, logger *slog.Logger) (*App, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if httpClient == nil {
		httpClient = tracing.NewHTTPClient(nil)
		httpClient.Timeout = cfg.API.Timeout
	}

	a := &App{Config: cfg, logger: logger}

	storage, closer, err := OpenStorage(ctx, cfg.Storage)
	if err != nil {
		return nil, err
	}
	if closer != nil {
		a.closers = append(a.closers, closer)
	}

	a.Client = backend.NewClient(cfg.API.BaseURL, httpClient, logger)
	a.Sessions = session.NewStorageProvider(storage)

	transformer := catalog.NewTransformer(time.Now)
	cache := catalog.NewCache(storage, catalog.WithTTL(cfg.Catalog.CacheTTL), catalog.WithLogger(logger))

	a.Cart = cart.NewReconciler(a.Client, a.Sessions, transformer, logger)
	history := order.NewHistory(a.Client, a.Sessions, transformer, time.Now, time.Local)
	placer := order.NewPlacer(a.Client, a.Sessions, a.Cart, navigator, order.Config{
		RedirectURL:  cfg.Order.RedirectURL,
		FallbackPath: cfg.Order.FallbackPath,
		DisplayDelay: cfg.Order.DisplayDelay,
	}, logger)

	a.Events = a.newEventLogger(cfg.Telemetry, httpClient)
	a.Commands = command.NewHandler(a.Cart, auth.NewService(a.Client, a.Sessions, logger), placer, a.Events, a.Sessions, logger)
	a.Queries = query.NewHandler(a.Client, cache, transformer, a.Cart, history, logger)
	return a, nil
}

func (a *App) newEventLogger(cfg config.TelemetryConfig, httpClient *http.Client) *eventlog.Logger {
	if !cfg.Enabled {
		return nil
	}
	sinks := eventlog.MultiSink{eventlog.NewBackendSink(a.Client)}
	if len(cfg.KafkaBrokers) > 0 {
		producer := kafka.NewProducer(cfg.KafkaBrokers, cfg.KafkaTopic)
		a.closers = append(a.closers, producer)
		sinks = append(sinks, eventlog.NewKafkaSink(producer))
		a.logger.Info("event log mirrored to kafka", "brokers", cfg.KafkaBrokers, "topic", cfg.KafkaTopic)
	}

	var opts []eventlog.Option
	if cfg.IPLookupURL != "" {
		opts = append(opts, eventlog.WithIPResolver(eventlog.NewIPResolver(cfg.IPLookupURL, httpClient, a.logger)))
	}
	return eventlog.NewLogger(sinks, a.logger, opts...)
}

// Restore reloads the server cart when a session survives from an
// earlier run. Failures are logged only.
func (a *App) Restore(ctx context.Context) {
	if !session.LoggedIn(ctx, a.Sessions) {
		return
	}
	if err := a.Cart.Load(ctx); err != nil {
		a.logger.Warn("cart restore failed", "error", err)
	}
}

// Close waits for pending event sends and releases connections.
func (a *App) Close(ctx context.Context) error {
	var errs []error
	if err := a.Events.Flush(ctx); err != nil {
		errs = append(errs, fmt.Errorf("flush events: %w", err))
	}
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i].Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// OpenStorage returns the key/value store named by cfg.Backend and, for
// networked backends, the connection to close on shutdown.
func OpenStorage(ctx context.Context, cfg config.StorageConfig) (store.Storage, io.Closer, error) {
	switch cfg.Backend {
	case config.StorageMemory:
		return store.NewMemoryStorage(), nil, nil

	case config.StorageFile:
		s, err := store.NewFileStorage(cfg.Path)
		if err != nil {
			return nil, nil, fmt.Errorf("open file storage: %w", err)
		}
		return s, nil, nil

	case config.StorageRedis:
		client, err := store.ConnectRedis(ctx, cfg.RedisURL)
		if err != nil {
			return nil, nil, fmt.Errorf("connect redis: %w", err)
		}
		opts := []store.RedisOption{store.WithKeyTTL(cfg.RedisKeyTTL)}
		if cfg.RedisPrefix != "" {
			opts = append(opts, store.WithKeyPrefix(cfg.RedisPrefix))
		}
		return store.NewRedisStorage(client, opts...), client, nil

	case config.StoragePostgres:
		db, err := store.ConnectPostgres(cfg.DatabaseURL)
		if err != nil {
			return nil, nil, fmt.Errorf("connect postgres: %w", err)
		}
		s := store.NewPostgresStorage(db)
		if err := s.EnsureSchema(ctx); err != nil {
			db.Close()
			return nil, nil, fmt.Errorf("create storage table: %w", err)
		}
		return s, db, nil

	case config.StorageDynamo:
		var opts []func(*awsconfig.LoadOptions) error
		if cfg.AWSRegion != "" {
			opts = append(opts, awsconfig.WithRegion(cfg.AWSRegion))
		}
		awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
		if err != nil {
			return nil, nil, fmt.Errorf("load aws config: %w", err)
		}
		return store.NewDynamoStorage(dynamodb.NewFromConfig(awsCfg), cfg.DynamoTable), nil, nil

	default:
		return nil, nil, fmt.Errorf("unknown storage backend %q", cfg.Backend)
	}
}
