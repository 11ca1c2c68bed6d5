package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/example/ceremic-storefront/internal/api"
	"github.com/example/ceremic-storefront/internal/config"
	"github.com/example/ceremic-storefront/internal/logger"
	"github.com/example/ceremic-storefront/internal/tracing"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.New(logger.Options{Service: "fakebackend"}).Error("config load failed", "error", err)
		os.Exit(2)
	}

	log := logger.New(logger.Options{
		Service: "fakebackend",
		Env:     cfg.AppEnv,
		Level:   cfg.LogLevel,
	})

	shutdownTracing, err := tracing.Setup("fakebackend", cfg.Telemetry.Tracing)
	if err != nil {
		log.Error("tracing setup failed", "error", err)
		os.Exit(1)
	}

	products := api.DefaultCatalog()
	if cfg.Backend.SeedCatalogDir != "" {
		products, err = api.LoadCatalog(cfg.Backend.SeedCatalogDir)
		if err != nil {
			log.Error("seed catalog load failed", "path", cfg.Backend.SeedCatalogDir, "error", err)
			os.Exit(1)
		}
	}

	state := api.NewState(products, cfg.Backend.MaxQuantity)
	router := api.NewRouter(api.NewHandlers(state, log), log)

	server := &http.Server{
		Addr:              cfg.Backend.Addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info("fake backend started",
			"addr", cfg.Backend.Addr,
			"products", len(products),
			"max_quantity", cfg.Backend.MaxQuantity,
		)
		if err := server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			log.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	log.Info("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		log.Warn("server shutdown incomplete", "error", err)
	}
	if err := shutdownTracing(ctx); err != nil {
		log.Warn("tracing shutdown failed", "error", err)
	}
}
