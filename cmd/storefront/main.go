package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/example/ceremic-storefront/internal/app"
	"github.com/example/ceremic-storefront/internal/config"
	"github.com/example/ceremic-storefront/internal/logger"
	"github.com/example/ceremic-storefront/internal/order"
	"github.com/example/ceremic-storefront/internal/tracing"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "storefront: %v\n", err)
		os.Exit(2)
	}

	log := logger.New(logger.Options{
		Service: "storefront",
		Env:     cfg.AppEnv,
		Level:   cfg.LogLevel,
		Output:  os.Stderr,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdown, err := tracing.Setup("storefront", cfg.Telemetry.Tracing)
	if err != nil {
		log.Error("tracing setup failed", "error", err)
		os.Exit(1)
	}

	code := run(ctx, cfg, nil, log, os.Args[1:], os.Stdin, os.Stdout, os.Stderr)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := shutdown(shutdownCtx); err != nil {
		log.Warn("tracing shutdown failed", "error", err)
	}
	os.Exit(code)
}

// run executes one command, or an interactive shell, and returns the
// process exit code.
func run(ctx context.Context, cfg config.Config, httpClient *http.Client, log *slog.Logger, args []string, in io.Reader, out, errOut io.Writer) int {
	if len(args) == 0 {
		usage(errOut)
		return 2
	}

	navigator := order.NavigatorFunc(func(_ context.Context, path string) {
		fmt.Fprintf(out, "-> %s\n", path)
	})

	a, err := app.New(ctx, cfg, httpClient, navigator, log)
	if err != nil {
		log.Error("startup failed", "error", err)
		fmt.Fprintf(errOut, "storefront: %v\n", err)
		return 1
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := a.Close(closeCtx); err != nil {
			log.Warn("shutdown incomplete", "error", err)
		}
	}()

	a.Restore(ctx)

	c := &cli{app: a, in: in, out: out, errOut: errOut}
	if err := c.dispatch(ctx, args); err != nil {
		fmt.Fprintln(errOut, describe(err))
		return 1
	}
	return 0
}
