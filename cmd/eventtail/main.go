// Command eventtail prints the storefront events mirrored to Kafka, one
// JSON line per event.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/example/ceremic-storefront/internal/config"
	"github.com/example/ceremic-storefront/internal/eventlog"
	"github.com/example/ceremic-storefront/internal/infrastructure/kafka"
	"github.com/example/ceremic-storefront/internal/logger"
)

func main() {
	group := flag.String("group", "", "consumer group; empty reads new events only")
	action := flag.String("action", "", "only print events with this action")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "eventtail: %v\n", err)
		os.Exit(2)
	}
	log := logger.New(logger.Options{
		Service: "eventtail",
		Env:     cfg.AppEnv,
		Level:   cfg.LogLevel,
		Output:  os.Stderr,
	})

	if len(cfg.Telemetry.KafkaBrokers) == 0 {
		log.Error("KAFKA_BROKERS is not set")
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	consumer := kafka.NewConsumer(cfg.Telemetry.KafkaBrokers, cfg.Telemetry.KafkaTopic, *group, log)
	defer consumer.Close()

	log.Info("tailing events",
		"brokers", cfg.Telemetry.KafkaBrokers,
		"topic", cfg.Telemetry.KafkaTopic,
		"group", *group,
	)
	if err := consumer.Consume(ctx, printer(os.Stdout, *action, log)); err != nil && ctx.Err() == nil {
		log.Error("consumer stopped", "error", err)
		os.Exit(1)
	}
}

// printer returns a handler writing each event as one JSON line. Events
// whose type is not action are skipped when action is set.
func printer(w io.Writer, action string, log *slog.Logger) kafka.MessageHandler {
	enc := json.NewEncoder(w)
	return func(_ context.Context, msg kafka.Message) error {
		if action != "" && msg.EventType != action {
			return nil
		}
		var e eventlog.Event
		if err := json.Unmarshal(msg.Value, &e); err != nil {
			log.Warn("skipping undecodable event", "partition", msg.Partition, "offset", msg.Offset, "error", err)
			return nil
		}
		return enc.Encode(e)
	}
}
