// Command simloader loads stage-4 similarity output from stdin into
// PostgreSQL in batches, and optionally publishes an update event per pair
// so caches and downstream consumers can react.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/cjdd3b/car-datascience-toolkit/internal/loader"
	"github.com/cjdd3b/car-datascience-toolkit/internal/store"
	"github.com/cjdd3b/car-datascience-toolkit/pkg/config"
	pkgerrors "github.com/cjdd3b/car-datascience-toolkit/pkg/errors"
	"github.com/cjdd3b/car-datascience-toolkit/pkg/kafka"
	"github.com/cjdd3b/car-datascience-toolkit/pkg/logger"
	"github.com/cjdd3b/car-datascience-toolkit/pkg/metrics"
	"github.com/cjdd3b/car-datascience-toolkit/pkg/postgres"
)

func main() {
	configPath := flag.String("config", "", "path to config file")
	batchSize := flag.Int("batch-size", 0, "rows per PostgreSQL batch")
	publish := flag.Bool("publish", false, "publish an update event per persisted pair")
	strict := flag.Bool("strict", false, "abort on the first malformed record")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(pkgerrors.ExitConfiguration)
	}
	if *strict {
		cfg.Pipeline.Strict = true
	}
	logger.Setup(cfg.Logging.Level, cfg.Logging.Format)

	var m *metrics.Metrics
	if cfg.Metrics.Enabled {
		m = metrics.New()
		shutdown := metrics.StartServer(cfg.Metrics.Port)
		defer shutdown(context.Background())
	}

	db, err := postgres.New(cfg.Postgres)
	if err != nil {
		slog.Error("failed to connect to postgres", "error", err)
		os.Exit(pkgerrors.ExitConfiguration)
	}
	defer db.Close()

	var producer *kafka.Producer
	if *publish {
		producer = kafka.NewProducer(cfg.Kafka, cfg.Kafka.Topics.SimilarityUpdated)
		defer producer.Close()
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	st := store.New(db)
	if err := st.EnsureSchema(ctx); err != nil {
		slog.Error("failed to prepare schema", "error", err)
		os.Exit(pkgerrors.ExitConfiguration)
	}

	l := loader.New(st, producer, *batchSize, cfg.Pipeline.Strict, m)
	slog.Info("similarity loader starting", "publish", *publish)

	if err := l.Run(ctx, os.Stdin); err != nil {
		slog.Error("similarity loader failed", "error", err)
		os.Exit(pkgerrors.ExitCode(err))
	}
}
