// Command docfeed bridges the Kafka document-ingest topic into the
// pipeline's input format. It consumes document events, optionally cleans
// the text, writes id|text lines to stdout, and maintains the corpus-size
// counter in Redis so the inverted-index stage can resolve it later.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/cjdd3b/car-datascience-toolkit/internal/feed"
	"github.com/cjdd3b/car-datascience-toolkit/internal/stream"
	"github.com/cjdd3b/car-datascience-toolkit/pkg/config"
	pkgerrors "github.com/cjdd3b/car-datascience-toolkit/pkg/errors"
	"github.com/cjdd3b/car-datascience-toolkit/pkg/kafka"
	"github.com/cjdd3b/car-datascience-toolkit/pkg/logger"
	"github.com/cjdd3b/car-datascience-toolkit/pkg/metrics"
	pkgredis "github.com/cjdd3b/car-datascience-toolkit/pkg/redis"
)

func main() {
	configPath := flag.String("config", "", "path to config file")
	preprocess := flag.Bool("preprocess", false, "clean document text before emitting")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(pkgerrors.ExitConfiguration)
	}
	logger.Setup(cfg.Logging.Level, cfg.Logging.Format)

	var m *metrics.Metrics
	if cfg.Metrics.Enabled {
		m = metrics.New()
		shutdown := metrics.StartServer(cfg.Metrics.Port)
		defer shutdown(context.Background())
	}

	rdb, err := pkgredis.NewClient(cfg.Redis)
	if err != nil {
		slog.Error("failed to connect to redis", "error", err)
		os.Exit(pkgerrors.ExitConfiguration)
	}
	defer rdb.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	bridge := feed.NewBridge(stream.NewWriter(os.Stdout), rdb, *preprocess, m)
	consumer := kafka.NewConsumer(cfg.Kafka, cfg.Kafka.Topics.DocumentIngest, bridge.Handler())
	defer consumer.Close()

	slog.Info("document feed starting",
		"topic", cfg.Kafka.Topics.DocumentIngest,
		"preprocess", *preprocess,
	)
	if err := consumer.Start(ctx); err != nil {
		slog.Error("document feed failed", "error", err)
		os.Exit(pkgerrors.ExitCode(err))
	}
}
