// Command simreducer is the fourth stage of the document-similarity
// pipeline. It reads pair-key-sorted weight contributions from stdin, sums
// them per document pair, and writes the pairs whose aggregate score
// exceeds the configured threshold to stdout, excluding self-pairs.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/cjdd3b/car-datascience-toolkit/internal/simsum"
	"github.com/cjdd3b/car-datascience-toolkit/pkg/config"
	pkgerrors "github.com/cjdd3b/car-datascience-toolkit/pkg/errors"
	"github.com/cjdd3b/car-datascience-toolkit/pkg/logger"
	"github.com/cjdd3b/car-datascience-toolkit/pkg/metrics"
)

func main() {
	configPath := flag.String("config", "", "path to config file")
	threshold := flag.Float64("threshold", -1, "minimum aggregate score a pair must exceed")
	prefixLen := flag.Int("prefix-len", 0, "canonical document-id prefix length")
	strict := flag.Bool("strict", false, "abort on the first malformed record")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(pkgerrors.ExitConfiguration)
	}
	if *threshold >= 0 {
		cfg.Pipeline.SimilarityThreshold = *threshold
	}
	if *prefixLen > 0 {
		cfg.Pipeline.IDPrefixLength = *prefixLen
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

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	reducer, err := simsum.New(
		cfg.Pipeline.SimilarityThreshold,
		cfg.Pipeline.IDPrefixLength,
		cfg.Pipeline.Strict,
		m,
	)
	if err != nil {
		slog.Error("invalid configuration", "error", err)
		os.Exit(pkgerrors.ExitCode(err))
	}
	slog.Info("similarity reducer starting",
		"threshold", cfg.Pipeline.SimilarityThreshold,
		"prefix_len", cfg.Pipeline.IDPrefixLength,
	)

	if err := reducer.Run(ctx, os.Stdin, os.Stdout); err != nil {
		slog.Error("similarity reducer failed", "error", err)
		os.Exit(pkgerrors.ExitCode(err))
	}
}
