// Command pipeline runs all four document-similarity stages in a single
// process, reading raw documents from stdin and writing scored pairs to
// stdout. It is the local equivalent of running the stage binaries under
// an external streaming framework, with in-memory sorts between stages.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/cjdd3b/car-datascience-toolkit/internal/pipeline"
	"github.com/cjdd3b/car-datascience-toolkit/pkg/config"
	pkgerrors "github.com/cjdd3b/car-datascience-toolkit/pkg/errors"
	"github.com/cjdd3b/car-datascience-toolkit/pkg/logger"
	"github.com/cjdd3b/car-datascience-toolkit/pkg/metrics"
)

func main() {
	configPath := flag.String("config", "", "path to config file")
	corpusSize := flag.Int("corpus-size", 0, "total number of documents in the corpus")
	threshold := flag.Float64("threshold", -1, "minimum aggregate score a pair must exceed")
	prefixLen := flag.Int("prefix-len", 0, "canonical document-id prefix length")
	strict := flag.Bool("strict", false, "abort on the first malformed record")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(pkgerrors.ExitConfiguration)
	}
	if *corpusSize > 0 {
		cfg.Pipeline.CorpusSize = *corpusSize
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

	if err := cfg.ValidateCorpusSize(); err != nil {
		slog.Error("invalid configuration", "error", err)
		os.Exit(pkgerrors.ExitConfiguration)
	}

	var m *metrics.Metrics
	if cfg.Metrics.Enabled {
		m = metrics.New()
		shutdown := metrics.StartServer(cfg.Metrics.Port)
		defer shutdown(context.Background())
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	slog.Info("pipeline starting",
		"corpus_size", cfg.Pipeline.CorpusSize,
		"threshold", cfg.Pipeline.SimilarityThreshold,
		"prefix_len", cfg.Pipeline.IDPrefixLength,
		"strict", cfg.Pipeline.Strict,
	)

	opts := pipeline.Options{
		CorpusSize:          cfg.Pipeline.CorpusSize,
		SimilarityThreshold: cfg.Pipeline.SimilarityThreshold,
		IDPrefixLength:      cfg.Pipeline.IDPrefixLength,
		Strict:              cfg.Pipeline.Strict,
		Metrics:             m,
	}
	if err := pipeline.Run(ctx, opts, os.Stdin, os.Stdout); err != nil {
		slog.Error("pipeline failed", "error", err)
		os.Exit(pkgerrors.ExitCode(err))
	}
	slog.Info("pipeline finished")
}
