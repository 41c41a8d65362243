// Command invreducer is the second stage of the document-similarity
// pipeline. It reads term-sorted term-frequency triples from stdin and
// writes an inverted index with TF-IDF weights to stdout.
//
// The total corpus size must be supplied (flag, CAR_CORPUS_SIZE, or config
// file); when absent, it is resolved from the Redis corpus counter
// maintained by docfeed.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cjdd3b/car-datascience-toolkit/internal/invindex"
	"github.com/cjdd3b/car-datascience-toolkit/pkg/config"
	pkgerrors "github.com/cjdd3b/car-datascience-toolkit/pkg/errors"
	"github.com/cjdd3b/car-datascience-toolkit/pkg/logger"
	"github.com/cjdd3b/car-datascience-toolkit/pkg/metrics"
	pkgredis "github.com/cjdd3b/car-datascience-toolkit/pkg/redis"
)

func main() {
	configPath := flag.String("config", "", "path to config file")
	corpusSize := flag.Int("corpus-size", 0, "total number of documents in the corpus")
	fromRedis := flag.Bool("corpus-from-redis", false, "resolve corpus size from the Redis counter")
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
	if *strict {
		cfg.Pipeline.Strict = true
	}
	logger.Setup(cfg.Logging.Level, cfg.Logging.Format)

	if cfg.Pipeline.CorpusSize == 0 && *fromRedis {
		if err := resolveCorpusSize(cfg); err != nil {
			slog.Error("failed to resolve corpus size from redis", "error", err)
			os.Exit(pkgerrors.ExitConfiguration)
		}
	}
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

	reducer, err := invindex.New(cfg.Pipeline.CorpusSize, cfg.Pipeline.Strict, m)
	if err != nil {
		slog.Error("invalid configuration", "error", err)
		os.Exit(pkgerrors.ExitCode(err))
	}
	slog.Info("inverted-index reducer starting", "corpus_size", cfg.Pipeline.CorpusSize)

	if err := reducer.Run(ctx, os.Stdin, os.Stdout); err != nil {
		slog.Error("inverted-index reducer failed", "error", err)
		os.Exit(pkgerrors.ExitCode(err))
	}
}

func resolveCorpusSize(cfg *config.Config) error {
	rdb, err := pkgredis.NewClient(cfg.Redis)
	if err != nil {
		return err
	}
	defer rdb.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	n, err := rdb.CorpusCount(ctx)
	if err != nil {
		return err
	}
	cfg.Pipeline.CorpusSize = int(n)
	slog.Info("corpus size resolved from redis", "corpus_size", n)
	return nil
}
