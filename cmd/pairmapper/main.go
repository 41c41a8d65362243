// Command pairmapper is the third stage of the document-similarity
// pipeline. It reads inverted-index posting lists from stdin and writes a
// weight contribution for every unordered pair of documents sharing a term
// to stdout.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/cjdd3b/car-datascience-toolkit/internal/pairwise"
	"github.com/cjdd3b/car-datascience-toolkit/pkg/config"
	pkgerrors "github.com/cjdd3b/car-datascience-toolkit/pkg/errors"
	"github.com/cjdd3b/car-datascience-toolkit/pkg/logger"
	"github.com/cjdd3b/car-datascience-toolkit/pkg/metrics"
)

func main() {
	configPath := flag.String("config", "", "path to config file")
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

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	mapper := pairwise.New(cfg.Pipeline.Strict, m)
	if err := mapper.Run(ctx, os.Stdin, os.Stdout); err != nil {
		slog.Error("pairwise mapper failed", "error", err)
		os.Exit(pkgerrors.ExitCode(err))
	}
}
