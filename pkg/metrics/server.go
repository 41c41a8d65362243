package metrics

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/cjdd3b/car-datascience-toolkit/pkg/logger"
)

// StartServer exposes the Prometheus registry for one toolkit process.
// Stage binaries stream records on stdout, so the scrape endpoint is the
// only HTTP surface most of them carry. The returned function shuts the
// server down.
func StartServer(port int) (shutdown func(context.Context) error) {
	log := logger.WithComponent("metrics")

	mux := http.NewServeMux()
	mux.Handle("GET /metrics", Handler())

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      mux,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info("scrape endpoint listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("scrape endpoint failed", "error", err)
		}
	}()

	return srv.Shutdown
}
