package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/cjdd3b/car-datascience-toolkit/pkg/logger"
)

// Timeout bounds every request with a context deadline. A handler that
// misses the deadline gets the same JSON error shape the similarity API
// uses for its own failures, and any writes it attempts afterwards are
// dropped rather than appended to the timeout body.
func Timeout(limit time.Duration) func(http.Handler) http.Handler {
	log := logger.WithComponent("http")
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, cancel := context.WithTimeout(r.Context(), limit)
			defer cancel()

			dw := &deadlineWriter{ResponseWriter: w}
			done := make(chan struct{})
			go func() {
				defer close(done)
				next.ServeHTTP(dw, r.WithContext(ctx))
			}()

			select {
			case <-done:
			case <-ctx.Done():
				if !dw.expire() {
					return
				}
				log.Warn("request deadline exceeded",
					"method", r.Method,
					"path", r.URL.Path,
					"limit", limit,
				)
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusGatewayTimeout)
				json.NewEncoder(w).Encode(map[string]string{"error": "request timed out"})
			}
		})
	}
}

// deadlineWriter tracks who owns the response: the handler claims it on
// first write, the middleware claims it on deadline. Writes after the
// deadline claim are discarded.
type deadlineWriter struct {
	http.ResponseWriter
	mu      sync.Mutex
	state   int // 0 untouched, 1 handler writing, 2 expired
}

// expire claims the response for the timeout body. It reports false when
// the handler already produced output, in which case that response stands.
func (dw *deadlineWriter) expire() bool {
	dw.mu.Lock()
	defer dw.mu.Unlock()
	if dw.state != 0 {
		return false
	}
	dw.state = 2
	return true
}

func (dw *deadlineWriter) WriteHeader(code int) {
	dw.mu.Lock()
	defer dw.mu.Unlock()
	if dw.state == 2 {
		return
	}
	dw.state = 1
	dw.ResponseWriter.WriteHeader(code)
}

func (dw *deadlineWriter) Write(b []byte) (int, error) {
	dw.mu.Lock()
	defer dw.mu.Unlock()
	if dw.state == 2 {
		return 0, http.ErrHandlerTimeout
	}
	dw.state = 1
	return dw.ResponseWriter.Write(b)
}
