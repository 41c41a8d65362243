// Package simserver serves similarity lookups over HTTP: given a document
// id, it returns the most similar documents found by the pipeline, backed
// by the PostgreSQL store with Redis caching and per-client rate limiting.
package simserver

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/cjdd3b/car-datascience-toolkit/internal/store"
	"github.com/cjdd3b/car-datascience-toolkit/pkg/logger"
)

// SimilarityFinder is the read side of the similarity store.
type SimilarityFinder interface {
	Similar(ctx context.Context, docID string, limit int) ([]store.Neighbor, error)
}

// SimilarResponse is the JSON body returned for a similarity lookup.
type SimilarResponse struct {
	DocID     string           `json:"doc_id"`
	Neighbors []store.Neighbor `json:"neighbors"`
	LatencyMs int64            `json:"latency_ms,omitempty"`
}

type Handler struct {
	finder       SimilarityFinder
	cache        *Cache
	limiter      *RateLimiter
	rateLimit    int
	defaultLimit int
	maxLimit     int
	logger       *slog.Logger
}

func NewHandler(finder SimilarityFinder, cache *Cache, limiter *RateLimiter, rateLimit int) *Handler {
	return &Handler{
		finder:       finder,
		cache:        cache,
		limiter:      limiter,
		rateLimit:    rateLimit,
		defaultLimit: 10,
		maxLimit:     100,
		logger:       logger.WithComponent("similar-handler"),
	}
}

func (h *Handler) Similar(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	ctx := r.Context()

	if h.limiter != nil && h.rateLimit > 0 {
		if !h.limiter.Allow(clientKey(r), h.rateLimit) {
			h.writeError(w, http.StatusTooManyRequests, "rate limit exceeded")
			return
		}
	}

	docID := r.URL.Query().Get("doc")
	if docID == "" {
		h.writeError(w, http.StatusBadRequest, "query parameter 'doc' is required")
		return
	}

	limit := h.defaultLimit
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		parsed, err := strconv.Atoi(limitStr)
		if err != nil || parsed < 1 {
			h.writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		if parsed > h.maxLimit {
			parsed = h.maxLimit
		}
		limit = parsed
	}

	var resp *SimilarResponse
	var err error
	cacheHit := false

	compute := func() (*SimilarResponse, error) {
		neighbors, err := h.finder.Similar(ctx, docID, limit)
		if err != nil {
			return nil, err
		}
		return &SimilarResponse{DocID: docID, Neighbors: neighbors}, nil
	}

	if h.cache != nil {
		resp, cacheHit, err = h.cache.GetOrCompute(ctx, docID, limit, compute)
	} else {
		resp, err = compute()
	}
	if err != nil {
		h.logger.Error("similarity lookup failed", "doc_id", docID, "error", err)
		h.writeError(w, http.StatusInternalServerError, "similarity lookup failed")
		return
	}

	resp.LatencyMs = time.Since(start).Milliseconds()
	h.logger.Info("similarity lookup",
		"doc_id", docID,
		"neighbors", len(resp.Neighbors),
		"cache_hit", cacheHit,
		"latency_ms", resp.LatencyMs,
	)
	h.writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) CacheStats(w http.ResponseWriter, r *http.Request) {
	if h.cache == nil {
		h.writeJSON(w, http.StatusOK, map[string]string{"status": "disabled"})
		return
	}
	hits, misses := h.cache.Stats()
	total := hits + misses
	var hitRate float64
	if total > 0 {
		hitRate = float64(hits) / float64(total) * 100
	}
	h.writeJSON(w, http.StatusOK, map[string]any{
		"hits":     hits,
		"misses":   misses,
		"total":    total,
		"hit_rate": fmt.Sprintf("%.1f%%", hitRate),
	})
}

func (h *Handler) CacheInvalidate(w http.ResponseWriter, r *http.Request) {
	if h.cache == nil {
		h.writeError(w, http.StatusServiceUnavailable, "caching is disabled")
		return
	}
	if err := h.cache.Invalidate(r.Context()); err != nil {
		h.logger.Error("cache invalidation failed", "error", err)
		h.writeError(w, http.StatusInternalServerError, "cache invalidation failed")
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]string{"status": "invalidated"})
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to write response", "error", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{"error": message})
}

// clientKey identifies the caller for rate limiting, falling back to the
// whole RemoteAddr when it has no port.
func clientKey(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
