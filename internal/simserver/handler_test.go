package simserver

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/cjdd3b/car-datascience-toolkit/internal/store"
)

type fakeFinder struct {
	neighbors []store.Neighbor
	err       error
	lastDoc   string
	lastLimit int
	calls     int
}

func (f *fakeFinder) Similar(ctx context.Context, docID string, limit int) ([]store.Neighbor, error) {
	f.calls++
	f.lastDoc = docID
	f.lastLimit = limit
	return f.neighbors, f.err
}

func doSimilar(t *testing.T, h *Handler, target string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	rec := httptest.NewRecorder()
	h.Similar(rec, req)
	return rec
}

func TestSimilar(t *testing.T) {
	finder := &fakeFinder{neighbors: []store.Neighbor{
		{DocID: "doc2", Score: 4.2},
		{DocID: "doc3", Score: 1.1},
	}}
	h := NewHandler(finder, nil, nil, 0)

	rec := doSimilar(t, h, "/api/v1/similar?doc=doc1")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body.String())
	}

	var resp SimilarResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unparseable body: %v", err)
	}
	if resp.DocID != "doc1" {
		t.Errorf("doc_id = %q, want doc1", resp.DocID)
	}
	if len(resp.Neighbors) != 2 || resp.Neighbors[0].DocID != "doc2" {
		t.Errorf("neighbors = %v", resp.Neighbors)
	}
	if finder.lastLimit != 10 {
		t.Errorf("default limit = %d, want 10", finder.lastLimit)
	}
}

func TestSimilarMissingDoc(t *testing.T) {
	h := NewHandler(&fakeFinder{}, nil, nil, 0)

	rec := doSimilar(t, h, "/api/v1/similar")
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestSimilarLimitParsing(t *testing.T) {
	tests := []struct {
		name       string
		query      string
		wantStatus int
		wantLimit  int
	}{
		{"explicit limit", "doc=doc1&limit=5", http.StatusOK, 5},
		{"limit clamped to max", "doc=doc1&limit=5000", http.StatusOK, 100},
		{"zero limit", "doc=doc1&limit=0", http.StatusBadRequest, 0},
		{"negative limit", "doc=doc1&limit=-2", http.StatusBadRequest, 0},
		{"non-numeric limit", "doc=doc1&limit=ten", http.StatusBadRequest, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			finder := &fakeFinder{}
			h := NewHandler(finder, nil, nil, 0)

			rec := doSimilar(t, h, "/api/v1/similar?"+tt.query)
			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			if tt.wantStatus == http.StatusOK && finder.lastLimit != tt.wantLimit {
				t.Errorf("limit = %d, want %d", finder.lastLimit, tt.wantLimit)
			}
		})
	}
}

func TestSimilarFinderError(t *testing.T) {
	h := NewHandler(&fakeFinder{err: errors.New("connection refused")}, nil, nil, 0)

	rec := doSimilar(t, h, "/api/v1/similar?doc=doc1")
	if rec.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", rec.Code)
	}
}

func TestSimilarRateLimited(t *testing.T) {
	h := NewHandler(&fakeFinder{}, nil, NewRateLimiter(time.Minute), 2)

	for i := 0; i < 2; i++ {
		if rec := doSimilar(t, h, "/api/v1/similar?doc=doc1"); rec.Code != http.StatusOK {
			t.Fatalf("request %d: status = %d, want 200", i+1, rec.Code)
		}
	}
	if rec := doSimilar(t, h, "/api/v1/similar?doc=doc1"); rec.Code != http.StatusTooManyRequests {
		t.Errorf("status = %d, want 429", rec.Code)
	}
}

func TestCacheStatsDisabled(t *testing.T) {
	h := NewHandler(&fakeFinder{}, nil, nil, 0)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/cache/stats", nil)
	rec := httptest.NewRecorder()
	h.CacheStats(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var body map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("unparseable body: %v", err)
	}
	if body["status"] != "disabled" {
		t.Errorf("status = %q, want disabled", body["status"])
	}
}

func TestCacheInvalidateDisabled(t *testing.T) {
	h := NewHandler(&fakeFinder{}, nil, nil, 0)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/cache/invalidate", nil)
	rec := httptest.NewRecorder()
	h.CacheInvalidate(rec, req)

	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", rec.Code)
	}
}

func TestRateLimiterWindow(t *testing.T) {
	l := NewRateLimiter(50 * time.Millisecond)

	for i := 0; i < 3; i++ {
		if !l.Allow("client", 3) {
			t.Fatalf("request %d should be allowed", i+1)
		}
	}
	if l.Allow("client", 3) {
		t.Error("fourth request in the window should be denied")
	}
	if !l.Allow("other", 3) {
		t.Error("a different client must not share the bucket")
	}

	time.Sleep(60 * time.Millisecond)
	if !l.Allow("client", 3) {
		t.Error("window expiry should reset the bucket")
	}
}
