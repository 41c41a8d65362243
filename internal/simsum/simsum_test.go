package simsum

import (
	"bytes"
	"context"
	"errors"
	"math"
	"strings"
	"testing"

	"github.com/cjdd3b/car-datascience-toolkit/internal/record"
	pkgerrors "github.com/cjdd3b/car-datascience-toolkit/pkg/errors"
)

func newReducer(t *testing.T, threshold float64, prefixLen int) *Reducer {
	t.Helper()
	r, err := New(threshold, prefixLen, false, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return r
}

func TestNewRejectsBadPrefixLen(t *testing.T) {
	for _, n := range []int{0, -3} {
		if _, err := New(1.0, n, false, nil); !errors.Is(err, pkgerrors.ErrConfiguration) {
			t.Errorf("New(prefixLen=%d): want ErrConfiguration, got %v", n, err)
		}
	}
}

func TestFinalize(t *testing.T) {
	r := newReducer(t, 1.0, 8)

	tests := []struct {
		name     string
		pair     string
		score    float64
		wantEmit bool
	}{
		{"above threshold", "doc1|doc2", 1.5, true},
		{"exactly threshold", "doc1|doc2", 1.0, false},
		{"below threshold", "doc1|doc2", 0.5, false},
		{"nan aggregate", "doc1|doc2", math.NaN(), false},
		{"self pair", "doc1|doc1", 99.0, false},
		{"self pair by prefix", "12345678-a|12345678-b", 99.0, false},
		{"distinct within prefix", "1234|1235", 2.0, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sim, emit, err := r.Finalize(tt.pair, tt.score)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if emit != tt.wantEmit {
				t.Fatalf("emit = %v, want %v", emit, tt.wantEmit)
			}
			if emit && sim.Pair != tt.pair {
				t.Errorf("emitted pair %q, want the full original key %q", sim.Pair, tt.pair)
			}
		})
	}
}

func TestFinalizeMalformedKey(t *testing.T) {
	r := newReducer(t, 1.0, 8)
	if _, _, err := r.Finalize("nodivider", 5.0); !errors.Is(err, pkgerrors.ErrMalformedRecord) {
		t.Errorf("want ErrMalformedRecord, got %v", err)
	}
}

func TestRunSumsGroups(t *testing.T) {
	// Pre-sorted by pair key.
	in := strings.NewReader(
		"docA|docB\t0.75\n" +
			"docA|docB\t0.5\n" +
			"docA|docC\t0.25\n" +
			"docB|docC\t2.5\n",
	)
	var out bytes.Buffer

	r := newReducer(t, 1.0, 8)
	if err := r.Run(context.Background(), in, &out); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	lines := strings.Split(strings.TrimSuffix(out.String(), "\n"), "\n")
	if len(lines) != 2 {
		t.Fatalf("got %d output lines, want 2: %q", len(lines), out.String())
	}

	first, err := record.ParseSimilarity(lines[0])
	if err != nil {
		t.Fatalf("unparseable similarity: %v", err)
	}
	if first.Pair != "docA|docB" || first.Score != 1.25 {
		t.Errorf("first record = %+v, want docA|docB 1.25", first)
	}

	second, err := record.ParseSimilarity(lines[1])
	if err != nil {
		t.Fatalf("unparseable similarity: %v", err)
	}
	if second.Pair != "docB|docC" || second.Score != 2.5 {
		t.Errorf("second record = %+v, want docB|docC 2.5", second)
	}
}

func TestRunZeroThresholdStillStrict(t *testing.T) {
	// A zero aggregate must not pass a zero threshold; the comparison is
	// strictly greater-than.
	in := strings.NewReader("docA|docB\t0\n")
	var out bytes.Buffer

	r := newReducer(t, 0, 8)
	if err := r.Run(context.Background(), in, &out); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.Len() != 0 {
		t.Errorf("zero-score pair emitted: %q", out.String())
	}
}

func TestRunFiltersNaNAggregate(t *testing.T) {
	// strconv accepts "NaN" as a weight, and NaN fails every ordered
	// comparison against the threshold. The group must still be filtered.
	in := strings.NewReader("docA|docB\tNaN\n")
	var out bytes.Buffer

	r := newReducer(t, 1.0, 8)
	if err := r.Run(context.Background(), in, &out); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.Len() != 0 {
		t.Errorf("NaN-score pair emitted: %q", out.String())
	}
}

func TestRunLenientSkipsBadContribution(t *testing.T) {
	in := strings.NewReader(
		"docA|docB\t1.5\n" +
			"docA|docB\tnotanumber\n" +
			"docA|docB\t1.5\n",
	)
	var out bytes.Buffer

	r := newReducer(t, 1.0, 8)
	if err := r.Run(context.Background(), in, &out); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	sim, err := record.ParseSimilarity(strings.TrimSuffix(out.String(), "\n"))
	if err != nil {
		t.Fatalf("unparseable similarity: %v", err)
	}
	if sim.Score != 3.0 {
		t.Errorf("score = %v, want 3.0 (bad line skipped)", sim.Score)
	}
}
