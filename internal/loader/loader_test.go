package loader

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/cjdd3b/car-datascience-toolkit/internal/record"
	pkgerrors "github.com/cjdd3b/car-datascience-toolkit/pkg/errors"
	"github.com/cjdd3b/car-datascience-toolkit/pkg/resilience"
)

type fakeStore struct {
	batches [][]record.Similarity
	err     error
}

func (f *fakeStore) UpsertBatch(ctx context.Context, sims []record.Similarity) error {
	if f.err != nil {
		return f.err
	}
	// The loader reuses its batch slice between flushes.
	cp := make([]record.Similarity, len(sims))
	copy(cp, sims)
	f.batches = append(f.batches, cp)
	return nil
}

func TestRunFlushesByBatchSize(t *testing.T) {
	in := strings.NewReader(
		"docA|docB\t1.5\n" +
			"docA|docC\t2.5\n" +
			"docA|docD\t1.25\n" +
			"docB|docC\t3.5\n" +
			"docB|docD\t1.75\n",
	)
	fs := &fakeStore{}
	l := New(fs, nil, 2, false, nil)

	if err := l.Run(context.Background(), in); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	sizes := make([]int, 0, len(fs.batches))
	for _, b := range fs.batches {
		sizes = append(sizes, len(b))
	}
	want := []int{2, 2, 1}
	if len(sizes) != len(want) {
		t.Fatalf("got %d batches %v, want %v", len(sizes), sizes, want)
	}
	for i := range want {
		if sizes[i] != want[i] {
			t.Fatalf("batch sizes = %v, want %v", sizes, want)
		}
	}

	last := fs.batches[2][0]
	if last.Pair != "docB|docD" || last.Score != 1.75 {
		t.Errorf("final record = %+v, want docB|docD 1.75", last)
	}
}

func TestRunLenientSkipsMalformed(t *testing.T) {
	in := strings.NewReader(
		"docA|docB\t1.5\n" +
			"nodivider\n" +
			"docA|docC\t2.5\n",
	)
	fs := &fakeStore{}
	l := New(fs, nil, 0, false, nil)

	if err := l.Run(context.Background(), in); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(fs.batches) != 1 || len(fs.batches[0]) != 2 {
		t.Fatalf("persisted batches = %+v, want one batch of 2", fs.batches)
	}
}

func TestRunStrictAbortsOnMalformed(t *testing.T) {
	in := strings.NewReader(
		"docA|docB\t1.5\n" +
			"nodivider\n" +
			"docA|docC\t2.5\n",
	)
	fs := &fakeStore{}
	l := New(fs, nil, 0, true, nil)

	err := l.Run(context.Background(), in)
	if !errors.Is(err, pkgerrors.ErrMalformedRecord) {
		t.Fatalf("want ErrMalformedRecord, got %v", err)
	}
	if !strings.Contains(err.Error(), "line 2") {
		t.Errorf("error %q does not name the failing line", err)
	}
	if len(fs.batches) != 0 {
		t.Errorf("batches persisted despite abort: %+v", fs.batches)
	}
}

func TestRunPropagatesStoreFailure(t *testing.T) {
	in := strings.NewReader("docA|docB\t1.5\n")
	storeErr := errors.New("connection refused")
	l := New(&fakeStore{err: storeErr}, nil, 0, false, nil)
	l.retry = resilience.RetryConfig{MaxAttempts: 1}

	if err := l.Run(context.Background(), in); !errors.Is(err, storeErr) {
		t.Fatalf("want store error, got %v", err)
	}
}
