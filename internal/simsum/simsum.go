// Package simsum implements the fourth stage of the document-similarity
// pipeline: a streaming reducer that sums pairwise weight contributions,
// pre-sorted by pair key, into final similarity scores.
//
// Scores are a ranking signal only; no normalization bound is guaranteed.
package simsum

import (
	"context"
	"io"

	"github.com/cjdd3b/car-datascience-toolkit/internal/record"
	"github.com/cjdd3b/car-datascience-toolkit/internal/stream"
	pkgerrors "github.com/cjdd3b/car-datascience-toolkit/pkg/errors"
	"github.com/cjdd3b/car-datascience-toolkit/pkg/logger"
	"github.com/cjdd3b/car-datascience-toolkit/pkg/metrics"
)

const stageName = "simsum"

// Reducer is the stage-4 stream filter.
type Reducer struct {
	threshold float64
	prefixLen int
	policy    stream.Policy
}

// New creates the reducer. threshold is the score a pair must strictly
// exceed to be emitted; prefixLen is the canonical-id prefix width used to
// normalize composite document ids before the self-pair check.
func New(threshold float64, prefixLen int, strict bool, m *metrics.Metrics) (*Reducer, error) {
	if prefixLen < 1 {
		return nil, pkgerrors.Newf(pkgerrors.ErrConfiguration,
			"id prefix length must be positive, got %d", prefixLen)
	}
	return &Reducer{
		threshold: threshold,
		prefixLen: prefixLen,
		policy: stream.Policy{
			Stage:   stageName,
			Strict:  strict,
			Logger:  logger.WithComponent(stageName),
			Metrics: m,
		},
	}, nil
}

// Run reads pair-key-sorted contributions from in and writes filtered
// similarity records to out.
func (r *Reducer) Run(ctx context.Context, in io.Reader, out io.Writer) error {
	sc := stream.NewScanner(in)
	w := stream.NewWriter(out)
	// Flush on every exit path so groups already emitted precede a failure.
	defer w.Flush()

	var (
		current string
		total   float64
		open    bool
	)

	flush := func() error {
		if !open {
			return nil
		}
		open = false
		r.policy.CountGroup()

		sim, emit, err := r.Finalize(current, total)
		if err != nil {
			return r.policy.HandleRecordError(err, sc.Line())
		}
		if !emit {
			return nil
		}
		if err := w.WriteRecord(sim); err != nil {
			return err
		}
		r.policy.CountOut(1)
		return nil
	}

	for sc.Scan() {
		if err := ctx.Err(); err != nil {
			return err
		}
		r.policy.CountIn()

		contrib, err := record.ParseContribution(sc.Text())
		if err != nil {
			if err := r.policy.HandleRecordError(err, sc.Line()); err != nil {
				return err
			}
			continue
		}

		if open && contrib.Pair != current {
			if err := flush(); err != nil {
				return err
			}
		}
		if !open {
			current = contrib.Pair
			total = 0
			open = true
		}
		total += contrib.Weight
	}
	if err := sc.Err(); err != nil {
		return err
	}
	if err := flush(); err != nil {
		return err
	}
	return w.Flush()
}

// Finalize applies the self-pair and threshold filters to one summed group.
// It reports whether the record should be emitted. The canonical ids used
// for the self-pair check are the fixed-width prefixes of the two key
// halves; the emitted record keeps the full original key.
func (r *Reducer) Finalize(pair string, score float64) (record.Similarity, bool, error) {
	left, right, err := record.SplitPairKey(pair)
	if err != nil {
		return record.Similarity{}, false, err
	}
	id1 := record.CanonicalID(left, r.prefixLen)
	id2 := record.CanonicalID(right, r.prefixLen)

	// Test the emit side of the comparison: a NaN aggregate fails both
	// directions and must stay filtered, not slip past a skip check.
	if id1 == id2 || !(score > r.threshold) {
		return record.Similarity{}, false, nil
	}
	return record.Similarity{Pair: pair, Score: score}, true, nil
}
