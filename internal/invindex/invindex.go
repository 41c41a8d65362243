// Package invindex implements the second stage of the document-similarity
// pipeline: a streaming reducer that consolidates term-frequency triples,
// pre-sorted by term, into an inverted index with TF-IDF weights.
//
// The external framework guarantees that all triples for one term arrive
// contiguously; this reducer only detects group boundaries, it never holds
// more than the current term's posting list in memory.
package invindex

import (
	"context"
	"io"
	"math"

	"github.com/cjdd3b/car-datascience-toolkit/internal/record"
	"github.com/cjdd3b/car-datascience-toolkit/internal/stream"
	pkgerrors "github.com/cjdd3b/car-datascience-toolkit/pkg/errors"
	"github.com/cjdd3b/car-datascience-toolkit/pkg/logger"
	"github.com/cjdd3b/car-datascience-toolkit/pkg/metrics"
)

const stageName = "invindex"

// Reducer is the stage-2 stream filter.
type Reducer struct {
	corpusSize int
	policy     stream.Policy
}

// New creates the reducer. corpusSize is the total number of documents in
// the corpus; it must be positive or IDF is undefined.
func New(corpusSize int, strict bool, m *metrics.Metrics) (*Reducer, error) {
	if corpusSize <= 0 {
		return nil, pkgerrors.Newf(pkgerrors.ErrConfiguration,
			"corpus size must be positive, got %d", corpusSize)
	}
	return &Reducer{
		corpusSize: corpusSize,
		policy: stream.Policy{
			Stage:   stageName,
			Strict:  strict,
			Logger:  logger.WithComponent(stageName),
			Metrics: m,
		},
	}, nil
}

// IDF returns ln(corpusSize / docsContainingTerm). Natural log is an
// arbitrary but fixed base; only relative magnitude matters downstream.
func (r *Reducer) IDF(docsContainingTerm int) float64 {
	return math.Log(float64(r.corpusSize) / float64(docsContainingTerm))
}

// Run reads term-sorted triples from in and writes one posting-list record
// per term to out.
func (r *Reducer) Run(ctx context.Context, in io.Reader, out io.Writer) error {
	sc := stream.NewScanner(in)
	w := stream.NewWriter(out)
	// Flush on every exit path so groups already emitted precede a failure.
	defer w.Flush()

	var (
		current string
		weights map[string]float64
	)

	flush := func() error {
		if weights == nil {
			return nil
		}
		if err := r.writeGroup(w, current, weights); err != nil {
			return err
		}
		weights = nil
		return nil
	}

	for sc.Scan() {
		if err := ctx.Err(); err != nil {
			return err
		}
		r.policy.CountIn()

		tf, err := record.ParseTermFreq(sc.Text())
		if err != nil {
			if err := r.policy.HandleRecordError(err, sc.Line()); err != nil {
				return err
			}
			continue
		}

		if weights != nil && tf.Term != current {
			if err := flush(); err != nil {
				return err
			}
		}
		if weights == nil {
			current = tf.Term
			weights = make(map[string]float64)
		}
		weights[tf.DocID] = tf.Freq
	}
	if err := sc.Err(); err != nil {
		return err
	}
	if err := flush(); err != nil {
		return err
	}
	return w.Flush()
}

// writeGroup converts one term's collected frequencies into TF-IDF weights
// and emits the posting-list record.
func (r *Reducer) writeGroup(w *stream.Writer, term string, weights map[string]float64) error {
	docs := len(weights)
	if docs > r.corpusSize {
		return pkgerrors.Newf(pkgerrors.ErrConfiguration,
			"term %q appears in %d documents but corpus size is %d", term, docs, r.corpusSize)
	}
	idf := r.IDF(docs)
	for docID, tf := range weights {
		weights[docID] = tf * idf
	}

	line, err := record.Posting{Term: term, Weights: weights}.Format()
	if err != nil {
		return err
	}
	if err := w.WriteLine(line); err != nil {
		return err
	}
	r.policy.CountGroup()
	r.policy.CountOut(1)
	return nil
}
