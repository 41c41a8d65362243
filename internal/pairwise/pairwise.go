// Package pairwise implements the third stage of the document-similarity
// pipeline: a streaming mapper that expands each inverted-index posting
// list into weight contributions for every unordered pair of documents
// sharing that term.
//
// This stage is quadratic in the number of documents sharing a term, so
// terms that appear in large fractions of the corpus (stopwords above all)
// dominate its cost. That is an accepted property of the algorithm; the
// fix, when needed, is upstream stopword removal, not a change here.
package pairwise

import (
	"context"
	"io"
	"sort"

	"github.com/cjdd3b/car-datascience-toolkit/internal/record"
	"github.com/cjdd3b/car-datascience-toolkit/internal/stream"
	"github.com/cjdd3b/car-datascience-toolkit/pkg/logger"
	"github.com/cjdd3b/car-datascience-toolkit/pkg/metrics"
)

const stageName = "pairwise"

// Mapper is the stage-3 stream filter.
type Mapper struct {
	policy stream.Policy
}

func New(strict bool, m *metrics.Metrics) *Mapper {
	return &Mapper{
		policy: stream.Policy{
			Stage:   stageName,
			Strict:  strict,
			Logger:  logger.WithComponent(stageName),
			Metrics: m,
		},
	}
}

// Run reads posting-list records from in and writes pair contributions
// to out.
func (m *Mapper) Run(ctx context.Context, in io.Reader, out io.Writer) error {
	sc := stream.NewScanner(in)
	w := stream.NewWriter(out)
	// Flush on every exit path so records already emitted precede a failure.
	defer w.Flush()

	for sc.Scan() {
		if err := ctx.Err(); err != nil {
			return err
		}
		m.policy.CountIn()

		posting, err := record.ParsePosting(sc.Text())
		if err != nil {
			if err := m.policy.HandleRecordError(err, sc.Line()); err != nil {
				return err
			}
			continue
		}

		contribs := Expand(posting)
		for _, c := range contribs {
			if err := w.WriteRecord(c); err != nil {
				return err
			}
		}
		m.policy.CountOut(len(contribs))
		if m.policy.Metrics != nil {
			m.policy.Metrics.PairsEmittedTotal.Add(float64(len(contribs)))
		}
	}
	if err := sc.Err(); err != nil {
		return err
	}
	return w.Flush()
}

// Expand enumerates every unordered pair of distinct documents in the
// posting list and returns one contribution per pair, valued at the sum of
// the two documents' weights for this term. Document ids are sorted first,
// so the same posting list produces the same contributions regardless of
// map iteration order, and every pair key is already canonical. A posting
// list with fewer than two documents yields nothing.
func Expand(p record.Posting) []record.Contribution {
	if len(p.Weights) < 2 {
		return nil
	}
	ids := make([]string, 0, len(p.Weights))
	for id := range p.Weights {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	contribs := make([]record.Contribution, 0, len(ids)*(len(ids)-1)/2)
	for i := 0; i < len(ids); i++ {
		for j := i + 1; j < len(ids); j++ {
			contribs = append(contribs, record.Contribution{
				Pair:   record.PairKey(ids[i], ids[j]),
				Weight: p.Weights[ids[i]] + p.Weights[ids[j]],
			})
		}
	}
	return contribs
}
