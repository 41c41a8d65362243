// Package termfreq implements the first stage of the document-similarity
// pipeline: a streaming mapper that turns `docid|text` lines into
// (term, docid, term-frequency) triples.
//
// Tokenization is a plain whitespace split. Punctuation stripping, stopword
// removal, and stemming belong to the upstream preprocessing collaborator
// (see internal/prep), not to this stage.
package termfreq

import (
	"context"
	"io"
	"sort"
	"strings"

	"github.com/cjdd3b/car-datascience-toolkit/internal/record"
	"github.com/cjdd3b/car-datascience-toolkit/internal/stream"
	pkgerrors "github.com/cjdd3b/car-datascience-toolkit/pkg/errors"
	"github.com/cjdd3b/car-datascience-toolkit/pkg/logger"
	"github.com/cjdd3b/car-datascience-toolkit/pkg/metrics"
)

const stageName = "termfreq"

// Mapper is the stage-1 stream filter.
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

// Run reads documents from in and writes term-frequency triples to out
// until end of stream or an unrecoverable error.
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

		triples, err := MapDocument(sc.Text())
		if err != nil {
			if err := m.policy.HandleRecordError(err, sc.Line()); err != nil {
				return err
			}
			continue
		}
		for _, t := range triples {
			if err := w.WriteRecord(t); err != nil {
				return err
			}
		}
		m.policy.CountOut(len(triples))
	}
	if err := sc.Err(); err != nil {
		return err
	}
	return w.Flush()
}

// MapDocument computes the term-frequency triples for one `docid|text`
// line. Triples are returned in term order so output is deterministic.
func MapDocument(line string) ([]record.TermFreq, error) {
	doc, err := record.ParseDocument(line)
	if err != nil {
		return nil, err
	}

	tokens := strings.Fields(doc.Text)
	if len(tokens) == 0 {
		return nil, pkgerrors.Newf(pkgerrors.ErrEmptyDocument,
			"document %q has no tokens", doc.ID)
	}

	counts := make(map[string]int, len(tokens))
	for _, tok := range tokens {
		counts[tok]++
	}

	terms := make([]string, 0, len(counts))
	for term := range counts {
		terms = append(terms, term)
	}
	sort.Strings(terms)

	total := float64(len(tokens))
	triples := make([]record.TermFreq, 0, len(terms))
	for _, term := range terms {
		triples = append(triples, record.TermFreq{
			Term:  term,
			DocID: doc.ID,
			Freq:  float64(counts[term]) / total,
		})
	}
	return triples, nil
}
