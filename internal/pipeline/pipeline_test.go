package pipeline

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

func run(t *testing.T, opts Options, input string) []record.Similarity {
	t.Helper()
	var out bytes.Buffer
	if err := Run(context.Background(), opts, strings.NewReader(input), &out); err != nil {
		t.Fatalf("pipeline failed: %v", err)
	}

	var sims []record.Similarity
	for _, line := range strings.Split(out.String(), "\n") {
		if line == "" {
			continue
		}
		sim, err := record.ParseSimilarity(line)
		if err != nil {
			t.Fatalf("unparseable output line %q: %v", line, err)
		}
		sims = append(sims, sim)
	}
	return sims
}

func TestNearIdenticalShortDocsScoreZero(t *testing.T) {
	// Both documents share only ubiquitous terms, which carry zero IDF
	// weight, and each unique term appears in a single document. Nothing
	// can cross a positive threshold.
	input := "doc1|the cat sat\ndoc2|the cat ran\n"

	opts := Options{
		CorpusSize:          2,
		SimilarityThreshold: 1.0,
		IDPrefixLength:      8,
	}
	if sims := run(t, opts, input); len(sims) != 0 {
		t.Errorf("expected no pairs above threshold, got %v", sims)
	}
}

func TestSharedRareTermScoresPair(t *testing.T) {
	// "xylophone" appears in two of four documents; the other terms are
	// noise spread across single documents. The pair sharing the rare term
	// must surface, and only that pair.
	input := strings.Join([]string{
		"docA|xylophone xylophone xylophone xylophone",
		"docB|xylophone xylophone xylophone xylophone",
		"docC|completely different words here",
		"docD|nothing shared with others",
	}, "\n") + "\n"

	opts := Options{
		CorpusSize:          4,
		SimilarityThreshold: 1.0,
		IDPrefixLength:      8,
	}
	sims := run(t, opts, input)
	if len(sims) != 1 {
		t.Fatalf("got %d pairs, want 1: %v", len(sims), sims)
	}
	if sims[0].Pair != "docA|docB" {
		t.Errorf("pair = %q, want docA|docB", sims[0].Pair)
	}
	// Each document's TF for the term is 1.0 and IDF is ln(4/2); the single
	// shared term contributes the sum of both weights.
	want := 2 * math.Log(2)
	if math.Abs(sims[0].Score-want) > 1e-12 {
		t.Errorf("score = %v, want %v", sims[0].Score, want)
	}
}

func TestCompositeIDsCollapseToSelfPair(t *testing.T) {
	// Two shards of the same underlying document share an 8-character id
	// prefix, so their pairing is suppressed as a self-comparison.
	input := strings.Join([]string{
		"abcd1234-p1|xylophone xylophone",
		"abcd1234-p2|xylophone xylophone",
	}, "\n") + "\n"

	opts := Options{
		CorpusSize:          4,
		SimilarityThreshold: 1.0,
		IDPrefixLength:      8,
	}
	if sims := run(t, opts, input); len(sims) != 0 {
		t.Errorf("expected self-pair suppression, got %v", sims)
	}
}

func TestRunInvalidCorpusSize(t *testing.T) {
	err := Run(context.Background(), Options{CorpusSize: 0, IDPrefixLength: 8},
		strings.NewReader(""), &bytes.Buffer{})
	if !errors.Is(err, pkgerrors.ErrConfiguration) {
		t.Fatalf("want ErrConfiguration, got %v", err)
	}
}

func TestRunStrictPropagatesBadDocument(t *testing.T) {
	opts := Options{
		CorpusSize:          2,
		SimilarityThreshold: 1.0,
		IDPrefixLength:      8,
		Strict:              true,
	}
	err := Run(context.Background(), opts,
		strings.NewReader("not a document line\n"), &bytes.Buffer{})
	if !errors.Is(err, pkgerrors.ErrMalformedRecord) {
		t.Fatalf("want ErrMalformedRecord, got %v", err)
	}
}

func TestSortLines(t *testing.T) {
	var out bytes.Buffer
	in := strings.NewReader("banana\t1\napple\t2\ncherry\t3\n")
	if err := sortLines(in, &out); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := "apple\t2\nbanana\t1\ncherry\t3\n"
	if out.String() != want {
		t.Errorf("got %q, want %q", out.String(), want)
	}
}
