// Package record defines the line-oriented wire formats exchanged between
// the similarity pipeline stages, and the canonical document-pair key rule.
//
// All stage output is tab-separated. Posting lists are serialised as JSON
// objects so that downstream stages can parse them with a strict,
// schema-validated decoder.
package record

import (
	"encoding/json"
	"strconv"
	"strings"

	pkgerrors "github.com/cjdd3b/car-datascience-toolkit/pkg/errors"
)

const (
	// FieldSep separates fields within a stage record.
	FieldSep = "\t"
	// PairSep joins the two halves of a document-pair key.
	PairSep = "|"
)

// Document is a stage-1 input record: an opaque identifier and the raw
// text body, separated by the first "|" on the line.
type Document struct {
	ID   string
	Text string
}

// ParseDocument splits a `docid|text` line. A line with no separator is
// malformed.
func ParseDocument(line string) (Document, error) {
	id, text, ok := strings.Cut(line, PairSep)
	if !ok {
		return Document{}, pkgerrors.Newf(pkgerrors.ErrMalformedRecord,
			"document line has no %q separator", PairSep)
	}
	return Document{ID: id, Text: text}, nil
}

// TermFreq is a stage-1 output / stage-2 input record.
type TermFreq struct {
	Term  string
	DocID string
	Freq  float64
}

func (t TermFreq) Format() string {
	return t.Term + FieldSep + t.DocID + FieldSep + formatFloat(t.Freq)
}

func ParseTermFreq(line string) (TermFreq, error) {
	fields := strings.Split(line, FieldSep)
	if len(fields) != 3 {
		return TermFreq{}, pkgerrors.Newf(pkgerrors.ErrMalformedRecord,
			"term-frequency record has %d fields, want 3", len(fields))
	}
	freq, err := strconv.ParseFloat(fields[2], 64)
	if err != nil {
		return TermFreq{}, pkgerrors.Newf(pkgerrors.ErrMalformedRecord,
			"unparseable term frequency %q", fields[2])
	}
	return TermFreq{Term: fields[0], DocID: fields[1], Freq: freq}, nil
}

// Posting is a stage-2 output / stage-3 input record: one term and its
// document→weight posting list.
type Posting struct {
	Term    string
	Weights map[string]float64
}

// Format serialises the posting list as `term<TAB>{"docid":weight,...}`.
// encoding/json sorts object keys, so serialisation is deterministic.
func (p Posting) Format() (string, error) {
	data, err := json.Marshal(p.Weights)
	if err != nil {
		return "", pkgerrors.Newf(pkgerrors.ErrInternal,
			"marshaling posting list for term %q: %v", p.Term, err)
	}
	return p.Term + FieldSep + string(data), nil
}

func ParsePosting(line string) (Posting, error) {
	term, payload, ok := strings.Cut(line, FieldSep)
	if !ok {
		return Posting{}, pkgerrors.New(pkgerrors.ErrMalformedRecord,
			"posting record has no tab separator")
	}
	weights := make(map[string]float64)
	if err := json.Unmarshal([]byte(payload), &weights); err != nil {
		return Posting{}, pkgerrors.Newf(pkgerrors.ErrMalformedRecord,
			"undeserializable posting list for term %q: %v", term, err)
	}
	return Posting{Term: term, Weights: weights}, nil
}

// Contribution is a stage-3 output / stage-4 input record: one shared
// term's weight contribution to a document pair.
type Contribution struct {
	Pair   string
	Weight float64
}

func (c Contribution) Format() string {
	return c.Pair + FieldSep + formatFloat(c.Weight)
}

func ParseContribution(line string) (Contribution, error) {
	pair, payload, ok := strings.Cut(line, FieldSep)
	if !ok {
		return Contribution{}, pkgerrors.New(pkgerrors.ErrMalformedRecord,
			"contribution record has no tab separator")
	}
	weight, err := strconv.ParseFloat(payload, 64)
	if err != nil {
		return Contribution{}, pkgerrors.Newf(pkgerrors.ErrMalformedRecord,
			"unparseable contribution weight %q", payload)
	}
	return Contribution{Pair: pair, Weight: weight}, nil
}

// Similarity is a stage-4 output record: a document pair and its aggregate
// similarity score.
type Similarity struct {
	Pair  string
	Score float64
}

func (s Similarity) Format() string {
	return s.Pair + FieldSep + formatFloat(s.Score)
}

func ParseSimilarity(line string) (Similarity, error) {
	c, err := ParseContribution(line)
	if err != nil {
		return Similarity{}, err
	}
	return Similarity{Pair: c.Pair, Score: c.Weight}, nil
}

// PairKey returns the canonical key for an unordered document pair. The two
// identifiers are joined in lexicographic order, so PairKey(a, b) and
// PairKey(b, a) always serialise identically.
func PairKey(a, b string) string {
	if b < a {
		a, b = b, a
	}
	return a + PairSep + b
}

// SplitPairKey splits a pair key into its two halves. A key that does not
// split into exactly two is malformed.
func SplitPairKey(key string) (string, string, error) {
	parts := strings.Split(key, PairSep)
	if len(parts) != 2 {
		return "", "", pkgerrors.Newf(pkgerrors.ErrMalformedRecord,
			"pair key %q splits into %d halves, want 2", key, len(parts))
	}
	return parts[0], parts[1], nil
}

// CanonicalID truncates a document identifier to its first prefixLen
// characters, normalizing composite ids that carry suffix information.
func CanonicalID(id string, prefixLen int) string {
	if prefixLen > 0 && len(id) > prefixLen {
		return id[:prefixLen]
	}
	return id
}

// formatFloat renders weights with the shortest representation that
// round-trips exactly.
func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'g', -1, 64)
}
