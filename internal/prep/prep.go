// Package prep provides the optional text preprocessing that runs upstream
// of the term-frequency mapper: lower-casing, punctuation stripping,
// stopword removal, and a simple suffix-based stemmer. The mapper itself
// only splits on whitespace, so everything that improves token quality
// lives here.
package prep

import (
	"strings"
	"unicode"
)

var stopWords = map[string]struct{}{
	"a": {}, "an": {}, "and": {}, "are": {}, "as": {}, "at": {},
	"be": {}, "by": {}, "for": {}, "from": {}, "has": {}, "he": {},
	"in": {}, "is": {}, "it": {}, "its": {}, "of": {}, "on": {},
	"or": {}, "that": {}, "the": {}, "to": {}, "was": {}, "were": {},
	"will": {}, "with": {}, "this": {}, "but": {}, "they": {},
	"have": {}, "had": {}, "what": {}, "when": {}, "where": {},
	"who": {}, "which": {}, "their": {}, "if": {}, "each": {},
	"do": {}, "not": {}, "no": {}, "so": {}, "can": {},
}

// Options selects which normalization passes Clean applies.
type Options struct {
	Lowercase       bool
	StripPunct      bool
	RemoveStopwords bool
	Stem            bool
}

// DefaultOptions enables every pass.
func DefaultOptions() Options {
	return Options{
		Lowercase:       true,
		StripPunct:      true,
		RemoveStopwords: true,
		Stem:            true,
	}
}

// Clean normalizes raw document text into a whitespace-joined token string
// ready for the term-frequency mapper.
func Clean(text string, opts Options) string {
	if opts.Lowercase {
		text = strings.ToLower(text)
	}

	var words []string
	if opts.StripPunct {
		words = strings.FieldsFunc(text, func(r rune) bool {
			return !unicode.IsLetter(r) && !unicode.IsDigit(r)
		})
	} else {
		words = strings.Fields(text)
	}

	kept := make([]string, 0, len(words))
	for _, word := range words {
		if opts.RemoveStopwords {
			if _, isStop := stopWords[word]; isStop {
				continue
			}
		}
		if opts.Stem {
			word = stem(word)
		}
		if word == "" {
			continue
		}
		kept = append(kept, word)
	}
	return strings.Join(kept, " ")
}

// stem applies a simple suffix-stripping stemmer to the given word.
func stem(word string) string {
	suffixes := []struct {
		suffix      string
		replacement string
		minLen      int
	}{
		{"ational", "ate", 2},
		{"tional", "tion", 2},
		{"encies", "ence", 2},
		{"ances", "ance", 2},
		{"ments", "ment", 2},
		{"izing", "ize", 2},
		{"ating", "ate", 2},
		{"iness", "y", 2},
		{"ously", "ous", 2},
		{"ively", "ive", 2},
		{"eness", "ene", 2},
		{"tion", "t", 3},
		{"sion", "s", 3},
		{"ying", "y", 2},
		{"ling", "l", 3},
		{"ies", "y", 2},
		{"ing", "", 3},
		{"ers", "er", 2},
		{"est", "", 3},
		{"ful", "", 3},
		{"ous", "", 3},
		{"ess", "", 3},
		{"ble", "", 3},
		{"ed", "", 3},
		{"er", "", 3},
		{"ly", "", 3},
		{"es", "", 3},
		{"ss", "ss", 2},
		{"s", "", 3},
	}
	for _, rule := range suffixes {
		if strings.HasSuffix(word, rule.suffix) {
			newWord := word[:len(word)-len(rule.suffix)] + rule.replacement
			if len(newWord) >= rule.minLen {
				return newWord
			}
		}
	}
	return word
}
