package classify

import (
	"errors"
	"sort"
)

// floorProbability stands in for a conditional probability of zero, which
// would otherwise wipe out every other factor in the product.
const floorProbability = 1e-7

// NaiveBayes is a categorical naive Bayes classifier. Training rows carry
// the class label first, followed by the feature values.
type NaiveBayes struct {
	prior       map[string]float64
	conditional map[string][]map[string]float64
	featureLen  int
}

// TrainNaiveBayes computes prior and conditional probabilities from the
// training set. Each row is a class label followed by categorical feature
// values; all rows must have the same width.
func TrainNaiveBayes(data [][]string) (*NaiveBayes, error) {
	if len(data) == 0 {
		return nil, errors.New("naive bayes: empty training set")
	}
	featureLen := len(data[0]) - 1
	if featureLen < 1 {
		return nil, errors.New("naive bayes: rows must have a label and at least one feature")
	}

	classes := make(map[string]int)
	counts := make(map[string][]map[string]int)
	for _, row := range data {
		if len(row) != featureLen+1 {
			return nil, errors.New("naive bayes: inconsistent row width")
		}
		label := row[0]
		classes[label]++
		if counts[label] == nil {
			cols := make([]map[string]int, featureLen)
			for i := range cols {
				cols[i] = make(map[string]int)
			}
			counts[label] = cols
		}
		for i, value := range row[1:] {
			counts[label][i][value]++
		}
	}

	nb := &NaiveBayes{
		prior:       make(map[string]float64, len(classes)),
		conditional: make(map[string][]map[string]float64, len(classes)),
		featureLen:  featureLen,
	}
	total := float64(len(data))
	for label, count := range classes {
		nb.prior[label] = float64(count) / total

		cols := make([]map[string]float64, featureLen)
		for i, valueCounts := range counts[label] {
			probs := make(map[string]float64, len(valueCounts))
			for value, n := range valueCounts {
				probs[value] = float64(n) / float64(count)
			}
			cols[i] = probs
		}
		nb.conditional[label] = cols
	}
	return nb, nil
}

// Classify returns the most probable class for an observation (feature
// values only) along with its unnormalized probability.
func (nb *NaiveBayes) Classify(observation []string) (string, float64, error) {
	if len(observation) != nb.featureLen {
		return "", 0, errors.New("naive bayes: observation width does not match training data")
	}

	type scored struct {
		class string
		prob  float64
	}
	results := make([]scored, 0, len(nb.conditional))
	for label, cols := range nb.conditional {
		prob := 1.0
		for i, value := range observation {
			colProb := floorProbability
			if p, ok := cols[i][value]; ok {
				colProb = p
			}
			prob *= colProb
		}
		prob *= nb.prior[label]
		results = append(results, scored{class: label, prob: prob})
	}

	sort.Slice(results, func(i, j int) bool {
		if results[i].prob != results[j].prob {
			return results[i].prob > results[j].prob
		}
		return results[i].class < results[j].class
	})
	return results[0].class, results[0].prob, nil
}
