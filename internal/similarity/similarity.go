// Package similarity implements five common similarity and distance
// metrics used across the toolkit's data-mining utilities. Each metric
// takes two vectors, representing points in n-dimensional space.
package similarity

import (
	"errors"
	"math"
)

// ErrLengthMismatch is returned by metrics that require both vectors to
// have the same number of dimensions.
var ErrLengthMismatch = errors.New("vectors must be the same length")

// Euclidean returns a similarity score in (0, 1] derived from Euclidean
// distance: 1 / (1 + distance). Identical vectors score 1. Note that
// Euclidean distance loses discriminating power as dimensionality grows.
func Euclidean(v1, v2 []float64) (float64, error) {
	if len(v1) != len(v2) {
		return 0, ErrLengthMismatch
	}
	var sum float64
	for i := range v1 {
		d := v1[i] - v2[i]
		sum += d * d
	}
	return 1 / (1 + math.Sqrt(sum)), nil
}

// EuclideanDistance returns the unnormalized "as the crow flies" distance
// between two vectors. Clustering wants the raw distance, not the
// normalized score.
func EuclideanDistance(v1, v2 []float64) (float64, error) {
	if len(v1) != len(v2) {
		return 0, ErrLengthMismatch
	}
	var sum float64
	for i := range v1 {
		d := v1[i] - v2[i]
		sum += d * d
	}
	return math.Sqrt(sum), nil
}

// Jaccard returns the Jaccard distance between the sets of values in the
// two vectors: 1 - |intersection| / |union|. Vector order and repetition
// are ignored.
func Jaccard(v1, v2 []float64) float64 {
	set1 := toSet(v1)
	set2 := toSet(v2)

	union := make(map[float64]struct{}, len(set1)+len(set2))
	intersection := 0
	for v := range set1 {
		union[v] = struct{}{}
		if _, ok := set2[v]; ok {
			intersection++
		}
	}
	for v := range set2 {
		union[v] = struct{}{}
	}
	if len(union) == 0 {
		return 0
	}
	return 1 - float64(intersection)/float64(len(union))
}

// Hamming returns the number of positions at which the two vectors differ.
// It is order-sensitive, which makes it useful for comparing sequences and
// binary feature vectors.
func Hamming(v1, v2 []float64) (int, error) {
	if len(v1) != len(v2) {
		return 0, ErrLengthMismatch
	}
	count := 0
	for i := range v1 {
		if v1[i] != v2[i] {
			count++
		}
	}
	return count, nil
}

// Pearson returns the Pearson product-moment correlation between the two
// vectors, in [-1, 1]. Zero denominator (a constant vector) yields 0.
func Pearson(v1, v2 []float64) (float64, error) {
	if len(v1) != len(v2) {
		return 0, ErrLengthMismatch
	}
	n := float64(len(v1))
	if n == 0 {
		return 0, nil
	}

	var sumX, sumY, sumXSq, sumYSq, pSum float64
	for i := range v1 {
		sumX += v1[i]
		sumY += v2[i]
		sumXSq += v1[i] * v1[i]
		sumYSq += v2[i] * v2[i]
		pSum += v1[i] * v2[i]
	}

	num := pSum - sumX*sumY/n
	den := math.Sqrt((sumXSq - sumX*sumX/n) * (sumYSq - sumY*sumY/n))
	if den == 0 {
		return 0, nil
	}
	return num / den, nil
}

// Cosine returns the cosine of the angle between the two vectors, in
// [-1, 1]. It ignores magnitude, which is why it pairs well with TF-IDF
// vectors in text mining. A zero vector yields 0.
func Cosine(v1, v2 []float64) (float64, error) {
	if len(v1) != len(v2) {
		return 0, ErrLengthMismatch
	}
	var dot, norm1, norm2 float64
	for i := range v1 {
		dot += v1[i] * v2[i]
		norm1 += v1[i] * v1[i]
		norm2 += v2[i] * v2[i]
	}
	if norm1 == 0 || norm2 == 0 {
		return 0, nil
	}
	return dot / (math.Sqrt(norm1) * math.Sqrt(norm2)), nil
}

func toSet(v []float64) map[float64]struct{} {
	set := make(map[float64]struct{}, len(v))
	for _, x := range v {
		set[x] = struct{}{}
	}
	return set
}
