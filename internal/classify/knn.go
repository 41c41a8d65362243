package classify

import (
	"errors"
	"sort"

	"github.com/cjdd3b/car-datascience-toolkit/internal/similarity"
)

// Observation is one labeled point in the kNN training set.
type Observation struct {
	Vector []float64
	Class  string
}

// Metric scores the closeness of two vectors; higher means closer. The
// default is the normalized Euclidean similarity.
type Metric func(v1, v2 []float64) (float64, error)

// KNN classifies points by majority vote among their k nearest labeled
// neighbors. It is simple and versatile, but every classification scans
// the whole training set.
type KNN struct {
	data   []Observation
	metric Metric
}

// NewKNN creates a classifier over the given training data. metric may be
// nil, in which case similarity.Euclidean is used.
func NewKNN(data []Observation, metric Metric) *KNN {
	if metric == nil {
		metric = similarity.Euclidean
	}
	return &KNN{data: data, metric: metric}
}

// Classify finds the k observations closest to v and returns the class (or
// classes, on a tie) appearing most often among them.
func (c *KNN) Classify(v []float64, k int) ([]string, error) {
	if len(c.data) == 0 {
		return nil, errors.New("knn: empty training set")
	}
	if k < 1 {
		k = 3
	}
	if k > len(c.data) {
		k = len(c.data)
	}

	type scored struct {
		score float64
		class string
	}
	ranked := make([]scored, 0, len(c.data))
	for _, obs := range c.data {
		score, err := c.metric(v, obs.Vector)
		if err != nil {
			return nil, err
		}
		ranked = append(ranked, scored{score: score, class: obs.Class})
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].score > ranked[j].score
	})

	votes := make(map[string]int, k)
	for i := 0; i < k; i++ {
		votes[ranked[i].class]++
	}

	best := 0
	for _, count := range votes {
		if count > best {
			best = count
		}
	}
	winners := make([]string, 0, 1)
	for class, count := range votes {
		if count == best {
			winners = append(winners, class)
		}
	}
	sort.Strings(winners)
	return winners, nil
}
