// Package cluster implements k-means clustering over float64 vectors.
//
// Centroids start at random positions within the per-dimension bounds of
// the dataset, points are assigned to their nearest centroid, and the
// centroids migrate to the mean of their members until the assignment
// stabilizes.
package cluster

import (
	"errors"
	"math/rand"

	"github.com/cjdd3b/car-datascience-toolkit/internal/similarity"
)

// maxIterations bounds the assign/recompute loop for datasets that never
// quite settle.
const maxIterations = 100

// Distance measures how far apart two vectors are; lower means closer.
type Distance func(v1, v2 []float64) (float64, error)

// KMeans clusters a fixed dataset of uniform-width rows.
type KMeans struct {
	rows   [][]float64
	ranges [][2]float64
	rng    *rand.Rand
}

// NewKMeans prepares a clusterer for the given rows. All rows must share
// the same dimensionality.
func NewKMeans(rows [][]float64, rng *rand.Rand) (*KMeans, error) {
	if len(rows) == 0 {
		return nil, errors.New("kmeans: empty dataset")
	}
	dims := len(rows[0])
	if dims == 0 {
		return nil, errors.New("kmeans: zero-dimensional rows")
	}
	ranges := make([][2]float64, dims)
	for i := range ranges {
		ranges[i] = [2]float64{rows[0][i], rows[0][i]}
	}
	for _, row := range rows {
		if len(row) != dims {
			return nil, errors.New("kmeans: inconsistent row dimensions")
		}
		for i, v := range row {
			if v < ranges[i][0] {
				ranges[i][0] = v
			}
			if v > ranges[i][1] {
				ranges[i][1] = v
			}
		}
	}
	if rng == nil {
		rng = rand.New(rand.NewSource(rand.Int63()))
	}
	return &KMeans{rows: rows, ranges: ranges, rng: rng}, nil
}

// Cluster partitions the dataset into k clusters and returns, per cluster,
// the indices of its member rows. distance may be nil, in which case raw
// Euclidean distance is used. Choosing k is the caller's problem; a common
// starting point is sqrt(n/2).
func (km *KMeans) Cluster(k int, distance Distance) ([][]int, error) {
	if k < 1 {
		return nil, errors.New("kmeans: k must be positive")
	}
	if distance == nil {
		distance = similarity.EuclideanDistance
	}

	dims := len(km.rows[0])
	centroids := make([][]float64, k)
	for j := range centroids {
		c := make([]float64, dims)
		for i := range c {
			c[i] = km.rng.Float64()*(km.ranges[i][1]-km.ranges[i][0]) + km.ranges[i][0]
		}
		centroids[j] = c
	}

	var last [][]int
	for iter := 0; iter < maxIterations; iter++ {
		matches := make([][]int, k)

		for rowID, row := range km.rows {
			best := 0
			bestDist, err := distance(centroids[0], row)
			if err != nil {
				return nil, err
			}
			for i := 1; i < k; i++ {
				d, err := distance(centroids[i], row)
				if err != nil {
					return nil, err
				}
				if d < bestDist {
					best = i
					bestDist = d
				}
			}
			matches[best] = append(matches[best], rowID)
		}

		if sameAssignment(matches, last) {
			break
		}
		last = matches

		for i := 0; i < k; i++ {
			if len(matches[i]) == 0 {
				continue
			}
			avgs := make([]float64, dims)
			for _, rowID := range matches[i] {
				for m, v := range km.rows[rowID] {
					avgs[m] += v
				}
			}
			for j := range avgs {
				avgs[j] /= float64(len(matches[i]))
			}
			centroids[i] = avgs
		}
	}
	return last, nil
}

func sameAssignment(a, b [][]int) bool {
	if b == nil || len(a) != len(b) {
		return false
	}
	for i := range a {
		if len(a[i]) != len(b[i]) {
			return false
		}
		for j := range a[i] {
			if a[i][j] != b[i][j] {
				return false
			}
		}
	}
	return true
}
