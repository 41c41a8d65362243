package cluster

import (
	"math/rand"
	"testing"
)

// Two tight blobs far apart; any reasonable run separates them.
var blobRows = [][]float64{
	{1.0, 1.0},
	{1.1, 0.9},
	{0.9, 1.1},
	{1.0, 0.8},
	{9.0, 9.0},
	{9.1, 8.9},
	{8.9, 9.1},
	{9.0, 9.2},
}

func TestClusterAssignsEveryRowOnce(t *testing.T) {
	km, err := NewKMeans(blobRows, rand.New(rand.NewSource(1)))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	clusters, err := km.Cluster(2, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(clusters) != 2 {
		t.Fatalf("got %d clusters, want 2", len(clusters))
	}

	seen := make(map[int]bool)
	for _, members := range clusters {
		for _, id := range members {
			if seen[id] {
				t.Errorf("row %d assigned twice", id)
			}
			seen[id] = true
		}
	}
	if len(seen) != len(blobRows) {
		t.Errorf("%d rows assigned, want %d", len(seen), len(blobRows))
	}
}

func TestClusterSeparatesBlobs(t *testing.T) {
	// Random centroid starts can collapse a run, so accept any seed that
	// finds the obvious partition. Rows 0-3 form one blob, 4-7 the other.
	for seed := int64(1); seed <= 10; seed++ {
		clusters, err := clusterOnce(t, seed)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if separatesBlobs(clusters) {
			return
		}
	}
	t.Error("no seed separated two well-separated blobs")
}

func separatesBlobs(clusters [][]int) bool {
	for _, members := range clusters {
		var low, high int
		for _, id := range members {
			if id < 4 {
				low++
			} else {
				high++
			}
		}
		if low > 0 && high > 0 {
			return false
		}
	}
	return true
}

func TestClusterSingleCluster(t *testing.T) {
	km, err := NewKMeans(blobRows, rand.New(rand.NewSource(1)))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	clusters, err := km.Cluster(1, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(clusters) != 1 || len(clusters[0]) != len(blobRows) {
		t.Errorf("k=1 should hold every row, got %v", clusters)
	}
}

func TestNewKMeansErrors(t *testing.T) {
	if _, err := NewKMeans(nil, nil); err == nil {
		t.Error("empty dataset should error")
	}
	if _, err := NewKMeans([][]float64{{}}, nil); err == nil {
		t.Error("zero-dimensional rows should error")
	}
	if _, err := NewKMeans([][]float64{{1, 2}, {1}}, nil); err == nil {
		t.Error("inconsistent dimensions should error")
	}
}

func TestClusterBadK(t *testing.T) {
	km, err := NewKMeans(blobRows, rand.New(rand.NewSource(1)))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := km.Cluster(0, nil); err == nil {
		t.Error("k=0 should error")
	}
}

func TestClusterDeterministicWithSeed(t *testing.T) {
	first, err := clusterOnce(t, 42)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, err := clusterOnce(t, 42)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(first) != len(second) {
		t.Fatalf("cluster counts differ: %d vs %d", len(first), len(second))
	}
	for i := range first {
		if len(first[i]) != len(second[i]) {
			t.Fatalf("cluster %d sizes differ", i)
		}
		for j := range first[i] {
			if first[i][j] != second[i][j] {
				t.Fatalf("same seed produced different assignments")
			}
		}
	}
}

func clusterOnce(t *testing.T, seed int64) ([][]int, error) {
	t.Helper()
	km, err := NewKMeans(blobRows, rand.New(rand.NewSource(seed)))
	if err != nil {
		return nil, err
	}
	return km.Cluster(2, nil)
}
