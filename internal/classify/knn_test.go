package classify

import (
	"testing"

	"github.com/cjdd3b/car-datascience-toolkit/internal/similarity"
)

var knnData = []Observation{
	{Vector: []float64{1, 1}, Class: "red"},
	{Vector: []float64{1, 2}, Class: "red"},
	{Vector: []float64{2, 1}, Class: "red"},
	{Vector: []float64{8, 8}, Class: "blue"},
	{Vector: []float64{8, 9}, Class: "blue"},
	{Vector: []float64{9, 8}, Class: "blue"},
}

func TestKNNClassify(t *testing.T) {
	c := NewKNN(knnData, nil)

	tests := []struct {
		name string
		v    []float64
		want string
	}{
		{"deep in red", []float64{1, 1}, "red"},
		{"deep in blue", []float64{9, 9}, "blue"},
		{"near red edge", []float64{3, 2}, "red"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := c.Classify(tt.v, 3)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if len(got) != 1 || got[0] != tt.want {
				t.Errorf("got %v, want [%s]", got, tt.want)
			}
		})
	}
}

func TestKNNTieReportsBothClasses(t *testing.T) {
	data := []Observation{
		{Vector: []float64{0, 0}, Class: "left"},
		{Vector: []float64{10, 0}, Class: "right"},
	}
	c := NewKNN(data, nil)

	got, err := c.Classify([]float64{5, 0}, 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 2 || got[0] != "left" || got[1] != "right" {
		t.Errorf("got %v, want [left right]", got)
	}
}

func TestKNNClampsK(t *testing.T) {
	c := NewKNN(knnData, nil)
	if _, err := c.Classify([]float64{1, 1}, 100); err != nil {
		t.Errorf("oversized k should be clamped, got error %v", err)
	}
	if _, err := c.Classify([]float64{1, 1}, 0); err != nil {
		t.Errorf("non-positive k should fall back to the default, got error %v", err)
	}
}

func TestKNNEmptyTrainingSet(t *testing.T) {
	c := NewKNN(nil, nil)
	if _, err := c.Classify([]float64{1, 1}, 3); err == nil {
		t.Error("expected an error for an empty training set")
	}
}

func TestKNNCustomMetric(t *testing.T) {
	c := NewKNN(knnData, func(v1, v2 []float64) (float64, error) {
		return similarity.Cosine(v1, v2)
	})
	got, err := c.Classify([]float64{8, 8}, 3)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) == 0 {
		t.Fatal("no classes returned")
	}
}

func TestKNNMetricError(t *testing.T) {
	c := NewKNN(knnData, nil)
	if _, err := c.Classify([]float64{1}, 3); err == nil {
		t.Error("dimension mismatch should surface the metric's error")
	}
}
