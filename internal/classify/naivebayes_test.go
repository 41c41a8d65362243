package classify

import (
	"math"
	"testing"
)

// Label first, then weather features: outlook, temperature, windy.
var bayesData = [][]string{
	{"play", "sunny", "warm", "no"},
	{"play", "sunny", "warm", "yes"},
	{"play", "overcast", "warm", "no"},
	{"play", "overcast", "cool", "no"},
	{"stay", "rainy", "cool", "yes"},
	{"stay", "rainy", "cool", "no"},
	{"stay", "overcast", "cool", "yes"},
	{"stay", "rainy", "warm", "yes"},
}

func TestTrainNaiveBayesPriors(t *testing.T) {
	nb, err := TrainNaiveBayes(bayesData)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := nb.prior["play"]; math.Abs(got-0.5) > 1e-12 {
		t.Errorf("prior[play] = %v, want 0.5", got)
	}
	if got := nb.prior["stay"]; math.Abs(got-0.5) > 1e-12 {
		t.Errorf("prior[stay] = %v, want 0.5", got)
	}
}

func TestNaiveBayesClassify(t *testing.T) {
	nb, err := TrainNaiveBayes(bayesData)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	tests := []struct {
		name string
		obs  []string
		want string
	}{
		{"clearly play", []string{"sunny", "warm", "no"}, "play"},
		{"clearly stay", []string{"rainy", "cool", "yes"}, "stay"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			class, prob, err := nb.Classify(tt.obs)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if class != tt.want {
				t.Errorf("class = %q, want %q", class, tt.want)
			}
			if prob <= 0 {
				t.Errorf("probability = %v, want positive", prob)
			}
		})
	}
}

func TestNaiveBayesUnseenValueUsesFloor(t *testing.T) {
	nb, err := TrainNaiveBayes(bayesData)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// "snowy" never appears in training; the floor keeps the product from
	// collapsing to zero.
	class, prob, err := nb.Classify([]string{"snowy", "warm", "no"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if class == "" {
		t.Error("expected a class despite the unseen value")
	}
	if prob <= 0 {
		t.Errorf("probability = %v, want positive", prob)
	}
}

func TestNaiveBayesErrors(t *testing.T) {
	if _, err := TrainNaiveBayes(nil); err == nil {
		t.Error("empty training set should error")
	}
	if _, err := TrainNaiveBayes([][]string{{"label"}}); err == nil {
		t.Error("rows without features should error")
	}
	if _, err := TrainNaiveBayes([][]string{
		{"a", "x", "y"},
		{"b", "x"},
	}); err == nil {
		t.Error("inconsistent row widths should error")
	}

	nb, err := TrainNaiveBayes(bayesData)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, _, err := nb.Classify([]string{"sunny"}); err == nil {
		t.Error("observation width mismatch should error")
	}
}
