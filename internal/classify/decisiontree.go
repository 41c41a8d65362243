// Package classify provides three small supervised classifiers: a decision
// tree built on entropy and information gain, a k-nearest-neighbors voter,
// and a naive Bayes model for categorical data. Each is self-contained and
// stateless between training runs.
package classify

import (
	"math"
)

// Row is one training example: feature values with the class label as the
// final element. Features may be categorical (string) or numeric (int or
// float64).
type Row []any

// DecisionNode is one node in a trained decision tree. Leaf nodes carry
// Results, the class counts of the training rows that reached them;
// interior nodes split on Col against Value.
type DecisionNode struct {
	Col         int
	Value       any
	Results     map[any]int
	TrueBranch  *DecisionNode
	FalseBranch *DecisionNode
}

// BuildTree recursively grows a decision tree from the training rows,
// splitting on whichever column value maximizes information gain and
// stopping when no split improves entropy.
func BuildTree(rows []Row) *DecisionNode {
	if len(rows) == 0 {
		return &DecisionNode{}
	}
	currentScore := entropy(rows)

	var (
		bestGain     float64
		bestCol      int
		bestValue    any
		bestTrueSet  []Row
		bestFalseSet []Row
	)

	columnCount := len(rows[0]) - 1
	for col := 0; col < columnCount; col++ {
		seen := make(map[any]struct{})
		for _, row := range rows {
			seen[row[col]] = struct{}{}
		}
		for value := range seen {
			set1, set2 := divideSet(rows, col, value)
			if len(set1) == 0 || len(set2) == 0 {
				continue
			}
			p := float64(len(set1)) / float64(len(rows))
			gain := currentScore - p*entropy(set1) - (1-p)*entropy(set2)
			if gain > bestGain {
				bestGain = gain
				bestCol = col
				bestValue = value
				bestTrueSet = set1
				bestFalseSet = set2
			}
		}
	}

	if bestGain > 0 {
		return &DecisionNode{
			Col:         bestCol,
			Value:       bestValue,
			TrueBranch:  BuildTree(bestTrueSet),
			FalseBranch: BuildTree(bestFalseSet),
		}
	}
	return &DecisionNode{Results: uniqueCounts(rows)}
}

// Classify walks the tree for an observation (features only, no label) and
// returns the class counts at the leaf it reaches.
func Classify(observation []any, tree *DecisionNode) map[any]int {
	if tree == nil {
		return nil
	}
	if tree.Results != nil {
		return tree.Results
	}
	branch := tree.FalseBranch
	if matchesSplit(observation[tree.Col], tree.Value) {
		branch = tree.TrueBranch
	}
	return Classify(observation, branch)
}

// matchesSplit applies the node's split test: >= for numeric values,
// equality for categorical ones.
func matchesSplit(v, splitValue any) bool {
	if vn, vok := toFloat(v); vok {
		if sn, sok := toFloat(splitValue); sok {
			return vn >= sn
		}
	}
	return v == splitValue
}

// divideSet partitions rows into those matching the split test on column
// col and those that do not.
func divideSet(rows []Row, col int, value any) (matched, unmatched []Row) {
	for _, row := range rows {
		if matchesSplit(row[col], value) {
			matched = append(matched, row)
		} else {
			unmatched = append(unmatched, row)
		}
	}
	return matched, unmatched
}

// uniqueCounts tallies the class labels (final column) of a row set.
func uniqueCounts(rows []Row) map[any]int {
	results := make(map[any]int)
	for _, row := range rows {
		results[row[len(row)-1]]++
	}
	return results
}

// entropy measures the label disorder of a row set in bits.
func entropy(rows []Row) float64 {
	results := uniqueCounts(rows)
	var ent float64
	for _, count := range results {
		p := float64(count) / float64(len(rows))
		ent -= p * math.Log2(p)
	}
	return ent
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case float64:
		return n, true
	case float32:
		return float64(n), true
	default:
		return 0, false
	}
}
