package taglab

import (
	"reflect"
	"testing"
)

func matchIDs(result MatchResult) (pairs [][2]int, dead []int, born []int) {
	for _, m := range result.Correspondences {
		pairs = append(pairs, [2]int{m.Source.ID, m.Target.ID})
	}
	for _, b := range result.Dead {
		dead = append(dead, b.ID)
	}
	for _, b := range result.Born {
		born = append(born, b.ID)
	}
	return pairs, dead, born
}

func TestAutoMatch(t *testing.T) {
	sources := []*Blob{
		squareBlob(t, 1, 0, 0, 10, "A"),
		squareBlob(t, 2, 50, 50, 10, "A"),
		squareBlob(t, 3, 200, 200, 10, "A"),
	}
	targets := []*Blob{
		squareBlob(t, 1, 1, 1, 10, "A"),
		squareBlob(t, 2, 50, 50, 10, "B"),
		squareBlob(t, 3, 100, 100, 5, "A"),
	}

	result := AutoMatch(sources, targets, DefaultMatchOptions())
	pairs, dead, born := matchIDs(result)
	if !reflect.DeepEqual(pairs, [][2]int{{1, 1}}) {
		t.Errorf("Expected pairs [[1 1]], got %v", pairs)
	}
	if !reflect.DeepEqual(dead, []int{2, 3}) {
		t.Errorf("Expected dead [2 3], got %v", dead)
	}
	if !reflect.DeepEqual(born, []int{2, 3}) {
		t.Errorf("Expected born [2 3], got %v", born)
	}

	// without the class constraint 2 matches 2
	options := DefaultMatchOptions()
	options.IgnoreClass = true
	pairs, dead, born = matchIDs(AutoMatch(sources, targets, options))
	if !reflect.DeepEqual(pairs, [][2]int{{1, 1}, {2, 2}}) {
		t.Errorf("Expected pairs [[1 1] [2 2]], got %v", pairs)
	}
	if !reflect.DeepEqual(dead, []int{3}) || !reflect.DeepEqual(born, []int{3}) {
		t.Errorf("Expected dead [3] and born [3], got %v and %v", dead, born)
	}
}

func TestAutoMatchDeterminism(t *testing.T) {
	sources := []*Blob{
		squareBlob(t, 1, 0, 0, 10, "A"),
		squareBlob(t, 2, 2, 0, 10, "A"),
		squareBlob(t, 3, 30, 30, 10, "A"),
		squareBlob(t, 4, 34, 30, 10, "A"),
	}
	targets := []*Blob{
		squareBlob(t, 1, 1, 0, 10, "A"),
		squareBlob(t, 2, 32, 30, 10, "A"),
		squareBlob(t, 3, 3, 0, 10, "A"),
	}
	reversed := func(blobs []*Blob) []*Blob {
		out := make([]*Blob, len(blobs))
		for i := range blobs {
			out[len(blobs)-1-i] = blobs[i]
		}
		return out
	}
	algorithms := []MatchingAlgorithm{MatchingAlgorithmGreedy, MatchingAlgorithmBestFirst, MatchingAlgorithmHungarian}
	for _, algorithm := range algorithms {
		options := DefaultMatchOptions()
		options.Algorithm = algorithm
		options.Workers = 2
		pairs, dead, born := matchIDs(AutoMatch(sources, targets, options))
		for i := 0; i < 5; i++ {
			p, d, b := matchIDs(AutoMatch(reversed(sources), reversed(targets), options))
			if !reflect.DeepEqual(p, pairs) || !reflect.DeepEqual(d, dead) || !reflect.DeepEqual(b, born) {
				t.Errorf("%s: results depend on input order: %v %v %v vs %v %v %v", algorithm, pairs, dead, born, p, d, b)
			}
		}
		if len(pairs)+len(dead) != len(sources) || len(pairs)+len(born) != len(targets) {
			t.Errorf("%s: partition is incomplete: %v %v %v", algorithm, pairs, dead, born)
		}
	}
}

func TestMatchingStrategies(t *testing.T) {
	// source 0 prefers target 1 a bit; source 1 can only take target 1
	scores := [][]float64{
		{0.5, 0.6},
		{notCandidate, 0.9},
	}
	sources := []*Blob{{ID: 1}, {ID: 2}}
	targets := []*Blob{{ID: 1}, {ID: 2}}

	greedy := performGreedyMatching(scores, 2, 2, 0.0)
	if !reflect.DeepEqual(greedy, [][2]int{{0, 1}}) {
		t.Errorf("Greedy: expected [[0 1]], got %v", greedy)
	}

	bestFirst := performBestFirstMatching(scores, sources, targets, 0.0)
	if !reflect.DeepEqual(bestFirst, [][2]int{{1, 1}, {0, 0}}) {
		t.Errorf("BestFirst: expected [[1 1] [0 0]], got %v", bestFirst)
	}

	optimal := performHungarianMatching(scores, 2, 2, 0.0)
	got := make(map[[2]int]bool)
	for _, pair := range optimal {
		got[pair] = true
	}
	if len(optimal) != 2 || !got[[2]int{0, 0}] || !got[[2]int{1, 1}] {
		t.Errorf("Hungarian: expected {0,0} and {1,1}, got %v", optimal)
	}
}

func TestGreedyTieBreak(t *testing.T) {
	scores := [][]float64{
		{0.7, 0.7},
		{0.7, 0.7},
	}
	matches := performGreedyMatching(scores, 2, 2, 0.0)
	if !reflect.DeepEqual(matches, [][2]int{{0, 0}, {1, 1}}) {
		t.Errorf("Expected [[0 0] [1 1]], got %v", matches)
	}
}

func TestParseMatchingAlgorithm(t *testing.T) {
	for _, algorithm := range []MatchingAlgorithm{MatchingAlgorithmGreedy, MatchingAlgorithmBestFirst, MatchingAlgorithmHungarian} {
		parsed, err := ParseMatchingAlgorithm(algorithm.String())
		if err != nil {
			t.Errorf("Unexpected error: %v", err)
		}
		if parsed != algorithm {
			t.Errorf("Expected %s, got %s", algorithm, parsed)
		}
	}
	if _, err := ParseMatchingAlgorithm("random"); err == nil {
		t.Errorf("Expected error for unknown algorithm")
	}
}
