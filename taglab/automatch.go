package taglab

import (
	"container/heap"
	"fmt"
	"runtime"
	"sort"

	"github.com/arthurkushman/go-hungarian"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// MatchingAlgorithm is for algorithm type for matching source blobs to target blobs
type MatchingAlgorithm uint16

const (
	// MatchingAlgorithmGreedy visits source blobs by ascending id, each takes its best free target
	MatchingAlgorithmGreedy MatchingAlgorithm = iota
	// MatchingAlgorithmBestFirst consumes pairs from the globally highest overlap down
	MatchingAlgorithmBestFirst
	// MatchingAlgorithmHungarian uses the Hungarian algorithm (Kuhn-Munkres) for optimal assignment
	MatchingAlgorithmHungarian
)

const (
	// DefaultBBoxThreshold is the minimum bounding box IoU for two blobs to be match candidates
	DefaultBBoxThreshold = 0.1
	// notCandidate marks a pair excluded by the bbox or class constraint
	notCandidate = -1.0
)

// String returns algorithm's configuration name
func (algorithm MatchingAlgorithm) String() string {
	switch algorithm {
	case MatchingAlgorithmGreedy:
		return "greedy"
	case MatchingAlgorithmBestFirst:
		return "best_first"
	case MatchingAlgorithmHungarian:
		return "hungarian"
	default:
		return fmt.Sprintf("MatchingAlgorithm(%d)", uint16(algorithm))
	}
}

// ParseMatchingAlgorithm converts configuration name into algorithm. Empty name means greedy.
func ParseMatchingAlgorithm(name string) (MatchingAlgorithm, error) {
	switch name {
	case "", "greedy":
		return MatchingAlgorithmGreedy, nil
	case "best_first":
		return MatchingAlgorithmBestFirst, nil
	case "hungarian":
		return MatchingAlgorithmHungarian, nil
	default:
		return MatchingAlgorithmGreedy, errors.Errorf("unknown matching algorithm '%s'", name)
	}
}

// MatchOptions configures AutoMatch
type MatchOptions struct {
	// Bounding boxes must overlap with IoU strictly above this value
	BBoxThreshold float64
	// Mask overlap ratio must be strictly above this value
	MinOverlap float64
	// IgnoreClass drops the same-class constraint (live/dead specimens matching)
	IgnoreClass bool
	Algorithm   MatchingAlgorithm
	// Workers bounds parallel scoring. Zero means GOMAXPROCS
	Workers int
}

// DefaultMatchOptions returns options used by the project when nothing else is configured
func DefaultMatchOptions() MatchOptions {
	return MatchOptions{
		BBoxThreshold: DefaultBBoxThreshold,
		MinOverlap:    0.0,
		IgnoreClass:   false,
		Algorithm:     MatchingAlgorithmGreedy,
		Workers:       0,
	}
}

// Match is a matched source/target pair
type Match struct {
	Source  *Blob
	Target  *Blob
	Overlap float64
}

// MatchResult partitions the two blob sets
type MatchResult struct {
	Correspondences []Match
	// Dead are source blobs without a match, Born are target blobs without a match
	Dead []*Blob
	Born []*Blob
}

// AutoMatch delegates to AutoMatch. The table itself is not modified.
func (table *CorrespondenceTable) AutoMatch(sourceBlobs, targetBlobs []*Blob, options MatchOptions) MatchResult {
	return AutoMatch(sourceBlobs, targetBlobs, options)
}

func sortBlobsByID(blobs []*Blob) []*Blob {
	out := append([]*Blob(nil), blobs...)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].ID < out[j].ID
	})
	return out
}

// AutoMatch matches two unordered blob sets by geometric similarity. Both sets must be
// expressed in the same units. The outcome depends only on the input sets, not on their order.
func AutoMatch(sourceBlobs, targetBlobs []*Blob, options MatchOptions) MatchResult {
	sources := sortBlobsByID(sourceBlobs)
	targets := sortBlobsByID(targetBlobs)

	scores := scoreMatrix(sources, targets, options)

	var pairs [][2]int
	switch options.Algorithm {
	case MatchingAlgorithmHungarian:
		pairs = performHungarianMatching(scores, len(sources), len(targets), options.MinOverlap)
	case MatchingAlgorithmBestFirst:
		pairs = performBestFirstMatching(scores, sources, targets, options.MinOverlap)
	default:
		pairs = performGreedyMatching(scores, len(sources), len(targets), options.MinOverlap)
	}

	matchedSources := make(map[int]struct{}, len(pairs))
	matchedTargets := make(map[int]struct{}, len(pairs))
	result := MatchResult{
		Correspondences: make([]Match, 0, len(pairs)),
		Dead:            make([]*Blob, 0),
		Born:            make([]*Blob, 0),
	}
	sort.Slice(pairs, func(i, j int) bool {
		if pairs[i][0] != pairs[j][0] {
			return pairs[i][0] < pairs[j][0]
		}
		return pairs[i][1] < pairs[j][1]
	})
	for _, pair := range pairs {
		matchedSources[pair[0]] = struct{}{}
		matchedTargets[pair[1]] = struct{}{}
		result.Correspondences = append(result.Correspondences, Match{
			Source:  sources[pair[0]],
			Target:  targets[pair[1]],
			Overlap: scores[pair[0]][pair[1]],
		})
	}
	for i, blob := range sources {
		if _, ok := matchedSources[i]; !ok {
			result.Dead = append(result.Dead, blob)
		}
	}
	for j, blob := range targets {
		if _, ok := matchedTargets[j]; !ok {
			result.Born = append(result.Born, blob)
		}
	}
	return result
}

// scoreMatrix evaluates every source/target pair. Rows are independent and computed in parallel.
func scoreMatrix(sources, targets []*Blob, options MatchOptions) [][]float64 {
	scores := make([][]float64, len(sources))
	workers := options.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	g := new(errgroup.Group)
	g.SetLimit(workers)
	for i := range sources {
		g.Go(func() error {
			row := make([]float64, len(targets))
			for j := range targets {
				row[j] = pairScore(sources[i], targets[j], options)
			}
			scores[i] = row
			return nil
		})
	}
	// scoring never fails
	_ = g.Wait()
	return scores
}

func pairScore(source, target *Blob, options MatchOptions) float64 {
	if !options.IgnoreClass && source.ClassName != target.ClassName {
		return notCandidate
	}
	if IoU(source.BBox, target.BBox) <= options.BBoxThreshold {
		return notCandidate
	}
	return source.OverlapRatio(target)
}

// performGreedyMatching is helper function for greedy matching.
// Sources are visited in the given order; ties go to the lower target index.
func performGreedyMatching(scores [][]float64, numSources, numTargets int, minOverlap float64) [][2]int {
	matches := make([][2]int, 0)
	if numSources == 0 || numTargets == 0 {
		return matches
	}
	consumed := make(map[int]struct{})
	for i := 0; i < numSources; i++ {
		bestScore := minOverlap
		bestTarget := -1
		for j := 0; j < numTargets; j++ {
			if _, found := consumed[j]; found {
				continue
			}
			if scores[i][j] > bestScore {
				bestScore = scores[i][j]
				bestTarget = j
			}
		}
		if bestTarget != -1 {
			matches = append(matches, [2]int{i, bestTarget})
			consumed[bestTarget] = struct{}{}
		}
	}
	return matches
}

// performHungarianMatching is helper function to perform optimal assignment over candidate scores
func performHungarianMatching(scores [][]float64, numSources, numTargets int, minOverlap float64) [][2]int {
	if numSources == 0 || numTargets == 0 {
		return [][2]int{}
	}
	// Rectangular matrix - pad to make it square, non candidates count as zero
	paddedSize := maxInt(numSources, numTargets)
	paddedMatrix := make([][]float64, paddedSize)
	for i := 0; i < paddedSize; i++ {
		paddedMatrix[i] = make([]float64, paddedSize)
	}
	for i := 0; i < numSources; i++ {
		for j := 0; j < numTargets; j++ {
			if scores[i][j] > 0 {
				paddedMatrix[i][j] = scores[i][j]
			}
		}
	}
	assignmentsMap := hungarian.SolveMax(paddedMatrix)
	matches := make([][2]int, 0)
	for sourceIndex, rowMap := range assignmentsMap {
		for targetIndex := range rowMap {
			if sourceIndex >= numSources || targetIndex >= numTargets {
				continue
			}
			if scores[sourceIndex][targetIndex] <= minOverlap {
				continue
			}
			matches = append(matches, [2]int{sourceIndex, targetIndex})
		}
	}
	if len(matches) == 0 && len(assignmentsMap) == 0 {
		log.WithFields(log.Fields{"sources": numSources, "targets": numTargets}).Debug("Hungarian solver returned no assignment")
	}
	return matches
}

// scoredPair holds a candidate pair for the best-first priority queue
type scoredPair struct {
	score    float64
	sourceID int
	targetID int
	source   int
	target   int
}

// pairHeap implements heap.Interface: highest score first, then lowest source id, then lowest target id
type pairHeap []*scoredPair

func (h pairHeap) Len() int { return len(h) }

func (h pairHeap) Less(i, j int) bool {
	if h[i].score != h[j].score {
		return h[i].score > h[j].score
	}
	if h[i].sourceID != h[j].sourceID {
		return h[i].sourceID < h[j].sourceID
	}
	return h[i].targetID < h[j].targetID
}

func (h pairHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *pairHeap) Push(x any) {
	*h = append(*h, x.(*scoredPair))
}

func (h *pairHeap) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	old[n-1] = nil
	*h = old[0 : n-1]
	return item
}

// performBestFirstMatching pops pairs from highest overlap down, skipping already reserved blobs
func performBestFirstMatching(scores [][]float64, sources, targets []*Blob, minOverlap float64) [][2]int {
	pq := &pairHeap{}
	heap.Init(pq)
	for i := range sources {
		for j := range targets {
			if scores[i][j] <= minOverlap {
				continue
			}
			heap.Push(pq, &scoredPair{
				score:    scores[i][j],
				sourceID: sources[i].ID,
				targetID: targets[j].ID,
				source:   i,
				target:   j,
			})
		}
	}
	// Prevent double use of blobs
	reservedSources := make(map[int]struct{})
	reservedTargets := make(map[int]struct{})
	matches := make([][2]int, 0)
	for pq.Len() > 0 {
		item := heap.Pop(pq).(*scoredPair)
		if _, ok := reservedSources[item.source]; ok {
			continue
		}
		if _, ok := reservedTargets[item.target]; ok {
			continue
		}
		reservedSources[item.source] = struct{}{}
		reservedTargets[item.target] = struct{}{}
		matches = append(matches, [2]int{item.source, item.target})
	}
	return matches
}
