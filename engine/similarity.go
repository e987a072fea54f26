package engine

import (
	"math"
	"sort"
	"sync"

	"github.com/montanaflynn/stats"

	"segment-engine/models"
)

// DefaultSimilarityThreshold is the score at and above which a leaf pair
// gets flagged for merge/rename review.
const DefaultSimilarityThreshold = 0.85

// SimilarityOptions tunes the detector
type SimilarityOptions struct {
	// Threshold in [0,1]; <=0 falls back to DefaultSimilarityThreshold
	Threshold float64 `json:"threshold"`
	// SameStatusPairs also compares leaves sharing a parent status
	SameStatusPairs bool `json:"same_status_pairs"`
}

// SimilarityDetector flags leaf-segment pairs whose mean metric vectors sit
// close together. Purely advisory: it never touches the tree. Resolved pairs
// are remembered for the session so an ignored flag is not re-emitted.
type SimilarityDetector struct {
	mu       sync.Mutex
	resolved map[string]models.FlagStatus
}

// NewSimilarityDetector returns a detector with an empty session
func NewSimilarityDetector() *SimilarityDetector {
	return &SimilarityDetector{resolved: make(map[string]models.FlagStatus)}
}

// Resolve acknowledges an operator decision on a flagged pair. The pair key
// is canonical (lower segment id first), so argument order does not matter.
func (d *SimilarityDetector) Resolve(segmentA, segmentB string, status models.FlagStatus) {
	if segmentB < segmentA {
		segmentA, segmentB = segmentB, segmentA
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.resolved[segmentA+"|"+segmentB] = status
}

// Detect scores every eligible leaf pair and returns the flags at or above
// the threshold, sorted by pair key. Deterministic: identical trees produce
// identical flag lists, scores included. Vectors are
// {mean recency, mean frequency, mean ticket} min-max scaled across all
// non-empty leaves; the score is 1 minus the normalized Euclidean distance.
func (d *SimilarityDetector) Detect(tree *models.SegmentTree, opts SimilarityOptions) []models.SimilarityFlag {
	threshold := opts.Threshold
	if threshold <= 0 {
		threshold = DefaultSimilarityThreshold
	}

	leaves := nonEmptyLeaves(tree)
	if len(leaves) < 2 {
		return nil
	}
	vectors := scaledVectors(leaves)

	d.mu.Lock()
	resolved := make(map[string]models.FlagStatus, len(d.resolved))
	for k, v := range d.resolved {
		resolved[k] = v
	}
	d.mu.Unlock()

	var flags []models.SimilarityFlag
	for i := 0; i < len(leaves); i++ {
		for j := i + 1; j < len(leaves); j++ {
			a, b := leaves[i], leaves[j]
			if !opts.SameStatusPairs && a.Status == b.Status {
				continue
			}

			score := 1 - normalizedDistance(vectors[i], vectors[j])
			if score < threshold {
				continue
			}

			flag := models.SimilarityFlag{
				SegmentA:     a.SegmentID,
				SegmentAName: a.Name,
				SegmentB:     b.SegmentID,
				SegmentBName: b.Name,
				Score:        score,
				Status:       models.FlagPending,
			}
			if flag.SegmentB < flag.SegmentA {
				flag.SegmentA, flag.SegmentB = flag.SegmentB, flag.SegmentA
				flag.SegmentAName, flag.SegmentBName = flag.SegmentBName, flag.SegmentAName
			}
			if _, ok := resolved[flag.PairKey()]; ok {
				continue
			}
			flags = append(flags, flag)
		}
	}

	sort.Slice(flags, func(i, j int) bool { return flags[i].PairKey() < flags[j].PairKey() })
	return flags
}

func nonEmptyLeaves(tree *models.SegmentTree) []*models.Segment {
	var out []*models.Segment
	for _, leaf := range tree.Leaves() {
		if !leaf.Aggregates.IsEmpty {
			out = append(out, leaf)
		}
	}
	return out
}

// scaledVectors min-max scales each metric component across the leaves.
// A component with no spread contributes zero distance everywhere.
func scaledVectors(leaves []*models.Segment) [][3]float64 {
	var recency, frequency, ticket stats.Float64Data
	for _, l := range leaves {
		recency = append(recency, l.Aggregates.MeanRecencyDays)
		frequency = append(frequency, l.Aggregates.MeanFrequency)
		ticket = append(ticket, l.Aggregates.MeanTicket)
	}

	out := make([][3]float64, len(leaves))
	for i, l := range leaves {
		out[i] = [3]float64{
			minMaxScale(l.Aggregates.MeanRecencyDays, recency),
			minMaxScale(l.Aggregates.MeanFrequency, frequency),
			minMaxScale(l.Aggregates.MeanTicket, ticket),
		}
	}
	return out
}

func minMaxScale(v float64, data stats.Float64Data) float64 {
	lo, err := stats.Min(data)
	if err != nil {
		return 0
	}
	hi, err := stats.Max(data)
	if err != nil || hi == lo {
		return 0
	}
	return (v - lo) / (hi - lo)
}

// normalizedDistance is the Euclidean distance over the unit cube divided by
// √3, so it lands in [0,1].
func normalizedDistance(a, b [3]float64) float64 {
	var sum float64
	for k := 0; k < 3; k++ {
		d := a[k] - b[k]
		sum += d * d
	}
	return math.Sqrt(sum) / math.Sqrt(3)
}
