package models

// FlagStatus is the operator decision state of a similarity flag
type FlagStatus string

const (
	FlagPending FlagStatus = "pending"
	FlagMerged  FlagStatus = "merged"
	FlagRenamed FlagStatus = "renamed"
	FlagIgnored FlagStatus = "ignored"
)

// SimilarityFlag marks a pair of leaf segments whose metric vectors are close
// enough to suggest a merge or rename. Flags are advisory: the engine never
// mutates the tree, the operator acts on them through the UI. SegmentA sorts
// before SegmentB so a pair has one canonical key.
type SimilarityFlag struct {
	SegmentA     string     `json:"segment_a"`
	SegmentAName string     `json:"segment_a_name"`
	SegmentB     string     `json:"segment_b"`
	SegmentBName string     `json:"segment_b_name"`
	Score        float64    `json:"score"` // 0..1
	Status       FlagStatus `json:"status"`
}

// PairKey returns the canonical identifier for the flagged pair
func (f SimilarityFlag) PairKey() string {
	return f.SegmentA + "|" + f.SegmentB
}
