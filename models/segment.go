package models

// SegmentStatus is the lifecycle stage of a customer segment. The dashboard
// historically mixed "risk" and "at-risk" across views; this is the single
// closed set every stage of the engine shares.
type SegmentStatus string

const (
	StatusIdeal     SegmentStatus = "ideal"
	StatusAtRisk    SegmentStatus = "at-risk"
	StatusLost      SegmentStatus = "lost"
	StatusPotential SegmentStatus = "potential"
)

// AllStatuses lists every status in display order
var AllStatuses = []SegmentStatus{StatusIdeal, StatusAtRisk, StatusLost, StatusPotential}

// ValidStatus reports whether s is a known lifecycle status
func ValidStatus(s SegmentStatus) bool {
	switch s {
	case StatusIdeal, StatusAtRisk, StatusLost, StatusPotential:
		return true
	}
	return false
}

// SegmentAggregates are the mean member metrics of a segment node.
// IsEmpty distinguishes an empty node from one whose means are genuinely zero.
type SegmentAggregates struct {
	MeanRecencyDays float64 `json:"mean_recency_days"`
	MeanFrequency   float64 `json:"mean_frequency"`
	MeanTicket      float64 `json:"mean_ticket"`
	TotalSpent      float64 `json:"total_spent"`
	IsEmpty         bool    `json:"is_empty"`
}

// Segment is one node of the two-level segment tree. Top-level nodes carry a
// status and no direct members; leaf nodes own a disjoint slice of customer
// ids. Percentages are against the whole classified population: PercentOfTotal
// keeps full precision for chained calculations, DisplayPercent is rounded
// for the UI.
type Segment struct {
	SegmentID      string            `json:"segment_id"`
	Name           string            `json:"name"`
	ParentID       string            `json:"parent_id,omitempty"` // "" for top-level nodes
	Status         SegmentStatus     `json:"status"`
	Members        []string          `json:"members,omitempty"` // Customer ids, sorted; leaves only
	MemberCount    int               `json:"member_count"`
	PercentOfTotal float64           `json:"percent_of_total"`
	DisplayPercent int               `json:"display_percent"`
	Aggregates     SegmentAggregates `json:"aggregates"`
	Children       []*Segment        `json:"children,omitempty"`
}

// IsLeaf reports whether the node has direct customer membership
func (s *Segment) IsLeaf() bool {
	return len(s.Children) == 0
}

// SegmentTree is the aggregated view over one classification run.
type SegmentTree struct {
	Roots           []*Segment `json:"roots"`
	TotalClassified int        `json:"total_classified"`
}

// Leaves returns every leaf node in tree order
func (t *SegmentTree) Leaves() []*Segment {
	var out []*Segment
	for _, root := range t.Roots {
		if root.IsLeaf() {
			out = append(out, root)
			continue
		}
		out = append(out, root.Children...)
	}
	return out
}

// FindLeafFor returns the leaf segment containing the customer, or nil
func (t *SegmentTree) FindLeafFor(customerID string) *Segment {
	for _, leaf := range t.Leaves() {
		for _, id := range leaf.Members {
			if id == customerID {
				return leaf
			}
		}
	}
	return nil
}
