package models

import "time"

// ImpactStatus describes how much of a coverage cell recent campaigns reached
type ImpactStatus string

const (
	ImpactFull    ImpactStatus = "impacted"     // Every member targeted within the freshness window
	ImpactNone    ImpactStatus = "not-impacted" // No member targeted
	ImpactPartial ImpactStatus = "partial"
)

// CoverageCell is one cell of the coverage matrix: the customers falling in
// both dimension buckets, plus campaign-impact state derived from the
// campaign log.
type CoverageCell struct {
	XValue            string       `json:"x_value"`
	YValue            string       `json:"y_value"`
	Members           []string     `json:"members,omitempty"` // Customer ids, sorted
	MemberCount       int          `json:"member_count"`
	CampaignCount     int          `json:"campaign_count"` // Distinct campaigns that targeted this cell
	LastCampaignAt    *time.Time   `json:"last_campaign_at,omitempty"`
	ImpactStatus      ImpactStatus `json:"impact_status"`
	ImpactedMembers   int          `json:"impacted_members"`
	UnimpactedMembers int          `json:"unimpacted_members"`
}

// CoverageMatrix is the full cross-tabulation over two dimensions.
// Customers missing a value on either dimension are excluded from the grid by
// policy and reported here so the UI can surface incomplete coverage.
type CoverageMatrix struct {
	XDimension     string           `json:"x_dimension"`
	YDimension     string           `json:"y_dimension"`
	XLabels        []string         `json:"x_labels"`
	YLabels        []string         `json:"y_labels"`
	Cells          [][]CoverageCell `json:"cells"` // Indexed [y][x]
	IncludedCount  int              `json:"included_count"`
	ExcludedCount  int              `json:"excluded_count"`
	ExcludedIDs    []string         `json:"excluded_ids,omitempty"`
	EvaluationTime time.Time        `json:"evaluation_time"`
}

// Cell returns the cell at the given bucket labels, or nil
func (m *CoverageMatrix) Cell(xValue, yValue string) *CoverageCell {
	for yi, yl := range m.YLabels {
		if yl != yValue {
			continue
		}
		for xi, xl := range m.XLabels {
			if xl == xValue {
				return &m.Cells[yi][xi]
			}
		}
	}
	return nil
}
