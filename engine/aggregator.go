package engine

import (
	"fmt"
	"math"
	"sort"

	"github.com/montanaflynn/stats"

	"segment-engine/models"
)

// LeafDef refines a lifecycle status into one named sub-segment. Bounds are
// declarative like Rule bounds; all set bounds must hold, an empty predicate
// matches every member. The leaf set under a status must be collectively
// exhaustive and mutually exclusive over that status's customers; the build
// fails otherwise, it never drops anyone silently.
type LeafDef struct {
	ID   string `json:"id"`
	Name string `json:"name"`

	FrequencyAtLeast  *float64 `json:"frequency_at_least,omitempty"`
	FrequencyBelow    *float64 `json:"frequency_below,omitempty"`
	MonetaryAtLeast   *float64 `json:"monetary_at_least,omitempty"`
	MonetaryBelow     *float64 `json:"monetary_below,omitempty"`
	RecencyOverDays   *int     `json:"recency_over_days,omitempty"`
	RecencyAtMostDays *int     `json:"recency_at_most_days,omitempty"`
	OrderCountOver    *int     `json:"order_count_over,omitempty"`
	OrderCountAtMost  *int     `json:"order_count_at_most,omitempty"`
}

// Matches reports whether every set bound holds for the metrics
func (d LeafDef) Matches(m models.CustomerMetrics) bool {
	if d.FrequencyAtLeast != nil && m.Frequency < *d.FrequencyAtLeast {
		return false
	}
	if d.FrequencyBelow != nil && m.Frequency >= *d.FrequencyBelow {
		return false
	}
	if d.MonetaryAtLeast != nil && m.Monetary < *d.MonetaryAtLeast {
		return false
	}
	if d.MonetaryBelow != nil && m.Monetary >= *d.MonetaryBelow {
		return false
	}
	if d.RecencyOverDays != nil && m.RecencyDays <= *d.RecencyOverDays {
		return false
	}
	if d.RecencyAtMostDays != nil && m.RecencyDays > *d.RecencyAtMostDays {
		return false
	}
	if d.OrderCountOver != nil && m.OrderCount <= *d.OrderCountOver {
		return false
	}
	if d.OrderCountAtMost != nil && m.OrderCount > *d.OrderCountAtMost {
		return false
	}
	return true
}

// StatusLeaves names the sub-segments of one lifecycle status
type StatusLeaves struct {
	Status models.SegmentStatus `json:"status"`
	Name   string               `json:"name"`
	Leaves []LeafDef            `json:"leaves"`
}

// TreeConfig defines the two-level segment tree, statuses in display order
type TreeConfig struct {
	Statuses []StatusLeaves `json:"statuses"`
}

// DefaultTreeConfig mirrors the dashboard's taxonomy: each status splits into
// two complementary sub-segments, so the default tree is exhaustive and
// exclusive by construction.
func DefaultTreeConfig() TreeConfig {
	return TreeConfig{Statuses: []StatusLeaves{
		{
			Status: models.StatusIdeal,
			Name:   "Ideal customers",
			Leaves: []LeafDef{
				{ID: "ideal-frequent", Name: "Frequent buyers", FrequencyAtLeast: floatPtr(2)},
				{ID: "ideal-high-ticket", Name: "High ticket", FrequencyBelow: floatPtr(2)},
			},
		},
		{
			Status: models.StatusAtRisk,
			Name:   "At-risk customers",
			Leaves: []LeafDef{
				{ID: "risk-recency", Name: "Recency at risk", RecencyOverDays: intPtr(45)},
				{ID: "risk-frequency", Name: "Falling frequency", RecencyAtMostDays: intPtr(45)},
			},
		},
		{
			Status: models.StatusLost,
			Name:   "Lost customers",
			Leaves: []LeafDef{
				{ID: "lost-never", Name: "Never purchased", OrderCountAtMost: intPtr(0)},
				{ID: "lost-one-time", Name: "Old one-time buyers", OrderCountOver: intPtr(0), OrderCountAtMost: intPtr(1)},
				{ID: "lost-cold", Name: "No purchases 180+ days", OrderCountOver: intPtr(1)},
			},
		},
		{
			Status: models.StatusPotential,
			Name:   "Potential customers",
			Leaves: []LeafDef{
				{ID: "potential-leads", Name: "New leads", OrderCountAtMost: intPtr(0)},
				{ID: "potential-recent", Name: "Recent buyers", OrderCountOver: intPtr(0)},
			},
		},
	}}
}

// BuildSegmentTree aggregates classified customers into the two-level tree.
// Fails with ConfigError when a customer's status is missing from the config
// or when the leaf predicates under a status are not exhaustive/exclusive for
// some member. Idempotent: the same inputs produce a structurally identical
// tree, member lists sorted by customer id.
func BuildSegmentTree(classified []models.ClassifiedCustomer, cfg TreeConfig) (*models.SegmentTree, error) {
	if len(cfg.Statuses) == 0 {
		return nil, &ConfigError{Subject: "tree", Reason: "no statuses defined"}
	}

	byStatus := make(map[models.SegmentStatus][]models.ClassifiedCustomer)
	for _, c := range classified {
		byStatus[c.Status] = append(byStatus[c.Status], c)
	}

	configured := make(map[models.SegmentStatus]bool, len(cfg.Statuses))
	for _, s := range cfg.Statuses {
		if !models.ValidStatus(s.Status) {
			return nil, &ConfigError{Subject: string(s.Status), Reason: "unknown status"}
		}
		if configured[s.Status] {
			return nil, &ConfigError{Subject: string(s.Status), Reason: "status defined twice"}
		}
		if len(s.Leaves) == 0 {
			return nil, &ConfigError{Subject: string(s.Status), Reason: "status has no leaves"}
		}
		configured[s.Status] = true
	}
	for status := range byStatus {
		if !configured[status] {
			return nil, &ConfigError{Subject: string(status), Reason: "classified customers carry a status the tree does not define"}
		}
	}

	total := len(classified)
	tree := &models.SegmentTree{TotalClassified: total}

	for _, statusCfg := range cfg.Statuses {
		members := byStatus[statusCfg.Status]

		// Route every member to exactly one leaf.
		leafMembers := make([][]models.ClassifiedCustomer, len(statusCfg.Leaves))
		for _, c := range members {
			matched := -1
			for i, def := range statusCfg.Leaves {
				if !def.Matches(c.Metrics) {
					continue
				}
				if matched >= 0 {
					return nil, &ConfigError{
						Subject: c.CustomerID,
						Reason: fmt.Sprintf("matches both %q and %q under status %s",
							statusCfg.Leaves[matched].ID, def.ID, statusCfg.Status),
					}
				}
				matched = i
			}
			if matched < 0 {
				return nil, &ConfigError{
					Subject: c.CustomerID,
					Reason:  fmt.Sprintf("matches no leaf under status %s", statusCfg.Status),
				}
			}
			leafMembers[matched] = append(leafMembers[matched], c)
		}

		root := &models.Segment{
			SegmentID:      string(statusCfg.Status),
			Name:           statusCfg.Name,
			Status:         statusCfg.Status,
			MemberCount:    len(members),
			PercentOfTotal: percentOf(len(members), total),
			DisplayPercent: displayPercent(len(members), total),
			Aggregates:     aggregate(members),
		}
		for i, def := range statusCfg.Leaves {
			leaf := &models.Segment{
				SegmentID:      def.ID,
				Name:           def.Name,
				ParentID:       root.SegmentID,
				Status:         statusCfg.Status,
				Members:        memberIDs(leafMembers[i]),
				MemberCount:    len(leafMembers[i]),
				PercentOfTotal: percentOf(len(leafMembers[i]), total),
				DisplayPercent: displayPercent(len(leafMembers[i]), total),
				Aggregates:     aggregate(leafMembers[i]),
			}
			root.Children = append(root.Children, leaf)
		}
		tree.Roots = append(tree.Roots, root)
	}

	return tree, nil
}

func memberIDs(members []models.ClassifiedCustomer) []string {
	ids := make([]string, 0, len(members))
	for _, c := range members {
		ids = append(ids, c.CustomerID)
	}
	sort.Strings(ids)
	return ids
}

func percentOf(count, total int) float64 {
	if total == 0 {
		return 0
	}
	return float64(count) / float64(total) * 100
}

func displayPercent(count, total int) int {
	return int(math.Round(percentOf(count, total)))
}

// aggregate computes mean member metrics. Mean recency is taken over members
// with at least one order; never-buyers carry the RecencyNever sentinel and
// would poison the mean.
func aggregate(members []models.ClassifiedCustomer) models.SegmentAggregates {
	if len(members) == 0 {
		return models.SegmentAggregates{IsEmpty: true}
	}

	var recencies, frequencies, tickets stats.Float64Data
	var totalSpent float64
	for _, c := range members {
		m := c.Metrics
		if m.HasOrders() {
			recencies = append(recencies, float64(m.RecencyDays))
		}
		frequencies = append(frequencies, m.Frequency)
		tickets = append(tickets, m.Monetary)
		totalSpent += m.TotalSpent
	}

	return models.SegmentAggregates{
		MeanRecencyDays: meanOrZero(recencies),
		MeanFrequency:   meanOrZero(frequencies),
		MeanTicket:      meanOrZero(tickets),
		TotalSpent:      totalSpent,
	}
}

func meanOrZero(data stats.Float64Data) float64 {
	if len(data) == 0 {
		return 0
	}
	m, err := stats.Mean(data)
	if err != nil {
		return 0
	}
	return m
}
