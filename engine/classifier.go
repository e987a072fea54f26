package engine

import (
	"segment-engine/models"
)

// Rule maps a declarative metric predicate to a lifecycle status. Rules are
// plain data so a rule set can travel as JSON configuration. All set bounds
// must hold for the rule to match; an unset (nil) bound is ignored. A
// Fallback rule matches every customer.
type Rule struct {
	Name   string               `json:"name"`
	Status models.SegmentStatus `json:"status"`

	RecencyOverDays  *int     `json:"recency_over_days,omitempty"`
	RecencyAtMost    *int     `json:"recency_at_most,omitempty"`
	FrequencyAtLeast *float64 `json:"frequency_at_least,omitempty"`
	MonetaryAtLeast  *float64 `json:"monetary_at_least,omitempty"`
	// FrequencyDropPct matches when frequency fell by at least this fraction
	// versus the prior period (0.5 = dropped 50% or more).
	FrequencyDropPct *float64 `json:"frequency_drop_pct,omitempty"`

	Fallback bool `json:"fallback,omitempty"`
}

// Matches reports whether every set bound holds for the metrics
func (r Rule) Matches(m models.CustomerMetrics) bool {
	if r.Fallback {
		return true
	}
	matched := false
	if r.RecencyOverDays != nil {
		if m.RecencyDays <= *r.RecencyOverDays {
			return false
		}
		matched = true
	}
	if r.RecencyAtMost != nil {
		if m.RecencyDays > *r.RecencyAtMost {
			return false
		}
		matched = true
	}
	if r.FrequencyAtLeast != nil {
		if m.Frequency < *r.FrequencyAtLeast {
			return false
		}
		matched = true
	}
	if r.MonetaryAtLeast != nil {
		if m.Monetary < *r.MonetaryAtLeast {
			return false
		}
		matched = true
	}
	if r.FrequencyDropPct != nil {
		if m.PriorFrequency <= 0 {
			return false
		}
		drop := (m.PriorFrequency - m.Frequency) / m.PriorFrequency
		if drop < *r.FrequencyDropPct {
			return false
		}
		matched = true
	}
	return matched
}

// RuleThresholds are the tunable values behind DefaultRules
type RuleThresholds struct {
	LostRecencyDays  int     `json:"lost_recency_days"`
	RiskRecencyDays  int     `json:"risk_recency_days"`
	FrequencyDropPct float64 `json:"frequency_drop_pct"`
	IdealFrequency   float64 `json:"ideal_frequency"`
	IdealMonetary    float64 `json:"ideal_monetary"`
}

// DefaultRuleThresholds returns the documented default thresholds
func DefaultRuleThresholds() RuleThresholds {
	return RuleThresholds{
		LostRecencyDays:  180,
		RiskRecencyDays:  45,
		FrequencyDropPct: 0.5,
		IdealFrequency:   1,
		IdealMonetary:    80,
	}
}

// DefaultRules builds the default ordered rule set: lost by long recency,
// at-risk by stale recency or falling frequency, ideal by strong frequency
// and ticket, everyone else potential. Declaration order is the tie-break
// when thresholds overlap, so lost wins over at-risk for a customer matching
// both.
func DefaultRules(t RuleThresholds) []Rule {
	return []Rule{
		{
			Name:            "lost-by-recency",
			Status:          models.StatusLost,
			RecencyOverDays: intPtr(t.LostRecencyDays),
		},
		{
			Name:            "at-risk-by-recency",
			Status:          models.StatusAtRisk,
			RecencyOverDays: intPtr(t.RiskRecencyDays),
			RecencyAtMost:   intPtr(t.LostRecencyDays),
		},
		{
			Name:             "at-risk-by-frequency-drop",
			Status:           models.StatusAtRisk,
			FrequencyDropPct: floatPtr(t.FrequencyDropPct),
		},
		{
			Name:             "ideal",
			Status:           models.StatusIdeal,
			FrequencyAtLeast: floatPtr(t.IdealFrequency),
			MonetaryAtLeast:  floatPtr(t.IdealMonetary),
		},
		{
			Name:     "potential",
			Status:   models.StatusPotential,
			Fallback: true,
		},
	}
}

// Classify assigns exactly one lifecycle status to every customer. Rules are
// evaluated in declaration order and the first match wins. Fails with
// ConfigError before classifying anything if the rule set has no fallback or
// carries an unknown status, so a bad config never yields partial output.
func Classify(metrics []models.CustomerMetrics, rules []Rule) ([]models.ClassifiedCustomer, error) {
	if err := validateRules(rules); err != nil {
		return nil, err
	}

	out := make([]models.ClassifiedCustomer, 0, len(metrics))
	for _, m := range metrics {
		for _, r := range rules {
			if !r.Matches(m) {
				continue
			}
			out = append(out, models.ClassifiedCustomer{
				CustomerID: m.CustomerID,
				Status:     r.Status,
				Rule:       r.Name,
				Metrics:    m,
			})
			break
		}
	}
	return out, nil
}

func validateRules(rules []Rule) error {
	if len(rules) == 0 {
		return &ConfigError{Subject: "rules", Reason: "empty rule set"}
	}
	hasFallback := false
	for _, r := range rules {
		if !models.ValidStatus(r.Status) {
			return &ConfigError{Subject: r.Name, Reason: "unknown status " + string(r.Status)}
		}
		if !r.Fallback && r.RecencyOverDays == nil && r.RecencyAtMost == nil &&
			r.FrequencyAtLeast == nil && r.MonetaryAtLeast == nil && r.FrequencyDropPct == nil {
			return &ConfigError{Subject: r.Name, Reason: "rule has no bounds and is not a fallback"}
		}
		if r.Fallback {
			hasFallback = true
		}
	}
	if !hasFallback {
		return &ConfigError{Subject: "rules", Reason: "no fallback rule; every rule set must end with a match-all rule"}
	}
	return nil
}

func intPtr(v int) *int           { return &v }
func floatPtr(v float64) *float64 { return &v }
