package engine

import (
	"sort"
	"sync"
	"time"

	"segment-engine/models"
)

// DefaultFreshnessWindowDays is how long a campaign keeps counting as
// "impacting" the customers it targeted.
const DefaultFreshnessWindowDays = 90

// CampaignLog is the append-only campaign history. Ingestion is idempotent by
// id: re-adding identical content is a no-op, re-adding different content
// under the same id fails. There is no delete; corrections are new campaigns.
// Writers serialize on the mutex, readers get copy-on-read snapshots.
type CampaignLog struct {
	mu        sync.RWMutex
	campaigns []models.Campaign
	byID      map[string]int
}

// NewCampaignLog returns an empty campaign history
func NewCampaignLog() *CampaignLog {
	return &CampaignLog{byID: make(map[string]int)}
}

// normalizeCampaign validates required fields and canonicalizes targets so
// content comparison and downstream queries are order-independent.
func normalizeCampaign(c models.Campaign) (models.Campaign, error) {
	if c.CampaignID == "" {
		return c, &InvalidInputError{RecordID: c.Name, Reason: "campaign id is required"}
	}
	if c.SentAt.IsZero() {
		return c, &InvalidInputError{RecordID: c.CampaignID, Reason: "sent timestamp is required"}
	}
	c.Targets = uniqueSorted(c.Targets)
	return c, nil
}

// Ingest appends a campaign to the log. Re-ingesting an identical campaign
// is a no-op; a different campaign under the same id is a conflict.
func (l *CampaignLog) Ingest(c models.Campaign) error {
	c, err := normalizeCampaign(c)
	if err != nil {
		return err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if idx, ok := l.byID[c.CampaignID]; ok {
		if sameCampaign(l.campaigns[idx], c) {
			return nil // Safe retry
		}
		return &DuplicateCampaignError{CampaignID: c.CampaignID}
	}

	l.byID[c.CampaignID] = len(l.campaigns)
	l.campaigns = append(l.campaigns, c)
	return nil
}

// Contains reports whether an identical campaign is already recorded. It
// never modifies the log, which lets callers persist elsewhere before
// admitting the campaign. Validation failures and content conflicts surface
// with the same errors Ingest would return.
func (l *CampaignLog) Contains(c models.Campaign) (bool, error) {
	c, err := normalizeCampaign(c)
	if err != nil {
		return false, err
	}

	l.mu.RLock()
	defer l.mu.RUnlock()

	idx, ok := l.byID[c.CampaignID]
	if !ok {
		return false, nil
	}
	if !sameCampaign(l.campaigns[idx], c) {
		return false, &DuplicateCampaignError{CampaignID: c.CampaignID}
	}
	return true, nil
}

// Len returns the number of recorded campaigns
func (l *CampaignLog) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.campaigns)
}

// Snapshot returns a copy of the log in ingestion order
func (l *CampaignLog) Snapshot() []models.Campaign {
	l.mu.RLock()
	defer l.mu.RUnlock()

	out := make([]models.Campaign, len(l.campaigns))
	copy(out, l.campaigns)
	for i := range out {
		targets := make([]string, len(out[i].Targets))
		copy(targets, out[i].Targets)
		out[i].Targets = targets
	}
	return out
}

// CustomersTargetedSince returns, per customer, the most recent time a
// campaign sent at or after the cutoff targeted them.
func (l *CampaignLog) CustomersTargetedSince(cutoff time.Time) map[string]time.Time {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.targetedBetween(cutoff, time.Time{})
}

// targetedBetween collects the latest send per customer in [cutoff, until];
// a zero until means no upper bound. Callers hold at least a read lock.
func (l *CampaignLog) targetedBetween(cutoff, until time.Time) map[string]time.Time {
	out := make(map[string]time.Time)
	for _, c := range l.campaigns {
		if c.SentAt.Before(cutoff) {
			continue
		}
		if !until.IsZero() && c.SentAt.After(until) {
			continue
		}
		for _, id := range c.Targets {
			if last, ok := out[id]; !ok || c.SentAt.After(last) {
				out[id] = c.SentAt
			}
		}
	}
	return out
}

// CampaignsTargeting returns every campaign whose target list includes the
// customer, in ingestion order.
func (l *CampaignLog) CampaignsTargeting(customerID string) []models.Campaign {
	var out []models.Campaign
	for _, c := range l.Snapshot() {
		for _, id := range c.Targets {
			if id == customerID {
				out = append(out, c)
				break
			}
		}
	}
	return out
}

// CellStats is the campaign-impact view of one member set
type CellStats struct {
	CampaignCount   int
	LastCampaignAt  *time.Time
	ImpactedMembers int
	Status          models.ImpactStatus
}

// CellCoverageStats derives the impact status of a member set at the given
// evaluation time: impacted when every member was targeted within the
// freshness window, not-impacted when none were, partial otherwise. Campaign
// count and last-campaign timestamp consider all history, not only the
// window.
func (l *CampaignLog) CellCoverageStats(members []string, freshnessWindowDays int, evalTime time.Time) CellStats {
	if freshnessWindowDays <= 0 {
		freshnessWindowDays = DefaultFreshnessWindowDays
	}
	cutoff := evalTime.AddDate(0, 0, -freshnessWindowDays)

	l.mu.RLock()
	defer l.mu.RUnlock()

	// Bounded above so a campaign dated after the evaluation time cannot
	// shadow an in-window send to the same customer.
	fresh := l.targetedBetween(cutoff, evalTime)

	memberSet := make(map[string]bool, len(members))
	for _, id := range members {
		memberSet[id] = true
	}

	var st CellStats
	for _, c := range l.campaigns {
		targetsCell := false
		for _, id := range c.Targets {
			if memberSet[id] {
				targetsCell = true
				break
			}
		}
		if !targetsCell {
			continue
		}
		st.CampaignCount++
		if st.LastCampaignAt == nil || c.SentAt.After(*st.LastCampaignAt) {
			sent := c.SentAt
			st.LastCampaignAt = &sent
		}
	}

	for _, id := range members {
		if _, ok := fresh[id]; ok {
			st.ImpactedMembers++
		}
	}

	switch {
	case len(members) == 0 || st.ImpactedMembers == 0:
		st.Status = models.ImpactNone
	case st.ImpactedMembers == len(members):
		st.Status = models.ImpactFull
	default:
		st.Status = models.ImpactPartial
	}
	return st
}

func uniqueSorted(ids []string) []string {
	seen := make(map[string]bool, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	sort.Strings(out)
	return out
}

func sameCampaign(a, b models.Campaign) bool {
	if a.Name != b.Name || !a.SentAt.Equal(b.SentAt) {
		return false
	}
	if len(a.Targets) != len(b.Targets) || len(a.Filters) != len(b.Filters) {
		return false
	}
	for i := range a.Targets {
		if a.Targets[i] != b.Targets[i] {
			return false
		}
	}
	for i := range a.Filters {
		if a.Filters[i] != b.Filters[i] {
			return false
		}
	}
	return true
}
