package engine

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"segment-engine/models"
)

func campaign(id, name string, sentDay int, targets ...string) models.Campaign {
	return models.Campaign{
		CampaignID: id,
		Name:       name,
		SentAt:     day(sentDay),
		Targets:    targets,
	}
}

func TestCampaignLogIngestIdempotent(t *testing.T) {
	log := NewCampaignLog()

	c := campaign("c1", "Black Friday", 195, "A", "B")
	require.NoError(t, log.Ingest(c))
	assert.Equal(t, 1, log.Len())

	// Identical re-ingestion is a safe retry, target order irrelevant.
	retry := campaign("c1", "Black Friday", 195, "B", "A")
	require.NoError(t, log.Ingest(retry))
	assert.Equal(t, 1, log.Len())
}

func TestCampaignLogIngestConflict(t *testing.T) {
	log := NewCampaignLog()
	require.NoError(t, log.Ingest(campaign("c1", "Black Friday", 195, "A")))

	err := log.Ingest(campaign("c1", "Black Friday", 195, "A", "B"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrDuplicateCampaign))

	var dupErr *DuplicateCampaignError
	require.True(t, errors.As(err, &dupErr))
	assert.Equal(t, "c1", dupErr.CampaignID)

	// The log is unchanged after the rejected write.
	assert.Equal(t, 1, log.Len())
	assert.Equal(t, []string{"A"}, log.Snapshot()[0].Targets)
}

func TestCampaignLogIngestValidation(t *testing.T) {
	log := NewCampaignLog()

	err := log.Ingest(models.Campaign{Name: "no id", SentAt: day(1)})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalidInput))

	err = log.Ingest(models.Campaign{CampaignID: "c1", Name: "no timestamp"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalidInput))
}

func TestCampaignLogSnapshotIsolation(t *testing.T) {
	log := NewCampaignLog()
	require.NoError(t, log.Ingest(campaign("c1", "X", 10, "A", "B")))

	snap := log.Snapshot()
	snap[0].Targets[0] = "mutated"
	snap[0].Name = "mutated"

	fresh := log.Snapshot()
	assert.Equal(t, "X", fresh[0].Name)
	assert.Equal(t, []string{"A", "B"}, fresh[0].Targets)
}

func TestCampaignLogQueries(t *testing.T) {
	log := NewCampaignLog()
	require.NoError(t, log.Ingest(campaign("c1", "Old push", 100, "A", "C")))
	require.NoError(t, log.Ingest(campaign("c2", "Recent push", 195, "A")))

	targeted := log.CustomersTargetedSince(day(150))
	require.Len(t, targeted, 1)
	assert.Equal(t, day(195), targeted["A"])

	hits := log.CampaignsTargeting("A")
	require.Len(t, hits, 2)
	assert.Equal(t, "c1", hits[0].CampaignID)
	assert.Equal(t, "c2", hits[1].CampaignID)

	assert.Empty(t, log.CampaignsTargeting("B"))
}

// TestCellCoverageRoundTrip: a campaign targeting {A}
// at day 195 with a 30-day freshness window, evaluated at day 200.
func TestCellCoverageRoundTrip(t *testing.T) {
	log := NewCampaignLog()
	require.NoError(t, log.Ingest(campaign("c1", "Reactivation", 195, "A")))

	tests := []struct {
		name         string
		members      []string
		wantStatus   models.ImpactStatus
		wantImpacted int
	}{
		{name: "cell containing only A", members: []string{"A"}, wantStatus: models.ImpactFull, wantImpacted: 1},
		{name: "cell containing A and B", members: []string{"A", "B"}, wantStatus: models.ImpactPartial, wantImpacted: 1},
		{name: "cell containing only B", members: []string{"B"}, wantStatus: models.ImpactNone},
		{name: "empty cell", members: nil, wantStatus: models.ImpactNone},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			st := log.CellCoverageStats(tt.members, 30, day(200))
			assert.Equal(t, tt.wantStatus, st.Status)
			assert.Equal(t, tt.wantImpacted, st.ImpactedMembers)
		})
	}
}

func TestCampaignLogContains(t *testing.T) {
	log := NewCampaignLog()
	require.NoError(t, log.Ingest(campaign("c1", "Black Friday", 195, "A", "B")))

	// Identical content matches regardless of target order.
	known, err := log.Contains(campaign("c1", "Black Friday", 195, "B", "A"))
	require.NoError(t, err)
	assert.True(t, known)

	// An unseen campaign is reported absent and never recorded.
	known, err = log.Contains(campaign("c2", "Cyber Monday", 196, "A"))
	require.NoError(t, err)
	assert.False(t, known)
	assert.Equal(t, 1, log.Len())

	// Same id with different content is the same conflict Ingest raises.
	_, err = log.Contains(campaign("c1", "Black Friday", 195, "A", "B", "C"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrDuplicateCampaign))

	_, err = log.Contains(models.Campaign{Name: "no id", SentAt: day(1)})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalidInput))
}

func TestCellCoverageFreshnessWindow(t *testing.T) {
	log := NewCampaignLog()
	require.NoError(t, log.Ingest(campaign("c1", "Stale push", 100, "A")))

	// The campaign is outside the 30-day window, so A is no longer impacted,
	// but history (count, last timestamp) still reflects it.
	st := log.CellCoverageStats([]string{"A"}, 30, day(200))
	assert.Equal(t, models.ImpactNone, st.Status)
	assert.Equal(t, 1, st.CampaignCount)
	require.NotNil(t, st.LastCampaignAt)
	assert.Equal(t, day(100), *st.LastCampaignAt)
}

func TestCellCoverageLaterCampaignKeepsWindowHit(t *testing.T) {
	log := NewCampaignLog()
	require.NoError(t, log.Ingest(campaign("c1", "Spring push", 195, "A")))
	require.NoError(t, log.Ingest(campaign("c2", "Summer push", 220, "A")))

	// Evaluated at day 200 the day-195 send sits inside the 30-day window;
	// the day-220 send is after the evaluation time and must not mask it.
	st := log.CellCoverageStats([]string{"A"}, 30, day(200))
	assert.Equal(t, models.ImpactFull, st.Status)
	assert.Equal(t, 1, st.ImpactedMembers)
}
