package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"segment-engine/models"
)

func TestSuggestCampaigns(t *testing.T) {
	tree := &models.SegmentTree{
		TotalClassified: 3,
		Roots: []*models.Segment{
			{
				SegmentID: "ideal", Name: "Ideal customers", Status: models.StatusIdeal,
				Children: []*models.Segment{
					{
						SegmentID: "ideal-frequent", Name: "Frequent buyers", Status: models.StatusIdeal,
						Members: []string{"A", "B"}, MemberCount: 2,
						Aggregates: models.SegmentAggregates{MeanTicket: 100},
					},
					{
						SegmentID: "ideal-high-ticket", Name: "High ticket", Status: models.StatusIdeal,
						Aggregates: models.SegmentAggregates{IsEmpty: true},
					},
				},
			},
			{
				SegmentID: "potential-leads", Name: "New leads", Status: models.StatusPotential,
				Members: []string{"C"}, MemberCount: 1,
				Aggregates: models.SegmentAggregates{MeanTicket: 0},
			},
		},
	}
	orders := []models.Order{
		{OrderID: "o1", CustomerID: "A", Timestamp: day(1), Channel: models.ChannelWhatsApp},
		{OrderID: "o2", CustomerID: "B", Timestamp: day(2), Channel: models.ChannelWhatsApp},
	}

	got := SuggestCampaigns(tree, orders)
	require.Len(t, got, 2) // Empty leaves produce no suggestion

	frequent := got[0]
	assert.Equal(t, "ideal-frequent", frequent.SegmentID)
	assert.Equal(t, "Loyalty reward", frequent.Title)
	assert.Equal(t, models.ChannelWhatsApp, frequent.Channel)
	assert.Equal(t, 2, frequent.Audience)
	assert.InDelta(t, 2*100*0.25, frequent.ExpectedRevenue, 1e-9)
	assert.InDelta(t, 0.9, frequent.Confidence, 1e-9)

	// Leads have no order history: channel falls back to email.
	leads := got[1]
	assert.Equal(t, "potential-leads", leads.SegmentID)
	assert.Equal(t, models.ChannelEmail, leads.Channel)
	assert.Equal(t, "First-purchase push", leads.Title)
}

func TestSuggestCampaignsDeterministic(t *testing.T) {
	tree := &models.SegmentTree{
		TotalClassified: 1,
		Roots: []*models.Segment{
			{
				SegmentID: "ideal-frequent", Name: "Frequent buyers", Status: models.StatusIdeal,
				Members: []string{"A"}, MemberCount: 1,
				Aggregates: models.SegmentAggregates{MeanTicket: 50},
			},
		},
	}

	first := SuggestCampaigns(tree, nil)
	second := SuggestCampaigns(tree, nil)
	require.Equal(t, first, second)
	require.Len(t, first, 1)
	assert.NotEmpty(t, first[0].SuggestionID)
}
