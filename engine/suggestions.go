package engine

import (
	"fmt"

	"github.com/google/uuid"

	"segment-engine/models"
)

// statusPlaybook fixes the campaign angle and expected uptake per lifecycle
// status. Uptake factors feed the revenue estimate; they are deliberately
// conservative for lost customers.
type statusPlaybook struct {
	title      string
	template   string
	uptake     float64
	confidence float64
}

var playbooks = map[models.SegmentStatus]statusPlaybook{
	models.StatusIdeal: {
		title:      "Loyalty reward",
		template:   "Reward %s with early access and a loyalty perk to protect repeat revenue",
		uptake:     0.25,
		confidence: 0.9,
	},
	models.StatusAtRisk: {
		title:      "Win-back nudge",
		template:   "Re-engage %s before they lapse: limited-time offer on their usual products",
		uptake:     0.15,
		confidence: 0.8,
	},
	models.StatusPotential: {
		title:      "First-purchase push",
		template:   "Convert %s with an introductory discount on popular items",
		uptake:     0.1,
		confidence: 0.7,
	},
	models.StatusLost: {
		title:      "Reactivation attempt",
		template:   "A last-chance reactivation offer for %s; expect low uptake",
		uptake:     0.05,
		confidence: 0.6,
	},
}

// SuggestCampaigns generates one campaign proposal per non-empty leaf
// segment: channel from the segment members' dominant order channel, revenue
// estimate from member count times mean ticket times status uptake. The
// suggestion ids are name-based UUIDs over the segment id, so the same tree
// yields byte-identical suggestions every run.
func SuggestCampaigns(tree *models.SegmentTree, orders []models.Order) []models.CampaignSuggestion {
	prefs := dominantPrefs(orders)

	var out []models.CampaignSuggestion
	for _, leaf := range tree.Leaves() {
		if leaf.Aggregates.IsEmpty {
			continue
		}
		pb, ok := playbooks[leaf.Status]
		if !ok {
			continue
		}

		channel := dominantSegmentChannel(leaf.Members, prefs)
		out = append(out, models.CampaignSuggestion{
			SuggestionID:    uuid.NewSHA1(uuid.NameSpaceOID, []byte("suggestion:"+leaf.SegmentID)).String(),
			SegmentID:       leaf.SegmentID,
			SegmentName:     leaf.Name,
			Status:          leaf.Status,
			Title:           pb.title,
			Description:     fmt.Sprintf(pb.template, leaf.Name),
			Channel:         channel,
			Audience:        leaf.MemberCount,
			ExpectedRevenue: float64(leaf.MemberCount) * leaf.Aggregates.MeanTicket * pb.uptake,
			Confidence:      pb.confidence,
		})
	}
	return out
}

// dominantSegmentChannel picks the channel most of the segment's members
// prefer, falling back to email for segments with no order history (leads).
func dominantSegmentChannel(members []string, prefs map[string]customerPrefs) models.OrderChannel {
	counts := make(map[string]int)
	for _, id := range members {
		if p, ok := prefs[id]; ok && p.channel != "" {
			counts[p.channel]++
		}
	}
	if best := dominantKey(counts); best != "" {
		return models.OrderChannel(best)
	}
	return models.ChannelEmail
}
