package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Campaign is one send recorded in the campaign history. Campaigns are
// immutable once ingested; corrections are new campaigns, never edits.
type Campaign struct {
	ID         primitive.ObjectID `bson:"_id,omitempty" json:"-"`
	CampaignID string             `bson:"campaign_id" json:"campaign_id"`
	Name       string             `bson:"name" json:"name"`
	SentAt     time.Time          `bson:"sent_at" json:"sent_at"`
	Targets    []string           `bson:"targets" json:"targets"`                     // Customer ids
	Filters    []string           `bson:"filters,omitempty" json:"filters,omitempty"` // Audit trail of the filters that built the target list
	CreatedAt  time.Time          `bson:"created_at" json:"created_at"`
}

// CampaignSuggestion is a generated campaign proposal for one leaf segment,
// derived from the segment's aggregates and dominant order channel.
type CampaignSuggestion struct {
	SuggestionID    string        `json:"suggestion_id"`
	SegmentID       string        `json:"segment_id"`
	SegmentName     string        `json:"segment_name"`
	Status          SegmentStatus `json:"status"`
	Title           string        `json:"title"`
	Description     string        `json:"description"`
	Channel         OrderChannel  `json:"channel"`
	Audience        int           `json:"audience"`
	ExpectedRevenue float64       `json:"expected_revenue"`
	Confidence      float64       `json:"confidence"` // 0..1
}
