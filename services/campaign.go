package services

import (
	"context"
	"log/slog"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"segment-engine/engine"
	"segment-engine/models"
)

// campaignLog is the in-memory append-only history the engine queries.
// Mongo is the durable copy; the log is rebuilt from it at startup and every
// accepted ingest writes through.
var campaignLog = engine.NewCampaignLog()

// CampaignLog exposes the shared campaign history
func CampaignLog() *engine.CampaignLog {
	return campaignLog
}

// LoadCampaignLog rebuilds the in-memory log from the campaigns collection.
// Called once at startup, before the HTTP surface accepts traffic.
func LoadCampaignLog(ctx context.Context) error {
	collection := GetDatabase().Collection("campaigns")

	cursor, err := collection.Find(ctx, bson.M{}, options.Find().SetSort(bson.M{"created_at": 1}))
	if err != nil {
		return err
	}
	defer cursor.Close(ctx)

	var campaigns []models.Campaign
	if err := cursor.All(ctx, &campaigns); err != nil {
		return err
	}

	log := engine.NewCampaignLog()
	for _, c := range campaigns {
		if err := log.Ingest(c); err != nil {
			// A stored record that fails engine validation means the
			// collection was tampered with; refuse to start on half a log.
			return err
		}
	}
	campaignLog = log

	slog.Info("Campaign log loaded", "campaigns", log.Len())
	return nil
}

// IngestCampaign checks the campaign against the in-memory log without
// committing, persists it to Mongo, and only then admits it to the log. A
// failed insert therefore leaves no trace in memory and the client's retry
// goes through the full path again. Identical re-ingestion is a no-op; a
// content conflict surfaces as engine.DuplicateCampaignError.
func IngestCampaign(ctx context.Context, c models.Campaign) error {
	known, err := campaignLog.Contains(c)
	if err != nil {
		return err
	}
	if known {
		return nil // Safe retry, already persisted
	}

	c.CreatedAt = time.Now()
	collection := GetDatabase().Collection("campaigns")
	if _, err := collection.InsertOne(ctx, c); err != nil {
		if !mongo.IsDuplicateKeyError(err) {
			slog.Error("Failed to persist campaign", "campaignID", c.CampaignID, "error", err)
			return err
		}
		// A duplicate key means a concurrent retry won the insert; the log
		// ingest below no-ops for identical content and reports a conflict
		// otherwise.
	}
	if err := campaignLog.Ingest(c); err != nil {
		return err
	}

	slog.Info("Campaign recorded", "campaignID", c.CampaignID, "targets", len(c.Targets))
	return nil
}

// GetCampaignHistory returns all recorded campaigns, most recent send first
func GetCampaignHistory(ctx context.Context) ([]models.Campaign, error) {
	collection := GetDatabase().Collection("campaigns")

	cursor, err := collection.Find(ctx, bson.M{}, options.Find().SetSort(bson.M{"sent_at": -1}))
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var campaigns []models.Campaign
	if err := cursor.All(ctx, &campaigns); err != nil {
		return nil, err
	}
	return campaigns, nil
}
