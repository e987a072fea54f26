package services

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"segment-engine/config"
	"segment-engine/engine"
	"segment-engine/models"
)

// similarityDetector keeps the session's resolved-pair acknowledgments so an
// ignored flag is not re-emitted until restart.
var similarityDetector = engine.NewSimilarityDetector()

// SimilarityDetector exposes the shared detector session
func SimilarityDetector() *engine.SimilarityDetector {
	return similarityDetector
}

// Snapshot is one full recomputation of the engine over the current data:
// metrics, classification, segment tree, coverage matrix, similarity flags
// and campaign suggestions, all derived from the same input read.
type Snapshot struct {
	EvaluationTime time.Time                   `json:"evaluation_time"`
	TotalCustomers int                         `json:"total_customers"`
	Metrics        []models.CustomerMetrics    `json:"metrics"`
	Classified     []models.ClassifiedCustomer `json:"classified"`
	Tree           *models.SegmentTree         `json:"tree"`
	Matrix         *models.CoverageMatrix      `json:"matrix"`
	Flags          []models.SimilarityFlag     `json:"flags"`
	Suggestions    []models.CampaignSuggestion `json:"suggestions"`
}

// MetricsConfig builds the engine window config from the env config
func MetricsConfig(cfg *config.Config) engine.MetricsConfig {
	return engine.MetricsConfig{
		LookbackWindowDays:    cfg.LookbackWindowDays,
		FrequencyIntervalDays: cfg.FrequencyIntervalDays,
	}
}

// Rules builds the configured default rule set
func Rules(cfg *config.Config) []engine.Rule {
	return engine.DefaultRules(engine.RuleThresholds{
		LostRecencyDays:  cfg.LostRecencyDays,
		RiskRecencyDays:  cfg.RiskRecencyDays,
		FrequencyDropPct: cfg.FrequencyDropPct,
		IdealFrequency:   cfg.IdealFrequency,
		IdealMonetary:    cfg.IdealMonetary,
	})
}

// DimensionByName resolves the axis names the dashboard offers into
// dimension configs with their default bands.
func DimensionByName(name string) (engine.Dimension, error) {
	switch name {
	case "", "age":
		return engine.DefaultAgeDimension(), nil
	case "city":
		return engine.Dimension{Name: "city", Kind: engine.DimensionCity}, nil
	case "channel":
		return engine.Dimension{Name: "channel", Kind: engine.DimensionChannel}, nil
	case "product":
		return engine.Dimension{Name: "product", Kind: engine.DimensionProduct}, nil
	case "ticket", "avg_ticket":
		return engine.DefaultTicketDimension(), nil
	case "frequency":
		return engine.Dimension{
			Name: "frequency", Kind: engine.DimensionFrequency,
			Breakpoints: []float64{1, 3},
			Labels:      []string{"low", "mid", "high"},
		}, nil
	case "recency":
		return engine.Dimension{
			Name: "recency", Kind: engine.DimensionRecency,
			Breakpoints: []float64{30, 90, 180},
			Labels:      []string{"0-29", "30-89", "90-179", "180+"},
		}, nil
	}
	return engine.Dimension{}, &engine.ConfigError{Subject: name, Reason: "unknown dimension"}
}

// ComputeSnapshot runs the whole pipeline over the persisted population.
// Fail-closed: any stage error yields no snapshot at all, never a mix of old
// and new results. The context cancels the computation wholesale between
// stages; nothing partial is committed or cached.
func ComputeSnapshot(ctx context.Context, cfg *config.Config, xDim, yDim engine.Dimension, evalTime time.Time) (*Snapshot, error) {
	key := snapshotCacheKey(cfg, xDim, yDim, evalTime)
	if data, ok := cachedSnapshot(ctx, key); ok {
		var snap Snapshot
		if err := json.Unmarshal(data, &snap); err == nil {
			slog.Debug("Snapshot served from cache", "key", key)
			return &snap, nil
		}
	}

	customers, err := GetAllCustomers(ctx)
	if err != nil {
		return nil, err
	}
	orders, err := GetAllOrders(ctx)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	metrics, err := engine.ComputeAllMetrics(customers, orders, evalTime, MetricsConfig(cfg))
	if err != nil {
		return nil, err
	}
	classified, err := engine.Classify(metrics, Rules(cfg))
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	tree, err := engine.BuildSegmentTree(classified, engine.DefaultTreeConfig())
	if err != nil {
		return nil, err
	}
	matrix, err := engine.BuildCoverageMatrix(classified, customers, orders,
		xDim, yDim, campaignLog, cfg.FreshnessWindowDays, evalTime)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	snap := &Snapshot{
		EvaluationTime: evalTime,
		TotalCustomers: len(customers),
		Metrics:        metrics,
		Classified:     classified,
		Tree:           tree,
		Matrix:         matrix,
		Flags:          similarityDetector.Detect(tree, engine.SimilarityOptions{Threshold: cfg.SimilarityThreshold}),
		Suggestions:    engine.SuggestCampaigns(tree, orders),
	}

	storeSnapshot(ctx, key, snap)
	return snap, nil
}

// snapshotCacheKey hashes everything the computation depends on besides the
// stored population; ingest invalidates the population side.
func snapshotCacheKey(cfg *config.Config, xDim, yDim engine.Dimension, evalTime time.Time) string {
	payload, _ := json.Marshal(struct {
		Cfg  *config.Config
		X, Y engine.Dimension
		At   int64
	}{cfg, xDim, yDim, evalTime.Unix()})
	sum := sha256.Sum256(payload)
	return "snapshot:" + hex.EncodeToString(sum[:8])
}

// CustomerProfile is the detail view behind the customer drill-down
type CustomerProfile struct {
	Customer  models.Customer        `json:"customer"`
	Metrics   models.CustomerMetrics `json:"metrics"`
	Status    models.SegmentStatus   `json:"status"`
	SegmentID string                 `json:"segment_id,omitempty"`
	Segment   string                 `json:"segment,omitempty"`
	Campaigns []models.Campaign      `json:"campaigns"`
	Orders    []models.Order         `json:"orders"`
}

// GetCustomerProfile assembles one customer's metrics, segment assignment,
// campaign history and orders. Returns nil when the customer is unknown.
func GetCustomerProfile(ctx context.Context, cfg *config.Config, customerID string, evalTime time.Time) (*CustomerProfile, error) {
	customer, err := GetCustomer(ctx, customerID)
	if err != nil {
		return nil, err
	}
	if customer == nil {
		return nil, nil
	}

	orders, err := GetOrdersByCustomer(ctx, customerID)
	if err != nil {
		return nil, err
	}

	metrics, err := engine.ComputeMetrics(customerID, orders, evalTime, MetricsConfig(cfg))
	if err != nil {
		return nil, err
	}
	classified, err := engine.Classify([]models.CustomerMetrics{metrics}, Rules(cfg))
	if err != nil {
		return nil, err
	}

	profile := &CustomerProfile{
		Customer:  *customer,
		Metrics:   metrics,
		Status:    classified[0].Status,
		Campaigns: campaignLog.CampaignsTargeting(customerID),
		Orders:    orders,
	}

	// Route to the leaf the aggregator would pick.
	for _, statusCfg := range engine.DefaultTreeConfig().Statuses {
		if statusCfg.Status != profile.Status {
			continue
		}
		for _, leaf := range statusCfg.Leaves {
			if leaf.Matches(metrics) {
				profile.SegmentID = leaf.ID
				profile.Segment = leaf.Name
				break
			}
		}
	}
	if profile.SegmentID == "" {
		return nil, fmt.Errorf("customer %s matches no leaf under status %s", customerID, profile.Status)
	}

	return profile, nil
}
