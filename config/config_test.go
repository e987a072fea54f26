package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadConfigDefaults(t *testing.T) {
	cfg := LoadConfig()

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "segment_engine", cfg.DatabaseName)
	assert.Equal(t, 180, cfg.LookbackWindowDays)
	assert.Equal(t, 180, cfg.FrequencyIntervalDays)
	assert.Equal(t, 180, cfg.LostRecencyDays)
	assert.Equal(t, 45, cfg.RiskRecencyDays)
	assert.Equal(t, 0.5, cfg.FrequencyDropPct)
	assert.Equal(t, 90, cfg.FreshnessWindowDays)
	assert.Equal(t, 0.85, cfg.SimilarityThreshold)
	assert.Equal(t, 5*time.Minute, cfg.SnapshotCacheTTL)
}

func TestLoadConfigOverrides(t *testing.T) {
	t.Setenv("FRESHNESS_WINDOW_DAYS", "30")
	t.Setenv("SIMILARITY_THRESHOLD", "0.9")
	t.Setenv("SNAPSHOT_CACHE_TTL", "90s")

	cfg := LoadConfig()
	assert.Equal(t, 30, cfg.FreshnessWindowDays)
	assert.Equal(t, 0.9, cfg.SimilarityThreshold)
	assert.Equal(t, 90*time.Second, cfg.SnapshotCacheTTL)
}

func TestLoadConfigBadValuesFallBack(t *testing.T) {
	t.Setenv("FRESHNESS_WINDOW_DAYS", "soon")
	t.Setenv("SIMILARITY_THRESHOLD", "very")

	cfg := LoadConfig()
	assert.Equal(t, 90, cfg.FreshnessWindowDays)
	assert.Equal(t, 0.85, cfg.SimilarityThreshold)
}
