package engine

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"segment-engine/models"
)

func coveragePopulation(t *testing.T) ([]models.ClassifiedCustomer, []models.Customer, []models.Order) {
	t.Helper()

	customers := []models.Customer{
		{CustomerID: "A", Age: 22, City: "Madrid"},
		{CustomerID: "B", Age: 30, City: "Madrid"},
		{CustomerID: "C", Age: 30, City: "Barcelona"},
		{CustomerID: "D", City: "Madrid"}, // Unknown age
	}
	orders := []models.Order{
		order("o1", "A", day(190), 120), // High ticket
		order("o2", "B", day(180), 40),  // Low ticket
		order("o3", "C", day(150), 70),  // Mid ticket
		order("o4", "D", day(160), 80),
	}

	metrics, err := ComputeAllMetrics(customers, orders, day(200), DefaultMetricsConfig())
	require.NoError(t, err)
	classified, err := Classify(metrics, DefaultRules(DefaultRuleThresholds()))
	require.NoError(t, err)

	return classified, customers, orders
}

func TestBuildCoverageMatrix(t *testing.T) {
	classified, customers, orders := coveragePopulation(t)

	matrix, err := BuildCoverageMatrix(classified, customers, orders,
		DefaultAgeDimension(), DefaultTicketDimension(), NewCampaignLog(), DefaultFreshnessWindowDays, day(200))
	require.NoError(t, err)

	// Configured bands keep their column even when empty.
	assert.Equal(t, []string{"18-25", "26-35", "36-45", "46-60", "60+"}, matrix.XLabels)
	assert.Equal(t, []string{"low", "mid", "high"}, matrix.YLabels)

	// D has no age: excluded by policy, reported, never bucketed.
	assert.Equal(t, 3, matrix.IncludedCount)
	assert.Equal(t, 1, matrix.ExcludedCount)
	assert.Equal(t, []string{"D"}, matrix.ExcludedIDs)

	cell := matrix.Cell("18-25", "high")
	require.NotNil(t, cell)
	assert.Equal(t, []string{"A"}, cell.Members)

	cell = matrix.Cell("26-35", "low")
	require.NotNil(t, cell)
	assert.Equal(t, []string{"B"}, cell.Members)

	cell = matrix.Cell("26-35", "mid")
	require.NotNil(t, cell)
	assert.Equal(t, []string{"C"}, cell.Members)

	// Untouched population: every cell is not-impacted.
	for _, row := range matrix.Cells {
		for _, c := range row {
			assert.Equal(t, models.ImpactNone, c.ImpactStatus)
			assert.Zero(t, c.CampaignCount)
			assert.Nil(t, c.LastCampaignAt)
		}
	}
}

func TestBuildCoverageMatrixImpact(t *testing.T) {
	classified, customers, orders := coveragePopulation(t)

	log := NewCampaignLog()
	require.NoError(t, log.Ingest(campaign("c1", "Madrid push", 195, "A", "B")))

	matrix, err := BuildCoverageMatrix(classified, customers, orders,
		DefaultAgeDimension(), DefaultTicketDimension(), log, 30, day(200))
	require.NoError(t, err)

	cell := matrix.Cell("18-25", "high")
	require.NotNil(t, cell)
	assert.Equal(t, models.ImpactFull, cell.ImpactStatus)
	assert.Equal(t, 1, cell.CampaignCount)
	require.NotNil(t, cell.LastCampaignAt)
	assert.Equal(t, day(195), *cell.LastCampaignAt)

	cell = matrix.Cell("26-35", "mid")
	require.NotNil(t, cell)
	assert.Equal(t, models.ImpactNone, cell.ImpactStatus)
}

func TestBuildCoverageMatrixCategoricalAxis(t *testing.T) {
	classified, customers, orders := coveragePopulation(t)

	cityDim := Dimension{Name: "city", Kind: DimensionCity}
	matrix, err := BuildCoverageMatrix(classified, customers, orders,
		cityDim, DefaultTicketDimension(), NewCampaignLog(), DefaultFreshnessWindowDays, day(200))
	require.NoError(t, err)

	// Observed cities, sorted; D has a city and a ticket so it is included.
	assert.Equal(t, []string{"Barcelona", "Madrid"}, matrix.XLabels)
	assert.Equal(t, 4, matrix.IncludedCount)
	assert.Zero(t, matrix.ExcludedCount)

	cell := matrix.Cell("Madrid", "mid")
	require.NotNil(t, cell)
	assert.Equal(t, []string{"D"}, cell.Members)
}

func TestBuildCoverageMatrixConfigErrors(t *testing.T) {
	classified, customers, orders := coveragePopulation(t)

	t.Run("label count mismatch", func(t *testing.T) {
		bad := Dimension{Name: "age", Kind: DimensionAge, Breakpoints: []float64{30}, Labels: []string{"only-one"}}
		_, err := BuildCoverageMatrix(classified, customers, orders,
			bad, DefaultTicketDimension(), nil, 0, day(200))
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrConfig))
	})

	t.Run("unsorted breakpoints", func(t *testing.T) {
		bad := Dimension{Name: "age", Kind: DimensionAge, Breakpoints: []float64{40, 30}, Labels: []string{"a", "b", "c"}}
		_, err := BuildCoverageMatrix(classified, customers, orders,
			bad, DefaultTicketDimension(), nil, 0, day(200))
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrConfig))
	})

	t.Run("unknown kind", func(t *testing.T) {
		bad := Dimension{Name: "shoe_size", Kind: "shoe_size"}
		_, err := BuildCoverageMatrix(classified, customers, orders,
			bad, DefaultTicketDimension(), nil, 0, day(200))
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrConfig))
	})
}

func TestDominantPrefs(t *testing.T) {
	orders := []models.Order{
		{OrderID: "o1", CustomerID: "A", Timestamp: day(1), Channel: models.ChannelWeb, Product: "shoes"},
		{OrderID: "o2", CustomerID: "A", Timestamp: day(2), Channel: models.ChannelApp, Product: "shoes"},
		{OrderID: "o3", CustomerID: "A", Timestamp: day(3), Channel: models.ChannelApp},
	}

	prefs := dominantPrefs(orders)
	assert.Equal(t, "app", prefs["A"].channel)
	assert.Equal(t, "shoes", prefs["A"].product)

	// Ties break lexicographically, so repeated runs agree.
	tie := dominantPrefs([]models.Order{
		{OrderID: "o1", CustomerID: "B", Timestamp: day(1), Channel: models.ChannelWeb},
		{OrderID: "o2", CustomerID: "B", Timestamp: day(2), Channel: models.ChannelApp},
	})
	assert.Equal(t, "app", tie["B"].channel)
}
