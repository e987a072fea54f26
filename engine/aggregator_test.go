package engine

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"segment-engine/models"
)

// classifyThreeCustomers builds a small population: A ideal, B lost, C at-risk
func classifyThreeCustomers(t *testing.T) []models.ClassifiedCustomer {
	t.Helper()

	customers := []models.Customer{{CustomerID: "A"}, {CustomerID: "B"}, {CustomerID: "C"}}
	orders := []models.Order{
		order("o1", "A", day(190), 100),
		order("o2", "C", day(40), 30),
		order("o3", "C", day(150), 50),
	}

	metrics, err := ComputeAllMetrics(customers, orders, day(200), DefaultMetricsConfig())
	require.NoError(t, err)

	classified, err := Classify(metrics, DefaultRules(DefaultRuleThresholds()))
	require.NoError(t, err)
	return classified
}

func TestBuildSegmentTreeThreeCustomers(t *testing.T) {
	classified := classifyThreeCustomers(t)

	tree, err := BuildSegmentTree(classified, DefaultTreeConfig())
	require.NoError(t, err)
	assert.Equal(t, 3, tree.TotalClassified)
	require.Len(t, tree.Roots, 4)

	counts := make(map[models.SegmentStatus]int)
	percents := make(map[models.SegmentStatus]int)
	for _, root := range tree.Roots {
		counts[root.Status] = root.MemberCount
		percents[root.Status] = root.DisplayPercent
	}
	assert.Equal(t, 1, counts[models.StatusIdeal])
	assert.Equal(t, 1, counts[models.StatusLost])
	assert.Equal(t, 1, counts[models.StatusAtRisk])
	assert.Equal(t, 0, counts[models.StatusPotential])
	assert.Equal(t, 33, percents[models.StatusIdeal])
	assert.Equal(t, 33, percents[models.StatusLost])
	assert.Equal(t, 33, percents[models.StatusAtRisk])

	// Full-precision leaf percentages cover the whole classified population.
	var sum float64
	allMembers := make(map[string]int)
	for _, leaf := range tree.Leaves() {
		sum += leaf.PercentOfTotal
		for _, id := range leaf.Members {
			allMembers[id]++
		}
	}
	assert.InDelta(t, 100, sum, 1e-9)

	// Every customer lands in exactly one leaf.
	require.Len(t, allMembers, 3)
	for id, n := range allMembers {
		assert.Equal(t, 1, n, "customer %s appears in %d leaves", id, n)
	}
}

func TestBuildSegmentTreeLeafRouting(t *testing.T) {
	classified := classifyThreeCustomers(t)

	tree, err := BuildSegmentTree(classified, DefaultTreeConfig())
	require.NoError(t, err)

	leaf := tree.FindLeafFor("B")
	require.NotNil(t, leaf)
	assert.Equal(t, "lost-never", leaf.SegmentID) // B never bought

	leaf = tree.FindLeafFor("C")
	require.NotNil(t, leaf)
	assert.Equal(t, "risk-recency", leaf.SegmentID) // Recency 50 > 45
}

func TestBuildSegmentTreeLostLeafMembership(t *testing.T) {
	classified := []models.ClassifiedCustomer{
		{CustomerID: "N", Status: models.StatusLost, Metrics: metricsFor("N", models.RecencyNever, 0, 0, 0)},
		{CustomerID: "O", Status: models.StatusLost, Metrics: metricsFor("O", 300, 0.5, 60, 1)},
		{CustomerID: "R", Status: models.StatusLost, Metrics: metricsFor("R", 300, 0.5, 60, 3)},
	}

	tree, err := BuildSegmentTree(classified, DefaultTreeConfig())
	require.NoError(t, err)

	// Never-buyers get their own leaf; one-time buyers stay out of it.
	leaf := tree.FindLeafFor("N")
	require.NotNil(t, leaf)
	assert.Equal(t, "lost-never", leaf.SegmentID)

	leaf = tree.FindLeafFor("O")
	require.NotNil(t, leaf)
	assert.Equal(t, "lost-one-time", leaf.SegmentID)

	leaf = tree.FindLeafFor("R")
	require.NotNil(t, leaf)
	assert.Equal(t, "lost-cold", leaf.SegmentID)
}

func TestBuildSegmentTreeIdempotent(t *testing.T) {
	classified := classifyThreeCustomers(t)
	cfg := DefaultTreeConfig()

	first, err := BuildSegmentTree(classified, cfg)
	require.NoError(t, err)
	second, err := BuildSegmentTree(classified, cfg)
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestBuildSegmentTreeEmptyNodes(t *testing.T) {
	tree, err := BuildSegmentTree(nil, DefaultTreeConfig())
	require.NoError(t, err)

	for _, leaf := range tree.Leaves() {
		assert.True(t, leaf.Aggregates.IsEmpty)
		assert.Zero(t, leaf.Aggregates.MeanTicket)
		assert.Zero(t, leaf.MemberCount)
	}
}

func TestBuildSegmentTreeAggregates(t *testing.T) {
	classified := []models.ClassifiedCustomer{
		{CustomerID: "A", Status: models.StatusIdeal, Metrics: metricsFor("A", 10, 2, 100, 4)},
		{CustomerID: "B", Status: models.StatusIdeal, Metrics: metricsFor("B", 30, 4, 200, 2)},
	}

	tree, err := BuildSegmentTree(classified, DefaultTreeConfig())
	require.NoError(t, err)

	root := tree.Roots[0]
	require.Equal(t, models.StatusIdeal, root.Status)
	assert.InDelta(t, 20, root.Aggregates.MeanRecencyDays, 1e-9)
	assert.InDelta(t, 3, root.Aggregates.MeanFrequency, 1e-9)
	assert.InDelta(t, 150, root.Aggregates.MeanTicket, 1e-9)
	assert.InDelta(t, 800, root.Aggregates.TotalSpent, 1e-9)
	assert.False(t, root.Aggregates.IsEmpty)
}

func TestBuildSegmentTreeConfigErrors(t *testing.T) {
	classified := []models.ClassifiedCustomer{
		{CustomerID: "A", Status: models.StatusIdeal, Metrics: metricsFor("A", 10, 2, 100, 1)},
	}

	t.Run("overlapping leaves", func(t *testing.T) {
		cfg := TreeConfig{Statuses: []StatusLeaves{{
			Status: models.StatusIdeal,
			Name:   "Ideal",
			Leaves: []LeafDef{
				{ID: "a", Name: "A", FrequencyAtLeast: floatPtr(1)},
				{ID: "b", Name: "B", FrequencyAtLeast: floatPtr(2)},
			},
		}}}
		_, err := BuildSegmentTree(classified, cfg)
		require.Error(t, err)

		var cfgErr *ConfigError
		require.True(t, errors.As(err, &cfgErr))
		assert.Equal(t, "A", cfgErr.Subject)
	})

	t.Run("non-exhaustive leaves", func(t *testing.T) {
		cfg := TreeConfig{Statuses: []StatusLeaves{{
			Status: models.StatusIdeal,
			Name:   "Ideal",
			Leaves: []LeafDef{{ID: "a", Name: "A", FrequencyAtLeast: floatPtr(100)}},
		}}}
		_, err := BuildSegmentTree(classified, cfg)
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrConfig))
	})

	t.Run("status not in tree", func(t *testing.T) {
		cfg := TreeConfig{Statuses: []StatusLeaves{{
			Status: models.StatusLost,
			Name:   "Lost",
			Leaves: []LeafDef{{ID: "l", Name: "L"}},
		}}}
		_, err := BuildSegmentTree(classified, cfg)
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrConfig))
	})

	t.Run("empty config", func(t *testing.T) {
		_, err := BuildSegmentTree(classified, TreeConfig{})
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrConfig))
	})
}
