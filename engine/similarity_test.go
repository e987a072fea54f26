package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"segment-engine/models"
)

func leafSegment(id string, status models.SegmentStatus, recency, frequency, ticket float64) *models.Segment {
	return &models.Segment{
		SegmentID:   id,
		Name:        id,
		Status:      status,
		MemberCount: 1,
		Aggregates: models.SegmentAggregates{
			MeanRecencyDays: recency,
			MeanFrequency:   frequency,
			MeanTicket:      ticket,
		},
	}
}

func similarityTree() *models.SegmentTree {
	return &models.SegmentTree{
		TotalClassified: 4,
		Roots: []*models.Segment{
			leafSegment("ideal-a", models.StatusIdeal, 10, 4, 100),
			leafSegment("risk-a", models.StatusAtRisk, 11, 4, 99), // Nearly identical to ideal-a
			leafSegment("lost-a", models.StatusLost, 300, 0.1, 20),
			leafSegment("potential-a", models.StatusPotential, 150, 1, 60),
		},
	}
}

func TestDetectFlagsClosePairs(t *testing.T) {
	d := NewSimilarityDetector()

	flags := d.Detect(similarityTree(), SimilarityOptions{Threshold: 0.85})
	require.Len(t, flags, 1)

	f := flags[0]
	assert.Equal(t, "ideal-a", f.SegmentA)
	assert.Equal(t, "risk-a", f.SegmentB)
	assert.Equal(t, models.FlagPending, f.Status)
	assert.GreaterOrEqual(t, f.Score, 0.85)
	assert.LessOrEqual(t, f.Score, 1.0)
}

func TestDetectDeterministic(t *testing.T) {
	d := NewSimilarityDetector()

	first := d.Detect(similarityTree(), SimilarityOptions{Threshold: 0.5})
	second := d.Detect(similarityTree(), SimilarityOptions{Threshold: 0.5})

	// Same order, same scores, byte-identical.
	require.Equal(t, first, second)
	for i := 1; i < len(first); i++ {
		assert.Less(t, first[i-1].PairKey(), first[i].PairKey())
	}
}

func TestDetectIdenticalLeaves(t *testing.T) {
	tree := &models.SegmentTree{
		TotalClassified: 2,
		Roots: []*models.Segment{
			leafSegment("x", models.StatusIdeal, 10, 4, 100),
			leafSegment("y", models.StatusAtRisk, 10, 4, 100),
			leafSegment("z", models.StatusLost, 200, 0, 10),
		},
	}

	flags := NewSimilarityDetector().Detect(tree, SimilarityOptions{Threshold: 0.99})
	require.Len(t, flags, 1)
	assert.InDelta(t, 1.0, flags[0].Score, 1e-9)
}

func TestDetectResolveSuppressesPair(t *testing.T) {
	d := NewSimilarityDetector()

	flags := d.Detect(similarityTree(), SimilarityOptions{Threshold: 0.85})
	require.Len(t, flags, 1)

	// Acknowledge in reverse argument order: the pair key is canonical.
	d.Resolve(flags[0].SegmentB, flags[0].SegmentA, models.FlagIgnored)

	assert.Empty(t, d.Detect(similarityTree(), SimilarityOptions{Threshold: 0.85}))

	// A fresh session sees the pair again.
	assert.Len(t, NewSimilarityDetector().Detect(similarityTree(), SimilarityOptions{Threshold: 0.85}), 1)
}

func TestDetectSameStatusOption(t *testing.T) {
	tree := &models.SegmentTree{
		TotalClassified: 2,
		Roots: []*models.Segment{
			{
				SegmentID: "ideal", Name: "Ideal", Status: models.StatusIdeal,
				Children: []*models.Segment{
					leafSegment("ideal-a", models.StatusIdeal, 10, 4, 100),
					leafSegment("ideal-b", models.StatusIdeal, 10, 4, 100),
				},
			},
			leafSegment("lost-a", models.StatusLost, 300, 0, 10),
		},
	}

	// Siblings under the same status are skipped by default.
	assert.Empty(t, NewSimilarityDetector().Detect(tree, SimilarityOptions{Threshold: 0.99}))

	flags := NewSimilarityDetector().Detect(tree, SimilarityOptions{Threshold: 0.99, SameStatusPairs: true})
	require.Len(t, flags, 1)
	assert.Equal(t, "ideal-a", flags[0].SegmentA)
	assert.Equal(t, "ideal-b", flags[0].SegmentB)
}

func TestDetectSkipsEmptyLeaves(t *testing.T) {
	tree := &models.SegmentTree{
		TotalClassified: 1,
		Roots: []*models.Segment{
			leafSegment("a", models.StatusIdeal, 10, 4, 100),
			{SegmentID: "b", Name: "b", Status: models.StatusAtRisk, Aggregates: models.SegmentAggregates{IsEmpty: true}},
		},
	}

	assert.Empty(t, NewSimilarityDetector().Detect(tree, SimilarityOptions{Threshold: 0.1}))
}
