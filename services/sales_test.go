package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"segment-engine/models"
)

func TestSummarizeByMonth(t *testing.T) {
	ts := func(day int) time.Time {
		return time.Date(2024, 1, day, 12, 0, 0, 0, time.UTC)
	}
	orders := []models.Order{
		{OrderID: "o1", CustomerID: "A", Timestamp: ts(5), Amount: 100},
		{OrderID: "o2", CustomerID: "B", Timestamp: ts(20), Amount: 50},
		{OrderID: "o3", CustomerID: "A", Timestamp: ts(5).AddDate(0, 1, 0), Amount: 30},
	}

	got := summarizeByMonth(orders)
	require.Len(t, got, 2)

	assert.Equal(t, "2024-01", got[0].Month)
	assert.Equal(t, 2, got[0].Orders)
	assert.InDelta(t, 150, got[0].Revenue, 1e-9)
	assert.InDelta(t, 75, got[0].MeanTicket, 1e-9)

	assert.Equal(t, "2024-02", got[1].Month)
	assert.Equal(t, 1, got[1].Orders)
}

func TestSummarizeByMonthEmpty(t *testing.T) {
	assert.Empty(t, summarizeByMonth(nil))
}
