package matcher

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/your-org/discid/internal/models"
)

func TestAggregateTopKKeepsBestRowPerDisc(t *testing.T) {
	rows := []models.StoreRow{
		{ImageID: 1, DiscID: 10, Similarity: 0.80},
		{ImageID: 2, DiscID: 10, Similarity: 0.92},
		{ImageID: 3, DiscID: 20, Similarity: 0.85},
	}

	got := aggregateTopK(rows, 5)

	assert.Len(t, got, 2)
	assert.Equal(t, int64(10), got[0].DiscID)
	assert.Equal(t, 0.92, got[0].Similarity)
	assert.Equal(t, int64(20), got[1].DiscID)
}

func TestAggregateTopKBreaksTiesByLowerDiscID(t *testing.T) {
	rows := []models.StoreRow{
		{ImageID: 1, DiscID: 30, Similarity: 0.5},
		{ImageID: 2, DiscID: 20, Similarity: 0.5},
		{ImageID: 3, DiscID: 25, Similarity: 0.5},
	}

	got := aggregateTopK(rows, 5)

	assert.Equal(t, []int64{20, 25, 30}, []int64{got[0].DiscID, got[1].DiscID, got[2].DiscID})
}

func TestAggregateTopKTruncates(t *testing.T) {
	rows := []models.StoreRow{
		{ImageID: 1, DiscID: 1, Similarity: 0.9},
		{ImageID: 2, DiscID: 2, Similarity: 0.8},
		{ImageID: 3, DiscID: 3, Similarity: 0.7},
	}

	got := aggregateTopK(rows, 2)

	assert.Len(t, got, 2)
	assert.Equal(t, int64(1), got[0].DiscID)
	assert.Equal(t, int64(2), got[1].DiscID)
}

func TestResultLabel(t *testing.T) {
	assert.Equal(t, "empty", resultLabel(0))
	assert.Equal(t, "found", resultLabel(3))
}
