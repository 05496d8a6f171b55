package db

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/LucasMargets11/morrisonv2/internal/domain"
)

func TestChunkRecords(t *testing.T) {
	records := make([]domain.ImageRecord, 60)
	for i := range records {
		records[i].ID = int64(i + 1)
	}

	chunks := chunkRecords(records, batchWriteLimit)
	assert.Len(t, chunks, 3)
	assert.Len(t, chunks[0], 25)
	assert.Len(t, chunks[1], 25)
	assert.Len(t, chunks[2], 10)
	assert.Equal(t, int64(51), chunks[2][0].ID)

	assert.Empty(t, chunkRecords(nil, batchWriteLimit))
	assert.Len(t, chunkRecords(records[:25], batchWriteLimit), 1)
}
