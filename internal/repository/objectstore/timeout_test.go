package objectstore

import (
	"bytes"
	"context"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/LucasMargets11/morrisonv2/internal/domain"
)

// deadlineRepository records whether each call carried a deadline.
type deadlineRepository struct {
	*MemoryObjectRepository
	sawDeadline bool
	getCtx      context.Context
}

func (d *deadlineRepository) Head(ctx context.Context, key string) (domain.ObjectInfo, domain.Existence, error) {
	_, d.sawDeadline = ctx.Deadline()
	return d.MemoryObjectRepository.Head(ctx, key)
}

func (d *deadlineRepository) Get(ctx context.Context, key string) (io.ReadCloser, domain.ObjectInfo, error) {
	d.getCtx = ctx
	return d.MemoryObjectRepository.Get(ctx, key)
}

func TestWithTimeout(t *testing.T) {
	inner := &deadlineRepository{MemoryObjectRepository: NewMemoryObjectRepository("media")}
	inner.Seed("a.jpg", []byte("x"), PutOptions{})

	assert.Same(t, ObjectRepository(inner), WithTimeout(inner, 0))

	repo := WithTimeout(inner, time.Minute)
	_, existence, err := repo.Head(context.Background(), "a.jpg")
	require.NoError(t, err)
	assert.Equal(t, domain.Exists, existence)
	assert.True(t, inner.sawDeadline)

	body, _, err := repo.Get(context.Background(), "a.jpg")
	require.NoError(t, err)
	assert.NoError(t, inner.getCtx.Err(), "context must stay alive until the body is closed")
	require.NoError(t, body.Close())
	assert.Error(t, inner.getCtx.Err())

	require.NoError(t, repo.Put(context.Background(), "b.jpg", bytes.NewReader([]byte("y")), PutOptions{}))
	assert.Equal(t, "memory", repo.GetStorageType())
}
