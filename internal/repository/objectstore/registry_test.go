package objectstore

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/LucasMargets11/morrisonv2/internal/errors"
)

func TestBucketRegistry(t *testing.T) {
	media := NewMemoryObjectRepository("media")
	registry := NewBucketRegistry(media)

	repo, err := registry.GetRepositoryForBucket("media")
	require.NoError(t, err)
	assert.Same(t, media, repo)

	_, err = registry.GetRepositoryForBucket("other")
	assert.ErrorIs(t, err, apperrors.ErrUnknownBucket)

	assert.Error(t, registry.RegisterBucket("media", media))
	assert.Equal(t, []string{"media"}, registry.ListBuckets())
}

func TestBucketRegistry_Factory(t *testing.T) {
	registry := NewBucketRegistry()
	calls := 0
	registry.SetFactory(func(name string) (ObjectRepository, error) {
		calls++
		if name == "broken" {
			return nil, errors.New("no credentials")
		}
		return NewMemoryObjectRepository(name), nil
	})

	first, err := registry.GetRepositoryForBucket("uploads")
	require.NoError(t, err)
	second, err := registry.GetRepositoryForBucket("uploads")
	require.NoError(t, err)
	assert.Same(t, first, second)
	assert.Equal(t, 1, calls)

	_, err = registry.GetRepositoryForBucket("broken")
	assert.Error(t, err)
	assert.Equal(t, []string{"uploads"}, registry.ListBuckets())
}
