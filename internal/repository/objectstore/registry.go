package objectstore

import (
	"fmt"
	"sync"

	apperrors "github.com/LucasMargets11/morrisonv2/internal/errors"
)

// RepositoryFactoryFunc builds a repository for a bucket that was not registered up front.
type RepositoryFactoryFunc func(bucketName string) (ObjectRepository, error)

// BucketRegistry routes a bucket name, as carried by an object notification, to the
// repository serving it. It is safe for concurrent use.
type BucketRegistry struct {
	mu           sync.RWMutex
	repositories map[string]ObjectRepository
	bucketNames  []string
	factory      RepositoryFactoryFunc
}

// NewBucketRegistry creates a registry holding repos, keyed by their bucket name.
func NewBucketRegistry(repos ...ObjectRepository) *BucketRegistry {
	r := &BucketRegistry{
		repositories: make(map[string]ObjectRepository),
		bucketNames:  make([]string, 0, len(repos)),
	}
	for _, repo := range repos {
		// Names are unique per constructor call; a duplicate is a caller bug.
		if err := r.RegisterBucket(repo.GetBucketName(), repo); err != nil {
			panic(err)
		}
	}
	return r
}

// SetFactory installs a fallback used for buckets that are not registered. Created
// repositories are cached.
func (r *BucketRegistry) SetFactory(factory RepositoryFactoryFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factory = factory
}

// RegisterBucket adds a bucket and its repository
func (r *BucketRegistry) RegisterBucket(bucketName string, repo ObjectRepository) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.repositories[bucketName]; exists {
		return fmt.Errorf("bucket %s already registered", bucketName)
	}

	r.repositories[bucketName] = repo
	r.bucketNames = append(r.bucketNames, bucketName)
	return nil
}

// GetRepositoryForBucket returns the repository for a specific bucket
func (r *BucketRegistry) GetRepositoryForBucket(bucketName string) (ObjectRepository, error) {
	r.mu.RLock()
	repo, exists := r.repositories[bucketName]
	factory := r.factory
	r.mu.RUnlock()

	if exists {
		return repo, nil
	}
	if factory == nil {
		return nil, fmt.Errorf("%w: %s", apperrors.ErrUnknownBucket, bucketName)
	}

	repo, err := factory(bucketName)
	if err != nil {
		return nil, fmt.Errorf("failed to create repository for bucket %s: %w", bucketName, err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	// Another caller may have raced us here.
	if existing, ok := r.repositories[bucketName]; ok {
		return existing, nil
	}
	r.repositories[bucketName] = repo
	r.bucketNames = append(r.bucketNames, bucketName)
	return repo, nil
}

// ListBuckets returns all registered bucket names
func (r *BucketRegistry) ListBuckets() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	buckets := make([]string, len(r.bucketNames))
	copy(buckets, r.bucketNames)
	return buckets
}
