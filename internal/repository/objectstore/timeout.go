package objectstore

import (
	"context"
	"io"
	"time"

	"github.com/LucasMargets11/morrisonv2/internal/domain"
)

// DefaultCallTimeout bounds a single store call when no timeout is configured.
const DefaultCallTimeout = 30 * time.Second

// timeoutRepository bounds every call to the wrapped repository.
type timeoutRepository struct {
	ObjectRepository
	timeout time.Duration
}

// WithTimeout wraps repo so each call runs under its own deadline. A non-positive
// timeout returns repo unchanged.
func WithTimeout(repo ObjectRepository, timeout time.Duration) ObjectRepository {
	if timeout <= 0 {
		return repo
	}
	return &timeoutRepository{ObjectRepository: repo, timeout: timeout}
}

func (r *timeoutRepository) Head(ctx context.Context, key string) (domain.ObjectInfo, domain.Existence, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()
	return r.ObjectRepository.Head(ctx, key)
}

// Get keeps the deadline alive until the returned body is closed.
func (r *timeoutRepository) Get(ctx context.Context, key string) (io.ReadCloser, domain.ObjectInfo, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	body, info, err := r.ObjectRepository.Get(ctx, key)
	if err != nil {
		cancel()
		return nil, info, err
	}
	return &cancelOnClose{ReadCloser: body, cancel: cancel}, info, nil
}

func (r *timeoutRepository) Put(ctx context.Context, key string, body io.Reader, opts PutOptions) error {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()
	return r.ObjectRepository.Put(ctx, key, body, opts)
}

func (r *timeoutRepository) Copy(ctx context.Context, srcKey, dstKey string, opts CopyOptions) error {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()
	return r.ObjectRepository.Copy(ctx, srcKey, dstKey, opts)
}

type cancelOnClose struct {
	io.ReadCloser
	cancel context.CancelFunc
}

func (c *cancelOnClose) Close() error {
	defer c.cancel()
	return c.ReadCloser.Close()
}
