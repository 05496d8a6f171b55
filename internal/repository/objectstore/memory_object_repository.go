package objectstore

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"maps"
	"sync"

	"github.com/LucasMargets11/morrisonv2/internal/domain"
	apperrors "github.com/LucasMargets11/morrisonv2/internal/errors"
)

// Operation is a write recorded by MemoryObjectRepository.
type Operation struct {
	Kind      string // "put" or "copy"
	Key       string
	SourceKey string
	Directive MetadataDirective
}

type memoryObject struct {
	data []byte
	info domain.ObjectInfo
}

// MemoryObjectRepository is an in-memory ObjectRepository used for local dry runs and tests.
type MemoryObjectRepository struct {
	mu         sync.RWMutex
	bucketName string
	objects    map[string]memoryObject
	operations []Operation
}

// NewMemoryObjectRepository creates an empty in-memory bucket.
func NewMemoryObjectRepository(bucketName string) *MemoryObjectRepository {
	return &MemoryObjectRepository{
		bucketName: bucketName,
		objects:    make(map[string]memoryObject),
	}
}

// Seed stores an object without recording a write operation.
func (r *MemoryObjectRepository) Seed(key string, data []byte, opts PutOptions) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.objects[key] = newMemoryObject(key, data, opts.ContentType, opts.CacheControl, opts.Metadata)
}

// Operations returns the writes performed since creation.
func (r *MemoryObjectRepository) Operations() []Operation {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ops := make([]Operation, len(r.operations))
	copy(ops, r.operations)
	return ops
}

// Object returns the stored bytes for key.
func (r *MemoryObjectRepository) Object(key string) ([]byte, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	obj, ok := r.objects[key]
	return obj.data, ok
}

// Keys returns every stored key.
func (r *MemoryObjectRepository) Keys() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	keys := make([]string, 0, len(r.objects))
	for k := range r.objects {
		keys = append(keys, k)
	}
	return keys
}

func (r *MemoryObjectRepository) Head(ctx context.Context, key string) (domain.ObjectInfo, domain.Existence, error) {
	if err := ctx.Err(); err != nil {
		return domain.ObjectInfo{Key: key}, domain.ProbeFailed, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	obj, ok := r.objects[key]
	if !ok {
		return domain.ObjectInfo{Key: key}, domain.NotFound, nil
	}
	return obj.info, domain.Exists, nil
}

func (r *MemoryObjectRepository) Get(ctx context.Context, key string) (io.ReadCloser, domain.ObjectInfo, error) {
	if err := ctx.Err(); err != nil {
		return nil, domain.ObjectInfo{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	obj, ok := r.objects[key]
	if !ok {
		return nil, domain.ObjectInfo{}, fmt.Errorf("%w: mem://%s/%s", apperrors.ErrObjectNotFound, r.bucketName, key)
	}
	return io.NopCloser(bytes.NewReader(obj.data)), obj.info, nil
}

func (r *MemoryObjectRepository) Put(ctx context.Context, key string, body io.Reader, opts PutOptions) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := io.ReadAll(body)
	if err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.objects[key] = newMemoryObject(key, data, opts.ContentType, opts.CacheControl, opts.Metadata)
	r.operations = append(r.operations, Operation{Kind: "put", Key: key})
	return nil
}

func (r *MemoryObjectRepository) Copy(ctx context.Context, srcKey, dstKey string, opts CopyOptions) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	src, ok := r.objects[srcKey]
	if !ok {
		return fmt.Errorf("%w: mem://%s/%s", apperrors.ErrObjectNotFound, r.bucketName, srcKey)
	}
	if srcKey == dstKey && opts.Directive != MetadataReplace {
		return fmt.Errorf("copying %s onto itself requires replacing its metadata", srcKey)
	}

	dst := newMemoryObject(dstKey, src.data, src.info.ContentType, src.info.CacheControl, src.info.Metadata)
	if opts.Directive == MetadataReplace {
		dst = newMemoryObject(dstKey, src.data, opts.ContentType, opts.CacheControl, opts.Metadata)
	}
	r.objects[dstKey] = dst
	r.operations = append(r.operations, Operation{Kind: "copy", Key: dstKey, SourceKey: srcKey, Directive: opts.Directive})
	return nil
}

func (r *MemoryObjectRepository) GetBucketName() string {
	return r.bucketName
}

func (r *MemoryObjectRepository) GetStorageType() string {
	return string(MemoryType)
}

func newMemoryObject(key string, data []byte, contentType, cacheControl string, metadata map[string]string) memoryObject {
	buf := make([]byte, len(data))
	copy(buf, data)
	return memoryObject{
		data: buf,
		info: domain.ObjectInfo{
			Key:          key,
			Size:         int64(len(buf)),
			ContentType:  contentType,
			CacheControl: cacheControl,
			Metadata:     maps.Clone(metadata),
		},
	}
}
