package objectstore

import (
	"context"
	"errors"
	"fmt"
	"io"

	"cloud.google.com/go/storage"
	log "github.com/sirupsen/logrus"

	"github.com/LucasMargets11/morrisonv2/internal/domain"
	apperrors "github.com/LucasMargets11/morrisonv2/internal/errors"
)

// GCSObjectRepository implements ObjectRepository for Google Cloud Storage
type GCSObjectRepository struct {
	client     *storage.Client
	bucketName string
}

// NewGCSObjectRepository creates a new GCS object repository
func NewGCSObjectRepository(client *storage.Client, bucketName string) *GCSObjectRepository {
	return &GCSObjectRepository{
		client:     client,
		bucketName: bucketName,
	}
}

// Head checks whether key exists and returns its attributes.
func (r *GCSObjectRepository) Head(ctx context.Context, key string) (domain.ObjectInfo, domain.Existence, error) {
	attrs, err := r.client.Bucket(r.bucketName).Object(key).Attrs(ctx)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotExist) {
			return domain.ObjectInfo{Key: key}, domain.NotFound, nil
		}
		return domain.ObjectInfo{Key: key}, domain.ProbeFailed, fmt.Errorf("failed to stat gs://%s/%s: %w", r.bucketName, key, err)
	}

	return domain.ObjectInfo{
		Key:          key,
		Size:         attrs.Size,
		ContentType:  attrs.ContentType,
		CacheControl: attrs.CacheControl,
		Metadata:     attrs.Metadata,
	}, domain.Exists, nil
}

// Get downloads an object from GCS
func (r *GCSObjectRepository) Get(ctx context.Context, key string) (io.ReadCloser, domain.ObjectInfo, error) {
	log.Debugf("Downloading from GCS: gs://%s/%s", r.bucketName, key)

	reader, err := r.client.Bucket(r.bucketName).Object(key).NewReader(ctx)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotExist) {
			return nil, domain.ObjectInfo{}, fmt.Errorf("%w: gs://%s/%s", apperrors.ErrObjectNotFound, r.bucketName, key)
		}
		return nil, domain.ObjectInfo{}, fmt.Errorf("failed to download from GCS: %w", err)
	}

	return reader, domain.ObjectInfo{
		Key:          key,
		Size:         reader.Attrs.Size,
		ContentType:  reader.Attrs.ContentType,
		CacheControl: reader.Attrs.CacheControl,
	}, nil
}

// Put uploads an object to GCS
func (r *GCSObjectRepository) Put(ctx context.Context, key string, body io.Reader, opts PutOptions) error {
	log.Debugf("Uploading to GCS: gs://%s/%s", r.bucketName, key)

	writer := r.client.Bucket(r.bucketName).Object(key).NewWriter(ctx)
	writer.ContentType = opts.ContentType
	writer.CacheControl = opts.CacheControl
	writer.Metadata = opts.Metadata

	if _, err := io.Copy(writer, body); err != nil {
		writer.Close()
		return fmt.Errorf("failed to upload to GCS: %w", err)
	}
	// The object is only committed on Close.
	if err := writer.Close(); err != nil {
		return fmt.Errorf("failed to upload to GCS: %w", err)
	}
	return nil
}

// Copy rewrites srcKey into dstKey. Without replacement attributes GCS carries the
// source metadata over.
func (r *GCSObjectRepository) Copy(ctx context.Context, srcKey, dstKey string, opts CopyOptions) error {
	bucket := r.client.Bucket(r.bucketName)
	copier := bucket.Object(dstKey).CopierFrom(bucket.Object(srcKey))

	if opts.Directive == MetadataReplace {
		copier.ContentType = opts.ContentType
		copier.CacheControl = opts.CacheControl
		copier.Metadata = opts.Metadata
	}

	if _, err := copier.Run(ctx); err != nil {
		return fmt.Errorf("failed to copy gs://%s/%s to %s: %w", r.bucketName, srcKey, dstKey, err)
	}
	return nil
}

// GetBucketName returns the bucket name
func (r *GCSObjectRepository) GetBucketName() string {
	return r.bucketName
}

// GetStorageType returns the storage type
func (r *GCSObjectRepository) GetStorageType() string {
	return string(GCSType)
}
