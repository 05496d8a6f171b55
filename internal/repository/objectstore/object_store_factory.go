// Package objectstore provides object storage repository implementations and factory.
package objectstore

import (
	"context"
	"fmt"
	"io"
	"strings"

	"cloud.google.com/go/storage"
	"github.com/aws/aws-sdk-go-v2/aws"

	"github.com/LucasMargets11/morrisonv2/internal/domain"
	apperrors "github.com/LucasMargets11/morrisonv2/internal/errors"
)

// MetadataDirective selects whether a copy keeps the source object's metadata or
// replaces it with the values given in CopyOptions.
type MetadataDirective int

const (
	MetadataPreserve MetadataDirective = iota
	MetadataReplace
)

// PutOptions are the object attributes written alongside the body.
type PutOptions struct {
	ContentType  string
	CacheControl string
	Metadata     map[string]string
}

// CopyOptions configure a server-side copy. ContentType, CacheControl and Metadata
// are only applied with MetadataReplace.
type CopyOptions struct {
	Directive    MetadataDirective
	ContentType  string
	CacheControl string
	Metadata     map[string]string
}

// ObjectRepository defines the interface for object storage operations
type ObjectRepository interface {
	// Head probes key. A confirmed missing object is (NotFound, nil); any other
	// failure is (ProbeFailed, err).
	Head(ctx context.Context, key string) (domain.ObjectInfo, domain.Existence, error)
	Get(ctx context.Context, key string) (io.ReadCloser, domain.ObjectInfo, error)
	Put(ctx context.Context, key string, body io.Reader, opts PutOptions) error
	Copy(ctx context.Context, srcKey, dstKey string, opts CopyOptions) error
	GetBucketName() string
	GetStorageType() string
}

// RepositoryType represents the type of object storage
type RepositoryType string

const (
	S3Type     RepositoryType = "s3"
	GCSType    RepositoryType = "gcs"
	MemoryType RepositoryType = "memory"
)

// BucketConfig holds configuration for a storage bucket
type BucketConfig struct {
	Name string
	Type RepositoryType
}

// S3Options tune the S3 client for S3-compatible services such as MinIO.
type S3Options struct {
	Endpoint     string
	UsePathStyle bool
}

// ObjectRepositoryFactory creates object repository instances
type ObjectRepositoryFactory struct {
	awsConfig aws.Config
	s3Options S3Options
	gcsClient *storage.Client
}

// NewObjectRepositoryFactory creates a new factory
func NewObjectRepositoryFactory(awsConfig aws.Config, s3Options S3Options) *ObjectRepositoryFactory {
	return &ObjectRepositoryFactory{
		awsConfig: awsConfig,
		s3Options: s3Options,
	}
}

// CreateRepository creates a repository based on bucket configuration. The GCS client
// is only created when a GCS bucket is requested.
func (f *ObjectRepositoryFactory) CreateRepository(ctx context.Context, config BucketConfig) (ObjectRepository, error) {
	switch config.Type {
	case S3Type:
		client := NewS3Client(f.awsConfig, f.s3Options)
		return NewS3ObjectRepository(client, config.Name), nil
	case GCSType:
		if f.gcsClient == nil {
			client, err := storage.NewClient(ctx)
			if err != nil {
				return nil, fmt.Errorf("unable to create GCS client: %w", err)
			}
			f.gcsClient = client
		}
		return NewGCSObjectRepository(f.gcsClient, config.Name), nil
	case MemoryType:
		return NewMemoryObjectRepository(config.Name), nil
	default:
		return nil, fmt.Errorf("%w: %s", apperrors.ErrUnsupportedStorage, config.Type)
	}
}

// Close releases clients held by the factory.
func (f *ObjectRepositoryFactory) Close() error {
	if f.gcsClient != nil {
		return f.gcsClient.Close()
	}
	return nil
}

// ParseBucketConfig parses bucket configuration from string
// Formats: "s3://bucket-name", "gs://bucket-name", "mem://bucket-name", "s3:bucket-name",
// or "bucket-name" (defaults to S3)
func ParseBucketConfig(bucketStr string) (BucketConfig, error) {
	bucketStr = strings.TrimSpace(bucketStr)
	if bucketStr == "" {
		return BucketConfig{}, fmt.Errorf("bucket name cannot be empty")
	}

	// Handle URI format (s3://, gs://)
	if strings.Contains(bucketStr, "://") {
		parts := strings.SplitN(bucketStr, "://", 2)
		scheme := strings.ToLower(strings.TrimSpace(parts[0]))
		bucketName := strings.Trim(strings.TrimSpace(parts[1]), "/")

		if bucketName == "" {
			return BucketConfig{}, fmt.Errorf("bucket name cannot be empty")
		}

		var repoType RepositoryType
		switch scheme {
		case "s3":
			repoType = S3Type
		case "gs":
			repoType = GCSType
		case "mem":
			repoType = MemoryType
		default:
			return BucketConfig{}, fmt.Errorf("%w: scheme %s", apperrors.ErrUnsupportedStorage, scheme)
		}

		return BucketConfig{
			Name: bucketName,
			Type: repoType,
		}, nil
	}

	// Handle colon format (s3:bucket-name)
	parts := strings.SplitN(bucketStr, ":", 2)
	if len(parts) != 2 {
		// Default to S3 for backward compatibility
		return BucketConfig{
			Name: bucketStr,
			Type: S3Type,
		}, nil
	}

	repoType := RepositoryType(strings.ToLower(strings.TrimSpace(parts[0])))
	bucketName := strings.TrimSpace(parts[1])

	if bucketName == "" {
		return BucketConfig{}, fmt.Errorf("bucket name cannot be empty")
	}

	return BucketConfig{
		Name: bucketName,
		Type: repoType,
	}, nil
}
