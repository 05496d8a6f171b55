package objectstore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
	log "github.com/sirupsen/logrus"

	"github.com/LucasMargets11/morrisonv2/internal/domain"
	apperrors "github.com/LucasMargets11/morrisonv2/internal/errors"
)

// S3ObjectRepository manages S3 interactions for objects.
type S3ObjectRepository struct {
	client     *s3.Client
	uploader   *manager.Uploader
	bucketName string
}

// NewS3ObjectRepository initializes a new S3ObjectRepository.
func NewS3ObjectRepository(client *s3.Client, bucketName string) *S3ObjectRepository {
	return &S3ObjectRepository{
		client:     client,
		uploader:   manager.NewUploader(client),
		bucketName: bucketName,
	}
}

// GetBucketName returns the bucket name.
func (r *S3ObjectRepository) GetBucketName() string {
	return r.bucketName
}

// GetStorageType returns the object store type.
func (r *S3ObjectRepository) GetStorageType() string {
	return string(S3Type)
}

// Head checks whether key exists and returns its attributes.
func (r *S3ObjectRepository) Head(ctx context.Context, key string) (domain.ObjectInfo, domain.Existence, error) {
	result, err := r.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(r.bucketName),
		Key:    aws.String(key),
	})
	if err != nil {
		if isNotFound(err) {
			return domain.ObjectInfo{Key: key}, domain.NotFound, nil
		}
		return domain.ObjectInfo{Key: key}, domain.ProbeFailed, fmt.Errorf("failed to head s3://%s/%s: %w", r.bucketName, key, err)
	}

	return domain.ObjectInfo{
		Key:          key,
		Size:         aws.ToInt64(result.ContentLength),
		ContentType:  aws.ToString(result.ContentType),
		CacheControl: aws.ToString(result.CacheControl),
		Metadata:     result.Metadata,
	}, domain.Exists, nil
}

// Get downloads an object from S3. The caller closes the returned body.
func (r *S3ObjectRepository) Get(ctx context.Context, key string) (io.ReadCloser, domain.ObjectInfo, error) {
	result, err := r.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(r.bucketName),
		Key:    aws.String(key),
	})
	if err != nil {
		if isNotFound(err) {
			return nil, domain.ObjectInfo{}, fmt.Errorf("%w: s3://%s/%s", apperrors.ErrObjectNotFound, r.bucketName, key)
		}
		return nil, domain.ObjectInfo{}, fmt.Errorf("failed to get s3://%s/%s: %w", r.bucketName, key, err)
	}

	return result.Body, domain.ObjectInfo{
		Key:          key,
		Size:         aws.ToInt64(result.ContentLength),
		ContentType:  aws.ToString(result.ContentType),
		CacheControl: aws.ToString(result.CacheControl),
		Metadata:     result.Metadata,
	}, nil
}

// Put uploads an object to S3 through the multipart-aware upload manager.
func (r *S3ObjectRepository) Put(ctx context.Context, key string, body io.Reader, opts PutOptions) error {
	input := &s3.PutObjectInput{
		Bucket:   aws.String(r.bucketName),
		Key:      aws.String(key),
		Body:     body,
		Metadata: opts.Metadata,
	}
	if opts.ContentType != "" {
		input.ContentType = aws.String(opts.ContentType)
	}
	if opts.CacheControl != "" {
		input.CacheControl = aws.String(opts.CacheControl)
	}

	log.Debugf("Uploading to S3: s3://%s/%s", r.bucketName, key)
	if _, err := r.uploader.Upload(ctx, input); err != nil {
		return fmt.Errorf("failed to upload s3://%s/%s: %w", r.bucketName, key, err)
	}
	return nil
}

// Copy performs a server-side copy within the bucket. Copying a key onto itself is
// only accepted by S3 with MetadataReplace.
func (r *S3ObjectRepository) Copy(ctx context.Context, srcKey, dstKey string, opts CopyOptions) error {
	input := &s3.CopyObjectInput{
		Bucket:            aws.String(r.bucketName),
		Key:               aws.String(dstKey),
		CopySource:        aws.String(copySource(r.bucketName, srcKey)),
		MetadataDirective: types.MetadataDirectiveCopy,
	}
	if opts.Directive == MetadataReplace {
		input.MetadataDirective = types.MetadataDirectiveReplace
		input.Metadata = opts.Metadata
		if opts.ContentType != "" {
			input.ContentType = aws.String(opts.ContentType)
		}
		if opts.CacheControl != "" {
			input.CacheControl = aws.String(opts.CacheControl)
		}
	}

	log.Debugf("Copying s3://%s/%s -> %s (%s)", r.bucketName, srcKey, dstKey, input.MetadataDirective)
	if _, err := r.client.CopyObject(ctx, input); err != nil {
		return fmt.Errorf("failed to copy s3://%s/%s to %s: %w", r.bucketName, srcKey, dstKey, err)
	}
	return nil
}

// copySource builds the URL-encoded "bucket/key" form CopyObject expects, keeping
// the path separators intact.
func copySource(bucket, key string) string {
	segments := strings.Split(key, "/")
	for i, s := range segments {
		segments[i] = url.PathEscape(s)
	}
	return bucket + "/" + strings.Join(segments, "/")
}

// isNotFound only matches errors that confirm the object is absent.
func isNotFound(err error) bool {
	var notFound *types.NotFound
	var noSuchKey *types.NoSuchKey
	if errors.As(err, &notFound) || errors.As(err, &noSuchKey) {
		return true
	}

	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "404", "NoSuchKey", "NotFound":
			return true
		}
	}
	return false
}
