package objectstore

import (
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	log "github.com/sirupsen/logrus"
)

// NewS3Client builds an S3 client from the shared AWS config. A custom endpoint
// switches the client to an S3-compatible service (MinIO, LocalStack).
func NewS3Client(awsConfig aws.Config, opts S3Options) *s3.Client {
	var s3Options []func(*s3.Options)
	if opts.Endpoint != "" {
		log.Debugf("Using custom S3 endpoint %s (path style: %t)", opts.Endpoint, opts.UsePathStyle)
		s3Options = append(s3Options, func(o *s3.Options) {
			o.BaseEndpoint = aws.String(opts.Endpoint)
			o.UsePathStyle = opts.UsePathStyle
		})
	}

	client := s3.NewFromConfig(awsConfig, s3Options...)
	if client == nil {
		log.Fatal("Failed to create S3 client")
	}
	return client
}
