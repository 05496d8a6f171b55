// Command resizer is the AWS Lambda function that writes WebP derivatives for
// originals announced by S3 ObjectCreated notifications.
package main

import (
	"context"
	"fmt"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	log "github.com/sirupsen/logrus"

	"github.com/LucasMargets11/morrisonv2/internal/config"
	"github.com/LucasMargets11/morrisonv2/internal/logging"
	"github.com/LucasMargets11/morrisonv2/internal/notify"
	"github.com/LucasMargets11/morrisonv2/internal/repository/objectstore"
	"github.com/LucasMargets11/morrisonv2/internal/service"
)

var generator *service.DerivativeGenerator

func init() {
	cfg, err := config.LoadFromEnv()
	if err != nil {
		log.Fatalf("Error loading configuration: %v", err)
	}
	logging.InitJSONLogger(cfg)

	sizes, err := cfg.ResolveTargetSizes(context.Background(), config.NewSSMClient(cfg.AwsConfig))
	if err != nil {
		log.Fatalf("Error resolving target sizes: %v", err)
	}

	// One client serves every bucket that notifies this function.
	client := objectstore.NewS3Client(cfg.AwsConfig, objectstore.S3Options{
		Endpoint:     cfg.S3Endpoint,
		UsePathStyle: cfg.S3UsePathStyle,
	})
	registry := objectstore.NewBucketRegistry()
	registry.SetFactory(func(bucketName string) (objectstore.ObjectRepository, error) {
		return objectstore.WithTimeout(objectstore.NewS3ObjectRepository(client, bucketName), cfg.StoreTimeout), nil
	})

	generator, err = service.NewDerivativeGenerator(registry, cfg.Layout(), sizes)
	if err != nil {
		log.Fatalf("Error creating derivative generator: %v", err)
	}
}

// handler returns the first failure so Lambda retries the whole event.
func handler(ctx context.Context, event events.S3Event) error {
	notifications, err := notify.FromS3Event(event)
	if err != nil {
		return err
	}

	results, err := generator.HandleNotifications(ctx, notifications)
	for _, r := range results {
		log.WithFields(log.Fields{
			"key":     r.Key,
			"written": r.Written,
			"skipped": len(r.Skipped),
			"ignored": r.Ignored,
		}).Info("Notification handled")
	}
	if err != nil {
		return fmt.Errorf("derivative generation failed after %d of %d notifications: %w", len(results), len(notifications), err)
	}
	return nil
}

func main() {
	lambda.Start(handler)
}
