package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/LucasMargets11/morrisonv2/internal/domain"
	"github.com/LucasMargets11/morrisonv2/internal/notify"
	"github.com/LucasMargets11/morrisonv2/internal/repository/objectstore"
	"github.com/LucasMargets11/morrisonv2/internal/server"
	"github.com/LucasMargets11/morrisonv2/internal/service"
)

var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Generate derivatives from bucket notifications read from Kafka",
	Long:  "Consumes S3-format bucket notifications (as published by MinIO's Kafka target) and writes the missing WebP derivatives.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if len(cfg.Kafka.Brokers) == 0 {
			return fmt.Errorf("kafka.brokers is not configured")
		}

		repo, factory, err := newObjectRepository(ctx)
		if err != nil {
			return err
		}
		defer factory.Close()

		// Notifications for other buckets are served by a store of the same kind.
		bucketConfig, _ := objectstore.ParseBucketConfig(cfg.Bucket)
		registry := objectstore.NewBucketRegistry(repo)
		registry.SetFactory(func(bucketName string) (objectstore.ObjectRepository, error) {
			other, err := factory.CreateRepository(ctx, objectstore.BucketConfig{Name: bucketName, Type: bucketConfig.Type})
			if err != nil {
				return nil, err
			}
			return objectstore.WithTimeout(other, cfg.StoreTimeout), nil
		})

		sizes, err := targetSizes(ctx)
		if err != nil {
			return fmt.Errorf("failed to resolve target sizes: %w", err)
		}
		generator, err := service.NewDerivativeGenerator(registry, cfg.Layout(), sizes)
		if err != nil {
			return err
		}

		health := server.NewHealthServer(cfg.HealthAddr)
		go func() {
			if err := health.Start(); err != nil {
				log.Errorf("Health server stopped: %v", err)
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = health.Shutdown(shutdownCtx)
		}()

		reader := notify.NewKafkaReader(cfg.Kafka.Brokers, cfg.Kafka.Topic, cfg.Kafka.GroupID)
		defer reader.Close()

		workerID := uuid.NewString()
		consumer := notify.NewKafkaConsumer(reader, func(ctx context.Context, notifications []domain.Notification) error {
			results, err := generator.HandleNotifications(ctx, notifications)
			for _, r := range results {
				log.WithFields(log.Fields{
					"worker_id": workerID,
					"key":       r.Key,
					"written":   len(r.Written),
					"skipped":   len(r.Skipped),
					"ignored":   r.Ignored,
				}).Info("Notification handled")
			}
			return err
		}, cfg.Kafka.MaxAttempts)

		log.WithFields(log.Fields{
			"worker_id": workerID,
			"topic":     cfg.Kafka.Topic,
			"group_id":  cfg.Kafka.GroupID,
			"sizes":     sizes,
		}).Info("Worker started")
		health.MarkReady()

		return consumer.Run(ctx)
	},
}

func init() {
	rootCmd.AddCommand(workerCmd)
}
