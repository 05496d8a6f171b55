package main

import (
	"context"
	"fmt"
	"os"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/LucasMargets11/morrisonv2/internal/config"
	apperrors "github.com/LucasMargets11/morrisonv2/internal/errors"
	"github.com/LucasMargets11/morrisonv2/internal/logging"
	"github.com/LucasMargets11/morrisonv2/internal/repository/db"
	"github.com/LucasMargets11/morrisonv2/internal/repository/migrate"
	"github.com/LucasMargets11/morrisonv2/internal/repository/objectstore"
	"github.com/LucasMargets11/morrisonv2/internal/service"
)

var (
	cfg        *config.Config
	configPath string
)

var rootCmd = &cobra.Command{
	Use:          "imgctl",
	Short:        "Operator CLI for the property image pipeline",
	Long:         "Reconciles the image catalog with the original/derived key layout, migrates local media, and runs the derivative worker.",
	SilenceUsage: true,
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file (default ./config.yaml or ./config/config.yaml)")
	rootCmd.PersistentFlags().String("log-level", "", "log level: trace, debug, info, warn, error")
	rootCmd.PersistentFlags().String("bucket", "", "bucket URI, e.g. s3://media or gs://media")
	rootCmd.PersistentFlags().String("catalog", "", "catalog driver: postgres or dynamodb")
}

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize and migrate the catalog database",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		switch cfg.Catalog.Driver {
		case "postgres":
			pool, err := db.NewPostgresPool(ctx, cfg.Catalog.DatabaseURL)
			if err != nil {
				return fmt.Errorf("failed to connect to the database: %w", err)
			}
			defer pool.Close()
			if err := migrate.PostgresUp(ctx, pool); err != nil {
				return fmt.Errorf("failed to migrate the database: %w", err)
			}
		case "dynamodb":
			dynamoDb, err := db.NewDatabase(cfg.AwsConfig)
			if err != nil {
				return fmt.Errorf("failed to connect to the database: %w", err)
			}
			if err := dynamoDb.MigrateDb(ctx, cfg.Catalog.DynamoDBTable); err != nil {
				return fmt.Errorf("failed to migrate the database: %w", err)
			}
		default:
			return fmt.Errorf("%w: %q", apperrors.ErrUnsupportedCatalog, cfg.Catalog.Driver)
		}

		fmt.Println("Database initialized and migrated successfully")
		return nil
	},
}

var downCmd = &cobra.Command{
	Use:   "down",
	Short: "Roll back catalog database migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		switch cfg.Catalog.Driver {
		case "postgres":
			pool, err := db.NewPostgresPool(ctx, cfg.Catalog.DatabaseURL)
			if err != nil {
				return fmt.Errorf("failed to connect to the database: %w", err)
			}
			defer pool.Close()
			if err := migrate.PostgresDown(ctx, pool); err != nil {
				return fmt.Errorf("failed to roll back migrations: %w", err)
			}
		case "dynamodb":
			dynamoDb, err := db.NewDatabase(cfg.AwsConfig)
			if err != nil {
				return fmt.Errorf("failed to connect to the database: %w", err)
			}
			if err := dynamoDb.MigrateDown(ctx, cfg.Catalog.DynamoDBTable); err != nil {
				return fmt.Errorf("failed to roll back migrations: %w", err)
			}
		default:
			return fmt.Errorf("%w: %q", apperrors.ErrUnsupportedCatalog, cfg.Catalog.Driver)
		}

		fmt.Println("Database migrations rolled back successfully")
		return nil
	},
}

func initConfig() {
	var err error
	cfg, err = config.LoadConfig(configPath, rootCmd)
	if err != nil {
		log.Fatalf("Error loading configuration: %v", err)
	}

	logging.InitLogger(cfg)
}

// newObjectRepository opens the configured bucket. Every call on the returned
// repository is bounded by store_timeout.
func newObjectRepository(ctx context.Context) (objectstore.ObjectRepository, *objectstore.ObjectRepositoryFactory, error) {
	if cfg.Bucket == "" {
		return nil, nil, apperrors.ConfigNotSetError("BUCKET")
	}
	bucketConfig, err := objectstore.ParseBucketConfig(cfg.Bucket)
	if err != nil {
		return nil, nil, err
	}

	factory := objectstore.NewObjectRepositoryFactory(cfg.AwsConfig, objectstore.S3Options{
		Endpoint:     cfg.S3Endpoint,
		UsePathStyle: cfg.S3UsePathStyle,
	})
	repo, err := factory.CreateRepository(ctx, bucketConfig)
	if err != nil {
		factory.Close()
		return nil, nil, err
	}
	return objectstore.WithTimeout(repo, cfg.StoreTimeout), factory, nil
}

// newImageCatalog connects to the catalog selected by catalog.driver. The returned
// func releases the connection.
func newImageCatalog(ctx context.Context) (service.ImageCatalog, func(), error) {
	switch cfg.Catalog.Driver {
	case "postgres":
		if cfg.Catalog.DatabaseURL == "" {
			return nil, nil, apperrors.ConfigNotSetError("CATALOG_DATABASE_URL")
		}
		pool, err := db.NewPostgresPool(ctx, cfg.Catalog.DatabaseURL)
		if err != nil {
			return nil, nil, err
		}
		return db.NewPostgresImageRepository(pool, cfg.Catalog.Table), pool.Close, nil
	case "dynamodb":
		dynamoDb, err := db.NewDatabase(cfg.AwsConfig)
		if err != nil {
			return nil, nil, err
		}
		return db.NewDynamoImageRepository(dynamoDb.Client, cfg.Catalog.DynamoDBTable), func() {}, nil
	default:
		return nil, nil, fmt.Errorf("%w: %q", apperrors.ErrUnsupportedCatalog, cfg.Catalog.Driver)
	}
}

// targetSizes returns the configured derivative widths, read from SSM when
// pipeline.sizes_parameter is set.
func targetSizes(ctx context.Context) ([]int, error) {
	if cfg.Pipeline.SizesParameter == "" {
		return cfg.Pipeline.TargetSizes, nil
	}
	return cfg.ResolveTargetSizes(ctx, config.NewSSMClient(cfg.AwsConfig))
}

func init() {
	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(downCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}
