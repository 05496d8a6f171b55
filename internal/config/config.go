package config

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
	"github.com/spf13/cast"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	apperrors "github.com/LucasMargets11/morrisonv2/internal/errors"
	"github.com/LucasMargets11/morrisonv2/internal/keys"
)

// CatalogConfig selects and configures the image catalog store.
type CatalogConfig struct {
	Driver        string `yaml:"driver"` // postgres or dynamodb
	DatabaseURL   string `yaml:"database_url"`
	Table         string `yaml:"table"`
	DynamoDBTable string `yaml:"dynamodb_table"`
}

// PipelineConfig is the naming and sizing configuration shared by the resizer and the
// backfill tool.
type PipelineConfig struct {
	OriginalPrefix    string   `yaml:"original_prefix"`
	DerivedPrefix     string   `yaml:"derived_prefix"`
	AllowedExtensions []string `yaml:"allowed_extensions"`
	TargetSizes       []int    `yaml:"target_sizes"`
	BucketDomain      string   `yaml:"bucket_domain"`
	PublicBaseURL     string   `yaml:"public_base_url"`
	// SizesParameter names an SSM parameter holding the sizes CSV. When set it wins
	// over TargetSizes so every component reads one source.
	SizesParameter string `yaml:"sizes_parameter"`
}

// KafkaConfig configures the bucket-notification consumer.
type KafkaConfig struct {
	Brokers     []string `yaml:"brokers"`
	Topic       string   `yaml:"topic"`
	GroupID     string   `yaml:"group_id"`
	MaxAttempts int      `yaml:"max_attempts"`
}

// Config holds the application configuration
type Config struct {
	LogLevel string `yaml:"log_level"`
	// AwsConfig: AWS SDK uses a shared configuration object that contains
	// credentials, region, retry policies, etc. S3, DynamoDB and SSM clients are
	// created from this single config.
	AwsConfig      aws.Config
	Bucket         string        `yaml:"bucket"`
	S3Endpoint     string        `yaml:"s3_endpoint"`
	S3UsePathStyle bool          `yaml:"s3_use_path_style"`
	StoreTimeout   time.Duration `yaml:"store_timeout"`
	Catalog        CatalogConfig  `yaml:"catalog"`
	Pipeline       PipelineConfig `yaml:"pipeline"`
	Kafka          KafkaConfig    `yaml:"kafka"`
	HealthAddr     string         `yaml:"health_addr"`
}

// Layout builds the key layout described by the pipeline configuration.
func (c *Config) Layout() keys.Layout {
	return keys.NewLayout(c.Pipeline.OriginalPrefix, c.Pipeline.DerivedPrefix, c.Pipeline.AllowedExtensions, c.Pipeline.BucketDomain)
}

// LoadConfig loads configuration from config.yaml, environment variables, or CLI flags
// Priority: CLI flags > Environment variables > config.yaml > defaults
func LoadConfig(configPath string, rootCmd *cobra.Command) (*Config, error) {
	if err := setupViper(configPath, rootCmd); err != nil {
		return nil, err
	}
	return build()
}

// LoadFromEnv loads configuration from defaults and environment variables only, for
// runtimes without a config file or command line (Lambda).
func LoadFromEnv() (*Config, error) {
	setDefaults()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()
	return build()
}

func build() (*Config, error) {
	awsConfig, err := loadAWSConfig(viper.GetString("aws_region"))
	if err != nil {
		return nil, err
	}

	sizes, err := parseTargetSizes(viper.Get("pipeline.target_sizes"))
	if err != nil {
		return nil, fmt.Errorf("invalid pipeline.target_sizes: %w", err)
	}

	return &Config{
		LogLevel:       viper.GetString("log_level"),
		AwsConfig:      awsConfig,
		Bucket:         viper.GetString("bucket"),
		S3Endpoint:     viper.GetString("s3_endpoint"),
		S3UsePathStyle: viper.GetBool("s3_use_path_style"),
		StoreTimeout:   viper.GetDuration("store_timeout"),
		Catalog: CatalogConfig{
			Driver:        strings.ToLower(viper.GetString("catalog.driver")),
			DatabaseURL:   viper.GetString("catalog.database_url"),
			Table:         viper.GetString("catalog.table"),
			DynamoDBTable: viper.GetString("catalog.dynamodb_table"),
		},
		Pipeline: PipelineConfig{
			OriginalPrefix:    viper.GetString("pipeline.original_prefix"),
			DerivedPrefix:     viper.GetString("pipeline.derived_prefix"),
			AllowedExtensions: parseList(viper.Get("pipeline.allowed_extensions")),
			TargetSizes:       sizes,
			BucketDomain:      viper.GetString("pipeline.bucket_domain"),
			PublicBaseURL:     viper.GetString("pipeline.public_base_url"),
			SizesParameter:    viper.GetString("pipeline.sizes_parameter"),
		},
		Kafka: KafkaConfig{
			Brokers:     parseList(viper.Get("kafka.brokers")),
			Topic:       viper.GetString("kafka.topic"),
			GroupID:     viper.GetString("kafka.group_id"),
			MaxAttempts: viper.GetInt("kafka.max_attempts"),
		},
		HealthAddr: viper.GetString("health_addr"),
	}, nil
}

// setupViper configures Viper with defaults, paths, and bindings
func setupViper(configPath string, rootCmd *cobra.Command) error {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")

	if configPath != "" {
		viper.SetConfigFile(configPath)
	}

	setDefaults()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	flags := rootCmd.PersistentFlags()
	for key, flag := range map[string]string{
		"log_level":      "log-level",
		"bucket":         "bucket",
		"catalog.driver": "catalog",
	} {
		if f := flags.Lookup(flag); f != nil {
			if err := viper.BindPFlag(key, f); err != nil {
				return fmt.Errorf("failed to bind flags: %w", err)
			}
		}
	}

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return fmt.Errorf("error reading config file: %w", err)
		}
	}

	return nil
}

// setDefaults sets default configuration values
func setDefaults() {
	viper.SetDefault("log_level", "info")
	viper.SetDefault("aws_region", "us-east-1")
	viper.SetDefault("store_timeout", "30s")
	viper.SetDefault("catalog.driver", "postgres")
	viper.SetDefault("catalog.table", "properties_propertyimage")
	viper.SetDefault("catalog.dynamodb_table", "property_images")
	viper.SetDefault("pipeline.original_prefix", keys.DefaultOriginalPrefix)
	viper.SetDefault("pipeline.derived_prefix", keys.DefaultDerivedPrefix)
	viper.SetDefault("pipeline.allowed_extensions", keys.DefaultExtensions)
	viper.SetDefault("pipeline.target_sizes", "480,768")
	viper.SetDefault("pipeline.bucket_domain", keys.DefaultBucketDomain)
	viper.SetDefault("kafka.group_id", "image-resizer")
	viper.SetDefault("kafka.topic", "bucket-notifications")
	viper.SetDefault("kafka.max_attempts", 3)
	viper.SetDefault("health_addr", ":8081")
}

// loadAWSConfig loads AWS SDK configuration
func loadAWSConfig(region string) (aws.Config, error) {
	cfg, err := awsconfig.LoadDefaultConfig(context.Background(), awsconfig.WithRegion(region))
	if err != nil {
		return aws.Config{}, fmt.Errorf("unable to load AWS SDK config: %v", err)
	}
	return cfg, nil
}

// parseTargetSizes accepts a CSV string (env, flags) or a YAML list.
func parseTargetSizes(raw interface{}) ([]int, error) {
	switch v := raw.(type) {
	case nil:
		return keys.DefaultSizes, nil
	case string:
		return keys.ParseSizes(v)
	default:
		sizes, err := cast.ToIntSliceE(v)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", apperrors.ErrInvalidSizes, err)
		}
		return keys.ValidateSizes(sizes)
	}
}

// parseList accepts a comma-separated string or a YAML list.
func parseList(raw interface{}) []string {
	if s, ok := raw.(string); ok {
		var out []string
		for _, part := range strings.Split(s, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
		return out
	}
	return cast.ToStringSlice(raw)
}

// ParameterGetter is the subset of the SSM client used to read shared settings.
type ParameterGetter interface {
	GetParameter(ctx context.Context, params *ssm.GetParameterInput, optFns ...func(*ssm.Options)) (*ssm.GetParameterOutput, error)
}

// ResolveTargetSizes returns the configured sizes, replaced by the SSM parameter when
// one is configured.
func (c *Config) ResolveTargetSizes(ctx context.Context, client ParameterGetter) ([]int, error) {
	if c.Pipeline.SizesParameter == "" {
		return c.Pipeline.TargetSizes, nil
	}
	return LoadSizesParameter(ctx, client, c.Pipeline.SizesParameter)
}

// LoadSizesParameter reads a sizes CSV such as "480,768" from SSM Parameter Store.
func LoadSizesParameter(ctx context.Context, client ParameterGetter, name string) ([]int, error) {
	out, err := client.GetParameter(ctx, &ssm.GetParameterInput{
		Name: aws.String(name),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to read parameter %s: %w", name, err)
	}
	if out.Parameter == nil || out.Parameter.Value == nil {
		return nil, fmt.Errorf("%w: parameter %s has no value", apperrors.ErrInvalidSizes, name)
	}

	sizes, err := keys.ParseSizes(*out.Parameter.Value)
	if err != nil {
		return nil, fmt.Errorf("parameter %s: %w", name, err)
	}
	return sizes, nil
}

// NewSSMClient creates the Parameter Store client used by ResolveTargetSizes.
func NewSSMClient(awsConfig aws.Config) *ssm.Client {
	return ssm.NewFromConfig(awsConfig)
}

// SetConfigValue sets a configuration value (used for CLI flags)
func SetConfigValue(key string, value interface{}) {
	viper.Set(key, value)
}
