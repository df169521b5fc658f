package config

import (
	"errors"
	"fmt"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

var ErrMissingRequired = errors.New("missing required configuration")

type Config struct {
	DBHost    string `envconfig:"DB_HOST" default:"localhost"`
	DBPort    int    `envconfig:"DB_PORT" default:"5432"`
	DBUser    string `envconfig:"DB_USER" default:"postgres"`
	DBPass    string `envconfig:"DB_PASS" default:"password"`
	DBName    string `envconfig:"DB_NAME" default:"vectorpg"`
	DBSSLMode string `envconfig:"DB_SSLMODE" default:"disable"`

	// Embedding provider
	GeminiAPIKey   string `envconfig:"GEMINI_API_KEY"`
	EmbeddingModel string `envconfig:"EMBEDDING_MODEL" default:"gemini-embedding-001"`
	VectorDim      int    `envconfig:"VECTOR_DIM" default:"768"`

	// Target table layout
	TableSchema        string   `envconfig:"TABLE_SCHEMA" default:"public"`
	TableName          string   `envconfig:"TABLE_NAME" default:"documents"`
	IDColumn           string   `envconfig:"ID_COLUMN" default:"id"`
	ContentColumn      string   `envconfig:"CONTENT_COLUMN" default:"content"`
	EmbeddingColumn    string   `envconfig:"EMBEDDING_COLUMN" default:"embedding"`
	MetadataJSONColumn string   `envconfig:"METADATA_JSON_COLUMN" default:"metadata"`
	MetadataColumns    []string `envconfig:"METADATA_COLUMNS"`
	IgnoreMetadata     []string `envconfig:"IGNORE_METADATA_COLUMNS"`

	DefaultBatchSize int `envconfig:"DEFAULT_BATCH_SIZE" default:"100"`

	// Messaging
	NSQLookupd string `envconfig:"NSQ_LOOKUPD" default:"nsqlookupd:4161"`
	NSQDHost   string `envconfig:"NSQD_HOST" default:"nsqd:4150"`
	NSQDHTTP   string `envconfig:"NSQD_HTTP" default:"nsqd:4151"`

	EnableAPI         bool   `envconfig:"ENABLE_API" default:"true"`
	EnableIndexWorker bool   `envconfig:"ENABLE_INDEX_WORKER" default:"false"`
	MigrationPath     string `envconfig:"MIGRATION_PATH" default:"file://migrations"`

	// Server
	ServerPort int `envconfig:"SERVER_PORT" default:"8081"`

	// Resilience
	BootstrapRetryAttempts     int `envconfig:"BOOTSTRAP_RETRY_ATTEMPTS" default:"10"`
	BootstrapRetryDelaySeconds int `envconfig:"BOOTSTRAP_RETRY_DELAY_SECONDS" default:"2"`
}

func Load() (*Config, error) {
	// Env vars may be set in the shell instead; load errors are ignored.
	_ = godotenv.Load(".env")

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) Validate() error {
	if c.DBHost == "" {
		return fmt.Errorf("%w: DB_HOST", ErrMissingRequired)
	}
	if c.DBUser == "" {
		return fmt.Errorf("%w: DB_USER", ErrMissingRequired)
	}
	if c.DBName == "" {
		return fmt.Errorf("%w: DB_NAME", ErrMissingRequired)
	}
	if c.TableName == "" {
		return fmt.Errorf("%w: TABLE_NAME", ErrMissingRequired)
	}
	if c.VectorDim <= 0 {
		return fmt.Errorf("%w: VECTOR_DIM must be positive", ErrMissingRequired)
	}
	if len(c.MetadataColumns) > 0 && len(c.IgnoreMetadata) > 0 {
		return errors.New("METADATA_COLUMNS and IGNORE_METADATA_COLUMNS are mutually exclusive")
	}
	return nil
}

// DSN builds the lib/pq connection string for the configured database.
func (c *Config) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.DBHost, c.DBPort, c.DBUser, c.DBPass, c.DBName, c.DBSSLMode)
}
