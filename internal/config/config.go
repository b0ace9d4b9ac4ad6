// Package config provides configuration structures and validation for the
// reconciliation engine. It handles environment-based configuration for the
// data stores, the matching tolerances, the link-event pipeline, and the
// audit API server.
package config

import (
	"errors"
	"strings"
	"time"
)

// Config holds the complete application configuration. Each field represents
// a major subsystem's configuration and is validated during startup.
type Config struct {
	Application ApplicationConfig
	Logging     LoggingConfig
	Server      ServerConfig
	Postgres    PostgresConfig
	MongoDB     MongoDBConfig
	Kafka       KafkaConfig
	Outbox      OutboxConfig
	Publisher   PublisherConfig
	Matching    MatchingConfig
}

// ApplicationConfig contains general application configuration
type ApplicationConfig struct {
	Env  string
	Name string
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level string
}

// ServerConfig contains HTTP server settings for the audit/report API
type ServerConfig struct {
	Port            int           // Port to listen on
	ShutdownTimeout time.Duration // Grace period for server shutdown
	ReadTimeout     time.Duration // Maximum duration for reading entire request
	WriteTimeout    time.Duration // Maximum duration for writing response
	IdleTimeout     time.Duration // Maximum duration to wait for next request
}

// PostgresConfig contains PostgreSQL configuration
type PostgresConfig struct {
	URL             string        // Database connection string
	MaxConns        int32         // Maximum number of open connections
	MinConns        int32         // Minimum number of idle connections
	ConnMaxLifetime time.Duration // Maximum lifetime of a connection
	ConnMaxIdleTime time.Duration // Maximum idle time of a connection
	MigrationsPath  string        // Path to migration files
}

// MongoDBConfig contains MongoDB configuration for the audit store
type MongoDBConfig struct {
	URI             string
	Database        string
	Timeout         time.Duration
	MaxPoolSize     uint64
	MinPoolSize     uint64
	MaxConnIdleTime time.Duration
}

// KafkaConfig contains Kafka settings for link-event publication
type KafkaConfig struct {
	Brokers           string
	LinkEventTopic    string
	NumPartitions     int
	ReplicationFactor int
	WriteTimeout      time.Duration
}

// OutboxConfig controls draining of pending link events after a run
type OutboxConfig struct {
	BatchSize        int
	MaxRetryAttempts int // Maximum number of publish attempts per message
}

// PublisherConfig contains worker pool settings for the outbox drain
type PublisherConfig struct {
	PoolSize int // Maximum number of concurrent publishes
}

// MatchingConfig carries the engine tolerances. Every value here is an
// operator-overridable default; the CLI flags take precedence per run.
type MatchingConfig struct {
	AmountTolerancePct float64 // relative amount tolerance, e.g. 0.05 for ±5%
	DateWindowDays     int     // generic date window
	KeyDateWindowDays  int     // wider window when anchored by an exact charter ref
	HighDateDeltaDays  int     // strategy-2 HIGH requires date delta at most this
	HighAmountDelta    float64 // strategy-2 HIGH requires amount delta below this, in currency units
	NameSimilarityMin  float64 // floor for accepting a name-similarity candidate
	NameSimilarityHigh float64 // ratio at or above which a name match is HIGH
}

// validate performs comprehensive validation of all configuration values,
// ensuring they meet minimum requirements and logical constraints
func (c *Config) validate() error {
	var validationErrors []string

	// Validate Server config
	if c.Server.Port <= 0 {
		validationErrors = append(validationErrors, "SERVER_PORT must be greater than 0")
	}
	if c.Server.ShutdownTimeout <= 0 {
		validationErrors = append(validationErrors, "SERVER_SHUTDOWN_TIMEOUT must be greater than 0")
	}
	if c.Server.ReadTimeout <= 0 {
		validationErrors = append(validationErrors, "SERVER_READ_TIMEOUT must be greater than 0")
	}
	if c.Server.WriteTimeout <= 0 {
		validationErrors = append(validationErrors, "SERVER_WRITE_TIMEOUT must be greater than 0")
	}
	if c.Server.IdleTimeout <= 0 {
		validationErrors = append(validationErrors, "SERVER_IDLE_TIMEOUT must be greater than 0")
	}

	// Validate PostgreSQL config
	if c.Postgres.URL == "" {
		validationErrors = append(validationErrors, "POSTGRES_URL is required")
	}
	if c.Postgres.MaxConns <= 0 {
		validationErrors = append(validationErrors, "POSTGRES_MAX_CONNS must be greater than 0")
	}
	if c.Postgres.MinConns <= 0 {
		validationErrors = append(validationErrors, "POSTGRES_MIN_CONNS must be greater than 0")
	}
	if c.Postgres.ConnMaxLifetime <= 0 {
		validationErrors = append(validationErrors, "POSTGRES_MAX_CONN_LIFETIME must be greater than 0")
	}
	if c.Postgres.ConnMaxIdleTime <= 0 {
		validationErrors = append(validationErrors, "POSTGRES_MAX_CONN_IDLE_TIME must be greater than 0")
	}

	// Validate MongoDB config
	if c.MongoDB.URI == "" {
		validationErrors = append(validationErrors, "MONGO_URI is required")
	}
	if c.MongoDB.Database == "" {
		validationErrors = append(validationErrors, "MONGO_DATABASE is required")
	}
	if c.MongoDB.Timeout <= 0 {
		validationErrors = append(validationErrors, "MONGO_TIMEOUT must be greater than 0")
	}
	if c.MongoDB.MaxPoolSize <= 0 {
		validationErrors = append(validationErrors, "MONGO_MAX_POOL_SIZE must be greater than 0")
	}
	if c.MongoDB.MinPoolSize <= 0 {
		validationErrors = append(validationErrors, "MONGO_MIN_POOL_SIZE must be greater than 0")
	}
	if c.MongoDB.MaxConnIdleTime <= 0 {
		validationErrors = append(validationErrors, "MONGO_MAX_CONN_IDLE_TIME must be greater than 0")
	}

	// Validate Kafka config
	if len(c.Kafka.Brokers) == 0 {
		validationErrors = append(validationErrors, "KAFKA_BROKERS is required")
	}
	if c.Kafka.LinkEventTopic == "" {
		validationErrors = append(validationErrors, "KAFKA_LINK_EVENT_TOPIC is required")
	}
	if c.Kafka.WriteTimeout <= 0 {
		validationErrors = append(validationErrors, "KAFKA_WRITE_TIMEOUT must be greater than 0")
	}

	// Validate Outbox config
	if c.Outbox.BatchSize <= 0 {
		validationErrors = append(validationErrors, "OUTBOX_BATCH_SIZE must be greater than 0")
	}
	if c.Outbox.MaxRetryAttempts <= 0 {
		validationErrors = append(validationErrors, "OUTBOX_MAX_RETRY_ATTEMPTS must be greater than 0")
	}

	// Validate Publisher config
	if c.Publisher.PoolSize <= 0 {
		validationErrors = append(validationErrors, "PUBLISHER_POOL_SIZE must be greater than 0")
	}

	// Validate Matching config
	if c.Matching.AmountTolerancePct < 0 || c.Matching.AmountTolerancePct >= 1 {
		validationErrors = append(validationErrors, "MATCH_AMOUNT_TOLERANCE_PCT must be in [0,1)")
	}
	if c.Matching.DateWindowDays <= 0 {
		validationErrors = append(validationErrors, "MATCH_DATE_WINDOW_DAYS must be greater than 0")
	}
	if c.Matching.KeyDateWindowDays < c.Matching.DateWindowDays {
		validationErrors = append(validationErrors, "MATCH_KEY_DATE_WINDOW_DAYS must be at least MATCH_DATE_WINDOW_DAYS")
	}
	if c.Matching.HighAmountDelta <= 0 {
		validationErrors = append(validationErrors, "MATCH_HIGH_AMOUNT_DELTA must be greater than 0")
	}
	if c.Matching.NameSimilarityMin <= 0 || c.Matching.NameSimilarityMin > 1 {
		validationErrors = append(validationErrors, "MATCH_NAME_SIMILARITY_MIN must be in (0,1]")
	}
	if c.Matching.NameSimilarityHigh < c.Matching.NameSimilarityMin || c.Matching.NameSimilarityHigh > 1 {
		validationErrors = append(validationErrors, "MATCH_NAME_SIMILARITY_HIGH must be in [MATCH_NAME_SIMILARITY_MIN,1]")
	}

	if len(validationErrors) > 0 {
		return errors.New(strings.Join(validationErrors, ", "))
	}

	return nil
}
