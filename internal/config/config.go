// Package config provides configuration structures and validation for the application.
// It handles environment-based configuration for all major components including
// server settings, the database connection, the job queue, and the dead-letter
// notification producer.
package config

import (
	"errors"
	"strings"
	"time"
)

// Config holds the complete application configuration with settings for all components.
// Each field represents a major subsystem's configuration and is validated during
// application startup.
type Config struct {
	Application ApplicationConfig
	Logging     LoggingConfig
	Server      ServerConfig
	Postgres    PostgresConfig
	Kafka       KafkaConfig
	Queue       QueueConfig
	WorkerPool  WorkerPoolConfig
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

// ServerConfig contains HTTP server configuration settings
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
	MinConns        int32         // Maximum number of idle connections
	ConnMaxLifetime time.Duration // Maximum lifetime of a connection
	ConnMaxIdleTime time.Duration // Maximum idle time of a connection
	MigrationsPath  string        // Path to migration files
}

// KafkaConfig contains the dead-letter notification producer configuration.
// Leaving DLQTopic empty disables the producer; dead-lettered jobs are then
// only retained in the durable job store.
type KafkaConfig struct {
	Brokers           string
	DLQTopic          string
	NumPartitions     int // Number of partitions for topic creation
	ReplicationFactor int // Replication factor for topic creation
	WriteTimeout      time.Duration
}

// QueueConfig contains job queue configuration
type QueueConfig struct {
	PollInterval       time.Duration // How often the worker looks for due jobs
	BatchSize          int           // Maximum jobs leased per poll
	ResultPollInterval time.Duration // Polling cadence of the trigger-and-wait helper
	WaitTimeout        time.Duration // Default trigger-and-wait timeout
	RetryLimit         int           // Default retry attempts for enqueued jobs
	RetryDelay         time.Duration // Default base delay between retries
	RetryBackoff       bool          // Default exponential backoff flag
	ExpireAfter        time.Duration // Default time after which an unstarted job is abandoned
	DeadLetterTopic    string        // Default dead-letter topic for transfer jobs
}

// WorkerPoolConfig contains worker pool configuration
type WorkerPoolConfig struct {
	Size int // Maximum number of workers in the pool
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

	// Validate Kafka config (only when the DLQ notification producer is enabled)
	if c.Kafka.DLQTopic != "" {
		if len(c.Kafka.Brokers) == 0 {
			validationErrors = append(validationErrors, "KAFKA_BROKERS is required when KAFKA_DLQ_TOPIC is set")
		}
		if c.Kafka.WriteTimeout <= 0 {
			validationErrors = append(validationErrors, "KAFKA_WRITE_TIMEOUT must be greater than 0")
		}
	}

	// Validate Queue config
	if c.Queue.PollInterval <= 0 {
		validationErrors = append(validationErrors, "QUEUE_POLL_INTERVAL must be greater than 0")
	}
	if c.Queue.BatchSize <= 0 {
		validationErrors = append(validationErrors, "QUEUE_BATCH_SIZE must be greater than 0")
	}
	if c.Queue.ResultPollInterval <= 0 {
		validationErrors = append(validationErrors, "QUEUE_RESULT_POLL_INTERVAL must be greater than 0")
	}
	if c.Queue.WaitTimeout <= 0 {
		validationErrors = append(validationErrors, "QUEUE_WAIT_TIMEOUT must be greater than 0")
	}
	if c.Queue.RetryLimit <= 0 {
		validationErrors = append(validationErrors, "QUEUE_RETRY_LIMIT must be greater than 0")
	}
	if c.Queue.RetryDelay <= 0 {
		validationErrors = append(validationErrors, "QUEUE_RETRY_DELAY must be greater than 0")
	}
	if c.Queue.ExpireAfter <= 0 {
		validationErrors = append(validationErrors, "QUEUE_EXPIRE_AFTER must be greater than 0")
	}
	if c.Queue.DeadLetterTopic == "" {
		validationErrors = append(validationErrors, "QUEUE_DEAD_LETTER_TOPIC is required")
	}

	// Validate WorkerPool config
	if c.WorkerPool.Size <= 0 {
		validationErrors = append(validationErrors, "WORKER_POOL_SIZE must be greater than 0")
	}

	if len(validationErrors) > 0 {
		return errors.New(strings.Join(validationErrors, ", "))
	}

	return nil
}
