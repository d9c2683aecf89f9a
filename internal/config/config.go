package config

import (
	"time"

	"github.com/ahwatch/auction-data/internal/realm"
)

// WorkerConfig is the root configuration for a worker instance.
type WorkerConfig struct {
	Instance InstanceConfig    `yaml:"instance"`
	Feed     FeedConfig        `yaml:"feed"`
	Database DatabaseConfig    `yaml:"database"`
	Redis    RedisConfig       `yaml:"redis"`
	Queue    QueueConfig       `yaml:"queue"`
	Worker   WorkerLoopConfig  `yaml:"worker"`
	Writer   WriterConfig      `yaml:"writer"`
	Notify   NotifyConfig      `yaml:"notify"`
	Realms   []realm.Partition `yaml:"realms"`
}

// InstanceConfig identifies this worker.
type InstanceConfig struct {
	ID string `yaml:"id"`
}

// FeedConfig holds marketplace feed API settings.
type FeedConfig struct {
	BaseURL      string        `yaml:"base_url"`
	APIKey       string        `yaml:"api_key"`
	Locale       string        `yaml:"locale"`
	Timeout      time.Duration `yaml:"timeout"`
	MaxRetries   int           `yaml:"max_retries"`
	RetryBackoff time.Duration `yaml:"retry_backoff"`
}

// DatabaseConfig holds the PostgreSQL connection for markers, index
// fragments, change logs and snapshot blobs.
type DatabaseConfig struct {
	Postgres DBConfig `yaml:"postgres"`
}

// DBConfig holds a single database connection.
type DBConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Name     string `yaml:"name"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	SSLMode  string `yaml:"ssl_mode"`
	MaxConns int    `yaml:"max_conns"`
	MinConns int    `yaml:"min_conns"`
}

// RedisConfig holds the Redis connection used by the task queue and the feed
// lastModified guard.
type RedisConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// QueueConfig holds durable queue settings.
type QueueConfig struct {
	Name         string        `yaml:"name"`          // key prefix / queue name
	LockDuration time.Duration `yaml:"lock_duration"` // peek-lock visibility timeout
	PollInterval time.Duration `yaml:"poll_interval"` // receive poll granularity
}

// WorkerLoopConfig holds the queue worker loop settings.
type WorkerLoopConfig struct {
	Concurrency     int           `yaml:"concurrency"`      // executor slot count
	ReceiveTimeout  time.Duration `yaml:"receive_timeout"`  // long-poll timeout
	PoisonThreshold int           `yaml:"poison_threshold"` // deliveries before quarantine
	BackoffBase     time.Duration `yaml:"backoff_base"`
	BackoffMax      time.Duration `yaml:"backoff_max"`
}

// WriterConfig holds batched index write bounds.
type WriterConfig struct {
	MaxRecordSize    int `yaml:"max_record_size"`
	BatchRecords     int `yaml:"batch_records"`
	WriteConcurrency int `yaml:"write_concurrency"`
}

// NotifyConfig holds notification delivery settings.
type NotifyConfig struct {
	SlackWebhookURL string `yaml:"slack_webhook_url"`
	Channel         string `yaml:"channel"`
	BufferSize      int    `yaml:"buffer_size"`
}
