package config

import "time"

// Default values for optional configuration fields.
const (
	DefaultFeedLocale      = "en_GB"
	DefaultFeedTimeout     = 30 * time.Second
	DefaultFeedMaxRetries  = 3
	DefaultFeedBackoff     = time.Second
	DefaultDBPort          = 5432
	DefaultDBSSLMode       = "prefer"
	DefaultMaxConns        = 10
	DefaultMinConns        = 2
	DefaultRedisPort       = 6379
	DefaultQueueName       = "auction-tasks"
	DefaultLockDuration    = 5 * time.Minute
	DefaultPollInterval    = 250 * time.Millisecond
	DefaultConcurrency     = 10
	DefaultReceiveTimeout  = 24 * time.Hour
	DefaultPoisonThreshold = 5
	DefaultBackoffBase     = 1 * time.Second
	DefaultBackoffMax      = 60 * time.Second
	DefaultMaxRecordSize   = 64 * 1024
	DefaultBatchRecords    = 100
	DefaultWriteFanOut     = 4
	DefaultNotifyBuffer    = 1000
)

func (c *WorkerConfig) applyDefaults() {
	if c.Feed.Locale == "" {
		c.Feed.Locale = DefaultFeedLocale
	}
	if c.Feed.Timeout == 0 {
		c.Feed.Timeout = DefaultFeedTimeout
	}
	if c.Feed.MaxRetries == 0 {
		c.Feed.MaxRetries = DefaultFeedMaxRetries
	}
	if c.Feed.RetryBackoff == 0 {
		c.Feed.RetryBackoff = DefaultFeedBackoff
	}

	applyDBDefaults(&c.Database.Postgres)

	if c.Redis.Port == 0 {
		c.Redis.Port = DefaultRedisPort
	}

	if c.Queue.Name == "" {
		c.Queue.Name = DefaultQueueName
	}
	if c.Queue.LockDuration == 0 {
		c.Queue.LockDuration = DefaultLockDuration
	}
	if c.Queue.PollInterval == 0 {
		c.Queue.PollInterval = DefaultPollInterval
	}

	if c.Worker.Concurrency == 0 {
		c.Worker.Concurrency = DefaultConcurrency
	}
	if c.Worker.ReceiveTimeout == 0 {
		c.Worker.ReceiveTimeout = DefaultReceiveTimeout
	}
	if c.Worker.PoisonThreshold == 0 {
		c.Worker.PoisonThreshold = DefaultPoisonThreshold
	}
	if c.Worker.BackoffBase == 0 {
		c.Worker.BackoffBase = DefaultBackoffBase
	}
	if c.Worker.BackoffMax == 0 {
		c.Worker.BackoffMax = DefaultBackoffMax
	}

	if c.Writer.MaxRecordSize == 0 {
		c.Writer.MaxRecordSize = DefaultMaxRecordSize
	}
	if c.Writer.BatchRecords == 0 {
		c.Writer.BatchRecords = DefaultBatchRecords
	}
	if c.Writer.WriteConcurrency == 0 {
		c.Writer.WriteConcurrency = DefaultWriteFanOut
	}

	if c.Notify.BufferSize == 0 {
		c.Notify.BufferSize = DefaultNotifyBuffer
	}
}

func applyDBDefaults(db *DBConfig) {
	if db.Port == 0 {
		db.Port = DefaultDBPort
	}
	if db.SSLMode == "" {
		db.SSLMode = DefaultDBSSLMode
	}
	if db.MaxConns == 0 {
		db.MaxConns = DefaultMaxConns
	}
	if db.MinConns == 0 {
		db.MinConns = DefaultMinConns
	}
}
