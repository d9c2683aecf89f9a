package config

import (
	"errors"
	"fmt"
)

// Validate checks that all required fields are set and values are valid.
func (c *WorkerConfig) Validate() error {
	if c.Instance.ID == "" {
		return errors.New("instance.id is required")
	}

	if c.Feed.BaseURL == "" {
		return errors.New("feed.base_url is required")
	}
	if c.Feed.APIKey == "" {
		return errors.New("feed.api_key is required")
	}

	if err := c.Database.Postgres.validate("database.postgres"); err != nil {
		return err
	}

	if c.Redis.Host == "" {
		return errors.New("redis.host is required")
	}

	if c.Worker.Concurrency < 1 {
		return errors.New("worker.concurrency must be >= 1")
	}
	if c.Worker.PoisonThreshold < 1 {
		return errors.New("worker.poison_threshold must be >= 1")
	}
	if c.Worker.BackoffBase > c.Worker.BackoffMax {
		return fmt.Errorf("worker.backoff_base (%s) cannot exceed backoff_max (%s)",
			c.Worker.BackoffBase, c.Worker.BackoffMax)
	}

	if c.Writer.BatchRecords < 1 {
		return errors.New("writer.batch_records must be >= 1")
	}
	if c.Writer.WriteConcurrency < 1 {
		return errors.New("writer.write_concurrency must be >= 1")
	}

	if len(c.Realms) == 0 {
		return errors.New("at least one realm is required")
	}
	for _, p := range c.Realms {
		if err := p.Validate(); err != nil {
			return fmt.Errorf("realms: %w", err)
		}
	}

	return nil
}

func (db *DBConfig) validate(prefix string) error {
	if db.Host == "" {
		return fmt.Errorf("%s.host is required", prefix)
	}
	if db.Name == "" {
		return fmt.Errorf("%s.name is required", prefix)
	}
	if db.User == "" {
		return fmt.Errorf("%s.user is required", prefix)
	}
	if db.Password == "" {
		return fmt.Errorf("%s.password is required", prefix)
	}
	if db.MaxConns < 1 {
		return fmt.Errorf("%s.max_conns must be >= 1", prefix)
	}
	if db.MinConns < 0 {
		return fmt.Errorf("%s.min_conns must be >= 0", prefix)
	}
	if db.MinConns > db.MaxConns {
		return fmt.Errorf("%s.min_conns (%d) cannot exceed max_conns (%d)", prefix, db.MinConns, db.MaxConns)
	}
	return nil
}
