package redisq

import (
	"testing"
	"time"
)

func TestConfigDefaults(t *testing.T) {
	var cfg Config
	cfg.applyDefaults()

	if cfg.Name != "auction-tasks" {
		t.Errorf("Name = %q, want auction-tasks", cfg.Name)
	}
	if cfg.LockDuration != 5*time.Minute {
		t.Errorf("LockDuration = %v, want 5m", cfg.LockDuration)
	}
	if cfg.PollInterval != 250*time.Millisecond {
		t.Errorf("PollInterval = %v, want 250ms", cfg.PollInterval)
	}
}

func TestKeyLayout(t *testing.T) {
	q := New(Config{Name: "tasks"}, nil)

	if got := q.readyKey(); got != "tasks:ready" {
		t.Errorf("readyKey = %q", got)
	}
	if got := q.inflightKey(); got != "tasks:inflight" {
		t.Errorf("inflightKey = %q", got)
	}
	if got := q.msgKey("abc"); got != "tasks:msg:abc" {
		t.Errorf("msgKey = %q", got)
	}
}
