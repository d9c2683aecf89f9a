package notify

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"
)

// DefaultBufferSize is the initial event buffer capacity.
const DefaultBufferSize = 64

// Config holds notifier settings.
type Config struct {
	WebhookURL string // Slack incoming webhook; empty disables delivery
	Channel    string // optional channel override
	BufferSize int
}

func (c *Config) applyDefaults() {
	if c.BufferSize == 0 {
		c.BufferSize = DefaultBufferSize
	}
}

// Notifier drains the event buffer and posts each event to Slack. With no
// webhook configured it logs events instead, which keeps local runs quiet
// but observable.
type Notifier struct {
	cfg    Config
	rc     *resty.Client
	buf    *Buffer
	logger *slog.Logger
	wg     sync.WaitGroup
}

// New creates a Notifier. A nil logger defaults to slog.Default().
func New(cfg Config, logger *slog.Logger) *Notifier {
	cfg.applyDefaults()
	if logger == nil {
		logger = slog.Default()
	}
	return &Notifier{
		cfg:    cfg,
		rc:     resty.New().SetTimeout(10 * time.Second).SetRetryCount(2),
		buf:    NewBuffer(cfg.BufferSize),
		logger: logger,
	}
}

// Publish queues an event for delivery. Returns false after Stop.
func (n *Notifier) Publish(ev Event) bool {
	return n.buf.Push(ev)
}

// Start launches the delivery loop.
func (n *Notifier) Start(ctx context.Context) {
	n.wg.Add(1)
	go func() {
		defer n.wg.Done()
		for {
			ev, ok := n.buf.Pop()
			if !ok {
				return
			}
			if err := n.deliver(ctx, ev); err != nil {
				n.logger.Error("notification delivery failed",
					"realm", ev.RealmKey,
					"owner", ev.Owner,
					"error", err,
				)
			}
		}
	}()
}

// Stop closes the buffer and waits for pending events to deliver.
func (n *Notifier) Stop() {
	n.buf.Close()
	n.wg.Wait()
}

// Stats returns buffer statistics.
func (n *Notifier) Stats() BufferStats {
	return n.buf.Stats()
}

type slackPayload struct {
	Channel string `json:"channel,omitempty"`
	Text    string `json:"text"`
}

func (n *Notifier) deliver(ctx context.Context, ev Event) error {
	if n.cfg.WebhookURL == "" {
		n.logger.Info("auction event", "text", ev.Text())
		return nil
	}

	resp, err := n.rc.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(slackPayload{Channel: n.cfg.Channel, Text: ev.Text()}).
		Post(n.cfg.WebhookURL)
	if err != nil {
		return fmt.Errorf("post webhook: %w", err)
	}
	if resp.IsError() {
		return fmt.Errorf("post webhook: status %d", resp.StatusCode())
	}
	return nil
}
