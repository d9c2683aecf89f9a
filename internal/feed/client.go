package feed

import (
	"bytes"
	"compress/gzip"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/ahwatch/auction-data/internal/realm"
)

// Dump identifies one downloadable auction snapshot.
type Dump struct {
	URL          string
	LastModified time.Time
}

// Client provides access to the market data REST API.
type Client struct {
	baseURL string
	apiKey  string
	locale  string
	rc      *resty.Client
	logger  *slog.Logger
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// NewClient creates a new REST API client.
func NewClient(baseURL, apiKey string, opts ...ClientOption) *Client {
	c := &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		locale:  "en_US",
		rc:      resty.New().SetTimeout(30 * time.Second),
		logger:  slog.Default(),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// WithTimeout sets the HTTP client timeout.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *Client) {
		c.rc.SetTimeout(d)
	}
}

// WithRetries sets the retry configuration.
func WithRetries(max int, backoff time.Duration) ClientOption {
	return func(c *Client) {
		c.rc.SetRetryCount(max).SetRetryWaitTime(backoff)
	}
}

// WithLocale sets the locale passed to the API.
func WithLocale(locale string) ClientOption {
	return func(c *Client) {
		c.locale = locale
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) ClientOption {
	return func(c *Client) {
		c.logger = logger
	}
}

type descriptorResponse struct {
	Files []struct {
		URL          string `json:"url"`
		LastModified int64  `json:"lastModified"`
	} `json:"files"`
}

// Descriptor fetches the latest dump descriptor for one realm.
func (c *Client) Descriptor(ctx context.Context, p realm.Partition) (Dump, error) {
	url := fmt.Sprintf("%s/wow/auction/data/%s", c.baseURL, p.Realm)

	resp, err := c.rc.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"apikey": c.apiKey,
			"locale": c.locale,
		}).
		Get(url)
	if err != nil {
		return Dump{}, fmt.Errorf("fetch descriptor for %s: %w", p.Key(), err)
	}
	if resp.IsError() {
		return Dump{}, fmt.Errorf("fetch descriptor for %s: status %d", p.Key(), resp.StatusCode())
	}

	var desc descriptorResponse
	if err := json.Unmarshal(resp.Body(), &desc); err != nil {
		return Dump{}, fmt.Errorf("decode descriptor for %s: %w", p.Key(), err)
	}
	if len(desc.Files) == 0 {
		return Dump{}, fmt.Errorf("descriptor for %s has no files", p.Key())
	}

	f := desc.Files[0]
	return Dump{
		URL:          f.URL,
		LastModified: time.UnixMilli(f.LastModified),
	}, nil
}

// Fetch downloads a dump and returns its raw JSON payload. Dumps served with
// gzip framing are decompressed transparently.
func (c *Client) Fetch(ctx context.Context, dump Dump) ([]byte, error) {
	resp, err := c.rc.R().SetContext(ctx).Get(dump.URL)
	if err != nil {
		return nil, fmt.Errorf("fetch dump: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("fetch dump: status %d", resp.StatusCode())
	}

	body := resp.Body()
	if len(body) >= 2 && body[0] == 0x1f && body[1] == 0x8b {
		zr, err := gzip.NewReader(bytes.NewReader(body))
		if err != nil {
			return nil, fmt.Errorf("open dump gzip: %w", err)
		}
		defer zr.Close()
		body, err = io.ReadAll(zr)
		if err != nil {
			return nil, fmt.Errorf("decompress dump: %w", err)
		}
	}

	c.logger.Debug("fetched dump",
		"url", dump.URL,
		"bytes", len(body),
		"last_modified", dump.LastModified,
	)
	return body, nil
}
