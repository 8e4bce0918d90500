package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"time"
)

// FailurePolicy is a per-hook Config value that Config.Validate checks.
// Neither Client nor Dispatcher reads it: Dispatcher records every final
// delivery failure the same way whatever its value.
type FailurePolicy string

const (
	FailurePolicyFail   FailurePolicy = "fail"
	FailurePolicyIgnore FailurePolicy = "ignore"
)

const (
	DefaultTimeout = 10 * time.Second
	MaxTimeout     = 2 * time.Minute

	// MaxResponseSize bounds how much of a webhook's response body the
	// client will read, protecting the dispatcher from a misbehaving or
	// hostile endpoint.
	MaxResponseSize = 1 << 20
)

// Config is a webhook's per-hook delivery configuration, named directly
// after spec.md §4.8's Config{Name, URL, Timeout, FailurePolicy}.
type Config struct {
	Name          string
	URL           string
	Timeout       time.Duration
	FailurePolicy FailurePolicy
}

func (c Config) Validate() error {
	if c.Name == "" {
		return errors.New("webhook config: name is required")
	}
	if c.URL == "" {
		return errors.New("webhook config: URL is required")
	}
	if _, err := url.ParseRequestURI(c.URL); err != nil {
		return fmt.Errorf("webhook config: URL is invalid: %w", err)
	}
	switch c.FailurePolicy {
	case "", FailurePolicyFail, FailurePolicyIgnore:
	default:
		return fmt.Errorf("webhook config: failure_policy %q is not recognized", c.FailurePolicy)
	}
	if c.Timeout < 0 {
		return errors.New("webhook config: timeout must be non-negative")
	}
	if c.Timeout > MaxTimeout {
		return fmt.Errorf("webhook config: timeout exceeds maximum of %s", MaxTimeout)
	}
	return nil
}

// Client delivers a single webhook's payload over HTTP, signing it with
// hmacSecret when present.
type Client struct {
	httpClient *http.Client
	config     Config
	hmacSecret []byte
}

// NewClient validates config and builds a Client. hmacSecret may be nil
// -- hooks with no secret are delivered unsigned.
func NewClient(config Config, hmacSecret []byte) (*Client, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	timeout := config.Timeout
	if timeout == 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		config:     config,
		hmacSecret: hmacSecret,
	}, nil
}

// Send POSTs event as JSON, setting the signature/timestamp headers
// when the client was built with a secret, plus any header secret
// injection the caller has already materialized into extraHeaders
// (the hook's HttpSecret, applied by the dispatcher since only it knows
// the secret's decrypted value; a query-parameter secret is already in
// the Config URL the dispatcher built the Client with).
func (c *Client) Send(ctx context.Context, event Event, extraHeaders map[string]string) error {
	body, err := json.Marshal(event)
	if err != nil {
		return NewInvalidResponseError(c.config.Name, fmt.Errorf("encoding payload: %w", err))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.URL, bytes.NewReader(body))
	if err != nil {
		return NewNetworkError(c.config.Name, err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range extraHeaders {
		req.Header.Set(k, v)
	}
	if len(c.hmacSecret) > 0 {
		ts := time.Now().Unix()
		req.Header.Set(SignatureHeader, SignPayload(c.hmacSecret, ts, body))
		req.Header.Set(TimestampHeader, fmt.Sprintf("%d", ts))
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return classifyError(c.config.Name, err)
	}
	defer resp.Body.Close()

	limited := io.LimitReader(resp.Body, MaxResponseSize+1)
	respBody, err := io.ReadAll(limited)
	if err != nil {
		return NewNetworkError(c.config.Name, err)
	}
	if len(respBody) > MaxResponseSize {
		return NewInvalidResponseError(c.config.Name, fmt.Errorf("response body exceeds maximum size of %d bytes", MaxResponseSize))
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return NewInvalidResponseError(c.config.Name, fmt.Errorf("status %d: %s", resp.StatusCode, truncateBody(respBody)))
	}
	return nil
}

func classifyError(name string, err error) error {
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return NewTimeoutError(name, err)
	}
	return NewNetworkError(name, err)
}

func truncateBody(body []byte) string {
	const max = 256
	if len(body) <= max {
		return string(body)
	}
	return string(body[:max]) + "..."
}
