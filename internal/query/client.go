// Package query sends natural-language questions to the service under test.
package query

import (
	"bytes"
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/segmentio/encoding/json"

	"github.com/openshift/lightspeed-eval/pkg/types"
)

const (
	defaultTimeout = 60 * time.Second
	// maxErrorBody bounds the response snippet carried in a RequestError.
	maxErrorBody = 512
	// maxResponseBytes bounds how much of a response body is read.
	maxResponseBytes = 10 * 1024 * 1024
)

// Config holds the settings of a Client.
type Config struct {
	// Endpoint is the full URL of the query API.
	Endpoint string
	// Credential is sent as a bearer token.
	Credential string
	// SkipTLSVerify disables certificate validation. Only meant for local
	// test endpoints with self-signed certificates.
	SkipTLSVerify bool
	// Timeout bounds a single query. Zero means 60s.
	Timeout time.Duration
}

// Client asks questions to the query service. It never retries.
type Client struct {
	cfg    Config
	http   *http.Client
	logger *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client. The Config timeout and
// TLS settings are not applied to a replaced client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithLogger sets the logger used for request diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) { c.logger = logger }
}

// New creates a Client for cfg.
func New(cfg Config, opts ...Option) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	c := &Client{cfg: cfg, logger: slog.Default()}
	for _, o := range opts {
		o(c)
	}
	if c.http == nil {
		transport := http.DefaultTransport.(*http.Transport).Clone()
		if cfg.SkipTLSVerify {
			c.logger.Warn("TLS certificate verification disabled for query endpoint", "endpoint", cfg.Endpoint)
			transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true} //nolint:gosec
		}
		c.http = &http.Client{Timeout: cfg.Timeout, Transport: transport}
	}
	return c
}

// Endpoint returns the configured query URL.
func (c *Client) Endpoint() string { return c.cfg.Endpoint }

type queryRequest struct {
	Query string `json:"query"`
}

type queryResponse struct {
	Response *string `json:"response"`
}

// Ask posts query to the endpoint and returns the "response" field of the
// JSON reply. A missing credential fails with *types.ConfigurationError
// before any request is made; every other failure is a *types.RequestError.
func (c *Client) Ask(ctx context.Context, query string) (string, error) {
	if c.cfg.Credential == "" {
		return "", &types.ConfigurationError{Setting: "credential", Message: "missing credential (set LS_API_KEY)"}
	}
	if c.cfg.Endpoint == "" {
		return "", &types.ConfigurationError{Setting: "endpoint", Message: "missing query endpoint"}
	}

	body, err := json.Marshal(queryRequest{Query: query})
	if err != nil {
		return "", c.requestError(0, "", fmt.Errorf("marshal request: %w", err))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.Endpoint, bytes.NewReader(body))
	if err != nil {
		return "", c.requestError(0, "", fmt.Errorf("build request: %w", err))
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.cfg.Credential)

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return "", c.requestError(0, "", fmt.Errorf("http: %w", err))
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return "", c.requestError(resp.StatusCode, "", fmt.Errorf("read body: %w", err))
	}

	c.logger.Debug("query answered", "endpoint", c.cfg.Endpoint, "status", resp.StatusCode, "duration_ms", time.Since(start).Milliseconds())

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", c.requestError(resp.StatusCode, snippet(raw), fmt.Errorf("unexpected status %s", resp.Status))
	}

	var out queryResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return "", c.requestError(resp.StatusCode, snippet(raw), fmt.Errorf("unmarshal response: %w", err))
	}
	if out.Response == nil {
		return "", c.requestError(resp.StatusCode, snippet(raw), errors.New(`response body has no "response" field`))
	}
	if strings.TrimSpace(*out.Response) == "" {
		return "", c.requestError(resp.StatusCode, "", errors.New(`"response" field is empty`))
	}
	return *out.Response, nil
}

func (c *Client) requestError(status int, body string, err error) error {
	return &types.RequestError{
		Endpoint:   c.cfg.Endpoint,
		StatusCode: status,
		Body:       body,
		Err:        err,
	}
}

func snippet(raw []byte) string {
	s := strings.TrimSpace(string(raw))
	if len(s) > maxErrorBody {
		s = s[:maxErrorBody] + "..."
	}
	return s
}
