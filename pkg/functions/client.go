// Package functions provides a client for invoking remote serverless
// functions. Application-level failure and transport failure are distinct:
// a function can answer 200 with {"success": false, "message": "..."} and
// callers must check both.
package functions

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/Gobusters/ectologger"

	"github.com/Ramsey-B/clover/pkg/metrics"
	"github.com/Ramsey-B/clover/pkg/tracing"
)

const (
	// DefaultTimeout is the default invocation timeout
	DefaultTimeout = 30 * time.Second

	// MaxResponseSize is the maximum response body size (10MB)
	MaxResponseSize = 10 * 1024 * 1024
)

// FunctionResult is the application-level outcome of an invocation
type FunctionResult struct {
	Success bool            `json:"success"`
	Message string          `json:"message,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// RemoteError is an application-level failure reported by the function
type RemoteError struct {
	Function string
	Message  string
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("function %s failed: %s", e.Function, e.Message)
}

// Config holds function client configuration
type Config struct {
	BaseURL string
	Timeout time.Duration
}

// Client invokes remote functions over HTTP
type Client struct {
	baseURL string
	client  *http.Client
	logger  ectologger.Logger
}

// NewClient creates a new function invocation client
func NewClient(cfg Config, logger ectologger.Logger) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	return &Client{
		baseURL: cfg.BaseURL,
		client: &http.Client{
			Timeout: timeout,
		},
		logger: logger,
	}
}

// Invoke calls the named function with a JSON body. A non-nil error is
// either a transport failure or a *RemoteError carrying the function's
// failure message.
func (c *Client) Invoke(ctx context.Context, name string, body any) (*FunctionResult, error) {
	ctx, span := tracing.StartSpan(ctx, "functions.Client.Invoke")
	defer span.End()

	start := time.Now()

	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal function body: %w", err)
	}

	url := fmt.Sprintf("%s/functions/v1/%s", c.baseURL, name)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		metrics.RecordParserRequest("transport_error", time.Since(start).Seconds())
		c.logger.WithContext(ctx).WithError(err).Errorf("Function invocation failed: %s", name)
		return nil, fmt.Errorf("function %s request failed: %w", name, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, MaxResponseSize))
	if err != nil {
		return nil, fmt.Errorf("failed to read function response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		metrics.RecordParserRequest("http_error", time.Since(start).Seconds())
		return nil, fmt.Errorf("function %s returned status %d", name, resp.StatusCode)
	}

	var result FunctionResult
	if err := json.Unmarshal(raw, &result); err != nil {
		metrics.RecordParserRequest("invalid_response", time.Since(start).Seconds())
		return nil, fmt.Errorf("function %s returned invalid JSON: %w", name, err)
	}

	if !result.Success {
		metrics.RecordParserRequest("remote_failure", time.Since(start).Seconds())
		c.logger.WithContext(ctx).WithFields(map[string]any{
			"function": name,
			"message":  result.Message,
		}).Warn("Function reported failure")
		return &result, &RemoteError{Function: name, Message: result.Message}
	}

	metrics.RecordParserRequest("success", time.Since(start).Seconds())
	c.logger.WithContext(ctx).Debugf("Function %s succeeded (%s)", name, time.Since(start))

	return &result, nil
}
