package worker

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/Gobusters/ectologger"

	"github.com/Ramsey-B/clover/pkg/functions"
	"github.com/Ramsey-B/clover/pkg/models"
	"github.com/Ramsey-B/clover/pkg/tracing"
)

// ErrFileNotFound is returned when an uploaded menu image no longer exists
var ErrFileNotFound = errors.New("file not found")

// FileStore fetches uploaded menu images by path
type FileStore interface {
	Fetch(ctx context.Context, path string) ([]byte, error)
}

// MenuParser extracts candidate menu lines from a menu image
type MenuParser interface {
	ParseMenu(ctx context.Context, image []byte) ([]models.ParsedItem, error)
}

// HTTPFileStore fetches images from the file storage service over HTTP
type HTTPFileStore struct {
	baseURL string
	client  *http.Client
	logger  ectologger.Logger
}

// NewHTTPFileStore creates a new HTTP file store
func NewHTTPFileStore(baseURL string, timeout time.Duration, logger ectologger.Logger) *HTTPFileStore {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &HTTPFileStore{
		baseURL: baseURL,
		client:  &http.Client{Timeout: timeout},
		logger:  logger,
	}
}

// Fetch downloads a stored file. A 404 maps to ErrFileNotFound so callers
// can fail the owning job without retrying.
func (s *HTTPFileStore) Fetch(ctx context.Context, path string) ([]byte, error) {
	ctx, span := tracing.StartSpan(ctx, "worker.HTTPFileStore.Fetch")
	defer span.End()

	url := fmt.Sprintf("%s/storage/v1/object/%s", s.baseURL, path)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("file fetch failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, ErrFileNotFound
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("file fetch returned status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read file body: %w", err)
	}

	return data, nil
}

// parseMenuResponse is the payload inside a successful parse_menu result
type parseMenuResponse struct {
	Items []models.ParsedItem `json:"items"`
}

// FunctionParser runs OCR extraction through the remote parse_menu function
type FunctionParser struct {
	client *functions.Client
}

// NewFunctionParser creates a parser backed by the function client
func NewFunctionParser(client *functions.Client) *FunctionParser {
	return &FunctionParser{client: client}
}

// ParseMenu submits the image and returns the extracted menu lines
func (p *FunctionParser) ParseMenu(ctx context.Context, image []byte) ([]models.ParsedItem, error) {
	ctx, span := tracing.StartSpan(ctx, "worker.FunctionParser.ParseMenu")
	defer span.End()

	result, err := p.client.Invoke(ctx, "parse_menu", map[string]any{
		"image_base64": base64.StdEncoding.EncodeToString(image),
	})
	if err != nil {
		return nil, err
	}

	var parsed parseMenuResponse
	if err := json.Unmarshal(result.Data, &parsed); err != nil {
		return nil, fmt.Errorf("parser returned unreadable items: %w", err)
	}

	return parsed.Items, nil
}
