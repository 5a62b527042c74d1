package store

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/jgoulah/binpusher/pkg/models"
)

// maxErrorBody caps how much of a failed response is kept in StatusError
const maxErrorBody = 512

// StatusError is returned when the remote store answers with a non-2xx status
type StatusError struct {
	Method     string
	URL        string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("HTTP error: %s %s: status %d, response: %s", e.Method, e.URL, e.StatusCode, e.Body)
}

// IsStatus reports whether err is a StatusError with the given code
func IsStatus(err error, code int) bool {
	var se *StatusError
	return errors.As(err, &se) && se.StatusCode == code
}

// Client writes bin telemetry to a Firebase-style REST document store
type Client struct {
	endpoint string
	http     *http.Client
}

// New creates a store client rooted at endpoint
func New(endpoint string, timeout time.Duration) *Client {
	return &Client{
		endpoint: strings.TrimRight(endpoint, "/"),
		http:     &http.Client{Timeout: timeout},
	}
}

// Endpoint returns the base URL the client writes to
func (c *Client) Endpoint() string {
	return c.endpoint
}

// PutBinStatus replaces the status document of one bin
func (c *Client) PutBinStatus(ctx context.Context, status models.BinStatus) error {
	apiURL := fmt.Sprintf("%s/binStatuses/%s.json", c.endpoint, url.PathEscape(status.HouseID))
	return c.do(ctx, http.MethodPut, apiURL, status, nil)
}

// PushWasteLog appends an entry to the waste log and returns the key the store assigned
func (c *Client) PushWasteLog(ctx context.Context, entry models.WasteLogEntry) (string, error) {
	apiURL := fmt.Sprintf("%s/wasteLogs.json", c.endpoint)

	// Firebase answers a push with {"name": "<generated key>"}
	var result struct {
		Name string `json:"name"`
	}
	if err := c.do(ctx, http.MethodPost, apiURL, entry, &result); err != nil {
		return "", err
	}
	return result.Name, nil
}

// GetBinStatus reads the current status document of one bin.
// It returns nil without error when the bin has never been written.
func (c *Client) GetBinStatus(ctx context.Context, binID string) (*models.BinStatus, error) {
	apiURL := fmt.Sprintf("%s/binStatuses/%s.json", c.endpoint, url.PathEscape(binID))

	var status *models.BinStatus
	if err := c.do(ctx, http.MethodGet, apiURL, nil, &status); err != nil {
		return nil, err
	}
	return status, nil
}

func (c *Client) do(ctx context.Context, method, apiURL string, payload, out any) error {
	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("encoding payload: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, apiURL, body)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("request error: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		// Read error response body for debugging
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return &StatusError{
			Method:     method,
			URL:        apiURL,
			StatusCode: resp.StatusCode,
			Body:       strings.TrimSpace(string(respBody)),
		}
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("reading response: %w", err)
	}
	if len(bytes.TrimSpace(respBody)) == 0 {
		return nil
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("parsing response: %w", err)
	}
	return nil
}
