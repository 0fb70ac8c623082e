// Package gateway is the HTTP client for the external booking service. The
// gateway is authoritative for bookings and materializes the local
// appointment rows asynchronously.
package gateway

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	json "github.com/goccy/go-json"
)

const bookingsPath = "/api/v1/bookings"

// ResponseError carries the best-effort human-readable message extracted from
// a non-2xx gateway response body.
type ResponseError struct {
	StatusCode int
	Message    string
}

func (e *ResponseError) Error() string {
	return fmt.Sprintf("booking gateway returned %d: %s", e.StatusCode, e.Message)
}

type Client struct {
	baseURL    string
	httpClient *http.Client
}

func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
	}
}

// CreateBooking submits the payload and parses the reply. Non-2xx responses
// become a *ResponseError with the message taken from the body's "error" key,
// else its "message" key, else the raw body.
func (c *Client) CreateBooking(ctx context.Context, payload BookingPayload) (*BookingResponse, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal booking payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+bookingsPath, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build booking request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("post booking: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("read booking response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &ResponseError{
			StatusCode: resp.StatusCode,
			Message:    extractMessage(raw),
		}
	}

	var out BookingResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("decode booking response: %w", err)
	}

	return &out, nil
}

func extractMessage(raw []byte) string {
	var body map[string]any
	if err := json.Unmarshal(raw, &body); err == nil {
		if msg, ok := body["error"].(string); ok && msg != "" {
			return msg
		}
		if msg, ok := body["message"].(string); ok && msg != "" {
			return msg
		}
	}
	return strings.TrimSpace(string(raw))
}
