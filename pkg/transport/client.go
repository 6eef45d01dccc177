// Package transport issues the single request/response JSON calls the booking
// assistant backend understands.
package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// Caller is what the session controller and the chat orchestrator need from a
// transport. body may be nil, in which case an empty request body is sent.
type Caller interface {
	Call(ctx context.Context, path string, body any) (json.RawMessage, error)
}

// Error is returned for any non-2xx response.
type Error struct {
	Method     string
	Path       string
	StatusCode int
	Status     string
	Body       string
}

func (e *Error) Error() string {
	return strings.TrimSpace(fmt.Sprintf("%s %s failed: %d %s %s", e.Method, e.Path, e.StatusCode, e.Status, e.Body))
}

type Client struct {
	baseURL    string
	httpClient *http.Client
}

var _ Caller = &Client{}

type ClientOption func(*Client)

func WithHTTPClient(c *http.Client) ClientOption {
	return func(cl *Client) {
		if c != nil {
			cl.httpClient = c
		}
	}
}

func WithTimeout(d time.Duration) ClientOption {
	return func(cl *Client) {
		if d > 0 {
			cl.httpClient.Timeout = d
		}
	}
}

func NewClient(baseURL string, opts ...ClientOption) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Call POSTs body as JSON to baseURL+path and returns the raw JSON response.
func (c *Client) Call(ctx context.Context, path string, body any) (json.RawMessage, error) {
	var payload []byte
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return nil, errors.Wrapf(err, "marshal request for %s", path)
		}
		payload = b
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return nil, errors.Wrapf(err, "build request for %s", path)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, errors.Wrapf(err, "POST %s", path)
	}
	defer func() { _ = resp.Body.Close() }()

	data, readErr := io.ReadAll(resp.Body)

	log.Debug().
		Str("path", path).
		Int("status", resp.StatusCode).
		Dur("elapsed", time.Since(start)).
		Msg("transport call finished")

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &Error{
			Method:     http.MethodPost,
			Path:       path,
			StatusCode: resp.StatusCode,
			Status:     reasonPhrase(resp),
			Body:       string(data),
		}
	}
	if readErr != nil {
		return nil, errors.Wrapf(readErr, "read response for %s", path)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return json.RawMessage("null"), nil
	}
	if !json.Valid(data) {
		return nil, errors.Errorf("POST %s: response is not valid JSON", path)
	}
	return json.RawMessage(data), nil
}

// reasonPhrase is the server's status text without the leading code.
func reasonPhrase(resp *http.Response) string {
	phrase := strings.TrimSpace(strings.TrimPrefix(resp.Status, strconv.Itoa(resp.StatusCode)))
	if phrase == "" {
		return http.StatusText(resp.StatusCode)
	}
	return phrase
}

// CallerFunc adapts a plain function to a Caller.
type CallerFunc func(ctx context.Context, path string, body any) (json.RawMessage, error)

func (f CallerFunc) Call(ctx context.Context, path string, body any) (json.RawMessage, error) {
	return f(ctx, path, body)
}
