// Package relay wraps outbound webhook POSTs with a bounded timeout and a
// failure contract the rest of the bot relies on: transport problems come
// back as errors, HTTP responses (2xx or not) come back as a Result. Nothing
// in here retries and nothing panics past the boundary.
package relay

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
)

const defaultTimeout = 30 * time.Second

// SecretHeader is the shared-secret header expected by the sync and
// metering endpoints.
const SecretHeader = "x-bot-secret"

// Result is the outcome of a relay call that reached the remote end.
type Result struct {
	StatusCode int
	Body       string
	RequestID  string
}

// OK reports whether the response carried a 2xx status.
func (r *Result) OK() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

// Client issues JSON POSTs to webhook endpoints.
type Client struct {
	httpClient *http.Client
}

// Option mutates an individual relay call before it is sent.
type Option func(*http.Request)

// WithSecret attaches the shared bot secret to the request.
func WithSecret(secret string) Option {
	return func(req *http.Request) {
		req.Header.Set(SecretHeader, secret)
	}
}

// WithHeader sets an arbitrary header on the request.
func WithHeader(key, value string) Option {
	return func(req *http.Request) {
		req.Header.Set(key, value)
	}
}

// NewClient creates a relay client with the given per-call timeout.
// A zero timeout falls back to 30 seconds.
func NewClient(timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Post serializes payload as JSON and POSTs it to url. A network-level
// failure returns a nil Result and a non-nil error; any HTTP response,
// success or not, returns a Result with the status code and full body.
// Each call carries a fresh X-Request-ID for correlation with the
// receiving workflow's logs.
func (c *Client) Post(ctx context.Context, url string, payload any, opts ...Option) (*Result, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, errors.Wrap(err, "encoding relay payload")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, errors.Wrapf(err, "building relay request for %s", url)
	}
	req.Header.Set("Content-Type", "application/json")

	requestID := uuid.New().String()
	req.Header.Set("X-Request-ID", requestID)

	for _, opt := range opts {
		opt(req)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, errors.Wrapf(err, "posting to %s", url)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.Wrapf(err, "reading response from %s", url)
	}

	return &Result{
		StatusCode: resp.StatusCode,
		Body:       string(respBody),
		RequestID:  requestID,
	}, nil
}
