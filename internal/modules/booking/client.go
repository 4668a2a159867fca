// README: HTTP client for a remote booking backend.
package booking

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// SubmissionError is a failed call to the booking backend. The caller's
// route and selections stay untouched, so Retryable errors can simply be
// submitted again.
type SubmissionError struct {
	Status  int
	Message string
	Code    string
	Err     error
}

func (e *SubmissionError) Error() string {
	if e.Status == 0 {
		return fmt.Sprintf("booking request failed: %v", e.Err)
	}
	if e.Message == "" {
		return fmt.Sprintf("booking request failed with status %d", e.Status)
	}
	return fmt.Sprintf("booking request failed with status %d: %s", e.Status, e.Message)
}

func (e *SubmissionError) Unwrap() error {
	return e.Err
}

// Retryable reports whether the same request may succeed later: transport
// failures, timeouts, throttling and server errors.
func (e *SubmissionError) Retryable() bool {
	switch {
	case e.Status == 0:
		return true
	case e.Status == http.StatusRequestTimeout, e.Status == http.StatusTooManyRequests:
		return true
	case e.Status >= 500:
		return true
	}
	return false
}

// IsRetryable reports whether err is a retryable *SubmissionError.
func IsRetryable(err error) bool {
	var se *SubmissionError
	return errors.As(err, &se) && se.Retryable()
}

// apiError mirrors the backend's error body.
type apiError struct {
	Error   string          `json:"error"`
	Message string          `json:"message"`
	Code    json.RawMessage `json:"code"`
}

type TokenSource func(ctx context.Context) (string, error)

type Client struct {
	baseURL    string
	httpClient *http.Client
	token      TokenSource
	maxRetries uint64
}

type ClientOption func(*Client)

func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) { c.httpClient = hc }
}

func WithToken(ts TokenSource) ClientOption {
	return func(c *Client) { c.token = ts }
}

// WithRetries retries retryable failures up to n times with exponential
// backoff. The default is no retries.
func WithRetries(n uint64) ClientOption {
	return func(c *Client) { c.maxRetries = n }
}

func NewClient(baseURL string, opts ...ClientOption) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 15 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Submit posts p to /api/bookings.
func (c *Client) Submit(ctx context.Context, p Payload) (*Booking, error) {
	body, err := json.Marshal(p)
	if err != nil {
		return nil, err
	}
	var out Booking
	if err := c.do(ctx, http.MethodPost, "/api/bookings", body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// List fetches one page of userID's bookings.
func (c *Client) List(ctx context.Context, userID int64, page, pageSize int) (ListResult, error) {
	q := url.Values{}
	q.Set("userId", strconv.FormatInt(userID, 10))
	if page > 0 {
		q.Set("page", strconv.Itoa(page))
	}
	if pageSize > 0 {
		q.Set("pageSize", strconv.Itoa(pageSize))
	}
	var out ListResult
	err := c.do(ctx, http.MethodGet, "/api/bookings?"+q.Encode(), nil, &out)
	return out, err
}

func (c *Client) do(ctx context.Context, method, path string, body []byte, out any) error {
	op := func() error {
		err := c.once(ctx, method, path, body, out)
		if err != nil && !IsRetryable(err) {
			return backoff.Permanent(err)
		}
		return err
	}
	if c.maxRetries == 0 {
		return c.once(ctx, method, path, body, out)
	}
	policy := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), c.maxRetries), ctx)
	return backoff.Retry(op, policy)
}

func (c *Client) once(ctx context.Context, method, path string, body []byte, out any) error {
	var rd io.Reader
	if body != nil {
		rd = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, rd)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != nil {
		tok, err := c.token(ctx)
		if err != nil {
			return fmt.Errorf("booking client token: %w", err)
		}
		if tok != "" {
			req.Header.Set("Authorization", "Bearer "+tok)
		}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return &SubmissionError{Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return &SubmissionError{Status: resp.StatusCode, Err: err}
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return decodeAPIError(resp.StatusCode, raw)
	}
	if out == nil || len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode booking response: %w", err)
	}
	return nil
}

func decodeAPIError(status int, raw []byte) *SubmissionError {
	se := &SubmissionError{Status: status}
	var body apiError
	if err := json.Unmarshal(raw, &body); err != nil {
		se.Message = strings.TrimSpace(string(raw))
		return se
	}
	se.Message = body.Error
	if se.Message == "" {
		se.Message = body.Message
	}
	if len(body.Code) > 0 {
		var s string
		if json.Unmarshal(body.Code, &s) == nil {
			se.Code = s
		} else {
			se.Code = string(body.Code)
		}
	}
	return se
}
