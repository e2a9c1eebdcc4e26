// Package studioclient is a typed HTTP client for the studio admin and
// payments APIs.
package studioclient

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

	"github.com/cenkalti/backoff/v5"

	"github.com/wolfman30/inkstudio-platform/pkg/logging"
)

// ErrTransient marks failures worth retrying by the caller: network errors
// and 5xx answers. Writes surface it instead of retrying on their own.
var ErrTransient = errors.New("studioclient: temporary failure, try again")

// APIError is a non-2xx answer from the server.
type APIError struct {
	Status        int    `json:"-"`
	Message       string `json:"error"`
	Code          string `json:"code,omitempty"`
	Field         string `json:"field,omitempty"`
	SetupRequired bool   `json:"setup_required,omitempty"`
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("studioclient: %d %s: %s", e.Status, e.Code, e.Message)
	}
	return fmt.Sprintf("studioclient: %d: %s", e.Status, e.Message)
}

// Is lets 5xx answers match ErrTransient.
func (e *APIError) Is(target error) bool {
	return target == ErrTransient && e.Status >= http.StatusInternalServerError
}

// IsConflict reports whether err is a 409 such as a stale version.
func IsConflict(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Status == http.StatusConflict
}

type transientError struct{ err error }

func (e *transientError) Error() string        { return e.err.Error() }
func (e *transientError) Unwrap() error        { return e.err }
func (e *transientError) Is(target error) bool { return target == ErrTransient }

// Client talks to one studio deployment.
type Client struct {
	baseURL    string
	token      string
	http       *http.Client
	logger     *logging.Logger
	maxTries   uint
	newBackoff func() backoff.BackOff
	pollEvery  time.Duration
}

// Option customizes a Client.
type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// WithToken sets the admin bearer token.
func WithToken(token string) Option {
	return func(c *Client) { c.token = strings.TrimSpace(token) }
}

func WithLogger(logger *logging.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithRetry overrides how reads back off. tries counts the first attempt.
func WithRetry(tries uint, newBackoff func() backoff.BackOff) Option {
	return func(c *Client) {
		if tries > 0 {
			c.maxTries = tries
		}
		if newBackoff != nil {
			c.newBackoff = newBackoff
		}
	}
}

// WithPollInterval overrides the payment status poll interval.
func WithPollInterval(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.pollEvery = d
		}
	}
}

// New builds a client for baseURL such as https://studio.example.
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:   strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		http:      &http.Client{Timeout: 15 * time.Second},
		logger:    logging.Default(),
		maxTries:  4,
		pollEvery: 3 * time.Second,
		newBackoff: func() backoff.BackOff {
			b := backoff.NewExponentialBackOff()
			b.InitialInterval = 200 * time.Millisecond
			b.MaxInterval = 2 * time.Second
			return b
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// get performs an idempotent read, retrying transient failures.
func (c *Client) get(ctx context.Context, path string, query url.Values, out any) error {
	op := func() (struct{}, error) {
		err := c.do(ctx, http.MethodGet, path, query, nil, out, nil)
		if err == nil || errors.Is(err, ErrTransient) {
			return struct{}{}, err
		}
		return struct{}{}, backoff.Permanent(err)
	}
	_, err := backoff.Retry(ctx, op,
		backoff.WithBackOff(c.newBackoff()),
		backoff.WithMaxTries(c.maxTries),
		backoff.WithNotify(func(err error, next time.Duration) {
			c.logger.Debug("studioclient: retrying read", "path", path, "error", err, "in", next)
		}),
	)
	var permanent *backoff.PermanentError
	if errors.As(err, &permanent) {
		return permanent.Err
	}
	return err
}

// send performs a single write attempt.
func (c *Client) send(ctx context.Context, method, path string, body, out any) error {
	return c.do(ctx, method, path, nil, body, out, nil)
}

// sendWithKey posts body with an Idempotency-Key so a manual retry cannot
// create a second resource.
func (c *Client) sendWithKey(ctx context.Context, path, key string, body, out any) error {
	return c.do(ctx, http.MethodPost, path, nil, body, out, http.Header{"Idempotency-Key": []string{key}})
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out any, extra http.Header) error {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("studioclient: encode request: %w", err)
		}
		reader = bytes.NewReader(raw)
	}
	endpoint := c.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return fmt.Errorf("studioclient: build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	for k, vals := range extra {
		for _, v := range vals {
			req.Header.Add(k, v)
		}
	}

	resp, err := c.http.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return &transientError{err: fmt.Errorf("studioclient: %s %s: %w", method, path, err)}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 8<<20))
	if err != nil {
		return &transientError{err: fmt.Errorf("studioclient: read response: %w", err)}
	}
	if resp.StatusCode >= 300 {
		apiErr := &APIError{Status: resp.StatusCode}
		if jsonErr := json.Unmarshal(data, apiErr); jsonErr != nil || apiErr.Message == "" {
			apiErr.Message = strings.TrimSpace(string(data))
		}
		return apiErr
	}
	if out == nil || len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("studioclient: decode response: %w", err)
	}
	return nil
}
