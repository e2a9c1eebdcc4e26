package calsync

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/wolfman30/inkstudio-platform/pkg/logging"
)

const (
	defaultBaseURL = "https://api.cal.com"
	defaultTimeout = 15 * time.Second
	apiVersion     = "2024-08-13"
)

// ListParams selects a page of bookings.
type ListParams struct {
	Take           int
	Skip           int
	Status         SyncType
	AfterUpdatedAt time.Time
}

// Page is one page of raw booking records. Records stay raw so each one is
// validated on its own.
type Page struct {
	Records     []json.RawMessage
	HasNextPage bool
}

// API is the subset of the calendar provider used by the syncer.
type API interface {
	ListBookings(ctx context.Context, params ListParams) (*Page, error)
	Confirm(ctx context.Context, uid string) error
	Decline(ctx context.Context, uid, reason string) error
	Cancel(ctx context.Context, uid, reason string) error
	Ping(ctx context.Context) error
}

// APIError is a non-2xx response from the provider.
type APIError struct {
	Status int
	Body   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("cal.com API returned %d: %s", e.Status, e.Body)
}

// CalcomClient wraps the Cal.com v2 REST API.
type CalcomClient struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	logger     *logging.Logger
}

// NewCalcomClient returns nil without an API key.
func NewCalcomClient(baseURL, apiKey string, logger *logging.Logger) *CalcomClient {
	if strings.TrimSpace(apiKey) == "" {
		return nil
	}
	if strings.TrimSpace(baseURL) == "" {
		baseURL = defaultBaseURL
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &CalcomClient{
		httpClient: &http.Client{Timeout: defaultTimeout},
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     strings.TrimSpace(apiKey),
		logger:     logger,
	}
}

func (c *CalcomClient) ListBookings(ctx context.Context, params ListParams) (*Page, error) {
	q := url.Values{}
	if params.Take > 0 {
		q.Set("take", strconv.Itoa(params.Take))
	}
	q.Set("skip", strconv.Itoa(params.Skip))
	if params.Status != "" && params.Status != SyncAll {
		q.Set("status", string(params.Status))
	}
	if !params.AfterUpdatedAt.IsZero() {
		q.Set("afterUpdatedAt", params.AfterUpdatedAt.UTC().Format(time.RFC3339))
	}

	var wrapped struct {
		Data       []json.RawMessage `json:"data"`
		Pagination *struct {
			HasNextPage bool `json:"hasNextPage"`
		} `json:"pagination"`
	}
	if err := c.doJSON(ctx, http.MethodGet, "/v2/bookings?"+q.Encode(), nil, &wrapped); err != nil {
		return nil, fmt.Errorf("list bookings: %w", err)
	}
	page := &Page{Records: wrapped.Data}
	if wrapped.Pagination != nil {
		page.HasNextPage = wrapped.Pagination.HasNextPage
	} else {
		page.HasNextPage = params.Take > 0 && len(wrapped.Data) >= params.Take
	}
	return page, nil
}

func (c *CalcomClient) Confirm(ctx context.Context, uid string) error {
	if err := c.doJSON(ctx, http.MethodPost, "/v2/bookings/"+url.PathEscape(uid)+"/confirm", nil, nil); err != nil {
		return fmt.Errorf("confirm booking: %w", err)
	}
	return nil
}

func (c *CalcomClient) Decline(ctx context.Context, uid, reason string) error {
	body := map[string]string{"reason": reason}
	if err := c.doJSON(ctx, http.MethodPost, "/v2/bookings/"+url.PathEscape(uid)+"/decline", body, nil); err != nil {
		return fmt.Errorf("decline booking: %w", err)
	}
	return nil
}

func (c *CalcomClient) Cancel(ctx context.Context, uid, reason string) error {
	body := map[string]string{"cancellationReason": reason}
	if err := c.doJSON(ctx, http.MethodPost, "/v2/bookings/"+url.PathEscape(uid)+"/cancel", body, nil); err != nil {
		return fmt.Errorf("cancel booking: %w", err)
	}
	return nil
}

// Ping verifies the API key against /v2/me.
func (c *CalcomClient) Ping(ctx context.Context) error {
	return c.doJSON(ctx, http.MethodGet, "/v2/me", nil, nil)
}

func (c *CalcomClient) doJSON(ctx context.Context, method, path string, body interface{}, out interface{}) (err error) {
	ctx, span := tracer.Start(ctx, "calcom."+strings.ToLower(method), trace.WithSpanKind(trace.SpanKindClient))
	span.SetAttributes(attribute.String("http.request.method", method), attribute.String("url.path", path))
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "cal.com request failed")
		}
		span.End()
	}()

	endpoint := c.baseURL + path

	var bodyReader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		bodyReader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, bodyReader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("cal-api-version", apiVersion)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg := string(respBody)
		if len(msg) > 300 {
			msg = msg[:300]
		}
		c.logger.Warn("cal.com API non-2xx response", "status", resp.StatusCode, "path", path, "body", msg)
		return &APIError{Status: resp.StatusCode, Body: msg}
	}

	if len(respBody) == 0 || out == nil {
		return nil
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
