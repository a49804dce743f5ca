// Package apiclient is the single configured HTTP client used to talk to the
// remote Deal Finder API. It prefixes every path with the API base URL,
// encodes JSON bodies, attaches an optional bearer token, and maps transport
// failures and upstream 5xx responses to apperror connection errors.
//
// 4xx responses come back as *ResponseError so each controller can decide
// what a rejection means in its own domain (bad credentials, validation,
// missing deal).
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/keyxmakerx/dealfinder/internal/apperror"
)

// maxResponseBytes bounds how much of a response body is read.
const maxResponseBytes = 4 << 20

// RequestIDHeader is forwarded on every outgoing request.
const RequestIDHeader = "X-Request-ID"

// Client talks to the remote API. Safe for concurrent use.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// New creates a client for the given API base URL (e.g.
// "http://localhost:8000/api"). timeout bounds each request; zero means no
// client-side timeout beyond the caller's context.
func New(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
	}
}

// BaseURL returns the configured API base URL.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Get issues a GET request. q may be empty. token, when non-empty, is sent as
// a bearer credential. The JSON response is decoded into out when out is
// non-nil.
func (c *Client) Get(ctx context.Context, path string, q Query, token string, out any) error {
	return c.do(ctx, http.MethodGet, path, q, token, nil, out)
}

// Post issues a POST request with body encoded as JSON.
func (c *Client) Post(ctx context.Context, path, token string, body, out any) error {
	return c.do(ctx, http.MethodPost, path, Query{}, token, body, out)
}

func (c *Client) do(ctx context.Context, method, path string, q Query, token string, body, out any) error {
	target := c.baseURL + path
	if q.Len() > 0 {
		target += "?" + q.Encode()
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return apperror.NewInternal(fmt.Errorf("marshal %s %s body: %w", method, path, err))
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return apperror.NewInternal(fmt.Errorf("create request: %w", err))
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	requestID := RequestIDFromContext(ctx)
	if requestID == "" {
		requestID = uuid.NewString()
	}
	req.Header.Set(RequestIDHeader, requestID)

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		slog.Debug("api request failed",
			slog.String("method", method),
			slog.String("path", path),
			slog.String("request_id", requestID),
			slog.Any("error", err),
		)
		return apperror.NewConnection(fmt.Errorf("api request %s %s: %w", method, path, err))
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return apperror.NewConnection(fmt.Errorf("read %s %s response: %w", method, path, err))
	}

	slog.Debug("api request",
		slog.String("method", method),
		slog.String("path", path),
		slog.Int("status", resp.StatusCode),
		slog.Duration("latency", time.Since(start)),
		slog.String("request_id", requestID),
	)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		respErr := newResponseError(method, path, resp.StatusCode, data)
		if resp.StatusCode >= 500 {
			return apperror.NewConnection(respErr)
		}
		return respErr
	}

	if out == nil || len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return apperror.NewConnection(fmt.Errorf("decode %s %s response: %w", method, path, err))
	}
	return nil
}

// ResponseError is returned for 4xx responses. Fields holds the field-keyed
// messages of an "errors" map (or a flat DRF-style error object) when the
// body carried one.
type ResponseError struct {
	Method     string
	Path       string
	StatusCode int
	Fields     map[string]string
	Detail     string
}

// Error implements the error interface.
func (e *ResponseError) Error() string {
	msg := fmt.Sprintf("api %s %s: status %d", e.Method, e.Path, e.StatusCode)
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	return msg
}

// AsResponseError extracts a *ResponseError from err's chain.
func AsResponseError(err error) (*ResponseError, bool) {
	var respErr *ResponseError
	if errors.As(err, &respErr) {
		return respErr, true
	}
	return nil, false
}

func newResponseError(method, path string, status int, body []byte) *ResponseError {
	fields, detail := parseErrorBody(body)
	return &ResponseError{
		Method:     method,
		Path:       path,
		StatusCode: status,
		Fields:     fields,
		Detail:     detail,
	}
}

// parseErrorBody extracts field errors and a detail message from an error
// response. It accepts {"errors": {...}} as well as a flat object where each
// key is a field; values may be strings or lists of strings.
func parseErrorBody(body []byte) (map[string]string, string) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, ""
	}

	var detail string
	for _, key := range []string{"detail", "error", "message"} {
		if v, ok := raw[key]; ok {
			detail = flattenMessage(v)
			delete(raw, key)
			break
		}
	}

	source := raw
	if nested, ok := raw["errors"]; ok {
		var inner map[string]json.RawMessage
		if err := json.Unmarshal(nested, &inner); err == nil {
			source = inner
		}
	}

	fields := make(map[string]string, len(source))
	for key, v := range source {
		if key == "errors" {
			continue
		}
		if msg := flattenMessage(v); msg != "" {
			fields[key] = msg
		}
	}
	if len(fields) == 0 {
		fields = nil
	}
	return fields, detail
}

// flattenMessage turns a JSON string or list of strings into one line.
func flattenMessage(v json.RawMessage) string {
	var s string
	if err := json.Unmarshal(v, &s); err == nil {
		return s
	}
	var list []string
	if err := json.Unmarshal(v, &list); err == nil {
		return strings.Join(list, " ")
	}
	return ""
}
