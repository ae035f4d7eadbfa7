package repository

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

	"github.com/tidwall/gjson"
	"go.uber.org/zap"

	"text2sql-console/internal/config"
	"text2sql-console/internal/middleware"
)

// payloadFields are the envelope fields a text payload may sit in, in
// order of precedence.
var payloadFields = []string{"content", "data", "result"}

// BackendClient performs HTTP calls against the text-to-SQL backend and
// checks the {success, message|error} envelope of every answer.
type BackendClient struct {
	baseURL          string
	apiPrefix        string
	dataSourcePrefix string
	httpClient       *http.Client
	logger           *zap.Logger
}

// NewBackendClient creates a new backend client
func NewBackendClient(cfg config.BackendConfig, logger *zap.Logger) (*BackendClient, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("base URL is required")
	}

	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 60 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &BackendClient{
		baseURL:          strings.TrimRight(cfg.BaseURL, "/"),
		apiPrefix:        withDefault(cfg.APIPrefix, "/api/mcp"),
		dataSourcePrefix: withDefault(cfg.DataSourcePrefix, "/api/datasources"),
		httpClient: &http.Client{
			Timeout: timeout,
		},
		logger: logger,
	}, nil
}

func withDefault(value, fallback string) string {
	if value == "" {
		return fallback
	}
	return strings.TrimRight(value, "/")
}

func (c *BackendClient) apiPath(format string, args ...any) string {
	return c.apiPrefix + fmt.Sprintf(format, args...)
}

func (c *BackendClient) dataSourcePath(format string, args ...any) string {
	return c.dataSourcePrefix + fmt.Sprintf(format, args...)
}

// getJSON issues a GET and returns the checked response body.
func (c *BackendClient) getJSON(ctx context.Context, endpoint, path string) ([]byte, error) {
	return c.call(ctx, endpoint, http.MethodGet, path, nil, "")
}

func (c *BackendClient) postJSON(ctx context.Context, endpoint, path string, payload any) ([]byte, error) {
	return c.sendJSON(ctx, endpoint, http.MethodPost, path, payload)
}

func (c *BackendClient) putJSON(ctx context.Context, endpoint, path string, payload any) ([]byte, error) {
	return c.sendJSON(ctx, endpoint, http.MethodPut, path, payload)
}

func (c *BackendClient) sendJSON(ctx context.Context, endpoint, method, path string, payload any) ([]byte, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to encode request: %w", err)
	}
	return c.call(ctx, endpoint, method, path, bytes.NewReader(body), "application/json")
}

func (c *BackendClient) postForm(ctx context.Context, endpoint, path string, form url.Values) ([]byte, error) {
	return c.call(ctx, endpoint, http.MethodPost, path, strings.NewReader(form.Encode()), "application/x-www-form-urlencoded")
}

func (c *BackendClient) delete(ctx context.Context, endpoint, path string) ([]byte, error) {
	return c.call(ctx, endpoint, http.MethodDelete, path, nil, "")
}

// call performs one round trip and checks the envelope. Transport
// failures and non-2xx statuses become ErrBackendUnavailable; a body with
// "success": false becomes ErrBackendRejected. An absent success field on a
// 2xx answer is success. endpoint is a low-cardinality name used for logs
// and metrics.
func (c *BackendClient) call(ctx context.Context, endpoint, method, path string, body io.Reader, contentType string) ([]byte, error) {
	start := time.Now()

	data, status, err := c.exchange(ctx, endpoint, method, path, body, contentType)
	if err != nil {
		return nil, c.fail(endpoint, start, err)
	}

	if success := gjson.GetBytes(data, "success"); success.Exists() && !success.Bool() {
		return nil, c.fail(endpoint, start, &BackendError{
			Kind: ErrBackendRejected, Endpoint: endpoint, Status: status,
			Message: envelopeMessage(data),
		})
	}

	c.succeed(endpoint, method, status, start)
	return data, nil
}

// callUnchecked is call without the envelope check, for endpoints whose
// success field is a result rather than an outcome.
func (c *BackendClient) callUnchecked(ctx context.Context, endpoint, method, path string, body io.Reader, contentType string) ([]byte, error) {
	start := time.Now()

	data, status, err := c.exchange(ctx, endpoint, method, path, body, contentType)
	if err != nil {
		return nil, c.fail(endpoint, start, err)
	}

	c.succeed(endpoint, method, status, start)
	return data, nil
}

func (c *BackendClient) exchange(ctx context.Context, endpoint, method, path string, body io.Reader, contentType string) ([]byte, int, *BackendError) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, 0, &BackendError{Kind: ErrBackendUnavailable, Endpoint: endpoint, Cause: fmt.Errorf("failed to create request: %w", err)}
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	req.Header.Set("Accept", "application/json")
	if id := middleware.CorrelationIDFromContext(ctx); id != "" {
		req.Header.Set(middleware.CorrelationIDHeader, id)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, 0, &BackendError{Kind: ErrBackendUnavailable, Endpoint: endpoint, Cause: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, &BackendError{
			Kind: ErrBackendUnavailable, Endpoint: endpoint, Status: resp.StatusCode,
			Cause: fmt.Errorf("failed to read response: %w", err),
		}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, resp.StatusCode, &BackendError{
			Kind: ErrBackendUnavailable, Endpoint: endpoint, Status: resp.StatusCode,
			Message: envelopeMessage(data),
		}
	}

	return data, resp.StatusCode, nil
}

func (c *BackendClient) succeed(endpoint, method string, status int, start time.Time) {
	middleware.RecordBackendCall(endpoint, "ok", time.Since(start))
	c.logger.Debug("Backend call completed",
		zap.String("endpoint", endpoint),
		zap.String("method", method),
		zap.Int("status", status),
		zap.Duration("elapsed", time.Since(start)))
}

func (c *BackendClient) fail(endpoint string, start time.Time, err *BackendError) error {
	outcome := "unavailable"
	if errors.Is(err.Kind, ErrBackendRejected) {
		outcome = "rejected"
	}
	middleware.RecordBackendCall(endpoint, outcome, time.Since(start))
	c.logger.Warn("Backend call failed",
		zap.String("endpoint", endpoint),
		zap.Int("status", err.Status),
		zap.Error(err))
	return err
}

// envelopeMessage reads the server message of an envelope: message first,
// then error.
func envelopeMessage(body []byte) string {
	if !gjson.ValidBytes(body) {
		return ""
	}
	for _, field := range []string{"message", "error"} {
		if r := gjson.GetBytes(body, field); r.Type == gjson.String && r.Str != "" {
			return r.Str
		}
	}
	return ""
}

// payloadText returns the first string field of content, data and result.
// ok is false when the body holds none of them as a string.
func payloadText(body []byte) (text string, ok bool) {
	if !gjson.ValidBytes(body) {
		return "", false
	}
	for _, field := range payloadFields {
		if r := gjson.GetBytes(body, field); r.Type == gjson.String {
			return r.Str, true
		}
	}
	return "", false
}
