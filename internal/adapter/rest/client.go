package rest

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/srgjo27/westudy/internal/core/ports"
)

const (
	DefaultTimeout = 15 * time.Second

	headerRequestID = "X-Request-ID"
)

// APIError is the one failure kind the API surfaces: either a non-2xx status
// or an error field in the response body.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return e.Message
}

// Client talks to the marketplace REST API. Every request carries the bearer
// token of the current session when there is one.
type Client struct {
	baseURL    string
	httpClient *http.Client
	tokens     ports.TokenSource
	logger     *zap.Logger
}

func NewClient(baseURL string, httpClient *http.Client, tokens ports.TokenSource, logger *zap.Logger) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: DefaultTimeout}
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: httpClient,
		tokens:     tokens,
		logger:     logger,
	}
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body any, out any) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request body: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	endpoint := c.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}

	requestID := uuid.NewString()
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set(headerRequestID, requestID)

	if c.tokens != nil {
		token, err := c.tokens.AccessToken(ctx)
		if err != nil {
			c.logger.Warn("could not read access token, sending request unauthenticated",
				zap.String("request_id", requestID),
				zap.Error(err),
			)
		} else if token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Error("api request failed",
			zap.String("request_id", requestID),
			zap.String("method", method),
			zap.String("path", path),
			zap.Error(err),
		)
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	c.logger.Debug("api request",
		zap.String("request_id", requestID),
		zap.String("method", method),
		zap.String("path", path),
		zap.Int("status", resp.StatusCode),
		zap.Duration("elapsed", time.Since(start)),
	)

	if err := decodeResponse(resp.StatusCode, raw, out); err != nil {
		c.logger.Warn("api request returned an error",
			zap.String("request_id", requestID),
			zap.String("path", path),
			zap.Int("status", resp.StatusCode),
			zap.Error(err),
		)
		return err
	}

	return nil
}

// decodeResponse accepts a bare JSON payload as well as a
// {data, error, message} envelope.
func decodeResponse(status int, raw []byte, out any) error {
	fields := objectFields(raw)

	if status < 200 || status >= 300 {
		msg := errorText(fields)
		if msg == "" {
			msg = "request failed"
		}
		return &APIError{StatusCode: status, Message: msg}
	}

	if msg, ok := envelopeError(fields); ok {
		return &APIError{StatusCode: status, Message: msg}
	}

	if out == nil || len(bytes.TrimSpace(raw)) == 0 {
		return nil
	}

	payload := raw
	if data, ok := fields["data"]; ok {
		payload = data
	}

	if err := json.Unmarshal(payload, out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	return nil
}

func objectFields(raw []byte) map[string]json.RawMessage {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return nil
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &fields); err != nil {
		return nil
	}

	return fields
}

func envelopeError(fields map[string]json.RawMessage) (string, bool) {
	raw, ok := fields["error"]
	if !ok || isNull(raw) {
		return "", false
	}

	msg := errorText(fields)
	if msg == "" {
		msg = "request failed"
	}
	return msg, true
}

// errorText picks message, then error as a string, then error.message.
func errorText(fields map[string]json.RawMessage) string {
	if msg := stringField(fields["message"]); msg != "" {
		return msg
	}

	raw, ok := fields["error"]
	if !ok || isNull(raw) {
		return ""
	}
	if msg := stringField(raw); msg != "" {
		return msg
	}

	var nested struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(raw, &nested); err == nil {
		return nested.Message
	}

	return ""
}

func stringField(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return ""
	}
	return s
}

func isNull(raw json.RawMessage) bool {
	return len(raw) == 0 || string(bytes.TrimSpace(raw)) == "null"
}
