// Package restcall issues single REST calls against an upstream API and turns
// the outcome into a JSON document a model can read.
package restcall

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/tidwall/gjson"
)

const maxResponseBytes = 16 << 20

// Request is one call: method, path relative to the base URL, the query
// parameters that were actually supplied and an optional JSON body.
type Request struct {
	Method string
	Path   string
	Query  url.Values
	// Body is sent as JSON. A json.RawMessage or []byte is sent verbatim.
	Body any
}

// Result is the normalized outcome of a call.
type Result struct {
	Success bool
	Status  int
	Data    json.RawMessage
	Error   string
}

// JSON renders the result for the model: the decoded body on success,
// {"error": reason} otherwise.
func (r Result) JSON() string {
	if r.Success {
		if len(r.Data) == 0 {
			return "{}"
		}
		return string(r.Data)
	}
	return ErrorJSON(r.Error)
}

// Get extracts a value from the response body with a gjson path.
func (r Result) Get(path string) gjson.Result {
	return gjson.GetBytes(r.Data, path)
}

// ErrorJSON builds the {"error": reason} document.
func ErrorJSON(reason string) string {
	b, err := json.Marshal(map[string]string{"error": reason})
	if err != nil {
		return `{"error":"request failed"}`
	}
	return string(b)
}

func failure(status int, format string, args ...any) Result {
	return Result{Success: false, Status: status, Error: fmt.Sprintf(format, args...)}
}

// Client talks to one upstream API using a bearer token.
type Client struct {
	baseURL  string
	token    string
	http     *http.Client
	readOnly bool
	logger   *slog.Logger
}

type Option func(*Client)

// WithInsecureSkipVerify disables TLS certificate verification.
func WithInsecureSkipVerify() Option {
	return func(c *Client) {
		transport := http.DefaultTransport.(*http.Transport).Clone()
		transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true} //nolint:gosec
		c.http.Transport = transport
	}
}

// WithReadOnly rejects every method other than GET without calling upstream.
func WithReadOnly(readOnly bool) Option {
	return func(c *Client) {
		c.readOnly = readOnly
	}
}

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.http = hc
	}
}

// WithTimeout bounds every call, including reading the response. Zero keeps
// the default.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.http.Timeout = d
		}
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

func NewClient(baseURL, token string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		http:    &http.Client{Timeout: 60 * time.Second},
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) BaseURL() string {
	return c.baseURL
}

func (c *Client) ReadOnly() bool {
	return c.readOnly
}

// Do performs exactly one HTTP call. It never returns an error: every
// failure is folded into the Result.
func (c *Client) Do(ctx context.Context, req Request) Result {
	method := strings.ToUpper(req.Method)
	if method == "" {
		method = http.MethodGet
	}
	if c.readOnly && method != http.MethodGet {
		c.logger.Warn("Blocked write request in read-only mode", "method", method, "path", req.Path)
		return failure(0, "%s %s is not allowed in read-only mode", method, req.Path)
	}

	target := c.baseURL + "/" + strings.TrimLeft(req.Path, "/")
	if len(req.Query) > 0 {
		target += "?" + req.Query.Encode()
	}

	var body io.Reader
	if req.Body != nil {
		b, err := encodeBody(req.Body)
		if err != nil {
			return failure(0, "invalid request body: %v", err)
		}
		body = bytes.NewReader(b)
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return failure(0, "invalid request: %v", err)
	}
	httpReq.Header.Set("Accept", "application/json")
	if c.token != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.token)
	}
	if body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}

	c.logger.Debug("Making request", "method", method, "path", req.Path, "query", req.Query.Encode())
	resp, err := c.http.Do(httpReq)
	if err != nil {
		c.logger.Error("Request failed", "method", method, "path", req.Path, "error", err)
		return failure(0, "request failed: %v", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes+1))
	if err != nil {
		c.logger.Error("Reading response failed", "method", method, "path", req.Path, "error", err)
		return failure(resp.StatusCode, "reading response: %v", err)
	}
	if len(data) > maxResponseBytes {
		c.logger.Error("Response too large", "method", method, "path", req.Path, "limit", maxResponseBytes)
		return failure(resp.StatusCode, "response exceeds %d bytes", maxResponseBytes)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		reason := failure(resp.StatusCode, "HTTP %d: %s", resp.StatusCode, upstreamMessage(data, resp.Status))
		c.logger.Error("Request failed", "method", method, "path", req.Path, "status", resp.StatusCode, "error", reason.Error)
		return reason
	}

	trimmed := bytes.TrimSpace(data)
	switch {
	case len(trimmed) == 0:
		trimmed = []byte("{}")
	case !json.Valid(trimmed):
		quoted, _ := json.Marshal(string(trimmed))
		trimmed = quoted
	}
	return Result{Success: true, Status: resp.StatusCode, Data: json.RawMessage(trimmed)}
}

func encodeBody(body any) ([]byte, error) {
	switch b := body.(type) {
	case json.RawMessage:
		if !json.Valid(b) {
			return nil, fmt.Errorf("body is not valid JSON")
		}
		return b, nil
	case []byte:
		if !json.Valid(b) {
			return nil, fmt.Errorf("body is not valid JSON")
		}
		return b, nil
	default:
		return json.Marshal(b)
	}
}

// upstreamMessage picks the most useful text out of an error response.
func upstreamMessage(data []byte, status string) string {
	for _, path := range []string{"message", "error", "errorMessages.0"} {
		if v := gjson.GetBytes(data, path); v.Exists() && v.String() != "" {
			return v.String()
		}
	}
	text := strings.TrimSpace(string(data))
	if text == "" {
		return status
	}
	if len(text) > 500 {
		text = text[:500] + "..."
	}
	return text
}
