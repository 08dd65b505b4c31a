package utils

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"time"
)

// HTTPClient interface for testing
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// DefaultHTTPClient issues requests with a fixed timeout. Zero means none.
type DefaultHTTPClient struct{ Timeout time.Duration }

// Do implements the HTTPClient interface
func (c *DefaultHTTPClient) Do(req *http.Request) (*http.Response, error) {
	client := &http.Client{Timeout: c.Timeout}
	return client.Do(req)
}

// DefaultRequestTimeout bounds a single assistant request unless configured otherwise.
const DefaultRequestTimeout = 60 * time.Second

var httpClient HTTPClient = &DefaultHTTPClient{Timeout: DefaultRequestTimeout}

const maxLoggedBody = 1024

// LogBodyContent logs body (truncated) and returns an equivalent unread body.
func LogBodyContent(body io.ReadCloser, label string) io.ReadCloser {
	if body == nil {
		LogDebug(fmt.Sprintf("  -> %s: <nil>", label))
		return nil
	}

	data, err := io.ReadAll(body)
	body.Close()
	if err != nil {
		LogDebug(fmt.Sprintf("  -> %s: <error reading: %v>", label, err))
		return io.NopCloser(bytes.NewReader(nil))
	}

	switch {
	case len(data) == 0:
		LogDebug(fmt.Sprintf("  -> %s: <empty>", label))
	case len(data) > maxLoggedBody:
		LogDebug(fmt.Sprintf("  -> %s: %s... (truncated)", label, data[:maxLoggedBody]))
	default:
		LogDebug(fmt.Sprintf("  -> %s: %s", label, data))
	}
	return io.NopCloser(bytes.NewReader(data))
}

// VerboseHTTPClient wraps another HTTPClient and writes every exchange to the debug log.
type VerboseHTTPClient struct{ Inner HTTPClient }

func (v *VerboseHTTPClient) Do(req *http.Request) (*http.Response, error) {
	inner := v.Inner
	if inner == nil {
		inner = &DefaultHTTPClient{}
	}
	LogDebug(fmt.Sprintf("HTTP %s %s", req.Method, req.URL.String()))
	LogHeaders("request", req.Header)
	req.Body = LogBodyContent(req.Body, "request body")

	start := time.Now()
	resp, err := inner.Do(req)
	if err != nil {
		LogDebug(fmt.Sprintf("  -> error after %s: %v", time.Since(start).Round(time.Millisecond), err))
		return nil, err
	}
	LogDebug(fmt.Sprintf("  -> %d %s in %s", resp.StatusCode, http.StatusText(resp.StatusCode), time.Since(start).Round(time.Millisecond)))
	LogHeaders("response", resp.Header)
	resp.Body = LogBodyContent(resp.Body, "response body")
	return resp, nil
}

// GetHTTPClient returns the logging client wrapped around the default transport.
func GetHTTPClient() HTTPClient {
	return &VerboseHTTPClient{Inner: httpClient}
}

// GetHTTPClientWithTimeout is GetHTTPClient with a caller-chosen timeout.
func GetHTTPClientWithTimeout(timeout time.Duration) HTTPClient {
	return &VerboseHTTPClient{Inner: &DefaultHTTPClient{Timeout: timeout}}
}

// Lower-case header names whose values never reach the log.
var sensitiveHeaders = map[string]struct{}{
	"authorization":          {},
	"proxy-authorization":    {},
	"cookie":                 {},
	"set-cookie":             {},
	"x-session-key":          {},
	"x-session-id":           {},
	"x-api-key":              {},
	"x-shopify-access-token": {},
	"x-auth-token":           {},
	"x-csrf-token":           {},
	"x-forwarded-for":        {},
	"x-real-ip":              {},
}

func LogHeaders(kind string, hdr http.Header) {
	if len(hdr) == 0 {
		return
	}
	keys := make([]string, 0, len(hdr))
	for k := range hdr {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		_, isSensitive := sensitiveHeaders[strings.ToLower(k)]
		for _, v := range hdr.Values(k) {
			if isSensitive {
				LogDebug(fmt.Sprintf("  %s header: %s: [REDACTED]", kind, k))
			} else {
				LogDebug(fmt.Sprintf("  %s header: %s: %s", kind, k, v))
			}
		}
	}
}

type errorEnvelope struct {
	Error     string `json:"error"`
	Message   string `json:"message"`
	Detail    any    `json:"detail"`
	RequestID string `json:"requestId"`
}

func (e errorEnvelope) message() string {
	if e.Error != "" {
		return e.Error
	}
	if e.Message != "" {
		return e.Message
	}
	return detailMessage(e.Detail)
}

// ServerMessage returns the human-readable message carried by an error body,
// or "" when it has none. JSON bodies count only through the error, message or
// detail keys; empty bodies and HTML pages never carry one.
func ServerMessage(body []byte) string {
	s := strings.TrimSpace(string(body))
	if s == "" || strings.HasPrefix(s, "<") {
		return ""
	}
	if !json.Valid(body) {
		return s
	}
	var env errorEnvelope
	if json.Unmarshal(body, &env) != nil {
		return ""
	}
	return env.message()
}

// PrettyServerError extracts a readable message from an error response body
// for logs and diagnostics. Unlike ServerMessage it falls back to the raw body,
// then the status text.
func PrettyServerError(resp *http.Response, body []byte) string {
	if msg := ServerMessage(body); msg != "" {
		return msg
	}
	s := strings.TrimSpace(string(body))
	if s == "" || strings.HasPrefix(s, "<") {
		// Empty or an HTML error page from a proxy
		return http.StatusText(resp.StatusCode)
	}
	var env errorEnvelope
	if json.Unmarshal(body, &env) == nil && env.RequestID != "" {
		return s + " (request_id=" + env.RequestID + ")"
	}
	return s
}

func detailMessage(detail any) string {
	switch v := detail.(type) {
	case string:
		return v
	case map[string]any:
		for _, key := range []string{"message", "detail"} {
			if m, ok := v[key].(string); ok && m != "" {
				return m
			}
		}
	case []any:
		if len(v) > 0 {
			return detailMessage(v[0])
		}
	}
	return ""
}
