// Package api binds session.Service to the assistant HTTP endpoints.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"

	"golang.org/x/sync/singleflight"
	"golang.org/x/time/rate"

	"storeseo-cli/cmd/utils"
	"storeseo-cli/internal/session"
)

const (
	contextPath = "/api/assistant/context"
	modePath    = "/api/assistant/execution-mode"
	chatPath    = "/api/assistant/chat"

	SessionKeyHeader       = "X-Session-Key"
	MinClientVersionHeader = "X-Min-Client-Version"

	maxResponseBytes = 1 << 20
)

// Client talks to the assistant backend. It is safe for concurrent use.
type Client struct {
	baseURL   string
	http      utils.HTTPClient
	limiter   *rate.Limiter
	userAgent string
	flight    singleflight.Group

	flightMu sync.Mutex
	waiters  map[string]*contextFlight

	onMinVersion func(string)
	versionMu    sync.Mutex
	seenVersion  string
}

var _ session.Service = (*Client)(nil)

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient swaps the transport, mainly for tests.
func WithHTTPClient(hc utils.HTTPClient) Option {
	return func(c *Client) { c.http = hc }
}

// WithRateLimit paces outgoing requests to perSecond with a burst of one.
// Zero or negative disables pacing.
func WithRateLimit(perSecond float64) Option {
	return func(c *Client) {
		if perSecond > 0 {
			c.limiter = rate.NewLimiter(rate.Limit(perSecond), 1)
		}
	}
}

// WithUserAgent sets the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(c *Client) { c.userAgent = ua }
}

// WithMinVersionHandler registers fn to receive the server's minimum client
// version. fn runs once per distinct header value.
func WithMinVersionHandler(fn func(minVersion string)) Option {
	return func(c *Client) { c.onMinVersion = fn }
}

// New creates a client for the server at baseURL.
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:   strings.TrimRight(baseURL, "/"),
		http:      utils.GetHTTPClient(),
		userAgent: "storeseo-cli",
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type contextResponse struct {
	ExecutionMode session.ExecutionMode `json:"executionMode"`
	ProductCount  int                   `json:"productCount"`
	IssueCount    int                   `json:"issueCount"`
	PlanName      string                `json:"planName"`
	Credits       *session.CreditLedger `json:"credits"`
}

// contextFlight is the shared context of one coalesced GetContext call. It is
// cancelled only once every waiting caller has gone.
type contextFlight struct {
	ctx     context.Context
	cancel  context.CancelFunc
	waiters int
}

// GetContext fetches the store context. Concurrent calls for the same session
// key share one request; a caller that gives up does not cancel it for the others.
func (c *Client) GetContext(ctx context.Context, sessionKey string) (*session.StoreContext, error) {
	fl := c.joinFlight(ctx, sessionKey)
	ch := c.flight.DoChan(sessionKey, func() (any, error) {
		return c.fetchContext(fl.ctx, sessionKey)
	})

	select {
	case res := <-ch:
		c.leaveFlight(sessionKey, fl)
		if res.Err != nil {
			return nil, res.Err
		}
		if res.Shared {
			utils.LogDebug("store context request coalesced with one already in flight")
		}
		sc := *res.Val.(*session.StoreContext)
		return &sc, nil
	case <-ctx.Done():
		c.leaveFlight(sessionKey, fl)
		return nil, &session.Error{Kind: session.KindCanceled, Err: ctx.Err()}
	}
}

func (c *Client) joinFlight(ctx context.Context, key string) *contextFlight {
	c.flightMu.Lock()
	defer c.flightMu.Unlock()
	if c.waiters == nil {
		c.waiters = make(map[string]*contextFlight)
	}
	fl := c.waiters[key]
	if fl == nil {
		shared, cancel := context.WithCancel(context.WithoutCancel(ctx))
		fl = &contextFlight{ctx: shared, cancel: cancel}
		c.waiters[key] = fl
	}
	fl.waiters++
	return fl
}

// leaveFlight drops one waiter. The last one out cancels the request and
// forgets the flight so later callers start a fresh one. Every caller waiting
// on a call therefore shares that call's contextFlight.
func (c *Client) leaveFlight(key string, fl *contextFlight) {
	c.flightMu.Lock()
	defer c.flightMu.Unlock()
	fl.waiters--
	if fl.waiters > 0 {
		return
	}
	if c.waiters[key] == fl {
		delete(c.waiters, key)
		c.flight.Forget(key)
	}
	fl.cancel()
}

func (c *Client) fetchContext(ctx context.Context, sessionKey string) (*session.StoreContext, error) {
	var resp contextResponse
	if err := c.do(ctx, http.MethodGet, contextPath, sessionKey, nil, &resp); err != nil {
		return nil, err
	}
	if !resp.ExecutionMode.Valid() {
		return nil, protocolError(fmt.Sprintf("unknown execution mode %q in store context", resp.ExecutionMode), nil)
	}
	if resp.Credits == nil {
		return nil, protocolError("store context is missing credits", nil)
	}
	return &session.StoreContext{
		ExecutionMode: resp.ExecutionMode,
		ProductCount:  resp.ProductCount,
		IssueCount:    resp.IssueCount,
		PlanName:      resp.PlanName,
		Credits:       *resp.Credits,
	}, nil
}

type modeRequest struct {
	ExecutionMode session.ExecutionMode `json:"executionMode"`
}

// SetExecutionMode asks the server to switch the store's mode and returns the
// mode it confirmed.
func (c *Client) SetExecutionMode(ctx context.Context, sessionKey string, mode session.ExecutionMode) (session.ExecutionMode, error) {
	var resp modeRequest
	if err := c.do(ctx, http.MethodPost, modePath, sessionKey, modeRequest{ExecutionMode: mode}, &resp); err != nil {
		return "", err
	}
	if resp.ExecutionMode == "" {
		return mode, nil
	}
	if !resp.ExecutionMode.Valid() {
		return "", protocolError(fmt.Sprintf("unknown execution mode %q in response", resp.ExecutionMode), nil)
	}
	return resp.ExecutionMode, nil
}

type chatRequest struct {
	Messages []session.ChatTurn `json:"messages"`
}

type chatResponse struct {
	Message *string               `json:"message"`
	Credits *session.CreditLedger `json:"credits"`
}

// SendChat posts the whole transcript and returns the assistant reply.
func (c *Client) SendChat(ctx context.Context, sessionKey string, transcript []session.ChatTurn) (*session.ChatReply, error) {
	var resp chatResponse
	if err := c.do(ctx, http.MethodPost, chatPath, sessionKey, chatRequest{Messages: transcript}, &resp); err != nil {
		return nil, err
	}
	if resp.Message == nil {
		return nil, protocolError("chat response is missing the assistant message", nil)
	}
	return &session.ChatReply{Message: *resp.Message, Credits: resp.Credits}, nil
}

func (c *Client) do(ctx context.Context, method, path, sessionKey string, in, out any) error {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			if ctx.Err() != nil {
				return &session.Error{Kind: session.KindCanceled, Err: ctx.Err()}
			}
			return &session.Error{Kind: session.KindRateLimited, Message: "Too many requests. Please wait a moment and try again.", Err: err}
		}
	}

	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set(SessionKeyHeader, sessionKey)

	resp, err := c.http.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return &session.Error{Kind: session.KindCanceled, Err: ctx.Err()}
		}
		return &session.Error{Kind: session.KindNetwork, Err: err}
	}
	defer resp.Body.Close()

	c.observeMinVersion(resp.Header.Get(MinClientVersionHeader))

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		if ctx.Err() != nil {
			return &session.Error{Kind: session.KindCanceled, Err: ctx.Err()}
		}
		return &session.Error{Kind: session.KindNetwork, Err: fmt.Errorf("failed to read response: %w", err)}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return statusError(resp, data)
	}
	if err := json.Unmarshal(data, out); err != nil {
		return protocolError("", fmt.Errorf("failed to decode %s response: %w", path, err))
	}
	return nil
}

// statusError maps a non-2xx response to a session error. The server's own
// message is kept only when the body actually carried one; a JSON body without
// a message key leaves it empty so callers show their fallback.
func statusError(resp *http.Response, body []byte) error {
	kind := session.KindService
	switch resp.StatusCode {
	case http.StatusPaymentRequired:
		kind = session.KindInsufficientCredits
	case http.StatusTooManyRequests:
		kind = session.KindRateLimited
	}

	return &session.Error{Kind: kind, Message: utils.ServerMessage(body), Err: fmt.Errorf("server returned %d", resp.StatusCode)}
}

func protocolError(msg string, err error) error {
	if err == nil {
		err = fmt.Errorf("%s", msg)
	}
	// The message stays internal; users see the generic fallback.
	return &session.Error{Kind: session.KindProtocol, Err: err}
}

func (c *Client) observeMinVersion(v string) {
	v = strings.TrimSpace(v)
	if v == "" || c.onMinVersion == nil {
		return
	}
	c.versionMu.Lock()
	if v == c.seenVersion {
		c.versionMu.Unlock()
		return
	}
	c.seenVersion = v
	c.versionMu.Unlock()
	c.onMinVersion(v)
}
