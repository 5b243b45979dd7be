package fetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"waypoint-sync/core/credentials"
	"waypoint-sync/core/metrics"
	"waypoint-sync/core/ratelimit"

	backoff "github.com/cenkalti/backoff/v4"
	"github.com/goccy/go-json"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

const (
	// DefaultAttempts is the attempt budget of DoWithRetry.
	DefaultAttempts = 3

	// Header names of the upstream authentication scheme.
	HeaderSpartan   = "X-343-Authorization-Spartan"
	HeaderClearance = "343-Clearance"
)

var (
	rateLimitBase = 2000 * time.Millisecond
	failureBase   = 1000 * time.Millisecond
)

type attemptsKey struct{}

// WithAttempts sets the attempt budget used by DoWithRetry for calls made with ctx.
func WithAttempts(ctx context.Context, attempts int) context.Context {
	return context.WithValue(ctx, attemptsKey{}, attempts)
}

// AttemptsFrom returns the attempt budget carried by ctx, or DefaultAttempts.
func AttemptsFrom(ctx context.Context) int {
	if n, ok := ctx.Value(attemptsKey{}).(int); ok && n > 0 {
		return n
	}
	return DefaultAttempts
}

// Request describes one outbound call.
type Request struct {
	Method string
	URL    string
	// Authenticated requests carry the Spartan and clearance headers.
	Authenticated bool
}

// Response is a fully read upstream response.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// OK reports a 2xx status.
func (r *Response) OK() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

// Decode unmarshals the JSON body into v.
func (r *Response) Decode(v any) error {
	if err := json.Unmarshal(r.Body, v); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// Options configures a Client.
type Options struct {
	HTTPClient *http.Client
	// Limiter spaces requests. Nil disables spacing.
	Limiter *ratelimit.Limiter
	// Clock drives backoff waits. Defaults to the limiter's clock, then the wall clock.
	Clock ratelimit.Clock
	// Supplier refreshes tokens on HTTP 401.
	Supplier credentials.Supplier
	UserID   string
	// Timeout bounds each single request. Zero disables it.
	Timeout   time.Duration
	UserAgent string
	Logger    *zap.Logger
}

// Client sends upstream requests through the rate limiter with retry policies.
type Client struct {
	http      *http.Client
	limiter   *ratelimit.Limiter
	clock     ratelimit.Clock
	supplier  credentials.Supplier
	userID    string
	timeout   time.Duration
	userAgent string
	logger    *zap.Logger

	mu     sync.RWMutex
	tokens credentials.Tokens
	sf     singleflight.Group
}

// New creates a client.
func New(opts Options) *Client {
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	clock := opts.Clock
	if clock == nil && opts.Limiter != nil {
		clock = opts.Limiter.Clock()
	}
	if clock == nil {
		clock = ratelimit.RealClock()
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		http:      httpClient,
		limiter:   opts.Limiter,
		clock:     clock,
		supplier:  opts.Supplier,
		userID:    opts.UserID,
		timeout:   opts.Timeout,
		userAgent: opts.UserAgent,
		logger:    logger,
	}
}

// Clock returns the clock used for backoff waits.
func (c *Client) Clock() ratelimit.Clock {
	return c.clock
}

// Limiter returns the limiter shared by this client.
func (c *Client) Limiter() *ratelimit.Limiter {
	return c.limiter
}

// SetTokens installs the token pair used for authenticated requests.
func (c *Client) SetTokens(t credentials.Tokens) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.tokens = t
}

// Tokens returns the current token pair.
func (c *Client) Tokens() credentials.Tokens {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.tokens
}

// Authenticate loads a token pair from the supplier.
func (c *Client) Authenticate(ctx context.Context) error {
	if c.supplier == nil {
		return fmt.Errorf("no credential supplier: %w", credentials.ErrNoCredentials)
	}
	tokens, err := c.supplier.GetToken(ctx, c.userID)
	if err != nil {
		return err
	}
	if tokens == nil || !tokens.Valid() {
		return credentials.ErrNoCredentials
	}
	c.SetTokens(*tokens)
	return nil
}

func (c *Client) refresh(ctx context.Context) error {
	_, err, _ := c.sf.Do("refresh", func() (interface{}, error) {
		return nil, c.Authenticate(ctx)
	})
	return err
}

// Do sends a single request after the limiter delay.
// Any HTTP status is returned as a Response; only transport failures are errors.
func (c *Client) Do(ctx context.Context, req Request) (*Response, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}

	reqCtx := ctx
	if c.timeout > 0 {
		var cancel context.CancelFunc
		reqCtx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	method := req.Method
	if method == "" {
		method = http.MethodGet
	}

	httpReq, err := http.NewRequestWithContext(reqCtx, method, req.URL, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Accept", "application/json")
	if c.userAgent != "" {
		httpReq.Header.Set("User-Agent", c.userAgent)
	}
	if req.Authenticated {
		tokens := c.Tokens()
		httpReq.Header.Set(HeaderSpartan, tokens.SpartanToken)
		httpReq.Header.Set(HeaderClearance, tokens.ClearanceToken)
	}

	resp, err := c.http.Do(httpReq)
	if err != nil {
		metrics.FetchRequests.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		metrics.FetchRequests.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("read response: %w", err)
	}

	metrics.FetchRequests.WithLabelValues(metrics.StatusClass(resp.StatusCode)).Inc()
	return &Response{StatusCode: resp.StatusCode, Header: resp.Header, Body: body}, nil
}

// DoWithRetry sends req until it succeeds or the attempt budget is spent.
//
// A 401 refreshes the tokens and resends once without consuming an attempt.
// A 429 marks the limiter as rate limited and waits 5^n * 2s.
// Any other failure waits 2^n * 1s.
func (c *Client) DoWithRetry(ctx context.Context, req Request) (*Response, error) {
	attempts := AttemptsFrom(ctx)
	sched := &schedule{}

	var (
		result     *Response
		refreshed  bool
		refreshErr error
		failures   int
		lastStatus int
		lastErr    error
	)

	op := func() error {
		resp, err := c.Do(ctx, req)
		if err == nil && resp.StatusCode == http.StatusUnauthorized && req.Authenticated && !refreshed && c.supplier != nil {
			refreshed = true
			c.logger.Info("Refreshing credentials after 401", zap.String("url", req.URL))
			if refreshErr = c.refresh(ctx); refreshErr != nil {
				return backoff.Permanent(refreshErr)
			}
			resp, err = c.Do(ctx, req)
		}
		if err == nil && resp.OK() {
			result = resp
			return nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return backoff.Permanent(ctxErr)
		}

		failures++
		sched.rateLimited = false
		switch {
		case err != nil:
			lastStatus, lastErr = 0, err
		case resp.StatusCode == http.StatusTooManyRequests:
			lastStatus, lastErr = resp.StatusCode, fmt.Errorf("unexpected status %d", resp.StatusCode)
			sched.rateLimited = true
			metrics.RateLimited.Inc()
			if c.limiter != nil {
				c.limiter.MarkRateLimited()
			}
		default:
			lastStatus, lastErr = resp.StatusCode, fmt.Errorf("unexpected status %d", resp.StatusCode)
		}
		return lastErr
	}

	notify := func(err error, wait time.Duration) {
		c.logger.Warn("Upstream request failed, retrying",
			zap.String("url", req.URL),
			zap.Int("attempt", failures),
			zap.Int("status", lastStatus),
			zap.Duration("wait", wait),
			zap.Error(err))
	}

	err := Retry(ctx, c.clock, backoff.WithMaxRetries(sched, uint64(attempts-1)), op, notify)
	switch {
	case err == nil:
		return result, nil
	case ctx.Err() != nil:
		return nil, ctx.Err()
	case refreshErr != nil:
		return nil, fmt.Errorf("refresh credentials for %s: %w", req.URL, refreshErr)
	}

	method := req.Method
	if method == "" {
		method = http.MethodGet
	}
	return nil, &Error{
		Method:     method,
		URL:        req.URL,
		Attempts:   attempts,
		StatusCode: lastStatus,
		Err:        lastErr,
	}
}

// GetJSON fetches an authenticated JSON resource with retry and decodes it into v.
func (c *Client) GetJSON(ctx context.Context, url string, v any) error {
	resp, err := c.DoWithRetry(ctx, Request{Method: http.MethodGet, URL: url, Authenticated: true})
	if err != nil {
		return err
	}
	return resp.Decode(v)
}
