// Package apiclient is the console's single point of egress to the DarziFlow
// REST backend. It attaches the bearer token to every request, adopts tokens
// the backend rotates through the x-access-token header, and tears the token
// down when the backend answers 401.
package apiclient

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
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/darziflow/console/internal/api/metrics"
	"github.com/darziflow/console/internal/core/domain"
	"github.com/darziflow/console/internal/core/ports"
)

const (
	// HeaderRotate carries a replacement bearer token on any response.
	HeaderRotate = "x-access-token"

	// DefaultBaseURL is used when no backend URL is configured.
	DefaultBaseURL = "http://localhost:5000/api"

	defaultTimeout   = 15 * time.Second
	defaultUserAgent = "darziflow-console"
	maxErrorBody     = 64 << 10
)

// Client talks to the REST backend on behalf of one session. It is the only
// writer of that session's token: rotation, the 401 teardown, Login and
// ClearToken all serialize on mu.
type Client struct {
	baseURL   string
	http      *http.Client
	store     ports.TokenStore
	log       zerolog.Logger
	userAgent string
	platform  string

	mu    sync.RWMutex
	token string
	// gen counts explicit token changes (set, clear, 401). A rotation is
	// only adopted when no such change happened while its request was in
	// flight.
	gen uint64

	hooksMu   sync.Mutex
	onExpired []func()
	onRotated []func()
}

// Option customises a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying *http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// WithTimeout sets the per-request timeout of the default *http.Client.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.http.Timeout = d
		}
	}
}

// WithLogger sets the client's logger.
func WithLogger(log zerolog.Logger) Option {
	return func(c *Client) { c.log = log }
}

// WithUserAgent overrides the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(c *Client) {
		if ua != "" {
			c.userAgent = ua
		}
	}
}

// WithPlatform sets the platform reported on login ("web", "cli").
func WithPlatform(p string) Option {
	return func(c *Client) {
		if p != "" {
			c.platform = p
		}
	}
}

// New builds a Client and primes its in-memory token from store.
func New(ctx context.Context, baseURL string, store ports.TokenStore, opts ...Option) (*Client, error) {
	if store == nil {
		return nil, errors.New("apiclient: token store is required")
	}
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	u, err := url.Parse(baseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("apiclient: invalid base URL %q", baseURL)
	}

	c := &Client{
		baseURL:   strings.TrimRight(baseURL, "/"),
		http:      &http.Client{Timeout: defaultTimeout},
		store:     store,
		log:       zerolog.Nop(),
		userAgent: defaultUserAgent,
		platform:  "web",
	}
	for _, opt := range opts {
		opt(c)
	}

	token, err := store.Load(ctx)
	switch {
	case errors.Is(err, domain.ErrTokenNotFound):
	case err != nil:
		return nil, fmt.Errorf("apiclient: load token: %w", err)
	default:
		c.token = token
	}
	return c, nil
}

// OnSessionExpired registers fn to run after a 401 has cleared the token.
func (c *Client) OnSessionExpired(fn func()) {
	c.hooksMu.Lock()
	defer c.hooksMu.Unlock()
	c.onExpired = append(c.onExpired, fn)
}

// OnTokenRotated registers fn to run after a rotated token was adopted.
func (c *Client) OnTokenRotated(fn func()) {
	c.hooksMu.Lock()
	defer c.hooksMu.Unlock()
	c.onRotated = append(c.onRotated, fn)
}

// Token returns the token future requests will carry.
func (c *Client) Token() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

// HasToken reports whether a bearer token is currently held.
func (c *Client) HasToken() bool { return c.Token() != "" }

// SetToken persists token and makes it the default for future requests.
func (c *Client) SetToken(ctx context.Context, token string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.store.Save(ctx, token); err != nil {
		return fmt.Errorf("apiclient: save token: %w", err)
	}
	c.token = token
	c.gen++
	return nil
}

// ClearToken removes the token from the store and from future requests.
func (c *Client) ClearToken(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.token = ""
	c.gen++
	if err := c.store.Clear(ctx); err != nil {
		return fmt.Errorf("apiclient: clear token: %w", err)
	}
	return nil
}

// Do sends one request. in, when non-nil, is JSON-encoded as the body; out,
// when non-nil, receives the decoded 2xx body. Failures are *Error.
func (c *Client) Do(ctx context.Context, method, path string, in, out any) error {
	req, gen, err := c.newRequest(ctx, method, path, in)
	if err != nil {
		return err
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	metrics.BackendRequestDuration.WithLabelValues(method).Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.BackendRequestsTotal.WithLabelValues(method, "error").Inc()
		return &Error{Kind: KindTransport, Method: method, Path: path, Err: err}
	}
	defer resp.Body.Close()
	metrics.BackendRequestsTotal.WithLabelValues(method, strconv.Itoa(resp.StatusCode)).Inc()

	if resp.StatusCode == http.StatusUnauthorized {
		msg := readMessage(resp.Body)
		c.expire(ctx, method, path)
		return &Error{
			Kind:    KindUnauthorized,
			Status:  resp.StatusCode,
			Message: msg,
			Method:  method,
			Path:    path,
			Err:     domain.ErrSessionExpired,
		}
	}

	if rotated := resp.Header.Get(HeaderRotate); rotated != "" {
		c.rotate(ctx, rotated, gen)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &Error{
			Kind:    KindStatus,
			Status:  resp.StatusCode,
			Message: readMessage(resp.Body),
			Method:  method,
			Path:    path,
			Err:     sentinelFor(resp.StatusCode),
		}
	}

	if out == nil || resp.StatusCode == http.StatusNoContent {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &Error{Kind: KindDecode, Status: resp.StatusCode, Method: method, Path: path, Err: err}
	}
	return nil
}

// newRequest builds the request and returns the token generation it was
// authorized with.
func (c *Client) newRequest(ctx context.Context, method, path string, in any) (*http.Request, uint64, error) {
	var body io.Reader
	if in != nil {
		buf, err := json.Marshal(in)
		if err != nil {
			return nil, 0, fmt.Errorf("apiclient: encode %s %s: %w", method, path, err)
		}
		body = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, 0, fmt.Errorf("apiclient: build %s %s: %w", method, path, err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	c.mu.RLock()
	token, gen := c.token, c.gen
	c.mu.RUnlock()
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return req, gen, nil
}

// rotate adopts a token handed out by the backend. The in-memory value is
// switched even when persisting fails so no later request uses a token the
// backend has already retired. A rotation answering a request sent before
// the last login, logout or 401 is dropped.
func (c *Client) rotate(ctx context.Context, token string, gen uint64) {
	c.mu.Lock()
	if gen != c.gen {
		c.mu.Unlock()
		c.log.Debug().Msg("stale token rotation dropped")
		return
	}
	if token == c.token {
		c.mu.Unlock()
		return
	}
	if err := c.store.Save(ctx, token); err != nil {
		c.log.Error().Err(err).Msg("persist rotated token")
	}
	c.token = token
	c.mu.Unlock()

	metrics.TokenRotationsTotal.Inc()
	c.log.Debug().Msg("bearer token rotated")
	c.runHooks(c.rotatedHooks())
}

// expire clears the token after a 401. It never fails: a store error is
// logged and the in-memory token is dropped regardless.
func (c *Client) expire(ctx context.Context, method, path string) {
	c.mu.Lock()
	c.token = ""
	c.gen++
	if err := c.store.Clear(ctx); err != nil {
		c.log.Error().Err(err).Msg("clear expired token")
	}
	c.mu.Unlock()

	metrics.ForcedLogoutsTotal.Inc()
	c.log.Info().Str("method", method).Str("path", path).Msg("backend answered 401, session cleared")
	c.runHooks(c.expiredHooks())
}

func (c *Client) expiredHooks() []func() {
	c.hooksMu.Lock()
	defer c.hooksMu.Unlock()
	return append([]func(){}, c.onExpired...)
}

func (c *Client) rotatedHooks() []func() {
	c.hooksMu.Lock()
	defer c.hooksMu.Unlock()
	return append([]func(){}, c.onRotated...)
}

func (c *Client) runHooks(hooks []func()) {
	for _, fn := range hooks {
		fn()
	}
}

// readMessage pulls the backend's message out of an error body. The backend
// answers {"message": "..."}; {"error": "..."} is accepted as a fallback.
func readMessage(r io.Reader) string {
	raw, err := io.ReadAll(io.LimitReader(r, maxErrorBody))
	if err != nil || len(raw) == 0 {
		return ""
	}
	var body struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if err := json.Unmarshal(raw, &body); err != nil {
		return ""
	}
	if body.Message != "" {
		return body.Message
	}
	return body.Error
}

func sentinelFor(status int) error {
	switch status {
	case http.StatusForbidden:
		return domain.ErrForbidden
	case http.StatusNotFound:
		return domain.ErrNotFound
	default:
		return nil
	}
}
