package httpclient

import (
	"context"
	"crypto/tls"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/KOMKZ/go-aegis-framework/retry"
)

// config holds client-level and request-level settings. Request-level
// options override the client's values in merge.
type config struct {
	// client settings
	baseURL   string
	timeout   time.Duration
	transport *http.Transport
	cookieJar http.CookieJar
	headers   map[string]string

	// request settings
	ctx          context.Context
	queries      url.Values
	body         io.Reader
	retryOpts    []retry.Option
	retryEnabled bool
	retrySet     bool // a retry option was applied at this level

	// breaker settings
	breakerManager  BreakerManager
	breakerResource string
	breakerFallback func(ctx context.Context, err error) (*Response, error)
	breakerDisabled bool

	// hooks
	beforeRequest func(*http.Request) error
	afterResponse func(*Response) error
}

// Option configures a client or a single request.
type Option func(*config)

// ============================================================
// Client-level options
// ============================================================

// WithBaseURL sets the base URL prepended to relative request URLs.
func WithBaseURL(baseURL string) Option {
	return func(c *config) {
		c.baseURL = baseURL
	}
}

// WithTimeout bounds each HTTP round trip.
func WithTimeout(duration time.Duration) Option {
	return func(c *config) {
		c.timeout = duration
	}
}

// WithHeader sets a single header.
func WithHeader(key, value string) Option {
	return func(c *config) {
		if c.headers == nil {
			c.headers = make(map[string]string)
		}
		c.headers[key] = value
	}
}

// WithHeaders sets multiple headers.
func WithHeaders(headers map[string]string) Option {
	return func(c *config) {
		if c.headers == nil {
			c.headers = make(map[string]string)
		}
		for k, v := range headers {
			c.headers[k] = v
		}
	}
}

// WithTransport sets a custom transport.
func WithTransport(transport *http.Transport) Option {
	return func(c *config) {
		c.transport = transport
	}
}

// WithInsecureSkipVerify skips TLS verification. Development only.
func WithInsecureSkipVerify() Option {
	return func(c *config) {
		if c.transport == nil {
			c.transport = &http.Transport{}
		}
		if c.transport.TLSClientConfig == nil {
			c.transport.TLSClientConfig = &tls.Config{}
		}
		c.transport.TLSClientConfig.InsecureSkipVerify = true
	}
}

// WithCookieJar sets the cookie jar.
func WithCookieJar(jar http.CookieJar) Option {
	return func(c *config) {
		c.cookieJar = jar
	}
}

// ============================================================
// Request-level options
// ============================================================

// WithContext overrides the request context.
func WithContext(ctx context.Context) Option {
	return func(c *config) {
		c.ctx = ctx
	}
}

// WithQuery sets a single query parameter.
func WithQuery(key, value string) Option {
	return func(c *config) {
		if c.queries == nil {
			c.queries = make(url.Values)
		}
		c.queries.Set(key, value)
	}
}

// WithQueries adds multiple query parameters.
func WithQueries(queries url.Values) Option {
	return func(c *config) {
		if c.queries == nil {
			c.queries = make(url.Values)
		}
		for k, vs := range queries {
			for _, v := range vs {
				c.queries.Add(k, v)
			}
		}
	}
}

// WithBody sets the raw request body. Post and Put read it from here.
func WithBody(reader io.Reader) Option {
	return func(c *config) {
		c.body = reader
	}
}

// ============================================================
// Retry options
// ============================================================

// WithRetry enables retries with the given options.
func WithRetry(opts ...retry.Option) Option {
	return func(c *config) {
		c.retryEnabled = true
		c.retrySet = true
		c.retryOpts = opts
	}
}

// WithRetryDefaults enables retries with the HTTP defaults: 3 attempts,
// exponential backoff, retry on 429/5xx.
func WithRetryDefaults() Option {
	return func(c *config) {
		c.retryEnabled = true
		c.retrySet = true
		c.retryOpts = retry.HTTPDefaults
	}
}

// DisableRetry disables retries for a single request.
func DisableRetry() Option {
	return func(c *config) {
		c.retryEnabled = false
		c.retrySet = true
		c.retryOpts = nil
	}
}

// ============================================================
// Hooks
// ============================================================

// WithBeforeRequest runs before each HTTP attempt.
func WithBeforeRequest(fn func(*http.Request) error) Option {
	return func(c *config) {
		c.beforeRequest = fn
	}
}

// WithAfterResponse runs once after the final response.
func WithAfterResponse(fn func(*Response) error) Option {
	return func(c *config) {
		c.afterResponse = fn
	}
}

// ============================================================
// Internal helpers
// ============================================================

func newConfig() *config {
	return &config{
		timeout:      30 * time.Second,
		headers:      make(map[string]string),
		queries:      make(url.Values),
		retryEnabled: false,
	}
}

func applyOptions(cfg *config, opts []Option) {
	for _, opt := range opts {
		if opt != nil {
			opt(cfg)
		}
	}
}

// merge combines the client config with request-level overrides.
func (c *config) merge(other *config) *config {
	merged := &config{
		baseURL:         c.baseURL,
		timeout:         c.timeout,
		transport:       c.transport,
		cookieJar:       c.cookieJar,
		headers:         make(map[string]string),
		queries:         make(url.Values),
		retryEnabled:    c.retryEnabled,
		retrySet:        c.retrySet,
		retryOpts:       c.retryOpts,
		breakerManager:  c.breakerManager,
		breakerResource: c.breakerResource,
		breakerFallback: c.breakerFallback,
		breakerDisabled: c.breakerDisabled,
		beforeRequest:   c.beforeRequest,
		afterResponse:   c.afterResponse,
	}

	for k, v := range c.headers {
		merged.headers[k] = v
	}
	for k, v := range other.headers {
		merged.headers[k] = v
	}

	for k, vs := range c.queries {
		for _, v := range vs {
			merged.queries.Add(k, v)
		}
	}
	for k, vs := range other.queries {
		for _, v := range vs {
			merged.queries.Add(k, v)
		}
	}

	if other.ctx != nil {
		merged.ctx = other.ctx
	}
	if other.body != nil {
		merged.body = other.body
	}
	if other.timeout > 0 {
		merged.timeout = other.timeout
	}

	// Only an explicit request-level retry option overrides the client's
	// retry settings; a request without one keeps them.
	if other.retrySet {
		merged.retryEnabled = other.retryEnabled
		merged.retrySet = true
		merged.retryOpts = other.retryOpts
	}

	if other.breakerManager != nil {
		merged.breakerManager = other.breakerManager
	}
	if other.breakerResource != "" {
		merged.breakerResource = other.breakerResource
	}
	if other.breakerFallback != nil {
		merged.breakerFallback = other.breakerFallback
	}
	if other.breakerDisabled {
		merged.breakerDisabled = other.breakerDisabled
	}

	if other.beforeRequest != nil {
		merged.beforeRequest = other.beforeRequest
	}
	if other.afterResponse != nil {
		merged.afterResponse = other.afterResponse
	}

	return merged
}
