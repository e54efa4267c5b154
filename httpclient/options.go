package httpclient

import (
	"net/http"
	"net/url"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"golang.org/x/time/rate"

	"github.com/vibeworks/go-resilience/breaker"
	"github.com/vibeworks/go-resilience/retry"
)

type config struct {
	baseURL   string
	timeout   time.Duration
	transport http.RoundTripper
	headers   map[string]string
	queries   url.Values

	retryEnabled  bool
	retryDisabled bool
	retryOpts     []retry.Option

	breakerManager  *breaker.Manager
	breakerResource string
	breakerDisabled bool

	limiter *rate.Limiter

	beforeRequest func(*http.Request) error
	afterResponse func(*Response) error
}

// Option configures a Client or a single call.
type Option func(*config)

// WithBaseURL sets the base URL prepended to relative request URLs.
func WithBaseURL(baseURL string) Option {
	return func(c *config) { c.baseURL = baseURL }
}

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *config) { c.timeout = d }
}

// WithHeader sets a default header.
func WithHeader(key, value string) Option {
	return func(c *config) {
		if c.headers == nil {
			c.headers = make(map[string]string)
		}
		c.headers[key] = value
	}
}

// WithHeaders sets multiple default headers.
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

// WithQuery sets a default query parameter.
func WithQuery(key, value string) Option {
	return func(c *config) {
		if c.queries == nil {
			c.queries = make(url.Values)
		}
		c.queries.Set(key, value)
	}
}

// WithTransport sets a custom round tripper.
func WithTransport(rt http.RoundTripper) Option {
	return func(c *config) { c.transport = rt }
}

// WithOTelTransport wraps the transport with otelhttp so every outgoing
// request carries a client span and propagated trace context.
func WithOTelTransport() Option {
	return func(c *config) {
		base := c.transport
		if base == nil {
			base = http.DefaultTransport
		}
		c.transport = otelhttp.NewTransport(base)
	}
}

// WithRetry enables caller-side retries with the given options.
func WithRetry(opts ...retry.Option) Option {
	return func(c *config) {
		c.retryEnabled = true
		c.retryOpts = opts
	}
}

// WithRetryDefaults enables retries with the HTTP defaults: transient
// transport failures and 5xx/429, never breaker fast-fails.
func WithRetryDefaults() Option {
	return func(c *config) {
		c.retryEnabled = true
		c.retryOpts = retry.HTTPDefaults
	}
}

// DisableRetry turns retries off for this call.
func DisableRetry() Option {
	return func(c *config) {
		c.retryDisabled = true
		c.retryOpts = nil
	}
}

// WithBreaker routes requests through the breaker manager, one record per
// upstream origin unless WithBreakerResource overrides the key.
func WithBreaker(manager *breaker.Manager) Option {
	return func(c *config) { c.breakerManager = manager }
}

// WithBreakerResource overrides the breaker resource key.
func WithBreakerResource(resource string) Option {
	return func(c *config) { c.breakerResource = resource }
}

// DisableBreaker bypasses the breaker for this call.
func DisableBreaker() Option {
	return func(c *config) { c.breakerDisabled = true }
}

// WithThrottle applies a client-side rate limit before the breaker.
func WithThrottle(rps float64, burst int) Option {
	return func(c *config) { c.limiter = rate.NewLimiter(rate.Limit(rps), burst) }
}

// WithLimiter installs a shared rate limiter.
func WithLimiter(l *rate.Limiter) Option {
	return func(c *config) { c.limiter = l }
}

// WithBeforeRequest installs a hook run just before the wire call.
func WithBeforeRequest(fn func(*http.Request) error) Option {
	return func(c *config) { c.beforeRequest = fn }
}

// WithAfterResponse installs a hook run after the response is read.
func WithAfterResponse(fn func(*Response) error) Option {
	return func(c *config) { c.afterResponse = fn }
}

// DefaultTimeout bounds requests when WithTimeout is not given.
const DefaultTimeout = 30 * time.Second

func newConfig() *config {
	return &config{
		headers: make(map[string]string),
		queries: make(url.Values),
	}
}

func applyOptions(cfg *config, opts []Option) {
	for _, opt := range opts {
		if opt != nil {
			opt(cfg)
		}
	}
}

// merge overlays per-call options on the client's config.
func (c *config) merge(other *config) *config {
	merged := &config{
		baseURL:         c.baseURL,
		timeout:         c.timeout,
		transport:       c.transport,
		headers:         make(map[string]string),
		queries:         make(url.Values),
		retryEnabled:    c.retryEnabled,
		retryDisabled:   c.retryDisabled,
		retryOpts:       c.retryOpts,
		breakerManager:  c.breakerManager,
		breakerResource: c.breakerResource,
		breakerDisabled: c.breakerDisabled,
		limiter:         c.limiter,
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

	if other.timeout > 0 {
		merged.timeout = other.timeout
	}
	if other.transport != nil {
		merged.transport = other.transport
	}
	if other.retryEnabled || len(other.retryOpts) > 0 {
		merged.retryEnabled = true
		merged.retryOpts = other.retryOpts
	}
	if other.retryDisabled {
		merged.retryEnabled = false
		merged.retryDisabled = true
	}
	if other.breakerManager != nil {
		merged.breakerManager = other.breakerManager
	}
	if other.breakerResource != "" {
		merged.breakerResource = other.breakerResource
	}
	if other.breakerDisabled {
		merged.breakerDisabled = true
	}
	if other.limiter != nil {
		merged.limiter = other.limiter
	}
	if other.beforeRequest != nil {
		merged.beforeRequest = other.beforeRequest
	}
	if other.afterResponse != nil {
		merged.afterResponse = other.afterResponse
	}

	return merged
}
