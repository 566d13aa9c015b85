package httpclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/KOMKZ/go-aegis-framework/breaker"
	"github.com/KOMKZ/go-aegis-framework/errcode"
	"github.com/KOMKZ/go-aegis-framework/fallback"
	"github.com/KOMKZ/go-aegis-framework/logger"
	"github.com/KOMKZ/go-aegis-framework/retry"
)

// Resolution is the outcome of resolving an entity reference upstream.
type Resolution struct {
	// Entity is the upstream representation, or the cached payload when
	// FromFallback is set.
	Entity json.RawMessage

	// StatusCode is the upstream HTTP status, 0 on a fallback hit.
	StatusCode int

	// Invalid marks a client-class rejection: the upstream answered but
	// said the reference is bad.
	Invalid bool

	// FromFallback marks that Entity came from the fallback cache.
	FromFallback bool
}

// ResolverConfig configures an EntityResolver.
type ResolverConfig struct {
	// BaseURL is the upstream entity endpoint; ids are appended as a path
	// segment.
	BaseURL string `mapstructure:"base_url"`

	// Resource names the breaker resource. Defaults to BaseURL.
	Resource string `mapstructure:"resource"`

	// MaxAttempts bounds the transient-fault retry loop.
	MaxAttempts int `mapstructure:"max_attempts"`

	// AttemptTimeout bounds each upstream attempt.
	AttemptTimeout time.Duration `mapstructure:"attempt_timeout"`

	// Backoff between attempts: exponential from BackoffBase, capped at
	// BackoffMax, plus up to BackoffJitter of random spread.
	BackoffBase   time.Duration `mapstructure:"backoff_base"`
	BackoffMax    time.Duration `mapstructure:"backoff_max"`
	BackoffJitter time.Duration `mapstructure:"backoff_jitter"`
}

// ApplyDefaults fills unset fields.
func (c *ResolverConfig) ApplyDefaults() {
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = 3
	}
	if c.AttemptTimeout <= 0 {
		c.AttemptTimeout = 2 * time.Second
	}
	if c.BackoffBase <= 0 {
		c.BackoffBase = 100 * time.Millisecond
	}
	if c.BackoffMax <= 0 {
		c.BackoffMax = 2 * time.Second
	}
	if c.Resource == "" {
		c.Resource = c.BaseURL
	}
}

// Validate checks the configuration.
func (c ResolverConfig) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.BaseURL, validation.Required),
		validation.Field(&c.MaxAttempts, validation.Min(1)),
	)
}

// EntityResolver resolves entity references against an upstream service,
// riding out transient faults with retries, guarding the upstream with a
// circuit breaker, and degrading to the fallback cache when the upstream
// cannot be reached at all.
//
// Fault classes map to distinct outcomes:
//   - 2xx: the entity body, no error.
//   - 4xx: Resolution{Invalid: true} together with ErrEntityInvalid. The
//     upstream answered, so the breaker records a success and nothing is
//     retried.
//   - 5xx, transport errors, attempt timeouts: retried per config; once
//     exhausted (or the breaker is open) the fallback cache is consulted.
//     A cached entry resolves with FromFallback set and no error; a cold
//     cache surfaces ErrServiceUnavailable.
type EntityResolver struct {
	client   *Client
	config   ResolverConfig
	breaker  BreakerManager
	fallback *fallback.Resolver
	backoff  retry.BackoffStrategy
	group    singleflight.Group
	logger   *logger.CtxZapLogger
}

// ResolverOption configures an EntityResolver.
type ResolverOption func(*EntityResolver)

// WithResolverClient sets the HTTP client used for upstream calls.
func WithResolverClient(client *Client) ResolverOption {
	return func(r *EntityResolver) {
		r.client = client
	}
}

// WithResolverBreaker sets the circuit breaker guarding the upstream.
func WithResolverBreaker(manager BreakerManager) ResolverOption {
	return func(r *EntityResolver) {
		r.breaker = manager
	}
}

// WithResolverFallback sets the fallback cache consulted on failure.
func WithResolverFallback(resolver *fallback.Resolver) ResolverOption {
	return func(r *EntityResolver) {
		r.fallback = resolver
	}
}

// WithResolverLogger sets the logger.
func WithResolverLogger(log *logger.CtxZapLogger) ResolverOption {
	return func(r *EntityResolver) {
		r.logger = log
	}
}

// NewEntityResolver builds a resolver for the configured upstream.
func NewEntityResolver(config ResolverConfig, opts ...ResolverOption) (*EntityResolver, error) {
	config.ApplyDefaults()
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid resolver config: %w", err)
	}

	r := &EntityResolver{
		config: config,
		logger: logger.GetLogger("aegis"),
	}

	for _, opt := range opts {
		if opt != nil {
			opt(r)
		}
	}

	if r.client == nil {
		r.client = NewClient(WithTimeout(config.AttemptTimeout))
	}

	r.backoff = retry.ExponentialBackoff(config.BackoffBase,
		retry.WithMaxDelay(config.BackoffMax),
		retry.WithJitter(config.BackoffJitter),
	)

	return r, nil
}

// Resolve fetches the entity for id as GET <base>/<id>.
//
// On a client-class rejection both a Resolution{Invalid: true} describing
// the upstream answer and ErrEntityInvalid are returned; the caller maps
// it to its own 4xx. Concurrent resolutions of the same id are collapsed
// into one upstream call and share the first caller's context.
func (r *EntityResolver) Resolve(ctx context.Context, id string) (*Resolution, error) {
	if id == "" {
		return &Resolution{Invalid: true}, errcode.ErrEntityInvalid.WithMsg("entity id is empty")
	}

	v, err, _ := r.group.Do(id, func() (interface{}, error) {
		return r.resolve(ctx, id)
	})

	res, _ := v.(*Resolution)
	return res, err
}

func (r *EntityResolver) resolve(ctx context.Context, id string) (*Resolution, error) {
	if r.breaker != nil && r.breaker.IsEnabled() {
		return r.resolveWithBreaker(ctx, id)
	}

	res, err := r.fetch(ctx, id)
	if err != nil {
		return r.consultFallback(ctx, id, err)
	}
	if res.Invalid {
		return res, errcode.ErrEntityInvalid.WithMsgf("entity %s rejected by upstream (HTTP %d)", id, res.StatusCode)
	}
	return res, nil
}

func (r *EntityResolver) resolveWithBreaker(ctx context.Context, id string) (*Resolution, error) {
	req := &breaker.Request{
		Resource: r.config.Resource,
		Timeout:  r.callTimeout(),
		Execute: func(ctx context.Context) (interface{}, error) {
			// A 4xx comes back as a Resolution with a nil error: the
			// upstream answered, the breaker must count it as a success.
			return r.fetch(ctx, id)
		},
	}

	result := r.breaker.Fire(ctx, req)
	if result.Error != nil {
		return r.consultFallback(ctx, id, result.Error)
	}

	res, ok := result.Value.(*Resolution)
	if !ok {
		return nil, fmt.Errorf("invalid resolution type from breaker")
	}

	if res.Invalid {
		return res, errcode.ErrEntityInvalid.WithMsgf("entity %s rejected by upstream (HTTP %d)", id, res.StatusCode)
	}
	return res, nil
}

// fetch runs the retried upstream GET. Transient faults (5xx, transport
// errors, attempt timeouts) are retried; anything the upstream actually
// answered returns immediately.
func (r *EntityResolver) fetch(ctx context.Context, id string) (*Resolution, error) {
	op := func() (*Resolution, error) {
		resp, err := r.client.Do(ctx, NewGetRequest(r.entityURL(id)),
			WithTimeout(r.config.AttemptTimeout),
			DisableRetry(),
			DisableBreaker(),
		)
		if err != nil {
			return nil, errcode.ErrUpstreamTransient.Wrap(err)
		}
		defer resp.Close()

		switch {
		case resp.IsSuccess():
			return &Resolution{Entity: resp.Body, StatusCode: resp.StatusCode}, nil
		case resp.IsClientError():
			return &Resolution{Invalid: true, StatusCode: resp.StatusCode}, nil
		default:
			return nil, errcode.ErrUpstreamTransient.Wrap(&StatusError{Code: resp.StatusCode, Status: resp.Status})
		}
	}

	return retry.DoWithData(ctx, op,
		retry.MaxAttempts(r.config.MaxAttempts),
		retry.AttemptTimeout(r.config.AttemptTimeout),
		retry.Backoff(r.backoff),
		retry.Condition(retry.RetryOnErrors(errcode.ErrUpstreamTransient, context.DeadlineExceeded)),
		retry.OnRetry(func(attempt int, err error) {
			r.logger.WarnCtx(ctx, "⚠️ Entity fetch failed, retrying",
				zap.String("entity_id", id),
				zap.Int("attempt", attempt),
				zap.Error(err))
		}),
	)
}

// consultFallback serves the last-known-good entry when the upstream is
// out of reach. A cold cache turns the failure into ServiceUnavailable.
func (r *EntityResolver) consultFallback(ctx context.Context, id string, cause error) (*Resolution, error) {
	if r.fallback == nil {
		return nil, errcode.ErrServiceUnavailable.Wrap(cause)
	}

	entry, err := r.fallback.Get(ctx, id)
	if err != nil {
		if !errors.Is(err, fallback.ErrEntryNotFound) {
			r.logger.ErrorCtx(ctx, "❌ Fallback store lookup failed",
				zap.String("entity_id", id),
				zap.Error(err))
		}
		return nil, errcode.ErrServiceUnavailable.Wrap(cause)
	}

	r.logger.WarnCtx(ctx, "⚠️ Serving entity from fallback cache",
		zap.String("entity_id", id),
		zap.Time("cached_at", entry.UpdatedAt),
		zap.Error(cause))

	return &Resolution{Entity: entry.Payload, FromFallback: true}, nil
}

// callTimeout sizes the breaker call timeout strictly above the worst
// case of the retried fetch: every attempt timeout plus the largest
// backoff sleep between attempts, with fixed headroom on top.
func (r *EntityResolver) callTimeout() time.Duration {
	total := time.Duration(r.config.MaxAttempts) * r.config.AttemptTimeout
	if bounded, ok := r.backoff.(retry.BoundedBackoff); ok {
		for attempt := 1; attempt < r.config.MaxAttempts; attempt++ {
			total += bounded.MaxNext(attempt)
		}
	}
	return total + resolverTimeoutHeadroom
}

const resolverTimeoutHeadroom = time.Second

func (r *EntityResolver) entityURL(id string) string {
	return strings.TrimRight(r.config.BaseURL, "/") + "/" + url.PathEscape(id)
}
