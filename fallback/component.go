package fallback

import (
	"context"

	"github.com/KOMKZ/go-aegis-framework/component"
	"github.com/KOMKZ/go-aegis-framework/logger"
	frameworkRedis "github.com/KOMKZ/go-aegis-framework/redis"
	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Component wires the fallback store into the application lifecycle.
//
// Depends on config and logger; Redis is optional and only needed for the
// redis and chain backends.
type Component struct {
	config   Config
	resolver *Resolver
	log      *logger.CtxZapLogger

	// Injected when the redis or chain backend is configured.
	redisManager *frameworkRedis.Manager
}

// NewComponent creates the fallback component.
func NewComponent() *Component {
	return &Component{}
}

// Name returns the component name.
func (c *Component) Name() string {
	return component.ComponentFallback
}

// DependsOn declares lifecycle dependencies.
func (c *Component) DependsOn() []string {
	return []string{
		component.ComponentConfig,
		component.ComponentLogger,
		"optional:" + component.ComponentRedis,
	}
}

// Init loads configuration.
func (c *Component) Init(ctx context.Context, loader component.ConfigLoader) error {
	c.log = logger.GetLogger("aegis")

	c.config = DefaultConfig()
	if loader.IsSet("fallback") {
		if err := loader.Unmarshal("fallback", &c.config); err != nil {
			return ErrConfigInvalid.Wrap(err)
		}
	}
	c.config.ApplyDefaults()

	if err := c.config.Validate(); err != nil {
		return ErrConfigInvalid.Wrap(err)
	}

	if !c.config.Enabled {
		c.log.InfoCtx(ctx, "Fallback store disabled")
		return nil
	}

	c.log.DebugCtx(ctx, "🔧 Fallback component initialized",
		zap.String("store", c.config.Store))
	return nil
}

// Start builds the store and resolver.
func (c *Component) Start(ctx context.Context) error {
	if !c.config.Enabled {
		return nil
	}

	store, err := c.buildStore()
	if err != nil {
		return err
	}
	c.resolver = NewResolver(store)

	c.log.InfoCtx(ctx, "✅ Fallback store started",
		zap.String("store", store.Name()))
	return nil
}

// Stop closes the store.
func (c *Component) Stop(ctx context.Context) error {
	if c.resolver == nil {
		return nil
	}
	if err := c.resolver.Store().Close(); err != nil {
		c.log.WarnCtx(ctx, "Fallback store close failed", zap.Error(err))
	}
	c.log.InfoCtx(ctx, "✅ Fallback store stopped")
	return nil
}

// buildStore assembles the configured backend.
func (c *Component) buildStore() (Store, error) {
	switch c.config.Store {
	case "memory":
		return NewMemoryStore("memory"), nil

	case "redis":
		client, err := c.redisClient()
		if err != nil {
			return nil, err
		}
		return NewRedisStore("redis", client, c.config.KeyPrefix), nil

	case "chain":
		client, err := c.redisClient()
		if err != nil {
			return nil, err
		}
		return NewChainStore("chain",
			NewMemoryStore("memory"),
			NewRedisStore("redis", client, c.config.KeyPrefix),
		), nil

	default:
		return nil, ErrConfigInvalid.WithMsgf("unknown fallback store type: %s", c.config.Store)
	}
}

func (c *Component) redisClient() (*goredis.Client, error) {
	if c.redisManager == nil {
		return nil, ErrConfigInvalid.WithMsg("redis manager not injected, fallback store requires redis")
	}
	client := c.redisManager.Client(c.config.Instance)
	if client == nil {
		return nil, ErrConfigInvalid.WithMsgf("redis instance not found: %s", c.config.Instance)
	}
	return client, nil
}

// SetRedisManager injects the Redis manager.
// Required before Start when the redis or chain backend is configured.
func (c *Component) SetRedisManager(manager *frameworkRedis.Manager) {
	c.redisManager = manager
}

// GetResolver returns the resolver, nil until Start succeeds.
func (c *Component) GetResolver() *Resolver {
	return c.resolver
}

// IsEnabled reports whether the component is active.
func (c *Component) IsEnabled() bool {
	return c.config.Enabled
}
