package redis

import (
	"context"
	"fmt"
	"sync"

	"github.com/KOMKZ/go-aegis-framework/logger"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Manager owns the configured redis clients, keyed by instance name.
// Standalone and cluster instances live in separate maps because their
// go-redis client types share no useful interface.
type Manager struct {
	instances map[string]*redis.Client
	clusters  map[string]*redis.ClusterClient
	configs   map[string]Config
	logger    *logger.CtxZapLogger
	mu        sync.RWMutex

	// metrics is nil until SetMetrics attaches the command hooks.
	metrics *RedisMetrics
}

// NewManager connects every configured instance. Each client is pinged
// once so a bad address fails startup instead of the first command.
func NewManager(configs map[string]Config, log *logger.CtxZapLogger) (*Manager, error) {
	if log == nil {
		return nil, fmt.Errorf("logger cannot be nil")
	}

	m := &Manager{
		instances: make(map[string]*redis.Client),
		clusters:  make(map[string]*redis.ClusterClient),
		configs:   make(map[string]Config),
		logger:    log,
	}

	for name, cfg := range configs {
		cfg.ApplyDefaults()

		if err := cfg.Validate(); err != nil {
			return nil, fmt.Errorf("invalid config for %s: %w", name, err)
		}

		switch cfg.Mode {
		case "standalone":
			client, err := m.createClient(cfg)
			if err != nil {
				return nil, fmt.Errorf("failed to create client %s: %w", name, err)
			}
			m.instances[name] = client
		case "cluster":
			cluster, err := m.createClusterClient(cfg)
			if err != nil {
				return nil, fmt.Errorf("failed to create cluster %s: %w", name, err)
			}
			m.clusters[name] = cluster
		}

		m.configs[name] = cfg

		m.logger.Debug("Redis connection successful",
			zap.String("name", name),
			zap.String("mode", cfg.Mode),
			zap.Strings("addrs", cfg.Addrs))
	}

	return m, nil
}

func (m *Manager) createClient(cfg Config) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Addrs[0],
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     cfg.PoolSize,
		MinIdleConns: cfg.MinIdleConns,
		MaxRetries:   cfg.MaxRetries,
		DialTimeout:  cfg.DialTimeout,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	})

	if err := client.Ping(context.Background()).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("ping failed: %w", err)
	}

	return client, nil
}

func (m *Manager) createClusterClient(cfg Config) (*redis.ClusterClient, error) {
	cluster := redis.NewClusterClient(&redis.ClusterOptions{
		Addrs:        cfg.Addrs,
		Password:     cfg.Password,
		PoolSize:     cfg.PoolSize,
		MinIdleConns: cfg.MinIdleConns,
		MaxRetries:   cfg.MaxRetries,
		DialTimeout:  cfg.DialTimeout,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	})

	if err := cluster.Ping(context.Background()).Err(); err != nil {
		cluster.Close()
		return nil, fmt.Errorf("ping cluster failed: %w", err)
	}

	return cluster, nil
}

// Client returns the named standalone client, nil when the name is
// unknown or configured as a cluster.
func (m *Manager) Client(name string) *redis.Client {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.instances[name]
}

// Cluster returns the named cluster client, nil when the name is
// unknown or configured standalone.
func (m *Manager) Cluster(name string) *redis.ClusterClient {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.clusters[name]
}

// WithDB returns a new client on the same instance pointed at another
// database number. The caller owns the returned client and must close
// it. Nil when the instance is unknown or the target unreachable.
func (m *Manager) WithDB(name string, db int) *redis.Client {
	client := m.Client(name)
	if client == nil {
		return nil
	}

	opts := client.Options()
	opts.DB = db

	newClient := redis.NewClient(opts)

	if err := newClient.Ping(context.Background()).Err(); err != nil {
		m.logger.Error("WithDB database connection failed",
			zap.String("name", name),
			zap.Int("db", db),
			zap.Error(err))
		newClient.Close()
		return nil
	}

	return newClient
}

// Ping checks every instance and fails on the first unreachable one.
func (m *Manager) Ping(ctx context.Context) error {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for name, client := range m.instances {
		if err := client.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("ping %s failed: %w", name, err)
		}
	}

	for name, cluster := range m.clusters {
		if err := cluster.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("ping cluster %s failed: %w", name, err)
		}
	}

	return nil
}

// GetInstanceNames lists the standalone instance names.
func (m *Manager) GetInstanceNames() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	names := make([]string, 0, len(m.instances))
	for name := range m.instances {
		names = append(names, name)
	}
	return names
}

// GetClusterNames lists the cluster instance names.
func (m *Manager) GetClusterNames() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	names := make([]string, 0, len(m.clusters))
	for name := range m.clusters {
		names = append(names, name)
	}
	return names
}

// Close closes all clients. Individual close failures are logged, not
// returned, so one bad client cannot block the rest of the shutdown.
func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for name, client := range m.instances {
		if err := client.Close(); err != nil {
			m.logger.Error("failed to close redis connection",
				zap.String("name", name),
				zap.Error(err))
		}
	}

	for name, cluster := range m.clusters {
		if err := cluster.Close(); err != nil {
			m.logger.Error("failed to close redis cluster connection",
				zap.String("name", name),
				zap.Error(err))
		}
	}

	return nil
}

// Shutdown is Close under the method name shutdown-aware DI containers
// look for.
func (m *Manager) Shutdown() error {
	return m.Close()
}

// SetMetrics attaches the command hook and pool stat callbacks to every
// client. Idempotent; a nil or disabled provider is ignored.
func (m *Manager) SetMetrics(metrics *RedisMetrics) {
	if metrics == nil || !metrics.IsMetricsEnabled() {
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.metrics != nil {
		return
	}
	m.metrics = metrics

	for name, client := range m.instances {
		client.AddHook(NewMetricsHook(metrics, name))

		if metrics.config.RecordPoolStats {
			c := client
			metrics.RegisterPoolCallback(name, func() PoolStats {
				stats := c.PoolStats()
				return PoolStats{
					ActiveCount: int64(stats.TotalConns - stats.IdleConns),
					IdleCount:   int64(stats.IdleConns),
				}
			})
		}

		m.logger.Debug("Redis metrics hook added",
			zap.String("instance", name),
			zap.String("mode", "standalone"))
	}

	for name, cluster := range m.clusters {
		cluster.AddHook(NewMetricsHook(metrics, name))

		if metrics.config.RecordPoolStats {
			c := cluster
			metrics.RegisterPoolCallback(name, func() PoolStats {
				stats := c.PoolStats()
				return PoolStats{
					ActiveCount: int64(stats.TotalConns - stats.IdleConns),
					IdleCount:   int64(stats.IdleConns),
				}
			})
		}

		m.logger.Debug("Redis metrics hook added",
			zap.String("instance", name),
			zap.String("mode", "cluster"))
	}
}
