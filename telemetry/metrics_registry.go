package telemetry

import (
	"fmt"
	"sync"

	"github.com/KOMKZ/go-aegis-framework/component"
	"github.com/KOMKZ/go-aegis-framework/logger"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
)

// MetricsRegistry hands out namespaced meters and collects the
// MetricsProvider registrations of the framework components. Each
// provider gets one meter named {namespace}_{provider}; base labels
// apply to every instrument the providers create.
type MetricsRegistry struct {
	mu sync.RWMutex

	meterProvider metric.MeterProvider
	namespace     string
	baseLabels    []attribute.KeyValue
	enabled       bool

	meters    map[string]metric.Meter
	providers []component.MetricsProvider

	logger *logger.CtxZapLogger
}

var _ component.MetricsCollector = (*MetricsRegistry)(nil)

// MetricsRegistryOption configures the registry.
type MetricsRegistryOption func(*MetricsRegistry)

// WithNamespace sets the meter name prefix.
func WithNamespace(namespace string) MetricsRegistryOption {
	return func(r *MetricsRegistry) {
		r.namespace = namespace
	}
}

// WithBaseLabels sets labels attached to every provider's instruments.
func WithBaseLabels(labels []attribute.KeyValue) MetricsRegistryOption {
	return func(r *MetricsRegistry) {
		r.baseLabels = labels
	}
}

// WithLogger sets the registry logger.
func WithLogger(l *logger.CtxZapLogger) MetricsRegistryOption {
	return func(r *MetricsRegistry) {
		r.logger = l
	}
}

// NewMetricsRegistry creates a registry on mp, falling back to the
// global meter provider when mp is nil.
func NewMetricsRegistry(mp metric.MeterProvider, opts ...MetricsRegistryOption) *MetricsRegistry {
	if mp == nil {
		mp = otel.GetMeterProvider()
	}

	r := &MetricsRegistry{
		meterProvider: mp,
		namespace:     "aegis",
		enabled:       true,
		meters:        make(map[string]metric.Meter),
		logger:        logger.GetLogger("aegis"),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Register gives provider a dedicated meter and lets it create its
// instruments. Nil providers and duplicate names are errors; a provider
// reporting metrics disabled is skipped silently, as is the whole call
// while the registry is disabled.
func (r *MetricsRegistry) Register(provider component.MetricsProvider) error {
	if provider == nil {
		return fmt.Errorf("metrics provider is nil")
	}
	if !r.enabled {
		return nil
	}
	if !provider.IsMetricsEnabled() {
		r.logger.Debug("metrics disabled for provider",
			zap.String("provider", provider.MetricsName()))
		return nil
	}

	name := provider.MetricsName()
	if name == "" {
		return fmt.Errorf("metrics provider name is empty")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	for _, registered := range r.providers {
		if registered.MetricsName() == name {
			return fmt.Errorf("metrics provider %q already registered", name)
		}
	}

	if err := provider.RegisterMetrics(r.meterLocked(name)); err != nil {
		return fmt.Errorf("register metrics for %q failed: %w", name, err)
	}
	r.providers = append(r.providers, provider)

	r.logger.Info("metrics provider registered", zap.String("provider", name))
	return nil
}

// GetMeter returns the meter for name, creating it on first use.
func (r *MetricsRegistry) GetMeter(name string) metric.Meter {
	r.mu.RLock()
	meter, ok := r.meters[name]
	r.mu.RUnlock()
	if ok {
		return meter
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	return r.meterLocked(name)
}

// meterLocked creates or returns the cached meter. Caller holds mu.
func (r *MetricsRegistry) meterLocked(name string) metric.Meter {
	if meter, ok := r.meters[name]; ok {
		return meter
	}

	meterName := name
	if r.namespace != "" {
		meterName = r.namespace + "_" + name
	}
	meter := r.meterProvider.Meter(meterName)
	r.meters[name] = meter
	return meter
}

// GetBaseLabels returns a copy of the global base labels.
func (r *MetricsRegistry) GetBaseLabels() []attribute.KeyValue {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]attribute.KeyValue{}, r.baseLabels...)
}

// IsEnabled reports whether the registry accepts registrations.
func (r *MetricsRegistry) IsEnabled() bool {
	return r.enabled
}

// SetEnabled toggles registration. Providers already registered keep
// their instruments.
func (r *MetricsRegistry) SetEnabled(enabled bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.enabled = enabled
}

// GetProviders returns a copy of the registered providers.
func (r *MetricsRegistry) GetProviders() []component.MetricsProvider {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]component.MetricsProvider{}, r.providers...)
}

// GetProviderCount returns how many providers registered.
func (r *MetricsRegistry) GetProviderCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.providers)
}
