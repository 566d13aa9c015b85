// Package component defines the component lifecycle contract.
// It sits at the bottom of the dependency graph and must not import any
// other framework package, so every component can depend on it.
package component

import "context"

// Component is the unified lifecycle contract for framework and business
// components. Lifecycle: Init -> Start -> Stop.
type Component interface {
	// Name returns the unique component identifier, used for dependency
	// declarations and registry lookups.
	Name() string

	// DependsOn declares the names of components this one needs.
	// The registry topologically sorts components by these declarations
	// to determine initialization order.
	//
	// Optional dependencies carry the "optional:" prefix:
	//
	//	return []string{
	//	    "config",              // required, error if unregistered
	//	    "logger",              // required, error if unregistered
	//	    "optional:telemetry",  // skipped if unregistered
	//	}
	//
	// An optional dependency still orders initialization when present.
	// When absent the component has to cope, typically with defaults.
	DependsOn() []string

	// Init creates resources without serving traffic. Components read
	// their own configuration through loader instead of reaching into
	// other components.
	Init(ctx context.Context, loader ConfigLoader) error

	// Start begins serving: listen on ports, dial brokers, run loops.
	Start(ctx context.Context) error

	// Stop releases resources. Must be idempotent.
	Stop(ctx context.Context) error
}

// HealthChecker is optionally implemented by components that can probe
// their own health.
type HealthChecker interface {
	// Check returns nil when healthy.
	Check(ctx context.Context) error

	// Name returns the check identifier, e.g. "database", "rabbitmq".
	Name() string
}

// HealthCheckProvider is optionally implemented by components that expose
// a health checker for the aggregator.
type HealthCheckProvider interface {
	GetHealthChecker() HealthChecker
}

// Registry manages components: registration, dependency resolution and
// ordered lifecycle execution.
type Registry interface {
	// Register adds a component. Fails on duplicate or empty names.
	Register(comp Component) error

	// Get returns the component and whether it is registered.
	Get(name string) (Component, bool)

	// MustGet returns the component or panics when absent.
	MustGet(name string) Component

	// Has reports whether a component is registered.
	Has(name string) bool

	// Resolve returns all components in dependency order.
	Resolve() ([]Component, error)

	// Init initializes components layer by layer. Components within a
	// layer run concurrently.
	Init(ctx context.Context) error

	// Start starts components layer by layer.
	Start(ctx context.Context) error

	// Stop stops components in reverse order. Stop errors are logged and
	// swallowed so every component gets a chance to shut down.
	Stop(ctx context.Context) error
}
