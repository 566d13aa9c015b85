package component

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"
)

// StandardRegistry is the default Registry implementation. It resolves
// dependencies into layers and runs each layer concurrently.
type StandardRegistry struct {
	mu         sync.RWMutex
	components map[string]Component
	logger     *zap.Logger
}

// NewRegistry creates an empty component registry.
func NewRegistry() *StandardRegistry {
	return &StandardRegistry{
		components: make(map[string]Component),
	}
}

// SetLogger attaches the lifecycle logger. May only be called once;
// lifecycle events before the call are dropped, so attach as early as
// the logging stack allows (right after the logger component's Init).
func (r *StandardRegistry) SetLogger(l *zap.Logger) {
	if r.logger != nil {
		panic("registry logger already set")
	}
	if l == nil {
		panic("registry logger cannot be nil")
	}
	r.logger = l
}

func (r *StandardRegistry) logInfo(msg string, fields ...zap.Field) {
	if r.logger != nil {
		r.logger.Info(msg, fields...)
	}
}

func (r *StandardRegistry) logDebug(msg string, fields ...zap.Field) {
	if r.logger != nil {
		r.logger.Debug(msg, fields...)
	}
}

func (r *StandardRegistry) logError(msg string, fields ...zap.Field) {
	if r.logger != nil {
		r.logger.Error(msg, fields...)
	}
}

// Register adds a component to the registry.
func (r *StandardRegistry) Register(comp Component) error {
	if comp == nil {
		return fmt.Errorf("component cannot be nil")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	name := comp.Name()
	if name == "" {
		return fmt.Errorf("component name cannot be empty")
	}
	if _, exists := r.components[name]; exists {
		return fmt.Errorf("component '%s' already registered", name)
	}

	r.components[name] = comp
	return nil
}

// MustRegister registers a component and panics on failure. Used for
// core components where registration failure means a programming error.
func (r *StandardRegistry) MustRegister(comp Component) {
	if err := r.Register(comp); err != nil {
		panic(fmt.Sprintf("register core component '%s': %v", comp.Name(), err))
	}
}

// Get returns the component and whether it is registered.
func (r *StandardRegistry) Get(name string) (Component, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	comp, ok := r.components[name]
	return comp, ok
}

// MustGet returns the component or panics when absent.
func (r *StandardRegistry) MustGet(name string) Component {
	comp, ok := r.Get(name)
	if !ok {
		panic(fmt.Sprintf("component '%s' not registered", name))
	}
	return comp
}

// Has reports whether a component is registered.
func (r *StandardRegistry) Has(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, exists := r.components[name]
	return exists
}

// GetTyped fetches a component and casts it to the requested type.
//
//	mqComp, ok := component.GetTyped[*rabbitmq.Component](reg, component.ComponentRabbitMQ)
func GetTyped[T Component](r Registry, name string) (T, bool) {
	var zero T
	comp, ok := r.Get(name)
	if !ok {
		return zero, false
	}

	typed, ok := comp.(T)
	if !ok {
		return zero, false
	}
	return typed, true
}

// MustGetTyped fetches a typed component or panics when it is absent or
// has the wrong type.
func MustGetTyped[T Component](r Registry, name string) T {
	typed, ok := GetTyped[T](r, name)
	if !ok {
		var zero T
		panic(fmt.Sprintf("component '%s' not registered or not of type %T", name, zero))
	}
	return typed
}

// Resolve returns all components in dependency order.
func (r *StandardRegistry) Resolve() ([]Component, error) {
	layers, err := r.resolveLayers()
	if err != nil {
		return nil, err
	}

	var result []Component
	for _, layer := range layers {
		result = append(result, layer...)
	}
	return result, nil
}

// Init initializes all components layer by layer. The config component
// must be registered: it implements ConfigLoader and every component
// reads its configuration through it.
func (r *StandardRegistry) Init(ctx context.Context) error {
	r.logInfo("🚀 initializing components", zap.Int("total", r.count()))

	configComp, ok := r.Get(ComponentConfig)
	if !ok {
		return fmt.Errorf("config component not registered")
	}
	loader, ok := configComp.(ConfigLoader)
	if !ok {
		return fmt.Errorf("config component does not implement ConfigLoader")
	}

	layers, err := r.resolveLayers()
	if err != nil {
		r.logError("❌ resolving component dependencies failed", zap.Error(err))
		return fmt.Errorf("resolve component dependencies: %w", err)
	}
	r.logDebug("component layers resolved", zap.Int("layers", len(layers)))

	for layerIdx, layer := range layers {
		r.logDebug("initializing component layer",
			zap.Int("layer", layerIdx),
			zap.Int("count", len(layer)))

		if err := r.runLayer(layer, func(c Component) error {
			r.logDebug("initializing component", zap.String("component", c.Name()))
			return c.Init(ctx, loader)
		}); err != nil {
			r.logError("❌ component initialization failed", zap.Error(err))
			return err
		}
	}

	r.logInfo("✅ all components initialized")
	return nil
}

// Start starts all components layer by layer.
func (r *StandardRegistry) Start(ctx context.Context) error {
	r.logInfo("🚀 starting components")

	layers, err := r.resolveLayers()
	if err != nil {
		r.logError("❌ resolving component dependencies failed", zap.Error(err))
		return fmt.Errorf("resolve component dependencies: %w", err)
	}

	for layerIdx, layer := range layers {
		r.logDebug("starting component layer",
			zap.Int("layer", layerIdx),
			zap.Int("count", len(layer)))

		if err := r.runLayer(layer, func(c Component) error {
			r.logDebug("starting component", zap.String("component", c.Name()))
			return c.Start(ctx)
		}); err != nil {
			r.logError("❌ component start failed", zap.Error(err))
			return err
		}
	}

	r.logInfo("✅ all components started")
	return nil
}

// Stop stops all components in reverse layer order. Stop errors are
// swallowed so every component gets a chance to shut down.
func (r *StandardRegistry) Stop(ctx context.Context) error {
	r.logInfo("🛑 stopping components")

	layers, err := r.resolveLayers()
	if err != nil {
		r.logError("❌ resolving component dependencies failed", zap.Error(err))
		return fmt.Errorf("resolve component dependencies: %w", err)
	}

	for i := len(layers) - 1; i >= 0; i-- {
		r.logDebug("stopping component layer",
			zap.Int("layer", i),
			zap.Int("count", len(layers[i])))
		r.stopLayer(ctx, layers[i])
	}

	r.logInfo("✅ all components stopped")
	return nil
}

func (r *StandardRegistry) count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.components)
}

// runLayer runs fn on every component of a layer, concurrently when the
// layer has more than one member. The first error wins.
func (r *StandardRegistry) runLayer(layer []Component, fn func(Component) error) error {
	if len(layer) == 0 {
		return nil
	}

	if len(layer) == 1 {
		comp := layer[0]
		if err := fn(comp); err != nil {
			return fmt.Errorf("component '%s': %w", comp.Name(), err)
		}
		return nil
	}

	type result struct {
		comp Component
		err  error
	}
	results := make(chan result, len(layer))

	for _, comp := range layer {
		go func(c Component) {
			results <- result{comp: c, err: fn(c)}
		}(comp)
	}

	var firstErr error
	for range layer {
		res := <-results
		if res.err != nil && firstErr == nil {
			firstErr = fmt.Errorf("component '%s': %w", res.comp.Name(), res.err)
		}
	}
	return firstErr
}

func (r *StandardRegistry) stopLayer(ctx context.Context, layer []Component) {
	var wg sync.WaitGroup
	for _, comp := range layer {
		wg.Add(1)
		go func(c Component) {
			defer wg.Done()
			if err := c.Stop(ctx); err != nil {
				r.logError("component stop failed",
					zap.String("component", c.Name()),
					zap.Error(err))
			}
		}(comp)
	}
	wg.Wait()
}

const optionalPrefix = "optional:"

// resolveLayers groups components into dependency layers via Kahn's
// algorithm. Layer 0 has no dependencies, layer N depends only on
// layers < N.
func (r *StandardRegistry) resolveLayers() ([][]Component, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	inDegree := make(map[string]int)
	graph := make(map[string][]string)
	for name := range r.components {
		inDegree[name] = 0
		graph[name] = []string{}
	}

	for name, comp := range r.components {
		for _, dep := range comp.DependsOn() {
			depName := strings.TrimPrefix(dep, optionalPrefix)
			isOptional := depName != dep

			if _, ok := r.components[depName]; !ok {
				if !isOptional {
					return nil, fmt.Errorf("component '%s' depends on unregistered '%s'", name, depName)
				}
				continue
			}

			graph[depName] = append(graph[depName], name)
			inDegree[name]++
		}
	}

	var layers [][]Component
	processed := make(map[string]bool)

	for len(processed) < len(r.components) {
		var currentLayer []string
		for name, degree := range inDegree {
			if processed[name] || degree != 0 {
				continue
			}
			currentLayer = append(currentLayer, name)
			processed[name] = true
		}

		if len(currentLayer) == 0 {
			return nil, fmt.Errorf("component dependency cycle detected")
		}

		layer := make([]Component, 0, len(currentLayer))
		for _, name := range currentLayer {
			layer = append(layer, r.components[name])
			for _, next := range graph[name] {
				inDegree[next]--
			}
		}
		layers = append(layers, layer)
	}

	return layers, nil
}
