package event

import (
	"sort"
	"strings"
	"sync"
)

// RouteConfig is one configured route.
type RouteConfig struct {
	Driver     string `mapstructure:"driver"`      // "broker" | "memory"
	RoutingKey string `mapstructure:"routing_key"` // broker key override, defaults to the event name
}

// Router matches event names against configured route rules, with
// wildcard support. Patterns use ":" as separator because viper would
// read "." as a nested config path:
//
//	events:
//	  routes:
//	    "user:updated": { driver: broker }
//	    "order:*":      { driver: broker }
//
// Dot-separated patterns are accepted too; both forms match the same
// dot-separated event names.
type Router struct {
	mu     sync.RWMutex
	routes map[string]RouteConfig
	sorted []routeEntry
}

// routeEntry is one pattern prepared for priority matching.
type routeEntry struct {
	pattern    string
	config     RouteConfig
	isWildcard bool
	priority   int // exact match > specific wildcard > catch-all
}

// NewRouter creates an empty router.
func NewRouter() *Router {
	return &Router{
		routes: make(map[string]RouteConfig),
	}
}

// LoadRoutes replaces the route table.
func (r *Router) LoadRoutes(routes map[string]RouteConfig) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.routes = routes
	r.rebuildSortedRoutes()
}

func (r *Router) rebuildSortedRoutes() {
	r.sorted = make([]routeEntry, 0, len(r.routes))

	for pattern, config := range r.routes {
		// "." patterns are accepted and normalized to the ":" form
		normalized := strings.ReplaceAll(pattern, ".", ":")
		entry := routeEntry{
			pattern:    normalized,
			config:     config,
			isWildcard: strings.Contains(normalized, "*"),
		}

		// lower number matches first
		if !entry.isWildcard {
			entry.priority = 0
		} else if normalized == "*" {
			entry.priority = 1000
		} else {
			// longer prefix wins: "order:created:*" over "order:*"
			entry.priority = 100 - len(strings.TrimSuffix(normalized, "*"))
		}

		r.sorted = append(r.sorted, entry)
	}

	sort.Slice(r.sorted, func(i, j int) bool {
		return r.sorted[i].priority < r.sorted[j].priority
	})
}

// Match returns the route for an event name, nil when none applies.
// Event names use "."; patterns use ":"; names are normalized before
// matching so "user.updated" hits the "user:*" pattern.
func (r *Router) Match(eventName string) *RouteConfig {
	r.mu.RLock()
	defer r.mu.RUnlock()

	normalizedName := strings.ReplaceAll(eventName, ".", ":")

	for _, entry := range r.sorted {
		if r.matchPattern(entry.pattern, normalizedName) {
			config := entry.config
			return &config
		}
	}

	return nil
}

// matchPattern supports exact names, suffix wildcards ("order:*"),
// single-segment wildcards ("order:*:done") and the catch-all "*".
// Both sides are in normalized ":" form by now.
func (r *Router) matchPattern(pattern, eventName string) bool {
	if pattern == eventName {
		return true
	}

	if pattern == "*" {
		return true
	}

	if strings.HasSuffix(pattern, ":*") {
		prefix := strings.TrimSuffix(pattern, ":*")
		return strings.HasPrefix(eventName, prefix+":")
	}

	if strings.Contains(pattern, "*") {
		return r.matchWildcard(pattern, eventName)
	}

	return false
}

// matchWildcard treats "*" as exactly one segment.
func (r *Router) matchWildcard(pattern, eventName string) bool {
	patternParts := strings.Split(pattern, ":")
	eventParts := strings.Split(eventName, ":")

	if len(patternParts) != len(eventParts) {
		return false
	}

	for i, pp := range patternParts {
		if pp == "*" {
			continue
		}
		if pp != eventParts[i] {
			return false
		}
	}

	return true
}

// HasRoutes reports whether any route is configured.
func (r *Router) HasRoutes() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.routes) > 0
}

// RouteCount returns the number of configured routes.
func (r *Router) RouteCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.routes)
}
