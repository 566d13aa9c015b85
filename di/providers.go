package di

import (
	goredis "github.com/redis/go-redis/v9"
	"github.com/samber/do/v2"
	"gorm.io/gorm"

	"github.com/KOMKZ/go-aegis-framework/breaker"
	"github.com/KOMKZ/go-aegis-framework/component"
	"github.com/KOMKZ/go-aegis-framework/database"
	"github.com/KOMKZ/go-aegis-framework/event"
	"github.com/KOMKZ/go-aegis-framework/fallback"
	"github.com/KOMKZ/go-aegis-framework/redis"
)

// Default instance names the eager registration exposes.
const (
	DefaultDBName    = "master"
	DefaultRedisName = "default"
)

// RegisterCoreServices exposes the core objects owned by initialized
// components to the injector: the master *gorm.DB, the default
// *goredis.Client, the event dispatcher and publisher, and the fallback
// resolver. Call it after the registry finished starting; components
// that are missing or unconfigured are skipped, so a service depending
// on one fails at Invoke time instead of at bootstrap.
func RegisterCoreServices(injector do.Injector, reg component.Registry) {
	if dbComp, ok := component.GetTyped[*database.Component](reg, component.ComponentDatabase); ok {
		if mgr := dbComp.GetManager(); mgr != nil {
			if db := mgr.DB(DefaultDBName); db != nil {
				do.ProvideValue(injector, db)
			}
		}
	}

	if redisComp, ok := component.GetTyped[*redis.Component](reg, component.ComponentRedis); ok {
		if mgr := redisComp.GetManager(); mgr != nil {
			if client := mgr.Client(DefaultRedisName); client != nil {
				do.ProvideValue(injector, client)
			}
		}
	}

	if eventComp, ok := component.GetTyped[*event.Component](reg, component.ComponentEvent); ok {
		if dispatcher := eventComp.GetDispatcher(); dispatcher != nil {
			do.ProvideValue[event.Dispatcher](injector, dispatcher)
		}
		if publisher := eventComp.GetPublisher(); publisher != nil {
			do.ProvideValue(injector, publisher)
		}
	}

	if fbComp, ok := component.GetTyped[*fallback.Component](reg, component.ComponentFallback); ok {
		if resolver := fbComp.GetResolver(); resolver != nil {
			do.ProvideValue(injector, resolver)
		}
	}

	if brComp, ok := component.GetTyped[*breaker.Component](reg, component.ComponentBreaker); ok {
		if mgr := brComp.GetManager(); mgr != nil {
			do.ProvideValue(injector, mgr)
		}
	}
}

// ProvideDB returns a lazy provider for the named gorm connection.
func ProvideDB(reg component.Registry, name string) func(do.Injector) (*gorm.DB, error) {
	return func(i do.Injector) (*gorm.DB, error) {
		dbComp, ok := component.GetTyped[*database.Component](reg, component.ComponentDatabase)
		if !ok {
			return nil, ErrServiceNotFound("database component")
		}
		mgr := dbComp.GetManager()
		if mgr == nil {
			return nil, ErrServiceNotFound("database manager")
		}
		db := mgr.DB(name)
		if db == nil {
			return nil, ErrServiceNotFound("database connection: " + name)
		}
		return db, nil
	}
}

// ProvideRedis returns a lazy provider for the named redis client.
func ProvideRedis(reg component.Registry, name string) func(do.Injector) (*goredis.Client, error) {
	return func(i do.Injector) (*goredis.Client, error) {
		redisComp, ok := component.GetTyped[*redis.Component](reg, component.ComponentRedis)
		if !ok {
			return nil, ErrServiceNotFound("redis component")
		}
		mgr := redisComp.GetManager()
		if mgr == nil {
			return nil, ErrServiceNotFound("redis manager")
		}
		client := mgr.Client(name)
		if client == nil {
			return nil, ErrServiceNotFound("redis instance: " + name)
		}
		return client, nil
	}
}

// ProvideEventPublisher returns a lazy provider for the after-commit
// publisher. Before a broker is attached the publisher drops events with
// a warning, so callers always get a usable value.
func ProvideEventPublisher(reg component.Registry) func(do.Injector) (*event.Publisher, error) {
	return func(i do.Injector) (*event.Publisher, error) {
		eventComp, ok := component.GetTyped[*event.Component](reg, component.ComponentEvent)
		if !ok {
			return nil, ErrServiceNotFound("event component")
		}
		if publisher := eventComp.GetPublisher(); publisher != nil {
			return publisher, nil
		}
		return event.NewPublisher(nil), nil
	}
}

// ProvideFallbackResolver returns a lazy provider for the fallback cache
// resolver.
func ProvideFallbackResolver(reg component.Registry) func(do.Injector) (*fallback.Resolver, error) {
	return func(i do.Injector) (*fallback.Resolver, error) {
		fbComp, ok := component.GetTyped[*fallback.Component](reg, component.ComponentFallback)
		if !ok {
			return nil, ErrServiceNotFound("fallback component")
		}
		resolver := fbComp.GetResolver()
		if resolver == nil {
			return nil, ErrServiceNotFound("fallback resolver")
		}
		return resolver, nil
	}
}

// ProvideBreakerManager returns a lazy provider for the circuit breaker
// manager.
func ProvideBreakerManager(reg component.Registry) func(do.Injector) (*breaker.Manager, error) {
	return func(i do.Injector) (*breaker.Manager, error) {
		brComp, ok := component.GetTyped[*breaker.Component](reg, component.ComponentBreaker)
		if !ok {
			return nil, ErrServiceNotFound("breaker component")
		}
		mgr := brComp.GetManager()
		if mgr == nil {
			return nil, ErrServiceNotFound("breaker manager")
		}
		return mgr, nil
	}
}

// ErrServiceNotFound builds the lookup error for a missing core object.
func ErrServiceNotFound(name string) error {
	return &ServiceNotFoundError{Name: name}
}

// ServiceNotFoundError reports a core object the injector could not
// assemble because its component is missing or unconfigured.
type ServiceNotFoundError struct {
	Name string
}

func (e *ServiceNotFoundError) Error() string {
	return "core service not found: " + e.Name
}
