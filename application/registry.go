package application

import (
	"context"

	"go.uber.org/zap"

	"github.com/KOMKZ/go-aegis-framework/breaker"
	"github.com/KOMKZ/go-aegis-framework/component"
	"github.com/KOMKZ/go-aegis-framework/database"
	"github.com/KOMKZ/go-aegis-framework/event"
	"github.com/KOMKZ/go-aegis-framework/fallback"
	"github.com/KOMKZ/go-aegis-framework/health"
	"github.com/KOMKZ/go-aegis-framework/rabbitmq"
	"github.com/KOMKZ/go-aegis-framework/redis"
	"github.com/KOMKZ/go-aegis-framework/telemetry"
)

// RegisterCoreComponents registers the framework's optional components.
// Each one reads its own configuration section and stays inert when the
// section is absent, so registering all of them is safe for every
// application. Business components register separately afterwards.
func RegisterCoreComponents(b *BaseApplication) {
	b.MustRegisterComponent(telemetry.NewComponent())
	b.MustRegisterComponent(breaker.NewComponent())
	b.MustRegisterComponent(database.NewComponent())
	b.MustRegisterComponent(redis.NewComponent())
	b.MustRegisterComponent(rabbitmq.NewComponent())
	b.MustRegisterComponent(fallback.NewComponent())
	b.MustRegisterComponent(event.NewComponent())
	b.MustRegisterComponent(health.NewComponent())
}

// wireAfterInit connects components whose collaborators must be in
// place before Start: the fallback store needs the redis manager to
// build its backend, and the health component needs the registry to
// discover checkers.
func (b *BaseApplication) wireAfterInit(ctx context.Context) {
	if fb, ok := component.GetTyped[*fallback.Component](b.registry, component.ComponentFallback); ok {
		if rd, ok := component.GetTyped[*redis.Component](b.registry, component.ComponentRedis); ok && rd.GetManager() != nil {
			fb.SetRedisManager(rd.GetManager())
		}
	}

	if db, ok := component.GetTyped[*database.Component](b.registry, component.ComponentDatabase); ok {
		db.SetRegistry(b.registry)
	}

	if rd, ok := component.GetTyped[*redis.Component](b.registry, component.ComponentRedis); ok {
		rd.SetRegistry(b.registry)
	}

	if br, ok := component.GetTyped[*breaker.Component](b.registry, component.ComponentBreaker); ok {
		br.SetRegistry(b.registry)
	}

	if ev, ok := component.GetTyped[*event.Component](b.registry, component.ComponentEvent); ok {
		ev.SetRegistry(b.registry)
	}

	if hc, ok := component.GetTyped[*health.Component](b.registry, component.ComponentHealth); ok {
		hc.SetRegistry(b.registry)
	}
}

// wireAfterStart connects components that need a live collaborator: the
// event publisher wants an open broker channel, which only exists after
// the rabbitmq component started.
func (b *BaseApplication) wireAfterStart(ctx context.Context) {
	ev, ok := component.GetTyped[*event.Component](b.registry, component.ComponentEvent)
	if !ok || !ev.IsEnabled() {
		return
	}

	mq, ok := component.GetTyped[*rabbitmq.Component](b.registry, component.ComponentRabbitMQ)
	if !ok || mq.GetManager() == nil {
		return
	}

	publisher, err := mq.GetManager().GetPublisher()
	if err != nil {
		b.logger.WarnCtx(ctx, "Broker publisher unavailable, events stay local",
			zap.Error(err))
		return
	}

	ev.SetBrokerPublisher(publisher)
	b.logger.DebugCtx(ctx, "✅ Event publisher attached to broker")
}
