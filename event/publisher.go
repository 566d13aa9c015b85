package event

import (
	"context"

	"github.com/KOMKZ/go-aegis-framework/logger"
	"go.uber.org/zap"
)

// BrokerPublisher decouples the event layer from the broker client.
// rabbitmq.Publisher satisfies it.
type BrokerPublisher interface {
	PublishJSON(ctx context.Context, routingKey string, value interface{}) error
}

// Publisher propagates state changes to other services, best-effort.
//
// The contract is strict: a failed publish is logged and swallowed. It
// never propagates to the caller, never retries and never rolls back
// the local commit. Consumers that miss an event recover through their
// fallback caches.
type Publisher struct {
	broker BrokerPublisher
	logger *logger.CtxZapLogger
}

// NewPublisher creates a best-effort publisher over broker.
func NewPublisher(broker BrokerPublisher) *Publisher {
	return &Publisher{
		broker: broker,
		logger: logger.GetLogger("aegis"),
	}
}

// PublishAfterCommit publishes evt under routingKey (the event name when
// empty). Call it only after the local transaction committed.
func (p *Publisher) PublishAfterCommit(ctx context.Context, routingKey string, evt Event) {
	if evt == nil {
		return
	}
	if routingKey == "" {
		routingKey = evt.Name()
	}

	if p.broker == nil {
		p.logger.WarnCtx(ctx, "⚠️ Event dropped, no broker publisher configured",
			zap.String("event", evt.Name()))
		return
	}

	traceID := ""
	if v := ctx.Value("trace_id"); v != nil {
		if s, ok := v.(string); ok {
			traceID = s
		}
	}

	env, err := Serialize(evt, traceID)
	if err != nil {
		p.logger.ErrorCtx(ctx, "⚠️ Event dropped, serialization failed",
			zap.String("event", evt.Name()),
			zap.Error(err))
		return
	}

	if err := p.broker.PublishJSON(ctx, routingKey, env); err != nil {
		// Swallowed on purpose: the local commit already happened and
		// must not be rolled back or blocked by broker trouble.
		p.logger.ErrorCtx(ctx, "⚠️ Event publish failed, continuing without it",
			zap.String("event", evt.Name()),
			zap.String("routing_key", routingKey),
			zap.String("event_id", env.EventID),
			zap.Error(err))
		return
	}

	p.logger.DebugCtx(ctx, "📤 Event published",
		zap.String("event", evt.Name()),
		zap.String("routing_key", routingKey),
		zap.String("event_id", env.EventID))
}
