package redis

import (
	"context"
	"errors"
	"net"
	"time"

	"github.com/redis/go-redis/v9"
)

// MetricsHook feeds command outcomes into a RedisMetrics provider. One
// hook instance serves one named client.
type MetricsHook struct {
	metrics  *RedisMetrics
	instance string
}

// NewMetricsHook creates a hook bound to the given instance name.
func NewMetricsHook(metrics *RedisMetrics, instance string) *MetricsHook {
	return &MetricsHook{
		metrics:  metrics,
		instance: instance,
	}
}

// DialHook passes connection establishment through untouched.
func (h *MetricsHook) DialHook(next redis.DialHook) redis.DialHook {
	return func(ctx context.Context, network, addr string) (net.Conn, error) {
		return next(ctx, network, addr)
	}
}

// ProcessHook records every command. GET additionally counts as a cache
// hit or miss; redis.Nil is a miss, not an error.
func (h *MetricsHook) ProcessHook(next redis.ProcessHook) redis.ProcessHook {
	return func(ctx context.Context, cmd redis.Cmder) error {
		start := time.Now()
		err := next(ctx, cmd)
		duration := time.Since(start)

		h.metrics.RecordCommand(ctx, h.instance, cmd.Name(), duration, nilAsOK(err))

		if cmd.Name() == "get" {
			switch {
			case errors.Is(err, redis.Nil):
				h.metrics.RecordCacheMiss(ctx, h.instance)
			case err == nil:
				h.metrics.RecordCacheHit(ctx, h.instance)
			}
		}

		return err
	}
}

// ProcessPipelineHook records pipelined commands, splitting the batch
// duration evenly since per-command timing is not observable.
func (h *MetricsHook) ProcessPipelineHook(next redis.ProcessPipelineHook) redis.ProcessPipelineHook {
	return func(ctx context.Context, cmds []redis.Cmder) error {
		if len(cmds) == 0 {
			return next(ctx, cmds)
		}

		start := time.Now()
		err := next(ctx, cmds)
		duration := time.Since(start)

		cmdDuration := duration / time.Duration(len(cmds))
		for _, cmd := range cmds {
			h.metrics.RecordCommand(ctx, h.instance, cmd.Name(), cmdDuration, nilAsOK(cmd.Err()))
		}

		return err
	}
}

// nilAsOK strips redis.Nil so key misses do not count as command
// failures.
func nilAsOK(err error) error {
	if errors.Is(err, redis.Nil) {
		return nil
	}
	return err
}
