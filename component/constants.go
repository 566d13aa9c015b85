package component

// Well-known component names.
const (
	ComponentConfig    = "config"
	ComponentLogger    = "logger"
	ComponentDatabase  = "database"
	ComponentRedis     = "redis"
	ComponentRabbitMQ  = "rabbitmq"
	ComponentEvent     = "event"
	ComponentBreaker   = "breaker"
	ComponentFallback  = "fallback"
	ComponentTelemetry = "telemetry"
	ComponentHealth    = "health"
)
