package errcode

import "net/http"

// Framework module codes. Applications register their own modules from 20 up.
const (
	ModuleResolver = 10 // cross-service entity resolution
	ModuleBroker   = 11 // message broker connectivity and consumption
	ModuleHTTP     = 12 // inbound HTTP surface
)

// Resolution fault taxonomy.
//
// EntityInvalid is a client-class fault: the upstream answered 4xx, the
// entity reference is bad, nothing is retried and the original caller sees
// a 4xx-equivalent. UpstreamTransient covers 5xx, transport errors and
// per-attempt timeouts; it is retried and then absorbed by the breaker.
// ServiceUnavailable is what surfaces once the breaker is open or retries
// are exhausted AND no fallback entry exists for the requested id.
var (
	ErrEntityInvalid = Register(New(ModuleResolver, 1, "resolver",
		"error.resolver.entity_invalid", "referenced entity is invalid", http.StatusBadRequest))

	ErrUpstreamTransient = Register(New(ModuleResolver, 2, "resolver",
		"error.resolver.upstream_transient", "upstream temporarily unavailable", http.StatusBadGateway))

	ErrServiceUnavailable = Register(New(ModuleResolver, 3, "resolver",
		"error.resolver.service_unavailable", "service unavailable and no fallback entry", http.StatusServiceUnavailable))
)

// Broker fault taxonomy.
//
// BrokerUnreachable is the startup connection failure after the supervisor
// exhausted its attempts; it is fatal to the owning process. MessageMalformed
// marks a consumed message whose payload cannot be parsed; the message is
// rejected without requeue. PublishFailed never propagates past the
// publisher, it exists for logging and tests.
var (
	ErrBrokerUnreachable = Register(New(ModuleBroker, 1, "broker",
		"error.broker.unreachable", "message broker unreachable", http.StatusServiceUnavailable))

	ErrMessageMalformed = Register(New(ModuleBroker, 2, "broker",
		"error.broker.message_malformed", "message payload malformed", http.StatusBadRequest))

	ErrPublishFailed = Register(New(ModuleBroker, 3, "broker",
		"error.broker.publish_failed", "event publish failed", http.StatusInternalServerError))
)

// Inbound surface faults. ValidationFailed carries the per-field details in
// its data under "fields".
var (
	ErrValidationFailed = Register(New(ModuleHTTP, 1, "httpx",
		"error.httpx.validation_failed", "request validation failed", http.StatusBadRequest))
)
