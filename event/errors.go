package event

import "errors"

// ErrStopPropagation stops event propagation without being treated as a
// failure: later listeners do not run, Dispatch still returns nil.
var ErrStopPropagation = errors.New("stop propagation")

// ErrBrokerNotAvailable is returned when an event routes to the broker
// but no broker publisher was configured.
var ErrBrokerNotAvailable = errors.New("broker publisher not available")
