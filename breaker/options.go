package breaker

// Option customizes a Manager at construction time.
type Option func(*callbacks)

// callbacks holds the optional transition and fallback hooks. Hooks run on
// the event bus dispatch goroutine in publish order; they must not block.
type callbacks struct {
	onOpen     []func(*StateChangedEvent)
	onClose    []func(*StateChangedEvent)
	onHalfOpen []func(*StateChangedEvent)
	onFallback []func(*FallbackEvent)
}

func (c *callbacks) empty() bool {
	return len(c.onOpen) == 0 && len(c.onClose) == 0 &&
		len(c.onHalfOpen) == 0 && len(c.onFallback) == 0
}

// OnEvent routes bus events to the registered hooks.
func (c *callbacks) OnEvent(event Event) {
	switch e := event.(type) {
	case *StateChangedEvent:
		switch e.To {
		case StateOpen:
			for _, fn := range c.onOpen {
				fn(e)
			}
		case StateClosed:
			for _, fn := range c.onClose {
				fn(e)
			}
		case StateHalfOpen:
			for _, fn := range c.onHalfOpen {
				fn(e)
			}
		}
	case *FallbackEvent:
		for _, fn := range c.onFallback {
			fn(e)
		}
	}
}

// OnOpen registers a hook fired when any resource trips open.
func OnOpen(fn func(*StateChangedEvent)) Option {
	return func(c *callbacks) {
		c.onOpen = append(c.onOpen, fn)
	}
}

// OnClose registers a hook fired when any resource recovers to Closed.
func OnClose(fn func(*StateChangedEvent)) Option {
	return func(c *callbacks) {
		c.onClose = append(c.onClose, fn)
	}
}

// OnHalfOpen registers a hook fired when any resource starts probing.
func OnHalfOpen(fn func(*StateChangedEvent)) Option {
	return func(c *callbacks) {
		c.onHalfOpen = append(c.onHalfOpen, fn)
	}
}

// OnFallback registers a hook fired after every fallback invocation.
func OnFallback(fn func(*FallbackEvent)) Option {
	return func(c *callbacks) {
		c.onFallback = append(c.onFallback, fn)
	}
}
