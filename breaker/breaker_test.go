package breaker

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errUpstream = errors.New("upstream exploded")

func newTestManager(t *testing.T, mutate func(*Config), opts ...Option) *Manager {
	t.Helper()

	config := DefaultConfig()
	config.Enabled = true
	if mutate != nil {
		mutate(&config)
	}

	mgr, err := NewManager(config, opts...)
	require.NoError(t, err)
	t.Cleanup(mgr.Close)
	return mgr
}

// tripOpen drives the resource into Open with consecutive failures.
func tripOpen(t *testing.T, mgr *Manager, resource string, failures int) {
	t.Helper()

	for i := 0; i < failures; i++ {
		mgr.Fire(context.Background(), &Request{
			Resource: resource,
			Execute: func(ctx context.Context) (interface{}, error) {
				return nil, errUpstream
			},
		})
	}
	require.Equal(t, StateOpen, mgr.GetState(resource))
}

func TestNewManager(t *testing.T) {
	t.Run("enabled manager carries an event bus", func(t *testing.T) {
		config := DefaultConfig()
		config.Enabled = true

		mgr, err := NewManager(config)
		require.NoError(t, err)
		defer mgr.Close()

		assert.True(t, mgr.IsEnabled())
		assert.NotNil(t, mgr.GetEventBus())
	})

	t.Run("disabled manager has no bus", func(t *testing.T) {
		mgr, err := NewManager(DefaultConfig())
		require.NoError(t, err)

		assert.False(t, mgr.IsEnabled())
		assert.Nil(t, mgr.GetEventBus())
	})

	t.Run("invalid config is rejected", func(t *testing.T) {
		config := DefaultConfig()
		config.Enabled = true
		config.Default.FailureRateThreshold = 1.5

		mgr, err := NewManager(config)
		assert.Error(t, err)
		assert.Nil(t, mgr)
	})
}

func TestManager_Fire_Disabled(t *testing.T) {
	mgr, err := NewManager(DefaultConfig())
	require.NoError(t, err)

	called := false
	resp := mgr.Fire(context.Background(), &Request{
		Resource: "svc",
		Execute: func(ctx context.Context) (interface{}, error) {
			called = true
			return "result", nil
		},
	})

	assert.True(t, called)
	assert.NoError(t, resp.Error)
	assert.Equal(t, "result", resp.Value)
	assert.False(t, resp.FromFallback)
}

func TestManager_Fire_Success(t *testing.T) {
	mgr := newTestManager(t, nil)

	resp := mgr.Fire(context.Background(), &Request{
		Resource: "svc",
		Execute: func(ctx context.Context) (interface{}, error) {
			return "ok", nil
		},
	})

	assert.NoError(t, resp.Error)
	assert.Equal(t, "ok", resp.Value)
	assert.Equal(t, StateClosed, mgr.GetState("svc"))

	metrics := mgr.GetMetrics("svc")
	assert.Equal(t, int64(1), metrics.Successes)
}

func TestManager_Fire_FailureWithoutFallback(t *testing.T) {
	mgr := newTestManager(t, nil)

	resp := mgr.Fire(context.Background(), &Request{
		Resource: "svc",
		Execute: func(ctx context.Context) (interface{}, error) {
			return nil, errUpstream
		},
	})

	assert.ErrorIs(t, resp.Error, errUpstream)
	assert.Nil(t, resp.Value)
	assert.Equal(t, int64(1), mgr.GetMetrics("svc").Failures)
}

// A failed call consults the fallback even while the breaker is Closed, and
// the failure still lands in the window.
func TestManager_Fire_FallbackOnExecuteFailure(t *testing.T) {
	mgr := newTestManager(t, nil)

	var fallbackCause error
	resp := mgr.Fire(context.Background(), &Request{
		Resource: "svc",
		Execute: func(ctx context.Context) (interface{}, error) {
			return nil, errUpstream
		},
		Fallback: func(ctx context.Context, err error) (interface{}, error) {
			fallbackCause = err
			return "cached", nil
		},
	})

	assert.NoError(t, resp.Error)
	assert.Equal(t, "cached", resp.Value)
	assert.True(t, resp.FromFallback)
	assert.ErrorIs(t, fallbackCause, errUpstream)
	assert.Equal(t, int64(1), mgr.GetMetrics("svc").Failures)
}

func TestManager_Fire_FallbackErrorPropagates(t *testing.T) {
	mgr := newTestManager(t, nil)

	errNoEntry := errors.New("no cached entry")
	resp := mgr.Fire(context.Background(), &Request{
		Resource: "svc",
		Execute: func(ctx context.Context) (interface{}, error) {
			return nil, errUpstream
		},
		Fallback: func(ctx context.Context, err error) (interface{}, error) {
			return nil, errNoEntry
		},
	})

	assert.ErrorIs(t, resp.Error, errNoEntry)
	assert.False(t, resp.FromFallback)
}

// Crossing the failure threshold short-circuits the next call: Execute is
// never invoked and the rejection is recorded.
func TestManager_Fire_OpenShortCircuits(t *testing.T) {
	mgr := newTestManager(t, func(c *Config) {
		c.Default.MinRequests = 4
	})
	tripOpen(t, mgr, "svc", 4)

	executed := false
	resp := mgr.Fire(context.Background(), &Request{
		Resource: "svc",
		Execute: func(ctx context.Context) (interface{}, error) {
			executed = true
			return "ok", nil
		},
	})

	assert.False(t, executed)
	assert.ErrorIs(t, resp.Error, ErrCircuitOpen)
	assert.Equal(t, int64(1), mgr.GetMetrics("svc").Rejections)
}

func TestManager_Fire_OpenRoutesFallback(t *testing.T) {
	mgr := newTestManager(t, func(c *Config) {
		c.Default.MinRequests = 4
	})
	tripOpen(t, mgr, "svc", 4)

	executed := false
	resp := mgr.Fire(context.Background(), &Request{
		Resource: "svc",
		Execute: func(ctx context.Context) (interface{}, error) {
			executed = true
			return "ok", nil
		},
		Fallback: func(ctx context.Context, err error) (interface{}, error) {
			assert.ErrorIs(t, err, ErrCircuitOpen)
			return "cached", nil
		},
	})

	assert.False(t, executed)
	assert.NoError(t, resp.Error)
	assert.Equal(t, "cached", resp.Value)
	assert.True(t, resp.FromFallback)
}

// After the open timeout exactly one trial goes through; a concurrent
// caller is rejected with ErrTooManyRequests.
func TestManager_Fire_HalfOpenAdmitsSingleTrial(t *testing.T) {
	mgr := newTestManager(t, func(c *Config) {
		c.Default.MinRequests = 2
		c.Default.OpenTimeout = 80 * time.Millisecond
	})
	tripOpen(t, mgr, "svc", 2)

	time.Sleep(120 * time.Millisecond)

	gate := make(chan struct{})
	entered := make(chan struct{})
	trialDone := make(chan *Response, 1)

	go func() {
		trialDone <- mgr.Fire(context.Background(), &Request{
			Resource: "svc",
			Execute: func(ctx context.Context) (interface{}, error) {
				close(entered)
				<-gate
				return "recovered", nil
			},
		})
	}()

	<-entered
	require.Equal(t, StateHalfOpen, mgr.GetState("svc"))

	// Second caller while the trial is in flight.
	executed := false
	resp := mgr.Fire(context.Background(), &Request{
		Resource: "svc",
		Execute: func(ctx context.Context) (interface{}, error) {
			executed = true
			return "ok", nil
		},
	})
	assert.False(t, executed)
	assert.ErrorIs(t, resp.Error, ErrTooManyRequests)

	close(gate)
	trial := <-trialDone
	assert.NoError(t, trial.Error)
	assert.Equal(t, "recovered", trial.Value)
	assert.Equal(t, StateClosed, mgr.GetState("svc"))
}

// Recovery resets the window so stale failures cannot re-trip the breaker.
func TestManager_Fire_TrialSuccessCloses(t *testing.T) {
	mgr := newTestManager(t, func(c *Config) {
		c.Default.MinRequests = 2
		c.Default.OpenTimeout = 60 * time.Millisecond
	})
	tripOpen(t, mgr, "svc", 2)

	time.Sleep(90 * time.Millisecond)

	resp := mgr.Fire(context.Background(), &Request{
		Resource: "svc",
		Execute: func(ctx context.Context) (interface{}, error) {
			return "ok", nil
		},
	})

	assert.NoError(t, resp.Error)
	assert.Equal(t, StateClosed, mgr.GetState("svc"))
	assert.Equal(t, int64(0), mgr.GetMetrics("svc").TotalRequests)
}

func TestManager_Fire_TrialFailureReopensAndResetsTimer(t *testing.T) {
	mgr := newTestManager(t, func(c *Config) {
		c.Default.MinRequests = 2
		c.Default.OpenTimeout = 80 * time.Millisecond
	})
	tripOpen(t, mgr, "svc", 2)

	time.Sleep(120 * time.Millisecond)

	// The trial fails and reopens the breaker.
	resp := mgr.Fire(context.Background(), &Request{
		Resource: "svc",
		Execute: func(ctx context.Context) (interface{}, error) {
			return nil, errUpstream
		},
	})
	assert.ErrorIs(t, resp.Error, errUpstream)
	assert.Equal(t, StateOpen, mgr.GetState("svc"))

	// The open timer restarted: an immediate call is rejected even though
	// more than OpenTimeout has passed since the first trip.
	executed := false
	resp = mgr.Fire(context.Background(), &Request{
		Resource: "svc",
		Execute: func(ctx context.Context) (interface{}, error) {
			executed = true
			return "ok", nil
		},
	})
	assert.False(t, executed)
	assert.ErrorIs(t, resp.Error, ErrCircuitOpen)

	time.Sleep(120 * time.Millisecond)

	resp = mgr.Fire(context.Background(), &Request{
		Resource: "svc",
		Execute: func(ctx context.Context) (interface{}, error) {
			return "ok", nil
		},
	})
	assert.NoError(t, resp.Error)
	assert.Equal(t, StateClosed, mgr.GetState("svc"))
}

func TestManager_Fire_TimeoutCountsAsFailure(t *testing.T) {
	mgr := newTestManager(t, nil)

	resp := mgr.Fire(context.Background(), &Request{
		Resource: "svc",
		Timeout:  20 * time.Millisecond,
		Execute: func(ctx context.Context) (interface{}, error) {
			<-ctx.Done()
			return nil, ctx.Err()
		},
	})

	assert.ErrorIs(t, resp.Error, context.DeadlineExceeded)

	metrics := mgr.GetMetrics("svc")
	assert.Equal(t, int64(1), metrics.Timeouts)
	assert.InDelta(t, 1.0, metrics.FailureRate, 0.001)
}

func TestManager_Fire_CallerCancellationNotCounted(t *testing.T) {
	mgr := newTestManager(t, func(c *Config) {
		c.Default.MinRequests = 2
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	for i := 0; i < 20; i++ {
		resp := mgr.Fire(ctx, &Request{
			Resource: "svc",
			Execute: func(c context.Context) (interface{}, error) {
				<-c.Done()
				return nil, c.Err()
			},
		})
		require.ErrorIs(t, resp.Error, context.Canceled)
	}

	// Abandoned calls say nothing about the upstream: the window stays
	// empty and the breaker stays closed.
	assert.Equal(t, StateClosed, mgr.GetState("svc"))
	metrics := mgr.GetMetrics("svc")
	require.NotNil(t, metrics)
	assert.Zero(t, metrics.TotalRequests)
	assert.Zero(t, metrics.Timeouts)
}

func TestManager_TransitionHooks(t *testing.T) {
	var mu sync.Mutex
	var transitions []string
	record := func(name string) func(*StateChangedEvent) {
		return func(e *StateChangedEvent) {
			mu.Lock()
			transitions = append(transitions, name)
			mu.Unlock()
		}
	}

	var fallbacks int32

	mgr := newTestManager(t, func(c *Config) {
		c.Default.MinRequests = 2
		c.Default.OpenTimeout = 60 * time.Millisecond
	},
		OnOpen(record("open")),
		OnHalfOpen(record("half-open")),
		OnClose(record("closed")),
		OnFallback(func(e *FallbackEvent) {
			atomic.AddInt32(&fallbacks, 1)
		}),
	)

	tripOpen(t, mgr, "svc", 2)

	// Rejected call with a fallback while open.
	mgr.Fire(context.Background(), &Request{
		Resource: "svc",
		Execute: func(ctx context.Context) (interface{}, error) {
			return "ok", nil
		},
		Fallback: func(ctx context.Context, err error) (interface{}, error) {
			return "cached", nil
		},
	})

	time.Sleep(90 * time.Millisecond)

	// Successful trial: half-open, then closed.
	mgr.Fire(context.Background(), &Request{
		Resource: "svc",
		Execute: func(ctx context.Context) (interface{}, error) {
			return "ok", nil
		},
	})

	// Close drains the bus so every hook has fired.
	mgr.Close()

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"open", "half-open", "closed"}, transitions)
	assert.Equal(t, int32(1), atomic.LoadInt32(&fallbacks))
}

func TestManager_StateChangedEventCarriesMetrics(t *testing.T) {
	mgr := newTestManager(t, func(c *Config) {
		c.Default.MinRequests = 2
	})

	var mu sync.Mutex
	var events []*StateChangedEvent
	mgr.GetEventBus().Subscribe(EventListenerFunc(func(e Event) {
		if sc, ok := e.(*StateChangedEvent); ok {
			mu.Lock()
			events = append(events, sc)
			mu.Unlock()
		}
	}), EventStateChanged)

	tripOpen(t, mgr, "svc", 2)
	mgr.Close()

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, events, 1)
	assert.Equal(t, StateClosed, events[0].From)
	assert.Equal(t, StateOpen, events[0].To)
	assert.Equal(t, "failure threshold exceeded", events[0].Reason)
	require.NotNil(t, events[0].Metrics)
	assert.Equal(t, int64(2), events[0].Metrics.Failures)
}

func TestManager_MultipleResources(t *testing.T) {
	mgr := newTestManager(t, func(c *Config) {
		c.Default.MinRequests = 2
	})

	tripOpen(t, mgr, "flaky", 2)

	mgr.Fire(context.Background(), &Request{
		Resource: "healthy",
		Execute: func(ctx context.Context) (interface{}, error) {
			return "ok", nil
		},
	})

	assert.Equal(t, StateOpen, mgr.GetState("flaky"))
	assert.Equal(t, StateClosed, mgr.GetState("healthy"))

	states := mgr.States()
	assert.Equal(t, StateOpen, states["flaky"])
	assert.Equal(t, StateClosed, states["healthy"])
}

func TestManager_Reset(t *testing.T) {
	mgr := newTestManager(t, func(c *Config) {
		c.Default.MinRequests = 2
	})
	tripOpen(t, mgr, "svc", 2)

	mgr.Reset("svc")

	assert.Equal(t, StateClosed, mgr.GetState("svc"))
	assert.Equal(t, int64(0), mgr.GetMetrics("svc").TotalRequests)
}

func TestManager_PerResourceConfigOverride(t *testing.T) {
	mgr := newTestManager(t, func(c *Config) {
		c.Default.MinRequests = 100
		c.Resources = map[string]ResourceConfig{
			"touchy": {MinRequests: 2},
		}
	})

	// Two failures trip "touchy" but leave the default-configured
	// resource closed.
	tripOpen(t, mgr, "touchy", 2)

	for i := 0; i < 2; i++ {
		mgr.Fire(context.Background(), &Request{
			Resource: "patient",
			Execute: func(ctx context.Context) (interface{}, error) {
				return nil, errUpstream
			},
		})
	}
	assert.Equal(t, StateClosed, mgr.GetState("patient"))
}

func TestManager_SubscribeMetrics(t *testing.T) {
	mgr := newTestManager(t, nil)

	obs := &chanObserver{ch: make(chan *MetricsSnapshot, 8)}
	id := mgr.SubscribeMetrics("svc", obs)
	require.NotEmpty(t, id)

	mgr.Fire(context.Background(), &Request{
		Resource: "svc",
		Execute: func(ctx context.Context) (interface{}, error) {
			return "ok", nil
		},
	})

	select {
	case snapshot := <-obs.ch:
		assert.Equal(t, int64(1), snapshot.Successes)
	case <-time.After(2 * time.Second):
		t.Fatal("metrics observer was never notified")
	}
}

func TestManager_ConcurrentAccess(t *testing.T) {
	mgr := newTestManager(t, nil)

	var successCount, errorCount int32
	var wg sync.WaitGroup

	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()

			resp := mgr.Fire(context.Background(), &Request{
				Resource: "svc",
				Execute: func(ctx context.Context) (interface{}, error) {
					if idx%3 == 0 {
						return nil, errUpstream
					}
					return "ok", nil
				},
			})

			if resp.Error != nil {
				atomic.AddInt32(&errorCount, 1)
			} else {
				atomic.AddInt32(&successCount, 1)
			}
		}(i)
	}

	wg.Wait()

	total := atomic.LoadInt32(&successCount) + atomic.LoadInt32(&errorCount)
	assert.Equal(t, int32(100), total)
}
