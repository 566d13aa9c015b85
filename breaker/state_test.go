package breaker

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewStateManager(t *testing.T) {
	sm := newStateManager()

	assert.NotNil(t, sm)
	assert.Equal(t, StateClosed, sm.GetState())
	assert.Equal(t, 0, sm.GetFailureCount())
	assert.Equal(t, 0, sm.GetSuccessCount())
}

func TestStateManager_Acquire(t *testing.T) {
	config := DefaultResourceConfig()
	config.OpenTimeout = 100 * time.Millisecond
	config.HalfOpenMaxCalls = 3

	t.Run("closed allows calls", func(t *testing.T) {
		sm := newStateManager()

		moved, err := sm.Acquire(config)

		assert.False(t, moved)
		assert.NoError(t, err)
	})

	t.Run("open rejects while the timer runs", func(t *testing.T) {
		sm := newStateManager()
		sm.mu.Lock()
		sm.state = StateOpen
		sm.lastStateChange = time.Now()
		sm.mu.Unlock()

		moved, err := sm.Acquire(config)

		assert.False(t, moved)
		assert.ErrorIs(t, err, ErrCircuitOpen)
	})

	t.Run("open moves to half-open after the timeout", func(t *testing.T) {
		sm := newStateManager()
		sm.mu.Lock()
		sm.state = StateOpen
		sm.lastStateChange = time.Now().Add(-200 * time.Millisecond)
		sm.mu.Unlock()

		moved, err := sm.Acquire(config)

		assert.True(t, moved)
		assert.NoError(t, err)
		assert.Equal(t, StateHalfOpen, sm.GetState())
	})

	t.Run("the timer-expiry acquisition takes the first trial slot", func(t *testing.T) {
		cfg := config
		cfg.HalfOpenMaxCalls = 1

		sm := newStateManager()
		sm.mu.Lock()
		sm.state = StateOpen
		sm.lastStateChange = time.Now().Add(-200 * time.Millisecond)
		sm.mu.Unlock()

		_, err := sm.Acquire(cfg)
		require.NoError(t, err)

		_, err = sm.Acquire(cfg)
		assert.ErrorIs(t, err, ErrTooManyRequests)
	})

	t.Run("half-open admits exactly the allowance", func(t *testing.T) {
		sm := newStateManager()
		sm.mu.Lock()
		sm.state = StateHalfOpen
		sm.mu.Unlock()

		for i := 0; i < 3; i++ {
			_, err := sm.Acquire(config)
			assert.NoError(t, err, "trial %d", i+1)
		}

		_, err := sm.Acquire(config)
		assert.ErrorIs(t, err, ErrTooManyRequests)
	})
}

func TestStateManager_ReleaseTrial(t *testing.T) {
	config := DefaultResourceConfig()
	config.OpenTimeout = 100 * time.Millisecond
	config.HalfOpenMaxCalls = 1

	sm := newStateManager()
	sm.mu.Lock()
	sm.state = StateOpen
	sm.lastStateChange = time.Now().Add(-200 * time.Millisecond)
	sm.mu.Unlock()

	moved, err := sm.Acquire(config)
	require.True(t, moved)
	require.NoError(t, err)

	_, err = sm.Acquire(config)
	require.ErrorIs(t, err, ErrTooManyRequests)

	// A returned slot admits the next trial without a state change.
	sm.ReleaseTrial()
	_, err = sm.Acquire(config)
	assert.NoError(t, err)
	assert.Equal(t, StateHalfOpen, sm.GetState())
}

func TestStateManager_RecordSuccess(t *testing.T) {
	config := DefaultResourceConfig()
	config.HalfOpenMaxCalls = 2

	t.Run("closed success resets the failure count", func(t *testing.T) {
		sm := newStateManager()
		sm.mu.Lock()
		sm.failureCount = 5
		sm.mu.Unlock()

		changed, _, _ := sm.RecordSuccess(config)

		assert.False(t, changed)
		assert.Equal(t, 0, sm.GetFailureCount())
		assert.Equal(t, StateClosed, sm.GetState())
	})

	t.Run("half-open success below the allowance keeps probing", func(t *testing.T) {
		sm := newStateManager()
		sm.mu.Lock()
		sm.state = StateHalfOpen
		sm.mu.Unlock()

		changed, _, _ := sm.RecordSuccess(config)

		assert.False(t, changed)
		assert.Equal(t, 1, sm.GetSuccessCount())
		assert.Equal(t, StateHalfOpen, sm.GetState())
	})

	t.Run("half-open success at the allowance closes", func(t *testing.T) {
		sm := newStateManager()
		sm.mu.Lock()
		sm.state = StateHalfOpen
		sm.successCount = 1
		sm.failureCount = 3
		sm.mu.Unlock()

		changed, from, to := sm.RecordSuccess(config)

		assert.True(t, changed)
		assert.Equal(t, StateHalfOpen, from)
		assert.Equal(t, StateClosed, to)
		assert.Equal(t, StateClosed, sm.GetState())
		assert.Equal(t, 0, sm.GetSuccessCount())
		assert.Equal(t, 0, sm.GetFailureCount())
	})

	t.Run("a single trial success closes with the default allowance", func(t *testing.T) {
		cfg := DefaultResourceConfig()
		require.Equal(t, 1, cfg.HalfOpenMaxCalls)

		sm := newStateManager()
		sm.mu.Lock()
		sm.state = StateHalfOpen
		sm.halfOpenInFlight = 1
		sm.mu.Unlock()

		changed, from, to := sm.RecordSuccess(cfg)

		assert.True(t, changed)
		assert.Equal(t, StateHalfOpen, from)
		assert.Equal(t, StateClosed, to)
	})
}

func TestStateManager_RecordFailure(t *testing.T) {
	t.Run("closed failure increments the count", func(t *testing.T) {
		sm := newStateManager()

		changed, _, _ := sm.RecordFailure()

		assert.False(t, changed)
		assert.Equal(t, 1, sm.GetFailureCount())
		assert.Equal(t, StateClosed, sm.GetState())
	})

	t.Run("half-open failure reopens immediately", func(t *testing.T) {
		sm := newStateManager()
		sm.mu.Lock()
		sm.state = StateHalfOpen
		sm.successCount = 1
		sm.failureCount = 2
		sm.mu.Unlock()

		changed, from, to := sm.RecordFailure()

		assert.True(t, changed)
		assert.Equal(t, StateHalfOpen, from)
		assert.Equal(t, StateOpen, to)
		assert.Equal(t, StateOpen, sm.GetState())
		assert.Equal(t, 0, sm.GetSuccessCount())
		assert.Equal(t, 0, sm.GetFailureCount())
	})

	t.Run("open failure changes nothing", func(t *testing.T) {
		sm := newStateManager()
		sm.mu.Lock()
		sm.state = StateOpen
		sm.mu.Unlock()

		changed, _, _ := sm.RecordFailure()

		assert.False(t, changed)
		assert.Equal(t, StateOpen, sm.GetState())
	})
}

func TestStateManager_TrialFailureRestartsOpenTimer(t *testing.T) {
	config := DefaultResourceConfig()
	config.OpenTimeout = 60 * time.Millisecond

	sm := newStateManager()
	sm.mu.Lock()
	sm.state = StateOpen
	sm.lastStateChange = time.Now().Add(-100 * time.Millisecond)
	sm.mu.Unlock()

	// Timer expired, the trial gets through.
	moved, err := sm.Acquire(config)
	require.True(t, moved)
	require.NoError(t, err)

	// The failed trial reopens and restarts the timer.
	changed, _, to := sm.RecordFailure()
	require.True(t, changed)
	require.Equal(t, StateOpen, to)

	_, err = sm.Acquire(config)
	assert.ErrorIs(t, err, ErrCircuitOpen)

	time.Sleep(80 * time.Millisecond)

	moved, err = sm.Acquire(config)
	assert.True(t, moved)
	assert.NoError(t, err)
}

func TestStateManager_ShouldOpen(t *testing.T) {
	t.Run("closed trips on a positive verdict", func(t *testing.T) {
		sm := newStateManager()

		changed, from, to := sm.ShouldOpen(true)

		assert.True(t, changed)
		assert.Equal(t, StateClosed, from)
		assert.Equal(t, StateOpen, to)
		assert.Equal(t, StateOpen, sm.GetState())
	})

	t.Run("closed ignores a negative verdict", func(t *testing.T) {
		sm := newStateManager()

		changed, _, _ := sm.ShouldOpen(false)

		assert.False(t, changed)
		assert.Equal(t, StateClosed, sm.GetState())
	})

	t.Run("open ignores the verdict", func(t *testing.T) {
		sm := newStateManager()
		sm.mu.Lock()
		sm.state = StateOpen
		sm.mu.Unlock()

		changed, _, _ := sm.ShouldOpen(true)

		assert.False(t, changed)
		assert.Equal(t, StateOpen, sm.GetState())
	})

	t.Run("half-open ignores the verdict", func(t *testing.T) {
		sm := newStateManager()
		sm.mu.Lock()
		sm.state = StateHalfOpen
		sm.mu.Unlock()

		changed, _, _ := sm.ShouldOpen(true)

		assert.False(t, changed)
		assert.Equal(t, StateHalfOpen, sm.GetState())
	})
}

func TestStateManager_Reset(t *testing.T) {
	t.Run("resets open to closed", func(t *testing.T) {
		sm := newStateManager()
		sm.mu.Lock()
		sm.state = StateOpen
		sm.failureCount = 10
		sm.successCount = 5
		sm.halfOpenInFlight = 2
		sm.mu.Unlock()

		changed, from, to := sm.Reset()

		assert.True(t, changed)
		assert.Equal(t, StateOpen, from)
		assert.Equal(t, StateClosed, to)
		assert.Equal(t, StateClosed, sm.GetState())
		assert.Equal(t, 0, sm.GetFailureCount())
		assert.Equal(t, 0, sm.GetSuccessCount())
	})

	t.Run("resets half-open to closed", func(t *testing.T) {
		sm := newStateManager()
		sm.mu.Lock()
		sm.state = StateHalfOpen
		sm.mu.Unlock()

		changed, from, to := sm.Reset()

		assert.True(t, changed)
		assert.Equal(t, StateHalfOpen, from)
		assert.Equal(t, StateClosed, to)
	})

	t.Run("closed reset reports no change", func(t *testing.T) {
		sm := newStateManager()
		sm.mu.Lock()
		sm.failureCount = 3
		sm.mu.Unlock()

		changed, _, _ := sm.Reset()

		assert.False(t, changed)
		assert.Equal(t, StateClosed, sm.GetState())
		assert.Equal(t, 0, sm.GetFailureCount())
	})
}

func TestStateManager_Concurrent(t *testing.T) {
	sm := newStateManager()
	config := DefaultResourceConfig()

	done := make(chan bool)

	for i := 0; i < 10; i++ {
		go func() {
			for j := 0; j < 100; j++ {
				_ = sm.GetState()
				_ = sm.GetFailureCount()
				_ = sm.GetSuccessCount()
			}
			done <- true
		}()
	}

	for i := 0; i < 10; i++ {
		go func() {
			for j := 0; j < 100; j++ {
				_, _ = sm.Acquire(config)
				sm.RecordSuccess(config)
				sm.RecordFailure()
			}
			done <- true
		}()
	}

	for i := 0; i < 20; i++ {
		<-done
	}

	state := sm.GetState()
	assert.True(t, state == StateClosed || state == StateOpen || state == StateHalfOpen)
}

func TestStateManager_GetLastStateChange(t *testing.T) {
	sm := newStateManager()

	before := time.Now()
	time.Sleep(10 * time.Millisecond)

	sm.mu.Lock()
	sm.transitionTo(StateOpen)
	sm.mu.Unlock()

	time.Sleep(10 * time.Millisecond)
	after := time.Now()

	lastChange := sm.GetLastStateChange()
	assert.True(t, lastChange.After(before))
	assert.True(t, lastChange.Before(after))
}
