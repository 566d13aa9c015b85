package breaker

import (
	"sync"
	"time"
)

// stateManager holds the state machine position and the counters that drive
// transitions. It performs no I/O; callers publish events from its reported
// transitions.
type stateManager struct {
	state            State
	lastStateChange  time.Time
	failureCount     int
	successCount     int
	halfOpenInFlight int
	mu               sync.Mutex
}

func newStateManager() *stateManager {
	return &stateManager{
		state:           StateClosed,
		lastStateChange: time.Now(),
	}
}

// GetState returns the current state.
func (sm *stateManager) GetState() State {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	return sm.state
}

// Acquire decides whether a call may proceed. It returns ErrCircuitOpen
// while the open timer runs and ErrTooManyRequests once the half-open trial
// allowance is taken. movedToHalfOpen reports the Open -> HalfOpen timer
// transition so the caller can publish it; the acquiring call is the trial.
func (sm *stateManager) Acquire(config ResourceConfig) (movedToHalfOpen bool, err error) {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	switch sm.state {
	case StateClosed:
		return false, nil

	case StateOpen:
		if time.Since(sm.lastStateChange) >= config.OpenTimeout {
			sm.transitionTo(StateHalfOpen)
			sm.halfOpenInFlight = 1
			return true, nil
		}
		return false, ErrCircuitOpen

	case StateHalfOpen:
		if sm.halfOpenInFlight < config.HalfOpenMaxCalls {
			sm.halfOpenInFlight++
			return false, nil
		}
		return false, ErrTooManyRequests

	default:
		return false, ErrCircuitOpen
	}
}

// RecordSuccess feeds a successful call into the state machine. In HalfOpen
// the trial allowance closes the breaker once every admitted call succeeded.
func (sm *stateManager) RecordSuccess(config ResourceConfig) (changed bool, from, to State) {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	switch sm.state {
	case StateClosed:
		sm.failureCount = 0

	case StateHalfOpen:
		sm.successCount++
		if sm.successCount >= config.HalfOpenMaxCalls {
			from = sm.state
			sm.transitionTo(StateClosed)
			sm.resetCounters()
			return true, from, sm.state
		}
	}

	return false, sm.state, sm.state
}

// RecordFailure feeds a failed call into the state machine. A failed
// half-open trial reopens immediately and restarts the open timer.
func (sm *stateManager) RecordFailure() (changed bool, from, to State) {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	switch sm.state {
	case StateClosed:
		sm.failureCount++

	case StateHalfOpen:
		from = sm.state
		sm.transitionTo(StateOpen)
		sm.resetCounters()
		return true, from, sm.state
	}

	return false, sm.state, sm.state
}

// ReleaseTrial hands back a half-open trial slot after a call whose outcome
// said nothing about the upstream, so the next caller gets the slot.
func (sm *stateManager) ReleaseTrial() {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	if sm.state == StateHalfOpen && sm.halfOpenInFlight > 0 {
		sm.halfOpenInFlight--
	}
}

// ShouldOpen applies a strategy verdict. Only a Closed breaker trips; Open
// and HalfOpen ignore it.
func (sm *stateManager) ShouldOpen(open bool) (changed bool, from, to State) {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	if sm.state == StateClosed && open {
		from = sm.state
		sm.transitionTo(StateOpen)
		return true, from, sm.state
	}

	return false, sm.state, sm.state
}

// Reset forces the breaker back to Closed.
func (sm *stateManager) Reset() (changed bool, from, to State) {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	if sm.state != StateClosed {
		from = sm.state
		sm.transitionTo(StateClosed)
		sm.resetCounters()
		return true, from, sm.state
	}

	sm.resetCounters()
	return false, sm.state, sm.state
}

// transitionTo moves the state machine and restarts the transition timer.
// Caller must hold sm.mu.
func (sm *stateManager) transitionTo(newState State) {
	sm.state = newState
	sm.lastStateChange = time.Now()
}

// resetCounters clears per-episode counters. Caller must hold sm.mu.
func (sm *stateManager) resetCounters() {
	sm.failureCount = 0
	sm.successCount = 0
	sm.halfOpenInFlight = 0
}

func (sm *stateManager) GetFailureCount() int {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	return sm.failureCount
}

func (sm *stateManager) GetSuccessCount() int {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	return sm.successCount
}

// GetLastStateChange returns when the state machine last moved.
func (sm *stateManager) GetLastStateChange() time.Time {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	return sm.lastStateChange
}
