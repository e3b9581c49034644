package executor

import (
	"sync"
	"time"
)

// pairState tracks execution progress for a single pair. The orchestrator
// never queues work behind an in-flight execution; new opportunities for a
// busy pair are dropped.
type pairState struct {
	inFlight            bool
	lastAttemptAt       time.Time
	consecutiveFailures int
}

// stateTable is a lock-protected map of pair key to execution state.
type stateTable struct {
	mu     sync.Mutex
	states map[string]*pairState
}

func newStateTable() *stateTable {
	return &stateTable{states: make(map[string]*pairState)}
}

// tryBegin marks the pair in flight. It reports false when an execution is
// already running for the pair.
func (t *stateTable) tryBegin(key string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	st, ok := t.states[key]
	if !ok {
		st = &pairState{}
		t.states[key] = st
	}
	if st.inFlight {
		return false
	}
	st.inFlight = true
	st.lastAttemptAt = time.Now()
	return true
}

// finish clears the in-flight flag and updates the failure streak.
func (t *stateTable) finish(key string, succeeded bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	st := t.states[key]
	st.inFlight = false
	if succeeded {
		st.consecutiveFailures = 0
	} else {
		st.consecutiveFailures++
	}
}

// release clears the in-flight flag without touching the failure streak.
// Used when an execution is dropped before any submission attempt.
func (t *stateTable) release(key string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.states[key].inFlight = false
}

// failures returns the pair's current consecutive failure count.
func (t *stateTable) failures(key string) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	if st, ok := t.states[key]; ok {
		return st.consecutiveFailures
	}
	return 0
}
