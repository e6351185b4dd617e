package status

import (
	"fmt"
	"slices"
	"sync"

	"github.com/quicksapp/quicks/internal/bus"
)

// State represents a daemon runtime state.
type State string

const (
	// Booting: process started, nothing primed yet.
	Booting State = "BOOTING"
	// Priming: initial fetch of the four collections in progress.
	Priming State = "PRIMING"
	// Ready: collections primed, serving from cache.
	Ready State = "READY"
	// Degraded: serving whatever cache exists; the remote source is
	// unreachable or the last refresh pass failed.
	Degraded State = "DEGRADED"
	// Error: unrecoverable fault (store unusable).
	Error State = "ERROR"
)

// validTransitions defines allowed state transitions.
var validTransitions = map[State][]State{
	Booting:  {Priming, Error},
	Priming:  {Ready, Degraded, Error},
	Ready:    {Degraded, Error},
	Degraded: {Ready, Priming, Error},
	Error:    {Booting},
}

// Machine tracks and enforces daemon runtime state transitions.
type Machine struct {
	mu      sync.RWMutex
	current State
	bus     *bus.Bus
}

// NewMachine creates a new state machine starting in Booting state.
func NewMachine(b *bus.Bus) *Machine {
	return &Machine{
		current: Booting,
		bus:     b,
	}
}

// Current returns the current state.
func (m *Machine) Current() State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.current
}

// Transition attempts to move to a new state. Returns error if the
// transition is invalid. Transitioning to the current state is a no-op.
func (m *Machine) Transition(to State) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if to == m.current {
		return nil
	}
	allowed := validTransitions[m.current]
	if !slices.Contains(allowed, to) {
		return fmt.Errorf("invalid transition from %s to %s", m.current, to)
	}
	from := m.current
	m.current = to
	if m.bus != nil {
		m.bus.Publish(bus.Event{
			Kind: "daemon.state_changed",
			Payload: StatusChange{
				From: from,
				To:   to,
			},
		})
	}
	return nil
}

// StatusChange is the payload for daemon.state_changed events.
type StatusChange struct {
	From State
	To   State
}
