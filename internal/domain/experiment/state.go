package experiment

import "fmt"

// RunState represents the lifecycle state of one scheduled run.
type RunState string

const (
	StateIdle      RunState = "idle"      // Created, descriptors not yet built
	StateScheduled RunState = "scheduled" // Descriptors built, nothing launched
	StateRunning   RunState = "running"   // Processes launching or in flight
	StateCompleted RunState = "completed" // Every listener resolved
	StateCancelled RunState = "cancelled" // Torn down before completion
)

// IsTerminal checks if the state admits no further transitions.
func (s RunState) IsTerminal() bool {
	return s == StateCompleted || s == StateCancelled
}

// CanTransitionTo checks if a transition from the current state to the
// target state is valid.
func (s RunState) CanTransitionTo(target RunState) bool {
	transitions := map[RunState][]RunState{
		StateIdle:      {StateScheduled, StateCancelled},
		StateScheduled: {StateRunning, StateCancelled},
		StateRunning:   {StateCompleted, StateCancelled},
	}

	for _, allowed := range transitions[s] {
		if allowed == target {
			return true
		}
	}
	return false
}

// String implements Stringer.
func (s RunState) String() string {
	return string(s)
}

// InvalidStateTransitionError reports a rejected state transition.
type InvalidStateTransitionError struct {
	From RunState
	To   RunState
}

func (e *InvalidStateTransitionError) Error() string {
	return fmt.Sprintf("invalid state transition: %s -> %s", e.From, e.To)
}
