package experiment

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidRamp is returned when ramp parameters cannot produce a
	// finite step sequence. Raised before any process launches.
	ErrInvalidRamp = errors.New("invalid ramp parameters")
)

// ModeKind selects how descriptors are driven.
type ModeKind string

const (
	// Sequential launches one descriptor at a time, in discovery order.
	Sequential ModeKind = "sequential"
	// Parallel launches every descriptor at once. No concurrency cap is
	// imposed; host resources are the only bound.
	Parallel ModeKind = "parallel"
	// RampMode sweeps the iteration count per benchmark; every ramp step
	// is an independently scheduled process.
	RampMode ModeKind = "ramp"
)

// Mode is a scheduling mode, optionally carrying ramp parameters.
type Mode struct {
	Kind ModeKind `json:"kind"`
	Ramp Ramp     `json:"ramp,omitempty"`
}

// Validate checks the mode, including ramp parameters when applicable.
func (m Mode) Validate() error {
	switch m.Kind {
	case Sequential, Parallel:
		return nil
	case RampMode:
		return m.Ramp.Validate()
	default:
		return fmt.Errorf("%w: unknown mode %q", ErrInvalidRamp, m.Kind)
	}
}

// Ramp describes an iteration-count sweep: start, start+step, ... never
// passing end.
type Ramp struct {
	Start int `json:"start"`
	Step  int `json:"step"`
	End   int `json:"end"`
}

// Validate checks that the step is non-zero and sign-consistent with the
// start/end ordering.
func (r Ramp) Validate() error {
	if r.Step == 0 {
		return fmt.Errorf("%w: step must be non-zero", ErrInvalidRamp)
	}
	if r.Step > 0 && r.Start > r.End {
		return fmt.Errorf("%w: positive step with start %d > end %d", ErrInvalidRamp, r.Start, r.End)
	}
	if r.Step < 0 && r.Start < r.End {
		return fmt.Errorf("%w: negative step with start %d < end %d", ErrInvalidRamp, r.Start, r.End)
	}
	return nil
}

// Steps expands the ramp into its iteration counts. The caller must have
// validated the ramp first; an invalid ramp yields nil.
func (r Ramp) Steps() []int {
	if r.Validate() != nil {
		return nil
	}
	var steps []int
	for v := r.Start; (r.Step > 0 && v <= r.End) || (r.Step < 0 && v >= r.End); v += r.Step {
		steps = append(steps, v)
	}
	return steps
}

// Descriptor is one schedulable unit of work: a single benchmark method at
// a single iteration count, bound to one built harness. Consumed once by a
// listener.
type Descriptor struct {
	TestID     string   `json:"test_id"`
	Label      string   `json:"label"`
	Method     string   `json:"method"`
	HarnessDir string   `json:"harness_dir"`
	Suite      string   `json:"suite"`
	Iterations int      `json:"iterations"`
	Command    []string `json:"command"`
}
