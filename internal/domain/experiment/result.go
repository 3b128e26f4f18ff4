// Package experiment provides the scheduling domain model: experiment
// descriptors, typed result events, scheduling modes, and the run state
// machine.
package experiment

import "fmt"

// ErrorMeasurement is the sentinel measurement carried by Error events.
const ErrorMeasurement = float64(-1)

// ResultKind tags a ResultEvent variant.
type ResultKind string

const (
	// KindNext is a successful measurement for one benchmark.
	KindNext ResultKind = "next"
	// KindError is a benchmark whose process failed, crashed, or timed out.
	KindError ResultKind = "error"
	// KindIgnored is a benchmark that was declared but never scheduled.
	KindIgnored ResultKind = "ignored"
)

// ResultEvent is one typed outcome delivered to a run's consumer.
// Events are value-equal by measurement for deduplication; identity is
// otherwise carried by TestID.
type ResultEvent struct {
	TestID      string     `json:"test_id"`
	Label       string     `json:"label"`
	Kind        ResultKind `json:"kind"`
	Measurement float64    `json:"measurement"`

	// Cause carries the classified failure for Error events. It is
	// informational only and never propagates as a stream failure.
	Cause error `json:"-"`
}

// Next builds a successful measurement event.
func Next(testID, label string, measurement float64) ResultEvent {
	return ResultEvent{TestID: testID, Label: label, Kind: KindNext, Measurement: measurement}
}

// Failure builds an Error event carrying the sentinel measurement.
func Failure(testID, label string, cause error) ResultEvent {
	return ResultEvent{TestID: testID, Label: label, Kind: KindError, Measurement: ErrorMeasurement, Cause: cause}
}

// Ignored builds an Ignored event.
func Ignored(testID, label string) ResultEvent {
	return ResultEvent{TestID: testID, Label: label, Kind: KindIgnored}
}

// String renders the event for logs and console output.
func (e ResultEvent) String() string {
	switch e.Kind {
	case KindNext:
		return fmt.Sprintf("%s: %g", e.Label, e.Measurement)
	case KindError:
		return fmt.Sprintf("%s: error (%v)", e.Label, e.Cause)
	default:
		return fmt.Sprintf("%s: ignored", e.Label)
	}
}
