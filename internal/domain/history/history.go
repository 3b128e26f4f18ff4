// Package history provides the persisted run history domain model.
package history

import (
	"time"

	"github.com/HdrHistogram/hdrhistogram-go"

	"github.com/probelab/benchforge/internal/domain/experiment"
)

// Result is one persisted result event of a finished run.
type Result struct {
	TestID      string  `json:"test_id"`
	Label       string  `json:"label"`
	Kind        string  `json:"kind"`
	Measurement float64 `json:"measurement"`
}

// Record is one saved benchmark run. Cancelled runs are saved too; the
// State field tells them apart from completed ones.
type Record struct {
	ID        string        `json:"id"`
	Suite     string        `json:"suite"`
	Concrete  string        `json:"concrete"`
	Mode      string        `json:"mode"`
	State     string        `json:"state"`
	StartedAt time.Time     `json:"started_at"`
	Duration  time.Duration `json:"duration"`

	Summary Summary  `json:"summary"`
	Results []Result `json:"results,omitempty"`
}

// NewRecord assembles a record from a finished run's events. The summary
// covers successful measurements only.
func NewRecord(id, suite, concrete, mode, state string, startedAt time.Time, duration time.Duration, events []experiment.ResultEvent) *Record {
	rec := &Record{
		ID:        id,
		Suite:     suite,
		Concrete:  concrete,
		Mode:      mode,
		State:     state,
		StartedAt: startedAt,
		Duration:  duration,
		Summary:   Summarize(events),
	}
	for _, ev := range events {
		rec.Results = append(rec.Results, Result{
			TestID:      ev.TestID,
			Label:       ev.Label,
			Kind:        string(ev.Kind),
			Measurement: ev.Measurement,
		})
	}
	return rec
}

// Summary aggregates the successful measurements of one run.
type Summary struct {
	Measured int64   `json:"measured"`
	Errors   int64   `json:"errors"`
	Ignored  int64   `json:"ignored"`
	Min      float64 `json:"min"`
	Max      float64 `json:"max"`
	Mean     float64 `json:"mean"`
	P50      float64 `json:"p50"`
	P95      float64 `json:"p95"`
	P99      float64 `json:"p99"`
}

// summary histogram resolution: measurements are milliseconds, recorded
// in microsecond ticks so sub-millisecond results keep three significant
// figures. An hour is far beyond any single process timeout.
const (
	histogramTick = 1000
	histogramMax  = int64(time.Hour / time.Microsecond)
)

// Summarize folds result events into summary statistics. Error and
// ignored events are counted but never contribute to the percentiles.
func Summarize(events []experiment.ResultEvent) Summary {
	h := hdrhistogram.New(1, histogramMax, 3)

	var s Summary
	for _, ev := range events {
		switch ev.Kind {
		case experiment.KindNext:
			s.Measured++
			tick := int64(ev.Measurement * histogramTick)
			if tick < 1 {
				tick = 1
			}
			if tick > histogramMax {
				tick = histogramMax
			}
			h.RecordValue(tick)
		case experiment.KindError:
			s.Errors++
		case experiment.KindIgnored:
			s.Ignored++
		}
	}

	if s.Measured > 0 {
		s.Min = float64(h.Min()) / histogramTick
		s.Max = float64(h.Max()) / histogramTick
		s.Mean = h.Mean() / histogramTick
		s.P50 = float64(h.ValueAtQuantile(50)) / histogramTick
		s.P95 = float64(h.ValueAtQuantile(95)) / histogramTick
		s.P99 = float64(h.ValueAtQuantile(99)) / histogramTick
	}
	return s
}
