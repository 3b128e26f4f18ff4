package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/probelab/benchforge/internal/domain/experiment"
	"github.com/probelab/benchforge/internal/domain/suite"
	"github.com/probelab/benchforge/internal/infra/harness"
	"github.com/probelab/benchforge/internal/infra/process"
)

// Options configures one run of a discovered suite.
type Options struct {
	// Selector filters which active methods participate. Nil means all.
	Selector Selector
	// Mode selects sequential, parallel, or ramp scheduling. A zero Mode
	// means Sequential.
	Mode experiment.Mode
	// ProcessTimeout bounds each benchmark process. Zero means the
	// listener default.
	ProcessTimeout time.Duration
}

// SuiteManager composes synthesis, building, scheduling, and listening
// into a single cancellable result stream per run request. Re-running the
// same suite re-synthesizes and re-builds a fresh, exclusively owned
// harness module each time; nothing is cached across runs.
type SuiteManager struct {
	builder harness.Builder
}

// NewSuiteManager creates a manager building harnesses with the given
// builder.
func NewSuiteManager(builder harness.Builder) *SuiteManager {
	return &SuiteManager{builder: builder}
}

// Run starts one benchmark run and returns its result stream.
// Configuration problems (invalid suite, invalid ramp parameters) are
// returned synchronously, before anything is built or launched. A harness
// build failure surfaces as the stream's terminal failure with zero
// events. Disposing the stream terminates outstanding processes and
// deletes the harness module before returning.
func (m *SuiteManager) Run(ctx context.Context, info *suite.Info, opts Options) (*RunStream, error) {
	if info == nil {
		return nil, fmt.Errorf("%w: nil suite info", suite.ErrConfiguration)
	}
	if err := info.Validate(); err != nil {
		return nil, err
	}

	mode := opts.Mode
	if mode.Kind == "" {
		mode.Kind = experiment.Sequential
	}
	if err := mode.Validate(); err != nil {
		return nil, err
	}

	runCtx, cancel := context.WithCancel(ctx)
	stream := &RunStream{
		id:     ulid.Make().String(),
		events: make(chan experiment.ResultEvent, eventCapacity(info, mode)),
		done:   make(chan struct{}),
		cancel: cancel,
	}

	slog.Info("benchmark run starting", "run_id", stream.id, "suite", info.Descriptor.Name,
		"mode", mode.Kind, "active", len(info.Active), "ignored", len(info.Ignored))

	go m.run(runCtx, info, opts, mode, stream)
	return stream, nil
}

// run executes one request end to end on its own goroutine. The harness
// module is built before any launch and disposed on every exit path.
func (m *SuiteManager) run(ctx context.Context, info *suite.Info, opts Options, mode experiment.Mode, stream *RunStream) {
	defer close(stream.done)
	defer close(stream.events)

	source, err := harness.Synthesize(info)
	if err != nil {
		stream.fail(err)
		return
	}

	mod, err := m.builder.Build(ctx, source, harness.SuiteSymbol(info))
	if err != nil {
		// Fail fast: no partial results for a suite that cannot be built.
		slog.Error("harness build failed", "run_id", stream.id, "error", err)
		stream.fail(err)
		return
	}
	defer m.builder.Dispose(mod)

	sched := NewScheduler(&process.Listener{Timeout: opts.ProcessTimeout})
	if _, err := sched.Schedule(info, mod, opts.Selector, mode); err != nil {
		stream.fail(err)
		return
	}

	// Ignored methods surface as events exactly once per run; they are
	// never scheduled for execution.
	for _, meth := range info.Ignored {
		stream.events <- experiment.Ignored(meth.ID, meth.Name)
	}

	events, err := sched.Start(ctx)
	if err != nil {
		stream.fail(err)
		return
	}

	for ev := range events {
		stream.events <- ev
	}

	// On early disposal the listeners have already resolved; Cancel here
	// settles the scheduler state and confirms termination.
	if ctx.Err() != nil {
		sched.Cancel()
	}
	slog.Info("benchmark run settled", "run_id", stream.id, "state", sched.State(),
		"resolved", sched.Resolved())
}

// eventCapacity sizes a run's event channel so delivery never blocks the
// drivers: one slot per ignored method plus one per scheduled descriptor.
func eventCapacity(info *suite.Info, mode experiment.Mode) int {
	steps := 1
	if mode.Kind == experiment.RampMode {
		steps = len(mode.Ramp.Steps())
	}
	return len(info.Ignored) + len(info.Active)*steps
}

// RunStream is the single-consumer result stream of one run. Events
// arrive in wall-clock completion order; after the channel closes, Err
// reports the run's terminal failure, if any. Dispose is the single
// cancellation mechanism and is safe at any point, any number of times.
type RunStream struct {
	id     string
	events chan experiment.ResultEvent
	done   chan struct{}
	cancel context.CancelFunc

	mu  sync.Mutex
	err error
}

// ID returns the run identifier.
func (s *RunStream) ID() string { return s.id }

// Events returns the event channel. It is closed once the run settles.
func (s *RunStream) Events() <-chan experiment.ResultEvent { return s.events }

// Err returns the run's terminal failure. Valid after Events is closed;
// nil for a run that delivered its events, including runs with Error
// events (per-benchmark failures are events, not stream failures).
func (s *RunStream) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// Dispose cancels the run and blocks until every outstanding process is
// confirmed terminated and the harness module is deleted. Invoking it
// before the first launch, mid-run, after completion, or repeatedly is
// safe.
func (s *RunStream) Dispose() {
	s.cancel()
	<-s.done
}

func (s *RunStream) fail(err error) {
	s.mu.Lock()
	s.err = err
	s.mu.Unlock()
}
