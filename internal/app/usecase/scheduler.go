package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"sync/atomic"

	"github.com/probelab/benchforge/internal/domain/experiment"
	"github.com/probelab/benchforge/internal/domain/suite"
	"github.com/probelab/benchforge/internal/infra/harness"
)

// Selector filters which active benchmark methods participate in a run.
type Selector func(m suite.BenchmarkMethod) bool

// SelectAll admits every active benchmark method.
func SelectAll(suite.BenchmarkMethod) bool { return true }

// SelectNames admits only the named benchmark methods.
func SelectNames(names ...string) Selector {
	set := make(map[string]bool, len(names))
	for _, n := range names {
		set[n] = true
	}
	return func(m suite.BenchmarkMethod) bool { return set[m.Name] }
}

// launcher is the result-listener capability the scheduler drives. Each
// call owns exactly one external process and yields exactly one event.
type launcher interface {
	Run(ctx context.Context, desc experiment.Descriptor) <-chan experiment.ResultEvent
}

// Scheduler owns the per-benchmark experiment descriptors of one run and
// drives them sequentially, fully parallel, or as a parameter ramp.
// Lifecycle: Idle -> Scheduled -> Running -> Completed or Cancelled.
type Scheduler struct {
	listener launcher

	mu          sync.Mutex
	state       experiment.RunState
	mode        experiment.Mode
	descriptors []experiment.Descriptor
	events      chan experiment.ResultEvent
	cancel      context.CancelFunc
	done        chan struct{}

	cancelOnce sync.Once
	launched   atomic.Int64
	resolved   atomic.Int64
}

// NewScheduler creates an idle scheduler driving the given listener.
func NewScheduler(listener launcher) *Scheduler {
	return &Scheduler{listener: listener, state: experiment.StateIdle}
}

// State returns the current lifecycle state.
func (s *Scheduler) State() experiment.RunState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Launched returns how many processes have been started so far.
func (s *Scheduler) Launched() int64 { return s.launched.Load() }

// Resolved returns how many descriptors have reached a terminal event.
func (s *Scheduler) Resolved() int64 { return s.resolved.Load() }

// Schedule expands the suite into experiment descriptors for the given
// harness module, selector, and mode. Ramp modes produce one descriptor
// per (method, step); invalid ramp parameters fail here, before any
// process launches.
func (s *Scheduler) Schedule(info *suite.Info, mod *harness.Module, sel Selector, mode experiment.Mode) ([]experiment.Descriptor, error) {
	if info == nil || mod == nil {
		return nil, fmt.Errorf("%w: schedule needs a suite and a built harness", suite.ErrConfiguration)
	}
	if err := mode.Validate(); err != nil {
		return nil, err
	}
	if sel == nil {
		sel = SelectAll
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.state.CanTransitionTo(experiment.StateScheduled) {
		return nil, &experiment.InvalidStateTransitionError{From: s.state, To: experiment.StateScheduled}
	}

	steps := []int{info.Descriptor.DefaultIterations}
	if mode.Kind == experiment.RampMode {
		steps = mode.Ramp.Steps()
	}

	var descs []experiment.Descriptor
	for _, m := range info.Active {
		if !sel(m) {
			continue
		}
		for _, n := range steps {
			label := m.Name
			if len(steps) > 1 {
				label = fmt.Sprintf("%s[n=%d]", m.Name, n)
			}
			descs = append(descs, experiment.Descriptor{
				TestID:     m.ID,
				Label:      label,
				Method:     m.Name,
				HarnessDir: mod.Dir,
				Suite:      mod.Suite,
				Iterations: n,
				Command: []string{
					mod.Path,
					"-suite", mod.Suite,
					"-tested", info.Concrete.Symbol,
					"-method", m.Name,
					"-iterations", strconv.Itoa(n),
					"-test-id", m.ID,
				},
			})
		}
	}

	s.mode = mode
	s.descriptors = descs
	s.state = experiment.StateScheduled

	out := make([]experiment.Descriptor, len(descs))
	copy(out, descs)
	return out, nil
}

// Start transitions Scheduled -> Running and begins process launches per
// the scheduled mode. The returned channel carries one event per
// descriptor in arrival order and is closed once every listener resolved.
func (s *Scheduler) Start(ctx context.Context) (<-chan experiment.ResultEvent, error) {
	s.mu.Lock()
	if !s.state.CanTransitionTo(experiment.StateRunning) {
		from := s.state
		s.mu.Unlock()
		return nil, &experiment.InvalidStateTransitionError{From: from, To: experiment.StateRunning}
	}
	s.state = experiment.StateRunning

	runCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.events = make(chan experiment.ResultEvent, len(s.descriptors))
	s.done = make(chan struct{})
	descs := s.descriptors
	mode := s.mode
	events := s.events
	s.mu.Unlock()

	go s.drive(runCtx, cancel, mode, descs, events)
	return events, nil
}

// drive launches listeners per mode, forwards their events, and settles
// the terminal state once every launched process resolved.
func (s *Scheduler) drive(ctx context.Context, cancel context.CancelFunc, mode experiment.Mode, descs []experiment.Descriptor, events chan experiment.ResultEvent) {
	defer close(s.done)
	defer cancel()

	switch mode.Kind {
	case experiment.Parallel:
		// No concurrency cap: bounded only by host resources. Arrival
		// order is wall-clock completion order, nondeterministic across runs.
		var wg sync.WaitGroup
		for _, desc := range descs {
			wg.Add(1)
			s.launched.Add(1)
			go func(d experiment.Descriptor) {
				defer wg.Done()
				s.forward(<-s.listener.Run(ctx, d), events)
			}(desc)
		}
		wg.Wait()

	default:
		// Sequential and ramp launches are strictly ordered: the next
		// launch waits for the previous process's terminal event. Ramp
		// descriptors are already ordered step-within-method.
		for _, desc := range descs {
			if ctx.Err() != nil {
				break
			}
			s.launched.Add(1)
			s.forward(<-s.listener.Run(ctx, desc), events)
		}
	}

	close(events)

	// Completed means every descriptor resolved naturally. A run whose
	// context was cancelled settles as Cancelled even when Cancel was
	// never invoked directly, and regardless of which goroutine locks
	// first.
	s.mu.Lock()
	if !s.state.IsTerminal() {
		if ctx.Err() != nil || s.resolved.Load() < int64(len(descs)) {
			s.state = experiment.StateCancelled
		} else {
			s.state = experiment.StateCompleted
		}
	}
	s.mu.Unlock()
	slog.Debug("scheduler settled", "state", s.State(), "launched", s.launched.Load(), "resolved", s.resolved.Load())
}

// forward places one resolved event on the run's channel. The channel is
// sized for every descriptor, so delivery never blocks the drivers.
func (s *Scheduler) forward(ev experiment.ResultEvent, events chan experiment.ResultEvent) {
	s.resolved.Add(1)
	events <- ev
}

// Cancel tears the run down: every process still running is forcibly
// terminated and every listener resolves before Cancel returns. It is
// safe to invoke at any point, repeatedly, and after natural completion.
func (s *Scheduler) Cancel() {
	s.cancelOnce.Do(func() {
		s.mu.Lock()
		if !s.state.IsTerminal() {
			s.state = experiment.StateCancelled
		}
		cancel := s.cancel
		s.mu.Unlock()
		if cancel != nil {
			cancel()
		}
	})

	s.mu.Lock()
	done := s.done
	s.mu.Unlock()
	if done != nil {
		<-done
	}
}
