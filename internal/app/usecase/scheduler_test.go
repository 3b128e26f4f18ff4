package usecase

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/probelab/benchforge/internal/domain/experiment"
	"github.com/probelab/benchforge/internal/domain/suite"
	"github.com/probelab/benchforge/internal/infra/harness"
)

// stubLauncher resolves every descriptor in-process after a fixed delay,
// recording launch order and peak concurrency. Per-method delays override
// the fixed one.
type stubLauncher struct {
	delay   time.Duration
	delays  map[string]time.Duration
	started chan string

	mu        sync.Mutex
	order     []string
	active    int
	maxActive int
}

func (l *stubLauncher) Run(ctx context.Context, desc experiment.Descriptor) <-chan experiment.ResultEvent {
	out := make(chan experiment.ResultEvent, 1)
	go func() {
		defer close(out)

		l.mu.Lock()
		l.order = append(l.order, desc.Label)
		l.active++
		if l.active > l.maxActive {
			l.maxActive = l.active
		}
		l.mu.Unlock()
		defer func() {
			l.mu.Lock()
			l.active--
			l.mu.Unlock()
		}()

		if l.started != nil {
			l.started <- desc.Label
		}

		delay := l.delay
		if d, ok := l.delays[desc.Method]; ok {
			delay = d
		}

		select {
		case <-time.After(delay):
			out <- experiment.Next(desc.TestID, desc.Label, float64(desc.Iterations))
		case <-ctx.Done():
			out <- experiment.Failure(desc.TestID, desc.Label, ctx.Err())
		}
	}()
	return out
}

func (l *stubLauncher) launchOrder() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.order...)
}

func discoveredQueueSuite(t *testing.T) *suite.Info {
	t.Helper()
	info, err := Discover(queueDefinition(), queueConcrete())
	require.NoError(t, err)
	return info
}

// discoveredTripletSuite adds a third active method so ordering tests can
// tell discovery order apart from completion order.
func discoveredTripletSuite(t *testing.T) *suite.Info {
	t.Helper()
	def := queueDefinition()
	def.methods = append(def.methods, suite.MethodSpec{
		Name: "Peek", Description: "inspect the head element", Symbol: "BenchPeek", Params: []string{"Queue"},
	})
	info, err := Discover(def, queueConcrete())
	require.NoError(t, err)
	return info
}

func builtModule() *harness.Module {
	return &harness.Module{
		Dir:   "/tmp/benchforge-harness-test",
		Path:  "/tmp/benchforge-harness-test/harness",
		Suite: "QueueBench_RingQueue",
	}
}

func TestScheduler_Schedule_Sequential(t *testing.T) {
	info := discoveredQueueSuite(t)
	sched := NewScheduler(&stubLauncher{})

	descs, err := sched.Schedule(info, builtModule(), nil, experiment.Mode{Kind: experiment.Sequential})
	require.NoError(t, err)
	require.Len(t, descs, 2, "one descriptor per active method")
	assert.Equal(t, experiment.StateScheduled, sched.State())

	push := descs[0]
	assert.Equal(t, info.Active[0].ID, push.TestID)
	assert.Equal(t, "Push", push.Label)
	assert.Equal(t, 1000, push.Iterations)
	assert.Equal(t, []string{
		"/tmp/benchforge-harness-test/harness",
		"-suite", "QueueBench_RingQueue",
		"-tested", "RingQueue",
		"-method", "Push",
		"-iterations", "1000",
		"-test-id", info.Active[0].ID,
	}, push.Command)
}

func TestScheduler_Schedule_RampExpansion(t *testing.T) {
	info := discoveredQueueSuite(t)
	sched := NewScheduler(&stubLauncher{})

	mode := experiment.Mode{Kind: experiment.RampMode, Ramp: experiment.Ramp{Start: 10, Step: 10, End: 30}}
	descs, err := sched.Schedule(info, builtModule(), nil, mode)
	require.NoError(t, err)
	require.Len(t, descs, 6, "steps within methods")

	assert.Equal(t, "Push[n=10]", descs[0].Label)
	assert.Equal(t, "Push[n=20]", descs[1].Label)
	assert.Equal(t, "Push[n=30]", descs[2].Label)
	assert.Equal(t, "Pop[n=10]", descs[3].Label)

	// Every step of one method carries that method's identifier.
	for _, d := range descs[:3] {
		assert.Equal(t, info.Active[0].ID, d.TestID)
	}
	assert.Equal(t, []int{10, 20, 30}, []int{descs[0].Iterations, descs[1].Iterations, descs[2].Iterations})
}

func TestScheduler_Schedule_Selector(t *testing.T) {
	info := discoveredQueueSuite(t)
	sched := NewScheduler(&stubLauncher{})

	descs, err := sched.Schedule(info, builtModule(), SelectNames("Pop"), experiment.Mode{Kind: experiment.Sequential})
	require.NoError(t, err)
	require.Len(t, descs, 1)
	assert.Equal(t, "Pop", descs[0].Method)
}

func TestScheduler_Schedule_InvalidRampFailsBeforeLaunch(t *testing.T) {
	info := discoveredQueueSuite(t)
	launcher := &stubLauncher{}
	sched := NewScheduler(launcher)

	mode := experiment.Mode{Kind: experiment.RampMode, Ramp: experiment.Ramp{Start: 10, Step: 0, End: 30}}
	_, err := sched.Schedule(info, builtModule(), nil, mode)
	require.Error(t, err)
	assert.True(t, errors.Is(err, experiment.ErrInvalidRamp))
	assert.Equal(t, experiment.StateIdle, sched.State())
	assert.Empty(t, launcher.launchOrder())
}

func TestScheduler_RunSequential(t *testing.T) {
	info := discoveredTripletSuite(t)
	// The first method is the slowest, so overlapping launches would
	// surface later methods first. Arrival order must stay the
	// discovery order regardless of how long each benchmark takes.
	launcher := &stubLauncher{delays: map[string]time.Duration{
		"Push": 120 * time.Millisecond,
		"Pop":  40 * time.Millisecond,
		"Peek": 10 * time.Millisecond,
	}}
	sched := NewScheduler(launcher)

	_, err := sched.Schedule(info, builtModule(), nil, experiment.Mode{Kind: experiment.Sequential})
	require.NoError(t, err)

	events, err := sched.Start(context.Background())
	require.NoError(t, err)
	assert.Equal(t, experiment.StateRunning, sched.State())

	var got []experiment.ResultEvent
	for ev := range events {
		got = append(got, ev)
	}

	require.Len(t, got, 3)
	assert.Equal(t, "Push", got[0].Label)
	assert.Equal(t, "Pop", got[1].Label)
	assert.Equal(t, "Peek", got[2].Label)
	assert.Equal(t, experiment.KindNext, got[0].Kind)

	assert.Equal(t, []string{"Push", "Pop", "Peek"}, launcher.launchOrder())
	assert.Equal(t, 1, launcher.maxActive, "sequential launches never overlap")
	assert.Equal(t, experiment.StateCompleted, sched.State())
	assert.Equal(t, int64(3), sched.Launched())
	assert.Equal(t, int64(3), sched.Resolved())
}

func TestScheduler_RunParallel(t *testing.T) {
	info := discoveredQueueSuite(t)
	launcher := &stubLauncher{delay: 100 * time.Millisecond}
	sched := NewScheduler(launcher)

	_, err := sched.Schedule(info, builtModule(), nil, experiment.Mode{Kind: experiment.Parallel})
	require.NoError(t, err)

	start := time.Now()
	events, err := sched.Start(context.Background())
	require.NoError(t, err)

	var count int
	for range events {
		count++
	}

	assert.Equal(t, 2, count)
	assert.Less(t, time.Since(start), 190*time.Millisecond, "parallel launches overlap")
	assert.Equal(t, 2, launcher.maxActive)
	assert.Equal(t, experiment.StateCompleted, sched.State())
}

func TestScheduler_Cancel(t *testing.T) {
	info := discoveredQueueSuite(t)
	launcher := &stubLauncher{delay: time.Minute, started: make(chan string, 2)}
	sched := NewScheduler(launcher)

	_, err := sched.Schedule(info, builtModule(), nil, experiment.Mode{Kind: experiment.Sequential})
	require.NoError(t, err)

	events, err := sched.Start(context.Background())
	require.NoError(t, err)

	<-launcher.started
	sched.Cancel()

	var got []experiment.ResultEvent
	for ev := range events {
		got = append(got, ev)
	}

	require.Len(t, got, 1, "only the in-flight descriptor resolves")
	assert.Equal(t, experiment.KindError, got[0].Kind)
	assert.Equal(t, experiment.ErrorMeasurement, got[0].Measurement)
	assert.Equal(t, experiment.StateCancelled, sched.State())
	assert.Equal(t, int64(1), sched.Launched(), "cancellation stops later launches")

	sched.Cancel()
	assert.Equal(t, experiment.StateCancelled, sched.State())
}

func TestScheduler_ContextCancelled(t *testing.T) {
	info := discoveredQueueSuite(t)
	launcher := &stubLauncher{delay: time.Minute, started: make(chan string, 2)}
	sched := NewScheduler(launcher)

	_, err := sched.Schedule(info, builtModule(), nil, experiment.Mode{Kind: experiment.Sequential})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	events, err := sched.Start(ctx)
	require.NoError(t, err)

	// Tear down through the context alone, the way a disposed run does.
	<-launcher.started
	cancel()

	var got []experiment.ResultEvent
	for ev := range events {
		got = append(got, ev)
	}

	require.Len(t, got, 1, "only the in-flight descriptor resolves")
	assert.Equal(t, experiment.KindError, got[0].Kind)
	assert.Equal(t, experiment.StateCancelled, sched.State(), "a run cut short never reads as completed")
	assert.Equal(t, int64(1), sched.Launched())
}

func TestScheduler_CancelBeforeStart(t *testing.T) {
	sched := NewScheduler(&stubLauncher{})
	sched.Cancel()
	assert.Equal(t, experiment.StateCancelled, sched.State())

	_, err := sched.Schedule(discoveredQueueSuite(t), builtModule(), nil, experiment.Mode{Kind: experiment.Sequential})
	var transition *experiment.InvalidStateTransitionError
	require.ErrorAs(t, err, &transition)
}

func TestScheduler_StartRequiresSchedule(t *testing.T) {
	sched := NewScheduler(&stubLauncher{})
	_, err := sched.Start(context.Background())
	var transition *experiment.InvalidStateTransitionError
	require.ErrorAs(t, err, &transition)
	assert.Equal(t, experiment.StateIdle, transition.From)
}

func TestScheduler_ScheduleTwice(t *testing.T) {
	info := discoveredQueueSuite(t)
	sched := NewScheduler(&stubLauncher{})

	_, err := sched.Schedule(info, builtModule(), nil, experiment.Mode{Kind: experiment.Sequential})
	require.NoError(t, err)
	_, err = sched.Schedule(info, builtModule(), nil, experiment.Mode{Kind: experiment.Sequential})
	var transition *experiment.InvalidStateTransitionError
	require.ErrorAs(t, err, &transition)
}
