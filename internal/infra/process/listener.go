// Package process wraps one external benchmark process per experiment
// descriptor and turns its exit and output into a single typed result
// event. A process-level failure never propagates as a stream failure:
// every abnormal outcome is classified into an Error event so one
// misbehaving benchmark cannot abort the run.
package process

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"
	"syscall"
	"time"

	"github.com/tidwall/gjson"

	"github.com/probelab/benchforge/internal/domain/experiment"
)

const (
	// DefaultTimeout bounds one benchmark process. An unresponsive child
	// past this deadline is terminated and reported as an Error event.
	DefaultTimeout = 5 * time.Minute

	// defaultGrace is how long a terminated child gets between SIGTERM
	// and SIGKILL.
	defaultGrace = 5 * time.Second
)

var (
	errEmptyCommand     = errors.New("experiment has no launch command")
	errUnparsableReport = errors.New("unparsable measurement report")
	errDeadlineExceeded = errors.New("benchmark process timed out")
	errLaunchCancelled  = errors.New("benchmark process cancelled")
)

// Listener runs one external process for exactly one descriptor.
type Listener struct {
	// Timeout is the per-process deadline. Zero means DefaultTimeout.
	Timeout time.Duration
	// Grace is the SIGTERM-to-SIGKILL delay. Zero means a 5s grace.
	Grace time.Duration
}

// Run launches the descriptor's process and returns a finite,
// non-restartable event stream: exactly one Next or Error, then close.
// The event is emitted only after the process is confirmed terminated,
// so cancelling the context and draining the channel is a synchronous
// teardown from the caller's perspective.
func (l *Listener) Run(ctx context.Context, desc experiment.Descriptor) <-chan experiment.ResultEvent {
	out := make(chan experiment.ResultEvent, 1)
	go func() {
		defer close(out)
		out <- l.execute(ctx, desc)
	}()
	return out
}

func (l *Listener) execute(ctx context.Context, desc experiment.Descriptor) experiment.ResultEvent {
	if len(desc.Command) == 0 {
		return experiment.Failure(desc.TestID, desc.Label, errEmptyCommand)
	}

	timeout := l.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	grace := l.Grace
	if grace <= 0 {
		grace = defaultGrace
	}

	var stdout, stderr bytes.Buffer
	cmd := exec.Command(desc.Command[0], desc.Command[1:]...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	// Own process group, so teardown reaches the harness and anything it
	// spawned. WaitDelay keeps a leaked pipe holder from stalling Wait.
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	cmd.WaitDelay = grace

	slog.Debug("launching benchmark process", "test_id", desc.TestID, "label", desc.Label, "command", desc.Command)

	if err := cmd.Start(); err != nil {
		// Spawn failure is recovered per descriptor, same as a crash.
		return experiment.Failure(desc.TestID, desc.Label, fmt.Errorf("spawn: %w", err))
	}

	done := make(chan error, 1)
	go func() { done <- cmd.Wait() }()

	select {
	case err := <-done:
		if err != nil {
			slog.Warn("benchmark process failed", "test_id", desc.TestID, "label", desc.Label,
				"error", err, "stderr", strings.TrimSpace(stderr.String()))
			return experiment.Failure(desc.TestID, desc.Label, fmt.Errorf("process exit: %w", err))
		}
		value, perr := parseReport(desc.TestID, stdout.Bytes())
		if perr != nil {
			slog.Warn("benchmark report rejected", "test_id", desc.TestID, "label", desc.Label, "error", perr)
			return experiment.Failure(desc.TestID, desc.Label, perr)
		}
		return experiment.Next(desc.TestID, desc.Label, value)

	case <-runCtx.Done():
		l.terminate(cmd, done, grace)
		cause := errDeadlineExceeded
		if ctx.Err() != nil {
			cause = errLaunchCancelled
		}
		slog.Info("benchmark process terminated", "test_id", desc.TestID, "label", desc.Label, "cause", cause)
		return experiment.Failure(desc.TestID, desc.Label, cause)
	}
}

// terminate sends SIGTERM to the process group, waits out the grace
// period, escalates to SIGKILL, and returns only once Wait resolved.
func (l *Listener) terminate(cmd *exec.Cmd, done <-chan error, grace time.Duration) {
	if cmd.Process == nil {
		return
	}

	if err := syscall.Kill(-cmd.Process.Pid, syscall.SIGTERM); err != nil {
		slog.Debug("SIGTERM failed", "pid", cmd.Process.Pid, "error", err)
	}

	select {
	case <-done:
		return
	case <-time.After(grace):
		if err := syscall.Kill(-cmd.Process.Pid, syscall.SIGKILL); err != nil {
			slog.Debug("SIGKILL failed", "pid", cmd.Process.Pid, "error", err)
		}
		<-done
	}
}

// parseReport extracts the single numeric measurement from the child's
// stdout. The reporting channel is one JSON object on the last non-empty
// line: {"test_id": ..., "method": ..., "value": ...}.
func parseReport(testID string, output []byte) (float64, error) {
	lines := strings.Split(strings.TrimSpace(string(output)), "\n")
	last := strings.TrimSpace(lines[len(lines)-1])
	if last == "" || !gjson.Valid(last) {
		return 0, fmt.Errorf("%w: %q", errUnparsableReport, last)
	}

	value := gjson.Get(last, "value")
	if !value.Exists() || value.Type != gjson.Number {
		return 0, fmt.Errorf("%w: missing numeric value in %q", errUnparsableReport, last)
	}

	if reported := gjson.Get(last, "test_id"); reported.Exists() && reported.String() != testID {
		slog.Warn("harness reported a different test id", "want", testID, "got", reported.String())
	}

	return value.Float(), nil
}
