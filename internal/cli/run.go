package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/probelab/benchforge/internal/app/usecase"
	"github.com/probelab/benchforge/internal/domain/experiment"
	"github.com/probelab/benchforge/internal/domain/history"
	"github.com/probelab/benchforge/internal/domain/suite"
	"github.com/probelab/benchforge/internal/infra/harness"
	"github.com/probelab/benchforge/internal/infra/tool"
)

var (
	runMode      string
	runRamp      string
	runMethods   []string
	runTimeout   time.Duration
	runNoHistory bool
)

var runCmd = &cobra.Command{
	Use:   "run <suite>",
	Short: "Run a registered benchmark suite",
	Long: `Run discovers the named suite, builds its harness, and executes every
active benchmark in an isolated child process. Results stream to the
console as each process finishes; Ctrl-C tears down outstanding
processes and the harness before exiting.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runSuite(cmd.Context(), args[0])
	},
}

func init() {
	runCmd.Flags().StringVar(&runMode, "mode", "", "scheduling mode: sequential, parallel, or ramp (default from config)")
	runCmd.Flags().StringVar(&runRamp, "ramp", "", "ramp parameters as start:step:end, implies --mode ramp")
	runCmd.Flags().StringSliceVar(&runMethods, "methods", nil, "run only the named benchmark methods")
	runCmd.Flags().DurationVar(&runTimeout, "timeout", 0, "per-process timeout (default from config)")
	runCmd.Flags().BoolVar(&runNoHistory, "no-history", false, "do not record this run in history")
}

func runSuite(parent context.Context, name string) error {
	reg, ok := registry.Get(name)
	if !ok {
		return fmt.Errorf("%w: unknown suite %q, known: %s",
			suite.ErrConfiguration, name, strings.Join(registry.Names(), ", "))
	}

	info, err := usecase.Discover(reg.Definition, reg.Concrete)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	builder, err := newBuilder(ctx)
	if err != nil {
		return err
	}

	mode, err := resolveMode()
	if err != nil {
		return err
	}

	opts := usecase.Options{Mode: mode, ProcessTimeout: cfg.Runner.ProcessTimeout}
	if runTimeout > 0 {
		opts.ProcessTimeout = runTimeout
	}
	if len(runMethods) > 0 {
		opts.Selector = usecase.SelectNames(runMethods...)
	}

	manager := usecase.NewSuiteManager(builder)
	started := time.Now()
	stream, err := manager.Run(ctx, info, opts)
	if err != nil {
		return err
	}

	fmt.Printf("Running %s against %s (%s)\n\n",
		color.CyanString(info.Descriptor.Name), info.Concrete.Symbol, mode.Kind)

	var events []experiment.ResultEvent
	for ev := range stream.Events() {
		events = append(events, ev)
		printEvent(ev)
	}
	stream.Dispose()
	duration := time.Since(started)

	if err := stream.Err(); err != nil {
		return err
	}

	state := string(experiment.StateCompleted)
	if ctx.Err() != nil {
		state = string(experiment.StateCancelled)
		fmt.Printf("\n%s\n", color.YellowString("run interrupted"))
	}

	summary := history.Summarize(events)
	printSummary(summary, duration)

	if runNoHistory || cfg.History.Path == "" {
		return nil
	}
	record := history.NewRecord(stream.ID(), info.Descriptor.Name, info.Concrete.Symbol,
		string(mode.Kind), state, started, duration, events)
	return saveHistory(parent, record)
}

// newBuilder picks the harness build strategy: a precompiled binary when
// configured, otherwise the host Go toolchain, checked up front so a
// missing toolchain fails before anything is synthesized.
func newBuilder(ctx context.Context) (harness.Builder, error) {
	if cfg.Harness.Precompiled != "" {
		return &harness.PrecompiledBuilder{BinaryPath: cfg.Harness.Precompiled}, nil
	}

	toolInfo, err := tool.NewDetector(cfg.Harness.GoBin).Detect(ctx)
	if err != nil {
		return nil, err
	}

	requires := make([]harness.Requirement, 0, len(cfg.Harness.Requires)+1)
	for _, req := range cfg.Harness.Requires {
		requires = append(requires, harness.Requirement{Path: req.Path, Dir: req.Dir})
	}
	if len(requires) == 0 {
		// Built-in suites live in this module; point the harness at the
		// working tree.
		wd, err := os.Getwd()
		if err != nil {
			return nil, err
		}
		requires = append(requires, harness.Requirement{Path: "github.com/probelab/benchforge", Dir: wd})
	}

	return &harness.GoToolchainBuilder{GoBin: toolInfo.Path, Requires: requires}, nil
}

func resolveMode() (experiment.Mode, error) {
	mode := cfg.Runner.ModeValue()
	if runMode != "" {
		mode = experiment.Mode{Kind: experiment.ModeKind(runMode), Ramp: cfg.Runner.Ramp}
	}
	if runRamp != "" {
		ramp, err := parseRamp(runRamp)
		if err != nil {
			return experiment.Mode{}, err
		}
		mode = experiment.Mode{Kind: experiment.RampMode, Ramp: ramp}
	}
	return mode, mode.Validate()
}

func parseRamp(s string) (experiment.Ramp, error) {
	parts := strings.Split(s, ":")
	if len(parts) != 3 {
		return experiment.Ramp{}, fmt.Errorf("%w: ramp must be start:step:end, got %q", experiment.ErrInvalidRamp, s)
	}
	values := make([]int, 3)
	for i, part := range parts {
		v, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil {
			return experiment.Ramp{}, fmt.Errorf("%w: %q is not an integer", experiment.ErrInvalidRamp, part)
		}
		values[i] = v
	}
	return experiment.Ramp{Start: values[0], Step: values[1], End: values[2]}, nil
}

func printEvent(ev experiment.ResultEvent) {
	switch ev.Kind {
	case experiment.KindNext:
		fmt.Printf("  %s %-24s %10.3f ms\n", color.GreenString("ok"), ev.Label, ev.Measurement)
	case experiment.KindError:
		fmt.Printf("  %s %-24s %v\n", color.RedString("err"), ev.Label, ev.Cause)
	case experiment.KindIgnored:
		fmt.Printf("  %s %-24s\n", color.YellowString("skip"), ev.Label)
	}
}

func printSummary(s history.Summary, duration time.Duration) {
	fmt.Printf("\n%d measured, %d errors, %d ignored in %s\n",
		s.Measured, s.Errors, s.Ignored, duration.Round(time.Millisecond))
	if s.Measured > 0 {
		fmt.Printf("min %.3f  mean %.3f  p50 %.3f  p95 %.3f  p99 %.3f  max %.3f (ms)\n",
			s.Min, s.Mean, s.P50, s.P95, s.P99, s.Max)
	}
}
