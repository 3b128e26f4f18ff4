package harness

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

var (
	// ErrBuild is returned when harness source fails to compile. It is
	// fatal for the run: no process is launched and no results are produced.
	ErrBuild = errors.New("harness build failed")
)

// Module is the compiled harness artifact. It is exclusively owned by one
// run and deleted when that run's result stream is disposed.
type Module struct {
	// Dir is the module's working directory on disk.
	Dir string
	// Path is the executable the scheduler launches.
	Path string
	// Suite is the synthesized suite name child processes must be handed.
	Suite string
}

// Builder turns synthesized source into a loadable module. Implementations
// decide the strategy: compile on demand with a host toolchain, or resolve
// a harness that was compiled ahead of time.
type Builder interface {
	// Build compiles the source into a fresh module. Concurrent builds for
	// the same suite must yield independent modules.
	Build(ctx context.Context, source, suiteSymbol string) (*Module, error)

	// Dispose deletes the module from disk, best effort. Failures are
	// logged, never raised: cleanup must not block result delivery.
	Dispose(mod *Module)
}

// Requirement maps a module path needed by the generated source to a local
// directory, written as a replace directive into the harness go.mod.
type Requirement struct {
	Path string
	Dir  string
}

// GoToolchainBuilder compiles synthesized source with the host Go
// toolchain. It needs a `go` binary; availability is checked by the caller
// before a run starts.
type GoToolchainBuilder struct {
	// GoBin is the toolchain binary. Empty means "go" from PATH.
	GoBin string
	// Requires lists the modules the generated source imports.
	Requires []Requirement
	// Env is appended to the build environment.
	Env []string
}

const harnessBinary = "harness"

// Build writes the source and a go.mod into a fresh temp directory and
// compiles it into an executable.
func (b *GoToolchainBuilder) Build(ctx context.Context, source, suiteSymbol string) (*Module, error) {
	dir, err := os.MkdirTemp("", "benchforge-harness-")
	if err != nil {
		return nil, fmt.Errorf("%w: create module dir: %v", ErrBuild, err)
	}

	if err := os.WriteFile(filepath.Join(dir, "main.go"), []byte(source), 0o644); err != nil {
		os.RemoveAll(dir)
		return nil, fmt.Errorf("%w: write source: %v", ErrBuild, err)
	}
	if err := os.WriteFile(filepath.Join(dir, "go.mod"), []byte(b.goMod()), 0o644); err != nil {
		os.RemoveAll(dir)
		return nil, fmt.Errorf("%w: write go.mod: %v", ErrBuild, err)
	}

	goBin := b.GoBin
	if goBin == "" {
		goBin = "go"
	}

	out := filepath.Join(dir, harnessBinary)
	cmd := exec.CommandContext(ctx, goBin, "build", "-o", out, ".")
	cmd.Dir = dir
	cmd.Env = append(os.Environ(), b.Env...)

	if output, err := cmd.CombinedOutput(); err != nil {
		os.RemoveAll(dir)
		return nil, fmt.Errorf("%w: %v\n%s", ErrBuild, err, strings.TrimSpace(string(output)))
	}

	slog.Debug("harness built", "dir", dir, "suite", suiteSymbol)
	return &Module{Dir: dir, Path: out, Suite: suiteSymbol}, nil
}

// Dispose removes the module directory. Deletion failure is logged only.
func (b *GoToolchainBuilder) Dispose(mod *Module) {
	disposeModule(mod)
}

// goMod renders the harness go.mod with a require and replace line per
// declared requirement.
func (b *GoToolchainBuilder) goMod() string {
	var sb strings.Builder
	sb.WriteString("module benchforge.invalid/harness\n\ngo 1.24\n")
	for _, req := range b.Requires {
		fmt.Fprintf(&sb, "\nrequire %s v0.0.0\n", req.Path)
		fmt.Fprintf(&sb, "\nreplace %s => %s\n", req.Path, req.Dir)
	}
	return sb.String()
}

// PrecompiledBuilder resolves a harness that was compiled at build time
// instead of generating and compiling source on demand. The synthesized
// source is ignored; the suite's behavior is compiled into the binary.
// Each Build still copies the binary into a fresh directory so that every
// run exclusively owns its module.
type PrecompiledBuilder struct {
	// BinaryPath is the ahead-of-time compiled harness executable.
	BinaryPath string
}

// Build copies the precompiled binary into a fresh module directory.
func (b *PrecompiledBuilder) Build(ctx context.Context, _ string, suiteSymbol string) (*Module, error) {
	if b.BinaryPath == "" {
		return nil, fmt.Errorf("%w: no precompiled harness binary configured", ErrBuild)
	}
	data, err := os.ReadFile(b.BinaryPath)
	if err != nil {
		return nil, fmt.Errorf("%w: read precompiled harness: %v", ErrBuild, err)
	}

	dir, err := os.MkdirTemp("", "benchforge-harness-")
	if err != nil {
		return nil, fmt.Errorf("%w: create module dir: %v", ErrBuild, err)
	}
	out := filepath.Join(dir, harnessBinary)
	if err := os.WriteFile(out, data, 0o755); err != nil {
		os.RemoveAll(dir)
		return nil, fmt.Errorf("%w: copy precompiled harness: %v", ErrBuild, err)
	}

	return &Module{Dir: dir, Path: out, Suite: suiteSymbol}, nil
}

// Dispose removes the module directory. Deletion failure is logged only.
func (b *PrecompiledBuilder) Dispose(mod *Module) {
	disposeModule(mod)
}

func disposeModule(mod *Module) {
	if mod == nil || mod.Dir == "" {
		return
	}
	if err := os.RemoveAll(mod.Dir); err != nil {
		slog.Warn("harness module cleanup failed", "dir", mod.Dir, "error", err)
	}
}
