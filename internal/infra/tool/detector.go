// Package tool provides Go toolchain detection for the harness builder.
package tool

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
	"sync"

	"github.com/probelab/benchforge/internal/domain/config"
)

// Info describes a detected Go toolchain.
type Info struct {
	Path    string `json:"path"`
	Version string `json:"version,omitempty"`
}

// Detector locates the Go toolchain the harness builder compiles with.
// Detection runs once per binary; every later call returns the cached
// outcome.
type Detector struct {
	// GoBin overrides the binary to probe. Empty means "go" from PATH.
	GoBin string

	once sync.Once
	info *Info
	err  error
}

// NewDetector creates a detector probing the given binary, or "go" from
// PATH when empty.
func NewDetector(goBin string) *Detector {
	return &Detector{GoBin: goBin}
}

// Detect resolves the toolchain binary and its version. It is the
// pre-check run before a toolchain build: a missing binary fails here,
// before any harness source is synthesized.
func (d *Detector) Detect(ctx context.Context) (*Info, error) {
	d.once.Do(func() {
		d.info, d.err = d.detect(ctx)
	})
	return d.info, d.err
}

func (d *Detector) detect(ctx context.Context) (*Info, error) {
	bin := d.GoBin
	if bin == "" {
		bin = "go"
	}

	path, err := exec.LookPath(bin)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", config.ErrToolNotFound, bin)
	}

	info := &Info{Path: path}

	out, err := exec.CommandContext(ctx, path, "version").Output()
	if err != nil {
		return nil, fmt.Errorf("%w: %s is not a Go toolchain: %v", config.ErrToolNotFound, path, err)
	}
	info.Version = parseGoVersion(string(out))
	if info.Version == "" {
		return nil, fmt.Errorf("%w: unrecognized go version output %q", config.ErrToolNotFound, strings.TrimSpace(string(out)))
	}
	return info, nil
}

// parseGoVersion extracts the release from `go version` output, for
// example "go version go1.24.1 linux/amd64" yields "go1.24.1".
func parseGoVersion(output string) string {
	fields := strings.Fields(output)
	if len(fields) >= 3 && fields[0] == "go" && fields[1] == "version" && strings.HasPrefix(fields[2], "go") {
		return fields[2]
	}
	return ""
}
