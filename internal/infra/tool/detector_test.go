package tool

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/probelab/benchforge/internal/domain/config"
)

func fakeGoBin(t *testing.T, script string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "go")
	require.NoError(t, os.WriteFile(path, []byte(script), 0o755))
	return path
}

func TestDetector_Detect(t *testing.T) {
	bin := fakeGoBin(t, "#!/bin/sh\necho 'go version go1.24.1 linux/amd64'\n")
	d := NewDetector(bin)

	info, err := d.Detect(context.Background())
	require.NoError(t, err)
	assert.Equal(t, bin, info.Path)
	assert.Equal(t, "go1.24.1", info.Version)
}

func TestDetector_Detect_Cached(t *testing.T) {
	bin := fakeGoBin(t, "#!/bin/sh\necho 'go version go1.24.1 linux/amd64'\n")
	d := NewDetector(bin)

	first, err := d.Detect(context.Background())
	require.NoError(t, err)

	// Removing the binary has no effect on later calls.
	require.NoError(t, os.Remove(bin))
	second, err := d.Detect(context.Background())
	require.NoError(t, err)
	assert.Same(t, first, second)
}

func TestDetector_Detect_Missing(t *testing.T) {
	d := NewDetector(filepath.Join(t.TempDir(), "no-such-go"))

	_, err := d.Detect(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, config.ErrToolNotFound))
}

func TestDetector_Detect_NotAToolchain(t *testing.T) {
	bin := fakeGoBin(t, "#!/bin/sh\necho 'something else entirely'\n")
	d := NewDetector(bin)

	_, err := d.Detect(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, config.ErrToolNotFound))
}

func TestParseGoVersion(t *testing.T) {
	tests := []struct {
		name   string
		output string
		want   string
	}{
		{"release", "go version go1.24.1 linux/amd64\n", "go1.24.1"},
		{"devel", "go version go1.25-devel_abc linux/amd64", "go1.25-devel_abc"},
		{"garbage", "command not found", ""},
		{"empty", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, parseGoVersion(tt.output))
		})
	}
}
