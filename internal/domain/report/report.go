// Package report provides the run-export domain model.
package report

import (
	"errors"
	"fmt"
	"time"

	"github.com/probelab/benchforge/internal/domain/history"
)

// ErrInvalidReport is returned when an export request is malformed.
var ErrInvalidReport = errors.New("invalid report")

// Format represents the output format for an exported run.
type Format string

const (
	// FormatJSON exports the full record as indented JSON.
	FormatJSON Format = "json"
	// FormatMarkdown exports a human-readable Markdown summary.
	FormatMarkdown Format = "markdown"
)

// String returns the string representation of the format.
func (f Format) String() string {
	return string(f)
}

// Validate checks if the format is supported.
func (f Format) Validate() error {
	switch f {
	case FormatJSON, FormatMarkdown:
		return nil
	default:
		return fmt.Errorf("%w: unsupported format %q", ErrInvalidReport, f)
	}
}

// FileExtension returns the file extension for this format.
func (f Format) FileExtension() string {
	switch f {
	case FormatMarkdown:
		return ".md"
	default:
		return ".json"
	}
}

// Report is one rendered export of a saved run.
type Report struct {
	Format      Format
	Content     []byte
	GeneratedAt time.Time
	RunID       string
}

// Generator renders a saved run record into one format.
type Generator interface {
	// Generate renders the record. The record must carry its results.
	Generate(record *history.Record) (*Report, error)

	// Format returns the format this generator produces.
	Format() Format
}
