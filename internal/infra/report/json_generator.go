// Package report renders saved runs into exportable documents.
package report

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/probelab/benchforge/internal/domain/history"
	"github.com/probelab/benchforge/internal/domain/report"
)

// JSONGenerator renders run records as indented JSON.
type JSONGenerator struct{}

// NewJSONGenerator creates a new JSON generator.
func NewJSONGenerator() *JSONGenerator {
	return &JSONGenerator{}
}

// Generate renders the full record, results included.
func (g *JSONGenerator) Generate(record *history.Record) (*report.Report, error) {
	if record == nil || record.ID == "" {
		return nil, fmt.Errorf("%w: record without identity", report.ErrInvalidReport)
	}

	content, err := json.MarshalIndent(record, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal record: %w", err)
	}

	return &report.Report{
		Format:      report.FormatJSON,
		Content:     content,
		GeneratedAt: time.Now(),
		RunID:       record.ID,
	}, nil
}

// Format returns the format this generator produces.
func (g *JSONGenerator) Format() report.Format {
	return report.FormatJSON
}
