package report

import (
	"fmt"
	"strings"
	"time"

	"github.com/probelab/benchforge/internal/domain/history"
	"github.com/probelab/benchforge/internal/domain/report"
)

// MarkdownGenerator renders run records as a Markdown summary.
type MarkdownGenerator struct{}

// NewMarkdownGenerator creates a new Markdown generator.
func NewMarkdownGenerator() *MarkdownGenerator {
	return &MarkdownGenerator{}
}

// Generate renders the record header, summary table, and per-result rows.
func (g *MarkdownGenerator) Generate(record *history.Record) (*report.Report, error) {
	if record == nil || record.ID == "" {
		return nil, fmt.Errorf("%w: record without identity", report.ErrInvalidReport)
	}

	var sb strings.Builder
	g.writeHeader(&sb, record)
	g.writeSummary(&sb, record)
	g.writeResults(&sb, record)

	return &report.Report{
		Format:      report.FormatMarkdown,
		Content:     []byte(sb.String()),
		GeneratedAt: time.Now(),
		RunID:       record.ID,
	}, nil
}

// Format returns the format this generator produces.
func (g *MarkdownGenerator) Format() report.Format {
	return report.FormatMarkdown
}

func (g *MarkdownGenerator) writeHeader(sb *strings.Builder, record *history.Record) {
	fmt.Fprintf(sb, "# Benchmark Run %s\n\n", record.ID)
	fmt.Fprintf(sb, "- **Suite:** %s against %s\n", record.Suite, record.Concrete)
	fmt.Fprintf(sb, "- **Mode:** %s\n", record.Mode)
	fmt.Fprintf(sb, "- **State:** %s\n", record.State)
	fmt.Fprintf(sb, "- **Started:** %s\n", record.StartedAt.Format(time.RFC3339))
	fmt.Fprintf(sb, "- **Duration:** %s\n\n", record.Duration.Round(time.Millisecond))
}

func (g *MarkdownGenerator) writeSummary(sb *strings.Builder, record *history.Record) {
	s := record.Summary
	sb.WriteString("## Summary\n\n")
	fmt.Fprintf(sb, "Measured %d, errors %d, ignored %d.\n\n", s.Measured, s.Errors, s.Ignored)
	if s.Measured == 0 {
		return
	}
	sb.WriteString("| Min | Mean | P50 | P95 | P99 | Max |\n")
	sb.WriteString("|----:|-----:|----:|----:|----:|----:|\n")
	fmt.Fprintf(sb, "| %.3f | %.3f | %.3f | %.3f | %.3f | %.3f |\n\n",
		s.Min, s.Mean, s.P50, s.P95, s.P99, s.Max)
}

func (g *MarkdownGenerator) writeResults(sb *strings.Builder, record *history.Record) {
	if len(record.Results) == 0 {
		return
	}
	sb.WriteString("## Results\n\n")
	sb.WriteString("| Benchmark | Kind | Measurement |\n")
	sb.WriteString("|-----------|------|------------:|\n")
	for _, res := range record.Results {
		measurement := fmt.Sprintf("%.3f", res.Measurement)
		if res.Kind != "next" {
			measurement = "-"
		}
		fmt.Fprintf(sb, "| %s | %s | %s |\n", res.Label, res.Kind, measurement)
	}
	sb.WriteString("\n")
}
