package report

import (
	"errors"
	"strings"
	"testing"

	"github.com/probelab/benchforge/internal/domain/history"
	"github.com/probelab/benchforge/internal/domain/report"
)

func TestMarkdownGenerator_Format(t *testing.T) {
	if got := NewMarkdownGenerator().Format(); got != report.FormatMarkdown {
		t.Errorf("Format() = %v, want %v", got, report.FormatMarkdown)
	}
}

func TestMarkdownGenerator_Generate(t *testing.T) {
	rep, err := NewMarkdownGenerator().Generate(exportRecord())
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}

	content := string(rep.Content)
	for _, want := range []string{
		"# Benchmark Run run-1",
		"CacheBench against MapCache",
		"## Summary",
		"Measured 2, errors 1, ignored 0.",
		"## Results",
		"| Get | next | 10.000 |",
		"| Scan | error | - |",
	} {
		if !strings.Contains(content, want) {
			t.Errorf("content missing %q:\n%s", want, content)
		}
	}
}

func TestMarkdownGenerator_Generate_NoMeasurements(t *testing.T) {
	record := exportRecord()
	record.Summary = history.Summary{Errors: 3}
	record.Results = nil

	rep, err := NewMarkdownGenerator().Generate(record)
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}

	content := string(rep.Content)
	if strings.Contains(content, "| Min |") {
		t.Error("summary table rendered without measurements")
	}
	if strings.Contains(content, "## Results") {
		t.Error("results section rendered without results")
	}
}

func TestMarkdownGenerator_Generate_InvalidRecord(t *testing.T) {
	if _, err := NewMarkdownGenerator().Generate(nil); !errors.Is(err, report.ErrInvalidReport) {
		t.Errorf("Generate(nil) error = %v, want ErrInvalidReport", err)
	}
}
