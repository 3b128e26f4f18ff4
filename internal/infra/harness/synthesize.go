// Package harness synthesizes and builds the loadable harness that binds a
// benchmark suite to one concrete tested type. Synthesis renders source
// text; building compiles it into an executable module on disk.
package harness

import (
	"fmt"
	"strings"
	"text/template"

	"github.com/probelab/benchforge/internal/domain/suite"
)

// SuiteSymbol derives the synthesized harness suite name for a discovered
// suite: tester name joined with the concrete tested type.
func SuiteSymbol(info *suite.Info) string {
	return info.Descriptor.Name + "_" + info.Concrete.Symbol
}

// sourceTemplate renders the harness main package. The generated program
// accepts (-suite, -tested, -method, -iterations, -test-id), runs exactly
// one benchmark method, and reports a single JSON measurement on stdout.
const sourceTemplate = `// Code generated by benchforge from the {{.Suite}} suite metadata. DO NOT EDIT.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"time"

	tester "{{.ImportPath}}"
)

const (
	suiteName         = "{{.Suite}}"
	testedType        = "{{.Concrete}}"
	defaultIterations = {{.DefaultIterations}}
)

// suiteDescription: {{.Feature}}

type benchEntry struct {
	ID           string
	Name         string
	Description  string
	Ignored      bool
	IgnoreReason string
	Run          func(impl tester.{{.Tested}})
}

var entries = []benchEntry{
{{- range .Methods}}
	{
		ID:          {{printf "%q" .ID}},
		Name:        {{printf "%q" .Name}},
		Description: {{printf "%q" .Description}},
{{- if .Ignored}}
		Ignored:      true,
		IgnoreReason: {{printf "%q" .IgnoreReason}},
{{- else}}
		Run:         func(impl tester.{{$.Tested}}) { tester.{{.Symbol}}(impl) },
{{- end}}
	},
{{- end}}
}

type report struct {
	TestID string  ` + "`" + `json:"test_id"` + "`" + `
	Method string  ` + "`" + `json:"method"` + "`" + `
	Value  float64 ` + "`" + `json:"value"` + "`" + `
}

func main() {
	var (
		suiteFlag  = flag.String("suite", "", "synthesized suite name")
		testedFlag = flag.String("tested", "", "tested type identity")
		method     = flag.String("method", "", "benchmark method name")
		iterations = flag.Int("iterations", defaultIterations, "iteration count")
		testID     = flag.String("test-id", "", "benchmark identifier override")
	)
	flag.Parse()

	if *suiteFlag != suiteName || *testedFlag != testedType {
		fmt.Fprintf(os.Stderr, "harness mismatch: built for %s against %s\n", suiteName, testedType)
		os.Exit(2)
	}

	for _, e := range entries {
		if e.Name != *method {
			continue
		}
		if e.Ignored {
			fmt.Fprintf(os.Stderr, "method %s is ignored: %s\n", e.Name, e.IgnoreReason)
			os.Exit(3)
		}

		impl := tester.{{.Constructor}}()
{{- if .Setup}}
		tester.{{.Setup}}(*iterations, impl)
{{- end}}
		start := time.Now()
		for i := 0; i < *iterations; i++ {
			e.Run(impl)
		}
		elapsed := time.Since(start)
{{- if .Teardown}}
		tester.{{.Teardown}}(impl)
{{- end}}

		value := float64(elapsed.Nanoseconds()) / 1e6
		if units := tester.{{.Measurement}}(*iterations); units > 0 {
			value /= units
		}

		id := e.ID
		if *testID != "" {
			id = *testID
		}
		out, err := json.Marshal(report{TestID: id, Method: e.Name, Value: value})
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		fmt.Println(string(out))
		return
	}

	fmt.Fprintf(os.Stderr, "unknown benchmark method %q\n", *method)
	os.Exit(4)
}
`

var harnessTemplate = template.Must(template.New("harness").Parse(sourceTemplate))

// templateData is the flattened view of a suite the template renders from.
type templateData struct {
	Suite             string
	Feature           string
	ImportPath        string
	Tested            string
	Concrete          string
	Constructor       string
	DefaultIterations int
	Setup             string
	Teardown          string
	Measurement       string
	Methods           []suite.BenchmarkMethod
}

// Synthesize renders harness source for a discovered suite. It is a pure
// function of its input: identical suite info yields byte-identical source.
// Ignored methods are kept in the generated metadata even though they are
// never scheduled. An empty active sequence still yields loadable source.
func Synthesize(info *suite.Info) (string, error) {
	if info == nil {
		return "", fmt.Errorf("%w: nil suite info", suite.ErrConfiguration)
	}
	d := info.Descriptor
	if d.Measurement == nil {
		return "", fmt.Errorf("%w: suite %q has no measurement binding", suite.ErrConfiguration, d.Name)
	}

	data := templateData{
		Suite:             SuiteSymbol(info),
		Feature:           d.Feature,
		ImportPath:        d.TestedInterface.ImportPath,
		Tested:            d.TestedInterface.Symbol,
		Concrete:          info.Concrete.Symbol,
		Constructor:       info.Concrete.Constructor,
		DefaultIterations: d.DefaultIterations,
		Measurement:       d.Measurement.Symbol,
	}
	if d.Setup != nil {
		data.Setup = d.Setup.Symbol
	}
	if d.Teardown != nil {
		data.Teardown = d.Teardown.Symbol
	}

	// Declaration order, active then ignored, exactly as discovered.
	data.Methods = append(data.Methods, info.Active...)
	data.Methods = append(data.Methods, info.Ignored...)

	var buf strings.Builder
	if err := harnessTemplate.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("render harness source: %w", err)
	}
	return buf.String(), nil
}
