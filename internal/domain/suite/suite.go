// Package suite provides the core domain model for benchmark suites:
// tester descriptors, discovered benchmark methods, and the aggregate
// suite info consumed by the scheduler and the harness synthesizer.
package suite

import (
	"errors"
	"fmt"
)

var (
	// ErrConfiguration is returned when a tester definition or its bindings
	// are structurally invalid. It is always raised before any process launches.
	ErrConfiguration = errors.New("suite configuration error")
)

// TypeRef identifies a Go type by package import path and exported symbol.
// Concrete tested types additionally declare the abstractions they satisfy
// and the constructor the generated harness uses to obtain an instance.
type TypeRef struct {
	ImportPath  string   `json:"import_path"`
	Symbol      string   `json:"symbol"`
	Constructor string   `json:"constructor,omitempty"`
	Implements  []string `json:"implements,omitempty"`
}

// Satisfies reports whether the reference declares the given abstraction
// among its implemented interfaces.
func (r TypeRef) Satisfies(abstraction string) bool {
	for _, name := range r.Implements {
		if name == abstraction {
			return true
		}
	}
	return false
}

// Binding names an operation on the tester package together with its
// declared parameter and result shape. Shapes are plain Go type strings;
// the tested-instance parameter is spelled as the tested abstraction symbol.
type Binding struct {
	Symbol  string   `json:"symbol"`
	Params  []string `json:"params"`
	Results []string `json:"results"`
}

// ShapeEquals reports whether the binding's declared shape matches the
// expected parameter and result lists exactly.
func (b Binding) ShapeEquals(params, results []string) bool {
	return equalShapes(b.Params, params) && equalShapes(b.Results, results)
}

func equalShapes(got, want []string) bool {
	if len(got) != len(want) {
		return false
	}
	for i := range got {
		if got[i] != want[i] {
			return false
		}
	}
	return true
}

// TesterDescriptor describes one tester definition: the abstraction it
// exercises, suite-level descriptions, the default iteration count, and
// the optional setup/teardown and required measurement bindings.
type TesterDescriptor struct {
	Name              string  `json:"name"`
	Feature           string  `json:"feature"`
	TestedInterface   TypeRef `json:"tested_interface"`
	DefaultIterations int     `json:"default_iterations"`

	// Setup takes (iteration count, tested instance) and returns nothing.
	Setup *Binding `json:"setup,omitempty"`
	// Teardown takes (tested instance) and returns nothing.
	Teardown *Binding `json:"teardown,omitempty"`
	// Measurement takes (iteration count) and returns the number of
	// measured units one run of that size represents. Required.
	Measurement *Binding `json:"measurement"`
}

// SetupShape returns the expected parameter and result shape of a setup
// binding for this descriptor.
func (d *TesterDescriptor) SetupShape() (params, results []string) {
	return []string{"int", d.TestedInterface.Symbol}, nil
}

// TeardownShape returns the expected shape of a teardown binding.
func (d *TesterDescriptor) TeardownShape() (params, results []string) {
	return []string{d.TestedInterface.Symbol}, nil
}

// MeasurementShape returns the expected shape of a measurement binding.
func (d *TesterDescriptor) MeasurementShape() (params, results []string) {
	return []string{"int"}, []string{"float64"}
}

// MethodSpec is one benchmark method as declared by a tester definition,
// before discovery assigns it an identity.
type MethodSpec struct {
	Name         string   `json:"name"`
	Description  string   `json:"description"`
	Symbol       string   `json:"symbol"`
	Ignored      bool     `json:"ignored"`
	IgnoreReason string   `json:"ignore_reason,omitempty"`
	Params       []string `json:"params"`
	Results      []string `json:"results"`
}

// Definition is the tester-definition boundary. A tester definition
// registers itself by exposing its descriptor and declared benchmark
// methods directly; no runtime type introspection is involved.
type Definition interface {
	// Descriptor returns the suite-level metadata.
	Descriptor() TesterDescriptor

	// Methods returns every declared benchmark method, in declaration order.
	Methods() []MethodSpec
}

// BenchmarkMethod is a single discovered benchmark. Immutable once
// discovered; the Suite back-reference is not owning.
type BenchmarkMethod struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Description  string `json:"description"`
	Symbol       string `json:"symbol"`
	Ignored      bool   `json:"ignored"`
	IgnoreReason string `json:"ignore_reason,omitempty"`

	Suite *TesterDescriptor `json:"-"`
}

// Info is the aggregate produced by discovery for one
// (tester definition, concrete tested type) pair. Read-only thereafter.
type Info struct {
	Descriptor TesterDescriptor  `json:"descriptor"`
	Concrete   TypeRef           `json:"concrete"`
	Active     []BenchmarkMethod `json:"active"`
	Ignored    []BenchmarkMethod `json:"ignored"`
}

// Total returns the number of declared benchmark methods, active and
// ignored together.
func (i *Info) Total() int {
	return len(i.Active) + len(i.Ignored)
}

// Validate checks the structural invariants of a discovered suite:
// the active and ignored sets are disjoint and every identifier is unique.
func (i *Info) Validate() error {
	seen := make(map[string]string, i.Total())
	for _, m := range append(append([]BenchmarkMethod{}, i.Active...), i.Ignored...) {
		if m.ID == "" {
			return fmt.Errorf("%w: method %q has no identifier", ErrConfiguration, m.Name)
		}
		if prev, ok := seen[m.ID]; ok {
			return fmt.Errorf("%w: methods %q and %q share identifier %s", ErrConfiguration, prev, m.Name, m.ID)
		}
		seen[m.ID] = m.Name
	}
	return nil
}
