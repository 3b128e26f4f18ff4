// Package usecase composes discovery, harness synthesis and building, and
// multi-process scheduling into cancellable benchmark runs.
package usecase

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/probelab/benchforge/internal/domain/suite"
)

// Discover inspects a tester definition's declared metadata and produces
// the suite info for one (definition, concrete tested type) pair. Every
// declared benchmark method is assigned a fresh unique identifier and
// classified as active or ignored. Structural problems are configuration
// errors; nothing is launched or allocated beyond the returned aggregate.
func Discover(def suite.Definition, concrete suite.TypeRef) (*suite.Info, error) {
	if def == nil {
		return nil, fmt.Errorf("%w: nil tester definition", suite.ErrConfiguration)
	}

	d := def.Descriptor()
	if d.TestedInterface.Symbol == "" {
		return nil, fmt.Errorf("%w: definition %q declares no tested abstraction", suite.ErrConfiguration, d.Name)
	}
	if concrete.Symbol == "" {
		return nil, fmt.Errorf("%w: no concrete tested type for %q", suite.ErrConfiguration, d.Name)
	}
	if !concrete.Satisfies(d.TestedInterface.Symbol) {
		return nil, fmt.Errorf("%w: %s does not implement %s", suite.ErrConfiguration, concrete.Symbol, d.TestedInterface.Symbol)
	}
	if concrete.Constructor == "" {
		return nil, fmt.Errorf("%w: %s declares no constructor", suite.ErrConfiguration, concrete.Symbol)
	}
	// The synthesized harness imports exactly one package, so the concrete
	// type must live alongside the tested abstraction. Catching a mismatch
	// here fails the run before anything is generated or compiled.
	if concrete.ImportPath != d.TestedInterface.ImportPath {
		return nil, fmt.Errorf("%w: %s lives in %s, want the tested abstraction's package %s",
			suite.ErrConfiguration, concrete.Symbol, concrete.ImportPath, d.TestedInterface.ImportPath)
	}
	if d.DefaultIterations <= 0 {
		return nil, fmt.Errorf("%w: definition %q has non-positive default iteration count", suite.ErrConfiguration, d.Name)
	}

	if err := validateBindings(&d); err != nil {
		return nil, err
	}

	info := &suite.Info{Descriptor: d, Concrete: concrete}

	seen := make(map[string]bool)
	for _, spec := range def.Methods() {
		if spec.Name == "" || spec.Symbol == "" {
			return nil, fmt.Errorf("%w: definition %q declares an unnamed benchmark method", suite.ErrConfiguration, d.Name)
		}
		if seen[spec.Name] {
			return nil, fmt.Errorf("%w: benchmark method %q declared twice", suite.ErrConfiguration, spec.Name)
		}
		seen[spec.Name] = true

		// Every benchmark method takes the tested instance and returns nothing.
		declared := suite.Binding{Symbol: spec.Symbol, Params: spec.Params, Results: spec.Results}
		if !declared.ShapeEquals([]string{d.TestedInterface.Symbol}, nil) {
			return nil, fmt.Errorf("%w: benchmark method %q has shape (%v) -> %v, want (%s) -> void",
				suite.ErrConfiguration, spec.Name, spec.Params, spec.Results, d.TestedInterface.Symbol)
		}

		method := suite.BenchmarkMethod{
			ID:           uuid.New().String(),
			Name:         spec.Name,
			Description:  spec.Description,
			Symbol:       spec.Symbol,
			Ignored:      spec.Ignored,
			IgnoreReason: spec.IgnoreReason,
			Suite:        &info.Descriptor,
		}
		if spec.Ignored {
			info.Ignored = append(info.Ignored, method)
		} else {
			info.Active = append(info.Active, method)
		}
	}

	if err := info.Validate(); err != nil {
		return nil, err
	}
	return info, nil
}

// validateBindings checks the optional setup/teardown bindings and the
// required measurement binding against their expected shapes.
func validateBindings(d *suite.TesterDescriptor) error {
	if d.Measurement == nil {
		return fmt.Errorf("%w: definition %q is missing the measurement-descriptor binding", suite.ErrConfiguration, d.Name)
	}
	if params, results := d.MeasurementShape(); !d.Measurement.ShapeEquals(params, results) {
		return fmt.Errorf("%w: measurement binding %q has shape (%v) -> %v, want (int) -> float64",
			suite.ErrConfiguration, d.Measurement.Symbol, d.Measurement.Params, d.Measurement.Results)
	}

	if d.Setup != nil {
		if params, results := d.SetupShape(); !d.Setup.ShapeEquals(params, results) {
			return fmt.Errorf("%w: setup binding %q has shape (%v) -> %v, want (int, %s) -> void",
				suite.ErrConfiguration, d.Setup.Symbol, d.Setup.Params, d.Setup.Results, d.TestedInterface.Symbol)
		}
	}
	if d.Teardown != nil {
		if params, results := d.TeardownShape(); !d.Teardown.ShapeEquals(params, results) {
			return fmt.Errorf("%w: teardown binding %q has shape (%v) -> %v, want (%s) -> void",
				suite.ErrConfiguration, d.Teardown.Symbol, d.Teardown.Params, d.Teardown.Results, d.TestedInterface.Symbol)
		}
	}
	return nil
}
