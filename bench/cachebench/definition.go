package cachebench

import "github.com/probelab/benchforge/internal/domain/suite"

// ImportPath is where synthesized harness source imports this package from.
const ImportPath = "github.com/probelab/benchforge/bench/cachebench"

type definition struct{}

// Definition returns the tester definition for this suite.
func Definition() suite.Definition {
	return definition{}
}

// MapCacheRef is the concrete tested type this module ships.
func MapCacheRef() suite.TypeRef {
	return suite.TypeRef{
		ImportPath:  ImportPath,
		Symbol:      "MapCache",
		Constructor: "NewMapCache",
		Implements:  []string{"Cache"},
	}
}

func (definition) Descriptor() suite.TesterDescriptor {
	return suite.TesterDescriptor{
		Name:    "CacheBench",
		Feature: "key-value cache operations",
		TestedInterface: suite.TypeRef{
			ImportPath: ImportPath,
			Symbol:     "Cache",
		},
		DefaultIterations: 100000,
		Setup:             &suite.Binding{Symbol: "Fill", Params: []string{"int", "Cache"}},
		Teardown:          &suite.Binding{Symbol: "Drain", Params: []string{"Cache"}},
		Measurement:       &suite.Binding{Symbol: "Ops", Params: []string{"int"}, Results: []string{"float64"}},
	}
}

func (definition) Methods() []suite.MethodSpec {
	return []suite.MethodSpec{
		{Name: "Get", Description: "read one seeded key", Symbol: "BenchGet", Params: []string{"Cache"}},
		{Name: "Put", Description: "overwrite one seeded key", Symbol: "BenchPut", Params: []string{"Cache"}},
		{Name: "Delete", Description: "delete and reinsert one seeded key", Symbol: "BenchDelete", Params: []string{"Cache"}},
		{
			Name:         "Churn",
			Description:  "replace the whole working set",
			Symbol:       "BenchChurn",
			Params:       []string{"Cache"},
			Ignored:      true,
			IgnoreReason: "quadratic in the iteration count",
		},
	}
}
