// Package suite provides unit tests for the suite domain model.
package suite

import (
	"errors"
	"testing"

	"github.com/google/uuid"
)

func testDescriptor() TesterDescriptor {
	return TesterDescriptor{
		Name:    "CacheBench",
		Feature: "cache read path",
		TestedInterface: TypeRef{
			ImportPath: "github.com/probelab/benchforge/examplebench",
			Symbol:     "Cache",
		},
		DefaultIterations: 1000,
		Measurement:       &Binding{Symbol: "Measurement", Params: []string{"int"}, Results: []string{"float64"}},
	}
}

// TestTypeRef_Satisfies tests declared abstraction matching.
func TestTypeRef_Satisfies(t *testing.T) {
	ref := TypeRef{Symbol: "MapCache", Implements: []string{"Cache", "Closer"}}

	if !ref.Satisfies("Cache") {
		t.Errorf("Satisfies(Cache) = false, want true")
	}
	if ref.Satisfies("Store") {
		t.Errorf("Satisfies(Store) = true, want false")
	}
}

// TestBinding_ShapeEquals tests exact shape matching.
func TestBinding_ShapeEquals(t *testing.T) {
	tests := []struct {
		name    string
		binding Binding
		params  []string
		results []string
		want    bool
	}{
		{"exact match", Binding{Params: []string{"int"}, Results: []string{"float64"}}, []string{"int"}, []string{"float64"}, true},
		{"nil results match", Binding{Params: []string{"Cache"}}, []string{"Cache"}, nil, true},
		{"wrong param type", Binding{Params: []string{"string"}, Results: []string{"float64"}}, []string{"int"}, []string{"float64"}, false},
		{"extra param", Binding{Params: []string{"int", "int"}}, []string{"int"}, nil, false},
		{"missing result", Binding{Params: []string{"int"}}, []string{"int"}, []string{"float64"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.binding.ShapeEquals(tt.params, tt.results); got != tt.want {
				t.Errorf("ShapeEquals() = %v, want %v", got, tt.want)
			}
		})
	}
}

// TestTesterDescriptor_Shapes tests the expected binding shapes.
func TestTesterDescriptor_Shapes(t *testing.T) {
	d := testDescriptor()

	params, results := d.SetupShape()
	if len(params) != 2 || params[0] != "int" || params[1] != "Cache" || results != nil {
		t.Errorf("SetupShape() = %v, %v", params, results)
	}

	params, results = d.TeardownShape()
	if len(params) != 1 || params[0] != "Cache" || results != nil {
		t.Errorf("TeardownShape() = %v, %v", params, results)
	}

	params, results = d.MeasurementShape()
	if len(params) != 1 || params[0] != "int" || len(results) != 1 || results[0] != "float64" {
		t.Errorf("MeasurementShape() = %v, %v", params, results)
	}
}

// TestInfo_Validate tests identifier uniqueness across both sequences.
func TestInfo_Validate(t *testing.T) {
	d := testDescriptor()
	id1 := uuid.New().String()
	id2 := uuid.New().String()

	tests := []struct {
		name    string
		info    Info
		wantErr bool
	}{
		{
			name: "unique identifiers",
			info: Info{
				Descriptor: d,
				Active:     []BenchmarkMethod{{ID: id1, Name: "Get"}},
				Ignored:    []BenchmarkMethod{{ID: id2, Name: "Put", Ignored: true}},
			},
			wantErr: false,
		},
		{
			name: "duplicate across sequences",
			info: Info{
				Descriptor: d,
				Active:     []BenchmarkMethod{{ID: id1, Name: "Get"}},
				Ignored:    []BenchmarkMethod{{ID: id1, Name: "Put", Ignored: true}},
			},
			wantErr: true,
		},
		{
			name: "missing identifier",
			info: Info{
				Descriptor: d,
				Active:     []BenchmarkMethod{{Name: "Get"}},
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.info.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, ErrConfiguration) {
				t.Errorf("Validate() error = %v, want ErrConfiguration", err)
			}
		})
	}
}

type stubDefinition struct {
	descriptor TesterDescriptor
	methods    []MethodSpec
}

func (s *stubDefinition) Descriptor() TesterDescriptor { return s.descriptor }
func (s *stubDefinition) Methods() []MethodSpec        { return s.methods }

// TestRegistry tests registration and lookup.
func TestRegistry(t *testing.T) {
	reg := NewRegistry()
	def := &stubDefinition{descriptor: testDescriptor()}
	concrete := TypeRef{Symbol: "MapCache", Implements: []string{"Cache"}}

	if err := reg.Register(def, concrete); err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	// Duplicate name is rejected.
	if err := reg.Register(def, concrete); !errors.Is(err, ErrConfiguration) {
		t.Errorf("Register() duplicate error = %v, want ErrConfiguration", err)
	}

	got, ok := reg.Get("CacheBench")
	if !ok || got.Concrete.Symbol != "MapCache" {
		t.Errorf("Get() = %v, %v", got, ok)
	}

	if names := reg.Names(); len(names) != 1 || names[0] != "CacheBench" {
		t.Errorf("Names() = %v", names)
	}

	if err := reg.Register(nil, concrete); !errors.Is(err, ErrConfiguration) {
		t.Errorf("Register(nil) error = %v, want ErrConfiguration", err)
	}
}
