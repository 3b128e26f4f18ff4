package cachebench

import (
	"testing"

	"github.com/probelab/benchforge/internal/app/usecase"
)

func TestMapCache(t *testing.T) {
	c := NewMapCache()

	c.Put("a", "1")
	if v, ok := c.Get("a"); !ok || v != "1" {
		t.Fatalf("Get(a) = %q, %v", v, ok)
	}

	c.Delete("a")
	if _, ok := c.Get("a"); ok {
		t.Fatal("Get(a) after Delete should miss")
	}
}

func TestFillAndDrain(t *testing.T) {
	c := NewMapCache()

	Fill(1000, c)
	if _, ok := c.Get(key(0)); !ok {
		t.Fatal("Fill did not seed the working set")
	}

	Drain(c)
	if _, ok := c.Get(key(0)); ok {
		t.Fatal("Drain left seeded entries behind")
	}
}

func TestBenchDelete_KeepsWorkingSet(t *testing.T) {
	c := NewMapCache()
	Fill(10, c)

	for i := 0; i < workingSet*2; i++ {
		BenchDelete(c)
	}
	for i := 0; i < workingSet; i++ {
		if _, ok := c.Get(key(i)); !ok {
			t.Fatalf("working set entry %d lost", i)
		}
	}
}

func TestDefinition_Discoverable(t *testing.T) {
	info, err := usecase.Discover(Definition(), MapCacheRef())
	if err != nil {
		t.Fatalf("Discover() error = %v", err)
	}
	if len(info.Active) != 3 || len(info.Ignored) != 1 {
		t.Fatalf("discovered %d active, %d ignored", len(info.Active), len(info.Ignored))
	}
	if info.Ignored[0].Name != "Churn" {
		t.Errorf("ignored method = %q, want Churn", info.Ignored[0].Name)
	}
}
