// Package cachebench is the built-in tester suite: micro-benchmarks for
// key-value Cache implementations. Synthesized harnesses import this
// package and call its exported operations by name.
package cachebench

import (
	"fmt"
	"sync"
	"sync/atomic"
)

// workingSet is how many entries Fill seeds before a run.
const workingSet = 1024

// Cache is the tested abstraction.
type Cache interface {
	Get(key string) (string, bool)
	Put(key, value string)
	Delete(key string)
}

// MapCache is a mutex-guarded map, the reference Cache implementation.
type MapCache struct {
	mu   sync.Mutex
	data map[string]string
}

// NewMapCache creates an empty MapCache.
func NewMapCache() Cache {
	return &MapCache{data: make(map[string]string)}
}

func (c *MapCache) Get(key string) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.data[key]
	return v, ok
}

func (c *MapCache) Put(key, value string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data[key] = value
}

func (c *MapCache) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.data, key)
}

var cursor atomic.Int64

func key(i int) string {
	return fmt.Sprintf("key-%04d", i%workingSet)
}

// Fill seeds the cache with the working set before the timed loop.
func Fill(iterations int, c Cache) {
	cursor.Store(0)
	for i := 0; i < workingSet; i++ {
		c.Put(key(i), "seed")
	}
}

// Drain empties the cache after the timed loop.
func Drain(c Cache) {
	for i := 0; i < workingSet; i++ {
		c.Delete(key(i))
	}
}

// Ops reports how many cache operations a run of the given size performs.
func Ops(iterations int) float64 {
	return float64(iterations)
}

// BenchGet reads one seeded key.
func BenchGet(c Cache) {
	c.Get(key(int(cursor.Add(1))))
}

// BenchPut overwrites one seeded key.
func BenchPut(c Cache) {
	c.Put(key(int(cursor.Add(1))), "updated")
}

// BenchDelete deletes and reinserts one seeded key, so the working set
// stays intact across iterations.
func BenchDelete(c Cache) {
	k := key(int(cursor.Add(1)))
	c.Delete(k)
	c.Put(k, "seed")
}

// BenchChurn replaces the whole working set. Quadratic against the
// iteration count, so it is registered ignored.
func BenchChurn(c Cache) {
	for i := 0; i < workingSet; i++ {
		c.Put(key(i), "churn")
	}
}
