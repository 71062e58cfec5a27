// Package metric measures the audio engine. Counters are plain atomics so
// the audio callback can capture them without allocating; values are read
// and exposed through expvar on the control side.
package metric

import (
	"expvar"
	"fmt"
	"sync"
	"sync/atomic"
)

const enginesLabel = "knaster.engines"

// Counters hold measurements of a single engine.
type Counters struct {
	Blocks         atomic.Int64 // processed blocks
	Frames         atomic.Int64 // processed frames
	PlanSwaps      atomic.Int64 // adopted schedules
	Changes        atomic.Int64 // parameter changes accepted into the ring
	DroppedChanges atomic.Int64 // changes for removed nodes or overflow
	SelfFreed      atomic.Int64 // nodes that requested removal
}

var engines = struct {
	sync.Mutex
	m map[string]*Counters
}{
	m: make(map[string]*Counters),
}

func init() {
	expvar.Publish(enginesLabel, expvar.Func(func() interface{} {
		return GetAll()
	}))
}

// Register adds counters for the engine with provided id.
// Registering the same id twice returns the existing counters.
func Register(id string) *Counters {
	engines.Lock()
	defer engines.Unlock()
	if c, ok := engines.m[id]; ok {
		return c
	}
	c := &Counters{}
	engines.m[id] = c
	return c
}

// Unregister removes counters for the engine with provided id.
func Unregister(id string) {
	engines.Lock()
	defer engines.Unlock()
	delete(engines.m, id)
}

// Get returns measured values for the engine with provided id.
func Get(id string) map[string]string {
	engines.Lock()
	c, ok := engines.m[id]
	engines.Unlock()
	if !ok {
		return nil
	}
	return c.values()
}

// GetAll returns measured values for all registered engines.
func GetAll() map[string]map[string]string {
	engines.Lock()
	defer engines.Unlock()
	m := make(map[string]map[string]string)
	for id, c := range engines.m {
		m[id] = c.values()
	}
	return m
}

func (c *Counters) values() map[string]string {
	return map[string]string{
		"Blocks":         fmt.Sprintf("%d", c.Blocks.Load()),
		"Frames":         fmt.Sprintf("%d", c.Frames.Load()),
		"PlanSwaps":      fmt.Sprintf("%d", c.PlanSwaps.Load()),
		"Changes":        fmt.Sprintf("%d", c.Changes.Load()),
		"DroppedChanges": fmt.Sprintf("%d", c.DroppedChanges.Load()),
		"SelfFreed":      fmt.Sprintf("%d", c.SelfFreed.Load()),
	}
}
