// Package graph implements a dynamic audio processing graph with a
// realtime execution engine.
//
// A Graph owns the mutable topology: processors connected by channel
// edges. Edits are accumulated in a transactional scope and committed
// atomically; every commit compiles the topology into an immutable
// schedule with preassigned buffers and publishes it to the engine.
// The engine adopts new schedules at block boundaries and processes
// audio without allocating, locking or blocking. Parameter changes
// travel through a bounded lock-free ring and are applied with
// sample-accurate timing and optional smoothing ramps.
package graph
