package graph

import (
	"errors"
	"os"
	"strconv"
	"sync"
	"sync/atomic"

	"github.com/rs/xid"
	"github.com/sirupsen/logrus"

	"knaster.dev/graph/internal/ring"
	"knaster.dev/graph/metric"
)

const (
	defaultSampleRate = 48000
	defaultBlockSize  = 64
	defaultOutputs    = 2
	defaultRingCap    = 1024
	defaultNodeCap    = 1024
)

// newUID returns new unique id value.
func newUID() string {
	return xid.New().String()
}

// Graph is the root container of an audio processing topology. It owns
// the mutable state between edits and publishes compiled schedules to
// its engine. All Graph methods belong to the control thread; the engine
// side lives behind Runner.
type Graph struct {
	uid        string
	name       string
	sampleRate int
	blockSize  int
	numInputs  int
	numOutputs int
	bufferCap  int
	ringCap    int
	nodeCap    int

	// mu serializes edits and commits. The audio thread never takes it.
	mu   sync.Mutex
	topo topology

	published atomic.Pointer[plan]
	epoch     uint64
	retained  []*plan

	changes *ring.SPSC[change]
	doneIDs *ring.SPSC[NodeID]

	runner   *Runner
	logger   logrus.FieldLogger
	counters *metric.Counters
}

// defaultLogger builds the logger a graph uses unless WithLogger
// overrides it. Setting KNASTER_DEBUG enables schedule debug output.
func defaultLogger() logrus.FieldLogger {
	l := logrus.New()
	if on, _ := strconv.ParseBool(os.Getenv("KNASTER_DEBUG")); on {
		l.SetLevel(logrus.DebugLevel)
	}
	return l
}

// Option provides a way to set functional parameters to a graph.
type Option func(g *Graph) error

// WithName sets a human readable graph name used in logs and metrics.
func WithName(name string) Option {
	return func(g *Graph) error {
		g.name = name
		return nil
	}
}

// WithSampleRate sets the fixed sample rate. It cannot change over the
// graph lifetime.
func WithSampleRate(sampleRate int) Option {
	return func(g *Graph) error {
		if sampleRate <= 0 {
			return errors.New("sample rate must be positive")
		}
		g.sampleRate = sampleRate
		return nil
	}
}

// WithBlockSize sets the nominal block size, which is also the largest
// block the engine processes at once. Longer Process calls are split
// into blocks of this size.
func WithBlockSize(blockSize int) Option {
	return func(g *Graph) error {
		if blockSize <= 0 {
			return errors.New("block size must be positive")
		}
		g.blockSize = blockSize
		return nil
	}
}

// WithIO sets the number of graph input and output channels.
func WithIO(numInputs, numOutputs int) Option {
	return func(g *Graph) error {
		if numInputs < 0 || numOutputs < 1 {
			return errors.New("graph needs zero or more inputs and at least one output")
		}
		g.numInputs = numInputs
		g.numOutputs = numOutputs
		return nil
	}
}

// WithRingCapacity sets the capacity of the parameter ring and of the
// engine's pending-change table.
func WithRingCapacity(n int) Option {
	return func(g *Graph) error {
		if n < 1 {
			return errors.New("ring capacity must be positive")
		}
		g.ringCap = n
		return nil
	}
}

// WithBufferCap caps the number of buffer slots a compiled schedule may
// use. Zero means unlimited.
func WithBufferCap(n int) Option {
	return func(g *Graph) error {
		g.bufferCap = n
		return nil
	}
}

// WithLogger routes graph lifecycle logging to the provided logger. An
// entry with preset fields works as well as a full logger.
func WithLogger(l logrus.FieldLogger) Option {
	return func(g *Graph) error {
		if l == nil {
			return errors.New("logger must not be nil")
		}
		g.logger = l
		return nil
	}
}

// WithNodeCap caps the node table size. Zero means unlimited.
func WithNodeCap(n int) Option {
	return func(g *Graph) error {
		g.nodeCap = n
		return nil
	}
}

// New creates a new graph and applies provided options. The returned
// graph carries an empty published schedule, so its engine is ready to
// process silence immediately.
func New(options ...Option) (*Graph, error) {
	g := &Graph{
		uid:        newUID(),
		name:       "graph",
		sampleRate: defaultSampleRate,
		blockSize:  defaultBlockSize,
		numOutputs: defaultOutputs,
		ringCap:    defaultRingCap,
		nodeCap:    defaultNodeCap,
		logger:     defaultLogger(),
	}
	for _, option := range options {
		if err := option(g); err != nil {
			return nil, err
		}
	}
	g.topo = newTopology(g.numOutputs, g.nodeCap)
	g.changes = ring.NewSPSC[change](g.ringCap)
	g.doneIDs = ring.NewSPSC[NodeID](g.ringCap)
	g.counters = metric.Register(g.uid)

	empty, err := compile(&g.topo, g.config())
	if err != nil {
		return nil, err
	}
	g.epoch = 1
	empty.epoch = g.epoch
	g.published.Store(empty)

	g.runner = newRunner(g)
	g.logger.WithFields(logrus.Fields{
		"graph": g.name,
		"uid":   g.uid,
		"rate":  g.sampleRate,
		"block": g.blockSize,
	}).Debug("graph created")
	return g, nil
}

func (g *Graph) config() compileConfig {
	return compileConfig{
		blockSize:  g.blockSize,
		numInputs:  g.numInputs,
		numOutputs: g.numOutputs,
		bufferCap:  g.bufferCap,
	}
}

// UID returns the unique graph id.
func (g *Graph) UID() string { return g.uid }

// SampleRate returns the fixed sample rate.
func (g *Graph) SampleRate() int { return g.sampleRate }

// BlockSize returns the nominal block size.
func (g *Graph) BlockSize() int { return g.blockSize }

// NumInputs returns the number of graph input channels.
func (g *Graph) NumInputs() int { return g.numInputs }

// NumOutputs returns the number of graph output channels.
func (g *Graph) NumOutputs() int { return g.numOutputs }

// Runner returns the engine side of the graph.
func (g *Graph) Runner() *Runner { return g.runner }

// Metrics returns measured engine values.
func (g *Graph) Metrics() map[string]string { return metric.Get(g.uid) }

// Close releases control-side resources. The engine must not be
// processing anymore when Close is called.
func (g *Graph) Close() {
	metric.Unregister(g.uid)
}

// publish makes a freshly compiled plan visible to the engine and
// retains predecessors until the engine reports their epoch adopted.
func (g *Graph) publish(p *plan) {
	g.epoch++
	p.epoch = g.epoch
	if prev := g.published.Load(); prev != nil {
		g.retained = append(g.retained, prev)
	}
	g.published.Store(p)
	g.reclaim()
	g.logger.WithFields(logrus.Fields{
		"graph":   g.name,
		"epoch":   p.epoch,
		"buffers": p.slots,
	}).Debug("schedule published")
}

// reclaim drops retained plans the engine can no longer reference.
func (g *Graph) reclaim() {
	adopted := g.runner.adoptedEpoch()
	kept := g.retained[:0]
	for _, p := range g.retained {
		if p.epoch > adopted {
			kept = append(kept, p)
		}
	}
	for i := len(kept); i < len(g.retained); i++ {
		g.retained[i] = nil
	}
	g.retained = kept
}
