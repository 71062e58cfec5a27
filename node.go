package graph

import (
	"fmt"
	"sync/atomic"

	"knaster.dev/graph/signal"
)

// ParamKind defines the value domain of a parameter.
type ParamKind int

const (
	// ParamFloat is a floating-point scalar parameter.
	ParamFloat ParamKind = iota
	// ParamInt is an integer-valued parameter.
	ParamInt
	// ParamTrigger is a momentary parameter, set to 1 when fired.
	ParamTrigger
)

// ParamInfo describes a single parameter slot of a processor.
type ParamInfo struct {
	Name    string
	Kind    ParamKind
	Default float64
	Min     float64
	Max     float64
}

// ProcessorInfo declares the structural attributes of a processor:
// channel widths and the parameter table.
type ProcessorInfo struct {
	Inputs  int
	Outputs int
	Params  []ParamInfo
}

// Processor is a signal processing unit hosted by a graph node.
//
// Process and ProcessFrame are called on the audio thread and must not
// allocate, lock or block. SetParam is called on the audio thread when a
// parameter change takes effect. Describe is called on the control
// thread during edits.
type Processor interface {
	Describe() ProcessorInfo
	// Process renders a block. in and out hold one slice per channel,
	// all of ctx.Frames() length.
	Process(ctx *BlockCtx, in, out signal.Float64)
	// ProcessFrame renders a single frame. in and out hold one sample
	// per channel. Used when the node runs sample by sample.
	ProcessFrame(ctx *FrameCtx, in, out []float64)
	// SetParam applies a parameter value by index.
	SetParam(index int, value float64)
}

// BlockCtx carries per-block processing context.
type BlockCtx struct {
	sampleRate int
	frame      uint64
	frames     int
	done       *atomic.Bool
}

// SampleRate returns the fixed graph sample rate.
func (c *BlockCtx) SampleRate() int { return c.sampleRate }

// Frames returns the number of frames in the current slice.
func (c *BlockCtx) Frames() int { return c.frames }

// Frame returns the absolute frame number of the first sample in the
// current slice.
func (c *BlockCtx) Frame() uint64 { return c.frame }

// SetDone raises the self-free flag of the hosting node. The engine
// zeroes the node output for the block and hands a removal token to the
// control thread.
func (c *BlockCtx) SetDone() { c.done.Store(true) }

// FrameCtx carries per-frame processing context.
type FrameCtx struct {
	sampleRate int
	frame      uint64
	done       *atomic.Bool
}

// SampleRate returns the fixed graph sample rate.
func (c *FrameCtx) SampleRate() int { return c.sampleRate }

// Frame returns the absolute frame number of the current sample.
func (c *FrameCtx) Frame() uint64 { return c.frame }

// SetDone raises the self-free flag of the hosting node.
func (c *FrameCtx) SetDone() { c.done.Store(true) }

// NodeID is a stable generational identifier of a node within a graph.
// The zero value identifies no node.
type NodeID struct {
	idx uint32
	gen uint32
}

// String returns a short printable form of the id.
func (id NodeID) String() string {
	return fmt.Sprintf("n%d.%d", id.idx, id.gen)
}

// IsZero reports whether the id identifies no node.
func (id NodeID) IsZero() bool { return id.gen == 0 }

// Curve selects the interpolation shape of a smoothing ramp.
type Curve uint8

const (
	// CurveLinear interpolates linearly between current and target.
	CurveLinear Curve = iota
	// CurveSquared interpolates along a squared ramp, a cheap
	// approximation of an equal-power fade.
	CurveSquared
)

func (c Curve) apply(x float64) float64 {
	if c == CurveSquared {
		return x * x
	}
	return x
}

// sourceRef identifies a node output channel.
type sourceRef struct {
	node NodeID
	ch   int
}

// paramState is the engine-owned runtime state of one parameter slot.
// It is mutated on the audio thread only.
type paramState struct {
	value     float64
	rampFrom  float64
	target    float64
	rampStart uint64
	rampEnd   uint64
	curve     Curve
	ramping   bool
	src       sourceRef
	srcActive bool
}

// node is the runtime identity of a processor inside a graph. It is
// shared between schedules: plans reference nodes, they never own them.
type node struct {
	id     NodeID
	proc   Processor
	info   ProcessorInfo
	params []paramState

	// done is raised by the processor itself, freed is set once the
	// engine has observed done and started skipping the node.
	done  atomic.Bool
	freed atomic.Bool
}

func newNode(id NodeID, p Processor) *node {
	info := p.Describe()
	n := &node{
		id:     id,
		proc:   p,
		info:   info,
		params: make([]paramState, len(info.Params)),
	}
	for i := range info.Params {
		n.params[i].value = info.Params[i].Default
		n.proc.SetParam(i, info.Params[i].Default)
	}
	return n
}

// paramIndex resolves a parameter name on the control thread.
func (n *node) paramIndex(name string) (int, error) {
	for i := range n.info.Params {
		if n.info.Params[i].Name == name {
			return i, nil
		}
	}
	return 0, fmt.Errorf("%w: %q on %v", ErrUnknownParam, name, n.id)
}

// rampingAny reports whether any parameter has an active ramp.
func (n *node) rampingAny() bool {
	for i := range n.params {
		if n.params[i].ramping {
			return true
		}
	}
	return false
}

// boundAny reports whether any parameter has an active audio-rate source
// attached at runtime.
func (n *node) boundAny() bool {
	for i := range n.params {
		if n.params[i].srcActive {
			return true
		}
	}
	return false
}
