// Package mock provides configurable processors for graph tests:
// deterministic sources, pass-throughs and self-freeing units that
// record every call they receive.
package mock

import (
	"knaster.dev/graph"
	"knaster.dev/graph/signal"
)

const logCap = 1 << 14

// Counter counts processing activity of a mock.
type Counter struct {
	Blocks int
	Frames int
}

func (c *Counter) advance(frames int) {
	c.Blocks++
	c.Frames += frames
}

// ParamChange records one SetParam delivery. Frame is the frame the
// value takes effect at, derived from the frames processed so far.
type ParamChange struct {
	Index int
	Value float64
	Frame uint64
}

// Processor is a configurable mock processor. Configure the public
// fields before adding it to a graph; use New so recording storage is
// preallocated and processing stays allocation free.
type Processor struct {
	NumInputs  int
	NumOutputs int
	Params     []graph.ParamInfo

	// Value is written to every output sample of a source mock. When
	// the mock has parameters, SetParam on index 0 replaces it.
	Value float64
	// PassThrough copies inputs to outputs channel-wise. When Scaled is
	// set, samples are scaled by the last value delivered to index 0.
	PassThrough bool
	Scaled      bool
	// DoneAfter raises the self-free flag once this many frames have
	// been processed. Zero means never.
	DoneAfter int

	Counter
	ParamLog []ParamChange

	scale     float64
	nextFrame uint64
}

// New returns a mock with recording storage preallocated.
func New() *Processor {
	return &Processor{ParamLog: make([]ParamChange, 0, logCap), scale: 1}
}

// Describe implements graph.Processor.
func (m *Processor) Describe() graph.ProcessorInfo {
	return graph.ProcessorInfo{
		Inputs:  m.NumInputs,
		Outputs: m.NumOutputs,
		Params:  m.Params,
	}
}

func (m *Processor) sample(in []float64, i, ch int) float64 {
	if m.PassThrough && m.NumInputs > 0 {
		v := in[ch%m.NumInputs]
		if m.Scaled {
			v *= m.scale
		}
		return v
	}
	return m.Value
}

// Process implements graph.Processor.
func (m *Processor) Process(ctx *graph.BlockCtx, in, out signal.Float64) {
	n := ctx.Frames()
	for ch := 0; ch < m.NumOutputs; ch++ {
		for i := 0; i < n; i++ {
			if m.PassThrough && m.NumInputs > 0 {
				v := in[ch%m.NumInputs][i]
				if m.Scaled {
					v *= m.scale
				}
				out[ch][i] = v
			} else {
				out[ch][i] = m.Value
			}
		}
	}
	m.advance(n)
	m.nextFrame = ctx.Frame() + uint64(n)
	if m.DoneAfter > 0 && m.Frames >= m.DoneAfter {
		ctx.SetDone()
	}
}

// ProcessFrame implements graph.Processor.
func (m *Processor) ProcessFrame(ctx *graph.FrameCtx, in, out []float64) {
	for ch := 0; ch < m.NumOutputs; ch++ {
		out[ch] = m.sample(in, 0, ch)
	}
	m.advance(1)
	m.nextFrame = ctx.Frame() + 1
	if m.DoneAfter > 0 && m.Frames >= m.DoneAfter {
		ctx.SetDone()
	}
}

// SetParam implements graph.Processor. Index 0 steers the source value
// of a value mock or the scale of a scaled pass-through; every delivery
// is recorded.
func (m *Processor) SetParam(index int, value float64) {
	if len(m.ParamLog) < cap(m.ParamLog) {
		m.ParamLog = append(m.ParamLog, ParamChange{Index: index, Value: value, Frame: m.nextFrame})
	}
	if index == 0 && len(m.Params) > 0 {
		if m.PassThrough {
			m.scale = value
		} else {
			m.Value = value
		}
	}
}

// Values returns the recorded values delivered to one parameter index.
func (m *Processor) Values(index int) []float64 {
	var out []float64
	for i := range m.ParamLog {
		if m.ParamLog[i].Index == index {
			out = append(out, m.ParamLog[i].Value)
		}
	}
	return out
}

// FloatParam is a convenience single float parameter table.
func FloatParam(name string, def float64) []graph.ParamInfo {
	return []graph.ParamInfo{{Name: name, Kind: graph.ParamFloat, Default: def}}
}
