package ugen

import (
	"knaster.dev/graph"
	"knaster.dev/graph/signal"
)

// Gain scales its input channels by a single gain parameter.
type Gain struct {
	channels int
	gain     float64
}

// NewGain returns a gain stage over the given channel count, starting
// at unity.
func NewGain(channels int) *Gain {
	return &Gain{channels: channels, gain: 1}
}

// Describe implements graph.Processor.
func (g *Gain) Describe() graph.ProcessorInfo {
	return graph.ProcessorInfo{
		Inputs:  g.channels,
		Outputs: g.channels,
		Params: []graph.ParamInfo{
			{Name: "gain", Kind: graph.ParamFloat, Default: g.gain},
		},
	}
}

// Process implements graph.Processor.
func (g *Gain) Process(ctx *graph.BlockCtx, in, out signal.Float64) {
	for ch := 0; ch < g.channels; ch++ {
		for i := 0; i < ctx.Frames(); i++ {
			out[ch][i] = in[ch][i] * g.gain
		}
	}
}

// ProcessFrame implements graph.Processor.
func (g *Gain) ProcessFrame(ctx *graph.FrameCtx, in, out []float64) {
	for ch := 0; ch < g.channels; ch++ {
		out[ch] = in[ch] * g.gain
	}
}

// SetParam implements graph.Processor.
func (g *Gain) SetParam(index int, value float64) {
	g.gain = value
}
