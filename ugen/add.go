package ugen

import (
	"knaster.dev/graph"
	"knaster.dev/graph/signal"
)

// Add sums its input channels into a single output channel.
// Disconnected inputs read silence and contribute nothing.
type Add struct {
	inputs int
}

// NewAdd returns an adder over the given number of inputs.
func NewAdd(inputs int) *Add {
	return &Add{inputs: inputs}
}

// Describe implements graph.Processor.
func (a *Add) Describe() graph.ProcessorInfo {
	return graph.ProcessorInfo{
		Inputs:  a.inputs,
		Outputs: 1,
	}
}

// Process implements graph.Processor.
func (a *Add) Process(ctx *graph.BlockCtx, in, out signal.Float64) {
	for i := 0; i < ctx.Frames(); i++ {
		sum := 0.0
		for ch := 0; ch < a.inputs; ch++ {
			sum += in[ch][i]
		}
		out[0][i] = sum
	}
}

// ProcessFrame implements graph.Processor.
func (a *Add) ProcessFrame(ctx *graph.FrameCtx, in, out []float64) {
	sum := 0.0
	for ch := 0; ch < a.inputs; ch++ {
		sum += in[ch]
	}
	out[0] = sum
}

// SetParam implements graph.Processor.
func (a *Add) SetParam(index int, value float64) {}
