package ugen

import (
	"knaster.dev/graph"
	"knaster.dev/graph/signal"
)

// Const emits a constant value on a single output channel.
type Const struct {
	value float64
}

// NewConst returns a constant source with the given initial value.
func NewConst(value float64) *Const {
	return &Const{value: value}
}

// Describe implements graph.Processor.
func (c *Const) Describe() graph.ProcessorInfo {
	return graph.ProcessorInfo{
		Outputs: 1,
		Params: []graph.ParamInfo{
			{Name: "value", Kind: graph.ParamFloat, Default: c.value},
		},
	}
}

// Process implements graph.Processor.
func (c *Const) Process(ctx *graph.BlockCtx, in, out signal.Float64) {
	for i := 0; i < ctx.Frames(); i++ {
		out[0][i] = c.value
	}
}

// ProcessFrame implements graph.Processor.
func (c *Const) ProcessFrame(ctx *graph.FrameCtx, in, out []float64) {
	out[0] = c.value
}

// SetParam implements graph.Processor.
func (c *Const) SetParam(index int, value float64) {
	c.value = value
}
