package ugen

import (
	"knaster.dev/graph"
	"knaster.dev/graph/signal"
)

// Delay is a single-channel delay line with a runtime-variable time up
// to a fixed maximum. The line is allocated once at construction.
type Delay struct {
	line []float64
	pos  int
	time int
}

// NewDelay returns a delay line holding up to maxFrames frames,
// initially delaying by the full length.
func NewDelay(maxFrames int) *Delay {
	if maxFrames < 1 {
		maxFrames = 1
	}
	return &Delay{
		line: make([]float64, maxFrames),
		time: maxFrames,
	}
}

// Describe implements graph.Processor.
func (d *Delay) Describe() graph.ProcessorInfo {
	return graph.ProcessorInfo{
		Inputs:  1,
		Outputs: 1,
		Params: []graph.ParamInfo{
			{Name: "time", Kind: graph.ParamInt, Default: float64(d.time), Min: 1, Max: float64(len(d.line))},
		},
	}
}

func (d *Delay) step(x float64) float64 {
	read := d.pos - d.time
	if read < 0 {
		read += len(d.line)
	}
	v := d.line[read]
	// keep recursive patches out of denormal range
	d.line[d.pos] = x + signal.AntiDenormal
	d.pos++
	if d.pos == len(d.line) {
		d.pos = 0
	}
	return v
}

// Process implements graph.Processor.
func (d *Delay) Process(ctx *graph.BlockCtx, in, out signal.Float64) {
	for i := 0; i < ctx.Frames(); i++ {
		out[0][i] = d.step(in[0][i])
	}
}

// ProcessFrame implements graph.Processor.
func (d *Delay) ProcessFrame(ctx *graph.FrameCtx, in, out []float64) {
	out[0] = d.step(in[0])
}

// SetParam implements graph.Processor.
func (d *Delay) SetParam(index int, value float64) {
	t := int(value)
	if t < 1 {
		t = 1
	}
	if t > len(d.line) {
		t = len(d.line)
	}
	d.time = t
}
