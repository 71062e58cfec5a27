package ugen

import (
	"knaster.dev/graph"
	"knaster.dev/graph/signal"
)

// Noise is a white noise source backed by a xorshift generator, so the
// processing path never touches a locked random source.
type Noise struct {
	amp   float64
	state uint64
}

// NewNoise returns a noise source seeded deterministically.
func NewNoise(seed uint64) *Noise {
	if seed == 0 {
		seed = 0x9e3779b97f4a7c15
	}
	return &Noise{amp: 1, state: seed}
}

// Describe implements graph.Processor.
func (n *Noise) Describe() graph.ProcessorInfo {
	return graph.ProcessorInfo{
		Outputs: 1,
		Params: []graph.ParamInfo{
			{Name: "amp", Kind: graph.ParamFloat, Default: n.amp, Min: 0, Max: 1},
		},
	}
}

func (n *Noise) next() float64 {
	n.state ^= n.state << 13
	n.state ^= n.state >> 7
	n.state ^= n.state << 17
	// top 53 bits into [-1, 1)
	return n.amp * (float64(n.state>>11)/float64(1<<52) - 1)
}

// Process implements graph.Processor.
func (n *Noise) Process(ctx *graph.BlockCtx, in, out signal.Float64) {
	for i := 0; i < ctx.Frames(); i++ {
		out[0][i] = n.next()
	}
}

// ProcessFrame implements graph.Processor.
func (n *Noise) ProcessFrame(ctx *graph.FrameCtx, in, out []float64) {
	out[0] = n.next()
}

// SetParam implements graph.Processor.
func (n *Noise) SetParam(index int, value float64) {
	n.amp = value
}
