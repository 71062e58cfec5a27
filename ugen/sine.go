package ugen

import (
	"math"

	"knaster.dev/graph"
	"knaster.dev/graph/signal"
)

// Sine is a sine oscillator with frequency and amplitude parameters.
// Frequency can be driven at audio rate for FM.
type Sine struct {
	freq  float64
	amp   float64
	phase float64
}

// NewSine returns a sine oscillator at the given frequency with unit
// amplitude.
func NewSine(freq float64) *Sine {
	return &Sine{freq: freq, amp: 1}
}

// Describe implements graph.Processor.
func (s *Sine) Describe() graph.ProcessorInfo {
	return graph.ProcessorInfo{
		Outputs: 1,
		Params: []graph.ParamInfo{
			{Name: "freq", Kind: graph.ParamFloat, Default: s.freq, Min: 0, Max: 20000},
			{Name: "amp", Kind: graph.ParamFloat, Default: s.amp, Min: 0, Max: 1},
		},
	}
}

func (s *Sine) step(sampleRate int) float64 {
	v := s.amp * math.Sin(s.phase)
	s.phase += twoPi * s.freq / float64(sampleRate)
	if s.phase >= twoPi {
		s.phase -= twoPi
	}
	return v
}

// Process implements graph.Processor.
func (s *Sine) Process(ctx *graph.BlockCtx, in, out signal.Float64) {
	for i := 0; i < ctx.Frames(); i++ {
		out[0][i] = s.step(ctx.SampleRate())
	}
}

// ProcessFrame implements graph.Processor.
func (s *Sine) ProcessFrame(ctx *graph.FrameCtx, in, out []float64) {
	out[0] = s.step(ctx.SampleRate())
}

// SetParam implements graph.Processor.
func (s *Sine) SetParam(index int, value float64) {
	switch index {
	case 0:
		s.freq = value
	case 1:
		s.amp = value
	}
}
