package graph

import "knaster.dev/graph/signal"

// subGraph hosts a whole graph as a processor inside a parent graph.
// The inner engine keeps its own schedule, parameter ring and swap
// protocol; the parent just drives its Process from the audio thread.
type subGraph struct {
	g *Graph

	// single-frame channel views for frame-wise hosting
	frameIn  signal.Float64
	frameOut signal.Float64
}

// Node returns a processor that renders this graph, for embedding into
// a parent graph. Edits and parameter changes keep going through the
// inner graph's own control API.
func (g *Graph) Node() Processor {
	s := &subGraph{
		g:        g,
		frameIn:  signal.EmptyFloat64(g.numInputs, 1),
		frameOut: signal.EmptyFloat64(g.numOutputs, 1),
	}
	return s
}

func (s *subGraph) Describe() ProcessorInfo {
	return ProcessorInfo{
		Inputs:  s.g.numInputs,
		Outputs: s.g.numOutputs,
	}
}

func (s *subGraph) Process(ctx *BlockCtx, in, out signal.Float64) {
	s.g.runner.Process(in, out, ctx.Frames())
}

func (s *subGraph) ProcessFrame(ctx *FrameCtx, in, out []float64) {
	for ch := range s.frameIn {
		s.frameIn[ch][0] = in[ch]
	}
	s.g.runner.Process(s.frameIn, s.frameOut, 1)
	for ch := range s.frameOut {
		out[ch] = s.frameOut[ch][0]
	}
}

func (s *subGraph) SetParam(index int, value float64) {}
