package ugen

import (
	"knaster.dev/graph"
	"knaster.dev/graph/signal"
)

type envStage uint8

const (
	envIdle envStage = iota
	envAttack
	envRelease
	envDone
)

// Envelope shapes its input with a linear attack-release contour fired
// by a trigger parameter. A self-freeing envelope flags itself done
// when the release completes, asking the graph to remove its node.
type Envelope struct {
	attack   float64
	release  float64
	selfFree bool

	stage envStage
	level float64
	step  float64
}

// NewEnvelope returns an attack-release envelope with times in frames.
func NewEnvelope(attackFrames, releaseFrames float64) *Envelope {
	return &Envelope{attack: attackFrames, release: releaseFrames}
}

// NewSelfFreeEnvelope returns an envelope that requests node removal
// once its release has finished.
func NewSelfFreeEnvelope(attackFrames, releaseFrames float64) *Envelope {
	e := NewEnvelope(attackFrames, releaseFrames)
	e.selfFree = true
	return e
}

// Describe implements graph.Processor.
func (e *Envelope) Describe() graph.ProcessorInfo {
	return graph.ProcessorInfo{
		Inputs:  1,
		Outputs: 1,
		Params: []graph.ParamInfo{
			{Name: "attack", Kind: graph.ParamFloat, Default: e.attack, Min: 0},
			{Name: "release", Kind: graph.ParamFloat, Default: e.release, Min: 0},
			{Name: "trigger", Kind: graph.ParamTrigger},
		},
	}
}

func (e *Envelope) fire() {
	e.stage = envAttack
	if e.attack <= 0 {
		e.level = 1
		e.stage = envRelease
		e.step = e.releaseStep()
		return
	}
	e.step = 1 / e.attack
}

func (e *Envelope) releaseStep() float64 {
	if e.release <= 0 {
		return 1
	}
	return 1 / e.release
}

// advance moves the contour one frame on and reports completion.
func (e *Envelope) advance() (done bool) {
	switch e.stage {
	case envAttack:
		e.level += e.step
		if e.level >= 1 {
			e.level = 1
			e.stage = envRelease
			e.step = e.releaseStep()
		}
	case envRelease:
		e.level -= e.step
		if e.level <= 0 {
			e.level = 0
			e.stage = envDone
			return true
		}
	}
	return false
}

// Process implements graph.Processor.
func (e *Envelope) Process(ctx *graph.BlockCtx, in, out signal.Float64) {
	for i := 0; i < ctx.Frames(); i++ {
		out[0][i] = in[0][i] * e.level
		if e.advance() && e.selfFree {
			ctx.SetDone()
		}
	}
}

// ProcessFrame implements graph.Processor.
func (e *Envelope) ProcessFrame(ctx *graph.FrameCtx, in, out []float64) {
	out[0] = in[0] * e.level
	if e.advance() && e.selfFree {
		ctx.SetDone()
	}
}

// SetParam implements graph.Processor.
func (e *Envelope) SetParam(index int, value float64) {
	switch index {
	case 0:
		e.attack = value
	case 1:
		e.release = value
	case 2:
		if value != 0 {
			e.fire()
		}
	}
}
