package graph

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"knaster.dev/graph/signal"
)

// stubProc is a minimal processor for compiler tests.
type stubProc struct {
	ins, outs int
	params    []ParamInfo
}

func (s *stubProc) Describe() ProcessorInfo {
	return ProcessorInfo{Inputs: s.ins, Outputs: s.outs, Params: s.params}
}
func (s *stubProc) Process(ctx *BlockCtx, in, out signal.Float64) {}
func (s *stubProc) ProcessFrame(ctx *FrameCtx, in, out []float64) {}
func (s *stubProc) SetParam(index int, value float64)             {}

func addStub(t *testing.T, topo *topology, ins, outs int, params ...ParamInfo) NodeID {
	t.Helper()
	id, err := topo.add(newNode(NodeID{}, &stubProc{ins: ins, outs: outs, params: params}))
	require.NoError(t, err)
	return id
}

func testConfig() compileConfig {
	return compileConfig{blockSize: 8, numOutputs: 1}
}

func TestTopologyGenerations(t *testing.T) {
	topo := newTopology(1, 2)

	a := addStub(t, &topo, 0, 1)
	b := addStub(t, &topo, 1, 1)

	_, err := topo.add(newNode(NodeID{}, &stubProc{outs: 1}))
	assert.True(t, errors.Is(err, ErrCapacity))

	require.NoError(t, topo.remove(a))
	_, err = topo.resolve(a)
	assert.True(t, errors.Is(err, ErrUnknownNode))

	// slot is reused with a bumped generation, stale id stays dead
	c := addStub(t, &topo, 0, 1)
	assert.Equal(t, a.idx, c.idx)
	assert.NotEqual(t, a.gen, c.gen)
	_, err = topo.resolve(a)
	assert.True(t, errors.Is(err, ErrUnknownNode))
	_, err = topo.resolve(c)
	assert.NoError(t, err)
	_, err = topo.resolve(b)
	assert.NoError(t, err)
}

func TestTopologyRemoveCascades(t *testing.T) {
	topo := newTopology(1, 0)
	src := addStub(t, &topo, 0, 1)
	dst := addStub(t, &topo, 1, 1)
	require.NoError(t, topo.connect(src, 0, dst, 0, false))
	require.NoError(t, topo.connectOutput(dst, 0, 0))

	require.NoError(t, topo.remove(src))
	e, err := topo.resolve(dst)
	require.NoError(t, err)
	assert.Equal(t, srcNone, e.in[0].kind)

	require.NoError(t, topo.remove(dst))
	assert.Equal(t, srcNone, topo.outs[0].kind)
}

func TestTopologyConnectValidation(t *testing.T) {
	topo := newTopology(1, 0)
	src := addStub(t, &topo, 0, 1)
	dst := addStub(t, &topo, 1, 1)

	assert.True(t, errors.Is(topo.connect(src, 1, dst, 0, false), ErrChannelRange))
	assert.True(t, errors.Is(topo.connect(src, 0, dst, 1, false), ErrChannelRange))
	assert.True(t, errors.Is(topo.connect(NodeID{}, 0, dst, 0, false), ErrUnknownNode))

	require.NoError(t, topo.connect(src, 0, dst, 0, false))
	assert.True(t, errors.Is(topo.connect(src, 0, dst, 0, false), ErrChannelRange))
}

func TestSortTopologyDeterministic(t *testing.T) {
	topo := newTopology(1, 0)
	// diamond: a feeds b and c, both feed d
	a := addStub(t, &topo, 0, 1)
	b := addStub(t, &topo, 1, 1)
	c := addStub(t, &topo, 1, 1)
	d := addStub(t, &topo, 2, 1)
	require.NoError(t, topo.connect(a, 0, b, 0, false))
	require.NoError(t, topo.connect(a, 0, c, 0, false))
	require.NoError(t, topo.connect(b, 0, d, 0, false))
	require.NoError(t, topo.connect(c, 0, d, 1, false))

	order, err := sortTopology(&topo)
	require.NoError(t, err)
	assert.Equal(t, []NodeID{a, b, c, d}, order)

	again, err := sortTopology(&topo)
	require.NoError(t, err)
	assert.Equal(t, order, again)
}

func TestSortTopologyCycle(t *testing.T) {
	topo := newTopology(1, 0)
	a := addStub(t, &topo, 1, 1)
	b := addStub(t, &topo, 1, 1)
	require.NoError(t, topo.connect(a, 0, b, 0, false))
	require.NoError(t, topo.connect(b, 0, a, 0, false))

	_, err := sortTopology(&topo)
	assert.True(t, errors.Is(err, ErrCycle))
}

func TestSortTopologyFeedbackBreaksCycle(t *testing.T) {
	topo := newTopology(1, 0)
	a := addStub(t, &topo, 1, 1)
	b := addStub(t, &topo, 1, 1)
	require.NoError(t, topo.connect(a, 0, b, 0, false))
	require.NoError(t, topo.connect(b, 0, a, 0, true))

	order, err := sortTopology(&topo)
	require.NoError(t, err)
	assert.Equal(t, []NodeID{a, b}, order)
}

// checkPlanSound asserts structural soundness: every non-feedback
// consumer is scheduled after its producer, and no other task writes
// the shared slot between the two.
func checkPlanSound(t *testing.T, topo *topology, p *plan) {
	t.Helper()
	writers := make(map[int32][]int)
	for i := range p.tasks {
		for _, slot := range p.tasks[i].outSlots {
			writers[slot] = append(writers[slot], i)
		}
	}
	checkRead := func(reader int, src source, slot int32) {
		prod, ok := p.taskOf[src.node]
		require.True(t, ok)
		assert.Less(t, int(prod), reader, "producer after consumer")
		assert.Equal(t, p.slotOf[sourceRef{node: src.node, ch: src.ch}], slot)
		for _, w := range writers[slot] {
			assert.False(t, int(prod) < w && w < reader,
				"slot %d clobbered by task %d between %d and %d", slot, w, prod, reader)
		}
	}
	for i := range p.tasks {
		tk := &p.tasks[i]
		e, err := topo.resolve(tk.n.id)
		require.NoError(t, err)
		for ch := range e.in {
			src := e.in[ch]
			if src.kind != srcNode || src.feedback {
				continue
			}
			checkRead(i, src, tk.inSlots[ch])
		}
	}
}

func TestCompileReusesBuffers(t *testing.T) {
	topo := newTopology(1, 0)
	// chain of four single-channel nodes
	a := addStub(t, &topo, 0, 1)
	b := addStub(t, &topo, 1, 1)
	c := addStub(t, &topo, 1, 1)
	d := addStub(t, &topo, 1, 1)
	require.NoError(t, topo.connect(a, 0, b, 0, false))
	require.NoError(t, topo.connect(b, 0, c, 0, false))
	require.NoError(t, topo.connect(c, 0, d, 0, false))
	require.NoError(t, topo.connectOutput(d, 0, 0))

	p, err := compile(&topo, testConfig())
	require.NoError(t, err)
	checkPlanSound(t, &topo, p)
	// at most two channels are live at any point of the chain
	assert.LessOrEqual(t, p.slots, 2)
}

func TestCompileFanOutHoldsBuffer(t *testing.T) {
	topo := newTopology(2, 0)
	a := addStub(t, &topo, 0, 1)
	b := addStub(t, &topo, 1, 1)
	c := addStub(t, &topo, 1, 1)
	require.NoError(t, topo.connect(a, 0, b, 0, false))
	require.NoError(t, topo.connect(a, 0, c, 0, false))
	require.NoError(t, topo.connectOutput(b, 0, 0))
	require.NoError(t, topo.connectOutput(c, 0, 1))

	cfg := testConfig()
	cfg.numOutputs = 2
	p, err := compile(&topo, cfg)
	require.NoError(t, err)
	checkPlanSound(t, &topo, p)

	// a's output slot must survive until both consumers have run
	aSlot := p.slotOf[sourceRef{node: a, ch: 0}]
	bSlot := p.slotOf[sourceRef{node: b, ch: 0}]
	assert.NotEqual(t, aSlot, bSlot)
}

func TestCompileFeedbackPair(t *testing.T) {
	topo := newTopology(1, 0)
	a := addStub(t, &topo, 1, 1)
	b := addStub(t, &topo, 1, 1)
	require.NoError(t, topo.connect(a, 0, b, 0, false))
	require.NoError(t, topo.connect(b, 0, a, 0, true))
	require.NoError(t, topo.connectOutput(b, 0, 0))

	p, err := compile(&topo, testConfig())
	require.NoError(t, err)
	checkPlanSound(t, &topo, p)
	require.Len(t, p.feedback, 1)
	fb := p.feedback[0]
	assert.NotEqual(t, fb.read, fb.write)
	assert.Equal(t, sourceRef{node: b, ch: 0}, fb.ref)

	aTask := p.tasks[p.taskOf[a]]
	bTask := p.tasks[p.taskOf[b]]
	assert.Equal(t, fb.read, aTask.inSlots[0])
	assert.Equal(t, fb.write, bTask.outSlots[0])
}

func TestCompileBufferCap(t *testing.T) {
	topo := newTopology(1, 0)
	a := addStub(t, &topo, 0, 1)
	b := addStub(t, &topo, 1, 1)
	require.NoError(t, topo.connect(a, 0, b, 0, false))
	require.NoError(t, topo.connectOutput(b, 0, 0))

	cfg := testConfig()
	_, err := compile(&topo, cfg)
	require.NoError(t, err)

	cfg.bufferCap = 1
	_, err = compile(&topo, cfg)
	assert.True(t, errors.Is(err, ErrCapacity))
}

func TestCompileIdempotent(t *testing.T) {
	topo := newTopology(1, 0)
	a := addStub(t, &topo, 0, 1)
	b := addStub(t, &topo, 1, 1)
	require.NoError(t, topo.connect(a, 0, b, 0, false))
	require.NoError(t, topo.connectOutput(b, 0, 0))

	p1, err := compile(&topo, testConfig())
	require.NoError(t, err)
	p2, err := compile(&topo, testConfig())
	require.NoError(t, err)

	require.Len(t, p2.tasks, len(p1.tasks))
	for i := range p1.tasks {
		assert.Equal(t, p1.tasks[i].n.id, p2.tasks[i].n.id)
		assert.Equal(t, p1.tasks[i].inSlots, p2.tasks[i].inSlots)
		assert.Equal(t, p1.tasks[i].outSlots, p2.tasks[i].outSlots)
	}
	assert.Equal(t, p1.slots, p2.slots)
	assert.Equal(t, p1.outputs, p2.outputs)
}

func TestCompileParamBindingOrdersAndMarks(t *testing.T) {
	topo := newTopology(1, 0)
	mod := addStub(t, &topo, 0, 1)
	car := addStub(t, &topo, 0, 1, ParamInfo{Name: "freq", Kind: ParamFloat, Default: 440})
	require.NoError(t, topo.bindParamSource(car, 0, mod, 0))
	require.NoError(t, topo.connectOutput(car, 0, 0))

	p, err := compile(&topo, testConfig())
	require.NoError(t, err)
	require.Len(t, p.tasks, 2)
	assert.Equal(t, mod, p.tasks[0].n.id)
	carTask := p.tasks[p.taskOf[car]]
	assert.True(t, carTask.sampleBySample)
	require.Len(t, carTask.arFeeds, 1)
	assert.Equal(t, p.slotOf[sourceRef{node: mod, ch: 0}], carTask.arFeeds[0].slot)
}

func TestCompileGraphInputs(t *testing.T) {
	topo := newTopology(1, 0)
	thru := addStub(t, &topo, 1, 1)
	require.NoError(t, topo.connectInput(2, 1, thru, 0))
	require.NoError(t, topo.connectOutput(thru, 0, 0))

	cfg := testConfig()
	cfg.numInputs = 2
	p, err := compile(&topo, cfg)
	require.NoError(t, err)
	require.Len(t, p.inputs, 2)
	tk := p.tasks[p.taskOf[thru]]
	assert.Equal(t, p.inputs[1], tk.inSlots[0])
}
