package graph_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"knaster.dev/graph"
	"knaster.dev/graph/mock"
	"knaster.dev/graph/signal"
)

const blockSize = 64

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func newTestGraph(t *testing.T, options ...graph.Option) *graph.Graph {
	t.Helper()
	defaults := []graph.Option{
		graph.WithBlockSize(blockSize),
		graph.WithIO(0, 1),
	}
	g, err := graph.New(append(defaults, options...)...)
	require.NoError(t, err)
	t.Cleanup(g.Close)
	return g
}

func render(g *graph.Graph, frames int) signal.Float64 {
	out := signal.EmptyFloat64(g.NumOutputs(), frames)
	g.Runner().Process(nil, out, frames)
	return out
}

func source(value float64) *mock.Processor {
	m := mock.New()
	m.NumOutputs = 1
	m.Value = value
	return m
}

func TestNewDefaults(t *testing.T) {
	g, err := graph.New()
	require.NoError(t, err)
	defer g.Close()

	assert.NotEmpty(t, g.UID())
	assert.Equal(t, 48000, g.SampleRate())
	assert.Equal(t, 64, g.BlockSize())
	assert.Equal(t, 0, g.NumInputs())
	assert.Equal(t, 2, g.NumOutputs())
	assert.NotNil(t, g.Runner())
	assert.NotNil(t, g.Metrics())
}

func TestNewOptionErrors(t *testing.T) {
	tests := []struct {
		name   string
		option graph.Option
	}{
		{"sample rate", graph.WithSampleRate(0)},
		{"block size", graph.WithBlockSize(-1)},
		{"io", graph.WithIO(0, 0)},
		{"ring", graph.WithRingCapacity(0)},
		{"logger", graph.WithLogger(nil)},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			_, err := graph.New(test.option)
			assert.Error(t, err)
		})
	}
}

func TestEmptyGraphRendersSilence(t *testing.T) {
	g := newTestGraph(t)
	out := signal.EmptyFloat64(1, blockSize)
	for i := range out[0] {
		out[0][i] = 42
	}
	g.Runner().Process(nil, out, blockSize)
	for i := range out[0] {
		assert.Zero(t, out[0][i])
	}
}

func TestEditCommitIsAtomic(t *testing.T) {
	g := newTestGraph(t)

	var h graph.NodeHandle
	require.NoError(t, g.Edit(func(e *graph.Edit) error {
		h = e.Add(source(0.5))
		e.ConnectOutput(h, 0, 0)
		return nil
	}))

	out := render(g, blockSize)
	for i := range out[0] {
		assert.Equal(t, 0.5, out[0][i])
	}
}

func TestEditRejectedLeavesGraphUntouched(t *testing.T) {
	g := newTestGraph(t)
	require.NoError(t, g.Edit(func(e *graph.Edit) error {
		h := e.Add(source(0.25))
		e.ConnectOutput(h, 0, 0)
		return nil
	}))

	err := g.Edit(func(e *graph.Edit) error {
		a := e.Add(passThrough(1))
		b := e.Add(passThrough(1))
		e.Connect(a, 0, b, 0)
		e.Connect(b, 0, a, 0)
		return nil
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, graph.ErrEditRejected))

	// previous topology still renders
	out := render(g, blockSize)
	assert.Equal(t, 0.25, out[0][0])
	assert.Len(t, g.Inspect().Nodes, 1)
}

func TestEditScopeErrorRejects(t *testing.T) {
	g := newTestGraph(t)
	sentinel := errors.New("abort")
	err := g.Edit(func(e *graph.Edit) error {
		e.Add(source(1))
		return sentinel
	})
	assert.True(t, errors.Is(err, graph.ErrEditRejected))
	assert.Empty(t, g.Inspect().Nodes)
}

func TestEditOperationErrorsCollect(t *testing.T) {
	g := newTestGraph(t)
	err := g.Edit(func(e *graph.Edit) error {
		h := e.Add(source(1))
		e.ConnectOutput(h, 2, 0)
		e.ConnectOutput(h, 0, 5)
		return nil
	})
	assert.True(t, errors.Is(err, graph.ErrEditRejected))
}

func TestRemoveDetachesConsumers(t *testing.T) {
	g := newTestGraph(t)
	var src, thru graph.NodeHandle
	require.NoError(t, g.Edit(func(e *graph.Edit) error {
		src = e.Add(source(1))
		thru = e.Add(passThrough(1))
		e.Connect(src, 0, thru, 0)
		e.ConnectOutput(thru, 0, 0)
		return nil
	}))
	out := render(g, blockSize)
	assert.Equal(t, 1.0, out[0][0])

	require.NoError(t, g.Edit(func(e *graph.Edit) error {
		e.Remove(src)
		return nil
	}))
	out = render(g, blockSize)
	// detached input reads silence
	assert.Zero(t, out[0][0])
}

func TestNodeCapRejectsEdit(t *testing.T) {
	g := newTestGraph(t, graph.WithNodeCap(1))
	require.NoError(t, g.Edit(func(e *graph.Edit) error {
		e.Add(source(1))
		return nil
	}))
	err := g.Edit(func(e *graph.Edit) error {
		e.Add(source(1))
		return nil
	})
	assert.True(t, errors.Is(err, graph.ErrEditRejected))
}

func TestInspectSnapshot(t *testing.T) {
	g := newTestGraph(t)
	var src, thru graph.NodeHandle
	require.NoError(t, g.Edit(func(e *graph.Edit) error {
		src = e.Add(source(1))
		thru = e.Add(passThrough(1))
		e.Connect(src, 0, thru, 0)
		e.ConnectOutput(thru, 0, 0)
		return nil
	}))

	s := g.Inspect()
	assert.Len(t, s.Nodes, 2)
	require.Len(t, s.Edges, 1)
	assert.Equal(t, src.ID(), s.Edges[0].Src)
	assert.Equal(t, thru.ID(), s.Edges[0].Dst)
	assert.False(t, s.Edges[0].Feedback)
	require.Len(t, s.Outputs, 1)
	assert.Equal(t, thru.ID(), s.Outputs[0].Node)
	assert.Equal(t, []graph.NodeID{src.ID(), thru.ID()}, s.Order)
	assert.Positive(t, s.Epoch)
}

func TestMetricsCount(t *testing.T) {
	g := newTestGraph(t)
	require.NoError(t, g.Edit(func(e *graph.Edit) error {
		h := e.Add(source(1))
		e.ConnectOutput(h, 0, 0)
		return nil
	}))
	render(g, 4*blockSize)

	m := g.Metrics()
	assert.Equal(t, "4", m["Blocks"])
	assert.Equal(t, "256", m["Frames"])
	assert.NotEqual(t, "0", m["PlanSwaps"])
}

// passThrough returns a mock copying input channels to outputs.
func passThrough(channels int) *mock.Processor {
	m := mock.New()
	m.NumInputs = channels
	m.NumOutputs = channels
	m.PassThrough = true
	return m
}
