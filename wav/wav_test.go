package wav_test

import (
	"os"
	"path/filepath"
	"testing"

	gowav "github.com/go-audio/wav"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"knaster.dev/graph"
	"knaster.dev/graph/signal"
	"knaster.dev/graph/ugen"
	"knaster.dev/graph/wav"
)

func TestNewSinkRejectsBadBitDepth(t *testing.T) {
	_, err := wav.NewSink("out.wav", signal.BitDepth(12))
	assert.Equal(t, wav.ErrUnsupportedBitDepth, err)
}

func TestRenderWritesDecodableFile(t *testing.T) {
	g, err := graph.New(
		graph.WithSampleRate(44100),
		graph.WithBlockSize(64),
		graph.WithIO(0, 2),
	)
	require.NoError(t, err)
	defer g.Close()
	require.NoError(t, g.Edit(func(e *graph.Edit) error {
		src := e.Add(ugen.NewConst(0.5))
		e.ConnectOutput(src, 0, 0)
		e.ConnectOutput(src, 0, 1)
		return nil
	}))

	path := filepath.Join(t.TempDir(), "render.wav")
	sink, err := wav.NewSink(path, signal.BitDepth16)
	require.NoError(t, err)

	// 150 frames exercises the partial trailing buffer
	require.NoError(t, sink.Render(g, 150))

	file, err := os.Open(path)
	require.NoError(t, err)
	defer file.Close()

	decoder := gowav.NewDecoder(file)
	require.True(t, decoder.IsValidFile())
	buf, err := decoder.FullPCMBuffer()
	require.NoError(t, err)
	assert.Equal(t, 44100, int(decoder.SampleRate))
	assert.Equal(t, 2, int(decoder.NumChans))
	assert.Equal(t, 150, buf.NumFrames())
	assert.InDelta(t, 0.5, float64(buf.Data[0])/32767, 1e-3)
}
