// Package portaudio plays graph output through the default audio
// device.
package portaudio

import (
	"context"

	"github.com/gordonklaus/portaudio"

	"knaster.dev/graph"
	"knaster.dev/graph/signal"
)

// Sink plays a graph through portaudio using blocking writes. The
// graph stays fully editable while playing: edits and parameter
// changes reach the engine between device buffers.
type Sink struct {
	bufferSize int

	buf    []float32
	out    signal.Float64
	stream *portaudio.Stream
}

// NewSink returns a sink pulling device buffers of the given size.
func NewSink(bufferSize int) *Sink {
	return &Sink{bufferSize: bufferSize}
}

// Play opens the default output stream and renders the graph until the
// context is cancelled.
func (s *Sink) Play(ctx context.Context, g *graph.Graph) error {
	numChannels := g.NumOutputs()
	s.buf = make([]float32, s.bufferSize*numChannels)
	s.out = signal.EmptyFloat64(numChannels, s.bufferSize)

	if err := portaudio.Initialize(); err != nil {
		return err
	}
	stream, err := portaudio.OpenDefaultStream(0, numChannels, float64(g.SampleRate()), s.bufferSize, &s.buf)
	if err != nil {
		_ = portaudio.Terminate()
		return err
	}
	s.stream = stream
	if err = stream.Start(); err != nil {
		_ = stream.Close()
		_ = portaudio.Terminate()
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return s.flush(ctx.Err())
		default:
		}
		g.Runner().Process(nil, s.out, s.bufferSize)
		for i := 0; i < s.bufferSize; i++ {
			for ch := 0; ch < numChannels; ch++ {
				s.buf[i*numChannels+ch] = float32(s.out[ch][i])
			}
		}
		if err := s.stream.Write(); err != nil {
			return s.flush(err)
		}
	}
}

// flush tears portaudio structures down and keeps the first error.
func (s *Sink) flush(err error) error {
	if stopErr := s.stream.Stop(); err == nil {
		err = stopErr
	}
	if closeErr := s.stream.Close(); err == nil {
		err = closeErr
	}
	if termErr := portaudio.Terminate(); err == nil {
		err = termErr
	}
	if err == context.Canceled {
		return nil
	}
	return err
}
