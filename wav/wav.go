// Package wav renders graph output into wav files.
package wav

import (
	"errors"
	"fmt"
	"os"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"

	"knaster.dev/graph"
	"knaster.dev/graph/signal"
)

// ErrUnsupportedBitDepth is returned for bit depths the encoder cannot
// write.
var ErrUnsupportedBitDepth = errors.New("only 8, 16, 24 and 32 bit depth is supported")

const wavFormatPCM = 1

// Sink renders a graph offline into a wav file. It drives the graph's
// engine directly, so rendering runs faster than real time.
type Sink struct {
	path     string
	bitDepth signal.BitDepth
}

// NewSink returns a sink writing to path at the given bit depth.
func NewSink(path string, bitDepth signal.BitDepth) (*Sink, error) {
	switch bitDepth {
	case signal.BitDepth8, signal.BitDepth16, signal.BitDepth24, signal.BitDepth32:
	default:
		return nil, ErrUnsupportedBitDepth
	}
	return &Sink{path: path, bitDepth: bitDepth}, nil
}

// Render processes the graph for the given number of frames and encodes
// the output. Parameter changes scheduled on the graph apply at their
// frame times exactly as they would live.
func (s *Sink) Render(g *graph.Graph, frames int) error {
	file, err := os.Create(s.path)
	if err != nil {
		return err
	}
	enc := wav.NewEncoder(file, g.SampleRate(), int(s.bitDepth), g.NumOutputs(), wavFormatPCM)

	bufferSize := g.BlockSize()
	buf := signal.EmptyFloat64(g.NumOutputs(), bufferSize)
	ib := &audio.IntBuffer{
		Format: &audio.Format{
			NumChannels: g.NumOutputs(),
			SampleRate:  g.SampleRate(),
		},
		SourceBitDepth: int(s.bitDepth),
	}

	for done := 0; done < frames; done += bufferSize {
		n := bufferSize
		if rest := frames - done; rest < n {
			n = rest
			buf = buf.Slice(0, n)
		}
		g.Runner().Process(nil, buf, n)
		ib.Data = buf.AsInterInt(s.bitDepth)
		if err := enc.Write(ib); err != nil {
			_ = file.Close()
			return fmt.Errorf("encoding %s: %w", s.path, err)
		}
	}

	if err := enc.Close(); err != nil {
		_ = file.Close()
		return err
	}
	return file.Close()
}
