package main

import (
	"errors"
	"flag"
	"fmt"

	"knaster.dev/graph"
	"knaster.dev/graph/signal"
	"knaster.dev/graph/ugen"
	"knaster.dev/graph/wav"
)

func init() {
	register("render", "render a demo graph into a wav file", func(fs *flag.FlagSet) func() error {
		out := fs.String("out", "", "output wav file (required)")
		dur := fs.Float64("dur", 2, "render duration in seconds")
		freq := fs.Float64("freq", 440, "oscillator frequency")
		return func() error {
			if *out == "" {
				return errors.New("out flag is required")
			}
			return render(*out, *dur, *freq)
		}
	})
}

func render(out string, seconds, freq float64) error {
	g, gain, err := demoGraph(freq)
	if err != nil {
		return err
	}
	defer g.Close()

	frames := int(seconds * float64(g.SampleRate()))
	// fade out over the last tenth of the render
	if err := gain.RampAt("gain", 0, uint64(frames/10), graph.CurveSquared, uint64(frames-frames/10)); err != nil {
		return err
	}

	sink, err := wav.NewSink(out, signal.BitDepth16)
	if err != nil {
		return err
	}
	if err := sink.Render(g, frames); err != nil {
		return err
	}
	fmt.Printf("Rendered %d frames to %s\n", frames, out)
	return nil
}

// demoGraph builds a stereo sine patch with a master gain.
func demoGraph(freq float64) (*graph.Graph, graph.NodeHandle, error) {
	g, err := graph.New(graph.WithName("demo"))
	if err != nil {
		return nil, graph.NodeHandle{}, err
	}
	var gain graph.NodeHandle
	err = g.Edit(func(e *graph.Edit) error {
		osc := e.Add(ugen.NewSine(freq))
		fifth := e.Add(ugen.NewSine(freq * 3 / 2))
		mix := e.Add(ugen.NewAdd(2))
		gain = e.Add(ugen.NewGain(1))
		e.Connect(osc, 0, mix, 0)
		e.Connect(fifth, 0, mix, 1)
		e.Connect(mix, 0, gain, 0)
		e.ConnectOutput(gain, 0, 0)
		e.ConnectOutput(gain, 0, 1)
		return nil
	})
	if err != nil {
		g.Close()
		return nil, graph.NodeHandle{}, err
	}
	if err := gain.Set("gain", 0.4); err != nil {
		g.Close()
		return nil, graph.NodeHandle{}, err
	}
	return g, gain, nil
}
