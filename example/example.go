// Package example holds runnable graph recipes.
package example

import (
	"context"
	"time"

	"knaster.dev/graph"
	"knaster.dev/graph/portaudio"
	"knaster.dev/graph/signal"
	"knaster.dev/graph/ugen"
	"knaster.dev/graph/wav"
)

// RenderTone renders a fading sine into a wav file.
//
//	Build graph: sine -> gain -> output
//	Ramp the gain down across the render
//	Encode 16 bit stereo wav
func RenderTone(path string, seconds float64) error {
	g, err := graph.New(graph.WithName("tone"))
	if err != nil {
		return err
	}
	defer g.Close()

	var gain graph.NodeHandle
	err = g.Edit(func(e *graph.Edit) error {
		osc := e.Add(ugen.NewSine(220))
		gain = e.Add(ugen.NewGain(1))
		e.Connect(osc, 0, gain, 0)
		e.ConnectOutput(gain, 0, 0)
		e.ConnectOutput(gain, 0, 1)
		return nil
	})
	if err != nil {
		return err
	}

	frames := int(seconds * float64(g.SampleRate()))
	if err = gain.Ramp("gain", 0, uint64(frames), graph.CurveLinear); err != nil {
		return err
	}

	sink, err := wav.NewSink(path, signal.BitDepth16)
	if err != nil {
		return err
	}
	return sink.Render(g, frames)
}

// RenderEcho renders a feedback echo excited by a self-freeing
// envelope over noise.
//
//	Build graph: noise -> envelope -> add <-> gain (feedback)
//	Trigger the envelope, let it free its node
//	Render the echo tail
func RenderEcho(path string, seconds float64) error {
	g, err := graph.New(graph.WithName("echo"), graph.WithBlockSize(4096), graph.WithIO(0, 1))
	if err != nil {
		return err
	}
	defer g.Close()

	var env, fb graph.NodeHandle
	err = g.Edit(func(e *graph.Edit) error {
		src := e.Add(ugen.NewNoise(1))
		env = e.Add(ugen.NewSelfFreeEnvelope(64, 8192))
		sum := e.Add(ugen.NewAdd(2))
		fb = e.Add(ugen.NewGain(1))
		e.Connect(src, 0, env, 0)
		e.Connect(env, 0, sum, 0)
		e.Connect(sum, 0, fb, 0)
		e.ConnectFeedback(fb, 0, sum, 1)
		e.ConnectOutput(sum, 0, 0)
		return nil
	})
	if err != nil {
		return err
	}
	if err = fb.Set("gain", 0.6); err != nil {
		return err
	}
	if err = env.Trigger("trigger"); err != nil {
		return err
	}

	sink, err := wav.NewSink(path, signal.BitDepth16)
	if err != nil {
		return err
	}
	if err = sink.Render(g, int(seconds*float64(g.SampleRate()))); err != nil {
		return err
	}
	// the envelope has flagged itself done by now
	return g.ReapDone()
}

// PlayLive plays a sine and modulates its frequency while the graph is
// running.
//
//	Build graph: sine -> gain -> output
//	Play through the default device
//	Glide the frequency every half second
func PlayLive(seconds float64) error {
	g, err := graph.New(graph.WithName("live"))
	if err != nil {
		return err
	}
	defer g.Close()

	var osc graph.NodeHandle
	err = g.Edit(func(e *graph.Edit) error {
		osc = e.Add(ugen.NewSine(330))
		gain := e.Add(ugen.NewGain(1))
		e.Connect(osc, 0, gain, 0)
		e.ConnectOutput(gain, 0, 0)
		e.ConnectOutput(gain, 0, 1)
		return nil
	})
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(seconds*float64(time.Second)))
	defer cancel()

	go func() {
		freqs := []float64{330, 392, 440, 494}
		glide := uint64(g.SampleRate() / 10)
		for i := 0; ; i++ {
			select {
			case <-ctx.Done():
				return
			case <-time.After(500 * time.Millisecond):
			}
			_ = osc.Ramp("freq", freqs[i%len(freqs)], glide, graph.CurveLinear)
		}
	}()

	sink := portaudio.NewSink(512)
	if err := sink.Play(ctx, g); err != nil && err != context.DeadlineExceeded {
		return err
	}
	return nil
}
