package main

import (
	"context"
	"flag"
	"fmt"
	"time"

	"knaster.dev/graph/portaudio"
)

func init() {
	register("play", "play a demo graph through the default audio device", func(fs *flag.FlagSet) func() error {
		dur := fs.Float64("dur", 5, "playback duration in seconds")
		freq := fs.Float64("freq", 440, "oscillator frequency")
		buffer := fs.Int("buffer", 512, "device buffer size in frames")
		return func() error {
			return play(*dur, *freq, *buffer)
		}
	})
}

func play(seconds, freq float64, buffer int) error {
	g, _, err := demoGraph(freq)
	if err != nil {
		return err
	}
	defer g.Close()

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(seconds*float64(time.Second)))
	defer cancel()

	fmt.Printf("Playing %.1fs at %.0f Hz\n", seconds, freq)
	sink := portaudio.NewSink(buffer)
	if err := sink.Play(ctx, g); err != nil && err != context.DeadlineExceeded {
		return err
	}
	return nil
}
