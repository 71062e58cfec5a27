// Package ugen provides built-in unit generators for audio graphs:
// sources, arithmetic, delays and envelopes. All processors are
// allocation free on the processing path.
package ugen

import "math"

const twoPi = 2 * math.Pi
