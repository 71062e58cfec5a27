// Package signal provides an API to manipulate digital signals. It allows to:
//	- hold planar non-interleaved float64 buffers
//	- convert interleaved data to non-interleaved and back
//	- scale int samples of a given bit depth to float64 and back
package signal

import (
	"math"
	"time"
)

// AntiDenormal is a tiny offset nodes may add to recursive state to keep
// values out of the denormal range. Whether it is applied per frame or per
// block is up to the node.
const AntiDenormal = 1e-20

// Float64 is a non-interleaved float64 signal.
type Float64 [][]float64

// InterInt is an interleaved int signal.
type InterInt struct {
	Data        []int
	NumChannels int
	BitDepth
}

// BitDepth contains values required for int-to-float and backward conversion.
type BitDepth int

const (
	// BitDepth8 is 8 bit depth.
	BitDepth8 = BitDepth(8)
	// BitDepth16 is 16 bit depth.
	BitDepth16 = BitDepth(16)
	// BitDepth24 is 24 bit depth.
	BitDepth24 = BitDepth(24)
	// BitDepth32 is 32 bit depth.
	BitDepth32 = BitDepth(32)
)

// fullScale returns the largest positive sample value at this depth.
// Conversions in both directions scale by this value, so a full-scale
// float maps to +fullScale and back without drift.
func (bitDepth BitDepth) fullScale() int {
	switch bitDepth {
	case BitDepth8:
		return math.MaxInt8
	case BitDepth16:
		return math.MaxInt16
	case BitDepth24:
		return 1<<23 - 1
	case BitDepth32:
		return math.MaxInt32
	default:
		return 1
	}
}

// DurationOf returns time duration of passed samples for this sample rate.
func DurationOf(sampleRate int, samples int64) time.Duration {
	return time.Duration(float64(samples) / float64(sampleRate) * float64(time.Second))
}

// EmptyFloat64 returns an empty buffer of specified dimensions.
func EmptyFloat64(numChannels int, bufferSize int) Float64 {
	result := make([][]float64, numChannels)
	for i := range result {
		result[i] = make([]float64, bufferSize)
	}
	return result
}

// NumChannels returns number of channels in this sample slice.
func (floats Float64) NumChannels() int {
	return len(floats)
}

// Size returns number of samples per channel in this sample slice.
func (floats Float64) Size() int {
	if floats.NumChannels() == 0 {
		return 0
	}
	return len(floats[0])
}

// Append buffers set to existing one.
// New buffer is returned if floats is nil.
func (floats Float64) Append(source Float64) Float64 {
	if floats == nil {
		floats = make([][]float64, source.NumChannels())
		for i := range floats {
			floats[i] = make([]float64, 0, source.Size())
		}
	}
	for i := range source {
		floats[i] = append(floats[i], source[i]...)
	}
	return floats
}

// Slice returns a view of the buffer from start of the defined length.
// The underlying arrays are shared, not copied. If the buffer doesn't
// have enough samples, a shorter view is returned. If start is out of
// range, nil is returned.
func (floats Float64) Slice(start, length int) Float64 {
	if floats == nil || start < 0 || start >= floats.Size() {
		return nil
	}
	end := start + length
	if end > floats.Size() {
		end = floats.Size()
	}
	result := make([][]float64, floats.NumChannels())
	for i := range floats {
		result[i] = floats[i][start:end]
	}
	return result
}

// Clear zeroes all samples in the buffer.
func (floats Float64) Clear() {
	for i := range floats {
		clear(floats[i])
	}
}

// AsFloat64 deinterleaves the int signal into a planar float64 buffer.
// Samples are scaled down by the full-scale value of the bit depth.
func (ints InterInt) AsFloat64() Float64 {
	if len(ints.Data) == 0 || ints.NumChannels == 0 {
		return nil
	}
	frames := (len(ints.Data) + ints.NumChannels - 1) / ints.NumChannels
	floats := EmptyFloat64(ints.NumChannels, frames)
	inv := 1 / float64(ints.BitDepth.fullScale())
	for i, v := range ints.Data {
		floats[i%ints.NumChannels][i/ints.NumChannels] = float64(v) * inv
	}
	return floats
}

// AsInterInt interleaves the buffer into an int signal at the given bit
// depth. Samples are rounded, scaled symmetrically by the full-scale
// value and hard clipped, so +1.0 and -1.0 map to +fullScale and
// -fullScale and overshoot never wraps.
func (floats Float64) AsInterInt(bitDepth BitDepth) []int {
	numChannels := floats.NumChannels()
	if numChannels == 0 {
		return nil
	}
	limit := bitDepth.fullScale()
	ints := make([]int, floats.Size()*numChannels)
	for ch := range floats {
		for i, f := range floats[ch] {
			v := int(math.Round(f * float64(limit)))
			if v > limit {
				v = limit
			} else if v < -limit {
				v = -limit
			}
			ints[i*numChannels+ch] = v
		}
	}
	return ints
}
