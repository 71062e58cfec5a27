package signal

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestInterIntAsFloat64(t *testing.T) {
	tests := []struct {
		ints     InterInt
		expected Float64
	}{
		{
			ints:     InterInt{Data: []int{0, 0}, NumChannels: 1, BitDepth: BitDepth16},
			expected: Float64{{0, 0}},
		},
		{
			ints:     InterInt{Data: []int{1, 2, 3, 4}, NumChannels: 2, BitDepth: BitDepth8},
			expected: Float64{{1.0 / 127, 3.0 / 127}, {2.0 / 127, 4.0 / 127}},
		},
	}
	for _, test := range tests {
		assert.Equal(t, test.expected, test.ints.AsFloat64())
	}
}

func TestFloat64AsInterInt(t *testing.T) {
	floats := Float64{{1, 0}, {0, -1}}
	ints := floats.AsInterInt(BitDepth16)
	assert.Equal(t, []int{32767, 0, 0, -32767}, ints)
}

func TestAsInterIntClipsOvershoot(t *testing.T) {
	floats := Float64{{1.5, -1.5, 0.5}}
	ints := floats.AsInterInt(BitDepth8)
	assert.Equal(t, []int{127, -127, 64}, ints)
}

func TestConversionRoundTrip(t *testing.T) {
	floats := Float64{{1, -1, 0.25}, {0, 0.5, -0.75}}
	back := InterInt{
		Data:        floats.AsInterInt(BitDepth16),
		NumChannels: 2,
		BitDepth:    BitDepth16,
	}.AsFloat64()
	for ch := range floats {
		for i := range floats[ch] {
			assert.InDelta(t, floats[ch][i], back[ch][i], 1.0/32767)
		}
	}
}

func TestSliceIsView(t *testing.T) {
	buf := EmptyFloat64(1, 8)
	view := buf.Slice(2, 4)
	assert.Equal(t, 4, view.Size())
	view[0][0] = 1
	assert.Equal(t, 1.0, buf[0][2])

	assert.Nil(t, buf.Slice(8, 1))
	assert.Equal(t, 2, buf.Slice(6, 4).Size())
}

func TestAppend(t *testing.T) {
	var buf Float64
	buf = buf.Append(Float64{{1, 2}})
	buf = buf.Append(Float64{{3}})
	assert.Equal(t, Float64{{1, 2, 3}}, buf)
}

func TestClear(t *testing.T) {
	buf := Float64{{1, 2}, {3, 4}}
	buf.Clear()
	assert.Equal(t, Float64{{0, 0}, {0, 0}}, buf)
}

func TestDurationOf(t *testing.T) {
	assert.Equal(t, time.Second, DurationOf(44100, 44100))
}
