package ring

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestPushPop(t *testing.T) {
	q := NewSPSC[int](4)
	assert.Equal(t, 4, q.Cap())
	assert.Equal(t, 0, q.Len())

	_, ok := q.Pop()
	assert.False(t, ok)

	for i := 0; i < 4; i++ {
		assert.True(t, q.Push(i))
	}
	assert.False(t, q.Push(4))
	assert.Equal(t, 4, q.Len())

	for i := 0; i < 4; i++ {
		v, ok := q.Pop()
		assert.True(t, ok)
		assert.Equal(t, i, v)
	}
	_, ok = q.Pop()
	assert.False(t, ok)
}

func TestCapacityRounding(t *testing.T) {
	tests := []struct {
		capacity int
		expected int
	}{
		{1, 2},
		{2, 2},
		{3, 4},
		{1000, 1024},
	}
	for _, test := range tests {
		assert.Equal(t, test.expected, NewSPSC[int](test.capacity).Cap())
	}
}

func TestWrapAround(t *testing.T) {
	q := NewSPSC[int](2)
	for i := 0; i < 100; i++ {
		assert.True(t, q.Push(i))
		v, ok := q.Pop()
		assert.True(t, ok)
		assert.Equal(t, i, v)
	}
}

func TestConcurrentProducerConsumer(t *testing.T) {
	const total = 100000
	q := NewSPSC[int](64)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < total; {
			if q.Push(i) {
				i++
			}
		}
	}()

	next := 0
	for next < total {
		if v, ok := q.Pop(); ok {
			if v != next {
				t.Fatalf("popped %d, expected %d", v, next)
			}
			next++
		}
	}
	wg.Wait()
}
