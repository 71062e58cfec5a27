package graph

// arFeed routes one arena channel into a parameter, one sample per frame.
type arFeed struct {
	param int
	slot  int32
}

// task is one schedule entry: a node with its assigned buffer slots and
// precomputed block views. All slices are sized on the control thread,
// the engine only reslices them in place.
type task struct {
	n        *node
	inSlots  []int32 // -1 reads silence
	outSlots []int32

	// full-block channel views into the arena (or silence)
	in  [][]float64
	out [][]float64
	// per-slice scratch views, rewritten in place by the engine
	inView  [][]float64
	outView [][]float64
	// single-frame scratch for sample-by-sample processing
	frameIn  []float64
	frameOut []float64

	// sampleBySample is set when a compiled audio-rate binding forces
	// frame iteration for every block of this schedule.
	sampleBySample bool
	arFeeds        []arFeed
	// runtime-binding slot scratch, resolved once per block
	boundFeeds []arFeed
}

// feedbackPair holds the persistent slots of one feedback channel. The
// producer writes into write during the block, consumers read from read,
// and the engine copies write into read at the block boundary.
type feedbackPair struct {
	ref   sourceRef
	read  int32
	write int32
}

// plan is a compiled immutable schedule: ordered tasks plus the buffer
// arena they operate on. A plan is built on the control thread, then
// published and never mutated again.
type plan struct {
	epoch     uint64
	blockSize int
	slots     int

	arena   []float64
	silence []float64

	tasks  []task
	taskOf map[NodeID]int32
	slotOf map[sourceRef]int32

	// inputs holds the arena slot per graph input channel; the engine
	// copies external input into them before running tasks.
	inputs []int32
	// outputs holds the arena slot per graph output channel, -1 reads
	// silence.
	outputs []int32

	feedback []feedbackPair
}

// slice returns the channel buffer of a slot, or silence for -1.
func (p *plan) slice(slot int32) []float64 {
	if slot < 0 {
		return p.silence
	}
	start := int(slot) * p.blockSize
	return p.arena[start : start+p.blockSize]
}

// findFeedback locates the pair for a producer channel.
func (p *plan) findFeedback(ref sourceRef) (feedbackPair, bool) {
	for _, fb := range p.feedback {
		if fb.ref == ref {
			return fb, true
		}
	}
	return feedbackPair{}, false
}

// carryFeedback copies the previous-block contents of matching feedback
// channels from the old plan, so consumers observe no gap across a
// schedule swap. Runs on the audio thread during adoption.
func (p *plan) carryFeedback(old *plan) {
	if old == nil {
		return
	}
	for _, fb := range p.feedback {
		if prev, ok := old.findFeedback(fb.ref); ok {
			copy(p.slice(fb.read), old.slice(prev.read))
		}
	}
}
