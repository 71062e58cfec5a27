package graph

import (
	"sync/atomic"

	"knaster.dev/graph/internal/ring"
	"knaster.dev/graph/signal"
)

// Note is an engine anomaly report. Notes are produced on the audio
// thread without allocation and drained on the control thread.
type Note struct {
	Msg string
	N   int64
}

// Runner is the engine side of a graph. A single goroutine, usually an
// audio driver callback, owns Process. Process never allocates, locks
// or blocks after construction; Notes belongs to the control thread and
// allocates the slice it returns.
type Runner struct {
	g *Graph

	active  *plan
	adopted atomic.Uint64

	frame       uint64
	sharedFrame atomic.Uint64

	// pending holds normalized change records waiting for their frame.
	pending []change
	// due is per-task scratch, sorted by apply frame.
	due   []change
	notes *ring.SPSC[Note]

	bctx BlockCtx
	fctx FrameCtx
}

func newRunner(g *Graph) *Runner {
	return &Runner{
		g:       g,
		pending: make([]change, 0, g.ringCap),
		due:     make([]change, 0, g.ringCap),
		notes:   ring.NewSPSC[Note](g.ringCap),
	}
}

// adoptedEpoch returns the epoch of the last schedule the engine
// switched to.
func (r *Runner) adoptedEpoch() uint64 { return r.adopted.Load() }

// Frame returns the absolute frame count processed so far. Safe to call
// from the control thread to compute future apply times.
func (r *Runner) Frame() uint64 { return r.sharedFrame.Load() }

// Notes drains accumulated anomaly reports. Call from the control
// thread.
func (r *Runner) Notes() []Note {
	var out []Note
	for {
		n, ok := r.notes.Pop()
		if !ok {
			return out
		}
		out = append(out, n)
	}
}

func (r *Runner) note(msg string, n int64) {
	r.notes.Push(Note{Msg: msg, N: n})
}

// Process renders frames into out, consuming external input from in.
// Both hold one slice per channel; in may be nil for a graph without
// inputs. Calls longer than the block size are processed in block-sized
// chunks, so parameter timing never degrades with driver buffer length.
func (r *Runner) Process(in, out signal.Float64, frames int) {
	done := 0
	for done < frames {
		n := r.g.blockSize
		if rest := frames - done; rest < n {
			n = rest
		}
		r.processBlock(in, out, done, n)
		done += n
	}
}

func (r *Runner) processBlock(in, out signal.Float64, off, n int) {
	// adopt the latest published schedule at the block boundary
	if p := r.g.published.Load(); p != r.active {
		p.carryFeedback(r.active)
		r.active = p
		r.adopted.Store(p.epoch)
		r.g.counters.PlanSwaps.Add(1)
	}
	p := r.active

	for ch := range p.inputs {
		dst := p.slice(p.inputs[ch])
		if in != nil && ch < len(in) {
			copy(dst[:n], in[ch][off:off+n])
		} else {
			clearSlice(dst[:n])
		}
	}

	r.drainChanges()
	blockEnd := r.frame + uint64(n)

	for i := range p.tasks {
		r.runTask(p, &p.tasks[i], n)
	}

	for ch := range p.outputs {
		slot := p.outputs[ch]
		if slot < 0 {
			clearSlice(out[ch][off : off+n])
		} else {
			copy(out[ch][off:off+n], p.slice(slot)[:n])
		}
	}

	// feedback channels become readable one block late
	for i := range p.feedback {
		fb := &p.feedback[i]
		copy(p.slice(fb.read), p.slice(fb.write))
	}

	r.compactPending(p, blockEnd)
	r.frame = blockEnd
	r.sharedFrame.Store(r.frame)
	r.g.counters.Blocks.Add(1)
	r.g.counters.Frames.Add(int64(n))
}

// drainChanges moves ring records into the pending table, clamping past
// apply times to the current frame. Records that do not fit are dropped
// and reported.
func (r *Runner) drainChanges() {
	dropped := int64(0)
	for {
		c, ok := r.g.changes.Pop()
		if !ok {
			break
		}
		if c.applyAt < r.frame {
			c.applyAt = r.frame
		}
		if len(r.pending) == cap(r.pending) {
			dropped++
			continue
		}
		r.pending = append(r.pending, c)
	}
	if dropped > 0 {
		r.g.counters.DroppedChanges.Add(dropped)
		r.note("pending change table full, changes dropped", dropped)
	}
}

// compactPending keeps records still waiting for a future frame. Due
// records were either applied by their task or target a node absent
// from the schedule and vanish silently.
func (r *Runner) compactPending(p *plan, blockEnd uint64) {
	gone := int64(0)
	kept := r.pending[:0]
	for i := range r.pending {
		c := &r.pending[i]
		if c.applyAt >= blockEnd {
			kept = append(kept, *c)
			continue
		}
		if _, ok := p.taskOf[c.node]; !ok {
			gone++
		}
	}
	r.pending = kept
	if gone > 0 {
		r.g.counters.DroppedChanges.Add(gone)
		r.note("changes for removed nodes discarded", gone)
	}
}

// collectDue gathers pending records for one node due inside the block,
// ordered by apply frame. Insertion sort keeps it allocation free; the
// table is small.
func (r *Runner) collectDue(id NodeID, blockEnd uint64) {
	r.due = r.due[:0]
	for i := range r.pending {
		c := &r.pending[i]
		if c.node != id || c.applyAt >= blockEnd {
			continue
		}
		j := len(r.due)
		r.due = append(r.due, *c)
		for j > 0 && r.due[j-1].applyAt > r.due[j].applyAt {
			r.due[j-1], r.due[j] = r.due[j], r.due[j-1]
			j--
		}
	}
}

func (r *Runner) runTask(p *plan, tk *task, n int) {
	nd := tk.n
	if nd.freed.Load() {
		for ch := range tk.out {
			clearSlice(tk.out[ch][:n])
		}
		return
	}

	blockEnd := r.frame + uint64(n)
	r.collectDue(nd.id, blockEnd)

	// resolve runtime bindings against the active schedule
	tk.boundFeeds = tk.boundFeeds[:0]
	dueRamp := false
	for i := range r.due {
		if r.due[i].kind == changeRamp {
			dueRamp = true
		}
	}
	for i := range nd.params {
		st := &nd.params[i]
		ref, active := st.src, st.srcActive
		// bind and unbind records fall due on the first frame of a block,
		// so their outcome holds for the whole block
		for j := range r.due {
			c := &r.due[j]
			if int(c.param) != i {
				continue
			}
			switch c.kind {
			case changeBind:
				ref, active = sourceRef{node: c.src, ch: int(c.srcCh)}, true
			case changeUnbind:
				active = false
			}
		}
		if !active {
			continue
		}
		if slot, ok := p.slotOf[ref]; ok {
			tk.boundFeeds = append(tk.boundFeeds, arFeed{param: i, slot: slot})
		}
	}
	hasBinding := len(tk.boundFeeds) > 0 || len(tk.arFeeds) > 0

	if tk.sampleBySample || hasBinding || dueRamp || nd.rampingAny() {
		r.runFrames(p, tk, n)
	} else {
		r.runSlices(tk, n)
	}

	if nd.done.Load() && !nd.freed.Load() {
		for ch := range tk.out {
			clearSlice(tk.out[ch][:n])
		}
		nd.freed.Store(true)
		r.g.counters.SelfFreed.Add(1)
		if !r.g.doneIDs.Push(nd.id) {
			r.note("self-free ring full, node removal delayed", 1)
		}
	}
}

// runSlices renders the block in sub-slices split at due change frames,
// so every change takes effect at its exact offset while the processor
// still sees vectorized spans.
func (r *Runner) runSlices(tk *task, n int) {
	nd := tk.n
	r.bctx.sampleRate = r.g.sampleRate
	r.bctx.done = &nd.done

	next := 0
	start := 0
	for start < n {
		for next < len(r.due) && r.due[next].applyAt <= r.frame+uint64(start) {
			r.applyChange(nd, &r.due[next])
			next++
		}
		end := n
		if next < len(r.due) {
			if o := int(r.due[next].applyAt - r.frame); o < end {
				end = o
			}
		}
		for ch := range tk.in {
			tk.inView[ch] = tk.in[ch][start:end]
		}
		for ch := range tk.out {
			tk.outView[ch] = tk.out[ch][start:end]
		}
		r.bctx.frame = r.frame + uint64(start)
		r.bctx.frames = end - start
		nd.proc.Process(&r.bctx, tk.inView, tk.outView)
		start = end
	}
}

// runFrames renders the block one frame at a time: due changes land on
// their exact frame, ramps deliver their interpolated value every
// sample, and audio-rate feeds read the producer arena channel.
func (r *Runner) runFrames(p *plan, tk *task, n int) {
	nd := tk.n
	r.fctx.sampleRate = r.g.sampleRate
	r.fctx.done = &nd.done

	next := 0
	for f := 0; f < n; f++ {
		abs := r.frame + uint64(f)
		for next < len(r.due) && r.due[next].applyAt <= abs {
			r.applyChange(nd, &r.due[next])
			next++
		}
		for i := range nd.params {
			st := &nd.params[i]
			if !st.ramping {
				continue
			}
			if abs >= st.rampEnd {
				st.value = st.target
				st.ramping = false
			} else {
				x := float64(abs-st.rampStart) / float64(st.rampEnd-st.rampStart)
				st.value = st.rampFrom + (st.target-st.rampFrom)*st.curve.apply(x)
			}
			nd.proc.SetParam(i, st.value)
		}
		for i := range tk.arFeeds {
			fd := &tk.arFeeds[i]
			v := p.slice(fd.slot)[f]
			nd.params[fd.param].value = v
			nd.proc.SetParam(fd.param, v)
		}
		for i := range tk.boundFeeds {
			fd := &tk.boundFeeds[i]
			v := p.slice(fd.slot)[f]
			nd.params[fd.param].value = v
			nd.proc.SetParam(fd.param, v)
		}
		for ch := range tk.in {
			tk.frameIn[ch] = tk.in[ch][f]
		}
		r.fctx.frame = abs
		nd.proc.ProcessFrame(&r.fctx, tk.frameIn, tk.frameOut)
		for ch := range tk.out {
			tk.out[ch][f] = tk.frameOut[ch]
		}
	}
}

func (r *Runner) applyChange(nd *node, c *change) {
	idx := int(c.param)
	if idx >= len(nd.params) {
		return
	}
	st := &nd.params[idx]
	info := &nd.info.Params[idx]
	switch c.kind {
	case changeSet:
		st.value = clampParam(info, c.value)
		st.ramping = false
		nd.proc.SetParam(idx, st.value)
	case changeRamp:
		st.rampFrom = st.value
		st.target = clampParam(info, c.value)
		st.rampStart = c.applyAt
		st.rampEnd = c.applyAt + c.rampFrames
		st.curve = c.curve
		st.ramping = true
	case changeTrigger:
		nd.proc.SetParam(idx, 1)
	case changeBind:
		st.src = sourceRef{node: c.src, ch: int(c.srcCh)}
		st.srcActive = true
	case changeUnbind:
		st.srcActive = false
	}
}

func clearSlice(s []float64) {
	for i := range s {
		s[i] = 0
	}
}
