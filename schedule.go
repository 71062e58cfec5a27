package graph

import "fmt"

// compileConfig carries the fixed graph attributes the compiler needs.
type compileConfig struct {
	blockSize  int
	numInputs  int
	numOutputs int
	bufferCap  int
}

// taskSpec is the pre-arena shape of a task: slots assigned, views not
// yet materialized.
type taskSpec struct {
	n              *node
	inSlots        []int32
	outSlots       []int32
	arFeeds        []arFeed
	sampleBySample bool
}

// compile converts a validated topology snapshot into a plan. It runs a
// deterministic topological sort over non-feedback edges, computes live
// ranges for every produced channel and assigns buffer slots greedily,
// reusing a slot as soon as its last consumer has been scheduled.
// Channels with outgoing feedback edges get persistent slot pairs that
// are excluded from reuse. The previous plan is never touched.
func compile(t *topology, cfg compileConfig) (*plan, error) {
	order, err := sortTopology(t)
	if err != nil {
		return nil, err
	}

	// consumer counts per produced channel; graph outputs consume at
	// position N and never release.
	consumers := make(map[sourceRef]int)
	feedbackRefs := make(map[sourceRef]bool)
	for i := range t.entries {
		e := &t.entries[i]
		if !e.live {
			continue
		}
		for ch := range e.in {
			s := e.in[ch]
			if s.kind != srcNode {
				continue
			}
			ref := sourceRef{node: s.node, ch: s.ch}
			consumers[ref]++
			if s.feedback {
				feedbackRefs[ref] = true
			}
		}
		for p := range e.paramSrc {
			s := e.paramSrc[p]
			if s.kind == srcNode {
				consumers[sourceRef{node: s.node, ch: s.ch}]++
			}
		}
	}
	for ch := range t.outs {
		s := t.outs[ch]
		if s.kind == srcNode {
			consumers[sourceRef{node: s.node, ch: s.ch}]++
		}
	}

	var (
		next       int32
		freeList   []int32
		remaining  = make(map[int32]int)
		persistent = make(map[int32]bool)
		slotOf     = make(map[sourceRef]int32)
		pairs      []feedbackPair
		pairOf     = make(map[sourceRef]int)
	)
	alloc := func() int32 {
		if n := len(freeList); n > 0 {
			s := freeList[n-1]
			freeList = freeList[:n-1]
			return s
		}
		s := next
		next++
		return s
	}
	allocPair := func(ref sourceRef) feedbackPair {
		if i, ok := pairOf[ref]; ok {
			return pairs[i]
		}
		fb := feedbackPair{ref: ref, read: alloc(), write: alloc()}
		persistent[fb.read] = true
		persistent[fb.write] = true
		pairOf[ref] = len(pairs)
		pairs = append(pairs, fb)
		return fb
	}
	release := func(slot int32) {
		if slot < 0 || persistent[slot] {
			return
		}
		remaining[slot]--
		if remaining[slot] <= 0 {
			freeList = append(freeList, slot)
		}
	}

	inputSlots := make([]int32, cfg.numInputs)
	for ch := range inputSlots {
		inputSlots[ch] = alloc()
		persistent[inputSlots[ch]] = true
	}

	specs := make([]taskSpec, 0, len(order))
	for _, id := range order {
		e := &t.entries[id.idx]
		spec := taskSpec{
			n:        e.n,
			inSlots:  make([]int32, e.n.info.Inputs),
			outSlots: make([]int32, e.n.info.Outputs),
		}
		for ch := range e.in {
			s := e.in[ch]
			switch {
			case s.kind == srcNone:
				spec.inSlots[ch] = -1
			case s.kind == srcInput:
				spec.inSlots[ch] = inputSlots[s.ch]
			case s.feedback:
				spec.inSlots[ch] = allocPair(sourceRef{node: s.node, ch: s.ch}).read
			default:
				spec.inSlots[ch] = slotOf[sourceRef{node: s.node, ch: s.ch}]
			}
		}
		for ch := 0; ch < e.n.info.Outputs; ch++ {
			ref := sourceRef{node: id, ch: ch}
			if feedbackRefs[ref] {
				spec.outSlots[ch] = allocPair(ref).write
			} else {
				s := alloc()
				remaining[s] = consumers[ref]
				spec.outSlots[ch] = s
			}
			slotOf[ref] = spec.outSlots[ch]
		}
		for p := range e.paramSrc {
			s := e.paramSrc[p]
			if s.kind != srcNode {
				continue
			}
			spec.arFeeds = append(spec.arFeeds, arFeed{
				param: p,
				slot:  slotOf[sourceRef{node: s.node, ch: s.ch}],
			})
			spec.sampleBySample = true
		}
		// this node is scheduled: its inputs and bound sources are
		// consumed, unread outputs die immediately
		for ch := range e.in {
			s := e.in[ch]
			if s.kind == srcNode && !s.feedback {
				release(slotOf[sourceRef{node: s.node, ch: s.ch}])
			}
		}
		for p := range e.paramSrc {
			s := e.paramSrc[p]
			if s.kind == srcNode {
				release(slotOf[sourceRef{node: s.node, ch: s.ch}])
			}
		}
		for ch := 0; ch < e.n.info.Outputs; ch++ {
			ref := sourceRef{node: id, ch: ch}
			if !feedbackRefs[ref] && consumers[ref] == 0 {
				freeList = append(freeList, spec.outSlots[ch])
			}
		}
		specs = append(specs, spec)
	}

	if cfg.bufferCap > 0 && int(next) > cfg.bufferCap {
		return nil, fmt.Errorf("%w: %d buffers, cap %d", ErrCapacity, next, cfg.bufferCap)
	}

	p := &plan{
		blockSize: cfg.blockSize,
		slots:     int(next),
		arena:     make([]float64, int(next)*cfg.blockSize),
		silence:   make([]float64, cfg.blockSize),
		tasks:     make([]task, len(specs)),
		taskOf:    make(map[NodeID]int32, len(specs)),
		slotOf:    slotOf,
		inputs:    inputSlots,
		outputs:   make([]int32, cfg.numOutputs),
		feedback:  pairs,
	}
	for i := range specs {
		spec := &specs[i]
		tk := &p.tasks[i]
		tk.n = spec.n
		tk.inSlots = spec.inSlots
		tk.outSlots = spec.outSlots
		tk.arFeeds = spec.arFeeds
		tk.sampleBySample = spec.sampleBySample
		tk.in = make([][]float64, len(spec.inSlots))
		tk.inView = make([][]float64, len(spec.inSlots))
		for ch, slot := range spec.inSlots {
			tk.in[ch] = p.slice(slot)
			tk.inView[ch] = tk.in[ch]
		}
		tk.out = make([][]float64, len(spec.outSlots))
		tk.outView = make([][]float64, len(spec.outSlots))
		for ch, slot := range spec.outSlots {
			tk.out[ch] = p.slice(slot)
			tk.outView[ch] = tk.out[ch]
		}
		tk.frameIn = make([]float64, len(spec.inSlots))
		tk.frameOut = make([]float64, len(spec.outSlots))
		tk.boundFeeds = make([]arFeed, 0, len(spec.n.params))
		p.taskOf[spec.n.id] = int32(i)
	}
	for ch := range t.outs {
		s := t.outs[ch]
		if s.kind == srcNode {
			p.outputs[ch] = slotOf[sourceRef{node: s.node, ch: s.ch}]
		} else {
			p.outputs[ch] = -1
		}
	}
	return p, nil
}

// sortTopology orders live nodes by non-feedback edges, breaking ties by
// ascending node id so equal topologies compile to equal schedules.
func sortTopology(t *topology) ([]NodeID, error) {
	indegree := make([]int, len(t.entries))
	for i := range t.entries {
		e := &t.entries[i]
		if !e.live {
			continue
		}
		for ch := range e.in {
			s := e.in[ch]
			if s.kind == srcNode && !s.feedback {
				indegree[i]++
			}
		}
		for p := range e.paramSrc {
			if e.paramSrc[p].kind == srcNode {
				indegree[i]++
			}
		}
	}
	live := t.liveCount()
	order := make([]NodeID, 0, live)
	scheduled := make([]bool, len(t.entries))
	for len(order) < live {
		picked := -1
		for i := range t.entries {
			if t.entries[i].live && !scheduled[i] && indegree[i] == 0 {
				picked = i
				break
			}
		}
		if picked < 0 {
			if id, found := t.findCycle(); found {
				return nil, fmt.Errorf("%w: at %v", ErrCycle, id)
			}
			return nil, ErrCycle
		}
		scheduled[picked] = true
		id := NodeID{idx: uint32(picked), gen: t.entries[picked].gen}
		order = append(order, id)
		// unlock consumers of the picked node
		for i := range t.entries {
			e := &t.entries[i]
			if !e.live || scheduled[i] {
				continue
			}
			for ch := range e.in {
				s := e.in[ch]
				if s.kind == srcNode && !s.feedback && s.node == id {
					indegree[i]--
				}
			}
			for p := range e.paramSrc {
				s := e.paramSrc[p]
				if s.kind == srcNode && s.node == id {
					indegree[i]--
				}
			}
		}
	}
	return order, nil
}
