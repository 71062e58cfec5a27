package graph

import "fmt"

// Edit is a transactional editing scope. All operations record into a
// private clone of the topology; nothing becomes visible to the engine
// until the scope function returns without error and the new schedule
// compiles. A failed edit leaves the graph untouched.
type Edit struct {
	g     *Graph
	topo  topology
	added []NodeID
	errs  editErrors
}

// Edit runs fn inside an editing scope and atomically commits the
// result. On success the recompiled schedule is published to the engine
// in one step. If fn returns an error, any operation inside the scope
// failed, or the edited topology does not compile, the whole edit is
// rejected and the previous schedule stays active.
func (g *Graph) Edit(fn func(e *Edit) error) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	e := &Edit{g: g, topo: g.topo.clone()}
	e.reapDone()

	if err := fn(e); err != nil {
		e.errs = append(e.errs, err)
	}
	if err := e.errs.ret(); err != nil {
		g.logger.Debugf("%s: edit rejected: %v", g.name, err)
		return fmt.Errorf("%w: %v", ErrEditRejected, err)
	}

	p, err := compile(&e.topo, g.config())
	if err != nil {
		g.logger.Debugf("%s: edit rejected: %v", g.name, err)
		return fmt.Errorf("%w: %v", ErrEditRejected, err)
	}

	g.topo = e.topo
	g.publish(p)
	g.logger.Debugf("%s: published epoch %d, %d nodes, %d buffers", g.name, p.epoch, len(p.tasks), p.slots)
	return nil
}

// ReapDone removes nodes that have flagged themselves done since the
// last commit, without any other topology change.
func (g *Graph) ReapDone() error {
	return g.Edit(func(e *Edit) error { return nil })
}

// reapDone drains self-free tokens from the engine and removes the
// flagged nodes from the edit clone. Tokens for already removed nodes
// are ignored.
func (e *Edit) reapDone() {
	for {
		id, ok := e.g.doneIDs.Pop()
		if !ok {
			return
		}
		if err := e.topo.remove(id); err == nil {
			e.g.logger.Debugf("%s: reaped self-freed node %v", e.g.name, id)
		}
	}
}

func (e *Edit) fail(err error) {
	e.errs = append(e.errs, err)
}

// Add inserts a processor as a new node and returns its handle. The
// handle is usable for parameter changes as soon as the edit commits.
func (e *Edit) Add(p Processor) NodeHandle {
	n := newNode(NodeID{}, p)
	id, err := e.topo.add(n)
	if err != nil {
		e.fail(err)
		return NodeHandle{}
	}
	e.added = append(e.added, id)
	return NodeHandle{g: e.g, id: id, info: n.info}
}

// Remove deletes a node. All edges into and out of it are removed as
// well; detached input channels of downstream nodes read silence.
func (e *Edit) Remove(h NodeHandle) {
	if err := e.topo.remove(h.id); err != nil {
		e.fail(err)
	}
}

// Connect wires an output channel of src into an input channel of dst.
// The edge participates in ordering; a cycle over such edges rejects the
// edit.
func (e *Edit) Connect(src NodeHandle, srcCh int, dst NodeHandle, dstCh int) {
	if err := e.topo.connect(src.id, srcCh, dst.id, dstCh, false); err != nil {
		e.fail(err)
	}
}

// ConnectFeedback wires an output channel of src into an input channel
// of dst with one block of delay. Feedback edges close cycles legally:
// the consumer reads the producer's previous block.
func (e *Edit) ConnectFeedback(src NodeHandle, srcCh int, dst NodeHandle, dstCh int) {
	if err := e.topo.connect(src.id, srcCh, dst.id, dstCh, true); err != nil {
		e.fail(err)
	}
}

// ConnectInput wires a graph input channel into a node input channel.
func (e *Edit) ConnectInput(inCh int, dst NodeHandle, dstCh int) {
	if err := e.topo.connectInput(e.g.numInputs, inCh, dst.id, dstCh); err != nil {
		e.fail(err)
	}
}

// ConnectOutput wires a node output channel to a graph output channel.
func (e *Edit) ConnectOutput(src NodeHandle, srcCh, outCh int) {
	if err := e.topo.connectOutput(src.id, srcCh, outCh); err != nil {
		e.fail(err)
	}
}

// Disconnect clears the edge feeding a node input channel. The channel
// reads silence afterwards.
func (e *Edit) Disconnect(dst NodeHandle, dstCh int) {
	if err := e.topo.disconnect(dst.id, dstCh); err != nil {
		e.fail(err)
	}
}

// DisconnectOutput clears the edge feeding a graph output channel.
func (e *Edit) DisconnectOutput(outCh int) {
	if err := e.topo.disconnectOutput(outCh); err != nil {
		e.fail(err)
	}
}

// BindParam promotes a parameter of dst to an audio-rate input fed by an
// output channel of src. The binding is part of the compiled schedule:
// src is ordered before dst and dst processes sample by sample.
func (e *Edit) BindParam(dst NodeHandle, param string, src NodeHandle, srcCh int) {
	de, err := e.topo.resolve(dst.id)
	if err != nil {
		e.fail(err)
		return
	}
	idx, err := de.n.paramIndex(param)
	if err != nil {
		e.fail(err)
		return
	}
	if err := e.topo.bindParamSource(dst.id, idx, src.id, srcCh); err != nil {
		e.fail(err)
	}
}

// UnbindParam demotes a schedule-level audio-rate parameter binding back
// to control rate.
func (e *Edit) UnbindParam(dst NodeHandle, param string) {
	de, err := e.topo.resolve(dst.id)
	if err != nil {
		e.fail(err)
		return
	}
	idx, err := de.n.paramIndex(param)
	if err != nil {
		e.fail(err)
		return
	}
	if err := e.topo.unbindParamSource(dst.id, idx); err != nil {
		e.fail(err)
	}
}
