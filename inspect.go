package graph

// SnapshotNode describes one live node.
type SnapshotNode struct {
	ID      NodeID
	Inputs  int
	Outputs int
	Params  []ParamInfo
}

// SnapshotEdge describes one signal edge between nodes.
type SnapshotEdge struct {
	Src      NodeID
	SrcCh    int
	Dst      NodeID
	DstCh    int
	Feedback bool
}

// SnapshotBinding describes one schedule-level audio-rate parameter
// binding.
type SnapshotBinding struct {
	Src   NodeID
	SrcCh int
	Dst   NodeID
	Param string
}

// SnapshotIO describes one graph input or output attachment.
type SnapshotIO struct {
	Ch     int
	Node   NodeID
	NodeCh int
}

// Snapshot is a control-side view of the current topology and the
// published schedule, for debugging and tooling.
type Snapshot struct {
	Epoch    uint64
	Buffers  int
	Order    []NodeID
	Nodes    []SnapshotNode
	Edges    []SnapshotEdge
	Bindings []SnapshotBinding
	Inputs   []SnapshotIO
	Outputs  []SnapshotIO
}

// Inspect returns a snapshot of the live topology and the schedule the
// engine is being handed. The snapshot is a copy and stays valid after
// further edits.
func (g *Graph) Inspect() Snapshot {
	g.mu.Lock()
	defer g.mu.Unlock()

	p := g.published.Load()
	s := Snapshot{
		Epoch:   p.epoch,
		Buffers: p.slots,
		Order:   make([]NodeID, 0, len(p.tasks)),
	}
	for i := range p.tasks {
		s.Order = append(s.Order, p.tasks[i].n.id)
	}

	for i := range g.topo.entries {
		e := &g.topo.entries[i]
		if !e.live {
			continue
		}
		id := NodeID{idx: uint32(i), gen: e.gen}
		s.Nodes = append(s.Nodes, SnapshotNode{
			ID:      id,
			Inputs:  e.n.info.Inputs,
			Outputs: e.n.info.Outputs,
			Params:  append([]ParamInfo(nil), e.n.info.Params...),
		})
		for ch := range e.in {
			src := e.in[ch]
			switch src.kind {
			case srcNode:
				s.Edges = append(s.Edges, SnapshotEdge{
					Src: src.node, SrcCh: src.ch,
					Dst: id, DstCh: ch,
					Feedback: src.feedback,
				})
			case srcInput:
				s.Inputs = append(s.Inputs, SnapshotIO{Ch: src.ch, Node: id, NodeCh: ch})
			}
		}
		for pi := range e.paramSrc {
			src := e.paramSrc[pi]
			if src.kind != srcNode {
				continue
			}
			s.Bindings = append(s.Bindings, SnapshotBinding{
				Src: src.node, SrcCh: src.ch,
				Dst: id, Param: e.n.info.Params[pi].Name,
			})
		}
	}
	for ch := range g.topo.outs {
		src := g.topo.outs[ch]
		if src.kind == srcNode {
			s.Outputs = append(s.Outputs, SnapshotIO{Ch: ch, Node: src.node, NodeCh: src.ch})
		}
	}
	return s
}
