package graph

import "fmt"

// changeKind selects the operation a change record carries.
type changeKind uint8

const (
	changeSet changeKind = iota
	changeRamp
	changeTrigger
	changeBind
	changeUnbind
)

// change is one parameter pipeline record. Records are fixed size so the
// ring never allocates after construction.
type change struct {
	node       NodeID
	param      uint16
	kind       changeKind
	curve      Curve
	value      float64
	applyAt    uint64
	rampFrames uint64
	src        NodeID
	srcCh      uint16
}

// NodeHandle is the control-side reference to a node. Handles are cheap
// values and stay valid until the node is removed. Operations on a
// removed node are still accepted at submit time and silently dropped
// by the engine; only a zero handle fails with ErrUnknownNode.
type NodeHandle struct {
	g    *Graph
	id   NodeID
	info ProcessorInfo
}

// ID returns the node id.
func (h NodeHandle) ID() NodeID { return h.id }

// Info returns the structural description of the hosted processor.
func (h NodeHandle) Info() ProcessorInfo { return h.info }

// IsZero reports whether the handle references no node.
func (h NodeHandle) IsZero() bool { return h.g == nil || h.id.IsZero() }

func (h NodeHandle) paramIndex(name string) (int, error) {
	for i := range h.info.Params {
		if h.info.Params[i].Name == name {
			return i, nil
		}
	}
	return 0, fmt.Errorf("%w: %q on %v", ErrUnknownParam, name, h.id)
}

func (h NodeHandle) push(c change) error {
	if h.IsZero() {
		return fmt.Errorf("%w: zero handle", ErrUnknownNode)
	}
	if !h.g.changes.Push(c) {
		h.g.counters.DroppedChanges.Add(1)
		return fmt.Errorf("%w: change ring at capacity %d", ErrRingFull, h.g.changes.Cap())
	}
	h.g.counters.Changes.Add(1)
	return nil
}

// Set schedules an immediate parameter change, effective at the start of
// the next processed block.
func (h NodeHandle) Set(name string, value float64) error {
	return h.SetAt(name, value, 0)
}

// SetAt schedules a parameter change at an absolute frame time. A frame
// already in the past applies at the start of the next block.
func (h NodeHandle) SetAt(name string, value float64, frame uint64) error {
	idx, err := h.paramIndex(name)
	if err != nil {
		return err
	}
	return h.push(change{
		node:    h.id,
		param:   uint16(idx),
		kind:    changeSet,
		value:   value,
		applyAt: frame,
	})
}

// Ramp schedules a smooth transition from the current value to target
// over the given number of frames, starting at the next block.
func (h NodeHandle) Ramp(name string, target float64, frames uint64, curve Curve) error {
	return h.RampAt(name, target, frames, curve, 0)
}

// RampAt schedules a smooth transition starting at an absolute frame
// time. While the ramp is active the node processes sample by sample, so
// every frame observes its exact interpolated value.
func (h NodeHandle) RampAt(name string, target float64, frames uint64, curve Curve, frame uint64) error {
	idx, err := h.paramIndex(name)
	if err != nil {
		return err
	}
	if frames == 0 {
		return h.SetAt(name, target, frame)
	}
	return h.push(change{
		node:       h.id,
		param:      uint16(idx),
		kind:       changeRamp,
		value:      target,
		applyAt:    frame,
		rampFrames: frames,
		curve:      curve,
	})
}

// Trigger fires a momentary parameter. The engine delivers 1 to the
// processor at the effective frame.
func (h NodeHandle) Trigger(name string) error {
	return h.TriggerAt(name, 0)
}

// TriggerAt fires a momentary parameter at an absolute frame time.
func (h NodeHandle) TriggerAt(name string, frame uint64) error {
	idx, err := h.paramIndex(name)
	if err != nil {
		return err
	}
	return h.push(change{
		node:    h.id,
		param:   uint16(idx),
		kind:    changeTrigger,
		value:   1,
		applyAt: frame,
	})
}

// Bind attaches a node output channel as the audio-rate source of a
// parameter without recompiling. The source must already be part of the
// active schedule; binding takes effect at the next block and forces the
// node into sample-by-sample processing while active.
func (h NodeHandle) Bind(name string, src NodeHandle, srcCh int) error {
	idx, err := h.paramIndex(name)
	if err != nil {
		return err
	}
	if src.IsZero() {
		return fmt.Errorf("%w: bind source", ErrUnknownNode)
	}
	if srcCh < 0 || srcCh >= src.info.Outputs {
		return fmt.Errorf("%w: output %d of %v", ErrChannelRange, srcCh, src.id)
	}
	return h.push(change{
		node:  h.id,
		param: uint16(idx),
		kind:  changeBind,
		src:   src.id,
		srcCh: uint16(srcCh),
	})
}

// Unbind detaches a runtime audio-rate source from a parameter. The
// parameter keeps its last delivered value.
func (h NodeHandle) Unbind(name string) error {
	idx, err := h.paramIndex(name)
	if err != nil {
		return err
	}
	return h.push(change{
		node:  h.id,
		param: uint16(idx),
		kind:  changeUnbind,
	})
}

// clampParam bounds a value to the declared parameter range. Min equal
// to Max means unbounded.
func clampParam(info *ParamInfo, v float64) float64 {
	if info.Min == info.Max {
		return v
	}
	if v < info.Min {
		return info.Min
	}
	if v > info.Max {
		return info.Max
	}
	return v
}
