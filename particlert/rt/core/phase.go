package core

import (
	"errors"
	"fmt"
)

// PingPong holds two physical resources and the logical read/write roles over them.
// Swap only flips the roles; the resources themselves are never touched.
type PingPong[T comparable] struct {
	a, b    T
	flipped bool
	swaps   uint64
}

func NewPingPong[T comparable](first, second T) (*PingPong[T], error) {
	if first == second {
		return nil, errors.New("ping-pong halves must be distinct resources")
	}
	return &PingPong[T]{a: first, b: second}, nil
}

func (p *PingPong[T]) Read() T {
	if p.flipped {
		return p.b
	}
	return p.a
}

func (p *PingPong[T]) Write() T {
	if p.flipped {
		return p.a
	}
	return p.b
}

func (p *PingPong[T]) Swap() {
	p.flipped = !p.flipped
	p.swaps++
}

// Swaps is the number of role exchanges so far.
func (p *PingPong[T]) Swaps() uint64 { return p.swaps }

// FramePhase is where the per-frame update -> swap -> draw sequence currently stands.
type FramePhase int

const (
	PhaseIdle FramePhase = iota
	PhaseUpdated
	PhaseSwapped
	PhaseDrawn
)

func (p FramePhase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseUpdated:
		return "updated"
	case PhaseSwapped:
		return "swapped"
	case PhaseDrawn:
		return "drawn"
	}
	return fmt.Sprintf("FramePhase(%d)", int(p))
}

// FrameOp is an operation that moves the phase tracker.
type FrameOp int

const (
	OpUpdate FrameOp = iota
	OpSwap
	OpDraw
)

func (op FrameOp) String() string {
	switch op {
	case OpUpdate:
		return "update"
	case OpSwap:
		return "swap"
	case OpDraw:
		return "draw"
	}
	return fmt.Sprintf("FrameOp(%d)", int(op))
}

var ErrOutOfOrder = errors.New("frame operation out of order")

type PhaseError struct {
	Op    FrameOp
	Phase FramePhase
}

func (e *PhaseError) Error() string {
	return fmt.Sprintf("%v: %s not allowed in phase %s", ErrOutOfOrder, e.Op, e.Phase)
}

func (e *PhaseError) Unwrap() error { return ErrOutOfOrder }

// PhaseTracker enforces update -> swap -> draw once per frame.
// A draw may repeat within a frame; everything else must alternate.
type PhaseTracker struct {
	phase  FramePhase
	frames uint64
}

func (t *PhaseTracker) Phase() FramePhase { return t.phase }

// Frames counts completed update+swap cycles.
func (t *PhaseTracker) Frames() uint64 { return t.frames }

// Check reports whether op is legal now without advancing.
func (t *PhaseTracker) Check(op FrameOp) error {
	ok := false
	switch op {
	case OpUpdate:
		ok = t.phase == PhaseIdle || t.phase == PhaseDrawn
	case OpSwap:
		ok = t.phase == PhaseUpdated
	case OpDraw:
		ok = t.phase == PhaseSwapped || t.phase == PhaseDrawn
	}
	if !ok {
		return &PhaseError{Op: op, Phase: t.phase}
	}
	return nil
}

// Advance validates op and moves to the next phase.
func (t *PhaseTracker) Advance(op FrameOp) error {
	if err := t.Check(op); err != nil {
		return err
	}
	switch op {
	case OpUpdate:
		t.phase = PhaseUpdated
	case OpSwap:
		t.phase = PhaseSwapped
		t.frames++
	case OpDraw:
		t.phase = PhaseDrawn
	}
	return nil
}
