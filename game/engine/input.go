package engine

import (
	"fmt"
	"time"
)

// PointerPhase is the kind of raw pointer event
type PointerPhase string

const (
	PointerPhaseDown   PointerPhase = "down"
	PointerPhaseMove   PointerPhase = "move"
	PointerPhaseUp     PointerPhase = "up"
	PointerPhaseCancel PointerPhase = "cancel"
)

// PointerInput is one raw pointer event in world coordinates.
// TimeMillis is a client clock and only differences between events matter.
type PointerInput struct {
	PointerID  int          `json:"pointer_id"`
	Phase      PointerPhase `json:"phase"`
	X          float64      `json:"x"`
	Y          float64      `json:"y"`
	TimeMillis int64        `json:"time_ms"`
}

// Validate checks the phase is known
func (in PointerInput) Validate() error {
	switch in.Phase {
	case PointerPhaseDown, PointerPhaseMove, PointerPhaseUp, PointerPhaseCancel:
		return nil
	}
	return fmt.Errorf("unknown pointer phase %q", in.Phase)
}

type pointerTrack struct {
	downAt   time.Duration
	start    Vec2
	last     Vec2
	lastAt   time.Duration
	velocity Vec2
	grab     Vec2
	armed    bool
	dragging bool
}

// InputRouter applies drag criteria and hit testing to raw pointer events
// and drives a Controller with the result.
type InputRouter struct {
	arena     *Arena
	ctrl      *Controller
	threshold time.Duration
	deadZone  float64
	pointers  map[int]*pointerTrack
}

// NewInputRouter creates a router. A drag starts once the pointer has been held
// for threshold and has moved more than deadZone from where it went down.
func NewInputRouter(arena *Arena, ctrl *Controller, threshold time.Duration, deadZone float64) *InputRouter {
	return &InputRouter{
		arena:     arena,
		ctrl:      ctrl,
		threshold: threshold,
		deadZone:  deadZone,
		pointers:  make(map[int]*pointerTrack),
	}
}

// Handle routes one raw pointer event
func (r *InputRouter) Handle(in PointerInput) {
	at := time.Duration(in.TimeMillis) * time.Millisecond
	p := Vec2{X: in.X, Y: in.Y}

	switch in.Phase {
	case PointerPhaseDown:
		if _, ok := r.pointers[in.PointerID]; ok {
			r.ctrl.Cancel(in.PointerID)
		}
		tr := &pointerTrack{downAt: at, start: p, last: p, lastAt: at}
		r.pointers[in.PointerID] = tr
		if hit := r.arena.TopmostAt(p.X, p.Y); hit != nil && r.ctrl.PointerDown(in.PointerID, hit) {
			tr.armed = true
			tr.grab = hit.Center().Sub(p)
		}

	case PointerPhaseMove:
		tr, ok := r.pointers[in.PointerID]
		if !ok {
			return
		}
		r.track(tr, p, at)
		if tr.armed && !tr.dragging && at-tr.downAt >= r.threshold && p.Sub(tr.start).Len() > r.deadZone {
			tr.dragging = true
			if s := r.ctrl.session(in.PointerID); s != nil {
				r.arena.Raise(s.tile.ID)
			}
			r.ctrl.DragStart(in.PointerID)
		}
		if tr.dragging {
			d := p.Add(tr.grab)
			r.ctrl.Drag(in.PointerID, d.X, d.Y)
		}

	case PointerPhaseUp:
		tr, ok := r.pointers[in.PointerID]
		delete(r.pointers, in.PointerID)
		if !ok {
			return
		}
		r.track(tr, p, at)
		if tr.dragging {
			r.ctrl.DragEnd(in.PointerID, tr.velocity.X, tr.velocity.Y)
		}
		r.ctrl.PointerUp(in.PointerID, r.arena.TopmostAt(p.X, p.Y))

	case PointerPhaseCancel:
		delete(r.pointers, in.PointerID)
		r.ctrl.Cancel(in.PointerID)
	}
}

// Reset forgets every pressed pointer
func (r *InputRouter) Reset() {
	for id := range r.pointers {
		delete(r.pointers, id)
	}
}

// track updates the last position and the per-frame velocity estimate
func (r *InputRouter) track(tr *pointerTrack, p Vec2, at time.Duration) {
	if dt := at - tr.lastAt; dt > 0 {
		tr.velocity = p.Sub(tr.last).Scale(float64(FrameDuration) / float64(dt))
	}
	tr.last = p
	tr.lastAt = at
}
