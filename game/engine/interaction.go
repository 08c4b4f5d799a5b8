package engine

import (
	"github.com/rs/zerolog"
)

// TileEvent is delivered to controller callbacks
type TileEvent struct {
	PointerID int
	Tile      *Tile
	X, Y      float64
	VX, VY    float64
}

type eventKind uint8

const (
	eventClick eventKind = iota
	eventDragged
	eventDragStart
	eventDrag
	eventDragEnd
	eventFirstInteraction
	eventKindCount
)

type tileHandler struct {
	id uint32
	fn func(TileEvent)
}

type handlerRegistry struct {
	nextID   uint32
	handlers [eventKindCount][]tileHandler
}

func (r *handlerRegistry) add(kind eventKind, fn func(TileEvent)) CallbackHandle {
	r.nextID++
	r.handlers[kind] = append(r.handlers[kind], tileHandler{id: r.nextID, fn: fn})
	return CallbackHandle{id: r.nextID, reg: r, kind: kind}
}

func (r *handlerRegistry) emit(kind eventKind, ev TileEvent) {
	// copy so a callback may remove itself
	hs := append([]tileHandler(nil), r.handlers[kind]...)
	for _, h := range hs {
		h.fn(ev)
	}
}

// CallbackHandle allows removing a registered callback
type CallbackHandle struct {
	id   uint32
	reg  *handlerRegistry
	kind eventKind
}

// Remove unregisters this callback so it no longer fires
func (h CallbackHandle) Remove() {
	if h.reg == nil {
		return
	}
	hs := h.reg.handlers[h.kind]
	for i, th := range hs {
		if th.id == h.id {
			h.reg.handlers[h.kind] = append(hs[:i], hs[i+1:]...)
			return
		}
	}
}

// dragSession tracks one pressed pointer. hasDragged stays false until drag start.
type dragSession struct {
	tile       *Tile
	hasDragged bool
	released   bool
}

// Controller turns pointer gestures on tiles into click and drag notifications.
// A gesture that never reached drag start is a click.
type Controller struct {
	active      bool
	throwFactor float64
	sessions    map[int]*dragSession
	handlers    handlerRegistry
	interacted  bool
	logger      zerolog.Logger
}

// ControllerOption configures a Controller
type ControllerOption func(*Controller)

// WithThrowFactor sets the multiplier applied to the release velocity
func WithThrowFactor(f float64) ControllerOption {
	return func(c *Controller) { c.throwFactor = f }
}

// WithControllerLogger sets the logger used for gesture notifications
func WithControllerLogger(l zerolog.Logger) ControllerOption {
	return func(c *Controller) { c.logger = l }
}

// NewController creates an active controller
func NewController(opts ...ControllerOption) *Controller {
	c := &Controller{
		active:      true,
		throwFactor: DefaultThrowFactor,
		sessions:    make(map[int]*dragSession),
		logger:      zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Controller) OnClick(fn func(TileEvent)) CallbackHandle {
	return c.handlers.add(eventClick, fn)
}

func (c *Controller) OnDragged(fn func(TileEvent)) CallbackHandle {
	return c.handlers.add(eventDragged, fn)
}

func (c *Controller) OnDragStart(fn func(TileEvent)) CallbackHandle {
	return c.handlers.add(eventDragStart, fn)
}

func (c *Controller) OnDrag(fn func(TileEvent)) CallbackHandle {
	return c.handlers.add(eventDrag, fn)
}

func (c *Controller) OnDragEnd(fn func(TileEvent)) CallbackHandle {
	return c.handlers.add(eventDragEnd, fn)
}

// OnFirstInteraction fires once, on the first pointer-down that lands on a tile
func (c *Controller) OnFirstInteraction(fn func(TileEvent)) CallbackHandle {
	return c.handlers.add(eventFirstInteraction, fn)
}

// SetActive enables or disables the controller. Deactivating drops pressed pointers.
func (c *Controller) SetActive(active bool) {
	c.active = active
	if !active {
		for id := range c.sessions {
			delete(c.sessions, id)
		}
	}
}

func (c *Controller) Active() bool { return c.active }

// Dragging reports whether any pointer currently drags a tile
func (c *Controller) Dragging() bool {
	for _, s := range c.sessions {
		if s.hasDragged && !s.released {
			return true
		}
	}
	return false
}

// PointerDown arms a gesture on t. It reports whether the event was consumed.
func (c *Controller) PointerDown(pointerID int, t *Tile) bool {
	if !c.active || t == nil || !t.InteractionEnabled {
		return false
	}
	// a pointer pressed again without a release loses its previous gesture
	if s := c.sessions[pointerID]; s != nil && s.hasDragged && !s.released {
		c.DragEnd(pointerID, 0, 0)
	}
	c.sessions[pointerID] = &dragSession{tile: t}
	c.logger.Debug().Int("tile", t.ID).Int("pointer", pointerID).Msg("pointer down")

	if !c.interacted {
		c.interacted = true
		c.handlers.emit(eventFirstInteraction, TileEvent{PointerID: pointerID, Tile: t, X: t.X, Y: t.Y})
	}
	return true
}

// DragStart hands the pressed tile to direct control
func (c *Controller) DragStart(pointerID int) {
	s := c.session(pointerID)
	if s == nil || s.hasDragged {
		return
	}
	s.hasDragged = true
	s.tile.SetKinematic(true)
	s.tile.SetVelocity(0, 0)
	c.handlers.emit(eventDragStart, TileEvent{PointerID: pointerID, Tile: s.tile, X: s.tile.X, Y: s.tile.Y})
}

// Drag moves the dragged tile to (x, y)
func (c *Controller) Drag(pointerID int, x, y float64) {
	s := c.session(pointerID)
	if s == nil || !s.hasDragged || s.released {
		return
	}
	s.tile.SetPosition(x, y)
	c.handlers.emit(eventDrag, TileEvent{PointerID: pointerID, Tile: s.tile, X: x, Y: y})
}

// DragEnd returns the tile to physics and throws it with the scaled release velocity
func (c *Controller) DragEnd(pointerID int, vx, vy float64) {
	s := c.session(pointerID)
	if s == nil || !s.hasDragged || s.released {
		return
	}
	s.released = true
	tvx, tvy := vx*c.throwFactor, vy*c.throwFactor
	s.tile.SetKinematic(false)
	s.tile.SetVelocity(tvx, tvy)
	c.handlers.emit(eventDragEnd, TileEvent{PointerID: pointerID, Tile: s.tile, X: s.tile.X, Y: s.tile.Y, VX: tvx, VY: tvy})
}

// PointerUp finishes the gesture. hit is the topmost tile under the release
// point and owns the notification even when it is not the pressed tile.
func (c *Controller) PointerUp(pointerID int, hit *Tile) bool {
	s, ok := c.sessions[pointerID]
	delete(c.sessions, pointerID)
	if !c.active || hit == nil {
		return false
	}

	dragged := ok && s.hasDragged
	ev := TileEvent{PointerID: pointerID, Tile: hit, X: hit.X, Y: hit.Y}
	if dragged {
		c.logger.Debug().Int("tile", hit.ID).Msg("dragged")
		c.handlers.emit(eventDragged, ev)
	} else {
		c.logger.Debug().Int("tile", hit.ID).Msg("clicked")
		c.handlers.emit(eventClick, ev)
	}
	return true
}

// Cancel handles a pointer lost mid-gesture as a drag end with zero velocity
func (c *Controller) Cancel(pointerID int) {
	if s := c.session(pointerID); s != nil && s.hasDragged && !s.released {
		c.DragEnd(pointerID, 0, 0)
	}
	delete(c.sessions, pointerID)
}

func (c *Controller) session(pointerID int) *dragSession {
	if !c.active {
		return nil
	}
	return c.sessions[pointerID]
}
