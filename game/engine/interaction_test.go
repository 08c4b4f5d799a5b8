package engine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type gestureLog struct {
	clicks  []*Tile
	dragged []*Tile
	starts  int
	ends    []TileEvent
	first   int
}

func newRecordedController(t *testing.T) (*Controller, *gestureLog) {
	t.Helper()
	c := NewController()
	log := &gestureLog{}
	c.OnClick(func(ev TileEvent) { log.clicks = append(log.clicks, ev.Tile) })
	c.OnDragged(func(ev TileEvent) { log.dragged = append(log.dragged, ev.Tile) })
	c.OnDragStart(func(TileEvent) { log.starts++ })
	c.OnDragEnd(func(ev TileEvent) { log.ends = append(log.ends, ev) })
	c.OnFirstInteraction(func(TileEvent) { log.first++ })
	return c, log
}

func TestControllerClickWithoutDrag(t *testing.T) {
	c, log := newRecordedController(t)
	tile := &Tile{ID: 1, InteractionEnabled: true}

	require.True(t, c.PointerDown(1, tile))
	require.True(t, c.PointerUp(1, tile))

	assert.Equal(t, []*Tile{tile}, log.clicks)
	assert.Empty(t, log.dragged)
	assert.Zero(t, log.starts)
}

func TestControllerDragAndThrow(t *testing.T) {
	c, log := newRecordedController(t)
	tile := &Tile{ID: 1, InteractionEnabled: true, VX: 5, VY: 5}

	c.PointerDown(1, tile)
	c.DragStart(1)
	assert.True(t, tile.Kinematic, "drag takes direct control")
	assert.Zero(t, tile.VX)
	assert.Zero(t, tile.VY)
	assert.True(t, c.Dragging())

	c.Drag(1, 10, 20)
	assert.Equal(t, Vec2{X: 10, Y: 20}, tile.Center())

	c.DragEnd(1, 2, -1)
	assert.False(t, tile.Kinematic)
	assert.Equal(t, 20.0, tile.VX)
	assert.Equal(t, -10.0, tile.VY)
	require.Len(t, log.ends, 1)
	assert.Equal(t, 20.0, log.ends[0].VX)

	c.PointerUp(1, tile)
	assert.Equal(t, []*Tile{tile}, log.dragged)
	assert.Empty(t, log.clicks)
	assert.Equal(t, 1, log.starts)
	assert.False(t, c.Dragging())
}

func TestControllerPointerDownEndsUnreleasedDrag(t *testing.T) {
	c, log := newRecordedController(t)
	first := &Tile{ID: 1, InteractionEnabled: true}
	second := &Tile{ID: 2, InteractionEnabled: true}

	c.PointerDown(1, first)
	c.DragStart(1)
	c.Drag(1, 30, 0)
	require.True(t, first.Kinematic)

	require.True(t, c.PointerDown(1, second))
	assert.False(t, first.Kinematic, "the lost drag hands the tile back to physics")
	assert.Zero(t, first.VX)
	require.Len(t, log.ends, 1)
	assert.Equal(t, first, log.ends[0].Tile)
	assert.False(t, c.Dragging())

	require.True(t, c.PointerUp(1, second))
	assert.Equal(t, []*Tile{second}, log.clicks, "the new gesture is a plain click")
}

func TestControllerReleaseOverOtherTile(t *testing.T) {
	c, log := newRecordedController(t)
	pressed := &Tile{ID: 1, InteractionEnabled: true}
	under := &Tile{ID: 2, InteractionEnabled: true}

	c.PointerDown(1, pressed)
	c.PointerUp(1, under)

	require.Len(t, log.clicks, 1)
	assert.Same(t, under, log.clicks[0], "the tile under the release point owns the event")
}

func TestControllerCancelMidDrag(t *testing.T) {
	c, log := newRecordedController(t)
	tile := &Tile{ID: 1, InteractionEnabled: true}

	c.PointerDown(1, tile)
	c.DragStart(1)
	c.Drag(1, 30, 30)
	c.Cancel(1)

	assert.False(t, tile.Kinematic)
	assert.Zero(t, tile.VX)
	assert.Zero(t, tile.VY)
	require.Len(t, log.ends, 1)
	assert.False(t, c.Dragging())
}

func TestControllerInactive(t *testing.T) {
	c, log := newRecordedController(t)
	tile := &Tile{ID: 1, InteractionEnabled: true}

	c.SetActive(false)
	assert.False(t, c.PointerDown(1, tile))
	assert.False(t, c.PointerUp(1, tile))
	assert.Empty(t, log.clicks)

	c.SetActive(true)
	disabled := &Tile{ID: 2}
	assert.False(t, c.PointerDown(1, disabled), "disabled tiles ignore input")
}

func TestControllerFirstInteractionOnce(t *testing.T) {
	c, log := newRecordedController(t)
	tile := &Tile{ID: 1, InteractionEnabled: true}

	for i := 0; i < 3; i++ {
		c.PointerDown(i, tile)
		c.PointerUp(i, tile)
	}
	assert.Equal(t, 1, log.first)
	assert.Len(t, log.clicks, 3)
}

func TestCallbackHandleRemove(t *testing.T) {
	c := NewController()
	tile := &Tile{ID: 1, InteractionEnabled: true}
	count := 0
	h := c.OnClick(func(TileEvent) { count++ })

	c.PointerDown(1, tile)
	c.PointerUp(1, tile)
	h.Remove()
	c.PointerDown(1, tile)
	c.PointerUp(1, tile)

	assert.Equal(t, 1, count)
	CallbackHandle{}.Remove()
}

func newRouterFixture(t *testing.T) (*InputRouter, *Tile, *gestureLog) {
	t.Helper()
	arena := NewArena(DefaultMeasurer())
	tile := arena.Acquire("a")
	c, log := newRecordedController(t)
	return NewInputRouter(arena, c, DefaultDragThreshold, DefaultDragDeadZone), tile, log
}

func TestInputRouterQuickTapIsClick(t *testing.T) {
	r, tile, log := newRouterFixture(t)

	r.Handle(PointerInput{PointerID: 1, Phase: PointerPhaseDown, X: 5, Y: 5, TimeMillis: 0})
	r.Handle(PointerInput{PointerID: 1, Phase: PointerPhaseMove, X: 20, Y: 5, TimeMillis: 40})
	r.Handle(PointerInput{PointerID: 1, Phase: PointerPhaseUp, X: 20, Y: 5, TimeMillis: 50})

	assert.Equal(t, []*Tile{tile}, log.clicks, "movement before the time threshold is not a drag")
	assert.Equal(t, Vec2{}, tile.Center())
}

func TestInputRouterDragFollowsPointer(t *testing.T) {
	r, tile, log := newRouterFixture(t)

	r.Handle(PointerInput{PointerID: 1, Phase: PointerPhaseDown, X: 10, Y: 5, TimeMillis: 0})
	r.Handle(PointerInput{PointerID: 1, Phase: PointerPhaseMove, X: 40, Y: 5, TimeMillis: 50})
	assert.Zero(t, log.starts)

	r.Handle(PointerInput{PointerID: 1, Phase: PointerPhaseMove, X: 60, Y: 5, TimeMillis: 150})
	assert.Equal(t, 1, log.starts)
	assert.Equal(t, Vec2{X: 50, Y: 0}, tile.Center(), "tile keeps the grab offset")

	r.Handle(PointerInput{PointerID: 1, Phase: PointerPhaseUp, X: 70, Y: 5, TimeMillis: 160})

	perFrame := 10 * float64(FrameDuration) / float64(10*time.Millisecond)
	assert.InDelta(t, perFrame*DefaultThrowFactor, tile.VX, 1e-9)
	assert.Zero(t, tile.VY)
	assert.Equal(t, []*Tile{tile}, log.dragged)
	assert.Empty(t, log.clicks)
}

func TestInputRouterDeadZone(t *testing.T) {
	r, _, log := newRouterFixture(t)

	r.Handle(PointerInput{PointerID: 1, Phase: PointerPhaseDown, X: 0, Y: 0, TimeMillis: 0})
	r.Handle(PointerInput{PointerID: 1, Phase: PointerPhaseMove, X: 3, Y: 0, TimeMillis: 300})
	r.Handle(PointerInput{PointerID: 1, Phase: PointerPhaseUp, X: 3, Y: 0, TimeMillis: 320})

	assert.Zero(t, log.starts)
	assert.Len(t, log.clicks, 1)
}

func TestInputRouterEmptySpaceAndCancel(t *testing.T) {
	r, tile, log := newRouterFixture(t)

	r.Handle(PointerInput{PointerID: 2, Phase: PointerPhaseDown, X: 900, Y: 900, TimeMillis: 0})
	r.Handle(PointerInput{PointerID: 2, Phase: PointerPhaseUp, X: 900, Y: 900, TimeMillis: 10})
	assert.Empty(t, log.clicks)

	r.Handle(PointerInput{PointerID: 1, Phase: PointerPhaseDown, X: 0, Y: 0, TimeMillis: 0})
	r.Handle(PointerInput{PointerID: 1, Phase: PointerPhaseMove, X: 100, Y: 0, TimeMillis: 120})
	r.Handle(PointerInput{PointerID: 1, Phase: PointerPhaseCancel, TimeMillis: 121})

	assert.Len(t, log.ends, 1)
	assert.Zero(t, tile.VX)
	assert.False(t, tile.Kinematic)
	assert.Empty(t, log.dragged)
}

func TestInputRouterRepeatedDownReleasesDraggedTile(t *testing.T) {
	r, tile, log := newRouterFixture(t)

	r.Handle(PointerInput{PointerID: 1, Phase: PointerPhaseDown, X: 0, Y: 0, TimeMillis: 0})
	r.Handle(PointerInput{PointerID: 1, Phase: PointerPhaseMove, X: 50, Y: 0, TimeMillis: 200})
	require.Equal(t, 1, log.starts)
	require.True(t, tile.Kinematic)

	// the up for the drag never arrives; the same pointer presses empty space
	r.Handle(PointerInput{PointerID: 1, Phase: PointerPhaseDown, X: 900, Y: 900, TimeMillis: 300})
	r.Handle(PointerInput{PointerID: 1, Phase: PointerPhaseUp, X: 900, Y: 900, TimeMillis: 310})

	assert.False(t, tile.Kinematic)
	assert.Zero(t, tile.VX)
	assert.Len(t, log.ends, 1)
	assert.Empty(t, log.clicks)
	assert.Empty(t, log.dragged)

	tile.SetVelocity(5, 0)
	Integrate([]*Tile{tile}, time.Second, CenteredBounds(2000, 2000), 0.9)
	assert.Greater(t, tile.X, 50.0, "a released tile moves under physics again")
}

func TestPointerInputValidate(t *testing.T) {
	assert.NoError(t, PointerInput{Phase: PointerPhaseMove}.Validate())
	assert.Error(t, PointerInput{Phase: "hover"}.Validate())
}
