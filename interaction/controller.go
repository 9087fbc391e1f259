// Package interaction turns pointer, wheel and keyboard input into editor and viewport changes.
package interaction

import (
	"strings"

	"ideation-workspace/core"
	"ideation-workspace/viewport"
	"ideation-workspace/workspace"
)

type Mode string

const (
	ModeIdle     Mode = "idle"
	ModePanning  Mode = "panning"
	ModeMoving   Mode = "moving"
	ModeResizing Mode = "resizing"
)

// Handle is a compass corner of the resize box. The empty handle means the body.
type Handle string

const (
	HandleNone Handle = ""
	HandleNW   Handle = "nw"
	HandleNE   Handle = "ne"
	HandleSW   Handle = "sw"
	HandleSE   Handle = "se"
)

func (h Handle) west() bool  { return strings.Contains(string(h), "w") }
func (h Handle) east() bool  { return strings.Contains(string(h), "e") }
func (h Handle) north() bool { return strings.Contains(string(h), "n") }
func (h Handle) south() bool { return strings.Contains(string(h), "s") }

const (
	ButtonPrimary = 0
	ButtonMiddle  = 1
)

// WheelZoomStep is the zoom change per modified wheel tick.
const WheelZoomStep = 0.1

type (
	// PointerEvent carries screen coordinates.
	PointerEvent struct {
		X      float64 `json:"x"`
		Y      float64 `json:"y"`
		Button int     `json:"button"`
		Shift  bool    `json:"shift"`
	}

	WheelEvent struct {
		X      float64 `json:"x"`
		Y      float64 `json:"y"`
		DeltaX float64 `json:"deltaX"`
		DeltaY float64 `json:"deltaY"`
		Ctrl   bool    `json:"ctrl"`
		Meta   bool    `json:"meta"`
	}

	KeyEvent struct {
		Key   string `json:"key"`
		Ctrl  bool   `json:"ctrl"`
		Meta  bool   `json:"meta"`
		Shift bool   `json:"shift"`
		// TextFocused is set while a text input owns the keyboard.
		TextFocused bool `json:"textFocused"`
	}

	// Session is the ephemeral state of the gesture in progress.
	Session struct {
		Mode           Mode
		ItemIDs        []string
		Start          core.Point
		StartPositions map[string]core.Point
		StartSize      core.Size
		Handle         Handle

		snapshot []core.Item
	}
)

type Option func(*Controller)

// WithCursorListener is called with the canvas position on every pointer move.
func WithCursorListener(fn func(core.Point)) Option {
	return func(c *Controller) { c.onCursor = fn }
}

// Controller is the gesture state machine over one editor and one viewport.
// Not safe for concurrent use.
type Controller struct {
	editor  *workspace.Editor
	view    *viewport.Viewport
	session Session

	pendingFrame *workspace.FramePreset
	onCursor     func(core.Point)
}

func New(editor *workspace.Editor, view *viewport.Viewport, opts ...Option) *Controller {
	if view == nil {
		view = viewport.New()
	}
	c := &Controller{
		editor:  editor,
		view:    view,
		session: Session{Mode: ModeIdle},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Controller) Editor() *workspace.Editor     { return c.editor }
func (c *Controller) Viewport() *viewport.Viewport { return c.view }
func (c *Controller) Mode() Mode                   { return c.session.Mode }

// Session returns a copy of the gesture state.
func (c *Controller) Session() Session {
	s := c.session
	s.ItemIDs = append([]string(nil), s.ItemIDs...)
	if s.StartPositions != nil {
		pos := make(map[string]core.Point, len(s.StartPositions))
		for k, v := range s.StartPositions {
			pos[k] = v
		}
		s.StartPositions = pos
	}
	s.snapshot = nil
	return s
}

// ChooseFramePreset sets the size used by the next frame placement only.
func (c *Controller) ChooseFramePreset(p workspace.FramePreset) {
	c.pendingFrame = &p
	c.editor.SetTool(workspace.ToolFrame)
}

func (c *Controller) PendingFrame() (workspace.FramePreset, bool) {
	if c.pendingFrame == nil {
		return workspace.FramePreset{}, false
	}
	return *c.pendingFrame, true
}

// PointerDown handles a press on the canvas background.
func (c *Controller) PointerDown(ev PointerEvent) {
	if c.editor.Locked() {
		return
	}

	if c.editor.Tool() == workspace.ToolHand || ev.Button == ButtonMiddle {
		c.beginPan(ev)
		return
	}

	if kind, ok := c.editor.Tool().CreatesItem(); ok {
		c.place(kind, ev)
		return
	}

	c.editor.ClearSelection()
	c.beginPan(ev)
}

// place centres a new item of kind on the pressed point.
func (c *Controller) place(kind core.Kind, ev PointerEvent) {
	pos := c.view.ScreenToCanvas(core.Point{X: ev.X, Y: ev.Y})
	size := core.DefaultDimensions[kind]

	opts := workspace.AddOptions{}
	if kind == core.KindFrame && c.pendingFrame != nil {
		opts.Frame = c.pendingFrame
		size = core.Size{Width: c.pendingFrame.Width, Height: c.pendingFrame.Height}
		c.pendingFrame = nil
	}

	// The kind comes from a creation tool, so it is always valid.
	_, _ = c.editor.AddItem(kind, pos.X-size.Width/2, pos.Y-size.Height/2, opts)
}

func (c *Controller) beginPan(ev PointerEvent) {
	c.session = Session{
		Mode:  ModePanning,
		Start: core.Point{X: ev.X, Y: ev.Y},
	}
}

// ItemPointerDown handles a press on an item body (HandleNone) or one of its resize handles.
func (c *Controller) ItemPointerDown(ev PointerEvent, id string, handle Handle) {
	if c.editor.Locked() || c.editor.Tool() == workspace.ToolHand {
		return
	}
	if ev.Button == ButtonMiddle {
		c.beginPan(ev)
		return
	}

	target, ok := c.editor.Item(id)
	if !ok {
		return
	}

	snapshot := c.editor.Snapshot()
	c.editor.Select(c.nextSelection(ev, target)...)

	ids := c.editor.Selection()
	mode := ModeMoving
	if handle != HandleNone {
		mode = ModeResizing
		ids = []string{id}
	}

	starts := make(map[string]core.Point, len(ids))
	for _, sid := range ids {
		if it, ok := c.editor.Item(sid); ok {
			starts[sid] = it.Position()
		}
	}

	c.session = Session{
		Mode:           mode,
		ItemIDs:        ids,
		Start:          core.Point{X: ev.X, Y: ev.Y},
		StartPositions: starts,
		StartSize:      core.Size{Width: target.Width, Height: target.Height},
		Handle:         handle,
		snapshot:       snapshot,
	}
}

func (c *Controller) nextSelection(ev PointerEvent, target core.Item) []string {
	current := c.editor.Selection()

	if ev.Shift {
		if c.editor.IsSelected(target.ID) {
			out := current[:0]
			for _, sid := range current {
				if sid != target.ID {
					out = append(out, sid)
				}
			}
			return out
		}
		return append(current, target.ID)
	}

	if c.editor.IsSelected(target.ID) {
		return current
	}
	if target.GroupID != "" {
		return c.editor.GroupMembers(target.GroupID)
	}
	return []string{target.ID}
}

func (c *Controller) PointerMove(ev PointerEvent) {
	screen := core.Point{X: ev.X, Y: ev.Y}
	if c.onCursor != nil {
		c.onCursor(c.view.ScreenToCanvas(screen))
	}

	switch c.session.Mode {
	case ModePanning:
		c.view.PanBy(ev.X-c.session.Start.X, ev.Y-c.session.Start.Y)
		c.session.Start = screen

	case ModeMoving:
		d := c.delta(screen)
		patches := make(map[string]core.ItemPatch, len(c.session.ItemIDs))
		for _, id := range c.session.ItemIDs {
			start, ok := c.session.StartPositions[id]
			if !ok {
				continue
			}
			x, y := start.X+d.X, start.Y+d.Y
			patches[id] = core.ItemPatch{X: &x, Y: &y}
		}
		c.editor.UpdateItemsLive(patches)

	case ModeResizing:
		if len(c.session.ItemIDs) != 1 {
			return
		}
		id := c.session.ItemIDs[0]
		start, ok := c.session.StartPositions[id]
		if !ok {
			return
		}
		x, y, w, h := Resize(start, c.session.StartSize, c.session.Handle, c.delta(screen))
		c.editor.UpdateItemLive(id, core.ItemPatch{X: &x, Y: &y, Width: &w, Height: &h})

	case ModeIdle:
	}
}

// delta is the pointer travel since the gesture began, in canvas units.
func (c *Controller) delta(p core.Point) core.Point {
	d := p.Sub(c.session.Start)
	return core.Point{X: d.X / c.view.Zoom, Y: d.Y / c.view.Zoom}
}

// Resize derives the new box for a handle drag of d canvas units. Width and
// height never drop below core.MinItemSize; at the floor a west or north drag
// pins the opposite edge.
func Resize(start core.Point, size core.Size, h Handle, d core.Point) (x, y, w, ht float64) {
	x, y, w, ht = start.X, start.Y, size.Width, size.Height

	switch {
	case h.east():
		w = size.Width + d.X
	case h.west():
		w = size.Width - d.X
		x = start.X + d.X
	}

	switch {
	case h.south():
		ht = size.Height + d.Y
	case h.north():
		ht = size.Height - d.Y
		y = start.Y + d.Y
	}

	if w < core.MinItemSize {
		if h.west() {
			x = start.X + size.Width - core.MinItemSize
		}
		w = core.MinItemSize
	}
	if ht < core.MinItemSize {
		if h.north() {
			y = start.Y + size.Height - core.MinItemSize
		}
		ht = core.MinItemSize
	}
	return x, y, w, ht
}

// PointerUp ends the gesture. A move or resize that changed anything becomes
// exactly one history entry. Returns whether one was recorded.
func (c *Controller) PointerUp() bool {
	recorded := false
	if c.session.Mode == ModeMoving || c.session.Mode == ModeResizing {
		recorded = c.editor.CommitGesture(c.session.snapshot)
	}
	c.session = Session{Mode: ModeIdle}
	return recorded
}

// Wheel zooms around the cursor when Ctrl/Cmd is held and pans otherwise.
func (c *Controller) Wheel(ev WheelEvent) {
	if c.editor.Locked() {
		return
	}

	if ev.Ctrl || ev.Meta {
		step := WheelZoomStep
		if ev.DeltaY > 0 {
			step = -WheelZoomStep
		}
		c.view.ZoomAt(core.Point{X: ev.X, Y: ev.Y}, c.view.Zoom+step)
		return
	}
	c.view.PanBy(-ev.DeltaX, -ev.DeltaY)
}

// KeyDown maps shortcuts onto editor operations. Returns whether the key was consumed.
func (c *Controller) KeyDown(ev KeyEvent) bool {
	mod := ev.Ctrl || ev.Meta
	key := strings.ToLower(ev.Key)

	switch {
	case ev.Key == "Delete" || ev.Key == "Backspace":
		if ev.TextFocused || len(c.editor.Selection()) == 0 {
			return false
		}
		c.editor.DeleteItem("")
		return true

	case mod && key == "g":
		if ev.Shift {
			c.editor.Ungroup()
		} else {
			c.editor.Group()
		}
		return true

	case mod && key == "z":
		if ev.Shift {
			c.editor.Redo()
		} else {
			c.editor.Undo()
		}
		return true

	case mod && key == "y":
		c.editor.Redo()
		return true
	}
	return false
}
