// Package workspace implements the item operations of a single canvas.
package workspace

import (
	"fmt"

	"ideation-workspace/core"
	"ideation-workspace/history"

	"github.com/google/uuid"
)

// Tool is the active toolbar mode.
type Tool string

const (
	ToolSelect Tool = "select"
	ToolHand   Tool = "hand"
	ToolNote   Tool = "note"
	ToolText   Tool = "text"
	ToolShape  Tool = "shape"
	ToolLine   Tool = "line"
	ToolFrame  Tool = "frame"
	ToolImage  Tool = "image"
)

// CreatesItem reports the kind placed by a click when t is a creation tool.
// Images are added through an upload flow, not by clicking.
func (t Tool) CreatesItem() (core.Kind, bool) {
	switch t {
	case ToolNote, ToolText, ToolShape, ToolLine, ToolFrame:
		return core.Kind(t), true
	}
	return "", false
}

type ZOrder string

const (
	Front ZOrder = "front"
	Back  ZOrder = "back"
)

// DuplicateOffset is how far a copy is shifted from its source on both axes.
const DuplicateOffset = 20.0

// FramePreset is the size picked for the next frame. It is consumed by exactly one AddItem.
type FramePreset struct {
	Width  float64         `json:"width"`
	Height float64         `json:"height"`
	Device core.DeviceType `json:"deviceType"`
}

// PresetFor returns the built-in preset for a device, falling back to phone.
func PresetFor(device core.DeviceType) FramePreset {
	p, ok := core.DevicePresets[device]
	if !ok {
		p = core.DevicePresets[core.DevicePhone]
	}
	return FramePreset{Width: p.Width, Height: p.Height, Device: p.Device}
}

type AddOptions struct {
	Content string
	Style   *core.StylePatch
	Frame   *FramePreset
}

type Option func(*Editor)

// WithHistory attaches a history manager. Without one the editor keeps an
// unpersisted history of its own.
func WithHistory(m *history.Manager) Option {
	return func(e *Editor) { e.history = m }
}

func WithIDGenerator(fn func() string) Option {
	return func(e *Editor) { e.newID = fn }
}

// OnChange registers a listener called with a copy of the items after every mutation.
func OnChange(fn func([]core.Item)) Option {
	return func(e *Editor) { e.onChange = fn }
}

// Editor owns the ordered item list, the selection and the active tool.
// It is single-mutator; callers serialise access.
type Editor struct {
	items     []core.Item
	selection []string
	tool      Tool
	locked    bool

	history  *history.Manager
	newID    func() string
	onChange func([]core.Item)
}

func NewEditor(items []core.Item, opts ...Option) *Editor {
	e := &Editor{
		items: core.CloneItems(items),
		tool:  ToolSelect,
		newID: uuid.NewString,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.history == nil {
		e.history = history.NewManager(nil, "")
	}
	if e.items == nil {
		e.items = []core.Item{}
	}
	return e
}

// Items returns a copy of the current item list in paint order.
func (e *Editor) Items() []core.Item { return core.CloneItems(e.items) }

func (e *Editor) Len() int { return len(e.items) }

func (e *Editor) Item(id string) (core.Item, bool) {
	i := core.FindItem(e.items, id)
	if i < 0 {
		return core.Item{}, false
	}
	return e.items[i].Clone(), true
}

func (e *Editor) History() *history.Manager { return e.history }

func (e *Editor) Tool() Tool { return e.tool }

func (e *Editor) SetTool(t Tool) { e.tool = t }

func (e *Editor) Locked() bool { return e.locked }
func (e *Editor) Lock()        { e.locked = true }
func (e *Editor) Unlock()      { e.locked = false }

func (e *Editor) Selection() []string {
	return append([]string(nil), e.selection...)
}

func (e *Editor) IsSelected(id string) bool {
	for _, sid := range e.selection {
		if sid == id {
			return true
		}
	}
	return false
}

// Select replaces the selection. Unknown ids are dropped.
func (e *Editor) Select(ids ...string) {
	e.selection = e.selection[:0:0]
	for _, id := range ids {
		if core.FindItem(e.items, id) >= 0 && !e.IsSelected(id) {
			e.selection = append(e.selection, id)
		}
	}
}

func (e *Editor) ClearSelection() { e.selection = nil }

// SetItems replaces the whole item list without recording history.
func (e *Editor) SetItems(items []core.Item) {
	e.items = core.CloneItems(items)
	if e.items == nil {
		e.items = []core.Item{}
	}
	e.pruneSelection()
	e.changed()
}

// AddItem creates an item of kind at canvas point (x, y) and makes it the sole selection.
func (e *Editor) AddItem(kind core.Kind, x, y float64, opts AddOptions) (core.Item, error) {
	if !kind.Valid() {
		return core.Item{}, fmt.Errorf("%w: unknown item kind %q", core.ErrInvalidItem, kind)
	}

	e.record()

	size := core.DefaultDimensions[kind]
	style := core.NewStyle(kind)
	z := len(e.items) + 1

	if kind == core.KindFrame {
		preset := PresetFor(core.DevicePhone)
		if opts.Frame != nil {
			preset = *opts.Frame
		}
		size = core.Size{Width: preset.Width, Height: preset.Height}
		style.FrameStyle.Device = preset.Device
		z = 0
	}

	if opts.Style != nil {
		opts.Style.Apply(&style)
	}

	it := core.Item{
		ID:      e.newID(),
		Kind:    kind,
		X:       x,
		Y:       y,
		Width:   size.Width,
		Height:  size.Height,
		ZIndex:  z,
		Content: opts.Content,
		Style:   style,
	}

	e.items = append(e.items, it)
	e.selection = []string{it.ID}
	e.tool = ToolSelect
	e.changed()

	return it.Clone(), nil
}

// UpdateItem merges patch into the item and records history. Unknown ids are a no-op.
func (e *Editor) UpdateItem(id string, patch core.ItemPatch) bool {
	i := core.FindItem(e.items, id)
	if i < 0 {
		return false
	}
	e.record()
	patch.Apply(&e.items[i])
	e.changed()
	return true
}

// UpdateItemLive merges patch without recording history, for continuous gestures.
func (e *Editor) UpdateItemLive(id string, patch core.ItemPatch) bool {
	i := core.FindItem(e.items, id)
	if i < 0 {
		return false
	}
	patch.Apply(&e.items[i])
	e.changed()
	return true
}

// UpdateItemsLive applies several patches as one change without recording history.
func (e *Editor) UpdateItemsLive(patches map[string]core.ItemPatch) {
	applied := false
	for i := range e.items {
		if patch, ok := patches[e.items[i].ID]; ok {
			patch.Apply(&e.items[i])
			applied = true
		}
	}
	if applied {
		e.changed()
	}
}

func (e *Editor) UpdateItemStyle(id string, patch core.StylePatch) bool {
	i := core.FindItem(e.items, id)
	if i < 0 {
		return false
	}
	e.record()
	patch.Apply(&e.items[i].Style)
	e.changed()
	return true
}

func (e *Editor) UpdateItemStyleLive(id string, patch core.StylePatch) bool {
	i := core.FindItem(e.items, id)
	if i < 0 {
		return false
	}
	patch.Apply(&e.items[i].Style)
	e.changed()
	return true
}

// DeleteItem removes one item, or the whole selection when id is empty.
// Group members of a deleted item are left alone.
func (e *Editor) DeleteItem(id string) {
	e.record()

	if id != "" {
		e.items = filterItems(e.items, func(it core.Item) bool { return it.ID != id })
		e.selection = filterIDs(e.selection, func(sid string) bool { return sid != id })
	} else {
		e.items = filterItems(e.items, func(it core.Item) bool { return !e.IsSelected(it.ID) })
		e.selection = nil
	}
	e.changed()
}

// DuplicateItem copies id, or every selected item when id is part of the
// selection. The copies become the new selection. Returns the new ids.
func (e *Editor) DuplicateItem(id string) []string {
	sources := []string{id}
	if e.IsSelected(id) {
		sources = e.Selection()
	}

	var originals []core.Item
	for _, sid := range sources {
		if i := core.FindItem(e.items, sid); i >= 0 {
			originals = append(originals, e.items[i].Clone())
		}
	}
	if len(originals) == 0 {
		return nil
	}

	e.record()

	created := make([]string, 0, len(originals))
	for _, src := range originals {
		cp := src.Clone()
		cp.ID = e.newID()
		cp.X += DuplicateOffset
		cp.Y += DuplicateOffset
		cp.GroupID = ""
		cp.ZIndex = len(e.items) + 1
		if cp.Kind == core.KindFrame {
			cp.ZIndex = 0
		}
		e.items = append(e.items, cp)
		created = append(created, cp.ID)
	}

	e.selection = created
	e.tool = ToolSelect
	e.changed()

	return append([]string(nil), created...)
}

// ChangeZIndex moves the item to the end (front) or start (back) of the list
// and renumbers every item 1..N in list order.
func (e *Editor) ChangeZIndex(id string, dir ZOrder) bool {
	i := core.FindItem(e.items, id)
	if i < 0 {
		return false
	}

	e.record()

	it := e.items[i]
	rest := append(append([]core.Item(nil), e.items[:i]...), e.items[i+1:]...)
	if dir == Back {
		e.items = append([]core.Item{it}, rest...)
	} else {
		e.items = append(rest, it)
	}
	for n := range e.items {
		e.items[n].ZIndex = n + 1
	}
	e.changed()
	return true
}

// Group assigns a fresh shared group id to the selection. Fewer than two
// selected items is a no-op.
func (e *Editor) Group() (string, bool) {
	if len(e.selection) < 2 {
		return "", false
	}

	e.record()

	groupID := e.newID()
	for i := range e.items {
		if e.IsSelected(e.items[i].ID) {
			e.items[i].GroupID = groupID
		}
	}
	e.changed()
	return groupID, true
}

func (e *Editor) Ungroup() bool {
	if len(e.selection) == 0 {
		return false
	}

	e.record()

	for i := range e.items {
		if e.IsSelected(e.items[i].ID) {
			e.items[i].GroupID = ""
		}
	}
	e.changed()
	return true
}

// GroupMembers returns the ids of every item sharing groupID, in list order.
func (e *Editor) GroupMembers(groupID string) []string {
	var ids []string
	for _, it := range e.items {
		if it.GroupID == groupID {
			ids = append(ids, it.ID)
		}
	}
	return ids
}

func (e *Editor) Undo() bool {
	prev, ok := e.history.Undo(e.items)
	if !ok {
		return false
	}
	e.items = nonNil(prev)
	e.pruneSelection()
	e.changed()
	return true
}

func (e *Editor) Redo() bool {
	next, ok := e.history.Redo(e.items)
	if !ok {
		return false
	}
	e.items = nonNil(next)
	e.pruneSelection()
	e.changed()
	return true
}

// CommitGesture records before as one history entry if the items changed since.
func (e *Editor) CommitGesture(before []core.Item) bool {
	if itemsEqual(before, e.items) {
		return false
	}
	e.history.Record(before)
	return true
}

// Snapshot returns a copy of the items for a later CommitGesture.
func (e *Editor) Snapshot() []core.Item { return core.CloneItems(e.items) }

func (e *Editor) record() {
	e.history.Record(e.items)
}

func (e *Editor) changed() {
	if e.onChange != nil {
		e.onChange(core.CloneItems(e.items))
	}
}

func (e *Editor) pruneSelection() {
	e.selection = filterIDs(e.selection, func(id string) bool {
		return core.FindItem(e.items, id) >= 0
	})
}

func filterItems(items []core.Item, keep func(core.Item) bool) []core.Item {
	out := make([]core.Item, 0, len(items))
	for _, it := range items {
		if keep(it) {
			out = append(out, it)
		}
	}
	return out
}

func filterIDs(ids []string, keep func(string) bool) []string {
	var out []string
	for _, id := range ids {
		if keep(id) {
			out = append(out, id)
		}
	}
	return out
}

func nonNil(items []core.Item) []core.Item {
	if items == nil {
		return []core.Item{}
	}
	return items
}
