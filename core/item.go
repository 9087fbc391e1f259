package core

import "fmt"

// Kind is the closed set of things that can be placed on a canvas.
type Kind string

const (
	KindNote  Kind = "note"
	KindText  Kind = "text"
	KindImage Kind = "image"
	KindShape Kind = "shape"
	KindLine  Kind = "line"
	KindFrame Kind = "frame"
)

// Kinds lists every valid kind in toolbar order.
var Kinds = []Kind{KindNote, KindText, KindImage, KindShape, KindLine, KindFrame}

// MinItemSize is the smallest width or height a resize can produce.
const MinItemSize = 20.0

func (k Kind) Valid() bool {
	switch k {
	case KindNote, KindText, KindImage, KindShape, KindLine, KindFrame:
		return true
	}
	return false
}

// Editable reports whether the item carries a text body the user can type into.
func (k Kind) Editable() bool {
	switch k {
	case KindNote, KindText:
		return true
	}
	return false
}

func ParseKind(s string) (Kind, error) {
	k := Kind(s)
	if !k.Valid() {
		return "", fmt.Errorf("%w: unknown item kind %q", ErrInvalidItem, s)
	}
	return k, nil
}

type (
	Point struct {
		X float64 `json:"x"`
		Y float64 `json:"y"`
	}

	Size struct {
		Width  float64 `json:"width"`
		Height float64 `json:"height"`
	}

	// Item is a single element on the canvas. Coordinates are in canvas space.
	Item struct {
		ID       string  `json:"id"`
		Kind     Kind    `json:"type"`
		X        float64 `json:"x"`
		Y        float64 `json:"y"`
		Width    float64 `json:"width"`
		Height   float64 `json:"height"`
		Rotation float64 `json:"rotation"`
		ZIndex   int     `json:"zIndex"`
		Content  string  `json:"content"`
		Style    Style   `json:"style"`
		GroupID  string  `json:"groupId,omitempty"`
	}

	// ItemPatch is a shallow partial update. Nil fields are left untouched.
	ItemPatch struct {
		X        *float64 `json:"x,omitempty"`
		Y        *float64 `json:"y,omitempty"`
		Width    *float64 `json:"width,omitempty"`
		Height   *float64 `json:"height,omitempty"`
		Rotation *float64 `json:"rotation,omitempty"`
		ZIndex   *int     `json:"zIndex,omitempty"`
		Content  *string  `json:"content,omitempty"`
		GroupID  *string  `json:"groupId,omitempty"`
	}
)

// DefaultDimensions are the sizes new items are created with.
var DefaultDimensions = map[Kind]Size{
	KindNote:  {Width: 200, Height: 200},
	KindText:  {Width: 300, Height: 60},
	KindShape: {Width: 150, Height: 150},
	KindImage: {Width: 400, Height: 300},
	KindLine:  {Width: 200, Height: 5},
	KindFrame: {Width: 375, Height: 812},
}

func (p Point) Add(q Point) Point { return Point{X: p.X + q.X, Y: p.Y + q.Y} }
func (p Point) Sub(q Point) Point { return Point{X: p.X - q.X, Y: p.Y - q.Y} }

func (it Item) Position() Point { return Point{X: it.X, Y: it.Y} }

// Bounds returns the axis-aligned box of the item ignoring rotation.
func (it Item) Bounds() (minX, minY, maxX, maxY float64) {
	return it.X, it.Y, it.X + it.Width, it.Y + it.Height
}

// Clone returns a deep copy; the kind-specific style records are not shared.
func (it Item) Clone() Item {
	out := it
	out.Style = it.Style.Clone()
	return out
}

// Apply merges the non-nil fields of p into the item.
func (p ItemPatch) Apply(it *Item) {
	if p.X != nil {
		it.X = *p.X
	}
	if p.Y != nil {
		it.Y = *p.Y
	}
	if p.Width != nil {
		it.Width = *p.Width
	}
	if p.Height != nil {
		it.Height = *p.Height
	}
	if p.Rotation != nil {
		it.Rotation = *p.Rotation
	}
	if p.ZIndex != nil {
		it.ZIndex = *p.ZIndex
	}
	if p.Content != nil {
		it.Content = *p.Content
	}
	if p.GroupID != nil {
		it.GroupID = *p.GroupID
	}
}

func (p ItemPatch) Empty() bool {
	return p == ItemPatch{}
}

// CloneItems deep copies an item list. A nil list stays nil.
func CloneItems(items []Item) []Item {
	if items == nil {
		return nil
	}
	out := make([]Item, len(items))
	for i, it := range items {
		out[i] = it.Clone()
	}
	return out
}

// FindItem returns the index of the item with the given id, or -1.
func FindItem(items []Item, id string) int {
	for i := range items {
		if items[i].ID == id {
			return i
		}
	}
	return -1
}

// Validate checks the structural rules every stored item must satisfy.
func (it Item) Validate() error {
	if it.ID == "" {
		return fmt.Errorf("%w: missing id", ErrInvalidItem)
	}
	if !it.Kind.Valid() {
		return fmt.Errorf("%w: item %s has unknown kind %q", ErrInvalidItem, it.ID, it.Kind)
	}
	if it.Width < 0 || it.Height < 0 {
		return fmt.Errorf("%w: item %s has negative size", ErrInvalidItem, it.ID)
	}
	return nil
}

// NormalizeItems rewrites each item's style in place so it carries exactly
// the kind-specific record its kind calls for.
func NormalizeItems(items []Item) {
	for i := range items {
		items[i].Style.Normalize(items[i].Kind)
	}
}

// ValidateItems checks every item and that ids are unique.
func ValidateItems(items []Item) error {
	seen := make(map[string]struct{}, len(items))
	for _, it := range items {
		if err := it.Validate(); err != nil {
			return err
		}
		if _, dup := seen[it.ID]; dup {
			return fmt.Errorf("%w: duplicate item id %s", ErrInvalidItem, it.ID)
		}
		seen[it.ID] = struct{}{}
	}
	return nil
}
