// Package presence broadcasts who is looking at a workspace and where their cursor is.
package presence

import (
	"fmt"
	"math/rand/v2"
	"time"

	"ideation-workspace/core"
)

// CursorInterval is the minimum gap between two cursor broadcasts from one participant.
const CursorInterval = 50 * time.Millisecond

// Palette is the fixed set of participant colours.
var Palette = []string{"#FF6B6B", "#4ECDC4", "#45B7D1", "#96CEB4", "#FFEEAD"}

// Record is the ephemeral state of one participant. A nil Cursor means the
// pointer is outside the canvas. Left marks the final record of a session.
type Record struct {
	Identity string      `json:"identity"`
	Name     string      `json:"name"`
	Color    string      `json:"color"`
	Cursor   *core.Point `json:"cursor"`
	Left     bool        `json:"left,omitempty"`
}

// ChannelName scopes presence to one workspace.
func ChannelName(workspaceID string) string {
	return "workspace:" + workspaceID
}

// NewIdentity returns a random session identity with its display name and colour.
func NewIdentity() Record {
	id := fmt.Sprintf("user_%04d", rand.IntN(10000))
	return Record{
		Identity: id,
		Name:     "User " + id[len(id)-4:],
		Color:    ColorFor(id),
	}
}

// ColorFor picks a palette colour from a 32-bit string hash, so an identity
// keeps its colour across reconnects.
func ColorFor(id string) string {
	var hash int32
	for _, r := range id {
		hash = int32(r) + ((hash << 5) - hash)
	}
	h := int64(hash)
	if h < 0 {
		h = -h
	}
	return Palette[h%int64(len(Palette))]
}

func (r Record) Validate() error {
	if r.Identity == "" {
		return fmt.Errorf("%w: missing identity", core.ErrInvalidID)
	}
	return nil
}

func (r Record) clone() Record {
	if r.Cursor != nil {
		c := *r.Cursor
		r.Cursor = &c
	}
	return r
}
