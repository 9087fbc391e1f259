// Package export rasterises a subset of canvas items to PNG.
package export

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"ideation-workspace/core"
)

const (
	// DefaultPadding is the margin added around the bounding box of an export.
	DefaultPadding = 40.0
	MaxPadding     = 1000.0

	// MaxPixels bounds the bitmap a single export may allocate (about 160 MB of RGBA).
	MaxPixels = 40_000_000
)

var (
	ErrNothingToExport = errors.New("nothing to export")
	ErrExportTooLarge  = errors.New("export too large")
)

// Prepared is a selection rebased onto its own padded bounding box.
type Prepared struct {
	Width  float64
	Height float64
	// Origin is the canvas point that maps to (padding, padding) in the image.
	Origin core.Point
	Items  []core.Item
}

// Select returns the items whose ids are listed, keeping list order.
func Select(items []core.Item, ids []string) []core.Item {
	want := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		want[id] = struct{}{}
	}
	var out []core.Item
	for _, it := range items {
		if _, ok := want[it.ID]; ok {
			out = append(out, it.Clone())
		}
	}
	return out
}

// Prepare computes the axis-aligned bounding box of items, grows it by
// padding on every side and returns copies shifted so the box starts at 0,0.
func Prepare(items []core.Item, padding float64) (*Prepared, error) {
	if len(items) == 0 {
		return nil, ErrNothingToExport
	}

	minX, minY := math.Inf(1), math.Inf(1)
	maxX, maxY := math.Inf(-1), math.Inf(-1)
	for _, it := range items {
		x0, y0, x1, y1 := it.Bounds()
		minX = math.Min(minX, x0)
		minY = math.Min(minY, y0)
		maxX = math.Max(maxX, x1)
		maxY = math.Max(maxY, y1)
	}

	shifted := make([]core.Item, len(items))
	for i, it := range items {
		cp := it.Clone()
		cp.X = it.X - minX + padding
		cp.Y = it.Y - minY + padding
		shifted[i] = cp
	}

	return &Prepared{
		Width:  maxX - minX + 2*padding,
		Height: maxY - minY + 2*padding,
		Origin: core.Point{X: minX, Y: minY},
		Items:  shifted,
	}, nil
}

// FileName builds a download name that carries the export time in Unix milliseconds.
func FileName(prefix string, t time.Time) string {
	prefix = strings.TrimSpace(prefix)
	if prefix == "" {
		prefix = "workspace"
	}
	return fmt.Sprintf("%s-export-%d.png", prefix, t.UnixMilli())
}
