// Package viewport maps between screen pixels and canvas space under pan and zoom.
package viewport

import "ideation-workspace/core"

const (
	MinZoom     = 0.1
	MaxZoom     = 5.0
	InitialZoom = 0.8
)

// ScreenToCanvas converts a screen point to canvas space: (screen - pan) / zoom.
func ScreenToCanvas(p, pan core.Point, zoom float64) core.Point {
	return core.Point{
		X: (p.X - pan.X) / zoom,
		Y: (p.Y - pan.Y) / zoom,
	}
}

// CanvasToScreen is the inverse of ScreenToCanvas.
func CanvasToScreen(p, pan core.Point, zoom float64) core.Point {
	return core.Point{
		X: p.X*zoom + pan.X,
		Y: p.Y*zoom + pan.Y,
	}
}

// ClampZoom limits z to [min, max].
func ClampZoom(z, min, max float64) float64 {
	if z < min {
		return min
	}
	if z > max {
		return max
	}
	return z
}

// Viewport is the pan offset and zoom of one viewer. Not safe for concurrent use.
type Viewport struct {
	Pan  core.Point
	Zoom float64
	Min  float64
	Max  float64
}

func New() *Viewport {
	return &Viewport{Zoom: InitialZoom, Min: MinZoom, Max: MaxZoom}
}

func (v *Viewport) ScreenToCanvas(p core.Point) core.Point {
	return ScreenToCanvas(p, v.Pan, v.Zoom)
}

func (v *Viewport) CanvasToScreen(p core.Point) core.Point {
	return CanvasToScreen(p, v.Pan, v.Zoom)
}

// SetZoom applies a requested zoom, clamped, and returns the value in effect.
func (v *Viewport) SetZoom(z float64) float64 {
	v.Zoom = ClampZoom(z, v.Min, v.Max)
	return v.Zoom
}

// ZoomAt changes zoom while keeping the canvas point under screen point p fixed.
func (v *Viewport) ZoomAt(p core.Point, z float64) float64 {
	anchor := v.ScreenToCanvas(p)
	v.SetZoom(z)
	v.Pan = core.Point{
		X: p.X - anchor.X*v.Zoom,
		Y: p.Y - anchor.Y*v.Zoom,
	}
	return v.Zoom
}

func (v *Viewport) PanBy(dx, dy float64) {
	v.Pan.X += dx
	v.Pan.Y += dy
}
