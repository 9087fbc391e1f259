package viewport

import (
	"math"
	"testing"

	"ideation-workspace/core"
)

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9*math.Max(1, math.Max(math.Abs(a), math.Abs(b)))
}

func TestCoordinateRoundTrip(t *testing.T) {
	pans := []core.Point{{X: 0, Y: 0}, {X: -350, Y: 120.5}, {X: 1e4, Y: -2e3}}
	zooms := []float64{MinZoom, 0.33, InitialZoom, 1, 2.5, MaxZoom}
	points := []core.Point{{X: 0, Y: 0}, {X: 13, Y: 7}, {X: -400.25, Y: 999}, {X: 1920, Y: 1080}}

	for _, pan := range pans {
		for _, zoom := range zooms {
			for _, p := range points {
				got := CanvasToScreen(ScreenToCanvas(p, pan, zoom), pan, zoom)
				if !almostEqual(got.X, p.X) || !almostEqual(got.Y, p.Y) {
					t.Errorf("round trip mismatch for p=%v pan=%v zoom=%v: got %v", p, pan, zoom, got)
				}
			}
		}
	}
}

func TestScreenToCanvas(t *testing.T) {
	got := ScreenToCanvas(core.Point{X: 300, Y: 200}, core.Point{X: 100, Y: 50}, 2)
	if got.X != 100 || got.Y != 75 {
		t.Errorf("ScreenToCanvas mismatch: got %v, want {100 75}", got)
	}
}

func TestZoomClamp(t *testing.T) {
	v := New()
	if v.Zoom != 0.8 {
		t.Fatalf("initial zoom mismatch: got %v, want 0.8", v.Zoom)
	}

	if got := v.SetZoom(6.0); got != MaxZoom {
		t.Errorf("zoom 6.0 should clamp to %v, got %v", MaxZoom, got)
	}
	if got := v.SetZoom(0.01); got != MinZoom {
		t.Errorf("zoom 0.01 should clamp to %v, got %v", MinZoom, got)
	}
	if got := v.SetZoom(1.5); got != 1.5 {
		t.Errorf("zoom 1.5 should pass through, got %v", got)
	}
}

func TestZoomAtKeepsAnchor(t *testing.T) {
	v := New()
	v.Pan = core.Point{X: 40, Y: -20}
	cursor := core.Point{X: 500, Y: 300}
	before := v.ScreenToCanvas(cursor)

	v.ZoomAt(cursor, 2)

	after := v.ScreenToCanvas(cursor)
	if !almostEqual(before.X, after.X) || !almostEqual(before.Y, after.Y) {
		t.Errorf("anchor moved: before %v after %v", before, after)
	}
}

func TestPanBy(t *testing.T) {
	v := New()
	v.PanBy(10, -5)
	v.PanBy(2.5, 5)
	if v.Pan.X != 12.5 || v.Pan.Y != 0 {
		t.Errorf("pan mismatch: got %v", v.Pan)
	}
}
