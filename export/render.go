package export

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	"image/color"
	_ "image/jpeg"
	"io"
	"math"
	"sort"
	"strings"

	"ideation-workspace/core"

	"github.com/fogleman/gg"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/webp"
)

const (
	frameBorder    = 8.0
	frameInk       = "#1a1a1a"
	notePadding    = 16.0
	textPadding    = 4.0
	defaultLine    = 4.0
	lineSpacing    = 1.4
	desktopBar     = 24.0
	notchWidth     = 128.0
	notchHeight    = 24.0
	gridSpacing    = 20.0
	placeholderInk = "#E5E7EB"
)

type RendererOption func(*Renderer)

// WithScale renders at a multiple of the canvas resolution.
func WithScale(s float64) RendererOption {
	return func(r *Renderer) {
		if s > 0 {
			r.scale = s
		}
	}
}

// Renderer draws prepared items onto a white raster.
type Renderer struct {
	faces *faceCache
	scale float64
}

func NewRenderer(opts ...RendererOption) *Renderer {
	r := &Renderer{faces: newFaceCache(), scale: 2}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *Renderer) Scale() float64 { return r.scale }

// Image rasterises p and returns the resulting bitmap.
func (r *Renderer) Image(p *Prepared) (image.Image, error) {
	if p == nil || len(p.Items) == 0 {
		return nil, ErrNothingToExport
	}

	fw, fh := math.Ceil(p.Width*r.scale), math.Ceil(p.Height*r.scale)
	if !(fw >= 1 && fh >= 1) || fw*fh > MaxPixels {
		return nil, fmt.Errorf("%w: %.0fx%.0f pixels", ErrExportTooLarge, fw, fh)
	}
	dc := gg.NewContext(int(fw), int(fh))
	dc.SetColor(color.White)
	dc.Clear()
	dc.Scale(r.scale, r.scale)

	items := make([]core.Item, len(p.Items))
	copy(items, p.Items)
	sort.SliceStable(items, func(i, j int) bool { return items[i].ZIndex < items[j].ZIndex })

	for _, it := range items {
		if err := r.drawItem(dc, it); err != nil {
			return nil, fmt.Errorf("draw %s %s: %w", it.Kind, it.ID, err)
		}
	}
	return dc.Image(), nil
}

// RenderPNG rasterises p and writes it as PNG.
func (r *Renderer) RenderPNG(w io.Writer, p *Prepared) error {
	img, err := r.Image(p)
	if err != nil {
		return err
	}
	dc := gg.NewContextForImage(img)
	return dc.EncodePNG(w)
}

func (r *Renderer) drawItem(dc *gg.Context, it core.Item) error {
	dc.Push()
	defer dc.Pop()

	if it.Rotation != 0 {
		dc.RotateAbout(gg.Radians(it.Rotation), it.X+it.Width/2, it.Y+it.Height/2)
	}

	switch it.Kind {
	case core.KindNote:
		fillRect(dc, it, it.Style.Background, 2)
		strokeBorder(dc, it, 2)
		return r.drawText(dc, it, notePadding, core.AlignLeft, 0)
	case core.KindText:
		fillRect(dc, it, it.Style.Background, 0)
		strokeBorder(dc, it, 0)
		return r.drawText(dc, it, textPadding, core.AlignCenter, 0.5)
	case core.KindShape:
		drawShape(dc, it)
	case core.KindLine:
		drawLine(dc, it)
	case core.KindFrame:
		return r.drawFrame(dc, it)
	case core.KindImage:
		drawImage(dc, it)
	}
	return nil
}

// setColor applies a CSS hex colour. Empty and transparent report false.
func setColor(dc *gg.Context, c string) bool {
	c = strings.TrimSpace(c)
	if c == "" || c == core.Transparent || !strings.HasPrefix(c, "#") {
		return false
	}
	dc.SetHexColor(c)
	return true
}

func fillRect(dc *gg.Context, it core.Item, bg string, radius float64) {
	if !setColor(dc, bg) {
		return
	}
	if radius > 0 {
		dc.DrawRoundedRectangle(it.X, it.Y, it.Width, it.Height, radius)
	} else {
		dc.DrawRectangle(it.X, it.Y, it.Width, it.Height)
	}
	dc.Fill()
}

func setDash(dc *gg.Context, dash core.LineDash, w float64) {
	switch dash {
	case core.DashDashed:
		dc.SetDash(w*3, w*2)
	case core.DashDotted:
		dc.SetDash(w, w)
	default:
		dc.SetDash()
	}
}

func borderColor(s core.Style) string {
	if s.Border.Color != "" {
		return s.Border.Color
	}
	if s.Color != "" {
		return s.Color
	}
	return "#000000"
}

func strokeBorder(dc *gg.Context, it core.Item, radius float64) {
	b := it.Style.Border
	if b.Width <= 0 || !setColor(dc, borderColor(it.Style)) {
		return
	}
	dc.SetLineWidth(b.Width)
	setDash(dc, b.Dash, b.Width)
	inset := b.Width / 2
	if radius > 0 {
		dc.DrawRoundedRectangle(it.X+inset, it.Y+inset, it.Width-b.Width, it.Height-b.Width, radius)
	} else {
		dc.DrawRectangle(it.X+inset, it.Y+inset, it.Width-b.Width, it.Height-b.Width)
	}
	dc.Stroke()
	dc.SetDash()
}

func (r *Renderer) drawText(dc *gg.Context, it core.Item, pad float64, defAlign core.TextAlign, vAnchor float64) error {
	if strings.TrimSpace(it.Content) == "" {
		return nil
	}
	face, err := r.faces.face(it.Style)
	if err != nil {
		return err
	}
	dc.SetFontFace(face)
	if !setColor(dc, it.Style.Color) {
		dc.SetHexColor(core.DefaultTextColor)
	}

	align := it.Style.TextAlign
	if align == "" {
		align = defAlign
	}
	width := math.Max(it.Width-2*pad, 1)

	var (
		x  float64
		ax float64
		ga gg.Align
	)
	switch align {
	case core.AlignRight:
		x, ax, ga = it.X+it.Width-pad, 1, gg.AlignRight
	case core.AlignCenter:
		x, ax, ga = it.X+it.Width/2, 0.5, gg.AlignCenter
	default:
		x, ax, ga = it.X+pad, 0, gg.AlignLeft
	}
	y := it.Y + pad + vAnchor*(it.Height-2*pad)

	dc.Push()
	dc.DrawRectangle(it.X, it.Y, it.Width, it.Height)
	dc.Clip()
	dc.DrawStringWrapped(it.Content, x, y, ax, vAnchor, width, lineSpacing, ga)
	dc.ResetClip()
	dc.Pop()
	return nil
}

func drawShape(dc *gg.Context, it core.Item) {
	shape := core.ShapeRectangle
	if it.Style.ShapeStyle != nil && it.Style.ShapeType != "" {
		shape = it.Style.ShapeType
	}

	path := func() {
		switch shape {
		case core.ShapeCircle:
			dc.DrawEllipse(it.X+it.Width/2, it.Y+it.Height/2, it.Width/2, it.Height/2)
		case core.ShapeTriangle:
			dc.MoveTo(it.X+it.Width/2, it.Y)
			dc.LineTo(it.X+it.Width, it.Y+it.Height)
			dc.LineTo(it.X, it.Y+it.Height)
			dc.ClosePath()
		default:
			dc.DrawRectangle(it.X, it.Y, it.Width, it.Height)
		}
	}

	if setColor(dc, it.Style.Background) {
		path()
		dc.Fill()
	}
	b := it.Style.Border
	if b.Width > 0 && setColor(dc, borderColor(it.Style)) {
		dc.SetLineWidth(b.Width)
		setDash(dc, b.Dash, b.Width)
		path()
		dc.Stroke()
		dc.SetDash()
	}
}

func drawLine(dc *gg.Context, it core.Item) {
	w := it.Style.Border.Width
	if w <= 0 {
		w = defaultLine
	}
	if !setColor(dc, it.Style.Color) {
		dc.SetColor(color.Black)
	}
	dc.SetLineWidth(w)
	dc.SetLineCapRound()
	setDash(dc, it.Style.Border.Dash, w)

	mid := it.Y + it.Height/2
	dc.MoveTo(it.X, mid)
	if it.Style.LineStyle != nil && it.Style.LineType == core.LineCurved {
		dc.QuadraticTo(it.X+it.Width/2, it.Y, it.X+it.Width, mid)
	} else {
		dc.LineTo(it.X+it.Width, mid)
	}
	dc.Stroke()
	dc.SetDash()
}

func (r *Renderer) drawFrame(dc *gg.Context, it core.Item) error {
	device := core.DevicePhone
	if it.Style.FrameStyle != nil && it.Style.Device != "" {
		device = it.Style.Device
	}
	radius := 32.0
	if device == core.DeviceDesktop {
		radius = 8
	}

	dc.SetColor(color.White)
	dc.DrawRoundedRectangle(it.X, it.Y, it.Width, it.Height, radius)
	dc.Fill()

	// faint dot grid inside the screen
	dc.Push()
	dc.DrawRoundedRectangle(it.X, it.Y, it.Width, it.Height, radius)
	dc.Clip()
	dc.SetRGBA(0, 0, 0, 0.1)
	for gx := it.X + gridSpacing/2; gx < it.X+it.Width; gx += gridSpacing {
		for gy := it.Y + gridSpacing/2; gy < it.Y+it.Height; gy += gridSpacing {
			dc.DrawPoint(gx, gy, 0.75)
		}
	}
	dc.Fill()

	switch device {
	case core.DeviceDesktop:
		dc.SetHexColor("#F3F4F6")
		dc.DrawRectangle(it.X, it.Y, it.Width, desktopBar)
		dc.Fill()
		for i, c := range []string{"#F87171", "#FACC15", "#4ADE80"} {
			dc.SetHexColor(c)
			dc.DrawCircle(it.X+frameBorder+10+float64(i)*16, it.Y+desktopBar/2+frameBorder/2, 5)
			dc.Fill()
		}
	case core.DevicePhone:
		dc.SetHexColor(frameInk)
		dc.DrawRoundedRectangle(it.X+(it.Width-notchWidth)/2, it.Y-12, notchWidth, notchHeight+12, 12)
		dc.Fill()
	}
	dc.ResetClip()
	dc.Pop()

	dc.SetHexColor(frameInk)
	dc.SetLineWidth(frameBorder)
	dc.DrawRoundedRectangle(it.X+frameBorder/2, it.Y+frameBorder/2, it.Width-frameBorder, it.Height-frameBorder, radius)
	dc.Stroke()

	label := core.Style{FontFamily: core.FontMono, FontSize: 10}
	face, err := r.faces.face(label)
	if err != nil {
		return err
	}
	dc.SetFontFace(face)
	dc.SetHexColor("#D1D5DB")
	dc.DrawStringAnchored(strings.ToUpper(string(device)), it.X+it.Width/2, it.Y+it.Height-frameBorder-8, 0.5, 0)
	return nil
}

func drawImage(dc *gg.Context, it core.Item) {
	img, err := decodeDataURI(it.Content)
	if err != nil || img == nil {
		dc.SetHexColor(placeholderInk)
		dc.DrawRectangle(it.X, it.Y, it.Width, it.Height)
		dc.Fill()
		dc.SetHexColor("#9CA3AF")
		dc.SetLineWidth(2)
		dc.DrawLine(it.X, it.Y, it.X+it.Width, it.Y+it.Height)
		dc.DrawLine(it.X+it.Width, it.Y, it.X, it.Y+it.Height)
		dc.Stroke()
		return
	}

	// object-fit: cover
	b := img.Bounds()
	iw, ih := float64(b.Dx()), float64(b.Dy())
	if iw == 0 || ih == 0 {
		return
	}
	s := math.Max(it.Width/iw, it.Height/ih)

	dc.Push()
	dc.DrawRectangle(it.X, it.Y, it.Width, it.Height)
	dc.Clip()
	dc.Translate(it.X+(it.Width-iw*s)/2, it.Y+(it.Height-ih*s)/2)
	dc.Scale(s, s)
	dc.DrawImage(img, 0, 0)
	dc.ResetClip()
	dc.Pop()
}

// decodeDataURI decodes an inline base64 image. Remote URLs return nil so the
// caller draws a placeholder; the exporter never fetches over the network.
func decodeDataURI(src string) (image.Image, error) {
	meta, payload, ok := strings.Cut(src, ",")
	if !ok || !strings.HasPrefix(meta, "data:image/") || !strings.HasSuffix(meta, ";base64") {
		return nil, nil
	}
	raw, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, fmt.Errorf("decode data uri: %w", err)
	}
	img, _, err := image.Decode(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}
	return img, nil
}
