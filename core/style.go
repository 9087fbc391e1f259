package core

type (
	FontFamily string
	FontClass  string
	TextAlign  string
	LineDash   string
	ShapeType  string
	LineType   string
	DeviceType string
)

const (
	FontSans            FontFamily = "sans"
	FontSerif           FontFamily = "serif"
	FontMono            FontFamily = "mono"
	FontCursive         FontFamily = "cursive"
	FontSlab            FontFamily = "slab"
	FontRoboto          FontFamily = "roboto"
	FontOswald          FontFamily = "oswald"
	FontMerriweather    FontFamily = "merriweather"
	FontLora            FontFamily = "lora"
	FontOpenSans        FontFamily = "opensans"
	FontMontserrat      FontFamily = "montserrat"
	FontPoppins         FontFamily = "poppins"
	FontRaleway         FontFamily = "raleway"
	FontUbuntu          FontFamily = "ubuntu"
	FontArvo            FontFamily = "arvo"
	FontPacifico        FontFamily = "pacifico"
	FontPermanentMarker FontFamily = "permanentmarker"
)

const (
	FontClassSans   FontClass = "sans"
	FontClassSerif  FontClass = "serif"
	FontClassMono   FontClass = "mono"
	FontClassScript FontClass = "script"
)

const (
	AlignLeft   TextAlign = "left"
	AlignCenter TextAlign = "center"
	AlignRight  TextAlign = "right"
)

const (
	DashSolid  LineDash = "solid"
	DashDashed LineDash = "dashed"
	DashDotted LineDash = "dotted"
)

const (
	ShapeRectangle ShapeType = "rectangle"
	ShapeCircle    ShapeType = "circle"
	ShapeTriangle  ShapeType = "triangle"
)

const (
	LineStraight LineType = "straight"
	LineCurved   LineType = "curved"
)

const (
	DevicePhone   DeviceType = "phone"
	DeviceTablet  DeviceType = "tablet"
	DeviceDesktop DeviceType = "desktop"
)

const (
	DefaultNoteColor  = "#FEF3C7"
	DefaultShapeColor = "#C5A059"
	DefaultTextColor  = "#1a1a1a"
	DefaultFontSize   = 16.0
	Transparent       = "transparent"
)

// fontFace maps each named option to its CSS stack and the class used when rasterising.
var fontFaces = map[FontFamily]struct {
	css   string
	class FontClass
}{
	FontSans:            {`"Inter", sans-serif`, FontClassSans},
	FontSerif:           {`"Playfair Display", serif`, FontClassSerif},
	FontMono:            {`"JetBrains Mono", monospace`, FontClassMono},
	FontCursive:         {`"Dancing Script", cursive`, FontClassScript},
	FontSlab:            {`"Roboto Slab", serif`, FontClassSerif},
	FontRoboto:          {`"Roboto", sans-serif`, FontClassSans},
	FontOswald:          {`"Oswald", sans-serif`, FontClassSans},
	FontMerriweather:    {`"Merriweather", serif`, FontClassSerif},
	FontLora:            {`"Lora", serif`, FontClassSerif},
	FontOpenSans:        {`"Open Sans", sans-serif`, FontClassSans},
	FontMontserrat:      {`"Montserrat", sans-serif`, FontClassSans},
	FontPoppins:         {`"Poppins", sans-serif`, FontClassSans},
	FontRaleway:         {`"Raleway", sans-serif`, FontClassSans},
	FontUbuntu:          {`"Ubuntu", sans-serif`, FontClassSans},
	FontArvo:            {`"Arvo", serif`, FontClassSerif},
	FontPacifico:        {`"Pacifico", cursive`, FontClassScript},
	FontPermanentMarker: {`"Permanent Marker", cursive`, FontClassScript},
}

func (f FontFamily) Valid() bool {
	_, ok := fontFaces[f]
	return ok
}

// CSS returns the font stack for f. Unknown names fall back to sans.
func (f FontFamily) CSS() string {
	if face, ok := fontFaces[f]; ok {
		return face.css
	}
	return fontFaces[FontSans].css
}

func (f FontFamily) Class() FontClass {
	if face, ok := fontFaces[f]; ok {
		return face.class
	}
	return FontClassSans
}

// DevicePreset is a frame size picked before a frame is placed.
type DevicePreset struct {
	Device DeviceType `json:"deviceType"`
	Width  float64    `json:"width"`
	Height float64    `json:"height"`
	Label  string     `json:"label"`
}

var DevicePresets = map[DeviceType]DevicePreset{
	DevicePhone:   {Device: DevicePhone, Width: 375, Height: 812, Label: "Phone"},
	DeviceTablet:  {Device: DeviceTablet, Width: 768, Height: 1024, Label: "Tablet"},
	DeviceDesktop: {Device: DeviceDesktop, Width: 1440, Height: 900, Label: "Desktop"},
}

type (
	Border struct {
		Width float64  `json:"borderWidth,omitempty"`
		Color string   `json:"borderColor,omitempty"`
		Dash  LineDash `json:"borderStyle,omitempty"`
	}

	ShapeStyle struct {
		ShapeType ShapeType `json:"shapeType,omitempty"`
	}

	LineStyle struct {
		LineType LineType `json:"lineType,omitempty"`
	}

	FrameStyle struct {
		Device DeviceType `json:"deviceType,omitempty"`
	}

	// Style holds the attributes shared by every kind plus exactly one
	// kind-specific record for shapes, lines and frames. The records are
	// embedded so the wire form stays a flat attribute bag.
	Style struct {
		Background string     `json:"backgroundColor,omitempty"`
		Color      string     `json:"color,omitempty"`
		FontFamily FontFamily `json:"fontFamily,omitempty"`
		FontSize   float64    `json:"fontSize,omitempty"`
		FontWeight string     `json:"fontWeight,omitempty"`
		FontStyle  string     `json:"fontStyle,omitempty"`
		TextAlign  TextAlign  `json:"textAlign,omitempty"`
		Border

		*ShapeStyle
		*LineStyle
		*FrameStyle
	}

	StylePatch struct {
		Background  *string     `json:"backgroundColor,omitempty"`
		Color       *string     `json:"color,omitempty"`
		FontFamily  *FontFamily `json:"fontFamily,omitempty"`
		FontSize    *float64    `json:"fontSize,omitempty"`
		FontWeight  *string     `json:"fontWeight,omitempty"`
		FontStyle   *string     `json:"fontStyle,omitempty"`
		TextAlign   *TextAlign  `json:"textAlign,omitempty"`
		BorderWidth *float64    `json:"borderWidth,omitempty"`
		BorderColor *string     `json:"borderColor,omitempty"`
		BorderStyle *LineDash   `json:"borderStyle,omitempty"`
		ShapeType   *ShapeType  `json:"shapeType,omitempty"`
		LineType    *LineType   `json:"lineType,omitempty"`
		DeviceType  *DeviceType `json:"deviceType,omitempty"`
	}
)

// NewStyle returns the default style for a freshly created item of kind k.
func NewStyle(k Kind) Style {
	s := Style{
		Background: Transparent,
		Color:      DefaultTextColor,
		FontFamily: FontSans,
		FontSize:   DefaultFontSize,
	}
	switch k {
	case KindNote:
		s.Background = DefaultNoteColor
	case KindShape:
		s.Background = DefaultShapeColor
		s.ShapeStyle = &ShapeStyle{ShapeType: ShapeRectangle}
	case KindLine:
		s.LineStyle = &LineStyle{LineType: LineStraight}
		s.Border = Border{Width: 4, Dash: DashSolid}
	case KindFrame:
		s.FrameStyle = &FrameStyle{Device: DevicePhone}
	case KindText, KindImage:
	}
	return s
}

func (s Style) Clone() Style {
	out := s
	if s.ShapeStyle != nil {
		v := *s.ShapeStyle
		out.ShapeStyle = &v
	}
	if s.LineStyle != nil {
		v := *s.LineStyle
		out.LineStyle = &v
	}
	if s.FrameStyle != nil {
		v := *s.FrameStyle
		out.FrameStyle = &v
	}
	return out
}

// Normalize drops kind-specific records that do not belong to k and fills in
// the one that does.
func (s *Style) Normalize(k Kind) {
	switch k {
	case KindShape:
		s.LineStyle, s.FrameStyle = nil, nil
		if s.ShapeStyle == nil {
			s.ShapeStyle = &ShapeStyle{ShapeType: ShapeRectangle}
		}
	case KindLine:
		s.ShapeStyle, s.FrameStyle = nil, nil
		if s.LineStyle == nil {
			s.LineStyle = &LineStyle{LineType: LineStraight}
		}
	case KindFrame:
		s.ShapeStyle, s.LineStyle = nil, nil
		if s.FrameStyle == nil {
			s.FrameStyle = &FrameStyle{Device: DevicePhone}
		}
	default:
		s.ShapeStyle, s.LineStyle, s.FrameStyle = nil, nil, nil
	}
}

// Apply merges p into s. Kind-specific fields are only applied when s carries
// the matching record, so a line colour cannot leak a device type onto a note.
func (p StylePatch) Apply(s *Style) {
	if p.Background != nil {
		s.Background = *p.Background
	}
	if p.Color != nil {
		s.Color = *p.Color
	}
	if p.FontFamily != nil {
		s.FontFamily = *p.FontFamily
	}
	if p.FontSize != nil {
		s.FontSize = *p.FontSize
	}
	if p.FontWeight != nil {
		s.FontWeight = *p.FontWeight
	}
	if p.FontStyle != nil {
		s.FontStyle = *p.FontStyle
	}
	if p.TextAlign != nil {
		s.TextAlign = *p.TextAlign
	}
	if p.BorderWidth != nil {
		s.Border.Width = *p.BorderWidth
	}
	if p.BorderColor != nil {
		s.Border.Color = *p.BorderColor
	}
	if p.BorderStyle != nil {
		s.Border.Dash = *p.BorderStyle
	}
	if p.ShapeType != nil && s.ShapeStyle != nil {
		s.ShapeStyle.ShapeType = *p.ShapeType
	}
	if p.LineType != nil && s.LineStyle != nil {
		s.LineStyle.LineType = *p.LineType
	}
	if p.DeviceType != nil && s.FrameStyle != nil {
		s.FrameStyle.Device = *p.DeviceType
	}
}
