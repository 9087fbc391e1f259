package export

import (
	"fmt"
	"sync"

	"ideation-workspace/core"

	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/gobolditalic"
	"golang.org/x/image/font/gofont/goitalic"
	"golang.org/x/image/font/gofont/gomedium"
	"golang.org/x/image/font/gofont/gomediumitalic"
	"golang.org/x/image/font/gofont/gomono"
	"golang.org/x/image/font/gofont/gomonobold"
	"golang.org/x/image/font/gofont/gomonobolditalic"
	"golang.org/x/image/font/gofont/gomonoitalic"
	"golang.org/x/image/font/gofont/goregular"
)

type variant struct {
	bold   bool
	italic bool
}

// faceFiles maps each font class and variant to the bundled TTF used to draw it.
var faceFiles = map[core.FontClass]map[variant][]byte{
	core.FontClassSans: {
		{false, false}: goregular.TTF,
		{true, false}:  gobold.TTF,
		{false, true}:  goitalic.TTF,
		{true, true}:   gobolditalic.TTF,
	},
	core.FontClassSerif: {
		{false, false}: gomedium.TTF,
		{true, false}:  gobold.TTF,
		{false, true}:  gomediumitalic.TTF,
		{true, true}:   gobolditalic.TTF,
	},
	core.FontClassMono: {
		{false, false}: gomono.TTF,
		{true, false}:  gomonobold.TTF,
		{false, true}:  gomonoitalic.TTF,
		{true, true}:   gomonobolditalic.TTF,
	},
	core.FontClassScript: {
		{false, false}: goitalic.TTF,
		{true, false}:  gobolditalic.TTF,
		{false, true}:  goitalic.TTF,
		{true, true}:   gobolditalic.TTF,
	},
}

type faceKey struct {
	class core.FontClass
	v     variant
	size  float64
}

// faceCache parses each TTF once and keeps one face per size.
type faceCache struct {
	mu    sync.Mutex
	fonts map[*byte]*truetype.Font
	faces map[faceKey]font.Face
}

func newFaceCache() *faceCache {
	return &faceCache{
		fonts: make(map[*byte]*truetype.Font),
		faces: make(map[faceKey]font.Face),
	}
}

func isBold(weight string) bool {
	switch weight {
	case "bold", "bolder", "600", "700", "800", "900":
		return true
	}
	return false
}

func (c *faceCache) face(style core.Style) (font.Face, error) {
	size := style.FontSize
	if size <= 0 {
		size = core.DefaultFontSize
	}
	key := faceKey{
		class: style.FontFamily.Class(),
		v:     variant{bold: isBold(style.FontWeight), italic: style.FontStyle == "italic"},
		size:  size,
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if f, ok := c.faces[key]; ok {
		return f, nil
	}

	data := faceFiles[key.class][key.v]
	if data == nil {
		data = goregular.TTF
	}
	ttf, ok := c.fonts[&data[0]]
	if !ok {
		var err error
		ttf, err = truetype.Parse(data)
		if err != nil {
			return nil, fmt.Errorf("parse font: %w", err)
		}
		c.fonts[&data[0]] = ttf
	}

	f := truetype.NewFace(ttf, &truetype.Options{
		Size:    size,
		DPI:     72,
		Hinting: font.HintingFull,
	})
	c.faces[key] = f
	return f, nil
}
