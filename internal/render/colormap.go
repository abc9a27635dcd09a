// Package render draws view cells as styled terminal text.
package render

import (
	"math"

	"github.com/lucasb-eyer/go-colorful"

	"github.com/ngmaloney/forecast-terminal/internal/view"
)

// Colormap interpolates evenly spaced color stops in Lab space.
type Colormap struct {
	stops []colorful.Color
}

func newColormap(hexes ...string) Colormap {
	stops := make([]colorful.Color, len(hexes))
	for i, h := range hexes {
		stops[i] = mustParseHex(h)
	}
	return Colormap{stops: stops}
}

var colormaps = map[view.Palette]Colormap{
	view.Blues: newColormap("#f7fbff", "#deebf7", "#c6dbef", "#9ecae1", "#6baed6",
		"#4292c6", "#2171b5", "#08519c", "#08306b"),
	view.Coolwarm: newColormap("#3b4cc0", "#6788ee", "#9abbff", "#c9d7f0",
		"#edd1c2", "#f7a889", "#e26952", "#b40426"),
	view.Bone: newColormap("#000000", "#38384d", "#708585", "#a7c7c7", "#ffffff"),
}

// ColormapFor returns the colormap of a palette, Blues if unknown.
func ColormapFor(p view.Palette) Colormap {
	if c, ok := colormaps[p]; ok {
		return c
	}
	return colormaps[view.Blues]
}

// At returns the color at t, clamped to [0, 1].
func (c Colormap) At(t float64) colorful.Color {
	if math.IsNaN(t) || t <= 0 {
		return c.stops[0]
	}
	if t >= 1 {
		return c.stops[len(c.stops)-1]
	}
	pos := t * float64(len(c.stops)-1)
	k := int(pos)
	return c.stops[k].BlendLab(c.stops[k+1], pos-float64(k)).Clamped()
}

// mustParseHex parses a "#rrggbb" literal, panicking if it is malformed.
func mustParseHex(s string) colorful.Color {
	c, err := colorful.Hex(s)
	if err != nil {
		panic("mustParseHex: " + err.Error())
	}
	return c
}
