package render

import (
	"math"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/lucasb-eyer/go-colorful"

	"github.com/ngmaloney/forecast-terminal/internal/models"
	"github.com/ngmaloney/forecast-terminal/internal/view"
)

var coastColor = mustParseHex("#1a1a1a")

// pixel is one half of a terminal character. A nil color is left blank.
type pixel struct {
	color *colorful.Color
}

// glyph is one terminal character of a vector panel.
type glyph struct {
	r     rune
	color colorful.Color
}

// projection maps an extent onto a w×h pixel grid (equirectangular).
type projection struct {
	extent models.Extent
	w, h   int
}

func (p projection) toPixel(lat, lon float64) (x, y float64) {
	if p.extent.LonMax > 180 && lon < 0 {
		lon += 360
	}
	x = (lon - p.extent.LonMin) / (p.extent.LonMax - p.extent.LonMin) * float64(p.w)
	y = (p.extent.LatMax - lat) / (p.extent.LatMax - p.extent.LatMin) * float64(p.h)
	return x, y
}

func (p projection) toGeo(x, y int) (lat, lon float64) {
	lon = p.extent.LonMin + (float64(x)+0.5)/float64(p.w)*(p.extent.LonMax-p.extent.LonMin)
	lat = p.extent.LatMax - (float64(y)+0.5)/float64(p.h)*(p.extent.LatMax-p.extent.LatMin)
	return lat, lon
}

// Map draws the map area of a cell into width×height characters. Each
// character holds two vertically stacked pixels.
func Map(cell view.Cell, width, height int, coast []models.Polyline) string {
	if width <= 0 || height <= 0 {
		return ""
	}
	proj := projection{extent: cell.Extent, w: width, h: height * 2}
	pixels := make([]pixel, proj.w*proj.h)
	if cell.Scalar != nil {
		fillScalar(pixels, proj, cell.Scalar, ColormapFor(cell.Scale.Palette), cell.Scale)
	}
	drawCoast(pixels, proj, coast)

	var glyphs map[int]glyph
	if cell.Vector != nil {
		glyphs = arrowGlyphs(cell, proj)
	}
	return compose(pixels, glyphs, width, height)
}

func fillScalar(pixels []pixel, proj projection, s *view.ScalarSlice, cmap Colormap, scale view.Scale) {
	for y := 0; y < proj.h; y++ {
		for x := 0; x < proj.w; x++ {
			v := s.Sample(proj.toGeo(x, y))
			if math.IsNaN(v) {
				continue
			}
			c := cmap.At(scale.Normalize(v))
			pixels[y*proj.w+x].color = &c
		}
	}
}

func drawCoast(pixels []pixel, proj projection, coast []models.Polyline) {
	c := coastColor
	for _, line := range coast {
		for k := 1; k < len(line); k++ {
			x0, y0 := proj.toPixel(line[k-1].Lat, line[k-1].Lon)
			x1, y1 := proj.toPixel(line[k].Lat, line[k].Lon)
			// Segments crossing the seam would streak across the panel.
			if math.Abs(x1-x0) > float64(proj.w)/2 {
				continue
			}
			plotLine(int(math.Floor(x0)), int(math.Floor(y0)), int(math.Floor(x1)), int(math.Floor(y1)), func(x, y int) {
				if x >= 0 && x < proj.w && y >= 0 && y < proj.h {
					pixels[y*proj.w+x].color = &c
				}
			})
		}
	}
}

// plotLine is Bresenham's line algorithm.
func plotLine(x0, y0, x1, y1 int, plot func(x, y int)) {
	dx := abs(x1 - x0)
	dy := -abs(y1 - y0)
	sx, sy := 1, 1
	if x0 > x1 {
		sx = -1
	}
	if y0 > y1 {
		sy = -1
	}
	e := dx + dy
	for {
		plot(x0, y0)
		if x0 == x1 && y0 == y1 {
			return
		}
		e2 := 2 * e
		if e2 >= dy {
			e += dy
			x0 += sx
		}
		if e2 <= dx {
			e += dx
			y0 += sy
		}
	}
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}

var (
	thinArrows  = []rune("→↗↑↖←↙↓↘")
	heavyArrows = []rune("⇒⇗⇑⇖⇐⇙⇓⇘")
)

// arrowRune picks a glyph for a vector whose drawn length is n characters.
func arrowRune(u, v, n float64) rune {
	if n < 0.75 {
		return '·'
	}
	sector := int(math.Round(math.Atan2(v, u)/(math.Pi/4))) & 7
	if n < 3 {
		return thinArrows[sector]
	}
	return heavyArrows[sector]
}

// arrowGlyphs averages the decimated vectors falling in each character and
// keys the result by character index.
func arrowGlyphs(cell view.Cell, proj projection) map[int]glyph {
	type acc struct {
		u, v float64
		n    int
	}
	w, h := proj.w, proj.h/2
	sums := map[int]*acc{}
	for _, a := range cell.Vector.Arrows(cell.Stride) {
		px, py := proj.toPixel(a.Lat, a.Lon)
		x, y := int(math.Floor(px)), int(math.Floor(py/2))
		if x < 0 || x >= w || y < 0 || y >= h {
			continue
		}
		k := y*w + x
		if sums[k] == nil {
			sums[k] = &acc{}
		}
		sums[k].u += a.U
		sums[k].v += a.V
		sums[k].n++
	}

	cmap := ColormapFor(cell.Scale.Palette)
	arrowScale := cell.ArrowScale
	if arrowScale <= 0 {
		arrowScale = 1
	}
	glyphs := make(map[int]glyph, len(sums))
	for k, s := range sums {
		u, v := s.u/float64(s.n), s.v/float64(s.n)
		speed := math.Hypot(u, v)
		length := speed / arrowScale * float64(w)
		glyphs[k] = glyph{r: arrowRune(u, v, length), color: cmap.At(cell.Scale.Normalize(speed))}
	}
	return glyphs
}

// compose turns pixels and glyphs into styled lines, batching runs of the
// same style into one Render call.
func compose(pixels []pixel, glyphs map[int]glyph, width, height int) string {
	styles := map[string]lipgloss.Style{}
	styleFor := func(fg, bg *colorful.Color) (string, lipgloss.Style) {
		key := hexOf(fg) + "/" + hexOf(bg)
		if s, ok := styles[key]; ok {
			return key, s
		}
		s := lipgloss.NewStyle()
		if fg != nil {
			s = s.Foreground(lipgloss.Color(fg.Hex()))
		}
		if bg != nil {
			s = s.Background(lipgloss.Color(bg.Hex()))
		}
		styles[key] = s
		return key, s
	}

	var b strings.Builder
	for y := 0; y < height; y++ {
		var run strings.Builder
		runKey := ""
		var runStyle lipgloss.Style
		flush := func() {
			if run.Len() > 0 {
				b.WriteString(runStyle.Render(run.String()))
				run.Reset()
			}
		}
		for x := 0; x < width; x++ {
			top := pixels[(2*y)*width+x].color
			bottom := pixels[(2*y+1)*width+x].color

			var r rune
			var fg, bg *colorful.Color
			if g, ok := glyphs[y*width+x]; ok {
				c := g.color
				r, fg, bg = g.r, &c, nil
			} else {
				r, fg, bg = halfBlock(top, bottom)
			}
			key, style := styleFor(fg, bg)
			if key != runKey {
				flush()
				runKey, runStyle = key, style
			}
			run.WriteRune(r)
		}
		flush()
		if y < height-1 {
			b.WriteByte('\n')
		}
	}
	return b.String()
}

func halfBlock(top, bottom *colorful.Color) (rune, *colorful.Color, *colorful.Color) {
	switch {
	case top == nil && bottom == nil:
		return ' ', nil, nil
	case bottom == nil:
		return '▀', top, nil
	case top == nil:
		return '▄', bottom, nil
	default:
		return '▀', top, bottom
	}
}

func hexOf(c *colorful.Color) string {
	if c == nil {
		return ""
	}
	return c.Hex()
}
