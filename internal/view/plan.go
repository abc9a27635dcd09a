package view

import (
	"fmt"
	"math"
	"time"

	"github.com/ngmaloney/forecast-terminal/internal/models"
)

// Palette names a sequential or diverging color scale.
type Palette int

const (
	Blues Palette = iota
	Coolwarm
	Bone
)

func (p Palette) String() string {
	switch p {
	case Blues:
		return "Blues"
	case Coolwarm:
		return "coolwarm"
	case Bone:
		return "bone"
	default:
		return "unknown"
	}
}

// Scale fixes a panel's color mapping so panels stay comparable across
// time steps.
type Scale struct {
	Min     float64
	Max     float64
	Palette Palette
	Label   string
}

// Normalize maps v into [0, 1]; NaN passes through.
func (s Scale) Normalize(v float64) float64 {
	if math.IsNaN(v) || s.Max == s.Min {
		return v
	}
	t := (v - s.Min) / (s.Max - s.Min)
	return math.Max(0, math.Min(1, t))
}

// ScalarSlice is one field at one time step. Values are shared with the
// dataset and multiplied by Factor on read.
type ScalarSlice struct {
	Grid   models.Grid
	Values []float32
	Factor float64
}

// At returns the scaled value at grid point (j, i).
func (s *ScalarSlice) At(j, i int) float64 {
	return float64(s.Values[j*s.Grid.Ni+i]) * s.Factor
}

// Sample returns the scaled value nearest to (lat, lon), NaN outside the grid.
func (s *ScalarSlice) Sample(lat, lon float64) float64 {
	j, i, ok := s.Grid.Nearest(lat, lon)
	if !ok {
		return math.NaN()
	}
	return s.At(j, i)
}

// Arrow is one decimated wind vector.
type Arrow struct {
	Lat, Lon float64
	U, V     float64
}

// Speed returns the vector magnitude.
func (a Arrow) Speed() float64 {
	return math.Hypot(a.U, a.V)
}

// VectorSlice is a u/v pair at one time step.
type VectorSlice struct {
	Grid models.Grid
	U    []float32
	V    []float32
}

// Arrows returns every stride-th vector in both grid directions, skipping
// missing points.
func (s *VectorSlice) Arrows(stride int) []Arrow {
	if stride < 1 {
		stride = 1
	}
	g := s.Grid
	arrows := make([]Arrow, 0, (g.Nj/stride+1)*(g.Ni/stride+1))
	for j := 0; j < g.Nj; j += stride {
		for i := 0; i < g.Ni; i += stride {
			k := j*g.Ni + i
			u, v := float64(s.U[k]), float64(s.V[k])
			if math.IsNaN(u) || math.IsNaN(v) {
				continue
			}
			arrows = append(arrows, Arrow{Lat: g.Lat(j), Lon: g.Lon(i), U: u, V: v})
		}
	}
	return arrows
}

// Cell is the drawing specification for one panel of the grid.
type Cell struct {
	Parameter models.ParameterKind
	Region    models.RegionKind
	Row       int
	Col       int
	Title     string
	Extent    models.Extent
	Scale     Scale

	// Exactly one of Scalar and Vector is set unless Missing is non-empty.
	Scalar *ScalarSlice
	Vector *VectorSlice

	// Stride and ArrowScale style vector cells. A larger ArrowScale draws
	// shorter arrows.
	Stride     int
	ArrowScale float64

	WidthFraction  float64
	HeightFraction float64

	// Missing explains why the cell has no data.
	Missing string
}

// Plan is the complete description of one redraw.
type Plan struct {
	Rows      int
	Cols      int
	Cells     []Cell
	TimeIndex int
	TimeLabel string
	Steps     []time.Duration
}

// Empty reports whether nothing is to be drawn.
func (p Plan) Empty() bool {
	return len(p.Cells) == 0
}

const timeLabelLayout = "2006-01-02 15:04 UTC"

var (
	precipScale = Scale{Min: 0, Max: 0.05, Palette: Blues, Label: "Precipitation (m)"}
	windScale   = Scale{Min: 0, Max: 40, Palette: Coolwarm, Label: "Wind speed (m/s)"}
	cloudScale  = Scale{Min: 0, Max: 100, Palette: Bone, Label: "Cloud cover (%)"}
)

type regionStyle struct {
	precipField string
	stride      int
	arrowScale  float64
	widthWeight float64
}

var regionStyles = map[models.RegionKind]regionStyle{
	models.Global:   {precipField: "tp", stride: 10, arrowScale: 700, widthWeight: 1.5},
	models.Regional: {precipField: "rain_con", stride: 4, arrowScale: 150, widthWeight: 1.0},
}

// StepCount is the length of the time axis the slider spans: the global
// dataset's, or the regional one's when no global data is held.
func StepCount(global, regional *models.Dataset) int {
	if n := global.StepCount(); n > 0 {
		return n
	}
	return regional.StepCount()
}

// Recompute derives the render plan from the filters and the datasets. It
// reads its inputs only and has no side effects.
func Recompute(f FilterState, global, regional *models.Dataset, acquiredAt time.Time) Plan {
	plan := Plan{
		TimeIndex: f.TimeIndex(),
		TimeLabel: timeLabel(f.TimeIndex(), global, acquiredAt),
		Steps:     steps(global, regional),
	}

	params := f.Parameters()
	regions := f.Regions()
	if len(params) == 0 || len(regions) == 0 {
		return plan
	}
	plan.Rows, plan.Cols = len(params), len(regions)

	var totalWeight float64
	for _, r := range regions {
		totalWeight += regionStyles[r].widthWeight
	}

	for row, p := range params {
		for col, r := range regions {
			ds := global
			if r == models.Regional {
				ds = regional
			}
			cell := buildCell(p, r, ds, f.TimeIndex())
			cell.Row, cell.Col = row, col
			cell.WidthFraction = regionStyles[r].widthWeight / totalWeight
			cell.HeightFraction = 1 / float64(len(params))
			plan.Cells = append(plan.Cells, cell)
		}
	}
	return plan
}

func buildCell(p models.ParameterKind, r models.RegionKind, ds *models.Dataset, step int) Cell {
	style := regionStyles[r]
	cell := Cell{
		Parameter: p,
		Region:    r,
		Title:     fmt.Sprintf("%s (%s)", p, r),
		Extent:    extent(r, ds),
	}

	switch {
	case ds == nil:
		cell.Missing = "no data"
	case step >= ds.StepCount():
		cell.Missing = "no data at this step"
	}

	switch p {
	case models.Precipitation:
		cell.Scale = precipScale
		if cell.Missing == "" {
			cell.Scalar, cell.Missing = scalar(ds, style.precipField, step, precipFactor)
		}
	case models.CloudCover:
		cell.Scale = cloudScale
		if cell.Missing == "" {
			cell.Scalar, cell.Missing = scalar(ds, "tcc", step, cloudFactor)
		}
	case models.Wind:
		cell.Scale = windScale
		cell.Stride = style.stride
		cell.ArrowScale = style.arrowScale
		if cell.Missing == "" {
			cell.Vector, cell.Missing = vector(ds, step)
		}
	}
	return cell
}

var worldExtent = models.Extent{LonMin: -180, LonMax: 180, LatMin: -90, LatMax: 90}

func extent(r models.RegionKind, ds *models.Dataset) models.Extent {
	switch {
	case r == models.Regional:
		return models.ScandinaviaExtent
	case ds == nil:
		return worldExtent
	default:
		return ds.Grid.Extent()
	}
}

func scalar(ds *models.Dataset, name string, step int, factor func(units string) float64) (*ScalarSlice, string) {
	f, ok := ds.Field(name)
	if !ok {
		return nil, name + " not in dataset"
	}
	return &ScalarSlice{Grid: ds.Grid, Values: f.Values[step], Factor: factor(f.Units)}, ""
}

func vector(ds *models.Dataset, step int) (*VectorSlice, string) {
	u, ok := ds.Field("10u")
	if !ok {
		return nil, "10u not in dataset"
	}
	v, ok := ds.Field("10v")
	if !ok {
		return nil, "10v not in dataset"
	}
	return &VectorSlice{Grid: ds.Grid, U: u.Values[step], V: v.Values[step]}, ""
}

// precipFactor converts accumulations to metres.
func precipFactor(units string) float64 {
	switch units {
	case "kg m-2", "mm":
		return 1e-3
	default:
		return 1
	}
}

// cloudFactor converts cloud cover to percent.
func cloudFactor(units string) float64 {
	switch units {
	case "(0 - 1)", "1", "fraction":
		return 100
	default:
		return 1
	}
}

func timeLabel(step int, global *models.Dataset, acquiredAt time.Time) string {
	if t, ok := global.ValidTime(step); ok {
		return t.UTC().Format(timeLabelLayout)
	}
	if !acquiredAt.IsZero() {
		return acquiredAt.UTC().Format(timeLabelLayout)
	}
	return "no forecast loaded"
}

func steps(global, regional *models.Dataset) []time.Duration {
	if global.StepCount() > 0 {
		return global.Steps
	}
	if regional.StepCount() > 0 {
		return regional.Steps
	}
	return nil
}

// TickLabels returns slider tick positions and their labels in hours, at
// most about ten of them.
func (p Plan) TickLabels() map[int]string {
	n := len(p.Steps)
	if n == 0 {
		return nil
	}
	every := max(1, n/10)
	ticks := make(map[int]string, n/every+1)
	for i := 0; i < n; i += every {
		ticks[i] = fmt.Sprintf("%.0fh", p.Steps[i].Hours())
	}
	return ticks
}
