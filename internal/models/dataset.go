package models

import (
	"fmt"
	"math"
	"time"
)

// Grid is a regular latitude/longitude grid. Values are stored row-major,
// one row per latitude.
type Grid struct {
	Ni   int     // points along a parallel (longitudes)
	Nj   int     // points along a meridian (latitudes)
	Lat0 float64 // latitude of the first row
	Lon0 float64 // longitude of the first column
	DLat float64 // signed latitude increment between rows
	DLon float64 // signed longitude increment between columns
}

// Len returns the number of grid points.
func (g Grid) Len() int {
	return g.Ni * g.Nj
}

func (g Grid) Lat(j int) float64 {
	return g.Lat0 + float64(j)*g.DLat
}

func (g Grid) Lon(i int) float64 {
	return g.Lon0 + float64(i)*g.DLon
}

// Lats returns the latitude coordinate array.
func (g Grid) Lats() []float64 {
	lats := make([]float64, g.Nj)
	for j := range lats {
		lats[j] = g.Lat(j)
	}
	return lats
}

// Lons returns the longitude coordinate array.
func (g Grid) Lons() []float64 {
	lons := make([]float64, g.Ni)
	for i := range lons {
		lons[i] = g.Lon(i)
	}
	return lons
}

// Extent returns the min/max of the grid's own coordinate arrays.
func (g Grid) Extent() Extent {
	if g.Ni == 0 || g.Nj == 0 {
		return Extent{}
	}
	lat1, lat2 := g.Lat(0), g.Lat(g.Nj-1)
	lon1, lon2 := g.Lon(0), g.Lon(g.Ni-1)
	return Extent{
		LonMin: math.Min(lon1, lon2),
		LonMax: math.Max(lon1, lon2),
		LatMin: math.Min(lat1, lat2),
		LatMax: math.Max(lat1, lat2),
	}
}

// wraps reports whether the grid covers the full circle of longitudes.
func (g Grid) wraps() bool {
	return math.Abs(float64(g.Ni)*g.DLon) >= 359.5
}

// Nearest returns the row and column of the grid point closest to (lat, lon).
func (g Grid) Nearest(lat, lon float64) (j, i int, ok bool) {
	if g.Ni == 0 || g.Nj == 0 || g.DLat == 0 || g.DLon == 0 {
		return 0, 0, false
	}
	j = int(math.Round((lat - g.Lat0) / g.DLat))
	if g.wraps() {
		lon = math.Mod(lon-g.Lon0, 360)
		if lon < 0 {
			lon += 360
		}
		lon += g.Lon0
	}
	i = int(math.Round((lon - g.Lon0) / g.DLon))
	if g.wraps() && i == g.Ni {
		i = 0
	}
	if j < 0 || j >= g.Nj || i < 0 || i >= g.Ni {
		return 0, 0, false
	}
	return j, i, true
}

// Field is one parameter family of a dataset: one value slice per time step.
type Field struct {
	Name   string // GRIB short name, e.g. "tp", "10u"
	Units  string
	Level  string // type of level, e.g. "surface", "entireAtmosphere"
	Values [][]float32
}

// At returns the value at (step, j, i); NaN marks missing points.
func (f *Field) At(step int, g Grid, j, i int) float64 {
	if step < 0 || step >= len(f.Values) {
		return math.NaN()
	}
	return float64(f.Values[step][j*g.Ni+i])
}

// Dataset is a named collection of gridded fields sharing one time-step axis.
type Dataset struct {
	Name      string
	Reference time.Time
	Grid      Grid
	Steps     []time.Duration
	Fields    map[string]*Field
}

// StepCount returns the length of the time-step axis.
func (d *Dataset) StepCount() int {
	if d == nil {
		return 0
	}
	return len(d.Steps)
}

// ValidTime returns the valid time at step index i.
func (d *Dataset) ValidTime(i int) (time.Time, bool) {
	if d == nil || i < 0 || i >= len(d.Steps) || d.Reference.IsZero() {
		return time.Time{}, false
	}
	return d.Reference.Add(d.Steps[i]), true
}

// Field looks up a field by short name.
func (d *Dataset) Field(name string) (*Field, bool) {
	if d == nil {
		return nil, false
	}
	f, ok := d.Fields[name]
	return f, ok
}

// Validate checks that every field shares the dataset's step axis and grid size.
func (d *Dataset) Validate() error {
	for name, f := range d.Fields {
		if len(f.Values) != len(d.Steps) {
			return fmt.Errorf("%s: field %s has %d steps, dataset has %d", d.Name, name, len(f.Values), len(d.Steps))
		}
		for s, v := range f.Values {
			if len(v) != d.Grid.Len() {
				return fmt.Errorf("%s: field %s step %d has %d points, grid has %d", d.Name, name, s, len(v), d.Grid.Len())
			}
		}
	}
	return nil
}

// Close drops the value arrays so the memory can be reclaimed.
func (d *Dataset) Close() error {
	if d == nil {
		return nil
	}
	for _, f := range d.Fields {
		f.Values = nil
	}
	return nil
}

// Outcome is the result of one acquisition cycle after the datasets were opened.
type Outcome struct {
	Run        RunID
	Global     *Dataset
	Regional   *Dataset
	IsNew      bool
	AcquiredAt time.Time
}

// Snapshot is what the forecast repository currently holds.
type Snapshot struct {
	Run        RunID
	Global     *Dataset
	Regional   *Dataset
	AcquiredAt time.Time
}
