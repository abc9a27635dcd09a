package models

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGridExtentAndNearest(t *testing.T) {
	// North-to-south rows, like most GRIB grids.
	g := Grid{Ni: 5, Nj: 3, Lat0: 60, Lon0: 10, DLat: -1, DLon: 0.5}

	assert.Equal(t, Extent{LonMin: 10, LonMax: 12, LatMin: 58, LatMax: 60}, g.Extent())
	assert.Equal(t, []float64{60, 59, 58}, g.Lats())
	assert.Equal(t, []float64{10, 10.5, 11, 11.5, 12}, g.Lons())

	j, i, ok := g.Nearest(59.2, 11.4)
	require.True(t, ok)
	assert.Equal(t, 1, j)
	assert.Equal(t, 3, i)

	_, _, ok = g.Nearest(50, 11)
	assert.False(t, ok)
}

func TestGridNearestWrapsGlobalLongitudes(t *testing.T) {
	g := Grid{Ni: 360, Nj: 181, Lat0: 90, Lon0: -180, DLat: -1, DLon: 1}

	_, i, ok := g.Nearest(0, 179.8)
	require.True(t, ok)
	assert.Equal(t, 0, i, "179.8 rounds onto the seam at -180")

	_, i, ok = g.Nearest(0, 190)
	require.True(t, ok)
	assert.Equal(t, 10, i)
}

func TestDatasetValidate(t *testing.T) {
	g := Grid{Ni: 2, Nj: 1, DLat: -1, DLon: 1}
	ds := &Dataset{
		Name:  "regional",
		Grid:  g,
		Steps: []time.Duration{0, 6 * time.Hour},
		Fields: map[string]*Field{
			"10u": {Name: "10u", Values: [][]float32{{1, 2}, {3, 4}}},
		},
	}
	require.NoError(t, ds.Validate())

	ds.Fields["10v"] = &Field{Name: "10v", Values: [][]float32{{1, 2}}}
	assert.Error(t, ds.Validate())
}

func TestDatasetValidTime(t *testing.T) {
	ref := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	ds := &Dataset{Reference: ref, Steps: []time.Duration{0, 6 * time.Hour}}

	vt, ok := ds.ValidTime(1)
	require.True(t, ok)
	assert.Equal(t, ref.Add(6*time.Hour), vt)

	_, ok = ds.ValidTime(2)
	assert.False(t, ok)

	var missing *Dataset
	_, ok = missing.ValidTime(0)
	assert.False(t, ok)
	assert.Equal(t, 0, missing.StepCount())
}

func TestFieldAtOutOfRangeStep(t *testing.T) {
	f := &Field{Values: [][]float32{{1}}}
	assert.True(t, math.IsNaN(f.At(3, Grid{Ni: 1, Nj: 1}, 0, 0)))
	assert.Equal(t, 1.0, f.At(0, Grid{Ni: 1, Nj: 1}, 0, 0))
}
