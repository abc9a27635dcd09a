package view

import (
	"errors"
	"fmt"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ngmaloney/forecast-terminal/internal/models"
)

var testReference = time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

// testDataset fills every field with step+1 at every point.
func testDataset(name string, grid models.Grid, steps int, units map[string]string) *models.Dataset {
	ds := &models.Dataset{
		Name:      name,
		Reference: testReference,
		Grid:      grid,
		Fields:    map[string]*models.Field{},
	}
	for s := 0; s < steps; s++ {
		ds.Steps = append(ds.Steps, time.Duration(s)*6*time.Hour)
	}
	for field, u := range units {
		f := &models.Field{Name: field, Units: u}
		for s := 0; s < steps; s++ {
			vals := make([]float32, grid.Len())
			for k := range vals {
				vals[k] = float32(s + 1)
			}
			f.Values = append(f.Values, vals)
		}
		ds.Fields[field] = f
	}
	return ds
}

var (
	globalGrid   = models.Grid{Ni: 40, Nj: 20, Lat0: 90, Lon0: 0, DLat: -9, DLon: 9}
	regionalGrid = models.Grid{Ni: 27, Nj: 19, Lat0: 54, Lon0: 5, DLat: 1, DLon: 1}
)

func globalDataset(steps int) *models.Dataset {
	return testDataset("global", globalGrid, steps, map[string]string{
		"tp": "m", "10u": "m s-1", "10v": "m s-1", "tcc": "%",
	})
}

func regionalDataset(steps int) *models.Dataset {
	return testDataset("regional", regionalGrid, steps, map[string]string{
		"rain_con": "kg m-2", "10u": "m s-1", "10v": "m s-1", "tcc": "%",
	})
}

func TestDefaultFilterState(t *testing.T) {
	f := DefaultFilterState()
	assert.Equal(t, []models.ParameterKind{models.Precipitation}, f.Parameters())
	assert.Equal(t, []models.RegionKind{models.Global, models.Regional}, f.Regions())
	assert.Equal(t, 0, f.TimeIndex())
}

func TestNext(t *testing.T) {
	start := DefaultFilterState()

	t.Run("toggle parameter on", func(t *testing.T) {
		next := Next(start, ToggleParameter{Parameter: models.Wind}, 9)
		assert.True(t, next.HasParameter(models.Wind))
		assert.True(t, next.HasParameter(models.Precipitation))
		assert.False(t, start.HasParameter(models.Wind), "state is a value")
	})

	t.Run("toggle region off", func(t *testing.T) {
		next := Next(start, ToggleRegion{Region: models.Global}, 9)
		assert.Equal(t, []models.RegionKind{models.Regional}, next.Regions())
	})

	t.Run("set time clamps", func(t *testing.T) {
		assert.Equal(t, 0, Next(start, SetTime{Index: -1}, 9).TimeIndex())
		assert.Equal(t, 8, Next(start, SetTime{Index: 99}, 9).TimeIndex())
		assert.Equal(t, 4, Next(start, SetTime{Index: 4}, 9).TimeIndex())
		assert.Equal(t, 0, Next(start, SetTime{Index: 4}, 0).TimeIndex())
	})

	t.Run("reload reclamps against a shorter run", func(t *testing.T) {
		s := Next(start, SetTime{Index: 8}, 9)
		assert.Equal(t, 2, Next(s, Reload{}, 3).TimeIndex())
		assert.Equal(t, s.Parameters(), Next(s, Reload{}, 3).Parameters())
	})
}

func TestRecomputeIsPure(t *testing.T) {
	g, r := globalDataset(3), regionalDataset(3)
	f := NewFilterState(models.Parameters, models.Regions, 1)
	before := g.Fields["tp"].Values[1][0]

	first := Recompute(f, g, r, time.Time{})
	second := Recompute(f, g, r, time.Time{})

	assert.Equal(t, first, second)
	assert.Equal(t, before, g.Fields["tp"].Values[1][0])
	assert.Len(t, g.Steps, 3)
}

func TestToggleTwiceRestoresPlan(t *testing.T) {
	g, r := globalDataset(3), regionalDataset(3)
	start := Next(DefaultFilterState(), ToggleParameter{Parameter: models.CloudCover}, 3)

	for _, ev := range []Event{
		ToggleParameter{Parameter: models.Wind},
		ToggleParameter{Parameter: models.Precipitation},
		ToggleRegion{Region: models.Regional},
	} {
		t.Run(fmt.Sprintf("%T", ev), func(t *testing.T) {
			back := Next(Next(start, ev, 3), ev, 3)
			assert.Equal(t, Recompute(start, g, r, time.Time{}), Recompute(back, g, r, time.Time{}))
		})
	}
}

func TestRecomputeRegionalPrecipitationAtLastStep(t *testing.T) {
	r := regionalDataset(3)
	f := NewFilterState([]models.ParameterKind{models.Precipitation}, []models.RegionKind{models.Regional}, 0)
	f = Next(f, SetTime{Index: 2}, 3)

	plan := Recompute(f, nil, r, time.Time{})

	require.Len(t, plan.Cells, 1)
	assert.Equal(t, 1, plan.Rows)
	assert.Equal(t, 1, plan.Cols)

	cell := plan.Cells[0]
	assert.Equal(t, models.Precipitation, cell.Parameter)
	assert.Equal(t, models.Regional, cell.Region)
	assert.Equal(t, "Total Precipitation (Scandinavia)", cell.Title)
	assert.Equal(t, models.ScandinaviaExtent, cell.Extent)
	assert.Empty(t, cell.Missing)
	require.NotNil(t, cell.Scalar)
	assert.Equal(t, r.Fields["rain_con"].Values[2], cell.Scalar.Values)
	// kg m-2 is converted to metres.
	assert.InDelta(t, 0.003, cell.Scalar.At(0, 0), 1e-9)
	assert.Equal(t, 0.05, cell.Scale.Max)
	assert.Equal(t, Blues, cell.Scale.Palette)
}

func TestRecomputeEmptySelection(t *testing.T) {
	g, r := globalDataset(3), regionalDataset(3)
	f := Next(DefaultFilterState(), ToggleParameter{Parameter: models.Precipitation}, 3)

	plan := Recompute(f, g, r, time.Time{})

	assert.True(t, plan.Empty())
	assert.Zero(t, plan.Rows)
	assert.Zero(t, plan.Cols)
	assert.Equal(t, "2024-03-01 00:00 UTC", plan.TimeLabel)
}

func TestRecomputeGridLayout(t *testing.T) {
	g, r := globalDataset(3), regionalDataset(3)
	f := NewFilterState(models.Parameters, models.Regions, 0)

	plan := Recompute(f, g, r, time.Time{})

	require.Len(t, plan.Cells, 6)
	assert.Equal(t, 3, plan.Rows)
	assert.Equal(t, 2, plan.Cols)
	for k, cell := range plan.Cells {
		assert.Equal(t, k/2, cell.Row)
		assert.Equal(t, k%2, cell.Col)
		assert.Equal(t, models.Parameters[k/2], cell.Parameter)
		assert.Equal(t, models.Regions[k%2], cell.Region)
		assert.InDelta(t, 1.0/3, cell.HeightFraction, 1e-9)
	}
	assert.InDelta(t, 0.6, plan.Cells[0].WidthFraction, 1e-9)
	assert.InDelta(t, 0.4, plan.Cells[1].WidthFraction, 1e-9)
	assert.Equal(t, globalGrid.Extent(), plan.Cells[0].Extent)
}

func TestRecomputeWindStyling(t *testing.T) {
	// Same velocity field on both sides.
	g := regionalDataset(1)
	r := regionalDataset(1)
	f := NewFilterState([]models.ParameterKind{models.Wind}, models.Regions, 0)

	plan := Recompute(f, g, r, time.Time{})
	require.Len(t, plan.Cells, 2)
	global, regional := plan.Cells[0], plan.Cells[1]

	assert.Equal(t, 10, global.Stride)
	assert.Equal(t, 4, regional.Stride)
	assert.Greater(t, global.ArrowScale, regional.ArrowScale)
	assert.Less(t, len(global.Vector.Arrows(global.Stride)), len(regional.Vector.Arrows(regional.Stride)))
	assert.Equal(t, Coolwarm, global.Scale.Palette)
	assert.Equal(t, 40.0, global.Scale.Max)
}

func TestArrowsSkipMissing(t *testing.T) {
	grid := models.Grid{Ni: 3, Nj: 1, Lat0: 0, Lon0: 0, DLat: 1, DLon: 1}
	nan := float32(math.NaN())
	s := &VectorSlice{Grid: grid, U: []float32{3, nan, 1}, V: []float32{4, 1, 0}}

	arrows := s.Arrows(1)

	require.Len(t, arrows, 2)
	assert.Equal(t, 5.0, arrows[0].Speed())
	assert.Equal(t, 2.0, arrows[1].Lon)
}

func TestRecomputeCloudCoverFraction(t *testing.T) {
	g := testDataset("global", globalGrid, 1, map[string]string{"tcc": "(0 - 1)"})
	f := NewFilterState([]models.ParameterKind{models.CloudCover}, []models.RegionKind{models.Global}, 0)

	plan := Recompute(f, g, nil, time.Time{})

	require.Len(t, plan.Cells, 1)
	assert.Equal(t, 100.0, plan.Cells[0].Scalar.At(0, 0))
	assert.Equal(t, "Cloud cover (%)", plan.Cells[0].Scale.Label)
}

func TestRecomputeMissingData(t *testing.T) {
	g := globalDataset(9)
	r := regionalDataset(3)
	f := NewFilterState([]models.ParameterKind{models.Precipitation}, models.Regions, 5)

	plan := Recompute(f, g, r, time.Time{})
	require.Len(t, plan.Cells, 2)
	assert.Empty(t, plan.Cells[0].Missing)
	assert.Equal(t, "no data at this step", plan.Cells[1].Missing)
	assert.Nil(t, plan.Cells[1].Scalar)

	delete(g.Fields, "tp")
	plan = Recompute(f, g, nil, time.Time{})
	assert.Equal(t, "tp not in dataset", plan.Cells[0].Missing)
	assert.Equal(t, "no data", plan.Cells[1].Missing)
}

func TestTimeLabel(t *testing.T) {
	acquired := time.Date(2024, 3, 1, 21, 5, 0, 0, time.UTC)

	plan := Recompute(Next(DefaultFilterState(), SetTime{Index: 1}, 3), globalDataset(3), nil, acquired)
	assert.Equal(t, "2024-03-01 06:00 UTC", plan.TimeLabel)

	plan = Recompute(DefaultFilterState(), nil, regionalDataset(3), acquired)
	assert.Equal(t, "2024-03-01 21:05 UTC", plan.TimeLabel)

	plan = Recompute(DefaultFilterState(), nil, nil, time.Time{})
	assert.NotEmpty(t, plan.TimeLabel)
}

func TestTickLabels(t *testing.T) {
	plan := Recompute(DefaultFilterState(), globalDataset(25), nil, time.Time{})
	ticks := plan.TickLabels()

	assert.Equal(t, "0h", ticks[0])
	assert.Equal(t, "12h", ticks[2])
	assert.Len(t, ticks, 13)

	assert.Nil(t, Plan{}.TickLabels())
}

type fakeSource struct {
	snap models.Snapshot
	ok   bool
}

func (s *fakeSource) Current() (models.Snapshot, bool) {
	return s.snap, s.ok
}

type fakeDriver struct {
	next       int
	drawn      []Cell
	disposed   []Handle
	failDraw   map[string]bool
	failRemove map[Handle]bool
}

func (d *fakeDriver) Draw(cell Cell) (Handle, error) {
	if d.failDraw[cell.Title] {
		return "", errors.New("no room")
	}
	d.next++
	d.drawn = append(d.drawn, cell)
	return Handle(fmt.Sprintf("h%d", d.next)), nil
}

func (d *fakeDriver) Dispose(h Handle) error {
	d.disposed = append(d.disposed, h)
	if d.failRemove[h] {
		return errors.New("already gone")
	}
	return nil
}

func TestMachineApply(t *testing.T) {
	src := &fakeSource{}
	drv := &fakeDriver{}
	m := NewMachine(src, drv, nil, nil)

	plan := m.Apply(Reload{})
	require.Len(t, plan.Cells, 2)
	assert.Equal(t, "no data", plan.Cells[0].Missing)
	assert.Equal(t, []Handle{"h1", "h2"}, m.Live())

	src.snap = models.Snapshot{Global: globalDataset(9), Regional: regionalDataset(9)}
	src.ok = true
	plan = m.Apply(ToggleParameter{Parameter: models.Wind})

	assert.Len(t, plan.Cells, 4)
	assert.Equal(t, []Handle{"h1", "h2"}, drv.disposed)
	assert.Equal(t, []Handle{"h3", "h4", "h5", "h6"}, m.Live())
	assert.Equal(t, plan, m.Plan())
	assert.True(t, m.State().HasParameter(models.Wind))
}

func TestMachineDisposalFailureDoesNotBlockRedraw(t *testing.T) {
	src := &fakeSource{snap: models.Snapshot{Global: globalDataset(9), Regional: regionalDataset(9)}, ok: true}
	drv := &fakeDriver{failRemove: map[Handle]bool{"h1": true}}
	m := NewMachine(src, drv, nil, nil)

	m.Apply(Reload{})
	m.Apply(SetTime{Index: 4})

	assert.Equal(t, []Handle{"h1", "h2"}, drv.disposed)
	assert.Equal(t, []Handle{"h3", "h4"}, m.Live())
	assert.Equal(t, 4, m.State().TimeIndex())
}

func TestMachineSkipsFailedDraws(t *testing.T) {
	src := &fakeSource{snap: models.Snapshot{Global: globalDataset(9), Regional: regionalDataset(9)}, ok: true}
	drv := &fakeDriver{failDraw: map[string]bool{"Total Precipitation (Global)": true}}
	m := NewMachine(src, drv, nil, nil)

	m.Apply(Reload{})

	assert.Equal(t, []Handle{"h1"}, m.Live())
	require.Len(t, drv.drawn, 1)
	assert.Equal(t, models.Regional, drv.drawn[0].Region)

	m.Close()
	assert.Empty(t, m.Live())
	assert.Equal(t, []Handle{"h1"}, drv.disposed)
}

func TestMachineEmptySelectionClearsPanels(t *testing.T) {
	src := &fakeSource{snap: models.Snapshot{Global: globalDataset(9), Regional: regionalDataset(9)}, ok: true}
	drv := &fakeDriver{}
	m := NewMachine(src, drv, nil, nil)

	m.Apply(Reload{})
	plan := m.Apply(ToggleParameter{Parameter: models.Precipitation})

	assert.True(t, plan.Empty())
	assert.Empty(t, m.Live())
	assert.Len(t, drv.disposed, 2)
}
