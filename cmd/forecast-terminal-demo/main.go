package main

import (
	"fmt"
	"math"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/ngmaloney/forecast-terminal/internal/models"
	"github.com/ngmaloney/forecast-terminal/internal/store"
	"github.com/ngmaloney/forecast-terminal/internal/ui"
)

// This demo shows the UI with synthetic forecast fields and no network access.
func main() {
	now := time.Now().UTC()
	run := models.NewRunID(now.Add(-24*time.Hour), 18)
	steps := make([]time.Duration, 0, 25)
	for h := 0; h <= 144; h += 6 {
		steps = append(steps, time.Duration(h)*time.Hour)
	}

	global := synthetic("global", run.Origin(), steps,
		models.Grid{Ni: 360, Nj: 181, Lat0: 90, Lon0: 0, DLat: -1, DLon: 1}, "tp")
	regional := synthetic("regional", run.Origin(), steps[:12],
		models.Grid{Ni: 105, Nj: 73, Lat0: 54, Lon0: 5, DLat: 0.25, DLon: 0.25}, "rain_con")

	repo := store.NewRepository()
	repo.Store(models.Outcome{
		Run:        run,
		Global:     global,
		Regional:   regional,
		IsNew:      true,
		AcquiredAt: now,
	})

	p := tea.NewProgram(ui.NewModel(ui.Options{Source: repo}), tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		fmt.Printf("Error running demo: %v\n", err)
		os.Exit(1)
	}
}

// synthetic builds a dataset with a travelling rain band, a rotating wind
// field and patchy cloud.
func synthetic(name string, ref time.Time, steps []time.Duration, g models.Grid, precip string) *models.Dataset {
	fields := map[string]*models.Field{
		precip: {Name: precip, Units: "kg m-2", Level: "surface"},
		"10u":  {Name: "10u", Units: "m s-1", Level: "heightAboveGround"},
		"10v":  {Name: "10v", Units: "m s-1", Level: "heightAboveGround"},
		"tcc":  {Name: "tcc", Units: "(0 - 1)", Level: "entireAtmosphere"},
	}
	for s := range steps {
		phase := float64(s) / 4
		tp := make([]float32, g.Len())
		u := make([]float32, g.Len())
		v := make([]float32, g.Len())
		cc := make([]float32, g.Len())
		for j := 0; j < g.Nj; j++ {
			lat := g.Lat(j) * math.Pi / 180
			for i := 0; i < g.Ni; i++ {
				lon := g.Lon(i) * math.Pi / 180
				k := j*g.Ni + i
				band := math.Sin(3*lon-phase) * math.Cos(2*lat)
				tp[k] = float32(math.Max(0, band) * 40)
				u[k] = float32(20 * math.Cos(lat) * math.Sin(2*lat+phase))
				v[k] = float32(12 * math.Sin(2*lon+phase) * math.Cos(lat))
				cc[k] = float32(0.5 + 0.5*math.Sin(4*lon+phase)*math.Cos(3*lat-phase))
			}
		}
		fields[precip].Values = append(fields[precip].Values, tp)
		fields["10u"].Values = append(fields["10u"].Values, u)
		fields["10v"].Values = append(fields["10v"].Values, v)
		fields["tcc"].Values = append(fields["tcc"].Values, cc)
	}
	return &models.Dataset{
		Name:      name,
		Reference: ref,
		Grid:      g,
		Steps:     steps,
		Fields:    fields,
	}
}
