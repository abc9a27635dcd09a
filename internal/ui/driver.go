package ui

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/google/uuid"

	"github.com/ngmaloney/forecast-terminal/internal/models"
	"github.com/ngmaloney/forecast-terminal/internal/render"
	"github.com/ngmaloney/forecast-terminal/internal/view"
)

// CoastlineSource supplies basemap geometry for an extent.
type CoastlineSource interface {
	Segments(ctx context.Context, extent models.Extent) ([]models.Polyline, error)
}

type drawnPanel struct {
	cell    view.Cell
	content string
}

// panelDriver renders cells to strings and keeps them until disposed. It
// implements view.Driver.
type panelDriver struct {
	width  int
	height int

	coast      CoastlineSource
	coastCache map[models.Extent][]models.Polyline

	panels map[view.Handle]drawnPanel
	logger *slog.Logger
}

func newPanelDriver(coast CoastlineSource, logger *slog.Logger) *panelDriver {
	if logger == nil {
		logger = slog.Default()
	}
	return &panelDriver{
		coast:      coast,
		coastCache: map[models.Extent][]models.Polyline{},
		panels:     map[view.Handle]drawnPanel{},
		logger:     logger,
	}
}

// Resize sets the area available to the whole panel grid.
func (d *panelDriver) Resize(width, height int) {
	d.width, d.height = width, height
}

func (d *panelDriver) Draw(cell view.Cell) (view.Handle, error) {
	if d.width <= 0 || d.height <= 0 {
		return "", errors.New("no drawing area")
	}
	w := int(float64(d.width) * cell.WidthFraction)
	h := int(float64(d.height) * cell.HeightFraction)

	handle := view.Handle(uuid.NewString())
	d.panels[handle] = drawnPanel{
		cell:    cell,
		content: render.Panel(cell, w, h, d.coastlines(cell.Extent)),
	}
	return handle, nil
}

func (d *panelDriver) Dispose(h view.Handle) error {
	if _, ok := d.panels[h]; !ok {
		return fmt.Errorf("unknown panel %s", h)
	}
	delete(d.panels, h)
	return nil
}

// coastlines returns cached segments for extent. A failed lookup draws the
// panel without a basemap and is retried after ResetCoastlines.
func (d *panelDriver) coastlines(extent models.Extent) []models.Polyline {
	if d.coast == nil {
		return nil
	}
	if lines, ok := d.coastCache[extent]; ok {
		return lines
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	lines, err := d.coast.Segments(ctx, extent)
	if err != nil {
		d.logger.Warn("coastlines unavailable", "error", err)
	}
	d.coastCache[extent] = lines
	return lines
}

// ResetCoastlines drops cached basemap lookups.
func (d *panelDriver) ResetCoastlines() {
	d.coastCache = map[models.Extent][]models.Polyline{}
}

// View lays out the given panels row by row in grid order.
func (d *panelDriver) View(live []view.Handle) string {
	var rows []string
	var current []string
	row := -1
	for _, h := range live {
		p, ok := d.panels[h]
		if !ok {
			continue
		}
		if p.cell.Row != row && len(current) > 0 {
			rows = append(rows, lipgloss.JoinHorizontal(lipgloss.Top, current...))
			current = nil
		}
		row = p.cell.Row
		current = append(current, p.content)
	}
	if len(current) > 0 {
		rows = append(rows, lipgloss.JoinHorizontal(lipgloss.Top, current...))
	}
	return lipgloss.JoinVertical(lipgloss.Left, rows...)
}

// Len returns the number of live panels.
func (d *panelDriver) Len() int {
	return len(d.panels)
}
