// Package basemap provides coastline geometry for map panels, provisioned
// once from Natural Earth into the local SQLite database.
package basemap

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/ngmaloney/forecast-terminal/internal/models"
)

// Coastlines queries provisioned coastline segments.
type Coastlines struct {
	db *sqlx.DB
}

func NewCoastlines(db *sqlx.DB) *Coastlines {
	return &Coastlines{db: db}
}

// Segments returns the coastline segments whose bounding boxes intersect
// extent. Extents past 180°E (0..360 grids) select every longitude.
func (c *Coastlines) Segments(ctx context.Context, extent models.Extent) ([]models.Polyline, error) {
	lonMin, lonMax := extent.LonMin, extent.LonMax
	if lonMax > 180 {
		lonMin, lonMax = -180, 180
	}

	var geometries []string
	err := c.db.SelectContext(ctx, &geometries, `
		SELECT geometry FROM coastlines
		WHERE bbox_max_lat >= ? AND bbox_min_lat <= ?
		  AND bbox_max_lon >= ? AND bbox_min_lon <= ?
		ORDER BY id
	`, extent.LatMin, extent.LatMax, lonMin, lonMax)
	if err != nil {
		return nil, fmt.Errorf("querying coastlines: %w", err)
	}

	lines := make([]models.Polyline, 0, len(geometries))
	for _, g := range geometries {
		var coords [][2]float64
		if err := json.Unmarshal([]byte(g), &coords); err != nil {
			return nil, fmt.Errorf("decoding coastline geometry: %w", err)
		}
		line := make(models.Polyline, len(coords))
		for i, c := range coords {
			line[i] = models.Point{Lon: c[0], Lat: c[1]}
		}
		lines = append(lines, line)
	}
	return lines, nil
}
