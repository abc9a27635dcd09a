package basemap

import (
	"archive/zip"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/jonas-p/go-shp"
)

// DefaultCoastlineURL is the Natural Earth 1:50m coastline shapefile.
const DefaultCoastlineURL = "https://naciscdn.org/naturalearth/50m/physical/ne_50m_coastline.zip"

const tableName = "coastlines"

// NeedsProvisioning reports whether the coastline table is missing or empty.
func NeedsProvisioning(ctx context.Context, db *sqlx.DB) (bool, error) {
	var count int
	err := db.GetContext(ctx, &count,
		"SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name=?", tableName)
	if err != nil {
		return false, fmt.Errorf("checking for %s table: %w", tableName, err)
	}
	if count == 0 {
		return true, nil
	}
	if err := db.GetContext(ctx, &count, "SELECT COUNT(*) FROM "+tableName); err != nil {
		return false, fmt.Errorf("counting coastline segments: %w", err)
	}
	return count == 0, nil
}

// Provision downloads the coastline shapefile into workDir and loads it into
// db, unless the table is already populated. Progress messages are sent to
// progressChan when it is non-nil.
func Provision(ctx context.Context, db *sqlx.DB, url, workDir string, client *http.Client, progressChan chan<- string) error {
	needs, err := NeedsProvisioning(ctx, db)
	if err != nil {
		return err
	}
	if !needs {
		return nil
	}

	sendProgress := func(msg string) {
		if progressChan != nil {
			progressChan <- msg
		}
	}
	if client == nil {
		client = http.DefaultClient
	}

	sendProgress("Coastline table not found, provisioning...")
	if err := os.MkdirAll(workDir, 0755); err != nil {
		return fmt.Errorf("creating work directory: %w", err)
	}
	extractDir, err := os.MkdirTemp(workDir, "coastline-")
	if err != nil {
		return fmt.Errorf("creating extract directory: %w", err)
	}
	defer os.RemoveAll(extractDir)

	zipPath := filepath.Join(extractDir, "coastline.zip")
	sendProgress(fmt.Sprintf("Downloading coastlines from %s...", url))
	if err := downloadFile(ctx, client, zipPath, url); err != nil {
		return fmt.Errorf("downloading shapefile: %w", err)
	}

	sendProgress("Extracting shapefile...")
	shpPath, err := unzipShapefile(zipPath, extractDir)
	if err != nil {
		return fmt.Errorf("extracting shapefile: %w", err)
	}

	sendProgress("Building coastline table...")
	n, err := buildCoastlines(ctx, db, shpPath)
	if err != nil {
		return fmt.Errorf("building coastline table: %w", err)
	}
	sendProgress(fmt.Sprintf("Loaded %d coastline segments", n))
	return nil
}

func downloadFile(ctx context.Context, client *http.Client, path, url string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("bad status: %s", resp.Status)
	}

	out, err := os.Create(path)
	if err != nil {
		return err
	}
	defer out.Close()

	_, err = io.Copy(out, resp.Body)
	return err
}

// unzipShapefile extracts the archive and returns the path of its .shp file.
func unzipShapefile(src, dest string) (string, error) {
	r, err := zip.OpenReader(src)
	if err != nil {
		return "", err
	}
	defer r.Close()

	var shpPath string
	for _, f := range r.File {
		if f.FileInfo().IsDir() {
			continue
		}
		fpath := filepath.Join(dest, filepath.Base(f.Name))
		if !strings.HasPrefix(fpath, filepath.Clean(dest)+string(os.PathSeparator)) {
			return "", fmt.Errorf("illegal file path: %s", f.Name)
		}
		if err := extractFile(f, fpath); err != nil {
			return "", err
		}
		if strings.EqualFold(filepath.Ext(fpath), ".shp") {
			shpPath = fpath
		}
	}
	if shpPath == "" {
		return "", fmt.Errorf("no .shp file in %s", filepath.Base(src))
	}
	return shpPath, nil
}

func extractFile(f *zip.File, path string) error {
	rc, err := f.Open()
	if err != nil {
		return err
	}
	defer rc.Close()

	out, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0644)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, rc); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}

type segmentRow struct {
	Geometry  string  `db:"geometry"`
	MinLat    float64 `db:"bbox_min_lat"`
	MaxLat    float64 `db:"bbox_max_lat"`
	MinLon    float64 `db:"bbox_min_lon"`
	MaxLon    float64 `db:"bbox_max_lon"`
	NumPoints int     `db:"num_points"`
}

// buildCoastlines loads every polyline part of the shapefile as one row.
func buildCoastlines(ctx context.Context, db *sqlx.DB, shapefilePath string) (int, error) {
	shape, err := shp.Open(shapefilePath)
	if err != nil {
		return 0, fmt.Errorf("opening shapefile: %w", err)
	}
	defer shape.Close()

	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS coastlines (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			geometry TEXT NOT NULL,
			bbox_min_lat REAL NOT NULL,
			bbox_max_lat REAL NOT NULL,
			bbox_min_lon REAL NOT NULL,
			bbox_max_lon REAL NOT NULL,
			num_points INTEGER NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_coastlines_bbox ON coastlines(
			bbox_min_lat, bbox_max_lat, bbox_min_lon, bbox_max_lon
		);
	`)
	if err != nil {
		return 0, fmt.Errorf("creating table: %w", err)
	}

	insert, err := tx.PrepareNamedContext(ctx, `
		INSERT INTO coastlines (geometry, bbox_min_lat, bbox_max_lat, bbox_min_lon, bbox_max_lon, num_points)
		VALUES (:geometry, :bbox_min_lat, :bbox_max_lat, :bbox_min_lon, :bbox_max_lon, :num_points)
	`)
	if err != nil {
		return 0, err
	}
	defer insert.Close()

	count := 0
	for shape.Next() {
		_, s := shape.Shape()
		line, ok := s.(*shp.PolyLine)
		if !ok {
			continue
		}
		for _, part := range polylineParts(line) {
			if len(part) < 2 {
				continue
			}
			row, err := newSegmentRow(part)
			if err != nil {
				return count, err
			}
			if _, err := insert.ExecContext(ctx, row); err != nil {
				return count, fmt.Errorf("inserting segment: %w", err)
			}
			count++
		}
	}
	if err := shape.Err(); err != nil {
		return count, fmt.Errorf("reading shapefile: %w", err)
	}
	return count, tx.Commit()
}

func polylineParts(line *shp.PolyLine) [][]shp.Point {
	parts := make([][]shp.Point, 0, len(line.Parts))
	for k := range line.Parts {
		start := int(line.Parts[k])
		end := len(line.Points)
		if k+1 < len(line.Parts) {
			end = int(line.Parts[k+1])
		}
		parts = append(parts, line.Points[start:end])
	}
	return parts
}

func newSegmentRow(points []shp.Point) (segmentRow, error) {
	coords := make([][2]float64, len(points))
	row := segmentRow{
		MinLat: points[0].Y, MaxLat: points[0].Y,
		MinLon: points[0].X, MaxLon: points[0].X,
		NumPoints: len(points),
	}
	for i, p := range points {
		coords[i] = [2]float64{p.X, p.Y}
		row.MinLat = min(row.MinLat, p.Y)
		row.MaxLat = max(row.MaxLat, p.Y)
		row.MinLon = min(row.MinLon, p.X)
		row.MaxLon = max(row.MaxLon, p.X)
	}
	geometry, err := json.Marshal(coords)
	if err != nil {
		return row, fmt.Errorf("marshaling geometry: %w", err)
	}
	row.Geometry = string(geometry)
	return row, nil
}
