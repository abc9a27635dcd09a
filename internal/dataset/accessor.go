package dataset

import (
	"bytes"
	"fmt"
	"io"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/klauspost/compress/zstd"
	"github.com/ngmaloney/forecast-terminal/internal/models"
)

var zstdMagic = []byte{0x28, 0xB5, 0x2F, 0xFD}

// Filter isolates one parameter family within a file.
type Filter struct {
	ShortName   string
	TypeOfLevel string // optional
}

func (f Filter) matches(m *message) bool {
	p, ok := m.param()
	if !ok {
		return false
	}
	if f.ShortName != "" && p.ShortName != f.ShortName {
		return false
	}
	if f.TypeOfLevel != "" && levelName(m.levelType) != f.TypeOfLevel {
		return false
	}
	return true
}

func (f Filter) String() string {
	if f.TypeOfLevel == "" {
		return f.ShortName
	}
	return f.ShortName + "@" + f.TypeOfLevel
}

var (
	// RegionalFilters split the regional file into its parameter families.
	RegionalFilters = []Filter{
		{ShortName: "rain_con"},
		{ShortName: "10u"},
		{ShortName: "10v"},
		{ShortName: "tcc", TypeOfLevel: "entireAtmosphere"},
	}

	// GlobalFilters select the four parameters requested from the global provider.
	GlobalFilters = []Filter{
		{ShortName: "tp"},
		{ShortName: "10u"},
		{ShortName: "10v"},
		{ShortName: "tcc"},
	}
)

// Open reads a GRIB2 file (optionally zstd-compressed) and returns the fields
// matching filter. The file is closed before Open returns; it may be called
// repeatedly on the same path with different filters.
func Open(path string, filter Filter) (*models.Dataset, error) {
	data, err := readFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: reading %s: %w", models.ErrDatasetAccess, path, err)
	}
	msgs, err := decodeMessages(data, filter.matches)
	if err != nil {
		return nil, fmt.Errorf("%w: decoding %s: %w", models.ErrDatasetAccess, path, err)
	}
	if len(msgs) == 0 {
		return nil, fmt.Errorf("%w: %s: no fields match %s", models.ErrDatasetAccess, path, filter)
	}
	ds, err := build(filepath.Base(path), msgs)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", models.ErrDatasetAccess, path, err)
	}
	return ds, nil
}

func readFile(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	head := make([]byte, 4)
	n, err := io.ReadFull(f, head)
	if err != nil && err != io.ErrUnexpectedEOF {
		return nil, err
	}
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return nil, err
	}
	if n < 4 || !bytes.Equal(head, zstdMagic) {
		return io.ReadAll(f)
	}

	dec, err := zstd.NewReader(f, zstd.WithDecoderConcurrency(1))
	if err != nil {
		return nil, err
	}
	defer dec.Close()
	return io.ReadAll(dec)
}

func build(name string, msgs []*message) (*models.Dataset, error) {
	first := msgs[0]
	stepSet := make(map[time.Duration]bool)
	for _, m := range msgs {
		if !sameGrid(m.grid, first.grid) {
			return nil, fmt.Errorf("mixed grids in one filter result")
		}
		if !m.reference.Equal(first.reference) {
			return nil, fmt.Errorf("mixed reference times %s and %s", first.reference, m.reference)
		}
		stepSet[m.step] = true
	}
	steps := sortedSteps(stepSet)
	index := stepIndex(steps)

	ds := &models.Dataset{
		Name:      name,
		Reference: first.reference,
		Grid:      first.grid,
		Steps:     steps,
		Fields:    make(map[string]*models.Field),
	}
	for _, m := range msgs {
		p, _ := m.param()
		f, ok := ds.Fields[p.ShortName]
		if !ok {
			f = &models.Field{
				Name:   p.ShortName,
				Units:  p.Units,
				Level:  levelName(m.levelType),
				Values: make([][]float32, len(steps)),
			}
			ds.Fields[p.ShortName] = f
		}
		// First message wins when several levels share a short name.
		if i := index[m.step]; f.Values[i] == nil {
			f.Values[i] = m.values
		}
	}
	fillMissing(ds)
	return ds, ds.Validate()
}

// Merge combines parameter families into one dataset. The step axes are
// joined; steps a family lacks are filled with NaN.
func Merge(name string, parts ...*models.Dataset) (*models.Dataset, error) {
	if len(parts) == 0 {
		return nil, fmt.Errorf("%w: nothing to merge", models.ErrDatasetAccess)
	}
	first := parts[0]
	stepSet := make(map[time.Duration]bool)
	for _, p := range parts {
		if !sameGrid(p.Grid, first.Grid) {
			return nil, fmt.Errorf("%w: %s: grids differ between %s and %s", models.ErrDatasetAccess, name, first.Name, p.Name)
		}
		for _, s := range p.Steps {
			stepSet[s] = true
		}
	}
	steps := sortedSteps(stepSet)

	merged := &models.Dataset{
		Name:      name,
		Reference: first.Reference,
		Grid:      first.Grid,
		Steps:     steps,
		Fields:    make(map[string]*models.Field),
	}
	index := stepIndex(steps)
	for _, p := range parts {
		for fname, f := range p.Fields {
			out := &models.Field{Name: f.Name, Units: f.Units, Level: f.Level, Values: make([][]float32, len(steps))}
			for s, v := range f.Values {
				out.Values[index[p.Steps[s]]] = v
			}
			merged.Fields[fname] = out
		}
	}
	fillMissing(merged)
	if err := merged.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", models.ErrDatasetAccess, err)
	}
	return merged, nil
}

// OpenFamilies opens path once per filter and merges the results.
func OpenFamilies(name, path string, filters []Filter) (*models.Dataset, error) {
	parts := make([]*models.Dataset, 0, len(filters))
	for _, f := range filters {
		ds, err := Open(path, f)
		if err != nil {
			return nil, err
		}
		parts = append(parts, ds)
	}
	return Merge(name, parts...)
}

// Loader turns a pair of acquired files into datasets.
type Loader struct {
	logger *slog.Logger
}

// NewLoader creates a Loader; a nil logger falls back to slog.Default().
func NewLoader(logger *slog.Logger) *Loader {
	if logger == nil {
		logger = slog.Default()
	}
	return &Loader{logger: logger}
}

// Load opens the global and regional files.
func (l *Loader) Load(globalPath, regionalPath string) (global, regional *models.Dataset, err error) {
	global, err = OpenFamilies("global", globalPath, GlobalFilters)
	if err != nil {
		return nil, nil, err
	}
	regional, err = OpenFamilies("regional", regionalPath, RegionalFilters)
	if err != nil {
		global.Close()
		return nil, nil, err
	}
	l.logger.Info("datasets opened",
		"global_grid", fmt.Sprintf("%dx%d", global.Grid.Ni, global.Grid.Nj),
		"regional_grid", fmt.Sprintf("%dx%d", regional.Grid.Ni, regional.Grid.Nj),
		"global_steps", global.StepCount(),
		"regional_steps", regional.StepCount())
	return global, regional, nil
}

func fillMissing(ds *models.Dataset) {
	for _, f := range ds.Fields {
		for s, v := range f.Values {
			if v != nil {
				continue
			}
			blank := make([]float32, ds.Grid.Len())
			for i := range blank {
				blank[i] = float32(math.NaN())
			}
			f.Values[s] = blank
		}
	}
}

func sortedSteps(set map[time.Duration]bool) []time.Duration {
	steps := make([]time.Duration, 0, len(set))
	for s := range set {
		steps = append(steps, s)
	}
	sort.Slice(steps, func(i, j int) bool { return steps[i] < steps[j] })
	return steps
}

func stepIndex(steps []time.Duration) map[time.Duration]int {
	idx := make(map[time.Duration]int, len(steps))
	for i, s := range steps {
		idx[s] = i
	}
	return idx
}

func sameGrid(a, b models.Grid) bool {
	const eps = 1e-6
	return a.Ni == b.Ni && a.Nj == b.Nj &&
		math.Abs(a.Lat0-b.Lat0) < eps && math.Abs(a.Lon0-b.Lon0) < eps &&
		math.Abs(a.DLat-b.DLat) < eps && math.Abs(a.DLon-b.DLon) < eps
}
