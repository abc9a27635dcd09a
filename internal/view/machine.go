package view

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/ngmaloney/forecast-terminal/internal/metrics"
	"github.com/ngmaloney/forecast-terminal/internal/models"
)

// Handle identifies a drawn panel owned by a Driver.
type Handle string

// Driver draws cells and releases what it drew.
type Driver interface {
	Draw(cell Cell) (Handle, error)
	Dispose(h Handle) error
}

// Source provides the currently held forecast.
type Source interface {
	Current() (models.Snapshot, bool)
}

// Machine owns the filter state and the set of live panels. It is not safe
// for concurrent use; events must be applied from one goroutine.
type Machine struct {
	source  Source
	driver  Driver
	logger  *slog.Logger
	metrics *metrics.Collector

	state FilterState
	plan  Plan
	live  []Handle
}

// NewMachine creates a Machine in the default filter state. Nothing is drawn
// until the first event is applied.
func NewMachine(source Source, driver Driver, logger *slog.Logger, m *metrics.Collector) *Machine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Machine{
		source:  source,
		driver:  driver,
		logger:  logger,
		metrics: m,
		state:   DefaultFilterState(),
	}
}

// Apply runs one transition and redraws the panel grid.
func (m *Machine) Apply(ev Event) Plan {
	start := time.Now()
	snap, _ := m.source.Current()

	m.state = Next(m.state, ev, StepCount(snap.Global, snap.Regional))
	plan := Recompute(m.state, snap.Global, snap.Regional, snap.AcquiredAt)

	failures := m.disposeAll()
	m.live = m.drawAll(plan)
	m.plan = plan

	m.metrics.RecordRedraw(len(m.live), failures, time.Since(start))
	return plan
}

// Close releases every live panel.
func (m *Machine) Close() {
	m.disposeAll()
	m.live = nil
}

// disposeAll releases every live handle, carrying on past failures.
func (m *Machine) disposeAll() int {
	failures := 0
	for _, h := range m.live {
		if err := m.driver.Dispose(h); err != nil {
			failures++
			m.logger.Warn("panel release failed",
				"handle", string(h),
				"error", fmt.Errorf("%w: %w", models.ErrRenderResourceDisposal, err))
		}
	}
	return failures
}

func (m *Machine) drawAll(plan Plan) []Handle {
	live := make([]Handle, 0, len(plan.Cells))
	for _, cell := range plan.Cells {
		h, err := m.driver.Draw(cell)
		if err != nil {
			m.logger.Error("panel draw failed", "panel", cell.Title, "error", err)
			continue
		}
		live = append(live, h)
	}
	return live
}

func (m *Machine) State() FilterState {
	return m.state
}

func (m *Machine) Plan() Plan {
	return m.plan
}

// Live returns a copy of the handles drawn by the last Apply.
func (m *Machine) Live() []Handle {
	return append([]Handle(nil), m.live...)
}
