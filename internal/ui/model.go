package ui

import (
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/ngmaloney/forecast-terminal/internal/metrics"
	"github.com/ngmaloney/forecast-terminal/internal/models"
	"github.com/ngmaloney/forecast-terminal/internal/pipeline"
	"github.com/ngmaloney/forecast-terminal/internal/view"
)

// AppState represents the current state of the application
type AppState int

const (
	StateDisplay      AppState = iota // Panels, slider and status
	StateProvisioning                 // Initial basemap provisioning
)

// Options wires the model to the rest of the program.
type Options struct {
	Source     view.Source
	Coastlines CoastlineSource // optional
	Provision  ProvisionFunc   // optional, run once on start
	Interval   time.Duration   // poll interval, for the status bar
	Logger     *slog.Logger
	Metrics    *metrics.Collector
}

// Model represents the application's state
type Model struct {
	state  AppState
	width  int
	height int

	source  view.Source
	machine *view.Machine
	driver  *panelDriver
	plan    view.Plan

	keys    keyMap
	help    help.Model
	spinner spinner.Model

	// Pipeline
	lastReport *pipeline.Report
	interval   time.Duration

	// Provisioning
	provision         ProvisionFunc
	provisionStatus   string
	provisionChannels *provisioningStartedMsg
	provisionErr      error
}

// NewModel creates a new application model
func NewModel(opts Options) Model {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	driver := newPanelDriver(opts.Coastlines, logger)

	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("205"))

	m := Model{
		state:     StateDisplay,
		source:    opts.Source,
		machine:   view.NewMachine(opts.Source, driver, logger, opts.Metrics),
		driver:    driver,
		keys:      defaultKeyMap(),
		help:      help.New(),
		spinner:   s,
		interval:  opts.Interval,
		provision: opts.Provision,
	}
	if m.provision != nil {
		m.state = StateProvisioning
		m.provisionStatus = "Checking basemap..."
	}
	return m
}

// Init initializes the application
func (m Model) Init() tea.Cmd {
	if m.provision != nil {
		return tea.Batch(m.spinner.Tick, initiateProvisioning(m.provision))
	}
	return m.spinner.Tick
}

// Update handles messages and updates the model
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		m.apply(view.Reload{})
		return m, nil

	// Provisioning messages
	case provisioningStartedMsg:
		m.state = StateProvisioning
		m.provisionChannels = &msg
		return m, tea.Batch(
			waitForProvisionStatus(msg.progressChan),
			waitForProvisionResult(msg.resultChan),
		)

	case provisionStatusMsg:
		m.provisionStatus = string(msg)
		if m.provisionChannels != nil {
			return m, waitForProvisionStatus(m.provisionChannels.progressChan)
		}
		return m, nil

	case provisionResultMsg:
		m.provisionChannels = nil
		m.state = StateDisplay
		if msg.err != nil {
			// Panels still render, just without coastlines.
			m.provisionErr = fmt.Errorf("basemap provisioning failed: %w", msg.err)
		}
		m.driver.ResetCoastlines()
		m.apply(view.Reload{})
		return m, nil

	case cycleFinishedMsg:
		r := msg.report
		m.lastReport = &r
		if r.Stored() {
			m.apply(view.Reload{})
		}
		return m, nil

	case spinner.TickMsg:
		if m.state != StateProvisioning && !m.waiting() {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if key.Matches(msg, m.keys.Quit) {
		m.machine.Close()
		return m, tea.Quit
	}
	if m.state == StateProvisioning {
		return m, nil
	}

	t := m.machine.State().TimeIndex()
	switch {
	case key.Matches(msg, m.keys.Precipitation):
		m.apply(view.ToggleParameter{Parameter: models.Precipitation})
	case key.Matches(msg, m.keys.Wind):
		m.apply(view.ToggleParameter{Parameter: models.Wind})
	case key.Matches(msg, m.keys.CloudCover):
		m.apply(view.ToggleParameter{Parameter: models.CloudCover})
	case key.Matches(msg, m.keys.Global):
		m.apply(view.ToggleRegion{Region: models.Global})
	case key.Matches(msg, m.keys.Regional):
		m.apply(view.ToggleRegion{Region: models.Regional})
	case key.Matches(msg, m.keys.Earlier):
		m.apply(view.SetTime{Index: t - 1})
	case key.Matches(msg, m.keys.Later):
		m.apply(view.SetTime{Index: t + 1})
	case key.Matches(msg, m.keys.First):
		m.apply(view.SetTime{Index: 0})
	case key.Matches(msg, m.keys.Last):
		m.apply(view.SetTime{Index: math.MaxInt32})
	case key.Matches(msg, m.keys.Help):
		m.help.ShowAll = !m.help.ShowAll
		m.apply(view.Reload{})
	}
	return m, nil
}

// apply runs one view transition. Nothing is drawn until the terminal size
// is known, nor while the basemap is being provisioned.
func (m *Model) apply(ev view.Event) {
	if m.width == 0 || m.height == 0 || m.state == StateProvisioning {
		return
	}
	m.driver.Resize(m.width, m.mapHeight())
	m.plan = m.machine.Apply(ev)
}

func (m Model) waiting() bool {
	_, ok := m.source.Current()
	return !ok && m.lastReport == nil
}

// mapHeight is what remains for panels after the header, slider, status
// and help rows.
func (m Model) mapHeight() int {
	const header, slider, status = 2, 2, 1
	return max(0, m.height-header-slider-status-lipgloss.Height(m.help.View(m.keys)))
}

// View renders the UI
func (m Model) View() string {
	if m.width == 0 {
		return "Loading..."
	}
	if m.state == StateProvisioning {
		return m.viewProvisioning()
	}

	var body string
	if m.plan.Empty() {
		body = lipgloss.Place(m.width, m.mapHeight(), lipgloss.Center, lipgloss.Center,
			mutedStyle.Render("No panels selected. Press 1, 2 or 3 to add a parameter and g or r to add a region."))
	} else {
		body = m.driver.View(m.machine.Live())
	}

	return lipgloss.JoinVertical(lipgloss.Left,
		m.renderHeader(),
		body,
		renderSlider(m.plan, m.width),
		m.renderStatus(),
		m.help.View(m.keys),
	)
}

// viewProvisioning renders the initial setup screen
func (m Model) viewProvisioning() string {
	title := titleStyle.Render("Forecast Terminal Setup")

	sp := m.spinner.View()
	status := lipgloss.NewStyle().
		Foreground(lipgloss.Color("240")).
		Render(m.provisionStatus)

	info := helpStyle.Render("One-time setup: downloading the coastline basemap...")

	return lipgloss.JoinVertical(
		lipgloss.Center,
		"",
		title,
		"",
		fmt.Sprintf("%s %s", sp, status),
		"",
		info,
	)
}
