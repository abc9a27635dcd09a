package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"

	"github.com/ngmaloney/forecast-terminal/internal/models"
)

// renderHeader shows the title, the filter toggles and the valid time.
func (m Model) renderHeader() string {
	state := m.machine.State()
	var toggles []string
	for i, p := range models.Parameters {
		toggles = append(toggles, toggle(fmt.Sprintf("%d %s", i+1, p), state.HasParameter(p)))
	}
	toggles = append(toggles,
		toggle("g "+models.Global.String(), state.HasRegion(models.Global)),
		toggle("r "+models.Regional.String(), state.HasRegion(models.Regional)),
	)

	top := lipgloss.JoinHorizontal(lipgloss.Top,
		append([]string{titleStyle.Render("Forecast Terminal"), "  "}, toggles...)...)

	var step string
	if n := len(m.plan.Steps); n > 0 {
		step = fmt.Sprintf("  step %d/%d (+%.0fh)", m.plan.TimeIndex+1, n, m.plan.Steps[m.plan.TimeIndex].Hours())
	}
	timeLine := timeLabelStyle.Render(m.plan.TimeLabel) + mutedStyle.Render(step)
	return lipgloss.JoinVertical(lipgloss.Left, lipgloss.NewStyle().MaxWidth(m.width).Render(top), timeLine)
}

func toggle(label string, on bool) string {
	if on {
		return toggleOnStyle.Render(label)
	}
	return toggleOffStyle.Render(label)
}

// renderStatus summarises the held run and the last pipeline cycle.
func (m Model) renderStatus() string {
	var parts []string

	snap, ok := m.source.Current()
	if ok {
		parts = append(parts,
			statusStyle.Render("run "+snap.Run.String()),
			statusStyle.Render("acquired "+humanize.Time(snap.AcquiredAt)))
	} else if m.waiting() {
		parts = append(parts, m.spinner.View()+statusStyle.Render(" waiting for the first forecast run"))
	} else {
		parts = append(parts, statusStyle.Render("no forecast held"))
	}

	if r := m.lastReport; r != nil {
		switch {
		case r.Err != nil:
			parts = append(parts, statusErrorStyle.Render("last check failed: "+r.Err.Error()))
		case r.IsNew && r.Fallback:
			parts = append(parts, statusWarnStyle.Render("using yesterday's 18Z run"))
		case r.IsNew:
			parts = append(parts, successStyle.Render("updated"))
		default:
			parts = append(parts, statusStyle.Render("no newer run"))
		}
		if r.Bytes > 0 {
			parts = append(parts, statusStyle.Render(humanize.Bytes(uint64(r.Bytes))+" downloaded"))
		}
		if m.interval > 0 {
			parts = append(parts, statusStyle.Render("next check "+humanize.Time(r.Finished.Add(m.interval))))
		}
	}

	if m.provisionErr != nil {
		parts = append(parts, statusWarnStyle.Render(m.provisionErr.Error()))
	}

	return lipgloss.NewStyle().MaxWidth(m.width).Render(strings.Join(parts, statusStyle.Render(" · ")))
}
