package render

import (
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/ngmaloney/forecast-terminal/internal/models"
	"github.com/ngmaloney/forecast-terminal/internal/view"
)

var (
	colorBorder = lipgloss.Color("#4A90E2")
	colorTitle  = lipgloss.Color("#00BFFF")
	colorMuted  = lipgloss.Color("#6C757D")

	panelStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(colorBorder)

	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(colorTitle)

	mutedStyle = lipgloss.NewStyle().
			Foreground(colorMuted)
)

// chrome is the rows and columns a panel spends outside its map: border on
// every side plus the title and legend rows.
const (
	chromeWidth  = 2
	chromeHeight = 4
)

// Panel draws a complete bordered panel of the given outer size.
func Panel(cell view.Cell, width, height int, coast []models.Polyline) string {
	inner := width - chromeWidth
	mapHeight := height - chromeHeight
	if inner < 1 || mapHeight < 1 {
		return titleStyle.Render(truncate(cell.Title, max(width, 0)))
	}

	var body string
	if cell.Missing != "" {
		body = lipgloss.Place(inner, mapHeight, lipgloss.Center, lipgloss.Center,
			mutedStyle.Render(truncate(cell.Missing, inner)))
	} else {
		body = Map(cell, inner, mapHeight, coast)
	}

	content := lipgloss.JoinVertical(lipgloss.Left,
		titleStyle.Render(truncate(cell.Title, inner)),
		body,
		Legend(cell.Scale, inner),
	)
	return panelStyle.Width(inner).Render(content)
}

// Legend draws a color bar with its bounds and label, fitted to width.
func Legend(scale view.Scale, width int) string {
	lo := formatBound(scale.Min)
	hi := formatBound(scale.Max)
	bar := width - len(lo) - len(hi) - 2
	if len(scale.Label) > 0 {
		bar = min(bar, max(4, width-len(lo)-len(hi)-len(scale.Label)-3))
	}
	if bar < 1 {
		return truncate(scale.Label, width)
	}

	cmap := ColormapFor(scale.Palette)
	var b strings.Builder
	b.WriteString(lo + " ")
	for i := 0; i < bar; i++ {
		c := cmap.At((float64(i) + 0.5) / float64(bar))
		b.WriteString(lipgloss.NewStyle().Foreground(lipgloss.Color(c.Hex())).Render("█"))
	}
	b.WriteString(" " + hi)

	used := len(lo) + len(hi) + bar + 2
	if rest := width - used - 1; rest > 0 && scale.Label != "" {
		b.WriteString(" " + mutedStyle.Render(truncate(scale.Label, rest)))
	}
	return b.String()
}

func formatBound(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	if n <= 1 {
		return string(r[:n])
	}
	return string(r[:n-1]) + "…"
}
