package ui

import (
	"strings"

	"github.com/ngmaloney/forecast-terminal/internal/view"
)

// renderSlider draws the time-step track with a thumb at the plan's index
// and the plan's tick labels underneath.
func renderSlider(plan view.Plan, width int) string {
	n := len(plan.Steps)
	if n == 0 || width < 4 {
		return mutedStyle.Render("no time steps")
	}

	pos := func(i int) int {
		if n == 1 {
			return 0
		}
		return i * (width - 1) / (n - 1)
	}

	thumb := pos(plan.TimeIndex)
	track := sliderTrackStyle.Render(strings.Repeat("─", thumb)) +
		sliderThumbStyle.Render("●") +
		sliderTrackStyle.Render(strings.Repeat("─", width-thumb-1))

	labels := []rune(strings.Repeat(" ", width))
	ticks := plan.TickLabels()
	free := 0
	for i := 0; i < n; i++ {
		text, ok := ticks[i]
		if !ok {
			continue
		}
		start := min(pos(i), width-len(text))
		if start < free {
			continue
		}
		copy(labels[start:], []rune(text))
		free = start + len(text) + 1
	}
	return track + "\n" + mutedStyle.Render(strings.TrimRight(string(labels), " "))
}
