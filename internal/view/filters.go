package view

import "github.com/ngmaloney/forecast-terminal/internal/models"

// FilterState is an immutable snapshot of the user's selection. Transitions
// return a new value; the zero value selects nothing.
type FilterState struct {
	params    uint8
	regions   uint8
	timeIndex int
}

// NewFilterState builds a selection. timeIndex is not clamped here.
func NewFilterState(params []models.ParameterKind, regions []models.RegionKind, timeIndex int) FilterState {
	var f FilterState
	for _, p := range params {
		f.params |= 1 << uint(p)
	}
	for _, r := range regions {
		f.regions |= 1 << uint(r)
	}
	f.timeIndex = timeIndex
	return f
}

// DefaultFilterState is what the viewer opens with: precipitation for both
// regions at the first step.
func DefaultFilterState() FilterState {
	return NewFilterState(
		[]models.ParameterKind{models.Precipitation},
		[]models.RegionKind{models.Global, models.Regional},
		0,
	)
}

func (f FilterState) HasParameter(p models.ParameterKind) bool {
	return f.params&(1<<uint(p)) != 0
}

func (f FilterState) HasRegion(r models.RegionKind) bool {
	return f.regions&(1<<uint(r)) != 0
}

func (f FilterState) TimeIndex() int {
	return f.timeIndex
}

// Parameters returns the selected parameters in canonical order.
func (f FilterState) Parameters() []models.ParameterKind {
	var out []models.ParameterKind
	for _, p := range models.Parameters {
		if f.HasParameter(p) {
			out = append(out, p)
		}
	}
	return out
}

// Regions returns the selected regions in canonical order.
func (f FilterState) Regions() []models.RegionKind {
	var out []models.RegionKind
	for _, r := range models.Regions {
		if f.HasRegion(r) {
			out = append(out, r)
		}
	}
	return out
}

func (f FilterState) ToggleParameter(p models.ParameterKind) FilterState {
	f.params ^= 1 << uint(p)
	return f
}

func (f FilterState) ToggleRegion(r models.RegionKind) FilterState {
	f.regions ^= 1 << uint(r)
	return f
}

// WithTime clamps i to [0, stepCount). With no steps the index is 0.
func (f FilterState) WithTime(i, stepCount int) FilterState {
	switch {
	case stepCount <= 0 || i < 0:
		i = 0
	case i >= stepCount:
		i = stepCount - 1
	}
	f.timeIndex = i
	return f
}
