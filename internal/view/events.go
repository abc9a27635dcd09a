package view

import "github.com/ngmaloney/forecast-terminal/internal/models"

// Event is a user or pipeline input to the state machine.
type Event interface {
	isEvent()
}

type ToggleParameter struct {
	Parameter models.ParameterKind
}

type ToggleRegion struct {
	Region models.RegionKind
}

type SetTime struct {
	Index int
}

// Reload keeps the filters and redraws against the repository's current
// data, e.g. after a new run was stored or the terminal was resized.
type Reload struct{}

func (ToggleParameter) isEvent() {}
func (ToggleRegion) isEvent()    {}
func (SetTime) isEvent()         {}
func (Reload) isEvent()          {}

// Next is the transition function. stepCount bounds the time index.
func Next(state FilterState, ev Event, stepCount int) FilterState {
	switch ev := ev.(type) {
	case ToggleParameter:
		state = state.ToggleParameter(ev.Parameter)
	case ToggleRegion:
		state = state.ToggleRegion(ev.Region)
	case SetTime:
		return state.WithTime(ev.Index, stepCount)
	}
	// The data may have changed under an unchanged index.
	return state.WithTime(state.timeIndex, stepCount)
}
