package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNewRunIDTruncatesToUTCDay(t *testing.T) {
	helsinki := time.FixedZone("EET", 2*3600)
	local := time.Date(2024, 3, 2, 1, 30, 0, 0, helsinki) // 2024-03-01 23:30 UTC

	run := NewRunID(local, 18)

	assert.Equal(t, time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), run.Date)
	assert.Equal(t, time.Date(2024, 3, 1, 18, 0, 0, 0, time.UTC), run.Origin())
	assert.Equal(t, "2024-03-01T18Z", run.String())
	assert.Equal(t, "20240301", run.DateString())
}

func TestRunIDOrdering(t *testing.T) {
	day := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name  string
		a, b  RunID
		after bool
		equal bool
	}{
		{"later hour same day", NewRunID(day, 12), NewRunID(day, 6), true, false},
		{"earlier hour same day", NewRunID(day, 0), NewRunID(day, 6), false, false},
		{"today 0 after yesterday 18", NewRunID(day, 0), NewRunID(day.AddDate(0, 0, -1), 18), true, false},
		{"same run", NewRunID(day, 6), NewRunID(day.Add(5*time.Hour), 6), false, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.after, tt.a.After(tt.b))
			assert.Equal(t, tt.equal, tt.a.Equal(tt.b))
		})
	}
}

func TestRunIDIsZero(t *testing.T) {
	assert.True(t, RunID{}.IsZero())
	assert.False(t, NewRunID(time.Now(), 0).IsZero())
}
