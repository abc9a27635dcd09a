package models

import (
	"fmt"
	"time"
)

// RunHours are the issuance hours both providers publish, most recent first.
var RunHours = []int{18, 12, 6, 0}

// RunID identifies one forecast model execution by issuance date and hour (UTC).
type RunID struct {
	Date time.Time // midnight UTC of the issuance day
	Hour int       // one of RunHours
}

// NewRunID builds a RunID for the UTC calendar day of t at the given hour.
func NewRunID(t time.Time, hour int) RunID {
	t = t.UTC()
	return RunID{
		Date: time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC),
		Hour: hour,
	}
}

// Origin returns the run's issuance instant.
func (r RunID) Origin() time.Time {
	return r.Date.Add(time.Duration(r.Hour) * time.Hour)
}

// Equal reports whether both ids name the same run.
func (r RunID) Equal(o RunID) bool {
	return r.Date.Equal(o.Date) && r.Hour == o.Hour
}

// After reports whether r was issued later than o.
func (r RunID) After(o RunID) bool {
	return r.Origin().After(o.Origin())
}

// IsZero reports whether the id was never set.
func (r RunID) IsZero() bool {
	return r.Date.IsZero()
}

// DateString formats the date the way the global provider's paths expect (YYYYMMDD).
func (r RunID) DateString() string {
	return r.Date.Format("20060102")
}

func (r RunID) String() string {
	return fmt.Sprintf("%sT%02dZ", r.Date.Format("2006-01-02"), r.Hour)
}
