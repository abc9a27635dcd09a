package store

import (
	"sync"

	"github.com/ngmaloney/forecast-terminal/internal/models"
)

// Repository holds the most recently acquired run. It is written by the
// pipeline and read by the view, so access is guarded; the datasets
// themselves are never mutated after Store.
type Repository struct {
	mu       sync.RWMutex
	snapshot *models.Snapshot
}

// NewRepository creates an empty Repository.
func NewRepository() *Repository {
	return &Repository{}
}

// Store replaces the held run. Outcomes that are not new are ignored.
// It reports whether the repository changed.
func (r *Repository) Store(outcome models.Outcome) bool {
	if !outcome.IsNew {
		return false
	}
	snap := &models.Snapshot{
		Run:        outcome.Run,
		Global:     outcome.Global,
		Regional:   outcome.Regional,
		AcquiredAt: outcome.AcquiredAt,
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.snapshot = snap
	return true
}

// Current returns the held run, if any.
func (r *Repository) Current() (models.Snapshot, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.snapshot == nil {
		return models.Snapshot{}, false
	}
	return *r.snapshot, true
}

// LastRun returns the id of the held run, or nil on a cold start.
func (r *Repository) LastRun() *models.RunID {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.snapshot == nil {
		return nil
	}
	run := r.snapshot.Run
	return &run
}
