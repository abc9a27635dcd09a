package models

import "errors"

var (
	// ErrProviderUnavailable means a provider returned an empty or invalid response,
	// usually because the run has not been published yet.
	ErrProviderUnavailable = errors.New("provider unavailable")

	// ErrPartialAcquisition means only one of the two providers delivered the run.
	ErrPartialAcquisition = errors.New("partial acquisition")

	// ErrNoRunAvailable means no candidate run could be acquired.
	ErrNoRunAvailable = errors.New("no run available")

	// ErrRenderResourceDisposal is logged when a render handle could not be released.
	ErrRenderResourceDisposal = errors.New("render resource disposal failed")

	// ErrDatasetAccess means a downloaded file could not be opened or decoded.
	ErrDatasetAccess = errors.New("dataset access failed")
)
