// Package matching orchestrates batch compatibility runs: resolve the pivot
// entity, fan candidate pairs out to the scorer, persist every verdict and
// return the ranked list.
package matching

import "errors"

var (
	// ErrUnauthorized is returned when the run has no authenticated caller.
	ErrUnauthorized = errors.New("matching: unauthorized")

	// ErrInvalidRequest is returned for a missing or unknown pivot.
	ErrInvalidRequest = errors.New("matching: invalid request")

	// ErrNotFound is returned when the pivot entity does not exist.
	ErrNotFound = errors.New("matching: pivot not found")
)

// PivotType selects which side of the marketplace anchors the run.
type PivotType string

const (
	PivotProject PivotType = "project"
	PivotProfile PivotType = "profile"
)

// CurrentProfile is the pivot id sentinel resolving to the caller's own
// profile.
const CurrentProfile = "current"
