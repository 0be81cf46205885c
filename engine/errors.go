/*
errors.go - Centralized error types for the forecasting engine

PURPOSE:
  All error types in one place for consistency and discoverability.
  Callers (api, cmd) should branch with errors.Is / errors.As.

ERROR CATEGORIES:
  1. Configuration errors - SourceConflict (undeclared canonical source)
  2. Fetch errors - an upstream data dependency failed
  3. Not-found errors - unknown project

NOT ERRORS:
  Division-by-zero guards (zero hours, zero contract value, zero EAC) are
  defined to yield 0 and are tested as such. An unclassifiable record is a
  representable outcome (DataQuality), not a failure.
*/
package engine

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrProjectNotFound is returned when the referenced project doesn't exist.
	ErrProjectNotFound = errors.New("project not found")

	// ErrSourceConflict is returned when both the employee and craft actuals
	// tables hold data for overlapping weeks and the project never declared
	// a canonical source. This is a configuration error for the caller to
	// resolve, not something the engine guesses its way around.
	ErrSourceConflict = errors.New("labor actuals source conflict")

	// ErrUpstreamFetch is returned when one of the data-fetch dependencies
	// fails. The whole computation fails closed - a partial result is
	// financially misleading.
	ErrUpstreamFetch = errors.New("upstream fetch failed")

	// ErrInvalidCategory is returned when an input names a category outside
	// the fixed enumeration.
	ErrInvalidCategory = errors.New("invalid cost category")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// SourceConflictError reports which weeks appear in both actuals tables.
type SourceConflictError struct {
	ProjectID    ProjectID
	OverlapWeeks []WeekEnding
}

func (e *SourceConflictError) Error() string {
	return fmt.Sprintf("labor actuals source conflict for project %s: %d week(s) present in both employee and craft tables with no canonical source declared",
		e.ProjectID, len(e.OverlapWeeks))
}

func (e *SourceConflictError) Unwrap() error { return ErrSourceConflict }

// UpstreamError identifies which data dependency failed.
type UpstreamError struct {
	Component string // "project", "labor_actuals", "purchase_orders", "headcount_forecasts", "budget"
	Err       error
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("fetch %s: %v", e.Component, e.Err)
}

func (e *UpstreamError) Unwrap() error { return e.Err }

// Is lets errors.Is(err, ErrUpstreamFetch) match any UpstreamError.
func (e *UpstreamError) Is(target error) bool { return target == ErrUpstreamFetch }

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsConfigError returns true if the error requires operator action on the
// project's configuration rather than a retry.
func IsConfigError(err error) bool {
	return errors.Is(err, ErrSourceConflict)
}

// IsNotFound returns true if the error indicates a missing project.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrProjectNotFound)
}
