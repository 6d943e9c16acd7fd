package domain

import "errors"

// -----------------------------------------------------------------------------
// Domain Errors
// These errors represent domain-level failures and are used by stores, the
// generation client and the view controllers to communicate failure classes.
// -----------------------------------------------------------------------------

// Lookup errors
var (
	ErrNotFound      = errors.New("not found")
	ErrNotRegistered = errors.New("learner not registered")
)

// Validation errors
var (
	ErrInvalidInput    = errors.New("invalid input")
	ErrInvalidQuiz     = errors.New("invalid quiz question")
	ErrInvalidExercise = errors.New("invalid exercise")
	ErrEmptyCode       = errors.New("code is empty")
)

// View state errors
var (
	// ErrBusy is returned when the same action already has a request in flight.
	ErrBusy = errors.New("action already in progress")

	// ErrStale is returned when a response arrives for a superseded selection.
	ErrStale = errors.New("result superseded")
)
