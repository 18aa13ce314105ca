package domain

import "errors"

var (
	// ErrNotFound is returned when a test, question or user does not exist.
	ErrNotFound = errors.New("not found")
	// ErrTestInactive is returned when a test exists but is disabled.
	ErrTestInactive = errors.New("test is not active")
	// ErrInvalidInput marks malformed user input; callers re-prompt the
	// same state and mutate nothing.
	ErrInvalidInput = errors.New("invalid input")
	// ErrIntegrity is returned when a multi-statement cascade cannot be
	// applied atomically; no partial state is left behind.
	ErrIntegrity = errors.New("integrity violation")
	// ErrUnauthorized is returned when a non-administrator invokes an
	// administrator-only operation.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrNoResults means the user has no completed attempts and therefore
	// no rank.
	ErrNoResults = errors.New("no results for user")
	// ErrNoSession is returned when a quiz operation arrives for a user
	// without an open session.
	ErrNoSession = errors.New("no open quiz session")
	// ErrAttemptStale means the question list shrank under an open
	// session; the caller should re-present, which finishes the attempt.
	ErrAttemptStale = errors.New("attempt outlived its questions")
)
