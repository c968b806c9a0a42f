package errors

import "errors"

// Sentinel errors for common error conditions
var (
	// ErrNotFound indicates that a requested resource was not found
	ErrNotFound = errors.New("resource not found")

	// ErrInvalidInput indicates that input validation failed
	ErrInvalidInput = errors.New("invalid input")

	// ErrNoJSON indicates that no parsable JSON object could be located in an LLM response
	ErrNoJSON = errors.New("no JSON object found in response")

	// ErrNoAgents indicates that no review agents are configured
	ErrNoAgents = errors.New("no review agents configured")

	// ErrStoreUnavailable indicates that the document store could not be reached
	ErrStoreUnavailable = errors.New("document store unavailable")
)
