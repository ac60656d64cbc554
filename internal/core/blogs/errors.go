package blogs

import (
	"errors"
	"fmt"
)

// Sentinel errors for common blog operations
var (
	// ErrNotFound is returned when a post is not found by URI or rkey
	ErrNotFound = errors.New("post not found")

	// ErrAlreadyExists is returned when creating a post whose record key
	// is already taken
	ErrAlreadyExists = errors.New("post already exists")

	// ErrNotAuthenticated is returned when a write is attempted without a
	// valid session
	ErrNotAuthenticated = errors.New("not authenticated")

	// ErrFetchInProgress reports that a fetch walk is already in flight
	// for this session. Callers treat it as "nothing to do", not a failure.
	ErrFetchInProgress = errors.New("fetch already in progress")

	// ErrUnparseableDate is returned when none of the accepted date
	// layouts match
	ErrUnparseableDate = errors.New("unparseable date")
)

// ValidationError represents a validation error with field context.
// Validation always happens before any network call.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error (%s): %s", e.Field, e.Message)
}

// NewValidationError creates a new validation error
func NewValidationError(field, message string) error {
	return &ValidationError{
		Field:   field,
		Message: message,
	}
}

// IsValidationError checks if error is a validation error
func IsValidationError(err error) bool {
	var valErr *ValidationError
	return errors.As(err, &valErr)
}

// FetchError wraps a failure during a pagination walk. Records merged into
// the cache by prior successful calls stay valid; only the walk that
// produced this error was discarded.
type FetchError struct {
	Page int // zero-based page index the walk failed on
	Err  error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch failed on page %d: %v", e.Page, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}
