package shelfd

import (
	"errors"
	"strings"
)

var (
	// ErrNotFound is returned when no record exists for an id.
	ErrNotFound = errors.New("record not found")
	// ErrForbidden is returned when the caller does not own a record it
	// tries to mutate.
	ErrForbidden = errors.New("forbidden")
	// ErrInvalidInput is the base error for all validation failures.
	ErrInvalidInput = errors.New("invalid input")
	// ErrStoreCorrupt is returned when the backing collection cannot be
	// parsed as the expected structure.
	ErrStoreCorrupt = errors.New("record store corrupt")
	// ErrUnsupportedMediaType is returned when an upload's declared media
	// type is not in the accepted set.
	ErrUnsupportedMediaType = errors.New("unsupported media type")
	// ErrPayloadTooLarge is returned when an upload exceeds the configured
	// byte ceiling.
	ErrPayloadTooLarge = errors.New("payload too large")
)

// ValidationError reports every failing field of a request, not just the
// first. It unwraps to ErrInvalidInput so callers can match the whole
// class with errors.Is.
type ValidationError struct {
	Fields []string
}

func (e *ValidationError) Error() string {
	return "invalid input: " + strings.Join(e.Fields, ", ")
}

func (e *ValidationError) Unwrap() error {
	return ErrInvalidInput
}
