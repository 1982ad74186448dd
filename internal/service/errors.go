package service

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidInput is returned when input validation fails.
	ErrInvalidInput = errors.New("invalid input")
	// ErrNotFound is returned when a requested resource is not found.
	ErrNotFound = errors.New("not found")
	// ErrExternalService is returned when an external service call fails.
	ErrExternalService = errors.New("external service error")

	// ErrDimensionMismatch is returned when vectors of one index disagree on dimension.
	// It aborts an index build.
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")
	// ErrEmbeddingFailure is returned when the embedding capability fails or returns
	// an unusable response.
	ErrEmbeddingFailure = errors.New("embedding failure")
	// ErrGenerationFailure is returned when the generation capability fails.
	ErrGenerationFailure = errors.New("generation failure")
	// ErrIndexLoad is returned when the persisted index and metadata cannot be loaded
	// or do not agree with each other. A process that hits it must not serve queries.
	ErrIndexLoad = errors.New("index load failure")
	// ErrBusy is returned when the admission limit could not be acquired in time.
	ErrBusy = errors.New("too many in-flight requests")
)

// ValidationError represents a validation error with a field name.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error on field %s: %s", e.Field, e.Message)
}

// Unwrap lets errors.Is(err, ErrInvalidInput) match validation errors.
func (e *ValidationError) Unwrap() error {
	return ErrInvalidInput
}

// DimensionMismatchError reports the first vector whose dimension disagrees
// with the dimension fixed by the rest of the index.
type DimensionMismatchError struct {
	Ordinal int
	Want    int
	Got     int
}

func (e *DimensionMismatchError) Error() string {
	return fmt.Sprintf("vector %d has dimension %d, expected %d", e.Ordinal, e.Got, e.Want)
}

func (e *DimensionMismatchError) Unwrap() error {
	return ErrDimensionMismatch
}

// WrapError wraps an error with additional context.
func WrapError(err error, msg string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", msg, err)
}

// Classify wraps err with a sentinel kind so callers can match it with errors.Is
// while keeping the original cause in the chain.
func Classify(kind error, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, kind) {
		return err
	}
	return fmt.Errorf("%w: %w", kind, err)
}
