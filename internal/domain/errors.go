package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidParams marks analysis parameters that cannot be used.
	ErrInvalidParams = errors.New("invalid analysis parameters")
	// ErrInvalidIncident marks an incident record that cannot be analysed.
	ErrInvalidIncident = errors.New("invalid incident")
	// ErrTooManyIncidents is returned when the input exceeds the configured ceiling.
	ErrTooManyIncidents = errors.New("too many incidents")
	// ErrInternal marks a computation that produced a degenerate result.
	ErrInternal = errors.New("internal analysis error")
	// ErrSourceUnavailable is returned when no incident source is configured.
	ErrSourceUnavailable = errors.New("incident source unavailable")
)

// ValidationError describes a caller-level input error. It unwraps to
// ErrInvalidParams, ErrInvalidIncident or ErrTooManyIncidents.
type ValidationError struct {
	Field  string
	Reason string
	Index  int // incident index, -1 for parameters
	err    error
}

func (e *ValidationError) Error() string {
	if e.Index >= 0 && errors.Is(e.err, ErrInvalidIncident) {
		return fmt.Sprintf("%v: incident %d: %s %s", e.err, e.Index, e.Field, e.Reason)
	}
	return fmt.Sprintf("%v: %s %s", e.err, e.Field, e.Reason)
}

func (e *ValidationError) Unwrap() error {
	return e.err
}

// InvalidParam builds a ValidationError for a malformed parameter.
func InvalidParam(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason, Index: -1, err: ErrInvalidParams}
}

// TooManyIncidents builds the validation error for an input above the ceiling.
func TooManyIncidents(n, limit int) error {
	return &ValidationError{
		Field:  "incidents",
		Reason: fmt.Sprintf("got %d, limit is %d", n, limit),
		Index:  -1,
		err:    ErrTooManyIncidents,
	}
}

func invalidIncident(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason, Index: -1, err: ErrInvalidIncident}
}

// AtIndex returns a copy of a validation error attributed to incident idx.
// Other errors are returned unchanged.
func AtIndex(err error, idx int) error {
	var ve *ValidationError
	if !errors.As(err, &ve) {
		return err
	}
	out := *ve
	out.Index = idx
	return &out
}

// IsValidation reports whether err is a caller input error.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// Internalf wraps ErrInternal with a formatted description.
func Internalf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInternal, fmt.Sprintf(format, args...))
}
