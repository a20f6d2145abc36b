package services

import (
	"errors"
	"fmt"
)

// ErrNotFound reports that a referenced row does not exist.
var ErrNotFound = errors.New("record not found")

// ValidationError reports rejected input (negative time deltas, backdated
// streak updates, out-of-range ratings, invalid challenge configuration).
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func validation(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}

// IsValidation reports whether err is a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
