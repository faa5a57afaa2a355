package services

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned when no record has the requested id.
var ErrNotFound = errors.New("record not found")

// ValidationError marks input rejected before the store was touched.
type ValidationError struct {
	Err error
}

func (e *ValidationError) Error() string { return fmt.Sprintf("validation failed: %v", e.Err) }

func (e *ValidationError) Unwrap() error { return e.Err }

// IsValidation reports whether err was caused by invalid input.
func IsValidation(err error) bool {
	var v *ValidationError
	return errors.As(err, &v)
}
