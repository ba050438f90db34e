package scenario

import (
	"errors"
	"fmt"
)

// ParameterNotFoundError reports an injectable type no extension provides.
type ParameterNotFoundError struct {
	// Field is the name of the injection point, empty for direct lookups
	Field string

	// Type is the requested type
	Type string
}

// Error implements the error interface for ParameterNotFoundError.
func (e *ParameterNotFoundError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("no extension provides a parameter of type %s", e.Type)
	}
	return fmt.Sprintf("no extension provides a parameter of type %s for field %s", e.Type, e.Field)
}

// IsParameterNotFound checks if an error is or wraps a ParameterNotFoundError.
//
// Args:
//   - err: The error to check
//
// Returns:
//   - bool: true if the error is or wraps a ParameterNotFoundError, false otherwise
func IsParameterNotFound(err error) bool {
	var paramErr *ParameterNotFoundError
	return errors.As(err, &paramErr)
}

// reportedError marks an error that extensions were already notified of.
type reportedError struct {
	phase string
	err   error
}

func (e *reportedError) Error() string {
	return fmt.Sprintf("%s: %v", e.phase, e.err)
}

func (e *reportedError) Unwrap() error {
	return e.err
}
