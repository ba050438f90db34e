package services

import (
	"errors"
	"fmt"
	"time"
)

// StartTimeoutError reports a service that did not become ready within its
// startup timeout. A resource that logged a fatal marker fails with
// resource.FatalStartError instead.
type StartTimeoutError struct {
	// Service is the name of the service that timed out
	Service string

	// Timeout is the startup timeout that elapsed
	Timeout time.Duration
}

// Error implements the error interface for StartTimeoutError.
func (e *StartTimeoutError) Error() string {
	return fmt.Sprintf("timed out after %s waiting for service %s to start", e.Timeout, e.Service)
}

// IsStartTimeout checks if an error is or wraps a StartTimeoutError.
//
// Args:
//   - err: The error to check
//
// Returns:
//   - bool: true if the error is or wraps a StartTimeoutError, false otherwise
func IsStartTimeout(err error) bool {
	var timeoutErr *StartTimeoutError
	return errors.As(err, &timeoutErr)
}
