package resource

import (
	"errors"
	"fmt"
	"strings"
)

// BuildError reports a failed artifact build for a service. The underlying
// cause is preserved for errors.Is and errors.As.
type BuildError struct {
	// Service is the name of the service whose artifact failed to build
	Service string

	// Cause is the error returned by the build step
	Cause error
}

// Error implements the error interface for BuildError.
func (e *BuildError) Error() string {
	return fmt.Sprintf("failed to build artifact for service %s: %v", e.Service, e.Cause)
}

// Unwrap returns the underlying build failure.
func (e *BuildError) Unwrap() error {
	return e.Cause
}

// IsBuildError checks if an error is or wraps a BuildError.
//
// Args:
//   - err: The error to check
//
// Returns:
//   - bool: true if the error is or wraps a BuildError, false otherwise
func IsBuildError(err error) bool {
	var buildErr *BuildError
	return errors.As(err, &buildErr)
}

// FatalStartError reports that a resource logged a fatal startup marker.
// Readiness polling stops immediately when it sees this error instead of
// waiting for the timeout.
type FatalStartError struct {
	// Resource is the display name of the failing resource
	Resource string

	// Marker is the fatal marker that matched
	Marker string

	// Line is the log line containing the marker
	Line string
}

// Error implements the error interface for FatalStartError.
func (e *FatalStartError) Error() string {
	return fmt.Sprintf("%s reported a fatal startup error (%q): %s", e.Resource, e.Marker, e.Line)
}

// IsFatalStart checks if an error is or wraps a FatalStartError.
//
// Args:
//   - err: The error to check
//
// Returns:
//   - bool: true if the error is or wraps a FatalStartError, false otherwise
func IsFatalStart(err error) bool {
	var fatalErr *FatalStartError
	return errors.As(err, &fatalErr)
}

// benignMessages are fragments of errors that occur while log streams are
// torn down and carry no information about the service under test.
var benignMessages = []string{
	"broken pipe",
	"stream closed",
	"file already closed",
	"use of closed network connection",
}

// IsBenign reports whether err, or any error wrapped by it, is known noise
// from log streaming. Both single and multi-error wrapping are followed.
func IsBenign(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	for _, fragment := range benignMessages {
		if strings.Contains(msg, fragment) {
			return true
		}
	}

	switch wrapped := err.(type) {
	case interface{ Unwrap() error }:
		return IsBenign(wrapped.Unwrap())
	case interface{ Unwrap() []error }:
		for _, inner := range wrapped.Unwrap() {
			if IsBenign(inner) {
				return true
			}
		}
	}
	return false
}
