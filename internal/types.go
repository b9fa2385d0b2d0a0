// internal/types.go - Common types for internal packages
package internal

import (
	"errors"
	"time"
)

// Reporter receives named progress checkpoints from the build pipeline.
// Implementations must not block: the pipeline never waits on a reporter.
type Reporter interface {
	Report(checkpoint string)
}

// ReporterFunc adapts a plain function to the Reporter interface
type ReporterFunc func(checkpoint string)

// Report calls f(checkpoint)
func (f ReporterFunc) Report(checkpoint string) {
	f(checkpoint)
}

// NopReporter discards every checkpoint
type NopReporter struct{}

// Report implements Reporter
func (NopReporter) Report(string) {}

// ChanReporter forwards checkpoints to a channel, dropping them when the
// consumer is not keeping up.
type ChanReporter chan string

// Report implements Reporter
func (c ChanReporter) Report(checkpoint string) {
	select {
	case c <- checkpoint:
	default:
	}
}

// BuildStats represents metrics for a project build
type BuildStats struct {
	Regions    int
	Layers     int
	Tiles      int
	TileErrors int
	StartTime  time.Time
	EndTime    time.Time
}

// Duration returns the wall time of the build
func (s *BuildStats) Duration() time.Duration {
	if s.EndTime.IsZero() {
		return time.Since(s.StartTime)
	}
	return s.EndTime.Sub(s.StartTime)
}

// Error represents application-specific errors
type Error struct {
	Code    string
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return e.Message + ": " + e.Cause.Error()
	}
	return e.Message
}

// Unwrap exposes the underlying cause to errors.Is and errors.As
func (e *Error) Unwrap() error {
	return e.Cause
}

// NewError creates a new application error
func NewError(code, message string, cause error) *Error {
	return &Error{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// HasCode reports whether any error in err's chain is an *Error with the given code
func HasCode(err error, code string) bool {
	for err != nil {
		var appErr *Error
		if !errors.As(err, &appErr) {
			return false
		}
		if appErr.Code == code {
			return true
		}
		err = appErr.Cause
	}
	return false
}

// ErrorCode constants for common error types
const (
	ErrorCodeGeometry       = "GEOMETRY_ERROR"
	ErrorCodeGraphIntegrity = "GRAPH_INTEGRITY"
	ErrorCodeNotFound       = "NOT_FOUND"
	ErrorCodeRaster         = "RASTER_ERROR"
	ErrorCodeToolkit        = "TOOLKIT_ERROR"
	ErrorCodeTiling         = "TILING_ERROR"
	ErrorCodeValidation     = "VALIDATION_ERROR"
	ErrorCodeConfig         = "CONFIG_ERROR"
	ErrorCodeFileSystem     = "FILESYSTEM_ERROR"
)
