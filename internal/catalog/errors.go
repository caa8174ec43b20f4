package catalog

import (
	"context"
	"errors"
	"fmt"
	"net/http"
)

// ErrAlreadyReconciled is returned when Reconcile is invoked a second time
var ErrAlreadyReconciled = errors.New("catalog already reconciled")

// RemoteCallError describes a failed call to the remote provider.
// StatusCode is the provider HTTP status, or 0 when no response was received.
type RemoteCallError struct {
	Op         string
	StatusCode int
	Temporary  bool
	Err        error
}

func (e *RemoteCallError) Error() string {
	kind := "permanent"
	if e.Temporary {
		kind = "transient"
	}
	if e.StatusCode != 0 {
		return fmt.Sprintf("remote %s failed (%s, status %d): %v", e.Op, kind, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("remote %s failed (%s): %v", e.Op, kind, e.Err)
}

func (e *RemoteCallError) Unwrap() error {
	return e.Err
}

// NewRemoteCallError classifies err by status code and context state.
// Timeouts, rate limits and 5xx responses are transient; other 4xx are permanent.
func NewRemoteCallError(op string, statusCode int, err error) *RemoteCallError {
	return &RemoteCallError{
		Op:         op,
		StatusCode: statusCode,
		Temporary:  isTransient(statusCode, err),
		Err:        err,
	}
}

func isTransient(statusCode int, err error) bool {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return true
	case errors.Is(err, context.Canceled):
		return false
	case statusCode == 0:
		return true
	case statusCode == http.StatusTooManyRequests, statusCode == http.StatusConflict:
		return true
	case statusCode >= 500:
		return true
	}
	return false
}

// IsRetryable reports whether err carries a transient remote failure
func IsRetryable(err error) bool {
	var rce *RemoteCallError
	if errors.As(err, &rce) {
		return rce.Temporary
	}
	return false
}

// DataIntegrityError is raised when a record cannot be converted without loss
type DataIntegrityError struct {
	Field string
	Value string
	Err   error
}

func (e *DataIntegrityError) Error() string {
	return fmt.Sprintf("data integrity: field %s=%q: %v", e.Field, e.Value, e.Err)
}

func (e *DataIntegrityError) Unwrap() error {
	return e.Err
}
