package errs

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidPayload      = errors.New("invalid payload")
	ErrUnauthorized        = errors.New("unauthorized")
	ErrStaleTransition     = errors.New("stale transition")
	ErrTransportDropped    = errors.New("transport dropped")
	ErrSnapshotFetchFailed = errors.New("snapshot fetch failed")
)

// InvalidPayloadError reports a malformed inbound event. Such events are
// dropped and never retried.
type InvalidPayloadError struct {
	Field string
	Cause error
}

func NewInvalidPayloadError(field string) *InvalidPayloadError {
	return &InvalidPayloadError{Field: field}
}

func NewInvalidPayloadErrorWithCause(field string, cause error) *InvalidPayloadError {
	return &InvalidPayloadError{Field: field, Cause: cause}
}

func (e *InvalidPayloadError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (cause: %v)", ErrInvalidPayload, e.Field, e.Cause)
	}
	return fmt.Sprintf("%s: %s", ErrInvalidPayload, e.Field)
}

func (e *InvalidPayloadError) Unwrap() []error {
	if e.Cause != nil {
		return []error{ErrInvalidPayload, e.Cause}
	}
	return []error{ErrInvalidPayload}
}

// UnauthorizedError reports a rejected credential or a denied topic.
type UnauthorizedError struct {
	Subject string
	Cause   error
}

func NewUnauthorizedError(subject string) *UnauthorizedError {
	return &UnauthorizedError{Subject: subject}
}

func NewUnauthorizedErrorWithCause(subject string, cause error) *UnauthorizedError {
	return &UnauthorizedError{Subject: subject, Cause: cause}
}

func (e *UnauthorizedError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (cause: %v)", ErrUnauthorized, e.Subject, e.Cause)
	}
	return fmt.Sprintf("%s: %s", ErrUnauthorized, e.Subject)
}

func (e *UnauthorizedError) Unwrap() []error {
	if e.Cause != nil {
		return []error{ErrUnauthorized, e.Cause}
	}
	return []error{ErrUnauthorized}
}

// SnapshotFetchFailedError reports a failed call to the REST collaborator.
// It is retryable; holders of a view keep their last good state.
type SnapshotFetchFailedError struct {
	Resource string
	Cause    error
}

func NewSnapshotFetchFailedError(resource string, cause error) *SnapshotFetchFailedError {
	return &SnapshotFetchFailedError{Resource: resource, Cause: cause}
}

func (e *SnapshotFetchFailedError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (cause: %v)", ErrSnapshotFetchFailed, e.Resource, e.Cause)
	}
	return fmt.Sprintf("%s: %s", ErrSnapshotFetchFailed, e.Resource)
}

func (e *SnapshotFetchFailedError) Unwrap() []error {
	if e.Cause != nil {
		return []error{ErrSnapshotFetchFailed, e.Cause}
	}
	return []error{ErrSnapshotFetchFailed}
}

// IsRetryable reports whether err is recovered locally by reconnect or
// re-fetch rather than surfaced as a terminal failure.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrInvalidPayload) || errors.Is(err, ErrUnauthorized) {
		return false
	}
	return errors.Is(err, ErrTransportDropped) || errors.Is(err, ErrSnapshotFetchFailed)
}
