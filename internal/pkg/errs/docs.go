// Package errs provides standardized error types for the tracking hub.
// It implements a consistent pattern for error creation, formatting, and unwrapping
// that is used throughout the application.
//
// The package includes two families of errors:
//   - Validation errors: ValueIsRequiredError, ValueIsInvalidError,
//     ValueIsOutOfRangeError and ObjectNotFoundError
//   - Synchronization errors: InvalidPayloadError, UnauthorizedError and
//     SnapshotFetchFailedError, plus the ErrStaleTransition and
//     ErrTransportDropped sentinels
//
// Each error type follows a consistent pattern:
//   - A sentinel error variable (e.g., ErrValueIsRequired)
//   - A struct type with fields for error details
//   - Constructor functions with and without cause
//   - Error() method for formatting the error message
//   - Unwrap() method for error wrapping/unwrapping support
//
// Callers classify failures with errors.Is against the sentinels. The
// synchronization sentinels decide recovery: payload and authorization
// failures are never retried, stale transitions cause a single snapshot
// re-fetch, transport and snapshot failures are retried by the session's
// bounded policy.
package errs
