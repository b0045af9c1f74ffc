// Package transfer downloads a package payload to local disk.
//
// A transfer is a single streaming GET with an overall time budget.
// Bytes land in a ".part" file that is renamed into place on success,
// so a destination path either holds a complete payload or nothing.
// Failures are reported as *HTTPError, ErrEmptyPayload, ErrIncomplete
// or ErrTimeout.
package transfer
