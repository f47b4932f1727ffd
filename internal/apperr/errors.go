// Package apperr defines the sentinel errors shared across Ansuz layers.
package apperr

import "errors"

var (
	// ErrNotFound signals common-case absence: the queried note does not
	// exist in the current snapshot. Callers treat it as a normal result
	// variant, not a failure.
	ErrNotFound = errors.New("not found")

	// ErrNotInitialized signals a query before the first completed scan.
	// This is a caller precondition violation and is never retried.
	ErrNotInitialized = errors.New("vault index not initialized")

	// ErrScanInProgress signals a scan request while another scan is
	// running. The in-flight scan is not coalesced; the caller retries.
	ErrScanInProgress = errors.New("scan already in progress")

	// ErrAlreadyExists signals a create targeting an existing file.
	ErrAlreadyExists = errors.New("already exists")

	// ErrConflict signals an optimistic-concurrency checksum mismatch.
	ErrConflict = errors.New("conflict")
)
