// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package discovery

import "errors"

// Caller-visible run failures. Connector failures are never returned as
// errors; they are recorded on the SearchRun.
var (
	// ErrNotFound means the profile does not exist or belongs to another
	// user. Nothing has been fetched or written.
	ErrNotFound = errors.New("search profile not found")

	// ErrInvalidWindow means the fetch window was less than one day.
	ErrInvalidWindow = errors.New("window_days must be at least 1")

	// ErrPersistence means the signals and run record could not be
	// committed. No SearchRun exists for the invocation and the caller may
	// retry.
	ErrPersistence = errors.New("persisting search run")
)

// ErrUnknownSource means no connector is registered for a source type.
var ErrUnknownSource = errors.New("no connector registered")
