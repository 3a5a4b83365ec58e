// Package domain defines domain-specific errors.
// These errors represent business logic failures and are independent of infrastructure.
package domain

import (
	"errors"
	"fmt"
)

// Common errors that services can return.
var (
	// ErrPermissionDenied is returned when the media index cannot be read for lack of permission.
	ErrPermissionDenied = errors.New("permission denied")

	// ErrCatalogEmpty is returned when the media index holds no music.
	ErrCatalogEmpty = errors.New("no music files found")

	// ErrCatalogUnavailable is returned when a media root does not exist or cannot be listed.
	ErrCatalogUnavailable = errors.New("media catalog unavailable")

	// ErrPlaylistEmpty is returned when an operation requires a non-empty playlist.
	ErrPlaylistEmpty = errors.New("playlist is empty")

	// ErrInvalidIndex is returned when a playlist index is out of bounds.
	ErrInvalidIndex = errors.New("invalid playlist index")

	// ErrNotPrepared is returned by backends asked to play before preparation finished.
	ErrNotPrepared = errors.New("source not prepared")

	// ErrSourceUnavailable is returned when a locator cannot be opened.
	ErrSourceUnavailable = errors.New("source unavailable")

	// ErrUnsupportedFormat is returned when an audio file format is not supported.
	ErrUnsupportedFormat = errors.New("unsupported audio format")

	// ErrBackendUnavailable is returned when no audio output exists in this build.
	ErrBackendUnavailable = errors.New("audio backend unavailable")

	// ErrBackendReleased is returned when a released backend is used.
	ErrBackendReleased = errors.New("audio backend released")

	// ErrNoAudioSession is returned when the visualizer is asked to attach to the sentinel handle.
	ErrNoAudioSession = errors.New("no active audio session")

	// ErrCaptureUnsupported is returned when the platform refuses a capture tap.
	ErrCaptureUnsupported = errors.New("audio capture not supported")

	// ErrStaleResumeToken is returned when a resume token belongs to another session.
	ErrStaleResumeToken = errors.New("resume token does not match the current session")

	// ErrScanCancelled is returned when a catalog scan is canceled.
	ErrScanCancelled = errors.New("scan cancelled")

	// ErrNotifierUnavailable is returned when no notification service can be reached.
	ErrNotifierUnavailable = errors.New("notification service unavailable")
)

// AudioEngineError represents an error from the audio backend.
// This wraps low-level audio library errors with additional context.
type AudioEngineError struct {
	Op      string // Operation that failed (e.g., "source", "prepare", "start")
	Locator string // Source locator (if applicable)
	Message string // Error message
	Err     error  // Underlying error (if any)
}

// Error implements the error interface.
func (e *AudioEngineError) Error() string {
	if e.Locator != "" {
		return fmt.Sprintf("audio engine %s failed for '%s': %s", e.Op, e.Locator, e.Message)
	}
	return fmt.Sprintf("audio engine %s failed: %s", e.Op, e.Message)
}

// Unwrap returns the underlying error.
func (e *AudioEngineError) Unwrap() error {
	return e.Err
}

// NewAudioEngineError creates a new AudioEngineError.
func NewAudioEngineError(op, locator, message string, err error) *AudioEngineError {
	return &AudioEngineError{
		Op:      op,
		Locator: locator,
		Message: message,
		Err:     err,
	}
}

// CatalogError represents an error from the media catalog.
type CatalogError struct {
	Op   string // Operation that failed (e.g., "query", "watch")
	Root string // Media root involved
	Err  error  // Underlying error
}

// Error implements the error interface.
func (e *CatalogError) Error() string {
	return fmt.Sprintf("catalog %s failed for '%s': %v", e.Op, e.Root, e.Err)
}

// Unwrap returns the underlying error.
func (e *CatalogError) Unwrap() error {
	return e.Err
}

// NewCatalogError creates a new CatalogError.
func NewCatalogError(op, root string, err error) *CatalogError {
	return &CatalogError{
		Op:   op,
		Root: root,
		Err:  err,
	}
}

// ServiceError represents an error from a service layer operation.
type ServiceError struct {
	Service string // Service name (e.g., "SessionController", "LibraryService")
	Op      string // Operation that failed
	Message string // Error message
	Err     error  // Underlying error
}

// Error implements the error interface.
func (e *ServiceError) Error() string {
	return fmt.Sprintf("service %s.%s failed: %s", e.Service, e.Op, e.Message)
}

// Unwrap returns the underlying error.
func (e *ServiceError) Unwrap() error {
	return e.Err
}

// NewServiceError creates a new ServiceError.
func NewServiceError(service, op, message string, err error) *ServiceError {
	return &ServiceError{
		Service: service,
		Op:      op,
		Message: message,
		Err:     err,
	}
}
