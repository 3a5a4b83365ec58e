// Package ports define interfaces for dependency inversion.
// These interfaces allow the core business logic to remain independent of external frameworks.
package ports

import (
	"time"

	"github.com/tejashwikalptaru/tunedeck/internal/domain"
)

// AudioBackend is the interface for the platform audio output.
// One backend instance backs one playback engine for its whole lifetime:
// it is reset between tracks, never recreated.
//
// Results of asynchronous work (preparation, end of stream, decode or output
// faults) are posted on Messages, tagged with the token passed to Prepare.
//
// Implementations must be thread-safe as they may be called from multiple goroutines.
type AudioBackend interface {
	// Reset stops playback and drops the current source.
	// Calling Reset on an idle backend is a no-op.
	Reset() error

	// SetSource assigns the locator of the next source.
	// It fails synchronously when the locator cannot be resolved.
	SetSource(locator string) error

	// Prepare starts asynchronous preparation of the current source.
	// Success or failure is reported on Messages with the given token.
	Prepare(token domain.LoadToken) error

	// Start starts or resumes playback of a prepared source.
	//
	// Returns domain.ErrNotPrepared if no source is prepared.
	Start() error

	// Pause pauses playback, keeping the position.
	Pause() error

	// SeekTo moves the playback position.
	SeekTo(position time.Duration) error

	// Position returns the current playback position.
	Position() (time.Duration, error)

	// Duration returns the total duration of the prepared source.
	Duration() (time.Duration, error)

	// IsPlaying reports whether sound is being produced.
	// It returns an error when queried in a state where the answer is undefined.
	IsPlaying() (bool, error)

	// SessionHandle returns the handle of the active output path,
	// or domain.NoSession when nothing is prepared.
	SessionHandle() domain.SessionHandle

	// Messages returns the channel of asynchronous backend results.
	// The channel is closed by Release.
	Messages() <-chan domain.BackendMessage

	// Release frees the backend. The backend cannot be used afterwards.
	Release() error
}

// AudioBackendFactory is a function that creates an AudioBackend instance.
// This allows for dependency injection of different backend implementations.
type AudioBackendFactory func() (AudioBackend, error)
