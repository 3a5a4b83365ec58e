// Package mock provides in-memory implementations of the audio ports.
// They are used for testing services without a sound card, and by the
// --mock-audio flag to run the player silently.
package mock

import (
	"log/slog"
	"sync"
	"time"

	"github.com/tejashwikalptaru/tunedeck/internal/domain"
	"github.com/tejashwikalptaru/tunedeck/internal/ports"
)

// DefaultDuration is the duration every mock source reports.
const DefaultDuration = 3 * time.Minute

// messageBuffer bounds the messages waiting for the engine.
const messageBuffer = 64

// Backend is a mock implementation of the AudioBackend interface.
// It simulates the prepare/play/complete life cycle without producing sound.
// Tests drive the asynchronous half with SimulatePrepared, SimulateCompletion
// and SimulateError.
//
// Thread-safety: This implementation is thread-safe.
type Backend struct {
	logger *slog.Logger

	mu       sync.Mutex
	messages chan domain.BackendMessage
	released bool

	// Source state
	source     string
	token      domain.LoadToken
	preparing  bool
	prepared   bool
	playing    bool
	position   time.Duration
	duration   time.Duration
	handle     domain.SessionHandle
	nextHandle domain.SessionHandle

	// Behavior configuration (for testing error scenarios)
	autoPrepare bool
	failSource  bool
	failStart   bool

	// Call records
	sources    []string
	prepares   []domain.LoadToken
	resetCount int
}

// NewBackend creates a new mock audio backend.
// A nil logger discards output.
func NewBackend(logger *slog.Logger) *Backend {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Backend{
		logger:     logger.With(slog.String("adapter", "mock-backend")),
		messages:   make(chan domain.BackendMessage, messageBuffer),
		duration:   DefaultDuration,
		handle:     domain.NoSession,
		nextHandle: 1,
	}
}

// SetAutoPrepare makes Prepare report success immediately.
func (b *Backend) SetAutoPrepare(auto bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.autoPrepare = auto
}

// SetFailSource makes SetSource fail (for testing).
func (b *Backend) SetFailSource(fail bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failSource = fail
}

// SetFailStart makes Start fail (for testing).
func (b *Backend) SetFailStart(fail bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failStart = fail
}

// SetDuration changes the duration reported for prepared sources.
func (b *Backend) SetDuration(d time.Duration) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.duration = d
}

// Reset stops playback and drops the current source.
func (b *Backend) Reset() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.released {
		return domain.ErrBackendReleased
	}

	b.resetCount++
	b.source = ""
	b.preparing = false
	b.prepared = false
	b.playing = false
	b.position = 0
	b.handle = domain.NoSession
	return nil
}

// SetSource assigns the locator of the next source.
func (b *Backend) SetSource(locator string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.released {
		return domain.ErrBackendReleased
	}
	if b.failSource || locator == "" {
		return domain.NewAudioEngineError("source", locator, "mock source failed", domain.ErrSourceUnavailable)
	}

	b.sources = append(b.sources, locator)
	b.source = locator
	return nil
}

// Prepare records the token and, in auto-prepare mode, reports success at once.
func (b *Backend) Prepare(token domain.LoadToken) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.released {
		return domain.ErrBackendReleased
	}
	if b.source == "" {
		return domain.NewAudioEngineError("prepare", "", "no source set", domain.ErrSourceUnavailable)
	}

	b.prepares = append(b.prepares, token)
	b.token = token
	b.preparing = true

	if b.autoPrepare {
		b.markPreparedLocked(token)
	}
	return nil
}

// SimulatePrepared reports that preparation for token finished.
// The backend state only changes when token is the latest prepare request;
// the message is posted either way.
func (b *Backend) SimulatePrepared(token domain.LoadToken) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.markPreparedLocked(token)
}

func (b *Backend) markPreparedLocked(token domain.LoadToken) {
	if token == b.token && b.preparing {
		b.preparing = false
		b.prepared = true
		b.position = 0
		b.handle = b.nextHandle
		b.nextHandle++
	}
	b.postLocked(domain.BackendMessage{Kind: domain.MessagePrepared, Token: token})
}

// SimulateCompletion reports that the source for token played to its end.
func (b *Backend) SimulateCompletion(token domain.LoadToken) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if token == b.token && b.prepared {
		b.playing = false
		b.position = b.duration
	}
	b.postLocked(domain.BackendMessage{Kind: domain.MessageCompleted, Token: token})
}

// SimulateError reports a decode or output failure for token.
func (b *Backend) SimulateError(token domain.LoadToken, err error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if token == b.token {
		b.preparing = false
		b.playing = false
	}
	b.postLocked(domain.BackendMessage{Kind: domain.MessageError, Token: token, Err: err})
}

// SimulateProgress advances the playback position.
func (b *Backend) SimulateProgress(delta time.Duration) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.position = min(b.position+delta, b.duration)
}

// postLocked must be called with b.mu held.
func (b *Backend) postLocked(msg domain.BackendMessage) {
	if b.released {
		return
	}
	select {
	case b.messages <- msg:
	default:
		b.logger.Warn("message dropped, buffer full",
			slog.String("kind", msg.Kind.String()),
			slog.Uint64("token", uint64(msg.Token)))
	}
}

// Start starts or resumes playback.
func (b *Backend) Start() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.prepared {
		return domain.ErrNotPrepared
	}
	if b.failStart {
		return domain.NewAudioEngineError("start", b.source, "mock start failed", nil)
	}
	b.playing = true
	return nil
}

// Pause pauses playback.
func (b *Backend) Pause() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.prepared {
		return domain.ErrNotPrepared
	}
	b.playing = false
	return nil
}

// SeekTo moves the playback position. Like most platform players it does
// not validate the position against the duration.
func (b *Backend) SeekTo(position time.Duration) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.prepared {
		return domain.ErrNotPrepared
	}
	b.position = position
	return nil
}

// Position returns the current playback position.
func (b *Backend) Position() (time.Duration, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.prepared {
		return 0, domain.ErrNotPrepared
	}
	return b.position, nil
}

// Duration returns the source duration.
func (b *Backend) Duration() (time.Duration, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.prepared {
		return 0, domain.ErrNotPrepared
	}
	return b.duration, nil
}

// IsPlaying reports whether playback is running.
// It returns an error outside the prepared state.
func (b *Backend) IsPlaying() (bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.released {
		return false, domain.ErrBackendReleased
	}
	if !b.prepared {
		return false, domain.ErrNotPrepared
	}
	return b.playing, nil
}

// SessionHandle returns the current output handle.
func (b *Backend) SessionHandle() domain.SessionHandle {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.handle
}

// Messages returns the channel of asynchronous results.
func (b *Backend) Messages() <-chan domain.BackendMessage {
	return b.messages
}

// Release closes the message channel. Releasing twice is a no-op.
func (b *Backend) Release() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.released {
		return nil
	}
	b.released = true
	b.prepared = false
	b.playing = false
	b.handle = domain.NoSession
	close(b.messages)
	return nil
}

// Sources returns every locator passed to SetSource (for testing).
func (b *Backend) Sources() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string(nil), b.sources...)
}

// Prepares returns every token passed to Prepare (for testing).
func (b *Backend) Prepares() []domain.LoadToken {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]domain.LoadToken(nil), b.prepares...)
}

// LastToken returns the token of the latest Prepare call.
func (b *Backend) LastToken() domain.LoadToken {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.token
}

// ResetCount returns how often Reset was called (for testing).
func (b *Backend) ResetCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.resetCount
}

// Playing reports the raw playing flag without the prepared check.
func (b *Backend) Playing() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.playing
}

// Verify interface implementation
var _ ports.AudioBackend = (*Backend)(nil)
