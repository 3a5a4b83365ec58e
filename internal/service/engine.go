// Package service provides business logic for the tunedeck player.
package service

import (
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/tejashwikalptaru/tunedeck/internal/domain"
	"github.com/tejashwikalptaru/tunedeck/internal/ports"
)

// EngineConfig configures a PlaybackEngine.
type EngineConfig struct {
	// AutoStart starts playback as soon as a track is prepared.
	// When false, a prepared track waits in the paused state.
	AutoStart bool
}

// DefaultEngineConfig returns the configuration used by the player.
func DefaultEngineConfig() EngineConfig {
	return EngineConfig{AutoStart: true}
}

// PlaybackEngine wraps one audio backend and drives its state machine:
//
//	idle -> preparing -> playing <-> paused -> (completion) -> idle
//	any -> (error) -> idle
//
// Asynchronous backend results arrive on the backend's message channel and are
// applied by a single pump goroutine. Each load gets a fresh token; messages
// carrying an older token are dropped, so a superseded load never starts,
// completes or fails the current one.
//
// A Load issued while a previous load is still preparing is queued. Only the
// latest queued track is kept, and it is loaded once the in-flight preparation
// resolves.
//
// Engine faults are logged and published as events; they are never returned
// to the caller. All operations are thread-safe.
type PlaybackEngine struct {
	// Dependencies (injected)
	logger  *slog.Logger
	backend ports.AudioBackend
	bus     ports.EventBus
	config  EngineConfig

	// State
	state     domain.EngineState
	track     *domain.Track
	token     domain.LoadToken
	lastToken domain.LoadToken
	pending   *domain.Track
	lastErr   error
	shutdown  bool

	// Concurrency control
	mu       sync.Mutex
	stopPump chan struct{}
	pumpWg   sync.WaitGroup
}

// NewPlaybackEngine creates a playback engine and starts its message pump.
func NewPlaybackEngine(
	logger *slog.Logger,
	backend ports.AudioBackend,
	bus ports.EventBus,
	config EngineConfig,
) *PlaybackEngine {
	e := &PlaybackEngine{
		logger:   logger.With(slog.String("service", "engine")),
		backend:  backend,
		bus:      bus,
		config:   config,
		state:    domain.StateIdle,
		stopPump: make(chan struct{}),
	}

	e.pumpWg.Add(1)
	go e.pump()

	e.logger.Debug("playback engine initialized", slog.Bool("auto_start", config.AutoStart))
	return e
}

// pump applies backend messages until Shutdown or until the backend closes its channel.
func (e *PlaybackEngine) pump() {
	defer e.pumpWg.Done()

	messages := e.backend.Messages()
	for {
		select {
		case <-e.stopPump:
			return
		case msg, ok := <-messages:
			if !ok {
				e.logger.Debug("backend message channel closed")
				return
			}
			e.handleMessage(msg)
		}
	}
}

// Load resets the backend and starts preparing track.
// Failures are logged and published as EngineErrorEvent; the engine is then idle.
func (e *PlaybackEngine) Load(track domain.Track) {
	e.mu.Lock()
	if e.shutdown {
		e.mu.Unlock()
		e.logger.Warn("load after shutdown ignored", slog.String("title", track.Title))
		return
	}

	if e.state == domain.StatePreparing {
		t := track
		e.pending = &t
		e.mu.Unlock()
		e.logger.Debug("load queued behind preparing track", slog.String("title", track.Title))
		return
	}

	events := e.loadLocked(track)
	e.mu.Unlock()

	e.publish(events)
}

// loadLocked must be called with e.mu held.
func (e *PlaybackEngine) loadLocked(track domain.Track) []domain.Event {
	e.pending = nil

	if err := e.backend.Reset(); err != nil {
		e.logger.Warn("backend reset failed", slog.Any("error", err))
	}

	e.lastToken++
	token := e.lastToken
	e.token = token
	e.track = &track
	e.lastErr = nil

	e.logger.Debug("loading track",
		slog.String("title", track.Title),
		slog.String("locator", track.Locator),
		slog.Uint64("token", uint64(token)))

	if err := e.backend.SetSource(track.Locator); err != nil {
		return e.failLocked(track, "source", err)
	}
	if err := e.backend.Prepare(token); err != nil {
		return e.failLocked(track, "prepare", err)
	}

	e.state = domain.StatePreparing
	return []domain.Event{domain.NewTrackLoadingEvent(track, token)}
}

// failLocked resets the backend and leaves the engine idle.
// It must be called with e.mu held.
func (e *PlaybackEngine) failLocked(track domain.Track, op string, err error) []domain.Event {
	if !errors.As(err, new(*domain.AudioEngineError)) {
		err = domain.NewAudioEngineError(op, track.Locator, "playback failed", err)
	}

	e.logger.Error("playback failed",
		slog.String("op", op),
		slog.String("title", track.Title),
		slog.Any("error", err))

	e.state = domain.StateError
	if resetErr := e.backend.Reset(); resetErr != nil {
		e.logger.Warn("backend reset after error failed", slog.Any("error", resetErr))
	}
	e.state = domain.StateIdle
	e.token = 0
	e.lastErr = err

	return []domain.Event{domain.NewEngineErrorEvent(track, err)}
}

// handleMessage applies one backend message.
func (e *PlaybackEngine) handleMessage(msg domain.BackendMessage) {
	e.mu.Lock()
	if e.shutdown || e.track == nil || msg.Token != e.token {
		e.mu.Unlock()
		e.logger.Debug("stale backend message dropped",
			slog.String("kind", msg.Kind.String()),
			slog.Uint64("token", uint64(msg.Token)))
		return
	}

	var events []domain.Event
	track := *e.track

	switch msg.Kind {
	case domain.MessagePrepared:
		events = e.preparedLocked(track)

	case domain.MessageCompleted:
		if !e.state.IsPrepared() {
			break
		}
		e.logger.Debug("track completed", slog.String("title", track.Title))
		e.state = domain.StateIdle
		events = append(events, domain.NewTrackCompletedEvent(track))

	case domain.MessageError:
		events = e.failLocked(track, "playback", msg.Err)
		if e.pending != nil {
			events = append(events, e.loadLocked(*e.pending)...)
		}

	default:
		e.logger.Warn("unknown backend message", slog.Int("kind", int(msg.Kind)))
	}
	e.mu.Unlock()

	e.publish(events)
}

// preparedLocked must be called with e.mu held.
func (e *PlaybackEngine) preparedLocked(track domain.Track) []domain.Event {
	if e.state != domain.StatePreparing {
		return nil
	}

	// A newer request arrived while preparing; the prepared source is never started.
	if e.pending != nil {
		e.logger.Debug("prepared track superseded", slog.String("title", track.Title))
		return e.loadLocked(*e.pending)
	}

	duration, err := e.backend.Duration()
	if err != nil {
		duration = 0
	}
	events := []domain.Event{
		domain.NewTrackPreparedEvent(track, duration, e.backend.SessionHandle()),
	}

	if !e.config.AutoStart {
		e.state = domain.StatePaused
		return events
	}

	if err := e.backend.Start(); err != nil {
		return append(events, e.failLocked(track, "start", err)...)
	}
	e.state = domain.StatePlaying
	return append(events, domain.NewTrackStartedEvent(track))
}

// Play resumes a prepared, paused track. It does nothing in any other state.
func (e *PlaybackEngine) Play() {
	e.mu.Lock()
	if e.shutdown || e.state != domain.StatePaused {
		state := e.state
		e.mu.Unlock()
		e.logger.Debug("play ignored", slog.String("state", state.String()))
		return
	}

	track := *e.track
	var events []domain.Event
	if err := e.backend.Start(); err != nil {
		events = e.failLocked(track, "start", err)
	} else {
		e.state = domain.StatePlaying
		events = []domain.Event{domain.NewTrackStartedEvent(track)}
	}
	e.mu.Unlock()

	e.publish(events)
}

// Pause pauses a playing track. It does nothing in any other state.
func (e *PlaybackEngine) Pause() {
	e.mu.Lock()
	if e.shutdown || e.state != domain.StatePlaying {
		state := e.state
		e.mu.Unlock()
		e.logger.Debug("pause ignored", slog.String("state", state.String()))
		return
	}

	track := *e.track
	position, err := e.backend.Position()
	if err != nil {
		position = 0
	}

	var events []domain.Event
	if err := e.backend.Pause(); err != nil {
		events = e.failLocked(track, "pause", err)
	} else {
		e.state = domain.StatePaused
		events = []domain.Event{domain.NewTrackPausedEvent(track, position)}
	}
	e.mu.Unlock()

	e.publish(events)
}

// Seek moves the playback position of a prepared track.
// The position is passed to the backend as is.
func (e *PlaybackEngine) Seek(position time.Duration) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.shutdown || !e.state.IsPrepared() {
		e.logger.Debug("seek ignored", slog.String("state", e.state.String()))
		return
	}

	if err := e.backend.SeekTo(position); err != nil {
		e.logger.Warn("seek failed", slog.Duration("position", position), slog.Any("error", err))
	}
}

// PositionMs returns the backend position in milliseconds, or 0 when unavailable.
func (e *PlaybackEngine) PositionMs() int64 {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.shutdown {
		return 0
	}
	position, err := e.backend.Position()
	if err != nil {
		return 0
	}
	return position.Milliseconds()
}

// DurationMs returns the backend duration in milliseconds, or 0 when unavailable.
// Values may be zero or negative while a track is preparing.
func (e *PlaybackEngine) DurationMs() int64 {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.shutdown {
		return 0
	}
	duration, err := e.backend.Duration()
	if err != nil {
		return 0
	}
	return duration.Milliseconds()
}

// IsPlaying reports whether sound is being produced.
// It is false for idle, preparing or shut-down engines and whenever the
// backend cannot answer.
func (e *PlaybackEngine) IsPlaying() bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.shutdown || !e.state.IsPrepared() {
		return false
	}

	playing, err := e.backend.IsPlaying()
	if err != nil {
		e.logger.Debug("backend playing query failed", slog.Any("error", err))
		return false
	}
	return playing
}

// SessionHandle returns the active output handle, or domain.NoSession when idle.
func (e *PlaybackEngine) SessionHandle() domain.SessionHandle {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.shutdown || e.state == domain.StateIdle {
		return domain.NoSession
	}
	return e.backend.SessionHandle()
}

// State returns the current engine state.
func (e *PlaybackEngine) State() domain.EngineState {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// CurrentTrack returns the track last submitted to the backend.
func (e *PlaybackEngine) CurrentTrack() (domain.Track, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.track == nil {
		return domain.Track{}, false
	}
	return *e.track, true
}

// Snapshot returns a point-in-time view of the engine.
func (e *PlaybackEngine) Snapshot() domain.EngineSnapshot {
	e.mu.Lock()
	defer e.mu.Unlock()

	snap := domain.EngineSnapshot{
		State:     e.state,
		Handle:    domain.NoSession,
		LastError: e.lastErr,
	}
	if e.track != nil {
		t := *e.track
		snap.Track = &t
	}
	if e.shutdown {
		return snap
	}
	if pos, err := e.backend.Position(); err == nil {
		snap.Position = pos
	}
	if dur, err := e.backend.Duration(); err == nil {
		snap.Duration = dur
	}
	if e.state != domain.StateIdle {
		snap.Handle = e.backend.SessionHandle()
	}
	return snap
}

// publish delivers events outside the engine lock, so handlers may call back into the engine.
func (e *PlaybackEngine) publish(events []domain.Event) {
	for _, ev := range events {
		e.bus.Publish(ev)
	}
}

// Shutdown stops the message pump, then resets and releases the backend.
// Calling Shutdown more than once is a no-op.
func (e *PlaybackEngine) Shutdown() error {
	e.mu.Lock()
	if e.shutdown {
		e.mu.Unlock()
		return nil
	}
	e.shutdown = true
	close(e.stopPump)
	e.mu.Unlock()

	e.pumpWg.Wait()

	e.mu.Lock()
	defer e.mu.Unlock()

	e.state = domain.StateIdle
	e.pending = nil
	e.token = 0

	resetErr := e.backend.Reset()
	releaseErr := e.backend.Release()

	e.logger.Debug("playback engine shut down")
	return errors.Join(resetErr, releaseErr)
}

// Verify that PlaybackEngine implements the expected interface patterns
var _ interface {
	Load(domain.Track)
	Play()
	Pause()
	Seek(time.Duration)
	PositionMs() int64
	DurationMs() int64
	IsPlaying() bool
	SessionHandle() domain.SessionHandle
	State() domain.EngineState
	CurrentTrack() (domain.Track, bool)
	Snapshot() domain.EngineSnapshot
	Shutdown() error
} = (*PlaybackEngine)(nil)
