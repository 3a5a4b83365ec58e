package service

import (
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/tejashwikalptaru/tunedeck/internal/domain"
	"github.com/tejashwikalptaru/tunedeck/internal/ports"
)

// Engine is the playback surface the session controller drives.
// PlaybackEngine implements it.
type Engine interface {
	Load(track domain.Track)
	Play()
	Pause()
	Seek(position time.Duration)
	PositionMs() int64
	DurationMs() int64
	IsPlaying() bool
	SessionHandle() domain.SessionHandle
	State() domain.EngineState
}

// SessionController owns the playlist and the cursor and mediates between
// the UI and the playback engine.
//
// Every load (PlayAt, Next, Prev and auto-advance), every prepared track and
// every play/pause refreshes the "now playing" notification. Reaching the end
// of the last track wraps to the first one, so the playlist loops forever.
//
// All operations are thread-safe. Cursor moves and the engine load they cause
// happen as one step, so the engine always ends up on the cursor track.
type SessionController struct {
	// Dependencies (injected)
	logger   *slog.Logger
	engine   Engine
	bus      ports.EventBus
	notifier ports.Notifier

	// State
	sessionID string
	playlist  domain.Playlist
	cursor    int
	subs      []domain.SubscriptionID
	shutdown  bool

	// Concurrency control. opMu serializes a cursor move with the load it
	// triggers; mu guards the fields above.
	opMu sync.Mutex
	mu   sync.RWMutex
}

// NewSessionController creates a session controller with an empty playlist.
// It subscribes to engine events for auto-advance and notification refresh.
func NewSessionController(
	logger *slog.Logger,
	engine Engine,
	bus ports.EventBus,
	notifier ports.Notifier,
) *SessionController {
	c := &SessionController{
		logger:    logger.With(slog.String("service", "session")),
		engine:    engine,
		bus:       bus,
		notifier:  notifier,
		sessionID: uuid.NewString(),
	}

	if err := notifier.EnsureChannel(); err != nil {
		c.logger.Warn("notification channel unavailable", slog.Any("error", err))
	}

	c.subs = append(c.subs,
		bus.Subscribe(domain.EventTrackCompleted, c.handleTrackCompleted),
		bus.Subscribe(domain.EventTrackPrepared, func(domain.Event) { c.refreshNotification() }),
		bus.Subscribe(domain.EventEngineError, func(domain.Event) { c.refreshNotification() }),
	)

	c.logger.Debug("session controller initialized", slog.String("session_id", c.sessionID))
	return c
}

// SessionID returns the identifier embedded in resume tokens.
func (c *SessionController) SessionID() string {
	return c.sessionID
}

// SetPlaylist replaces the playlist. Playback is not interrupted; the cursor
// is kept and only clamped into the new range.
func (c *SessionController) SetPlaylist(tracks []domain.Track) {
	c.replacePlaylist(tracks, false)
}

// ReloadPlaylist replaces the playlist after a catalog change. The cursor
// follows the current track to its new position; when the track is gone it
// is clamped like SetPlaylist.
func (c *SessionController) ReloadPlaylist(tracks []domain.Track) {
	c.replacePlaylist(tracks, true)
}

func (c *SessionController) replacePlaylist(tracks []domain.Track, follow bool) {
	c.opMu.Lock()
	defer c.opMu.Unlock()

	c.mu.Lock()
	previous, hadTrack := c.playlist.At(c.cursor)
	c.playlist = domain.NewPlaylist(tracks)
	c.cursor = domain.ClampIndex(c.cursor, c.playlist.Len())
	if follow && hadTrack {
		if index := c.playlist.IndexOf(previous.ID); index >= 0 {
			c.cursor = index
		}
	}
	snapshot := c.playlist.Tracks()
	cursor := c.cursor
	c.mu.Unlock()

	c.logger.Debug("playlist replaced", slog.Int("tracks", len(snapshot)), slog.Int("cursor", cursor))
	c.bus.Publish(domain.NewPlaylistUpdatedEvent(snapshot, cursor))
}

// Playlist returns the current playlist.
func (c *SessionController) Playlist() domain.Playlist {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.playlist
}

// PlayAt moves the cursor to index and loads that track.
//
// Returns domain.ErrPlaylistEmpty or domain.ErrInvalidIndex on bad input.
func (c *SessionController) PlayAt(index int) error {
	c.opMu.Lock()
	defer c.opMu.Unlock()

	c.mu.Lock()
	if c.playlist.IsEmpty() {
		c.mu.Unlock()
		return domain.ErrPlaylistEmpty
	}
	track, ok := c.playlist.At(index)
	if !ok {
		c.mu.Unlock()
		return domain.ErrInvalidIndex
	}
	c.cursor = index
	c.mu.Unlock()

	c.load(track, index)
	return nil
}

// Select moves the cursor to index without loading the track.
//
// Returns domain.ErrPlaylistEmpty or domain.ErrInvalidIndex on bad input.
func (c *SessionController) Select(index int) error {
	c.opMu.Lock()
	defer c.opMu.Unlock()

	c.mu.Lock()
	if c.playlist.IsEmpty() {
		c.mu.Unlock()
		return domain.ErrPlaylistEmpty
	}
	track, ok := c.playlist.At(index)
	if !ok {
		c.mu.Unlock()
		return domain.ErrInvalidIndex
	}
	c.cursor = index
	c.mu.Unlock()

	c.bus.Publish(domain.NewCursorChangedEvent(track, index))
	return nil
}

// Next advances the cursor, wrapping past the end, and loads the track.
func (c *SessionController) Next() error {
	return c.step(domain.NextIndex)
}

// Prev moves the cursor back, wrapping below zero, and loads the track.
func (c *SessionController) Prev() error {
	return c.step(domain.PrevIndex)
}

func (c *SessionController) step(move func(cur, n int) int) error {
	c.opMu.Lock()
	defer c.opMu.Unlock()

	c.mu.Lock()
	if c.playlist.IsEmpty() {
		c.mu.Unlock()
		return domain.ErrPlaylistEmpty
	}
	c.cursor = move(c.cursor, c.playlist.Len())
	index := c.cursor
	track, _ := c.playlist.At(index)
	c.mu.Unlock()

	c.load(track, index)
	return nil
}

// handleTrackCompleted advances to the next track when the engine reports completion.
func (c *SessionController) handleTrackCompleted(event domain.Event) {
	c.mu.RLock()
	done := c.shutdown
	c.mu.RUnlock()
	if done {
		return
	}

	if err := c.Next(); err != nil {
		c.logger.Debug("auto-advance skipped", slog.Any("error", err))
		return
	}

	if completed, ok := event.(domain.TrackCompletedEvent); ok {
		c.logger.Debug("auto-advanced", slog.String("completed", completed.Track.Title))
	}
}

// load hands track to the engine and refreshes the notification.
func (c *SessionController) load(track domain.Track, index int) {
	c.logger.Debug("loading", slog.Int("index", index), slog.String("title", track.Title))

	c.engine.Load(track)
	c.bus.Publish(domain.NewCursorChangedEvent(track, index))
	c.refreshNotification()
}

// CurrentTrack returns the track under the cursor, or false on an empty playlist.
func (c *SessionController) CurrentTrack() (domain.Track, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.playlist.At(c.cursor)
}

// CurrentIndex returns the cursor.
func (c *SessionController) CurrentIndex() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.cursor
}

// Play resumes playback.
func (c *SessionController) Play() {
	c.engine.Play()
	c.refreshNotification()
}

// Pause pauses playback.
func (c *SessionController) Pause() {
	c.engine.Pause()
	c.refreshNotification()
}

// TogglePlayPause pauses a playing track and resumes a paused one.
// When nothing is loaded yet, it loads the track under the cursor.
func (c *SessionController) TogglePlayPause() error {
	switch {
	case c.engine.IsPlaying():
		c.Pause()
	case c.engine.State() == domain.StateIdle:
		return c.PlayAt(c.CurrentIndex())
	default:
		c.Play()
	}
	return nil
}

// Seek moves the playback position to ms milliseconds.
func (c *SessionController) Seek(ms int64) {
	c.engine.Seek(time.Duration(ms) * time.Millisecond)
}

// IsPlaying reports whether the engine is producing sound.
func (c *SessionController) IsPlaying() bool {
	return c.engine.IsPlaying()
}

// PositionMs returns the playback position in milliseconds.
func (c *SessionController) PositionMs() int64 {
	return c.engine.PositionMs()
}

// DurationMs returns the track duration in milliseconds.
func (c *SessionController) DurationMs() int64 {
	return c.engine.DurationMs()
}

// AudioSessionHandle returns the engine output handle for the visualizer.
func (c *SessionController) AudioSessionHandle() domain.SessionHandle {
	return c.engine.SessionHandle()
}

// ResumeToken returns the token the notification carries to reopen the player.
func (c *SessionController) ResumeToken() domain.ResumeToken {
	c.mu.RLock()
	defer c.mu.RUnlock()

	token := domain.ResumeToken{SessionID: c.sessionID, Index: c.cursor}
	if track, ok := c.playlist.At(c.cursor); ok {
		token.TrackID = track.ID
	}
	return token
}

// Resume validates a token from the notification tap action and returns the
// current cursor, so the UI can re-read the session state.
//
// Returns domain.ErrStaleResumeToken for a token of another session.
func (c *SessionController) Resume(token domain.ResumeToken) (int, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if token.SessionID != c.sessionID {
		return 0, domain.ErrStaleResumeToken
	}
	if token.Index != c.cursor {
		c.logger.Debug("resume token behind the session",
			slog.Int("token_index", token.Index),
			slog.Int("cursor", c.cursor))
	}
	return c.cursor, nil
}

// refreshNotification publishes the current track to the notifier.
// Notifier failures are logged only.
func (c *SessionController) refreshNotification() {
	c.mu.RLock()
	if c.shutdown {
		c.mu.RUnlock()
		return
	}
	track, ok := c.playlist.At(c.cursor)
	c.mu.RUnlock()
	if !ok {
		return
	}

	np := ports.NowPlaying{
		Title:   track.Title,
		Artist:  track.Artist,
		Playing: c.engine.IsPlaying(),
		Token:   c.ResumeToken(),
	}
	if err := c.notifier.Publish(np); err != nil {
		c.logger.Warn("notification update failed", slog.Any("error", err))
	}
}

// Shutdown unsubscribes from the bus and removes the notification.
// Calling Shutdown more than once is a no-op.
func (c *SessionController) Shutdown() error {
	c.mu.Lock()
	if c.shutdown {
		c.mu.Unlock()
		return nil
	}
	c.shutdown = true
	subs := c.subs
	c.subs = nil
	c.mu.Unlock()

	for _, id := range subs {
		c.bus.Unsubscribe(id)
	}

	if err := c.notifier.Clear(); err != nil {
		c.logger.Warn("notification clear failed", slog.Any("error", err))
		return err
	}
	return nil
}

// Verify that SessionController implements the expected interface patterns
var _ interface {
	SetPlaylist([]domain.Track)
	ReloadPlaylist([]domain.Track)
	PlayAt(int) error
	Next() error
	Prev() error
	CurrentTrack() (domain.Track, bool)
	CurrentIndex() int
	Play()
	Pause()
	TogglePlayPause() error
	Seek(int64)
	IsPlaying() bool
	PositionMs() int64
	DurationMs() int64
	AudioSessionHandle() domain.SessionHandle
	ResumeToken() domain.ResumeToken
	Resume(domain.ResumeToken) (int, error)
	Shutdown() error
} = (*SessionController)(nil)

var _ Engine = (*PlaybackEngine)(nil)
