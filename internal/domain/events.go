// Package domain defines events for the event-driven architecture.
// Events decouple the engine, the session controller and the UI from each other.
package domain

import (
	"time"
)

// Event is the base interface for all events in the system.
// All events must implement this interface to be published via the event bus.
type Event interface {
	// Type returns the event type identifier
	Type() EventType

	// Timestamp returns when the event occurred
	Timestamp() time.Time
}

// EventType is a string identifier for different event types.
type EventType string

// Event type constants define all possible events in the system.
const (
	// Playback engine events
	EventTrackLoading   EventType = "track.loading"
	EventTrackPrepared  EventType = "track.prepared"
	EventTrackStarted   EventType = "track.started"
	EventTrackPaused    EventType = "track.paused"
	EventTrackCompleted EventType = "track.completed"
	EventEngineError    EventType = "engine.error"

	// Session events
	EventPlaylistUpdated EventType = "playlist.updated"
	EventCursorChanged   EventType = "session.cursor_changed"

	// Catalog events
	EventScanStarted      EventType = "scan.started"
	EventScanCompleted    EventType = "scan.completed"
	EventCatalogEmpty     EventType = "catalog.empty"
	EventPermissionDenied EventType = "catalog.permission_denied"
	EventCatalogChanged   EventType = "catalog.changed"

	// Visualizer events
	EventVisualizerAttached    EventType = "visualizer.attached"
	EventVisualizerUnavailable EventType = "visualizer.unavailable"
)

// EventHandler is a function that handles events.
type EventHandler func(event Event)

// SubscriptionID uniquely identifies an event subscription.
type SubscriptionID string

// baseEvent provides common event functionality.
// All concrete events should embed this struct.
type baseEvent struct {
	timestamp time.Time
}

// Timestamp returns when the event occurred.
func (e baseEvent) Timestamp() time.Time {
	return e.timestamp
}

// newBaseEvent creates a new base event with the current timestamp.
func newBaseEvent() baseEvent {
	return baseEvent{timestamp: time.Now()}
}

// TrackLoadingEvent is published when a track is submitted to the backend.
type TrackLoadingEvent struct {
	baseEvent
	Track Track
	Token LoadToken
}

// Type returns the event type.
func (e TrackLoadingEvent) Type() EventType {
	return EventTrackLoading
}

// NewTrackLoadingEvent creates a new TrackLoadingEvent.
func NewTrackLoadingEvent(track Track, token LoadToken) TrackLoadingEvent {
	return TrackLoadingEvent{
		baseEvent: newBaseEvent(),
		Track:     track,
		Token:     token,
	}
}

// TrackPreparedEvent is published when the backend finished preparing a track.
type TrackPreparedEvent struct {
	baseEvent
	Track    Track
	Duration time.Duration
	Handle   SessionHandle
}

// Type returns the event type.
func (e TrackPreparedEvent) Type() EventType {
	return EventTrackPrepared
}

// NewTrackPreparedEvent creates a new TrackPreparedEvent.
func NewTrackPreparedEvent(track Track, duration time.Duration, handle SessionHandle) TrackPreparedEvent {
	return TrackPreparedEvent{
		baseEvent: newBaseEvent(),
		Track:     track,
		Duration:  duration,
		Handle:    handle,
	}
}

// TrackStartedEvent is published when playback starts or resumes.
type TrackStartedEvent struct {
	baseEvent
	Track Track
}

// Type returns the event type.
func (e TrackStartedEvent) Type() EventType {
	return EventTrackStarted
}

// NewTrackStartedEvent creates a new TrackStartedEvent.
func NewTrackStartedEvent(track Track) TrackStartedEvent {
	return TrackStartedEvent{
		baseEvent: newBaseEvent(),
		Track:     track,
	}
}

// TrackPausedEvent is published when playback is paused.
type TrackPausedEvent struct {
	baseEvent
	Track    Track
	Position time.Duration
}

// Type returns the event type.
func (e TrackPausedEvent) Type() EventType {
	return EventTrackPaused
}

// NewTrackPausedEvent creates a new TrackPausedEvent.
func NewTrackPausedEvent(track Track, position time.Duration) TrackPausedEvent {
	return TrackPausedEvent{
		baseEvent: newBaseEvent(),
		Track:     track,
		Position:  position,
	}
}

// TrackCompletedEvent is published when a track finishes playing naturally.
type TrackCompletedEvent struct {
	baseEvent
	Track Track
}

// Type returns the event type.
func (e TrackCompletedEvent) Type() EventType {
	return EventTrackCompleted
}

// NewTrackCompletedEvent creates a new TrackCompletedEvent.
func NewTrackCompletedEvent(track Track) TrackCompletedEvent {
	return TrackCompletedEvent{
		baseEvent: newBaseEvent(),
		Track:     track,
	}
}

// EngineErrorEvent is published when opening, decoding or output of a track fails.
// The engine is idle again when this event is delivered.
type EngineErrorEvent struct {
	baseEvent
	Track Track
	Error error
}

// Type returns the event type.
func (e EngineErrorEvent) Type() EventType {
	return EventEngineError
}

// NewEngineErrorEvent creates a new EngineErrorEvent.
func NewEngineErrorEvent(track Track, err error) EngineErrorEvent {
	return EngineErrorEvent{
		baseEvent: newBaseEvent(),
		Track:     track,
		Error:     err,
	}
}

// PlaylistUpdatedEvent is published when the playlist is replaced.
type PlaylistUpdatedEvent struct {
	baseEvent
	Playlist []Track
	Index    int // Current cursor after the update
}

// Type returns the event type.
func (e PlaylistUpdatedEvent) Type() EventType {
	return EventPlaylistUpdated
}

// NewPlaylistUpdatedEvent creates a new PlaylistUpdatedEvent.
func NewPlaylistUpdatedEvent(playlist []Track, index int) PlaylistUpdatedEvent {
	return PlaylistUpdatedEvent{
		baseEvent: newBaseEvent(),
		Playlist:  playlist,
		Index:     index,
	}
}

// CursorChangedEvent is published when the session moves to another track.
type CursorChangedEvent struct {
	baseEvent
	Track Track
	Index int
}

// Type returns the event type.
func (e CursorChangedEvent) Type() EventType {
	return EventCursorChanged
}

// NewCursorChangedEvent creates a new CursorChangedEvent.
func NewCursorChangedEvent(track Track, index int) CursorChangedEvent {
	return CursorChangedEvent{
		baseEvent: newBaseEvent(),
		Track:     track,
		Index:     index,
	}
}

// ScanStartedEvent is published when a catalog query starts.
type ScanStartedEvent struct {
	baseEvent
	Roots []string
}

// Type returns the event type.
func (e ScanStartedEvent) Type() EventType {
	return EventScanStarted
}

// NewScanStartedEvent creates a new ScanStartedEvent.
func NewScanStartedEvent(roots []string) ScanStartedEvent {
	return ScanStartedEvent{
		baseEvent: newBaseEvent(),
		Roots:     roots,
	}
}

// ScanCompletedEvent is published when a catalog query returns tracks.
type ScanCompletedEvent struct {
	baseEvent
	TracksFound []Track
}

// Type returns the event type.
func (e ScanCompletedEvent) Type() EventType {
	return EventScanCompleted
}

// NewScanCompletedEvent creates a new ScanCompletedEvent.
func NewScanCompletedEvent(tracks []Track) ScanCompletedEvent {
	return ScanCompletedEvent{
		baseEvent:   newBaseEvent(),
		TracksFound: tracks,
	}
}

// CatalogEmptyEvent is published when the media index holds no music.
type CatalogEmptyEvent struct {
	baseEvent
}

// Type returns the event type.
func (e CatalogEmptyEvent) Type() EventType {
	return EventCatalogEmpty
}

// NewCatalogEmptyEvent creates a new CatalogEmptyEvent.
func NewCatalogEmptyEvent() CatalogEmptyEvent {
	return CatalogEmptyEvent{baseEvent: newBaseEvent()}
}

// PermissionDeniedEvent is published when the media index cannot be read.
type PermissionDeniedEvent struct {
	baseEvent
	Error error
}

// Type returns the event type.
func (e PermissionDeniedEvent) Type() EventType {
	return EventPermissionDenied
}

// NewPermissionDeniedEvent creates a new PermissionDeniedEvent.
func NewPermissionDeniedEvent(err error) PermissionDeniedEvent {
	return PermissionDeniedEvent{
		baseEvent: newBaseEvent(),
		Error:     err,
	}
}

// CatalogChangedEvent is published after music files under a root were
// created, removed or renamed.
type CatalogChangedEvent struct {
	baseEvent
	Paths []string
}

// Type returns the event type.
func (e CatalogChangedEvent) Type() EventType {
	return EventCatalogChanged
}

// NewCatalogChangedEvent creates a new CatalogChangedEvent.
func NewCatalogChangedEvent(paths []string) CatalogChangedEvent {
	return CatalogChangedEvent{
		baseEvent: newBaseEvent(),
		Paths:     paths,
	}
}

// VisualizerAttachedEvent is published when a capture tap is attached.
type VisualizerAttachedEvent struct {
	baseEvent
	Handle      SessionHandle
	CaptureSize int
	RateMilliHz int
}

// Type returns the event type.
func (e VisualizerAttachedEvent) Type() EventType {
	return EventVisualizerAttached
}

// NewVisualizerAttachedEvent creates a new VisualizerAttachedEvent.
func NewVisualizerAttachedEvent(handle SessionHandle, size, rate int) VisualizerAttachedEvent {
	return VisualizerAttachedEvent{
		baseEvent:   newBaseEvent(),
		Handle:      handle,
		CaptureSize: size,
		RateMilliHz: rate,
	}
}

// VisualizerUnavailableEvent is published the first time a capture tap
// cannot be attached.
type VisualizerUnavailableEvent struct {
	baseEvent
	Handle SessionHandle
	Error  error
}

// Type returns the event type.
func (e VisualizerUnavailableEvent) Type() EventType {
	return EventVisualizerUnavailable
}

// NewVisualizerUnavailableEvent creates a new VisualizerUnavailableEvent.
func NewVisualizerUnavailableEvent(handle SessionHandle, err error) VisualizerUnavailableEvent {
	return VisualizerUnavailableEvent{
		baseEvent: newBaseEvent(),
		Handle:    handle,
		Error:     err,
	}
}
