// Package domain contains core business models and logic with no external dependencies.
// This package defines the fundamental entities of the tunedeck player.
package domain

import (
	"strings"
	"time"
)

// UnknownArtist is shown when the media index has no artist for a track.
const UnknownArtist = "Unknown Artist"

// unknownArtistTag is what some taggers and media indexes store for a missing artist.
const unknownArtistTag = "<unknown>"

// Track is a single playable entry read from the media catalog.
// Tracks are immutable values: they are created once by the catalog reader
// and passed by copy to every other layer.
type Track struct {
	// ID is the catalog identifier for the track
	ID int64

	// Title is the song title (from tags or file name)
	Title string

	// Artist is the performing artist, never empty (see UnknownArtist)
	Artist string

	// Locator is an opaque resource locator the audio backend can open
	Locator string
}

// NewTrack creates a Track, mapping an absent artist to UnknownArtist.
func NewTrack(id int64, title, artist, locator string) Track {
	artist = strings.TrimSpace(artist)
	if artist == "" || artist == unknownArtistTag {
		artist = UnknownArtist
	}

	return Track{
		ID:      id,
		Title:   title,
		Artist:  artist,
		Locator: locator,
	}
}

// IsZero reports whether t is the zero Track.
func (t Track) IsZero() bool {
	return t == Track{}
}

// Playlist is an ordered, read-only sequence of tracks.
// Insertion order is the catalog sort order.
type Playlist struct {
	tracks []Track
}

// NewPlaylist creates a playlist holding a copy of tracks.
func NewPlaylist(tracks []Track) Playlist {
	cp := make([]Track, len(tracks))
	copy(cp, tracks)
	return Playlist{tracks: cp}
}

// Len returns the number of tracks.
func (p Playlist) Len() int {
	return len(p.tracks)
}

// IsEmpty reports whether the playlist holds no tracks.
func (p Playlist) IsEmpty() bool {
	return len(p.tracks) == 0
}

// At returns the track at index i, or false when i is out of range.
func (p Playlist) At(i int) (Track, bool) {
	if i < 0 || i >= len(p.tracks) {
		return Track{}, false
	}
	return p.tracks[i], true
}

// Tracks returns a copy of the tracks.
func (p Playlist) Tracks() []Track {
	cp := make([]Track, len(p.tracks))
	copy(cp, p.tracks)
	return cp
}

// IndexOf returns the index of the track with the given id, or -1.
func (p Playlist) IndexOf(id int64) int {
	for i, t := range p.tracks {
		if t.ID == id {
			return i
		}
	}
	return -1
}

// NextIndex returns the index after cur, wrapping to 0 past the end.
// n must be positive.
func NextIndex(cur, n int) int {
	return (cur + 1) % n
}

// PrevIndex returns the index before cur, wrapping to n-1 below 0.
// n must be positive.
func PrevIndex(cur, n int) int {
	return (cur - 1 + n) % n
}

// ClampIndex brings i into [0, n). It returns 0 for an empty range.
func ClampIndex(i, n int) int {
	if n <= 0 || i < 0 {
		return 0
	}
	if i >= n {
		return n - 1
	}
	return i
}

// EngineState is the state of the playback engine.
type EngineState int

const (
	// StateIdle means no source is loaded, or the engine was reset
	StateIdle EngineState = iota

	// StatePreparing means a source was submitted and is being prepared
	StatePreparing

	// StatePlaying means the prepared source is playing
	StatePlaying

	// StatePaused means the prepared source is paused
	StatePaused

	// StateError is transient: the engine resets to StateIdle after an error
	StateError
)

// String returns a human-readable representation of the engine state.
func (s EngineState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StatePreparing:
		return "preparing"
	case StatePlaying:
		return "playing"
	case StatePaused:
		return "paused"
	case StateError:
		return "error"
	default:
		return "unknown"
	}
}

// IsPrepared reports whether a source is ready (playing or paused).
func (s EngineState) IsPrepared() bool {
	return s == StatePlaying || s == StatePaused
}

// SessionHandle correlates an active audio output with capture taps.
type SessionHandle int

// NoSession is the sentinel handle for "no active output path".
const NoSession SessionHandle = -1

// Valid reports whether h refers to an output path.
func (h SessionHandle) Valid() bool {
	return h > 0
}

// LoadToken identifies one load request. The backend echoes it in every
// message so results of superseded loads can be told apart.
type LoadToken uint64

// MessageKind is the kind of an asynchronous backend message.
type MessageKind int

const (
	// MessagePrepared reports that preparation finished successfully
	MessagePrepared MessageKind = iota + 1

	// MessageCompleted reports that the source played to its end
	MessageCompleted

	// MessageError reports an open, decode or output failure
	MessageError
)

// String returns the message kind name.
func (k MessageKind) String() string {
	switch k {
	case MessagePrepared:
		return "prepared"
	case MessageCompleted:
		return "completed"
	case MessageError:
		return "error"
	default:
		return "unknown"
	}
}

// BackendMessage is an asynchronous result posted by the audio backend.
type BackendMessage struct {
	Kind  MessageKind
	Token LoadToken
	Err   error
}

// SpectrumFrame is one frequency-domain capture: interleaved signed
// (real, imaginary) bytes as produced by a capture tap.
type SpectrumFrame []byte

// Bar is one rendered spectrum bar.
type Bar struct {
	X      float32
	Height float32
}

// ResumeToken is carried by the notification tap action so the UI can
// reopen at the current track without receiving the whole playlist.
type ResumeToken struct {
	SessionID string
	TrackID   int64
	Index     int
}

// EngineSnapshot is a point-in-time view of the playback engine.
type EngineSnapshot struct {
	State     EngineState
	Track     *Track
	Position  time.Duration
	Duration  time.Duration
	Handle    SessionHandle
	LastError error
}

// SortKey selects the catalog sort column.
type SortKey int

const (
	// SortByTitle sorts by track title
	SortByTitle SortKey = iota
)

// CatalogQuery describes a media index query.
type CatalogQuery struct {
	SortKey   SortKey
	Ascending bool
	MusicOnly bool
}

// DefaultCatalogQuery returns the query the player uses: music only, title ascending.
func DefaultCatalogQuery() CatalogQuery {
	return CatalogQuery{
		SortKey:   SortByTitle,
		Ascending: true,
		MusicOnly: true,
	}
}
