// Package ports define repository interfaces for data persistence abstraction.
// These interfaces enable the repository pattern and allow swapping persistence mechanisms.
package ports

// PreferencesRepository handles the persistence of user preferences.
// This abstracts the Fyne preferences storage.
//
// Thread-safety: Implementations must be thread-safe.
type PreferencesRepository interface {
	// Music roots

	// SaveMusicRoots persists the list of directories indexed for music.
	//
	// Returns an error if saving fails.
	SaveMusicRoots(roots []string) error

	// LoadMusicRoots retrieves the saved music roots.
	// If no roots were saved, returns an empty slice (not an error).
	LoadMusicRoots() ([]string, error)

	// Playback

	// SaveAutoStart persists whether prepared tracks start playing on their own.
	SaveAutoStart(enabled bool) error

	// LoadAutoStart retrieves the auto-start setting.
	// If nothing was saved, returns true as default.
	LoadAutoStart() (bool, error)

	// Visualizer

	// SaveVisualizerEnabled persists whether the spectrum visualizer is shown.
	SaveVisualizerEnabled(enabled bool) error

	// LoadVisualizerEnabled retrieves the visualizer setting.
	// If nothing was saved, returns true as default.
	LoadVisualizerEnabled() (bool, error)

	// Utility methods

	// Clear removes all saved preferences.
	//
	// Returns an error if clearing fails.
	Clear() error
}

// HistoryRepository remembers where the last session left off.
//
// Thread-safety: Implementations must be thread-safe.
type HistoryRepository interface {
	// SaveLastTrack persists the id of the track under the cursor.
	SaveLastTrack(id int64) error

	// LoadLastTrack retrieves the saved track id.
	// ok is false when nothing was saved (not an error).
	LoadLastTrack() (id int64, ok bool, err error)

	// Clear forgets the saved session.
	Clear() error
}
