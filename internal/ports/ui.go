// Package ports define the view interface for UI abstraction.
// This interface allows the presenter to update the UI without depending on Fyne directly.
package ports

import (
	"github.com/tejashwikalptaru/tunedeck/internal/domain"
)

// PlayerView is the interface for the player screen.
// This abstracts the Fyne window and allows the presenter to be tested without a real UI.
//
// The presenter polls the session controller and calls these methods to keep the
// screen in sync. Implementations marshal every call onto the UI thread, so the
// presenter may call them from its polling goroutine.
type PlayerView interface {
	// Track list

	// ShowTracks replaces the displayed track list.
	ShowTracks(tracks []domain.Track)

	// Messages

	// ShowInfo shows a short informational message.
	ShowInfo(message string)

	// ShowBlockingError shows an error the user has to acknowledge.
	ShowBlockingError(message string)

	// Transport

	// SetTrackInfo updates the displayed title and artist.
	SetTrackInfo(title, artist string)

	// DisplayedTitle returns the title currently shown.
	DisplayedTitle() string

	// SetPlayState updates the play/pause button.
	SetPlayState(playing bool)

	// SetSeekMax sets the seek bar range in milliseconds.
	SetSeekMax(ms int64)

	// SetSeekPosition moves the seek bar without triggering a user seek.
	SetSeekPosition(ms int64)

	// SetTimes updates the current and total time labels.
	SetTimes(current, total string)

	// Artwork

	// SetAlbumArt shows raw image bytes (JPEG, PNG, etc.).
	SetAlbumArt(imageData []byte)

	// ClearAlbumArt shows the placeholder artwork.
	ClearAlbumArt()

	// Visualizer

	// SpectrumSize returns the size of the spectrum area bars are scaled to.
	SpectrumSize() (width, height float32)

	// SetSpectrum draws one frame of spectrum bars.
	SetSpectrum(bars []domain.Bar)
}
