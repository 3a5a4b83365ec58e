package ports

import (
	"github.com/tejashwikalptaru/tunedeck/internal/domain"
)

// NowPlaying is the content of the persistent "now playing" notification.
type NowPlaying struct {
	Title   string
	Artist  string
	Playing bool
	Token   domain.ResumeToken
}

// TapHandler is called when the user activates the notification.
type TapHandler func(token domain.ResumeToken)

// Notifier keeps the player visible to the desktop while it plays.
// It stands in for the foreground-service lifecycle of the player.
type Notifier interface {
	// EnsureChannel registers the notification channel. It is idempotent.
	EnsureChannel() error

	// Publish shows or updates the notification.
	Publish(np NowPlaying) error

	// Clear removes the notification.
	Clear() error

	// OnTap sets the handler for the notification's tap action.
	OnTap(handler TapHandler)
}
