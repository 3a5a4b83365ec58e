package notify

import (
	"log/slog"
	"sync"

	"github.com/gen2brain/beeep"

	"github.com/tejashwikalptaru/tunedeck/internal/ports"
)

// SendFunc shows one desktop notification.
type SendFunc func(title, message string, icon any) error

// Desktop shows the now-playing state as desktop notifications.
//
// A notification is only sent when the title, artist or play state change,
// so repeated refreshes of the same state stay quiet. Desktop notifications
// carry no tap action; the handler given to OnTap is kept but never called.
type Desktop struct {
	logger  *slog.Logger
	appName string
	icon    []byte
	send    SendFunc

	channelOnce sync.Once
	mu          sync.Mutex
	last        *ports.NowPlaying
	onTap       ports.TapHandler
}

// NewDesktop creates a desktop notifier that sends through beeep.
func NewDesktop(logger *slog.Logger, appName string, icon []byte) *Desktop {
	return NewDesktopWithSender(logger, appName, icon, beeep.Notify)
}

// NewDesktopWithSender creates a desktop notifier with a custom send function.
func NewDesktopWithSender(logger *slog.Logger, appName string, icon []byte, send SendFunc) *Desktop {
	return &Desktop{
		logger:  logger.With(slog.String("adapter", "desktop-notify")),
		appName: appName,
		icon:    icon,
		send:    send,
	}
}

// EnsureChannel registers the application name notifications are sent under.
func (d *Desktop) EnsureChannel() error {
	d.channelOnce.Do(func() {
		beeep.AppName = d.appName
		d.logger.Debug("notification channel registered", slog.String("app", d.appName))
	})
	return nil
}

// Publish sends a notification if np differs from the last one sent.
func (d *Desktop) Publish(np ports.NowPlaying) error {
	d.mu.Lock()
	if d.last != nil && sameState(*d.last, np) {
		d.mu.Unlock()
		return nil
	}
	prev := d.last
	d.last = &np
	d.mu.Unlock()

	status := "Paused"
	if np.Playing {
		status = "Playing"
	}

	var icon any
	if len(d.icon) > 0 {
		icon = d.icon
	}

	if err := d.send(np.Title, np.Artist+" · "+status, icon); err != nil {
		d.mu.Lock()
		d.last = prev
		d.mu.Unlock()
		return err
	}
	return nil
}

// Clear forgets the last published state. The desktop keeps already shown
// notifications until they expire.
func (d *Desktop) Clear() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.last = nil
	return nil
}

// OnTap stores handler.
func (d *Desktop) OnTap(handler ports.TapHandler) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.onTap = handler
}

func sameState(a, b ports.NowPlaying) bool {
	return a.Title == b.Title && a.Artist == b.Artist && a.Playing == b.Playing
}

// Verify interface implementation
var _ ports.Notifier = (*Desktop)(nil)
