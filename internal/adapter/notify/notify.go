// Package notify keeps the "now playing" state visible outside the player
// window: as desktop notifications, as an MPRIS media player on the session
// bus, or both.
package notify

import (
	"errors"
	"sync"

	"github.com/tejashwikalptaru/tunedeck/internal/ports"
)

// Commands receives transport requests from the desktop (media keys, shell
// media widgets). SessionController implements it.
type Commands interface {
	Play()
	Pause()
	TogglePlayPause() error
	Next() error
	Prev() error
}

// Nop is a notifier that shows nothing.
type Nop struct{}

func (Nop) EnsureChannel() error           { return nil }
func (Nop) Publish(ports.NowPlaying) error { return nil }
func (Nop) Clear() error                   { return nil }
func (Nop) OnTap(ports.TapHandler)         {}

// Fanout forwards every call to all of its notifiers. Errors are joined;
// one failing notifier does not stop the others.
type Fanout struct {
	mu        sync.RWMutex
	notifiers []ports.Notifier
}

// NewFanout combines notifiers.
func NewFanout(notifiers ...ports.Notifier) *Fanout {
	return &Fanout{notifiers: notifiers}
}

// Add appends a notifier.
func (f *Fanout) Add(n ports.Notifier) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.notifiers = append(f.notifiers, n)
}

// Each calls fn for every notifier.
func (f *Fanout) Each(fn func(ports.Notifier)) {
	_ = f.each(func(n ports.Notifier) error {
		fn(n)
		return nil
	})
}

func (f *Fanout) each(call func(ports.Notifier) error) error {
	f.mu.RLock()
	defer f.mu.RUnlock()

	var errs []error
	for _, n := range f.notifiers {
		if err := call(n); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (f *Fanout) EnsureChannel() error {
	return f.each(func(n ports.Notifier) error { return n.EnsureChannel() })
}

func (f *Fanout) Publish(np ports.NowPlaying) error {
	return f.each(func(n ports.Notifier) error { return n.Publish(np) })
}

func (f *Fanout) Clear() error {
	return f.each(func(n ports.Notifier) error { return n.Clear() })
}

func (f *Fanout) OnTap(handler ports.TapHandler) {
	f.Each(func(n ports.Notifier) { n.OnTap(handler) })
}

// Close closes every notifier that holds resources.
func (f *Fanout) Close() error {
	return f.each(func(n ports.Notifier) error {
		if c, ok := n.(interface{ Close() error }); ok {
			return c.Close()
		}
		return nil
	})
}

// Verify interface implementation
var (
	_ ports.Notifier = Nop{}
	_ ports.Notifier = (*Fanout)(nil)
)
