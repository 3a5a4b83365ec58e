//go:build !linux

package notify

import (
	"github.com/godbus/dbus/v5"

	"github.com/tejashwikalptaru/tunedeck/internal/domain"
)

// MPRIS is a linux desktop protocol.
func connectSessionBus() (*dbus.Conn, error) {
	return nil, domain.ErrNotifierUnavailable
}
