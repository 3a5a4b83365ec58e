//go:build linux

package notify

import "github.com/godbus/dbus/v5"

// connectSessionBus opens a private session bus connection so Close does not
// affect other users of the shared one.
func connectSessionBus() (*dbus.Conn, error) {
	return dbus.ConnectSessionBus()
}
