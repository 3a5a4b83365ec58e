package notify

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/godbus/dbus/v5"

	"github.com/tejashwikalptaru/tunedeck/internal/domain"
	"github.com/tejashwikalptaru/tunedeck/internal/ports"
)

const (
	mprisInterface       = "org.mpris.MediaPlayer2"
	mprisPlayerInterface = "org.mpris.MediaPlayer2.Player"
	propertiesInterface  = "org.freedesktop.DBus.Properties"
	mprisObjectPath      = dbus.ObjectPath("/org/mpris/MediaPlayer2")
)

// MPRIS publishes the player on the session bus as an MPRIS media player.
//
// Desktop shells show it in their media controls; activating it there calls
// Raise, which is delivered to the tap handler with the current resume token.
// Transport buttons are routed to the Commands set with SetCommands.
//
// EnsureChannel connects, requests the bus name and exports the interfaces.
// It is idempotent. Before it succeeds, Publish and Clear only record state.
type MPRIS struct {
	logger   *slog.Logger
	identity string
	busName  string

	mu       sync.Mutex
	conn     *dbus.Conn
	np       ports.NowPlaying
	stopped  bool
	onTap    ports.TapHandler
	commands Commands
}

// NewMPRIS creates an MPRIS notifier named after identity.
func NewMPRIS(logger *slog.Logger, identity string) *MPRIS {
	return &MPRIS{
		logger:   logger.With(slog.String("adapter", "mpris")),
		identity: identity,
		busName:  "org.mpris.MediaPlayer2." + identity,
		stopped:  true,
	}
}

// SetCommands sets the receiver of transport requests.
func (m *MPRIS) SetCommands(commands Commands) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.commands = commands
}

// EnsureChannel connects to the session bus once.
func (m *MPRIS) EnsureChannel() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.conn != nil {
		return nil
	}

	conn, err := connectSessionBus()
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrNotifierUnavailable, err)
	}

	reply, err := conn.RequestName(m.busName, dbus.NameFlagDoNotQueue)
	if err != nil {
		_ = conn.Close()
		return fmt.Errorf("request bus name: %w", err)
	}
	if reply != dbus.RequestNameReplyPrimaryOwner {
		_ = conn.Close()
		return fmt.Errorf("bus name %s already taken: %w", m.busName, domain.ErrNotifierUnavailable)
	}

	for _, iface := range []string{mprisInterface, mprisPlayerInterface, propertiesInterface} {
		if err := conn.Export(m, mprisObjectPath, iface); err != nil {
			_ = conn.Close()
			return fmt.Errorf("export %s: %w", iface, err)
		}
	}

	m.conn = conn
	m.logger.Info("media player registered on session bus", slog.String("name", m.busName))
	return nil
}

// Publish updates the metadata and playback status.
func (m *MPRIS) Publish(np ports.NowPlaying) error {
	m.mu.Lock()
	m.np = np
	m.stopped = false
	props := map[string]dbus.Variant{
		"Metadata":       dbus.MakeVariant(m.metadataLocked()),
		"PlaybackStatus": dbus.MakeVariant(m.statusLocked()),
	}
	conn := m.conn
	m.mu.Unlock()

	return emitPropertiesChanged(conn, props)
}

// Clear reports the player as stopped with no track.
func (m *MPRIS) Clear() error {
	m.mu.Lock()
	m.np = ports.NowPlaying{}
	m.stopped = true
	props := map[string]dbus.Variant{
		"Metadata":       dbus.MakeVariant(m.metadataLocked()),
		"PlaybackStatus": dbus.MakeVariant(m.statusLocked()),
	}
	conn := m.conn
	m.mu.Unlock()

	return emitPropertiesChanged(conn, props)
}

// OnTap sets the handler called by Raise.
func (m *MPRIS) OnTap(handler ports.TapHandler) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onTap = handler
}

// Close releases the bus name and the connection.
func (m *MPRIS) Close() error {
	m.mu.Lock()
	conn := m.conn
	m.conn = nil
	m.mu.Unlock()

	if conn == nil {
		return nil
	}
	if _, err := conn.ReleaseName(m.busName); err != nil {
		m.logger.Debug("release bus name failed", slog.Any("error", err))
	}
	return conn.Close()
}

func emitPropertiesChanged(conn *dbus.Conn, props map[string]dbus.Variant) error {
	if conn == nil {
		return nil
	}
	return conn.Emit(mprisObjectPath, propertiesInterface+".PropertiesChanged",
		mprisPlayerInterface, props, []string{})
}

// metadataLocked must be called with m.mu held.
func (m *MPRIS) metadataLocked() map[string]dbus.Variant {
	md := map[string]dbus.Variant{
		"mpris:trackid": dbus.MakeVariant(dbus.ObjectPath("/org/mpris/MediaPlayer2/TrackList/NoTrack")),
	}
	if m.stopped {
		return md
	}
	md["mpris:trackid"] = dbus.MakeVariant(dbus.ObjectPath(fmt.Sprintf("/org/tunedeck/track/%d", m.np.Token.TrackID)))
	if m.np.Title != "" {
		md["xesam:title"] = dbus.MakeVariant(m.np.Title)
	}
	if m.np.Artist != "" {
		md["xesam:artist"] = dbus.MakeVariant([]string{m.np.Artist})
	}
	return md
}

// statusLocked must be called with m.mu held.
func (m *MPRIS) statusLocked() string {
	switch {
	case m.stopped:
		return "Stopped"
	case m.np.Playing:
		return "Playing"
	default:
		return "Paused"
	}
}

// withCommands runs call outside the lock if commands are set.
func (m *MPRIS) withCommands(name string, call func(Commands) error) *dbus.Error {
	m.mu.Lock()
	commands := m.commands
	m.mu.Unlock()

	if commands == nil {
		return nil
	}
	if err := call(commands); err != nil {
		m.logger.Debug("media command failed", slog.String("command", name), slog.Any("error", err))
		return dbus.MakeFailedError(err)
	}
	return nil
}

// org.mpris.MediaPlayer2

// Raise is the tap action: the handler receives the current resume token.
func (m *MPRIS) Raise() *dbus.Error {
	m.mu.Lock()
	handler, token, stopped := m.onTap, m.np.Token, m.stopped
	m.mu.Unlock()

	if handler != nil && !stopped {
		handler(token)
	}
	return nil
}

func (m *MPRIS) Quit() *dbus.Error {
	return nil
}

// org.mpris.MediaPlayer2.Player

func (m *MPRIS) Play() *dbus.Error {
	return m.withCommands("play", func(c Commands) error { c.Play(); return nil })
}

func (m *MPRIS) Pause() *dbus.Error {
	return m.withCommands("pause", func(c Commands) error { c.Pause(); return nil })
}

func (m *MPRIS) PlayPause() *dbus.Error {
	return m.withCommands("playpause", Commands.TogglePlayPause)
}

func (m *MPRIS) Stop() *dbus.Error {
	return m.Pause()
}

func (m *MPRIS) Next() *dbus.Error {
	return m.withCommands("next", Commands.Next)
}

func (m *MPRIS) Previous() *dbus.Error {
	return m.withCommands("previous", Commands.Prev)
}

// org.freedesktop.DBus.Properties

func (m *MPRIS) Get(iface, prop string) (dbus.Variant, *dbus.Error) {
	all, dErr := m.GetAll(iface)
	if dErr != nil {
		return dbus.Variant{}, dErr
	}
	v, ok := all[prop]
	if !ok {
		return dbus.Variant{}, dbus.MakeFailedError(fmt.Errorf("unknown property: %s", prop))
	}
	return v, nil
}

func (m *MPRIS) GetAll(iface string) (map[string]dbus.Variant, *dbus.Error) {
	switch iface {
	case mprisInterface:
		return map[string]dbus.Variant{
			"CanQuit":             dbus.MakeVariant(false),
			"CanRaise":            dbus.MakeVariant(true),
			"HasTrackList":        dbus.MakeVariant(false),
			"Identity":            dbus.MakeVariant(m.identity),
			"DesktopEntry":        dbus.MakeVariant(m.identity),
			"SupportedUriSchemes": dbus.MakeVariant([]string{domain.LocatorScheme}),
			"SupportedMimeTypes":  dbus.MakeVariant([]string{"audio/mpeg", "audio/flac", "audio/ogg", "audio/wav"}),
		}, nil
	case mprisPlayerInterface:
		m.mu.Lock()
		defer m.mu.Unlock()
		return map[string]dbus.Variant{
			"PlaybackStatus": dbus.MakeVariant(m.statusLocked()),
			"Metadata":       dbus.MakeVariant(m.metadataLocked()),
			"Rate":           dbus.MakeVariant(1.0),
			"MinimumRate":    dbus.MakeVariant(1.0),
			"MaximumRate":    dbus.MakeVariant(1.0),
			"CanGoNext":      dbus.MakeVariant(true),
			"CanGoPrevious":  dbus.MakeVariant(true),
			"CanPlay":        dbus.MakeVariant(true),
			"CanPause":       dbus.MakeVariant(true),
			"CanSeek":        dbus.MakeVariant(false),
			"CanControl":     dbus.MakeVariant(true),
		}, nil
	}
	return nil, dbus.MakeFailedError(fmt.Errorf("unknown interface: %s", iface))
}

func (m *MPRIS) Set(string, string, dbus.Variant) *dbus.Error {
	return nil
}

// Verify interface implementation
var _ ports.Notifier = (*MPRIS)(nil)
