// Package fyne provides Fyne UI adapter implementations.
// This package implements the UI layer using the Fyne toolkit.
package fyne

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/tejashwikalptaru/tunedeck/internal/domain"
	"github.com/tejashwikalptaru/tunedeck/internal/ports"
	"github.com/tejashwikalptaru/tunedeck/internal/service"
)

// Messages shown by the presenter.
const (
	MsgPermissionDenied      = "Permission denied. Cannot load songs."
	MsgNoMusic               = "No music files found on device."
	MsgVisualizerUnsupported = "Visualizer not supported on this device."
)

// Polling intervals.
const (
	DefaultPollInterval   = 500 * time.Millisecond
	DefaultRenderInterval = time.Second / 30
)

// Presenter implements the Presenter pattern (MVP architecture).
// It binds the player screen to the session controller.
//
// Responsibilities:
// - Load the catalog and hand it to the view and the controller
// - Translate UI intents to controller calls
// - Poll the controller while the screen is visible and resync the view when
//   the playing track changed underneath it (auto-advance, media keys)
// - Keep the visualizer attached to the current output and push its bars
//
// Thread-safety: All operations are thread-safe.
type Presenter struct {
	// Dependencies
	logger *slog.Logger

	// Services (injected)
	controller  *service.SessionController
	library     *service.LibraryService
	visualizer  *service.SpectrumVisualizer
	preferences *service.PreferenceService
	bus         ports.EventBus

	// UI view
	view ports.PlayerView

	pollInterval   time.Duration
	renderInterval time.Duration

	// Loop lifecycle, guarded by loopMu
	loopMu  sync.Mutex
	visible bool
	stop    chan struct{}
	loops   sync.WaitGroup

	// Presentation state, guarded by syncMu
	syncMu     sync.Mutex
	seekMax    int64
	playing    bool
	spectrumOn bool

	subs         []domain.SubscriptionID
	shutdownOnce sync.Once
}

// NewPresenter creates a new presenter. preferences may be nil, in which case
// added music folders are not remembered.
func NewPresenter(
	logger *slog.Logger,
	controller *service.SessionController,
	library *service.LibraryService,
	visualizer *service.SpectrumVisualizer,
	preferences *service.PreferenceService,
	eventBus ports.EventBus,
	view ports.PlayerView,
) *Presenter {
	p := &Presenter{
		logger:         logger.With(slog.String("component", "presenter")),
		controller:     controller,
		library:        library,
		visualizer:     visualizer,
		preferences:    preferences,
		bus:            eventBus,
		view:           view,
		pollInterval:   DefaultPollInterval,
		renderInterval: DefaultRenderInterval,
	}

	p.subscribeToEvents()
	return p
}

// SetIntervals changes the poll and render periods. It only affects loops
// started afterwards.
func (p *Presenter) SetIntervals(poll, render time.Duration) {
	p.loopMu.Lock()
	defer p.loopMu.Unlock()
	p.pollInterval = poll
	p.renderInterval = render
}

// subscribeToEvents subscribes to all relevant events from the event bus.
func (p *Presenter) subscribeToEvents() {
	subscriptions := map[domain.EventType]domain.EventHandler{
		domain.EventCatalogChanged:        p.onCatalogChanged,
		domain.EventVisualizerUnavailable: p.onVisualizerUnavailable,
		domain.EventTrackLoading:          p.onOutputChanged,
		domain.EventTrackPrepared:         p.onOutputChanged,
	}

	for eventType, handler := range subscriptions {
		p.subs = append(p.subs, p.bus.Subscribe(eventType, handler))
	}
}

// Event handlers

func (p *Presenter) onCatalogChanged(event domain.Event) {
	if _, ok := event.(domain.CatalogChangedEvent); !ok {
		return
	}
	if err := p.LoadLibrary(context.Background()); err != nil {
		p.logger.Debug("catalog reload failed", slog.Any("error", err))
	}
}

// onOutputChanged moves the visualizer as soon as the engine switches
// outputs, so a released tap never keeps feeding old bars.
func (p *Presenter) onOutputChanged(domain.Event) {
	p.syncVisualizer()
}

func (p *Presenter) onVisualizerUnavailable(event domain.Event) {
	if _, ok := event.(domain.VisualizerUnavailableEvent); !ok {
		return
	}
	p.view.ShowInfo(MsgVisualizerUnsupported)
}

// LoadLibrary reads the catalog into the track list and the playlist. On a
// reload the cursor stays on the current track.
//
// A permission failure shows a blocking error and skips the catalog. An
// empty catalog shows an informational message and an empty list.
func (p *Presenter) LoadLibrary(ctx context.Context) error {
	tracks, err := p.library.LoadCatalog(ctx)
	switch {
	case errors.Is(err, domain.ErrPermissionDenied):
		p.view.ShowBlockingError(MsgPermissionDenied)
		return err

	case errors.Is(err, domain.ErrCatalogEmpty):
		p.view.ShowInfo(MsgNoMusic)
		tracks = []domain.Track{}

	case err != nil:
		p.logger.Error("loading songs failed", slog.Any("error", err))
		p.view.ShowBlockingError(fmt.Sprintf("Cannot load songs: %v", err))
		return err
	}

	p.view.ShowTracks(tracks)
	p.controller.ReloadPlaylist(tracks)
	p.resync()
	return nil
}

// UI Command handlers (called by UI)

// OnTrackSelected plays the track at index.
func (p *Presenter) OnTrackSelected(index int) {
	if err := p.controller.PlayAt(index); err != nil {
		p.logger.Warn("track selection failed", slog.Int("index", index), slog.Any("error", err))
		return
	}
	p.resync()
}

// OnPlayPauseClicked toggles playback.
func (p *Presenter) OnPlayPauseClicked() {
	if err := p.controller.TogglePlayPause(); err != nil {
		p.logger.Debug("play/pause ignored", slog.Any("error", err))
		return
	}
	p.syncPlayState()
}

// OnNextClicked skips to the next track.
func (p *Presenter) OnNextClicked() {
	if err := p.controller.Next(); err != nil {
		p.logger.Debug("next ignored", slog.Any("error", err))
		return
	}
	p.resync()
}

// OnPrevClicked goes back to the previous track.
func (p *Presenter) OnPrevClicked() {
	if err := p.controller.Prev(); err != nil {
		p.logger.Debug("previous ignored", slog.Any("error", err))
		return
	}
	p.resync()
}

// OnSeek handles a user drag of the seek bar.
func (p *Presenter) OnSeek(ms int64) {
	p.controller.Seek(ms)
}

// OnFolderAdded adds a music folder and reloads the catalog.
func (p *Presenter) OnFolderAdded(ctx context.Context, path string) error {
	if err := p.library.AddRoot(path); err != nil {
		p.logger.Error("adding music folder failed", slog.String("path", path), slog.Any("error", err))
		p.view.ShowInfo(fmt.Sprintf("Cannot add %s.", path))
		return err
	}
	if p.preferences != nil {
		if err := p.preferences.AddMusicRoot(path); err != nil {
			p.logger.Warn("saving music folder failed", slog.Any("error", err))
		}
	}
	return p.LoadLibrary(ctx)
}

// MusicRoots returns the folders the catalog covers.
func (p *Presenter) MusicRoots() []string {
	return p.library.Roots()
}

// OnNotificationTapped reopens the player at the current track.
func (p *Presenter) OnNotificationTapped(token domain.ResumeToken) error {
	index, err := p.controller.Resume(token)
	if err != nil {
		p.logger.Debug("stale notification tapped", slog.Any("error", err))
		return err
	}
	p.logger.Debug("resumed from notification", slog.Int("index", index))
	p.resync()
	return nil
}

// Visibility

// SetVisible starts the poll and render loops when the screen becomes
// visible and stops them when it is hidden. Stopping waits for both loops.
func (p *Presenter) SetVisible(visible bool) {
	p.loopMu.Lock()
	defer p.loopMu.Unlock()

	if visible == p.visible {
		return
	}
	p.visible = visible

	if !visible {
		close(p.stop)
		p.loops.Wait()
		p.stop = nil
		return
	}

	p.resync()

	p.stop = make(chan struct{})
	p.loops.Add(2)
	go p.loop(p.stop, p.pollInterval, p.tick)
	go p.loop(p.stop, p.renderInterval, p.renderSpectrum)
}

// IsVisible reports whether the loops are running.
func (p *Presenter) IsVisible() bool {
	p.loopMu.Lock()
	defer p.loopMu.Unlock()
	return p.visible
}

func (p *Presenter) loop(stop <-chan struct{}, every time.Duration, fn func()) {
	defer p.loops.Done()

	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			fn()
		}
	}
}

// tick runs every poll interval while visible.
func (p *Presenter) tick() {
	if p.controller.IsPlaying() {
		pos := max(p.controller.PositionMs(), 0)
		dur := max(p.controller.DurationMs(), 0)

		p.syncMu.Lock()
		if dur != p.seekMax {
			p.seekMax = dur
			p.view.SetSeekMax(dur)
		}
		p.syncMu.Unlock()

		p.view.SetSeekPosition(pos)
		p.view.SetTimes(formatTime(pos), formatTime(dur))
	}

	if track, ok := p.controller.CurrentTrack(); ok && p.view.DisplayedTitle() != track.Title {
		p.resync()
		return
	}

	p.syncPlayState()
	p.syncVisualizer()
}

// resync rewrites the whole transport area from the controller.
func (p *Presenter) resync() {
	p.syncMu.Lock()
	defer p.syncMu.Unlock()

	track, ok := p.controller.CurrentTrack()
	if !ok {
		p.seekMax, p.playing = 0, false
		p.view.SetTrackInfo("", "")
		p.view.SetSeekMax(0)
		p.view.SetSeekPosition(0)
		p.view.SetTimes(formatTime(0), formatTime(0))
		p.view.SetPlayState(false)
		p.view.ClearAlbumArt()
		return
	}

	pos := max(p.controller.PositionMs(), 0)
	dur := max(p.controller.DurationMs(), 0)
	p.seekMax = dur
	p.playing = p.controller.IsPlaying()

	p.view.SetTrackInfo(track.Title, track.Artist)
	p.view.SetSeekMax(dur)
	p.view.SetSeekPosition(pos)
	p.view.SetTimes(formatTime(pos), formatTime(dur))
	p.view.SetPlayState(p.playing)

	art, err := p.library.Artwork(track)
	if err != nil {
		p.logger.Debug("no artwork", slog.Int64("track_id", track.ID), slog.Any("error", err))
	}
	if len(art) > 0 {
		p.view.SetAlbumArt(art)
	} else {
		p.view.ClearAlbumArt()
	}

	p.syncVisualizerLocked()
}

// syncPlayState updates the play button when the state changed.
func (p *Presenter) syncPlayState() {
	p.syncMu.Lock()
	defer p.syncMu.Unlock()

	if playing := p.controller.IsPlaying(); playing != p.playing {
		p.playing = playing
		p.view.SetPlayState(playing)
	}
}

func (p *Presenter) syncVisualizer() {
	p.syncMu.Lock()
	defer p.syncMu.Unlock()
	p.syncVisualizerLocked()
}

// syncVisualizerLocked moves the capture tap to the current output.
// It must be called with p.syncMu held.
func (p *Presenter) syncVisualizerLocked() {
	if p.visualizer == nil || !p.visualizer.Enabled() {
		return
	}

	handle := p.controller.AudioSessionHandle()
	if handle == p.visualizer.Handle() {
		return
	}
	if !handle.Valid() {
		p.visualizer.Detach()
		return
	}
	if err := p.visualizer.Attach(handle); err != nil {
		p.logger.Debug("visualizer attach failed", slog.Any("error", err))
	}
}

// renderSpectrum runs every render interval while visible.
func (p *Presenter) renderSpectrum() {
	if p.visualizer == nil {
		return
	}

	width, height := p.view.SpectrumSize()
	bars := p.visualizer.Render(width, height)

	p.syncMu.Lock()
	skip := len(bars) == 0 && !p.spectrumOn
	p.spectrumOn = len(bars) > 0
	p.syncMu.Unlock()

	if !skip {
		p.view.SetSpectrum(bars)
	}
}

// formatTime renders milliseconds as m:ss.
func formatTime(ms int64) string {
	if ms < 0 {
		ms = 0
	}
	seconds := ms / 1000
	return fmt.Sprintf("%d:%02d", seconds/60, seconds%60)
}

// Shutdown stops the loops and unsubscribes from the bus.
// It's safe to call multiple times (idempotent).
func (p *Presenter) Shutdown() {
	p.shutdownOnce.Do(func() {
		p.SetVisible(false)
		for _, id := range p.subs {
			p.bus.Unsubscribe(id)
		}
	})
}

// VisualizerEnabled reports whether the spectrum is shown.
func (p *Presenter) VisualizerEnabled() bool {
	return p.visualizer != nil && p.visualizer.Enabled()
}

// OnVisualizerToggled turns the spectrum on or off and remembers the choice.
func (p *Presenter) OnVisualizerToggled(enabled bool) {
	if p.visualizer == nil {
		return
	}
	p.visualizer.SetEnabled(enabled)
	if p.preferences != nil {
		if err := p.preferences.SetVisualizerEnabled(enabled); err != nil {
			p.logger.Warn("saving visualizer setting failed", slog.Any("error", err))
		}
	}
	p.syncVisualizer()
}
