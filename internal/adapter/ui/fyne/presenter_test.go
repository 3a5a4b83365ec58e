package fyne

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"fyne.io/fyne/v2/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tejashwikalptaru/tunedeck/internal/adapter/audio/mock"
	"github.com/tejashwikalptaru/tunedeck/internal/adapter/eventbus"
	"github.com/tejashwikalptaru/tunedeck/internal/adapter/notify"
	"github.com/tejashwikalptaru/tunedeck/internal/adapter/repository/memory"
	"github.com/tejashwikalptaru/tunedeck/internal/domain"
	"github.com/tejashwikalptaru/tunedeck/internal/logger"
	"github.com/tejashwikalptaru/tunedeck/internal/service"
	"github.com/tejashwikalptaru/tunedeck/internal/testutil"
)

const waitFor = time.Second

// fakeView records what the presenter shows.
type fakeView struct {
	mu            sync.Mutex
	tracks        []domain.Track
	showTracks    int
	infos         []string
	errors        []string
	title, artist string
	playing       bool
	seekMax       int64
	seekPos       int64
	current       string
	total         string
	art           []byte
	artCleared    int
	bars          []domain.Bar
	spectrumCalls int
}

func (v *fakeView) ShowTracks(tracks []domain.Track) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.tracks = tracks
	v.showTracks++
}

func (v *fakeView) ShowInfo(message string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.infos = append(v.infos, message)
}

func (v *fakeView) ShowBlockingError(message string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.errors = append(v.errors, message)
}

func (v *fakeView) SetTrackInfo(title, artist string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.title, v.artist = title, artist
}

func (v *fakeView) DisplayedTitle() string {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.title
}

func (v *fakeView) SetPlayState(playing bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.playing = playing
}

func (v *fakeView) SetSeekMax(ms int64) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.seekMax = ms
}

func (v *fakeView) SetSeekPosition(ms int64) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.seekPos = ms
}

func (v *fakeView) SetTimes(current, total string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.current, v.total = current, total
}

func (v *fakeView) SetAlbumArt(imageData []byte) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.art = imageData
}

func (v *fakeView) ClearAlbumArt() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.art = nil
	v.artCleared++
}

func (v *fakeView) SpectrumSize() (float32, float32) {
	return 100, 50
}

func (v *fakeView) SetSpectrum(bars []domain.Bar) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.bars = bars
	v.spectrumCalls++
}

// read runs fn with the view locked.
func (v *fakeView) read(fn func(v *fakeView)) {
	v.mu.Lock()
	defer v.mu.Unlock()
	fn(v)
}

// fakeCatalog serves a fixed track list.
type fakeCatalog struct {
	mu      sync.Mutex
	tracks  []domain.Track
	err     error
	roots   []string
	artwork map[int64][]byte
}

func (c *fakeCatalog) Query(context.Context, domain.CatalogQuery) ([]domain.Track, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.tracks, c.err
}

func (c *fakeCatalog) setTracks(tracks []domain.Track) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.tracks = tracks
}

func (c *fakeCatalog) Roots() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.roots...)
}

func (c *fakeCatalog) AddRoot(path string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.roots = append(c.roots, path)
	return nil
}

func (c *fakeCatalog) Artwork(track domain.Track) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.artwork[track.ID], nil
}

type presenterFixture struct {
	presenter   *Presenter
	view        *fakeView
	catalog     *fakeCatalog
	backend     *mock.Backend
	capture     *mock.CaptureProvider
	controller  *service.SessionController
	visualizer  *service.SpectrumVisualizer
	preferences *service.PreferenceService
	bus         *eventbus.SyncEventBus
	shutdown    func()
}

func newPresenterFixture(t *testing.T) *presenterFixture {
	t.Helper()

	log := logger.NewTestLogger()
	bus := eventbus.NewSyncEventBus(log)
	backend := mock.NewBackend(log)
	engine := service.NewPlaybackEngine(log, backend, bus, service.DefaultEngineConfig())
	controller := service.NewSessionController(log, engine, bus, notify.Nop{})

	catalog := &fakeCatalog{
		tracks: []domain.Track{
			domain.NewTrack(1, "Song A", "Artist X", "file:///music/a.mp3"),
			domain.NewTrack(2, "Song B", "", "file:///music/b.mp3"),
		},
		roots:   []string{"/music"},
		artwork: map[int64][]byte{1: {0xff, 0xd8}},
	}
	library := service.NewLibraryService(log, catalog, bus)

	capture := mock.NewCaptureProvider()
	visualizer := service.NewSpectrumVisualizer(log, capture, bus, true)
	preferences := service.NewPreferenceService(log, memory.NewPreferencesRepository(test.NewApp().Preferences()))

	view := &fakeView{}
	p := NewPresenter(log, controller, library, visualizer, preferences, bus, view)
	p.SetIntervals(5*time.Millisecond, 5*time.Millisecond)

	var once sync.Once
	shutdown := func() {
		once.Do(func() {
			p.Shutdown()
			_ = visualizer.Shutdown()
			_ = controller.Shutdown()
			_ = engine.Shutdown()
			_ = library.Shutdown()
			_ = preferences.Shutdown()
			_ = bus.Close()
		})
	}
	t.Cleanup(shutdown)

	return &presenterFixture{
		presenter:   p,
		view:        view,
		catalog:     catalog,
		backend:     backend,
		capture:     capture,
		controller:  controller,
		visualizer:  visualizer,
		preferences: preferences,
		bus:         bus,
		shutdown:    shutdown,
	}
}

func TestPresenter_LoadLibrary(t *testing.T) {
	f := newPresenterFixture(t)

	require.NoError(t, f.presenter.LoadLibrary(context.Background()))

	f.view.read(func(v *fakeView) {
		require.Len(t, v.tracks, 2)
		assert.Equal(t, "Song B", v.tracks[1].Title)
		assert.Equal(t, domain.UnknownArtist, v.tracks[1].Artist)
		assert.Empty(t, v.errors)
		assert.Empty(t, v.infos)

		// Cursor starts at the first track, nothing playing yet
		assert.Equal(t, "Song A", v.title)
		assert.False(t, v.playing)
		assert.Equal(t, []byte{0xff, 0xd8}, v.art)
	})
	assert.Equal(t, 2, f.controller.Playlist().Len())
}

func TestPresenter_LoadLibraryPermissionDenied(t *testing.T) {
	f := newPresenterFixture(t)
	f.catalog.err = domain.NewCatalogError("query", "/music", domain.ErrPermissionDenied)

	err := f.presenter.LoadLibrary(context.Background())
	assert.ErrorIs(t, err, domain.ErrPermissionDenied)

	f.view.read(func(v *fakeView) {
		assert.Equal(t, []string{MsgPermissionDenied}, v.errors)
		assert.Zero(t, v.showTracks, "catalog is skipped")
	})
	assert.True(t, f.controller.Playlist().IsEmpty())
}

func TestPresenter_LoadLibraryEmpty(t *testing.T) {
	f := newPresenterFixture(t)
	f.catalog.tracks = nil

	require.NoError(t, f.presenter.LoadLibrary(context.Background()))

	f.view.read(func(v *fakeView) {
		assert.Equal(t, []string{MsgNoMusic}, v.infos)
		assert.Equal(t, 1, v.showTracks)
		assert.Empty(t, v.tracks)
		assert.Empty(t, v.title)
		assert.Equal(t, 1, v.artCleared)
	})
}

func TestPresenter_LoadLibraryFailure(t *testing.T) {
	f := newPresenterFixture(t)
	f.catalog.err = errors.New("disk on fire")

	assert.Error(t, f.presenter.LoadLibrary(context.Background()))
	f.view.read(func(v *fakeView) {
		require.Len(t, v.errors, 1)
		assert.Contains(t, v.errors[0], "disk on fire")
	})
}

func TestPresenter_SelectAndPoll(t *testing.T) {
	f := newPresenterFixture(t)
	require.NoError(t, f.presenter.LoadLibrary(context.Background()))

	f.presenter.SetVisible(true)
	f.presenter.OnTrackSelected(1)

	f.view.read(func(v *fakeView) {
		assert.Equal(t, "Song B", v.title)
		assert.Equal(t, domain.UnknownArtist, v.artist)
		assert.Nil(t, v.art)
	})

	f.backend.SimulatePrepared(f.backend.LastToken())

	wantMax := mock.DefaultDuration.Milliseconds()
	require.Eventually(t, func() bool {
		var ok bool
		f.view.read(func(v *fakeView) { ok = v.playing && v.seekMax == wantMax })
		return ok
	}, waitFor, 5*time.Millisecond)

	f.view.read(func(v *fakeView) {
		assert.Equal(t, "3:00", v.total)
		assert.Equal(t, "0:00", v.current)
	})

	// The visualizer follows the prepared output
	require.Eventually(t, func() bool {
		return len(f.capture.Attachments()) == 1
	}, waitFor, 5*time.Millisecond)
	assert.Equal(t, domain.SessionHandle(1), f.capture.Attachments()[0].Handle)
	assert.Equal(t, f.controller.AudioSessionHandle(), f.visualizer.Handle())

	f.backend.SimulateProgress(65 * time.Second)
	require.Eventually(t, func() bool {
		var cur string
		f.view.read(func(v *fakeView) { cur = v.current })
		return cur == "1:05"
	}, waitFor, 5*time.Millisecond)

	f.presenter.OnPlayPauseClicked()
	f.view.read(func(v *fakeView) { assert.False(t, v.playing) })
	assert.False(t, f.controller.IsPlaying())
}

func TestPresenter_ResyncsAfterAutoAdvance(t *testing.T) {
	f := newPresenterFixture(t)
	require.NoError(t, f.presenter.LoadLibrary(context.Background()))

	f.presenter.OnTrackSelected(1)
	f.backend.SimulatePrepared(f.backend.LastToken())
	require.Eventually(t, f.controller.IsPlaying, waitFor, 2*time.Millisecond)

	f.presenter.SetVisible(true)

	// The last track completes and the session wraps to the first one
	f.backend.SimulateCompletion(f.backend.LastToken())

	require.Eventually(t, func() bool {
		var title string
		f.view.read(func(v *fakeView) { title = v.title })
		return title == "Song A"
	}, waitFor, 5*time.Millisecond)

	f.view.read(func(v *fakeView) {
		assert.Equal(t, "Artist X", v.artist)
		assert.Equal(t, []byte{0xff, 0xd8}, v.art)
	})
	assert.Equal(t, 0, f.controller.CurrentIndex())
}

func TestPresenter_CatalogChangeKeepsCurrentTrack(t *testing.T) {
	f := newPresenterFixture(t)
	f.backend.SetAutoPrepare(true)
	require.NoError(t, f.presenter.LoadLibrary(context.Background()))

	f.presenter.OnTrackSelected(1)
	require.Eventually(t, f.controller.IsPlaying, waitFor, 2*time.Millisecond)

	// A new file sorts before the playing one
	f.catalog.setTracks([]domain.Track{
		domain.NewTrack(3, "Intro", "Artist Y", "file:///music/0.mp3"),
		domain.NewTrack(1, "Song A", "Artist X", "file:///music/a.mp3"),
		domain.NewTrack(2, "Song B", "", "file:///music/b.mp3"),
	})
	f.bus.Publish(domain.NewCatalogChangedEvent([]string{"/music/0.mp3"}))

	assert.Equal(t, 2, f.controller.CurrentIndex())
	current, ok := f.controller.CurrentTrack()
	require.True(t, ok)
	assert.Equal(t, int64(2), current.ID)
	assert.True(t, f.controller.IsPlaying())

	f.view.read(func(v *fakeView) {
		assert.Len(t, v.tracks, 3)
		assert.Equal(t, "Song B", v.title)
	})

	require.NoError(t, f.controller.Next())
	current, _ = f.controller.CurrentTrack()
	assert.Equal(t, "Intro", current.Title)
}

func TestPresenter_NextPrevAndSeek(t *testing.T) {
	f := newPresenterFixture(t)
	f.backend.SetAutoPrepare(true)
	require.NoError(t, f.presenter.LoadLibrary(context.Background()))

	f.presenter.OnNextClicked()
	f.view.read(func(v *fakeView) { assert.Equal(t, "Song B", v.title) })

	f.presenter.OnNextClicked()
	f.view.read(func(v *fakeView) { assert.Equal(t, "Song A", v.title) })

	f.presenter.OnPrevClicked()
	f.view.read(func(v *fakeView) { assert.Equal(t, "Song B", v.title) })

	// Only the last requested track starts
	require.Eventually(t, f.controller.IsPlaying, waitFor, 2*time.Millisecond)
	assert.Equal(t, 1, f.controller.CurrentIndex())

	f.presenter.OnSeek(42_000)
	assert.Equal(t, int64(42_000), f.controller.PositionMs())
}

func TestPresenter_SpectrumLoop(t *testing.T) {
	f := newPresenterFixture(t)
	require.NoError(t, f.presenter.LoadLibrary(context.Background()))

	f.presenter.OnTrackSelected(0)
	f.backend.SimulatePrepared(f.backend.LastToken())
	f.presenter.SetVisible(true)

	require.Eventually(t, func() bool {
		return f.capture.ActiveTaps() == 1
	}, waitFor, 5*time.Millisecond)

	f.capture.EmitFrame(domain.SpectrumFrame{64, 0, 0, 0, 0, 64, 0, 0})

	require.Eventually(t, func() bool {
		var n int
		f.view.read(func(v *fakeView) { n = len(v.bars) })
		return n == 2
	}, waitFor, 5*time.Millisecond)

	f.view.read(func(v *fakeView) {
		assert.Equal(t, domain.Bar{X: 0, Height: 25}, v.bars[0])
		assert.Equal(t, domain.Bar{X: 50, Height: 25}, v.bars[1])
	})
}

func TestPresenter_VisualizerFollowsAutoAdvance(t *testing.T) {
	f := newPresenterFixture(t)
	f.backend.SetAutoPrepare(true)
	require.NoError(t, f.presenter.LoadLibrary(context.Background()))

	// Hidden: no poll loop to notice the new output
	require.NoError(t, f.controller.PlayAt(0))
	require.Eventually(t, func() bool {
		return f.capture.ActiveTaps() == 1 && f.controller.IsPlaying()
	}, waitFor, 2*time.Millisecond)

	f.capture.EmitFrame(domain.SpectrumFrame{64, 0, 0, 0})
	require.NotEmpty(t, f.visualizer.Render(100, 50))

	f.backend.SimulateCompletion(f.backend.LastToken())

	require.Eventually(t, func() bool {
		return len(f.capture.Attachments()) == 2 &&
			f.visualizer.Handle() == f.controller.AudioSessionHandle()
	}, waitFor, 2*time.Millisecond)
	assert.Equal(t, 1, f.capture.ActiveTaps())
	assert.Empty(t, f.visualizer.Render(100, 50), "bars of the previous track are dropped")
}

func TestPresenter_VisualizerToggle(t *testing.T) {
	f := newPresenterFixture(t)
	f.backend.SetAutoPrepare(true)
	require.NoError(t, f.presenter.LoadLibrary(context.Background()))

	f.presenter.SetVisible(true)
	f.presenter.OnTrackSelected(0)

	require.True(t, f.presenter.VisualizerEnabled())
	require.Eventually(t, func() bool {
		return f.capture.ActiveTaps() == 1
	}, waitFor, 5*time.Millisecond)

	f.presenter.OnVisualizerToggled(false)
	assert.False(t, f.presenter.VisualizerEnabled())
	assert.False(t, f.preferences.VisualizerEnabled())
	assert.Zero(t, f.capture.ActiveTaps())

	f.presenter.OnVisualizerToggled(true)
	assert.True(t, f.preferences.VisualizerEnabled())
	assert.Equal(t, 1, f.capture.ActiveTaps())
}

func TestPresenter_VisualizerUnsupported(t *testing.T) {
	f := newPresenterFixture(t)
	f.backend.SetAutoPrepare(true)
	f.capture.SetFailAttach(true)
	require.NoError(t, f.presenter.LoadLibrary(context.Background()))

	f.presenter.SetVisible(true)
	f.presenter.OnTrackSelected(0)
	require.Eventually(t, func() bool {
		return len(f.capture.Attachments()) == 1
	}, waitFor, 5*time.Millisecond)

	// A new output is tried once, quietly
	f.presenter.OnNextClicked()
	require.Eventually(t, func() bool {
		return len(f.capture.Attachments()) == 2
	}, waitFor, 5*time.Millisecond)

	time.Sleep(20 * time.Millisecond)
	assert.Len(t, f.capture.Attachments(), 2, "a failed output is not retried every tick")
	assert.Zero(t, f.capture.ActiveTaps())

	f.view.read(func(v *fakeView) {
		assert.Equal(t, []string{MsgVisualizerUnsupported}, v.infos)
	})
}

func TestPresenter_EngineErrorIsSilent(t *testing.T) {
	f := newPresenterFixture(t)
	require.NoError(t, f.presenter.LoadLibrary(context.Background()))
	f.backend.SetFailSource(true)

	f.presenter.OnTrackSelected(0)

	// Playback just does not start
	f.view.read(func(v *fakeView) {
		assert.Empty(t, v.infos)
		assert.Empty(t, v.errors)
		assert.False(t, v.playing)
	})
	assert.False(t, f.controller.IsPlaying())
}

func TestPresenter_FolderAdded(t *testing.T) {
	f := newPresenterFixture(t)

	require.NoError(t, f.presenter.OnFolderAdded(context.Background(), "/more-music"))

	assert.Equal(t, []string{"/music", "/more-music"}, f.catalog.Roots())
	assert.Equal(t, f.catalog.Roots(), f.presenter.MusicRoots())
	assert.Equal(t, []string{"/more-music"}, f.preferences.MusicRoots())
	f.view.read(func(v *fakeView) { assert.Len(t, v.tracks, 2) })
}

func TestPresenter_NotificationTapped(t *testing.T) {
	f := newPresenterFixture(t)
	require.NoError(t, f.presenter.LoadLibrary(context.Background()))
	f.presenter.OnNextClicked()

	// Simulate a view that fell behind while hidden
	f.view.SetTrackInfo("stale", "")

	require.NoError(t, f.presenter.OnNotificationTapped(f.controller.ResumeToken()))
	f.view.read(func(v *fakeView) { assert.Equal(t, "Song B", v.title) })

	err := f.presenter.OnNotificationTapped(domain.ResumeToken{SessionID: "elsewhere"})
	assert.ErrorIs(t, err, domain.ErrStaleResumeToken)
}

func TestPresenter_VisibilityLifecycle(t *testing.T) {
	defer testutil.VerifyNoLeaks(t, testutil.IgnoreFyneGoroutines()...)

	f := newPresenterFixture(t)

	f.presenter.SetVisible(true)
	f.presenter.SetVisible(true)
	assert.True(t, f.presenter.IsVisible())

	f.presenter.SetVisible(false)
	f.presenter.SetVisible(false)
	assert.False(t, f.presenter.IsVisible())

	f.presenter.SetVisible(true)
	f.shutdown()
	assert.False(t, f.presenter.IsVisible())

	// Shutdown is idempotent
	f.presenter.Shutdown()
}

func TestFormatTime(t *testing.T) {
	tests := []struct {
		ms   int64
		want string
	}{
		{0, "0:00"},
		{-500, "0:00"},
		{999, "0:00"},
		{5_000, "0:05"},
		{65_000, "1:05"},
		{600_000, "10:00"},
		{3_725_000, "62:05"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, formatTime(tt.ms), "ms=%d", tt.ms)
	}
}
