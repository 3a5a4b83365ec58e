package service

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tejashwikalptaru/tunedeck/internal/adapter/audio/mock"
	"github.com/tejashwikalptaru/tunedeck/internal/adapter/eventbus"
	"github.com/tejashwikalptaru/tunedeck/internal/domain"
	"github.com/tejashwikalptaru/tunedeck/internal/logger"
	"github.com/tejashwikalptaru/tunedeck/internal/testutil"
)

func TestPlaybackEngine_SafeDefaultsBeforeLoad(t *testing.T) {
	f := newEngineFixture(t, DefaultEngineConfig())

	assert.False(t, f.engine.IsPlaying())
	assert.Equal(t, domain.StateIdle, f.engine.State())
	assert.Equal(t, int64(0), f.engine.PositionMs())
	assert.Equal(t, int64(0), f.engine.DurationMs())
	assert.Equal(t, domain.NoSession, f.engine.SessionHandle())

	_, ok := f.engine.CurrentTrack()
	assert.False(t, ok)

	// Transport on an idle engine is ignored
	f.engine.Play()
	f.engine.Pause()
	f.engine.Seek(time.Second)
	assert.Equal(t, domain.StateIdle, f.engine.State())
	assert.Empty(t, f.events.types())
}

func TestPlaybackEngine_LoadPrepareAutoStart(t *testing.T) {
	f := newEngineFixture(t, DefaultEngineConfig())
	track := testTracks()[0]

	f.engine.Load(track)
	assert.Equal(t, domain.StatePreparing, f.engine.State())
	assert.False(t, f.engine.IsPlaying(), "preparing is not playing")
	assert.Equal(t, []string{track.Locator}, f.backend.Sources())

	f.prepare(t)

	assert.Equal(t, domain.StatePlaying, f.engine.State())
	assert.True(t, f.engine.IsPlaying())
	assert.True(t, f.backend.Playing())
	assert.True(t, f.engine.SessionHandle().Valid())
	assert.Equal(t, mock.DefaultDuration.Milliseconds(), f.engine.DurationMs())

	require.Eventually(t, func() bool {
		return f.events.count(domain.EventTrackStarted) == 1
	}, waitFor, 2*time.Millisecond)
	assert.Equal(t, []domain.EventType{
		domain.EventTrackLoading,
		domain.EventTrackPrepared,
		domain.EventTrackStarted,
	}, f.events.types())

	prepared := f.events.last(domain.EventTrackPrepared).(domain.TrackPreparedEvent)
	assert.Equal(t, track, prepared.Track)
	assert.Equal(t, mock.DefaultDuration, prepared.Duration)
}

func TestPlaybackEngine_NoAutoStartWaitsPaused(t *testing.T) {
	f := newEngineFixture(t, EngineConfig{AutoStart: false})

	f.engine.Load(testTracks()[0])
	f.prepare(t)

	assert.Equal(t, domain.StatePaused, f.engine.State())
	assert.False(t, f.engine.IsPlaying())

	f.engine.Play()
	assert.Equal(t, domain.StatePlaying, f.engine.State())
	assert.True(t, f.engine.IsPlaying())
}

func TestPlaybackEngine_PlayPauseSeek(t *testing.T) {
	f := newEngineFixture(t, DefaultEngineConfig())

	f.engine.Load(testTracks()[0])
	f.prepare(t)

	f.engine.Seek(30 * time.Second)
	assert.Equal(t, int64(30000), f.engine.PositionMs())

	// Seeking past the end is passed through unchanged
	f.engine.Seek(10 * time.Minute)
	assert.Equal(t, int64(600000), f.engine.PositionMs())

	f.engine.Pause()
	assert.Equal(t, domain.StatePaused, f.engine.State())
	assert.False(t, f.engine.IsPlaying())

	paused := f.events.last(domain.EventTrackPaused).(domain.TrackPausedEvent)
	assert.Equal(t, 10*time.Minute, paused.Position)

	// Pause twice is a no-op
	f.engine.Pause()
	assert.Equal(t, 1, f.events.count(domain.EventTrackPaused))

	f.engine.Play()
	assert.True(t, f.engine.IsPlaying())
	require.Eventually(t, func() bool {
		return f.events.count(domain.EventTrackStarted) == 2
	}, waitFor, 2*time.Millisecond)
}

func TestPlaybackEngine_LoadWhilePreparingIsQueued(t *testing.T) {
	f := newEngineFixture(t, DefaultEngineConfig())
	tracks := testTracks()

	f.engine.Load(tracks[0])
	tokenA := f.backend.LastToken()

	f.engine.Load(tracks[1])
	f.engine.Load(tracks[2])

	// Only the first request reached the backend so far
	assert.Equal(t, []domain.LoadToken{tokenA}, f.backend.Prepares())
	assert.Equal(t, domain.StatePreparing, f.engine.State())

	// A finishing preparation hands over to the latest queued track
	f.backend.SimulatePrepared(tokenA)
	require.Eventually(t, func() bool {
		return len(f.backend.Prepares()) == 2
	}, waitFor, 2*time.Millisecond)

	assert.False(t, f.backend.Playing(), "superseded track must not start")
	assert.Equal(t, []string{tracks[0].Locator, tracks[2].Locator}, f.backend.Sources())

	f.prepare(t)
	current, ok := f.engine.CurrentTrack()
	require.True(t, ok)
	assert.Equal(t, tracks[2], current)
	require.Eventually(t, func() bool {
		return f.events.count(domain.EventTrackStarted) == 1
	}, waitFor, 2*time.Millisecond)
	assert.Equal(t, 1, f.events.count(domain.EventTrackPrepared))
}

func TestPlaybackEngine_StaleCompletionIgnored(t *testing.T) {
	f := newEngineFixture(t, DefaultEngineConfig())
	tracks := testTracks()

	f.engine.Load(tracks[0])
	f.prepare(t)
	tokenA := f.backend.LastToken()

	f.engine.Load(tracks[1])
	f.prepare(t)

	// A completion from the replaced track arrives late
	f.backend.SimulateCompletion(tokenA)
	f.backend.SimulateError(tokenA, errors.New("late failure"))

	require.Never(t, func() bool {
		return f.events.count(domain.EventTrackCompleted) > 0 || f.events.count(domain.EventEngineError) > 0
	}, 50*time.Millisecond, 5*time.Millisecond)

	assert.Equal(t, domain.StatePlaying, f.engine.State())
	current, _ := f.engine.CurrentTrack()
	assert.Equal(t, tracks[1], current)
}

func TestPlaybackEngine_Completion(t *testing.T) {
	f := newEngineFixture(t, DefaultEngineConfig())
	track := testTracks()[0]

	f.engine.Load(track)
	f.prepare(t)

	f.backend.SimulateCompletion(f.backend.LastToken())
	require.Eventually(t, func() bool {
		return f.events.count(domain.EventTrackCompleted) == 1
	}, waitFor, 2*time.Millisecond)

	completed := f.events.last(domain.EventTrackCompleted).(domain.TrackCompletedEvent)
	assert.Equal(t, track, completed.Track)
	assert.Equal(t, domain.StateIdle, f.engine.State())
	assert.False(t, f.engine.IsPlaying())
	assert.Equal(t, domain.NoSession, f.engine.SessionHandle())
}

func TestPlaybackEngine_SourceFailureLeavesIdle(t *testing.T) {
	f := newEngineFixture(t, DefaultEngineConfig())
	track := testTracks()[0]

	f.backend.SetFailSource(true)
	f.engine.Load(track)

	assert.Equal(t, domain.StateIdle, f.engine.State())
	assert.False(t, f.engine.IsPlaying())

	ev, ok := f.events.last(domain.EventEngineError).(domain.EngineErrorEvent)
	require.True(t, ok)
	assert.Equal(t, track, ev.Track)
	assert.ErrorIs(t, ev.Error, domain.ErrSourceUnavailable)

	snap := f.engine.Snapshot()
	assert.Equal(t, domain.StateIdle, snap.State)
	assert.ErrorIs(t, snap.LastError, domain.ErrSourceUnavailable)

	// The next load works again
	f.backend.SetFailSource(false)
	f.engine.Load(track)
	f.prepare(t)
	assert.True(t, f.engine.IsPlaying())
	assert.NoError(t, f.engine.Snapshot().LastError)
}

func TestPlaybackEngine_PlaybackErrorResets(t *testing.T) {
	f := newEngineFixture(t, DefaultEngineConfig())

	f.engine.Load(testTracks()[0])
	f.prepare(t)
	resets := f.backend.ResetCount()

	boom := errors.New("decoder exploded")
	f.backend.SimulateError(f.backend.LastToken(), boom)

	require.Eventually(t, func() bool {
		return f.events.count(domain.EventEngineError) == 1
	}, waitFor, 2*time.Millisecond)

	assert.Equal(t, domain.StateIdle, f.engine.State())
	assert.Greater(t, f.backend.ResetCount(), resets)
	assert.False(t, f.engine.IsPlaying())

	ev := f.events.last(domain.EventEngineError).(domain.EngineErrorEvent)
	assert.ErrorIs(t, ev.Error, boom)

	var engineErr *domain.AudioEngineError
	assert.ErrorAs(t, ev.Error, &engineErr)
}

func TestPlaybackEngine_PreparingErrorLoadsQueuedTrack(t *testing.T) {
	f := newEngineFixture(t, DefaultEngineConfig())
	tracks := testTracks()

	f.engine.Load(tracks[0])
	f.engine.Load(tracks[1])

	f.backend.SimulateError(f.backend.LastToken(), errors.New("corrupt header"))
	require.Eventually(t, func() bool {
		return len(f.backend.Prepares()) == 2
	}, waitFor, 2*time.Millisecond)

	f.prepare(t)
	current, _ := f.engine.CurrentTrack()
	assert.Equal(t, tracks[1], current)
	assert.Equal(t, 1, f.events.count(domain.EventEngineError))
}

func TestPlaybackEngine_StartFailure(t *testing.T) {
	f := newEngineFixture(t, DefaultEngineConfig())

	f.backend.SetFailStart(true)
	f.engine.Load(testTracks()[0])
	f.backend.SimulatePrepared(f.backend.LastToken())

	require.Eventually(t, func() bool {
		return f.events.count(domain.EventEngineError) == 1
	}, waitFor, 2*time.Millisecond)
	assert.Equal(t, domain.StateIdle, f.engine.State())
	assert.Equal(t, 0, f.events.count(domain.EventTrackStarted))
}

func TestPlaybackEngine_ShutdownIdempotent(t *testing.T) {
	defer testutil.VerifyNoLeaks(t)

	log := logger.NewTestLogger()
	bus := eventbus.NewSyncEventBus(log)
	defer bus.Close()

	backend := mock.NewBackend(log)
	backend.SetAutoPrepare(true)
	engine := NewPlaybackEngine(log, backend, bus, DefaultEngineConfig())

	engine.Load(testTracks()[0])
	require.Eventually(t, engine.IsPlaying, waitFor, 2*time.Millisecond)

	require.NoError(t, engine.Shutdown())
	require.NoError(t, engine.Shutdown())

	assert.False(t, engine.IsPlaying())
	assert.Equal(t, domain.NoSession, engine.SessionHandle())

	// Loads after shutdown are ignored
	engine.Load(testTracks()[1])
	assert.Equal(t, []string{testTracks()[0].Locator}, backend.Sources())
}

func TestPlaybackEngine_PumpExitsWhenBackendCloses(t *testing.T) {
	defer testutil.VerifyNoLeaks(t)

	log := logger.NewTestLogger()
	bus := eventbus.NewSyncEventBus(log)
	defer bus.Close()

	backend := mock.NewBackend(log)
	engine := NewPlaybackEngine(log, backend, bus, DefaultEngineConfig())

	require.NoError(t, backend.Release())
	engine.pumpWg.Wait()

	// The backend is already gone, so resetting it fails
	assert.ErrorIs(t, engine.Shutdown(), domain.ErrBackendReleased)
	assert.Equal(t, domain.StateIdle, engine.State())
}
