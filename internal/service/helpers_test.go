package service

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/tejashwikalptaru/tunedeck/internal/adapter/audio/mock"
	"github.com/tejashwikalptaru/tunedeck/internal/adapter/eventbus"
	"github.com/tejashwikalptaru/tunedeck/internal/domain"
	"github.com/tejashwikalptaru/tunedeck/internal/logger"
	"github.com/tejashwikalptaru/tunedeck/internal/ports"
)

const waitFor = time.Second

// Helper to create test tracks
func testTracks() []domain.Track {
	return []domain.Track{
		domain.NewTrack(1, "Song A", "Artist X", "file:///music/a.mp3"),
		domain.NewTrack(2, "Song B", "", "file:///music/b.mp3"),
		domain.NewTrack(3, "Song C", "Artist Z", "file:///music/c.mp3"),
	}
}

// recorder collects every event published on a bus.
type recorder struct {
	mu     sync.Mutex
	events []domain.Event
}

func newRecorder(bus ports.EventBus) *recorder {
	r := &recorder{}
	bus.SubscribeAll(func(e domain.Event) {
		r.mu.Lock()
		defer r.mu.Unlock()
		r.events = append(r.events, e)
	})
	return r
}

func (r *recorder) types() []domain.EventType {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]domain.EventType, 0, len(r.events))
	for _, e := range r.events {
		out = append(out, e.Type())
	}
	return out
}

func (r *recorder) count(t domain.EventType) int {
	n := 0
	for _, et := range r.types() {
		if et == t {
			n++
		}
	}
	return n
}

func (r *recorder) last(t domain.EventType) domain.Event {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i := len(r.events) - 1; i >= 0; i-- {
		if r.events[i].Type() == t {
			return r.events[i]
		}
	}
	return nil
}

// fakeNotifier records notifier calls.
type fakeNotifier struct {
	mu        sync.Mutex
	channels  int
	published []ports.NowPlaying
	cleared   int
	tap       ports.TapHandler
	failWith  error
}

func (n *fakeNotifier) EnsureChannel() error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.channels++
	return nil
}

func (n *fakeNotifier) Publish(np ports.NowPlaying) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.published = append(n.published, np)
	return n.failWith
}

func (n *fakeNotifier) Clear() error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.cleared++
	return nil
}

func (n *fakeNotifier) OnTap(handler ports.TapHandler) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.tap = handler
}

func (n *fakeNotifier) lastPublished() (ports.NowPlaying, bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if len(n.published) == 0 {
		return ports.NowPlaying{}, false
	}
	return n.published[len(n.published)-1], true
}

func (n *fakeNotifier) publishCount() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.published)
}

// engineFixture wires a PlaybackEngine to a mock backend and a real bus.
type engineFixture struct {
	engine  *PlaybackEngine
	backend *mock.Backend
	bus     *eventbus.SyncEventBus
	events  *recorder
}

func newEngineFixture(t *testing.T, cfg EngineConfig) *engineFixture {
	t.Helper()

	log := logger.NewTestLogger()
	bus := eventbus.NewSyncEventBus(log)
	events := newRecorder(bus)
	backend := mock.NewBackend(log)
	engine := NewPlaybackEngine(log, backend, bus, cfg)

	t.Cleanup(func() {
		_ = engine.Shutdown()
		_ = bus.Close()
	})

	return &engineFixture{
		engine:  engine,
		backend: backend,
		bus:     bus,
		events:  events,
	}
}

// prepare reports the latest load as prepared and waits for the engine to apply it.
func (f *engineFixture) prepare(t *testing.T) {
	t.Helper()
	f.backend.SimulatePrepared(f.backend.LastToken())
	require.Eventually(t, func() bool {
		return f.engine.State().IsPrepared()
	}, waitFor, 2*time.Millisecond)
}
