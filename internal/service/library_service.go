package service

import (
	"context"
	"errors"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/tejashwikalptaru/tunedeck/internal/domain"
	"github.com/tejashwikalptaru/tunedeck/internal/ports"
)

// DefaultWatchDebounce is how long the library waits for the media index to
// settle before reporting a change.
const DefaultWatchDebounce = 750 * time.Millisecond

// LibraryService reads the media catalog and reports its changes.
// All operations are thread-safe via sync.RWMutex.
type LibraryService struct {
	// Dependencies (injected)
	logger  *slog.Logger
	catalog ports.Catalog
	bus     ports.EventBus

	// State
	loading     bool
	cancelLoad  context.CancelFunc
	watching    bool
	cancelWatch context.CancelFunc
	debounce    time.Duration

	// Concurrency control
	mu      sync.RWMutex
	watchWg sync.WaitGroup
}

// NewLibraryService creates a new library service.
func NewLibraryService(
	logger *slog.Logger,
	catalog ports.Catalog,
	bus ports.EventBus,
) *LibraryService {
	return &LibraryService{
		logger:   logger.With(slog.String("service", "library")),
		catalog:  catalog,
		bus:      bus,
		debounce: DefaultWatchDebounce,
	}
}

// SetWatchDebounce changes the quiet period used by StartWatching.
func (s *LibraryService) SetWatchDebounce(d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.debounce = d
}

// LoadCatalog queries the media index for music, sorted by title.
//
// Returns domain.ErrPermissionDenied when the index cannot be read and
// domain.ErrCatalogEmpty (with an empty, non-nil slice) when it holds no music.
// Both cases are also published as events.
func (s *LibraryService) LoadCatalog(ctx context.Context) ([]domain.Track, error) {
	s.mu.Lock()
	if s.loading {
		s.mu.Unlock()
		return nil, domain.NewServiceError("LibraryService", "LoadCatalog", "load already in progress", nil)
	}
	s.loading = true
	ctx, cancel := context.WithCancel(ctx)
	s.cancelLoad = cancel
	s.mu.Unlock()

	defer func() {
		cancel()
		s.mu.Lock()
		s.loading = false
		s.cancelLoad = nil
		s.mu.Unlock()
	}()

	roots := s.catalog.Roots()
	s.bus.Publish(domain.NewScanStartedEvent(roots))

	tracks, err := s.catalog.Query(ctx, domain.DefaultCatalogQuery())
	switch {
	case errors.Is(err, domain.ErrPermissionDenied):
		s.logger.Warn("permission denied, cannot load songs", slog.Any("error", err))
		s.bus.Publish(domain.NewPermissionDeniedEvent(err))
		return nil, err

	case errors.Is(err, context.Canceled):
		return nil, domain.ErrScanCancelled

	case err != nil:
		s.logger.Error("catalog query failed", slog.Any("error", err))
		return nil, domain.NewServiceError("LibraryService", "LoadCatalog", "catalog query failed", err)
	}

	if len(tracks) == 0 {
		s.logger.Info("no music files found", slog.Any("roots", roots))
		s.bus.Publish(domain.NewCatalogEmptyEvent())
		return []domain.Track{}, domain.ErrCatalogEmpty
	}

	s.logger.Debug("catalog loaded", slog.Int("tracks", len(tracks)))
	s.bus.Publish(domain.NewScanCompletedEvent(tracks))
	return tracks, nil
}

// CancelLoad cancels the running LoadCatalog call.
func (s *LibraryService) CancelLoad() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.loading {
		return domain.NewServiceError("LibraryService", "CancelLoad", "no load in progress", nil)
	}
	s.cancelLoad()
	return nil
}

// IsLoading returns true while LoadCatalog runs.
func (s *LibraryService) IsLoading() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loading
}

// Roots returns the locations covered by the catalog.
func (s *LibraryService) Roots() []string {
	return s.catalog.Roots()
}

// AddRoot adds a location to the catalog. The caller reloads the catalog afterwards.
func (s *LibraryService) AddRoot(path string) error {
	editor, ok := s.catalog.(ports.RootEditor)
	if !ok {
		return domain.NewServiceError("LibraryService", "AddRoot", "catalog roots are fixed", nil)
	}
	if err := editor.AddRoot(path); err != nil {
		return domain.NewServiceError("LibraryService", "AddRoot", "cannot add music root", err)
	}
	s.logger.Info("music root added", slog.String("path", path))
	return nil
}

// Artwork returns embedded cover art for track, or nil when there is none.
func (s *LibraryService) Artwork(track domain.Track) ([]byte, error) {
	source, ok := s.catalog.(ports.ArtworkSource)
	if !ok {
		return nil, nil
	}
	return source.Artwork(track)
}

// StartWatching reports media index changes as CatalogChangedEvent.
// Bursts of changes closer together than the debounce period are reported once.
// It is a no-op when the catalog cannot be watched or is already watched.
func (s *LibraryService) StartWatching() {
	watcher, ok := s.catalog.(ports.CatalogWatcher)
	if !ok {
		s.logger.Debug("catalog does not support watching")
		return
	}

	s.mu.Lock()
	if s.watching {
		s.mu.Unlock()
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	s.watching = true
	s.cancelWatch = cancel
	debounce := s.debounce
	s.mu.Unlock()

	changes := make(chan []string, 16)

	s.watchWg.Add(2)
	go func() {
		defer s.watchWg.Done()
		err := watcher.Watch(ctx, func(paths []string) {
			select {
			case changes <- paths:
			case <-ctx.Done():
			}
		})
		if err != nil && !errors.Is(err, context.Canceled) {
			s.logger.Warn("catalog watch stopped", slog.Any("error", err))
		}
	}()
	go func() {
		defer s.watchWg.Done()
		s.debounceChanges(ctx, changes, debounce)
	}()
}

// debounceChanges collects changed paths and publishes them once the index is quiet.
func (s *LibraryService) debounceChanges(ctx context.Context, changes <-chan []string, quiet time.Duration) {
	var pending []string
	timer := time.NewTimer(quiet)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case paths := <-changes:
			for _, p := range paths {
				if !slices.Contains(pending, p) {
					pending = append(pending, p)
				}
			}
			timer.Reset(quiet)
		case <-timer.C:
			if len(pending) == 0 {
				continue
			}
			s.logger.Debug("catalog changed", slog.Int("paths", len(pending)))
			s.bus.Publish(domain.NewCatalogChangedEvent(pending))
			pending = nil
		}
	}
}

// StopWatching stops StartWatching and waits for its goroutines.
func (s *LibraryService) StopWatching() {
	s.mu.Lock()
	if !s.watching {
		s.mu.Unlock()
		return
	}
	s.watching = false
	s.cancelWatch()
	s.cancelWatch = nil
	s.mu.Unlock()

	s.watchWg.Wait()
}

// Shutdown cancels a running load and stops watching.
func (s *LibraryService) Shutdown() error {
	s.mu.Lock()
	if s.loading && s.cancelLoad != nil {
		s.cancelLoad()
	}
	s.mu.Unlock()

	s.StopWatching()
	return nil
}

// Verify that LibraryService implements the expected interface patterns
var _ interface {
	LoadCatalog(context.Context) ([]domain.Track, error)
	CancelLoad() error
	IsLoading() bool
	Roots() []string
	AddRoot(string) error
	Artwork(domain.Track) ([]byte, error)
	StartWatching()
	StopWatching()
	Shutdown() error
} = (*LibraryService)(nil)
