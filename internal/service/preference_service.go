package service

import (
	"log/slog"
	"path/filepath"
	"slices"
	"sync"

	"github.com/tejashwikalptaru/tunedeck/internal/domain"
	"github.com/tejashwikalptaru/tunedeck/internal/ports"
)

// PreferenceService manages persisted user settings: the music roots, whether
// prepared tracks start on their own, and whether the visualizer is shown.
// Command-line flags override stored values; see app.Config.
//
// All operations are thread-safe via sync.RWMutex.
type PreferenceService struct {
	// Dependencies (injected)
	logger     *slog.Logger
	repository ports.PreferencesRepository

	// Cached preferences
	musicRoots        []string
	autoStart         bool
	visualizerEnabled bool

	// Concurrency control
	mu sync.RWMutex
}

// NewPreferenceService creates a new preference service and loads the stored values.
func NewPreferenceService(
	logger *slog.Logger,
	repository ports.PreferencesRepository,
) *PreferenceService {
	service := &PreferenceService{
		logger:            logger.With(slog.String("service", "preferences")),
		repository:        repository,
		autoStart:         true,
		visualizerEnabled: true,
	}

	service.loadPreferences()
	service.logger.Debug("preference service initialized")

	return service
}

// loadPreferences loads all preferences from repository into cache.
func (s *PreferenceService) loadPreferences() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if roots, err := s.repository.LoadMusicRoots(); err == nil {
		s.musicRoots = roots
	} else {
		s.logger.Warn("stored music roots unreadable", slog.Any("error", err))
	}

	if auto, err := s.repository.LoadAutoStart(); err == nil {
		s.autoStart = auto
	}

	if enabled, err := s.repository.LoadVisualizerEnabled(); err == nil {
		s.visualizerEnabled = enabled
	}
}

// MusicRoots returns the stored music roots.
func (s *PreferenceService) MusicRoots() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.musicRoots)
}

// AddMusicRoot stores an additional music root. Known roots are ignored.
func (s *PreferenceService) AddMusicRoot(path string) error {
	if path == "" {
		return domain.NewServiceError("PreferenceService", "AddMusicRoot", "empty path", nil)
	}
	path = filepath.Clean(path)

	s.mu.Lock()
	if slices.Contains(s.musicRoots, path) {
		s.mu.Unlock()
		return nil
	}
	s.musicRoots = append(s.musicRoots, path)
	roots := slices.Clone(s.musicRoots)
	s.mu.Unlock()

	return s.repository.SaveMusicRoots(roots)
}

// RemoveMusicRoot forgets a stored music root.
func (s *PreferenceService) RemoveMusicRoot(path string) error {
	path = filepath.Clean(path)

	s.mu.Lock()
	i := slices.Index(s.musicRoots, path)
	if i < 0 {
		s.mu.Unlock()
		return nil
	}
	s.musicRoots = slices.Delete(s.musicRoots, i, i+1)
	roots := slices.Clone(s.musicRoots)
	s.mu.Unlock()

	return s.repository.SaveMusicRoots(roots)
}

// AutoStart returns whether prepared tracks start playing on their own.
func (s *PreferenceService) AutoStart() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.autoStart
}

// SetAutoStart saves the auto-start preference.
func (s *PreferenceService) SetAutoStart(enabled bool) error {
	s.mu.Lock()
	s.autoStart = enabled
	s.mu.Unlock()

	return s.repository.SaveAutoStart(enabled)
}

// VisualizerEnabled returns whether the spectrum visualizer is shown.
func (s *PreferenceService) VisualizerEnabled() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.visualizerEnabled
}

// SetVisualizerEnabled saves the visualizer preference.
func (s *PreferenceService) SetVisualizerEnabled(enabled bool) error {
	s.mu.Lock()
	s.visualizerEnabled = enabled
	s.mu.Unlock()

	return s.repository.SaveVisualizerEnabled(enabled)
}

// ResetToDefaults clears the stored preferences and restores the defaults.
func (s *PreferenceService) ResetToDefaults() error {
	s.mu.Lock()
	s.musicRoots = nil
	s.autoStart = true
	s.visualizerEnabled = true
	s.mu.Unlock()

	return s.repository.Clear()
}

// Shutdown cleans up resources.
func (s *PreferenceService) Shutdown() error {
	// No cleanup needed for preference service
	return nil
}

// Verify that PreferenceService implements the expected interface patterns
var _ interface {
	MusicRoots() []string
	AddMusicRoot(string) error
	RemoveMusicRoot(string) error
	AutoStart() bool
	SetAutoStart(bool) error
	VisualizerEnabled() bool
	SetVisualizerEnabled(bool) error
	ResetToDefaults() error
	Shutdown() error
} = (*PreferenceService)(nil)
