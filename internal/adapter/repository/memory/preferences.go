// Package memory provides repositories backed by the Fyne preferences store.
package memory

import (
	"encoding/json"
	"sync"

	"fyne.io/fyne/v2"

	"github.com/tejashwikalptaru/tunedeck/internal/domain"
	"github.com/tejashwikalptaru/tunedeck/internal/ports"
)

// Preference keys.
const (
	keyMusicRoots        = "preferences.music_roots"
	keyAutoStart         = "preferences.auto_start"
	keyVisualizerEnabled = "preferences.visualizer_enabled"
)

// PreferencesRepository implements ports.PreferencesRepository using Fyne preferences.
// This provides a thin wrapper around Fyne's preferences system with proper error handling.
//
// Thread-safe: All operations protected by sync.RWMutex.
type PreferencesRepository struct {
	prefs fyne.Preferences
	mu    sync.RWMutex
}

// NewPreferencesRepository creates a new preferences repository.
// The preferences parameter should be obtained from fyne.CurrentApp().Preferences().
func NewPreferencesRepository(prefs fyne.Preferences) *PreferencesRepository {
	return &PreferencesRepository{
		prefs: prefs,
	}
}

// SaveMusicRoots persists the list of directories indexed for music.
func (r *PreferencesRepository) SaveMusicRoots(roots []string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	// Stored as JSON so paths containing commas survive
	data, err := json.Marshal(roots)
	if err != nil {
		return domain.NewServiceError("PreferencesRepository", "SaveMusicRoots", "failed to marshal roots", err)
	}

	r.prefs.SetString(keyMusicRoots, string(data))
	return nil
}

// LoadMusicRoots retrieves the saved music roots.
func (r *PreferencesRepository) LoadMusicRoots() ([]string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	data := r.prefs.String(keyMusicRoots)
	if data == "" {
		return []string{}, nil
	}

	var roots []string
	if err := json.Unmarshal([]byte(data), &roots); err != nil {
		return nil, domain.NewServiceError("PreferencesRepository", "LoadMusicRoots", "failed to unmarshal roots", err)
	}

	return roots, nil
}

// SaveAutoStart persists the auto-start setting.
func (r *PreferencesRepository) SaveAutoStart(enabled bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.prefs.SetBool(keyAutoStart, enabled)
	return nil
}

// LoadAutoStart retrieves the auto-start setting.
func (r *PreferencesRepository) LoadAutoStart() (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.prefs.BoolWithFallback(keyAutoStart, true), nil
}

// SaveVisualizerEnabled persists the visualizer setting.
func (r *PreferencesRepository) SaveVisualizerEnabled(enabled bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.prefs.SetBool(keyVisualizerEnabled, enabled)
	return nil
}

// LoadVisualizerEnabled retrieves the visualizer setting.
func (r *PreferencesRepository) LoadVisualizerEnabled() (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.prefs.BoolWithFallback(keyVisualizerEnabled, true), nil
}

// Clear removes all saved preferences.
func (r *PreferencesRepository) Clear() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.prefs.RemoveValue(keyMusicRoots)
	r.prefs.RemoveValue(keyAutoStart)
	r.prefs.RemoveValue(keyVisualizerEnabled)

	return nil
}

// Verify interface implementation
var _ ports.PreferencesRepository = (*PreferencesRepository)(nil)
