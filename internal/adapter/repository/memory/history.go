package memory

import (
	"strconv"
	"sync"

	"fyne.io/fyne/v2"

	"github.com/tejashwikalptaru/tunedeck/internal/domain"
	"github.com/tejashwikalptaru/tunedeck/internal/ports"
)

const keyLastTrack = "history.last_track"

// HistoryRepository implements ports.HistoryRepository using Fyne preferences.
//
// Fyne preferences automatically use OS-specific app data directories:
// - macOS: ~/Library/Preferences/<app id>.plist
// - Linux: ~/.config/fyne/<app id>/
// - Windows: %APPDATA%\fyne\<app id>\
//
// Thread-safe: All operations protected by sync.RWMutex.
type HistoryRepository struct {
	prefs fyne.Preferences
	mu    sync.RWMutex
}

// NewHistoryRepository creates a new history repository.
func NewHistoryRepository(prefs fyne.Preferences) *HistoryRepository {
	return &HistoryRepository{
		prefs: prefs,
	}
}

// SaveLastTrack persists the id of the track under the cursor.
func (r *HistoryRepository) SaveLastTrack(id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	// Stored as text: ids use all 63 bits and Fyne ints are platform sized
	r.prefs.SetString(keyLastTrack, strconv.FormatInt(id, 10))
	return nil
}

// LoadLastTrack retrieves the saved track id.
func (r *HistoryRepository) LoadLastTrack() (int64, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	data := r.prefs.String(keyLastTrack)
	if data == "" {
		return 0, false, nil
	}

	id, err := strconv.ParseInt(data, 10, 64)
	if err != nil {
		return 0, false, domain.NewServiceError("HistoryRepository", "LoadLastTrack", "failed to parse track id", err)
	}
	return id, true, nil
}

// Clear removes all saved history data.
func (r *HistoryRepository) Clear() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.prefs.RemoveValue(keyLastTrack)
	return nil
}

// Verify interface implementation
var _ ports.HistoryRepository = (*HistoryRepository)(nil)
