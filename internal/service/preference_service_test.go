package service

import (
	"testing"

	"fyne.io/fyne/v2/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tejashwikalptaru/tunedeck/internal/adapter/repository/memory"
	"github.com/tejashwikalptaru/tunedeck/internal/logger"
)

func newTestPreferenceService(t *testing.T) (*PreferenceService, *memory.PreferencesRepository) {
	t.Helper()
	repo := memory.NewPreferencesRepository(test.NewApp().Preferences())
	return NewPreferenceService(logger.NewTestLogger(), repo), repo
}

func TestPreferenceService_Defaults(t *testing.T) {
	svc, _ := newTestPreferenceService(t)
	defer svc.Shutdown()

	assert.Empty(t, svc.MusicRoots())
	assert.True(t, svc.AutoStart())
	assert.True(t, svc.VisualizerEnabled())
}

func TestPreferenceService_MusicRoots(t *testing.T) {
	svc, repo := newTestPreferenceService(t)

	require.NoError(t, svc.AddMusicRoot("/music/rock/"))
	require.NoError(t, svc.AddMusicRoot("/music/jazz"))
	require.NoError(t, svc.AddMusicRoot("/music/rock"), "duplicate after cleaning")

	assert.Equal(t, []string{"/music/rock", "/music/jazz"}, svc.MusicRoots())

	stored, err := repo.LoadMusicRoots()
	require.NoError(t, err)
	assert.Equal(t, svc.MusicRoots(), stored)

	require.NoError(t, svc.RemoveMusicRoot("/music/rock"))
	assert.Equal(t, []string{"/music/jazz"}, svc.MusicRoots())

	assert.Error(t, svc.AddMusicRoot(""))
}

func TestPreferenceService_LoadsStoredValues(t *testing.T) {
	repo := memory.NewPreferencesRepository(test.NewApp().Preferences())
	require.NoError(t, repo.SaveAutoStart(false))
	require.NoError(t, repo.SaveVisualizerEnabled(false))
	require.NoError(t, repo.SaveMusicRoots([]string{"/srv/music"}))

	svc := NewPreferenceService(logger.NewTestLogger(), repo)

	assert.False(t, svc.AutoStart())
	assert.False(t, svc.VisualizerEnabled())
	assert.Equal(t, []string{"/srv/music"}, svc.MusicRoots())
}

func TestPreferenceService_ResetToDefaults(t *testing.T) {
	svc, repo := newTestPreferenceService(t)

	require.NoError(t, svc.SetAutoStart(false))
	require.NoError(t, svc.SetVisualizerEnabled(false))
	require.NoError(t, svc.AddMusicRoot("/music"))

	require.NoError(t, svc.ResetToDefaults())

	assert.True(t, svc.AutoStart())
	assert.True(t, svc.VisualizerEnabled())
	assert.Empty(t, svc.MusicRoots())

	auto, _ := repo.LoadAutoStart()
	assert.True(t, auto)
}
