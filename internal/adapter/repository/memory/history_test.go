package memory

import (
	"math"
	"testing"

	"fyne.io/fyne/v2/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHistoryRepository_LastTrack(t *testing.T) {
	repo := NewHistoryRepository(test.NewApp().Preferences())

	// Nothing saved yet
	_, ok, err := repo.LoadLastTrack()
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, repo.SaveLastTrack(math.MaxInt64))
	id, ok, err := repo.LoadLastTrack()
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, int64(math.MaxInt64), id)

	require.NoError(t, repo.SaveLastTrack(7))
	id, _, _ = repo.LoadLastTrack()
	assert.Equal(t, int64(7), id)

	require.NoError(t, repo.Clear())
	_, ok, err = repo.LoadLastTrack()
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestHistoryRepository_Corrupt(t *testing.T) {
	app := test.NewApp()
	app.Preferences().SetString(keyLastTrack, "track seven")

	_, ok, err := NewHistoryRepository(app.Preferences()).LoadLastTrack()
	assert.Error(t, err)
	assert.False(t, ok)
}
