package fsindex

import (
	"context"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tejashwikalptaru/tunedeck/internal/domain"
	"github.com/tejashwikalptaru/tunedeck/internal/logger"
)

// id3v23 builds a minimal ID3v2.3 tag with title and artist text frames.
func id3v23(title, artist string) []byte {
	frame := func(id, text string) []byte {
		body := append([]byte{0x00}, text...)
		out := []byte(id)
		out = append(out, 0, 0, 0, byte(len(body)))
		out = append(out, 0, 0)
		return append(out, body...)
	}

	frames := append(frame("TIT2", title), frame("TPE1", artist)...)
	header := []byte{'I', 'D', '3', 3, 0, 0, 0, 0, 0, byte(len(frames))}
	return append(header, frames...)
}

func writeFile(t *testing.T, path string, data []byte) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, data, 0o644))
}

// Helper to create a music folder with tagged, untagged and non-music files
func newTestLibrary(t *testing.T) string {
	t.Helper()
	root := t.TempDir()

	tagged := append(id3v23("Song A", "Artist X"), []byte("not really audio")...)
	writeFile(t, filepath.Join(root, "zz.mp3"), tagged)
	writeFile(t, filepath.Join(root, "Song B.MP3"), []byte("untagged audio bytes"))
	writeFile(t, filepath.Join(root, "album", "c track.flac"), []byte("untagged flac bytes"))
	writeFile(t, filepath.Join(root, "notes.txt"), []byte("liner notes"))
	return root
}

func TestIsMusic(t *testing.T) {
	assert.True(t, IsMusic("/a/b.mp3"))
	assert.True(t, IsMusic("/a/b.FLAC"))
	assert.True(t, IsMusic("c.ogg"))
	assert.False(t, IsMusic("/a/b.txt"))
	assert.False(t, IsMusic("/a/mp3"))
	assert.Contains(t, MusicFormats(), ".wav")
}

func TestTrackID_StableAndPositive(t *testing.T) {
	a := trackID("/music/a.mp3")
	assert.Equal(t, a, trackID("/music/a.mp3"))
	assert.NotEqual(t, a, trackID("/music/b.mp3"))

	for i := range 100 {
		assert.Positive(t, trackID("/music/"+strconv.Itoa(i)))
	}
}

func TestIndex_Query(t *testing.T) {
	root := newTestLibrary(t)
	idx := NewIndex(logger.NewTestLogger(), root)

	tracks, err := idx.Query(context.Background(), domain.DefaultCatalogQuery())
	require.NoError(t, err)
	require.Len(t, tracks, 3)

	// Sorted by title, case-insensitive
	assert.Equal(t, "c track", tracks[0].Title)
	assert.Equal(t, "Song A", tracks[1].Title)
	assert.Equal(t, "Song B", tracks[2].Title)

	assert.Equal(t, "Artist X", tracks[1].Artist)
	assert.Equal(t, domain.UnknownArtist, tracks[2].Artist)

	path := filepath.Join(root, "zz.mp3")
	assert.Equal(t, domain.LocatorForPath(path), tracks[1].Locator)
	assert.Equal(t, trackID(path), tracks[1].ID)

	// Descending
	query := domain.DefaultCatalogQuery()
	query.Ascending = false
	tracks, err = idx.Query(context.Background(), query)
	require.NoError(t, err)
	assert.Equal(t, "Song B", tracks[0].Title)

	// Everything, not just music
	query.MusicOnly = false
	tracks, err = idx.Query(context.Background(), query)
	require.NoError(t, err)
	assert.Len(t, tracks, 4)
}

func TestIndex_RootsAreDeduplicated(t *testing.T) {
	root := newTestLibrary(t)
	idx := NewIndex(logger.NewTestLogger(), root, root+string(filepath.Separator))

	assert.Equal(t, []string{root}, idx.Roots())
	require.NoError(t, idx.AddRoot(root))
	assert.Len(t, idx.Roots(), 1)
	assert.Error(t, idx.AddRoot(" "))

	// A nested root does not duplicate tracks
	require.NoError(t, idx.AddRoot(filepath.Join(root, "album")))
	tracks, err := idx.Query(context.Background(), domain.DefaultCatalogQuery())
	require.NoError(t, err)
	assert.Len(t, tracks, 3)
}

func TestIndex_EmptyAndMissingRoots(t *testing.T) {
	idx := NewIndex(logger.NewTestLogger(), t.TempDir())

	tracks, err := idx.Query(context.Background(), domain.DefaultCatalogQuery())
	require.NoError(t, err)
	assert.NotNil(t, tracks)
	assert.Empty(t, tracks)

	missing := filepath.Join(t.TempDir(), "gone")
	require.NoError(t, idx.AddRoot(missing))
	_, err = idx.Query(context.Background(), domain.DefaultCatalogQuery())
	assert.ErrorIs(t, err, domain.ErrCatalogUnavailable)

	var catalogErr *domain.CatalogError
	require.ErrorAs(t, err, &catalogErr)
	assert.Equal(t, missing, catalogErr.Root)
}

func TestIndex_PermissionDenied(t *testing.T) {
	if os.Geteuid() == 0 {
		t.Skip("permissions are not enforced for root")
	}

	root := newTestLibrary(t)
	require.NoError(t, os.Chmod(root, 0o000))
	t.Cleanup(func() { _ = os.Chmod(root, 0o755) })

	idx := NewIndex(logger.NewTestLogger(), root)
	_, err := idx.Query(context.Background(), domain.DefaultCatalogQuery())
	assert.ErrorIs(t, err, domain.ErrPermissionDenied)
}

func TestIndex_QueryCancelled(t *testing.T) {
	idx := NewIndex(logger.NewTestLogger(), newTestLibrary(t))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := idx.Query(ctx, domain.DefaultCatalogQuery())
	assert.ErrorIs(t, err, context.Canceled)
}

func TestIndex_Artwork(t *testing.T) {
	root := newTestLibrary(t)
	idx := NewIndex(logger.NewTestLogger(), root)

	untagged := domain.NewTrack(1, "Song B", "", domain.LocatorForPath(filepath.Join(root, "Song B.MP3")))
	art, err := idx.Artwork(untagged)
	require.NoError(t, err)
	assert.Nil(t, art)

	tagged := domain.NewTrack(2, "Song A", "", domain.LocatorForPath(filepath.Join(root, "zz.mp3")))
	art, err = idx.Artwork(tagged)
	require.NoError(t, err)
	assert.Nil(t, art, "tag without a picture")

	gone := domain.NewTrack(3, "Gone", "", domain.LocatorForPath(filepath.Join(root, "gone.mp3")))
	_, err = idx.Artwork(gone)
	assert.ErrorIs(t, err, domain.ErrSourceUnavailable)

	_, err = idx.Artwork(domain.NewTrack(4, "Remote", "", "http://example.com/a.mp3"))
	assert.ErrorIs(t, err, domain.ErrSourceUnavailable)
}

func TestIndex_Watch(t *testing.T) {
	root := newTestLibrary(t)
	idx := NewIndex(logger.NewTestLogger(), root)

	var (
		mu      sync.Mutex
		changed []string
	)
	seen := func(path string) bool {
		mu.Lock()
		defer mu.Unlock()
		for _, p := range changed {
			if p == path {
				return true
			}
		}
		return false
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- idx.Watch(ctx, func(paths []string) {
			mu.Lock()
			defer mu.Unlock()
			changed = append(changed, paths...)
		})
	}()

	// Keep writing until the watcher is up and reports the file
	added := filepath.Join(root, "new.ogg")
	require.Eventually(t, func() bool {
		writeFile(t, added, []byte("ogg"))
		return seen(added)
	}, 5*time.Second, 20*time.Millisecond)

	// Folders created later are watched too
	nested := filepath.Join(root, "later", "deep.wav")
	require.Eventually(t, func() bool {
		writeFile(t, nested, []byte("wav"))
		return seen(nested)
	}, 5*time.Second, 20*time.Millisecond)

	writeFile(t, filepath.Join(root, "ignored.txt"), []byte("text"))

	cancel()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(5 * time.Second):
		t.Fatal("watch did not stop")
	}
	assert.False(t, seen(filepath.Join(root, "ignored.txt")))
}
