// Package fsindex provides a media catalog backed by music folders on disk.
package fsindex

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"github.com/samber/lo"

	"github.com/tejashwikalptaru/tunedeck/internal/domain"
	"github.com/tejashwikalptaru/tunedeck/internal/ports"
)

// Index walks a set of music roots and reads track tags on every query.
//
// Thread-safety: This implementation is thread-safe.
type Index struct {
	logger *slog.Logger

	mu    sync.RWMutex
	roots []string
}

// NewIndex creates an index over roots. Relative roots are made absolute.
func NewIndex(logger *slog.Logger, roots ...string) *Index {
	idx := &Index{
		logger: logger.With(slog.String("adapter", "fsindex")),
	}
	for _, root := range roots {
		if err := idx.AddRoot(root); err != nil {
			idx.logger.Warn("music root ignored", slog.String("root", root), slog.Any("error", err))
		}
	}
	return idx
}

// Roots returns the indexed music roots.
func (i *Index) Roots() []string {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return slices.Clone(i.roots)
}

// AddRoot adds a music root. Adding a known root is a no-op.
func (i *Index) AddRoot(path string) error {
	if strings.TrimSpace(path) == "" {
		return domain.NewCatalogError("add root", path, errors.New("empty path"))
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return domain.NewCatalogError("add root", path, err)
	}

	i.mu.Lock()
	defer i.mu.Unlock()

	if !slices.Contains(i.roots, abs) {
		i.roots = append(i.roots, abs)
	}
	return nil
}

// Query walks every root and returns the tracks found, in query order.
//
// Returns domain.ErrPermissionDenied when a root cannot be read and
// domain.ErrCatalogUnavailable when a root does not exist. Unreadable
// sub-folders are skipped.
func (i *Index) Query(ctx context.Context, query domain.CatalogQuery) ([]domain.Track, error) {
	var paths []string
	for _, root := range i.Roots() {
		found, err := i.walk(ctx, root)
		if err != nil {
			return nil, err
		}
		paths = append(paths, found...)
	}

	paths = lo.Uniq(paths)
	if query.MusicOnly {
		paths = lo.Filter(paths, func(p string, _ int) bool { return IsMusic(p) })
	}

	tracks := lo.Map(paths, func(p string, _ int) domain.Track { return readTrack(p) })
	sortTracks(tracks, query)

	i.logger.Debug("catalog queried", slog.Int("tracks", len(tracks)))
	return tracks, nil
}

// walk lists the regular files below root.
func (i *Index) walk(ctx context.Context, root string) ([]string, error) {
	if _, err := os.Stat(root); err != nil {
		return nil, rootError(root, err)
	}

	var files []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if err != nil {
			if path == root {
				return err
			}
			i.logger.Debug("skipping unreadable entry", slog.String("path", path), slog.Any("error", err))
			if d != nil && d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.Type().IsRegular() {
			files = append(files, path)
		}
		return nil
	})

	switch {
	case err == nil:
		return files, nil
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return nil, err
	default:
		return nil, rootError(root, err)
	}
}

// rootError classifies a failure to read a music root.
func rootError(root string, err error) error {
	switch {
	case errors.Is(err, fs.ErrPermission):
		return domain.NewCatalogError("query", root, fmt.Errorf("%w: %v", domain.ErrPermissionDenied, err))
	case errors.Is(err, fs.ErrNotExist):
		return domain.NewCatalogError("query", root, fmt.Errorf("%w: %v", domain.ErrCatalogUnavailable, err))
	default:
		return domain.NewCatalogError("query", root, err)
	}
}

// sortTracks orders tracks by title, case-insensitively, ties broken by id.
func sortTracks(tracks []domain.Track, query domain.CatalogQuery) {
	slices.SortStableFunc(tracks, func(a, b domain.Track) int {
		c := cmp.Or(
			cmp.Compare(strings.ToLower(a.Title), strings.ToLower(b.Title)),
			cmp.Compare(a.ID, b.ID),
		)
		if !query.Ascending {
			return -c
		}
		return c
	})
}

// Artwork returns the embedded cover art of track, or nil.
func (i *Index) Artwork(track domain.Track) ([]byte, error) {
	path, err := domain.PathFromLocator(track.Locator)
	if err != nil {
		return nil, err
	}
	return readArtwork(path)
}

// Verify interface implementation
var (
	_ ports.Catalog        = (*Index)(nil)
	_ ports.CatalogWatcher = (*Index)(nil)
	_ ports.ArtworkSource  = (*Index)(nil)
	_ ports.RootEditor     = (*Index)(nil)
)
