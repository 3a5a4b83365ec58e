package ports

import (
	"context"

	"github.com/tejashwikalptaru/tunedeck/internal/domain"
)

// Catalog is the media index the player reads its tracks from.
//
// Thread-safety: Implementations must be thread-safe.
type Catalog interface {
	// Query returns every entry matching the query, in the requested order.
	//
	// Returns domain.ErrPermissionDenied (possibly wrapped) when the index
	// cannot be read, and an empty slice (not an error) when nothing matches.
	Query(ctx context.Context, query domain.CatalogQuery) ([]domain.Track, error)

	// Roots returns the locations the index covers.
	Roots() []string
}

// CatalogWatcher is implemented by catalogs that can report changes.
type CatalogWatcher interface {
	// Watch calls onChange with the affected paths whenever music entries
	// are created, removed or renamed. It blocks until ctx is done.
	Watch(ctx context.Context, onChange func(paths []string)) error
}

// ArtworkSource is implemented by catalogs that can read embedded cover art.
type ArtworkSource interface {
	// Artwork returns the raw image bytes for track, or nil when the track has none.
	Artwork(track domain.Track) ([]byte, error)
}

// RootEditor is implemented by catalogs whose roots can change at runtime.
type RootEditor interface {
	// AddRoot adds a location to the index. Adding a known root is a no-op.
	AddRoot(path string) error
}
