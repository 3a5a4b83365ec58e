package fsindex

import (
	"errors"
	"fmt"
	"hash/fnv"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/dhowden/tag"

	"github.com/tejashwikalptaru/tunedeck/internal/domain"
)

// trackID derives a stable, positive identifier from an absolute path.
func trackID(path string) int64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(path))
	id := int64(h.Sum64() & math.MaxInt64)
	if id == 0 {
		id = 1
	}
	return id
}

// readTrack builds a track for a music file.
// Files without readable tags are titled after their file name.
func readTrack(path string) domain.Track {
	title := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	artist := ""

	if metadata, err := readTags(path); err == nil {
		if t := strings.TrimSpace(metadata.Title()); t != "" {
			title = t
		}
		artist = metadata.Artist()
	}

	return domain.NewTrack(trackID(path), title, artist, domain.LocatorForPath(path))
}

// readTags opens path and parses its tags.
func readTags(path string) (tag.Metadata, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	metadata, err := tag.ReadFrom(file)
	if err != nil {
		return nil, err
	}
	if metadata == nil {
		return nil, tag.ErrNoTagsFound
	}
	return metadata, nil
}

// readArtwork returns the embedded picture of the file at path, or nil.
func readArtwork(path string) ([]byte, error) {
	metadata, err := readTags(path)
	switch {
	case errors.Is(err, tag.ErrNoTagsFound):
		return nil, nil
	case errors.Is(err, os.ErrNotExist):
		return nil, fmt.Errorf("read artwork of %s: %w", path, domain.ErrSourceUnavailable)
	case err != nil:
		// Unparseable tags just mean no artwork.
		return nil, nil
	}

	if picture := metadata.Picture(); picture != nil {
		return picture.Data, nil
	}
	return nil, nil
}
