package fsindex

import (
	"path/filepath"
	"strings"

	"github.com/samber/lo"
)

// musicFormats are the file extensions the index treats as music.
var musicFormats = []string{
	".mp3",
	".mp2",
	".ogg",
	".oga",
	".wav",
	".flac",
	".fla",
	".aac",
	".m4a",
	".m4b",
	".wma",
	".ape",
	".wv",
}

// IsMusic reports whether path has a music file extension.
func IsMusic(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return lo.Contains(musicFormats, ext)
}

// MusicFormats returns the supported extensions, dot included.
func MusicFormats() []string {
	return append([]string(nil), musicFormats...)
}
