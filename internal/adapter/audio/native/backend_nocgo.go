//go:build !((linux && cgo) || windows || darwin)

package native

import (
	"log/slog"

	"github.com/tejashwikalptaru/tunedeck/internal/domain"
	"github.com/tejashwikalptaru/tunedeck/internal/ports"
)

// Available reports whether this build can produce sound.
// Speaker output on linux needs cgo.
const Available = false

// NewBackend always fails: this build has no speaker output.
func NewBackend(logger *slog.Logger, _ *CaptureProvider) (ports.AudioBackend, error) {
	logger.Warn("built without cgo, no speaker output available")
	return nil, domain.NewAudioEngineError("init", "", "built without cgo", domain.ErrBackendUnavailable)
}
