package ports

import (
	"github.com/tejashwikalptaru/tunedeck/internal/domain"
)

// FrameHandler receives one frequency-domain frame.
// The slice is only valid for the duration of the call.
type FrameHandler func(frame domain.SpectrumFrame)

// CaptureProvider attaches frequency-capture taps to audio output paths.
//
// Frames are delivered on a goroutine owned by the provider.
type CaptureProvider interface {
	// MaxCaptureRate returns the highest supported frame rate in milli-hertz.
	MaxCaptureRate() int

	// CaptureSizeRange returns the smallest and largest supported frame size in bytes.
	CaptureSizeRange() (minSize, maxSize int)

	// Attach installs a tap on the output identified by handle.
	// size is the frame size in bytes, rate the delivery rate in milli-hertz.
	//
	// Returns domain.ErrCaptureUnsupported (possibly wrapped) when the platform
	// refuses the tap.
	Attach(handle domain.SessionHandle, size, rate int, onFrame FrameHandler) (CaptureTap, error)
}

// CaptureTap is one attached capture.
type CaptureTap interface {
	// Release stops frame delivery. No frame is delivered after Release returns.
	// Releasing twice is a no-op.
	Release() error
}
