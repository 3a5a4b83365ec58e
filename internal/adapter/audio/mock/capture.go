package mock

import (
	"fmt"
	"sync"

	"github.com/tejashwikalptaru/tunedeck/internal/domain"
	"github.com/tejashwikalptaru/tunedeck/internal/ports"
)

// Capture limits reported by the mock provider.
const (
	MaxCaptureRate = 20000
	MinCaptureSize = 128
	MaxCaptureSize = 1024
)

// Attachment records one Attach call.
type Attachment struct {
	Handle  domain.SessionHandle
	Size    int
	Rate    int
	Handler ports.FrameHandler
}

// CaptureProvider is a mock implementation of the CaptureProvider interface.
// Frames are only delivered when a test calls EmitFrame.
//
// Thread-safety: This implementation is thread-safe.
type CaptureProvider struct {
	mu          sync.Mutex
	taps        map[*Tap]struct{}
	attachments []Attachment
	failAttach  bool
}

// Tap is a mock capture tap.
type Tap struct {
	provider *CaptureProvider
	handler  ports.FrameHandler
}

// NewCaptureProvider creates a new mock capture provider.
func NewCaptureProvider() *CaptureProvider {
	return &CaptureProvider{
		taps: make(map[*Tap]struct{}),
	}
}

// SetFailAttach makes Attach fail with domain.ErrCaptureUnsupported.
func (p *CaptureProvider) SetFailAttach(fail bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.failAttach = fail
}

// MaxCaptureRate returns the highest supported rate in milli-hertz.
func (p *CaptureProvider) MaxCaptureRate() int {
	return MaxCaptureRate
}

// CaptureSizeRange returns the supported frame sizes in bytes.
func (p *CaptureProvider) CaptureSizeRange() (int, int) {
	return MinCaptureSize, MaxCaptureSize
}

// Attach records the request and returns a tap.
func (p *CaptureProvider) Attach(handle domain.SessionHandle, size, rate int, onFrame ports.FrameHandler) (ports.CaptureTap, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.attachments = append(p.attachments, Attachment{
		Handle:  handle,
		Size:    size,
		Rate:    rate,
		Handler: onFrame,
	})

	if p.failAttach {
		return nil, fmt.Errorf("attach session %d: %w", handle, domain.ErrCaptureUnsupported)
	}

	tap := &Tap{provider: p, handler: onFrame}
	p.taps[tap] = struct{}{}
	return tap, nil
}

// EmitFrame delivers frame to every active tap on the calling goroutine.
func (p *CaptureProvider) EmitFrame(frame domain.SpectrumFrame) {
	p.mu.Lock()
	handlers := make([]ports.FrameHandler, 0, len(p.taps))
	for tap := range p.taps {
		handlers = append(handlers, tap.handler)
	}
	p.mu.Unlock()

	for _, h := range handlers {
		h(frame)
	}
}

// Attachments returns every recorded Attach call (for testing).
func (p *CaptureProvider) Attachments() []Attachment {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]Attachment(nil), p.attachments...)
}

// ActiveTaps returns the number of taps not yet released.
func (p *CaptureProvider) ActiveTaps() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.taps)
}

// Release detaches the tap.
func (t *Tap) Release() error {
	t.provider.mu.Lock()
	defer t.provider.mu.Unlock()
	delete(t.provider.taps, t)
	return nil
}

// Verify interface implementation
var (
	_ ports.CaptureProvider = (*CaptureProvider)(nil)
	_ ports.CaptureTap      = (*Tap)(nil)
)
