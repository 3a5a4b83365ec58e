package native

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/tejashwikalptaru/tunedeck/internal/domain"
	"github.com/tejashwikalptaru/tunedeck/internal/ports"
)

// Capture limits.
const (
	MaxCaptureRate = 20000 // milli-hertz
	MinCaptureSize = 128
	MaxCaptureSize = 1024
)

// CaptureProvider hands out capture taps on the output paths registered by
// the backend. Each attached capture samples its path's Tap on a ticker and
// delivers packed spectrum frames.
//
// Thread-safety: This implementation is thread-safe.
type CaptureProvider struct {
	logger *slog.Logger

	mu    sync.Mutex
	paths map[domain.SessionHandle]*Tap
}

// NewCaptureProvider creates a provider with no output paths.
func NewCaptureProvider(logger *slog.Logger) *CaptureProvider {
	return &CaptureProvider{
		logger: logger.With(slog.String("adapter", "capture")),
		paths:  make(map[domain.SessionHandle]*Tap),
	}
}

// MaxCaptureRate returns the highest supported rate in milli-hertz.
func (p *CaptureProvider) MaxCaptureRate() int {
	return MaxCaptureRate
}

// CaptureSizeRange returns the supported frame sizes in bytes.
func (p *CaptureProvider) CaptureSizeRange() (int, int) {
	return MinCaptureSize, MaxCaptureSize
}

// Register makes the output path identified by handle capturable.
func (p *CaptureProvider) Register(handle domain.SessionHandle, tap *Tap) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.paths[handle] = tap
}

// Unregister removes an output path. Captures already attached to it keep
// reading the last samples until they are released.
func (p *CaptureProvider) Unregister(handle domain.SessionHandle) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.paths, handle)
}

// Attach starts delivering frames of size bytes from the path identified by handle.
//
// Returns domain.ErrCaptureUnsupported (wrapped) for an unknown handle or
// out-of-range size and rate.
func (p *CaptureProvider) Attach(handle domain.SessionHandle, size, rate int, onFrame ports.FrameHandler) (ports.CaptureTap, error) {
	if size < MinCaptureSize || size > MaxCaptureSize {
		return nil, fmt.Errorf("capture size %d out of range: %w", size, domain.ErrCaptureUnsupported)
	}
	if rate <= 0 || rate > MaxCaptureRate {
		return nil, fmt.Errorf("capture rate %d out of range: %w", rate, domain.ErrCaptureUnsupported)
	}

	p.mu.Lock()
	tap, ok := p.paths[handle]
	p.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("no output path for session %d: %w", handle, domain.ErrCaptureUnsupported)
	}

	c := &capture{
		tap:     tap,
		size:    size,
		period:  time.Duration(float64(time.Second) * 1000 / float64(rate)),
		onFrame: onFrame,
		stop:    make(chan struct{}),
	}
	c.wg.Add(1)
	go c.run()

	p.logger.Debug("capture attached",
		slog.Int("handle", int(handle)),
		slog.Int("size", size),
		slog.Duration("period", c.period))
	return c, nil
}

// capture is one attached capture tap.
type capture struct {
	tap     *Tap
	size    int
	period  time.Duration
	onFrame ports.FrameHandler

	stop     chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

func (c *capture) run() {
	defer c.wg.Done()

	ticker := time.NewTicker(c.period)
	defer ticker.Stop()

	for {
		select {
		case <-c.stop:
			return
		case <-ticker.C:
			c.onFrame(PackSpectrum(c.tap.Samples(c.size)))
		}
	}
}

// Release stops the ticker and waits for the last frame delivery to finish.
func (c *capture) Release() error {
	c.stopOnce.Do(func() { close(c.stop) })
	c.wg.Wait()
	return nil
}

// Verify interface implementation
var (
	_ ports.CaptureProvider = (*CaptureProvider)(nil)
	_ ports.CaptureTap      = (*capture)(nil)
)
