package service

import (
	"fmt"
	"log/slog"
	"math"
	"sync"
	"sync/atomic"

	"github.com/tejashwikalptaru/tunedeck/internal/domain"
	"github.com/tejashwikalptaru/tunedeck/internal/ports"
)

// SpectrumVisualizer attaches a frequency-capture tap to the engine output
// and turns the latest captured frame into bars.
//
// Frames are written by the capture provider's goroutine and read by the
// render loop; the latest frame replaces the previous one wholesale. Each
// attached tap gets a generation number, and frames from a released tap are
// ignored.
//
// An attach failure leaves the visualizer inert. The first failure is
// published as VisualizerUnavailableEvent; later ones are only logged.
type SpectrumVisualizer struct {
	// Dependencies (injected)
	logger  *slog.Logger
	capture ports.CaptureProvider
	bus     ports.EventBus

	// State
	enabled          bool
	handle           domain.SessionHandle
	tap              ports.CaptureTap
	reportedUnusable bool
	shutdown         bool
	generation       atomic.Uint64
	frame            atomic.Pointer[domain.SpectrumFrame]

	// Concurrency control
	mu sync.Mutex
}

// NewSpectrumVisualizer creates a detached visualizer.
func NewSpectrumVisualizer(
	logger *slog.Logger,
	capture ports.CaptureProvider,
	bus ports.EventBus,
	enabled bool,
) *SpectrumVisualizer {
	v := &SpectrumVisualizer{
		logger:  logger.With(slog.String("service", "visualizer")),
		capture: capture,
		bus:     bus,
		enabled: enabled,
		handle:  domain.NoSession,
	}

	v.logger.Debug("spectrum visualizer initialized", slog.Bool("enabled", enabled))
	return v
}

// Attach moves the capture tap to the output identified by handle.
// Attaching to the handle already in use is a no-op. The previous tap is
// always released before a new one is attached.
//
// Returns domain.ErrNoAudioSession for domain.NoSession, and the provider's
// error when the tap cannot be attached.
func (v *SpectrumVisualizer) Attach(handle domain.SessionHandle) error {
	v.mu.Lock()
	if v.shutdown || !v.enabled {
		v.mu.Unlock()
		return nil
	}
	if handle.Valid() && handle == v.handle {
		v.mu.Unlock()
		return nil
	}

	v.releaseLocked()

	if !handle.Valid() {
		v.mu.Unlock()
		return domain.ErrNoAudioSession
	}
	v.handle = handle

	_, size := v.capture.CaptureSizeRange()
	rate := v.capture.MaxCaptureRate() / 2
	gen := v.generation.Load()

	tap, err := v.capture.Attach(handle, size, rate, func(frame domain.SpectrumFrame) {
		v.storeFrame(gen, frame)
	})

	var event domain.Event
	if err != nil {
		v.logger.Warn("visualizer not supported on this device",
			slog.Int("handle", int(handle)),
			slog.Any("error", err))
		if !v.reportedUnusable {
			v.reportedUnusable = true
			event = domain.NewVisualizerUnavailableEvent(handle, err)
		}
		err = fmt.Errorf("attach capture to session %d: %w", handle, err)
	} else {
		v.tap = tap
		v.logger.Debug("capture attached",
			slog.Int("handle", int(handle)),
			slog.Int("size", size),
			slog.Int("rate_mhz", rate))
		event = domain.NewVisualizerAttachedEvent(handle, size, rate)
	}
	v.mu.Unlock()

	if event != nil {
		v.bus.Publish(event)
	}
	return err
}

// releaseLocked drops the current tap and frame. It must be called with v.mu held.
func (v *SpectrumVisualizer) releaseLocked() {
	v.generation.Add(1)
	v.frame.Store(nil)
	v.handle = domain.NoSession

	if v.tap == nil {
		return
	}
	if err := v.tap.Release(); err != nil {
		v.logger.Warn("capture release failed", slog.Any("error", err))
	}
	v.tap = nil
}

// storeFrame keeps a copy of frame unless its tap has been released.
func (v *SpectrumVisualizer) storeFrame(gen uint64, frame domain.SpectrumFrame) {
	if v.generation.Load() != gen {
		return
	}

	cp := make(domain.SpectrumFrame, len(frame))
	copy(cp, frame)
	v.frame.Store(&cp)

	// Released while storing: undo unless a newer frame already replaced ours.
	if v.generation.Load() != gen {
		v.frame.CompareAndSwap(&cp, nil)
	}
}

// Frame returns the latest captured frame, or nil.
func (v *SpectrumVisualizer) Frame() domain.SpectrumFrame {
	if p := v.frame.Load(); p != nil {
		return *p
	}
	return nil
}

// Render returns the bars for the latest frame scaled to a width x height view.
func (v *SpectrumVisualizer) Render(width, height float32) []domain.Bar {
	return RenderBars(v.Frame(), width, height)
}

// RenderBars converts a frame into one bar per four bytes. Bar i reads the
// signed bytes frame[4i] and frame[4i+1] as the real and imaginary part of a
// frequency bin; its height is the bin magnitude over 128, times height.
// Bars are spread evenly over width.
func RenderBars(frame domain.SpectrumFrame, width, height float32) []domain.Bar {
	n := len(frame) / 4
	if n == 0 {
		return nil
	}

	bars := make([]domain.Bar, n)
	for i := range n {
		re := float64(int8(frame[4*i]))
		im := float64(int8(frame[4*i+1]))
		magnitude := math.Hypot(re, im)

		bars[i] = domain.Bar{
			X:      float32(i) * width / float32(n),
			Height: float32(magnitude/128) * height,
		}
	}
	return bars
}

// Handle returns the handle the visualizer is attached to.
func (v *SpectrumVisualizer) Handle() domain.SessionHandle {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.handle
}

// Detach releases the tap, if any.
func (v *SpectrumVisualizer) Detach() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.releaseLocked()
}

// Enabled reports whether the visualizer attaches taps at all.
func (v *SpectrumVisualizer) Enabled() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.enabled
}

// SetEnabled turns the visualizer on or off. Disabling releases the tap.
func (v *SpectrumVisualizer) SetEnabled(enabled bool) {
	v.mu.Lock()
	defer v.mu.Unlock()

	v.enabled = enabled
	if !enabled {
		v.releaseLocked()
	}
}

// Shutdown releases the tap. Calling Shutdown more than once is a no-op.
func (v *SpectrumVisualizer) Shutdown() error {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.shutdown {
		return nil
	}
	v.shutdown = true
	v.releaseLocked()
	return nil
}

// Verify that SpectrumVisualizer implements the expected interface patterns
var _ interface {
	Attach(domain.SessionHandle) error
	Render(float32, float32) []domain.Bar
	Detach()
	Enabled() bool
	Shutdown() error
} = (*SpectrumVisualizer)(nil)
