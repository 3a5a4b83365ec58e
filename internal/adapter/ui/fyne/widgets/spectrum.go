// Package widgets provides custom Fyne widgets for the tunedeck player.
package widgets

import (
	"image/color"
	"sync"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/widget"

	"github.com/tejashwikalptaru/tunedeck/internal/domain"
)

// Spectrum draws one vertical line per bar, growing up from the bottom edge,
// with a cap that falls slowly after each peak. It has no background, so it
// can be stacked over the album art.
type Spectrum struct {
	widget.BaseWidget

	mu   sync.RWMutex
	bars []domain.Bar
	caps []float32

	// Visual configuration
	capFalloff float32 // Pixels per update the cap falls
	fill       float32 // Share of the bar slot covered by the line
}

// NewSpectrum creates an empty spectrum widget.
func NewSpectrum() *Spectrum {
	s := &Spectrum{
		capFalloff: 2,
		fill:       0.6,
	}
	s.ExtendBaseWidget(s)
	return s
}

// SetBars replaces the displayed bars and refreshes the widget.
// Bars are in the widget's own coordinates, as returned by Size.
func (s *Spectrum) SetBars(bars []domain.Bar) {
	s.mu.Lock()
	s.bars = bars
	if len(s.caps) != len(bars) {
		s.caps = make([]float32, len(bars))
	}
	for i, b := range bars {
		if b.Height > s.caps[i] {
			s.caps[i] = b.Height
		} else {
			s.caps[i] = max(s.caps[i]-s.capFalloff, 0)
		}
	}
	s.mu.Unlock()

	s.Refresh()
}

// Reset clears the bars.
func (s *Spectrum) Reset() {
	s.SetBars(nil)
}

// MinSize returns a minimal size so the widget expands to fill available space.
func (s *Spectrum) MinSize() fyne.Size {
	return fyne.NewSize(0, 0)
}

// CreateRenderer implements fyne.Widget.
func (s *Spectrum) CreateRenderer() fyne.WidgetRenderer {
	return &spectrumRenderer{spectrum: s}
}

type spectrumRenderer struct {
	spectrum *Spectrum
	lines    []*canvas.Line
	caps     []*canvas.Line
}

func (r *spectrumRenderer) Layout(size fyne.Size) {
	r.update(size)
}

func (r *spectrumRenderer) MinSize() fyne.Size {
	return r.spectrum.MinSize()
}

func (r *spectrumRenderer) Refresh() {
	r.update(r.spectrum.Size())
	canvas.Refresh(r.spectrum)
}

func (r *spectrumRenderer) Objects() []fyne.CanvasObject {
	objects := make([]fyne.CanvasObject, 0, len(r.lines)+len(r.caps))
	for _, l := range r.lines {
		objects = append(objects, l)
	}
	for _, c := range r.caps {
		objects = append(objects, c)
	}
	return objects
}

func (r *spectrumRenderer) Destroy() {}

// update positions one line and one cap per bar.
func (r *spectrumRenderer) update(size fyne.Size) {
	r.spectrum.mu.RLock()
	bars := r.spectrum.bars
	caps := r.spectrum.caps
	fill := r.spectrum.fill
	r.spectrum.mu.RUnlock()

	for len(r.lines) < len(bars) {
		r.lines = append(r.lines, canvas.NewLine(color.White))
		r.caps = append(r.caps, canvas.NewLine(color.White))
	}
	r.lines = r.lines[:len(bars)]
	r.caps = r.caps[:len(bars)]

	if len(bars) == 0 || size.Height <= 0 {
		return
	}

	slot := size.Width / float32(len(bars))
	stroke := max(slot*fill, 1)

	for i, b := range bars {
		x := b.X + slot/2
		h := min(b.Height, size.Height)

		line := r.lines[i]
		line.StrokeColor = gradientColor(float64(h / size.Height))
		line.StrokeWidth = stroke
		line.Position1 = fyne.NewPos(x, size.Height)
		line.Position2 = fyne.NewPos(x, size.Height-h)

		capY := size.Height - min(caps[i], size.Height)
		c := r.caps[i]
		c.StrokeWidth = 2
		c.Position1 = fyne.NewPos(x-stroke/2, capY)
		c.Position2 = fyne.NewPos(x+stroke/2, capY)
	}
}

// gradientColor returns a color from a red-yellow-green gradient based on position (0.0 to 1.0).
func gradientColor(pos float64) color.RGBA {
	pos = min(max(pos, 0), 1)

	var r, g uint8
	if pos < 0.5 {
		r = 255
		g = uint8(pos * 2 * 255)
	} else {
		r = uint8((1 - (pos-0.5)*2) * 255)
		g = 255
	}
	return color.RGBA{R: r, G: g, B: 0, A: 255}
}

// Verify interface implementation
var _ fyne.Widget = (*Spectrum)(nil)
