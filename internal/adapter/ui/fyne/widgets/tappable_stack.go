package widgets

import (
	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/driver/desktop"
	"fyne.io/fyne/v2/widget"
)

// TappableStack stacks its objects and responds to secondary (right-click)
// taps. The player uses it over the album art and spectrum to open the
// visualizer menu.
type TappableStack struct {
	widget.BaseWidget

	content        *fyne.Container
	onSecondaryTap func(*fyne.PointEvent)
}

// NewTappableStack creates a new tappable stack of objects.
func NewTappableStack(onSecondaryTap func(*fyne.PointEvent), objects ...fyne.CanvasObject) *TappableStack {
	t := &TappableStack{
		content:        container.NewStack(objects...),
		onSecondaryTap: onSecondaryTap,
	}
	t.ExtendBaseWidget(t)
	return t
}

// CreateRenderer implements fyne.Widget.
func (t *TappableStack) CreateRenderer() fyne.WidgetRenderer {
	return widget.NewSimpleRenderer(t.content)
}

// Tapped implements fyne.Tappable. Primary taps do nothing.
func (t *TappableStack) Tapped(*fyne.PointEvent) {}

// TappedSecondary implements fyne.SecondaryTappable (right-click).
func (t *TappableStack) TappedSecondary(pe *fyne.PointEvent) {
	if t.onSecondaryTap != nil {
		t.onSecondaryTap(pe)
	}
}

// MouseIn implements desktop.Hoverable.
func (t *TappableStack) MouseIn(*desktop.MouseEvent) {}

// MouseMoved implements desktop.Hoverable.
func (t *TappableStack) MouseMoved(*desktop.MouseEvent) {}

// MouseOut implements desktop.Hoverable.
func (t *TappableStack) MouseOut() {}

// Ensure TappableStack implements the required interfaces
var _ fyne.Tappable = (*TappableStack)(nil)
var _ fyne.SecondaryTappable = (*TappableStack)(nil)
var _ desktop.Hoverable = (*TappableStack)(nil)
