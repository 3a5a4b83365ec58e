package widgets

import (
	fyneapp "fyne.io/fyne/v2"
	"fyne.io/fyne/v2/widget"
)

// Ensure DoubleTapLabel implements DoubleTappable interface
var _ fyneapp.DoubleTappable = (*DoubleTapLabel)(nil)

// DoubleTapLabel is a track list row that plays its track when double-tapped.
// widget.List recycles rows, so the row index is set on every update.
type DoubleTapLabel struct {
	widget.Label
	doubleTapped func(index int)
	index        int
}

// NewDoubleTapLabel creates a new DoubleTapLabel with the given callback function.
// The callback is invoked when the label is double-tapped, passing the item index.
func NewDoubleTapLabel(doubleTapped func(index int)) *DoubleTapLabel {
	label := &DoubleTapLabel{
		doubleTapped: doubleTapped,
	}
	label.Truncation = fyneapp.TextTruncateEllipsis
	label.ExtendBaseWidget(label)
	return label
}

// DoubleTapped implements the fyne.DoubleTappable interface.
func (l *DoubleTapLabel) DoubleTapped(_ *fyneapp.PointEvent) {
	if l.doubleTapped != nil {
		l.doubleTapped(l.index)
	}
}

// SetIndex sets the list position of the row.
func (l *DoubleTapLabel) SetIndex(index int) {
	l.index = index
}

// Index returns the list position of the row.
func (l *DoubleTapLabel) Index() int {
	return l.index
}
