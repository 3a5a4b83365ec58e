package fyne

import (
	"bytes"
	"context"
	"errors"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"sync"
	"time"

	fyneapp "fyne.io/fyne/v2"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/driver/desktop"
	"fyne.io/fyne/v2/theme"
	"fyne.io/fyne/v2/widget"

	"github.com/tejashwikalptaru/tunedeck/internal/adapter/ui/fyne/widgets"
	"github.com/tejashwikalptaru/tunedeck/internal/domain"
	"github.com/tejashwikalptaru/tunedeck/internal/ports"
	"github.com/tejashwikalptaru/tunedeck/res"
)

// Window geometry.
const (
	WindowWidth  = 720
	WindowHeight = 520
)

// messageTimeout is how long ShowInfo messages stay in the status line.
const messageTimeout = 3 * time.Second

// MainWindow is the player screen implementing ports.PlayerView.
//
// The MainWindow follows the MVP pattern:
// - It's a "dumb view" that just displays data
// - All business logic is in the Presenter
// - User interactions are forwarded to the Presenter
//
// View methods may be called from any goroutine; they marshal onto the Fyne
// thread with fyne.Do.
type MainWindow struct {
	app     fyneapp.App
	window  fyneapp.Window
	appName string
	version string

	// UI components
	trackList   *widget.List
	prevButton  *widget.Button
	playButton  *widget.Button
	nextButton  *widget.Button
	titleLabel  *widget.Label
	artistLabel *widget.Label
	statusLabel *widget.Label
	currentTime *widget.Label
	totalTime   *widget.Label
	seekSlider  *widget.Slider
	albumArt    *canvas.Image
	spectrum    *widgets.Spectrum

	// State shared with the presenter's goroutines
	mu             sync.RWMutex
	tracks         []domain.Track
	displayedTitle string
	messageSeq     int

	// Touched on the Fyne thread only
	seekingProgrammatically bool
	userSeeking             bool

	// Lifecycle management
	closeOnce sync.Once

	// Presenter (set after construction)
	presenter *Presenter
}

// NewMainWindow creates the player window.
func NewMainWindow(app fyneapp.App, appName, version string) *MainWindow {
	w := &MainWindow{
		app:     app,
		appName: appName,
		version: version,
	}

	w.window = app.NewWindow(appName)
	w.buildUI()

	w.window.Resize(fyneapp.NewSize(WindowWidth, WindowHeight))
	return w
}

// SetPresenter connects the presenter to this view.
// This must be called before showing the window.
func (w *MainWindow) SetPresenter(presenter *Presenter) {
	w.presenter = presenter
	w.wirePresenterHandlers()
	w.addShortcuts()
}

// buildUI constructs the UI components.
func (w *MainWindow) buildUI() {
	// Track list
	w.trackList = widget.NewList(
		func() int {
			w.mu.RLock()
			defer w.mu.RUnlock()
			return len(w.tracks)
		},
		func() fyneapp.CanvasObject {
			return widgets.NewDoubleTapLabel(w.onRowDoubleTapped)
		},
		w.updateRow,
	)

	// Album art and spectrum share one area
	w.albumArt = canvas.NewImageFromResource(theme.MediaMusicIcon())
	w.albumArt.FillMode = canvas.ImageFillContain
	w.spectrum = widgets.NewSpectrum()
	artArea := widgets.NewTappableStack(w.showVisualizerMenu, w.albumArt, w.spectrum)

	// Track info
	w.titleLabel = widget.NewLabel("")
	w.titleLabel.Truncation = fyneapp.TextTruncateEllipsis
	w.titleLabel.TextStyle = fyneapp.TextStyle{Bold: true}
	w.artistLabel = widget.NewLabel("")
	w.artistLabel.Truncation = fyneapp.TextTruncateEllipsis
	w.statusLabel = widget.NewLabel("")
	w.statusLabel.Hide()

	// Control buttons
	w.prevButton = widget.NewButtonWithIcon("", theme.MediaSkipPreviousIcon(), nil)
	w.playButton = widget.NewButtonWithIcon("", theme.MediaPlayIcon(), nil)
	w.nextButton = widget.NewButtonWithIcon("", theme.MediaSkipNextIcon(), nil)
	buttons := container.NewCenter(container.NewHBox(w.prevButton, w.playButton, w.nextButton))

	// Seek bar
	w.seekSlider = widget.NewSlider(0, 0)
	w.currentTime = widget.NewLabel(formatTime(0))
	w.totalTime = widget.NewLabel(formatTime(0))
	seekHolder := container.NewBorder(nil, nil, w.currentTime, w.totalTime, w.seekSlider)

	// Main layout
	info := container.NewVBox(w.titleLabel, w.artistLabel)
	controls := container.NewVBox(seekHolder, buttons, w.statusLabel)
	player := container.NewBorder(info, controls, nil, nil, artArea)
	split := container.NewHSplit(w.trackList, player)
	split.SetOffset(0.4)
	w.window.SetContent(container.NewPadded(split))

	// Menu
	w.window.SetMainMenu(fyneapp.NewMainMenu(w.createMenu()...))
}

func (w *MainWindow) updateRow(i widget.ListItemID, obj fyneapp.CanvasObject) {
	label, ok := obj.(*widgets.DoubleTapLabel)
	if !ok {
		return
	}

	w.mu.RLock()
	defer w.mu.RUnlock()
	if i < 0 || i >= len(w.tracks) {
		return
	}
	label.SetIndex(i)
	label.SetText(w.tracks[i].Title + " - " + w.tracks[i].Artist)
}

func (w *MainWindow) onRowDoubleTapped(index int) {
	if w.presenter == nil {
		return
	}
	go w.presenter.OnTrackSelected(index)
}

// wirePresenterHandlers connects UI events to presenter handlers.
// Handlers that reach the engine run off the Fyne thread.
func (w *MainWindow) wirePresenterHandlers() {
	if w.presenter == nil {
		return
	}

	w.playButton.OnTapped = func() {
		go w.presenter.OnPlayPauseClicked()
	}
	w.nextButton.OnTapped = func() {
		go w.presenter.OnNextClicked()
	}
	w.prevButton.OnTapped = func() {
		go w.presenter.OnPrevClicked()
	}

	// Only user drags seek; programmatic moves are ignored
	w.seekSlider.OnChanged = func(float64) {
		if !w.seekingProgrammatically {
			w.userSeeking = true
		}
	}
	w.seekSlider.OnChangeEnded = func(value float64) {
		w.userSeeking = false
		if w.seekingProgrammatically {
			return
		}
		w.presenter.OnSeek(int64(value))
	}

	// Poll only while the window is in the foreground
	lifecycle := w.app.Lifecycle()
	lifecycle.SetOnEnteredForeground(func() { w.presenter.SetVisible(true) })
	lifecycle.SetOnExitedForeground(func() { w.presenter.SetVisible(false) })
}

// createMenu creates the application menu.
func (w *MainWindow) createMenu() []*fyneapp.Menu {
	openFolder := fyneapp.NewMenuItem("Open Folder...", w.handleOpenFolder)
	reload := fyneapp.NewMenuItem("Reload Library", func() {
		if w.presenter != nil {
			go func() { _ = w.presenter.LoadLibrary(context.Background()) }()
		}
	})
	about := fyneapp.NewMenuItem("About", w.showAbout)

	return []*fyneapp.Menu{
		fyneapp.NewMenu("File", openFolder, reload),
		fyneapp.NewMenu("Help", about),
	}
}

// handleOpenFolder adds a music folder chosen in a folder dialog.
func (w *MainWindow) handleOpenFolder() {
	if w.presenter == nil {
		return
	}

	fd := NewFolderDialog(w.window, func(path string) {
		go func() { _ = w.presenter.OnFolderAdded(context.Background(), path) }()
	})
	if roots := w.presenter.MusicRoots(); len(roots) > 0 {
		fd.StartAt(roots[0])
	}
	fd.Show()
}

func (w *MainWindow) showAbout() {
	content := widget.NewRichTextFromMarkdown(res.AboutContent + "\n\nVersion " + w.version)
	content.Wrapping = fyneapp.TextWrapWord
	d := dialog.NewCustom("About "+w.appName, "Close", content, w.window)
	d.Resize(fyneapp.NewSize(360, 260))
	d.Show()
}

// showVisualizerMenu opens the right-click menu of the art area.
func (w *MainWindow) showVisualizerMenu(pe *fyneapp.PointEvent) {
	if w.presenter == nil {
		return
	}

	enabled := w.presenter.VisualizerEnabled()
	toggle := fyneapp.NewMenuItem("Show Visualizer", func() {
		go w.presenter.OnVisualizerToggled(!enabled)
	})
	toggle.Checked = enabled

	widget.ShowPopUpMenuAtPosition(fyneapp.NewMenu("", toggle), w.window.Canvas(), pe.AbsolutePosition)
}

// addShortcuts adds keyboard shortcuts.
func (w *MainWindow) addShortcuts() {
	c := w.window.Canvas()

	c.AddShortcut(&desktop.CustomShortcut{
		KeyName:  fyneapp.KeyRight,
		Modifier: fyneapp.KeyModifierAlt,
	}, func(fyneapp.Shortcut) {
		go w.presenter.OnNextClicked()
	})

	c.AddShortcut(&desktop.CustomShortcut{
		KeyName:  fyneapp.KeyLeft,
		Modifier: fyneapp.KeyModifierAlt,
	}, func(fyneapp.Shortcut) {
		go w.presenter.OnPrevClicked()
	})

	c.SetOnTypedKey(func(ev *fyneapp.KeyEvent) {
		if ev.Name == fyneapp.KeySpace {
			go w.presenter.OnPlayPauseClicked()
		}
	})
}

// ShowAndRun shows the window and runs the application.
func (w *MainWindow) ShowAndRun() {
	w.window.ShowAndRun()
}

// Raise brings the window to the front. It may be called from any goroutine.
func (w *MainWindow) Raise() {
	fyneapp.Do(func() {
		w.window.Show()
		w.window.RequestFocus()
	})
}

// Close closes the window.
// It's safe to call multiple times (idempotent).
func (w *MainWindow) Close() {
	w.closeOnce.Do(func() {
		fyneapp.Do(w.window.Close)
	})
}

// GetWindow returns the underlying Fyne window.
func (w *MainWindow) GetWindow() fyneapp.Window {
	return w.window
}

// PlayerView interface implementation

// ShowTracks replaces the track list.
func (w *MainWindow) ShowTracks(tracks []domain.Track) {
	w.mu.Lock()
	w.tracks = append([]domain.Track(nil), tracks...)
	w.mu.Unlock()

	fyneapp.Do(w.trackList.Refresh)
}

// ShowInfo shows message in the status line for a few seconds.
func (w *MainWindow) ShowInfo(message string) {
	w.mu.Lock()
	w.messageSeq++
	seq := w.messageSeq
	w.mu.Unlock()

	fyneapp.Do(func() {
		w.statusLabel.SetText(message)
		w.statusLabel.Show()
	})

	time.AfterFunc(messageTimeout, func() {
		w.mu.RLock()
		current := w.messageSeq == seq
		w.mu.RUnlock()
		if !current {
			return
		}
		fyneapp.Do(w.statusLabel.Hide)
	})
}

// ShowBlockingError shows an error dialog.
func (w *MainWindow) ShowBlockingError(message string) {
	fyneapp.Do(func() {
		dialog.ShowError(errors.New(message), w.window)
	})
}

// SetTrackInfo updates the displayed title and artist.
func (w *MainWindow) SetTrackInfo(title, artist string) {
	w.mu.Lock()
	w.displayedTitle = title
	w.mu.Unlock()

	fyneapp.Do(func() {
		w.titleLabel.SetText(title)
		w.artistLabel.SetText(artist)
	})
}

// DisplayedTitle returns the title last passed to SetTrackInfo.
func (w *MainWindow) DisplayedTitle() string {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.displayedTitle
}

// SetPlayState updates the play/pause button.
func (w *MainWindow) SetPlayState(playing bool) {
	fyneapp.Do(func() {
		if playing {
			w.playButton.SetIcon(theme.MediaPauseIcon())
		} else {
			w.playButton.SetIcon(theme.MediaPlayIcon())
		}
	})
}

// SetSeekMax sets the seek bar range in milliseconds.
func (w *MainWindow) SetSeekMax(ms int64) {
	fyneapp.Do(func() {
		w.seekSlider.Max = float64(max(ms, 0))
		w.seekSlider.Refresh()
	})
}

// SetSeekPosition moves the seek bar unless the user is dragging it.
func (w *MainWindow) SetSeekPosition(ms int64) {
	fyneapp.Do(func() {
		if w.userSeeking {
			return
		}
		w.seekingProgrammatically = true
		w.seekSlider.SetValue(float64(ms))
		w.seekingProgrammatically = false
	})
}

// SetTimes updates the current and total time labels.
func (w *MainWindow) SetTimes(current, total string) {
	fyneapp.Do(func() {
		w.currentTime.SetText(current)
		w.totalTime.SetText(total)
	})
}

// SetAlbumArt shows raw image bytes.
func (w *MainWindow) SetAlbumArt(imageData []byte) {
	img, _, err := image.Decode(bytes.NewReader(imageData))
	if err != nil {
		// If decode fails, use default
		w.ClearAlbumArt()
		return
	}

	fyneapp.Do(func() {
		w.albumArt.Resource = nil
		w.albumArt.Image = img
		w.albumArt.Refresh()
	})
}

// ClearAlbumArt shows the placeholder artwork.
func (w *MainWindow) ClearAlbumArt() {
	fyneapp.Do(func() {
		w.albumArt.Image = nil
		w.albumArt.Resource = theme.MediaMusicIcon()
		w.albumArt.Refresh()
	})
}

// SpectrumSize returns the size of the spectrum area.
func (w *MainWindow) SpectrumSize() (float32, float32) {
	size := w.spectrum.Size()
	return size.Width, size.Height
}

// SetSpectrum draws one frame of bars.
func (w *MainWindow) SetSpectrum(bars []domain.Bar) {
	fyneapp.Do(func() {
		w.spectrum.SetBars(bars)
	})
}

// Verify PlayerView implementation
var _ ports.PlayerView = (*MainWindow)(nil)
