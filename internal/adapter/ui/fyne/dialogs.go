package fyne

import (
	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/storage"
)

// FolderDialog asks the user for a music folder.
type FolderDialog struct {
	window   fyne.Window
	callback func(string)
	start    string
}

// NewFolderDialog creates a folder dialog that calls callback with the chosen path.
func NewFolderDialog(window fyne.Window, callback func(string)) *FolderDialog {
	return &FolderDialog{
		window:   window,
		callback: callback,
	}
}

// StartAt opens the dialog in dir. Unreadable folders are ignored.
func (d *FolderDialog) StartAt(dir string) *FolderDialog {
	d.start = dir
	return d
}

// Show displays the folder dialog.
func (d *FolderDialog) Show() {
	fd := dialog.NewFolderOpen(func(uri fyne.ListableURI, err error) {
		if err != nil {
			dialog.ShowError(err, d.window)
			return
		}
		if uri == nil {
			return // User cancelled
		}
		if d.callback != nil {
			d.callback(uri.Path())
		}
	}, d.window)

	if d.start != "" {
		if lister, err := storage.ListerForURI(storage.NewFileURI(d.start)); err == nil {
			fd.SetLocation(lister)
		}
	}
	fd.Show()
}
