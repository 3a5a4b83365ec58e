// Package app provides application-level orchestration and dependency injection.
// This package wires together all components and manages the application lifecycle.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"fyne.io/fyne/v2"
	fyneapp "fyne.io/fyne/v2/app"

	"github.com/tejashwikalptaru/tunedeck/internal/adapter/audio/mock"
	"github.com/tejashwikalptaru/tunedeck/internal/adapter/audio/native"
	"github.com/tejashwikalptaru/tunedeck/internal/adapter/catalog/fsindex"
	"github.com/tejashwikalptaru/tunedeck/internal/adapter/eventbus"
	"github.com/tejashwikalptaru/tunedeck/internal/adapter/notify"
	"github.com/tejashwikalptaru/tunedeck/internal/adapter/repository/memory"
	fyneui "github.com/tejashwikalptaru/tunedeck/internal/adapter/ui/fyne"
	"github.com/tejashwikalptaru/tunedeck/internal/domain"
	"github.com/tejashwikalptaru/tunedeck/internal/logger"
	"github.com/tejashwikalptaru/tunedeck/internal/ports"
	"github.com/tejashwikalptaru/tunedeck/internal/service"
)

// Notifier modes accepted by Config.Notifier.
const (
	NotifierDesktop = "desktop"
	NotifierMPRIS   = "mpris"
	NotifierBoth    = "both"
	NotifierNone    = "none"
)

// Application is the root application structure that holds all dependencies.
//
// The Application struct is responsible for:
// - Creating and wiring all dependencies
// - Managing the application lifecycle (startup, shutdown)
// - Providing a clean entry point for cmd/main.go
type Application struct {
	// Core dependencies
	logger  *slog.Logger
	fyneApp fyne.App
	config  Config

	// Infrastructure
	eventBus *eventbus.SyncEventBus
	backend  ports.AudioBackend
	capture  ports.CaptureProvider
	catalog  *fsindex.Index
	notifier ports.Notifier
	history  ports.HistoryRepository

	// Services
	engine            *service.PlaybackEngine
	controller        *service.SessionController
	libraryService    *service.LibraryService
	preferenceService *service.PreferenceService
	visualizer        *service.SpectrumVisualizer

	// UI
	presenter  *fyneui.Presenter
	mainWindow *fyneui.MainWindow

	shutdownOnce sync.Once
}

// Config holds application configuration.
type Config struct {
	// AppID is the unique application identifier
	AppID string

	// AppName is the display name
	AppName string

	// MusicDirs are indexed in addition to the folders stored in preferences
	MusicDirs []string

	// UseMockAudio replaces the speaker with the silent mock backend
	UseMockAudio bool

	// LogLevel controls logging verbosity
	LogLevel slog.Level

	// LogFormat is "text" or "json"
	LogFormat string

	// AutoStart and Visualizer override the stored preferences when set
	AutoStart  *bool
	Visualizer *bool

	// Notifier selects the now-playing surface: desktop, mpris, both or none
	Notifier string

	// TestFyneApp allows injecting a test Fyne app for testing (nil for production)
	TestFyneApp fyne.App
}

// DefaultConfig returns the default application configuration.
func DefaultConfig() Config {
	loggerCfg := logger.DefaultConfig()

	var dirs []string
	if home, err := os.UserHomeDir(); err == nil {
		dirs = append(dirs, filepath.Join(home, "Music"))
	}

	return Config{
		AppID:     "io.github.tejashwikalptaru.tunedeck",
		AppName:   "tunedeck",
		MusicDirs: dirs,
		LogLevel:  loggerCfg.Level,
		LogFormat: loggerCfg.Format,
		Notifier:  NotifierBoth,
	}
}

// NewApplication creates a new application with all dependencies wired.
// This is the main dependency injection function.
func NewApplication(config Config) (*Application, error) {
	app := &Application{config: config}

	// Step 1: Create Fyne application
	if config.TestFyneApp != nil {
		app.fyneApp = config.TestFyneApp
	} else {
		app.fyneApp = fyneapp.NewWithID(config.AppID)
	}

	// Step 2: Create logger
	app.logger = logger.NewLogger(logger.Config{
		Level:  config.LogLevel,
		Format: config.LogFormat,
	})
	app.logger.Info("initializing application",
		slog.String("app_id", config.AppID),
		slog.String("version", GetVersionInfo().FullString()))

	// Step 3: Create an event bus
	app.eventBus = eventbus.NewSyncEventBus(app.logger)

	// Step 4: Preferences, which the remaining steps read
	app.preferenceService = service.NewPreferenceService(
		app.logger,
		memory.NewPreferencesRepository(app.fyneApp.Preferences()),
	)
	if err := app.applyOverrides(); err != nil {
		app.logger.Warn("failed to save command line overrides", slog.Any("error", err))
	}
	app.history = memory.NewHistoryRepository(app.fyneApp.Preferences())

	// Step 5: Create the audio backend and its capture provider
	if err := app.createAudio(); err != nil {
		return nil, err
	}

	engineCfg := service.DefaultEngineConfig()
	engineCfg.AutoStart = app.preferenceService.AutoStart()
	app.engine = service.NewPlaybackEngine(app.logger, app.backend, app.eventBus, engineCfg)

	// Step 6: Catalog over the configured and remembered folders
	roots := append(append([]string(nil), config.MusicDirs...), app.preferenceService.MusicRoots()...)
	app.catalog = fsindex.NewIndex(app.logger, app.existingDirs(roots)...)
	app.libraryService = service.NewLibraryService(app.logger, app.catalog, app.eventBus)

	// Step 7: Session and visualizer
	app.notifier = app.createNotifier()
	app.controller = service.NewSessionController(app.logger, app.engine, app.eventBus, app.notifier)
	app.bindCommands(app.notifier)
	app.visualizer = service.NewSpectrumVisualizer(
		app.logger,
		app.capture,
		app.eventBus,
		app.preferenceService.VisualizerEnabled(),
	)

	// Step 8: Create UI and wire the presenter
	app.mainWindow = fyneui.NewMainWindow(app.fyneApp, config.AppName, GetVersionInfo().Label())
	app.presenter = fyneui.NewPresenter(
		app.logger,
		app.controller,
		app.libraryService,
		app.visualizer,
		app.preferenceService,
		app.eventBus,
		app.mainWindow,
	)
	app.mainWindow.SetPresenter(app.presenter)

	app.notifier.OnTap(app.onNotificationTapped)

	return app, nil
}

// applyOverrides stores flag values that override the remembered preferences.
func (a *Application) applyOverrides() error {
	var errs []error
	if a.config.AutoStart != nil {
		errs = append(errs, a.preferenceService.SetAutoStart(*a.config.AutoStart))
	}
	if a.config.Visualizer != nil {
		errs = append(errs, a.preferenceService.SetVisualizerEnabled(*a.config.Visualizer))
	}
	return errors.Join(errs...)
}

// existingDirs drops music folders that are gone, so one stale folder does
// not hide the others.
func (a *Application) existingDirs(dirs []string) []string {
	kept := make([]string, 0, len(dirs))
	for _, dir := range dirs {
		if info, err := os.Stat(dir); err != nil || !info.IsDir() {
			a.logger.Warn("music folder skipped", slog.String("path", dir), slog.Any("error", err))
			continue
		}
		kept = append(kept, dir)
	}
	return kept
}

// createAudio picks the speaker or the mock backend.
func (a *Application) createAudio() error {
	if a.config.UseMockAudio {
		a.backend = mock.NewBackend(a.logger)
		a.capture = mock.NewCaptureProvider()
		a.logger.Info("using mock audio backend")
		return nil
	}

	capture := native.NewCaptureProvider(a.logger)
	backend, err := native.NewBackend(a.logger, capture)
	if err != nil {
		return fmt.Errorf("failed to initialize audio backend (try --mock-audio): %w", err)
	}
	a.backend = backend
	a.capture = capture
	return nil
}

// createNotifier builds the now-playing surface selected by Config.Notifier.
func (a *Application) createNotifier() ports.Notifier {
	var notifiers []ports.Notifier

	switch a.config.Notifier {
	case NotifierNone:
		return notify.Nop{}
	case NotifierDesktop:
		notifiers = append(notifiers, notify.NewDesktop(a.logger, a.config.AppName, nil))
	case NotifierMPRIS:
		notifiers = append(notifiers, notify.NewMPRIS(a.logger, a.config.AppName))
	default:
		notifiers = append(notifiers,
			notify.NewDesktop(a.logger, a.config.AppName, nil),
			notify.NewMPRIS(a.logger, a.config.AppName))
	}

	if len(notifiers) == 1 {
		return notifiers[0]
	}
	return notify.NewFanout(notifiers...)
}

// bindCommands routes media-key commands to the session controller.
func (a *Application) bindCommands(n ports.Notifier) {
	switch n := n.(type) {
	case *notify.MPRIS:
		n.SetCommands(a.controller)
	case *notify.Fanout:
		n.Each(a.bindCommands)
	}
}

// onNotificationTapped brings the player back to the front at the current track.
func (a *Application) onNotificationTapped(token domain.ResumeToken) {
	a.mainWindow.Raise()
	if err := a.presenter.OnNotificationTapped(token); err != nil {
		a.logger.Debug("notification tap ignored", slog.Any("error", err))
	}
}

// restoreLastTrack puts the cursor back on the track the previous session
// ended on. Nothing is loaded until the user presses play.
func (a *Application) restoreLastTrack() {
	id, ok, err := a.history.LoadLastTrack()
	if err != nil {
		a.logger.Warn("failed to load last track", slog.Any("error", err))
		return
	}
	if !ok {
		return
	}

	index := a.controller.Playlist().IndexOf(id)
	if index < 0 {
		a.logger.Debug("last track no longer in the catalog", slog.Int64("track_id", id))
		return
	}
	if err := a.controller.Select(index); err != nil {
		a.logger.Debug("failed to restore last track", slog.Any("error", err))
	}
}

// saveLastTrack remembers the track under the cursor for the next session.
func (a *Application) saveLastTrack() {
	track, ok := a.controller.CurrentTrack()
	if !ok {
		return
	}
	if err := a.history.SaveLastTrack(track.ID); err != nil {
		a.logger.Warn("failed to save last track", slog.Any("error", err))
	}
}

// Run loads the catalog, starts watching for changes and shows the window.
// It blocks until the window is closed.
func (a *Application) Run() error {
	if err := a.presenter.LoadLibrary(context.Background()); err != nil {
		a.logger.Warn("initial catalog load failed", slog.Any("error", err))
	}
	a.restoreLastTrack()
	a.libraryService.StartWatching()

	a.logger.Info("tunedeck started")
	a.presenter.SetVisible(true)

	// Show and run UI (blocks until the window is closed)
	a.mainWindow.ShowAndRun()
	return nil
}

// Shutdown gracefully shuts down the application.
// It's safe to call multiple times (idempotent).
func (a *Application) Shutdown() error {
	var errs []error

	a.shutdownOnce.Do(func() {
		a.logger.Info("shutting down application")

		// UI first, so nothing polls the services below
		a.presenter.Shutdown()
		a.saveLastTrack()

		// Services in reverse order of creation
		errs = append(errs,
			a.visualizer.Shutdown(),
			a.controller.Shutdown(),
			a.libraryService.Shutdown(),
			a.engine.Shutdown(),
			a.preferenceService.Shutdown(),
		)

		if closer, ok := a.notifier.(interface{ Close() error }); ok {
			errs = append(errs, closer.Close())
		}
		errs = append(errs, a.eventBus.Close())

		a.logger.Info("application shutdown complete")
	})

	return errors.Join(errs...)
}

// Controller returns the playback session controller.
func (a *Application) Controller() *service.SessionController {
	return a.controller
}

// Presenter returns the UI presenter.
func (a *Application) Presenter() *fyneui.Presenter {
	return a.presenter
}

// Preferences returns the preference service.
func (a *Application) Preferences() *service.PreferenceService {
	return a.preferenceService
}

// Catalog returns the media index.
func (a *Application) Catalog() *fsindex.Index {
	return a.catalog
}

// Backend returns the audio backend in use.
func (a *Application) Backend() ports.AudioBackend {
	return a.backend
}

// Notifier returns the now-playing notifier in use.
func (a *Application) Notifier() ports.Notifier {
	return a.notifier
}
