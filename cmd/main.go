// Package main is the production entry point for the tunedeck music player.
//
// Build:
//
//	go build -o build/tunedeck ./cmd
//
// Run:
//
//	./build/tunedeck --music-dir ~/Music
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/tejashwikalptaru/tunedeck/internal/app"
	"github.com/tejashwikalptaru/tunedeck/internal/logger"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	config := app.DefaultConfig()

	var (
		logLevel     string
		noAutoStart  bool
		noVisualizer bool
	)

	cmd := &cobra.Command{
		Use:          "tunedeck",
		Short:        "Play the music on this computer",
		Version:      app.GetVersionInfo().Label(),
		SilenceUsage: true,
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			level, err := logger.ParseLevel(logLevel)
			if err != nil {
				return err
			}
			config.LogLevel = level

			switch config.Notifier {
			case app.NotifierDesktop, app.NotifierMPRIS, app.NotifierBoth, app.NotifierNone:
			default:
				return fmt.Errorf("unknown notifier %q (want desktop, mpris, both or none)", config.Notifier)
			}
			switch config.LogFormat {
			case "text", "json":
			default:
				return fmt.Errorf("unknown log format %q (want text or json)", config.LogFormat)
			}

			// Only flags given on the command line override stored preferences
			if cmd.Flags().Changed("no-autostart") {
				autoStart := !noAutoStart
				config.AutoStart = &autoStart
			}
			if cmd.Flags().Changed("no-visualizer") {
				visualizer := !noVisualizer
				config.Visualizer = &visualizer
			}
			return nil
		},
		RunE: func(_ *cobra.Command, _ []string) error {
			return run(config)
		},
	}

	flags := cmd.Flags()
	flags.StringArrayVar(&config.MusicDirs, "music-dir", config.MusicDirs, "folder to index for music (repeatable)")
	flags.BoolVar(&config.UseMockAudio, "mock-audio", false, "use a silent audio backend")
	flags.StringVar(&logLevel, "log-level", config.LogLevel.String(), "log level: debug, info, warn or error")
	flags.StringVar(&config.LogFormat, "log-format", config.LogFormat, "log format: text or json")
	flags.BoolVar(&noAutoStart, "no-autostart", false, "load tracks paused instead of playing them")
	flags.StringVar(&config.Notifier, "notifier", config.Notifier, "now-playing surface: desktop, mpris, both or none")
	flags.BoolVar(&noVisualizer, "no-visualizer", false, "do not show the spectrum visualizer")

	cmd.AddCommand(versionCmd())
	return cmd
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintln(cmd.OutOrStdout(), app.GetVersionInfo().FullString())
		},
	}
}

func run(config app.Config) error {
	application, err := app.NewApplication(config)
	if err != nil {
		return err
	}

	// Ensure a graceful shutdown
	defer func() {
		if err := application.Shutdown(); err != nil {
			fmt.Fprintf(os.Stderr, "Shutdown error: %v\n", err)
		}
	}()

	// Blocks until the window is closed
	return application.Run()
}
