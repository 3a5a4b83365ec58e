package logger

import (
	"log/slog"
	"os"
)

// TestLogEnv names the variable that turns on log output in tests.
const TestLogEnv = "TUNEDECK_TEST_LOG"

// NewTestLogger returns a logger for tests. It discards every record unless
// TUNEDECK_TEST_LOG holds a level name ("debug", "warn", ...); records at or
// above that level then go to stderr with their source position. An
// unrecognized name means debug.
func NewTestLogger() *slog.Logger {
	name := os.Getenv(TestLogEnv)
	if name == "" {
		return slog.New(slog.DiscardHandler)
	}

	level, err := ParseLevel(name)
	if err != nil {
		level = slog.LevelDebug
	}
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level:     level,
		AddSource: true,
	})
	return slog.New(handler).With(slog.String("app", "tunedeck-test"))
}
