package logging

import (
	"log/slog"
	"os"

	"gorm.io/gorm"
)

// Setup initializes the global slog logger with JSON output to stdout.
// Development builds also log at debug level.
func Setup(env string) {
	slog.SetDefault(slog.New(stdoutHandler(env)))
}

// AttachDatabase keeps logging to stdout and also stores ERROR+ records in
// system_logs. Stop the returned handler on shutdown to flush it.
func AttachDatabase(env string, db *gorm.DB) *PGHandler {
	pg := NewPGHandler(db, DefaultFlushInterval)
	slog.SetDefault(slog.New(NewMultiHandler(stdoutHandler(env), pg)))
	return pg
}

func stdoutHandler(env string) slog.Handler {
	level := slog.LevelInfo
	if env == "development" {
		level = slog.LevelDebug
	}
	return slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level})
}
