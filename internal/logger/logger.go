package logger

import (
	"sync"
)

// Log levels used across the application.
const (
	DebugLevel = "debug"
	InfoLevel  = "info"
	WarnLevel  = "warn"
	ErrorLevel = "error"
)

var (
	// globalLogger holds the singleton logger instance.
	globalLogger *Logger
	once         sync.Once
)

// Get returns a singleton logger configured with the provided level.
// If path is non-empty the logger also appends to that file, which is the
// durable log the station keeps across restarts. The first call initializes
// the logger; subsequent calls ignore the arguments and return the already
// initialized instance.
func Get(level, path string) *Logger {
	once.Do(func() {
		globalLogger = newZapLogger(level, path)
	})
	return globalLogger
}
