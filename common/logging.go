package common

import (
	"io"
	"os"
	"sync"
	"time"

	"github.com/charmbracelet/log"
)

var (
	loggerOnce sync.Once
	logger     *log.Logger
)

func getLogger() *log.Logger {
	loggerOnce.Do(func() {
		logger = log.NewWithOptions(os.Stderr, log.Options{
			ReportTimestamp: true,
			TimeFormat:      time.RFC3339,
			Prefix:          "oxy-anim",
			Level:           log.InfoLevel,
		})
	})
	return logger
}

// SetLogLevel changes the minimum level of the shared logger.
// Unknown level names leave the current level untouched and return an error.
//
// Parameters:
//   - level: one of "debug", "info", "warn", "error", "fatal"
//
// Returns:
//   - error: error if the level name cannot be parsed
func SetLogLevel(level string) error {
	lvl, err := log.ParseLevel(level)
	if err != nil {
		return err
	}
	getLogger().SetLevel(lvl)
	return nil
}

// SetLogOutput redirects the shared logger, mostly so tests can capture diagnostics.
//
// Parameters:
//   - w: the new destination
func SetLogOutput(w io.Writer) {
	getLogger().SetOutput(w)
}

// LogDebug logs msg with alternating key/value pairs at debug level.
func LogDebug(msg string, keyvals ...any) {
	getLogger().Debug(msg, keyvals...)
}

// LogInfo logs msg with alternating key/value pairs at info level.
func LogInfo(msg string, keyvals ...any) {
	getLogger().Info(msg, keyvals...)
}

// LogWarn logs msg with alternating key/value pairs at warn level.
func LogWarn(msg string, keyvals ...any) {
	getLogger().Warn(msg, keyvals...)
}

// LogError logs msg with alternating key/value pairs at error level.
func LogError(msg string, keyvals ...any) {
	getLogger().Error(msg, keyvals...)
}
