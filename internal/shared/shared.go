// package shared defines shared helpers
package shared

import (
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"gopkg.in/natefinch/lumberjack.v2"
)

// NewLogger creates a new [log.Logger] instance with the specified [io.Writer], with timestamps and caller reporting enabled.
//
// The writer defaults to [os.Stderr]
func NewLogger(w io.Writer) *log.Logger {
	if w == nil {
		w = os.Stderr
	}
	opts := log.Options{ReportTimestamp: true, ReportCaller: true}
	return log.NewWithOptions(w, opts)
}

// NewFileLogger creates a [log.Logger] that writes logfmt lines to a rotating file.
//
// Used by long-running commands (daemon, serve, tui) where stderr is unavailable or noisy.
func NewFileLogger(conf LogConfig) (*log.Logger, io.Closer, error) {
	if err := os.MkdirAll(filepath.Dir(conf.File), 0o755); err != nil {
		return nil, nil, err
	}

	w := &lumberjack.Logger{
		Filename:   conf.File,
		MaxSize:    conf.MaxSizeMB,
		MaxBackups: conf.MaxBackups,
		MaxAge:     conf.MaxAgeDays,
		Compress:   true,
	}

	logger := log.NewWithOptions(w, log.Options{
		ReportTimestamp: true,
		ReportCaller:    true,
		Formatter:       log.LogfmtFormatter,
	})
	return logger, w, nil
}

// WithLogger creates a child [log.Logger] with the specified key-value pairs added to all log entries.
func WithLogger(l *log.Logger, kv ...any) *log.Logger {
	return l.With(kv...)
}

// SetLogLevel sets the [log.Level] for the given [log.Logger].
func SetLogLevel(l *log.Logger, ll log.Level) {
	l.SetLevel(ll)
}

// ApplyLogLevel parses a level name from config and applies it, keeping the current level on bad input.
func ApplyLogLevel(l *log.Logger, level string) error {
	if level == "" {
		return nil
	}
	ll, err := log.ParseLevel(level)
	if err != nil {
		return err
	}
	SetLogLevel(l, ll)
	return nil
}

// GenerateID generates a new v4 [uuid.UUID] as a string
func GenerateID() string {
	return uuid.New().String()
}

// PrefixedID generates an entity identifier such as "album_<uuid>".
func PrefixedID(prefix string) string {
	return prefix + "_" + GenerateID()
}

// Clock returns the current time; swapped out in tests.
type Clock func() time.Time

// SystemClock is the wall-clock [Clock].
func SystemClock() time.Time { return time.Now() }

// Millis converts t to milliseconds since the Unix epoch, the timestamp unit used on the wire.
func Millis(t time.Time) int64 {
	return t.UnixMilli()
}

// FromMillis converts milliseconds since the Unix epoch back to a [time.Time].
func FromMillis(ms int64) time.Time {
	return time.UnixMilli(ms)
}

// FormatMillis renders a millisecond timestamp for display, or "never" for zero.
func FormatMillis(ms int64) string {
	if ms == 0 {
		return "never"
	}
	return FromMillis(ms).Local().Format("2006-01-02 15:04:05")
}
