package logger

import (
	"io"
	"log/slog"
	"os"
)

var Log *slog.Logger

// Init initializes the global logger. format is "text" (default) or "json" —
// an edge proxy's logs are shipped to a collector more often than read on a
// terminal, so JSON is offered alongside the teacher's original text default.
func Init(level string, format string, logFile string) error {
	var logLevel slog.Level
	switch level {
	case "debug":
		logLevel = slog.LevelDebug
	case "info":
		logLevel = slog.LevelInfo
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}

	var writers []io.Writer
	writers = append(writers, os.Stdout)

	if logFile != "" {
		f, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0666)
		if err != nil {
			return err
		}
		writers = append(writers, f)
	}

	multiWriter := io.MultiWriter(writers...)

	opts := &slog.HandlerOptions{
		Level: logLevel,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if a.Key == slog.TimeKey {
				return slog.String("time", a.Value.Time().Format("15:04:05"))
			}
			return a
		},
	}

	var handler slog.Handler
	if format == "json" {
		handler = slog.NewJSONHandler(multiWriter, opts)
	} else {
		handler = slog.NewTextHandler(multiWriter, opts)
	}

	Log = slog.New(handler)
	slog.SetDefault(Log)

	return nil
}

// Debug logs at debug level.
func Debug(msg string, args ...any) {
	Log.Debug(msg, args...)
}

// Info logs at info level.
func Info(msg string, args ...any) {
	Log.Info(msg, args...)
}

// Warn logs at warn level.
func Warn(msg string, args ...any) {
	Log.Warn(msg, args...)
}

// Error logs at error level.
func Error(msg string, args ...any) {
	Log.Error(msg, args...)
}
