// Package log provides structured logging for the Klingnet Rosetta gateway.
package log

import (
	"io"
	"os"

	"github.com/rs/zerolog"
)

// Logger is the global logger instance.
var Logger zerolog.Logger

// Component loggers.
var (
	API          zerolog.Logger
	Construction zerolog.Logger
	Ledger       zerolog.Logger
	Node         zerolog.Logger
	Storage      zerolog.Logger
	Wallet       zerolog.Logger
)

func init() {
	Logger = NewConsoleLogger(os.Stdout, "info")
	initComponentLoggers()
}

// Init configures the global logger. With a file, records go to both the
// console (colored or JSON) and the file (always JSON).
func Init(level string, jsonOutput bool, file string) error {
	var console io.Writer = os.Stdout
	if !jsonOutput {
		console = consoleWriter(os.Stdout)
	}

	if file != "" {
		f, err := os.OpenFile(file, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
		if err != nil {
			return err
		}
		console = zerolog.MultiLevelWriter(console, f)
	}

	Logger = newLogger(console, level)
	initComponentLoggers()
	return nil
}

// SetOutput routes all logging to w as JSON. Tests use it to capture or
// silence output.
func SetOutput(w io.Writer, level string) {
	Logger = newLogger(w, level)
	initComponentLoggers()
}

// NewConsoleLogger creates a colored console logger.
func NewConsoleLogger(w io.Writer, level string) zerolog.Logger {
	return newLogger(consoleWriter(w), level)
}

// NewJSONLogger creates a structured JSON logger.
func NewJSONLogger(w io.Writer, level string) zerolog.Logger {
	return newLogger(w, level)
}

func consoleWriter(w io.Writer) zerolog.ConsoleWriter {
	return zerolog.ConsoleWriter{Out: w, TimeFormat: "15:04:05"}
}

func newLogger(w io.Writer, level string) zerolog.Logger {
	return zerolog.New(w).Level(parseLevel(level)).With().Timestamp().Logger()
}

// parseLevel converts a level name to a zerolog level, defaulting to info.
func parseLevel(level string) zerolog.Level {
	switch level {
	case "trace":
		return zerolog.TraceLevel
	case "debug":
		return zerolog.DebugLevel
	case "warn":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

func initComponentLoggers() {
	API = WithComponent("api")
	Construction = WithComponent("construction")
	Ledger = WithComponent("ledger")
	Node = WithComponent("node")
	Storage = WithComponent("storage")
	Wallet = WithComponent("wallet")
}

// WithComponent returns a logger with a component field.
func WithComponent(name string) zerolog.Logger {
	return Logger.With().Str("component", name).Logger()
}

// WithNetwork returns a logger with a network field.
func WithNetwork(network string) zerolog.Logger {
	return Logger.With().Str("network", network).Logger()
}

// Debug logs a debug message.
func Debug() *zerolog.Event { return Logger.Debug() }

// Info logs an info message.
func Info() *zerolog.Event { return Logger.Info() }

// Warn logs a warning message.
func Warn() *zerolog.Event { return Logger.Warn() }

// Error logs an error message.
func Error() *zerolog.Event { return Logger.Error() }

// Fatal logs a fatal message and exits.
func Fatal() *zerolog.Event { return Logger.Fatal() }
