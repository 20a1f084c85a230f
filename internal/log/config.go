package log

import (
	"io"
	"os"
	"strings"

	"gopkg.in/natefinch/lumberjack.v2"
)

// Format selects the slog handler
type Format string

const (
	FormatJSON Format = "json"
	FormatText Format = "text"
)

func (f Format) String() string {
	return string(f)
}

// ParseFormat parses a format name. "console" is an alias for text and
// anything unrecognised is JSON.
func ParseFormat(s string) Format {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "text", "console":
		return FormatText
	default:
		return FormatJSON
	}
}

// Rotation limits for --log-file
const (
	logFileMaxSizeMB  = 10
	logFileMaxBackups = 3
	logFileMaxAgeDays = 28
)

// Output is the destination of log records. The zero value discards.
type Output struct {
	w      io.Writer
	closer io.Closer
}

// NewOutput wraps w without taking ownership of it
func NewOutput(w io.Writer) Output {
	return Output{w: w}
}

// OutputStderr writes to the process stderr
func OutputStderr() Output {
	return Output{w: os.Stderr}
}

// OutputFile appends to path, rotating and compressing old logs
func OutputFile(path string) Output {
	lj := &lumberjack.Logger{
		Filename:   path,
		MaxSize:    logFileMaxSizeMB,
		MaxBackups: logFileMaxBackups,
		MaxAge:     logFileMaxAgeDays,
		Compress:   true,
	}
	return Output{w: lj, closer: lj}
}

func (o Output) Writer() io.Writer {
	if o.w == nil {
		return io.Discard
	}
	return o.w
}

// Close closes a log file. Writers passed to NewOutput are left open.
func (o Output) Close() error {
	if o.closer == nil {
		return nil
	}
	return o.closer.Close()
}

// Config holds configuration for the logger
type Config struct {
	Level     Level
	Format    Format
	Output    Output
	AddSource bool

	// ServiceName and ServiceVersion are attached to every record as
	// "service" and "version" when set.
	ServiceName    string
	ServiceVersion string
}

// DefaultConfig keeps the log quiet: warnings and errors as text on
// stderr, out of the way of the plan and step output on stdout.
func DefaultConfig() Config {
	return Config{
		Level:          LevelWarn,
		Format:         FormatText,
		Output:         OutputStderr(),
		ServiceName:    "codemuse",
		ServiceVersion: "dev",
	}
}
