// Package output provides the CLI's logging and user-facing output.
package output

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"

	"gopkg.in/natefinch/lumberjack.v2"
)

// consoleHandler writes bare messages without timestamps or level prefixes.
// Debug messages are only emitted when debug mode is on.
type consoleHandler struct {
	writer    io.Writer
	debugMode bool
}

func (h *consoleHandler) Enabled(_ context.Context, level slog.Level) bool {
	if level == slog.LevelDebug {
		return h.debugMode
	}
	return true
}

func (h *consoleHandler) Handle(_ context.Context, record slog.Record) error {
	_, err := fmt.Fprintln(h.writer, record.Message)
	return err
}

func (h *consoleHandler) WithAttrs(_ []slog.Attr) slog.Handler {
	return h
}

func (h *consoleHandler) WithGroup(_ string) slog.Handler {
	return h
}

// newLogFileWriter builds the rotating file writer. Rotation settings can be
// overridden with VBRANCH_LOG_MAX_SIZE, VBRANCH_LOG_MAX_BACKUPS and
// VBRANCH_LOG_MAX_AGE.
func newLogFileWriter(logFilePath string) *lumberjack.Logger {
	writer := &lumberjack.Logger{
		Filename:   logFilePath,
		MaxSize:    1,  // megabytes
		MaxBackups: 2,
		MaxAge:     30, // days
	}

	if v := os.Getenv("VBRANCH_LOG_MAX_SIZE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			writer.MaxSize = n
		}
	}
	if v := os.Getenv("VBRANCH_LOG_MAX_BACKUPS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			writer.MaxBackups = n
		}
	}
	if v := os.Getenv("VBRANCH_LOG_MAX_AGE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			writer.MaxAge = n
		}
	}

	return writer
}

// Splog writes user-facing messages to the console and, when configured with
// a log file, a structured copy to disk.
type Splog struct {
	logger     *slog.Logger
	fileLogger *slog.Logger
	logWriter  io.WriteCloser
}

// NewSplog creates a console-only logger. Debug messages are enabled when the
// DEBUG environment variable is set.
func NewSplog() *Splog {
	splog, _ := NewSplogWithFile("")
	return splog
}

// NewSplogWithFile creates a logger that additionally appends structured
// records to the given file. An empty path disables file logging.
func NewSplogWithFile(logFilePath string) (*Splog, error) {
	debugMode := os.Getenv("DEBUG") != ""

	splog := &Splog{
		logger: slog.New(&consoleHandler{writer: os.Stdout, debugMode: debugMode}),
	}

	if logFilePath != "" {
		if err := os.MkdirAll(filepath.Dir(logFilePath), 0755); err != nil {
			return nil, fmt.Errorf("failed to create log directory: %w", err)
		}
		writer := newLogFileWriter(logFilePath)
		splog.logWriter = writer
		splog.fileLogger = slog.New(slog.NewTextHandler(writer, &slog.HandlerOptions{
			Level: slog.LevelDebug,
		}))
	}

	return splog, nil
}

// Close releases the log file writer, if any
func (s *Splog) Close() error {
	if s.logWriter == nil {
		return nil
	}
	return s.logWriter.Close()
}

// Info prints a message to the console
func (s *Splog) Info(msg string, args ...any) {
	s.logger.Info(fmt.Sprintf(msg, args...))
	if s.fileLogger != nil {
		s.fileLogger.Info(fmt.Sprintf(msg, args...))
	}
}

// Warn prints a warning to the console
func (s *Splog) Warn(msg string, args ...any) {
	s.logger.Warn(fmt.Sprintf(msg, args...))
	if s.fileLogger != nil {
		s.fileLogger.Warn(fmt.Sprintf(msg, args...))
	}
}

// Error prints an error to the console
func (s *Splog) Error(msg string, args ...any) {
	s.logger.Error(fmt.Sprintf(msg, args...))
	if s.fileLogger != nil {
		s.fileLogger.Error(fmt.Sprintf(msg, args...))
	}
}

// Debug prints a message only when debug mode is on; the file log always
// records it
func (s *Splog) Debug(msg string, args ...any) {
	s.logger.Debug(fmt.Sprintf(msg, args...))
	if s.fileLogger != nil {
		s.fileLogger.Debug(fmt.Sprintf(msg, args...))
	}
}
