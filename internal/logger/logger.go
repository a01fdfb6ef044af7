// Package logger provides the process-wide structured logger.
//
// The bridge logs to two sinks: a leveled text stream on stdout (INFO by
// default) and, when a log directory is configured, a DEBUG-level daily
// rolling file. All packages log through the package-level functions.
package logger

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

// Level represents log levels
type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

// Config holds logger configuration.
type Config struct {
	// Level is the minimum level for the console sink (DEBUG, INFO, WARN,
	// ERROR). Defaults to INFO.
	Level string
	// FileDir, when non-empty, enables a DEBUG-level daily rolling file
	// sink writing <FileDir>/<FilePrefix>.log.YYYY-MM-DD.
	FileDir string
	// FilePrefix names the rolling file. Defaults to "rgb-multisig-bridge".
	FilePrefix string
}

var (
	consoleLevel atomic.Int32

	mu       sync.RWMutex
	slogger  *slog.Logger
	console  io.Writer = os.Stdout
	fileSink *rollingWriter
	useColor bool
)

func init() {
	consoleLevel.Store(int32(LevelInfo))
	if f, ok := console.(*os.File); ok {
		useColor = isTerminal(f.Fd())
	}
	reconfigure()
}

func (l Level) String() string {
	switch l {
	case LevelDebug:
		return "DEBUG"
	case LevelInfo:
		return "INFO"
	case LevelWarn:
		return "WARN"
	case LevelError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

func toSlogLevel(l Level) slog.Level {
	switch l {
	case LevelDebug:
		return slog.LevelDebug
	case LevelInfo:
		return slog.LevelInfo
	case LevelWarn:
		return slog.LevelWarn
	case LevelError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// reconfigure rebuilds the slog handler chain. Callers must hold mu or be
// single-threaded (init).
func reconfigure() {
	consoleVar := new(slog.LevelVar)
	consoleVar.Set(toSlogLevel(Level(consoleLevel.Load())))

	handlers := []slog.Handler{
		NewTextHandler(console, &slog.HandlerOptions{Level: consoleVar}, useColor),
	}
	if fileSink != nil {
		fileVar := new(slog.LevelVar)
		fileVar.Set(slog.LevelDebug)
		handlers = append(handlers,
			NewTextHandler(fileSink, &slog.HandlerOptions{Level: fileVar}, false))
	}

	if len(handlers) == 1 {
		slogger = slog.New(handlers[0])
		return
	}
	slogger = slog.New(newFanoutHandler(handlers...))
}

// Init initializes the logger with the given configuration.
func Init(cfg Config) error {
	mu.Lock()
	defer mu.Unlock()

	if cfg.Level != "" {
		lvl, err := parseLevel(cfg.Level)
		if err != nil {
			return err
		}
		consoleLevel.Store(int32(lvl))
	}

	if cfg.FileDir != "" {
		prefix := cfg.FilePrefix
		if prefix == "" {
			prefix = "rgb-multisig-bridge"
		}
		rw, err := newRollingWriter(cfg.FileDir, prefix)
		if err != nil {
			return fmt.Errorf("failed to open log directory %q: %w", cfg.FileDir, err)
		}
		fileSink = rw
	}

	reconfigure()
	return nil
}

// InitWithWriter routes all output to a custom writer. Primarily for tests.
func InitWithWriter(w io.Writer, level string) {
	mu.Lock()
	defer mu.Unlock()

	console = w
	useColor = false
	fileSink = nil
	if lvl, err := parseLevel(level); err == nil {
		consoleLevel.Store(int32(lvl))
	}
	reconfigure()
}

func parseLevel(level string) (Level, error) {
	switch strings.ToUpper(level) {
	case "DEBUG":
		return LevelDebug, nil
	case "INFO":
		return LevelInfo, nil
	case "WARN":
		return LevelWarn, nil
	case "ERROR":
		return LevelError, nil
	default:
		return LevelInfo, fmt.Errorf("invalid log level %q", level)
	}
}

// SetLevel sets the minimum console log level. Invalid levels are ignored.
func SetLevel(level string) {
	lvl, err := parseLevel(level)
	if err != nil {
		return
	}
	consoleLevel.Store(int32(lvl))
	mu.Lock()
	reconfigure()
	mu.Unlock()
}

// Close flushes and closes the rolling file sink, if any.
func Close() error {
	mu.Lock()
	defer mu.Unlock()
	if fileSink == nil {
		return nil
	}
	err := fileSink.Close()
	fileSink = nil
	reconfigure()
	return err
}

func getLogger() *slog.Logger {
	mu.RLock()
	l := slogger
	mu.RUnlock()
	return l
}

// Debug logs at debug level with structured fields.
// Usage: Debug("message", "key1", value1, "key2", value2)
func Debug(msg string, args ...any) {
	getLogger().Debug(msg, args...)
}

// Info logs at info level with structured fields.
func Info(msg string, args ...any) {
	getLogger().Info(msg, args...)
}

// Warn logs at warn level with structured fields.
func Warn(msg string, args ...any) {
	getLogger().Warn(msg, args...)
}

// Error logs at error level with structured fields.
func Error(msg string, args ...any) {
	getLogger().Error(msg, args...)
}

// With returns a new slog.Logger with additional attributes
func With(args ...any) *slog.Logger {
	return getLogger().With(args...)
}

// Duration returns duration since start time in milliseconds
func Duration(start time.Time) float64 {
	return float64(time.Since(start).Microseconds()) / 1000.0
}
