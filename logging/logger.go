/*
Package logging provides the process-wide structured logger.

buffer manager and lock table receive *slog.Logger through their options and
fall back to the logger returned from WithComponent. The log level and the output are
controlled only here, with Init() called once at startup (see cmd/ppcc).
If GetLogger() is called before Init(), the default logger (INFO, text, stderr) is created lazily.
*/
package logging

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/pkg/errors"

	"github.com/HayatoShiba/ppcc/common"
)

// Level is logging verbosity
type Level string

const (
	LevelDebug Level = "DEBUG"
	LevelInfo  Level = "INFO"
	LevelWarn  Level = "WARN"
	LevelError Level = "ERROR"
)

// Config is logger configuration
type Config struct {
	Level Level
	// Format is "json" or "text"
	Format string
	// OutputPath is the file path. empty for stderr
	OutputPath string
}

var (
	mu      sync.RWMutex
	logger  *slog.Logger
	logFile *os.File
)

// Init initializes the global logger with the given configuration
// Init can be called again. the previous log file is closed.
func Init(cfg Config) error {
	var w io.Writer = os.Stderr
	var f *os.File
	if cfg.OutputPath != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.OutputPath), 0750); err != nil {
			return errors.Wrap(err, "os.MkdirAll failed")
		}
		var err error
		f, err = os.OpenFile(cfg.OutputPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0600)
		if err != nil {
			return errors.Wrap(err, "os.OpenFile failed")
		}
		w = f
	}

	opts := &slog.HandlerOptions{Level: toSlogLevel(cfg.Level)}
	var h slog.Handler
	if strings.EqualFold(cfg.Format, "json") {
		h = slog.NewJSONHandler(w, opts)
	} else {
		h = slog.NewTextHandler(w, opts)
	}

	mu.Lock()
	defer mu.Unlock()
	if logFile != nil {
		logFile.Close()
	}
	logger = slog.New(h)
	logFile = f
	return nil
}

// New returns logger writing into w. this doesn't change the global logger.
func New(w io.Writer, level Level) *slog.Logger {
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: toSlogLevel(level)}))
}

// Close closes the log file if exists
func Close() error {
	mu.Lock()
	defer mu.Unlock()
	if logFile == nil {
		return nil
	}
	err := logFile.Close()
	logFile = nil
	logger = nil
	return errors.Wrap(err, "Close failed")
}

// GetLogger returns the global logger
func GetLogger() *slog.Logger {
	mu.RLock()
	l := logger
	mu.RUnlock()
	if l != nil {
		return l
	}

	mu.Lock()
	defer mu.Unlock()
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))
	}
	return logger
}

// toSlogLevel converts Level to slog.Level. unknown level is treated as INFO.
func toSlogLevel(level Level) slog.Level {
	switch Level(strings.ToUpper(string(level))) {
	case LevelDebug:
		return slog.LevelDebug
	case LevelWarn:
		return slog.LevelWarn
	case LevelError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// WithComponent returns logger with component field
func WithComponent(component string) *slog.Logger {
	return GetLogger().With("component", component)
}

// WithTx returns logger with transaction id field
func WithTx(l *slog.Logger, txID int64) *slog.Logger {
	return l.With("tx_id", txID)
}

// WithBlock returns logger with block fields
func WithBlock(l *slog.Logger, blk common.BlockID) *slog.Logger {
	return l.With("file", blk.FileName, "block", blk.Number)
}
