// Package logger provides the structured logger used across the
// simulation (runtime worker, handler registry, persistence store, event
// bus, action providers, HTTP surface).
package logger

import (
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"
)

// Logger wraps logrus.Logger so call sites depend on this package, not
// logrus directly, making the backend swappable without touching callers.
type Logger struct {
	*logrus.Logger
}

// Config controls level/format/output for a Logger.
type Config struct {
	Level      string `env:"LOG_LEVEL"`
	Format     string `env:"LOG_FORMAT"`
	Output     string `env:"LOG_OUTPUT"`
	FilePrefix string `env:"LOG_FILE_PREFIX"`
}

// New creates a Logger from Config.
func New(cfg Config) *Logger {
	l := logrus.New()

	level, err := logrus.ParseLevel(cfg.Level)
	if err != nil {
		level = logrus.InfoLevel
	}
	l.SetLevel(level)

	switch strings.ToLower(cfg.Format) {
	case "json":
		l.SetFormatter(&logrus.JSONFormatter{})
	default:
		l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}

	switch strings.ToLower(cfg.Output) {
	case "file":
		prefix := cfg.FilePrefix
		if prefix == "" {
			prefix = "dungeonsim"
		}
		logDir := "logs"
		if err := os.MkdirAll(logDir, 0o755); err != nil {
			l.Errorf("create log directory: %v", err)
			break
		}
		path := filepath.Join(logDir, prefix+".log")
		f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			l.Errorf("open log file: %v", err)
			break
		}
		l.SetOutput(io.MultiWriter(os.Stdout, f))
	default:
		l.SetOutput(os.Stdout)
	}

	return &Logger{Logger: l}
}

// NewDefault returns a Logger at info level writing to stdout, tagged with
// a component name.
func NewDefault(component string) *Logger {
	l := logrus.New()
	l.SetLevel(logrus.InfoLevel)
	l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	l.SetOutput(os.Stdout)
	return (&Logger{Logger: l}).WithComponent(component)
}

// WithComponent returns a Logger whose entries all carry a component field.
func (l *Logger) WithComponent(component string) *Logger {
	entry := l.Logger.WithField("component", component)
	wrapped := logrus.New()
	wrapped.SetLevel(l.Logger.GetLevel())
	wrapped.SetFormatter(l.Logger.Formatter)
	wrapped.SetOutput(l.Logger.Out)
	wrapped.AddHook(&staticFieldHook{fields: entry.Data})
	return &Logger{Logger: wrapped}
}

// staticFieldHook injects a fixed set of fields into every entry.
type staticFieldHook struct {
	fields logrus.Fields
}

func (h *staticFieldHook) Levels() []logrus.Level { return logrus.AllLevels }

func (h *staticFieldHook) Fire(e *logrus.Entry) error {
	for k, v := range h.fields {
		if _, exists := e.Data[k]; !exists {
			e.Data[k] = v
		}
	}
	return nil
}
