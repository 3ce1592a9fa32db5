// Package logging wires up the daemon's structured logger: logrus with
// a pattern-based formatter and a multi-writer fanning out to stdout
// and/or a lumberjack-rotated file, exactly as the teacher wires its
// logrus backend (internal/log/logger_adapter.go, formatter.go,
// appender.go).
package logging

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

// OutputConfig describes one log sink.
type OutputConfig struct {
	Type       string `mapstructure:"type"` // "console" or "file"
	Path       string `mapstructure:"path"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
	Compress   bool   `mapstructure:"compress"`
}

// Config is the logging section of the daemon's configuration file.
type Config struct {
	Level   string         `mapstructure:"level"`
	Format  string         `mapstructure:"format"` // "text" (pattern formatter) or "json"
	Pattern string         `mapstructure:"pattern"` // e.g. "%time [%level] %field %msg"
	Time    string         `mapstructure:"time_format"`
	Outputs []OutputConfig `mapstructure:"outputs"`
}

const (
	defaultPattern = "%time [%level] %field%msg"
	defaultTime    = "2006-01-02T15:04:05.000Z07:00"
)

// New builds a logrus logger from cfg. An empty cfg produces a
// reasonable default: info level, stdout, the default pattern.
func New(cfg Config) (*logrus.Logger, error) {
	level, err := logrus.ParseLevel(orDefault(cfg.Level, "info"))
	if err != nil {
		return nil, fmt.Errorf("logging: invalid level %q: %w", cfg.Level, err)
	}

	mw := newMultiWriter()
	outputs := cfg.Outputs
	if len(outputs) == 0 {
		outputs = []OutputConfig{{Type: "console"}}
	}
	for i, out := range outputs {
		w, err := newWriter(out)
		if err != nil {
			return nil, fmt.Errorf("logging: output[%d] (%s): %w", i, out.Type, err)
		}
		mw.add(w)
	}

	l := logrus.New()
	l.SetLevel(level)
	l.SetOutput(mw)
	if strings.ToLower(cfg.Format) == "json" {
		l.SetFormatter(&logrus.JSONFormatter{TimestampFormat: orDefault(cfg.Time, defaultTime)})
	} else {
		l.SetFormatter(&patternFormatter{
			pattern: orDefault(cfg.Pattern, defaultPattern),
			time:    orDefault(cfg.Time, defaultTime),
		})
	}
	return l, nil
}

func newWriter(out OutputConfig) (io.Writer, error) {
	switch strings.ToLower(out.Type) {
	case "", "console", "stdout":
		return os.Stdout, nil
	case "file":
		if out.Path == "" {
			return nil, fmt.Errorf("file output requires a path")
		}
		return &lumberjack.Logger{
			Filename:   out.Path,
			MaxSize:    out.MaxSizeMB,
			MaxBackups: out.MaxBackups,
			MaxAge:     out.MaxAgeDays,
			Compress:   out.Compress,
		}, nil
	default:
		return nil, fmt.Errorf("unsupported output type %q", out.Type)
	}
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
