// Package logging - Logrus logger construction from configuration.
package logging

import (
	"fmt"
	"io"
	"os"
	"path"
	"runtime"
	"strings"

	formatter "github.com/antonfisher/nested-logrus-formatter"
	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Fields is logrus.Fields.
type Fields = logrus.Fields

// Config configures New.
type Config struct {
	// Level is a logrus level name.
	Level string `json:"level" yaml:"level" validate:"omitempty,oneof=trace debug info warn warning error fatal panic"`
	// File, when set, receives a rotated copy of every entry.
	File string `json:"file" yaml:"file"`
	// MaxSizeMB is the size at which File is rotated.
	MaxSizeMB int `json:"max_size_mb" yaml:"max_size_mb" validate:"gte=0"`
	// MaxAgeDays is how long rotated files are kept.
	MaxAgeDays int `json:"max_age_days" yaml:"max_age_days" validate:"gte=0"`
	// MaxBackups is the number of rotated files kept.
	MaxBackups int `json:"max_backups" yaml:"max_backups" validate:"gte=0"`
	// Compress gzips rotated files.
	Compress bool `json:"compress" yaml:"compress"`
	// NoColors disables ANSI colors on the console.
	NoColors bool `json:"no_colors" yaml:"no_colors"`
	// ReportCaller prefixes entries with file, line and function.
	ReportCaller bool `json:"report_caller" yaml:"report_caller"`

	// Output replaces stderr as the console writer.
	Output io.Writer `json:"-" yaml:"-"`
}

// DefaultConfig logs info and above to stderr.
func DefaultConfig() Config {
	return Config{
		Level:      "info",
		MaxSizeMB:  100,
		MaxAgeDays: 7,
		MaxBackups: 3,
		Compress:   true,
	}
}

// New builds a logger from cfg.
//
// Arguments:
//   - cfg: The logger configuration.
//
// Returns:
//   - *logrus.Logger: The logger.
//   - error: If the level name is unknown.
func New(cfg Config) (*logrus.Logger, error) {
	logger := logrus.New()

	level := logrus.InfoLevel
	if cfg.Level != "" {
		var err error
		if level, err = logrus.ParseLevel(cfg.Level); err != nil {
			return nil, fmt.Errorf("log level: %w", err)
		}
	}
	logger.SetLevel(level)

	logger.SetFormatter(&formatter.Formatter{
		NoColors:        cfg.NoColors,
		TimestampFormat: "02 Jan 06 - 15:04:05.000",
		HideKeys:        false,
		CallerFirst:     true,
		CustomCallerFormatter: func(f *runtime.Frame) string {
			s := strings.Split(f.Function, ".")
			funcName := s[len(s)-1]
			return fmt.Sprintf(" [%s:%d][%s()]", path.Base(f.File), f.Line, funcName)
		},
	})

	var console io.Writer = os.Stderr
	if cfg.Output != nil {
		console = cfg.Output
	}
	writers := []io.Writer{console}
	if cfg.File != "" {
		writers = append(writers, &lumberjack.Logger{
			Filename:   cfg.File,
			LocalTime:  true,
			Compress:   cfg.Compress,
			MaxSize:    cfg.MaxSizeMB,
			MaxAge:     cfg.MaxAgeDays,
			MaxBackups: cfg.MaxBackups,
		})
	}

	logger.SetOutput(io.MultiWriter(writers...))
	logger.SetReportCaller(cfg.ReportCaller)
	return logger, nil
}
