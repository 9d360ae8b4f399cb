// Package logging configures the process-wide slog logger.
package logging

import (
	"io"
	"log/slog"
	"path/filepath"
	"strings"

	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/GriffinCanCode/screenlog/internal/config"
)

// ParseLevel maps a config level name to a slog level. Unknown names are info.
func ParseLevel(name string) slog.Level {
	switch strings.ToLower(name) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// FilePath resolves the log file. Relative names live under the output directory.
func FilePath(cfg config.LogConfig, outputDir string) string {
	if cfg.File == "" || filepath.IsAbs(cfg.File) {
		return cfg.File
	}
	return filepath.Join(outputDir, cfg.File)
}

// New builds a text logger writing to console and, when a log file is
// configured, to a size-rotated file. The returned closer flushes the file.
func New(cfg config.LogConfig, outputDir string, console io.Writer) (*slog.Logger, io.Closer) {
	out := console
	var closer io.Closer = nopCloser{}
	if path := FilePath(cfg, outputDir); path != "" {
		file := &lumberjack.Logger{
			Filename:   path,
			MaxSize:    cfg.MaxSizeMB,
			MaxBackups: cfg.MaxBackups,
			LocalTime:  true,
		}
		out = io.MultiWriter(console, file)
		closer = file
	}

	handler := slog.NewTextHandler(out, &slog.HandlerOptions{Level: ParseLevel(cfg.Level)})
	return slog.New(handler), closer
}

// Setup installs New's logger as the slog default.
func Setup(cfg config.LogConfig, outputDir string, console io.Writer) io.Closer {
	logger, closer := New(cfg, outputDir, console)
	slog.SetDefault(logger)
	return closer
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
