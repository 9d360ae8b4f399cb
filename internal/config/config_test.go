package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	apperrors "github.com/GriffinCanCode/screenlog/internal/errors"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.OutputDir != "output" {
		t.Errorf("OutputDir = %q, want %q", cfg.OutputDir, "output")
	}
	if cfg.OCRInterval() != 5*time.Second {
		t.Errorf("OCRInterval = %v, want 5s", cfg.OCRInterval())
	}
	if cfg.RotationInterval() != 10*time.Minute {
		t.Errorf("RotationInterval = %v, want 10m", cfg.RotationInterval())
	}
	if cfg.DiffThreshold != 1000 {
		t.Errorf("DiffThreshold = %d, want 1000", cfg.DiffThreshold)
	}
	if cfg.PauseDuration() != 5*time.Minute {
		t.Errorf("PauseDuration = %v, want 5m", cfg.PauseDuration())
	}
	if cfg.VideoFPS != 1 {
		t.Errorf("VideoFPS = %d, want 1", cfg.VideoFPS)
	}
	if cfg.OCR.Backend != BackendGosseract {
		t.Errorf("OCR.Backend = %q, want %q", cfg.OCR.Backend, BackendGosseract)
	}
	if cfg.OCR.TesseractArgs != "--psm 3" {
		t.Errorf("OCR.TesseractArgs = %q, want %q", cfg.OCR.TesseractArgs, "--psm 3")
	}
	if cfg.DedupeScope != DedupeGlobal {
		t.Errorf("DedupeScope = %q, want %q", cfg.DedupeScope, DedupeGlobal)
	}
	if !cfg.Control.Enabled {
		t.Error("Control.Enabled should default to true")
	}
}

func TestLoadWithEnv(t *testing.T) {
	t.Setenv("SCREENLOG_OUTPUT_DIR", "/tmp/screenlog-out")
	t.Setenv("SCREENLOG_OCR_INTERVAL_SECONDS", "2.5")
	t.Setenv("SCREENLOG_DIFF_THRESHOLD", "5000")
	t.Setenv("SCREENLOG_OCR_BACKEND", "grpc")
	t.Setenv("SCREENLOG_OCR_GRPC_ADDR", "ocr:50051")
	t.Setenv("SCREENLOG_CONTROL_ENABLED", "false")
	t.Setenv("SCREENLOG_LOG_LEVEL", "debug")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.OutputDir != "/tmp/screenlog-out" {
		t.Errorf("OutputDir = %q", cfg.OutputDir)
	}
	if cfg.OCRInterval() != 2500*time.Millisecond {
		t.Errorf("OCRInterval = %v, want 2.5s", cfg.OCRInterval())
	}
	if cfg.DiffThreshold != 5000 {
		t.Errorf("DiffThreshold = %d, want 5000", cfg.DiffThreshold)
	}
	if cfg.OCR.Backend != BackendGRPC || cfg.OCR.GRPCAddr != "ocr:50051" {
		t.Errorf("OCR = %+v", cfg.OCR)
	}
	if cfg.Control.Enabled {
		t.Error("Control.Enabled should be false")
	}
	if cfg.Log.Level != "debug" {
		t.Errorf("Log.Level = %q, want debug", cfg.Log.Level)
	}
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "screenlog.yaml")
	body := strings.Join([]string{
		"rotation_interval_seconds: 120",
		"dedupe_scope: bucket",
		"ocr:",
		"  tesseract_args: \"--psm 6\"",
		"log:",
		"  level: warn",
	}, "\n")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.RotationInterval() != 2*time.Minute {
		t.Errorf("RotationInterval = %v, want 2m", cfg.RotationInterval())
	}
	if cfg.DedupeScope != DedupeBucket {
		t.Errorf("DedupeScope = %q, want bucket", cfg.DedupeScope)
	}
	if cfg.OCR.TesseractArgs != "--psm 6" {
		t.Errorf("TesseractArgs = %q", cfg.OCR.TesseractArgs)
	}
	// Unset keys keep their defaults.
	if cfg.OCRInterval() != 5*time.Second {
		t.Errorf("OCRInterval = %v, want 5s", cfg.OCRInterval())
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if !apperrors.IsCode(err, apperrors.CodeConfigInvalid) {
		t.Errorf("Load(missing) error = %v, want CONFIG_INVALID", err)
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		field  string
	}{
		{"unknown backend", func(c *Config) { c.OCR.Backend = "vision" }, "Backend"},
		{"unknown dedupe scope", func(c *Config) { c.DedupeScope = "forever" }, "DedupeScope"},
		{"zero interval", func(c *Config) { c.OCRIntervalSeconds = 0 }, "OCRIntervalSeconds"},
		{"bad log level", func(c *Config) { c.Log.Level = "trace" }, "Level"},
		{"fps too high", func(c *Config) { c.VideoFPS = 120 }, "VideoFPS"},
		{"grpc without addr", func(c *Config) {
			c.OCR.Backend = BackendGRPC
			c.OCR.GRPCAddr = ""
		}, "GRPCAddr"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)
			err := Validate(&cfg)
			if err == nil {
				t.Fatal("Validate() = nil, want error")
			}
			if !apperrors.IsCode(err, apperrors.CodeConfigInvalid) {
				t.Errorf("error code = %s, want CONFIG_INVALID", apperrors.CodeOf(err))
			}
			if !strings.Contains(err.Error(), tt.field) {
				t.Errorf("error %q does not name %s", err, tt.field)
			}
		})
	}
}

func TestValidateDefaults(t *testing.T) {
	cfg := Default()
	if err := Validate(&cfg); err != nil {
		t.Errorf("Validate(Default()) = %v", err)
	}
}
