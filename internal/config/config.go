// Package config handles recorder configuration
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"

	apperrors "github.com/GriffinCanCode/screenlog/internal/errors"
)

// EnvPrefix namespaces environment overrides, e.g. SCREENLOG_OCR_INTERVAL_SECONDS.
const EnvPrefix = "SCREENLOG"

// OCR backends. gosseract and tesseract both select the local engine:
// libtesseract in-process when built with cgo, the tesseract binary otherwise.
const (
	BackendGosseract = "gosseract"
	BackendTesseract = "tesseract"
	BackendGRPC      = "grpc"
)

// Dedupe scopes for written OCR lines.
const (
	DedupeGlobal = "global"
	DedupeBucket = "bucket"
)

type Config struct {
	OutputDir               string  `mapstructure:"output_dir" yaml:"output_dir" validate:"required"`
	OCRIntervalSeconds      float64 `mapstructure:"ocr_interval_seconds" yaml:"ocr_interval_seconds" validate:"gt=0"`
	RotationIntervalSeconds float64 `mapstructure:"rotation_interval_seconds" yaml:"rotation_interval_seconds" validate:"gt=0"`
	DiffThreshold           uint64  `mapstructure:"diff_threshold" yaml:"diff_threshold"`
	PauseMinutes            float64 `mapstructure:"pause_minutes" yaml:"pause_minutes" validate:"gt=0"`
	VideoFPS                int     `mapstructure:"video_fps" yaml:"video_fps" validate:"min=1,max=60"`
	FFmpegPath              string  `mapstructure:"ffmpeg_path" yaml:"ffmpeg_path" validate:"required"`
	DedupeScope             string  `mapstructure:"dedupe_scope" yaml:"dedupe_scope" validate:"dedupescope"`
	ReconfigPollSeconds     float64 `mapstructure:"reconfig_poll_seconds" yaml:"reconfig_poll_seconds" validate:"gt=0"`

	OCR     OCRConfig     `mapstructure:"ocr" yaml:"ocr"`
	Control ControlConfig `mapstructure:"control" yaml:"control"`
	Log     LogConfig     `mapstructure:"log" yaml:"log"`
}

type OCRConfig struct {
	Backend        string  `mapstructure:"backend" yaml:"backend" validate:"ocrbackend"`
	TesseractPath  string  `mapstructure:"tesseract_path" yaml:"tesseract_path"`
	TesseractArgs  string  `mapstructure:"tesseract_args" yaml:"tesseract_args"`
	GRPCAddr       string  `mapstructure:"grpc_addr" yaml:"grpc_addr" validate:"required_if=Backend grpc"`
	TimeoutSeconds float64 `mapstructure:"timeout_seconds" yaml:"timeout_seconds" validate:"gt=0"`
}

type ControlConfig struct {
	Enabled bool   `mapstructure:"enabled" yaml:"enabled"`
	Addr    string `mapstructure:"addr" yaml:"addr" validate:"required_if=Enabled true"`
}

type LogConfig struct {
	Level      string `mapstructure:"level" yaml:"level" validate:"loglevel"`
	File       string `mapstructure:"file" yaml:"file"`
	MaxSizeMB  int    `mapstructure:"max_size_mb" yaml:"max_size_mb" validate:"min=1"`
	MaxBackups int    `mapstructure:"max_backups" yaml:"max_backups" validate:"min=0"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		OutputDir:               "output",
		OCRIntervalSeconds:      5,
		RotationIntervalSeconds: 600,
		DiffThreshold:           1000,
		PauseMinutes:            5,
		VideoFPS:                1,
		FFmpegPath:              "ffmpeg",
		DedupeScope:             DedupeGlobal,
		ReconfigPollSeconds:     2,
		OCR: OCRConfig{
			Backend:        BackendGosseract,
			TesseractPath:  "tesseract",
			TesseractArgs:  "--psm 3",
			GRPCAddr:       "localhost:50051",
			TimeoutSeconds: 20,
		},
		Control: ControlConfig{
			Enabled: true,
			Addr:    "127.0.0.1:8765",
		},
		Log: LogConfig{
			Level:      "info",
			File:       "screenlog.log",
			MaxSizeMB:  20,
			MaxBackups: 5,
		},
	}
}

// Load reads configuration from an optional YAML file and SCREENLOG_* environment variables.
// An empty path skips the file; a missing file at an explicit path is an error.
func Load(path string) (*Config, error) {
	def := Default()
	v := viper.New()
	setDefaults(v, def)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, apperrors.Wrapf(err, apperrors.CodeConfigInvalid, "read config %s", path)
		}
	}

	cfg := def
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeConfigInvalid, "decode config")
	}
	if err := Validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper, d Config) {
	v.SetDefault("output_dir", d.OutputDir)
	v.SetDefault("ocr_interval_seconds", d.OCRIntervalSeconds)
	v.SetDefault("rotation_interval_seconds", d.RotationIntervalSeconds)
	v.SetDefault("diff_threshold", d.DiffThreshold)
	v.SetDefault("pause_minutes", d.PauseMinutes)
	v.SetDefault("video_fps", d.VideoFPS)
	v.SetDefault("ffmpeg_path", d.FFmpegPath)
	v.SetDefault("dedupe_scope", d.DedupeScope)
	v.SetDefault("reconfig_poll_seconds", d.ReconfigPollSeconds)
	v.SetDefault("ocr.backend", d.OCR.Backend)
	v.SetDefault("ocr.tesseract_path", d.OCR.TesseractPath)
	v.SetDefault("ocr.tesseract_args", d.OCR.TesseractArgs)
	v.SetDefault("ocr.grpc_addr", d.OCR.GRPCAddr)
	v.SetDefault("ocr.timeout_seconds", d.OCR.TimeoutSeconds)
	v.SetDefault("control.enabled", d.Control.Enabled)
	v.SetDefault("control.addr", d.Control.Addr)
	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.file", d.Log.File)
	v.SetDefault("log.max_size_mb", d.Log.MaxSizeMB)
	v.SetDefault("log.max_backups", d.Log.MaxBackups)
}

// Validate checks field constraints and returns a CONFIG_INVALID error listing every violation.
func Validate(cfg *Config) error {
	validate := validator.New(validator.WithRequiredStructEnabled())

	_ = validate.RegisterValidation("ocrbackend", func(fl validator.FieldLevel) bool {
		switch fl.Field().String() {
		case BackendGosseract, BackendTesseract, BackendGRPC:
			return true
		default:
			return false
		}
	})
	_ = validate.RegisterValidation("dedupescope", func(fl validator.FieldLevel) bool {
		switch fl.Field().String() {
		case DedupeGlobal, DedupeBucket:
			return true
		default:
			return false
		}
	})
	_ = validate.RegisterValidation("loglevel", func(fl validator.FieldLevel) bool {
		switch strings.ToLower(fl.Field().String()) {
		case "debug", "info", "warn", "error":
			return true
		default:
			return false
		}
	})

	err := validate.Struct(cfg)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return apperrors.Wrap(err, apperrors.CodeConfigInvalid, "validate config")
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, fmt.Sprintf("%s failed %q", fe.Namespace(), fe.Tag()))
	}
	return apperrors.New(apperrors.CodeConfigInvalid, strings.Join(msgs, "; "))
}

// OCRInterval is the scheduler tick period.
func (c *Config) OCRInterval() time.Duration { return seconds(c.OCRIntervalSeconds) }

// RotationInterval is the maximum age of a video file before it is rotated.
func (c *Config) RotationInterval() time.Duration { return seconds(c.RotationIntervalSeconds) }

// PauseDuration is the length of one pause window and of each extension.
func (c *Config) PauseDuration() time.Duration {
	return time.Duration(c.PauseMinutes * float64(time.Minute))
}

// ReconfigPollInterval is how often display topology is sampled.
func (c *Config) ReconfigPollInterval() time.Duration { return seconds(c.ReconfigPollSeconds) }

// OCRTimeout bounds a single text extraction.
func (c *Config) OCRTimeout() time.Duration { return seconds(c.OCR.TimeoutSeconds) }

func seconds(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}
