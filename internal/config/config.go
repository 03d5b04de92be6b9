// Package config provides configuration loading from a YAML settings file
// with environment variable overrides.
package config

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/sethvargo/go-envconfig"
	"gopkg.in/natefinch/lumberjack.v2"
	"gopkg.in/yaml.v3"

	"github.com/maauso/wcfm-archiver/internal/audio"
	"github.com/maauso/wcfm-archiver/internal/boundary"
)

// DefaultPath is the settings file used when no path is given.
const DefaultPath = "config.yaml"

// PathEnv names the environment variable that overrides DefaultPath.
const PathEnv = "WCFM_CONFIG"

// Audio source kinds.
const (
	SourcePortAudio = "portaudio"
	SourceTone      = "tone"
)

// Static errors for configuration validation.
var (
	// ErrInvalidConfig wraps struct tag validation failures.
	ErrInvalidConfig = errors.New("config: invalid configuration")
	// ErrPaddingTooLong is returned when padding is not shorter than half a segment.
	ErrPaddingTooLong = errors.New("config: padding_minutes must be less than half of segment_minutes")
	// ErrSegmentTooShort is returned when segment_minutes rounds to zero seconds.
	ErrSegmentTooShort = errors.New("config: segment_minutes must be at least one second")
)

// AudioConfig holds capture settings.
type AudioConfig struct {
	Source         string `yaml:"source" env:"WCFM_AUDIO_SOURCE, overwrite" validate:"oneof=portaudio tone"`
	SampleRate     int    `yaml:"sample_rate" env:"WCFM_AUDIO_SAMPLE_RATE, overwrite" validate:"gte=1000,lte=384000"`
	Channels       int    `yaml:"channels" env:"WCFM_AUDIO_CHANNELS, overwrite" validate:"gte=1,lte=8"`
	BitDepth       int    `yaml:"bit_depth" env:"WCFM_AUDIO_BIT_DEPTH, overwrite" validate:"oneof=16 24 32"`
	FramesPerBlock int    `yaml:"frames_per_block" env:"WCFM_AUDIO_FRAMES_PER_BLOCK, overwrite" validate:"gte=1"`
	// ToneAmplitude is the peak of the synthetic tone source.
	ToneAmplitude int64 `yaml:"tone_amplitude" env:"WCFM_AUDIO_TONE_AMPLITUDE, overwrite" validate:"gte=0"`
}

// S3Config holds the optional archive mirror settings.
type S3Config struct {
	Bucket          string `yaml:"bucket,omitempty" env:"S3_BUCKET, overwrite" validate:"required_with=Region"`
	Region          string `yaml:"region,omitempty" env:"S3_REGION, overwrite" validate:"required_with=Bucket"`
	Endpoint        string `yaml:"endpoint,omitempty" env:"S3_ENDPOINT, overwrite" validate:"omitempty,url"`
	Prefix          string `yaml:"prefix,omitempty" env:"S3_PREFIX, overwrite"`
	AccessKeyID     string `yaml:"access_key_id,omitempty" env:"AWS_ACCESS_KEY_ID, overwrite"`
	SecretAccessKey string `yaml:"secret_access_key,omitempty" env:"AWS_SECRET_ACCESS_KEY, overwrite"`
}

// Config holds all configuration for the application.
type Config struct {
	// Segmentation settings
	SegmentMinutes   float64 `yaml:"segment_minutes" env:"WCFM_SEGMENT_MINUTES, overwrite" validate:"gt=0"`
	PaddingMinutes   float64 `yaml:"padding_minutes" env:"WCFM_PADDING_MINUTES, overwrite" validate:"gte=0"`
	FilenamePrefix   string  `yaml:"filename_prefix" env:"WCFM_FILENAME_PREFIX, overwrite" validate:"required,excludesall=/\\"`
	MaxFiles         int     `yaml:"max_files" env:"WCFM_MAX_FILES, overwrite" validate:"gte=1"`
	SilenceThreshold int64   `yaml:"silence_threshold" env:"WCFM_SILENCE_THRESHOLD, overwrite" validate:"gte=0"`
	ReuseExisting    bool    `yaml:"reuse_existing_on_startup" env:"WCFM_REUSE_EXISTING_ON_STARTUP, overwrite"`

	// Storage settings
	ArchiveDir     string `yaml:"archive_dir" env:"WCFM_ARCHIVE_DIR, overwrite" validate:"required"`
	SegmentLogPath string `yaml:"segment_log_path,omitempty" env:"WCFM_SEGMENT_LOG_PATH, overwrite"`
	StatusLogPath  string `yaml:"status_log_path" env:"WCFM_STATUS_LOG_PATH, overwrite"`

	Audio AudioConfig `yaml:"audio"`

	// Operational settings
	WriteQueueBlocks            int `yaml:"write_queue_blocks" env:"WCFM_WRITE_QUEUE_BLOCKS, overwrite" validate:"gte=0"`
	MaxConsecutiveWriteFailures int `yaml:"max_consecutive_write_failures" env:"WCFM_MAX_CONSECUTIVE_WRITE_FAILURES, overwrite" validate:"gte=0"`
	// HTTPAddr serves status and metrics when set.
	HTTPAddr    string   `yaml:"http_addr,omitempty" env:"WCFM_HTTP_ADDR, overwrite" validate:"omitempty,hostname_port"`
	CORSOrigins []string `yaml:"cors_origins,omitempty" env:"WCFM_CORS_ORIGINS, overwrite"`

	S3 S3Config `yaml:"s3,omitempty"`

	// Logging settings
	LogFormat string `yaml:"log_format" env:"LOG_FORMAT, overwrite" validate:"oneof=text json"`
	LogLevel  string `yaml:"log_level" env:"LOG_LEVEL, overwrite" validate:"oneof=debug info warn warning error"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		SegmentMinutes:   60,
		PaddingMinutes:   5,
		FilenamePrefix:   "wcfm",
		MaxFiles:         200,
		SilenceThreshold: 333,
		ReuseExisting:    false,
		ArchiveDir:       "archives",
		StatusLogPath:    "out.txt",
		Audio: AudioConfig{
			Source:         SourcePortAudio,
			SampleRate:     44100,
			Channels:       2,
			BitDepth:       16,
			FramesPerBlock: 1024,
			ToneAmplitude:  1000,
		},
		WriteQueueBlocks:            64,
		MaxConsecutiveWriteFailures: 3,
		CORSOrigins:                 []string{"*"},
		LogFormat:                   "text",
		LogLevel:                    "info",
	}
}

// S3Enabled returns true if S3 configuration is provided.
func (c *Config) S3Enabled() bool {
	return c.S3.Bucket != "" && c.S3.Region != ""
}

// Load reads the settings file at path, applies environment overrides and
// validates the result. A missing file is created with the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path) // #nosec G304 - path from flag or env
	switch {
	case errors.Is(err, fs.ErrNotExist):
		if err := Save(path, cfg); err != nil {
			return nil, err
		}
	case err != nil:
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	default:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("config: parse %s: %w", path, err)
		}
	}

	if err := envconfig.ProcessWith(context.Background(), &envconfig.Config{
		Target:   cfg,
		Lookuper: envconfig.OsLookuper(),
	}); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	if cfg.SegmentLogPath == "" {
		cfg.SegmentLogPath = filepath.Join(cfg.ArchiveDir, "outputLog.txt")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes cfg to path as YAML.
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("config: encode: %w", err)
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0750); err != nil {
			return fmt.Errorf("config: create directory: %w", err)
		}
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("config: write %s: %w", path, err)
	}
	return nil
}

// Validate checks field constraints and the segment/padding relationship.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}

	length, padding := c.seconds()
	if length <= 0 {
		return fmt.Errorf("%w: got %v", ErrSegmentTooShort, c.SegmentMinutes)
	}
	if 2*padding >= length {
		return fmt.Errorf("%w: segment %vm, padding %vm", ErrPaddingTooLong, c.SegmentMinutes, c.PaddingMinutes)
	}
	return nil
}

func (c *Config) seconds() (length, padding int64) {
	return int64(math.Round(c.SegmentMinutes * 60)), int64(math.Round(c.PaddingMinutes * 60))
}

// Interval returns the segmentation grid in whole seconds.
func (c *Config) Interval() (boundary.Interval, error) {
	length, padding := c.seconds()
	return boundary.New(length, padding)
}

// Format returns the capture format.
func (c *Config) Format() audio.Format {
	return audio.Format{
		SampleRate: c.Audio.SampleRate,
		Channels:   c.Audio.Channels,
		BitDepth:   c.Audio.BitDepth,
	}
}

// Redacted returns a copy with credentials masked.
func (c *Config) Redacted() *Config {
	out := *c
	if out.S3.AccessKeyID != "" {
		out.S3.AccessKeyID = "***"
	}
	if out.S3.SecretAccessKey != "" {
		out.S3.SecretAccessKey = "***"
	}
	return &out
}

// NewLogger creates a structured logger based on the configuration.
// When LogFormat is "json", it outputs JSON logs suitable for production.
// Otherwise, it outputs human-readable text logs. When StatusLogPath is
// set, records are also written to that file, rotated by size.
func (c *Config) NewLogger() *slog.Logger {
	var out io.Writer = os.Stdout
	if c.StatusLogPath != "" {
		out = io.MultiWriter(os.Stdout, &lumberjack.Logger{
			Filename:   c.StatusLogPath,
			MaxSize:    10, // megabytes
			MaxBackups: 3,
		})
	}
	return c.newLogger(out)
}

func (c *Config) newLogger(out io.Writer) *slog.Logger {
	level := parseLogLevel(c.LogLevel)

	var handler slog.Handler
	if strings.ToLower(c.LogFormat) == "json" {
		handler = slog.NewJSONHandler(out, &slog.HandlerOptions{
			Level: level,
		})
	} else {
		handler = slog.NewTextHandler(out, &slog.HandlerOptions{
			Level: level,
		})
	}

	return slog.New(handler)
}

// String returns a string representation of the config with sensitive values masked.
func (c *Config) String() string {
	return fmt.Sprintf(
		"Config{SegmentMinutes: %v, PaddingMinutes: %v, FilenamePrefix: %s, MaxFiles: %d, SilenceThreshold: %d, ReuseExisting: %t, ArchiveDir: %s, AudioSource: %s, S3Bucket: %s, S3Region: %s, LogFormat: %s, LogLevel: %s}",
		c.SegmentMinutes,
		c.PaddingMinutes,
		c.FilenamePrefix,
		c.MaxFiles,
		c.SilenceThreshold,
		c.ReuseExisting,
		c.ArchiveDir,
		c.Audio.Source,
		c.S3.Bucket,
		c.S3.Region,
		c.LogFormat,
		c.LogLevel,
	)
}

// parseLogLevel converts a string log level to slog.Level.
func parseLogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
