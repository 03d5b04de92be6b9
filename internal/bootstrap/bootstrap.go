// Package bootstrap provides dependency initialization for the archiver.
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/maauso/wcfm-archiver/internal/archiver"
	"github.com/maauso/wcfm-archiver/internal/audio"
	"github.com/maauso/wcfm-archiver/internal/config"
	"github.com/maauso/wcfm-archiver/internal/journal"
	"github.com/maauso/wcfm-archiver/internal/metrics"
	"github.com/maauso/wcfm-archiver/internal/naming"
	"github.com/maauso/wcfm-archiver/internal/retention"
	"github.com/maauso/wcfm-archiver/internal/storage"
)

// Dependencies holds all initialized dependencies for the run command.
type Dependencies struct {
	Engine   *archiver.Engine
	Settings archiver.Settings
	Storage  storage.Storage
	Ledger   *retention.Ledger
	Journal  *journal.Journal
	Registry *prometheus.Registry
}

// NewDependencies creates and initializes all dependencies for the application.
// The returned Dependencies must be closed after the engine stops.
func NewDependencies(ctx context.Context, cfg *config.Config, logger *slog.Logger, opts ...archiver.Option) (*Dependencies, error) {
	settings, err := Settings(cfg)
	if err != nil {
		return nil, err
	}

	// Initialize storage
	store, err := NewStorage(cfg, logger)
	if err != nil {
		return nil, err
	}

	// Initialize retention ledger, seeded with prior archives if configured
	ledger, err := retention.NewLedger(cfg.MaxFiles, store, logger)
	if err != nil {
		return nil, fmt.Errorf("create retention ledger: %w", err)
	}
	if cfg.ReuseExisting {
		existing, err := store.List(ctx)
		if err != nil {
			return nil, fmt.Errorf("list existing archives: %w", err)
		}
		evicted := ledger.Seed(ctx, existing)
		logger.Info("existing archives counted toward retention",
			slog.Int("found", len(existing)),
			slog.Int("evicted", len(evicted)),
		)
	}

	j, err := journal.Open(cfg.SegmentLogPath)
	if err != nil {
		return nil, fmt.Errorf("open segment log: %w", err)
	}

	// Initialize the audio source last so nothing above leaves a device open
	source, err := NewSource(cfg)
	if err != nil {
		_ = j.Close()
		return nil, err
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	engineOpts := []archiver.Option{
		archiver.WithJournal(j),
		archiver.WithMetrics(metrics.New(reg)),
		archiver.WithWriteQueue(cfg.WriteQueueBlocks),
		archiver.WithMaxWriteFailures(cfg.MaxConsecutiveWriteFailures),
	}
	engine := archiver.NewEngine(settings, source, store, ledger, logger, append(engineOpts, opts...)...)

	return &Dependencies{
		Engine:   engine,
		Settings: settings,
		Storage:  store,
		Ledger:   ledger,
		Journal:  j,
		Registry: reg,
	}, nil
}

// Close releases resources not owned by the engine.
func (d *Dependencies) Close() error {
	return d.Journal.Close()
}

// Settings derives the cycle parameters from cfg.
func Settings(cfg *config.Config) (archiver.Settings, error) {
	interval, err := cfg.Interval()
	if err != nil {
		return archiver.Settings{}, fmt.Errorf("segment interval: %w", err)
	}
	return archiver.Settings{
		Interval:  interval,
		Prefix:    cfg.FilenamePrefix,
		Threshold: cfg.SilenceThreshold,
	}, nil
}

// NewStorage creates the appropriate storage backend based on configuration.
func NewStorage(cfg *config.Config, logger *slog.Logger) (storage.Storage, error) {
	if cfg.S3Enabled() {
		s3Cfg := storage.S3Config{
			Bucket:          cfg.S3.Bucket,
			Region:          cfg.S3.Region,
			Endpoint:        cfg.S3.Endpoint,
			Prefix:          cfg.S3.Prefix,
			AccessKeyID:     cfg.S3.AccessKeyID,
			SecretAccessKey: cfg.S3.SecretAccessKey,
		}
		s3Store, err := storage.NewS3Storage(cfg.ArchiveDir, naming.Extension, s3Cfg)
		if err != nil {
			return nil, fmt.Errorf("create S3 storage: %w", err)
		}
		logger.Info("S3 archive mirror configured",
			slog.String("archive_dir", cfg.ArchiveDir),
			slog.String("bucket", cfg.S3.Bucket),
			slog.String("region", cfg.S3.Region),
		)
		return s3Store, nil
	}

	localStore, err := storage.NewLocalStorage(cfg.ArchiveDir, naming.Extension)
	if err != nil {
		return nil, fmt.Errorf("create local storage: %w", err)
	}
	logger.Info("local storage configured",
		slog.String("archive_dir", cfg.ArchiveDir),
	)
	return localStore, nil
}

// ErrUnknownSource is returned for an unrecognized audio source kind.
var ErrUnknownSource = errors.New("bootstrap: unknown audio source")

// NewSource opens the configured audio source.
func NewSource(cfg *config.Config) (audio.Source, error) {
	format := cfg.Format()
	switch cfg.Audio.Source {
	case config.SourcePortAudio:
		src, err := audio.NewPortAudioSource(format, cfg.Audio.FramesPerBlock)
		if err != nil {
			return nil, fmt.Errorf("open capture device: %w", err)
		}
		return src, nil
	case config.SourceTone:
		src, err := audio.NewToneSource(format, audio.ToneOpts{
			FramesPerBlock: cfg.Audio.FramesPerBlock,
			Amplitude:      cfg.Audio.ToneAmplitude,
			Paced:          true,
		})
		if err != nil {
			return nil, fmt.Errorf("create tone source: %w", err)
		}
		return src, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownSource, cfg.Audio.Source)
	}
}
