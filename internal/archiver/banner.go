package archiver

import (
	"log/slog"

	"github.com/dustin/go-humanize"

	"github.com/maauso/wcfm-archiver/internal/audio"
	"github.com/maauso/wcfm-archiver/internal/boundary"
)

// ApproxDiskBytes estimates the archive size when every retention slot
// holds a full file of overlap, live audio and padding.
func ApproxDiskBytes(format audio.Format, interval boundary.Interval, maxFiles int) uint64 {
	perFile := interval.Length() + 2*interval.Padding()
	return uint64(format.BytesPerSecond()) * uint64(perFile.Seconds()) * uint64(maxFiles)
}

// LogBanner logs the effective cycle parameters at startup.
func LogBanner(logger *slog.Logger, settings Settings, format audio.Format, maxFiles int, reuseExisting bool) {
	disk := ApproxDiskBytes(format, settings.Interval, maxFiles)
	logger.Info("wcfm archiver starting",
		slog.String("interval", settings.Interval.Length().String()),
		slog.String("padding", settings.Interval.Padding().String()),
		slog.Int64("silence_threshold", settings.Threshold),
		slog.Int("max_files", maxFiles),
		slog.Bool("reuse_existing", reuseExisting),
		slog.String("format", format.String()),
		slog.String("approx_disk", humanize.Bytes(disk)),
	)
}
