// Package audio provides the PCM primitives used by the archiver: the
// stream format, peak amplitude measurement, capture sources and container
// writers.
package audio

import (
	"errors"
	"fmt"
	"time"
)

// ErrUnsupportedBitDepth is returned for bit depths other than 16, 24 or 32.
var ErrUnsupportedBitDepth = errors.New("audio: unsupported bit depth")

// Format describes interleaved signed little-endian PCM. It is fixed for
// the lifetime of the process.
type Format struct {
	// SampleRate is the number of frames per second.
	SampleRate int
	// Channels is the number of interleaved channels per frame.
	Channels int
	// BitDepth is the width of one sample in bits (16, 24 or 32).
	BitDepth int
}

// DefaultFormat returns CD-quality stereo, the capture format of the
// station's archive deck.
func DefaultFormat() Format {
	return Format{
		SampleRate: 44100,
		Channels:   2,
		BitDepth:   16,
	}
}

// Validate checks the format can be captured and written.
func (f Format) Validate() error {
	if f.SampleRate <= 0 {
		return fmt.Errorf("audio: sample rate must be positive, got %d", f.SampleRate)
	}
	if f.Channels <= 0 {
		return fmt.Errorf("audio: channel count must be positive, got %d", f.Channels)
	}
	switch f.BitDepth {
	case 16, 24, 32:
		return nil
	default:
		return fmt.Errorf("%w: %d", ErrUnsupportedBitDepth, f.BitDepth)
	}
}

// SampleWidth returns the size of one sample in bytes.
func (f Format) SampleWidth() int {
	return f.BitDepth / 8
}

// FrameSize returns the size of one interleaved frame in bytes.
func (f Format) FrameSize() int {
	return f.SampleWidth() * f.Channels
}

// BytesPerSecond returns the raw data rate.
func (f Format) BytesPerSecond() int {
	return f.FrameSize() * f.SampleRate
}

// MaxAmplitude returns the largest positive sample value for the bit depth.
func (f Format) MaxAmplitude() int64 {
	return int64(1)<<(f.BitDepth-1) - 1
}

// Duration returns how much audio n bytes of PCM hold.
func (f Format) Duration(n int) time.Duration {
	bps := f.BytesPerSecond()
	if bps == 0 {
		return 0
	}
	return time.Duration(int64(n) * int64(time.Second) / int64(bps))
}

// BlockDuration returns the duration of a block of the given frame count.
func (f Format) BlockDuration(frames int) time.Duration {
	if f.SampleRate == 0 {
		return 0
	}
	return time.Duration(int64(frames) * int64(time.Second) / int64(f.SampleRate))
}

// String returns a human-readable representation of the format.
func (f Format) String() string {
	return fmt.Sprintf("%d Hz, %d ch, %d bit", f.SampleRate, f.Channels, f.BitDepth)
}
