package audio

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"time"
)

// ErrSourceClosed is returned by Read after the source has been closed.
var ErrSourceClosed = errors.New("audio: source closed")

// Source yields fixed-size blocks of interleaved PCM.
type Source interface {
	// Read blocks until the next block is available. The returned slice is
	// only valid until the next call to Read.
	Read(ctx context.Context) ([]byte, error)

	// Format returns the stream format.
	Format() Format

	// Close releases the capture device.
	Close() error
}

// ToneOpts configures a ToneSource.
type ToneOpts struct {
	// FramesPerBlock is the number of frames in every block.
	// Default: 1024.
	FramesPerBlock int

	// Amplitude is the peak value of the generated sine wave.
	// Zero produces digital silence.
	Amplitude int64

	// Frequency of the sine wave in Hz.
	// Default: 440.
	Frequency float64

	// Square emits a square wave, so every non-zero sample sits exactly at
	// Amplitude.
	Square bool

	// Paced makes Read wait one block duration, emulating a live device.
	Paced bool
}

// ToneSource synthesises a sine wave. It stands in for a capture device in
// dry runs and tests.
type ToneSource struct {
	format Format
	opts   ToneOpts
	buf    []byte
	frame  int64
	next   time.Time

	mu        sync.Mutex
	amplitude int64
	closed    bool
}

// NewToneSource creates a ToneSource producing blocks in the given format.
func NewToneSource(format Format, opts ToneOpts) (*ToneSource, error) {
	if err := format.Validate(); err != nil {
		return nil, err
	}
	if opts.FramesPerBlock <= 0 {
		opts.FramesPerBlock = 1024
	}
	if opts.Frequency <= 0 {
		opts.Frequency = 440
	}
	if opts.Amplitude > format.MaxAmplitude() {
		opts.Amplitude = format.MaxAmplitude()
	}
	return &ToneSource{
		format:    format,
		opts:      opts,
		buf:       make([]byte, 0, opts.FramesPerBlock*format.FrameSize()),
		amplitude: opts.Amplitude,
	}, nil
}

// SetAmplitude changes the peak of subsequent blocks.
func (s *ToneSource) SetAmplitude(a int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if a > s.format.MaxAmplitude() {
		a = s.format.MaxAmplitude()
	}
	s.amplitude = a
}

// Read implements Source.
func (s *ToneSource) Read(ctx context.Context) ([]byte, error) {
	s.mu.Lock()
	closed, amplitude := s.closed, s.amplitude
	s.mu.Unlock()
	if closed {
		return nil, ErrSourceClosed
	}

	if s.opts.Paced {
		if err := s.wait(ctx); err != nil {
			return nil, err
		}
	}

	s.buf = s.buf[:0]
	step := 2 * math.Pi * s.opts.Frequency / float64(s.format.SampleRate)
	samples := make([]int, 0, s.format.Channels)
	for i := 0; i < s.opts.FramesPerBlock; i++ {
		phase := math.Sin(step * float64(s.frame))
		if s.opts.Square {
			switch {
			case phase > 0:
				phase = 1
			case phase < 0:
				phase = -1
			}
		}
		v := int(math.Round(float64(amplitude) * phase))
		samples = samples[:0]
		for c := 0; c < s.format.Channels; c++ {
			samples = append(samples, v)
		}
		s.buf = s.format.Encode(samples, s.buf)
		s.frame++
	}
	return s.buf, nil
}

func (s *ToneSource) wait(ctx context.Context) error {
	now := time.Now()
	if s.next.IsZero() {
		s.next = now
	}
	s.next = s.next.Add(s.format.BlockDuration(s.opts.FramesPerBlock))
	d := s.next.Sub(now)
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return fmt.Errorf("context cancelled: %w", ctx.Err())
	case <-timer.C:
		return nil
	}
}

// Format implements Source.
func (s *ToneSource) Format() Format { return s.format }

// Close implements Source.
func (s *ToneSource) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

// Verify interface implementation at compile time.
var _ Source = (*ToneSource)(nil)
