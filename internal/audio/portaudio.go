package audio

import (
	"bytes"
	"context"
	"encoding/binary"
	"fmt"
	"sync"

	"github.com/gordonklaus/portaudio"
)

// PortAudioSource captures from the default input device.
//
// macos:  brew install portaudio
// debian: sudo apt-get install portaudio19-dev
type PortAudioSource struct {
	format Format
	stream *portaudio.Stream
	buf16  []int16
	buf32  []int32
	out    bytes.Buffer

	mu     sync.Mutex
	closed bool
}

// NewPortAudioSource initialises PortAudio and starts a capture stream with
// framesPerBlock frames per read. Only 16 and 32 bit capture is supported.
func NewPortAudioSource(format Format, framesPerBlock int) (*PortAudioSource, error) {
	if err := format.Validate(); err != nil {
		return nil, err
	}
	if framesPerBlock <= 0 {
		return nil, fmt.Errorf("audio: frames per block must be positive, got %d", framesPerBlock)
	}

	if err := portaudio.Initialize(); err != nil {
		return nil, fmt.Errorf("initialize portaudio: %w", err)
	}

	s := &PortAudioSource{format: format}
	var buf interface{}
	switch format.BitDepth {
	case 16:
		s.buf16 = make([]int16, framesPerBlock*format.Channels)
		buf = s.buf16
	case 32:
		s.buf32 = make([]int32, framesPerBlock*format.Channels)
		buf = s.buf32
	default:
		_ = portaudio.Terminate()
		return nil, fmt.Errorf("%w for capture: %d", ErrUnsupportedBitDepth, format.BitDepth)
	}
	s.out.Grow(framesPerBlock * format.FrameSize())

	stream, err := portaudio.OpenDefaultStream(format.Channels, 0, float64(format.SampleRate), framesPerBlock, buf)
	if err != nil {
		_ = portaudio.Terminate()
		return nil, fmt.Errorf("open input stream: %w", err)
	}
	if err := stream.Start(); err != nil {
		_ = stream.Close()
		_ = portaudio.Terminate()
		return nil, fmt.Errorf("start input stream: %w", err)
	}
	s.stream = stream
	return s, nil
}

// Read implements Source. PortAudio's blocking read cannot be interrupted,
// so ctx is only checked before the read starts.
func (s *PortAudioSource) Read(ctx context.Context) ([]byte, error) {
	s.mu.Lock()
	closed := s.closed
	s.mu.Unlock()
	if closed {
		return nil, ErrSourceClosed
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("context cancelled: %w", err)
	}

	if err := s.stream.Read(); err != nil {
		return nil, fmt.Errorf("read input stream: %w", err)
	}

	s.out.Reset()
	var err error
	if s.buf16 != nil {
		err = binary.Write(&s.out, binary.LittleEndian, s.buf16)
	} else {
		err = binary.Write(&s.out, binary.LittleEndian, s.buf32)
	}
	if err != nil {
		return nil, fmt.Errorf("encode block: %w", err)
	}
	return s.out.Bytes(), nil
}

// Format implements Source.
func (s *PortAudioSource) Format() Format { return s.format }

// Close stops the stream and terminates PortAudio. It is safe to call more
// than once.
func (s *PortAudioSource) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true

	var firstErr error
	if err := s.stream.Stop(); err != nil {
		firstErr = fmt.Errorf("stop input stream: %w", err)
	}
	if err := s.stream.Close(); err != nil && firstErr == nil {
		firstErr = fmt.Errorf("close input stream: %w", err)
	}
	if err := portaudio.Terminate(); err != nil && firstErr == nil {
		firstErr = fmt.Errorf("terminate portaudio: %w", err)
	}
	return firstErr
}

// Verify interface implementation at compile time.
var _ Source = (*PortAudioSource)(nil)
