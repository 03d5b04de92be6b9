package audio

import (
	"errors"
	"fmt"
	"io"
	"sync"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// ErrWriterClosed is returned when writing to a closed Writer.
var ErrWriterClosed = errors.New("audio: writer closed")

// pcmFormat is the WAVE format tag for integer PCM.
const pcmFormat = 1

// Writer accepts PCM blocks in order and finalizes the container on Close.
type Writer interface {
	// Write appends one block. The caller may reuse block after Write returns.
	Write(block []byte) error

	// Close finalizes the container and releases the underlying file.
	Close() error
}

// WriteSeekCloser is the file handle a WAVWriter needs: the RIFF sizes are
// patched in place when the file is finalized.
type WriteSeekCloser interface {
	io.WriteSeeker
	io.Closer
}

// WAVWriter writes a RIFF/WAVE file with go-audio's encoder.
type WAVWriter struct {
	file    WriteSeekCloser
	enc     *wav.Encoder
	format  Format
	buf     goaudio.IntBuffer
	written int
	closed  bool
}

// NewWAVWriter writes the WAVE header for format to file and returns a
// Writer for its sample data.
func NewWAVWriter(file WriteSeekCloser, format Format) (*WAVWriter, error) {
	if err := format.Validate(); err != nil {
		return nil, err
	}

	w := &WAVWriter{
		file:   file,
		enc:    wav.NewEncoder(file, format.SampleRate, format.BitDepth, format.Channels, pcmFormat),
		format: format,
		buf: goaudio.IntBuffer{
			Format: &goaudio.Format{
				NumChannels: format.Channels,
				SampleRate:  format.SampleRate,
			},
			SourceBitDepth: format.BitDepth,
		},
	}

	// An empty write emits the header, so even a segment that receives no
	// audio is a well-formed file.
	if err := w.enc.Write(&w.buf); err != nil {
		return nil, fmt.Errorf("write wav header: %w", err)
	}
	return w, nil
}

// Write implements Writer.
func (w *WAVWriter) Write(block []byte) error {
	if w.closed {
		return ErrWriterClosed
	}
	w.buf.Data = w.format.Decode(block, w.buf.Data[:0])
	if err := w.enc.Write(&w.buf); err != nil {
		return fmt.Errorf("write wav data: %w", err)
	}
	w.written += len(block)
	return nil
}

// BytesWritten returns the number of PCM bytes accepted so far.
func (w *WAVWriter) BytesWritten() int {
	return w.written
}

// Close implements Writer. It is safe to call more than once.
func (w *WAVWriter) Close() error {
	if w.closed {
		return nil
	}
	w.closed = true

	encErr := w.enc.Close()
	closeErr := w.file.Close()
	if encErr != nil {
		return fmt.Errorf("finalize wav: %w", encErr)
	}
	if closeErr != nil {
		return fmt.Errorf("close wav file: %w", closeErr)
	}
	return nil
}

// QueuedWriter hands blocks to a single goroutine that owns the underlying
// Writer, so a slow disk does not stall capture until the queue is full.
// Blocks are copied on enqueue. The first write error is latched and
// returned from every later Write and from Close. Write and Close must be
// called from the same goroutine.
type QueuedWriter struct {
	next  Writer
	queue chan []byte
	done  chan struct{}

	mu     sync.Mutex
	err    error
	closed bool
}

// NewQueuedWriter starts a writer goroutine with room for depth blocks.
func NewQueuedWriter(next Writer, depth int) *QueuedWriter {
	if depth <= 0 {
		depth = 1
	}
	q := &QueuedWriter{
		next:  next,
		queue: make(chan []byte, depth),
		done:  make(chan struct{}),
	}
	go q.loop()
	return q
}

func (q *QueuedWriter) loop() {
	defer close(q.done)
	for block := range q.queue {
		if q.failed() != nil {
			continue
		}
		if err := q.next.Write(block); err != nil {
			q.mu.Lock()
			q.err = err
			q.mu.Unlock()
		}
	}
}

func (q *QueuedWriter) failed() error {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.err
}

// Write implements Writer. It blocks only while the queue is full.
func (q *QueuedWriter) Write(block []byte) error {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return ErrWriterClosed
	}
	err := q.err
	q.mu.Unlock()
	if err != nil {
		return err
	}

	cp := make([]byte, len(block))
	copy(cp, block)
	q.queue <- cp
	return nil
}

// Close drains the queue, then closes the underlying Writer.
func (q *QueuedWriter) Close() error {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return nil
	}
	q.closed = true
	q.mu.Unlock()

	close(q.queue)
	<-q.done

	closeErr := q.next.Close()
	if err := q.failed(); err != nil {
		return err
	}
	return closeErr
}

// Verify interface implementation at compile time.
var (
	_ Writer = (*WAVWriter)(nil)
	_ Writer = (*QueuedWriter)(nil)
)
