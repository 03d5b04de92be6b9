package segment

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maauso/wcfm-archiver/internal/audio"
	"github.com/maauso/wcfm-archiver/internal/boundary"
)

// testFormat gives 100 ms blocks of 100 frames.
var testFormat = audio.Format{SampleRate: 1000, Channels: 1, BitDepth: 16}

const framesPerBlock = 100

// clockedSource advances a manual clock by one block duration per read, so
// recorders see time pass exactly as a live device would drive it.
type clockedSource struct {
	*audio.ToneSource
	clock  *boundary.ManualClock
	reads  int
	failAt int
	onRead func(n int)
}

func newClockedSource(t *testing.T, clock *boundary.ManualClock, amplitude int64) *clockedSource {
	t.Helper()
	tone, err := audio.NewToneSource(testFormat, audio.ToneOpts{
		FramesPerBlock: framesPerBlock,
		Amplitude:      amplitude,
		Square:         true,
	})
	require.NoError(t, err)
	return &clockedSource{ToneSource: tone, clock: clock}
}

func (s *clockedSource) Read(ctx context.Context) ([]byte, error) {
	s.reads++
	if s.failAt > 0 && s.reads == s.failAt {
		return nil, errors.New("device unplugged")
	}
	block, err := s.ToneSource.Read(ctx)
	if err != nil {
		return nil, err
	}
	s.clock.Advance(testFormat.BlockDuration(framesPerBlock))
	if s.onRead != nil {
		s.onRead(s.reads)
	}
	return block, nil
}

type memSink struct {
	data   []byte
	writes int
	failAt int
}

func (m *memSink) Write(block []byte) error {
	m.writes++
	if m.failAt > 0 && m.writes >= m.failAt {
		return errors.New("disk full")
	}
	m.data = append(m.data, block...)
	return nil
}

func (m *memSink) Close() error { return nil }

// gridStart is 2024-01-01T10:00:00Z, a multiple of 90 s.
var gridStart = time.Unix(1_704_103_200, 0)

func TestSegment_Transitions(t *testing.T) {
	tests := []struct {
		name    string
		from    State
		to      State
		wantErr bool
	}{
		{"recording to kept", StateRecording, StateKept, false},
		{"recording to discarded", StateRecording, StateDiscarded, false},
		{"kept to discarded", StateKept, StateDiscarded, true},
		{"discarded to kept", StateDiscarded, StateKept, true},
		{"kept to kept", StateKept, StateKept, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			seg := New("a.wav", gridStart, gridStart.Add(time.Minute))
			seg.State = tt.from

			var err error
			if tt.to == StateKept {
				err = seg.Keep(gridStart)
			} else {
				err = seg.Discard(gridStart)
			}

			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidTransition)
				assert.Equal(t, tt.from, seg.State)
			} else {
				require.NoError(t, err)
				assert.Equal(t, tt.to, seg.State)
				assert.True(t, seg.IsFinal())
			}
		})
	}
}

func TestSegment_Observe(t *testing.T) {
	seg := New("a.wav", gridStart, gridStart.Add(90*time.Second))
	require.NoError(t, seg.Observe(10))
	require.NoError(t, seg.Observe(300))
	require.NoError(t, seg.Observe(20))

	assert.Equal(t, int64(300), seg.Peak)
	assert.Equal(t, 3, seg.Blocks)
	assert.Equal(t, 90*time.Second, seg.Duration())

	require.NoError(t, seg.Discard(gridStart))
	assert.ErrorIs(t, seg.Observe(1), ErrFinalized)
	assert.Equal(t, int64(300), seg.Peak)
}

func TestSegment_FailedCannotBeKept(t *testing.T) {
	seg := New("a.wav", gridStart, gridStart.Add(time.Minute))
	seg.Fail(errors.New("disk full"))
	seg.Fail(errors.New("ignored"))

	assert.EqualError(t, seg.Err(), "disk full")
	assert.ErrorIs(t, seg.Keep(gridStart), ErrInvalidTransition)
	assert.NoError(t, seg.Discard(gridStart))
}

func TestClassifier_Keep(t *testing.T) {
	c := Classifier{Threshold: 250}

	peaks := []int64{0, 249, 250, 251}
	want := []bool{false, false, false, true}

	for i, peak := range peaks {
		assert.Equal(t, want[i], c.Keep(peak), "peak %d", peak)
	}
}

func TestClassifier_Classify(t *testing.T) {
	c := Classifier{Threshold: 100}
	at := gridStart.Add(90 * time.Second)

	t.Run("loud segment kept", func(t *testing.T) {
		seg := New("a.wav", gridStart, at)
		require.NoError(t, seg.Observe(101))

		state, err := c.Classify(seg, at)
		require.NoError(t, err)
		assert.Equal(t, StateKept, state)
		assert.True(t, at.Equal(seg.FinalizedAt))
	})

	t.Run("quiet segment discarded", func(t *testing.T) {
		seg := New("a.wav", gridStart, at)
		require.NoError(t, seg.Observe(100))

		state, err := c.Classify(seg, at)
		require.NoError(t, err)
		assert.Equal(t, StateDiscarded, state)
	})

	t.Run("failed segment discarded regardless of peak", func(t *testing.T) {
		seg := New("a.wav", gridStart, at)
		require.NoError(t, seg.Observe(30000))
		seg.Fail(errors.New("disk full"))

		state, err := c.Classify(seg, at)
		require.NoError(t, err)
		assert.Equal(t, StateDiscarded, state)
	})
}

func TestOverlapBuffer(t *testing.T) {
	var nilBuf *OverlapBuffer
	assert.Zero(t, nilBuf.Len())
	assert.Nil(t, nilBuf.Blocks())

	b := NewOverlapBuffer()
	block := []byte{1, 0, 2, 0}
	b.Append(block)
	block[0] = 9
	b.Append(block)

	assert.Equal(t, 2, b.Len())
	assert.Equal(t, 8, b.Size())
	assert.Equal(t, []byte{1, 0, 2, 0, 9, 0, 2, 0}, b.Bytes())
	assert.Equal(t, 4*time.Millisecond, b.Duration(testFormat))
}

func TestRecorder_Record(t *testing.T) {
	t.Run("writes overlap then live audio until boundary", func(t *testing.T) {
		clock := boundary.NewManualClock(gridStart.Add(80 * time.Second))
		src := newClockedSource(t, clock, 500)
		rec := NewRecorder(src, clock)

		overlap := NewOverlapBuffer()
		loud := testFormat.Encode([]int{32000, -32000}, nil)
		overlap.Append(loud)

		seg := New("a.wav", clock.Now(), gridStart.Add(90*time.Second))
		sink := &memSink{}

		outcome, err := rec.Record(context.Background(), seg, sink, overlap)
		require.NoError(t, err)
		assert.Equal(t, OutcomeBoundary, outcome)

		// 10 s of 100 ms blocks.
		assert.Equal(t, 100, seg.Blocks)
		assert.Equal(t, int64(500), seg.Peak, "overlap must not count toward the peak")
		assert.Equal(t, loud, sink.data[:len(loud)])
		assert.Len(t, sink.data, len(loud)+100*framesPerBlock*testFormat.FrameSize())
		assert.False(t, clock.Now().Before(seg.Close))
	})

	t.Run("quit mid segment stops before next read", func(t *testing.T) {
		clock := boundary.NewManualClock(gridStart)
		src := newClockedSource(t, clock, 500)
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		src.onRead = func(n int) {
			if n == 5 {
				cancel()
			}
		}

		seg := New("a.wav", clock.Now(), gridStart.Add(90*time.Second))
		sink := &memSink{}
		outcome, err := NewRecorder(src, clock).Record(ctx, seg, sink, nil)
		require.NoError(t, err)
		assert.Equal(t, OutcomeStopped, outcome)
		assert.Equal(t, 5, src.reads)
		assert.Equal(t, 5, sink.writes, "the block read before the quit is still written")
	})

	t.Run("source failure is returned", func(t *testing.T) {
		clock := boundary.NewManualClock(gridStart)
		src := newClockedSource(t, clock, 500)
		src.failAt = 3

		seg := New("a.wav", clock.Now(), gridStart.Add(90*time.Second))
		_, err := NewRecorder(src, clock).Record(context.Background(), seg, &memSink{}, nil)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "device unplugged")
	})

	t.Run("write failure marks segment and keeps draining", func(t *testing.T) {
		clock := boundary.NewManualClock(gridStart.Add(80 * time.Second))
		src := newClockedSource(t, clock, 500)

		seg := New("a.wav", clock.Now(), gridStart.Add(90*time.Second))
		sink := &memSink{failAt: 10}
		outcome, err := NewRecorder(src, clock).Record(context.Background(), seg, sink, nil)
		require.NoError(t, err)
		assert.Equal(t, OutcomeBoundary, outcome)
		require.Error(t, seg.Err())
		assert.Equal(t, 100, seg.Blocks)
		assert.Equal(t, 10, sink.writes, "no writes after the failure")
	})

	t.Run("nil sink still consumes audio", func(t *testing.T) {
		clock := boundary.NewManualClock(gridStart.Add(89 * time.Second))
		src := newClockedSource(t, clock, 500)

		seg := New("a.wav", clock.Now(), gridStart.Add(90*time.Second))
		_, err := NewRecorder(src, clock).Record(context.Background(), seg, nil, nil)
		require.NoError(t, err)
		assert.Equal(t, 10, seg.Blocks)
	})
}

func TestRecorder_Pad(t *testing.T) {
	end := gridStart.Add(90 * time.Second)

	t.Run("fills overlap and tail until padding point", func(t *testing.T) {
		clock := boundary.NewManualClock(end)
		src := newClockedSource(t, clock, 700)
		tail := &memSink{}

		res, err := NewRecorder(src, clock).Pad(context.Background(), end.Add(10*time.Second), tail)
		require.NoError(t, err)
		assert.Equal(t, OutcomeBoundary, res.Outcome)
		assert.NoError(t, res.WriteErr)
		assert.Equal(t, 100, res.Overlap.Len())
		assert.Equal(t, 10*time.Second, res.Overlap.Duration(testFormat))
		assert.Equal(t, res.Overlap.Bytes(), tail.data)
	})

	t.Run("without tail only fills overlap", func(t *testing.T) {
		clock := boundary.NewManualClock(end)
		src := newClockedSource(t, clock, 700)

		res, err := NewRecorder(src, clock).Pad(context.Background(), end.Add(time.Second), nil)
		require.NoError(t, err)
		assert.Equal(t, 10, res.Overlap.Len())
	})

	t.Run("zero padding returns empty overlap", func(t *testing.T) {
		clock := boundary.NewManualClock(end)
		src := newClockedSource(t, clock, 700)

		res, err := NewRecorder(src, clock).Pad(context.Background(), end, &memSink{})
		require.NoError(t, err)
		assert.Zero(t, res.Overlap.Len())
		assert.Zero(t, src.reads)
	})

	t.Run("quit keeps what was captured", func(t *testing.T) {
		clock := boundary.NewManualClock(end)
		src := newClockedSource(t, clock, 700)
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		src.onRead = func(n int) {
			if n == 3 {
				cancel()
			}
		}

		res, err := NewRecorder(src, clock).Pad(ctx, end.Add(10*time.Second), nil)
		require.NoError(t, err)
		assert.Equal(t, OutcomeStopped, res.Outcome)
		assert.Equal(t, 3, res.Overlap.Len())
	})

	t.Run("tail write failure is reported", func(t *testing.T) {
		clock := boundary.NewManualClock(end)
		src := newClockedSource(t, clock, 700)

		res, err := NewRecorder(src, clock).Pad(context.Background(), end.Add(time.Second), &memSink{failAt: 2})
		require.NoError(t, err)
		require.Error(t, res.WriteErr)
		assert.Equal(t, 10, res.Overlap.Len(), "overlap is filled even when the tail fails")
	})
}
