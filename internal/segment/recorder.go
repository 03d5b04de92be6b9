package segment

import (
	"context"
	"fmt"
	"time"

	"github.com/maauso/wcfm-archiver/internal/audio"
	"github.com/maauso/wcfm-archiver/internal/boundary"
)

// Outcome tells the caller why a recording phase returned.
type Outcome int

const (
	// OutcomeBoundary means the phase ran until its closing boundary.
	OutcomeBoundary Outcome = iota
	// OutcomeStopped means the quit signal was observed first.
	OutcomeStopped
)

// String returns the outcome name used in logs.
func (o Outcome) String() string {
	switch o {
	case OutcomeBoundary:
		return "boundary"
	case OutcomeStopped:
		return "stopped"
	default:
		return fmt.Sprintf("Outcome(%d)", int(o))
	}
}

// Recorder pulls blocks from a Source one at a time. Cancellation of the
// context passed to its methods is the quit signal; it is polled before
// every read and never interrupts a write.
type Recorder struct {
	source audio.Source
	clock  boundary.Clock
	format audio.Format
}

// NewRecorder creates a Recorder for source. If clock is nil the system
// clock is used.
func NewRecorder(source audio.Source, clock boundary.Clock) *Recorder {
	if clock == nil {
		clock = boundary.SystemClock{}
	}
	return &Recorder{
		source: source,
		clock:  clock,
		format: source.Format(),
	}
}

// Record runs the active phase of seg. The overlap buffer is written first
// and does not count toward the peak. Live blocks are then appended to sink
// and folded into seg until the clock reaches seg.Close.
//
// sink may be nil when no file could be opened; audio is still consumed so
// the grid stays aligned. A write failure is recorded with seg.Fail and
// further writes are skipped. The returned error is only set when the
// source fails.
func (r *Recorder) Record(ctx context.Context, seg *Segment, sink audio.Writer, overlap *OverlapBuffer) (Outcome, error) {
	if sink != nil {
		for _, blk := range overlap.Blocks() {
			if err := sink.Write(blk); err != nil {
				seg.Fail(fmt.Errorf("write overlap: %w", err))
				sink = nil
				break
			}
		}
	}

	for r.clock.Now().Before(seg.Close) {
		if ctx.Err() != nil {
			return OutcomeStopped, nil
		}

		block, err := r.source.Read(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return OutcomeStopped, nil
			}
			return OutcomeBoundary, fmt.Errorf("read audio: %w", err)
		}

		if err := seg.Observe(r.format.Peak(block)); err != nil {
			return OutcomeBoundary, err
		}
		if sink != nil {
			if err := sink.Write(block); err != nil {
				seg.Fail(fmt.Errorf("write audio: %w", err))
				sink = nil
			}
		}
	}
	return OutcomeBoundary, nil
}

// PadResult is the product of a padding phase.
type PadResult struct {
	// Overlap is the audio captured for the head of the next segment.
	Overlap *OverlapBuffer
	// Outcome tells whether the padding point or the quit signal ended the phase.
	Outcome Outcome
	// WriteErr is the first failure appending padding to the kept file.
	WriteErr error
}

// Pad records from the close point of a segment until until, the padding
// point after its boundary. Padding never counts toward the segment peak.
// Every block goes into a fresh overlap buffer; when tail is non-nil (the
// previous segment was kept) the block is also appended to it. tail is not
// closed. The returned error is only set when the source fails.
func (r *Recorder) Pad(ctx context.Context, until time.Time, tail audio.Writer) (PadResult, error) {
	res := PadResult{Overlap: NewOverlapBuffer()}

	for r.clock.Now().Before(until) {
		if ctx.Err() != nil {
			res.Outcome = OutcomeStopped
			return res, nil
		}

		block, err := r.source.Read(ctx)
		if err != nil {
			if ctx.Err() != nil {
				res.Outcome = OutcomeStopped
				return res, nil
			}
			return res, fmt.Errorf("read audio: %w", err)
		}

		res.Overlap.Append(block)
		if tail != nil {
			if err := tail.Write(block); err != nil {
				res.WriteErr = fmt.Errorf("write padding: %w", err)
				tail = nil
			}
		}
	}
	res.Outcome = OutcomeBoundary
	return res, nil
}
