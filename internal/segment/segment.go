// Package segment provides the Segment aggregate and the recorders that fill
// it. The active recorder streams live audio up to the close point before
// the interval-end boundary and the silence classifier decides whether the
// result is archived. The padding recorder then captures the audio around
// the boundary, which is handed to the next segment as its overlap.
package segment

import (
	"errors"
	"fmt"
	"time"
)

// State represents the lifecycle state of a Segment.
type State string

const (
	// StateRecording indicates live audio is still being appended.
	StateRecording State = "RECORDING"
	// StateKept indicates the segment was finalized and archived.
	StateKept State = "FINALIZED_KEPT"
	// StateDiscarded indicates the segment was finalized as silence or after a write failure.
	StateDiscarded State = "FINALIZED_DISCARDED"
)

// ErrInvalidTransition is returned when an invalid state transition is attempted.
var ErrInvalidTransition = errors.New("invalid state transition")

// ErrFinalized is returned when audio is observed on a finalized segment.
var ErrFinalized = errors.New("segment already finalized")

// validTransitions defines which state transitions are allowed.
var validTransitions = map[State][]State{
	StateRecording: {StateKept, StateDiscarded},
	StateKept:      {},
	StateDiscarded: {},
}

// canTransition checks if a transition from one state to another is valid.
func canTransition(from, to State) bool {
	for _, s := range validTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// Segment is one candidate archive unit bounded by two grid boundaries.
// It is mutated only while recording and is immutable once finalized.
type Segment struct {
	// Name is the archive file name.
	Name string
	// Start is when active recording began.
	Start time.Time
	// Close is when live recording stops, padding seconds before the
	// interval-end boundary. Audio after Close is padding.
	Close time.Time
	// Peak is the running maximum absolute sample value of live audio.
	Peak int64
	// Blocks counts the live blocks observed.
	Blocks int
	// State is the lifecycle state.
	State State
	// FinalizedAt is when the segment left StateRecording.
	FinalizedAt time.Time

	err error
}

// New creates a segment in StateRecording.
func New(name string, start, closeAt time.Time) *Segment {
	return &Segment{
		Name:  name,
		Start: start,
		Close: closeAt,
		State: StateRecording,
	}
}

// Observe folds the peak of one live block into the segment.
func (s *Segment) Observe(blockPeak int64) error {
	if s.State != StateRecording {
		return ErrFinalized
	}
	s.Blocks++
	if blockPeak > s.Peak {
		s.Peak = blockPeak
	}
	return nil
}

// Fail records a write failure. A failed segment can only be discarded.
func (s *Segment) Fail(err error) {
	if s.err == nil {
		s.err = err
	}
}

// Err returns the write failure recorded on the segment, if any.
func (s *Segment) Err() error {
	return s.err
}

// Keep finalizes the segment as archived.
func (s *Segment) Keep(at time.Time) error {
	if s.err != nil {
		return fmt.Errorf("%w: segment %s failed: %v", ErrInvalidTransition, s.Name, s.err)
	}
	return s.transition(StateKept, at)
}

// Discard finalizes the segment as not archived.
func (s *Segment) Discard(at time.Time) error {
	return s.transition(StateDiscarded, at)
}

func (s *Segment) transition(to State, at time.Time) error {
	if !canTransition(s.State, to) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, s.State, to)
	}
	s.State = to
	s.FinalizedAt = at
	return nil
}

// IsFinal reports whether the segment has been finalized.
func (s *Segment) IsFinal() bool {
	return s.State != StateRecording
}

// Duration returns the span of live recording the segment covers.
func (s *Segment) Duration() time.Duration {
	return s.Close.Sub(s.Start)
}
