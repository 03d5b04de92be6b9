// Package boundary maps wall-clock time onto the fixed segment grid.
// The grid is anchored at the Unix epoch rather than process start, so an
// interval of 3600 seconds always splits on the hour and 5400 seconds always
// splits on :00/:30 every ninety minutes, whenever the process was started.
package boundary

import (
	"errors"
	"fmt"
	"time"
)

// Static errors for interval validation.
var (
	// ErrNonPositiveLength is returned when the interval length is zero or negative.
	ErrNonPositiveLength = errors.New("boundary: interval length must be positive")
	// ErrNegativePadding is returned when the padding is negative.
	ErrNegativePadding = errors.New("boundary: padding must not be negative")
	// ErrPaddingTooLong is returned when padding is not shorter than half the interval.
	ErrPaddingTooLong = errors.New("boundary: padding must be shorter than half the interval")
)

// Interval is the immutable grid configuration in whole seconds.
type Interval struct {
	length  int64
	padding int64
}

// New validates and builds an Interval.
func New(lengthSec, paddingSec int64) (Interval, error) {
	if lengthSec <= 0 {
		return Interval{}, fmt.Errorf("%w: got %d", ErrNonPositiveLength, lengthSec)
	}
	if paddingSec < 0 {
		return Interval{}, fmt.Errorf("%w: got %d", ErrNegativePadding, paddingSec)
	}
	if 2*paddingSec >= lengthSec {
		return Interval{}, fmt.Errorf("%w: padding %ds, interval %ds", ErrPaddingTooLong, paddingSec, lengthSec)
	}
	return Interval{length: lengthSec, padding: paddingSec}, nil
}

// Length returns the interval length.
func (i Interval) Length() time.Duration {
	return time.Duration(i.length) * time.Second
}

// Padding returns the overlap taken on each side of a boundary.
func (i Interval) Padding() time.Duration {
	return time.Duration(i.padding) * time.Second
}

// RemainingToEnd returns the time left until the next interval-end boundary.
// The result is in [0, length) and is zero exactly on a boundary.
func (i Interval) RemainingToEnd(now time.Time) time.Duration {
	rem := mod(i.length-mod(now.Unix(), i.length), i.length)
	return time.Duration(rem) * time.Second
}

// RemainingToPadding returns the time left until the next padding point,
// the instant padding seconds after an interval-end boundary.
func (i Interval) RemainingToPadding(now time.Time) time.Duration {
	rem := mod(i.padding-mod(now.Unix(), i.length), i.length)
	return time.Duration(rem) * time.Second
}

// Slot returns the index of the grid slot containing now.
func (i Interval) Slot(now time.Time) int64 {
	return floorDiv(now.Unix(), i.length)
}

// NextEnd returns the first interval-end boundary strictly after now.
// A segment starting exactly on a boundary runs for one full interval.
func (i Interval) NextEnd(now time.Time) time.Time {
	return time.Unix((i.Slot(now)+1)*i.length, 0)
}

// PaddingPoint returns the padding point that follows the given boundary.
func (i Interval) PaddingPoint(end time.Time) time.Time {
	return end.Add(i.Padding())
}

// ClosePoint returns the instant padding seconds before the given boundary,
// where live recording of a segment stops and its padding tail begins.
func (i Interval) ClosePoint(end time.Time) time.Time {
	return end.Add(-i.Padding())
}

// NextClose returns the interval-end boundary whose close point is the
// first one strictly after now, together with that close point. A segment
// starting at now records live audio until closeAt and pads until
// PaddingPoint(end), so the window [closeAt, PaddingPoint(end)) is shared
// with the next segment.
func (i Interval) NextClose(now time.Time) (end, closeAt time.Time) {
	end = i.NextEnd(now.Add(i.Padding()))
	return end, i.ClosePoint(end)
}

// String returns a human-readable representation of the interval.
func (i Interval) String() string {
	return fmt.Sprintf("Interval{Length: %s, Padding: %s}", i.Length(), i.Padding())
}

func mod(a, n int64) int64 {
	r := a % n
	if r < 0 {
		r += n
	}
	return r
}

func floorDiv(a, n int64) int64 {
	q := a / n
	if a%n != 0 && a < 0 {
		q--
	}
	return q
}
