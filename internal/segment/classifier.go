package segment

import "time"

// Classifier decides whether a finished segment is worth archiving.
type Classifier struct {
	// Threshold is in raw sample units for the capture bit depth.
	Threshold int64
}

// Keep reports whether a segment with the given peak is archived. The
// comparison is strict: a peak equal to the threshold is silence.
func (c Classifier) Keep(peak int64) bool {
	return peak > c.Threshold
}

// Classify finalizes seg as kept or discarded and returns the new state.
// A segment that failed to write is always discarded.
func (c Classifier) Classify(seg *Segment, at time.Time) (State, error) {
	if seg.Err() == nil && c.Keep(seg.Peak) {
		return StateKept, seg.Keep(at)
	}
	return StateDiscarded, seg.Discard(at)
}
