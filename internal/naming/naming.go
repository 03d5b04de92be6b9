// Package naming derives archive file names from the local date and hour
// plus a per-hour sequence number, skipping names already on disk so a
// restart within the same hour never overwrites an earlier segment.
package naming

import (
	"errors"
	"fmt"
	"time"
)

// Extension is the archive container extension.
const Extension = ".wav"

// MaxSequence bounds the per-hour sequence search; NNN has three digits.
const MaxSequence = 1000

// ErrSequenceExhausted is returned when every sequence number for an hour is taken.
var ErrSequenceExhausted = errors.New("naming: sequence numbers exhausted for hour")

// Name formats <prefix>-<YYYY>-<MM>-<DD>-<HH>-<NNN>.wav in t's location.
func Name(prefix string, t time.Time, seq int) string {
	return fmt.Sprintf("%s-%s-%03d%s", prefix, hourKey(t), seq, Extension)
}

func hourKey(t time.Time) string {
	return t.Format("2006-01-02-15")
}

// Resolver tracks the current hour and sequence counter.
type Resolver struct {
	prefix string
	loc    *time.Location
	hour   string
	seq    int
}

// NewResolver creates a Resolver for prefix. Names use loc, or local time
// when loc is nil.
func NewResolver(prefix string, loc *time.Location) *Resolver {
	if loc == nil {
		loc = time.Local
	}
	return &Resolver{prefix: prefix, loc: loc}
}

// Resolve returns the first unused name for the hour containing now.
// exists reports whether a candidate is already taken. The counter resets
// when the date-qualified hour changes.
func (r *Resolver) Resolve(now time.Time, exists func(name string) bool) (string, error) {
	local := now.In(r.loc)
	if key := hourKey(local); key != r.hour {
		r.hour = key
		r.seq = 0
	}

	for ; r.seq < MaxSequence; r.seq++ {
		name := Name(r.prefix, local, r.seq)
		if !exists(name) {
			return name, nil
		}
	}
	return "", fmt.Errorf("%w: %s", ErrSequenceExhausted, r.hour)
}

// Sequence returns the current counter value.
func (r *Resolver) Sequence() int {
	return r.seq
}
