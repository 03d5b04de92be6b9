// Package retention keeps the archive bounded: a fixed-capacity FIFO of
// archived file names where admitting a new file evicts, and deletes, the
// oldest one.
package retention

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
)

// ErrInvalidCapacity is returned when the ledger capacity is below one.
var ErrInvalidCapacity = errors.New("retention: capacity must be at least 1")

// Remover deletes an archived file.
type Remover interface {
	Remove(ctx context.Context, name string) error
}

// Eviction describes the entry pushed out by an Admit call.
type Eviction struct {
	// Name is the evicted file, empty when a placeholder was evicted.
	Name string
	// Err is the deletion failure, if any. Eviction proceeds regardless.
	Err error
}

// Deleted reports whether a real file was evicted and removed.
func (e Eviction) Deleted() bool {
	return e.Name != "" && e.Err == nil
}

// Ledger is the ordered record of archived files, oldest first. Its length
// always equals its capacity; unused slots hold empty placeholders.
type Ledger struct {
	mu      sync.Mutex
	entries []string
	remover Remover
	logger  *slog.Logger
}

// NewLedger creates a ledger of capacity placeholders.
func NewLedger(capacity int, remover Remover, logger *slog.Logger) (*Ledger, error) {
	if capacity < 1 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidCapacity, capacity)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Ledger{
		entries: make([]string, capacity),
		remover: remover,
		logger:  logger,
	}, nil
}

// Seed admits pre-existing archive files, oldest first. Seeding more files
// than the capacity evicts the oldest of them.
func (l *Ledger) Seed(ctx context.Context, names []string) []Eviction {
	var evicted []Eviction
	for _, name := range names {
		if ev := l.Admit(ctx, name); ev.Name != "" {
			evicted = append(evicted, ev)
		}
	}
	return evicted
}

// Admit evicts the oldest entry, deleting its file if it is not a
// placeholder, and appends name as the newest entry. A failed deletion is
// logged and reported but does not stop the admission.
func (l *Ledger) Admit(ctx context.Context, name string) Eviction {
	l.mu.Lock()
	oldest := l.entries[0]
	copy(l.entries, l.entries[1:])
	l.entries[len(l.entries)-1] = name
	l.mu.Unlock()

	ev := Eviction{Name: oldest}
	if oldest == "" {
		return ev
	}

	if err := l.remover.Remove(ctx, oldest); err != nil {
		ev.Err = err
		l.logger.Warn("failed to delete evicted archive file",
			slog.String("file", oldest),
			slog.String("error", err.Error()),
		)
		return ev
	}
	l.logger.Info("evicted oldest archive file",
		slog.String("file", oldest),
		slog.String("admitted", name),
	)
	return ev
}

// Entries returns a copy of all slots, oldest first, placeholders included.
func (l *Ledger) Entries() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]string, len(l.entries))
	copy(out, l.entries)
	return out
}

// Files returns the archived file names, oldest first.
func (l *Ledger) Files() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]string, 0, len(l.entries))
	for _, e := range l.entries {
		if e != "" {
			out = append(out, e)
		}
	}
	return out
}

// Len returns the number of slots, which is always the capacity.
func (l *Ledger) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}
