// Package journal appends one human-readable line per archived segment to
// the segment log: the file name and the wall-clock time it was finalized.
package journal

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// TimeLayout is the timestamp format of journal lines.
const TimeLayout = time.ANSIC

// ErrClosed is returned when recording to a closed journal.
var ErrClosed = errors.New("journal: closed")

// Line formats the journal line for name finalized at at.
func Line(name string, at time.Time) string {
	return fmt.Sprintf("%s\t%s\n", name, at.Format(TimeLayout))
}

// Journal is an append-only segment log.
type Journal struct {
	mu   sync.Mutex
	path string
	file *os.File
}

// Open opens (creating if needed) the journal at path for appending.
func Open(path string) (*Journal, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0750); err != nil {
		return nil, fmt.Errorf("create journal directory: %w", err)
	}

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0640) // #nosec G304 - path from config
	if err != nil {
		return nil, fmt.Errorf("open journal: %w", err)
	}
	return &Journal{path: path, file: f}, nil
}

// Path returns the journal file path.
func (j *Journal) Path() string {
	return j.path
}

// Record appends a line for name.
func (j *Journal) Record(name string, at time.Time) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	if j.file == nil {
		return ErrClosed
	}
	if _, err := j.file.WriteString(Line(name, at)); err != nil {
		return fmt.Errorf("write journal: %w", err)
	}
	return nil
}

// Close closes the journal. It is safe to call more than once.
func (j *Journal) Close() error {
	j.mu.Lock()
	defer j.mu.Unlock()

	if j.file == nil {
		return nil
	}
	err := j.file.Close()
	j.file = nil
	return err
}
