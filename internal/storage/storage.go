// Package storage provides the archive directory where segment files live.
// It defines the Storage interface (port) and implementations for local
// disk and for local disk mirrored to S3.
package storage

import (
	"context"
	"errors"
	"os"
)

// ErrNotFound is returned when a named archive file does not exist.
var ErrNotFound = errors.New("archive file not found")

// Storage defines the archive file operations used by the archiver.
// Names are bare file names relative to the archive directory.
type Storage interface {
	// Dir returns the archive directory.
	Dir() string

	// Path returns the full path of name inside the archive directory.
	Path(name string) string

	// Exists reports whether name is already present in the archive.
	Exists(name string) bool

	// Create creates (or truncates) name for writing.
	// The caller is responsible for closing the returned file.
	Create(ctx context.Context, name string) (*os.File, error)

	// Remove deletes name. A missing file yields ErrNotFound.
	Remove(ctx context.Context, name string) error

	// List returns the archive files, oldest first.
	List(ctx context.Context) ([]string, error)

	// Publish makes a finished archive file durable beyond local disk and
	// returns its remote location. Returns ErrS3NotConfigured when no
	// remote is configured.
	Publish(ctx context.Context, name string) (location string, err error)
}
