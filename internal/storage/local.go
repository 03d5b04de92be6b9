package storage

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// ErrS3NotConfigured is returned when S3 operations are attempted
// without proper configuration.
var ErrS3NotConfigured = errors.New("S3 storage is not configured")

// ErrInvalidName is returned for names that would escape the archive directory.
var ErrInvalidName = errors.New("invalid archive file name")

// LocalStorage implements the Storage interface using local disk.
// It does not support publishing unless wrapped with S3Storage.
type LocalStorage struct {
	dir string
	ext string
}

var _ Storage = (*LocalStorage)(nil)

// NewLocalStorage creates a new LocalStorage rooted at dir. Only files
// ending in ext are listed. The directory is created if it doesn't exist.
func NewLocalStorage(dir, ext string) (*LocalStorage, error) {
	if dir == "" {
		dir = "."
	}

	if err := os.MkdirAll(dir, 0750); err != nil {
		return nil, fmt.Errorf("create archive directory: %w", err)
	}

	return &LocalStorage{dir: dir, ext: ext}, nil
}

// Dir returns the archive directory path.
func (s *LocalStorage) Dir() string {
	return s.dir
}

// Path returns the full path of name.
func (s *LocalStorage) Path(name string) string {
	return filepath.Join(s.dir, name)
}

// Exists reports whether name exists in the archive directory.
func (s *LocalStorage) Exists(name string) bool {
	_, err := os.Stat(s.Path(name))
	return err == nil
}

// Create creates name in the archive directory, truncating any previous file.
func (s *LocalStorage) Create(ctx context.Context, name string) (*os.File, error) {
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("context cancelled: %w", ctx.Err())
	default:
	}

	if err := validName(name); err != nil {
		return nil, err
	}

	f, err := os.Create(s.Path(name)) // #nosec G304 - name validated above
	if err != nil {
		return nil, fmt.Errorf("create archive file: %w", err)
	}
	return f, nil
}

// Remove deletes name from the archive directory.
func (s *LocalStorage) Remove(ctx context.Context, name string) error {
	select {
	case <-ctx.Done():
		return fmt.Errorf("context cancelled: %w", ctx.Err())
	default:
	}

	if err := validName(name); err != nil {
		return err
	}

	if err := os.Remove(s.Path(name)); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("%w: %s", ErrNotFound, name)
		}
		return fmt.Errorf("remove archive file %s: %w", name, err)
	}
	return nil
}

// List returns the archive file names sorted by name. Names embed the
// date, hour and sequence, so lexical order is chronological order.
func (s *LocalStorage) List(ctx context.Context) ([]string, error) {
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("context cancelled: %w", ctx.Err())
	default:
	}

	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("read archive directory: %w", err)
	}

	var names []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), s.ext) {
			continue
		}
		names = append(names, e.Name())
	}
	sort.Strings(names)
	return names, nil
}

// Publish is not supported by LocalStorage and returns ErrS3NotConfigured.
func (s *LocalStorage) Publish(_ context.Context, _ string) (string, error) {
	return "", ErrS3NotConfigured
}

func validName(name string) error {
	if name == "" || name != filepath.Base(name) || name == "." || name == ".." {
		return fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	return nil
}
