// Package runid provides the identifier that ties together every log line
// and metric emitted by one archiver process.
package runid

import (
	"log/slog"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
)

// Key is the structured log attribute name for the run identifier.
const Key = "run_id"

const prefix = "run-"

// Generate creates a new run ID.
// Format: run-<ulid>, where the ULID carries now at millisecond precision.
// Example: run-01HK4X9M00J3Z8W5Q2RB7TNV6C
func Generate(now time.Time) string {
	return prefix + ulid.MustNew(ulid.Timestamp(now), ulid.DefaultEntropy()).String()
}

// Time returns the start time encoded in a run ID.
func Time(id string) (time.Time, error) {
	u, err := ulid.Parse(strings.TrimPrefix(id, prefix))
	if err != nil {
		return time.Time{}, err
	}
	return ulid.Time(u.Time()), nil
}

// Logger returns logger with the run ID attached to every record.
func Logger(logger *slog.Logger, id string) *slog.Logger {
	return logger.With(slog.String(Key, id))
}
