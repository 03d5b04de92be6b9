package runid

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"
	"time"
)

func TestGenerate(t *testing.T) {
	now := time.Unix(1_704_103_200, 0)
	id := Generate(now)

	if !strings.HasPrefix(id, "run-") {
		t.Errorf("expected ID to start with 'run-', got %s", id)
	}

	started, err := Time(id)
	if err != nil {
		t.Fatalf("Time(%q) failed: %v", id, err)
	}
	if !started.Equal(now) {
		t.Errorf("expected start %v, got %v", now, started)
	}

	id2 := Generate(now)
	if id == id2 {
		t.Error("expected different IDs for consecutive calls")
	}
}

func TestGenerate_Uniqueness(t *testing.T) {
	seen := make(map[string]bool)
	now := time.Now()
	for i := 0; i < 1000; i++ {
		id := Generate(now)
		if seen[id] {
			t.Errorf("duplicate ID generated: %s", id)
		}
		seen[id] = true
	}
}

func TestTime_Invalid(t *testing.T) {
	if _, err := Time("run-not-a-ulid"); err == nil {
		t.Error("expected error for malformed ID")
	}
}

func TestLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := Logger(slog.New(slog.NewTextHandler(&buf, nil)), "run-1-abc")

	logger.Info("hello")

	if !strings.Contains(buf.String(), "run_id=run-1-abc") {
		t.Errorf("expected run_id attribute, got %q", buf.String())
	}
}
