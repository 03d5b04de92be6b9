package retention

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var errMissing = errors.New("file not found")

// mockRemover implements Remover for testing.
type mockRemover struct {
	mock.Mock
}

func (m *mockRemover) Remove(ctx context.Context, name string) error {
	args := m.Called(ctx, name)
	return args.Error(0)
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestLedger(t *testing.T, capacity int, rm Remover) *Ledger {
	t.Helper()
	l, err := NewLedger(capacity, rm, quietLogger())
	require.NoError(t, err)
	return l
}

func TestNewLedger(t *testing.T) {
	t.Run("starts full of placeholders", func(t *testing.T) {
		l := newTestLedger(t, 3, new(mockRemover))
		assert.Equal(t, 3, l.Len())
		assert.Equal(t, []string{"", "", ""}, l.Entries())
		assert.Empty(t, l.Files())
	})

	t.Run("rejects zero capacity", func(t *testing.T) {
		_, err := NewLedger(0, new(mockRemover), nil)
		assert.ErrorIs(t, err, ErrInvalidCapacity)
	})
}

func TestLedger_AdmitEvictsOldest(t *testing.T) {
	ctx := context.Background()
	rm := new(mockRemover)
	rm.On("Remove", mock.Anything, "A").Return(nil).Once()
	l := newTestLedger(t, 3, rm)

	for _, name := range []string{"A", "B", "C"} {
		ev := l.Admit(ctx, name)
		assert.Empty(t, ev.Name, "placeholders are evicted first")
		assert.False(t, ev.Deleted())
	}
	rm.AssertNotCalled(t, "Remove", mock.Anything, mock.Anything)

	ev := l.Admit(ctx, "D")
	assert.Equal(t, "A", ev.Name)
	assert.True(t, ev.Deleted())
	assert.Equal(t, []string{"B", "C", "D"}, l.Entries())
	assert.Equal(t, 3, l.Len())
	rm.AssertExpectations(t)
}

func TestLedger_SizeInvariant(t *testing.T) {
	ctx := context.Background()
	rm := new(mockRemover)
	rm.On("Remove", mock.Anything, mock.Anything).Return(nil)
	l := newTestLedger(t, 5, rm)

	for i := 0; i < 50; i++ {
		l.Admit(ctx, string(rune('a'+i%26))+"-file")
		assert.Equal(t, 5, l.Len())
		assert.LessOrEqual(t, len(l.Files()), 5)
	}
	rm.AssertNumberOfCalls(t, "Remove", 45)
}

func TestLedger_EvictionFailureIsNonFatal(t *testing.T) {
	ctx := context.Background()
	rm := new(mockRemover)
	rm.On("Remove", mock.Anything, "A").Return(errMissing).Once()
	l := newTestLedger(t, 1, rm)

	l.Admit(ctx, "A")
	ev := l.Admit(ctx, "B")

	assert.Equal(t, "A", ev.Name)
	assert.ErrorIs(t, ev.Err, errMissing)
	assert.False(t, ev.Deleted())
	assert.Equal(t, []string{"B"}, l.Entries())
	rm.AssertExpectations(t)
}

func TestLedger_Seed(t *testing.T) {
	ctx := context.Background()

	t.Run("fewer files than capacity keeps placeholders first", func(t *testing.T) {
		rm := new(mockRemover)
		l := newTestLedger(t, 4, rm)

		evicted := l.Seed(ctx, []string{"old", "new"})
		assert.Empty(t, evicted)
		assert.Equal(t, []string{"", "", "old", "new"}, l.Entries())
		rm.AssertNotCalled(t, "Remove", mock.Anything, mock.Anything)
	})

	t.Run("more files than capacity evicts the oldest", func(t *testing.T) {
		rm := new(mockRemover)
		rm.On("Remove", mock.Anything, "1").Return(nil).Once()
		rm.On("Remove", mock.Anything, "2").Return(nil).Once()
		l := newTestLedger(t, 2, rm)

		evicted := l.Seed(ctx, []string{"1", "2", "3", "4"})
		require.Len(t, evicted, 2)
		assert.Equal(t, "1", evicted[0].Name)
		assert.Equal(t, "2", evicted[1].Name)
		assert.Equal(t, []string{"3", "4"}, l.Entries())
		rm.AssertExpectations(t)
	})
}
