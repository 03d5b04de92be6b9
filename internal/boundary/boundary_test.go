package boundary

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		length  int64
		padding int64
		wantErr error
	}{
		{"hourly with five minute padding", 3600, 300, nil},
		{"no padding", 90, 0, nil},
		{"zero length", 0, 0, ErrNonPositiveLength},
		{"negative length", -60, 0, ErrNonPositiveLength},
		{"negative padding", 60, -1, ErrNegativePadding},
		{"padding equal to half", 60, 30, ErrPaddingTooLong},
		{"padding longer than half", 60, 45, ErrPaddingTooLong},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			iv, err := New(tt.length, tt.padding)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, time.Duration(tt.length)*time.Second, iv.Length())
			assert.Equal(t, time.Duration(tt.padding)*time.Second, iv.Padding())
		})
	}
}

func TestInterval_RemainingToEnd_Range(t *testing.T) {
	for _, length := range []int64{90, 3600, 5400} {
		iv, err := New(length, 0)
		require.NoError(t, err)

		for sec := int64(1_700_000_000); sec < 1_700_000_000+2*length; sec += 7 {
			rem := iv.RemainingToEnd(time.Unix(sec, 0))
			assert.GreaterOrEqual(t, rem, time.Duration(0))
			assert.Less(t, rem, iv.Length())
			if sec%length == 0 {
				assert.Zero(t, rem, "expected zero on boundary %d", sec)
			} else {
				assert.NotZero(t, rem, "expected non-zero off boundary %d", sec)
			}
		}
	}
}

func TestInterval_RemainingToEnd_Examples(t *testing.T) {
	iv, err := New(3600, 300)
	require.NoError(t, err)

	top := time.Unix(1_704_103_200, 0) // 2024-01-01T10:00:00Z
	assert.Zero(t, iv.RemainingToEnd(top))
	assert.Equal(t, 55*time.Minute, iv.RemainingToEnd(top.Add(5*time.Minute)))
	assert.Equal(t, time.Second, iv.RemainingToEnd(top.Add(59*time.Minute+59*time.Second)))
}

func TestInterval_RemainingToPadding(t *testing.T) {
	iv, err := New(3600, 300)
	require.NoError(t, err)

	top := time.Unix(1_704_103_200, 0)
	assert.Equal(t, 5*time.Minute, iv.RemainingToPadding(top))
	assert.Equal(t, 2*time.Minute, iv.RemainingToPadding(top.Add(3*time.Minute)))
	assert.Zero(t, iv.RemainingToPadding(top.Add(5*time.Minute)))
	// Past the padding point the next one is in the following interval.
	assert.Equal(t, 59*time.Minute, iv.RemainingToPadding(top.Add(6*time.Minute)))
}

func TestInterval_NextEnd(t *testing.T) {
	iv, err := New(3600, 300)
	require.NoError(t, err)

	top := time.Unix(1_704_103_200, 0)
	next := time.Unix(1_704_106_800, 0)

	t.Run("start on boundary runs a full interval", func(t *testing.T) {
		assert.True(t, next.Equal(iv.NextEnd(top)))
	})

	t.Run("start inside interval ends at next boundary", func(t *testing.T) {
		assert.True(t, next.Equal(iv.NextEnd(top.Add(5*time.Minute))))
		assert.True(t, next.Equal(iv.NextEnd(next.Add(-time.Second))))
	})

	t.Run("padding point follows boundary", func(t *testing.T) {
		assert.True(t, next.Add(5*time.Minute).Equal(iv.PaddingPoint(next)))
	})
}

func TestInterval_NextClose(t *testing.T) {
	iv, err := New(3600, 300)
	require.NoError(t, err)

	top := time.Unix(1_704_103_200, 0) // 10:00:00Z
	next := top.Add(time.Hour)

	tests := []struct {
		name      string
		now       time.Time
		wantEnd   time.Time
		wantClose time.Time
	}{
		{"cold start on boundary", top, next, next.Add(-5 * time.Minute)},
		{"start at padding point", top.Add(5 * time.Minute), next, next.Add(-5 * time.Minute)},
		{"one second before close", next.Add(-5*time.Minute - time.Second), next, next.Add(-5 * time.Minute)},
		{"inside close window skips to next interval", next.Add(-2 * time.Minute), next.Add(time.Hour), next.Add(55 * time.Minute)},
		{"exactly on close point", next.Add(-5 * time.Minute), next.Add(time.Hour), next.Add(55 * time.Minute)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			end, closeAt := iv.NextClose(tt.now)
			assert.True(t, tt.wantEnd.Equal(end), "end %v, want %v", end, tt.wantEnd)
			assert.True(t, tt.wantClose.Equal(closeAt), "close %v, want %v", closeAt, tt.wantClose)
			assert.True(t, closeAt.After(tt.now))
			assert.True(t, iv.ClosePoint(end).Equal(closeAt))
		})
	}
}

func TestInterval_ZeroPaddingClosesOnBoundary(t *testing.T) {
	iv, err := New(90, 0)
	require.NoError(t, err)

	now := time.Unix(1_704_103_200, 0)
	end, closeAt := iv.NextClose(now)
	assert.True(t, end.Equal(closeAt))
	assert.True(t, iv.NextEnd(now).Equal(end))
}

func TestInterval_GridIgnoresTimezone(t *testing.T) {
	iv, err := New(5400, 0)
	require.NoError(t, err)

	loc := time.FixedZone("UTC+5:30", 5*3600+1800)
	now := time.Date(2024, 1, 1, 10, 7, 0, 0, loc)
	end := iv.NextEnd(now)

	assert.Zero(t, end.Unix()%5400)
	assert.Equal(t, iv.Slot(now)+1, iv.Slot(end))
}

func TestManualClock(t *testing.T) {
	start := time.Unix(100, 0)
	c := NewManualClock(start)
	assert.True(t, start.Equal(c.Now()))

	c.Advance(1500 * time.Millisecond)
	assert.True(t, start.Add(1500*time.Millisecond).Equal(c.Now()))

	c.Set(time.Unix(5, 0))
	assert.Equal(t, int64(5), c.Now().Unix())
}
