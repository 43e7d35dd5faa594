package mockdata

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRange(t *testing.T) {
	r, err := ParseRange("", "")
	require.NoError(t, err)
	assert.True(t, r.From.IsZero())
	assert.Equal(t, "..", r.Key())
	assert.Equal(t, DefaultDays, r.Days())

	r, err = ParseRange("2025-01-01", "2025-01-10")
	require.NoError(t, err)
	assert.Equal(t, "2025-01-01..2025-01-10", r.Key())
	assert.Equal(t, 10, r.Days())

	r, err = ParseRange("2024-01-01", "2025-01-01")
	require.NoError(t, err)
	assert.Equal(t, MaxDays, r.Days())

	for _, bad := range [][2]string{{"2025-13-01", ""}, {"", "yesterday"}, {"2025-01-02", "2025-01-01"}} {
		_, err := ParseRange(bad[0], bad[1])
		assert.Error(t, err, bad)
	}
}

func TestRangeLabels(t *testing.T) {
	assert.Equal(t, []string{"D-6", "D-5", "D-4", "D-3", "D-2", "D-1", "D0"}, Range{}.labels())

	r, err := ParseRange("2025-01-30", "2025-02-01")
	require.NoError(t, err)
	assert.Equal(t, []string{"2025-01-30", "2025-01-31", "2025-02-01"}, r.labels())
}

func TestSourcesAreDeterministic(t *testing.T) {
	ctx := context.Background()
	r, err := ParseRange("2025-01-01", "2025-01-07")
	require.NoError(t, err)

	for _, name := range Names() {
		src, ok := Get(name)
		require.True(t, ok, name)
		a, err := src(ctx, r)
		require.NoError(t, err, name)
		b, err := src(ctx, r)
		require.NoError(t, err, name)
		assert.Equal(t, a, b, name)
		assert.NotNil(t, a, name)
	}
}

func TestRangeChangesData(t *testing.T) {
	src, ok := Get("overviewKpis")
	require.True(t, ok)
	a, err := src(context.Background(), Range{})
	require.NoError(t, err)
	b, err := src(context.Background(), Range{
		From: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
		To:   time.Date(2025, 1, 2, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}

func TestGet(t *testing.T) {
	_, ok := Get("doesNotExist")
	assert.False(t, ok)

	src, ok := Get("funnel")
	require.True(t, ok)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := src(ctx, Range{})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestNames(t *testing.T) {
	names := Names()
	assert.Len(t, names, len(registry))
	assert.IsNonDecreasing(t, names)
	assert.Contains(t, names, "weeklyReport")
}

func TestShares(t *testing.T) {
	g := newGen("shares", Range{})
	var sum float64
	for _, v := range g.shares(4) {
		sum += v
	}
	assert.InDelta(t, 1.0, sum, 0.005)
}
