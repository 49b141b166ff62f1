package entities

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/zatekoja/servicemarket/pkg/errors"
)

func at(hour, min int) time.Time {
	return time.Date(2026, 3, 10, hour, min, 0, 0, time.UTC)
}

func span(h1, h2 int) Interval {
	return Interval{Start: at(h1, 0), End: at(h2, 0)}
}

func TestNewInterval(t *testing.T) {
	t.Run("normalises to UTC", func(t *testing.T) {
		lagos := time.FixedZone("WAT", 3600)
		i, err := NewInterval(time.Date(2026, 3, 10, 11, 0, 0, 0, lagos), time.Date(2026, 3, 10, 12, 0, 0, 0, lagos))
		require.NoError(t, err)
		assert.Equal(t, time.UTC, i.Start.Location())
		assert.True(t, i.Start.Equal(at(10, 0)))
		assert.Equal(t, time.Hour, i.Duration())
	})

	t.Run("rejects zero length", func(t *testing.T) {
		_, err := NewInterval(at(10, 0), at(10, 0))
		assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeValidation))
	})

	t.Run("rejects inverted", func(t *testing.T) {
		_, err := NewInterval(at(11, 0), at(10, 0))
		assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeValidation))
	})

	t.Run("rejects missing bound", func(t *testing.T) {
		_, err := NewInterval(time.Time{}, at(10, 0))
		assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeValidation))
	})

	t.Run("spans midnight", func(t *testing.T) {
		i, err := NewInterval(at(23, 0), at(23, 0).Add(2*time.Hour))
		require.NoError(t, err)
		assert.Equal(t, 2*time.Hour, i.Duration())
	})
}

func TestInterval_Overlaps(t *testing.T) {
	tests := []struct {
		name string
		a, b Interval
		want bool
	}{
		{"identical", span(10, 11), span(10, 11), true},
		{"partial", span(10, 12), span(11, 13), true},
		{"contained", span(9, 17), span(10, 11), true},
		{"back to back", span(10, 11), span(11, 12), false},
		{"disjoint", span(8, 9), span(10, 11), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.a.Overlaps(tt.b))
			assert.Equal(t, tt.want, tt.b.Overlaps(tt.a))
		})
	}
}

func TestInterval_Subtract(t *testing.T) {
	assert.Equal(t, []Interval{span(9, 10), span(11, 17)}, span(9, 17).Subtract(span(10, 11)))
	assert.Equal(t, []Interval{span(11, 17)}, span(9, 17).Subtract(span(8, 11)))
	assert.Empty(t, span(10, 11).Subtract(span(9, 12)))
	assert.Equal(t, []Interval{span(9, 10)}, span(9, 10).Subtract(span(10, 11)))
}

func TestInterval_Intersect(t *testing.T) {
	got, ok := span(9, 12).Intersect(span(11, 14))
	require.True(t, ok)
	assert.Equal(t, span(11, 12), got)

	_, ok = span(9, 10).Intersect(span(10, 11))
	assert.False(t, ok)
}

func TestMergeIntervals(t *testing.T) {
	got := MergeIntervals([]Interval{span(14, 15), span(9, 10), span(10, 12), span(11, 13)})
	assert.Equal(t, []Interval{span(9, 13), span(14, 15)}, got)
	assert.Nil(t, MergeIntervals(nil))
}
