package entities

import (
	"sort"
	"time"

	apperrors "github.com/zatekoja/servicemarket/pkg/errors"
)

// Interval is a half-open span [Start, End) of absolute UTC instants.
type Interval struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// NewInterval normalises both bounds to UTC and rejects empty or inverted spans.
func NewInterval(start, end time.Time) (Interval, error) {
	if start.IsZero() || end.IsZero() {
		return Interval{}, apperrors.NewValidationError("interval bounds are required")
	}
	i := Interval{Start: start.UTC(), End: end.UTC()}
	if !i.End.After(i.Start) {
		return Interval{}, apperrors.NewValidationError("interval end must be after its start")
	}
	return i, nil
}

// Duration returns the length of the interval.
func (i Interval) Duration() time.Duration {
	return i.End.Sub(i.Start)
}

// Overlaps reports whether the two intervals share at least one instant.
// Back-to-back intervals such as [10,11) and [11,12) do not overlap.
func (i Interval) Overlaps(o Interval) bool {
	return i.Start.Before(o.End) && o.Start.Before(i.End)
}

// Touches reports whether the intervals overlap or share a boundary.
func (i Interval) Touches(o Interval) bool {
	return !i.Start.After(o.End) && !o.Start.After(i.End)
}

// Contains reports whether o lies entirely within i.
func (i Interval) Contains(o Interval) bool {
	return !o.Start.Before(i.Start) && !o.End.After(i.End)
}

// Subtract returns the parts of i not covered by o, in order.
func (i Interval) Subtract(o Interval) []Interval {
	if !i.Overlaps(o) {
		return []Interval{i}
	}
	var out []Interval
	if i.Start.Before(o.Start) {
		out = append(out, Interval{Start: i.Start, End: o.Start})
	}
	if o.End.Before(i.End) {
		out = append(out, Interval{Start: o.End, End: i.End})
	}
	return out
}

// Intersect returns the overlapping part of i and o.
func (i Interval) Intersect(o Interval) (Interval, bool) {
	if !i.Overlaps(o) {
		return Interval{}, false
	}
	start, end := i.Start, i.End
	if o.Start.After(start) {
		start = o.Start
	}
	if o.End.Before(end) {
		end = o.End
	}
	return Interval{Start: start, End: end}, true
}

// MergeIntervals coalesces overlapping or touching intervals and returns them sorted.
func MergeIntervals(in []Interval) []Interval {
	if len(in) == 0 {
		return nil
	}
	sorted := make([]Interval, len(in))
	copy(sorted, in)
	sort.Slice(sorted, func(a, b int) bool { return sorted[a].Start.Before(sorted[b].Start) })

	out := []Interval{sorted[0]}
	for _, cur := range sorted[1:] {
		last := &out[len(out)-1]
		if last.Touches(cur) {
			if cur.End.After(last.End) {
				last.End = cur.End
			}
			continue
		}
		out = append(out, cur)
	}
	return out
}
