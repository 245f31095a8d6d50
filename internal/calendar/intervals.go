package calendar

import (
	"errors"
	"fmt"
	"sort"
)

// ErrInvalidRange is returned when a time range ends before it starts.
var ErrInvalidRange = errors.New("invalid time range: start is after end")

// Overlaps reports whether r and other share any instant.
// Ranges are half-open, so touching ranges do not overlap.
func (r TimeRange) Overlaps(other TimeRange) bool {
	return r.Start.Before(other.End) && r.End.After(other.Start)
}

// Valid reports whether the range starts no later than it ends.
func (r TimeRange) Valid() bool {
	return !r.Start.After(r.End)
}

// MergeRanges collapses overlapping busy ranges into a sorted set of
// non-overlapping ranges. A range is folded into its predecessor only when
// it starts strictly before the predecessor ends; ranges that merely touch
// stay separate. The input slice is not modified.
//
// Malformed ranges (start after end) are rejected with ErrInvalidRange.
func MergeRanges(ranges []TimeRange) ([]TimeRange, error) {
	if len(ranges) == 0 {
		return nil, nil
	}

	for i, r := range ranges {
		if !r.Valid() {
			return nil, fmt.Errorf("range %d (%s - %s): %w", i,
				r.Start.Format(timeLayout), r.End.Format(timeLayout), ErrInvalidRange)
		}
	}

	sorted := make([]TimeRange, len(ranges))
	copy(sorted, ranges)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Start.Equal(sorted[j].Start) {
			return sorted[i].End.Before(sorted[j].End)
		}
		return sorted[i].Start.Before(sorted[j].Start)
	})

	merged := make([]TimeRange, 0, len(sorted))
	current := sorted[0]
	for _, next := range sorted[1:] {
		if next.Start.Before(current.End) {
			if next.End.After(current.End) {
				current.End = next.End
			}
			continue
		}
		merged = append(merged, current)
		current = next
	}
	merged = append(merged, current)

	return merged, nil
}

// overlapsAny reports whether slot overlaps any of the given ranges.
// busy must be sorted by start, as returned by MergeRanges.
func overlapsAny(slot TimeRange, busy []TimeRange) bool {
	for _, b := range busy {
		if !b.Start.Before(slot.End) {
			return false
		}
		if slot.Overlaps(b) {
			return true
		}
	}
	return false
}
