package calendar

import (
	"errors"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testDay = time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)

// at returns a time on the test day.
func at(hour, minute int) time.Time {
	return testDay.Add(time.Duration(hour)*time.Hour + time.Duration(minute)*time.Minute)
}

func rng(h1, m1, h2, m2 int) TimeRange {
	return TimeRange{Start: at(h1, m1), End: at(h2, m2)}
}

func TestMergeRanges(t *testing.T) {
	tests := []struct {
		name  string
		input []TimeRange
		want  []TimeRange
	}{
		{
			name:  "empty",
			input: nil,
			want:  nil,
		},
		{
			name:  "single range unchanged",
			input: []TimeRange{rng(9, 0, 10, 0)},
			want:  []TimeRange{rng(9, 0, 10, 0)},
		},
		{
			name:  "overlapping and separate",
			input: []TimeRange{rng(8, 0, 9, 0), rng(8, 30, 10, 0), rng(14, 0, 14, 30)},
			want:  []TimeRange{rng(8, 0, 10, 0), rng(14, 0, 14, 30)},
		},
		{
			name:  "unsorted input",
			input: []TimeRange{rng(14, 0, 14, 30), rng(8, 30, 10, 0), rng(8, 0, 9, 0)},
			want:  []TimeRange{rng(8, 0, 10, 0), rng(14, 0, 14, 30)},
		},
		{
			name:  "nested range absorbed",
			input: []TimeRange{rng(9, 0, 12, 0), rng(10, 0, 11, 0)},
			want:  []TimeRange{rng(9, 0, 12, 0)},
		},
		{
			name:  "touching ranges stay separate",
			input: []TimeRange{rng(9, 0, 10, 0), rng(10, 0, 11, 0)},
			want:  []TimeRange{rng(9, 0, 10, 0), rng(10, 0, 11, 0)},
		},
		{
			name:  "duplicates collapse",
			input: []TimeRange{rng(9, 0, 10, 0), rng(9, 0, 10, 0)},
			want:  []TimeRange{rng(9, 0, 10, 0)},
		},
		{
			name:  "same start different end",
			input: []TimeRange{rng(9, 0, 11, 0), rng(9, 0, 9, 30)},
			want:  []TimeRange{rng(9, 0, 11, 0)},
		},
		{
			name:  "chain of overlaps",
			input: []TimeRange{rng(9, 0, 10, 0), rng(9, 45, 11, 0), rng(10, 30, 12, 0)},
			want:  []TimeRange{rng(9, 0, 12, 0)},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := MergeRanges(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestMergeRanges_InvalidRange(t *testing.T) {
	_, err := MergeRanges([]TimeRange{rng(9, 0, 10, 0), rng(11, 0, 10, 0)})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalidRange))
	assert.Contains(t, err.Error(), "range 1")
}

func TestMergeRanges_DoesNotMutateInput(t *testing.T) {
	input := []TimeRange{rng(14, 0, 15, 0), rng(9, 0, 10, 0)}
	original := append([]TimeRange(nil), input...)

	_, err := MergeRanges(input)
	require.NoError(t, err)
	assert.Equal(t, original, input)
}

func TestMergeRanges_Properties(t *testing.T) {
	r := rand.New(rand.NewSource(42))

	for iter := 0; iter < 200; iter++ {
		n := r.Intn(12)
		input := make([]TimeRange, n)
		for i := range input {
			start := r.Intn(48) * 15
			length := r.Intn(8) * 15
			input[i] = TimeRange{
				Start: testDay.Add(time.Duration(start) * time.Minute),
				End:   testDay.Add(time.Duration(start+length) * time.Minute),
			}
		}

		merged, err := MergeRanges(input)
		require.NoError(t, err)

		for i := 1; i < len(merged); i++ {
			assert.False(t, merged[i].Start.Before(merged[i-1].End), "output must be sorted and non-overlapping")
		}

		// Every minute covered by an input range is covered by exactly one output range.
		for minute := 0; minute < 24*60; minute++ {
			p := TimeRange{Start: testDay.Add(time.Duration(minute) * time.Minute), End: testDay.Add(time.Duration(minute+1) * time.Minute)}
			inInput := false
			for _, in := range input {
				if p.Overlaps(in) {
					inInput = true
					break
				}
			}
			covering := 0
			for _, out := range merged {
				if p.Overlaps(out) {
					covering++
				}
			}
			if inInput {
				assert.Equal(t, 1, covering, "minute %d", minute)
			} else {
				assert.Equal(t, 0, covering, "minute %d", minute)
			}
		}

		again, err := MergeRanges(merged)
		require.NoError(t, err)
		assert.Equal(t, merged, again, "merge must be idempotent")
	}
}

func TestTimeRange_Overlaps(t *testing.T) {
	tests := []struct {
		name string
		a, b TimeRange
		want bool
	}{
		{"overlap", rng(9, 0, 10, 0), rng(9, 30, 10, 30), true},
		{"contained", rng(9, 0, 12, 0), rng(10, 0, 11, 0), true},
		{"touching", rng(9, 0, 10, 0), rng(10, 0, 11, 0), false},
		{"disjoint", rng(9, 0, 10, 0), rng(11, 0, 12, 0), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.a.Overlaps(tt.b))
			assert.Equal(t, tt.want, tt.b.Overlaps(tt.a))
		})
	}
}
