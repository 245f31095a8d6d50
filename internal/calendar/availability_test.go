package calendar

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeQuerier struct {
	infos []FreeBusyInfo
	err   error
	wait  bool

	calls  int
	gotIDs []string
	gotMin time.Time
	gotMax time.Time
}

func (f *fakeQuerier) QueryFreeBusy(ctx context.Context, timeMin, timeMax time.Time, calendarIDs []string) ([]FreeBusyInfo, error) {
	f.calls++
	f.gotIDs = calendarIDs
	f.gotMin = timeMin
	f.gotMax = timeMax
	if f.wait {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	return f.infos, f.err
}

func newTestCalculator(t *testing.T, q FreeBusyQuerier, now time.Time) *Calculator {
	t.Helper()
	c, err := NewCalculator(q, AvailabilityConfig{
		Location: time.UTC,
		Now:      func() time.Time { return now },
	})
	require.NoError(t, err)
	return c
}

func slotStarts(slots []AvailableSlot) []string {
	out := make([]string, len(slots))
	for i, s := range slots {
		out[i] = s.Start.Format("15:04")
	}
	return out
}

// dayBefore is a clock reading before the test day begins.
var dayBefore = testDay.Add(-24 * time.Hour)

func TestFindSlots_FirstSlotAfterBusyMorning(t *testing.T) {
	q := &fakeQuerier{infos: []FreeBusyInfo{
		{Calendar: "primary", Busy: []TimeRange{rng(8, 0, 9, 0)}},
	}}
	c := newTestCalculator(t, q, dayBefore)

	res, err := c.FindSlots(context.Background(), AvailabilityRequest{Date: testDay, Duration: 30 * time.Minute})
	require.NoError(t, err)

	assert.Equal(t, StatusAvailable, res.Status)
	require.NotEmpty(t, res.Slots)
	assert.Equal(t, at(9, 0), res.Slots[0].Start)
	// 09:00 through 16:30 inclusive.
	assert.Len(t, res.Slots, 16)
	assert.Equal(t, at(16, 30), res.Slots[len(res.Slots)-1].Start)
}

func TestFindSlots_QueriesPrimaryAndAttendees(t *testing.T) {
	q := &fakeQuerier{}
	c := newTestCalculator(t, q, dayBefore)

	_, err := c.FindSlots(context.Background(), AvailabilityRequest{
		Attendees: []string{"a@example.com", "", "b@example.com", "a@example.com"},
		Date:      testDay,
		Duration:  time.Hour,
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"primary", "a@example.com", "b@example.com"}, q.gotIDs)
	assert.Equal(t, at(8, 0), q.gotMin)
	assert.Equal(t, at(17, 0), q.gotMax)
}

func TestFindSlots_MergesAcrossAttendees(t *testing.T) {
	q := &fakeQuerier{infos: []FreeBusyInfo{
		{Calendar: "primary", Busy: []TimeRange{rng(8, 0, 9, 0), rng(14, 0, 14, 30)}},
		{Calendar: "a@example.com", Busy: []TimeRange{rng(8, 30, 10, 0)}},
		{Calendar: "b@example.com"},
		{Calendar: "c@example.com", Busy: []TimeRange{rng(10, 30, 16, 0)}},
	}}
	c := newTestCalculator(t, q, dayBefore)

	res, err := c.FindSlots(context.Background(), AvailabilityRequest{
		Attendees: []string{"a@example.com", "b@example.com", "c@example.com"},
		Date:      testDay,
		Duration:  30 * time.Minute,
	})
	require.NoError(t, err)

	assert.Equal(t, []TimeRange{rng(8, 0, 10, 0), rng(10, 30, 16, 0)}, res.Busy)
	assert.Equal(t, []string{"10:00", "16:00", "16:30"}, slotStarts(res.Slots))
}

func TestFindSlots_DurationLongerThanStep(t *testing.T) {
	q := &fakeQuerier{infos: []FreeBusyInfo{
		{Calendar: "primary", Busy: []TimeRange{rng(9, 0, 16, 0)}},
	}}
	c := newTestCalculator(t, q, dayBefore)

	res, err := c.FindSlots(context.Background(), AvailabilityRequest{Date: testDay, Duration: time.Hour})
	require.NoError(t, err)

	// 08:00 fits before the busy block; 16:00 is the last start that ends by 17:00.
	assert.Equal(t, []string{"08:00", "16:00"}, slotStarts(res.Slots))
	for _, s := range res.Slots {
		assert.Equal(t, time.Hour, s.End.Sub(s.Start))
	}
}

func TestFindSlots_FullyBooked(t *testing.T) {
	q := &fakeQuerier{infos: []FreeBusyInfo{
		{Calendar: "primary", Busy: []TimeRange{rng(7, 0, 18, 0)}},
	}}
	c := newTestCalculator(t, q, dayBefore)

	res, err := c.FindSlots(context.Background(), AvailabilityRequest{Date: testDay, Duration: 30 * time.Minute})
	require.NoError(t, err)

	assert.Equal(t, StatusFullyBooked, res.Status)
	assert.Empty(t, res.Slots)
	assert.Contains(t, res.Reason(), "busy")
}

func TestFindSlots_PastDate(t *testing.T) {
	q := &fakeQuerier{}
	c := newTestCalculator(t, q, testDay.Add(48*time.Hour))

	res, err := c.FindSlots(context.Background(), AvailabilityRequest{Date: testDay, Duration: 30 * time.Minute})
	require.NoError(t, err)

	assert.Equal(t, StatusPastDate, res.Status)
	assert.Empty(t, res.Slots)
	assert.Equal(t, 0, q.calls, "no backend call for a past date")
	assert.Contains(t, res.Reason(), "in the past")
}

func TestFindSlots_NoFitIsDistinctFromPastDate(t *testing.T) {
	q := &fakeQuerier{}
	c, err := NewCalculator(q, AvailabilityConfig{
		Location:  time.UTC,
		WorkHours: WorkHours{StartHour: 8, EndHour: 9},
		Now:       func() time.Time { return dayBefore },
	})
	require.NoError(t, err)

	res, err := c.FindSlots(context.Background(), AvailabilityRequest{Date: testDay, Duration: time.Hour})
	require.NoError(t, err)
	assert.Equal(t, StatusAvailable, res.Status, "a 60 minute slot fits 08:00-09:00 exactly")

	res, err = c.FindSlots(context.Background(), AvailabilityRequest{Date: testDay, Duration: 90 * time.Minute})
	require.NoError(t, err)
	assert.Equal(t, StatusNoFit, res.Status)
	assert.NotEqual(t, StatusPastDate, res.Status)
	assert.Equal(t, 1, q.calls, "no backend call when nothing can fit")
}

func TestFindSlots_TodayRoundsUpToGrid(t *testing.T) {
	tests := []struct {
		name      string
		now       time.Time
		wantStart time.Time
		wantFirst string
	}{
		{"mid slot", at(10, 10), at(10, 30), "10:30"},
		{"on boundary", at(11, 0), at(11, 0), "11:00"},
		{"just past boundary", at(11, 0).Add(time.Second), at(11, 30), "11:30"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := &fakeQuerier{}
			c := newTestCalculator(t, q, tt.now)

			res, err := c.FindSlots(context.Background(), AvailabilityRequest{Date: testDay, Duration: 30 * time.Minute})
			require.NoError(t, err)

			assert.Equal(t, tt.wantStart, res.Window.Start)
			assert.Equal(t, tt.wantStart, q.gotMin)
			require.NotEmpty(t, res.Slots)
			assert.Equal(t, tt.wantFirst, res.Slots[0].Start.Format("15:04"))
		})
	}
}

func TestFindSlots_TodayNearClose(t *testing.T) {
	q := &fakeQuerier{}
	c := newTestCalculator(t, q, at(16, 50))

	res, err := c.FindSlots(context.Background(), AvailabilityRequest{Date: testDay, Duration: 30 * time.Minute})
	require.NoError(t, err)

	assert.Equal(t, StatusNoFit, res.Status)
	assert.Equal(t, at(17, 0), res.Window.Start, "rounded start is clamped to the window end")
	assert.Equal(t, 0, q.calls)
}

func TestFindSlots_InputValidation(t *testing.T) {
	q := &fakeQuerier{}
	c := newTestCalculator(t, q, dayBefore)

	_, err := c.FindSlots(context.Background(), AvailabilityRequest{Date: testDay, Duration: 0})
	assert.True(t, errors.Is(err, ErrInvalidDuration))

	_, err = c.FindSlots(context.Background(), AvailabilityRequest{Date: testDay, Duration: -time.Minute})
	assert.True(t, errors.Is(err, ErrInvalidDuration))

	_, err = c.FindSlots(context.Background(), AvailabilityRequest{Duration: time.Hour})
	assert.True(t, errors.Is(err, ErrInvalidDate))

	assert.Equal(t, 0, q.calls)
}

func TestFindSlots_BackendErrors(t *testing.T) {
	t.Run("failure is wrapped", func(t *testing.T) {
		q := &fakeQuerier{err: errors.New("boom")}
		c := newTestCalculator(t, q, dayBefore)

		_, err := c.FindSlots(context.Background(), AvailabilityRequest{Date: testDay, Duration: time.Hour})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "boom")
		assert.False(t, IsTransient(err))
	})

	t.Run("timeout is transient", func(t *testing.T) {
		q := &fakeQuerier{wait: true}
		c, err := NewCalculator(q, AvailabilityConfig{
			Location: time.UTC,
			Timeout:  10 * time.Millisecond,
			Now:      func() time.Time { return dayBefore },
		})
		require.NoError(t, err)

		_, err = c.FindSlots(context.Background(), AvailabilityRequest{Date: testDay, Duration: time.Hour})
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrBackendTimeout))
		assert.True(t, IsTransient(err))
	})

	t.Run("per calendar errors become warnings", func(t *testing.T) {
		q := &fakeQuerier{infos: []FreeBusyInfo{
			{Calendar: "primary"},
			{Calendar: "x@example.com", Errors: []string{"notFound"}},
		}}
		c := newTestCalculator(t, q, dayBefore)

		res, err := c.FindSlots(context.Background(), AvailabilityRequest{
			Attendees: []string{"x@example.com"},
			Date:      testDay,
			Duration:  time.Hour,
		})
		require.NoError(t, err)
		assert.Equal(t, []string{"x@example.com: notFound"}, res.Warnings)
		assert.Contains(t, res.Format(), "Warnings:")
	})

	t.Run("malformed busy data", func(t *testing.T) {
		q := &fakeQuerier{infos: []FreeBusyInfo{
			{Calendar: "primary", Busy: []TimeRange{rng(11, 0, 10, 0)}},
		}}
		c := newTestCalculator(t, q, dayBefore)

		_, err := c.FindSlots(context.Background(), AvailabilityRequest{Date: testDay, Duration: time.Hour})
		assert.True(t, errors.Is(err, ErrInvalidRange))
	})
}

func TestFindSlots_SoundAndComplete(t *testing.T) {
	busy := []TimeRange{rng(8, 15, 9, 5), rng(11, 0, 11, 45), rng(13, 30, 15, 0), rng(16, 40, 17, 30)}
	q := &fakeQuerier{infos: []FreeBusyInfo{{Calendar: "primary", Busy: busy}}}
	c := newTestCalculator(t, q, dayBefore)

	for _, d := range []time.Duration{15 * time.Minute, 30 * time.Minute, 45 * time.Minute, 2 * time.Hour} {
		res, err := c.FindSlots(context.Background(), AvailabilityRequest{Date: testDay, Duration: d})
		require.NoError(t, err)

		got := map[time.Time]bool{}
		for i, s := range res.Slots {
			if i > 0 {
				assert.True(t, s.Start.After(res.Slots[i-1].Start), "strictly increasing")
			}
			assert.False(t, s.Start.Before(res.Window.Start))
			assert.False(t, s.End.After(res.Window.End))
			for _, b := range busy {
				assert.False(t, TimeRange{Start: s.Start, End: s.End}.Overlaps(b))
			}
			got[s.Start] = true
		}

		for start := at(8, 0); !start.Add(d).After(at(17, 0)); start = start.Add(30 * time.Minute) {
			slot := TimeRange{Start: start, End: start.Add(d)}
			free := true
			for _, b := range busy {
				if slot.Overlaps(b) {
					free = false
				}
			}
			assert.Equal(t, free, got[start], "duration %s start %s", d, start.Format("15:04"))
		}
	}
}

func TestParseDate(t *testing.T) {
	loc := time.FixedZone("CET", 3600)

	tests := []struct {
		name    string
		input   string
		want    time.Time
		wantErr bool
	}{
		{"date", "2026-03-10", time.Date(2026, 3, 10, 0, 0, 0, 0, loc), false},
		{"date with spaces", " 2026-03-10 ", time.Date(2026, 3, 10, 0, 0, 0, 0, loc), false},
		{"rfc3339 uses local date", "2026-03-10T23:30:00Z", time.Date(2026, 3, 11, 0, 0, 0, 0, loc), false},
		{"garbage", "next tuesday", time.Time{}, true},
		{"empty", "", time.Time{}, true},
		{"bad month", "2026-13-01", time.Time{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseDate(tt.input, loc)
			if tt.wantErr {
				assert.True(t, errors.Is(err, ErrInvalidDate))
				return
			}
			require.NoError(t, err)
			assert.True(t, tt.want.Equal(got), "got %s", got)
		})
	}
}

func TestNewCalculator_Validation(t *testing.T) {
	_, err := NewCalculator(nil, AvailabilityConfig{})
	assert.Error(t, err)

	_, err = NewCalculator(&fakeQuerier{}, AvailabilityConfig{WorkHours: WorkHours{StartHour: 18, EndHour: 9}})
	assert.Error(t, err)
}
