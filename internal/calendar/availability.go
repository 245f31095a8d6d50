package calendar

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/teemow/concierge/internal/instrumentation"
	"github.com/teemow/concierge/internal/logging"
)

var (
	// ErrInvalidDate is returned when the target date cannot be parsed.
	ErrInvalidDate = errors.New("invalid date")

	// ErrInvalidDuration is returned for zero or negative slot durations.
	ErrInvalidDuration = errors.New("duration must be a positive number of minutes")

	// ErrBackendTimeout is returned when the free/busy query exceeds the
	// configured timeout. It is transient: the user may simply retry.
	ErrBackendTimeout = errors.New("calendar backend timed out")
)

// IsTransient reports whether err is worth retrying later.
func IsTransient(err error) bool {
	return errors.Is(err, ErrBackendTimeout)
}

// FreeBusyQuerier fetches busy periods for a set of calendars.
type FreeBusyQuerier interface {
	QueryFreeBusy(ctx context.Context, timeMin, timeMax time.Time, calendarIDs []string) ([]FreeBusyInfo, error)
}

// WorkHours is the daily scheduling window in local wall-clock hours.
type WorkHours struct {
	StartHour int
	EndHour   int
}

// DefaultWorkHours is 08:00-17:00.
var DefaultWorkHours = WorkHours{StartHour: 8, EndHour: 17}

// Validate checks that the hours describe a non-empty window within one day.
func (w WorkHours) Validate() error {
	if w.StartHour < 0 || w.EndHour > 24 || w.StartHour >= w.EndHour {
		return fmt.Errorf("invalid work hours %02d:00-%02d:00", w.StartHour, w.EndHour)
	}
	return nil
}

const (
	// DefaultStep is the slot grid used for rounding and stepping.
	DefaultStep = 30 * time.Minute

	// DefaultBackendTimeout bounds a single free/busy query.
	DefaultBackendTimeout = 30 * time.Second
)

// AvailabilityConfig configures a Calculator. Zero values fall back to defaults.
type AvailabilityConfig struct {
	CalendarID string
	WorkHours  WorkHours
	Step       time.Duration
	Location   *time.Location
	Timeout    time.Duration
	Now        func() time.Time
	Logger     *slog.Logger
	Metrics    *instrumentation.Metrics
}

// Calculator computes free meeting slots within working hours.
type Calculator struct {
	querier FreeBusyQuerier
	cfg     AvailabilityConfig
}

// NewCalculator creates a Calculator backed by querier.
func NewCalculator(querier FreeBusyQuerier, cfg AvailabilityConfig) (*Calculator, error) {
	if querier == nil {
		return nil, fmt.Errorf("free/busy querier cannot be nil")
	}
	if cfg.CalendarID == "" {
		cfg.CalendarID = PrimaryCalendarID
	}
	if cfg.WorkHours == (WorkHours{}) {
		cfg.WorkHours = DefaultWorkHours
	}
	if err := cfg.WorkHours.Validate(); err != nil {
		return nil, err
	}
	if cfg.Step <= 0 {
		cfg.Step = DefaultStep
	}
	if cfg.Location == nil {
		cfg.Location = time.Local
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultBackendTimeout
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Calculator{querier: querier, cfg: cfg}, nil
}

// Location returns the timezone the calculator anchors dates in.
func (c *Calculator) Location() *time.Location {
	return c.cfg.Location
}

// ParseDate parses a YYYY-MM-DD date (or an RFC3339 timestamp, of which only
// the calendar date in loc is used) and returns local midnight of that date.
func ParseDate(s string, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.Local
	}
	s = strings.TrimSpace(s)
	if d, err := time.ParseInLocation(dateLayout, s, loc); err == nil {
		return d, nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		t = t.In(loc)
		return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc), nil
	}
	return time.Time{}, fmt.Errorf("%w %q: expected YYYY-MM-DD", ErrInvalidDate, s)
}

// AvailabilityStatus classifies an availability result.
type AvailabilityStatus string

const (
	// StatusAvailable means at least one slot is free.
	StatusAvailable AvailabilityStatus = "available"
	// StatusPastDate means the working hours of the date have already ended.
	StatusPastDate AvailabilityStatus = "past_date"
	// StatusNoFit means the remaining window is shorter than the duration.
	StatusNoFit AvailabilityStatus = "no_fit"
	// StatusFullyBooked means every candidate slot overlaps a busy period.
	StatusFullyBooked AvailabilityStatus = "fully_booked"
)

// AvailabilityRequest describes a slot search.
type AvailabilityRequest struct {
	// Attendees are calendar ids (usually email addresses) checked in
	// addition to the primary calendar.
	Attendees []string
	// Date is any instant on the target day; only its date in the
	// calculator's location is used.
	Date     time.Time
	Duration time.Duration
}

// AvailabilityResult is the outcome of a slot search.
type AvailabilityResult struct {
	Status   AvailabilityStatus
	Date     time.Time
	Window   TimeRange
	Duration time.Duration
	Slots    []AvailableSlot
	Busy     []TimeRange
	Warnings []string
}

// FindSlots returns the slots of req.Duration, aligned to the configured step,
// during which the primary calendar and every attendee are free.
func (c *Calculator) FindSlots(ctx context.Context, req AvailabilityRequest) (*AvailabilityResult, error) {
	if req.Duration <= 0 {
		return nil, ErrInvalidDuration
	}
	if req.Date.IsZero() {
		return nil, fmt.Errorf("%w: date is required", ErrInvalidDate)
	}

	started := time.Now()
	result, err := c.findSlots(ctx, req)

	status := instrumentation.StatusError
	if err == nil {
		status = string(result.Status)
	}
	c.cfg.Metrics.RecordAvailabilityQuery(ctx, status, time.Since(started))

	if err != nil {
		c.cfg.Logger.Warn("availability query failed",
			logging.Operation("calendar.find_slots"),
			logging.Err(err))
		return nil, err
	}

	c.cfg.Logger.Debug("availability computed",
		logging.Operation("calendar.find_slots"),
		logging.Status(string(result.Status)),
		slog.Int("slots", len(result.Slots)),
		slog.Int("attendees", len(req.Attendees)))
	return result, nil
}

func (c *Calculator) findSlots(ctx context.Context, req AvailabilityRequest) (*AvailabilityResult, error) {
	loc := c.cfg.Location
	now := c.cfg.Now().In(loc)
	day := req.Date.In(loc)
	date := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, loc)

	window := TimeRange{
		Start: time.Date(day.Year(), day.Month(), day.Day(), c.cfg.WorkHours.StartHour, 0, 0, 0, loc),
		End:   time.Date(day.Year(), day.Month(), day.Day(), c.cfg.WorkHours.EndHour, 0, 0, 0, loc),
	}

	result := &AvailabilityResult{
		Date:     date,
		Window:   window,
		Duration: req.Duration,
	}

	if window.End.Before(now) {
		result.Status = StatusPastDate
		return result, nil
	}

	if window.Start.Before(now) {
		window.Start = ceilToStep(now, c.cfg.Step, loc)
		if window.Start.After(window.End) {
			window.Start = window.End
		}
		result.Window = window
	}

	if window.Duration() < req.Duration {
		result.Status = StatusNoFit
		return result, nil
	}

	busy, warnings, err := c.fetchBusy(ctx, window, req.Attendees)
	if err != nil {
		return nil, err
	}
	result.Warnings = warnings

	merged, err := MergeRanges(busy)
	if err != nil {
		return nil, fmt.Errorf("calendar backend returned bad busy data: %w", err)
	}
	result.Busy = merged

	last := window.End.Add(-req.Duration)
	for start := window.Start; !start.After(last); start = start.Add(c.cfg.Step) {
		slot := TimeRange{Start: start, End: start.Add(req.Duration)}
		if overlapsAny(slot, merged) {
			continue
		}
		result.Slots = append(result.Slots, AvailableSlot{
			Start:    slot.Start,
			End:      slot.End,
			Duration: req.Duration,
		})
	}

	if len(result.Slots) == 0 {
		result.Status = StatusFullyBooked
	} else {
		result.Status = StatusAvailable
	}
	return result, nil
}

// fetchBusy queries the primary calendar plus attendees over the window.
func (c *Calculator) fetchBusy(ctx context.Context, window TimeRange, attendees []string) ([]TimeRange, []string, error) {
	ids := calendarIDs(c.cfg.CalendarID, attendees)

	qctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	infos, err := c.querier.QueryFreeBusy(qctx, window.Start, window.End, ids)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(qctx.Err(), context.DeadlineExceeded) {
			return nil, nil, fmt.Errorf("%w after %s: %v", ErrBackendTimeout, c.cfg.Timeout, err)
		}
		return nil, nil, fmt.Errorf("failed to query free/busy: %w", err)
	}

	var busy []TimeRange
	var warnings []string
	for _, info := range infos {
		busy = append(busy, info.Busy...)
		for _, e := range info.Errors {
			warnings = append(warnings, fmt.Sprintf("%s: %s", info.Calendar, e))
		}
	}
	return busy, warnings, nil
}

// calendarIDs returns primary followed by the distinct non-empty attendees.
func calendarIDs(primary string, attendees []string) []string {
	ids := []string{primary}
	seen := map[string]bool{primary: true}
	for _, a := range attendees {
		a = strings.TrimSpace(a)
		if a == "" || seen[a] {
			continue
		}
		seen[a] = true
		ids = append(ids, a)
	}
	return ids
}

// ceilToStep rounds t up to the next step boundary counted from local midnight.
func ceilToStep(t time.Time, step time.Duration, loc *time.Location) time.Time {
	t = t.In(loc)
	midnight := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc)
	rem := t.Sub(midnight) % step
	if rem == 0 {
		return t
	}
	return t.Add(step - rem)
}

// Reason explains the status in one sentence.
func (r *AvailabilityResult) Reason() string {
	date := r.Date.Format(dateLayout)
	minutes := int(r.Duration.Minutes())
	switch r.Status {
	case StatusPastDate:
		return fmt.Sprintf("%s is in the past: working hours ended at %s.", date, r.Window.End.Format("15:04"))
	case StatusNoFit:
		return fmt.Sprintf("No %d-minute slot fits in the remaining working hours on %s (%s-%s).",
			minutes, date, r.Window.Start.Format("15:04"), r.Window.End.Format("15:04"))
	case StatusFullyBooked:
		return fmt.Sprintf("No available %d-minute slots on %s: every candidate within working hours is busy.", minutes, date)
	default:
		return fmt.Sprintf("Found %d available %d-minute slot(s) on %s.", len(r.Slots), minutes, date)
	}
}

// Format renders the result as text for users and language models.
func (r *AvailabilityResult) Format() string {
	var b strings.Builder
	b.WriteString(r.Reason())
	for _, s := range r.Slots {
		fmt.Fprintf(&b, "\n- %s - %s", s.Start.Format("15:04"), s.End.Format("15:04"))
	}
	if len(r.Warnings) > 0 {
		b.WriteString("\nWarnings:")
		for _, w := range r.Warnings {
			fmt.Fprintf(&b, "\n- %s", w)
		}
	}
	return b.String()
}
