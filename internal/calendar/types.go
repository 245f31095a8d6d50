package calendar

import (
	"errors"
	"fmt"
	"time"

	calendar "google.golang.org/api/calendar/v3"
)

const (
	// PrimaryCalendarID is the alias Google Calendar uses for the user's own calendar.
	PrimaryCalendarID = "primary"

	timeLayout = "2006-01-02 15:04"
	dateLayout = "2006-01-02"
)

// ErrInvalidEvent is returned when an event is missing required fields.
var ErrInvalidEvent = errors.New("invalid event")

// EventInput represents the input for creating a calendar event
type EventInput struct {
	Summary     string
	Description string
	Location    string
	Start       time.Time
	End         time.Time
	TimeZone    string
	Attendees   []string
}

// EventSummary represents a simplified calendar event for listing
type EventSummary struct {
	ID        string
	Summary   string
	Location  string
	Start     time.Time
	End       time.Time
	AllDay    bool
	Status    string
	HTMLLink  string
	Organizer string
	Attendees []string
}

// FreeBusyInfo represents availability information for a calendar
type FreeBusyInfo struct {
	Calendar string
	Busy     []TimeRange
	Errors   []string
}

// TimeRange represents a time range
type TimeRange struct {
	Start time.Time
	End   time.Time
}

// Duration returns the length of the range.
func (r TimeRange) Duration() time.Duration {
	return r.End.Sub(r.Start)
}

// AvailableSlot represents an available time slot for scheduling
type AvailableSlot struct {
	Start    time.Time
	End      time.Time
	Duration time.Duration
}

// toEventSummary converts a Google Calendar event to an EventSummary
func toEventSummary(event *calendar.Event) EventSummary {
	summary := EventSummary{
		ID:       event.Id,
		Summary:  event.Summary,
		Location: event.Location,
		Status:   event.Status,
		HTMLLink: event.HtmlLink,
	}

	if event.Start != nil {
		summary.Start, summary.AllDay = parseEventDateTime(event.Start)
	}
	if event.End != nil {
		summary.End, _ = parseEventDateTime(event.End)
	}

	if event.Organizer != nil {
		summary.Organizer = event.Organizer.Email
	}
	for _, att := range event.Attendees {
		summary.Attendees = append(summary.Attendees, att.Email)
	}

	return summary
}

// parseEventDateTime returns the instant of an event boundary and whether
// it is an all-day (date only) value.
func parseEventDateTime(edt *calendar.EventDateTime) (time.Time, bool) {
	if edt.DateTime != "" {
		if t, err := time.Parse(time.RFC3339, edt.DateTime); err == nil {
			return t, false
		}
	}
	if edt.Date != "" {
		if t, err := time.Parse(dateLayout, edt.Date); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// Validate checks that an event has a title and a non-empty time range.
func (e EventInput) Validate() error {
	if e.Summary == "" {
		return fmt.Errorf("%w: summary is required", ErrInvalidEvent)
	}
	if e.Start.IsZero() || e.End.IsZero() {
		return fmt.Errorf("%w: start and end are required", ErrInvalidEvent)
	}
	if !e.End.After(e.Start) {
		return fmt.Errorf("%w: end %s must be after start %s", ErrInvalidEvent,
			e.End.Format(timeLayout), e.Start.Format(timeLayout))
	}
	return nil
}
