package agent

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/teemow/concierge/internal/calendar"
)

// Calendar agent tool names.
const (
	ToolListEvents        = "list_events"
	ToolCreateEvent       = "create_event"
	ToolGetAvailableSlots = "get_available_time_slots"
)

// CalendarDeps are the collaborators of the calendar agent.
type CalendarDeps struct {
	Backend    calendar.Backend
	Calculator *calendar.Calculator
	CalendarID string
	Now        func() time.Time
}

// NewCalendarAgent creates the scheduling sub-agent.
func NewCalendarAgent(cfg Config, prompts *Prompts, deps CalendarDeps) (*Agent, error) {
	if deps.CalendarID == "" {
		deps.CalendarID = calendar.PrimaryCalendarID
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}

	system, err := prompts.Render(PromptCalendar, map[string]any{
		"today": deps.Now().In(deps.Calculator.Location()).Format("2006-01-02"),
	})
	if err != nil {
		return nil, err
	}

	cfg.Name = "calendar"
	cfg.SystemPrompt = system
	cfg.Tools = CalendarTools(deps)
	return New(cfg)
}

// CalendarTools returns the calendar tools over deps.
func CalendarTools(deps CalendarDeps) []Tool {
	loc := deps.Calculator.Location()

	return []Tool{
		{
			Spec: ToolSpec{
				Name:        ToolListEvents,
				Description: "List events on the user's calendar within a specified date range.",
				Params: []Param{
					{Name: "start_datetime", Type: TypeString, Description: "ISO 8601 start time (e.g., '2024-01-01T09:00:00')", Required: true},
					{Name: "end_datetime", Type: TypeString, Description: "ISO 8601 end time (e.g., '2024-01-01T17:00:00')", Required: true},
				},
			},
			Handler: func(ctx context.Context, _ string, args map[string]any) (string, error) {
				start, end, err := parseRange(args, loc)
				if err != nil {
					return "", err
				}
				events, err := deps.Backend.ListEvents(ctx, deps.CalendarID, start, end, "")
				if err != nil {
					return "", fmt.Errorf("error listing events: %w", err)
				}
				return formatEvents(events, loc), nil
			},
		},
		{
			Spec: ToolSpec{
				Name:        ToolCreateEvent,
				Description: "Create a new event on the user's calendar.",
				Params: []Param{
					{Name: "title", Type: TypeString, Description: "Title of the event", Required: true},
					{Name: "start_datetime", Type: TypeString, Description: "ISO 8601 start time", Required: true},
					{Name: "end_datetime", Type: TypeString, Description: "ISO 8601 end time", Required: true},
					{Name: "attendees", Type: TypeStringArray, Description: "Email addresses of attendees"},
				},
			},
			Handler: func(ctx context.Context, _ string, args map[string]any) (string, error) {
				title, err := requiredString(args, "title")
				if err != nil {
					return "", err
				}
				start, end, err := parseRange(args, loc)
				if err != nil {
					return "", err
				}
				ev, err := deps.Backend.CreateEvent(ctx, deps.CalendarID, calendar.EventInput{
					Summary:   title,
					Start:     start,
					End:       end,
					TimeZone:  zoneName(loc),
					Attendees: stringSliceArg(args, "attendees"),
				})
				if err != nil {
					return "", fmt.Errorf("error creating event: %w", err)
				}
				if ev.HTMLLink != "" {
					return "Event created: " + ev.HTMLLink, nil
				}
				return fmt.Sprintf("Event created: %s (%s)", ev.Summary, ev.ID), nil
			},
		},
		{
			Spec: ToolSpec{
				Name:        ToolGetAvailableSlots,
				Description: "Check calendar availability for the given attendees on a date and return the free slots within working hours.",
				Params: []Param{
					{Name: "attendees", Type: TypeStringArray, Description: "Email addresses to check availability for"},
					{Name: "date", Type: TypeString, Description: "The date to check (YYYY-MM-DD)", Required: true},
					{Name: "duration_minutes", Type: TypeInteger, Description: "Slot duration in minutes (default 30)"},
				},
			},
			Handler: func(ctx context.Context, _ string, args map[string]any) (string, error) {
				minutes, err := intArg(args, "duration_minutes", 30)
				if err != nil {
					return "", err
				}
				return FindSlots(ctx, deps.Calculator, stringArg(args, "date"), stringSliceArg(args, "attendees"), minutes)
			},
		},
	}
}

// FindSlots runs an availability search for a YYYY-MM-DD date and renders the result.
func FindSlots(ctx context.Context, calc *calendar.Calculator, date string, attendees []string, minutes int) (string, error) {
	day, err := calendar.ParseDate(date, calc.Location())
	if err != nil {
		return "", err
	}
	res, err := calc.FindSlots(ctx, calendar.AvailabilityRequest{
		Attendees: attendees,
		Date:      day,
		Duration:  time.Duration(minutes) * time.Minute,
	})
	if err != nil {
		if calendar.IsTransient(err) {
			return "", fmt.Errorf("%w; please try again", err)
		}
		return "", err
	}
	return res.Format(), nil
}

func parseRange(args map[string]any, loc *time.Location) (time.Time, time.Time, error) {
	start, err := parseDateTime(stringArg(args, "start_datetime"), loc)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("error parsing start_datetime: %w", err)
	}
	end, err := parseDateTime(stringArg(args, "end_datetime"), loc)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("error parsing end_datetime: %w", err)
	}
	if !end.After(start) {
		return time.Time{}, time.Time{}, fmt.Errorf("end_datetime must be after start_datetime")
	}
	return start, end, nil
}

// zoneName returns the IANA name of loc, or "" for the process-local zone.
func zoneName(loc *time.Location) string {
	if loc == time.Local {
		return ""
	}
	return loc.String()
}

var dateTimeLayouts = []string{
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04",
	"2006-01-02",
}

// parseDateTime accepts RFC 3339 or a naive local datetime in loc.
func parseDateTime(s string, loc *time.Location) (time.Time, error) {
	if s == "" {
		return time.Time{}, fmt.Errorf("value is required")
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	for _, layout := range dateTimeLayouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognised datetime %q", s)
}

func formatEvents(events []calendar.EventSummary, loc *time.Location) string {
	if len(events) == 0 {
		return "No events found."
	}
	lines := make([]string, 0, len(events))
	for _, ev := range events {
		title := ev.Summary
		if title == "" {
			title = "No Title"
		}
		start := ev.Start.In(loc).Format(time.RFC3339)
		if ev.AllDay {
			start = ev.Start.Format("2006-01-02")
		}
		lines = append(lines, start+" - "+title)
	}
	return strings.Join(lines, "\n")
}
