package calendar_tools

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/teemow/concierge/internal/agent"
	"github.com/teemow/concierge/internal/calendar"
	"github.com/teemow/concierge/internal/server"
	"github.com/teemow/concierge/internal/tools/common"
)

// Tool names.
const (
	ToolListEvents         = "calendar_list_events"
	ToolCreateEvent        = "calendar_create_event"
	ToolFindAvailableSlots = "calendar_find_available_slots"
)

const accountDescription = "Account name (default: the configured account). Used to manage multiple Google accounts."

// RegisterCalendarTools registers all Calendar-related tools with the MCP server
func RegisterCalendarTools(s *mcpserver.MCPServer, sc *server.ServerContext) error {
	listEventsTool := mcp.NewTool(ToolListEvents,
		mcp.WithDescription("List/search calendar events within a time range"),
		mcp.WithString("account", mcp.Description(accountDescription)),
		mcp.WithString("calendarId",
			mcp.Description("Calendar ID (default: the configured calendar, usually 'primary')"),
		),
		mcp.WithString("timeMin",
			mcp.Required(),
			mcp.Description("Start time for the range (RFC3339 format, e.g., '2025-01-01T00:00:00Z')"),
		),
		mcp.WithString("timeMax",
			mcp.Required(),
			mcp.Description("End time for the range (RFC3339 format, e.g., '2025-01-31T23:59:59Z')"),
		),
		mcp.WithString("query",
			mcp.Description("Optional search query to filter events"),
		),
	)
	s.AddTool(listEventsTool, common.InstrumentedToolHandler(ToolListEvents, sc,
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			return handleListEvents(ctx, request, sc)
		}))

	createEventTool := mcp.NewTool(ToolCreateEvent,
		mcp.WithDescription("Create a new calendar event and invite attendees"),
		mcp.WithString("account", mcp.Description(accountDescription)),
		mcp.WithString("calendarId",
			mcp.Description("Calendar ID (default: the configured calendar, usually 'primary')"),
		),
		mcp.WithString("summary",
			mcp.Required(),
			mcp.Description("Event title/summary"),
		),
		mcp.WithString("description", mcp.Description("Event description")),
		mcp.WithString("location", mcp.Description("Event location")),
		mcp.WithString("start",
			mcp.Required(),
			mcp.Description("Start time (RFC3339 format, e.g., '2025-01-15T14:00:00Z')"),
		),
		mcp.WithString("end",
			mcp.Required(),
			mcp.Description("End time (RFC3339 format, e.g., '2025-01-15T15:00:00Z')"),
		),
		mcp.WithString("timeZone",
			mcp.Description("Time zone (e.g., 'America/New_York'). Defaults to the configured time zone."),
		),
		mcp.WithString("attendees",
			mcp.Description("Comma-separated list of attendee email addresses"),
		),
	)
	s.AddTool(createEventTool, common.InstrumentedToolHandler(ToolCreateEvent, sc,
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			return handleCreateEvent(ctx, request, sc)
		}))

	findSlotsTool := mcp.NewTool(ToolFindAvailableSlots,
		mcp.WithDescription("Find free meeting slots on one day within working hours, for you and the given attendees"),
		mcp.WithString("account", mcp.Description(accountDescription)),
		mcp.WithString("date",
			mcp.Required(),
			mcp.Description("Day to search (YYYY-MM-DD)"),
		),
		mcp.WithString("attendees",
			mcp.Description("Comma-separated list of attendee email addresses"),
		),
		mcp.WithNumber("durationMinutes",
			mcp.Description("Meeting duration in minutes (default: 30)"),
		),
	)
	s.AddTool(findSlotsTool, common.InstrumentedToolHandler(ToolFindAvailableSlots, sc,
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			return handleFindAvailableSlots(ctx, request, sc)
		}))

	return nil
}

func calendarID(args map[string]any, sc *server.ServerContext) string {
	if id, ok := args["calendarId"].(string); ok && id != "" {
		return id
	}
	return sc.Config().CalendarID
}

func requiredTime(args map[string]any, key string) (time.Time, error) {
	s, ok := args[key].(string)
	if !ok || s == "" {
		return time.Time{}, fmt.Errorf("%s is required", key)
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("Invalid %s format: %v", key, err)
	}
	return t, nil
}

func handleListEvents(ctx context.Context, request mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	args := request.GetArguments()

	timeMin, err := requiredTime(args, "timeMin")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	timeMax, err := requiredTime(args, "timeMax")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if !timeMax.After(timeMin) {
		return mcp.NewToolResultError("timeMax must be after timeMin"), nil
	}
	query, _ := args["query"].(string)

	backend, err := sc.CalendarBackendForAccount(ctx, common.GetAccountFromArgs(args))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	events, err := backend.ListEvents(ctx, calendarID(args, sc), timeMin, timeMax, query)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to list events: %v", err)), nil
	}

	return mcp.NewToolResultText(formatEventList(events)), nil
}

func formatEventList(events []calendar.EventSummary) string {
	if len(events) == 0 {
		return "No events found in the specified time range"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Found %d event(s):\n", len(events))
	for i, ev := range events {
		title := ev.Summary
		if title == "" {
			title = "No Title"
		}
		fmt.Fprintf(&b, "\n%d. %s\n", i+1, title)
		if ev.AllDay {
			fmt.Fprintf(&b, "   Date: %s (all day)\n", ev.Start.Format("2006-01-02"))
		} else {
			fmt.Fprintf(&b, "   Time: %s - %s\n", ev.Start.Format(time.RFC3339), ev.End.Format(time.RFC3339))
		}
		if ev.Location != "" {
			fmt.Fprintf(&b, "   Location: %s\n", ev.Location)
		}
		if len(ev.Attendees) > 0 {
			fmt.Fprintf(&b, "   Attendees: %s\n", strings.Join(ev.Attendees, ", "))
		}
		if ev.ID != "" {
			fmt.Fprintf(&b, "   ID: %s\n", ev.ID)
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

func handleCreateEvent(ctx context.Context, request mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	args := request.GetArguments()

	summary, _ := args["summary"].(string)
	start, err := requiredTime(args, "start")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	end, err := requiredTime(args, "end")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	timeZone, _ := args["timeZone"].(string)
	if timeZone == "" {
		timeZone = sc.Config().TimeZone
	}
	if timeZone == "Local" {
		timeZone = ""
	}

	input := calendar.EventInput{
		Summary:   summary,
		Start:     start,
		End:       end,
		TimeZone:  timeZone,
		Attendees: common.StringListArg(args, "attendees"),
	}
	input.Description, _ = args["description"].(string)
	input.Location, _ = args["location"].(string)
	if err := input.Validate(); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	backend, err := sc.CalendarBackendForAccount(ctx, common.GetAccountFromArgs(args))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	event, err := backend.CreateEvent(ctx, calendarID(args, sc), input)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to create event: %v", err)), nil
	}

	result := fmt.Sprintf("Event created successfully.\nID: %s\nTitle: %s", event.ID, event.Summary)
	if event.HTMLLink != "" {
		result += "\nLink: " + event.HTMLLink
	}
	return mcp.NewToolResultText(result), nil
}

func handleFindAvailableSlots(ctx context.Context, request mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	args := request.GetArguments()

	date, _ := args["date"].(string)
	if date == "" {
		return mcp.NewToolResultError("date is required"), nil
	}
	minutes, err := common.IntArg(args, "durationMinutes", 30)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	calc, err := sc.CalculatorForAccount(ctx, common.GetAccountFromArgs(args))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	text, err := agent.FindSlots(ctx, calc, date, common.StringListArg(args, "attendees"), minutes)
	if err != nil {
		if errors.Is(err, calendar.ErrInvalidDate) || errors.Is(err, calendar.ErrInvalidDuration) {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return mcp.NewToolResultError(fmt.Sprintf("Failed to find available slots: %v", err)), nil
	}
	return mcp.NewToolResultText(text), nil
}
