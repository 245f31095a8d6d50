package calendar

import (
	"context"
	"fmt"
	"time"

	calendar "google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"

	"github.com/teemow/concierge/internal/google"
	"github.com/teemow/concierge/internal/instrumentation"
)

// Backend is the subset of the Calendar API the agents and tools use.
type Backend interface {
	FreeBusyQuerier
	ListEvents(ctx context.Context, calendarID string, timeMin, timeMax time.Time, query string) ([]EventSummary, error)
	CreateEvent(ctx context.Context, calendarID string, input EventInput) (*EventSummary, error)
}

// Client wraps the Google Calendar service
type Client struct {
	svc     *calendar.Service
	account string // The account this client is associated with
	metrics *instrumentation.Metrics
}

var _ Backend = (*Client)(nil)

// Account returns the account name this client is associated with
func (c *Client) Account() string {
	return c.account
}

// SetMetrics attaches a metrics recorder for Google API operations.
func (c *Client) SetMetrics(m *instrumentation.Metrics) {
	c.metrics = m
}

// HasTokenForAccountWithProvider checks if a valid OAuth token exists for the specified account
func HasTokenForAccountWithProvider(account string, provider google.TokenProvider) bool {
	if provider == nil {
		return false
	}
	return provider.HasTokenForAccount(account)
}

// NewClientForAccountWithProvider creates a new Calendar client with OAuth2 authentication for a specific account
// The OAuth token is retrieved from the provided token provider
func NewClientForAccountWithProvider(ctx context.Context, account string, tokenProvider google.TokenProvider) (*Client, error) {
	httpClient, err := google.GetHTTPClientForAccount(ctx, account, tokenProvider)
	if err != nil {
		return nil, err
	}

	svc, err := calendar.NewService(ctx, option.WithHTTPClient(httpClient))
	if err != nil {
		return nil, fmt.Errorf("failed to create Calendar service: %w", err)
	}

	return &Client{
		svc:     svc,
		account: account,
	}, nil
}

// NewClientForAccount creates a new Calendar client using the file-based token provider.
func NewClientForAccount(ctx context.Context, account string) (*Client, error) {
	return NewClientForAccountWithProvider(ctx, account, google.NewFileTokenProvider())
}

func (c *Client) record(ctx context.Context, operation string, start time.Time, err error) {
	status := instrumentation.StatusSuccess
	if err != nil {
		status = instrumentation.StatusError
	}
	c.metrics.RecordGoogleAPIOperation(ctx, instrumentation.ServiceCalendar, operation, status, time.Since(start))
}

// ListEvents lists events in a calendar within a time range
func (c *Client) ListEvents(ctx context.Context, calendarID string, timeMin, timeMax time.Time, query string) (_ []EventSummary, err error) {
	ctx, span := instrumentation.StartGoogleAPISpan(ctx, instrumentation.ServiceCalendar, instrumentation.OperationList)
	defer span.End()
	start := time.Now()
	defer func() {
		c.record(ctx, instrumentation.OperationList, start, err)
		instrumentation.SetSpanError(span, err)
	}()

	call := c.svc.Events.List(calendarID).
		TimeMin(timeMin.Format(time.RFC3339)).
		TimeMax(timeMax.Format(time.RFC3339)).
		SingleEvents(true).
		OrderBy("startTime").
		Context(ctx)

	if query != "" {
		call = call.Q(query)
	}

	events, err := call.Do()
	if err != nil {
		return nil, fmt.Errorf("failed to list events: %w", err)
	}

	summaries := make([]EventSummary, 0, len(events.Items))
	for _, event := range events.Items {
		summaries = append(summaries, toEventSummary(event))
	}

	return summaries, nil
}

// CreateEvent creates a new calendar event
func (c *Client) CreateEvent(ctx context.Context, calendarID string, input EventInput) (_ *EventSummary, err error) {
	ctx, span := instrumentation.StartGoogleAPISpan(ctx, instrumentation.ServiceCalendar, instrumentation.OperationCreate)
	defer span.End()
	start := time.Now()
	defer func() {
		c.record(ctx, instrumentation.OperationCreate, start, err)
		instrumentation.SetSpanError(span, err)
	}()

	if err := input.Validate(); err != nil {
		return nil, err
	}

	created, err := c.svc.Events.Insert(calendarID, buildEvent(input)).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("failed to create event: %w", err)
	}

	summary := toEventSummary(created)
	return &summary, nil
}

// QueryFreeBusy checks availability for calendars in a time range
func (c *Client) QueryFreeBusy(ctx context.Context, timeMin, timeMax time.Time, calendarIDs []string) (_ []FreeBusyInfo, err error) {
	ctx, span := instrumentation.StartGoogleAPISpan(ctx, instrumentation.ServiceCalendar, instrumentation.OperationFreeBusy)
	defer span.End()
	start := time.Now()
	defer func() {
		c.record(ctx, instrumentation.OperationFreeBusy, start, err)
		instrumentation.SetSpanError(span, err)
	}()

	items := make([]*calendar.FreeBusyRequestItem, len(calendarIDs))
	for i, id := range calendarIDs {
		items[i] = &calendar.FreeBusyRequestItem{Id: id}
	}

	query := &calendar.FreeBusyRequest{
		TimeMin: timeMin.Format(time.RFC3339),
		TimeMax: timeMax.Format(time.RFC3339),
		Items:   items,
	}

	result, err := c.svc.Freebusy.Query(query).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("failed to query freebusy: %w", err)
	}

	return parseFreeBusy(result, calendarIDs), nil
}

// buildEvent converts an EventInput into the API representation.
func buildEvent(input EventInput) *calendar.Event {
	tz := input.TimeZone
	if tz == "" {
		tz = "UTC"
	}

	event := &calendar.Event{
		Summary:     input.Summary,
		Description: input.Description,
		Location:    input.Location,
		Start: &calendar.EventDateTime{
			DateTime: input.Start.Format(time.RFC3339),
			TimeZone: tz,
		},
		End: &calendar.EventDateTime{
			DateTime: input.End.Format(time.RFC3339),
			TimeZone: tz,
		},
	}

	for _, email := range input.Attendees {
		event.Attendees = append(event.Attendees, &calendar.EventAttendee{Email: email})
	}

	return event
}

// parseFreeBusy flattens a free/busy response in request order. Busy periods
// that fail to parse are reported as errors on their calendar.
func parseFreeBusy(resp *calendar.FreeBusyResponse, calendarIDs []string) []FreeBusyInfo {
	infos := make([]FreeBusyInfo, 0, len(calendarIDs))
	for _, calID := range calendarIDs {
		info := FreeBusyInfo{Calendar: calID}

		cal, ok := resp.Calendars[calID]
		if !ok {
			info.Errors = append(info.Errors, "notFound")
			infos = append(infos, info)
			continue
		}

		for _, busy := range cal.Busy {
			start, err1 := time.Parse(time.RFC3339, busy.Start)
			end, err2 := time.Parse(time.RFC3339, busy.End)
			if err1 != nil || err2 != nil {
				info.Errors = append(info.Errors, fmt.Sprintf("unparseable busy period %s..%s", busy.Start, busy.End))
				continue
			}
			info.Busy = append(info.Busy, TimeRange{Start: start, End: end})
		}

		for _, e := range cal.Errors {
			info.Errors = append(info.Errors, e.Reason)
		}

		infos = append(infos, info)
	}

	return infos
}
