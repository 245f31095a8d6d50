// Package calendar provides a client for the Google Calendar API and the
// availability calculation used to schedule meetings.
//
// The Client lists and creates events and queries free/busy data. The
// Calculator takes free/busy data from any FreeBusyQuerier, merges the busy
// ranges of the primary calendar and every attendee, and returns the slots on
// a fixed grid inside working hours where everyone is free.
//
// Example usage:
//
//	client, err := calendar.NewClientForAccount(ctx, "default")
//	if err != nil {
//	    return err
//	}
//
//	calc, err := calendar.NewCalculator(client, calendar.AvailabilityConfig{})
//	if err != nil {
//	    return err
//	}
//
//	res, err := calc.FindSlots(ctx, calendar.AvailabilityRequest{
//	    Attendees: []string{"jane@example.com"},
//	    Date:      date,
//	    Duration:  30 * time.Minute,
//	})
package calendar
