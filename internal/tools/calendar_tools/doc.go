// Package calendar_tools provides MCP tools for Google Calendar: listing
// events, creating events and finding free slots for a meeting.
//
// calendar_find_available_slots runs the same availability search as the
// chat assistant: the configured working hours of one day, stepped on a
// fixed grid, minus the merged busy time of the user and every attendee.
package calendar_tools
