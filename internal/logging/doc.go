// Package logging provides structured logging utilities for concierge.
//
// It centralizes attribute names so that logs from the agents, the approval
// machine and the MCP tools can be filtered consistently, and builds the
// text or JSON slog handler selected on the command line.
//
// Create a logger with standard attributes:
//
//	logger := logging.WithOperation(slog.Default(), "calendar.find_slots")
//	logger.Info("slots computed", logging.Thread(threadID), logging.Status("available"))
//
// Email addresses are hashed with AnonymizeEmail before they are logged, which
// keeps log lines correlatable without exposing recipients.
package logging
