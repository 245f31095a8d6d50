// Package cmd implements the command-line interface for concierge.
//
// This package provides the following commands:
//   - chat: Interactive assistant (supervisor, calendar and email agents)
//   - serve: Start the MCP server to provide tools for AI assistants
//   - auth: Authorize a Google account
//   - version: Display version information
//   - generate-docs: Generate markdown documentation for all MCP tools
//
// The chat command is the default command when no subcommand is specified.
package cmd
