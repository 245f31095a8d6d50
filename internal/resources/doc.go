// Package resources provides MCP resources describing the assistant's
// scheduling settings and the calling session's pending email draft.
package resources
