// Package common provides helpers shared by the MCP tool packages:
// account and thread resolution, argument parsing and the instrumentation
// wrapper every tool handler is registered through.
package common
