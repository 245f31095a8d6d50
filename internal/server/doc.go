// Package server provides the shared state and HTTP plumbing of the
// concierge MCP server.
//
// ServerContext holds the configuration, lazily created per-account
// Calendar and Gmail clients, and the approval machine that gates
// email_send. Drafts are keyed by MCP session id; SessionClosed drops the
// state of a session when the client disconnects.
//
// HTTPServer serves the streamable-http transport on /mcp together with
// the Kubernetes-style health endpoints from HealthChecker. MetricsServer
// exposes Prometheus metrics on a separate port.
package server
