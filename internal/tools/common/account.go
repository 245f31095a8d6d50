package common

import (
	"context"

	mcpserver "github.com/mark3labs/mcp-go/server"
)

// StdioThreadID is the thread id used when the transport has no sessions.
const StdioThreadID = "stdio"

// GetAccountFromArgs returns the "account" argument, or "" when it is
// missing so the server's configured account applies.
func GetAccountFromArgs(args map[string]any) string {
	if account, ok := args["account"].(string); ok {
		return account
	}
	return ""
}

// ThreadIDFromContext returns the MCP client session id of the request.
// Pending approvals are keyed by it, so each connected client has its own.
func ThreadIDFromContext(ctx context.Context) string {
	if session := mcpserver.ClientSessionFromContext(ctx); session != nil {
		if id := session.SessionID(); id != "" {
			return id
		}
	}
	return StdioThreadID
}
