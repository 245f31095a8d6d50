package google_tools

import (
	"context"
	"testing"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teemow/concierge/internal/config"
	"github.com/teemow/concierge/internal/server"
)

func newServerContext(t *testing.T) *server.ServerContext {
	t.Helper()
	sc, err := server.NewServerContext(context.Background(), config.Config{
		Account:        "work",
		CalendarID:     "primary",
		WorkStartHour:  8,
		WorkEndHour:    17,
		SlotStep:       30 * time.Minute,
		TimeZone:       "UTC",
		BackendTimeout: time.Second,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = sc.Shutdown() })
	return sc
}

func request(args map[string]any) mcp.CallToolRequest {
	req := mcp.CallToolRequest{}
	req.Params.Arguments = args
	return req
}

func TestRegisterGoogleTools(t *testing.T) {
	s := mcpserver.NewMCPServer("test", "0.0.0", mcpserver.WithToolCapabilities(true))
	assert.NoError(t, RegisterGoogleTools(s, newServerContext(t)))
}

func TestGetAuthURL(t *testing.T) {
	t.Setenv("GOOGLE_CLIENT_ID", "client-id")
	t.Setenv("GOOGLE_CLIENT_SECRET", "client-secret")

	res, err := handleGetAuthURL(context.Background(), request(nil), newServerContext(t))
	require.NoError(t, err)
	require.False(t, res.IsError)
	out := res.Content[0].(mcp.TextContent).Text
	assert.Contains(t, out, `account "work"`)
	assert.Contains(t, out, "client_id=client-id")
}

func TestSaveAuthCode_RequiresCode(t *testing.T) {
	res, err := handleSaveAuthCode(context.Background(), request(map[string]any{}), newServerContext(t))
	require.NoError(t, err)
	assert.True(t, res.IsError)
	assert.Equal(t, "authCode is required", res.Content[0].(mcp.TextContent).Text)
}
