package common

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teemow/concierge/internal/config"
	"github.com/teemow/concierge/internal/instrumentation"
	"github.com/teemow/concierge/internal/server"
)

func newServerContext(t *testing.T, buf *bytes.Buffer) *server.ServerContext {
	t.Helper()
	cfg := config.Config{
		Account:        "default",
		CalendarID:     "primary",
		WorkStartHour:  8,
		WorkEndHour:    17,
		SlotStep:       30 * time.Minute,
		TimeZone:       "UTC",
		BackendTimeout: time.Second,
	}
	var opts []server.Option
	if buf != nil {
		logger := slog.New(slog.NewJSONHandler(buf, nil))
		opts = append(opts, server.WithAuditLogger(instrumentation.NewAuditLogger(logger)))
	}
	sc, err := server.NewServerContext(context.Background(), cfg, opts...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = sc.Shutdown() })
	return sc
}

func callRequest(args map[string]any) mcp.CallToolRequest {
	req := mcp.CallToolRequest{}
	req.Params.Arguments = args
	return req
}

func TestInstrumentedToolHandler(t *testing.T) {
	tests := []struct {
		name      string
		handler   mcpserver.ToolHandlerFunc
		wantErr   bool
		wantAudit string
	}{
		{
			name: "success",
			handler: func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error) {
				return mcp.NewToolResultText("success"), nil
			},
			wantAudit: "tool_executed",
		},
		{
			name: "go error",
			handler: func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error) {
				return nil, errors.New("test error")
			},
			wantErr:   true,
			wantAudit: "tool_failed",
		},
		{
			name: "error result",
			handler: func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error) {
				return mcp.NewToolResultError("bad input"), nil
			},
			wantAudit: "bad input",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			sc := newServerContext(t, &buf)

			wrapped := InstrumentedToolHandler("test_tool", sc, tt.handler)
			_, err := wrapped(context.Background(), callRequest(map[string]any{"account": "work"}))
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}

			logged := buf.String()
			assert.Contains(t, logged, tt.wantAudit)
			assert.Contains(t, logged, `"account":"work"`)
			assert.Contains(t, logged, `"thread":"stdio"`)
		})
	}
}

func TestInstrumentedToolHandler_NoInstrumentation(t *testing.T) {
	sc := newServerContext(t, nil)
	called := false
	wrapped := InstrumentedToolHandler("test_tool", sc, func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		called = true
		return mcp.NewToolResultText("ok"), nil
	})

	result, err := wrapped(context.Background(), callRequest(nil))
	require.NoError(t, err)
	assert.True(t, called)
	assert.False(t, result.IsError)
}

func TestInstrumentedToolHandler_RegistersWithServer(t *testing.T) {
	sc := newServerContext(t, nil)
	s := mcpserver.NewMCPServer("test", "1.0.0", mcpserver.WithToolCapabilities(true))

	s.AddTool(mcp.NewTool("test_tool"), InstrumentedToolHandler("test_tool", sc,
		func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			return mcp.NewToolResultText("ok"), nil
		}))

	tools := s.ListTools()
	require.Contains(t, tools, "test_tool")

	result, err := tools["test_tool"].Handler(context.Background(), callRequest(nil))
	require.NoError(t, err)
	assert.False(t, result.IsError)
}

func TestStringListArg(t *testing.T) {
	args := map[string]any{
		"csv":   " a@example.com, ,b@example.com ",
		"array": []any{"c@example.com", 1, " "},
		"typed": []string{"d@example.com"},
	}
	assert.Equal(t, []string{"a@example.com", "b@example.com"}, StringListArg(args, "csv"))
	assert.Equal(t, []string{"c@example.com"}, StringListArg(args, "array"))
	assert.Equal(t, []string{"d@example.com"}, StringListArg(args, "typed"))
	assert.Nil(t, StringListArg(args, "missing"))
}

func TestIntArg(t *testing.T) {
	args := map[string]any{"n": float64(45), "frac": 1.5, "s": "45"}

	n, err := IntArg(args, "n", 30)
	require.NoError(t, err)
	assert.Equal(t, 45, n)

	n, err = IntArg(args, "missing", 30)
	require.NoError(t, err)
	assert.Equal(t, 30, n)

	_, err = IntArg(args, "frac", 30)
	assert.Error(t, err)
	_, err = IntArg(args, "s", 30)
	assert.Error(t, err)
}
