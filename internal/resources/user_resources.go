package resources

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/teemow/concierge/internal/server"
	"github.com/teemow/concierge/internal/tools/common"
)

// Resource URIs.
const (
	SettingsURI = "concierge://settings"
	PendingURI  = "concierge://approval/pending"
)

// RegisterUserResources registers the settings and pending-draft resources.
func RegisterUserResources(s *mcpserver.MCPServer, sc *server.ServerContext) error {
	settingsResource := mcp.NewResource(
		SettingsURI,
		"Scheduling Settings",
		mcp.WithResourceDescription("Working hours, slot grid, time zone and calendar used for availability searches"),
		mcp.WithMIMEType("application/json"),
	)
	s.AddResource(settingsResource, func(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		return handleSettings(ctx, request, sc)
	})

	pendingResource := mcp.NewResource(
		PendingURI,
		"Pending Email Draft",
		mcp.WithResourceDescription("The email draft of this session awaiting the user's decision"),
		mcp.WithMIMEType("application/json"),
	)
	s.AddResource(pendingResource, func(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		return handlePending(ctx, request, sc)
	})

	return nil
}

func jsonContents(uri string, v any) ([]mcp.ResourceContents, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal %s: %w", uri, err)
	}
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      uri,
			MIMEType: "application/json",
			Text:     string(data),
		},
	}, nil
}

func handleSettings(_ context.Context, _ mcp.ReadResourceRequest, sc *server.ServerContext) ([]mcp.ResourceContents, error) {
	cfg := sc.Config()
	return jsonContents(SettingsURI, map[string]any{
		"account":         cfg.Account,
		"calendarId":      cfg.CalendarID,
		"workStartHour":   cfg.WorkStartHour,
		"workEndHour":     cfg.WorkEndHour,
		"slotStepMinutes": int(cfg.SlotStep.Minutes()),
		"timeZone":        cfg.TimeZone,
	})
}

func handlePending(ctx context.Context, _ mcp.ReadResourceRequest, sc *server.ServerContext) ([]mcp.ResourceContents, error) {
	threadID := common.ThreadIDFromContext(ctx)
	m := sc.Machine()

	data := map[string]any{
		"session": threadID,
		"state":   m.State(threadID).String(),
	}
	if feedback, ok := m.RedraftRequested(threadID); ok {
		data["redraftRequested"] = feedback
	}
	if action, ok := m.Pending(threadID); ok {
		data["draft"] = map[string]any{
			"id":        action.ID,
			"tool":      action.ToolName,
			"sequence":  action.DraftSequence,
			"arguments": action.Arguments,
			"createdAt": action.CreatedAt,
		}
	}
	return jsonContents(PendingURI, data)
}
