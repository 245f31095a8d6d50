package cmd

import (
	"context"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetCategoryFromToolName(t *testing.T) {
	tests := []struct {
		name string
		want string
	}{
		{"calendar_list_events", "Calendar Tools"},
		{"calendar_find_available_slots", "Calendar Tools"},
		{"email_send", "Email Tools"},
		{"email_decide", "Email Tools"},
		{"google_get_auth_url", "Google Account Tools"},
		{"unknown", "Other"},
		{"", "Other"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, getCategoryFromToolName(tt.name))
		})
	}
}

func TestGenerateToolMarkdown(t *testing.T) {
	tool := mcp.NewTool("email_send",
		mcp.WithDescription("Draft an email"),
		mcp.WithString("subject", mcp.Required(), mcp.Description("Email subject")),
		mcp.WithString("account"),
	)

	md := generateToolMarkdown(tool)
	assert.Contains(t, md, "### email_send")
	assert.Contains(t, md, "Draft an email")
	assert.Contains(t, md, "- `subject` (required): Email subject")
	assert.Contains(t, md, "- `account` (optional): string parameter")
}

func TestToolsMarkdown_ListsEveryTool(t *testing.T) {
	md, err := toolsMarkdown(context.Background())
	require.NoError(t, err)

	for _, name := range []string{
		"calendar_list_events",
		"calendar_create_event",
		"calendar_find_available_slots",
		"email_send",
		"email_decide",
		"email_pending",
		"google_get_auth_url",
		"google_save_auth_code",
	} {
		assert.Contains(t, md, "### "+name)
	}
	assert.Contains(t, md, "- [Calendar Tools](#calendar-tools)")
	assert.Contains(t, md, "## Email Approval")
	assert.NotContains(t, md, "## Other")
}
