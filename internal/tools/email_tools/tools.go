package email_tools

import (
	"context"
	"errors"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/teemow/concierge/internal/agent"
	"github.com/teemow/concierge/internal/approval"
	"github.com/teemow/concierge/internal/router"
	"github.com/teemow/concierge/internal/server"
	"github.com/teemow/concierge/internal/tools/common"
)

// Tool names.
const (
	ToolSend    = server.ToolEmailSend
	ToolDecide  = "email_decide"
	ToolPending = "email_pending"
)

const decideHint = "Show this draft to the user word for word and pass their reply to email_decide. Do not approve on the user's behalf."

// RegisterEmailTools registers email-related tools with the MCP server
func RegisterEmailTools(s *mcpserver.MCPServer, sc *server.ServerContext) error {
	sendTool := mcp.NewTool(ToolSend,
		mcp.WithDescription("Draft an email for the user's approval. The email is only sent after the user approves it via email_decide."),
		mcp.WithString("account",
			mcp.Description("Account name (default: the configured account). Used to manage multiple Google accounts."),
		),
		mcp.WithString("to",
			mcp.Required(),
			mcp.Description("Recipient email address(es), comma-separated for multiple recipients"),
		),
		mcp.WithString("subject",
			mcp.Required(),
			mcp.Description("Email subject"),
		),
		mcp.WithString("body",
			mcp.Required(),
			mcp.Description("Email body content (plain text)"),
		),
		mcp.WithString("cc",
			mcp.Description("CC email address(es), comma-separated for multiple recipients"),
		),
		mcp.WithString("bcc",
			mcp.Description("BCC email address(es), comma-separated for multiple recipients"),
		),
	)
	s.AddTool(sendTool, common.InstrumentedToolHandler(ToolSend, sc,
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			return handleSend(ctx, request, sc)
		}))

	decideTool := mcp.NewTool(ToolDecide,
		mcp.WithDescription("Apply the user's decision to the pending email draft"),
		mcp.WithString("reply",
			mcp.Required(),
			mcp.Description("The user's reply, verbatim: 'Approve', 'Reject [reason]' or 'Edit: <changes>'"),
		),
	)
	s.AddTool(decideTool, common.InstrumentedToolHandler(ToolDecide, sc,
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			return handleDecide(ctx, request, sc)
		}))

	pendingTool := mcp.NewTool(ToolPending,
		mcp.WithDescription("Show the email draft awaiting the user's decision, if any"),
	)
	s.AddTool(pendingTool, common.InstrumentedToolHandler(ToolPending, sc,
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			return handlePending(ctx, request, sc)
		}))

	return nil
}

func handleSend(ctx context.Context, request mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	args := request.GetArguments()

	msg, err := agent.EmailFromArgs(args)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	draft := map[string]any{
		"account": sc.ResolveAccount(common.GetAccountFromArgs(args)),
		"to":      msg.To,
		"subject": msg.Subject,
		"body":    msg.Body,
	}
	if len(msg.Cc) > 0 {
		draft["cc"] = msg.Cc
	}
	if len(msg.Bcc) > 0 {
		draft["bcc"] = msg.Bcc
	}

	threadID := common.ThreadIDFromContext(ctx)
	action, err := sc.Machine().Submit(ctx, threadID, ToolSend, draft)
	if errors.Is(err, approval.ErrActionPending) {
		pending, _ := sc.Machine().Pending(threadID)
		return mcp.NewToolResultError(fmt.Sprintf(
			"Another draft is already awaiting the user's decision. Resolve it with email_decide first.\n\n%s",
			router.FormatApprovalPrompt(pending))), nil
	}
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to create draft: %v", err)), nil
	}

	return mcp.NewToolResultText(router.FormatApprovalPrompt(action) + "\n\n" + decideHint), nil
}

func handleDecide(ctx context.Context, request mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	reply, _ := request.GetArguments()["reply"].(string)

	decision, ok, err := router.ParseDecision(reply)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if !ok {
		return mcp.NewToolResultError("reply must start with 'Approve', 'Reject' or 'Edit:'"), nil
	}

	out, err := sc.Machine().Decide(ctx, common.ThreadIDFromContext(ctx), decision)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to apply decision: %v", err)), nil
	}

	text := router.DescribeOutcome(out)
	switch out.Kind {
	case approval.OutcomeRedraftRequested:
		text += "\nRevise the email accordingly and call email_send with the new draft."
	case approval.OutcomeFailed:
		return mcp.NewToolResultError(text), nil
	}
	return mcp.NewToolResultText(text), nil
}

func handlePending(ctx context.Context, _ mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	threadID := common.ThreadIDFromContext(ctx)
	m := sc.Machine()

	if feedback, ok := m.RedraftRequested(threadID); ok {
		return mcp.NewToolResultText(fmt.Sprintf(
			"Waiting for a revised draft. Requested changes: %s\nCall email_send with the new draft.", feedback)), nil
	}
	action, ok := m.Pending(threadID)
	if !ok {
		return mcp.NewToolResultText("There is no email draft awaiting a decision."), nil
	}
	return mcp.NewToolResultText(router.FormatApprovalPrompt(action) + "\n\n" + decideHint), nil
}
