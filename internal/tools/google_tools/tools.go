package google_tools

import (
	"context"
	"errors"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/teemow/concierge/internal/google"
	"github.com/teemow/concierge/internal/server"
	"github.com/teemow/concierge/internal/tools/common"
)

// Tool names.
const (
	ToolGetAuthURL   = "google_get_auth_url"
	ToolSaveAuthCode = "google_save_auth_code"
)

// RegisterGoogleTools registers the OAuth tools with the MCP server
func RegisterGoogleTools(s *mcpserver.MCPServer, sc *server.ServerContext) error {
	getAuthURLTool := mcp.NewTool(ToolGetAuthURL,
		mcp.WithDescription("Get the OAuth URL to authorize Google Calendar and Gmail access for an account"),
		mcp.WithString("account",
			mcp.Description("Account name (default: the configured account). Used to manage multiple Google accounts."),
		),
	)
	s.AddTool(getAuthURLTool, common.InstrumentedToolHandler(ToolGetAuthURL, sc,
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			return handleGetAuthURL(ctx, request, sc)
		}))

	saveAuthCodeTool := mcp.NewTool(ToolSaveAuthCode,
		mcp.WithDescription("Save the OAuth authorization code to complete Google authentication for an account"),
		mcp.WithString("account",
			mcp.Description("Account name (default: the configured account). Used to manage multiple Google accounts."),
		),
		mcp.WithString("authCode",
			mcp.Required(),
			mcp.Description("The authorization code from Google OAuth"),
		),
	)
	s.AddTool(saveAuthCodeTool, common.InstrumentedToolHandler(ToolSaveAuthCode, sc,
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			return handleSaveAuthCode(ctx, request, sc)
		}))

	return nil
}

func handleGetAuthURL(_ context.Context, request mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	account := sc.ResolveAccount(common.GetAccountFromArgs(request.GetArguments()))

	authURL := google.GetAuthURLForAccount(account)
	if authURL == "" {
		return mcp.NewToolResultError(google.GetAuthenticationErrorMessage(account)), nil
	}

	return mcp.NewToolResultText(fmt.Sprintf(`To authorize Google Calendar and Gmail access for account "%s":

1. Visit this URL in your browser:
   %s

2. Sign in with your Google account
3. Grant access to Calendar and Gmail (send only)
4. Copy the authorization code

5. Call the google_save_auth_code tool with the code and account name to complete authentication`, account, authURL)), nil
}

func handleSaveAuthCode(ctx context.Context, request mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	args := request.GetArguments()
	account := sc.ResolveAccount(common.GetAccountFromArgs(args))

	authCode, ok := args["authCode"].(string)
	if !ok || authCode == "" {
		return mcp.NewToolResultError("authCode is required"), nil
	}

	if err := google.SaveTokenForAccount(ctx, account, authCode); err != nil {
		if errors.Is(err, google.ErrNoClientCredentials) {
			return mcp.NewToolResultError(google.GetAuthenticationErrorMessage(account)), nil
		}
		return mcp.NewToolResultError(fmt.Sprintf("Failed to save authorization code for account %s: %v", account, err)), nil
	}

	return mcp.NewToolResultText(fmt.Sprintf("Authorization successful for account '%s'. Calendar and Gmail tools can now use this account.", account)), nil
}
