// Package google_tools provides MCP tools for connecting a Google account.
//
// The Calendar and Gmail tools need a stored OAuth token. When it is
// missing they fail with instructions; the assistant can then:
//  1. call google_get_auth_url and show the URL to the user
//  2. have the user authorize access and copy the returned code
//  3. call google_save_auth_code with that code
//
// The token is refreshed automatically afterwards.
package google_tools
