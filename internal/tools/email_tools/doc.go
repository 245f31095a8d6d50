// Package email_tools provides the gated email tools of the MCP server.
//
// Sending is split across three tools so the human stays in control:
//
//   - email_send: records a draft for the session and returns an approval
//     prompt. Nothing is sent.
//   - email_decide: applies the user's reply ("Approve", "Reject [reason]",
//     "Edit: <changes>") to the draft. Approve sends exactly once. Reject
//     with a reason or Edit asks for a revised draft, which is submitted
//     again through email_send and gets the next draft number.
//   - email_pending: shows the draft awaiting a decision.
//
// Drafts are keyed by MCP session, so concurrent clients never see each
// other's pending emails.
package email_tools
