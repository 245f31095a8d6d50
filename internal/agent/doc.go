// Package agent runs language-model agents with tool calling.
//
// An Agent keeps one model session per conversation thread and loops over
// the model's tool calls until it answers with text. Calls to gated tools
// are not executed directly: they are submitted to an approval.Machine and
// the turn stops with an interrupt. Resume applies the user's decision and
// reports the outcome back to the model as the tool's result, so a reply
// such as "Edit: make it shorter" leads to a revised draft.
//
// Three agents make up the assistant: a calendar agent, an email agent
// whose send_email tool is gated, and a supervisor that delegates to both.
// GeminiModel implements Model on top of the Gemini API.
package agent
