package router

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/teemow/concierge/internal/approval"
	"github.com/teemow/concierge/internal/logging"
)

// Result is the answer of a sub-agent turn.
type Result struct {
	Text string
	// Interrupt is set when the turn stopped at a gated action.
	Interrupt *approval.PendingAction
	// Outcome is set when the turn applied a decision.
	Outcome *approval.Outcome
}

// SubAgent handles fresh requests and resumes interrupted turns.
type SubAgent interface {
	Invoke(ctx context.Context, threadID, request string) (Result, error)
	Resume(ctx context.Context, threadID string, d approval.Decision) (Result, error)
}

// Router sends free text either to a sub-agent as a new request or, for
// approve/reject/edit replies, as a decision on the pending action.
type Router struct {
	name   string
	agent  SubAgent
	logger *slog.Logger
}

// New creates a Router for agent. name is used in error messages and logs.
func New(name string, agent SubAgent, logger *slog.Logger) *Router {
	if logger == nil {
		logger = slog.Default()
	}
	return &Router{
		name:   name,
		agent:  agent,
		logger: logger.With(slog.String("component", "router"), logging.Operation(name)),
	}
}

// Route handles one instruction and returns the text to show the user.
// Errors are rendered as text.
func (r *Router) Route(ctx context.Context, threadID, text string) string {
	d, isDecision, err := ParseDecision(text)
	if err != nil {
		if errors.Is(err, ErrEmptyEditInstructions) {
			return "Please provide instructions on what to edit (e.g., 'Edit: Change subject to...')"
		}
		return fmt.Sprintf("Error in %s: %v", r.name, err)
	}

	var res Result
	if isDecision {
		r.logger.DebugContext(ctx, "resuming with decision", logging.Thread(threadID), slog.String("decision", d.String()))
		res, err = r.agent.Resume(ctx, threadID, d)
	} else {
		r.logger.DebugContext(ctx, "invoking sub-agent", logging.Thread(threadID))
		res, err = r.agent.Invoke(ctx, threadID, text)
	}
	if err != nil {
		r.logger.ErrorContext(ctx, "sub-agent failed", logging.Thread(threadID), logging.Err(err))
		return fmt.Sprintf("Error in %s: %v", r.name, err)
	}

	return Render(res)
}

// Render turns a sub-agent result into user-facing text. A pending action
// takes precedence over any text the agent produced.
func Render(res Result) string {
	switch {
	case res.Interrupt != nil:
		return FormatApprovalPrompt(*res.Interrupt)
	case res.Text != "":
		return res.Text
	case res.Outcome != nil:
		return DescribeOutcome(*res.Outcome)
	default:
		return "Done."
	}
}
