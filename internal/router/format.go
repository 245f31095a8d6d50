package router

import (
	"fmt"
	"slices"
	"strings"

	"github.com/teemow/concierge/internal/approval"
)

// FormatApprovalPrompt describes a pending action and the replies that resolve it.
func FormatApprovalPrompt(action approval.PendingAction) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Action required: the assistant wants to call '%s' (draft %d).\n", action.ToolName, action.DraftSequence)

	if len(action.Arguments) > 0 {
		keys := make([]string, 0, len(action.Arguments))
		for k := range action.Arguments {
			keys = append(keys, k)
		}
		slices.Sort(keys)

		for _, k := range keys {
			fmt.Fprintf(&b, "  %s: %s\n", k, formatValue(action.Arguments[k]))
		}
	}
	if action.Feedback != "" {
		fmt.Fprintf(&b, "This draft addresses: %s\n", action.Feedback)
	}

	b.WriteString("Reply 'Approve' to proceed, 'Reject [reason]' to cancel or send it back with a reason, or 'Edit: <changes>' to request a revised draft.")
	return b.String()
}

func formatValue(v any) string {
	switch val := v.(type) {
	case string:
		return strings.ReplaceAll(val, "\n", "\n    ")
	case []string:
		return strings.Join(val, ", ")
	default:
		return fmt.Sprintf("%v", val)
	}
}

// DescribeOutcome renders the result of a decision for the user.
func DescribeOutcome(out approval.Outcome) string {
	tool := out.Action.ToolName
	switch out.Kind {
	case approval.OutcomeExecuted:
		if out.Result == "" {
			return fmt.Sprintf("Approved. '%s' completed.", tool)
		}
		return fmt.Sprintf("Approved. '%s' completed: %s", tool, out.Result)
	case approval.OutcomeFailed:
		return fmt.Sprintf("Approved, but '%s' failed: %s. The action was not retried.", tool, out.Error)
	case approval.OutcomeAbandoned:
		return fmt.Sprintf("Rejected. The '%s' action was cancelled.", tool)
	case approval.OutcomeRedraftRequested:
		return fmt.Sprintf("Sent back for a revised draft: %s", out.Feedback)
	case approval.OutcomeAwaitingRedraft:
		return "A revised draft is still being prepared, so there is nothing to approve yet."
	case approval.OutcomeNothingPending:
		return "There is no pending action to decide on."
	default:
		return fmt.Sprintf("Unknown outcome %q.", out.Kind)
	}
}
