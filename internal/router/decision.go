package router

import (
	"errors"
	"strings"

	"github.com/teemow/concierge/internal/approval"
)

// ErrEmptyEditInstructions is returned for an "edit" reply with nothing after the keyword.
var ErrEmptyEditInstructions = errors.New("please provide instructions on what to edit (e.g., 'Edit: Change subject to...')")

var keywords = []approval.DecisionKind{
	approval.DecisionApprove,
	approval.DecisionReject,
	approval.DecisionEdit,
}

// ParseDecision classifies a user reply. It reports ok == false when the
// text is not a decision and should be treated as a new request.
func ParseDecision(text string) (approval.Decision, bool, error) {
	trimmed := strings.TrimSpace(text)
	lower := strings.ToLower(trimmed)

	for _, kw := range keywords {
		if !strings.HasPrefix(lower, string(kw)) {
			continue
		}
		rest := trailing(trimmed[len(kw):])

		switch kw {
		case approval.DecisionApprove:
			return approval.Approve(), true, nil
		case approval.DecisionReject:
			return approval.Reject(rest), true, nil
		default:
			if rest == "" {
				return approval.Decision{}, true, ErrEmptyEditInstructions
			}
			return approval.Edit(rest), true, nil
		}
	}
	return approval.Decision{}, false, nil
}

// trailing strips whitespace and one leading colon from the text after a keyword.
func trailing(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, ":")
	return strings.TrimSpace(s)
}
