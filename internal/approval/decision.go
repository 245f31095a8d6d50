package approval

import "fmt"

// DecisionKind is the kind of human reply to a pending action.
type DecisionKind string

const (
	DecisionApprove DecisionKind = "approve"
	DecisionReject  DecisionKind = "reject"
	DecisionEdit    DecisionKind = "edit"
)

// DefaultRejectReason is the reason recorded when the user rejects without
// saying why. A reject carrying only this reason abandons the action.
const DefaultRejectReason = "Rejected by user"

// Decision is a parsed human reply.
type Decision struct {
	Kind         DecisionKind
	Reason       string // reject only
	Instructions string // edit only
}

// Approve returns an approve decision.
func Approve() Decision {
	return Decision{Kind: DecisionApprove}
}

// Reject returns a reject decision. An empty reason becomes DefaultRejectReason.
func Reject(reason string) Decision {
	if reason == "" {
		reason = DefaultRejectReason
	}
	return Decision{Kind: DecisionReject, Reason: reason}
}

// Edit returns an edit decision with the given change instructions.
func Edit(instructions string) Decision {
	return Decision{Kind: DecisionEdit, Instructions: instructions}
}

// Feedback returns the text handed back to the drafting step, or "" when
// the decision does not ask for a new draft.
func (d Decision) Feedback() string {
	switch d.Kind {
	case DecisionReject:
		if d.Reason == "" || d.Reason == DefaultRejectReason {
			return ""
		}
		return d.Reason
	case DecisionEdit:
		if d.Instructions == "" {
			return ""
		}
		return fmt.Sprintf("User requested changes: %s. Please update the email draft and try again.", d.Instructions)
	default:
		return ""
	}
}

// RequestsRedraft reports whether the decision asks for a revised draft.
func (d Decision) RequestsRedraft() bool {
	return d.Feedback() != ""
}

func (d Decision) String() string {
	switch d.Kind {
	case DecisionReject:
		return fmt.Sprintf("reject(%q)", d.Reason)
	case DecisionEdit:
		return fmt.Sprintf("edit(%q)", d.Instructions)
	default:
		return string(d.Kind)
	}
}
