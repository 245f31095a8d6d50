// Package approval gates side-effecting actions behind an explicit human
// decision.
//
// Each conversation thread holds at most one pending draft. A draft is
// approved (and executed exactly once), rejected (abandoned), or sent back
// with feedback, in which case the next Submit on the thread installs the
// revised draft with the next draft number. A thread moves through
// StateNoPending, StateAwaitingDecision and ends in StateCompleted or
// StateAbandoned; a later Submit starts a new request.
//
//	m := approval.NewMachine(approval.Config{})
//	m.RegisterExecutor("send_email", sender)
//
//	action, err := m.Submit(ctx, threadID, "send_email", args)
//	out, err := m.Decide(ctx, threadID, approval.Edit("make it shorter"))
//	// out.Kind == approval.OutcomeRedraftRequested
package approval
