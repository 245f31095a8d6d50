package approval

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/teemow/concierge/internal/instrumentation"
	"github.com/teemow/concierge/internal/logging"
)

var (
	// ErrActionPending is returned by Submit when the thread already has a
	// draft awaiting a decision.
	ErrActionPending = errors.New("an action is already awaiting a decision")

	// ErrUnknownDecision is returned by Decide for an unrecognised decision kind.
	ErrUnknownDecision = errors.New("unknown decision")

	// ErrNoExecutor is reported when an approved action has no registered executor.
	ErrNoExecutor = errors.New("no executor registered for tool")
)

// State is the approval state of one conversation thread.
type State int

const (
	StateNoPending State = iota
	StateAwaitingDecision
	StateCompleted
	StateAbandoned
)

func (s State) String() string {
	switch s {
	case StateNoPending:
		return "no_pending"
	case StateAwaitingDecision:
		return "awaiting_decision"
	case StateCompleted:
		return "completed"
	case StateAbandoned:
		return "abandoned"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// PendingAction is one draft of a gated side-effecting call.
type PendingAction struct {
	ID            string
	ThreadID      string
	ToolName      string
	Arguments     map[string]any
	DraftSequence int
	// Feedback is the reviewer feedback that produced this draft, empty for draft 1.
	Feedback  string
	CreatedAt time.Time
}

// OutcomeKind classifies the result of a decision.
type OutcomeKind string

const (
	OutcomeExecuted         OutcomeKind = "executed"
	OutcomeFailed           OutcomeKind = "failed"
	OutcomeAbandoned        OutcomeKind = "abandoned"
	OutcomeRedraftRequested OutcomeKind = "redraft_requested"
	OutcomeAwaitingRedraft  OutcomeKind = "awaiting_redraft"
	OutcomeNothingPending   OutcomeKind = "nothing_pending"
)

// Outcome is what a decision led to.
type Outcome struct {
	Kind OutcomeKind
	// Action is the draft the decision applied to. Zero for OutcomeNothingPending.
	Action PendingAction
	// Result is the executor's output for OutcomeExecuted.
	Result string
	// Feedback is the redraft request for OutcomeRedraftRequested.
	Feedback string
	// Error is the execution failure for OutcomeFailed.
	Error string
}

// Executor performs an approved action.
type Executor interface {
	Execute(ctx context.Context, action PendingAction) (string, error)
}

// ExecutorFunc adapts a function to the Executor interface.
type ExecutorFunc func(ctx context.Context, action PendingAction) (string, error)

// Execute calls f.
func (f ExecutorFunc) Execute(ctx context.Context, action PendingAction) (string, error) {
	return f(ctx, action)
}

// Config configures a Machine. All fields are optional.
type Config struct {
	Logger  *slog.Logger
	Metrics *instrumentation.Metrics
	Audit   *instrumentation.AuditLogger
	Now     func() time.Time
}

type thread struct {
	mu       sync.Mutex
	state    State
	pending  *PendingAction
	redraft  bool
	feedback string
}

// clear drops the draft and moves to state. The caller holds t.mu.
func (t *thread) clear(state State) {
	t.state = state
	t.pending = nil
	t.redraft = false
	t.feedback = ""
}

// Machine tracks gated actions per conversation thread. Operations on one
// thread are serialised; different threads proceed independently.
type Machine struct {
	mu        sync.Mutex
	threads   map[string]*thread
	executors map[string]Executor

	logger  *slog.Logger
	metrics *instrumentation.Metrics
	audit   *instrumentation.AuditLogger
	now     func() time.Time
}

// NewMachine creates an empty Machine.
func NewMachine(cfg Config) *Machine {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Machine{
		threads:   make(map[string]*thread),
		executors: make(map[string]Executor),
		logger:    cfg.Logger.With(slog.String("component", "approval")),
		metrics:   cfg.Metrics,
		audit:     cfg.Audit,
		now:       cfg.Now,
	}
}

// RegisterExecutor sets the executor for approved actions of toolName.
func (m *Machine) RegisterExecutor(toolName string, exec Executor) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.executors[toolName] = exec
}

func (m *Machine) executor(toolName string) (Executor, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	exec, ok := m.executors[toolName]
	return exec, ok
}

// thread returns the thread for id, creating it when create is set.
func (m *Machine) thread(id string, create bool) *thread {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.threads[id]
	if !ok && create {
		t = &thread{}
		m.threads[id] = t
	}
	return t
}

// Submit records a new draft for threadID and returns it. A thread whose
// previous draft was sent back for changes gets the next draft number;
// otherwise the draft starts a new request at number 1.
func (m *Machine) Submit(ctx context.Context, threadID, toolName string, args map[string]any) (PendingAction, error) {
	if threadID == "" {
		return PendingAction{}, errors.New("thread id is required")
	}
	if toolName == "" {
		return PendingAction{}, errors.New("tool name is required")
	}

	t := m.thread(threadID, true)
	t.mu.Lock()
	defer t.mu.Unlock()

	action := PendingAction{
		ID:            uuid.NewString(),
		ThreadID:      threadID,
		ToolName:      toolName,
		Arguments:     maps.Clone(args),
		DraftSequence: 1,
		CreatedAt:     m.now(),
	}

	if t.state == StateAwaitingDecision {
		if !t.redraft {
			return PendingAction{}, fmt.Errorf("thread %s: %w", threadID, ErrActionPending)
		}
		action.DraftSequence = t.pending.DraftSequence + 1
		action.Feedback = t.feedback
	}

	t.state = StateAwaitingDecision
	t.pending = &action
	t.redraft = false
	t.feedback = ""

	m.logger.InfoContext(ctx, "action awaiting decision",
		logging.Thread(threadID),
		logging.Tool(toolName),
		logging.Draft(action.DraftSequence))
	m.metrics.RecordApprovalDraft(ctx, toolName)
	m.audit.LogApproval(instrumentation.ApprovalEvent{
		ThreadID:   threadID,
		ActionID:   action.ID,
		Tool:       toolName,
		Draft:      action.DraftSequence,
		Recipients: Recipients(action.Arguments),
	})

	return copyAction(action), nil
}

// Decide applies a human decision to the thread's pending draft. Execution
// failures are reported in the Outcome, not as an error.
func (m *Machine) Decide(ctx context.Context, threadID string, d Decision) (Outcome, error) {
	switch d.Kind {
	case DecisionApprove, DecisionReject, DecisionEdit:
	default:
		return Outcome{}, fmt.Errorf("%w: %q", ErrUnknownDecision, d.Kind)
	}

	t := m.thread(threadID, false)
	if t == nil {
		return m.finish(ctx, threadID, d, Outcome{Kind: OutcomeNothingPending}), nil
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if t.state != StateAwaitingDecision {
		return m.finish(ctx, threadID, d, Outcome{Kind: OutcomeNothingPending}), nil
	}

	action := copyAction(*t.pending)
	out := Outcome{Action: action}

	switch {
	case d.Kind == DecisionApprove && t.redraft:
		out.Kind = OutcomeAwaitingRedraft

	case d.Kind == DecisionApprove:
		result, err := m.execute(ctx, action)
		if err != nil {
			t.clear(StateAbandoned)
			out.Kind = OutcomeFailed
			out.Error = err.Error()
		} else {
			t.clear(StateCompleted)
			out.Kind = OutcomeExecuted
			out.Result = result
		}

	case d.RequestsRedraft():
		t.redraft = true
		t.feedback = d.Feedback()
		out.Kind = OutcomeRedraftRequested
		out.Feedback = t.feedback

	default:
		t.clear(StateAbandoned)
		out.Kind = OutcomeAbandoned
	}

	return m.finish(ctx, threadID, d, out), nil
}

func (m *Machine) execute(ctx context.Context, action PendingAction) (string, error) {
	exec, ok := m.executor(action.ToolName)
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrNoExecutor, action.ToolName)
	}
	return exec.Execute(ctx, action)
}

func (m *Machine) finish(ctx context.Context, threadID string, d Decision, out Outcome) Outcome {
	attrs := []any{
		logging.Thread(threadID),
		slog.String("decision", string(d.Kind)),
		slog.String("outcome", string(out.Kind)),
	}
	if out.Action.ID != "" {
		attrs = append(attrs, logging.Tool(out.Action.ToolName), logging.Draft(out.Action.DraftSequence))
	}

	if out.Kind == OutcomeFailed {
		attrs = append(attrs, slog.String(logging.KeyError, out.Error))
		m.logger.WarnContext(ctx, "approved action failed", attrs...)
	} else {
		m.logger.InfoContext(ctx, "decision applied", attrs...)
	}

	m.metrics.RecordApprovalDecision(ctx, string(d.Kind), string(out.Kind))
	if out.Action.ID != "" {
		m.audit.LogApproval(instrumentation.ApprovalEvent{
			ThreadID:   threadID,
			ActionID:   out.Action.ID,
			Tool:       out.Action.ToolName,
			Draft:      out.Action.DraftSequence,
			Decision:   string(d.Kind),
			Outcome:    string(out.Kind),
			Recipients: Recipients(out.Action.Arguments),
		})
	}
	return out
}

// Withdraw abandons a thread whose redraft will not be produced, for
// example because the drafting step gave up. It reports whether anything
// was withdrawn.
func (m *Machine) Withdraw(threadID string) bool {
	t := m.thread(threadID, false)
	if t == nil {
		return false
	}
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.state != StateAwaitingDecision || !t.redraft {
		return false
	}
	t.clear(StateAbandoned)
	m.logger.Info("redraft withdrawn", logging.Thread(threadID))
	return true
}

// Reset returns the thread to StateNoPending, dropping any draft.
func (m *Machine) Reset(threadID string) {
	t := m.thread(threadID, false)
	if t == nil {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.clear(StateNoPending)
}

// Forget drops all state for the thread.
func (m *Machine) Forget(threadID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.threads, threadID)
}

// State returns the thread's current state.
func (m *Machine) State(threadID string) State {
	t := m.thread(threadID, false)
	if t == nil {
		return StateNoPending
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

// Pending returns the draft awaiting a decision, if any. While a redraft
// is outstanding the previous draft is still returned.
func (m *Machine) Pending(threadID string) (PendingAction, bool) {
	t := m.thread(threadID, false)
	if t == nil {
		return PendingAction{}, false
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.state != StateAwaitingDecision || t.pending == nil {
		return PendingAction{}, false
	}
	return copyAction(*t.pending), true
}

// RedraftRequested returns the outstanding redraft feedback for the thread.
func (m *Machine) RedraftRequested(threadID string) (string, bool) {
	t := m.thread(threadID, false)
	if t == nil {
		return "", false
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.state != StateAwaitingDecision || !t.redraft {
		return "", false
	}
	return t.feedback, true
}

func copyAction(a PendingAction) PendingAction {
	a.Arguments = maps.Clone(a.Arguments)
	return a
}

// Recipients extracts the to, cc and bcc addresses from action arguments.
// Values may be comma separated strings or string slices.
func Recipients(args map[string]any) []string {
	var out []string
	for _, key := range []string{"to", "cc", "bcc"} {
		switch v := args[key].(type) {
		case string:
			out = append(out, splitList(v)...)
		case []string:
			for _, s := range v {
				out = append(out, splitList(s)...)
			}
		case []any:
			for _, item := range v {
				if s, ok := item.(string); ok {
					out = append(out, splitList(s)...)
				}
			}
		}
	}
	return out
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
