package agent

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/teemow/concierge/internal/approval"
	"github.com/teemow/concierge/internal/instrumentation"
	"github.com/teemow/concierge/internal/logging"
	"github.com/teemow/concierge/internal/router"
)

// DefaultMaxIterations bounds the model/tool round trips of one turn.
const DefaultMaxIterations = 10

// ErrMaxIterations is returned when a turn does not settle on a text reply.
var ErrMaxIterations = errors.New("agent exceeded the maximum number of tool iterations")

// HandlerFunc runs an ungated tool.
type HandlerFunc func(ctx context.Context, threadID string, args map[string]any) (string, error)

// Tool is a tool the agent offers to its model. Gated tools are not run by
// the agent; their calls are submitted for approval instead.
type Tool struct {
	Spec    ToolSpec
	Gated   bool
	Handler HandlerFunc
}

// Config configures an Agent.
type Config struct {
	Name          string
	SystemPrompt  string
	Tools         []Tool
	Model         Model
	Machine       *approval.Machine // required when any tool is gated
	MaxIterations int
	Logger        *slog.Logger
	Metrics       *instrumentation.Metrics
}

// awaiting holds a turn stopped at a gated call. results answers every
// call of the model reply; results[index] is filled in once decided.
type awaiting struct {
	results []ToolResult
	index   int
}

type threadState struct {
	mu       sync.Mutex
	session  Session
	awaiting *awaiting
}

// Agent runs a model with tools over per-thread sessions.
type Agent struct {
	name     string
	system   string
	model    Model
	machine  *approval.Machine
	tools    map[string]Tool
	specs    []ToolSpec
	maxIters int
	logger   *slog.Logger
	metrics  *instrumentation.Metrics

	mu      sync.Mutex
	threads map[string]*threadState
}

// New creates an Agent.
func New(cfg Config) (*Agent, error) {
	if cfg.Model == nil {
		return nil, errors.New("model is required")
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.MaxIterations <= 0 {
		cfg.MaxIterations = DefaultMaxIterations
	}

	a := &Agent{
		name:     cfg.Name,
		system:   cfg.SystemPrompt,
		model:    cfg.Model,
		machine:  cfg.Machine,
		tools:    make(map[string]Tool, len(cfg.Tools)),
		maxIters: cfg.MaxIterations,
		logger:   logging.WithAgent(cfg.Logger, cfg.Name),
		metrics:  cfg.Metrics,
		threads:  make(map[string]*threadState),
	}
	for _, t := range cfg.Tools {
		if t.Gated && cfg.Machine == nil {
			return nil, fmt.Errorf("tool %s is gated but no approval machine is configured", t.Spec.Name)
		}
		if !t.Gated && t.Handler == nil {
			return nil, fmt.Errorf("tool %s has no handler", t.Spec.Name)
		}
		a.tools[t.Spec.Name] = t
		a.specs = append(a.specs, t.Spec)
	}
	return a, nil
}

// Name returns the agent name.
func (a *Agent) Name() string {
	return a.name
}

func (a *Agent) thread(threadID string) *threadState {
	a.mu.Lock()
	defer a.mu.Unlock()
	ts, ok := a.threads[threadID]
	if !ok {
		ts = &threadState{}
		a.threads[threadID] = ts
	}
	return ts
}

// Forget drops the conversation history of a thread.
func (a *Agent) Forget(threadID string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	delete(a.threads, threadID)
}

func (ts *threadState) ensureSession(a *Agent) error {
	if ts.session != nil {
		return nil
	}
	s, err := a.model.NewSession(a.system, a.specs)
	if err != nil {
		return fmt.Errorf("failed to start %s session: %w", a.name, err)
	}
	ts.session = s
	return nil
}

// Invoke runs a new request. If the thread already has a draft awaiting a
// decision, the draft is returned again instead.
func (a *Agent) Invoke(ctx context.Context, threadID, request string) (res router.Result, err error) {
	ctx, done := a.startTurn(ctx, threadID, "invoke")
	defer func() { done(err) }()

	ts := a.thread(threadID)
	ts.mu.Lock()
	defer ts.mu.Unlock()

	if ts.awaiting != nil {
		if pending, ok := a.machine.Pending(threadID); ok {
			return router.Result{
				Text:      "A previous action is still waiting for your decision.",
				Interrupt: &pending,
			}, nil
		}
		// The draft was resolved elsewhere; the session still expects a
		// tool response, so start over.
		ts.awaiting = nil
		ts.session = nil
	}

	// A settled action does not outlive the request that produced it.
	if a.machine != nil {
		switch a.machine.State(threadID) {
		case approval.StateCompleted, approval.StateAbandoned:
			a.machine.Reset(threadID)
		}
	}

	if err := ts.ensureSession(a); err != nil {
		return router.Result{}, err
	}
	reply, err := ts.session.SendText(ctx, request)
	if err != nil {
		return router.Result{}, err
	}
	return a.loop(ctx, ts, threadID, reply)
}

// Resume applies a decision to the thread's pending draft and continues
// the interrupted turn.
func (a *Agent) Resume(ctx context.Context, threadID string, d approval.Decision) (res router.Result, err error) {
	ctx, done := a.startTurn(ctx, threadID, "resume")
	defer func() { done(err) }()

	if a.machine == nil {
		out := approval.Outcome{Kind: approval.OutcomeNothingPending}
		return router.Result{Outcome: &out}, nil
	}

	ts := a.thread(threadID)
	ts.mu.Lock()
	defer ts.mu.Unlock()

	out, err := a.machine.Decide(ctx, threadID, d)
	if err != nil {
		return router.Result{}, err
	}
	res = router.Result{Outcome: &out}

	switch out.Kind {
	case approval.OutcomeNothingPending, approval.OutcomeAwaitingRedraft:
		return res, nil
	case approval.OutcomeAbandoned:
		ts.awaiting = nil
		ts.session = nil
		return res, nil
	}

	if ts.awaiting == nil || ts.session == nil {
		// Submitted outside this agent's turn loop.
		if out.Kind == approval.OutcomeRedraftRequested {
			a.machine.Withdraw(threadID)
		}
		return res, nil
	}

	results := ts.awaiting.results
	results[ts.awaiting.index].Output = toolFeedback(out)
	ts.awaiting = nil

	reply, err := ts.session.SendResults(ctx, results)
	if err == nil {
		var next router.Result
		next, err = a.loop(ctx, ts, threadID, reply)
		res.Text, res.Interrupt = next.Text, next.Interrupt
	}
	if out.Kind == approval.OutcomeRedraftRequested && res.Interrupt == nil {
		// No new draft was produced.
		if a.machine.Withdraw(threadID) {
			abandoned := approval.Outcome{Kind: approval.OutcomeAbandoned, Action: out.Action}
			res.Outcome = &abandoned
		}
	}
	if err != nil {
		ts.session = nil
		return router.Result{}, err
	}
	return res, nil
}

// loop executes tool calls until the model answers with text or a gated
// call needs a decision.
func (a *Agent) loop(ctx context.Context, ts *threadState, threadID string, reply Reply) (router.Result, error) {
	for range a.maxIters {
		if len(reply.Calls) == 0 {
			return router.Result{Text: reply.Text}, nil
		}

		results := make([]ToolResult, len(reply.Calls))
		var interrupt *approval.PendingAction
		gatedIndex := -1

		for i, call := range reply.Calls {
			results[i].Name = call.Name

			tool, ok := a.tools[call.Name]
			switch {
			case !ok:
				results[i].Output = fmt.Sprintf("Error: unknown tool %q", call.Name)

			case tool.Gated && interrupt != nil:
				results[i].Output = "Error: only one action can await approval at a time. Retry after the user has decided."

			case tool.Gated:
				action, err := a.machine.Submit(ctx, threadID, call.Name, call.Args)
				if err != nil {
					results[i].Output = fmt.Sprintf("Error: %v", err)
					continue
				}
				interrupt = &action
				gatedIndex = i

			default:
				results[i].Output = a.runTool(ctx, threadID, tool, call)
			}
		}

		if interrupt != nil {
			ts.awaiting = &awaiting{results: results, index: gatedIndex}
			a.logger.InfoContext(ctx, "turn interrupted for approval",
				logging.Thread(threadID),
				logging.Tool(interrupt.ToolName),
				logging.Draft(interrupt.DraftSequence))
			return router.Result{Text: reply.Text, Interrupt: interrupt}, nil
		}

		var err error
		reply, err = ts.session.SendResults(ctx, results)
		if err != nil {
			return router.Result{}, err
		}
	}
	ts.session = nil
	return router.Result{}, ErrMaxIterations
}

func (a *Agent) runTool(ctx context.Context, threadID string, tool Tool, call ToolCall) string {
	ctx, span := instrumentation.StartToolSpan(ctx, call.Name)
	defer span.End()

	out, err := tool.Handler(ctx, threadID, call.Args)
	if err != nil {
		instrumentation.SetSpanError(span, err)
		a.logger.WarnContext(ctx, "tool failed", logging.Tool(call.Name), logging.Err(err))
		return fmt.Sprintf("Error: %v", err)
	}
	return out
}

func (a *Agent) startTurn(ctx context.Context, threadID, op string) (context.Context, func(error)) {
	ctx, span := instrumentation.StartAgentSpan(ctx, a.name, threadID)
	start := time.Now()
	return ctx, func(err error) {
		status := instrumentation.StatusSuccess
		if err != nil {
			status = instrumentation.StatusError
			instrumentation.SetSpanError(span, err)
			a.logger.ErrorContext(ctx, "agent turn failed", logging.Operation(op), logging.Thread(threadID), logging.Err(err))
		}
		a.metrics.RecordAgentTurn(ctx, a.name, status, time.Since(start))
		span.End()
	}
}

// toolFeedback is the tool response the model sees for a decided draft.
func toolFeedback(out approval.Outcome) string {
	switch out.Kind {
	case approval.OutcomeExecuted:
		return out.Result
	case approval.OutcomeFailed:
		return fmt.Sprintf("Error: the action was approved but failed: %s. Do not retry.", out.Error)
	case approval.OutcomeRedraftRequested:
		return out.Feedback
	default:
		return "The action was not executed."
	}
}
