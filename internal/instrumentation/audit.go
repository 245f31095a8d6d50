package instrumentation

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/teemow/concierge/internal/logging"
)

// ToolInvocation captures one MCP tool call for the audit trail.
type ToolInvocation struct {
	Tool     string
	Account  string
	ThreadID string

	StartTime time.Time
	Duration  time.Duration
	Success   bool
	Error     string

	TraceID string
}

// NewToolInvocation creates a new ToolInvocation with timing started.
// Call Complete when the tool finishes.
func NewToolInvocation(tool string) *ToolInvocation {
	return &ToolInvocation{
		Tool:      tool,
		StartTime: time.Now(),
	}
}

// WithAccount sets the Google account name.
func (ti *ToolInvocation) WithAccount(account string) *ToolInvocation {
	ti.Account = account
	return ti
}

// WithThread sets the conversation thread (MCP session) id.
func (ti *ToolInvocation) WithThread(threadID string) *ToolInvocation {
	ti.ThreadID = threadID
	return ti
}

// WithSpanContext copies the trace id of the current span.
func (ti *ToolInvocation) WithSpanContext(ctx context.Context) *ToolInvocation {
	ti.TraceID = GetTraceID(ctx)
	return ti
}

// Complete marks the invocation as finished and records its duration.
func (ti *ToolInvocation) Complete(success bool, err error) *ToolInvocation {
	ti.Duration = time.Since(ti.StartTime)
	ti.Success = success
	if err != nil {
		ti.Error = err.Error()
	}
	return ti
}

// Status returns "success" or "error" based on the Success field.
func (ti *ToolInvocation) Status() string {
	if ti.Success {
		return StatusSuccess
	}
	return StatusError
}

func (ti *ToolInvocation) attrs() []any {
	attrs := []any{
		logging.Tool(ti.Tool),
		slog.Duration("duration", ti.Duration),
		slog.Bool("success", ti.Success),
	}
	if ti.Account != "" {
		attrs = append(attrs, logging.Account(ti.Account))
	}
	if ti.ThreadID != "" {
		attrs = append(attrs, logging.Thread(ti.ThreadID))
	}
	if ti.TraceID != "" {
		attrs = append(attrs, slog.String("trace_id", ti.TraceID))
	}
	if ti.Error != "" {
		attrs = append(attrs, slog.String(logging.KeyError, ti.Error))
	}
	return attrs
}

// ApprovalEvent captures a gated action entering review or being decided.
type ApprovalEvent struct {
	ThreadID   string
	ActionID   string
	Tool       string
	Draft      int
	Decision   string // empty for submissions
	Outcome    string
	Recipients []string
}

// AuditLogger writes the audit trail for tool calls and approvals.
type AuditLogger struct {
	logger     *slog.Logger
	includePII bool
	enabled    bool
}

// NewAuditLogger creates an AuditLogger with PII excluded.
func NewAuditLogger(logger *slog.Logger) *AuditLogger {
	return NewAuditLoggerWithConfig(logger, AuditLoggingConfig{Enabled: true})
}

// NewAuditLoggerWithConfig creates a new AuditLogger with the given configuration.
func NewAuditLoggerWithConfig(logger *slog.Logger, config AuditLoggingConfig) *AuditLogger {
	if logger == nil {
		logger = slog.Default()
	}
	return &AuditLogger{
		logger:     logger.With(slog.String("component", "audit")),
		includePII: config.IncludePII,
		enabled:    config.Enabled,
	}
}

// LogToolInvocation logs a finished tool invocation.
func (al *AuditLogger) LogToolInvocation(ti *ToolInvocation) {
	if al == nil || !al.enabled {
		return
	}
	if ti.Success {
		al.logger.Info("tool_executed", ti.attrs()...)
	} else {
		al.logger.Warn("tool_failed", ti.attrs()...)
	}
}

// LogApproval logs a submission or decision on a gated action. Recipients
// are hashed unless PII logging is enabled.
func (al *AuditLogger) LogApproval(ev ApprovalEvent) {
	if al == nil || !al.enabled {
		return
	}

	attrs := []any{
		logging.Thread(ev.ThreadID),
		slog.String("action_id", ev.ActionID),
		logging.Tool(ev.Tool),
		logging.Draft(ev.Draft),
	}
	if ev.Outcome != "" {
		attrs = append(attrs, slog.String("outcome", ev.Outcome))
	}
	if len(ev.Recipients) > 0 {
		recipients := make([]string, len(ev.Recipients))
		for i, r := range ev.Recipients {
			if al.includePII {
				recipients[i] = r
			} else {
				recipients[i] = logging.AnonymizeEmail(r)
			}
		}
		attrs = append(attrs,
			slog.String("recipients", strings.Join(recipients, ",")),
			slog.String("recipient_domains", strings.Join(RecipientDomains(ev.Recipients), ",")),
		)
	}

	if ev.Decision == "" {
		al.logger.Info("approval_requested", attrs...)
		return
	}
	attrs = append(attrs, slog.String("decision", ev.Decision))
	al.logger.Info("approval_decided", attrs...)
}
