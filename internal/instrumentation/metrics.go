package instrumentation

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metric attribute keys
const (
	attrMethod    = "method"
	attrPath      = "path"
	attrStatus    = "status"
	attrOperation = "operation"
	attrService   = "service"
	attrTool      = "tool"
	attrAccount   = "account"
	attrDecision  = "decision"
	attrOutcome   = "outcome"
	attrAgent     = "agent"
)

var latencyBuckets = []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0, 30.0}

// Metrics provides methods for recording observability metrics.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	// HTTP metrics
	httpRequestsTotal   metric.Int64Counter
	httpRequestDuration metric.Float64Histogram
	activeSessions      metric.Int64UpDownCounter

	// Google API metrics
	googleAPIOperationsTotal   metric.Int64Counter
	googleAPIOperationDuration metric.Float64Histogram

	// MCP tool metrics
	toolInvocationsTotal metric.Int64Counter
	toolDuration         metric.Float64Histogram

	// Scheduling and approval metrics
	availabilityQueriesTotal  metric.Int64Counter
	availabilityQueryDuration metric.Float64Histogram
	approvalDraftsTotal       metric.Int64Counter
	approvalDecisionsTotal    metric.Int64Counter

	// Agent metrics
	agentTurnsTotal   metric.Int64Counter
	agentTurnDuration metric.Float64Histogram

	// detailedLabels controls whether high-cardinality labels are included
	detailedLabels bool
}

// NewMetrics creates a new Metrics instance with all metrics initialized.
func NewMetrics(meter metric.Meter, detailedLabels bool) (*Metrics, error) {
	m := &Metrics{detailedLabels: detailedLabels}

	counters := []struct {
		dst  *metric.Int64Counter
		name string
		desc string
		unit string
	}{
		{&m.httpRequestsTotal, "http_requests_total", "Total number of HTTP requests", "{request}"},
		{&m.googleAPIOperationsTotal, "google_api_operations_total", "Total number of Google API operations", "{operation}"},
		{&m.toolInvocationsTotal, "mcp_tool_invocations_total", "Total number of MCP tool invocations", "{invocation}"},
		{&m.availabilityQueriesTotal, "availability_queries_total", "Total number of availability queries by result status", "{query}"},
		{&m.approvalDraftsTotal, "approval_drafts_total", "Total number of gated actions submitted for approval", "{draft}"},
		{&m.approvalDecisionsTotal, "approval_decisions_total", "Total number of approval decisions by outcome", "{decision}"},
		{&m.agentTurnsTotal, "agent_turns_total", "Total number of agent turns", "{turn}"},
	}
	for _, c := range counters {
		counter, err := meter.Int64Counter(c.name, metric.WithDescription(c.desc), metric.WithUnit(c.unit))
		if err != nil {
			return nil, fmt.Errorf("failed to create %s counter: %w", c.name, err)
		}
		*c.dst = counter
	}

	histograms := []struct {
		dst     *metric.Float64Histogram
		name    string
		desc    string
		buckets []float64
	}{
		{&m.httpRequestDuration, "http_request_duration_seconds", "HTTP request duration in seconds", []float64{0.001, 0.01, 0.1, 0.5, 1.0, 2.5, 5.0, 10.0}},
		{&m.googleAPIOperationDuration, "google_api_operation_duration_seconds", "Google API operation duration in seconds", latencyBuckets},
		{&m.toolDuration, "mcp_tool_duration_seconds", "MCP tool execution duration in seconds", latencyBuckets},
		{&m.availabilityQueryDuration, "availability_query_duration_seconds", "Availability computation duration in seconds", latencyBuckets},
		{&m.agentTurnDuration, "agent_turn_duration_seconds", "Agent turn duration in seconds", []float64{0.5, 1, 2.5, 5, 10, 30, 60, 120}},
	}
	for _, h := range histograms {
		hist, err := meter.Float64Histogram(h.name,
			metric.WithDescription(h.desc),
			metric.WithUnit("s"),
			metric.WithExplicitBucketBoundaries(h.buckets...),
		)
		if err != nil {
			return nil, fmt.Errorf("failed to create %s histogram: %w", h.name, err)
		}
		*h.dst = hist
	}

	var err error
	m.activeSessions, err = meter.Int64UpDownCounter(
		"active_sessions",
		metric.WithDescription("Number of active MCP sessions"),
		metric.WithUnit("{session}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create active_sessions gauge: %w", err)
	}

	return m, nil
}

// RecordHTTPRequest records an HTTP request with method, path, status code, and duration.
func (m *Metrics) RecordHTTPRequest(ctx context.Context, method, path string, statusCode int, duration time.Duration) {
	if m == nil || m.httpRequestsTotal == nil {
		return
	}

	attrs := metric.WithAttributes(
		attribute.String(attrMethod, method),
		attribute.String(attrPath, path),
		attribute.String(attrStatus, strconv.Itoa(statusCode)),
	)
	m.httpRequestsTotal.Add(ctx, 1, attrs)
	m.httpRequestDuration.Record(ctx, duration.Seconds(), attrs)
}

// RecordGoogleAPIOperation records a Google API call.
//
// Parameters:
//   - service: Google service name (calendar, gmail)
//   - operation: Operation type (list, create, freebusy, send)
//   - status: Result status ("success" or "error")
func (m *Metrics) RecordGoogleAPIOperation(ctx context.Context, service, operation, status string, duration time.Duration) {
	if m == nil || m.googleAPIOperationsTotal == nil {
		return
	}

	attrs := metric.WithAttributes(
		attribute.String(attrService, service),
		attribute.String(attrOperation, operation),
		attribute.String(attrStatus, status),
	)
	m.googleAPIOperationsTotal.Add(ctx, 1, attrs)
	m.googleAPIOperationDuration.Record(ctx, duration.Seconds(), attrs)
}

// RecordToolInvocation records an MCP tool invocation. The account label is
// only attached when detailed labels are enabled.
func (m *Metrics) RecordToolInvocation(ctx context.Context, toolName, status, account string, duration time.Duration) {
	if m == nil || m.toolInvocationsTotal == nil {
		return
	}

	kv := []attribute.KeyValue{
		attribute.String(attrTool, toolName),
		attribute.String(attrStatus, status),
	}
	if m.detailedLabels && account != "" {
		kv = append(kv, attribute.String(attrAccount, account))
	}

	attrs := metric.WithAttributes(kv...)
	m.toolInvocationsTotal.Add(ctx, 1, attrs)
	m.toolDuration.Record(ctx, duration.Seconds(), attrs)
}

// RecordAvailabilityQuery records one slot search. status is the result
// status (available, past_date, no_fit, fully_booked) or "error".
func (m *Metrics) RecordAvailabilityQuery(ctx context.Context, status string, duration time.Duration) {
	if m == nil || m.availabilityQueriesTotal == nil {
		return
	}

	attrs := metric.WithAttributes(attribute.String(attrStatus, status))
	m.availabilityQueriesTotal.Add(ctx, 1, attrs)
	m.availabilityQueryDuration.Record(ctx, duration.Seconds(), attrs)
}

// RecordApprovalDraft records a gated action entering review.
func (m *Metrics) RecordApprovalDraft(ctx context.Context, toolName string) {
	if m == nil || m.approvalDraftsTotal == nil {
		return
	}
	m.approvalDraftsTotal.Add(ctx, 1, metric.WithAttributes(attribute.String(attrTool, toolName)))
}

// RecordApprovalDecision records a human decision and what it led to.
func (m *Metrics) RecordApprovalDecision(ctx context.Context, decision, outcome string) {
	if m == nil || m.approvalDecisionsTotal == nil {
		return
	}
	m.approvalDecisionsTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String(attrDecision, decision),
		attribute.String(attrOutcome, outcome),
	))
}

// RecordAgentTurn records one agent turn from user input to reply or interrupt.
func (m *Metrics) RecordAgentTurn(ctx context.Context, agent, status string, duration time.Duration) {
	if m == nil || m.agentTurnsTotal == nil {
		return
	}

	attrs := metric.WithAttributes(
		attribute.String(attrAgent, agent),
		attribute.String(attrStatus, status),
	)
	m.agentTurnsTotal.Add(ctx, 1, attrs)
	m.agentTurnDuration.Record(ctx, duration.Seconds(), attrs)
}

// IncrementActiveSessions increments the active sessions counter.
func (m *Metrics) IncrementActiveSessions(ctx context.Context) {
	if m == nil || m.activeSessions == nil {
		return
	}
	m.activeSessions.Add(ctx, 1)
}

// DecrementActiveSessions decrements the active sessions counter.
func (m *Metrics) DecrementActiveSessions(ctx context.Context) {
	if m == nil || m.activeSessions == nil {
		return
	}
	m.activeSessions.Add(ctx, -1)
}
