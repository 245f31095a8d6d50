// Package instrumentation provides OpenTelemetry metrics, tracing and audit
// logging for concierge.
//
// # Metrics
//
// Server/HTTP:
//   - http_requests_total, http_request_duration_seconds
//   - active_sessions: open MCP sessions
//
// Google API:
//   - google_api_operations_total, google_api_operation_duration_seconds
//     by service (calendar, gmail), operation and status
//
// Scheduling and approval:
//   - availability_queries_total, availability_query_duration_seconds by result status
//   - approval_drafts_total: gated actions submitted for review
//   - approval_decisions_total: decisions by kind and outcome
//
// Agents and tools:
//   - agent_turns_total, agent_turn_duration_seconds
//   - mcp_tool_invocations_total, mcp_tool_duration_seconds
//
// A nil *Metrics records nothing, so packages can accept an optional recorder.
//
// # Tracing
//
// Spans are created for MCP tool invocations (tool.<name>), Google API calls
// (google.<service>.<operation>) and agent turns (agent.<name>).
//
// # Configuration
//
//   - INSTRUMENTATION_ENABLED: Enable/disable instrumentation (default: true)
//   - METRICS_EXPORTER: prometheus, otlp or stdout (default: prometheus)
//   - TRACING_EXPORTER: otlp, stdout or none (default: none)
//   - OTEL_EXPORTER_OTLP_ENDPOINT: OTLP endpoint for traces/metrics
//   - OTEL_TRACES_SAMPLER_ARG: Sampling rate (0.0 to 1.0, default: 0.1)
//   - OTEL_SERVICE_NAME: Service name (default: concierge)
//
// # Example Usage
//
//	provider, err := instrumentation.NewProvider(ctx, instrumentation.DefaultConfig())
//	if err != nil {
//		return err
//	}
//	defer provider.Shutdown(ctx)
//
//	provider.Metrics().RecordApprovalDecision(ctx, "approve", "executed")
package instrumentation
