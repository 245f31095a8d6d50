package instrumentation

import (
	"context"
	"errors"
	"testing"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.opentelemetry.io/otel/trace"
)

func installRecorder(t *testing.T) *tracetest.SpanRecorder {
	t.Helper()
	rec := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(rec))
	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	t.Cleanup(func() {
		otel.SetTracerProvider(prev)
		_ = tp.Shutdown(context.Background())
	})
	return rec
}

func TestSpans(t *testing.T) {
	rec := installRecorder(t)
	ctx := context.Background()

	_, span := StartToolSpan(ctx, "email_send")
	span.End()

	_, span = StartGoogleAPISpan(ctx, ServiceCalendar, OperationFreeBusy)
	SetSpanError(span, errors.New("quota"))
	span.End()

	agentCtx, span := StartAgentSpan(ctx, "supervisor", "thread-1")
	if GetTraceID(agentCtx) == "" {
		t.Error("expected a trace id inside an agent span")
	}
	SetSpanSuccess(span)
	span.End()

	ended := rec.Ended()
	if len(ended) != 3 {
		t.Fatalf("recorded %d spans, want 3", len(ended))
	}

	if ended[0].Name() != "tool.email_send" || ended[0].SpanKind() != trace.SpanKindServer {
		t.Errorf("tool span = %s/%s", ended[0].Name(), ended[0].SpanKind())
	}
	if ended[1].Name() != "google.calendar.freebusy" || ended[1].Status().Code != codes.Error {
		t.Errorf("google span = %s/%v", ended[1].Name(), ended[1].Status())
	}
	if ended[2].Name() != "agent.supervisor" || ended[2].Status().Code != codes.Ok {
		t.Errorf("agent span = %s/%v", ended[2].Name(), ended[2].Status())
	}
}

func TestSetSpanError_Nil(t *testing.T) {
	rec := installRecorder(t)

	_, span := StartToolSpan(context.Background(), "noop")
	SetSpanError(span, nil)
	span.End()

	if got := rec.Ended()[0].Status().Code; got != codes.Unset {
		t.Errorf("status = %v, want Unset for nil error", got)
	}
}

func TestGetTraceID_NoSpan(t *testing.T) {
	if id := GetTraceID(context.Background()); id != "" {
		t.Errorf("GetTraceID() = %q, want empty", id)
	}
}
