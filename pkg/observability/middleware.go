package observability

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	probeerrors "github.com/ajitpratap0/mcp-probe/pkg/errors"
	"github.com/ajitpratap0/mcp-probe/pkg/session"
)

// SessionRunner runs one session against a tool server
type SessionRunner interface {
	Run(ctx context.Context, s *session.Session) (*session.RawOutput, error)
}

// InstrumentedRunner wraps a SessionRunner with a span and session metrics.
// The tracer and the metrics may each be nil.
type InstrumentedRunner struct {
	next    SessionRunner
	tracer  *TracingProvider
	metrics *Metrics
}

// InstrumentRunner returns next wrapped with tracing and metrics. When both
// are nil, next is returned unchanged.
func InstrumentRunner(next SessionRunner, tracer *TracingProvider, metrics *Metrics) SessionRunner {
	if tracer == nil && metrics == nil {
		return next
	}
	return &InstrumentedRunner{next: next, tracer: tracer, metrics: metrics}
}

// Run implements SessionRunner
func (r *InstrumentedRunner) Run(ctx context.Context, s *session.Session) (out *session.RawOutput, err error) {
	ctx, span := r.tracer.StartSessionSpan(ctx, s.Tool)
	defer span.End()

	defer func() {
		if p := recover(); p != nil {
			span.RecordError(fmt.Errorf("panic: %v", p))
			span.SetStatus(codes.Error, "panic occurred")
			panic(p)
		}
	}()

	out, err = r.next.Run(ctx, s)
	if err != nil {
		r.metrics.RecordSessionError(s.Tool, err)
		recordSessionError(span, err)
		return out, err
	}

	r.metrics.RecordSession(s.Tool, out.ExitCode, out.Duration)
	span.SetAttributes(
		attribute.Int("process.exit_code", out.ExitCode),
		attribute.Float64("mcp.session.duration_ms", float64(out.Duration.Milliseconds())),
		attribute.Int("mcp.session.stdout_bytes", len(out.Stdout)),
		attribute.Int("mcp.session.stderr_bytes", len(out.Stderr)),
	)
	if out.ExitCode != 0 {
		span.SetStatus(codes.Error, fmt.Sprintf("exit status %d", out.ExitCode))
	} else {
		span.SetStatus(codes.Ok, "")
	}
	return out, nil
}

func recordSessionError(span trace.Span, err error) {
	if !span.IsRecording() {
		return
	}
	if perr, ok := probeerrors.AsProbeError(err); ok {
		span.SetAttributes(
			attribute.String("error.category", string(perr.Category())),
			attribute.String("error.code", probeerrors.GetErrorCodeName(perr.Code())),
		)
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}
