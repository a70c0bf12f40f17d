package observability

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	probeerrors "github.com/ajitpratap0/mcp-probe/pkg/errors"
	"github.com/ajitpratap0/mcp-probe/pkg/session"
)

func newTestTracer(t *testing.T) (*TracingProvider, *tracetest.InMemoryExporter) {
	t.Helper()
	exporter := tracetest.NewInMemoryExporter()
	tp, err := NewTracingProvider(TracingConfig{Exporter: exporter})
	require.NoError(t, err)
	return tp, exporter
}

func TestParseExporterType(t *testing.T) {
	tests := []struct {
		in      string
		want    ExporterType
		wantErr bool
	}{
		{"", ExporterTypeNone, false},
		{"none", ExporterTypeNone, false},
		{"otlp-grpc", ExporterTypeOTLPGRPC, false},
		{"otlp-http", ExporterTypeOTLPHTTP, false},
		{"noop", ExporterTypeNoop, false},
		{"jaeger", "", true},
	}

	for _, tt := range tests {
		got, err := ParseExporterType(tt.in)
		if tt.wantErr {
			assert.Error(t, err, tt.in)
			continue
		}
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got)
	}
}

func TestTracingNoneIsNonRecording(t *testing.T) {
	tp, err := NewTracingProvider(TracingConfig{ExporterType: ExporterTypeNone})
	require.NoError(t, err)

	_, span := tp.StartRunSpan(context.Background(), "run", 3)
	assert.False(t, span.IsRecording())
	span.End()
	assert.NoError(t, tp.Shutdown(context.Background()))
}

func TestTracingNilProvider(t *testing.T) {
	var tp *TracingProvider
	ctx, span := tp.StartProbeSpan(context.Background(), "TEST 1", "tool")
	assert.False(t, span.IsRecording())
	tp.RecordError(ctx, errors.New("boom"))
	span.End()
	assert.NoError(t, tp.Shutdown(context.Background()))
}

func TestTracingSpanHierarchy(t *testing.T) {
	tp, exporter := newTestTracer(t)

	ctx, run := tp.StartRunSpan(context.Background(), "run-1", 1)
	probeCtx, probe := tp.StartProbeSpan(ctx, "TEST 4", "neurosiphon_find_usages")
	tp.AddEvent(probeCtx, "rendered")
	tp.RecordError(probeCtx, errors.New("no match"))
	probe.End()
	run.End()

	spans := exporter.GetSpans()
	require.Len(t, spans, 2)
	assert.Equal(t, "probe.execute", spans[0].Name)
	assert.Equal(t, "probe.run", spans[1].Name)
	assert.Equal(t, spans[1].SpanContext.SpanID(), spans[0].Parent.SpanID())
	assert.Equal(t, codes.Error, spans[0].Status.Code)
	require.Len(t, spans[0].Events, 2)
	assert.Equal(t, "rendered", spans[0].Events[0].Name)

	require.NoError(t, tp.Shutdown(context.Background()))
	assert.NoError(t, tp.Shutdown(context.Background()))
}

type fakeRunner struct {
	out *session.RawOutput
	err error
}

func (f *fakeRunner) Run(ctx context.Context, s *session.Session) (*session.RawOutput, error) {
	return f.out, f.err
}

func TestInstrumentRunnerPassthrough(t *testing.T) {
	next := &fakeRunner{}
	assert.Same(t, next, InstrumentRunner(next, nil, nil))
}

func TestInstrumentedRunner(t *testing.T) {
	tp, exporter := newTestTracer(t)
	metrics, err := NewMetrics(MetricsConfig{})
	require.NoError(t, err)

	s := &session.Session{Tool: "neurosiphon_diagnostics", Target: 3}

	t.Run("exit", func(t *testing.T) {
		exporter.Reset()
		runner := InstrumentRunner(&fakeRunner{out: &session.RawOutput{ExitCode: 2, Duration: time.Second}}, tp, metrics)

		out, err := runner.Run(context.Background(), s)
		require.NoError(t, err)
		assert.Equal(t, 2, out.ExitCode)

		spans := exporter.GetSpans()
		require.Len(t, spans, 1)
		assert.Equal(t, "mcp.session", spans[0].Name)
		assert.Equal(t, codes.Error, spans[0].Status.Code)
	})

	t.Run("timeout", func(t *testing.T) {
		exporter.Reset()
		timeout := probeerrors.SessionTimeout("server", time.Second, "", "")
		runner := InstrumentRunner(&fakeRunner{err: timeout}, tp, metrics)

		_, err := runner.Run(context.Background(), s)
		require.Error(t, err)

		spans := exporter.GetSpans()
		require.Len(t, spans, 1)
		assert.Equal(t, codes.Error, spans[0].Status.Code)

		var category string
		for _, attr := range spans[0].Attributes {
			if attr.Key == "error.category" {
				category = attr.Value.AsString()
			}
		}
		assert.Equal(t, "timeout", category)
	})
}
