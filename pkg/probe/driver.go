package probe

import (
	"context"
	"fmt"
	"io"
	"os"
	"runtime/debug"
	"time"

	"go.opentelemetry.io/otel/attribute"

	probeerrors "github.com/ajitpratap0/mcp-probe/pkg/errors"
	"github.com/ajitpratap0/mcp-probe/pkg/extract"
	"github.com/ajitpratap0/mcp-probe/pkg/logging"
	"github.com/ajitpratap0/mcp-probe/pkg/observability"
	"github.com/ajitpratap0/mcp-probe/pkg/schema"
	"github.com/ajitpratap0/mcp-probe/pkg/session"
)

// Runner runs one session against a tool server
type Runner interface {
	Run(ctx context.Context, s *session.Session) (*session.RawOutput, error)
}

// Driver runs probes in order and writes their summaries
type Driver struct {
	runner       Runner
	out          io.Writer
	logger       logging.Logger
	schemas      *schema.Registry
	strict       bool
	buildOptions []session.BuildOption
	metrics      *observability.Metrics
	tracer       *observability.TracingProvider
}

// Option configures a Driver
type Option func(*Driver)

// WithOutput sets where summaries are written (default: stdout)
func WithOutput(w io.Writer) Option {
	return func(d *Driver) { d.out = w }
}

// WithLogger sets the logger
func WithLogger(logger logging.Logger) Option {
	return func(d *Driver) { d.logger = logger }
}

// WithSchemas enables argument checks against the registry
func WithSchemas(r *schema.Registry) Option {
	return func(d *Driver) { d.schemas = r }
}

// WithStrictArguments makes a probe whose arguments violate its schema fail
// without launching the server.
func WithStrictArguments(strict bool) Option {
	return func(d *Driver) { d.strict = strict }
}

// WithBuildOptions passes options to every session.Build call
func WithBuildOptions(opts ...session.BuildOption) Option {
	return func(d *Driver) { d.buildOptions = append(d.buildOptions, opts...) }
}

// WithMetrics records probe metrics
func WithMetrics(m *observability.Metrics) Option {
	return func(d *Driver) { d.metrics = m }
}

// WithTracer records run and probe spans
func WithTracer(tp *observability.TracingProvider) Option {
	return func(d *Driver) { d.tracer = tp }
}

// NewDriver creates a driver that runs sessions through runner
func NewDriver(runner Runner, opts ...Option) *Driver {
	d := &Driver{
		runner: runner,
		out:    os.Stdout,
		logger: logging.Nop(),
	}
	for _, opt := range opts {
		opt(d)
	}
	d.logger = d.logger.WithFields(logging.String("component", "Driver"))
	return d
}

// Run executes probes in declaration order. Every probe gets a Result, and a
// failing probe never stops the ones after it. Only a cancelled context ends
// the run early.
func (d *Driver) Run(ctx context.Context, probes []Probe) *Report {
	runID := logging.RunIDFromContext(ctx)
	if runID == "" {
		runID = logging.NewRunID()
		ctx = logging.ContextWithRunID(ctx, runID)
	}

	ctx, span := d.tracer.StartRunSpan(ctx, runID, len(probes))
	defer span.End()

	logger := d.logger.WithContext(ctx)
	logger.Info("Starting probe run", logging.Int("probes", len(probes)))

	report := &Report{RunID: runID, Results: make([]Result, 0, len(probes))}
	start := time.Now()

	for i, p := range probes {
		if ctx.Err() != nil {
			logger.Warn("Run cancelled", logging.Int("remaining", len(probes)-i))
			break
		}

		fmt.Fprint(d.out, Section(p.Title))
		res := d.runProbe(ctx, p)
		fmt.Fprint(d.out, Render(res.Text, p.MaxLines))

		report.Results = append(report.Results, res)
	}

	report.Duration = time.Since(start)
	d.metrics.RecordRun(report.Duration, time.Now())

	summary := report.Summary()
	fields := []logging.Field{logging.Duration("elapsed", report.Duration)}
	for _, o := range []Outcome{OutcomeOK, OutcomeToolError, OutcomeNoMatch, OutcomeTimeout, OutcomeLaunchError, OutcomeInvalid, OutcomeCancelled, OutcomeInternal} {
		if n := summary[o]; n > 0 {
			fields = append(fields, logging.Int(string(o), n))
		}
	}
	logger.Info("Probe run complete", fields...)
	d.tracer.SetAttributes(ctx, attribute.Int("probe.passed", summary[OutcomeOK]))

	return report
}

// runProbe executes one probe. It never panics and never returns an error;
// every failure becomes the Result's outcome and display text.
func (d *Driver) runProbe(ctx context.Context, p Probe) (res Result) {
	ctx, span := d.tracer.StartProbeSpan(ctx, p.Title, p.Tool)
	defer span.End()

	logger := d.logger.WithContext(ctx).WithFields(
		logging.String("probe", p.Title),
		logging.String("tool", p.Tool),
	)

	res = Result{Title: p.Title, Tool: p.Tool}
	start := time.Now()

	defer func() {
		if r := recover(); r != nil {
			err := probeerrors.InternalError("probe", fmt.Errorf("panic: %v", r)).
				WithDetail(string(debug.Stack())).
				WithContext(&probeerrors.Context{Probe: p.Title, Tool: p.Tool, Component: "Driver", Operation: "run_probe"})
			logger.WithError(err).Error("Probe panicked")
			res.Outcome = OutcomeInternal
			res.Text = fmt.Sprintf("%s: %s", MarkerInternal, err.Message())
			res.Err = err
		}

		res.Duration = time.Since(start)
		d.metrics.RecordProbe(p.Tool, string(res.Outcome), res.Duration)
		d.tracer.SetAttributes(ctx, attribute.String("probe.outcome", string(res.Outcome)))
		if res.Err != nil {
			d.tracer.RecordError(ctx, res.Err)
		}
		logger.Info("Probe finished",
			logging.String("outcome", string(res.Outcome)),
			logging.Duration("elapsed", res.Duration),
		)
	}()

	if issues := d.checkArguments(logger, p); len(issues) > 0 {
		res.Issues = issues
		if d.strict {
			err := probeerrors.CombineValidationErrors(issues)
			res.Outcome = OutcomeInvalid
			res.Text = fmt.Sprintf("%s: %s", MarkerInvalid, err.Error())
			res.Err = err
			return res
		}
	}

	s, err := session.Build(p.Tool, p.Arguments, d.buildOptions...)
	if err != nil {
		logger.WithError(err).Error("Failed to build session")
		res.Outcome = OutcomeInvalid
		res.Text = fmt.Sprintf("%s: %s", MarkerInvalid, err.Error())
		res.Err = err
		return res
	}

	out, err := d.runner.Run(ctx, s)
	if err != nil {
		logger.WithError(err).Warn("Session failed")
		res.Outcome, res.Text = failure(err)
		res.Err = err
		return res
	}
	res.ExitCode = out.ExitCode

	if init, ok := extract.Handshake(out.Stdout); ok && init.ServerInfo != nil {
		logger.Debug("Server identified",
			logging.String("server", init.ServerInfo.Name),
			logging.String("server_version", init.ServerInfo.Version),
			logging.String("protocol_version", init.ProtocolVersion),
		)
		d.tracer.SetAttributes(ctx,
			attribute.String("mcp.server.name", init.ServerInfo.Name),
			attribute.String("mcp.server.version", init.ServerInfo.Version),
		)
	}

	extracted := extract.Extract(out, s.Target)
	res.Skipped = extracted.Skipped
	res.Text = extracted.String()
	d.metrics.RecordSkippedLines(p.Tool, extracted.Skipped)
	if extracted.Skipped > 0 {
		logger.Debug("Skipped malformed output lines", logging.Int("skipped", extracted.Skipped))
	}

	switch {
	case !extracted.Matched:
		err := extract.NoMatchError(extracted, s.Target)
		if extracted.Remote != nil {
			logger = logger.WithFields(logging.String("rpc_error", extracted.Remote.Error()))
		}
		logger.WithError(err).Warn("No usable response")
		res.Outcome = OutcomeNoMatch
		res.Err = err
	case extracted.IsError:
		logger.Warn("Tool reported an error")
		res.Outcome = OutcomeToolError
	default:
		res.Outcome = OutcomeOK
	}
	return res
}

// checkArguments reports schema violations. They are logged as warnings and
// only block the probe in strict mode.
func (d *Driver) checkArguments(logger logging.Logger, p Probe) []probeerrors.ProbeError {
	if d.schemas == nil {
		return nil
	}
	issues := d.schemas.Check(p.Tool, p.Arguments)
	for _, issue := range issues {
		d.metrics.RecordArgumentIssue(p.Tool, issue.Code())
		logger.WithError(issue).Warn("Probe arguments do not match tool schema")
	}
	return issues
}

// failure maps a session error to its outcome and marker block. Partial
// output captured before a timeout is kept.
func failure(err error) (Outcome, string) {
	var stdout, stderr string
	perr, ok := probeerrors.AsProbeError(err)
	if ok {
		if data, ok := perr.Data().(*probeerrors.SessionErrorData); ok {
			stdout, stderr = data.Stdout, data.Stderr
		}
	}

	outcome, marker := OutcomeInternal, MarkerInternal
	switch {
	case probeerrors.IsCategory(err, probeerrors.CategoryTimeout):
		outcome, marker = OutcomeTimeout, MarkerTimeout
	case probeerrors.IsCategory(err, probeerrors.CategoryLaunch):
		outcome, marker = OutcomeLaunchError, MarkerLaunch
	case probeerrors.IsCategory(err, probeerrors.CategoryCancelled):
		outcome, marker = OutcomeCancelled, MarkerCancelled
	case probeerrors.IsCategory(err, probeerrors.CategoryValidation):
		outcome, marker = OutcomeInvalid, MarkerInvalid
	}

	message := err.Error()
	if ok {
		message = perr.Message()
	}
	if outcome == OutcomeTimeout {
		return outcome, extract.Evidence(marker, message, stdout, stderr)
	}
	return outcome, fmt.Sprintf("%s: %s", marker, message)
}
