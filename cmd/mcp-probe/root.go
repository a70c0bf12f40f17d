package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/ajitpratap0/mcp-probe/pkg/config"
	probeerrors "github.com/ajitpratap0/mcp-probe/pkg/errors"
	"github.com/ajitpratap0/mcp-probe/pkg/logging"
	"github.com/ajitpratap0/mcp-probe/pkg/observability"
	"github.com/ajitpratap0/mcp-probe/pkg/probe"
	"github.com/ajitpratap0/mcp-probe/pkg/schema"
	"github.com/ajitpratap0/mcp-probe/pkg/session"
)

var (
	Version = "dev"
	Commit  = "none"
)

// completionMarker is printed after the last probe, whatever the outcomes
const completionMarker = "\n\nDone.\n"

type rootOptions struct {
	configPath    string
	binary        string
	mode          string
	repo          string
	timeout       time.Duration
	strict        bool
	logLevel      string
	logFormat     string
	logColor      bool
	only          string
	list          bool
	metricsFile   string
	traceExporter string
	traceEndpoint string
	traceInsecure bool
}

func newRootCommand(stdout, stderr io.Writer, lookupEnv func(string) (string, bool)) *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:     "mcp-probe",
		Version: fmt.Sprintf("%s (%s)", Version, Commit),
		Short:   "Self-test an MCP tool server over stdio",
		Long: `mcp-probe launches an MCP tool server once per probe, performs the
initialize handshake, calls one tool and prints the first lines of the
answer. A probe that times out, fails to launch or returns nothing usable
is reported in place and the run continues.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			err := run(cmd, opts, stdout, stderr, lookupEnv)
			if err != nil {
				fmt.Fprintf(stderr, "mcp-probe: %v\n", err)
			}
			return err
		},
	}
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)

	flags := cmd.Flags()
	flags.StringVarP(&opts.configPath, "config", "c", "", "YAML file with settings and probes")
	flags.StringVar(&opts.binary, "binary", "", "tool server executable (env "+config.EnvBinary+")")
	flags.StringVar(&opts.mode, "mode", "", "first argument passed to the server (default \"mcp\")")
	flags.StringVar(&opts.repo, "repo", "", "fixture repository substituted for ${repo} (env "+config.EnvRepo+")")
	flags.DurationVar(&opts.timeout, "timeout", 0, "per-session timeout (env "+config.EnvTimeout+", default 60s)")
	flags.BoolVar(&opts.strict, "strict", false, "skip probes whose arguments violate the tool schema")
	flags.StringVar(&opts.logLevel, "log-level", "", "debug, info, warn or error")
	flags.StringVar(&opts.logFormat, "log-format", "", "text or json")
	flags.BoolVar(&opts.logColor, "log-color", false, "colorize text logs even when stderr is not a terminal")
	flags.StringVar(&opts.only, "only", "", "run only probes whose title contains this text")
	flags.BoolVar(&opts.list, "list", false, "print the probe table and exit")
	flags.StringVar(&opts.metricsFile, "metrics-file", "", "write Prometheus metrics to this file after the run")
	flags.StringVar(&opts.traceExporter, "trace-exporter", "none", "none, noop, otlp-grpc or otlp-http")
	flags.StringVar(&opts.traceEndpoint, "trace-endpoint", "", "OTLP collector endpoint (host:port)")
	flags.BoolVar(&opts.traceInsecure, "trace-insecure", false, "disable TLS for the OTLP exporter")

	return cmd
}

// loadConfig layers flags over environment over file over defaults
func loadConfig(cmd *cobra.Command, opts *rootOptions, lookupEnv func(string) (string, bool)) (*config.Config, error) {
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return nil, err
	}
	if err := cfg.ApplyEnv(lookupEnv); err != nil {
		return nil, err
	}

	flags := cmd.Flags()
	if flags.Changed("binary") {
		cfg.Binary = opts.binary
	}
	if flags.Changed("mode") {
		cfg.Mode = opts.mode
	}
	if flags.Changed("repo") {
		cfg.Repo = opts.repo
	}
	if flags.Changed("timeout") {
		cfg.Timeout = opts.timeout
	}
	if flags.Changed("strict") {
		cfg.StrictArguments = opts.strict
	}
	if flags.Changed("log-level") {
		cfg.Log.Level = opts.logLevel
	}
	if flags.Changed("log-format") {
		cfg.Log.Format = opts.logFormat
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func newLogger(cfg *config.Config, stderr io.Writer, forceColor bool) (logging.Logger, error) {
	formatter, err := logging.NewFormatter(cfg.Log.Format, forceColor || isTerminal(stderr))
	if err != nil {
		return nil, err
	}
	level, err := logging.ParseLevel(cfg.Log.Level)
	if err != nil {
		return nil, err
	}

	logger := logging.New(stderr, formatter)
	logger.SetLevel(level)
	return logger, nil
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	info, err := f.Stat()
	return err == nil && info.Mode()&os.ModeCharDevice != 0
}

func run(cmd *cobra.Command, opts *rootOptions, stdout, stderr io.Writer, lookupEnv func(string) (string, bool)) error {
	cfg, err := loadConfig(cmd, opts, lookupEnv)
	if err != nil {
		return err
	}

	probes := probe.Filter(cfg.ProbeTable(), opts.only)
	if opts.list {
		return listProbes(stdout, probes)
	}
	if len(probes) == 0 {
		return probeerrors.ConfigInvalid("only", fmt.Sprintf("no probe title contains %q", opts.only))
	}

	logger, err := newLogger(cfg, stderr, opts.logColor)
	if err != nil {
		return err
	}

	exporter, err := observability.ParseExporterType(opts.traceExporter)
	if err != nil {
		return probeerrors.ConfigInvalid("trace-exporter", err.Error())
	}
	tracer, err := observability.NewTracingProvider(observability.TracingConfig{
		ServiceName:    "mcp-probe",
		ServiceVersion: Version,
		ExporterType:   exporter,
		Endpoint:       opts.traceEndpoint,
		Insecure:       opts.traceInsecure,
	})
	if err != nil {
		return probeerrors.InternalError("start tracing", err)
	}
	defer shutdownTracer(tracer, logger)

	var metrics *observability.Metrics
	if opts.metricsFile != "" {
		if metrics, err = observability.NewMetrics(observability.MetricsConfig{}); err != nil {
			return err
		}
	}

	runID := logging.NewRunID()
	ctx := logging.ContextWithRunID(cmd.Context(), runID)
	logger.WithContext(ctx).Info("Probing tool server",
		logging.String("binary", cfg.Binary),
		logging.String("repo", cfg.RepoPath()),
		logging.Duration("timeout", cfg.Timeout),
		logging.String("version", Version),
	)

	runner := session.NewRunner(cfg.RunnerConfig(logger))
	driver := probe.NewDriver(
		observability.InstrumentRunner(runner, tracer, metrics),
		probe.WithOutput(stdout),
		probe.WithLogger(logger),
		probe.WithSchemas(schema.Builtin()),
		probe.WithStrictArguments(cfg.StrictArguments),
		probe.WithBuildOptions(cfg.BuildOptions()...),
		probe.WithMetrics(metrics),
		probe.WithTracer(tracer),
	)

	driver.Run(ctx, probes)
	fmt.Fprint(stdout, completionMarker)

	if err := metrics.WriteTextfile(opts.metricsFile); err != nil {
		logger.WithError(err).Error("Failed to write metrics")
	}
	return nil
}

func shutdownTracer(tracer *observability.TracingProvider, logger logging.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := tracer.Shutdown(ctx); err != nil {
		logger.WithError(err).Warn("Failed to flush traces")
	}
}

func listProbes(w io.Writer, probes []probe.Probe) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "TITLE\tTOOL\tMAX LINES")
	for _, p := range probes {
		maxLines := p.MaxLines
		if maxLines <= 0 {
			maxLines = probe.DefaultMaxLines
		}
		fmt.Fprintf(tw, "%s\t%s\t%d\n", p.Title, p.Tool, maxLines)
	}
	return tw.Flush()
}
