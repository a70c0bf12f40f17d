package session

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"os/exec"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	probeerrors "github.com/ajitpratap0/mcp-probe/pkg/errors"
	"github.com/ajitpratap0/mcp-probe/pkg/logging"
)

const (
	// DefaultTimeout bounds a whole session, launch to exit
	DefaultTimeout = 60 * time.Second

	// DefaultWaitDelay is how long pipes may stay open after the process is
	// killed before they are closed forcibly.
	DefaultWaitDelay = 2 * time.Second
)

// RunnerConfig describes the tool server to launch. Env entries are
// KEY=VALUE pairs appended to the parent environment.
type RunnerConfig struct {
	Command   string
	Args      []string
	Timeout   time.Duration
	WaitDelay time.Duration
	Env       []string
	Dir       string
	Logger    logging.Logger
}

// RawOutput is everything a finished session wrote
type RawOutput struct {
	Stdout   string
	Stderr   string
	ExitCode int
	Duration time.Duration
}

// Runner launches one subprocess per session
type Runner struct {
	config RunnerConfig
	logger logging.Logger
}

// NewRunner creates a runner, filling in default timeouts
func NewRunner(config RunnerConfig) *Runner {
	if config.Timeout <= 0 {
		config.Timeout = DefaultTimeout
	}
	if config.WaitDelay <= 0 {
		config.WaitDelay = DefaultWaitDelay
	}

	logger := config.Logger
	if logger == nil {
		logger = logging.Nop()
	}

	return &Runner{
		config: config,
		logger: logger.WithFields(logging.String("component", "Runner")),
	}
}

// Config returns a copy of the runner's configuration
func (r *Runner) Config() RunnerConfig {
	return r.config
}

// syncBuffer lets exec's copy goroutine and a timed-out caller share a
// buffer.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

// Run feeds the encoded session to a new subprocess and waits for it to exit.
// Any exit status is a successful run; the status is recorded in RawOutput.
// Errors are reserved for sessions that never produced a complete output:
// launch failure, timeout and cancellation.
func (r *Runner) Run(ctx context.Context, s *Session) (*RawOutput, error) {
	blob, err := Encode(s)
	if err != nil {
		return nil, err
	}

	if err := ctx.Err(); err != nil {
		return nil, probeerrors.SessionCancelled(r.config.Command, err)
	}

	runCtx, cancel := context.WithTimeout(ctx, r.config.Timeout)
	defer cancel()

	cmd := exec.CommandContext(runCtx, r.config.Command, r.config.Args...)
	cmd.Dir = r.config.Dir
	cmd.WaitDelay = r.config.WaitDelay
	killProcessGroup(cmd)
	if len(r.config.Env) > 0 {
		cmd.Env = append(os.Environ(), r.config.Env...)
	}

	var stdout, stderr syncBuffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, probeerrors.SessionIOError(r.config.Command, "stdin_pipe", err)
	}

	logger := r.logger.WithContext(ctx).WithFields(
		logging.String("tool", s.Tool),
		logging.String("command", r.config.Command),
	)

	start := time.Now()
	if err := cmd.Start(); err != nil {
		return nil, probeerrors.LaunchFailed(r.config.Command, r.config.Args, err).
			WithContext(&probeerrors.Context{
				Tool:      s.Tool,
				Component: "Runner",
				Operation: "start",
			})
	}
	logger.Debug("Session started", logging.Int("pid", cmd.Process.Pid), logging.Int("bytes", len(blob)))

	var g errgroup.Group
	g.Go(func() error {
		r.feed(logger, stdin, blob)
		return nil
	})
	g.Go(cmd.Wait)
	waitErr := g.Wait()
	elapsed := time.Since(start)

	switch {
	case waitErr == nil:
	case ctx.Err() != nil:
		logger.Debug("Session cancelled", logging.Duration("elapsed", elapsed))
		return nil, probeerrors.SessionCancelled(r.config.Command, ctx.Err()).
			WithContext(&probeerrors.Context{Tool: s.Tool, Component: "Runner", Operation: "wait"})

	case errors.Is(runCtx.Err(), context.DeadlineExceeded):
		logger.Warn("Session timed out, process killed", logging.Duration("timeout", r.config.Timeout))
		return nil, probeerrors.SessionTimeout(r.config.Command, r.config.Timeout, stdout.String(), stderr.String()).
			WithContext(&probeerrors.Context{Tool: s.Tool, Component: "Runner", Operation: "wait"})
	}

	var exitErr *exec.ExitError
	switch {
	case waitErr == nil, errors.As(waitErr, &exitErr):
	case errors.Is(waitErr, exec.ErrWaitDelay):
		// The server exited but something kept its pipes open; what was
		// captured up to the forced close is still the session's output.
		logger.Debug("Output pipes closed after wait delay")
	default:
		return nil, probeerrors.SessionIOError(r.config.Command, "wait", waitErr).
			WithContext(&probeerrors.Context{Tool: s.Tool, Component: "Runner", Operation: "wait"})
	}

	out := &RawOutput{
		Stdout:   stdout.String(),
		Stderr:   stderr.String(),
		ExitCode: cmd.ProcessState.ExitCode(),
		Duration: elapsed,
	}

	fields := []logging.Field{
		logging.Int("exit_code", out.ExitCode),
		logging.Duration("elapsed", elapsed),
		logging.Int("stdout_bytes", len(out.Stdout)),
		logging.Int("stderr_bytes", len(out.Stderr)),
	}
	if out.ExitCode != 0 {
		logger.Warn("Server exited with non-zero status", fields...)
	} else {
		logger.Debug("Session finished", fields...)
	}
	return out, nil
}

// feed writes the whole session to stdin and closes it. A server that exits
// without reading its input is not an error.
func (r *Runner) feed(logger logging.Logger, stdin io.WriteCloser, blob []byte) {
	if _, err := stdin.Write(blob); err != nil {
		logger.Debug("Stdin write failed", logging.ErrorField(err))
	}
	if err := stdin.Close(); err != nil {
		logger.Debug("Stdin close failed", logging.ErrorField(err))
	}
}
