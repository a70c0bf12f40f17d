package session

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	probeerrors "github.com/ajitpratap0/mcp-probe/pkg/errors"
	"github.com/ajitpratap0/mcp-probe/pkg/protocol"
	"github.com/ajitpratap0/mcp-probe/pkg/testutil"
)

func TestHelperProcess(t *testing.T) {
	testutil.RunHelperProcess()
}

func helperRunner(timeout time.Duration, mode string, extra ...string) *Runner {
	command, args, env := testutil.HelperCommand(mode, extra...)
	return NewRunner(RunnerConfig{
		Command: command,
		Args:    args,
		Env:     env,
		Timeout: timeout,
	})
}

func findUsagesSession(t *testing.T) *Session {
	t.Helper()
	s, err := Build("neurosiphon_find_usages", protocol.NewArguments().
		Set("repoPath", "/repo").
		Set("target_dir", "services/py-mlx-bridge/src").
		Set("symbol_name", "_copy_tokenizer_extras"))
	require.NoError(t, err)
	return s
}

func TestNewRunnerDefaults(t *testing.T) {
	r := NewRunner(RunnerConfig{Command: "server"})
	assert.Equal(t, DefaultTimeout, r.Config().Timeout)
	assert.Equal(t, DefaultWaitDelay, r.Config().WaitDelay)
}

func TestRunEcho(t *testing.T) {
	r := helperRunner(10*time.Second, testutil.ModeEcho)

	out, err := r.Run(context.Background(), findUsagesSession(t))
	require.NoError(t, err)

	assert.Equal(t, 0, out.ExitCode)
	assert.Contains(t, out.Stdout, `"id":1`)
	assert.Contains(t, out.Stdout, testutil.DefaultStubText)
	assert.Contains(t, out.Stderr, "stub server starting")
	assert.Positive(t, out.Duration)
}

func TestRunFeedsWholeSession(t *testing.T) {
	r := helperRunner(10*time.Second, testutil.ModeStdin)
	s := findUsagesSession(t)

	out, err := r.Run(context.Background(), s)
	require.NoError(t, err)

	blob, err := Encode(s)
	require.NoError(t, err)
	assert.Equal(t, string(blob), out.Stdout)
	assert.Len(t, strings.Split(strings.TrimSpace(out.Stdout), "\n"), 3)
}

func TestRunRecordsNonZeroExit(t *testing.T) {
	r := helperRunner(10*time.Second, testutil.ModeExit, "3")

	out, err := r.Run(context.Background(), findUsagesSession(t))
	require.NoError(t, err)
	assert.Equal(t, 3, out.ExitCode)
	assert.Contains(t, out.Stdout, testutil.DefaultStubText)
}

func TestRunServerIgnoresStdin(t *testing.T) {
	r := helperRunner(10*time.Second, testutil.ModeNoRead)

	out, err := r.Run(context.Background(), findUsagesSession(t))
	require.NoError(t, err)
	assert.Equal(t, "bye\n", out.Stdout)
}

func TestRunTimeout(t *testing.T) {
	detector := testutil.NewLeakDetector(t)
	detector.Start()

	r := helperRunner(500*time.Millisecond, testutil.ModeHang)

	start := time.Now()
	out, err := r.Run(context.Background(), findUsagesSession(t))
	require.Error(t, err)
	assert.Nil(t, out)
	assert.Less(t, time.Since(start), 10*time.Second)

	assert.True(t, probeerrors.IsCategory(err, probeerrors.CategoryTimeout))
	perr, ok := probeerrors.AsProbeError(err)
	require.True(t, ok)
	data, ok := perr.Data().(*probeerrors.SessionErrorData)
	require.True(t, ok)
	assert.Equal(t, 500*time.Millisecond, data.Timeout)

	detector.Check()
}

func TestRunLaunchFailure(t *testing.T) {
	r := NewRunner(RunnerConfig{
		Command: "/nonexistent/mcp-server-binary",
		Args:    []string{"mcp"},
		Timeout: time.Second,
	})

	out, err := r.Run(context.Background(), findUsagesSession(t))
	require.Error(t, err)
	assert.Nil(t, out)
	assert.True(t, probeerrors.IsCategory(err, probeerrors.CategoryLaunch))
	assert.True(t, probeerrors.IsCode(err, probeerrors.CodeLaunchFailed))
}

func TestRunCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	r := helperRunner(10*time.Second, testutil.ModeEcho)
	_, err := r.Run(ctx, findUsagesSession(t))
	require.Error(t, err)
	assert.True(t, probeerrors.IsCategory(err, probeerrors.CategoryCancelled))
}

func TestRunCancelledMidSession(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(300*time.Millisecond, cancel)

	r := helperRunner(10*time.Second, testutil.ModeHang)
	_, err := r.Run(ctx, findUsagesSession(t))
	require.Error(t, err)
	assert.True(t, probeerrors.IsCategory(err, probeerrors.CategoryCancelled))
}

func TestRunInvalidSession(t *testing.T) {
	r := helperRunner(time.Second, testutil.ModeEcho)
	_, err := r.Run(context.Background(), &Session{Target: 3})
	require.Error(t, err)
	assert.True(t, probeerrors.IsCode(err, probeerrors.CodeInvalidSession))
}
