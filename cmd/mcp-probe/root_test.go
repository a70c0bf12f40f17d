package main

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ajitpratap0/mcp-probe/pkg/testutil"
)

func TestHelperProcess(t *testing.T) {
	testutil.RunHelperProcess()
}

func noEnv(string) (string, bool) { return "", false }

func execute(t *testing.T, lookupEnv func(string) (string, bool), args ...string) (string, string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	cmd := newRootCommand(&stdout, &stderr, lookupEnv)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

// stubConfig writes a configuration that launches this test binary as the
// tool server.
func stubConfig(t *testing.T, mode string, probes string) string {
	t.Helper()
	command, args, env := testutil.HelperCommand(mode)

	var b strings.Builder
	fmt.Fprintf(&b, "binary: %q\n", command)
	fmt.Fprintf(&b, "mode: %q\n", args[0])
	b.WriteString("args:\n")
	for _, a := range args[1:] {
		fmt.Fprintf(&b, "  - %q\n", a)
	}
	b.WriteString("env:\n")
	for _, e := range env {
		fmt.Fprintf(&b, "  - %q\n", e)
	}
	b.WriteString("timeout: 10s\n")
	b.WriteString(probes)

	path := filepath.Join(t.TempDir(), "probe.yaml")
	require.NoError(t, os.WriteFile(path, []byte(b.String()), 0600))
	return path
}

const twoProbes = `probes:
  - title: "TEST 4: find_usages"
    tool: neurosiphon_find_usages
    arguments:
      repoPath: ${repo}
      target_dir: services/py-mlx-bridge/src
      symbol_name: _copy_tokenizer_extras
  - title: "TEST 1c: repo_map without repoPath"
    tool: neurosiphon_repo_map
    arguments:
      target_dir: ${repo}/apps/desktop/src
`

func TestRunAgainstStubServer(t *testing.T) {
	path := stubConfig(t, testutil.ModeNoise, twoProbes)
	metricsFile := filepath.Join(t.TempDir(), "probe.prom")

	stdout, stderr, err := execute(t, noEnv, "--config", path, "--repo", "/fixtures", "--metrics-file", metricsFile)
	require.NoError(t, err, stderr)

	rule := strings.Repeat("=", 60)
	assert.Contains(t, stdout, rule+"\n  TEST 4: find_usages\n"+rule+"\n  "+testutil.DefaultStubText+"\n")
	assert.Contains(t, stdout, "  TEST 1c: repo_map without repoPath\n")
	assert.True(t, strings.HasSuffix(stdout, "\n\nDone.\n"))

	assert.Contains(t, stderr, "Probe arguments do not match tool schema")

	data, err := os.ReadFile(metricsFile)
	require.NoError(t, err)
	assert.Contains(t, string(data), "mcp_probe_probe_total")
}

func TestRunStrictSkipsInvalidProbe(t *testing.T) {
	path := stubConfig(t, testutil.ModeEcho, twoProbes)

	stdout, _, err := execute(t, noEnv, "--config", path, "--strict", "--log-level", "error")
	require.NoError(t, err)
	assert.Contains(t, stdout, "  INVALID_PROBE: ")
	assert.Contains(t, stdout, "  "+testutil.DefaultStubText+"\n")
}

func TestRunMissingBinaryStillCompletes(t *testing.T) {
	stdout, _, err := execute(t, noEnv, "--binary", "/nonexistent/neurosiphon", "--only", "TEST 5", "--log-format", "json")
	require.NoError(t, err)
	assert.Contains(t, stdout, "TEST 5: diagnostics")
	assert.Contains(t, stdout, "  LAUNCH_ERROR: ")
	assert.Contains(t, stdout, "Done.")
}

func TestRunEnvOverrides(t *testing.T) {
	env := func(key string) (string, bool) {
		if key == "MCP_PROBE_BINARY" {
			return "/nonexistent/from-env", true
		}
		return "", false
	}
	stdout, _, err := execute(t, env, "--only", "TEST 1b")
	require.NoError(t, err)
	assert.Contains(t, stdout, "/nonexistent/from-env")
}

func TestList(t *testing.T) {
	stdout, _, err := execute(t, noEnv, "--list")
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(stdout), "\n")
	require.Len(t, lines, 8)
	assert.True(t, strings.HasPrefix(lines[0], "TITLE"))
	assert.Contains(t, lines[4], "neurosiphon_call_hierarchy")
	assert.True(t, strings.HasSuffix(lines[7], "20"))
	assert.NotContains(t, stdout, "Done.")
}

func TestSetupErrors(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{"missing config", []string{"--config", "/nonexistent/probe.yaml"}},
		{"bad timeout", []string{"--timeout", "-1s"}},
		{"bad log level", []string{"--log-level", "chatty"}},
		{"no matching probe", []string{"--only", "TEST 99"}},
		{"bad exporter", []string{"--trace-exporter", "zipkin", "--binary", "/nonexistent/x"}},
		{"positional args", []string{"extra"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stdout, _, err := execute(t, noEnv, tt.args...)
			assert.Error(t, err)
			assert.NotContains(t, stdout, "Done.")
		})
	}
}
