package observability

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	promtestutil "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	probeerrors "github.com/ajitpratap0/mcp-probe/pkg/errors"
)

func TestMetricsRecording(t *testing.T) {
	m, err := NewMetrics(MetricsConfig{})
	require.NoError(t, err)

	m.RecordProbe("neurosiphon_repo_map", "ok", 120*time.Millisecond)
	m.RecordProbe("neurosiphon_repo_map", "ok", 80*time.Millisecond)
	m.RecordProbe("neurosiphon_diagnostics", "timeout", time.Minute)
	m.RecordSession("neurosiphon_repo_map", 0, time.Second)
	m.RecordSession("neurosiphon_repo_map", 1, time.Second)
	m.RecordSessionError("neurosiphon_diagnostics", probeerrors.SessionTimeout("server", time.Minute, "", ""))
	m.RecordSkippedLines("neurosiphon_repo_map", 3)
	m.RecordSkippedLines("neurosiphon_repo_map", 0)
	m.RecordArgumentIssue("neurosiphon_repo_map", probeerrors.CodeMissingArgument)
	m.RecordRun(5*time.Second, time.Unix(1700000000, 0))

	assert.Equal(t, 2.0, promtestutil.ToFloat64(m.probeTotal.WithLabelValues("neurosiphon_repo_map", "ok")))
	assert.Equal(t, 1.0, promtestutil.ToFloat64(m.probeTotal.WithLabelValues("neurosiphon_diagnostics", "timeout")))
	assert.Equal(t, 1.0, promtestutil.ToFloat64(m.sessionExits.WithLabelValues("neurosiphon_repo_map", "1")))
	assert.Equal(t, 1.0, promtestutil.ToFloat64(m.sessionErrors.WithLabelValues("neurosiphon_diagnostics", "timeout")))
	assert.Equal(t, 3.0, promtestutil.ToFloat64(m.skippedLines.WithLabelValues("neurosiphon_repo_map")))
	assert.Equal(t, 1.0, promtestutil.ToFloat64(m.argumentIssues.WithLabelValues("neurosiphon_repo_map", "MissingArgument")))
	assert.Equal(t, 5.0, promtestutil.ToFloat64(m.runDuration))
	assert.Equal(t, 1700000000.0, promtestutil.ToFloat64(m.runTimestamp))
}

func TestMetricsNilSafe(t *testing.T) {
	var m *Metrics
	m.RecordProbe("tool", "ok", time.Second)
	m.RecordSession("tool", 0, time.Second)
	m.RecordRun(time.Second, time.Now())
	assert.Nil(t, m.Registry())
	assert.NoError(t, m.WriteTextfile("/nonexistent/metrics.prom"))
}

func TestMetricsInstancesAreIndependent(t *testing.T) {
	a, err := NewMetrics(MetricsConfig{})
	require.NoError(t, err)
	b, err := NewMetrics(MetricsConfig{})
	require.NoError(t, err)

	a.RecordProbe("tool", "ok", time.Second)
	assert.Equal(t, 0.0, promtestutil.ToFloat64(b.probeTotal.WithLabelValues("tool", "ok")))
}

func TestWriteTextfile(t *testing.T) {
	m, err := NewMetrics(MetricsConfig{Namespace: "selftest"})
	require.NoError(t, err)
	m.RecordProbe("neurosiphon_find_usages", "ok", time.Second)

	path := filepath.Join(t.TempDir(), "probe.prom")
	require.NoError(t, m.WriteTextfile(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `selftest_probe_total{outcome="ok",tool="neurosiphon_find_usages"} 1`)
}

func TestWriteTextfileBadPath(t *testing.T) {
	m, err := NewMetrics(MetricsConfig{})
	require.NoError(t, err)

	err = m.WriteTextfile(filepath.Join(t.TempDir(), "missing", "dir", "probe.prom"))
	require.Error(t, err)
	assert.True(t, probeerrors.IsCategory(err, probeerrors.CategoryInternal))
}
