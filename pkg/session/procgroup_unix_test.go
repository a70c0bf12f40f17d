//go:build unix

package session

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	probeerrors "github.com/ajitpratap0/mcp-probe/pkg/errors"
	"github.com/ajitpratap0/mcp-probe/pkg/testutil"
)

func TestRunTimeoutKillsSpawnedChildren(t *testing.T) {
	command, args, env := testutil.HelperCommand(testutil.ModeSpawn)
	r := NewRunner(RunnerConfig{
		Command:   command,
		Args:      args,
		Env:       env,
		Timeout:   time.Second,
		WaitDelay: 10 * time.Second,
	})

	start := time.Now()
	_, err := r.Run(context.Background(), findUsagesSession(t))
	elapsed := time.Since(start)

	require.Error(t, err)
	assert.True(t, probeerrors.IsCategory(err, probeerrors.CategoryTimeout))
	// A surviving child would hold stdout open until WaitDelay expired.
	assert.Less(t, elapsed, 6*time.Second)

	perr, ok := probeerrors.AsProbeError(err)
	require.True(t, ok)
	data, ok := perr.Data().(*probeerrors.SessionErrorData)
	require.True(t, ok)
	assert.Contains(t, data.Stdout, "spawned ")
}
