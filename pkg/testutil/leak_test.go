package testutil

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type recordingTB struct {
	testing.TB
	failed bool
}

func (r *recordingTB) Helper() {}

func (r *recordingTB) Errorf(string, ...interface{}) {
	r.failed = true
}

func TestLeakDetector(t *testing.T) {
	t.Run("NoLeak", func(t *testing.T) {
		detector := NewLeakDetector(t)
		detector.Start()

		ch := make(chan struct{})
		go func() { ch <- struct{}{} }()
		<-ch

		detector.Check()
	})

	t.Run("DetectsLeak", func(t *testing.T) {
		rec := &recordingTB{TB: t}
		detector := NewLeakDetector(rec).SetStabilizeDelay(10 * time.Millisecond)
		detector.Start()

		stop := make(chan struct{})
		defer close(stop)
		go func() { <-stop }()

		detector.Check()
		assert.True(t, rec.failed)
	})

	t.Run("AllowedGrowth", func(t *testing.T) {
		rec := &recordingTB{TB: t}
		detector := NewLeakDetector(rec).SetAllowedGrowth(1)
		detector.Start()

		stop := make(chan struct{})
		defer close(stop)
		go func() { <-stop }()

		detector.Check()
		assert.False(t, rec.failed)
	})
}

func TestHelperCommand(t *testing.T) {
	command, args, env := HelperCommand(ModeEcho, "hello")
	assert.NotEmpty(t, command)
	assert.Equal(t, []string{"-test.run=TestHelperProcess", "--", ModeEcho, "hello"}, args)
	assert.Equal(t, []string{HelperEnv + "=1"}, env)
}
