// Package testutil holds helpers shared by the harness's package tests: a
// goroutine leak detector and a stub tool server that runs inside the test
// binary itself.
package testutil

import (
	"runtime"
	"testing"
	"time"
)

// LeakDetector fails a test whose goroutine count grows between Start and
// Check. Subprocess plumbing is the usual culprit.
type LeakDetector struct {
	t              testing.TB
	initialCount   int
	allowedGrowth  int
	checkInterval  time.Duration
	stabilizeDelay time.Duration
}

// NewLeakDetector creates a detector reporting to t
func NewLeakDetector(t testing.TB) *LeakDetector {
	return &LeakDetector{
		t:              t,
		checkInterval:  50 * time.Millisecond,
		stabilizeDelay: 100 * time.Millisecond,
	}
}

// Start records the baseline goroutine count
func (d *LeakDetector) Start() {
	time.Sleep(d.stabilizeDelay)
	d.initialCount = runtime.NumGoroutine()
}

// Check compares the current goroutine count against the baseline. The
// lowest of three samples is used so goroutines still unwinding are not
// counted.
func (d *LeakDetector) Check() {
	d.t.Helper()
	time.Sleep(d.stabilizeDelay)

	finalCount := runtime.NumGoroutine()
	for i := 0; i < 2; i++ {
		time.Sleep(d.checkInterval)
		if count := runtime.NumGoroutine(); count < finalCount {
			finalCount = count
		}
	}

	leaked := finalCount - d.initialCount
	if leaked <= d.allowedGrowth {
		return
	}

	buf := make([]byte, 1<<20)
	n := runtime.Stack(buf, true)
	d.t.Errorf("goroutine leak: started with %d, ended with %d (leaked %d, allowed %d)\n%s",
		d.initialCount, finalCount, leaked, d.allowedGrowth, buf[:n])
}

// SetAllowedGrowth sets how many extra goroutines Check tolerates
func (d *LeakDetector) SetAllowedGrowth(n int) *LeakDetector {
	d.allowedGrowth = n
	return d
}

// SetStabilizeDelay sets the pause taken before sampling
func (d *LeakDetector) SetStabilizeDelay(delay time.Duration) *LeakDetector {
	d.stabilizeDelay = delay
	return d
}
