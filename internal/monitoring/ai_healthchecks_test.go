package monitoring

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type flakyChecker struct {
	calls     atomic.Int32
	failUntil int32
}

func (f *flakyChecker) CheckHealth(context.Context) error {
	if f.calls.Add(1) <= f.failUntil {
		return errors.New("model not loaded")
	}
	return nil
}

func TestMonitorClassifierHealth(t *testing.T) {
	checker := &flakyChecker{failUntil: 3}
	var healthy atomic.Bool
	healthy.Store(true)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		MonitorClassifierHealth(ctx, checker, &healthy, 20*time.Millisecond)
		close(done)
	}()

	assert.Eventually(t, func() bool { return checker.calls.Load() >= 1 && !healthy.Load() },
		time.Second, time.Millisecond, "failing checks should mark the classifier unhealthy")
	assert.Eventually(t, func() bool { return checker.calls.Load() > 3 && healthy.Load() },
		time.Second, time.Millisecond, "a later check should recover")

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("monitor did not stop after cancellation")
	}
}
