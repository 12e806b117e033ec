package monitoring

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"
)

const HEALTHCHECK_TIMER = 15 * time.Second

// checkTimeout bounds one health check so a hung backend cannot stall the loop.
const checkTimeout = 30 * time.Second

// HealthChecker is satisfied by *classifier.Classifier.
type HealthChecker interface {
	CheckHealth(ctx context.Context) error
}

// MonitorClassifierHealth checks the classifier right away and then every
// interval until ctx is cancelled, storing the latest verdict in healthy.
func MonitorClassifierHealth(ctx context.Context, classifier HealthChecker, healthy *atomic.Bool, interval time.Duration) {
	if interval <= 0 {
		interval = HEALTHCHECK_TIMER
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	checkOnce(ctx, classifier, healthy)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			checkOnce(ctx, classifier, healthy)
		}
	}
}

func checkOnce(ctx context.Context, classifier HealthChecker, healthy *atomic.Bool) {
	ctx, cancel := context.WithTimeout(ctx, checkTimeout)
	defer cancel()

	err := classifier.CheckHealth(ctx)
	was := healthy.Swap(err == nil)
	switch {
	case err != nil && ctx.Err() == nil:
		slog.Warn("[HealthCheck] Classifier is unhealthy", slog.String("error", err.Error()))
	case err == nil && !was:
		slog.Info("[HealthCheck] Classifier is healthy")
	}
}
