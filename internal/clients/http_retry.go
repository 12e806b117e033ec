package clients

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"
)

// retryPolicy re-sends a request on transport errors, 429 and 5xx, doubling
// the backoff each time up to MAX_BACKOFF. Any other status is handed back to
// the caller.
type retryPolicy struct {
	component  string
	maxRetries int
	backoff    time.Duration
}

func newRetryPolicy(component string, backoff time.Duration) retryPolicy {
	if backoff <= 0 {
		backoff = INITIAL_BACKOFF
	}
	return retryPolicy{component: component, maxRetries: MAX_RETRIES, backoff: backoff}
}

// do builds a fresh request per attempt so request bodies are never reused.
func (p retryPolicy) do(ctx context.Context, client *http.Client, build func(context.Context) (*http.Request, error)) (*http.Response, error) {
	var lastErr error
	backoff := p.backoff

	for attempt := 0; attempt < p.maxRetries; attempt++ {
		req, err := build(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to build request: %w", err)
		}
		req.Header.Set("User-Agent", USER_AGENT)

		resp, err := client.Do(req)
		if err == nil && !retryable(resp.StatusCode) {
			return resp, nil
		}

		lastErr = fmt.Errorf("attempt %d: %s", attempt+1, errMsg(err, resp))
		if resp != nil {
			resp.Body.Close()
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}

		slog.Warn("["+p.component+"] Request failed, will retry",
			slog.Int("attempt", attempt+1),
			slog.Duration("backoff", backoff),
			slog.String("error", lastErr.Error()))

		if attempt == p.maxRetries-1 {
			break
		}
		if err := sleepContext(ctx, backoff); err != nil {
			return nil, err
		}
		backoff = min(backoff*2, MAX_BACKOFF)
	}

	return nil, fmt.Errorf("request failed after %d attempts: %w", p.maxRetries, lastErr)
}

func retryable(status int) bool {
	return status == http.StatusTooManyRequests || status >= http.StatusInternalServerError
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func getPreview(respBody []byte) slog.Attr {
	raw := string(respBody)
	if len(raw) > 50 {
		raw = raw[:50]
	}
	return slog.String("raw_response", raw)
}

func errMsg(err error, resp *http.Response) string {
	if err != nil {
		return err.Error()
	}
	if resp != nil {
		return fmt.Sprintf("status code %d", resp.StatusCode)
	}
	return "unknown error"
}
