package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/spacesedan/sentilyst/internal/models"
)

// Source yields raw text items for a query, e.g. "<headline> - <url>".
type Source interface {
	Name() string
	Fetch(ctx context.Context, query string) ([]string, error)
}

// collect runs every source concurrently and concatenates their items in
// source order. A source that fails, panics or runs past the timeout
// contributes nothing.
func collect(ctx context.Context, sources []Source, query string, timeout time.Duration) ([]string, []models.SourceCount) {
	results := make([][]string, len(sources))

	var wg sync.WaitGroup
	for i, src := range sources {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results[i] = fetchSource(ctx, src, query, timeout)
		}()
	}
	wg.Wait()

	var items []string
	counts := make([]models.SourceCount, len(sources))
	for i, src := range sources {
		items = append(items, results[i]...)
		counts[i] = models.SourceCount{Source: src.Name(), Count: len(results[i])}
	}
	return items, counts
}

type fetchOutcome struct {
	items []string
	err   error
}

func fetchSource(ctx context.Context, src Source, query string, timeout time.Duration) []string {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	start := time.Now()
	done := make(chan fetchOutcome, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- fetchOutcome{err: fmt.Errorf("panic: %v", r)}
			}
		}()
		items, err := src.Fetch(ctx, query)
		done <- fetchOutcome{items: items, err: err}
	}()

	select {
	case out := <-done:
		if out.err != nil {
			slog.Warn("[Pipeline] Source unavailable",
				slog.String("source", src.Name()),
				slog.String("error", out.err.Error()))
			return nil
		}
		slog.Debug("[Pipeline] Source fetched",
			slog.String("source", src.Name()),
			slog.Int("items", len(out.items)),
			slog.Duration("elapsed", time.Since(start)))
		return out.items
	case <-ctx.Done():
		slog.Warn("[Pipeline] Source timed out",
			slog.String("source", src.Name()),
			slog.Duration("timeout", timeout),
			slog.String("error", ctx.Err().Error()))
		return nil
	}
}
