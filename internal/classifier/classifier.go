package classifier

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/spacesedan/sentilyst/internal/models"
	"github.com/spacesedan/sentilyst/internal/utils"
)

const (
	DefaultBatchSize = 32
	DefaultMaxTokens = 512

	warmUpText = "warm up"
)

var (
	// ErrClassifierUnavailable means the model could not be loaded.
	ErrClassifierUnavailable = errors.New("classifier unavailable")
	// ErrClassification means inference ran but failed or returned unusable output.
	ErrClassification = errors.New("classification failed")
)

// Backend is a pretrained sequence-classification model. Logits returns one
// row per text, in input order, with columns ordered like Labels. Backends
// truncate each text to their token limit and pad within a call.
type Backend interface {
	Load(ctx context.Context) error
	Labels() []string
	Logits(ctx context.Context, texts []string) ([][]float64, error)
	Close() error
}

// HealthChecker is implemented by backends that can answer a liveness check
// more cheaply than an inference.
type HealthChecker interface {
	Healthy(ctx context.Context) error
}

type Options struct {
	BatchSize int
	// LabelAliases maps raw backend labels (e.g. LABEL_0) to sentiment labels.
	LabelAliases map[string]string
}

// Classifier is the process-wide entry point to the sentiment model. The
// backend is loaded at most once, on first use or WarmUp, and is only read
// afterwards, so one Classifier can serve concurrent requests.
type Classifier struct {
	backend   Backend
	batchSize int
	aliases   map[string]models.SentimentLabel

	loadMu sync.Mutex
	loaded atomic.Bool
	labels []models.SentimentLabel
}

func New(backend Backend, opts Options) (*Classifier, error) {
	if backend == nil {
		return nil, errors.New("classifier backend is nil")
	}

	batchSize := opts.BatchSize
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}

	aliases := make(map[string]models.SentimentLabel, len(opts.LabelAliases))
	for raw, target := range opts.LabelAliases {
		label, ok := models.ParseSentimentLabel(target)
		if !ok {
			return nil, fmt.Errorf("label alias %q -> %q: not a sentiment label", raw, target)
		}
		aliases[strings.ToLower(strings.TrimSpace(raw))] = label
	}

	return &Classifier{
		backend:   backend,
		batchSize: batchSize,
		aliases:   aliases,
	}, nil
}

func (c *Classifier) BatchSize() int {
	return c.batchSize
}

// Ready reports whether the backend has been loaded.
func (c *Classifier) Ready() bool {
	return c.loaded.Load()
}

// WarmUp loads the backend and runs one throwaway inference so the first real
// request does not pay the cold-start cost.
func (c *Classifier) WarmUp(ctx context.Context) error {
	start := time.Now()
	if _, err := c.Classify(ctx, warmUpText); err != nil {
		return err
	}
	slog.Info("[Classifier] Warm up complete", slog.Duration("elapsed", time.Since(start)))
	return nil
}

// CheckHealth loads and warms the backend on first call. Afterwards it asks
// the backend's HealthChecker when there is one and runs a one-item
// inference otherwise.
func (c *Classifier) CheckHealth(ctx context.Context) error {
	if !c.loaded.Load() {
		return c.WarmUp(ctx)
	}

	checker, ok := c.backend.(HealthChecker)
	if !ok {
		_, err := c.Classify(ctx, warmUpText)
		return err
	}
	if err := checker.Healthy(ctx); err != nil {
		return fmt.Errorf("%w: %w", ErrClassifierUnavailable, err)
	}
	return nil
}

// Classify labels a single text.
func (c *Classifier) Classify(ctx context.Context, text string) (models.ClassificationResult, error) {
	results, err := c.ClassifyBatch(ctx, []string{text})
	if err != nil {
		return models.ClassificationResult{}, err
	}
	return results[0], nil
}

// ClassifyBatch labels texts in contiguous chunks of at most BatchSize, one
// backend call per chunk. The result has exactly one entry per text, in the
// same order, whatever the chunking.
func (c *Classifier) ClassifyBatch(ctx context.Context, texts []string) ([]models.ClassificationResult, error) {
	if len(texts) == 0 {
		return []models.ClassificationResult{}, nil
	}
	if err := c.ensureLoaded(ctx); err != nil {
		return nil, err
	}

	results := make([]models.ClassificationResult, 0, len(texts))
	for i, batch := range utils.Batches(texts, c.batchSize) {
		start := time.Now()
		logits, err := c.backend.Logits(ctx, batch)
		if err != nil {
			return nil, fmt.Errorf("%w: batch %d: %w", ErrClassification, i, err)
		}
		if len(logits) != len(batch) {
			return nil, fmt.Errorf("%w: batch %d: got %d rows for %d texts",
				ErrClassification, i, len(logits), len(batch))
		}

		for j, row := range logits {
			result, err := c.decide(row)
			if err != nil {
				return nil, fmt.Errorf("%w: batch %d item %d: %w", ErrClassification, i, j, err)
			}
			results = append(results, result)
		}

		slog.Debug("[Classifier] Batch classified",
			slog.Int("batch", i),
			slog.Int("size", len(batch)),
			slog.Duration("elapsed", time.Since(start)))
	}

	return results, nil
}

func (c *Classifier) Close() error {
	return c.backend.Close()
}

func (c *Classifier) ensureLoaded(ctx context.Context) error {
	if c.loaded.Load() {
		return nil
	}

	c.loadMu.Lock()
	defer c.loadMu.Unlock()
	if c.loaded.Load() {
		return nil
	}

	start := time.Now()
	slog.Info("[Classifier] Loading model backend")
	if err := c.backend.Load(ctx); err != nil {
		slog.Error("[Classifier] Failed to load model backend",
			slog.String("error", err.Error()))
		return fmt.Errorf("%w: %w", ErrClassifierUnavailable, err)
	}

	rawLabels := c.backend.Labels()
	if len(rawLabels) < 2 {
		return fmt.Errorf("%w: backend exposes %d labels", ErrClassifierUnavailable, len(rawLabels))
	}
	labels := make([]models.SentimentLabel, len(rawLabels))
	for i, raw := range rawLabels {
		label, err := c.normalizeLabel(raw)
		if err != nil {
			return fmt.Errorf("%w: %w", ErrClassifierUnavailable, err)
		}
		labels[i] = label
	}

	c.labels = labels
	c.loaded.Store(true)
	slog.Info("[Classifier] Model backend loaded",
		slog.Any("labels", labels),
		slog.Duration("elapsed", time.Since(start)))
	return nil
}

func (c *Classifier) normalizeLabel(raw string) (models.SentimentLabel, error) {
	key := strings.ToLower(strings.TrimSpace(raw))
	if label, ok := c.aliases[key]; ok {
		return label, nil
	}
	if label, ok := models.ParseSentimentLabel(key); ok {
		return label, nil
	}
	return "", fmt.Errorf("backend label %q does not map to a sentiment label", raw)
}

func (c *Classifier) decide(row []float64) (models.ClassificationResult, error) {
	if len(row) != len(c.labels) {
		return models.ClassificationResult{}, fmt.Errorf("got %d logits for %d labels", len(row), len(c.labels))
	}

	probs, err := Softmax(row)
	if err != nil {
		return models.ClassificationResult{}, err
	}
	best := Argmax(probs)

	return models.ClassificationResult{
		Label:      c.labels[best],
		Confidence: probs[best],
	}, nil
}
