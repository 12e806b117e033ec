package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/spacesedan/sentilyst/internal/models"
	"github.com/spacesedan/sentilyst/internal/sentiment"
)

const (
	DefaultMaxItems      = 30
	DefaultMaxTextChars  = 500
	DefaultSourceTimeout = 10 * time.Second

	publishTimeout = 10 * time.Second
	dateLayout     = "2006-01-02"
)

type Classifier interface {
	ClassifyBatch(ctx context.Context, texts []string) ([]models.ClassificationResult, error)
}

// AnalysisStore persists the per-user history of analyses.
type AnalysisStore interface {
	SaveAnalysis(ctx context.Context, record models.AnalysisRecord) error
	ListAnalyses(ctx context.Context, userID string) ([]models.AnalysisRecord, error)
	DeleteAnalysis(ctx context.Context, userID, id string) error
}

// ResultCache holds recently computed analyses by query.
type ResultCache interface {
	GetAnalysis(ctx context.Context, query string) (models.Analysis, bool, error)
	SetAnalysis(ctx context.Context, analysis models.Analysis) error
}

type EventPublisher interface {
	PublishAnalysis(ctx context.Context, event models.AnalysisEvent) error
}

// Deps wires the driven adapters into the analyzer. Only Classifier is
// required; Store, Cache and Events are skipped when nil.
type Deps struct {
	Sources    []Source
	Classifier Classifier
	Store      AnalysisStore
	Cache      ResultCache
	Events     EventPublisher
	Metrics    Metrics
}

type Options struct {
	MaxItems      int
	MaxTextChars  int
	SourceTimeout time.Duration
	Location      *time.Location
	// Risk defaults to sentiment.DefaultRiskScorer when nil.
	Risk *sentiment.RiskScorer
}

// Analyzer runs collect, cap & truncate, classify, aggregate and score for
// a query, then persists and publishes the outcome.
type Analyzer struct {
	sources    []Source
	classifier Classifier
	store      AnalysisStore
	cache      ResultCache
	events     EventPublisher
	metrics    Metrics

	maxItems      int
	maxTextChars  int
	sourceTimeout time.Duration
	loc           *time.Location
	risk          sentiment.RiskScorer
	now           func() time.Time

	publishing sync.WaitGroup
}

func NewAnalyzer(deps Deps, opts Options) (*Analyzer, error) {
	if deps.Classifier == nil {
		return nil, fmt.Errorf("[Pipeline] classifier is required")
	}

	if opts.MaxItems <= 0 {
		opts.MaxItems = DefaultMaxItems
	}
	if opts.MaxTextChars <= 0 {
		opts.MaxTextChars = DefaultMaxTextChars
	}
	if opts.SourceTimeout <= 0 {
		opts.SourceTimeout = DefaultSourceTimeout
	}
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	risk := sentiment.DefaultRiskScorer()
	if opts.Risk != nil {
		if err := opts.Risk.Validate(); err != nil {
			return nil, fmt.Errorf("[Pipeline] %w", err)
		}
		risk = *opts.Risk
	}

	sources := make([]Source, 0, len(deps.Sources))
	for _, src := range deps.Sources {
		if src != nil {
			sources = append(sources, src)
		}
	}

	return &Analyzer{
		sources:       sources,
		classifier:    deps.Classifier,
		store:         deps.Store,
		cache:         deps.Cache,
		events:        deps.Events,
		metrics:       deps.Metrics,
		maxItems:      opts.MaxItems,
		maxTextChars:  opts.MaxTextChars,
		sourceTimeout: opts.SourceTimeout,
		loc:           opts.Location,
		risk:          risk,
		now:           time.Now,
	}, nil
}

// Analyze computes the sentiment breakdown and risk level for query. When
// userID is set and a store is configured the result is saved; a failed
// save returns the result inside an *UnsavedError.
func (a *Analyzer) Analyze(ctx context.Context, query, userID string) (models.AnalysisResult, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return models.AnalysisResult{}, ErrEmptyQuery
	}

	start := time.Now()
	analysis, cached, err := a.compute(ctx, query)
	if err != nil {
		a.metrics.countOutcome(ctx, "failed")
		return models.AnalysisResult{}, err
	}
	// A cache entry may have been filled under another spelling of the query.
	analysis.Query = query

	now := a.now().In(a.loc)
	result := models.AnalysisResult{
		Query:                analysis.Query,
		RawItems:             analysis.RawItems,
		SentimentCounts:      analysis.SentimentCounts,
		SentimentPercentages: analysis.SentimentPercentages,
		RiskLevel:            analysis.RiskLevel,
		CreatedAt:            now.Format(dateLayout),
	}
	if result.RawItems == nil {
		result.RawItems = []string{}
	}

	result, err = a.persist(ctx, analysis, result, userID, now)
	a.publish(ctx, analysis, cached, now)

	outcome := "ok"
	if err != nil {
		outcome = "unsaved"
	}
	a.metrics.countOutcome(ctx, outcome)

	slog.Info("[Pipeline] Analysis complete",
		slog.String("query", query),
		slog.Int("items", len(result.RawItems)),
		slog.Float64("risk_level", result.RiskLevel),
		slog.Bool("cached", cached),
		slog.Bool("saved", result.Saved),
		slog.Duration("elapsed", time.Since(start)))
	return result, err
}

func (a *Analyzer) compute(ctx context.Context, query string) (models.Analysis, bool, error) {
	if a.cache != nil {
		analysis, ok, err := a.cache.GetAnalysis(ctx, query)
		if err != nil {
			slog.Warn("[Pipeline] Cache read failed",
				slog.String("query", query),
				slog.String("error", err.Error()))
		}
		if ok {
			slog.Debug("[Pipeline] Cache hit", slog.String("query", query))
			return analysis, true, nil
		}
	}

	analysis, err := a.run(ctx, query)
	if err != nil {
		return models.Analysis{}, false, err
	}

	if a.cache != nil {
		if err := a.cache.SetAnalysis(ctx, analysis); err != nil {
			slog.Warn("[Pipeline] Cache write failed",
				slog.String("query", query),
				slog.String("error", err.Error()))
		}
	}
	return analysis, false, nil
}

func (a *Analyzer) run(ctx context.Context, query string) (models.Analysis, error) {
	if err := stageCheck(ctx, "collect"); err != nil {
		return models.Analysis{}, err
	}
	stageStart := time.Now()
	items, sourceCounts := collect(ctx, a.sources, query, a.sourceTimeout)
	a.stageDone(ctx, "collect", stageStart)

	if err := stageCheck(ctx, "prepare"); err != nil {
		return models.Analysis{}, err
	}
	stageStart = time.Now()
	capped := items[:min(a.maxItems, len(items))]
	texts := make([]string, len(capped))
	for i, item := range capped {
		texts[i] = sentiment.PrepareText(item, a.maxTextChars)
	}
	a.stageDone(ctx, "prepare", stageStart)

	if err := stageCheck(ctx, "classify"); err != nil {
		return models.Analysis{}, err
	}
	stageStart = time.Now()
	results, err := a.classifier.ClassifyBatch(ctx, texts)
	if err != nil {
		return models.Analysis{}, fmt.Errorf("classify: %w", err)
	}
	a.stageDone(ctx, "classify", stageStart)

	if err := stageCheck(ctx, "aggregate"); err != nil {
		return models.Analysis{}, err
	}
	stageStart = time.Now()
	summary, err := sentiment.Aggregate(results)
	if err != nil {
		return models.Analysis{}, fmt.Errorf("aggregate: %w", err)
	}
	a.stageDone(ctx, "aggregate", stageStart)

	if err := stageCheck(ctx, "score"); err != nil {
		return models.Analysis{}, err
	}
	risk := a.risk.Score(summary.Percentages, summary.Confidences)

	return models.Analysis{
		Query:                query,
		RawItems:             items,
		SourceCounts:         sourceCounts,
		SentimentCounts:      summary.Counts,
		SentimentPercentages: summary.Percentages,
		RiskLevel:            risk,
	}, nil
}

func (a *Analyzer) persist(ctx context.Context, analysis models.Analysis, result models.AnalysisResult, userID string, now time.Time) (models.AnalysisResult, error) {
	if userID == "" {
		return result, nil
	}
	if a.store == nil {
		slog.Warn("[Pipeline] Caller identified but no store configured; result not saved")
		return result, nil
	}
	if err := stageCheck(ctx, "persist"); err != nil {
		return result, &UnsavedError{Result: result, Err: err}
	}

	stageStart := time.Now()
	record := NewRecord(analysis, userID, now)
	if err := a.store.SaveAnalysis(ctx, record); err != nil {
		slog.Error("[Pipeline] Failed to save analysis",
			slog.String("query", analysis.Query),
			slog.String("error", err.Error()))
		return result, &UnsavedError{Result: result, Err: err}
	}
	a.stageDone(ctx, "persist", stageStart)

	result.CreatedAt = record.CreatedAt
	result.Saved = true
	return result, nil
}

// NewRecord flattens an analysis into the history row saved for userID.
func NewRecord(analysis models.Analysis, userID string, createdAt time.Time) models.AnalysisRecord {
	sourceCounts := make(map[string]int, len(analysis.SourceCounts))
	for _, sc := range analysis.SourceCounts {
		sourceCounts[sc.Source] = sc.Count
	}

	return models.AnalysisRecord{
		UserID:          userID,
		Query:           analysis.Query,
		Positive:        analysis.SentimentPercentages.Positive,
		Negative:        analysis.SentimentPercentages.Negative,
		RedditCount:     analysis.CountFor(models.SourceReddit),
		GoogleNewsCount: analysis.CountFor(models.SourceGoogleNews),
		SourceCounts:    sourceCounts,
		TotalResults:    len(analysis.RawItems),
		RiskLevel:       analysis.RiskLevel,
		CreatedAt:       createdAt.Format(time.RFC3339),
	}
}

// publish hands the event to the publisher in the background; Wait blocks
// until every pending publish has finished.
func (a *Analyzer) publish(ctx context.Context, analysis models.Analysis, cached bool, now time.Time) {
	if a.events == nil {
		return
	}

	event := models.AnalysisEvent{
		Query:                analysis.Query,
		SentimentCounts:      analysis.SentimentCounts,
		SentimentPercentages: analysis.SentimentPercentages,
		RiskLevel:            analysis.RiskLevel,
		TotalResults:         len(analysis.RawItems),
		Cached:               cached,
		AnalyzedAt:           now,
	}

	a.publishing.Add(1)
	go func() {
		defer a.publishing.Done()
		ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
		defer cancel()

		if err := a.events.PublishAnalysis(ctx, event); err != nil {
			slog.Warn("[Pipeline] Failed to publish analysis event",
				slog.String("query", event.Query),
				slog.String("error", err.Error()))
		}
	}()
}

func (a *Analyzer) Wait() {
	a.publishing.Wait()
}

func (a *Analyzer) stageDone(ctx context.Context, stage string, start time.Time) {
	a.metrics.observeStage(ctx, stage, start)
	slog.Debug("[Pipeline] Stage finished",
		slog.String("stage", stage),
		slog.Duration("elapsed", time.Since(start)))
}

func stageCheck(ctx context.Context, stage string) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%s: %w", stage, err)
	}
	return nil
}
