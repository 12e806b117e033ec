package sentiment

import (
	"errors"
	"fmt"
	"math"

	"github.com/spacesedan/sentilyst/internal/models"
)

var ErrUnknownLabel = errors.New("unknown sentiment label")

// Summary is the tally of one batch of classification results.
type Summary struct {
	Counts      models.SentimentCounts
	Confidences models.SentimentConfidences
	Percentages models.SentimentPercentages
}

// Aggregate counts results per label, keeps each label's confidences and
// derives percentages. Labels are matched case-insensitively; anything outside
// positive/neutral/negative fails the whole aggregation.
func Aggregate(results []models.ClassificationResult) (Summary, error) {
	summary := Summary{
		Confidences: make(models.SentimentConfidences, len(models.SentimentLabels)),
	}
	for _, label := range models.SentimentLabels {
		summary.Confidences[label] = []float64{}
	}

	for i, result := range results {
		label, ok := models.ParseSentimentLabel(string(result.Label))
		if !ok {
			return Summary{}, fmt.Errorf("result %d: %w: %q", i, ErrUnknownLabel, result.Label)
		}
		summary.Counts.Inc(label)
		summary.Confidences[label] = append(summary.Confidences[label], result.Confidence)
	}

	summary.Percentages = Percentages(summary.Counts)
	return summary, nil
}

// Percentages converts counts to percentages rounded to two decimals. The
// denominator is floored at 1 so an empty tally yields all zeros.
func Percentages(counts models.SentimentCounts) models.SentimentPercentages {
	total := float64(max(1, counts.Total()))
	return models.SentimentPercentages{
		Positive: round2(float64(counts.Positive) / total * 100),
		Neutral:  round2(float64(counts.Neutral) / total * 100),
		Negative: round2(float64(counts.Negative) / total * 100),
	}
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
