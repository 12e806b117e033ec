package sentiment

import (
	"fmt"

	"github.com/spacesedan/sentilyst/internal/models"
)

const (
	DefaultPercentWeight    = 0.8
	DefaultConfidenceWeight = 0.2
)

// RiskScorer folds negative prevalence and the classifier's certainty about
// negative items into one number. It is a linear heuristic, not a calibrated
// probability: with the default weights the score lies in [0, 80.2].
type RiskScorer struct {
	PercentWeight    float64
	ConfidenceWeight float64
}

func DefaultRiskScorer() RiskScorer {
	return RiskScorer{
		PercentWeight:    DefaultPercentWeight,
		ConfidenceWeight: DefaultConfidenceWeight,
	}
}

// Score returns negative% * PercentWeight, plus the mean negative confidence
// times ConfidenceWeight when negative confidences are present, rounded to
// two decimals.
func (s RiskScorer) Score(percentages models.SentimentPercentages, confidences models.SentimentConfidences) float64 {
	risk := percentages.Negative * s.PercentWeight

	if negatives := confidences[models.LabelNegative]; len(negatives) > 0 {
		risk += mean(negatives) * s.ConfidenceWeight
	}

	return round2(risk)
}

// Validate rejects negative weights, which would break the score's bounds
// and its monotonicity in negative%.
func (s RiskScorer) Validate() error {
	if s.PercentWeight < 0 || s.ConfidenceWeight < 0 {
		return fmt.Errorf("risk weights must be >= 0, got percent=%v confidence=%v",
			s.PercentWeight, s.ConfidenceWeight)
	}
	return nil
}

// MaxScore is the upper bound of Score for valid inputs.
func (s RiskScorer) MaxScore() float64 {
	return round2(100*s.PercentWeight + s.ConfidenceWeight)
}

func mean(values []float64) float64 {
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}
