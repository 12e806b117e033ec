package classifier

import (
	"errors"
	"math"
)

var errNonFiniteLogits = errors.New("logits contain no finite maximum")

// Softmax normalizes logits into probabilities. The maximum is subtracted
// first so large logits do not overflow.
func Softmax(logits []float64) ([]float64, error) {
	if len(logits) == 0 {
		return nil, errors.New("empty logits")
	}

	maxLogit := math.Inf(-1)
	for _, l := range logits {
		if math.IsNaN(l) {
			return nil, errors.New("logits contain NaN")
		}
		maxLogit = math.Max(maxLogit, l)
	}
	if math.IsInf(maxLogit, 0) {
		return nil, errNonFiniteLogits
	}

	probs := make([]float64, len(logits))
	var sum float64
	for i, l := range logits {
		probs[i] = math.Exp(l - maxLogit)
		sum += probs[i]
	}
	for i := range probs {
		probs[i] /= sum
	}
	return probs, nil
}

// Argmax returns the index of the largest value; ties go to the lowest index.
func Argmax(values []float64) int {
	best := 0
	for i := 1; i < len(values); i++ {
		if values[i] > values[best] {
			best = i
		}
	}
	return best
}
