package models

import "strings"

type SentimentLabel string

const (
	LabelPositive SentimentLabel = "positive"
	LabelNeutral  SentimentLabel = "neutral"
	LabelNegative SentimentLabel = "negative"
)

// SentimentLabels lists every label in reporting order.
var SentimentLabels = []SentimentLabel{LabelPositive, LabelNeutral, LabelNegative}

// ParseSentimentLabel matches raw case-insensitively against the known labels.
func ParseSentimentLabel(raw string) (SentimentLabel, bool) {
	switch SentimentLabel(strings.ToLower(strings.TrimSpace(raw))) {
	case LabelPositive:
		return LabelPositive, true
	case LabelNeutral:
		return LabelNeutral, true
	case LabelNegative:
		return LabelNegative, true
	}
	return "", false
}

// ClassificationResult is the classifier's verdict for one text item.
type ClassificationResult struct {
	Label      SentimentLabel `json:"label"`
	Confidence float64        `json:"confidence"`
}

type SentimentCounts struct {
	Positive int `json:"positive"`
	Neutral  int `json:"neutral"`
	Negative int `json:"negative"`
}

func (c SentimentCounts) Total() int {
	return c.Positive + c.Neutral + c.Negative
}

// Inc bumps the count for label; unknown labels are ignored.
func (c *SentimentCounts) Inc(label SentimentLabel) {
	switch label {
	case LabelPositive:
		c.Positive++
	case LabelNeutral:
		c.Neutral++
	case LabelNegative:
		c.Negative++
	}
}

type SentimentPercentages struct {
	Positive float64 `json:"positive"`
	Neutral  float64 `json:"neutral"`
	Negative float64 `json:"negative"`
}

func (p SentimentPercentages) Sum() float64 {
	return p.Positive + p.Neutral + p.Negative
}

// SentimentConfidences keeps the confidences recorded per label in arrival order.
type SentimentConfidences map[SentimentLabel][]float64
