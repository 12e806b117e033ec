package models

import "time"

const (
	SourceReddit     = "reddit"
	SourceGoogleNews = "google_news"
	SourceNewsAPI    = "newsapi"
)

type SourceCount struct {
	Source string `json:"source"`
	Count  int    `json:"count"`
}

// Analysis is the computed part of an analysis run, independent of who asked
// for it or whether it was stored. It is what the result cache holds.
type Analysis struct {
	Query                string               `json:"query"`
	RawItems             []string             `json:"raw_items"`
	SourceCounts         []SourceCount        `json:"source_counts"`
	SentimentCounts      SentimentCounts      `json:"sentiment_counts"`
	SentimentPercentages SentimentPercentages `json:"sentiment_percentages"`
	RiskLevel            float64              `json:"risk_level"`
}

// CountFor returns how many raw items source contributed.
func (a Analysis) CountFor(source string) int {
	for _, sc := range a.SourceCounts {
		if sc.Source == source {
			return sc.Count
		}
	}
	return 0
}

// AnalysisResult is the contract returned to HTTP callers.
type AnalysisResult struct {
	Query                string               `json:"query"`
	RawItems             []string             `json:"raw_items"`
	SentimentCounts      SentimentCounts      `json:"sentiment_counts"`
	SentimentPercentages SentimentPercentages `json:"sentiment_percentages"`
	RiskLevel            float64              `json:"risk_level"`
	CreatedAt            string               `json:"created_at"`
	Saved                bool                 `json:"saved"`
}

// AnalysisRecord is one saved analysis in a user's history.
type AnalysisRecord struct {
	ID              string         `json:"id" dynamodbav:"id"`
	UserID          string         `json:"-" dynamodbav:"user_id"`
	Query           string         `json:"query" dynamodbav:"query"`
	Positive        float64        `json:"positive" dynamodbav:"positive"`
	Negative        float64        `json:"negative" dynamodbav:"negative"`
	RedditCount     int            `json:"reddit_count" dynamodbav:"reddit_count"`
	GoogleNewsCount int            `json:"google_news_count" dynamodbav:"google_news_count"`
	SourceCounts    map[string]int `json:"source_counts" dynamodbav:"source_counts"`
	TotalResults    int            `json:"total_results" dynamodbav:"total_results"`
	RiskLevel       float64        `json:"risk_level" dynamodbav:"risk_level"`
	CreatedAt       string         `json:"created_at" dynamodbav:"created_at"`
}

// AnalysisEvent is published once per completed analysis.
type AnalysisEvent struct {
	Query                string               `json:"query"`
	SentimentCounts      SentimentCounts      `json:"sentiment_counts"`
	SentimentPercentages SentimentPercentages `json:"sentiment_percentages"`
	RiskLevel            float64              `json:"risk_level"`
	TotalResults         int                  `json:"total_results"`
	Cached               bool                 `json:"cached"`
	AnalyzedAt           time.Time            `json:"analyzed_at"`
}
