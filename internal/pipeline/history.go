package pipeline

import (
	"context"

	"github.com/spacesedan/sentilyst/internal/models"
)

// History returns userID's saved analyses, newest first.
func (a *Analyzer) History(ctx context.Context, userID string) ([]models.AnalysisRecord, error) {
	if a.store == nil {
		return nil, ErrNoStore
	}
	return a.store.ListAnalyses(ctx, userID)
}

// DeleteAnalysis removes one of userID's saved analyses.
func (a *Analyzer) DeleteAnalysis(ctx context.Context, userID, id string) error {
	if a.store == nil {
		return ErrNoStore
	}
	return a.store.DeleteAnalysis(ctx, userID, id)
}
