package pipeline

import (
	"errors"
	"fmt"

	"github.com/spacesedan/sentilyst/internal/models"
)

var (
	ErrEmptyQuery = errors.New("query is required")
	// ErrNotSaved marks a result that was computed but could not be persisted.
	ErrNotSaved = errors.New("analysis computed but not saved")
	ErrNoStore  = errors.New("no analysis store configured")
)

// UnsavedError carries the computed result when persistence fails, so the
// caller can still show it.
type UnsavedError struct {
	Result models.AnalysisResult
	Err    error
}

func (e *UnsavedError) Error() string {
	return fmt.Sprintf("%s: %v", ErrNotSaved, e.Err)
}

func (e *UnsavedError) Unwrap() error {
	return e.Err
}

func (e *UnsavedError) Is(target error) bool {
	return target == ErrNotSaved
}
