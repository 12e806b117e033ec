package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/spacesedan/sentilyst/internal/classifier"
	"github.com/spacesedan/sentilyst/internal/db"
	"github.com/spacesedan/sentilyst/internal/pipeline"
)

type ErrorResponse struct {
	StatusCode int
	Code       string
	Message    string
}

// MapAnalysisError maps pipeline and store errors to HTTP error responses.
func MapAnalysisError(err error) ErrorResponse {
	switch {
	case errors.Is(err, pipeline.ErrEmptyQuery):
		return ErrorResponse{http.StatusUnprocessableEntity, "INVALID_REQUEST", "Field 'query' is required"}
	case errors.Is(err, pipeline.ErrNotSaved):
		return ErrorResponse{http.StatusInternalServerError, "NOT_SAVED", "analysis computed but could not be saved"}
	case errors.Is(err, classifier.ErrClassifierUnavailable):
		return ErrorResponse{http.StatusServiceUnavailable, "CLASSIFIER_UNAVAILABLE", "sentiment model is unavailable"}
	case errors.Is(err, classifier.ErrClassification):
		return ErrorResponse{http.StatusInternalServerError, "CLASSIFICATION_FAILED", "sentiment classification failed"}
	case errors.Is(err, db.ErrAnalysisNotFound):
		return ErrorResponse{http.StatusNotFound, "NOT_FOUND", "Item not found"}
	case errors.Is(err, pipeline.ErrNoStore):
		return ErrorResponse{http.StatusServiceUnavailable, "STORE_UNAVAILABLE", "analysis history is not enabled"}
	case errors.Is(err, context.DeadlineExceeded):
		return ErrorResponse{http.StatusGatewayTimeout, "TIMEOUT", "analysis timed out"}
	default:
		return ErrorResponse{http.StatusInternalServerError, "INTERNAL_ERROR", "internal server error"}
	}
}

func handleError(c *gin.Context, err error) {
	errResp := MapAnalysisError(err)
	respondError(c, errResp.StatusCode, errResp.Code, errResp.Message)
}
