package api

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/spacesedan/sentilyst/internal/models"
	"github.com/spacesedan/sentilyst/internal/pipeline"
)

// AnalysisService is the part of *pipeline.Analyzer the HTTP layer drives.
type AnalysisService interface {
	Analyze(ctx context.Context, query, userID string) (models.AnalysisResult, error)
	History(ctx context.Context, userID string) ([]models.AnalysisRecord, error)
	DeleteAnalysis(ctx context.Context, userID, id string) error
}

type AnalysisHandler struct {
	service        AnalysisService
	requestTimeout time.Duration
}

// NewAnalysisHandler bounds every analysis by requestTimeout; zero means no
// bound beyond the client's own connection.
func NewAnalysisHandler(service AnalysisService, requestTimeout time.Duration) *AnalysisHandler {
	return &AnalysisHandler{service: service, requestTimeout: requestTimeout}
}

type AnalyzeRequest struct {
	Query *string `json:"query"`
}

func (h *AnalysisHandler) Analyze(c *gin.Context) {
	var req AnalyzeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusUnprocessableEntity, "INVALID_REQUEST", "request body must be JSON with a 'query' field")
		return
	}
	if req.Query == nil || strings.TrimSpace(*req.Query) == "" {
		handleError(c, pipeline.ErrEmptyQuery)
		return
	}

	ctx := c.Request.Context()
	if h.requestTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.requestTimeout)
		defer cancel()
	}

	result, err := h.service.Analyze(ctx, *req.Query, c.GetString(userIDKey))
	if err != nil {
		var unsaved *pipeline.UnsavedError
		if errors.As(err, &unsaved) {
			errResp := MapAnalysisError(err)
			respondErrorWithData(c, errResp.StatusCode, errResp.Code, errResp.Message, unsaved.Result)
			return
		}
		handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

func (h *AnalysisHandler) History(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}

	records, err := h.service.History(c.Request.Context(), userID)
	if err != nil {
		handleError(c, err)
		return
	}
	if len(records) == 0 {
		respondError(c, http.StatusNotFound, "NOT_FOUND", "No data found for the user")
		return
	}

	respondSuccess(c, http.StatusOK, records)
}

func (h *AnalysisHandler) Delete(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}

	id := strings.TrimSpace(c.Param("id"))
	if id == "" {
		respondError(c, http.StatusNotFound, "NOT_FOUND", "Item not found")
		return
	}

	if err := h.service.DeleteAnalysis(c.Request.Context(), userID, id); err != nil {
		handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Deleted"})
}

func requireUser(c *gin.Context) (string, bool) {
	userID := c.GetString(userIDKey)
	if userID == "" {
		respondError(c, http.StatusUnauthorized, "UNAUTHORIZED", "authentication required")
		return "", false
	}
	return userID, true
}
