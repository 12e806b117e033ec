package api

import (
	"net/http"
	"sync/atomic"

	"github.com/gin-gonic/gin"
)

type HealthHandler struct {
	classifierHealthy *atomic.Bool
}

// NewHealthHandler reports on the flag kept current by the classifier
// health monitor. A nil flag reports healthy.
func NewHealthHandler(classifierHealthy *atomic.Bool) *HealthHandler {
	return &HealthHandler{classifierHealthy: classifierHealthy}
}

func (h *HealthHandler) Root(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"message": "Backend up and ready"})
}

func (h *HealthHandler) Health(c *gin.Context) {
	healthy := h.classifierHealthy == nil || h.classifierHealthy.Load()

	status := http.StatusOK
	state := "healthy"
	if !healthy {
		status = http.StatusServiceUnavailable
		state = "degraded"
	}

	c.JSON(status, gin.H{
		"status":     state,
		"classifier": healthy,
	})
}
