package api

import (
	"github.com/gin-gonic/gin"
)

type Handlers struct {
	Analysis *AnalysisHandler
	Health   *HealthHandler
}

type RouterConfig struct {
	ClientURL string
	// TrustUserHeader enables X-User-ID identities; only set it behind the auth gateway.
	TrustUserHeader bool
}

// Setup builds the gin engine with middleware and every route.
func Setup(h Handlers, cfg RouterConfig) *gin.Engine {
	router := gin.New()

	router.Use(RequestID())
	router.Use(Logger())
	router.Use(Recovery())
	router.Use(CORS(cfg.ClientURL))
	router.Use(Identity(cfg.TrustUserHeader))

	router.GET("/", h.Health.Root)
	router.GET("/healthz", h.Health.Health)

	api := router.Group("/api")
	{
		api.POST("/analyze", h.Analysis.Analyze)
		api.GET("/getdata", h.Analysis.History)
		api.DELETE("/delete/:id", h.Analysis.Delete)
	}

	return router
}
