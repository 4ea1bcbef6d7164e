package api

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// SetupRoutes registers every endpoint. A nil gatherer leaves /metrics off.
func SetupRoutes(router *gin.Engine, handler *Handler, gatherer prometheus.Gatherer) {
	router.GET("/health", handler.HealthCheck)

	if gatherer != nil {
		router.GET(handler.cfg.Metrics.Path, gin.WrapH(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))
	}

	v1 := router.Group("/api/v1")
	{
		admin := v1.Group("/admin/results", AdminAuth(handler.verifier))
		admin.POST("", handler.UploadResults)
		admin.GET("", handler.ListUploads)
		admin.DELETE("", handler.DeleteUpload)
		admin.GET("/:id/file", handler.DownloadUploadFile)

		v1.GET("/results/:roll_number", handler.LookupResult)
	}
}

// NewRouter builds the engine with the standard middleware chain.
func NewRouter(handler *Handler, gatherer prometheus.Gatherer) *gin.Engine {
	router := gin.New()
	router.MaxMultipartMemory = 8 << 20
	router.Use(RecoveryMiddleware())
	router.Use(CORSMiddleware())
	router.Use(LoggingMiddleware())

	SetupRoutes(router, handler, gatherer)
	return router
}
