package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/leathercraft-class-submissions/internal/config"
	"github.com/leathercraft-class-submissions/internal/service"
	"github.com/leathercraft-class-submissions/pkg/logger"
)

// HealthChecker reports whether a backing store is reachable
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// NewRouter creates and configures the Gin router. db may be nil, in which case
// /health does not probe the database.
func NewRouter(services *service.Services, cfg *config.Config, db HealthChecker, log zerolog.Logger) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()
	router.HandleMethodNotAllowed = true

	router.Use(recoveryMiddleware(log))
	router.Use(loggingMiddleware(log))

	router.NoMethod(func(c *gin.Context) {
		c.JSON(http.StatusMethodNotAllowed, gin.H{"ok": false, "error": "Method not allowed"})
	})
	router.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"ok": false, "error": "Not found"})
	})

	submissionHandler := NewSubmissionHandler(services, cfg, log)
	importHandler := NewImportHandler(services, cfg, log)
	reviewHandler := NewReviewHandler(services, cfg, log)
	exportHandler := NewExportHandler(services, log)

	router.GET("/health", healthCheck(db))
	router.GET("/metrics", metricsHandler(services))

	// Public endpoints called from the storefront form
	public := router.Group("/v1/class-submissions")
	public.Use(corsMiddleware(cfg.CORS.AllowedOrigins))
	{
		public.GET("/single", submissionHandler.Ping("class-submissions.single"))
		public.POST("/single", submissionHandler.Single)
		public.OPTIONS("/single", preflight)

		public.GET("/bulk", submissionHandler.Ping("class-submissions.bulk"))
		public.POST("/bulk", submissionHandler.Bulk)
		public.OPTIONS("/bulk", preflight)

		public.GET("/config", submissionHandler.FormConfig)
		public.OPTIONS("/config", preflight)
	}

	admin := router.Group("/admin/v1")
	admin.Use(adminAuthMiddleware(cfg.App.AdminAPIToken))
	{
		admin.POST("/imports", importHandler.ImportCSV)

		admin.GET("/submissions", reviewHandler.ListSubmissions)
		admin.GET("/submissions/export", exportHandler.StreamExport)
		admin.GET("/submissions/:id", reviewHandler.GetSubmission)
		admin.GET("/batches/:id", reviewHandler.GetBatch)

		admin.GET("/review", reviewHandler.ListPending)
		admin.POST("/review", reviewHandler.Moderate)
	}

	return router
}

// healthCheck returns the health status
func healthCheck(db HealthChecker) gin.HandlerFunc {
	return func(c *gin.Context) {
		status, code := "healthy", http.StatusOK
		if db != nil {
			ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
			defer cancel()
			if err := db.HealthCheck(ctx); err != nil {
				status, code = "unhealthy", http.StatusServiceUnavailable
			}
		}

		c.JSON(code, gin.H{
			"status":    status,
			"timestamp": time.Now().Format(time.RFC3339),
			"service":   logger.ServiceName,
		})
	}
}

// metricsHandler returns submission counts per workflow status
func metricsHandler(services *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		counts, err := services.Export.GetCounts(c.Request.Context())
		if err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "database unavailable"})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"submissions": counts,
			"timestamp":   time.Now().Format(time.RFC3339),
		})
	}
}
