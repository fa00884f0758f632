package http

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/yanqian/knowledgebase/internal/infra/config"
)

const metricsPath = "/metrics"

// NewRouter wires up the HTTP handlers and returns a configured server.
func NewRouter(cfg *config.Config, handler *Handler, logger *slog.Logger) *http.Server {
	gin.SetMode(gin.ReleaseMode)
	useJSONFieldNames()

	router := gin.New()
	router.Use(
		gin.Recovery(),
		requestLogger(logger),
		metricsMiddleware(),
		auditMiddleware(handler.auditSvc, cfg.Audit.WriteTimeout, logger, metricsPath),
		corsMiddleware(cfg.HTTP.CORS.AllowedOrigins),
	)

	router.GET(metricsPath, gin.WrapH(promhttp.Handler()))

	api := router.Group("/")
	api.Use(
		errorHandlingMiddleware(logger),
		rateLimitMiddleware(cfg.HTTP.RateLimit, logger),
	)
	{
		api.GET("/health", handler.Health)
		api.GET("/logs", handler.ListLogs)

		questions := api.Group("/questions")
		questions.GET("", handler.ListQuestions)
		questions.POST("", handler.CreateQuestion)
		questions.POST("/bulk", handler.BulkCreateQuestions)
		questions.POST("/search", handler.SearchQuestions)
		questions.GET("/:id", handler.GetQuestion)
		questions.PUT("/:id", handler.UpdateQuestion)
		questions.DELETE("/:id", handler.DeleteQuestion)
	}

	router.NoRoute(errorHandlingMiddleware(logger), func(c *gin.Context) {
		abortWithError(c, notFound("route "+strings.TrimSpace(c.Request.URL.Path)+" not found"))
	})

	return &http.Server{
		Addr:           cfg.HTTP.Address,
		Handler:        router,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		MaxHeaderBytes: 1 << 20,
	}
}
