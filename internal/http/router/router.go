package router

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/olegmakarov/gigflow-backend/internal/config"
	"github.com/olegmakarov/gigflow-backend/internal/http/handlers"
	"github.com/olegmakarov/gigflow-backend/internal/http/middleware"
	"github.com/olegmakarov/gigflow-backend/internal/service"
)

// SetupRouter собирает gin-роутер со всеми маршрутами API.
func SetupRouter(
	cfg *config.Config,
	orderHandler *handlers.OrderHandler,
	pipelineHandler *handlers.PipelineHandler,
	healthHandler *handlers.HealthHandler,
	authHandler *handlers.AuthHandler,
	tokenManager *service.TokenManager,
) *gin.Engine {
	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.Default()
	r.Use(middleware.ErrorHandler())
	r.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.AllowedOrigins,
		AllowMethods:     []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))
	r.Use(middleware.RateLimitMiddleware(cfg.RateLimitRequests, cfg.RateLimitPeriod))

	r.GET("/health", healthHandler.Health)

	// Выпуск токенов доступен только вне production: учётных записей нет,
	// токены нужны для локальной разработки и интеграционных проверок.
	if cfg.Env != "production" {
		r.POST("/auth/dev-token", authHandler.DevToken)
	}

	api := r.Group("/api")
	api.Use(middleware.AuthMiddleware(tokenManager))
	{
		api.POST("/orders", orderHandler.CreateOrder)
		api.GET("/orders", orderHandler.ListOrders)
		api.GET("/orders/:id", orderHandler.GetOrder)
		api.PATCH("/orders/:id", orderHandler.UpdateOrder)

		api.POST("/orders/:id/requirements", orderHandler.CreateRequirement)
		api.PATCH("/orders/:id/requirements/:formID", orderHandler.UpdateRequirement)

		api.POST("/orders/:id/revisions", orderHandler.CreateRevision)
		api.PATCH("/orders/:id/revisions/:revisionID", orderHandler.UpdateRevision)

		api.POST("/orders/:id/escrow", orderHandler.CreateEscrow)
		api.PATCH("/orders/:id/escrow/:payoutID", orderHandler.UpdateEscrow)

		api.GET("/pipeline/summary", pipelineHandler.Summary)
	}

	return r
}
