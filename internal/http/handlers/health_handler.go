package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
)

// HealthHandler отвечает на проверки живости сервиса.
type HealthHandler struct {
	db      *sqlx.DB
	started time.Time
}

// NewHealthHandler создаёт новый health handler.
func NewHealthHandler(db *sqlx.DB) *HealthHandler {
	return &HealthHandler{db: db, started: time.Now()}
}

// HealthResponse отчёт о состоянии сервиса и его зависимостей.
type HealthResponse struct {
	Status          string `json:"status"`
	Database        string `json:"database"`
	Uptime          string `json:"uptime"`
	OpenConnections int    `json:"open_connections"`
}

// Health обрабатывает GET /health.
func (h *HealthHandler) Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	resp := HealthResponse{
		Status:          "ok",
		Database:        "ok",
		Uptime:          time.Since(h.started).Round(time.Second).String(),
		OpenConnections: h.db.Stats().OpenConnections,
	}

	code := http.StatusOK
	if err := h.db.PingContext(ctx); err != nil {
		resp.Status = "degraded"
		resp.Database = err.Error()
		code = http.StatusServiceUnavailable
	}

	c.JSON(code, resp)
}
