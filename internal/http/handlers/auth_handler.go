package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/olegmakarov/gigflow-backend/internal/http/handlers/common"
	"github.com/olegmakarov/gigflow-backend/internal/service"
)

// AuthHandler выпускает access токены для работы с API.
// Сервис не ведёт учётные записи и вход по паролю отсутствует, поэтому
// маршрут выпуска регистрируется только вне production.
type AuthHandler struct {
	tokens *service.TokenManager
}

// NewAuthHandler создаёт новый auth handler.
func NewAuthHandler(tokens *service.TokenManager) *AuthHandler {
	return &AuthHandler{tokens: tokens}
}

// DevTokenRequest тело запроса выпуска токена.
type DevTokenRequest struct {
	FreelancerID int64 `json:"freelancer_id" binding:"required,gt=0"`
}

// DevToken обрабатывает POST /auth/dev-token.
func (h *AuthHandler) DevToken(c *gin.Context) {
	var req DevTokenRequest
	if err := common.BindAndValidate(c, &req); err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	token, expiresAt, err := h.tokens.IssueAccess(req.FreelancerID)
	if err != nil {
		common.RespondInternalError(c, "")
		return
	}

	common.RespondJSON(c, http.StatusOK, gin.H{
		"access_token": token,
		"expires_at":   expiresAt.Format(time.RFC3339),
	})
}
