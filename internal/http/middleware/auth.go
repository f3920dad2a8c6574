package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/olegmakarov/gigflow-backend/internal/pkg/apperror"
	"github.com/olegmakarov/gigflow-backend/internal/service"
)

// Context ключи для gin.Context.
const (
	ContextFreelancerIDKey = "freelancerID"
)

// AuthMiddleware проверяет JWT access токен и кладёт владельца в контекст.
func AuthMiddleware(tokens *service.TokenManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		auth := c.GetHeader("Authorization")
		if auth == "" || !strings.HasPrefix(auth, "Bearer ") {
			c.AbortWithStatusJSON(apperror.ErrUnauthorized.HTTPStatus, gin.H{"error": apperror.ErrUnauthorized.Message})
			return
		}

		raw := strings.TrimPrefix(auth, "Bearer ")
		freelancerID, err := tokens.ParseAccess(raw)
		if err != nil || freelancerID == 0 {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "токен невалиден"})
			return
		}

		c.Set(ContextFreelancerIDKey, freelancerID)
		c.Next()
	}
}
