package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/olegmakarov/gigflow-backend/internal/logger"
	"github.com/olegmakarov/gigflow-backend/internal/pkg/apperror"
	"github.com/olegmakarov/gigflow-backend/internal/repository"
)

// ErrorHandler обрабатывает ошибки централизованно.
// Маскирует внутренние ошибки и возвращает понятные сообщения клиенту.
func ErrorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		// Проверяем, не был ли уже отправлен ответ
		if c.Writer.Written() {
			return
		}

		if len(c.Errors) > 0 {
			err := c.Errors.Last()

			statusCode := http.StatusInternalServerError
			message := "внутренняя ошибка сервера"

			if logger.Log != nil {
				logger.Log.WithFields(logrus.Fields{
					"error":  err.Error(),
					"path":   c.Request.URL.Path,
					"method": c.Request.Method,
				}).Error("Request error")
			}

			if appErr, ok := apperror.AsAppError(err.Err); ok {
				statusCode = appErr.HTTPStatus
				message = appErr.Message
			} else if errors.Is(err.Err, repository.ErrOrderNotFound) {
				statusCode = http.StatusNotFound
				message = "заказ не найден"
			} else if errors.Is(err.Err, repository.ErrRequirementFormNotFound) {
				statusCode = http.StatusNotFound
				message = "анкета требований не найдена"
			} else if errors.Is(err.Err, repository.ErrRevisionNotFound) {
				statusCode = http.StatusNotFound
				message = "раунд правок не найден"
			} else if errors.Is(err.Err, repository.ErrPayoutNotFound) {
				statusCode = http.StatusNotFound
				message = "escrow-чекпоинт не найден"
			} else if errors.Is(err.Err, repository.ErrDuplicateOrderNumber) {
				statusCode = http.StatusConflict
				message = "номер заказа уже занят"
			} else if err.Error() != "" {
				// Если ошибка содержит понятное сообщение, показываем его клиенту,
				// но только если это не внутренняя ошибка
				errStr := err.Error()
				if !containsInternalKeywords(errStr) {
					message = errStr
					if contains(errStr, "некоррект") || contains(errStr, "невалид") {
						statusCode = http.StatusBadRequest
					} else if contains(errStr, "нет прав") || contains(errStr, "не авторизован") {
						statusCode = http.StatusForbidden
					}
				}
			}

			c.JSON(statusCode, gin.H{"error": message})
		}
	}
}

// containsInternalKeywords проверяет, содержит ли строка ключевые слова внутренних ошибок.
func containsInternalKeywords(s string) bool {
	keywords := []string{
		"sql:",
		"database",
		"connection",
		"timeout",
		"internal",
		"panic",
		"runtime",
	}

	for _, keyword := range keywords {
		if contains(s, keyword) {
			return true
		}
	}
	return false
}

// contains проверяет, содержит ли строка подстроку (case-insensitive).
func contains(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}
