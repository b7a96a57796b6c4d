package middleware

import (
	"errors"
	"log"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/yourusername/examsim-api/pkg/auth"
)

// AdminMiddleware закрывает административные маршруты (импорт банков)
type AdminMiddleware struct {
	tokens *auth.AdminTokens
}

// NewAdminMiddleware создает middleware проверки административного токена
func NewAdminMiddleware(tokens *auth.AdminTokens) *AdminMiddleware {
	return &AdminMiddleware{tokens: tokens}
}

// RequireAdmin пропускает только запросы с действующим токеном роли admin
// в заголовке Authorization: Bearer {token}
func (m *AdminMiddleware) RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !m.tokens.Enabled() {
			log.Printf("[AdminMiddleware] Секрет административных токенов не настроен, запрос %s отклонён", c.Request.URL.Path)
			c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{"error": "Admin access is not configured", "error_type": "admin_disabled"})
			return
		}

		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Authorization header is required", "error_type": "token_missing"})
			return
		}

		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Authorization header format must be Bearer {token}", "error_type": "token_format"})
			return
		}

		claims, err := m.tokens.Parse(parts[1])
		if err != nil {
			errorType := "token_invalid"
			if errors.Is(err, auth.ErrTokenExpired) {
				errorType = "token_expired"
			}
			log.Printf("[AdminMiddleware] Отклонён токен для %s: %v", c.Request.URL.Path, err)
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired token", "error_type": errorType})
			return
		}

		if claims.Role != auth.AdminRole {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Admin rights required", "error_type": "forbidden"})
			return
		}

		c.Set("admin_subject", claims.Subject)
		c.Next()
	}
}
