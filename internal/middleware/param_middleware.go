package middleware

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// ExtractUintParam создает middleware для извлечения и валидации числового параметра URL.
// paramName - имя параметра в URL (например, "id").
// contextKey - ключ, под которым значение будет сохранено в контексте Gin.
func ExtractUintParam(paramName, contextKey string) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := strconv.ParseUint(c.Param(paramName), 10, 32)
		if err != nil {
			abortInvalidParam(c, paramName)
			return
		}
		c.Set(contextKey, uint(id))
		c.Next()
	}
}

// ExtractExamIDParam проверяет ID экзамена: 16 шестнадцатеричных символов в нижнем регистре
func ExtractExamIDParam(paramName, contextKey string) gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.Param(paramName)
		if !isExamID(id) {
			abortInvalidParam(c, paramName)
			return
		}
		c.Set(contextKey, id)
		c.Next()
	}
}

// ExtractUUIDParam проверяет, что параметр является UUID, и сохраняет его в канонической форме
func ExtractUUIDParam(paramName, contextKey string) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := uuid.Parse(c.Param(paramName))
		if err != nil {
			abortInvalidParam(c, paramName)
			return
		}
		c.Set(contextKey, id.String())
		c.Next()
	}
}

func isExamID(id string) bool {
	if len(id) != 16 {
		return false
	}
	for _, r := range id {
		if (r < '0' || r > '9') && (r < 'a' || r > 'f') {
			return false
		}
	}
	return true
}

func abortInvalidParam(c *gin.Context, paramName string) {
	c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("Invalid %s", paramName)})
	c.Abort()
}
