package middleware

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// Предельная длина строковых идентификаторов в URL. Должна совпадать с
// шириной колонок идентификаторов в журнале отправок.
const maxIDParamLength = 64

// ExtractIDParam создает middleware для извлечения и валидации строкового
// идентификатора из URL. paramName - имя параметра, contextKey - ключ,
// под которым значение будет сохранено в контексте Gin.
func ExtractIDParam(paramName, contextKey string) gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.Param(paramName)
		if id == "" || len(id) > maxIDParamLength {
			c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("Invalid %s", paramName)})
			c.Abort()
			return
		}
		c.Set(contextKey, id)
		c.Next()
	}
}

// ExtractUUIDParam — вариант ExtractIDParam для идентификаторов, которые
// платформа выпускает строго в формате UUID.
func ExtractUUIDParam(paramName, contextKey string) gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.Param(paramName)
		if _, err := uuid.Parse(id); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("Invalid %s", paramName)})
			c.Abort()
			return
		}
		c.Set(contextKey, id)
		c.Next()
	}
}
