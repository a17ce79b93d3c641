package middleware

import (
	"fmt"
	"log/slog"
	"net/http"

	"momentum-backtest/internal/api/models"

	"github.com/gin-gonic/gin"
)

// ErrorHandler recovers panics into the standard error envelope.
func ErrorHandler(logger *slog.Logger) gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, recovered interface{}) {
		msg := "An unexpected error occurred"
		if s, ok := recovered.(string); ok {
			msg = s
		}
		logger.ErrorContext(c.Request.Context(), "panic recovered",
			"path", c.Request.URL.Path,
			"panic", fmt.Sprint(recovered),
		)
		c.AbortWithStatusJSON(http.StatusInternalServerError, models.ErrorResponse{
			Error: models.ErrorDetail{
				Code:    "INTERNAL_ERROR",
				Message: msg,
			},
		})
	})
}
