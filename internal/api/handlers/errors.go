package handlers

import (
	"errors"
	"net/http"

	"momentum-backtest/internal/analysis"
	"momentum-backtest/internal/api/models"
	"momentum-backtest/internal/backtest"
	"momentum-backtest/internal/store"
	"momentum-backtest/internal/strategy"

	"github.com/gin-gonic/gin"
)

func respondError(c *gin.Context, status int, code string, err error) {
	c.JSON(status, models.ErrorResponse{
		Error: models.ErrorDetail{
			Code:    code,
			Message: err.Error(),
		},
	})
}

// respondRunError maps simulation failures to a status. Data problems are the
// caller's to fix; anything else is ours.
func respondRunError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, store.ErrRunNotFound):
		respondError(c, http.StatusNotFound, "RUN_NOT_FOUND", err)
	case errors.Is(err, strategy.ErrInsufficientUniverse),
		errors.Is(err, analysis.ErrEmptyWindow),
		errors.Is(err, backtest.ErrHedgeSingularity),
		errors.Is(err, backtest.ErrMissingReturn):
		c.JSON(http.StatusUnprocessableEntity, models.ErrorResponse{
			Error: models.ErrorDetail{
				Code:    "BACKTEST_ERROR",
				Message: err.Error(),
				Details: map[string]interface{}{"recoverable": false},
			},
		})
	default:
		respondError(c, http.StatusInternalServerError, "INTERNAL_ERROR", err)
	}
}
