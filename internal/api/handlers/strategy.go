package handlers

import (
	"net/http"

	"momentum-backtest/internal/api/models"
	"momentum-backtest/internal/config"
	"momentum-backtest/internal/strategy"

	"github.com/gin-gonic/gin"
)

// StrategyHandler describes the configuration surface.
type StrategyHandler struct {
	cfg *config.Config
}

// NewStrategyHandler creates a new strategy handler
func NewStrategyHandler(cfg *config.Config) *StrategyHandler {
	return &StrategyHandler{cfg: cfg}
}

var compositionDescriptions = map[strategy.Composition]string{
	strategy.CompositionStandard:    "Unhedged long/short legs at unit gross exposure per leg.",
	strategy.CompositionHedgedRV:    "Legs scaled to the target volatility using a realized-variance forecast of the trailing 125 strategy days.",
	strategy.CompositionHedgedGARCH: "Legs scaled to the target volatility using a GARCH(1,1) forecast fitted on the accumulated strategy history, falling back to the previous forecast or RV.",
}

var weightingDescriptions = map[strategy.Weighting]string{
	strategy.WeightingEqual: "Each member of a leg holds an equal share of the leg's exposure.",
	strategy.WeightingValue: "Members are weighted by average market capitalization over the window.",
}

// ListStrategies handles GET /api/v1/strategies
func (h *StrategyHandler) ListStrategies(c *gin.Context) {
	info := models.StrategyInfo{Lambdas: strategy.Lambdas}
	for _, comp := range strategy.Compositions {
		info.Compositions = append(info.Compositions, models.OptionInfo{Name: string(comp), Description: compositionDescriptions[comp]})
	}
	for _, w := range strategy.Weightings {
		info.Weightings = append(info.Weightings, models.OptionInfo{Name: string(w), Description: weightingDescriptions[w]})
	}
	s := h.cfg.Strategy
	info.Parameters = []models.ParameterInfo{
		{Name: "long_fraction", Type: "float", Description: "Fraction of the ranked universe taken as long candidates", Default: s.LongFraction},
		{Name: "short_fraction", Type: "float", Description: "Fraction of the ranked universe taken as short candidates", Default: s.ShortFraction},
		{Name: "keep_long", Type: "float", Description: "Fraction of long candidates kept after cost adjustment", Default: s.KeepLong},
		{Name: "keep_short", Type: "float", Description: "Fraction of short candidates kept after cost adjustment", Default: s.KeepShort},
		{Name: "window_months", Type: "int", Description: "Trailing window length in months (6 or 12)", Default: s.WindowMonths},
		{Name: "target_vol", Type: "float", Description: "Annualized hedge target volatility", Default: h.cfg.Hedge.TargetVol},
	}
	c.JSON(http.StatusOK, gin.H{"strategies": info})
}
