package backtest

import (
	"errors"
	"fmt"
	"math"

	"momentum-backtest/internal/model"
	"momentum-backtest/internal/strategy"
)

// ErrHedgeSingularity is returned when a forecast cannot produce a finite hedge ratio.
var ErrHedgeSingularity = errors.New("hedge ratio singularity")

// DefaultTargetVol is the annualized volatility target.
const DefaultTargetVol = 0.12

// MonthlyTarget converts an annualized volatility to a monthly one.
func MonthlyTarget(annual float64) float64 { return annual / math.Sqrt(12) }

// HedgeRatio is the monthly target over the monthly forecast.
func HedgeRatio(targetAnnual, forecast float64) (float64, error) {
	if !(forecast > 0) || math.IsInf(forecast, 0) {
		return 0, fmt.Errorf("forecast volatility %v: %w", forecast, ErrHedgeSingularity)
	}
	ratio := MonthlyTarget(targetAnnual) / forecast
	if math.IsInf(ratio, 0) || math.IsNaN(ratio) {
		return 0, fmt.Errorf("hedge ratio %v: %w", ratio, ErrHedgeSingularity)
	}
	return ratio, nil
}

// Overlay reweights the split with the hedge ratio as scale. Proportions
// within each leg match the unhedged weights.
func Overlay(w strategy.Weighting, s model.Split, ratio float64) (long, short model.WeightSet, err error) {
	return w.Pair(s, ratio)
}
