package volatility

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"momentum-backtest/internal/model"
)

// StrategyDailyReturns combines each member's daily returns, weighted by its
// signed weight, day by day. When every member carries its trading days the
// returns are aligned by calendar day, so a member missing a day contributes
// nothing to it. Otherwise sequences are aligned on their most recent day.
// The result has length window, zero-padded at the start when there are fewer
// days and truncated to the latest window days when there are more.
func StrategyDailyReturns(window int, legs []model.Leg, weights []model.WeightSet) []float64 {
	if dated(legs) {
		return calendarReturns(window, legs, weights)
	}
	out := make([]float64, window)
	for i, leg := range legs {
		w := weights[i]
		for _, m := range leg.Members {
			wt := w[m.SecurityID]
			dr := m.DailyReturns
			offset := window - len(dr)
			for j, r := range dr {
				if pos := offset + j; pos >= 0 {
					out[pos] += wt * r
				}
			}
		}
	}
	return out
}

// dated reports whether every member has a date for each daily return.
func dated(legs []model.Leg) bool {
	seen := false
	for _, leg := range legs {
		for _, m := range leg.Members {
			if len(m.DailyDates) != len(m.DailyReturns) {
				return false
			}
			seen = seen || len(m.DailyDates) > 0
		}
	}
	return seen
}

func calendarReturns(window int, legs []model.Leg, weights []model.WeightSet) []float64 {
	byDay := map[string]float64{}
	for i, leg := range legs {
		w := weights[i]
		for _, m := range leg.Members {
			wt := w[m.SecurityID]
			for j, d := range m.DailyDates {
				byDay[d.Format(time.DateOnly)] += wt * m.DailyReturns[j]
			}
		}
	}
	days := make([]string, 0, len(byDay))
	for d := range byDay {
		days = append(days, d)
	}
	sort.Strings(days)
	if len(days) > window {
		days = days[len(days)-window:]
	}

	out := make([]float64, window)
	offset := window - len(days)
	for j, d := range days {
		out[offset+j] = byDay[d]
	}
	return out
}

func SumSquares(xs []float64) float64 {
	sum := 0.0
	for _, x := range xs {
		sum += x * x
	}
	return sum
}

// RV scales the realized variance of the trailing window to a monthly
// volatility: sqrt(ssr * HorizonDays / NormalizationDays).
type RV struct {
	// WindowDays is the number of trailing strategy days summed.
	WindowDays int
	// HorizonDays is the forecast horizon in trading days.
	HorizonDays int
	// NormalizationDays is the day count the sum is divided by. It defaults
	// to 126 while the window is 125; set it to WindowDays to normalize by the
	// days actually summed.
	NormalizationDays int
}

func DefaultRV() *RV {
	return &RV{WindowDays: 125, HorizonDays: 21, NormalizationDays: 126}
}

func (e *RV) Name() model.Estimator { return model.EstimatorRV }

func (e *RV) Validate() error {
	if e.WindowDays <= 0 || e.HorizonDays <= 0 || e.NormalizationDays <= 0 {
		return fmt.Errorf("rv: window, horizon and normalization must be > 0 (got %d, %d, %d)",
			e.WindowDays, e.HorizonDays, e.NormalizationDays)
	}
	return nil
}

// FromSumSquares converts a sum of squared daily returns to a monthly volatility.
func (e *RV) FromSumSquares(ssr float64) float64 {
	return math.Sqrt(ssr * float64(e.HorizonDays) / float64(e.NormalizationDays))
}

func (e *RV) Forecast(ctx context.Context, in Input) (float64, error) {
	if err := e.Validate(); err != nil {
		return 0, err
	}
	daily := StrategyDailyReturns(e.WindowDays,
		[]model.Leg{in.Long, in.Short},
		[]model.WeightSet{in.LongWeights, in.ShortWeights})
	return e.FromSumSquares(SumSquares(daily)), nil
}
