package analysis

import (
	"errors"
	"math"
	"sort"

	"momentum-backtest/internal/model"
)

// RealizedVolatility maps each held month to sqrt(sum of squared daily strategy
// returns), the realized monthly volatility the forecasts target.
func RealizedVolatility(records []model.MonthlyResult) map[model.MonthKey]float64 {
	out := make(map[model.MonthKey]float64, len(records))
	for _, r := range records {
		if _, ok := out[r.Key()]; ok {
			continue
		}
		out[r.Key()] = math.Sqrt(r.UnhedgedSumSquaredReturn)
	}
	return out
}

// AlignForecasts keys each forecast by the month it predicts (the month after
// its rebalance date). The first forecast for a month wins.
func AlignForecasts(forecasts []model.Forecast) map[model.MonthKey]float64 {
	out := make(map[model.MonthKey]float64, len(forecasts))
	for _, f := range forecasts {
		k := model.MonthOf(f.Date).Next()
		if _, ok := out[k]; ok {
			continue
		}
		out[k] = f.Value
	}
	return out
}

// ForecastMSE is the mean squared error over months present in both series.
func ForecastMSE(predicted, realized map[model.MonthKey]float64) (float64, int, error) {
	keys := make([]model.MonthKey, 0, len(predicted))
	for k := range predicted {
		if _, ok := realized[k]; ok {
			keys = append(keys, k)
		}
	}
	if len(keys) == 0 {
		return 0, 0, errors.New("forecast mse: no overlapping months")
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i].Before(keys[j]) })

	sum := 0.0
	for _, k := range keys {
		d := predicted[k] - realized[k]
		sum += d * d
	}
	return sum / float64(len(keys)), len(keys), nil
}
