package model

import "time"

// MonthlyResult is one row of a run's output, keyed by the month in which the
// positions formed at RebalanceDate were held.
type MonthlyResult struct {
	Year          int       `json:"year"`
	Month         int       `json:"month"`
	RebalanceDate time.Time `json:"rebalance_date"`

	TotalReturn      float64 `json:"total_return"`
	TotalCost        float64 `json:"total_cost"`
	SumSquaredReturn float64 `json:"sum_squared_return"`
	// UnhedgedSumSquaredReturn is the same sum for the unit-gross legs before
	// the hedge ratio is applied. It equals SumSquaredReturn when unhedged.
	UnhedgedSumSquaredReturn float64 `json:"unhedged_sum_squared_return"`

	// HedgeRatio is 1 for unhedged runs.
	HedgeRatio float64 `json:"hedge_ratio"`
	// Forecast is the monthly volatility forecast used for hedging, 0 when unhedged.
	Forecast float64 `json:"forecast"`

	LongCount  int `json:"long_count"`
	ShortCount int `json:"short_count"`
}

func (r MonthlyResult) Key() MonthKey { return MonthKey{Year: r.Year, Month: r.Month} }

// NetReturn is the return after turnover cost.
func (r MonthlyResult) NetReturn() float64 { return r.TotalReturn - r.TotalCost }

// Estimator names a volatility forecaster.
type Estimator string

const (
	EstimatorRV    Estimator = "RV"
	EstimatorGARCH Estimator = "GARCH"
)

// Forecast is a monthly-horizon volatility forecast made at a rebalance date.
type Forecast struct {
	Date      time.Time `json:"date"`
	Estimator Estimator `json:"estimator"`
	Value     float64   `json:"value"`
	// Fallback is set when Value did not come from Estimator's own fit.
	Fallback bool `json:"fallback,omitempty"`
}
