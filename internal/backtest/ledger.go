package backtest

import "momentum-backtest/internal/model"

// Result is the output of one run: one record per rebalance date in date
// order, plus the forecasts used when hedging.
type Result struct {
	RunID string
	Spec  Spec

	Records   []model.MonthlyResult
	Forecasts []model.Forecast

	TotalReturn float64
	TotalCost   float64
}

// Realized drops records held after the run's period ends.
func (r *Result) Realized() []model.MonthlyResult {
	out := make([]model.MonthlyResult, 0, len(r.Records))
	for _, rec := range r.Records {
		if r.Spec.Period.EndYear == 0 || r.Spec.Period.Realized(rec) {
			out = append(out, rec)
		}
	}
	return out
}
