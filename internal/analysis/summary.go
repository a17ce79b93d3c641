package analysis

import (
	"math"
	"sort"

	"momentum-backtest/internal/model"

	"gonum.org/v1/gonum/stat"
)

// Summary aggregates a run's monthly results. Totals are plain sums over the
// months, as the sub-period reports add them up.
type Summary struct {
	Months int `json:"months"`

	TotalReturn float64 `json:"total_return"`
	TotalCost   float64 `json:"total_cost"`

	MonthlyGrossReturn    float64 `json:"monthly_gross_return"`
	MonthlyGrossReturnStd float64 `json:"monthly_gross_return_std"`
	MonthlyNetReturn      float64 `json:"monthly_net_return"`
	MonthlyNetReturnStd   float64 `json:"monthly_net_return_std"`

	MinNetReturn float64 `json:"min_net_return"`
	MaxNetReturn float64 `json:"max_net_return"`
	P05NetReturn float64 `json:"p05_net_return"`
	P95NetReturn float64 `json:"p95_net_return"`
}

// Summarize computes totals and monthly moments. Standard deviations use the
// sample (n-1) estimator.
func Summarize(records []model.MonthlyResult) Summary {
	s := Summary{Months: len(records)}
	if len(records) == 0 {
		return s
	}

	gross := make([]float64, len(records))
	net := make([]float64, len(records))
	for i, r := range records {
		gross[i] = r.TotalReturn
		net[i] = r.NetReturn()
		s.TotalReturn += r.TotalReturn
		s.TotalCost += r.TotalCost
	}

	s.MonthlyGrossReturn, s.MonthlyGrossReturnStd = meanStd(gross)
	s.MonthlyNetReturn, s.MonthlyNetReturnStd = meanStd(net)

	sort.Float64s(net)
	s.MinNetReturn = net[0]
	s.MaxNetReturn = net[len(net)-1]
	s.P05NetReturn = percentileSorted(net, 0.05)
	s.P95NetReturn = percentileSorted(net, 0.95)
	return s
}

// SummarizePeriods filters each period's records to those realized inside it
// and summarizes the concatenation.
func SummarizePeriods(byPeriod map[model.Period][]model.MonthlyResult) Summary {
	periods := make([]model.Period, 0, len(byPeriod))
	for p := range byPeriod {
		periods = append(periods, p)
	}
	sort.Slice(periods, func(i, j int) bool { return periods[i].StartYear < periods[j].StartYear })

	var all []model.MonthlyResult
	for _, p := range periods {
		for _, r := range byPeriod[p] {
			if p.Realized(r) {
				all = append(all, r)
			}
		}
	}
	return Summarize(all)
}

func meanStd(x []float64) (float64, float64) {
	if len(x) < 2 {
		return stat.Mean(x, nil), 0
	}
	return stat.MeanStdDev(x, nil)
}

func percentileSorted(sorted []float64, q float64) float64 {
	if len(sorted) == 0 {
		return 0
	}
	if q <= 0 {
		return sorted[0]
	}
	if q >= 1 {
		return sorted[len(sorted)-1]
	}
	// Linear interpolation between order stats.
	pos := q * float64(len(sorted)-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	if lo == hi {
		return sorted[lo]
	}
	frac := pos - float64(lo)
	return sorted[lo]*(1-frac) + sorted[hi]*frac
}
