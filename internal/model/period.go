package model

import (
	"fmt"
	"time"
)

// Period is a contiguous sub-sample of the backtest. Rebalancing starts at the
// end of StartYear and stops at the end of EndYear.
type Period struct {
	StartYear int `yaml:"start_year" json:"start_year"`
	EndYear   int `yaml:"end_year" json:"end_year"`
}

func (p Period) String() string { return fmt.Sprintf("%d_%d", p.StartYear, p.EndYear) }

// RebalanceDates lists month ends from Dec 31 of StartYear through Dec 31 of EndYear.
func (p Period) RebalanceDates() []time.Time {
	var out []time.Time
	end := MonthKey{Year: p.EndYear, Month: 12}
	for k := (MonthKey{Year: p.StartYear, Month: 12}); !end.Before(k); k = k.Next() {
		out = append(out, k.End())
	}
	return out
}

// Realized reports whether a result belongs to the period. Results realized
// after EndYear (the month after the final rebalance) are excluded.
func (p Period) Realized(r MonthlyResult) bool {
	return r.Year <= p.EndYear
}
