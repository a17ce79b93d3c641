package model

import (
	"fmt"
	"math"
	"time"
)

// Observation is one row of the daily security panel.
// The panel is expected to be cleaned upstream: eligible securities only and
// numeric returns.
type Observation struct {
	SecurityID string    `json:"security_id"`
	Date       time.Time `json:"date"`

	// Return is the daily simple return.
	Return float64 `json:"ret"`

	Ask       float64 `json:"ask"`
	Bid       float64 `json:"bid"`
	MarketCap float64 `json:"market_cap"`
	Exchange  string  `json:"exchange"`
}

// QuotedSpread is 2*(ask-bid)/(ask+bid). It is NaN when the quote is unusable.
func (o Observation) QuotedSpread() float64 {
	mid := o.Ask + o.Bid
	if mid <= 0 {
		return math.NaN()
	}
	return 2 * (o.Ask - o.Bid) / mid
}

// MonthKey identifies a calendar month.
type MonthKey struct {
	Year  int `json:"year"`
	Month int `json:"month"`
}

func MonthOf(t time.Time) MonthKey {
	return MonthKey{Year: t.Year(), Month: int(t.Month())}
}

func (k MonthKey) Next() MonthKey {
	if k.Month == 12 {
		return MonthKey{Year: k.Year + 1, Month: 1}
	}
	return MonthKey{Year: k.Year, Month: k.Month + 1}
}

func (k MonthKey) Prev() MonthKey {
	if k.Month == 1 {
		return MonthKey{Year: k.Year - 1, Month: 12}
	}
	return MonthKey{Year: k.Year, Month: k.Month - 1}
}

// AddMonths shifts the key by n months (n may be negative).
func (k MonthKey) AddMonths(n int) MonthKey {
	idx := k.Year*12 + (k.Month - 1) + n
	return MonthKey{Year: idx / 12, Month: idx%12 + 1}
}

func (k MonthKey) Before(o MonthKey) bool {
	if k.Year != o.Year {
		return k.Year < o.Year
	}
	return k.Month < o.Month
}

// End returns the last calendar day of the month (UTC midnight).
func (k MonthKey) End() time.Time {
	return time.Date(k.Year, time.Month(k.Month)+1, 0, 0, 0, 0, 0, time.UTC)
}

func (k MonthKey) String() string {
	return fmt.Sprintf("%04d-%02d", k.Year, k.Month)
}

// SecurityPeriod is the aggregated view of one security over a trailing window.
// Immutable once produced.
type SecurityPeriod struct {
	SecurityID string

	// Compound is the window return compounded month by month.
	Compound float64

	// DailyReturns are ordered by date across the whole window. DailyDates
	// holds the trading day of each return.
	DailyReturns []float64
	DailyDates   []time.Time

	AvgSpread    float64
	AvgMarketCap float64
}
