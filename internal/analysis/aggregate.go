package analysis

import (
	"errors"
	"fmt"
	"math"
	"math/rand"
	"sort"
	"time"

	"momentum-backtest/internal/model"
)

// ErrEmptyWindow is returned when a trailing window holds no observations.
var ErrEmptyWindow = errors.New("empty trailing window")

// spreadDayFrom is the first day of month eligible for spread sampling.
const spreadDayFrom = 15

// spreadTailDays bounds the fallback pool when no day qualifies by date.
const spreadTailDays = 15

// Compound returns prod(1+r)-1. The empty product gives 0.
func Compound(returns []float64) float64 {
	acc := 1.0
	for _, r := range returns {
		acc *= 1 + r
	}
	return acc - 1
}

// SpreadSampler picks which observation of a month's back half supplies the
// month's spread sample.
type SpreadSampler interface {
	// Pick returns an index in [0, n). n is always > 0.
	Pick(n int) int
}

// SeededSampler draws uniformly from a fixed-seed generator. It is not safe
// for concurrent use; give each run its own.
type SeededSampler struct {
	rng *rand.Rand
}

func NewSeededSampler(seed int64) *SeededSampler {
	return &SeededSampler{rng: rand.New(rand.NewSource(seed))}
}

func (s *SeededSampler) Pick(n int) int { return s.rng.Intn(n) }

// Aggregator reduces a trailing daily panel to one SecurityPeriod per security.
type Aggregator struct {
	Sampler SpreadSampler
}

type monthBucket struct {
	key model.MonthKey
	obs []model.Observation
}

// Aggregate groups obs by security (first-appearance order) and calendar month.
// Each month is compounded, then the monthly returns are compounded again.
// Spread draws happen security by security, months in date order, so a seeded
// sampler reproduces the same spreads for the same panel.
func (a *Aggregator) Aggregate(obs []model.Observation) ([]model.SecurityPeriod, error) {
	if len(obs) == 0 {
		return nil, ErrEmptyWindow
	}
	if a.Sampler == nil {
		return nil, errors.New("aggregator: sampler is nil")
	}

	order := []string{}
	bySec := map[string][]model.Observation{}
	for _, o := range obs {
		if _, ok := bySec[o.SecurityID]; !ok {
			order = append(order, o.SecurityID)
		}
		bySec[o.SecurityID] = append(bySec[o.SecurityID], o)
	}

	out := make([]model.SecurityPeriod, 0, len(order))
	for _, id := range order {
		sp, err := a.aggregateSecurity(id, bySec[id])
		if err != nil {
			return nil, err
		}
		out = append(out, sp)
	}
	return out, nil
}

func (a *Aggregator) aggregateSecurity(id string, rows []model.Observation) (model.SecurityPeriod, error) {
	if len(rows) == 0 {
		return model.SecurityPeriod{}, fmt.Errorf("security %s: %w", id, ErrEmptyWindow)
	}
	sort.SliceStable(rows, func(i, j int) bool { return rows[i].Date.Before(rows[j].Date) })

	var months []monthBucket
	for _, o := range rows {
		k := model.MonthOf(o.Date)
		if n := len(months); n == 0 || months[n-1].key != k {
			months = append(months, monthBucket{key: k})
		}
		months[len(months)-1].obs = append(months[len(months)-1].obs, o)
	}

	monthly := make([]float64, 0, len(months))
	daily := make([]float64, 0, len(rows))
	dates := make([]time.Time, 0, len(rows))
	spreadSum, spreadN := 0.0, 0
	capSum := 0.0
	for _, m := range months {
		rets := make([]float64, len(m.obs))
		monthCap := 0.0
		for i, o := range m.obs {
			rets[i] = o.Return
			monthCap += o.MarketCap
		}
		monthly = append(monthly, Compound(rets))
		daily = append(daily, rets...)
		for _, o := range m.obs {
			dates = append(dates, o.Date)
		}
		capSum += monthCap / float64(len(m.obs))

		if s := a.sampleSpread(m.obs); !math.IsNaN(s) {
			spreadSum += s
			spreadN++
		}
	}

	sp := model.SecurityPeriod{
		SecurityID:   id,
		Compound:     Compound(monthly),
		DailyReturns: daily,
		DailyDates:   dates,
		AvgMarketCap: capSum / float64(len(months)),
	}
	if spreadN > 0 {
		sp.AvgSpread = spreadSum / float64(spreadN)
	}
	return sp, nil
}

// sampleSpread draws one day from the 15th onwards. Months with no such day
// draw from their last observations instead.
func (a *Aggregator) sampleSpread(obs []model.Observation) float64 {
	pool := make([]model.Observation, 0, len(obs))
	for _, o := range obs {
		if o.Date.Day() >= spreadDayFrom {
			pool = append(pool, o)
		}
	}
	if len(pool) == 0 {
		from := len(obs) - spreadTailDays
		if from < 0 {
			from = 0
		}
		pool = obs[from:]
	}
	return pool[a.Sampler.Pick(len(pool))].QuotedSpread()
}
