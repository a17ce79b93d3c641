package strategy

import (
	"fmt"
	"math"
	"time"

	"momentum-backtest/internal/analysis"
	"momentum-backtest/internal/model"
)

// SplitParams controls the two-stage sort.
type SplitParams struct {
	// Lambda scales how much the quoted spread penalizes a candidate.
	Lambda float64

	// LongFraction and ShortFraction pick the stage-1 candidates from the universe.
	LongFraction  float64
	ShortFraction float64

	// KeepLong and KeepShort pick the final legs from the candidates.
	KeepLong  float64
	KeepShort float64
}

func DefaultSplitParams(lambda float64) SplitParams {
	return SplitParams{
		Lambda:        lambda,
		LongFraction:  0.2,
		ShortFraction: 0.2,
		KeepLong:      0.5,
		KeepShort:     0.5,
	}
}

func (p SplitParams) Validate() error {
	if p.Lambda < 0 || math.IsNaN(p.Lambda) {
		return fmt.Errorf("lambda must be >= 0, got %v", p.Lambda)
	}
	for name, f := range map[string]float64{
		"long_fraction":  p.LongFraction,
		"short_fraction": p.ShortFraction,
		"keep_long":      p.KeepLong,
		"keep_short":     p.KeepShort,
	} {
		if !(f > 0 && f <= 1) {
			return fmt.Errorf("%s must be in (0, 1], got %v", name, f)
		}
	}
	return nil
}

// LongScore is the cost-adjusted long score. Spread only lowers it.
func LongScore(ret, spread, lambda float64) float64 { return ret - lambda*spread }

// ShortScore is the cost-adjusted short score. Shorts rank lowest first, so a
// spread only raises it.
func ShortScore(ret, spread, lambda float64) float64 { return ret + lambda*spread }

// Splitter forms the long and short legs for a rebalance date.
type Splitter struct {
	Params SplitParams
}

func NewSplitter(p SplitParams) (*Splitter, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return &Splitter{Params: p}, nil
}

// Split ranks periods by compound return, takes the candidate tails, then
// re-ranks each tail by its cost-adjusted score and keeps the best fraction.
// The two legs never share a security: when the candidate fractions would
// overlap, the universe is partitioned between them in proportion.
func (s *Splitter) Split(date time.Time, periods []model.SecurityPeriod) (model.Split, error) {
	if len(periods) == 0 {
		return model.Split{}, fmt.Errorf("split %s: %w", date.Format(time.DateOnly), analysis.ErrEmptyWindow)
	}
	p := s.Params
	n := len(periods)

	nLong := int(math.Floor(float64(n) * p.LongFraction))
	nShort := int(math.Floor(float64(n) * p.ShortFraction))
	if nLong+nShort > n {
		nLong = int(math.Ceil(float64(n) * p.LongFraction / (p.LongFraction + p.ShortFraction)))
		nShort = n - nLong
	}

	compound := func(sp model.SecurityPeriod) float64 { return sp.Compound }
	ranked := analysis.RankDescending(periods, compound)
	longCand := ranked[:nLong]
	shortCand := analysis.RankAscending(ranked[n-nShort:], compound)

	lambda := p.Lambda
	long := stageTwo(model.SideLong, longCand, p.KeepLong, func(sp model.SecurityPeriod) float64 {
		return LongScore(sp.Compound, sp.AvgSpread, lambda)
	})
	short := stageTwo(model.SideShort, shortCand, p.KeepShort, func(sp model.SecurityPeriod) float64 {
		return ShortScore(sp.Compound, sp.AvgSpread, lambda)
	})

	return model.Split{Date: date, Long: long, Short: short}, nil
}

func stageTwo(side model.Side, cands []model.SecurityPeriod, keep float64, score func(model.SecurityPeriod) float64) model.Leg {
	var ranked []model.SecurityPeriod
	if side == model.SideLong {
		ranked = analysis.RankDescending(cands, score)
	} else {
		ranked = analysis.RankAscending(cands, score)
	}
	k := int(math.Floor(float64(len(ranked)) * keep))

	leg := model.Leg{Side: side, Members: make([]model.LegMember, 0, k)}
	for _, sp := range ranked[:k] {
		leg.Members = append(leg.Members, model.LegMember{
			SecurityID:         sp.SecurityID,
			CostAdjustedReturn: score(sp),
			DailyReturns:       sp.DailyReturns,
			DailyDates:         sp.DailyDates,
			AvgMarketCap:       sp.AvgMarketCap,
			AvgQuotedSpread:    sp.AvgSpread,
		})
	}
	return leg
}
