package backtest

import (
	"fmt"
	"math"
)

// DriftFunc returns a security's realized return between the previous and the
// current rebalance date.
type DriftFunc func(id string) (float64, error)

// SideCost is the trading cost of moving one side from prev to cur.
//
// Members of cur pay |w - w_prev*(1+drift)| * spread/2 at the current spread;
// w_prev is zero for new entries. Members of prev missing from cur are unwound
// in full at their previous spread.
func SideCost(cur, prev Holding, drift DriftFunc) (float64, error) {
	total := 0.0
	for _, m := range cur.Leg.Members {
		w := cur.Weights[m.SecurityID]
		prevW := prev.Weights[m.SecurityID]
		drifted := 0.0
		if prevW != 0 {
			r, err := drift(m.SecurityID)
			if err != nil {
				return 0, err
			}
			drifted = prevW * (1 + r)
		}
		total += math.Abs(w-drifted) * m.AvgQuotedSpread / 2
	}
	for _, m := range prev.Leg.Members {
		if cur.Leg.Contains(m.SecurityID) {
			continue
		}
		r, err := drift(m.SecurityID)
		if err != nil {
			return 0, err
		}
		total += math.Abs(prev.Weights[m.SecurityID]*(1+r)) * m.AvgQuotedSpread / 2
	}
	return total, nil
}

// TurnoverCost sums SideCost over both legs. A security that changes side is
// unwound on the old side and entered on the new one.
func TurnoverCost(curLong, curShort, prevLong, prevShort Holding, drift DriftFunc) (float64, error) {
	long, err := SideCost(curLong, prevLong, drift)
	if err != nil {
		return 0, fmt.Errorf("long leg cost: %w", err)
	}
	short, err := SideCost(curShort, prevShort, drift)
	if err != nil {
		return 0, fmt.Errorf("short leg cost: %w", err)
	}
	return long + short, nil
}
