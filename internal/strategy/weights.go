package strategy

import (
	"errors"
	"fmt"

	"momentum-backtest/internal/model"
)

// ErrInsufficientUniverse is returned when a leg cannot be weighted.
var ErrInsufficientUniverse = errors.New("insufficient universe")

// Weighting converts a leg to signed weights.
type Weighting string

const (
	WeightingEqual Weighting = "equal"
	WeightingValue Weighting = "value"
)

var Weightings = []Weighting{WeightingEqual, WeightingValue}

func ParseWeighting(s string) (Weighting, error) {
	for _, w := range Weightings {
		if string(w) == s {
			return w, nil
		}
	}
	return "", fmt.Errorf("unknown weighting %q", s)
}

// Weights returns scale/|leg| per member (equal) or scale*cap/sum(cap) (value),
// signed by the leg's side. The gross exposure of the result is scale.
func (w Weighting) Weights(leg model.Leg, scale float64) (model.WeightSet, error) {
	if len(leg.Members) == 0 {
		return nil, fmt.Errorf("%s leg is empty: %w", leg.Side, ErrInsufficientUniverse)
	}
	sign := leg.Side.Sign()
	out := make(model.WeightSet, len(leg.Members))

	switch w {
	case WeightingEqual:
		each := sign * scale / float64(len(leg.Members))
		for _, m := range leg.Members {
			out[m.SecurityID] = each
		}
	case WeightingValue:
		total := 0.0
		for _, m := range leg.Members {
			total += m.AvgMarketCap
		}
		if !(total > 0) {
			return nil, fmt.Errorf("%s leg market cap sum %v: %w", leg.Side, total, ErrInsufficientUniverse)
		}
		for _, m := range leg.Members {
			out[m.SecurityID] = sign * scale * m.AvgMarketCap / total
		}
	default:
		return nil, fmt.Errorf("unknown weighting %q", w)
	}
	return out, nil
}

// Pair weights both legs of a split with a common scale.
func (w Weighting) Pair(s model.Split, scale float64) (long, short model.WeightSet, err error) {
	long, err = w.Weights(s.Long, scale)
	if err != nil {
		return nil, nil, err
	}
	short, err = w.Weights(s.Short, scale)
	if err != nil {
		return nil, nil, err
	}
	return long, short, nil
}
