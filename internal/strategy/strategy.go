package strategy

import (
	"context"
	"fmt"
	"time"

	"momentum-backtest/internal/model"
)

// Composition selects whether and how a run hedges.
type Composition string

const (
	CompositionStandard    Composition = "standard"
	CompositionHedgedRV    Composition = "hedged_rv"
	CompositionHedgedGARCH Composition = "hedged_garch"
)

var Compositions = []Composition{CompositionStandard, CompositionHedgedRV, CompositionHedgedGARCH}

func ParseComposition(s string) (Composition, error) {
	for _, c := range Compositions {
		if string(c) == s {
			return c, nil
		}
	}
	return "", fmt.Errorf("unknown strategy composition %q", s)
}

func (c Composition) Hedged() bool { return c != CompositionStandard }

// Estimator returns the forecaster a hedged composition uses.
func (c Composition) Estimator() model.Estimator {
	switch c {
	case CompositionHedgedRV:
		return model.EstimatorRV
	case CompositionHedgedGARCH:
		return model.EstimatorGARCH
	default:
		return ""
	}
}

// Lambdas is the enumerated cost-sensitivity grid.
var Lambdas = []float64{0, 1, 6, 12}

func ValidLambda(l float64) bool {
	for _, v := range Lambdas {
		if v == l {
			return true
		}
	}
	return false
}

// SplitSource yields the kept legs for a rebalance date.
type SplitSource interface {
	Split(ctx context.Context, date time.Time) (model.Split, error)
}

// ComputeSplits evaluates src for every date in order.
func ComputeSplits(ctx context.Context, src SplitSource, dates []time.Time) ([]model.Split, error) {
	out := make([]model.Split, 0, len(dates))
	for _, d := range dates {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		s, err := src.Split(ctx, d)
		if err != nil {
			return nil, fmt.Errorf("split %s: %w", d.Format(time.DateOnly), err)
		}
		out = append(out, s)
	}
	return out, nil
}
