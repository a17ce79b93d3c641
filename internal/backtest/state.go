package backtest

import (
	"maps"
	"slices"
	"time"

	"momentum-backtest/internal/model"
)

// Phase is the engine's position in its run.
type Phase int

const (
	PhaseUninitialized Phase = iota
	PhaseSteady
	PhaseDone
)

func (p Phase) String() string {
	switch p {
	case PhaseUninitialized:
		return "uninitialized"
	case PhaseSteady:
		return "steady"
	case PhaseDone:
		return "done"
	default:
		return "unknown"
	}
}

// Holding is one side's positions after a rebalance: the leg (member order and
// spreads) and the weights actually held.
type Holding struct {
	Leg     model.Leg
	Weights model.WeightSet
}

// State is everything carried from one rebalance date to the next. Each engine
// owns exactly one State; it is never shared between runs.
type State struct {
	Phase    Phase
	LastDate time.Time

	Long  Holding
	Short Holding

	// PrevForecast is the last forecast used for hedging, 0 before the first.
	PrevForecast float64

	// History accumulates realized daily strategy returns of every holding
	// month so far. Only GARCH runs append to it.
	History []float64
}

func (h Holding) clone() Holding {
	leg := h.Leg
	leg.Members = slices.Clone(h.Leg.Members)
	return Holding{Leg: leg, Weights: maps.Clone(h.Weights)}
}

func (s State) clone() State {
	s.Long = s.Long.clone()
	s.Short = s.Short.clone()
	s.History = slices.Clone(s.History)
	return s
}
