package backtest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"momentum-backtest/internal/analysis"
	"momentum-backtest/internal/model"
	"momentum-backtest/internal/strategy"
	"momentum-backtest/internal/volatility"
)

// ErrMissingReturn is returned under MissingReturnError when a held security
// has no realized return.
var ErrMissingReturn = errors.New("missing realized return")

// MissingReturnPolicy decides what a missing realized return means.
type MissingReturnPolicy string

const (
	// MissingReturnZero counts the security as flat for the month.
	MissingReturnZero MissingReturnPolicy = "zero"
	// MissingReturnError stops the run.
	MissingReturnError MissingReturnPolicy = "error"
)

func ParseMissingReturnPolicy(s string) (MissingReturnPolicy, error) {
	switch MissingReturnPolicy(s) {
	case MissingReturnZero, MissingReturnError:
		return MissingReturnPolicy(s), nil
	case "":
		return MissingReturnZero, nil
	default:
		return "", fmt.Errorf("unknown missing return policy %q", s)
	}
}

// Realizations supplies out-of-sample returns.
type Realizations interface {
	MonthReturn(id string, k model.MonthKey) (float64, bool)
	TradingDays(k model.MonthKey) []time.Time
	DailyReturn(id string, day time.Time) (float64, bool)
}

// Recorder receives run telemetry.
type Recorder interface {
	StepObserved(label string, d time.Duration)
	FallbackObserved(label string, est model.Estimator)
	RunFinished(label string, months int, err error)
}

type nopRecorder struct{}

func (nopRecorder) StepObserved(string, time.Duration)        {}
func (nopRecorder) FallbackObserved(string, model.Estimator) {}
func (nopRecorder) RunFinished(string, int, error)           {}

// Settings configures one run.
type Settings struct {
	// Label identifies the run in logs and metrics.
	Label string

	Weighting   strategy.Weighting
	Composition strategy.Composition

	// TargetVol is annualized.
	TargetVol     float64
	MissingReturn MissingReturnPolicy

	RV         *volatility.RV
	GARCH      *volatility.GARCH
	FitTimeout time.Duration
}

func (s Settings) Validate() error {
	if _, err := strategy.ParseWeighting(string(s.Weighting)); err != nil {
		return err
	}
	if _, err := strategy.ParseComposition(string(s.Composition)); err != nil {
		return err
	}
	if _, err := ParseMissingReturnPolicy(string(s.MissingReturn)); err != nil {
		return err
	}
	if !s.Composition.Hedged() {
		return nil
	}
	if !(s.TargetVol > 0) {
		return fmt.Errorf("target volatility must be > 0, got %v", s.TargetVol)
	}
	if s.RV == nil {
		return errors.New("hedged runs need rv settings")
	}
	if err := s.RV.Validate(); err != nil {
		return err
	}
	if s.Composition == strategy.CompositionHedgedGARCH {
		if s.GARCH == nil {
			return errors.New("hedged_garch runs need garch settings")
		}
		return s.GARCH.Validate()
	}
	return nil
}

type Option func(*Engine)

func WithLogger(l *slog.Logger) Option { return func(e *Engine) { e.log = l } }

func WithRecorder(r Recorder) Option { return func(e *Engine) { e.rec = r } }

// Engine simulates one configuration, one rebalance date at a time.
// It is not safe for concurrent use; run configurations on separate engines.
type Engine struct {
	settings Settings
	splits   strategy.SplitSource
	real     Realizations
	guard    *volatility.Guard
	log      *slog.Logger
	rec      Recorder

	state  State
	result Result
}

func New(settings Settings, splits strategy.SplitSource, real Realizations, opts ...Option) (*Engine, error) {
	if splits == nil {
		return nil, errors.New("split source is nil")
	}
	if real == nil {
		return nil, errors.New("realizations are nil")
	}
	if settings.MissingReturn == "" {
		settings.MissingReturn = MissingReturnZero
	}
	if err := settings.Validate(); err != nil {
		return nil, fmt.Errorf("settings: %w", err)
	}
	e := &Engine{
		settings: settings,
		splits:   splits,
		real:     real,
		log:      slog.Default(),
		rec:      nopRecorder{},
	}
	for _, o := range opts {
		o(e)
	}
	e.log = e.log.With("run", settings.Label)

	switch settings.Composition {
	case strategy.CompositionHedgedRV:
		e.guard = &volatility.Guard{Primary: settings.RV, Timeout: settings.FitTimeout, Logger: e.log}
	case strategy.CompositionHedgedGARCH:
		e.guard = &volatility.Guard{Primary: settings.GARCH, Backup: settings.RV, Timeout: settings.FitTimeout, Logger: e.log}
	}
	if e.guard != nil {
		e.guard.OnFallback = func(est model.Estimator, _ error) {
			e.rec.FallbackObserved(settings.Label, est)
		}
	}
	return e, nil
}

// State returns a copy of the carried state. History, leg members and weights
// are copied, so changing them does not reach the engine.
func (e *Engine) State() State { return e.state.clone() }

// Run steps through dates in order and finishes the run.
func (e *Engine) Run(ctx context.Context, dates []time.Time) (*Result, error) {
	if len(dates) == 0 {
		return nil, errors.New("no rebalance dates")
	}
	for _, d := range dates {
		if _, err := e.Step(ctx, d); err != nil {
			e.rec.RunFinished(e.settings.Label, len(e.result.Records), err)
			return nil, err
		}
	}
	res := e.Finish()
	e.rec.RunFinished(e.settings.Label, len(res.Records), nil)
	return res, nil
}

// Finish marks the run done and returns its result.
func (e *Engine) Finish() *Result {
	e.state.Phase = PhaseDone
	res := e.result
	res.Records = append([]model.MonthlyResult(nil), e.result.Records...)
	res.Forecasts = append([]model.Forecast(nil), e.result.Forecasts...)
	return &res
}

// Step processes one rebalance date: form legs, weight them, hedge if
// configured, realize next month's return, charge turnover and roll state.
func (e *Engine) Step(ctx context.Context, date time.Time) (model.MonthlyResult, error) {
	started := time.Now()
	day := date.Format(time.DateOnly)

	switch e.state.Phase {
	case PhaseDone:
		return model.MonthlyResult{}, fmt.Errorf("date %s: run already finished", day)
	case PhaseSteady:
		if !date.After(e.state.LastDate) {
			return model.MonthlyResult{}, fmt.Errorf("date %s: not after previous rebalance %s", day, e.state.LastDate.Format(time.DateOnly))
		}
	}
	if err := ctx.Err(); err != nil {
		return model.MonthlyResult{}, err
	}

	split, err := e.splits.Split(ctx, date)
	if err != nil {
		return model.MonthlyResult{}, fmt.Errorf("date %s split: %w", day, err)
	}
	wl, ws, err := e.settings.Weighting.Pair(split, 1)
	if err != nil {
		return model.MonthlyResult{}, fmt.Errorf("date %s weights: %w", day, err)
	}
	unitLong := Holding{Leg: split.Long, Weights: wl}
	unitShort := Holding{Leg: split.Short, Weights: ws}

	rec := model.MonthlyResult{RebalanceDate: date, HedgeRatio: 1}
	var forecast *model.Forecast
	if e.guard != nil {
		f, err := e.guard.Forecast(ctx, volatility.Input{
			Date:         date,
			Long:         split.Long,
			Short:        split.Short,
			LongWeights:  wl,
			ShortWeights: ws,
			History:      e.state.History,
		}, e.state.PrevForecast)
		if err != nil {
			return model.MonthlyResult{}, fmt.Errorf("date %s forecast: %w", day, err)
		}
		ratio, err := HedgeRatio(e.settings.TargetVol, f.Value)
		if err != nil {
			return model.MonthlyResult{}, fmt.Errorf("date %s: %w", day, err)
		}
		if wl, ws, err = Overlay(e.settings.Weighting, split, ratio); err != nil {
			return model.MonthlyResult{}, fmt.Errorf("date %s hedged weights: %w", day, err)
		}
		rec.HedgeRatio, rec.Forecast = ratio, f.Value
		forecast = &f
	}

	hold := model.MonthOf(date).Next()
	rec.Year, rec.Month = hold.Year, hold.Month
	rec.LongCount, rec.ShortCount = split.Long.Len(), split.Short.Len()

	curLong := Holding{Leg: split.Long, Weights: wl}
	curShort := Holding{Leg: split.Short, Weights: ws}

	if rec.TotalReturn, err = e.realizedReturn(hold, curLong, curShort); err != nil {
		return model.MonthlyResult{}, fmt.Errorf("date %s return: %w", day, err)
	}
	rec.TotalCost, err = TurnoverCost(curLong, curShort, e.state.Long, e.state.Short, e.driftSince(date))
	if err != nil {
		return model.MonthlyResult{}, fmt.Errorf("date %s cost: %w", day, err)
	}

	// Forecasts describe the unit-gross strategy, so the GARCH history and
	// the realized volatility they are scored against exclude the hedge.
	daily := e.realizedDaily(hold, curLong, curShort)
	unhedged := daily
	if forecast != nil {
		unhedged = e.realizedDaily(hold, unitLong, unitShort)
	}
	rec.SumSquaredReturn = volatility.SumSquares(daily)
	rec.UnhedgedSumSquaredReturn = volatility.SumSquares(unhedged)
	if e.settings.Composition == strategy.CompositionHedgedGARCH {
		e.state.History = append(e.state.History, unhedged...)
	}

	if forecast != nil {
		e.state.PrevForecast = forecast.Value
		e.result.Forecasts = append(e.result.Forecasts, *forecast)
	}
	e.state.Long, e.state.Short = curLong, curShort
	e.state.LastDate = date
	e.state.Phase = PhaseSteady
	e.result.Records = append(e.result.Records, rec)
	e.result.TotalReturn += rec.TotalReturn
	e.result.TotalCost += rec.TotalCost

	e.rec.StepObserved(e.settings.Label, time.Since(started))
	e.log.DebugContext(ctx, "rebalanced",
		"date", day,
		"long", rec.LongCount,
		"short", rec.ShortCount,
		"total_return", rec.TotalReturn,
		"total_cost", rec.TotalCost,
		"hedge_ratio", rec.HedgeRatio,
	)
	return rec, nil
}

func (e *Engine) monthReturn(id string, k model.MonthKey) (float64, error) {
	r, ok := e.real.MonthReturn(id, k)
	if ok {
		return r, nil
	}
	if e.settings.MissingReturn == MissingReturnError {
		return 0, fmt.Errorf("%s in %s: %w", id, k, ErrMissingReturn)
	}
	return 0, nil
}

func (e *Engine) realizedReturn(hold model.MonthKey, sides ...Holding) (float64, error) {
	total := 0.0
	for _, h := range sides {
		for _, m := range h.Leg.Members {
			r, err := e.monthReturn(m.SecurityID, hold)
			if err != nil {
				return 0, err
			}
			total += h.Weights[m.SecurityID] * r
		}
	}
	return total, nil
}

// driftSince compounds each security's monthly returns over the months held
// since the previous rebalance, up to and including date's month.
func (e *Engine) driftSince(date time.Time) DriftFunc {
	if e.state.Phase == PhaseUninitialized {
		return func(string) (float64, error) { return 0, nil }
	}
	first := model.MonthOf(e.state.LastDate).Next()
	last := model.MonthOf(date)
	return func(id string) (float64, error) {
		var rets []float64
		for k := first; !last.Before(k); k = k.Next() {
			r, err := e.monthReturn(id, k)
			if err != nil {
				return 0, err
			}
			rets = append(rets, r)
		}
		return analysis.Compound(rets), nil
	}
}

// realizedDaily is the weighted strategy return for each trading day of the
// holding month. Securities without a return that day contribute zero.
func (e *Engine) realizedDaily(hold model.MonthKey, sides ...Holding) []float64 {
	days := e.real.TradingDays(hold)
	out := make([]float64, len(days))
	for i, d := range days {
		for _, h := range sides {
			for _, m := range h.Leg.Members {
				if r, ok := e.real.DailyReturn(m.SecurityID, d); ok {
					out[i] += h.Weights[m.SecurityID] * r
				}
			}
		}
	}
	return out
}
