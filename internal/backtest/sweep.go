package backtest

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"momentum-backtest/internal/model"
	"momentum-backtest/internal/strategy"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// Spec identifies one configuration of the grid.
type Spec struct {
	Lambda      float64              `json:"lambda"`
	Composition strategy.Composition `json:"composition"`
	Weighting   strategy.Weighting   `json:"weighting"`
	Period      model.Period         `json:"period"`
}

// ID is stable and unique per configuration.
func (s Spec) ID() string {
	return fmt.Sprintf("%s_%s_%s_lambda_%s", s.Composition, s.Weighting, s.Period, FormatLambda(s.Lambda))
}

func FormatLambda(l float64) string { return strconv.FormatFloat(l, 'f', -1, 64) }

func (s Spec) Validate() error {
	if !strategy.ValidLambda(s.Lambda) {
		return fmt.Errorf("lambda %v not in %v", s.Lambda, strategy.Lambdas)
	}
	if _, err := strategy.ParseComposition(string(s.Composition)); err != nil {
		return err
	}
	if _, err := strategy.ParseWeighting(string(s.Weighting)); err != nil {
		return err
	}
	if s.Period.StartYear >= s.Period.EndYear {
		return fmt.Errorf("period %s: start year must precede end year", s.Period)
	}
	return nil
}

// Grid expands the cartesian product of the enumerated dimensions, in
// lambda, composition, weighting, period order.
func Grid(lambdas []float64, comps []strategy.Composition, weights []strategy.Weighting, periods []model.Period) []Spec {
	var out []Spec
	for _, l := range lambdas {
		for _, c := range comps {
			for _, w := range weights {
				for _, p := range periods {
					out = append(out, Spec{Lambda: l, Composition: c, Weighting: w, Period: p})
				}
			}
		}
	}
	return out
}

// Universe is the panel a run draws splits and realizations from.
type Universe interface {
	strategy.WindowProvider
	Realizations
}

// Runner builds and runs an independent engine per Spec.
type Runner struct {
	Universe Universe

	// Settings carries the shared estimator and policy settings. Weighting,
	// Composition and Label are set per spec.
	Settings Settings

	// SplitParams are the shared sort fractions. Lambda is set per spec.
	SplitParams  strategy.SplitParams
	WindowMonths int
	Seed         int64

	// Sources overrides where splits come from, e.g. a stored split file.
	Sources func(spec Spec) (strategy.SplitSource, error)

	Parallelism int
	Logger      *slog.Logger
	Recorder    Recorder
}

func (r *Runner) source(spec Spec) (strategy.SplitSource, error) {
	if r.Sources != nil {
		return r.Sources(spec)
	}
	p := r.SplitParams
	p.Lambda = spec.Lambda
	return strategy.NewPanelSource(r.Universe, r.WindowMonths, r.Seed, p)
}

// Run simulates spec over its period's rebalance dates.
func (r *Runner) Run(ctx context.Context, spec Spec) (*Result, error) {
	if err := spec.Validate(); err != nil {
		return nil, err
	}
	src, err := r.source(spec)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", spec.ID(), err)
	}

	settings := r.Settings
	settings.Label = spec.ID()
	settings.Weighting = spec.Weighting
	settings.Composition = spec.Composition

	logger := r.Logger
	if logger == nil {
		logger = slog.Default()
	}
	opts := []Option{WithLogger(logger)}
	if r.Recorder != nil {
		opts = append(opts, WithRecorder(r.Recorder))
	}
	eng, err := New(settings, src, r.Universe, opts...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", spec.ID(), err)
	}

	started := time.Now()
	res, err := eng.Run(ctx, spec.Period.RebalanceDates())
	if err != nil {
		return nil, fmt.Errorf("%s: %w", spec.ID(), err)
	}
	res.RunID = uuid.New().String()
	res.Spec = spec
	logger.InfoContext(ctx, "run complete",
		"run", spec.ID(),
		"run_id", res.RunID,
		"months", len(res.Records),
		"total_return", res.TotalReturn,
		"total_cost", res.TotalCost,
		"elapsed", time.Since(started).String(),
	)
	return res, nil
}

// Sweep runs every spec on its own engine, at most Parallelism at a time.
// Results come back in spec order. The first failure cancels the rest.
func (r *Runner) Sweep(ctx context.Context, specs []Spec) ([]*Result, error) {
	out := make([]*Result, len(specs))
	g, gctx := errgroup.WithContext(ctx)
	limit := r.Parallelism
	if limit <= 0 {
		limit = 1
	}
	g.SetLimit(limit)

	for i, spec := range specs {
		i, spec := i, spec // per-iteration copies; module targets Go 1.21 loop semantics
		g.Go(func() error {
			res, err := r.Run(gctx, spec)
			if err != nil {
				return err
			}
			out[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}
