package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"text/tabwriter"

	"momentum-backtest/internal/analysis"
	"momentum-backtest/internal/backtest"
	"momentum-backtest/internal/model"

	"github.com/google/subcommands"
)

type compareCmd struct {
	configPath string
	dir        string
	kind       string
	alpha      float64
	periods    int
}

func (*compareCmd) Name() string { return "compare" }
func (*compareCmd) Synopsis() string {
	return "test each lambda against the lambda 0 baseline from stored results"
}
func (*compareCmd) Usage() string {
	return `cli compare [-config <file>] [-dir <results dir>] [-kind both|gross|net] [-alpha 0.05] [-n 360]

  Reads the ret_cost_*.csv files of a sweep, joins each configuration's
  periods, and runs a two-sided z-test of every lambda > 0 against lambda 0
  with the same composition and weighting.
`
}

func (c *compareCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.configPath, "config", "", "Path to YAML config (defaults apply when empty).")
	f.StringVar(&c.dir, "dir", "", "Results directory. Defaults to data.output_dir.")
	f.StringVar(&c.kind, "kind", "both", "Return kind: both, gross or net.")
	f.Float64Var(&c.alpha, "alpha", 0.05, "Significance level.")
	f.IntVar(&c.periods, "n", analysis.DefaultTestPeriods, "Number of months in the test.")
}

func (c *compareCmd) Execute(_ context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	e, err := (&commonFlags{configPath: c.configPath, outDir: c.dir}).load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitUsageError
	}
	comps, err := e.cfg.Compositions()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitUsageError
	}
	weights, err := e.cfg.Weightings()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitUsageError
	}
	kinds := []analysis.ReturnKind{analysis.ReturnGross, analysis.ReturnNet}
	switch c.kind {
	case "both":
	case string(analysis.ReturnGross), string(analysis.ReturnNet):
		kinds = []analysis.ReturnKind{analysis.ReturnKind(c.kind)}
	default:
		fmt.Fprintf(os.Stderr, "unknown return kind %q\n", c.kind)
		return subcommands.ExitUsageError
	}

	load := func(spec backtest.Spec) (analysis.Summary, error) {
		byPeriod := map[model.Period][]model.MonthlyResult{}
		for _, p := range e.cfg.Strategy.Periods {
			spec.Period = p
			recs, err := backtest.ReadResultsCSV(filepath.Join(e.cfg.Data.OutputDir, backtest.ResultsFileName(spec)))
			if err != nil {
				return analysis.Summary{}, err
			}
			byPeriod[p] = recs
		}
		return analysis.SummarizePeriods(byPeriod), nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "composition\tweighting\tlambda\tkind\tmean\tstd\tz\tp\tconclusion")
	for _, comp := range comps {
		for _, wt := range weights {
			base, err := load(backtest.Spec{Lambda: 0, Composition: comp, Weighting: wt})
			if err != nil {
				fmt.Fprintln(os.Stderr, err)
				return subcommands.ExitFailure
			}
			for _, l := range e.cfg.Strategy.Lambdas {
				if l == 0 {
					continue
				}
				s, err := load(backtest.Spec{Lambda: l, Composition: comp, Weighting: wt})
				if err != nil {
					fmt.Fprintln(os.Stderr, err)
					return subcommands.ExitFailure
				}
				for _, kind := range kinds {
					res, err := analysis.ZTest(s, base, kind, c.periods, c.alpha)
					if err != nil {
						fmt.Fprintf(os.Stderr, "%s %s lambda %v: %v\n", comp, wt, l, err)
						return subcommands.ExitFailure
					}
					mean, std := s.MonthlyNetReturn, s.MonthlyNetReturnStd
					if kind == analysis.ReturnGross {
						mean, std = s.MonthlyGrossReturn, s.MonthlyGrossReturnStd
					}
					fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%.6f\t%.6f\t%.3f\t%.4f\t%s\n",
						comp, wt, backtest.FormatLambda(l), kind, mean, std, res.Statistic, res.PValue, res.Conclusion)
				}
			}
		}
	}
	if err := w.Flush(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}

type volEvalCmd struct {
	results   string
	forecasts string
	estimator string
}

func (*volEvalCmd) Name() string { return "voleval" }
func (*volEvalCmd) Synopsis() string {
	return "score a forecast series against the realized monthly volatility"
}
func (*volEvalCmd) Usage() string {
	return `cli voleval -results <ret_cost csv> -forecasts <vol_predictions json> [-estimator RV|GARCH]

  The realized volatility of a month is the square root of the sum of
  squared daily strategy returns held that month.
`
}

func (c *volEvalCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.results, "results", "", "Results CSV of a hedged run.")
	f.StringVar(&c.forecasts, "forecasts", "", "Forecast JSON of the same run.")
	f.StringVar(&c.estimator, "estimator", string(model.EstimatorRV), "Estimator label for the report.")
}

func (c *volEvalCmd) Execute(_ context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if c.results == "" || c.forecasts == "" {
		fmt.Fprintln(os.Stderr, "-results and -forecasts are required")
		return subcommands.ExitUsageError
	}
	records, err := backtest.ReadResultsCSV(c.results)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	forecasts, err := backtest.ReadForecastsJSON(c.forecasts, model.Estimator(c.estimator))
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	mse, n, err := analysis.ForecastMSE(analysis.AlignForecasts(forecasts), analysis.RealizedVolatility(records))
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	fmt.Printf("%s: mse %.8g over %d months\n", c.estimator, mse, n)
	return subcommands.ExitSuccess
}
