package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"momentum-backtest/internal/backtest"
	"momentum-backtest/internal/data"
	"momentum-backtest/internal/metrics"
	"momentum-backtest/internal/strategy"

	"github.com/google/subcommands"
)

type splitCmd struct {
	commonFlags
	lambdas string
}

func (*splitCmd) Name() string     { return "split" }
func (*splitCmd) Synopsis() string { return "compute and store the long/short splits for every period and lambda" }
func (*splitCmd) Usage() string {
	return `cli split [-config <file>] [-panel <csv>] [-out <dir>] [-lambdas 0,1,6,12]

  Runs the two-stage sort on every rebalance date of each configured period
  and writes final_split_{start}_{end}_lambda_{lambda}.json. Point
  data.split_dir at the output to reuse the splits in later runs.
`
}

func (c *splitCmd) SetFlags(f *flag.FlagSet) {
	c.commonFlags.register(f)
	f.StringVar(&c.lambdas, "lambdas", "", "Comma-separated lambdas. Defaults to strategy.lambdas.")
}

func (c *splitCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	e, err := c.load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitUsageError
	}
	lambdas := e.cfg.Strategy.Lambdas
	if c.lambdas != "" {
		if lambdas, err = parseLambdas(c.lambdas); err != nil {
			fmt.Fprintln(os.Stderr, err)
			return subcommands.ExitUsageError
		}
	}
	panel, err := e.panel()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	if err := os.MkdirAll(e.cfg.Data.OutputDir, 0o755); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}

	for _, l := range lambdas {
		for _, p := range e.cfg.Strategy.Periods {
			src, err := strategy.NewPanelSource(panel, e.cfg.Strategy.WindowMonths, e.cfg.Strategy.Seed, e.cfg.SplitParams(l))
			if err != nil {
				fmt.Fprintln(os.Stderr, err)
				return subcommands.ExitFailure
			}
			splits, err := strategy.ComputeSplits(ctx, src, p.RebalanceDates())
			if err != nil {
				fmt.Fprintf(os.Stderr, "period %s lambda %v: %v\n", p, l, err)
				return subcommands.ExitFailure
			}
			out := filepath.Join(e.cfg.Data.OutputDir, backtest.SplitFileName(p, l))
			if err := data.SaveSplits(out, splits); err != nil {
				fmt.Fprintln(os.Stderr, err)
				return subcommands.ExitFailure
			}
			e.logger.Info("splits written", "path", out, "dates", len(splits))
		}
	}
	return subcommands.ExitSuccess
}

type runCmd struct {
	commonFlags
	lambda      float64
	composition string
	weighting   string
	start, end  int
}

func (*runCmd) Name() string     { return "run" }
func (*runCmd) Synopsis() string { return "simulate one configuration and write its results" }
func (*runCmd) Usage() string {
	return `cli run -lambda <l> -composition <standard|hedged_rv|hedged_garch> -weighting <equal|value> -start <year> -end <year>

  Writes ret_cost_{composition}_{weighting}_{start}_{end}_lambda_{l}.csv and,
  for hedged runs, the forecast series to the output directory.
`
}

func (c *runCmd) SetFlags(f *flag.FlagSet) {
	c.commonFlags.register(f)
	f.Float64Var(&c.lambda, "lambda", 0, "Cost sensitivity (0, 1, 6 or 12).")
	f.StringVar(&c.composition, "composition", "standard", "standard, hedged_rv or hedged_garch.")
	f.StringVar(&c.weighting, "weighting", "equal", "equal or value.")
	f.IntVar(&c.start, "start", 0, "First year; rebalancing starts Dec 31 of this year.")
	f.IntVar(&c.end, "end", 0, "Last year; rebalancing ends Dec 31 of this year.")
}

func (c *runCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	e, err := c.load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitUsageError
	}
	spec, err := parseSpec(c.lambda, c.composition, c.weighting, c.start, c.end)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitUsageError
	}
	panel, err := e.panel()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	res, err := e.runner(panel, nil).Run(ctx, spec)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	if err := e.persist(ctx, []*backtest.Result{res}, false); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	fmt.Printf("%s: %d months, total return %.6f, total cost %.6f\n", spec.ID(), len(res.Records), res.TotalReturn, res.TotalCost)
	return subcommands.ExitSuccess
}

type sweepCmd struct {
	commonFlags
	workbook bool
}

func (*sweepCmd) Name() string     { return "sweep" }
func (*sweepCmd) Synopsis() string { return "simulate the full configured grid in parallel" }
func (*sweepCmd) Usage() string {
	return `cli sweep [-config <file>] [-panel <csv>] [-out <dir>] [-xlsx]

  Runs every lambda x composition x weighting x period of the config on its
  own engine, runner.parallelism at a time.
`
}

func (c *sweepCmd) SetFlags(f *flag.FlagSet) {
	c.commonFlags.register(f)
	f.BoolVar(&c.workbook, "xlsx", false, "Also write results.xlsx with one sheet per run.")
}

func (c *sweepCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	e, err := c.load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitUsageError
	}
	specs, err := e.cfg.Specs()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitUsageError
	}
	panel, err := e.panel()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}

	m := metrics.New()
	started := time.Now()
	results, err := e.runner(panel, m).Sweep(ctx, specs)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	if err := e.persist(ctx, results, c.workbook); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	e.logger.Info("sweep complete", "runs", len(results), "elapsed", time.Since(started).String())
	return subcommands.ExitSuccess
}

// persist writes each result to the output directory and the store. Forecast
// series go to a directory per run since each run hedges its own legs.
func (e *env) persist(ctx context.Context, results []*backtest.Result, workbook bool) error {
	out := e.cfg.Data.OutputDir
	if err := os.MkdirAll(out, 0o755); err != nil {
		return err
	}
	st, err := e.openStore(ctx)
	if err != nil {
		return err
	}
	if st != nil {
		defer st.Close()
	}

	now := time.Now()
	for _, res := range results {
		path := filepath.Join(out, backtest.ResultsFileName(res.Spec))
		if err := backtest.WriteResultsCSV(path, res.Records); err != nil {
			return err
		}
		if est := res.Spec.Composition.Estimator(); est != "" {
			dir := filepath.Join(out, res.Spec.ID())
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return err
			}
			if err := backtest.WriteForecastsJSON(filepath.Join(dir, backtest.ForecastsFileName(est)), res.Forecasts); err != nil {
				return err
			}
		}
		if st != nil {
			if err := st.SaveResult(ctx, res, now); err != nil {
				return err
			}
		}
		e.logger.Info("results written", "path", path, "run_id", res.RunID)
	}
	if workbook {
		path := filepath.Join(out, "results.xlsx")
		if err := backtest.WriteWorkbook(path, results); err != nil {
			return err
		}
		e.logger.Info("workbook written", "path", path)
	}
	return nil
}

func parseLambdas(s string) ([]float64, error) {
	var out []float64
	for _, part := range strings.Split(s, ",") {
		l, err := strconv.ParseFloat(strings.TrimSpace(part), 64)
		if err != nil {
			return nil, fmt.Errorf("lambda %q: %w", part, err)
		}
		if !strategy.ValidLambda(l) {
			return nil, fmt.Errorf("lambda %v not in %v", l, strategy.Lambdas)
		}
		out = append(out, l)
	}
	return out, nil
}
