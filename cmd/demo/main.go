package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"momentum-backtest/internal/analysis"
	"momentum-backtest/internal/backtest"
	"momentum-backtest/internal/config"
	"momentum-backtest/internal/data"
	"momentum-backtest/internal/model"
	"momentum-backtest/internal/strategy"
)

// Demo:
// - Generate a small synthetic daily panel
// - Run lambda 0 and a cost-aware lambda for every composition
// - Print each run's summary and the first few months of one ledger
func main() {
	cfgPath := flag.String("config", "", "Path to YAML config (optional)")
	securities := flag.Int("securities", 60, "Number of synthetic securities")
	seed := flag.Int64("seed", 1, "Synthetic panel seed")
	lambda := flag.Float64("lambda", 1, "Cost-aware lambda compared against lambda 0")
	weighting := flag.String("weighting", "equal", "Weighting scheme: equal or value")
	outCSV := flag.String("out", "", "Optional path to write the first run's results CSV")
	outXLSX := flag.String("xlsx", "", "Optional path to write a workbook of every run")
	flag.Parse()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		panic(err)
	}
	w, err := strategy.ParseWeighting(*weighting)
	if err != nil {
		panic(err)
	}

	synth := data.DefaultSyntheticConfig()
	synth.Securities = *securities
	synth.Seed = *seed
	obs, err := data.Synthetic(synth)
	if err != nil {
		panic(err)
	}
	panel := data.NewPanel(obs)
	fmt.Printf("Generated %d securities over %d months (%d observations)\n",
		panel.Securities(), len(panel.Months()), len(obs))

	period := model.Period{StartYear: synth.StartYear, EndYear: synth.EndYear}
	specs := backtest.Grid([]float64{0, *lambda}, strategy.Compositions, []strategy.Weighting{w}, []model.Period{period})

	runner := &backtest.Runner{
		Universe:     panel,
		Settings:     cfg.Settings(),
		SplitParams:  cfg.SplitParams(0),
		WindowMonths: cfg.Strategy.WindowMonths,
		Seed:         cfg.Strategy.Seed,
		Parallelism:  cfg.Runner.Parallelism,
		Logger:       slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn})),
	}
	results, err := runner.Sweep(context.Background(), specs)
	if err != nil {
		panic(err)
	}

	fmt.Printf("\n%-40s %10s %10s %10s %10s\n", "run", "gross", "net", "net std", "cost")
	for _, res := range results {
		s := analysis.Summarize(res.Realized())
		fmt.Printf("%-40s %10.5f %10.5f %10.5f %10.5f\n",
			res.Spec.ID(), s.MonthlyGrossReturn, s.MonthlyNetReturn, s.MonthlyNetReturnStd, s.TotalCost)
	}

	first := results[0]
	fmt.Printf("\nFirst months of %s\n", first.Spec.ID())
	for i := 0; i < min(6, len(first.Records)); i++ {
		r := first.Records[i]
		fmt.Printf("%04d-%02d  rebalance=%s  ret=%8.5f  cost=%7.5f  hedge=%.3f  legs=%d/%d\n",
			r.Year, r.Month, r.RebalanceDate.Format("2006-01-02"),
			r.TotalReturn, r.TotalCost, r.HedgeRatio, r.LongCount, r.ShortCount)
	}

	if *outCSV != "" {
		if err := backtest.WriteResultsCSV(*outCSV, first.Records); err != nil {
			panic(err)
		}
		fmt.Printf("\nWrote CSV: %s\n", *outCSV)
	}
	if *outXLSX != "" {
		if err := backtest.WriteWorkbook(*outXLSX, results); err != nil {
			panic(err)
		}
		fmt.Printf("Wrote workbook: %s\n", *outXLSX)
	}
}
