package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"momentum-backtest/internal/backtest"
	"momentum-backtest/internal/config"
	"momentum-backtest/internal/data"
	"momentum-backtest/internal/store"
	"momentum-backtest/internal/strategy"
)

// env is what every backtest command loads before doing work.
type env struct {
	cfg    *config.Config
	logger *slog.Logger
}

type commonFlags struct {
	configPath string
	panelPath  string
	outDir     string
}

func (f *commonFlags) register(fs *flag.FlagSet) {
	fs.StringVar(&f.configPath, "config", "", "Path to YAML config (defaults apply when empty).")
	fs.StringVar(&f.panelPath, "panel", "", "Daily panel CSV. Overrides data.panel_file.")
	fs.StringVar(&f.outDir, "out", "", "Output directory. Overrides data.output_dir.")
}

func (f *commonFlags) load() (*env, error) {
	cfg, err := config.Load(f.configPath)
	if err != nil {
		return nil, err
	}
	if f.panelPath != "" {
		cfg.Data.PanelFile = f.panelPath
	}
	if f.outDir != "" {
		cfg.Data.OutputDir = f.outDir
	}
	logger, err := config.NewLogger(cfg.Logging, os.Stderr)
	if err != nil {
		return nil, err
	}
	return &env{cfg: cfg, logger: logger}, nil
}

func (e *env) panel() (*data.Panel, error) {
	if e.cfg.Data.PanelFile == "" {
		return nil, fmt.Errorf("no panel file: set data.panel_file or -panel")
	}
	started := time.Now()
	p, err := data.ReadPanelFile(e.cfg.Data.PanelFile)
	if err != nil {
		return nil, err
	}
	e.logger.Info("panel loaded",
		"path", e.cfg.Data.PanelFile,
		"securities", p.Securities(),
		"months", len(p.Months()),
		"elapsed", time.Since(started).String(),
	)
	return p, nil
}

func (e *env) runner(u backtest.Universe, rec backtest.Recorder) *backtest.Runner {
	r := &backtest.Runner{
		Universe:     u,
		Settings:     e.cfg.Settings(),
		SplitParams:  e.cfg.SplitParams(0),
		WindowMonths: e.cfg.Strategy.WindowMonths,
		Seed:         e.cfg.Strategy.Seed,
		Parallelism:  e.cfg.Runner.Parallelism,
		Logger:       e.logger,
		Recorder:     rec,
	}
	if e.cfg.Data.SplitDir != "" {
		r.Sources = backtest.SplitFiles(e.cfg.Data.SplitDir)
	}
	return r
}

// openStore returns nil when no database is configured.
func (e *env) openStore(ctx context.Context) (*store.Store, error) {
	if e.cfg.Data.Database == "" {
		return nil, nil
	}
	db, err := store.OpenSQLite(e.cfg.Data.Database)
	if err != nil {
		return nil, err
	}
	if err := store.InitSchema(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}
	return store.NewStore(db), nil
}

func parseSpec(lambda float64, comp, weight string, start, end int) (backtest.Spec, error) {
	c, err := strategy.ParseComposition(comp)
	if err != nil {
		return backtest.Spec{}, err
	}
	w, err := strategy.ParseWeighting(weight)
	if err != nil {
		return backtest.Spec{}, err
	}
	s := backtest.Spec{Lambda: lambda, Composition: c, Weighting: w}
	s.Period.StartYear, s.Period.EndYear = start, end
	return s, s.Validate()
}
