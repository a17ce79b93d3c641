package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"momentum-backtest/internal/api"
	"momentum-backtest/internal/backtest"
	"momentum-backtest/internal/config"
	"momentum-backtest/internal/data"
	"momentum-backtest/internal/metrics"
	"momentum-backtest/internal/store"

	"github.com/gin-gonic/gin"
)

func main() {
	cfgPath := flag.String("config", "", "Path to YAML config (optional)")
	synthetic := flag.Bool("synthetic", false, "Serve a generated panel instead of data.panel_file")
	flag.Parse()

	if err := run(*cfgPath, *synthetic); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(cfgPath string, synthetic bool) error {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return err
	}
	logger, err := config.NewLogger(cfg.Logging, os.Stderr)
	if err != nil {
		return err
	}
	slog.SetDefault(logger)

	if os.Getenv("API_ENV") == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	load, err := universeLoader(cfg, synthetic)
	if err != nil {
		return err
	}

	var st *store.Store
	if cfg.Data.Database != "" {
		db, err := store.OpenSQLite(cfg.Data.Database)
		if err != nil {
			return err
		}
		if err := store.InitSchema(ctx, db); err != nil {
			_ = db.Close()
			return fmt.Errorf("init schema: %w", err)
		}
		st = store.NewStore(db)
		defer st.Close()
		logger.Info("run store opened", "database", cfg.Data.Database)
	} else {
		logger.Warn("no database configured, run history endpoints disabled")
	}

	router := api.NewRouter(api.Deps{
		Config:  cfg,
		Load:    load,
		Store:   st,
		Metrics: metrics.New(),
		Logger:  logger,
	})

	srv := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("starting API server", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down", "timeout", cfg.Server.ShutdownTimeout.String())
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return <-errCh
}

// universeLoader serves the configured panel through a cache that reloads the
// file after CacheTTL or when it changes on disk.
func universeLoader(cfg *config.Config, synthetic bool) (func(context.Context) (backtest.Universe, error), error) {
	if synthetic {
		obs, err := data.Synthetic(data.DefaultSyntheticConfig())
		if err != nil {
			return nil, err
		}
		panel := data.NewPanel(obs)
		return func(context.Context) (backtest.Universe, error) { return panel, nil }, nil
	}
	if cfg.Data.PanelFile == "" {
		return nil, errors.New("no panel file: set data.panel_file or pass -synthetic")
	}
	cache := data.NewPanelCache(cfg.Data.CacheTTL)
	path := cfg.Data.PanelFile
	return func(ctx context.Context) (backtest.Universe, error) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		cache.Prune()
		p, err := cache.Load(path)
		if err != nil {
			return nil, err
		}
		return p, nil
	}, nil
}
