package handlers

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"momentum-backtest/internal/analysis"
	"momentum-backtest/internal/api/models"
	"momentum-backtest/internal/backtest"
	"momentum-backtest/internal/config"
	"momentum-backtest/internal/model"
	"momentum-backtest/internal/store"
	"momentum-backtest/internal/strategy"

	"github.com/gin-gonic/gin"
)

// UniverseLoader returns the panel runs are simulated on.
type UniverseLoader func(ctx context.Context) (backtest.Universe, error)

// BacktestHandler runs configurations on request.
type BacktestHandler struct {
	cfg      *config.Config
	load     UniverseLoader
	store    *store.Store
	recorder backtest.Recorder
	logger   *slog.Logger
	now      func() time.Time
}

// NewBacktestHandler creates a backtest handler. st and rec may be nil.
func NewBacktestHandler(cfg *config.Config, load UniverseLoader, st *store.Store, rec backtest.Recorder, logger *slog.Logger) *BacktestHandler {
	return &BacktestHandler{cfg: cfg, load: load, store: st, recorder: rec, logger: logger, now: time.Now}
}

func (h *BacktestHandler) runner(u backtest.Universe) *backtest.Runner {
	r := &backtest.Runner{
		Universe:     u,
		Settings:     h.cfg.Settings(),
		SplitParams:  h.cfg.SplitParams(0),
		WindowMonths: h.cfg.Strategy.WindowMonths,
		Seed:         h.cfg.Strategy.Seed,
		Parallelism:  h.cfg.Runner.Parallelism,
		Logger:       h.logger,
		Recorder:     h.recorder,
	}
	if h.cfg.Data.SplitDir != "" {
		r.Sources = backtest.SplitFiles(h.cfg.Data.SplitDir)
	}
	return r
}

func specOf(lambda float64, composition, weighting string, start, end int) (backtest.Spec, error) {
	s := backtest.Spec{
		Lambda:      lambda,
		Composition: strategy.Composition(composition),
		Weighting:   strategy.Weighting(weighting),
		Period:      model.Period{StartYear: start, EndYear: end},
	}
	return s, s.Validate()
}

// RunBacktest handles POST /api/v1/backtest
func (h *BacktestHandler) RunBacktest(c *gin.Context) {
	var req models.RunRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "INVALID_REQUEST", err)
		return
	}
	spec, err := specOf(*req.Lambda, req.Composition, req.Weighting, req.StartYear, req.EndYear)
	if err != nil {
		respondError(c, http.StatusBadRequest, "INVALID_CONFIG", err)
		return
	}

	ctx := c.Request.Context()
	u, err := h.load(ctx)
	if err != nil {
		respondError(c, http.StatusServiceUnavailable, "DATA_UNAVAILABLE", err)
		return
	}
	res, err := h.runner(u).Run(ctx, spec)
	if err != nil {
		respondRunError(c, err)
		return
	}
	h.save(ctx, res)

	resp := buildRunResponse(res)
	if req.IncludeRecords {
		resp.Records = res.Records
	}
	if req.IncludeForecasts {
		resp.Forecasts = res.Forecasts
	}
	c.JSON(http.StatusOK, resp)
}

// CompareBacktests handles POST /api/v1/backtest/compare
func (h *BacktestHandler) CompareBacktests(c *gin.Context) {
	var req models.CompareRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "INVALID_REQUEST", err)
		return
	}
	kind := analysis.ReturnKind(req.Kind)
	if kind == "" {
		kind = analysis.ReturnNet
	}
	alpha := req.Alpha
	if alpha == 0 {
		alpha = 0.05
	}

	specs := make([]backtest.Spec, 0, len(req.Lambdas)+1)
	for _, l := range append([]float64{0}, req.Lambdas...) {
		s, err := specOf(l, req.Composition, req.Weighting, req.StartYear, req.EndYear)
		if err != nil {
			respondError(c, http.StatusBadRequest, "INVALID_CONFIG", err)
			return
		}
		specs = append(specs, s)
	}

	ctx := c.Request.Context()
	u, err := h.load(ctx)
	if err != nil {
		respondError(c, http.StatusServiceUnavailable, "DATA_UNAVAILABLE", err)
		return
	}
	results, err := h.runner(u).Sweep(ctx, specs)
	if err != nil {
		respondRunError(c, err)
		return
	}

	base := analysis.Summarize(results[0].Realized())
	resp := models.CompareResponse{Baseline: buildRunResponse(results[0])}
	for i, res := range results[1:] {
		h.save(ctx, res)
		test, err := analysis.ZTest(analysis.Summarize(res.Realized()), base, kind, len(res.Realized()), alpha)
		if err != nil {
			respondError(c, http.StatusUnprocessableEntity, "TEST_ERROR", fmt.Errorf("lambda %v: %w", req.Lambdas[i], err))
			return
		}
		resp.Comparison = append(resp.Comparison, models.ComparisonResult{
			Lambda: req.Lambdas[i],
			Run:    buildRunResponse(res),
			Test:   test,
		})
	}
	h.save(ctx, results[0])
	c.JSON(http.StatusOK, resp)
}

// save stores a finished run when persistence is configured. A failed write
// is logged; the run itself already succeeded.
func (h *BacktestHandler) save(ctx context.Context, res *backtest.Result) {
	if h.store == nil {
		return
	}
	if err := h.store.SaveResult(ctx, res, h.now()); err != nil {
		h.logger.ErrorContext(ctx, "store run failed", "run_id", res.RunID, "error", err)
	}
}

func buildRunResponse(res *backtest.Result) models.RunResponse {
	resp := models.RunResponse{
		ID:       res.RunID,
		ConfigID: res.Spec.ID(),
		Status:   "completed",
		Summary:  analysis.Summarize(res.Realized()),
	}
	if n := len(res.Records); n > 0 {
		resp.Window = models.TimeWindow{Start: res.Records[0].RebalanceDate, End: res.Records[n-1].RebalanceDate}
	}
	return resp
}
