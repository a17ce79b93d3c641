package handlers

import (
	"fmt"
	"net/http"

	"momentum-backtest/internal/analysis"
	"momentum-backtest/internal/api/models"
	"momentum-backtest/internal/model"
	"momentum-backtest/internal/store"

	"github.com/gin-gonic/gin"
)

// RunsHandler serves stored runs.
type RunsHandler struct {
	store *store.Store
}

func NewRunsHandler(st *store.Store) *RunsHandler {
	return &RunsHandler{store: st}
}

// ListRuns handles GET /api/v1/runs
func (h *RunsHandler) ListRuns(c *gin.Context) {
	var q models.RunsQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		respondError(c, http.StatusBadRequest, "INVALID_REQUEST", err)
		return
	}
	runs, err := h.store.ListRuns(c.Request.Context(), q.ConfigID)
	if err != nil {
		respondRunError(c, err)
		return
	}
	if runs == nil {
		runs = []store.Run{}
	}
	c.JSON(http.StatusOK, gin.H{"runs": runs})
}

// GetRun handles GET /api/v1/runs/:id
func (h *RunsHandler) GetRun(c *gin.Context) {
	run, err := h.store.Run(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondRunError(c, err)
		return
	}
	c.JSON(http.StatusOK, run)
}

// GetResults handles GET /api/v1/runs/:id/results
func (h *RunsHandler) GetResults(c *gin.Context) {
	ctx := c.Request.Context()
	id := c.Param("id")
	run, err := h.store.Run(ctx, id)
	if err != nil {
		respondRunError(c, err)
		return
	}
	records, err := h.store.Results(ctx, id)
	if err != nil {
		respondRunError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"run":     run,
		"summary": analysis.Summarize(realized(run, records)),
		"records": records,
	})
}

// GetForecasts handles GET /api/v1/runs/:id/forecasts
func (h *RunsHandler) GetForecasts(c *gin.Context) {
	ctx := c.Request.Context()
	id := c.Param("id")
	if _, err := h.store.Run(ctx, id); err != nil {
		respondRunError(c, err)
		return
	}
	forecasts, err := h.store.Forecasts(ctx, id)
	if err != nil {
		respondRunError(c, err)
		return
	}
	if forecasts == nil {
		forecasts = []model.Forecast{}
	}
	c.JSON(http.StatusOK, gin.H{"forecasts": forecasts})
}

// Significance handles POST /api/v1/significance
func (h *RunsHandler) Significance(c *gin.Context) {
	var req models.SignificanceRequest
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

	ctx := c.Request.Context()
	var sums [2]analysis.Summary
	for i, id := range []string{req.RunA, req.RunB} {
		run, err := h.store.Run(ctx, id)
		if err != nil {
			respondRunError(c, err)
			return
		}
		records, err := h.store.Results(ctx, id)
		if err != nil {
			respondRunError(c, err)
			return
		}
		sums[i] = analysis.Summarize(realized(run, records))
	}

	n := req.Periods
	if n == 0 {
		n = min(sums[0].Months, sums[1].Months)
	}
	test, err := analysis.ZTest(sums[0], sums[1], kind, n, alpha)
	if err != nil {
		respondError(c, http.StatusUnprocessableEntity, "TEST_ERROR", fmt.Errorf("significance: %w", err))
		return
	}
	c.JSON(http.StatusOK, models.SignificanceResponse{RunA: sums[0], RunB: sums[1], Kind: string(kind), Test: test})
}

func realized(run store.Run, records []model.MonthlyResult) []model.MonthlyResult {
	out := make([]model.MonthlyResult, 0, len(records))
	for _, r := range records {
		if run.Period.Realized(r) {
			out = append(out, r)
		}
	}
	return out
}
