package store

import (
	"context"
	"testing"
	"time"

	"momentum-backtest/internal/backtest"
	"momentum-backtest/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openMemory(t *testing.T) *Store {
	t.Helper()
	db, err := OpenSQLite(":memory:")
	require.NoError(t, err)
	require.NoError(t, InitSchema(context.Background(), db))
	s := NewStore(db)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func sampleResult(id string, lambda float64) *backtest.Result {
	dec := time.Date(2000, time.December, 31, 0, 0, 0, 0, time.UTC)
	jan := time.Date(2001, time.January, 31, 0, 0, 0, 0, time.UTC)
	return &backtest.Result{
		RunID: id,
		Spec: backtest.Spec{Lambda: lambda, Composition: "hedged_rv", Weighting: "equal",
			Period: model.Period{StartYear: 2000, EndYear: 2001}},
		Records: []model.MonthlyResult{
			{Year: 2001, Month: 1, RebalanceDate: dec, TotalReturn: 0.045, TotalCost: 0.0125, SumSquaredReturn: 0.00144, UnhedgedSumSquaredReturn: 0.001, HedgeRatio: 1.2, Forecast: 0.03, LongCount: 2, ShortCount: 1},
			{Year: 2001, Month: 2, RebalanceDate: jan, TotalReturn: -0.01, TotalCost: 0.001, SumSquaredReturn: 0.00081, UnhedgedSumSquaredReturn: 0.001, HedgeRatio: 0.9, Forecast: 0.04, LongCount: 2, ShortCount: 1},
		},
		Forecasts: []model.Forecast{
			{Date: dec, Estimator: model.EstimatorRV, Value: 0.03},
			{Date: jan, Estimator: model.EstimatorRV, Value: 0.04, Fallback: true},
		},
		TotalReturn: 0.035,
		TotalCost:   0.0135,
	}
}

func TestStoreRoundTrip(t *testing.T) {
	s := openMemory(t)
	ctx := context.Background()
	res := sampleResult("r1", 1)
	at := time.Date(2026, time.January, 2, 3, 4, 5, 0, time.UTC)
	require.NoError(t, s.SaveResult(ctx, res, at))

	run, err := s.Run(ctx, "r1")
	require.NoError(t, err)
	assert.Equal(t, "hedged_rv_equal_2000_2001_lambda_1", run.ConfigID)
	assert.Equal(t, 2, run.Months)
	assert.Equal(t, res.Spec.Period, run.Period)
	assert.True(t, run.CreatedAt.Equal(at))

	records, err := s.Results(ctx, "r1")
	require.NoError(t, err)
	assert.Equal(t, res.Records, records)

	forecasts, err := s.Forecasts(ctx, "r1")
	require.NoError(t, err)
	assert.Equal(t, res.Forecasts, forecasts)
}

func TestStoreListRuns(t *testing.T) {
	s := openMemory(t)
	ctx := context.Background()
	base := time.Date(2026, time.January, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, s.SaveResult(ctx, sampleResult("a", 0), base))
	require.NoError(t, s.SaveResult(ctx, sampleResult("b", 6), base.Add(time.Hour)))

	all, err := s.ListRuns(ctx, "")
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "b", all[0].ID)

	only, err := s.ListRuns(ctx, "hedged_rv_equal_2000_2001_lambda_0")
	require.NoError(t, err)
	require.Len(t, only, 1)
	assert.Equal(t, "a", only[0].ID)
}

func TestStoreDuplicateRunRollsBack(t *testing.T) {
	s := openMemory(t)
	ctx := context.Background()
	res := sampleResult("dup", 1)
	require.NoError(t, s.SaveResult(ctx, res, time.Now()))

	err := s.SaveResult(ctx, res, time.Now())
	require.Error(t, err)

	records, err := s.Results(ctx, "dup")
	require.NoError(t, err)
	assert.Len(t, records, 2)
}

func TestStoreRunNotFound(t *testing.T) {
	s := openMemory(t)
	_, err := s.Run(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrRunNotFound)

	records, err := s.Results(context.Background(), "missing")
	require.NoError(t, err)
	assert.Empty(t, records)
}
