package backtest

import (
	"context"
	"path/filepath"
	"testing"

	"momentum-backtest/internal/data"
	"momentum-backtest/internal/model"
	"momentum-backtest/internal/strategy"
	"momentum-backtest/internal/volatility"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSpecID(t *testing.T) {
	s := Spec{Lambda: 6, Composition: strategy.CompositionHedgedGARCH, Weighting: strategy.WeightingValue,
		Period: model.Period{StartYear: 1986, EndYear: 2002}}
	assert.Equal(t, "hedged_garch_value_1986_2002_lambda_6", s.ID())
	assert.Equal(t, "ret_cost_hedged_garch_value_1986_2002_lambda_6.csv", ResultsFileName(s))
	assert.Equal(t, "vol_predictions_GARCH.json", ForecastsFileName(model.EstimatorGARCH))

	bad := s
	bad.Lambda = 2
	assert.Error(t, bad.Validate())
	bad = s
	bad.Period = model.Period{StartYear: 2002, EndYear: 2002}
	assert.Error(t, bad.Validate())
}

func TestGridOrder(t *testing.T) {
	periods := []model.Period{{StartYear: 1969, EndYear: 1985}, {StartYear: 1986, EndYear: 2002}}
	specs := Grid(strategy.Lambdas, strategy.Compositions, strategy.Weightings, periods)
	require.Len(t, specs, 4*3*2*2)
	assert.Equal(t, "standard_equal_1969_1985_lambda_0", specs[0].ID())
	assert.Equal(t, "standard_equal_1986_2002_lambda_0", specs[1].ID())
	assert.Equal(t, "hedged_garch_value_1986_2002_lambda_12", specs[len(specs)-1].ID())

	seen := map[string]bool{}
	for _, s := range specs {
		assert.False(t, seen[s.ID()], s.ID())
		seen[s.ID()] = true
	}
}

func TestSweepKeepsSpecOrder(t *testing.T) {
	panel := syntheticPanel(t, 20)
	rec := &countingRecorder{}
	r := &Runner{
		Universe: panel,
		Settings: Settings{
			TargetVol: DefaultTargetVol,
			RV:        volatility.DefaultRV(),
			GARCH:     volatility.DefaultGARCH(),
		},
		SplitParams:  strategy.DefaultSplitParams(0),
		WindowMonths: 6,
		Seed:         3,
		Parallelism:  4,
		Recorder:     rec,
	}
	period := model.Period{StartYear: 2000, EndYear: 2001}
	specs := Grid([]float64{0, 1}, []strategy.Composition{strategy.CompositionStandard, strategy.CompositionHedgedRV},
		[]strategy.Weighting{strategy.WeightingEqual, strategy.WeightingValue}, []model.Period{period})

	results, err := r.Sweep(context.Background(), specs)
	require.NoError(t, err)
	require.Len(t, results, len(specs))

	ids := map[string]bool{}
	for i, res := range results {
		assert.Equal(t, specs[i], res.Spec)
		assert.NotEmpty(t, res.RunID)
		assert.False(t, ids[res.RunID])
		ids[res.RunID] = true
		assert.Len(t, res.Records, len(period.RebalanceDates()))
		assert.Len(t, res.Realized(), len(period.RebalanceDates())-1)
	}
	assert.Len(t, rec.finished, len(specs))

	// each configuration runs on its own state, so a lone run reproduces it
	last := specs[len(specs)-1]
	alone, err := r.Run(context.Background(), last)
	require.NoError(t, err)
	assert.Equal(t, results[len(results)-1].Records, alone.Records)
	assert.NotEqual(t, results[len(results)-1].RunID, alone.RunID)
}

func TestSweepStopsOnInvalidSpec(t *testing.T) {
	r := &Runner{Universe: syntheticPanel(t, 10), WindowMonths: 6, SplitParams: strategy.DefaultSplitParams(0)}
	specs := []Spec{{Lambda: 3, Composition: strategy.CompositionStandard, Weighting: strategy.WeightingEqual,
		Period: model.Period{StartYear: 2000, EndYear: 2001}}}
	_, err := r.Sweep(context.Background(), specs)
	assert.Error(t, err)
}

func TestRunnerReadsSplitFiles(t *testing.T) {
	panel := syntheticPanel(t, 20)
	period := model.Period{StartYear: 2000, EndYear: 2001}
	spec := Spec{Lambda: 6, Composition: strategy.CompositionStandard, Weighting: strategy.WeightingValue, Period: period}
	assert.Equal(t, "final_split_2000_2001_lambda_6.json", SplitFileName(period, 6))

	src, err := strategy.NewPanelSource(panel, 6, 9, strategy.DefaultSplitParams(6))
	require.NoError(t, err)
	splits, err := strategy.ComputeSplits(context.Background(), src, period.RebalanceDates())
	require.NoError(t, err)
	dir := t.TempDir()
	require.NoError(t, data.SaveSplits(filepath.Join(dir, SplitFileName(period, 6)), splits))

	base := Runner{Universe: panel, Settings: Settings{}, SplitParams: strategy.DefaultSplitParams(0), WindowMonths: 6, Seed: 9}
	fromPanel, err := base.Run(context.Background(), spec)
	require.NoError(t, err)

	withFiles := base
	withFiles.Sources = SplitFiles(dir)
	fromFile, err := withFiles.Run(context.Background(), spec)
	require.NoError(t, err)
	assert.Equal(t, fromPanel.Records, fromFile.Records)

	missing := spec
	missing.Lambda = 12
	_, err = withFiles.Run(context.Background(), missing)
	assert.Error(t, err)
}
