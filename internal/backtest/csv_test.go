package backtest

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"momentum-backtest/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func sampleRecords() []model.MonthlyResult {
	return []model.MonthlyResult{
		{Year: 2001, Month: 1, RebalanceDate: dec2000, TotalReturn: 0.045, TotalCost: 0.0125,
			SumSquaredReturn: 0.0003, UnhedgedSumSquaredReturn: 0.0003 / (1.7 * 1.7), HedgeRatio: 1.7, Forecast: 0.0203, LongCount: 2, ShortCount: 1},
		{Year: 2001, Month: 2, RebalanceDate: jan2001, TotalReturn: -0.01, TotalCost: 0.00025,
			SumSquaredReturn: 0.0002, UnhedgedSumSquaredReturn: 0.0002, HedgeRatio: 1, LongCount: 2, ShortCount: 1},
	}
}

func TestResultsCSVRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "results.csv")
	require.NoError(t, WriteResultsCSV(path, sampleRecords()))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(raw), "year,month,rebalance_date,total_return,total_cost,"))

	got, err := ReadResultsCSV(path)
	require.NoError(t, err)
	assert.Equal(t, sampleRecords(), got)
}

func TestReadResultsCSVReportsLine(t *testing.T) {
	path := filepath.Join(t.TempDir(), "results.csv")
	body := strings.Join(resultsHeader, ",") + "\n2001,1,2000-12-31,x,0,0,0,1,0,2,1\n"
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))

	_, err := ReadResultsCSV(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "line 2")
	assert.Contains(t, err.Error(), "total_return")
}

func TestForecastsJSONRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), ForecastsFileName(model.EstimatorRV))
	in := []model.Forecast{
		{Date: jan2001, Estimator: model.EstimatorRV, Value: 0.02},
		{Date: dec2000, Estimator: model.EstimatorRV, Value: 0.03},
	}
	require.NoError(t, WriteForecastsJSON(path, in))

	out, err := ReadForecastsJSON(path, model.EstimatorRV)
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.True(t, out[0].Date.Equal(dec2000))
	assert.Equal(t, 0.03, out[0].Value)
	assert.Equal(t, 0.02, out[1].Value)
}

func TestWriteWorkbook(t *testing.T) {
	res := &Result{
		RunID: "run-1",
		Spec: Spec{Lambda: 1, Composition: "hedged_garch", Weighting: "value",
			Period: model.Period{StartYear: 1969, EndYear: 2000}},
		Records: sampleRecords(),
	}
	path := filepath.Join(t.TempDir(), "results.xlsx")
	require.NoError(t, WriteWorkbook(path, []*Result{res}))

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()

	sheets := f.GetSheetList()
	require.Len(t, sheets, 2)
	assert.Equal(t, "Summary", sheets[0])
	assert.LessOrEqual(t, len(sheets[1]), 31)

	v, err := f.GetCellValue("Summary", "A2")
	require.NoError(t, err)
	assert.Equal(t, res.Spec.ID(), v)

	rows, err := f.GetRows(sheets[1])
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, "2000-12-31", rows[1][2])
}

func TestWriteWorkbookForecastSheet(t *testing.T) {
	res := &Result{
		RunID: "run-2",
		Spec: Spec{Lambda: 0, Composition: "hedged_rv", Weighting: "equal",
			Period: model.Period{StartYear: 2000, EndYear: 2001}},
		Records: sampleRecords(),
		Forecasts: []model.Forecast{
			{Date: dec2000, Estimator: model.EstimatorRV, Value: 0.0203},
			{Date: jan2001, Estimator: model.EstimatorRV, Value: 0.025, Fallback: true},
		},
	}
	path := filepath.Join(t.TempDir(), "results.xlsx")
	require.NoError(t, WriteWorkbook(path, []*Result{res}))

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()

	require.Equal(t, []string{"Summary", sheetName(0, res), "Forecasts"}, f.GetSheetList())
	rows, err := f.GetRows("Forecasts")
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, []string{"run", "date", "estimator", "value", "fallback"}, rows[0])
	assert.Equal(t, "2001-01-31", rows[2][1])
	assert.Equal(t, "RV", rows[2][2])
	assert.Equal(t, "TRUE", rows[2][4])
}
