package backtest

import (
	"fmt"

	"momentum-backtest/internal/analysis"

	"github.com/xuri/excelize/v2"
)

// WriteWorkbook exports a set of runs to one workbook: a summary sheet with one
// row per run, then a sheet per run with its monthly records. Hedged runs also
// land on a shared Forecasts sheet.
func WriteWorkbook(path string, results []*Result) error {
	f := excelize.NewFile()
	defer f.Close()

	const summary = "Summary"
	if err := f.SetSheetName("Sheet1", summary); err != nil {
		return err
	}
	header := []any{"run", "run_id", "months", "total_return", "total_cost",
		"monthly_gross_return", "monthly_gross_return_std", "monthly_net_return", "monthly_net_return_std"}
	if err := f.SetSheetRow(summary, "A1", &header); err != nil {
		return err
	}

	for i, res := range results {
		s := analysis.Summarize(res.Realized())
		row := []any{res.Spec.ID(), res.RunID, s.Months, s.TotalReturn, s.TotalCost,
			s.MonthlyGrossReturn, s.MonthlyGrossReturnStd, s.MonthlyNetReturn, s.MonthlyNetReturnStd}
		if err := f.SetSheetRow(summary, fmt.Sprintf("A%d", i+2), &row); err != nil {
			return err
		}

		sheet := sheetName(i, res)
		if _, err := f.NewSheet(sheet); err != nil {
			return err
		}
		cols := make([]any, len(resultsHeader))
		for j, h := range resultsHeader {
			cols[j] = h
		}
		if err := f.SetSheetRow(sheet, "A1", &cols); err != nil {
			return err
		}
		for j, r := range res.Records {
			vals := []any{r.Year, r.Month, fmtTime(r.RebalanceDate), r.TotalReturn, r.TotalCost,
				r.SumSquaredReturn, r.UnhedgedSumSquaredReturn, r.HedgeRatio, r.Forecast, r.LongCount, r.ShortCount}
			if err := f.SetSheetRow(sheet, fmt.Sprintf("A%d", j+2), &vals); err != nil {
				return err
			}
		}
	}
	if err := writeForecastSheet(f, results); err != nil {
		return err
	}
	return f.SaveAs(path)
}

func writeForecastSheet(f *excelize.File, results []*Result) error {
	const sheet = "Forecasts"
	row := 1
	for _, res := range results {
		for _, fc := range res.Forecasts {
			if row == 1 {
				if _, err := f.NewSheet(sheet); err != nil {
					return err
				}
				header := []any{"run", "date", "estimator", "value", "fallback"}
				if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
					return err
				}
			}
			row++
			vals := []any{res.Spec.ID(), fmtTime(fc.Date), string(fc.Estimator), fc.Value, fc.Fallback}
			if err := f.SetSheetRow(sheet, fmt.Sprintf("A%d", row), &vals); err != nil {
				return err
			}
		}
	}
	return nil
}

// sheetName fits Excel's 31 character limit.
func sheetName(i int, res *Result) string {
	name := fmt.Sprintf("%d_%s", i+1, res.Spec.ID())
	if len(name) > 31 {
		name = name[:31]
	}
	return name
}
