package backtest

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"time"

	"momentum-backtest/internal/model"
)

var resultsHeader = []string{
	"year",
	"month",
	"rebalance_date",
	"total_return",
	"total_cost",
	"sum_squared_return",
	"unhedged_sum_squared_return",
	"hedge_ratio",
	"forecast",
	"long_count",
	"short_count",
}

// ResultsFileName is the per-configuration results file name.
func ResultsFileName(s Spec) string {
	return fmt.Sprintf("ret_cost_%s_%s_%s_lambda_%s.csv", s.Composition, s.Weighting, s.Period, FormatLambda(s.Lambda))
}

// ForecastsFileName is the per-estimator forecast series file name.
func ForecastsFileName(est model.Estimator) string {
	return fmt.Sprintf("vol_predictions_%s.json", est)
}

func WriteResultsCSV(path string, records []model.MonthlyResult) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	defer w.Flush()

	if err := w.Write(resultsHeader); err != nil {
		return err
	}
	for _, r := range records {
		row := []string{
			strconv.Itoa(r.Year),
			strconv.Itoa(r.Month),
			fmtTime(r.RebalanceDate),
			fmtFloat(r.TotalReturn),
			fmtFloat(r.TotalCost),
			fmtFloat(r.SumSquaredReturn),
			fmtFloat(r.UnhedgedSumSquaredReturn),
			fmtFloat(r.HedgeRatio),
			fmtFloat(r.Forecast),
			strconv.Itoa(r.LongCount),
			strconv.Itoa(r.ShortCount),
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

// ReadResultsCSV reads a file written by WriteResultsCSV.
func ReadResultsCSV(path string) ([]model.MonthlyResult, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	header, err := r.Read()
	if err != nil {
		return nil, fmt.Errorf("%s: header: %w", path, err)
	}
	if len(header) != len(resultsHeader) {
		return nil, fmt.Errorf("%s: expected %d columns, got %d", path, len(resultsHeader), len(header))
	}

	var out []model.MonthlyResult
	for line := 2; ; line++ {
		row, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%s line %d: %w", path, line, err)
		}
		rec, err := parseResultRow(row)
		if err != nil {
			return nil, fmt.Errorf("%s line %d: %w", path, line, err)
		}
		out = append(out, rec)
	}
	return out, nil
}

func parseResultRow(row []string) (model.MonthlyResult, error) {
	var rec model.MonthlyResult
	var err error
	ints := []*int{&rec.Year, &rec.Month}
	for i, dst := range ints {
		if *dst, err = strconv.Atoi(row[i]); err != nil {
			return rec, fmt.Errorf("%s: %w", resultsHeader[i], err)
		}
	}
	if row[2] != "" {
		if rec.RebalanceDate, err = time.Parse(time.DateOnly, row[2]); err != nil {
			return rec, fmt.Errorf("rebalance_date: %w", err)
		}
	}
	floats := []*float64{&rec.TotalReturn, &rec.TotalCost, &rec.SumSquaredReturn, &rec.UnhedgedSumSquaredReturn, &rec.HedgeRatio, &rec.Forecast}
	for i, dst := range floats {
		if *dst, err = strconv.ParseFloat(row[3+i], 64); err != nil {
			return rec, fmt.Errorf("%s: %w", resultsHeader[3+i], err)
		}
	}
	if rec.LongCount, err = strconv.Atoi(row[9]); err != nil {
		return rec, fmt.Errorf("long_count: %w", err)
	}
	if rec.ShortCount, err = strconv.Atoi(row[10]); err != nil {
		return rec, fmt.Errorf("short_count: %w", err)
	}
	return rec, nil
}

// WriteForecastsJSON writes {rebalance_date: forecast}. Keys sort by date.
func WriteForecastsJSON(path string, forecasts []model.Forecast) error {
	out := make(map[string]float64, len(forecasts))
	for _, f := range forecasts {
		out[f.Date.Format(time.DateOnly)] = f.Value
	}
	raw, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, raw, 0o644)
}

// ReadForecastsJSON reads a file written by WriteForecastsJSON, oldest first.
func ReadForecastsJSON(path string, est model.Estimator) ([]model.Forecast, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var byDate map[string]float64
	if err := json.Unmarshal(raw, &byDate); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	out := make([]model.Forecast, 0, len(byDate))
	for k, v := range byDate {
		d, err := time.Parse(time.DateOnly, k)
		if err != nil {
			return nil, fmt.Errorf("%s: key %q: %w", path, k, err)
		}
		out = append(out, model.Forecast{Date: d, Estimator: est, Value: v})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out, nil
}

func fmtTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(time.DateOnly)
}

// fmtFloat keeps full precision so a reloaded file reproduces the run.
func fmtFloat(x float64) string {
	return strconv.FormatFloat(x, 'g', -1, 64)
}
