package data

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"time"

	"momentum-backtest/internal/model"
)

// SplitDateLayout keys the split artifact.
const SplitDateLayout = "2006-01-02"

// SaveSplits writes {date: {long_split, short_split}}. Keys sort by date.
func SaveSplits(path string, splits []model.Split) error {
	out := make(map[string]model.Split, len(splits))
	for _, s := range splits {
		out[s.Date.Format(SplitDateLayout)] = s
	}
	raw, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, raw, 0o644)
}

// LoadSplits reads a split artifact, oldest date first.
func LoadSplits(path string) ([]model.Split, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var byDate map[string]model.Split
	if err := json.Unmarshal(raw, &byDate); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	out := make([]model.Split, 0, len(byDate))
	for k, s := range byDate {
		d, err := time.Parse(SplitDateLayout, k)
		if err != nil {
			return nil, fmt.Errorf("%s: split key %q: %w", path, k, err)
		}
		s.Date = d
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out, nil
}

// SplitFile serves precomputed splits by date.
type SplitFile struct {
	byDate map[string]model.Split
	dates  []time.Time
}

func NewSplitFile(splits []model.Split) *SplitFile {
	f := &SplitFile{byDate: make(map[string]model.Split, len(splits))}
	for _, s := range splits {
		f.byDate[s.Date.Format(SplitDateLayout)] = s
		f.dates = append(f.dates, s.Date)
	}
	return f
}

func OpenSplitFile(path string) (*SplitFile, error) {
	splits, err := LoadSplits(path)
	if err != nil {
		return nil, err
	}
	return NewSplitFile(splits), nil
}

// Dates lists the stored rebalance dates in file order.
func (f *SplitFile) Dates() []time.Time { return append([]time.Time(nil), f.dates...) }

func (f *SplitFile) Split(ctx context.Context, date time.Time) (model.Split, error) {
	if err := ctx.Err(); err != nil {
		return model.Split{}, err
	}
	s, ok := f.byDate[date.Format(SplitDateLayout)]
	if !ok {
		return model.Split{}, fmt.Errorf("no split stored for %s", date.Format(SplitDateLayout))
	}
	return s, nil
}
