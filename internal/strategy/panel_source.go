package strategy

import (
	"context"
	"fmt"
	"time"

	"momentum-backtest/internal/analysis"
	"momentum-backtest/internal/model"
)

// WindowProvider returns the observations dated within the trailing months
// calendar months ending at end (inclusive).
type WindowProvider interface {
	Window(end time.Time, months int) []model.Observation
}

// PanelSource computes splits directly from the daily panel. It owns a stateful
// spread sampler, so one PanelSource serves one run and must be queried in
// date order to reproduce seeded results.
type PanelSource struct {
	Panel      WindowProvider
	Months     int
	Aggregator *analysis.Aggregator
	Splitter   *Splitter
}

func NewPanelSource(panel WindowProvider, months int, seed int64, p SplitParams) (*PanelSource, error) {
	if months != 6 && months != 12 {
		return nil, fmt.Errorf("window must be 6 or 12 months, got %d", months)
	}
	sp, err := NewSplitter(p)
	if err != nil {
		return nil, err
	}
	return &PanelSource{
		Panel:      panel,
		Months:     months,
		Aggregator: &analysis.Aggregator{Sampler: analysis.NewSeededSampler(seed)},
		Splitter:   sp,
	}, nil
}

func (s *PanelSource) Split(ctx context.Context, date time.Time) (model.Split, error) {
	if err := ctx.Err(); err != nil {
		return model.Split{}, err
	}
	obs := s.Panel.Window(date, s.Months)
	periods, err := s.Aggregator.Aggregate(obs)
	if err != nil {
		return model.Split{}, fmt.Errorf("aggregate window ending %s: %w", date.Format(time.DateOnly), err)
	}
	return s.Splitter.Split(date, periods)
}
