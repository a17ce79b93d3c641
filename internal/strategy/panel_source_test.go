package strategy

import (
	"context"
	"testing"
	"time"

	"momentum-backtest/internal/analysis"
	"momentum-backtest/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixedWindow struct {
	obs  []model.Observation
	ends []time.Time
}

func (f *fixedWindow) Window(end time.Time, months int) []model.Observation {
	f.ends = append(f.ends, end)
	return f.obs
}

func TestPanelSourceSplit(t *testing.T) {
	d := func(m, day int) time.Time { return time.Date(2000, time.Month(m), day, 0, 0, 0, 0, time.UTC) }
	w := &fixedWindow{obs: []model.Observation{
		{SecurityID: "A", Date: d(11, 20), Return: 0.10, Ask: 10.1, Bid: 9.9, MarketCap: 5},
		{SecurityID: "B", Date: d(11, 20), Return: 0.05, Ask: 10.2, Bid: 9.8, MarketCap: 5},
		{SecurityID: "C", Date: d(11, 20), Return: -0.08, Ask: 10.1, Bid: 9.9, MarketCap: 5},
	}}
	src, err := NewPanelSource(w, 12, 1, SplitParams{Lambda: 1, LongFraction: 1, ShortFraction: 1, KeepLong: 1, KeepShort: 1})
	require.NoError(t, err)

	splits, err := ComputeSplits(context.Background(), src, []time.Time{rebalance})
	require.NoError(t, err)
	require.Len(t, splits, 1)
	assert.Equal(t, []string{"A", "B"}, splits[0].Long.IDs())
	assert.Equal(t, []string{"C"}, splits[0].Short.IDs())
	assert.Equal(t, []time.Time{rebalance}, w.ends)
}

func TestPanelSourceEmptyWindow(t *testing.T) {
	src, err := NewPanelSource(&fixedWindow{}, 6, 1, DefaultSplitParams(0))
	require.NoError(t, err)
	_, err = src.Split(context.Background(), rebalance)
	assert.ErrorIs(t, err, analysis.ErrEmptyWindow)
}

func TestNewPanelSourceRejectsWindow(t *testing.T) {
	_, err := NewPanelSource(&fixedWindow{}, 9, 1, DefaultSplitParams(0))
	assert.Error(t, err)
}
