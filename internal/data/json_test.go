package data

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"momentum-backtest/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleSplits() []model.Split {
	mk := func(d time.Time, long, short []model.LegMember) model.Split {
		return model.Split{
			Date:  d,
			Long:  model.Leg{Side: model.SideLong, Members: long},
			Short: model.Leg{Side: model.SideShort, Members: short},
		}
	}
	return []model.Split{
		mk(date(2000, 2, 29),
			[]model.LegMember{{SecurityID: "Z", CostAdjustedReturn: 0.1 / 3, DailyReturns: []float64{0.1 / 7, 1e-17}, AvgMarketCap: 1e9 / 3, AvgQuotedSpread: 0.01 / 3}},
			[]model.LegMember{{SecurityID: "Y", CostAdjustedReturn: -0.2, AvgMarketCap: 2, AvgQuotedSpread: 0.02}}),
		mk(date(2000, 1, 31),
			[]model.LegMember{
				{SecurityID: "B", CostAdjustedReturn: 0.3, AvgMarketCap: 5, AvgQuotedSpread: 0.001},
				{SecurityID: "A", CostAdjustedReturn: 0.2, AvgMarketCap: 7, AvgQuotedSpread: 0.002},
			},
			[]model.LegMember{{SecurityID: "C", CostAdjustedReturn: -0.1, AvgMarketCap: 1, AvgQuotedSpread: 0.03}}),
	}
}

func TestSplitsRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "final_split.json")
	in := sampleSplits()
	require.NoError(t, SaveSplits(path, in))

	out, err := LoadSplits(path)
	require.NoError(t, err)
	require.Len(t, out, 2)

	// sorted by date
	assert.Equal(t, date(2000, 1, 31), out[0].Date)
	assert.Equal(t, in[1].Long.Members, out[0].Long.Members)
	assert.Equal(t, []string{"B", "A"}, out[0].Long.IDs())
	assert.Equal(t, in[0].Long.Members, out[1].Long.Members)
	assert.Equal(t, in[0].Short.Members, out[1].Short.Members)
	assert.Equal(t, model.SideShort, out[1].Short.Side)
}

func TestSplitFile(t *testing.T) {
	f := NewSplitFile(sampleSplits())
	s, err := f.Split(context.Background(), date(2000, 1, 31))
	require.NoError(t, err)
	assert.Equal(t, []string{"C"}, s.Short.IDs())

	_, err = f.Split(context.Background(), date(2000, 3, 31))
	assert.Error(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = f.Split(ctx, date(2000, 1, 31))
	assert.ErrorIs(t, err, context.Canceled)
}
