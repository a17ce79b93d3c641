package analysis

import (
	"math"
	"testing"
	"time"

	"momentum-backtest/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// firstSampler always picks the first eligible day.
type firstSampler struct{ calls []int }

func (s *firstSampler) Pick(n int) int {
	s.calls = append(s.calls, n)
	return 0
}

func day(y, m, d int) time.Time { return time.Date(y, time.Month(m), d, 0, 0, 0, 0, time.UTC) }

func TestCompound(t *testing.T) {
	tests := []struct {
		name string
		in   []float64
		want float64
	}{
		{"empty", nil, 0},
		{"single", []float64{0.05}, 0.05},
		{"three", []float64{0.1, -0.2, 0.3}, 1.1*0.8*1.3 - 1},
		{"near total loss", []float64{-0.99, 0.5}, 0.01*1.5 - 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, Compound(tt.in), 1e-12)
		})
	}
}

func TestAggregateTwoLevelCompounding(t *testing.T) {
	obs := []model.Observation{
		{SecurityID: "B", Date: day(2000, 1, 3), Return: 0.01, Ask: 10.1, Bid: 9.9, MarketCap: 100},
		{SecurityID: "A", Date: day(2000, 1, 20), Return: 0.02, Ask: 20.2, Bid: 19.8, MarketCap: 200},
		{SecurityID: "A", Date: day(2000, 1, 3), Return: -0.01, Ask: 20.1, Bid: 19.9, MarketCap: 100},
		{SecurityID: "A", Date: day(2000, 2, 16), Return: 0.03, Ask: 10.05, Bid: 9.95, MarketCap: 300},
	}
	s := &firstSampler{}
	agg := &Aggregator{Sampler: s}

	got, err := agg.Aggregate(obs)
	require.NoError(t, err)
	require.Len(t, got, 2)

	// first-appearance order
	assert.Equal(t, "B", got[0].SecurityID)
	assert.Equal(t, "A", got[1].SecurityID)

	a := got[1]
	jan := 0.99*1.02 - 1
	feb := 0.03
	assert.InDelta(t, (1+jan)*(1+feb)-1, a.Compound, 1e-12)
	assert.Equal(t, []float64{-0.01, 0.02, 0.03}, a.DailyReturns)
	assert.Equal(t, []time.Time{day(2000, 1, 3), day(2000, 1, 20), day(2000, 2, 16)}, a.DailyDates)
	assert.InDelta(t, (150.0+300.0)/2, a.AvgMarketCap, 1e-9)
	// Jan samples the 20th (only day >= 15), Feb the 16th.
	assert.InDelta(t, (0.02+0.01)/2, a.AvgSpread, 1e-12)

	// B has no day >= 15 in January and falls back to its tail.
	assert.InDelta(t, 0.02, got[0].AvgSpread, 1e-12)
	assert.Equal(t, []int{1, 1, 1}, s.calls)
}

func TestAggregateEmptyWindow(t *testing.T) {
	agg := &Aggregator{Sampler: NewSeededSampler(1)}
	_, err := agg.Aggregate(nil)
	assert.ErrorIs(t, err, ErrEmptyWindow)
}

func TestAggregateSkipsUnusableQuotes(t *testing.T) {
	obs := []model.Observation{
		{SecurityID: "A", Date: day(2000, 1, 20), Return: 0.01, MarketCap: 1},
	}
	got, err := (&Aggregator{Sampler: &firstSampler{}}).Aggregate(obs)
	require.NoError(t, err)
	assert.Equal(t, 0.0, got[0].AvgSpread)
	assert.False(t, math.IsNaN(got[0].AvgSpread))
}

func TestSeededSamplerIsReproducible(t *testing.T) {
	a, b := NewSeededSampler(1), NewSeededSampler(1)
	for i := 0; i < 50; i++ {
		n := i%15 + 1
		x := a.Pick(n)
		assert.Equal(t, x, b.Pick(n))
		assert.True(t, x >= 0 && x < n)
	}
}

func TestRankIsStable(t *testing.T) {
	type item struct {
		id    string
		score float64
	}
	in := []item{{"a", 1}, {"b", 2}, {"c", 1}, {"d", 2}}
	score := func(i item) float64 { return i.score }

	desc := RankDescending(in, score)
	assert.Equal(t, []item{{"b", 2}, {"d", 2}, {"a", 1}, {"c", 1}}, desc)

	asc := RankAscending(in, score)
	assert.Equal(t, []item{{"a", 1}, {"c", 1}, {"b", 2}, {"d", 2}}, asc)

	// input untouched
	assert.Equal(t, "a", in[0].id)
}
