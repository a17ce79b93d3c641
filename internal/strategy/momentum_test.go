package strategy

import (
	"fmt"
	"math/rand"
	"testing"
	"time"

	"momentum-backtest/internal/analysis"
	"momentum-backtest/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var rebalance = time.Date(2000, 12, 31, 0, 0, 0, 0, time.UTC)

func randomUniverse(n int, seed int64) []model.SecurityPeriod {
	rng := rand.New(rand.NewSource(seed))
	out := make([]model.SecurityPeriod, n)
	for i := range out {
		out[i] = model.SecurityPeriod{
			SecurityID:   fmt.Sprintf("S%03d", i),
			Compound:     rng.NormFloat64() * 0.3,
			AvgSpread:    rng.Float64() * 0.05,
			AvgMarketCap: 1e6 + rng.Float64()*1e9,
		}
	}
	return out
}

func TestSplitThreeSecurityScenario(t *testing.T) {
	periods := []model.SecurityPeriod{
		{SecurityID: "A", Compound: 0.10, AvgSpread: 0.01, AvgMarketCap: 1},
		{SecurityID: "B", Compound: 0.05, AvgSpread: 0.02, AvgMarketCap: 1},
		{SecurityID: "C", Compound: -0.08, AvgSpread: 0.01, AvgMarketCap: 1},
	}
	sp, err := NewSplitter(SplitParams{Lambda: 1, LongFraction: 1, ShortFraction: 1, KeepLong: 1, KeepShort: 1})
	require.NoError(t, err)

	split, err := sp.Split(rebalance, periods)
	require.NoError(t, err)

	assert.Equal(t, []string{"A", "B"}, split.Long.IDs())
	assert.Equal(t, []string{"C"}, split.Short.IDs())
	assert.InDelta(t, 0.09, split.Long.Members[0].CostAdjustedReturn, 1e-12)
	assert.InDelta(t, 0.03, split.Long.Members[1].CostAdjustedReturn, 1e-12)
	assert.InDelta(t, -0.07, split.Short.Members[0].CostAdjustedReturn, 1e-12)

	long, short, err := WeightingEqual.Pair(split, 1)
	require.NoError(t, err)
	assert.InDelta(t, 0.5, long["A"], 1e-12)
	assert.InDelta(t, 0.5, long["B"], 1e-12)
	assert.InDelta(t, -1.0, short["C"], 1e-12)
}

func TestSplitZeroLambdaIsSingleStageMomentum(t *testing.T) {
	for seed := int64(1); seed <= 5; seed++ {
		periods := randomUniverse(57, seed)
		sp, err := NewSplitter(DefaultSplitParams(0))
		require.NoError(t, err)
		split, err := sp.Split(rebalance, periods)
		require.NoError(t, err)

		// floor(floor(57*0.2)*0.5) = 5
		compound := func(p model.SecurityPeriod) float64 { return p.Compound }
		desc := analysis.RankDescending(periods, compound)
		asc := analysis.RankAscending(periods, compound)
		wantLong, wantShort := []string{}, []string{}
		for i := 0; i < 5; i++ {
			wantLong = append(wantLong, desc[i].SecurityID)
			wantShort = append(wantShort, asc[i].SecurityID)
		}
		assert.Equal(t, wantLong, split.Long.IDs(), "seed %d", seed)
		assert.Equal(t, wantShort, split.Short.IDs(), "seed %d", seed)
	}
}

func TestSplitCostChangesMembership(t *testing.T) {
	periods := []model.SecurityPeriod{
		{SecurityID: "cheap", Compound: 0.20, AvgSpread: 0.001},
		{SecurityID: "costly", Compound: 0.25, AvgSpread: 0.10},
		{SecurityID: "mid1", Compound: 0.0},
		{SecurityID: "mid2", Compound: 0.0},
		{SecurityID: "mid3", Compound: 0.0},
		{SecurityID: "mid4", Compound: 0.0},
		{SecurityID: "mid5", Compound: 0.0},
		{SecurityID: "mid6", Compound: 0.0},
		{SecurityID: "loser", Compound: -0.3, AvgSpread: 0.001},
		{SecurityID: "costlyloser", Compound: -0.35, AvgSpread: 0.10},
	}
	sp, err := NewSplitter(DefaultSplitParams(0))
	require.NoError(t, err)
	split, err := sp.Split(rebalance, periods)
	require.NoError(t, err)
	assert.Equal(t, []string{"costly"}, split.Long.IDs())
	assert.Equal(t, []string{"costlyloser"}, split.Short.IDs())

	sp.Params.Lambda = 1
	split, err = sp.Split(rebalance, periods)
	require.NoError(t, err)
	assert.Equal(t, []string{"cheap"}, split.Long.IDs())
	assert.Equal(t, []string{"loser"}, split.Short.IDs())
}

func TestCostNeverHelpsScore(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	for i := 0; i < 1000; i++ {
		r := rng.NormFloat64()
		s := rng.Float64() * 0.1
		l := Lambdas[rng.Intn(len(Lambdas))]
		assert.LessOrEqual(t, LongScore(r, s, l), r)
		// shorts rank lowest first, so a higher score is worse
		assert.GreaterOrEqual(t, ShortScore(r, s, l), r)
	}
}

func TestSplitLegsAreDisjoint(t *testing.T) {
	for _, n := range []int{1, 2, 3, 4, 7} {
		periods := randomUniverse(n, int64(n))
		for i := range periods {
			periods[i].Compound = 0 // all tied
		}
		sp, err := NewSplitter(SplitParams{Lambda: 0, LongFraction: 0.8, ShortFraction: 0.8, KeepLong: 1, KeepShort: 1})
		require.NoError(t, err)
		split, err := sp.Split(rebalance, periods)
		require.NoError(t, err)
		assert.LessOrEqual(t, split.Long.Len()+split.Short.Len(), n)
		for _, id := range split.Long.IDs() {
			assert.False(t, split.Short.Contains(id), "n=%d id=%s", n, id)
		}
	}
}

func TestSplitSmallUniverseLeavesEmptyLeg(t *testing.T) {
	sp, err := NewSplitter(DefaultSplitParams(1))
	require.NoError(t, err)
	split, err := sp.Split(rebalance, randomUniverse(4, 1))
	require.NoError(t, err)
	assert.Equal(t, 0, split.Long.Len())

	_, _, err = WeightingEqual.Pair(split, 1)
	assert.ErrorIs(t, err, ErrInsufficientUniverse)
}

func TestSplitEmptyUniverse(t *testing.T) {
	sp, err := NewSplitter(DefaultSplitParams(1))
	require.NoError(t, err)
	_, err = sp.Split(rebalance, nil)
	assert.ErrorIs(t, err, analysis.ErrEmptyWindow)
}

func TestSplitParamsValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*SplitParams)
		wantErr bool
	}{
		{"defaults", func(*SplitParams) {}, false},
		{"negative lambda", func(p *SplitParams) { p.Lambda = -1 }, true},
		{"zero fraction", func(p *SplitParams) { p.LongFraction = 0 }, true},
		{"keep above one", func(p *SplitParams) { p.KeepShort = 1.5 }, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := DefaultSplitParams(6)
			tt.mutate(&p)
			err := p.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestParseEnums(t *testing.T) {
	c, err := ParseComposition("hedged_garch")
	require.NoError(t, err)
	assert.True(t, c.Hedged())
	assert.Equal(t, model.EstimatorGARCH, c.Estimator())
	assert.False(t, CompositionStandard.Hedged())

	_, err = ParseComposition("hedged")
	assert.Error(t, err)

	w, err := ParseWeighting("value")
	require.NoError(t, err)
	assert.Equal(t, WeightingValue, w)
	_, err = ParseWeighting("cap")
	assert.Error(t, err)

	assert.True(t, ValidLambda(6))
	assert.False(t, ValidLambda(2))
}
