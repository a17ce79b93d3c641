package volatility

import (
	"context"
	"math"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func simulateGARCH(n int, omega, alpha, beta float64, seed int64) []float64 {
	rng := rand.New(rand.NewSource(seed))
	out := make([]float64, n)
	s := omega / (1 - alpha - beta)
	prev := 0.0
	for i := range out {
		s = omega + alpha*prev*prev + beta*s
		out[i] = math.Sqrt(s) * rng.NormFloat64()
		prev = out[i]
	}
	return out
}

func TestGARCHVarianceRecursion(t *testing.T) {
	e := []float64{0.1, -0.2}
	s := garchVariances(e, 0.01, 0.1, 0.8, 0.05)
	assert.InDelta(t, 0.055, s[0], 1e-15)
	assert.InDelta(t, 0.055, s[1], 1e-15)

	p := GARCHParams{Omega: 0.01, Alpha: 0.1, Beta: 0.8, lastResidual: e[1], lastVariance: s[1]}
	assert.InDelta(t, 0.058, p.NextVariance(), 1e-15)
}

func TestGARCHTransformIsStationary(t *testing.T) {
	for _, x := range [][]float64{{0, 0, 0}, {-20, 50, -50}, {3, -50, 50}, {-5, 2.2, -2}} {
		omega, alpha, beta := garchTransform(x)
		assert.Greater(t, omega, 0.0)
		assert.GreaterOrEqual(t, alpha, 0.0)
		assert.GreaterOrEqual(t, beta, 0.0)
		assert.Less(t, alpha+beta, 1.0)
	}
}

func TestGARCHFitSimulated(t *testing.T) {
	e := simulateGARCH(500, 2e-6, 0.08, 0.9, 42)
	g := DefaultGARCH()

	p, err := g.Fit(context.Background(), e)
	require.NoError(t, err)
	assert.Less(t, p.Alpha+p.Beta, 1.0)

	// the optimum beats the starting point
	backcast := SumSquares(e) / float64(len(e))
	start, ok := garchLogLikelihood(e, backcast*0.1, 0.1, 0.8, backcast)
	require.True(t, ok)
	assert.GreaterOrEqual(t, p.LogLikelihood, start)

	vol, err := g.Forecast(context.Background(), Input{History: e})
	require.NoError(t, err)
	// unconditional monthly vol is sqrt(1e-4*21) ~ 0.046
	assert.Greater(t, vol, 0.01)
	assert.Less(t, vol, 0.2)
}

func TestGARCHUsesRecentHistoryOnly(t *testing.T) {
	calm := simulateGARCH(400, 1e-7, 0.05, 0.9, 1)
	wild := simulateGARCH(300, 2e-5, 0.05, 0.9, 2)
	g := DefaultGARCH()
	g.HistoryLimit = 300

	a, err := g.Forecast(context.Background(), Input{History: append(append([]float64{}, calm...), wild...)})
	require.NoError(t, err)
	b, err := g.Forecast(context.Background(), Input{History: wild})
	require.NoError(t, err)
	assert.Equal(t, b, a)
}

func TestGARCHRecoverableFailures(t *testing.T) {
	g := DefaultGARCH()

	_, err := g.Forecast(context.Background(), Input{History: make([]float64, 10)})
	assert.ErrorIs(t, err, ErrInsufficientHistory)
	assert.True(t, Recoverable(err))

	_, err = g.Forecast(context.Background(), Input{History: make([]float64, 100)})
	assert.ErrorIs(t, err, ErrFitFailed)
	assert.True(t, Recoverable(err))

	ctx, cancel := context.WithDeadline(context.Background(), time.Now().Add(-time.Second))
	defer cancel()
	_, err = g.Fit(ctx, simulateGARCH(100, 1e-6, 0.1, 0.8, 3))
	assert.ErrorIs(t, err, ErrFitTimeout)
}

func TestGARCHValidate(t *testing.T) {
	g := DefaultGARCH()
	assert.NoError(t, g.Validate())
	g.MinObservations = 600
	assert.Error(t, g.Validate())
}
