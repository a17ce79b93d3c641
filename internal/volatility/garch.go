package volatility

import (
	"context"
	"fmt"
	"math"
	"time"

	"momentum-backtest/internal/model"

	"gonum.org/v1/gonum/optimize"
)

// maxPersistence keeps alpha+beta strictly below one.
const maxPersistence = 0.9999

// failedFit is returned by the objective where the likelihood is undefined.
const failedFit = 1e300

// GARCH fits a zero-mean GARCH(1,1) with normal innovations by maximum
// likelihood and forecasts next-day variance. The daily forecast is scaled to
// a monthly volatility by sqrt(HorizonDays).
type GARCH struct {
	// HistoryLimit caps the fit to the most recent observations.
	HistoryLimit int
	// MinObservations is the shortest history the estimator will fit.
	MinObservations int
	HorizonDays     int
	// MaxIterations bounds the optimizer's major iterations.
	MaxIterations int
}

func DefaultGARCH() *GARCH {
	return &GARCH{HistoryLimit: 500, MinObservations: 63, HorizonDays: 21, MaxIterations: 2000}
}

func (g *GARCH) Name() model.Estimator { return model.EstimatorGARCH }

func (g *GARCH) Validate() error {
	if g.HistoryLimit <= 0 || g.MinObservations <= 1 || g.HorizonDays <= 0 || g.MaxIterations <= 0 {
		return fmt.Errorf("garch: invalid settings %+v", *g)
	}
	if g.MinObservations > g.HistoryLimit {
		return fmt.Errorf("garch: min_observations %d exceeds history_limit %d", g.MinObservations, g.HistoryLimit)
	}
	return nil
}

// GARCHParams is a fitted model.
type GARCHParams struct {
	Omega float64
	Alpha float64
	Beta  float64

	LogLikelihood float64

	// lastResidual and lastVariance are e_T and sigma^2_T.
	lastResidual float64
	lastVariance float64
}

// NextVariance is the one-step-ahead conditional variance.
func (p GARCHParams) NextVariance() float64 {
	return p.Omega + p.Alpha*p.lastResidual*p.lastResidual + p.Beta*p.lastVariance
}

func (g *GARCH) Forecast(ctx context.Context, in Input) (float64, error) {
	if err := g.Validate(); err != nil {
		return 0, err
	}
	hist := in.History
	if len(hist) > g.HistoryLimit {
		hist = hist[len(hist)-g.HistoryLimit:]
	}
	if len(hist) < g.MinObservations {
		return 0, fmt.Errorf("garch: %d observations, need %d: %w", len(hist), g.MinObservations, ErrInsufficientHistory)
	}
	p, err := g.Fit(ctx, hist)
	if err != nil {
		return 0, err
	}
	return math.Sqrt(p.NextVariance()) * math.Sqrt(float64(g.HorizonDays)), nil
}

// Fit estimates omega, alpha and beta with Nelder-Mead on an unconstrained
// reparameterization: omega = exp(x0), alpha+beta = maxPersistence*logistic(x1),
// alpha = (alpha+beta)*logistic(x2).
func (g *GARCH) Fit(ctx context.Context, e []float64) (GARCHParams, error) {
	if err := ctx.Err(); err != nil {
		return GARCHParams{}, fmt.Errorf("garch: %v: %w", err, ErrFitTimeout)
	}
	n := len(e)
	if n < 2 {
		return GARCHParams{}, fmt.Errorf("garch: %d observations: %w", n, ErrInsufficientHistory)
	}
	backcast := SumSquares(e) / float64(n)
	if !(backcast > 0) || math.IsInf(backcast, 0) {
		return GARCHParams{}, fmt.Errorf("garch: degenerate sample variance %v: %w", backcast, ErrFitFailed)
	}

	objective := func(x []float64) float64 {
		omega, alpha, beta := garchTransform(x)
		ll, ok := garchLogLikelihood(e, omega, alpha, beta, backcast)
		if !ok {
			return failedFit
		}
		return -ll
	}

	x0 := []float64{math.Log(backcast * 0.1), logit(0.9 / maxPersistence), logit(0.1 / 0.9)}
	settings := &optimize.Settings{
		MajorIterations: g.MaxIterations,
		Converger: &optimize.FunctionConverge{
			Absolute:   1e-10,
			Relative:   1e-10,
			Iterations: 200,
		},
	}
	if dl, ok := ctx.Deadline(); ok {
		settings.Runtime = time.Until(dl)
	}

	res, err := optimize.Minimize(optimize.Problem{Func: objective}, x0, settings, &optimize.NelderMead{})
	if ctxErr := ctx.Err(); ctxErr != nil {
		return GARCHParams{}, fmt.Errorf("garch: %v: %w", ctxErr, ErrFitTimeout)
	}
	if err != nil {
		return GARCHParams{}, fmt.Errorf("garch: %v: %w", err, ErrFitFailed)
	}
	if res.F >= failedFit || math.IsNaN(res.F) {
		return GARCHParams{}, fmt.Errorf("garch: likelihood undefined at optimum: %w", ErrFitFailed)
	}

	omega, alpha, beta := garchTransform(res.X)
	variances := garchVariances(e, omega, alpha, beta, backcast)
	p := GARCHParams{
		Omega:         omega,
		Alpha:         alpha,
		Beta:          beta,
		LogLikelihood: -res.F,
		lastResidual:  e[n-1],
		lastVariance:  variances[n-1],
	}
	if v := p.NextVariance(); !(v > 0) || math.IsInf(v, 0) {
		return GARCHParams{}, fmt.Errorf("garch: forecast variance %v: %w", v, ErrFitFailed)
	}
	return p, nil
}

func garchTransform(x []float64) (omega, alpha, beta float64) {
	persistence := maxPersistence * logistic(x[1])
	alpha = persistence * logistic(x[2])
	return math.Exp(x[0]), alpha, persistence - alpha
}

// garchVariances runs the conditional variance recursion. The pre-sample
// residual and variance are both the backcast.
func garchVariances(e []float64, omega, alpha, beta, backcast float64) []float64 {
	s := make([]float64, len(e))
	prevE2, prevS := backcast, backcast
	for t := range e {
		s[t] = omega + alpha*prevE2 + beta*prevS
		prevE2, prevS = e[t]*e[t], s[t]
	}
	return s
}

func garchLogLikelihood(e []float64, omega, alpha, beta, backcast float64) (float64, bool) {
	if math.IsNaN(omega) || math.IsInf(omega, 0) || omega <= 0 {
		return 0, false
	}
	ll := 0.0
	for t, s := range garchVariances(e, omega, alpha, beta, backcast) {
		if !(s > 0) || math.IsInf(s, 0) {
			return 0, false
		}
		ll -= 0.5 * (math.Log(2*math.Pi) + math.Log(s) + e[t]*e[t]/s)
	}
	if math.IsNaN(ll) || math.IsInf(ll, 0) {
		return 0, false
	}
	return ll, true
}

func logistic(x float64) float64 { return 1 / (1 + math.Exp(-x)) }

func logit(p float64) float64 { return math.Log(p / (1 - p)) }
