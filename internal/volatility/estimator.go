package volatility

import (
	"context"
	"errors"
	"time"

	"momentum-backtest/internal/model"
)

var (
	// ErrFitFailed covers non-convergence and degenerate variance.
	ErrFitFailed = errors.New("volatility fit failed")
	// ErrInsufficientHistory is returned when the history is too short to fit.
	ErrInsufficientHistory = errors.New("insufficient return history")
	// ErrFitTimeout is returned when a fit outlives its per-date deadline.
	ErrFitTimeout = errors.New("volatility fit timed out")
)

// Input is everything an estimator may look at on a rebalance date.
type Input struct {
	Date time.Time

	// Unhedged legs and weights for the date.
	Long         model.Leg
	Short        model.Leg
	LongWeights  model.WeightSet
	ShortWeights model.WeightSet

	// History holds realized daily strategy returns from all earlier holding
	// months, oldest first. Only the GARCH estimator reads it.
	History []float64
}

// Estimator produces a monthly-horizon volatility forecast.
type Estimator interface {
	Name() model.Estimator
	Forecast(ctx context.Context, in Input) (float64, error)
}

// Recoverable reports whether err should trigger the fallback chain rather
// than stop the run.
func Recoverable(err error) bool {
	return errors.Is(err, ErrFitFailed) || errors.Is(err, ErrInsufficientHistory) || errors.Is(err, ErrFitTimeout)
}
