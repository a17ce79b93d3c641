package volatility

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"momentum-backtest/internal/model"
)

// FitWithTimeout runs est on its own goroutine and waits for the result or
// the deadline, whichever comes first. A timed out fit keeps running until its
// own context check notices; its result is discarded.
func FitWithTimeout(ctx context.Context, timeout time.Duration, est Estimator, in Input) (float64, error) {
	if timeout <= 0 {
		return est.Forecast(ctx, in)
	}
	fitCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	type result struct {
		v   float64
		err error
	}
	ch := make(chan result, 1)
	go func() {
		v, err := est.Forecast(fitCtx, in)
		ch <- result{v: v, err: err}
	}()

	select {
	case r := <-ch:
		if r.err != nil && errors.Is(r.err, context.DeadlineExceeded) && ctx.Err() == nil {
			return 0, fmt.Errorf("%s: %v: %w", est.Name(), r.err, ErrFitTimeout)
		}
		return r.v, r.err
	case <-fitCtx.Done():
		if err := ctx.Err(); err != nil {
			return 0, err
		}
		return 0, fmt.Errorf("%s after %s: %w", est.Name(), timeout, ErrFitTimeout)
	}
}

// Guard wraps a primary estimator with a per-date timeout and a fallback
// chain: the previous forecast if there is one, otherwise Backup.
type Guard struct {
	Primary Estimator
	Backup  Estimator
	Timeout time.Duration
	Logger  *slog.Logger

	// OnFallback is called once per fallback with the primary's error.
	OnFallback func(est model.Estimator, reason error)
}

// Forecast returns the primary forecast, or a fallback marked as such.
// previous is the last forecast used by the run, 0 if none.
func (g *Guard) Forecast(ctx context.Context, in Input, previous float64) (model.Forecast, error) {
	name := g.Primary.Name()
	v, err := FitWithTimeout(ctx, g.Timeout, g.Primary, in)
	if err == nil {
		return model.Forecast{Date: in.Date, Estimator: name, Value: v}, nil
	}
	if !Recoverable(err) {
		return model.Forecast{}, err
	}

	f := model.Forecast{Date: in.Date, Estimator: name, Fallback: true}
	switch {
	case previous > 0:
		f.Value = previous
	case g.Backup != nil:
		bv, berr := FitWithTimeout(ctx, g.Timeout, g.Backup, in)
		if berr != nil {
			return model.Forecast{}, fmt.Errorf("%s fallback after %v: %w", g.Backup.Name(), err, berr)
		}
		f.Value = bv
	default:
		return model.Forecast{}, err
	}

	if g.Logger != nil {
		g.Logger.WarnContext(ctx, "volatility forecast fell back",
			"estimator", string(name),
			"date", in.Date.Format(time.DateOnly),
			"reason", err.Error(),
			"carried_forward", previous > 0,
			"value", f.Value,
		)
	}
	if g.OnFallback != nil {
		g.OnFallback(name, err)
	}
	return f, nil
}
