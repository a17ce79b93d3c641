package data

import (
	"fmt"
	"math"
	"math/rand"
	"time"

	"momentum-backtest/internal/model"
)

// SyntheticConfig describes a generated daily panel. Each security gets its own
// drift and volatility, so trailing returns separate into winners and losers.
type SyntheticConfig struct {
	Securities int
	StartYear  int
	EndYear    int
	Seed       int64

	// DailyVol is the average daily return volatility.
	DailyVol float64
	// MaxSpread bounds the per-security mean quoted spread.
	MaxSpread float64
}

func DefaultSyntheticConfig() SyntheticConfig {
	return SyntheticConfig{Securities: 40, StartYear: 2000, EndYear: 2003, Seed: 1, DailyVol: 0.015, MaxSpread: 0.02}
}

// Synthetic generates weekday observations from Jan 1 of StartYear through
// Jan 31 of EndYear+1, so the last rebalance date of the period has a
// realized month. The output is deterministic for a given config.
func Synthetic(cfg SyntheticConfig) ([]model.Observation, error) {
	if cfg.Securities <= 0 || cfg.EndYear < cfg.StartYear || cfg.DailyVol <= 0 || cfg.MaxSpread <= 0 {
		return nil, fmt.Errorf("invalid synthetic config %+v", cfg)
	}
	rng := rand.New(rand.NewSource(cfg.Seed))

	type profile struct {
		id     string
		drift  float64
		vol    float64
		spread float64
		cap    float64
		exch   string
	}
	secs := make([]profile, cfg.Securities)
	for i := range secs {
		secs[i] = profile{
			id:     fmt.Sprintf("S%03d", i+1),
			drift:  rng.NormFloat64() * 0.001,
			vol:    cfg.DailyVol * (0.5 + rng.Float64()),
			spread: cfg.MaxSpread * (0.1 + 0.9*rng.Float64()),
			cap:    math.Exp(18 + 3*rng.Float64()),
			exch:   fmt.Sprint(1 + rng.Intn(3)),
		}
	}

	start := time.Date(cfg.StartYear, time.January, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(cfg.EndYear+1, time.January, 31, 0, 0, 0, 0, time.UTC)
	var out []model.Observation
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		if wd := d.Weekday(); wd == time.Saturday || wd == time.Sunday {
			continue
		}
		for i := range secs {
			s := &secs[i]
			ret := s.drift + s.vol*rng.NormFloat64()
			s.cap *= 1 + ret
			price := 10 + 90*rng.Float64()
			half := price * s.spread * (0.5 + rng.Float64()) / 2
			out = append(out, model.Observation{
				SecurityID: s.id,
				Date:       d,
				Return:     ret,
				Ask:        price + half,
				Bid:        price - half,
				MarketCap:  s.cap,
				Exchange:   s.exch,
			})
		}
	}
	return out, nil
}
