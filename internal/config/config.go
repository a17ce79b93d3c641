package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"momentum-backtest/internal/backtest"
	"momentum-backtest/internal/model"
	"momentum-backtest/internal/strategy"
	"momentum-backtest/internal/volatility"

	"github.com/go-playground/validator/v10"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes environment overrides, e.g. MOMENTUM_SERVER_ADDR.
const EnvPrefix = "MOMENTUM"

// Config is the on-disk configuration shape (YAML).
type Config struct {
	Data     DataConfig     `yaml:"data"`
	Strategy StrategyConfig `yaml:"strategy"`
	Hedge    HedgeConfig    `yaml:"hedge"`
	RV       RVConfig       `yaml:"rv"`
	GARCH    GARCHConfig    `yaml:"garch"`
	Runner   RunnerConfig   `yaml:"runner"`
	Server   ServerConfig   `yaml:"server"`
	Logging  LoggingConfig  `yaml:"logging"`
}

type DataConfig struct {
	// PanelFile is the daily security panel CSV.
	PanelFile string `yaml:"panel_file"`
	// SplitDir holds final_split_*.json artifacts. When set, runs read splits
	// from there instead of recomputing them from the panel.
	SplitDir  string `yaml:"split_dir"`
	OutputDir string `yaml:"output_dir"`
	// Database is a SQLite DSN for stored runs; empty disables persistence.
	Database string        `yaml:"database"`
	CacheTTL time.Duration `yaml:"cache_ttl" validate:"gte=0"`
}

type StrategyConfig struct {
	Lambdas      []float64      `yaml:"lambdas" validate:"min=1"`
	Compositions []string       `yaml:"compositions" validate:"min=1"`
	Weightings   []string       `yaml:"weightings" validate:"min=1"`
	Periods      []model.Period `yaml:"periods" validate:"min=1"`

	LongFraction  float64 `yaml:"long_fraction" validate:"gt=0,lte=1"`
	ShortFraction float64 `yaml:"short_fraction" validate:"gt=0,lte=1"`
	KeepLong      float64 `yaml:"keep_long" validate:"gt=0,lte=1"`
	KeepShort     float64 `yaml:"keep_short" validate:"gt=0,lte=1"`
	WindowMonths  int     `yaml:"window_months" validate:"oneof=6 12"`
	Seed          int64   `yaml:"seed"`
}

type HedgeConfig struct {
	TargetVol     float64       `yaml:"target_vol" validate:"gt=0"`
	FitTimeout    time.Duration `yaml:"fit_timeout" validate:"gte=0"`
	MissingReturn string        `yaml:"missing_return" validate:"omitempty,oneof=zero error"`
}

type RVConfig struct {
	WindowDays        int `yaml:"window_days" validate:"gt=0"`
	HorizonDays       int `yaml:"horizon_days" validate:"gt=0"`
	NormalizationDays int `yaml:"normalization_days" validate:"gt=0"`
}

type GARCHConfig struct {
	HistoryLimit    int `yaml:"history_limit" validate:"gt=0"`
	MinObservations int `yaml:"min_observations" validate:"gt=1"`
	HorizonDays     int `yaml:"horizon_days" validate:"gt=0"`
	MaxIterations   int `yaml:"max_iterations" validate:"gt=0"`
}

type RunnerConfig struct {
	Parallelism int `yaml:"parallelism" validate:"gte=1"`
}

// ServerConfig can be overridden with MOMENTUM_SERVER_* variables.
type ServerConfig struct {
	Addr            string        `yaml:"addr" envconfig:"ADDR" validate:"required"`
	AllowedOrigins  []string      `yaml:"allowed_origins" envconfig:"ALLOWED_ORIGINS"`
	ReadTimeout     time.Duration `yaml:"read_timeout" envconfig:"READ_TIMEOUT" validate:"gte=0"`
	WriteTimeout    time.Duration `yaml:"write_timeout" envconfig:"WRITE_TIMEOUT" validate:"gte=0"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" envconfig:"SHUTDOWN_TIMEOUT" validate:"gte=0"`
	// RateLimit caps backtest requests per second across all clients. Zero
	// disables it.
	RateLimit float64 `yaml:"rate_limit" envconfig:"RATE_LIMIT" validate:"gte=0"`
	RateBurst int     `yaml:"rate_burst" envconfig:"RATE_BURST" validate:"gte=0"`
}

// LoggingConfig can be overridden with MOMENTUM_LOGGING_* variables.
type LoggingConfig struct {
	Level  string `yaml:"level" envconfig:"LEVEL" validate:"oneof=debug info warn error"`
	Format string `yaml:"format" envconfig:"FORMAT" validate:"oneof=text json"`
}

// Default is the full configuration used when a file leaves a field out.
func Default() *Config {
	rv := volatility.DefaultRV()
	g := volatility.DefaultGARCH()
	sp := strategy.DefaultSplitParams(0)
	return &Config{
		Data: DataConfig{OutputDir: "results", CacheTTL: 10 * time.Minute},
		Strategy: StrategyConfig{
			Lambdas:       append([]float64(nil), strategy.Lambdas...),
			Compositions:  []string{"standard", "hedged_rv", "hedged_garch"},
			Weightings:    []string{"equal", "value"},
			Periods:       []model.Period{{StartYear: 1969, EndYear: 1985}, {StartYear: 1985, EndYear: 2005}, {StartYear: 2005, EndYear: 2024}},
			LongFraction:  sp.LongFraction,
			ShortFraction: sp.ShortFraction,
			KeepLong:      sp.KeepLong,
			KeepShort:     sp.KeepShort,
			WindowMonths:  12,
			Seed:          1,
		},
		Hedge: HedgeConfig{TargetVol: backtest.DefaultTargetVol, FitTimeout: 30 * time.Second, MissingReturn: "zero"},
		RV: RVConfig{
			WindowDays:        rv.WindowDays,
			HorizonDays:       rv.HorizonDays,
			NormalizationDays: rv.NormalizationDays,
		},
		GARCH: GARCHConfig{
			HistoryLimit:    g.HistoryLimit,
			MinObservations: g.MinObservations,
			HorizonDays:     g.HorizonDays,
			MaxIterations:   g.MaxIterations,
		},
		Runner: RunnerConfig{Parallelism: 4},
		Server: ServerConfig{
			Addr:            ":8080",
			AllowedOrigins:  []string{"http://localhost:3000"},
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    5 * time.Minute,
			ShutdownTimeout: 30 * time.Second,
			RateLimit:       2,
			RateBurst:       4,
		},
		Logging: LoggingConfig{Level: "info", Format: "text"},
	}
}

func Load(path string) (*Config, error) {
	c, err := LoadUnchecked(path)
	if err != nil {
		return nil, err
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// LoadUnchecked overlays the file and then the environment on Default, but
// does not validate. An empty path skips the file.
func LoadUnchecked(path string) (*Config, error) {
	c := Default()
	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		if err := yaml.Unmarshal(raw, c); err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		c.resolvePaths(filepath.Dir(path))
	}
	if err := c.ApplyEnv(); err != nil {
		return nil, err
	}
	return c, nil
}

// ApplyEnv overrides the server and logging sections from the environment.
func (c *Config) ApplyEnv() error {
	if err := envconfig.Process(EnvPrefix+"_SERVER", &c.Server); err != nil {
		return fmt.Errorf("server env: %w", err)
	}
	if err := envconfig.Process(EnvPrefix+"_LOGGING", &c.Logging); err != nil {
		return fmt.Errorf("logging env: %w", err)
	}
	return nil
}

// resolvePaths interprets relative data paths against the config file's
// directory when the file exists there.
func (c *Config) resolvePaths(dir string) {
	for _, p := range []*string{&c.Data.PanelFile, &c.Data.SplitDir} {
		if *p == "" || filepath.IsAbs(*p) {
			continue
		}
		cand := filepath.Join(dir, *p)
		if _, err := os.Stat(cand); err == nil {
			*p = cand
		}
	}
}

var validate = validator.New()

func (c *Config) Validate() error {
	if c == nil {
		return errors.New("config is nil")
	}
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("config invalid: %w", err)
	}
	for _, l := range c.Strategy.Lambdas {
		if !strategy.ValidLambda(l) {
			return fmt.Errorf("strategy.lambdas: %v not in %v", l, strategy.Lambdas)
		}
	}
	if _, err := c.Compositions(); err != nil {
		return fmt.Errorf("strategy.compositions: %w", err)
	}
	if _, err := c.Weightings(); err != nil {
		return fmt.Errorf("strategy.weightings: %w", err)
	}
	for i, p := range c.Strategy.Periods {
		if p.StartYear >= p.EndYear {
			return fmt.Errorf("strategy.periods[%d]: %s does not span a year", i, p)
		}
		if i > 0 && p.StartYear != c.Strategy.Periods[i-1].EndYear {
			return fmt.Errorf("strategy.periods[%d]: %s does not continue %s", i, p, c.Strategy.Periods[i-1])
		}
	}
	if c.GARCH.MinObservations > c.GARCH.HistoryLimit {
		return fmt.Errorf("garch.min_observations %d exceeds garch.history_limit %d", c.GARCH.MinObservations, c.GARCH.HistoryLimit)
	}
	return nil
}

func (c *Config) Compositions() ([]strategy.Composition, error) {
	out := make([]strategy.Composition, 0, len(c.Strategy.Compositions))
	for _, s := range c.Strategy.Compositions {
		comp, err := strategy.ParseComposition(s)
		if err != nil {
			return nil, err
		}
		out = append(out, comp)
	}
	return out, nil
}

func (c *Config) Weightings() ([]strategy.Weighting, error) {
	out := make([]strategy.Weighting, 0, len(c.Strategy.Weightings))
	for _, s := range c.Strategy.Weightings {
		w, err := strategy.ParseWeighting(s)
		if err != nil {
			return nil, err
		}
		out = append(out, w)
	}
	return out, nil
}

// Specs expands the configured grid.
func (c *Config) Specs() ([]backtest.Spec, error) {
	comps, err := c.Compositions()
	if err != nil {
		return nil, err
	}
	weights, err := c.Weightings()
	if err != nil {
		return nil, err
	}
	return backtest.Grid(c.Strategy.Lambdas, comps, weights, c.Strategy.Periods), nil
}

func (c *Config) SplitParams(lambda float64) strategy.SplitParams {
	return strategy.SplitParams{
		Lambda:        lambda,
		LongFraction:  c.Strategy.LongFraction,
		ShortFraction: c.Strategy.ShortFraction,
		KeepLong:      c.Strategy.KeepLong,
		KeepShort:     c.Strategy.KeepShort,
	}
}

// Settings builds the engine settings shared by every run of the grid.
func (c *Config) Settings() backtest.Settings {
	return backtest.Settings{
		TargetVol:     c.Hedge.TargetVol,
		MissingReturn: backtest.MissingReturnPolicy(c.Hedge.MissingReturn),
		FitTimeout:    c.Hedge.FitTimeout,
		RV: &volatility.RV{
			WindowDays:        c.RV.WindowDays,
			HorizonDays:       c.RV.HorizonDays,
			NormalizationDays: c.RV.NormalizationDays,
		},
		GARCH: &volatility.GARCH{
			HistoryLimit:    c.GARCH.HistoryLimit,
			MinObservations: c.GARCH.MinObservations,
			HorizonDays:     c.GARCH.HorizonDays,
			MaxIterations:   c.GARCH.MaxIterations,
		},
	}
}
