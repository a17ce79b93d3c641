package config

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"momentum-backtest/internal/model"
	"momentum-backtest/internal/strategy"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestDefaultIsValid(t *testing.T) {
	require.NoError(t, Default().Validate())

	specs, err := Default().Specs()
	require.NoError(t, err)
	assert.Len(t, specs, 4*3*2*3)
}

func TestLoadOverlaysDefaults(t *testing.T) {
	path := writeConfig(t, `
strategy:
  lambdas: [0, 6]
  compositions: [hedged_garch]
  weightings: [value]
  periods:
    - {start_year: 1990, end_year: 2000}
    - {start_year: 2000, end_year: 2010}
  window_months: 6
hedge:
  fit_timeout: 2s
  missing_return: error
rv:
  normalization_days: 125
`)
	c, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, []float64{0, 6}, c.Strategy.Lambdas)
	assert.Equal(t, 6, c.Strategy.WindowMonths)
	assert.Equal(t, 0.2, c.Strategy.LongFraction)
	assert.Equal(t, 2*time.Second, c.Hedge.FitTimeout)
	assert.Equal(t, 125, c.RV.NormalizationDays)
	assert.Equal(t, 125, c.RV.WindowDays)

	s := c.Settings()
	assert.Equal(t, 125, s.RV.NormalizationDays)
	assert.Equal(t, 500, s.GARCH.HistoryLimit)
	assert.Equal(t, "error", string(s.MissingReturn))

	specs, err := c.Specs()
	require.NoError(t, err)
	require.Len(t, specs, 4)
	assert.Equal(t, strategy.CompositionHedgedGARCH, specs[0].Composition)
	assert.Equal(t, model.Period{StartYear: 1990, EndYear: 2000}, specs[0].Period)

	p := c.SplitParams(6)
	assert.Equal(t, 6.0, p.Lambda)
	require.NoError(t, p.Validate())
}

func TestValidateRejects(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(c *Config)
	}{
		{"lambda outside grid", func(c *Config) { c.Strategy.Lambdas = []float64{2} }},
		{"unknown composition", func(c *Config) { c.Strategy.Compositions = []string{"hedged_ewma"} }},
		{"unknown weighting", func(c *Config) { c.Strategy.Weightings = []string{"rank"} }},
		{"zero fraction", func(c *Config) { c.Strategy.LongFraction = 0 }},
		{"fraction above one", func(c *Config) { c.Strategy.KeepShort = 1.5 }},
		{"window months", func(c *Config) { c.Strategy.WindowMonths = 3 }},
		{"gap between periods", func(c *Config) {
			c.Strategy.Periods = []model.Period{{StartYear: 1969, EndYear: 1985}, {StartYear: 1986, EndYear: 2005}}
		}},
		{"empty period", func(c *Config) { c.Strategy.Periods = []model.Period{{StartYear: 2000, EndYear: 2000}} }},
		{"no periods", func(c *Config) { c.Strategy.Periods = nil }},
		{"target vol", func(c *Config) { c.Hedge.TargetVol = 0 }},
		{"missing return policy", func(c *Config) { c.Hedge.MissingReturn = "skip" }},
		{"rv horizon", func(c *Config) { c.RV.HorizonDays = 0 }},
		{"garch history", func(c *Config) { c.GARCH.MinObservations = 600 }},
		{"parallelism", func(c *Config) { c.Runner.Parallelism = 0 }},
		{"log level", func(c *Config) { c.Logging.Level = "trace" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := Default()
			tt.mutate(c)
			assert.Error(t, c.Validate())
		})
	}
	var nilCfg *Config
	assert.Error(t, nilCfg.Validate())
}

func TestLoadRejectsBadYAML(t *testing.T) {
	_, err := Load(writeConfig(t, "strategy: [unclosed"))
	assert.Error(t, err)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("MOMENTUM_SERVER_ADDR", ":9191")
	t.Setenv("MOMENTUM_SERVER_ALLOWED_ORIGINS", "https://a.example,https://b.example")
	t.Setenv("MOMENTUM_LOGGING_FORMAT", "json")

	c, err := Load(writeConfig(t, "server:\n  addr: \":7000\"\n"))
	require.NoError(t, err)
	assert.Equal(t, ":9191", c.Server.Addr)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, c.Server.AllowedOrigins)
	assert.Equal(t, "json", c.Logging.Format)
	assert.Equal(t, "info", c.Logging.Level)
}

func TestResolvePathsRelativeToConfig(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "panel.csv"), []byte("x"), 0o644))
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("data:\n  panel_file: panel.csv\n"), 0o644))

	c, err := LoadUnchecked(path)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "panel.csv"), c.Data.PanelFile)
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	l, err := NewLogger(LoggingConfig{Level: "warn", Format: "json"}, &buf)
	require.NoError(t, err)
	l.Info("hidden")
	l.Warn("shown", "k", 1)
	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), `"msg":"shown"`)

	_, err = NewLogger(LoggingConfig{Level: "info", Format: "xml"}, &buf)
	assert.Error(t, err)
	_, err = NewLogger(LoggingConfig{Level: "loud", Format: "text"}, &buf)
	assert.Error(t, err)
}
