package models

import (
	"time"

	"momentum-backtest/internal/analysis"
	"momentum-backtest/internal/model"
)

// RunResponse is the result of one simulated configuration.
type RunResponse struct {
	ID       string           `json:"id"`
	ConfigID string           `json:"config_id"`
	Status   string           `json:"status"`
	Summary  analysis.Summary `json:"summary"`
	Window   TimeWindow       `json:"window"`

	Records   []model.MonthlyResult `json:"records,omitempty"`
	Forecasts []model.Forecast      `json:"forecasts,omitempty"`
}

// TimeWindow is the span of rebalance dates.
type TimeWindow struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// CompareResponse lists the baseline and each tested lambda.
type CompareResponse struct {
	Baseline   RunResponse        `json:"baseline"`
	Comparison []ComparisonResult `json:"comparison"`
}

// ComparisonResult is one lambda against the baseline.
type ComparisonResult struct {
	Lambda float64             `json:"lambda"`
	Run    RunResponse         `json:"run"`
	Test   analysis.TestResult `json:"test"`
}

// SignificanceResponse is a z-test between two stored runs.
type SignificanceResponse struct {
	RunA analysis.Summary    `json:"run_a"`
	RunB analysis.Summary    `json:"run_b"`
	Kind string              `json:"kind"`
	Test analysis.TestResult `json:"test"`
}

// StrategyInfo describes the enumerated configuration surface.
type StrategyInfo struct {
	Lambdas      []float64       `json:"lambdas"`
	Compositions []OptionInfo    `json:"compositions"`
	Weightings   []OptionInfo    `json:"weightings"`
	Parameters   []ParameterInfo `json:"parameters"`
}

// OptionInfo names one enumerated choice.
type OptionInfo struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// ParameterInfo describes a tunable parameter
type ParameterInfo struct {
	Name        string      `json:"name"`
	Type        string      `json:"type"` // "float", "int", "string"
	Description string      `json:"description"`
	Default     interface{} `json:"default,omitempty"`
}

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail contains error information
type ErrorDetail struct {
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
}
