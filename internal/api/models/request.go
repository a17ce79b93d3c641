package models

// RunRequest selects one configuration of the grid to simulate.
type RunRequest struct {
	Lambda      *float64 `json:"lambda" binding:"required"`
	Composition string   `json:"composition" binding:"required,oneof=standard hedged_rv hedged_garch"`
	Weighting   string   `json:"weighting" binding:"required,oneof=equal value"`
	StartYear   int      `json:"start_year" binding:"required"`
	EndYear     int      `json:"end_year" binding:"required,gtfield=StartYear"`

	IncludeRecords   bool `json:"include_records,omitempty"`
	IncludeForecasts bool `json:"include_forecasts,omitempty"`
}

// CompareRequest runs a baseline (lambda 0) and each listed lambda with the
// same composition, weighting and period, and tests each against the baseline.
type CompareRequest struct {
	Composition string    `json:"composition" binding:"required,oneof=standard hedged_rv hedged_garch"`
	Weighting   string    `json:"weighting" binding:"required,oneof=equal value"`
	StartYear   int       `json:"start_year" binding:"required"`
	EndYear     int       `json:"end_year" binding:"required,gtfield=StartYear"`
	Lambdas     []float64 `json:"lambdas" binding:"required,min=1"`
	Kind        string    `json:"kind,omitempty" binding:"omitempty,oneof=gross net"`
	Alpha       float64   `json:"alpha,omitempty" binding:"omitempty,gt=0,lt=1"`
}

// SignificanceRequest tests two stored runs against each other.
type SignificanceRequest struct {
	RunA    string  `json:"run_a" binding:"required"`
	RunB    string  `json:"run_b" binding:"required"`
	Kind    string  `json:"kind,omitempty" binding:"omitempty,oneof=gross net"`
	Alpha   float64 `json:"alpha,omitempty" binding:"omitempty,gt=0,lt=1"`
	Periods int     `json:"periods,omitempty" binding:"omitempty,gt=0"`
}

// RunsQuery filters the stored run list.
type RunsQuery struct {
	ConfigID string `form:"config_id"`
}
