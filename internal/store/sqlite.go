package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"momentum-backtest/internal/backtest"
	"momentum-backtest/internal/model"
	"momentum-backtest/internal/strategy"

	// Register sqlite3 driver
	_ "github.com/mattn/go-sqlite3"
)

// ErrRunNotFound is returned when a run id has no row.
var ErrRunNotFound = errors.New("run not found")

type DB interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	BeginTx(ctx context.Context, opts *sql.TxOptions) (*sql.Tx, error)
	Close() error
}

type Store struct{ db DB }

// OpenSQLite opens dsn with a single connection, so ":memory:" databases
// are shared by every query.
func OpenSQLite(dsn string) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	return db, nil
}

const schema = `
CREATE TABLE IF NOT EXISTS runs(
	id TEXT PRIMARY KEY,
	config_id TEXT NOT NULL,
	lambda REAL NOT NULL,
	composition TEXT NOT NULL,
	weighting TEXT NOT NULL,
	start_year INTEGER NOT NULL,
	end_year INTEGER NOT NULL,
	months INTEGER NOT NULL,
	total_return REAL NOT NULL,
	total_cost REAL NOT NULL,
	created_at TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS monthly_results(
	run_id TEXT NOT NULL REFERENCES runs(id),
	year INTEGER NOT NULL,
	month INTEGER NOT NULL,
	rebalance_date TEXT NOT NULL,
	total_return REAL NOT NULL,
	total_cost REAL NOT NULL,
	sum_squared_return REAL NOT NULL,
	unhedged_sum_squared_return REAL NOT NULL,
	hedge_ratio REAL NOT NULL,
	forecast REAL NOT NULL,
	long_count INTEGER NOT NULL,
	short_count INTEGER NOT NULL,
	PRIMARY KEY (run_id, year, month)
);
CREATE TABLE IF NOT EXISTS forecasts(
	run_id TEXT NOT NULL REFERENCES runs(id),
	date TEXT NOT NULL,
	estimator TEXT NOT NULL,
	value REAL NOT NULL,
	fallback INTEGER NOT NULL,
	PRIMARY KEY (run_id, date)
);
CREATE INDEX IF NOT EXISTS runs_config ON runs(config_id);
`

func InitSchema(ctx context.Context, db DB) error {
	_, err := db.ExecContext(ctx, schema)
	return err
}

func NewStore(db DB) *Store { return &Store{db: db} }

// Run is the stored summary of one backtest run.
type Run struct {
	ID          string               `json:"id"`
	ConfigID    string               `json:"config_id"`
	Lambda      float64              `json:"lambda"`
	Composition strategy.Composition `json:"composition"`
	Weighting   strategy.Weighting   `json:"weighting"`
	Period      model.Period         `json:"period"`
	Months      int                  `json:"months"`
	TotalReturn float64              `json:"total_return"`
	TotalCost   float64              `json:"total_cost"`
	CreatedAt   time.Time            `json:"created_at"`
}

// RunOf summarizes a finished result.
func RunOf(res *backtest.Result, at time.Time) Run {
	return Run{
		ID:          res.RunID,
		ConfigID:    res.Spec.ID(),
		Lambda:      res.Spec.Lambda,
		Composition: res.Spec.Composition,
		Weighting:   res.Spec.Weighting,
		Period:      res.Spec.Period,
		Months:      len(res.Records),
		TotalReturn: res.TotalReturn,
		TotalCost:   res.TotalCost,
		CreatedAt:   at.UTC(),
	}
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func (s *Store) SaveRun(ctx context.Context, run Run) error {
	return saveRun(ctx, s.db, run)
}

func (s *Store) SaveResults(ctx context.Context, runID string, records []model.MonthlyResult) error {
	return s.inTx(ctx, func(tx *sql.Tx) error { return saveResults(ctx, tx, runID, records) })
}

func (s *Store) SaveForecasts(ctx context.Context, runID string, forecasts []model.Forecast) error {
	return s.inTx(ctx, func(tx *sql.Tx) error { return saveForecasts(ctx, tx, runID, forecasts) })
}

// SaveResult stores the run, its records and its forecasts atomically.
func (s *Store) SaveResult(ctx context.Context, res *backtest.Result, at time.Time) error {
	if res.RunID == "" {
		return errors.New("result has no run id")
	}
	return s.inTx(ctx, func(tx *sql.Tx) error {
		if err := saveRun(ctx, tx, RunOf(res, at)); err != nil {
			return err
		}
		if err := saveResults(ctx, tx, res.RunID, res.Records); err != nil {
			return err
		}
		return saveForecasts(ctx, tx, res.RunID, res.Forecasts)
	})
}

func (s *Store) inTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

func saveRun(ctx context.Context, db execer, r Run) error {
	_, err := db.ExecContext(ctx, `INSERT INTO runs(id,config_id,lambda,composition,weighting,start_year,end_year,months,total_return,total_cost,created_at)
		VALUES(?,?,?,?,?,?,?,?,?,?,?)`,
		r.ID, r.ConfigID, r.Lambda, string(r.Composition), string(r.Weighting),
		r.Period.StartYear, r.Period.EndYear, r.Months, r.TotalReturn, r.TotalCost,
		r.CreatedAt.Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("insert run %s: %w", r.ID, err)
	}
	return nil
}

func saveResults(ctx context.Context, db execer, runID string, records []model.MonthlyResult) error {
	for _, r := range records {
		_, err := db.ExecContext(ctx, `INSERT INTO monthly_results(run_id,year,month,rebalance_date,total_return,total_cost,sum_squared_return,unhedged_sum_squared_return,hedge_ratio,forecast,long_count,short_count)
			VALUES(?,?,?,?,?,?,?,?,?,?,?,?)`,
			runID, r.Year, r.Month, r.RebalanceDate.Format(time.DateOnly), r.TotalReturn, r.TotalCost,
			r.SumSquaredReturn, r.UnhedgedSumSquaredReturn, r.HedgeRatio, r.Forecast, r.LongCount, r.ShortCount)
		if err != nil {
			return fmt.Errorf("insert result %s %d-%02d: %w", runID, r.Year, r.Month, err)
		}
	}
	return nil
}

func saveForecasts(ctx context.Context, db execer, runID string, forecasts []model.Forecast) error {
	for _, f := range forecasts {
		_, err := db.ExecContext(ctx, `INSERT INTO forecasts(run_id,date,estimator,value,fallback) VALUES(?,?,?,?,?)`,
			runID, f.Date.Format(time.DateOnly), string(f.Estimator), f.Value, f.Fallback)
		if err != nil {
			return fmt.Errorf("insert forecast %s %s: %w", runID, f.Date.Format(time.DateOnly), err)
		}
	}
	return nil
}

const runColumns = `id,config_id,lambda,composition,weighting,start_year,end_year,months,total_return,total_cost,created_at`

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(sc scanner) (Run, error) {
	var r Run
	var comp, weight, created string
	err := sc.Scan(&r.ID, &r.ConfigID, &r.Lambda, &comp, &weight,
		&r.Period.StartYear, &r.Period.EndYear, &r.Months, &r.TotalReturn, &r.TotalCost, &created)
	if err != nil {
		return r, err
	}
	r.Composition = strategy.Composition(comp)
	r.Weighting = strategy.Weighting(weight)
	if r.CreatedAt, err = time.Parse(time.RFC3339Nano, created); err != nil {
		return r, fmt.Errorf("run %s created_at: %w", r.ID, err)
	}
	return r, nil
}

// ListRuns returns runs newest first. An empty configID lists every run.
func (s *Store) ListRuns(ctx context.Context, configID string) ([]Run, error) {
	q := `SELECT ` + runColumns + ` FROM runs`
	var args []any
	if configID != "" {
		q += ` WHERE config_id=?`
		args = append(args, configID)
	}
	q += ` ORDER BY created_at DESC, id ASC`
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *Store) Run(ctx context.Context, id string) (Run, error) {
	r, err := scanRun(s.db.QueryRowContext(ctx, `SELECT `+runColumns+` FROM runs WHERE id=?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return Run{}, fmt.Errorf("%s: %w", id, ErrRunNotFound)
	}
	return r, err
}

// Results returns the run's records in holding month order.
func (s *Store) Results(ctx context.Context, runID string) ([]model.MonthlyResult, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT year,month,rebalance_date,total_return,total_cost,sum_squared_return,unhedged_sum_squared_return,hedge_ratio,forecast,long_count,short_count
		FROM monthly_results WHERE run_id=? ORDER BY year ASC, month ASC`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.MonthlyResult
	for rows.Next() {
		var r model.MonthlyResult
		var date string
		if err := rows.Scan(&r.Year, &r.Month, &date, &r.TotalReturn, &r.TotalCost,
			&r.SumSquaredReturn, &r.UnhedgedSumSquaredReturn, &r.HedgeRatio, &r.Forecast, &r.LongCount, &r.ShortCount); err != nil {
			return nil, err
		}
		if r.RebalanceDate, err = time.Parse(time.DateOnly, date); err != nil {
			return nil, fmt.Errorf("result %s rebalance_date: %w", runID, err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// Forecasts returns the run's forecasts oldest first.
func (s *Store) Forecasts(ctx context.Context, runID string) ([]model.Forecast, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT date,estimator,value,fallback FROM forecasts WHERE run_id=? ORDER BY date ASC`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.Forecast
	for rows.Next() {
		var f model.Forecast
		var date, est string
		if err := rows.Scan(&date, &est, &f.Value, &f.Fallback); err != nil {
			return nil, err
		}
		if f.Date, err = time.Parse(time.DateOnly, date); err != nil {
			return nil, fmt.Errorf("forecast %s date: %w", runID, err)
		}
		f.Estimator = model.Estimator(est)
		out = append(out, f)
	}
	return out, rows.Err()
}

func (s *Store) Close() error { return s.db.Close() }
