// Package store persists finished backtest runs in a SQLite database.
package store

import (
	"database/sql"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/etnz/backtest"
	"github.com/etnz/backtest/date"
	_ "modernc.org/sqlite"
)

var (
	ErrNotFound  = errors.New("run not found")
	ErrAmbiguous = errors.New("ambiguous run id")
)

// Store wraps a SQLite database of runs.
type Store struct {
	sql *sql.DB
}

// Open opens (or creates) the database at path and runs migrations. Use ":memory:" for a
// transient database.
func Open(path string) (*Store, error) {
	sqlDB, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	// a single connection: an in-memory database lives and dies with its connection.
	sqlDB.SetMaxOpenConns(1)
	if err := sqlDB.Ping(); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("ping db: %w", err)
	}
	s := &Store{sql: sqlDB}
	if err := s.migrate(); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("migrate db: %w", err)
	}
	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error { return s.sql.Close() }

func (s *Store) migrate() error {
	var tables, version int
	// the table does not exist on a new database
	err := s.sql.QueryRow("SELECT count(*) FROM sqlite_master WHERE type = 'table' AND name = 'schema_version'").Scan(&tables)
	if err != nil {
		return fmt.Errorf("reading schema: %w", err)
	}
	if tables > 0 {
		if err := s.sql.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_version").Scan(&version); err != nil {
			return fmt.Errorf("reading schema version: %w", err)
		}
	}

	if version < 1 {
		_, err := s.sql.Exec(`
			CREATE TABLE IF NOT EXISTS schema_version (version INTEGER PRIMARY KEY);

			CREATE TABLE IF NOT EXISTS runs (
				id           TEXT PRIMARY KEY,
				label        TEXT NOT NULL,
				currency     TEXT NOT NULL,
				created_at   TEXT NOT NULL,
				start        REAL NOT NULL,
				final        REAL,
				roi          REAL,
				volatility   REAL,
				biggest_loss REAL NOT NULL,
				max_drawdown REAL NOT NULL,
				steps        INTEGER NOT NULL,
				trades       INTEGER NOT NULL
			);
			CREATE INDEX IF NOT EXISTS idx_runs_created ON runs(created_at);

			CREATE TABLE IF NOT EXISTS run_values (
				run_id TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
				step   INTEGER NOT NULL,
				date   TEXT NOT NULL,
				value  REAL NOT NULL,
				trade  INTEGER NOT NULL,
				PRIMARY KEY (run_id, step)
			);

			INSERT OR IGNORE INTO schema_version (version) VALUES (1);
		`)
		if err != nil {
			return fmt.Errorf("migration 1: %w", err)
		}
	}

	if version < 2 {
		_, err := s.sql.Exec(`
			ALTER TABLE runs ADD COLUMN strategy TEXT NOT NULL DEFAULT '';
			INSERT OR IGNORE INTO schema_version (version) VALUES (2);
		`)
		if err != nil {
			return fmt.Errorf("migration 2: %w", err)
		}
	}
	return nil
}

// Summary describes a stored run without its value history.
type Summary struct {
	ID          string
	Label       string
	Strategy    string // description of the strategy
	Currency    string
	Created     time.Time
	Start       float64
	Final       float64 // NaN for an empty run
	ROI         backtest.Percent
	Volatility  float64
	MaxDrawdown backtest.Percent
	Steps       int
	Trades      int
}

// SaveRun stores a finished run. strategy is a free description of the strategy used.
func (s *Store) SaveRun(r *backtest.Result, strategy string) error {
	tx, err := s.sql.Begin()
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	st := r.Stats
	_, err = tx.Exec(`INSERT INTO runs (
		id, label, strategy, currency, created_at,
		start, final, roi, volatility, biggest_loss, max_drawdown, steps, trades
	) VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?)`,
		r.ID, r.Label, strategy, r.Currency, time.Now().UTC().Format(time.RFC3339Nano),
		r.Start, nullable(st.End), nullable(float64(st.ROI)), nullable(st.Volatility),
		st.BiggestLoss, float64(st.MaxDrawdown), st.Steps, st.TradeCount,
	)
	if err != nil {
		return fmt.Errorf("insert run %s: %w", r.ID, err)
	}

	stmt, err := tx.Prepare(`INSERT INTO run_values (run_id, step, date, value, trade) VALUES (?,?,?,?,?)`)
	if err != nil {
		return fmt.Errorf("prepare values: %w", err)
	}
	defer stmt.Close()
	for i, on := range r.Dates {
		if _, err := stmt.Exec(r.ID, i, on.String(), r.Values[i], r.IsTrade(on)); err != nil {
			return fmt.Errorf("insert value %d of run %s: %w", i, r.ID, err)
		}
	}
	return tx.Commit()
}

// Runs returns the summaries of the latest stored runs, newest first. A limit <= 0
// returns all of them.
func (s *Store) Runs(limit int) ([]Summary, error) {
	if limit <= 0 {
		limit = -1 // no limit in sqlite
	}
	rows, err := s.sql.Query(`
		SELECT id, label, strategy, currency, created_at,
			start, final, roi, volatility, max_drawdown, steps, trades
		FROM runs ORDER BY created_at DESC, rowid DESC LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var summaries []Summary
	for rows.Next() {
		sum, err := scanSummary(rows)
		if err != nil {
			return nil, err
		}
		summaries = append(summaries, sum)
	}
	return summaries, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanSummary(row scanner) (Summary, error) {
	var (
		sum             Summary
		created         string
		final, roi, vol sql.NullFloat64
		maxDrawdown     float64
	)
	err := row.Scan(&sum.ID, &sum.Label, &sum.Strategy, &sum.Currency, &created,
		&sum.Start, &final, &roi, &vol, &maxDrawdown, &sum.Steps, &sum.Trades)
	if err != nil {
		return Summary{}, err
	}
	sum.Created, err = time.Parse(time.RFC3339Nano, created)
	if err != nil {
		return Summary{}, fmt.Errorf("run %s: invalid creation time %q: %w", sum.ID, created, err)
	}
	sum.Final = notNull(final)
	sum.ROI = backtest.Percent(notNull(roi))
	sum.Volatility = notNull(vol)
	sum.MaxDrawdown = backtest.Percent(maxDrawdown)
	return sum, nil
}

// Run loads a stored run. id may be a unique prefix of the run id, matched literally.
func (s *Store) Run(id string) (Summary, *backtest.Result, error) {
	rows, err := s.sql.Query(`
		SELECT id, label, strategy, currency, created_at,
			start, final, roi, volatility, max_drawdown, steps, trades
		FROM runs WHERE substr(id, 1, length(?)) = ? LIMIT 2
	`, id, id)
	if err != nil {
		return Summary{}, nil, fmt.Errorf("query run %s: %w", id, err)
	}
	var found []Summary
	for rows.Next() {
		sum, err := scanSummary(rows)
		if err != nil {
			rows.Close()
			return Summary{}, nil, err
		}
		found = append(found, sum)
	}
	rows.Close()
	switch len(found) {
	case 0:
		return Summary{}, nil, fmt.Errorf("%w: %q", ErrNotFound, id)
	case 1:
	default:
		return Summary{}, nil, fmt.Errorf("%w: %q", ErrAmbiguous, id)
	}
	sum := found[0]

	r := &backtest.Result{
		ID:       sum.ID,
		Label:    sum.Label,
		Currency: sum.Currency,
		Start:    sum.Start,
	}
	values, err := s.sql.Query(`SELECT date, value, trade FROM run_values WHERE run_id = ? ORDER BY step`, sum.ID)
	if err != nil {
		return Summary{}, nil, fmt.Errorf("query values of run %s: %w", sum.ID, err)
	}
	defer values.Close()
	for values.Next() {
		var (
			raw   string
			value float64
			trade bool
		)
		if err := values.Scan(&raw, &value, &trade); err != nil {
			return Summary{}, nil, err
		}
		on, err := date.Parse(raw)
		if err != nil {
			return Summary{}, nil, fmt.Errorf("run %s: %w", sum.ID, err)
		}
		r.Dates = append(r.Dates, on)
		r.Values = append(r.Values, value)
		if trade {
			// the trade is recorded at the value of the day, before rebalancing
			r.Trades.Dates = append(r.Trades.Dates, on)
			r.Trades.Values = append(r.Trades.Values, value)
		}
	}
	if err := values.Err(); err != nil {
		return Summary{}, nil, err
	}
	r.Returns = backtest.Returns(r.Values)
	r.Stats = backtest.NewStatistics(r.Start, r.Values)
	r.Stats.TradeCount = r.Trades.Len()
	return sum, r, nil
}

// Delete removes a run and its values.
func (s *Store) Delete(id string) error {
	res, err := s.sql.Exec(`DELETE FROM runs WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete run %s: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: %q", ErrNotFound, id)
	}
	return nil
}

func nullable(v float64) sql.NullFloat64 {
	return sql.NullFloat64{Float64: v, Valid: !math.IsNaN(v) && !math.IsInf(v, 0)}
}

func notNull(v sql.NullFloat64) float64 {
	if !v.Valid {
		return math.NaN()
	}
	return v.Float64
}
