package store

import (
	"database/sql"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/etnz/backtest"
	"github.com/etnz/backtest/date"
	"github.com/etnz/backtest/strategy"
)

// openTestStore opens an in-memory store.
func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(":memory:")
	if err != nil {
		t.Fatalf("Open(:memory:) error: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// run backtests a switch from X to Y on the second day.
func run(t *testing.T, label string) *backtest.Result {
	t.Helper()
	days := []date.Date{
		date.New(2025, time.March, 3),
		date.New(2025, time.March, 4),
		date.New(2025, time.March, 5),
	}
	f, err := backtest.FromSeries(days, map[string][]float64{
		"X": {10, 12, 9},
		"Y": {5, 5, 6},
	})
	if err != nil {
		t.Fatalf("FromSeries() error: %v", err)
	}
	b, err := backtest.New(f, f, 1000, backtest.Weights{"X": 1})
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	b.SetStrategy(strategy.Momentum(1, "Y"))
	r, err := b.Run(0, backtest.Options{Label: label})
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	return r
}

func TestSaveAndLoadRun(t *testing.T) {
	s := openTestStore(t)
	want := run(t, "momentum")
	if err := s.SaveRun(want, "momentum 1 [Y]"); err != nil {
		t.Fatalf("SaveRun() error: %v", err)
	}

	sum, got, err := s.Run(want.ID)
	if err != nil {
		t.Fatalf("Run(%s) error: %v", want.ID, err)
	}
	if sum.Label != "momentum" || sum.Strategy != "momentum 1 [Y]" || sum.Currency != backtest.DefaultCurrency {
		t.Errorf("Run() summary = %+v", sum)
	}
	if sum.Steps != 3 || sum.Final != want.Final() || !sum.ROI.Equal(want.Stats.ROI) {
		t.Errorf("Run() summary = %+v want stats %+v", sum, want.Stats)
	}
	if time.Since(sum.Created) > time.Minute {
		t.Errorf("Run() created at %v want now", sum.Created)
	}

	if got.ID != want.ID || got.Start != want.Start || got.Len() != want.Len() {
		t.Fatalf("Run() = %+v want %+v", got, want)
	}
	for i := range want.Dates {
		if got.Dates[i] != want.Dates[i] || got.Values[i] != want.Values[i] {
			t.Errorf("Run() step %d = %s %v want %s %v", i, got.Dates[i], got.Values[i], want.Dates[i], want.Values[i])
		}
	}
	if got.Trades.Len() != want.Trades.Len() || got.Stats.TradeCount != want.Stats.TradeCount {
		t.Errorf("Run() trades = %v want %v", got.Trades, want.Trades)
	}
	if got.Stats.Volatility != want.Stats.Volatility || got.Stats.BiggestLoss != want.Stats.BiggestLoss {
		t.Errorf("Run() stats = %+v want %+v", got.Stats, want.Stats)
	}
}

func TestRunByPrefix(t *testing.T) {
	s := openTestStore(t)
	r := run(t, "a")
	if err := s.SaveRun(r, "momentum"); err != nil {
		t.Fatalf("SaveRun() error: %v", err)
	}
	if _, got, err := s.Run(r.ID[:8]); err != nil || got.ID != r.ID {
		t.Errorf("Run(%s) = %v, %v want run %s", r.ID[:8], got, err, r.ID)
	}
	if _, _, err := s.Run("not-an-id"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Run(not-an-id) error = %v want %v", err, ErrNotFound)
	}

	other := run(t, "b")
	if err := s.SaveRun(other, "momentum"); err != nil {
		t.Fatalf("SaveRun() error: %v", err)
	}
	if _, _, err := s.Run(""); !errors.Is(err, ErrAmbiguous) {
		t.Errorf("Run(\"\") error = %v want %v", err, ErrAmbiguous)
	}
}

func TestRunPrefixIsLiteral(t *testing.T) {
	s := openTestStore(t)
	for _, label := range []string{"a", "b"} {
		if err := s.SaveRun(run(t, label), "momentum"); err != nil {
			t.Fatalf("SaveRun(%s) error: %v", label, err)
		}
	}
	for _, prefix := range []string{"%", "_", "________", "%-%"} {
		if _, _, err := s.Run(prefix); !errors.Is(err, ErrNotFound) {
			t.Errorf("Run(%q) error = %v want %v", prefix, err, ErrNotFound)
		}
	}
}

func TestRuns(t *testing.T) {
	s := openTestStore(t)
	for _, label := range []string{"first", "second", "third"} {
		if err := s.SaveRun(run(t, label), "momentum"); err != nil {
			t.Fatalf("SaveRun(%s) error: %v", label, err)
		}
	}

	all, err := s.Runs(0)
	if err != nil {
		t.Fatalf("Runs(0) error: %v", err)
	}
	if len(all) != 3 || all[0].Label != "third" || all[2].Label != "first" {
		t.Errorf("Runs(0) = %v want newest first", all)
	}

	latest, err := s.Runs(2)
	if err != nil {
		t.Fatalf("Runs(2) error: %v", err)
	}
	if len(latest) != 2 {
		t.Errorf("Runs(2) returned %d runs want 2", len(latest))
	}
}

func TestSaveEmptyRun(t *testing.T) {
	s := openTestStore(t)
	r := &backtest.Result{ID: "empty", Currency: "EUR", Start: 1000, Stats: backtest.NewStatistics(1000, nil)}
	if err := s.SaveRun(r, "hold"); err != nil {
		t.Fatalf("SaveRun(empty) error: %v", err)
	}
	sum, got, err := s.Run("empty")
	if err != nil {
		t.Fatalf("Run(empty) error: %v", err)
	}
	if !math.IsNaN(sum.Final) || !math.IsNaN(float64(sum.ROI)) || !math.IsNaN(sum.Volatility) {
		t.Errorf("Run(empty) summary = %+v want NaN final, ROI and volatility", sum)
	}
	if got.Len() != 0 || !math.IsNaN(float64(got.Stats.ROI)) {
		t.Errorf("Run(empty) = %+v want an empty run", got)
	}
}

func TestSaveRunTwice(t *testing.T) {
	s := openTestStore(t)
	r := run(t, "dup")
	if err := s.SaveRun(r, ""); err != nil {
		t.Fatalf("SaveRun() error: %v", err)
	}
	if err := s.SaveRun(r, ""); err == nil {
		t.Errorf("second SaveRun() succeeded want a duplicate id error")
	}
	runs, err := s.Runs(0)
	if err != nil || len(runs) != 1 {
		t.Errorf("Runs() = %v, %v want a single run", runs, err)
	}
}

func TestDelete(t *testing.T) {
	s := openTestStore(t)
	r := run(t, "gone")
	if err := s.SaveRun(r, ""); err != nil {
		t.Fatalf("SaveRun() error: %v", err)
	}
	if err := s.Delete(r.ID); err != nil {
		t.Fatalf("Delete() error: %v", err)
	}
	if _, _, err := s.Run(r.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("Run() after Delete() error = %v want %v", err, ErrNotFound)
	}
	if err := s.Delete(r.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("second Delete() error = %v want %v", err, ErrNotFound)
	}
}

func TestMigrateIsIdempotent(t *testing.T) {
	s := openTestStore(t)
	if err := s.migrate(); err != nil {
		t.Fatalf("second migrate() error: %v", err)
	}
	var version int
	if err := s.sql.QueryRow("SELECT MAX(version) FROM schema_version").Scan(&version); err != nil || version != 2 {
		t.Errorf("schema version = %d, %v want 2", version, err)
	}
}

func TestMigrateUnreadableVersion(t *testing.T) {
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatal(err)
	}
	db.SetMaxOpenConns(1)
	defer db.Close()
	if _, err := db.Exec(`
		CREATE TABLE schema_version (version TEXT);
		INSERT INTO schema_version (version) VALUES ('garbage');
	`); err != nil {
		t.Fatal(err)
	}
	s := &Store{sql: db}
	if err := s.migrate(); err == nil {
		t.Errorf("migrate() with an unreadable schema version succeeded want error")
	}
}
