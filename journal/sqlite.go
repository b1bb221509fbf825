// Package journal persists replay runs and their derived ADL records in
// SQLite so past incident analyses stay queryable.
package journal

import (
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/hyperreplay/hyperreplay/replay"
)

// Run is one journaled replay run.
type Run struct {
	RunID           string
	Created         time.Time
	SnapshotTimeMs  int64
	EndTimeMs       int64
	EventsProcessed int
	ADLEvents       int
	Liquidations    int
	AccountsTracked int
}

type SQLite struct {
	db *sql.DB
}

func NewSQLite(path string) (*SQLite, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}
	if _, err := db.Exec(Schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return &SQLite{db: db}, nil
}

// RecordRun inserts the run row and its ADL records in one transaction.
func (j *SQLite) RecordRun(run Run, metrics []replay.Metrics) error {
	tx, err := j.db.Begin()
	if err != nil {
		return err
	}

	_, err = tx.Exec(`
		INSERT INTO runs
		(run_id, created, snapshot_time_ms, end_time_ms, events_processed, adl_events, liquidations, accounts_tracked)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		run.RunID, run.Created, run.SnapshotTimeMs, run.EndTimeMs,
		run.EventsProcessed, run.ADLEvents, run.Liquidations, run.AccountsTracked,
	)
	if err != nil {
		tx.Rollback()
		return fmt.Errorf("insert run: %w", err)
	}

	stmt, err := tx.Prepare(`
		INSERT INTO adl_events
		(run_id, user, coin, time_ms, adl_price, adl_size, adl_notional, closed_pnl,
		 position_size, entry_price, account_value, total_unrealized_pnl, total_equity,
		 is_negative_equity, leverage, position_unrealized_pnl, pnl_percent, liquidated_user)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		tx.Rollback()
		return err
	}
	defer stmt.Close()

	for _, m := range metrics {
		_, err = stmt.Exec(
			run.RunID, m.User, m.Coin, m.Time,
			m.ADLPrice, m.ADLSize, m.ADLNotional, m.ClosedPnl,
			m.PositionSize, m.EntryPrice, m.AccountValue,
			m.TotalUnrealizedPnl, m.TotalEquity, m.NegativeEquity,
			m.Leverage, m.PositionUnrealizedPnl, m.PnlPercent, m.LiquidatedUser,
		)
		if err != nil {
			tx.Rollback()
			return fmt.Errorf("insert adl event: %w", err)
		}
	}

	return tx.Commit()
}

// GetRun returns one run row by id.
func (j *SQLite) GetRun(runID string) (Run, error) {
	var run Run
	row := j.db.QueryRow(`
		SELECT run_id, created, snapshot_time_ms, end_time_ms, events_processed, adl_events, liquidations, accounts_tracked
		FROM runs WHERE run_id = ?`, runID)
	err := row.Scan(
		&run.RunID, &run.Created, &run.SnapshotTimeMs, &run.EndTimeMs,
		&run.EventsProcessed, &run.ADLEvents, &run.Liquidations, &run.AccountsTracked,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return Run{}, fmt.Errorf("run %q not found", runID)
		}
		return Run{}, err
	}
	return run, nil
}

// ListRuns returns all runs, newest ULID first.
func (j *SQLite) ListRuns() ([]Run, error) {
	rows, err := j.db.Query(`
		SELECT run_id, created, snapshot_time_ms, end_time_ms, events_processed, adl_events, liquidations, accounts_tracked
		FROM runs ORDER BY run_id DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Run
	for rows.Next() {
		var run Run
		if err := rows.Scan(
			&run.RunID, &run.Created, &run.SnapshotTimeMs, &run.EndTimeMs,
			&run.EventsProcessed, &run.ADLEvents, &run.Liquidations, &run.AccountsTracked,
		); err != nil {
			return nil, err
		}
		out = append(out, run)
	}
	return out, rows.Err()
}

// ListMetricsByRun returns a run's ADL records ordered by event time.
func (j *SQLite) ListMetricsByRun(runID string) ([]replay.Metrics, error) {
	rows, err := j.db.Query(`
		SELECT user, coin, time_ms, adl_price, adl_size, adl_notional, closed_pnl,
		       position_size, entry_price, account_value, total_unrealized_pnl, total_equity,
		       is_negative_equity, leverage, position_unrealized_pnl, pnl_percent, liquidated_user
		FROM adl_events
		WHERE run_id = ?
		ORDER BY time_ms ASC`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []replay.Metrics
	for rows.Next() {
		var m replay.Metrics
		var liquidated sql.NullString
		if err := rows.Scan(
			&m.User, &m.Coin, &m.Time,
			&m.ADLPrice, &m.ADLSize, &m.ADLNotional, &m.ClosedPnl,
			&m.PositionSize, &m.EntryPrice, &m.AccountValue,
			&m.TotalUnrealizedPnl, &m.TotalEquity, &m.NegativeEquity,
			&m.Leverage, &m.PositionUnrealizedPnl, &m.PnlPercent, &liquidated,
		); err != nil {
			return nil, err
		}
		m.LiquidatedUser = liquidated.String
		out = append(out, m)
	}
	return out, rows.Err()
}

func (j *SQLite) Close() error {
	return j.db.Close()
}
