/*
Package ledger records training-run and per-iteration metadata to a small
sqlite database, purely for observability (SPEC_FULL.md §4.8): the trainer
never reads the ledger back to make a decision. Schema creation and
parameterized inserts follow the same sqlx.MustConnect +
"CREATE TABLE ...; db.MustExec(...)" style synthesis.go uses, swapped onto
modernc.org/sqlite's CGO-less driver so the module stays pure Go.
*/
package ledger

import (
	"fmt"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"
)

// Ledger is a thin wrapper over a sqlite-backed training log.
type Ledger struct {
	db *sqlx.DB
}

const schemaSQL = `
CREATE TABLE IF NOT EXISTS run (
	run_id TEXT PRIMARY KEY,
	started_at TEXT NOT NULL,
	flags TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS iteration (
	run_id TEXT NOT NULL,
	iteration INTEGER NOT NULL,
	mean_loss REAL NOT NULL,
	param_checksum TEXT NOT NULL,
	PRIMARY KEY (run_id, iteration)
);
`

// Open creates (if needed) and connects to the sqlite file at path.
func Open(path string) (*Ledger, error) {
	db := sqlx.MustConnect("sqlite", path)
	db.MustExec(schemaSQL)
	return &Ledger{db: db}, nil
}

// Close releases the underlying database handle.
func (l *Ledger) Close() error { return l.db.Close() }

// StartRun records the beginning of a training run.
func (l *Ledger) StartRun(runID, startedAt, flagSummary string) error {
	_, err := l.db.Exec(`INSERT INTO run(run_id, started_at, flags) VALUES (?, ?, ?)`, runID, startedAt, flagSummary)
	if err != nil {
		return fmt.Errorf("ledger: start run: %w", err)
	}
	return nil
}

// RecordIteration appends one completed training iteration's summary stats.
func (l *Ledger) RecordIteration(runID string, iteration int, meanLoss float64, paramChecksum string) error {
	_, err := l.db.Exec(
		`INSERT INTO iteration(run_id, iteration, mean_loss, param_checksum) VALUES (?, ?, ?, ?)`,
		runID, iteration, meanLoss, paramChecksum,
	)
	if err != nil {
		return fmt.Errorf("ledger: record iteration: %w", err)
	}
	return nil
}

// IterationRow is one row of the iteration table, returned by History.
type IterationRow struct {
	RunID         string  `db:"run_id"`
	Iteration     int     `db:"iteration"`
	MeanLoss      float64 `db:"mean_loss"`
	ParamChecksum string  `db:"param_checksum"`
}

// History returns every recorded iteration for runID in iteration order, for
// display only.
func (l *Ledger) History(runID string) ([]IterationRow, error) {
	var rows []IterationRow
	err := l.db.Select(&rows, `SELECT run_id, iteration, mean_loss, param_checksum FROM iteration WHERE run_id = ? ORDER BY iteration`, runID)
	if err != nil {
		return nil, fmt.Errorf("ledger: history: %w", err)
	}
	return rows, nil
}
