package journal

// Schema creates the run journal tables. run_id is a ULID so rows sort by
// creation time.
const Schema = `
CREATE TABLE IF NOT EXISTS runs (
	run_id           TEXT PRIMARY KEY,
	created          TIMESTAMP NOT NULL,
	snapshot_time_ms INTEGER NOT NULL,
	end_time_ms      INTEGER NOT NULL,
	events_processed INTEGER NOT NULL,
	adl_events       INTEGER NOT NULL,
	liquidations     INTEGER NOT NULL,
	accounts_tracked INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS adl_events (
	run_id                  TEXT NOT NULL REFERENCES runs(run_id),
	user                    TEXT NOT NULL,
	coin                    TEXT NOT NULL,
	time_ms                 INTEGER NOT NULL,
	adl_price               REAL NOT NULL,
	adl_size                REAL NOT NULL,
	adl_notional            REAL NOT NULL,
	closed_pnl              REAL NOT NULL,
	position_size           REAL NOT NULL,
	entry_price             REAL NOT NULL,
	account_value           REAL NOT NULL,
	total_unrealized_pnl    REAL NOT NULL,
	total_equity            REAL NOT NULL,
	is_negative_equity      INTEGER NOT NULL,
	leverage                REAL NOT NULL,
	position_unrealized_pnl REAL NOT NULL,
	pnl_percent             REAL NOT NULL,
	liquidated_user         TEXT
);

CREATE INDEX IF NOT EXISTS idx_adl_events_run ON adl_events(run_id, time_ms);
`
