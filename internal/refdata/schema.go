package refdata

// schemaSQL bootstraps the four tables the Reference Data Store owns:
// securities and broker_configs (operational config), fallback_min_rates
// (the persisted rung of the feed fallback ladder), and audit_log
// (append-only, written by internal/auditsink). Indexes back the
// lookups the Pricing Orchestrator does on every request.
const schemaSQL = `
CREATE TABLE IF NOT EXISTS securities (
	ticker TEXT PRIMARY KEY,
	ticker_min_rate TEXT NOT NULL,
	borrow_status TEXT NOT NULL DEFAULT 'MEDIUM',
	active INTEGER NOT NULL DEFAULT 1,
	updated_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS broker_configs (
	client_id TEXT PRIMARY KEY,
	markup_percentage TEXT NOT NULL,
	txn_fee_type TEXT NOT NULL,
	txn_fee_amount TEXT NOT NULL,
	rate_limit_per_minute INTEGER NOT NULL,
	active INTEGER NOT NULL DEFAULT 1,
	updated_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS fallback_min_rates (
	ticker TEXT PRIMARY KEY,
	rate TEXT NOT NULL,
	updated_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS audit_log (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	correlation_id TEXT NOT NULL,
	client_id TEXT NOT NULL,
	ticker TEXT NOT NULL,
	total_fee TEXT NOT NULL,
	borrow_rate_used TEXT NOT NULL,
	fallback_used TEXT NOT NULL,
	created_at TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_audit_log_client_created ON audit_log(client_id, created_at);
CREATE INDEX IF NOT EXISTS idx_securities_active ON securities(active);
`
