package database

import (
	"database/sql"
	stdlog "log"

	"github.com/username/tradefolio/backend/src/logger"
	_ "modernc.org/sqlite"
)

var DB *sql.DB

func InitDB(databasePath string) {
	db, err := sql.Open("sqlite", databasePath)
	if err != nil {
		stdlog.Fatalf("failed to open database at %s: %v", databasePath, err)
	}

	DB = db

	// Decimal columns are TEXT on purpose: fingerprints are derived from
	// the exact decimal strings and must survive a round-trip.
	createTableStatement := `
	CREATE TABLE IF NOT EXISTS trading_accounts (
		id TEXT PRIMARY KEY,
		user_id INTEGER NOT NULL,
		name TEXT NOT NULL,
		broker TEXT,
		currency TEXT,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS trades (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		account_id TEXT NOT NULL,
		user_id INTEGER NOT NULL,
		symbol TEXT NOT NULL,
		side TEXT NOT NULL,
		quantity TEXT,
		entry_price TEXT,
		exit_price TEXT,
		stop_loss TEXT,
		take_profit TEXT,
		fees TEXT,
		profit_loss TEXT,
		opened_at TEXT NOT NULL,
		closed_at TEXT,
		notes TEXT,
		strategy_tag TEXT,
		external_id TEXT,
		fingerprint TEXT NOT NULL,
		raw TEXT,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		FOREIGN KEY(account_id) REFERENCES trading_accounts(id),
		UNIQUE(account_id, fingerprint)
	);

	CREATE INDEX IF NOT EXISTS idx_trades_account_opened ON trades(account_id, opened_at);
	CREATE INDEX IF NOT EXISTS idx_trades_account_external ON trades(account_id, external_id);

	CREATE TABLE IF NOT EXISTS import_files (
		id TEXT PRIMARY KEY,
		user_id INTEGER NOT NULL,
		account_id TEXT,
		filename TEXT NOT NULL,
		hash TEXT,
		row_count INTEGER,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);
	`

	_, err = DB.Exec(createTableStatement)
	if err != nil {
		if logger.L != nil {
			logger.L.Error("failed to create tables", "error", err)
		}
		stdlog.Fatalf("failed to create tables: %v", err)
	}
	if logger.L != nil {
		logger.L.Info("Database tables ensured/created.", "databasePath", databasePath)
	} else {
		stdlog.Println("Database tables ensured/created.")
	}
}
