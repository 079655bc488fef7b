// Package db persists deduplicated closed-trade records in SQLite. The
// ledger is append-only: a record, once inserted, is never mutated.
package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"trade-executor/pkg/exchanges/common"
)

const schema = `
CREATE TABLE IF NOT EXISTS closed_trades (
	id           INTEGER PRIMARY KEY AUTOINCREMENT,
	symbol       TEXT NOT NULL,
	side         TEXT NOT NULL,
	qty          REAL NOT NULL,
	exit_price   REAL NOT NULL,
	realized_pnl REAL NOT NULL,
	closed_at    TEXT NOT NULL,
	recorded_at  TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_closed_trades_identity
	ON closed_trades (symbol, exit_price, qty, side, closed_at);

CREATE INDEX IF NOT EXISTS idx_closed_trades_symbol
	ON closed_trades (symbol);
`

// Ledger wraps the SQL handle for easier swapping/testing.
type Ledger struct {
	DB *sql.DB
}

// New opens (and creates if needed) the SQLite ledger at path and applies
// the schema. Use ":memory:" in tests.
func New(path string) (*Ledger, error) {
	if path == "" {
		return nil, errors.New("ledger path is empty")
	}

	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("create ledger directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1) // SQLite prefers single writer.
	db.SetConnMaxLifetime(time.Hour)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply ledger schema: %w", err)
	}

	return &Ledger{DB: db}, nil
}

// Close releases the underlying DB handle.
func (l *Ledger) Close() error {
	if l == nil || l.DB == nil {
		return nil
	}
	return l.DB.Close()
}

// AppendIfAbsent inserts records that are not already present, keyed by
// (symbol, exit_price, qty, side, closed_at), and returns how many were
// actually inserted. Duplicates are silently skipped.
func (l *Ledger) AppendIfAbsent(ctx context.Context, records []common.ClosedTrade) (int, error) {
	if len(records) == 0 {
		return 0, nil
	}

	tx, err := l.DB.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin append: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO closed_trades (symbol, side, qty, exit_price, realized_pnl, closed_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (symbol, exit_price, qty, side, closed_at) DO NOTHING
	`)
	if err != nil {
		return 0, fmt.Errorf("prepare append: %w", err)
	}
	defer stmt.Close()

	inserted := 0
	for _, r := range records {
		res, err := stmt.ExecContext(ctx,
			r.Symbol,
			string(r.Side),
			r.Qty,
			r.ExitPrice,
			r.RealizedPnL,
			r.ClosedAt.UTC().Format(time.RFC3339),
		)
		if err != nil {
			return 0, fmt.Errorf("append closed trade: %w", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return 0, fmt.Errorf("append rows affected: %w", err)
		}
		inserted += int(n)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit append: %w", err)
	}
	return inserted, nil
}

// SumRealizedPnLBySymbol aggregates realized PnL per symbol over the entire
// ledger, not just recent rows.
func (l *Ledger) SumRealizedPnLBySymbol(ctx context.Context) (map[string]float64, error) {
	rows, err := l.DB.QueryContext(ctx, `
		SELECT symbol, SUM(realized_pnl)
		FROM closed_trades
		GROUP BY symbol
	`)
	if err != nil {
		return nil, fmt.Errorf("query pnl totals: %w", err)
	}
	defer rows.Close()

	totals := make(map[string]float64)
	for rows.Next() {
		var symbol string
		var pnl float64
		if err := rows.Scan(&symbol, &pnl); err != nil {
			return nil, fmt.Errorf("scan pnl total: %w", err)
		}
		totals[symbol] = pnl
	}
	return totals, rows.Err()
}

// RecentBySymbol returns up to limit most recent records for a symbol,
// newest first.
func (l *Ledger) RecentBySymbol(ctx context.Context, symbol string, limit int) ([]common.ClosedTrade, error) {
	rows, err := l.DB.QueryContext(ctx, `
		SELECT symbol, side, qty, exit_price, realized_pnl, closed_at
		FROM closed_trades
		WHERE symbol = ?
		ORDER BY closed_at DESC
		LIMIT ?
	`, symbol, limit)
	if err != nil {
		return nil, fmt.Errorf("query recent trades: %w", err)
	}
	defer rows.Close()

	var out []common.ClosedTrade
	for rows.Next() {
		var r common.ClosedTrade
		var side, closedAt string
		if err := rows.Scan(&r.Symbol, &side, &r.Qty, &r.ExitPrice, &r.RealizedPnL, &closedAt); err != nil {
			return nil, fmt.Errorf("scan closed trade: %w", err)
		}
		r.Side = common.Side(side)
		if t, err := time.Parse(time.RFC3339, closedAt); err == nil {
			r.ClosedAt = t
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
