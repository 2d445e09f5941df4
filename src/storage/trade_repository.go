package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/username/tradefolio/backend/src/logger"
	"github.com/username/tradefolio/backend/src/models"
)

type SQLiteTradeRepository struct {
	db *sql.DB
}

func NewSQLiteTradeRepository(db *sql.DB) *SQLiteTradeRepository {
	return &SQLiteTradeRepository{db: db}
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}

func decimalArg(d *decimal.Decimal) any {
	if d == nil {
		return nil
	}
	return d.String()
}

func scanDecimal(s sql.NullString) *decimal.Decimal {
	if !s.Valid || s.String == "" {
		return nil
	}
	d, err := decimal.NewFromString(s.String)
	if err != nil {
		return nil
	}
	return &d
}

func timeArg(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

func scanTime(s string) time.Time {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}
	}
	return t
}

func (r *SQLiteTradeRepository) ExistingExternalIDs(ctx context.Context, accountID string, externalIDs []string) (map[string]bool, error) {
	existing := make(map[string]bool)
	if len(externalIDs) == 0 {
		return existing, nil
	}

	query := fmt.Sprintf(
		`SELECT external_id FROM trades WHERE account_id = ? AND external_id IN (%s)`,
		placeholders(len(externalIDs)))
	args := make([]any, 0, len(externalIDs)+1)
	args = append(args, accountID)
	for _, id := range externalIDs {
		args = append(args, id)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying existing external ids: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var id sql.NullString
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scanning external id: %w", err)
		}
		if id.Valid && id.String != "" {
			existing[id.String] = true
		}
	}
	return existing, rows.Err()
}

func (r *SQLiteTradeRepository) TradesOpenedAt(ctx context.Context, accountID string, openedAt []time.Time) ([]TradeKey, error) {
	if len(openedAt) == 0 {
		return nil, nil
	}

	query := fmt.Sprintf(
		`SELECT symbol, side, opened_at, entry_price, quantity, external_id
		 FROM trades WHERE account_id = ? AND opened_at IN (%s)`,
		placeholders(len(openedAt)))
	args := make([]any, 0, len(openedAt)+1)
	args = append(args, accountID)
	for _, t := range openedAt {
		args = append(args, timeArg(t))
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying trades by opened_at: %w", err)
	}
	defer rows.Close()

	var keys []TradeKey
	for rows.Next() {
		var (
			key        TradeKey
			side       string
			opened     string
			entry, qty sql.NullString
			externalID sql.NullString
		)
		if err := rows.Scan(&key.Symbol, &side, &opened, &entry, &qty, &externalID); err != nil {
			return nil, fmt.Errorf("scanning trade key: %w", err)
		}
		key.Side = models.TradeSide(side)
		key.OpenedAt = scanTime(opened)
		key.EntryPrice = scanDecimal(entry)
		key.Quantity = scanDecimal(qty)
		key.ExternalID = externalID.String
		keys = append(keys, key)
	}
	return keys, rows.Err()
}

func (r *SQLiteTradeRepository) InsertTrades(ctx context.Context, trades []models.Trade) (int, error) {
	if len(trades) == 0 {
		return 0, nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("beginning insert transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `INSERT OR IGNORE INTO trades
		(account_id, user_id, symbol, side, quantity, entry_price, exit_price,
		 stop_loss, take_profit, fees, profit_loss, opened_at, closed_at,
		 notes, strategy_tag, external_id, fingerprint, raw)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return 0, fmt.Errorf("preparing trade insert: %w", err)
	}
	defer stmt.Close()

	inserted := 0
	for _, t := range trades {
		var closedAt any
		if t.ClosedAt != nil {
			closedAt = timeArg(*t.ClosedAt)
		}
		var raw any
		if len(t.Raw) > 0 {
			b, err := json.Marshal(t.Raw)
			if err != nil {
				return 0, fmt.Errorf("encoding raw row for fingerprint %s: %w", t.Fingerprint, err)
			}
			raw = string(b)
		}

		res, err := stmt.ExecContext(ctx,
			t.AccountID, t.UserID, t.Symbol, string(t.Side),
			decimalArg(t.Quantity), decimalArg(t.EntryPrice), decimalArg(t.ExitPrice),
			decimalArg(t.StopLoss), decimalArg(t.TakeProfit), decimalArg(t.Fees),
			decimalArg(t.ProfitLoss), timeArg(t.OpenedAt), closedAt,
			t.Notes, t.StrategyTag, t.ExternalID, t.Fingerprint, raw)
		if err != nil {
			return 0, fmt.Errorf("inserting trade (fingerprint %s): %w", t.Fingerprint, err)
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return 0, fmt.Errorf("reading rows affected: %w", err)
		}
		if affected == 0 {
			logger.L.Debug("Skipped conflicting trade on insert", "accountID", t.AccountID, "fingerprint", t.Fingerprint)
			continue
		}
		inserted++
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("committing trade inserts: %w", err)
	}
	return inserted, nil
}

func (r *SQLiteTradeRepository) ListTrades(ctx context.Context, accountID string) ([]models.Trade, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, account_id, symbol, side,
		quantity, entry_price, exit_price, stop_loss, take_profit, fees,
		profit_loss, opened_at, closed_at, notes, strategy_tag, external_id,
		fingerprint, raw
		FROM trades WHERE account_id = ? ORDER BY opened_at DESC, id DESC`, accountID)
	if err != nil {
		return nil, fmt.Errorf("listing trades: %w", err)
	}
	defer rows.Close()

	var trades []models.Trade
	for rows.Next() {
		var (
			t                                   models.Trade
			side, opened                        string
			qty, entry, exit, stop, take        sql.NullString
			fees, pnl, closed, notes, tag       sql.NullString
			externalID, raw                     sql.NullString
		)
		if err := rows.Scan(&t.ID, &t.AccountID, &t.Symbol, &side,
			&qty, &entry, &exit, &stop, &take, &fees,
			&pnl, &opened, &closed, &notes, &tag, &externalID,
			&t.Fingerprint, &raw); err != nil {
			return nil, fmt.Errorf("scanning trade: %w", err)
		}
		t.Side = models.TradeSide(side)
		t.Quantity = scanDecimal(qty)
		t.EntryPrice = scanDecimal(entry)
		t.ExitPrice = scanDecimal(exit)
		t.StopLoss = scanDecimal(stop)
		t.TakeProfit = scanDecimal(take)
		t.Fees = scanDecimal(fees)
		t.ProfitLoss = scanDecimal(pnl)
		t.OpenedAt = scanTime(opened)
		if closed.Valid && closed.String != "" {
			ct := scanTime(closed.String)
			t.ClosedAt = &ct
		}
		t.Notes = notes.String
		t.StrategyTag = tag.String
		t.ExternalID = externalID.String
		if raw.Valid && raw.String != "" {
			if err := json.Unmarshal([]byte(raw.String), &t.Raw); err != nil {
				logger.L.Warn("Failed to decode stored raw row", "tradeID", t.ID, "error", err)
			}
		}
		trades = append(trades, t)
	}
	return trades, rows.Err()
}

func (r *SQLiteTradeRepository) DeleteTrades(ctx context.Context, accountID string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM trades WHERE account_id = ?`, accountID); err != nil {
		return fmt.Errorf("deleting trades for account %s: %w", accountID, err)
	}
	return nil
}
