package storage

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/username/tradefolio/backend/src/models"
)

type SQLiteAccountRepository struct {
	db *sql.DB
}

func NewSQLiteAccountRepository(db *sql.DB) *SQLiteAccountRepository {
	return &SQLiteAccountRepository{db: db}
}

func (r *SQLiteAccountRepository) Create(ctx context.Context, account *models.TradingAccount) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO trading_accounts (id, user_id, name, broker, currency) VALUES (?, ?, ?, ?, ?)`,
		account.ID, account.UserID, account.Name, account.Broker, account.Currency)
	if err != nil {
		return fmt.Errorf("creating trading account: %w", err)
	}
	return nil
}

func (r *SQLiteAccountRepository) ListByUser(ctx context.Context, userID int64) ([]models.TradingAccount, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, user_id, name, broker, currency FROM trading_accounts
		 WHERE user_id = ? ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("listing trading accounts: %w", err)
	}
	defer rows.Close()

	var accounts []models.TradingAccount
	for rows.Next() {
		var (
			a               models.TradingAccount
			broker, currency sql.NullString
		)
		if err := rows.Scan(&a.ID, &a.UserID, &a.Name, &broker, &currency); err != nil {
			return nil, fmt.Errorf("scanning trading account: %w", err)
		}
		a.Broker = broker.String
		a.Currency = currency.String
		accounts = append(accounts, a)
	}
	return accounts, rows.Err()
}

func (r *SQLiteAccountRepository) BelongsToUser(ctx context.Context, accountID string, userID int64) (bool, error) {
	var id string
	err := r.db.QueryRowContext(ctx,
		`SELECT id FROM trading_accounts WHERE id = ? AND user_id = ?`,
		accountID, userID).Scan(&id)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("checking account ownership: %w", err)
	}
	return true, nil
}
