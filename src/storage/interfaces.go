package storage

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/username/tradefolio/backend/src/models"
)

// TradeKey carries just enough of a persisted trade to re-derive its
// fingerprint locally.
type TradeKey struct {
	Symbol     string
	Side       models.TradeSide
	OpenedAt   time.Time
	EntryPrice *decimal.Decimal
	Quantity   *decimal.Decimal
	ExternalID string
}

// TradeRepository is the persistence boundary of the import pipeline.
// InsertTrades must skip rows conflicting on (account, fingerprint) and
// report only rows actually written; that uniqueness constraint is the
// sole correctness backstop for commits racing on the same account.
type TradeRepository interface {
	// ExistingExternalIDs returns which of the given broker IDs already
	// exist for the account.
	ExistingExternalIDs(ctx context.Context, accountID string, externalIDs []string) (map[string]bool, error)
	// TradesOpenedAt returns fingerprint keys of persisted trades whose
	// opened timestamp matches any of the given instants.
	TradesOpenedAt(ctx context.Context, accountID string, openedAt []time.Time) ([]TradeKey, error)
	// InsertTrades bulk-inserts with skip-on-conflict and returns the
	// number of rows actually inserted.
	InsertTrades(ctx context.Context, trades []models.Trade) (int, error)
	ListTrades(ctx context.Context, accountID string) ([]models.Trade, error)
	DeleteTrades(ctx context.Context, accountID string) error
}

// AccountRepository owns trading accounts and the ownership check the
// import operations rely on.
type AccountRepository interface {
	Create(ctx context.Context, account *models.TradingAccount) error
	ListByUser(ctx context.Context, userID int64) ([]models.TradingAccount, error)
	BelongsToUser(ctx context.Context, accountID string, userID int64) (bool, error)
}

// ImportRepository records the per-user import-file log.
type ImportRepository interface {
	Record(ctx context.Context, file *models.ImportFile) error
	ListByUser(ctx context.Context, userID int64, limit int) ([]models.ImportFile, error)
}
