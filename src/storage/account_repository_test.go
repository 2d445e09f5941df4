package storage

import (
	"context"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/username/tradefolio/backend/src/models"
)

func newMockAccountRepo(t *testing.T) (*SQLiteAccountRepository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewSQLiteAccountRepository(db), mock
}

func TestAccountCreate(t *testing.T) {
	repo, mock := newMockAccountRepo(t)

	mock.ExpectExec(regexp.QuoteMeta(
		`INSERT INTO trading_accounts (id, user_id, name, broker, currency) VALUES (?, ?, ?, ?, ?)`)).
		WithArgs("acc-1", int64(7), "Futures", "AMP", "USD").
		WillReturnResult(sqlmock.NewResult(1, 1))

	err := repo.Create(context.Background(), &models.TradingAccount{
		ID: "acc-1", UserID: 7, Name: "Futures", Broker: "AMP", Currency: "USD",
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAccountListByUser(t *testing.T) {
	repo, mock := newMockAccountRepo(t)

	mock.ExpectQuery(regexp.QuoteMeta(
		`SELECT id, user_id, name, broker, currency FROM trading_accounts`)).
		WithArgs(int64(7)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "user_id", "name", "broker", "currency"}).
			AddRow("acc-1", int64(7), "Futures", "AMP", nil))

	accounts, err := repo.ListByUser(context.Background(), 7)
	require.NoError(t, err)
	require.Len(t, accounts, 1)
	assert.Equal(t, "Futures", accounts[0].Name)
	assert.Empty(t, accounts[0].Currency)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAccountBelongsToUser(t *testing.T) {
	repo, mock := newMockAccountRepo(t)
	query := regexp.QuoteMeta(`SELECT id FROM trading_accounts WHERE id = ? AND user_id = ?`)

	mock.ExpectQuery(query).WithArgs("acc-1", int64(7)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("acc-1"))
	owned, err := repo.BelongsToUser(context.Background(), "acc-1", 7)
	require.NoError(t, err)
	assert.True(t, owned)

	mock.ExpectQuery(query).WithArgs("acc-1", int64(8)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))
	owned, err = repo.BelongsToUser(context.Background(), "acc-1", 8)
	require.NoError(t, err)
	assert.False(t, owned, "a missing row is not an error, just not owned")

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestImportRecordAndList(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	repo := NewSQLiteImportRepository(db)

	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO import_files`)).
		WithArgs("imp-1", int64(7), "acc-1", "trades.csv", "abc123", 12).
		WillReturnResult(sqlmock.NewResult(1, 1))
	err = repo.Record(context.Background(), &models.ImportFile{
		ID: "imp-1", UserID: 7, AccountID: "acc-1",
		Filename: "trades.csv", Hash: "abc123", RowCount: 12,
	})
	require.NoError(t, err)

	mock.ExpectQuery(regexp.QuoteMeta(
		`SELECT id, user_id, account_id, filename, hash, row_count FROM import_files`)).
		WithArgs(int64(7), 50).
		WillReturnRows(sqlmock.NewRows(
			[]string{"id", "user_id", "account_id", "filename", "hash", "row_count"}).
			AddRow("imp-1", int64(7), "acc-1", "trades.csv", "abc123", 12))
	files, err := repo.ListByUser(context.Background(), 7, 50)
	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.Equal(t, "trades.csv", files[0].Filename)
	assert.Equal(t, 12, files[0].RowCount)

	assert.NoError(t, mock.ExpectationsWereMet())
}
