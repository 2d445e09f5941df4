package services

import (
	"context"
	"errors"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/username/tradefolio/backend/src/imports"
	"github.com/username/tradefolio/backend/src/logger"
	"github.com/username/tradefolio/backend/src/models"
	"github.com/username/tradefolio/backend/src/storage"
)

func TestMain(m *testing.M) {
	logger.InitLogger("error")
	os.Exit(m.Run())
}

// --- fakes ---

type fakeAccountRepo struct {
	owners map[string]int64
	err    error
}

func (f *fakeAccountRepo) Create(ctx context.Context, account *models.TradingAccount) error {
	f.owners[account.ID] = account.UserID
	return nil
}

func (f *fakeAccountRepo) ListByUser(ctx context.Context, userID int64) ([]models.TradingAccount, error) {
	return nil, nil
}

func (f *fakeAccountRepo) BelongsToUser(ctx context.Context, accountID string, userID int64) (bool, error) {
	if f.err != nil {
		return false, f.err
	}
	return f.owners[accountID] == userID, nil
}

// fakeTradeRepo keeps trades in memory and enforces the same
// skip-on-conflict insert contract as the sqlite implementation. With
// concealExisting set, the lookup methods pretend the store is empty so
// a test can drive a commit into the uniqueness backstop.
type fakeTradeRepo struct {
	trades          []models.Trade
	concealExisting bool
}

func (f *fakeTradeRepo) ExistingExternalIDs(ctx context.Context, accountID string, externalIDs []string) (map[string]bool, error) {
	found := make(map[string]bool)
	if f.concealExisting {
		return found, nil
	}
	want := make(map[string]bool, len(externalIDs))
	for _, id := range externalIDs {
		want[id] = true
	}
	for _, t := range f.trades {
		if t.AccountID == accountID && t.ExternalID != "" && want[t.ExternalID] {
			found[t.ExternalID] = true
		}
	}
	return found, nil
}

func (f *fakeTradeRepo) TradesOpenedAt(ctx context.Context, accountID string, openedAt []time.Time) ([]storage.TradeKey, error) {
	var keys []storage.TradeKey
	if f.concealExisting {
		return keys, nil
	}
	for _, t := range f.trades {
		if t.AccountID != accountID {
			continue
		}
		for _, at := range openedAt {
			if t.OpenedAt.UTC().Equal(at) {
				keys = append(keys, storage.TradeKey{
					Symbol:     t.Symbol,
					Side:       t.Side,
					OpenedAt:   t.OpenedAt,
					EntryPrice: t.EntryPrice,
					Quantity:   t.Quantity,
					ExternalID: t.ExternalID,
				})
				break
			}
		}
	}
	return keys, nil
}

func (f *fakeTradeRepo) InsertTrades(ctx context.Context, trades []models.Trade) (int, error) {
	inserted := 0
	for _, trade := range trades {
		conflict := false
		for _, existing := range f.trades {
			if existing.AccountID == trade.AccountID && existing.Fingerprint == trade.Fingerprint {
				conflict = true
				break
			}
		}
		if conflict {
			continue
		}
		f.trades = append(f.trades, trade)
		inserted++
	}
	return inserted, nil
}

func (f *fakeTradeRepo) ListTrades(ctx context.Context, accountID string) ([]models.Trade, error) {
	return nil, nil
}

func (f *fakeTradeRepo) DeleteTrades(ctx context.Context, accountID string) error {
	return nil
}

type fakeImportRepo struct {
	files []models.ImportFile
}

func (f *fakeImportRepo) Record(ctx context.Context, file *models.ImportFile) error {
	f.files = append(f.files, *file)
	return nil
}

func (f *fakeImportRepo) ListByUser(ctx context.Context, userID int64, limit int) ([]models.ImportFile, error) {
	return f.files, nil
}

// --- helpers ---

const (
	testUserID    = int64(7)
	testAccountID = "acc-1"
)

func newTestService(tradeRepo *fakeTradeRepo) ImportService {
	accounts := &fakeAccountRepo{owners: map[string]int64{testAccountID: testUserID}}
	return NewImportService(tradeRepo, accounts, &fakeImportRepo{},
		cache.New(DefaultCacheExpiration, CacheCleanupInterval))
}

func dec(s string) *decimal.Decimal {
	d := decimal.RequireFromString(s)
	return &d
}

func seedTrade(repo *fakeTradeRepo, symbol string, side models.TradeSide, openedAt time.Time, entryPrice, quantity *decimal.Decimal, externalID string) {
	repo.trades = append(repo.trades, models.Trade{
		AccountID:   testAccountID,
		UserID:      testUserID,
		Symbol:      symbol,
		Side:        side,
		OpenedAt:    openedAt,
		EntryPrice:  entryPrice,
		Quantity:    quantity,
		ExternalID:  externalID,
		Fingerprint: imports.Fingerprint(symbol, side, openedAt, entryPrice, quantity, externalID),
	})
}

func candidate(symbol string, openedAt time.Time, externalID string) imports.NormalizedTrade {
	return imports.NormalizedTrade{
		Symbol:     symbol,
		Side:       models.SideLong,
		OpenedAt:   openedAt,
		EntryPrice: dec("100"),
		Quantity:   dec("1"),
		ExternalID: externalID,
	}
}

// --- preview ---

func TestPreviewAnnotatesExistingByExternalID(t *testing.T) {
	repo := &fakeTradeRepo{}
	seedTrade(repo, "AAPL", models.SideLong, time.Date(2024, 10, 1, 0, 0, 0, 0, time.UTC), dec("190.5"), dec("10"), "T1")
	svc := newTestService(repo)

	csvText := strings.Join([]string{
		"symbol,side,open date,trade id",
		"AAPL,Buy,2024-10-01,T1",
		"MSFT,Buy,2024-10-02,T2",
	}, "\n")

	result, err := svc.Preview(context.Background(), testUserID, testAccountID, csvText, imports.Options{})
	require.NoError(t, err)
	require.Len(t, result.Trades, 2)
	assert.True(t, result.Trades[0].AlreadyExists)
	assert.False(t, result.Trades[1].AlreadyExists)
}

func TestPreviewAnnotatesExistingByCompositeFingerprint(t *testing.T) {
	repo := &fakeTradeRepo{}
	seedTrade(repo, "AAPL", models.SideLong, time.Date(2024, 10, 1, 9, 32, 0, 0, time.UTC), dec("190.5"), dec("10"), "")
	svc := newTestService(repo)

	csvText := strings.Join([]string{
		"symbol,side,open date,entry time,entry price,qty",
		"AAPL,Buy,2024-10-01,09:32,190.5,10",
		"AAPL,Buy,2024-10-01,09:32,191,10",
	}, "\n")

	result, err := svc.Preview(context.Background(), testUserID, testAccountID, csvText, imports.Options{})
	require.NoError(t, err)
	require.Len(t, result.Trades, 2)
	assert.True(t, result.Trades[0].AlreadyExists, "same composite identity must be flagged")
	assert.False(t, result.Trades[1].AlreadyExists, "different entry price is a different trade")
}

func TestPreviewRejectsForeignAccount(t *testing.T) {
	svc := newTestService(&fakeTradeRepo{})

	_, err := svc.Preview(context.Background(), int64(999), testAccountID, "symbol,side\n", imports.Options{})
	assert.ErrorIs(t, err, ErrAccountNotFound)
}

func TestPreviewWrapsParseFailure(t *testing.T) {
	svc := newTestService(&fakeTradeRepo{})

	_, err := svc.Preview(context.Background(), testUserID, testAccountID, "", imports.Options{})
	assert.ErrorIs(t, err, ErrParsingFailed)
}

func TestPreviewIsCachedPerUser(t *testing.T) {
	svc := newTestService(&fakeTradeRepo{})

	csvText := "symbol,side,open date\nAAPL,Buy,2024-10-01\n"
	result, err := svc.Preview(context.Background(), testUserID, testAccountID, csvText, imports.Options{})
	require.NoError(t, err)

	cached, found := svc.LatestPreview(testUserID)
	require.True(t, found)
	assert.Equal(t, result, cached)

	_, found = svc.LatestPreview(int64(999))
	assert.False(t, found)
}

// --- commit ---

func TestCommitThenRecommitInsertsNothing(t *testing.T) {
	repo := &fakeTradeRepo{}
	svc := newTestService(repo)

	batch := []imports.NormalizedTrade{
		candidate("AAPL", time.Date(2024, 10, 1, 9, 32, 0, 0, time.UTC), "T1"),
		candidate("MSFT", time.Date(2024, 10, 2, 9, 32, 0, 0, time.UTC), ""),
	}

	first, err := svc.Commit(context.Background(), testUserID, testAccountID, batch)
	require.NoError(t, err)
	assert.Equal(t, &CommitResult{Inserted: 2, Skipped: 0, Duplicates: 0}, first)

	second, err := svc.Commit(context.Background(), testUserID, testAccountID, batch)
	require.NoError(t, err)
	assert.Equal(t, &CommitResult{Inserted: 0, Skipped: 2, Duplicates: 2}, second)
	assert.Len(t, repo.trades, 2)
}

func TestCommitDeduplicatesWithinBatch(t *testing.T) {
	repo := &fakeTradeRepo{}
	svc := newTestService(repo)

	openedAt := time.Date(2024, 10, 1, 9, 32, 0, 0, time.UTC)
	batch := []imports.NormalizedTrade{
		candidate("AAPL", openedAt, ""),
		candidate("AAPL", openedAt, ""),
	}

	result, err := svc.Commit(context.Background(), testUserID, testAccountID, batch)
	require.NoError(t, err)
	assert.Equal(t, &CommitResult{Inserted: 1, Skipped: 1, Duplicates: 1}, result)
}

func TestCommitReportsActualInsertCountUnderConflict(t *testing.T) {
	// Another commit won the race: the row exists but the fingerprint
	// lookup did not see it. The uniqueness backstop skips the insert and
	// the result reflects what was actually written.
	repo := &fakeTradeRepo{concealExisting: true}
	openedAt := time.Date(2024, 10, 1, 9, 32, 0, 0, time.UTC)
	seedTrade(repo, "AAPL", models.SideLong, openedAt, dec("100"), dec("1"), "T1")
	svc := newTestService(repo)

	result, err := svc.Commit(context.Background(), testUserID, testAccountID,
		[]imports.NormalizedTrade{candidate("AAPL", openedAt, "T1")})
	require.NoError(t, err)
	assert.Equal(t, &CommitResult{Inserted: 0, Skipped: 1, Duplicates: 0}, result)
}

func TestCommitValidatesCandidates(t *testing.T) {
	svc := newTestService(&fakeTradeRepo{})
	openedAt := time.Date(2024, 10, 1, 9, 32, 0, 0, time.UTC)

	tests := []struct {
		name  string
		trade imports.NormalizedTrade
	}{
		{"missing symbol", imports.NormalizedTrade{Side: models.SideLong, OpenedAt: openedAt}},
		{"invalid side", imports.NormalizedTrade{Symbol: "AAPL", Side: "HOLD", OpenedAt: openedAt}},
		{"zero openedAt", imports.NormalizedTrade{Symbol: "AAPL", Side: models.SideLong}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Commit(context.Background(), testUserID, testAccountID,
				[]imports.NormalizedTrade{tt.trade})
			assert.ErrorIs(t, err, ErrInvalidTrade)
		})
	}
}

func TestCommitRejectsForeignAccount(t *testing.T) {
	svc := newTestService(&fakeTradeRepo{})

	_, err := svc.Commit(context.Background(), testUserID, "someone-elses-account", nil)
	assert.ErrorIs(t, err, ErrAccountNotFound)
}

func TestCommitInvalidatesCachedPreview(t *testing.T) {
	svc := newTestService(&fakeTradeRepo{})

	csvText := "symbol,side,open date\nAAPL,Buy,2024-10-01\n"
	_, err := svc.Preview(context.Background(), testUserID, testAccountID, csvText, imports.Options{})
	require.NoError(t, err)
	_, found := svc.LatestPreview(testUserID)
	require.True(t, found)

	_, err = svc.Commit(context.Background(), testUserID, testAccountID,
		[]imports.NormalizedTrade{candidate("AAPL", time.Date(2024, 10, 1, 0, 0, 0, 0, time.UTC), "")})
	require.NoError(t, err)

	_, found = svc.LatestPreview(testUserID)
	assert.False(t, found, "a commit must invalidate the cached preview")
}

func TestCommitPropagatesOwnershipError(t *testing.T) {
	accounts := &fakeAccountRepo{owners: map[string]int64{}, err: errors.New("db gone")}
	svc := NewImportService(&fakeTradeRepo{}, accounts, &fakeImportRepo{},
		cache.New(DefaultCacheExpiration, CacheCleanupInterval))

	_, err := svc.Commit(context.Background(), testUserID, testAccountID, nil)
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrAccountNotFound)
}
