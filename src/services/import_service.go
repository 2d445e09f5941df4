package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/patrickmn/go-cache"

	"github.com/username/tradefolio/backend/src/imports"
	"github.com/username/tradefolio/backend/src/logger"
	"github.com/username/tradefolio/backend/src/models"
	"github.com/username/tradefolio/backend/src/storage"
)

var (
	ErrAccountNotFound = errors.New("trading account not found for user")
	ErrParsingFailed   = errors.New("csv parsing failed")
	ErrInvalidTrade    = errors.New("invalid trade in commit payload")
)

const (
	ckLatestPreview = "latest_import_preview_user_%d"

	DefaultCacheExpiration = 15 * time.Minute
	CacheCleanupInterval   = 30 * time.Minute

	importLogLimit = 50
)

type importServiceImpl struct {
	trades      storage.TradeRepository
	accounts    storage.AccountRepository
	importFiles storage.ImportRepository
	resultCache *cache.Cache
}

func NewImportService(
	trades storage.TradeRepository,
	accounts storage.AccountRepository,
	importFiles storage.ImportRepository,
	resultCache *cache.Cache,
) ImportService {
	return &importServiceImpl{
		trades:      trades,
		accounts:    accounts,
		importFiles: importFiles,
		resultCache: resultCache,
	}
}

// Preview runs the normalization pipeline and annotates each candidate
// against persisted history. Read-only: no storage mutation.
func (s *importServiceImpl) Preview(ctx context.Context, userID int64, accountID, csvText string, opts imports.Options) (*PreviewResult, error) {
	startTime := time.Now()
	logger.L.Info("Preview START", "userID", userID, "accountID", accountID)

	if err := s.checkOwnership(ctx, accountID, userID); err != nil {
		return nil, err
	}

	parsed, err := imports.Parse(csvText, opts)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrParsingFailed, err)
	}

	existing, err := s.existingFingerprints(ctx, accountID, parsed.Trades)
	if err != nil {
		return nil, err
	}

	result := &PreviewResult{
		Trades:         make([]PreviewTrade, 0, len(parsed.Trades)),
		Skipped:        parsed.Skipped,
		HeaderMapping:  parsed.HeaderMapping,
		UnknownHeaders: parsed.UnknownHeaders,
		Warnings:       parsed.Warnings,
	}
	for _, trade := range parsed.Trades {
		result.Trades = append(result.Trades, PreviewTrade{
			NormalizedTrade: trade,
			AlreadyExists:   existing[imports.TradeFingerprint(trade)],
		})
	}

	s.resultCache.Set(fmt.Sprintf(ckLatestPreview, userID), result, cache.DefaultExpiration)

	logger.L.Info("Preview END", "userID", userID, "accountID", accountID,
		"trades", len(result.Trades), "skipped", len(result.Skipped),
		"duration", time.Since(startTime))
	return result, nil
}

// Commit persists the new subset of the candidates. The existing
// fingerprint set is recomputed here; any alreadyExists flag a client
// carried over from preview is ignored because it may be stale.
// Re-submitting an already-committed batch inserts zero rows.
func (s *importServiceImpl) Commit(ctx context.Context, userID int64, accountID string, candidates []imports.NormalizedTrade) (*CommitResult, error) {
	startTime := time.Now()
	logger.L.Info("Commit START", "userID", userID, "accountID", accountID, "candidates", len(candidates))

	if err := s.checkOwnership(ctx, accountID, userID); err != nil {
		return nil, err
	}

	for i, trade := range candidates {
		if trade.Symbol == "" || !trade.Side.Valid() {
			return nil, fmt.Errorf("%w: trade %d missing symbol or side", ErrInvalidTrade, i+1)
		}
		if trade.OpenedAt.IsZero() {
			return nil, fmt.Errorf("%w: trade %d has no openedAt timestamp", ErrInvalidTrade, i+1)
		}
	}

	existing, err := s.existingFingerprints(ctx, accountID, candidates)
	if err != nil {
		return nil, err
	}

	duplicates := 0
	toInsert := make([]models.Trade, 0, len(candidates))
	for _, trade := range candidates {
		fp := imports.TradeFingerprint(trade)
		if existing[fp] {
			duplicates++
			continue
		}
		existing[fp] = true
		toInsert = append(toInsert, models.Trade{
			AccountID:   accountID,
			UserID:      userID,
			Symbol:      trade.Symbol,
			Side:        trade.Side,
			Quantity:    trade.Quantity,
			EntryPrice:  trade.EntryPrice,
			ExitPrice:   trade.ExitPrice,
			StopLoss:    trade.StopLoss,
			TakeProfit:  trade.TakeProfit,
			Fees:        trade.Fees,
			ProfitLoss:  trade.ProfitLoss,
			OpenedAt:    trade.OpenedAt,
			ClosedAt:    trade.ClosedAt,
			Notes:       trade.Notes,
			StrategyTag: trade.StrategyTag,
			ExternalID:  trade.ExternalID,
			Fingerprint: fp,
			Raw:         trade.Raw,
		})
	}

	inserted, err := s.trades.InsertTrades(ctx, toInsert)
	if err != nil {
		return nil, fmt.Errorf("inserting trades: %w", err)
	}

	s.resultCache.Delete(fmt.Sprintf(ckLatestPreview, userID))

	logger.L.Info("Commit END", "userID", userID, "accountID", accountID,
		"inserted", inserted, "duplicates", duplicates, "duration", time.Since(startTime))
	return &CommitResult{
		Inserted:   inserted,
		Skipped:    len(candidates) - inserted,
		Duplicates: duplicates,
	}, nil
}

// LatestPreview returns the cached result of the user's most recent
// preview, if it has not expired or been invalidated by a commit.
func (s *importServiceImpl) LatestPreview(userID int64) (*PreviewResult, bool) {
	if cached, found := s.resultCache.Get(fmt.Sprintf(ckLatestPreview, userID)); found {
		return cached.(*PreviewResult), true
	}
	return nil, false
}

func (s *importServiceImpl) RecordImportFile(ctx context.Context, file *models.ImportFile) error {
	return s.importFiles.Record(ctx, file)
}

func (s *importServiceImpl) ListImportFiles(ctx context.Context, userID int64) ([]models.ImportFile, error) {
	return s.importFiles.ListByUser(ctx, userID, importLogLimit)
}

func (s *importServiceImpl) checkOwnership(ctx context.Context, accountID string, userID int64) error {
	owned, err := s.accounts.BelongsToUser(ctx, accountID, userID)
	if err != nil {
		return fmt.Errorf("verifying account ownership: %w", err)
	}
	if !owned {
		return ErrAccountNotFound
	}
	return nil
}

// existingFingerprints resolves which candidate fingerprints are already
// persisted for the account. Two passes instead of a full-table scan:
// direct external ID match first, then an openedAt match with local
// fingerprint re-derivation for candidates without a broker ID.
func (s *importServiceImpl) existingFingerprints(ctx context.Context, accountID string, candidates []imports.NormalizedTrade) (map[string]bool, error) {
	existing := make(map[string]bool)
	if len(candidates) == 0 {
		return existing, nil
	}

	var externalIDs []string
	var withoutExternal []imports.NormalizedTrade
	for _, trade := range candidates {
		if trade.ExternalID != "" {
			externalIDs = append(externalIDs, trade.ExternalID)
		} else {
			withoutExternal = append(withoutExternal, trade)
		}
	}

	if len(externalIDs) > 0 {
		known, err := s.trades.ExistingExternalIDs(ctx, accountID, externalIDs)
		if err != nil {
			return nil, fmt.Errorf("looking up external ids: %w", err)
		}
		for id := range known {
			existing[id] = true
		}
	}

	if len(withoutExternal) > 0 {
		seenAt := make(map[time.Time]bool)
		var openedAt []time.Time
		for _, trade := range withoutExternal {
			at := trade.OpenedAt.UTC()
			if !seenAt[at] {
				seenAt[at] = true
				openedAt = append(openedAt, at)
			}
		}

		keys, err := s.trades.TradesOpenedAt(ctx, accountID, openedAt)
		if err != nil {
			return nil, fmt.Errorf("looking up trades by openedAt: %w", err)
		}
		for _, key := range keys {
			existing[imports.Fingerprint(key.Symbol, key.Side, key.OpenedAt, key.EntryPrice, key.Quantity, key.ExternalID)] = true
		}
	}

	return existing, nil
}
