package imports

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/username/tradefolio/backend/src/models"
)

// Fingerprint derives the deduplication identity of a trade. A non-empty
// broker-assigned external ID is authoritative and used verbatim;
// otherwise the identity is the pipe-joined composite of
// symbol|side|openedAt|entryPrice|quantity, which approximates "same
// trade" when no broker ID exists.
func Fingerprint(symbol string, side models.TradeSide, openedAt time.Time, entryPrice, quantity *decimal.Decimal, externalID string) string {
	if externalID != "" {
		return externalID
	}
	return strings.Join([]string{
		symbol,
		string(side),
		openedAt.UTC().Format(time.RFC3339),
		decimalString(entryPrice),
		decimalString(quantity),
	}, "|")
}

// TradeFingerprint applies the fingerprint rule to a normalized trade.
func TradeFingerprint(t NormalizedTrade) string {
	return Fingerprint(t.Symbol, t.Side, t.OpenedAt, t.EntryPrice, t.Quantity, t.ExternalID)
}
