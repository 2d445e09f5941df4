package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// TradeSide is the direction of a trade.
type TradeSide string

const (
	SideLong  TradeSide = "LONG"
	SideShort TradeSide = "SHORT"
)

func (s TradeSide) Valid() bool {
	return s == SideLong || s == SideShort
}

// Trade is a persisted trade row. Numeric fields are stored as decimal
// strings so a row read back from the database reproduces the exact
// fingerprint of the candidate it was inserted from.
type Trade struct {
	ID          int64             `json:"id,omitempty"`
	AccountID   string            `json:"accountId"`
	UserID      int64             `json:"-"`
	Symbol      string            `json:"symbol"`
	Side        TradeSide         `json:"side"`
	Quantity    *decimal.Decimal  `json:"quantity,omitempty"`
	EntryPrice  *decimal.Decimal  `json:"entryPrice,omitempty"`
	ExitPrice   *decimal.Decimal  `json:"exitPrice,omitempty"`
	StopLoss    *decimal.Decimal  `json:"stopLoss,omitempty"`
	TakeProfit  *decimal.Decimal  `json:"takeProfit,omitempty"`
	Fees        *decimal.Decimal  `json:"fees,omitempty"`
	ProfitLoss  *decimal.Decimal  `json:"profitLoss,omitempty"`
	OpenedAt    time.Time         `json:"openedAt"`
	ClosedAt    *time.Time        `json:"closedAt,omitempty"`
	Notes       string            `json:"notes,omitempty"`
	StrategyTag string            `json:"strategyTag,omitempty"`
	ExternalID  string            `json:"externalId,omitempty"`
	Fingerprint string            `json:"fingerprint"`
	Raw         map[string]string `json:"raw,omitempty"`
	CreatedAt   time.Time         `json:"createdAt,omitempty"`
}
