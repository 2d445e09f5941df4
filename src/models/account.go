package models

import "time"

// TradingAccount groups trades under a broker account owned by one user.
type TradingAccount struct {
	ID        string    `json:"id"`
	UserID    int64     `json:"-"`
	Name      string    `json:"name"`
	Broker    string    `json:"broker,omitempty"`
	Currency  string    `json:"currency,omitempty"`
	CreatedAt time.Time `json:"createdAt,omitempty"`
}

// ImportFile is one entry of the per-user import log.
type ImportFile struct {
	ID        string    `json:"id"`
	UserID    int64     `json:"-"`
	AccountID string    `json:"accountId,omitempty"`
	Filename  string    `json:"filename"`
	Hash      string    `json:"hash,omitempty"`
	RowCount  int       `json:"rowCount"`
	CreatedAt time.Time `json:"createdAt,omitempty"`
}
