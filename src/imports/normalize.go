package imports

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/username/tradefolio/backend/src/models"
)

// ErrNoDataRows is returned when the input has no rows beneath the header
// (or no content at all). A file whose rows all fail validation is not an
// error; an empty file is.
var ErrNoDataRows = errors.New("csv input contains no data rows")

// Options control one parse job.
type Options struct {
	// Delimiter defaults to ','. Semicolon and tab are the other common
	// broker export choices.
	Delimiter rune
	// DecimalSeparator defaults to DecimalDot.
	DecimalSeparator DecimalSeparator
	// PreviewLimit caps the returned trade list when > 0. Diagnostics
	// always cover the whole file.
	PreviewLimit int
}

// NormalizedTrade is the canonical output of the row normalizer.
// Immutable once produced; Raw retains the originating row verbatim for
// audit and debugging.
type NormalizedTrade struct {
	Symbol      string            `json:"symbol"`
	Side        models.TradeSide  `json:"side"`
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
	Raw         map[string]string `json:"raw,omitempty"`
}

// SkippedRow records why a data row produced no trade. Row is 1-based.
type SkippedRow struct {
	Row    int    `json:"row"`
	Reason string `json:"reason"`
}

// ParseResult is the per-job report: every input row appears either in
// Trades or in Skipped.
type ParseResult struct {
	Trades         []NormalizedTrade `json:"trades"`
	Skipped        []SkippedRow      `json:"skipped"`
	HeaderMapping  HeaderMapping     `json:"headerMapping"`
	UnknownHeaders []string          `json:"unknownHeaders"`
	Warnings       []string          `json:"warnings"`
}

const (
	reasonMissingRequired = "missing required symbol or side field"
	reasonUnparsedOpened  = "unable to parse openedAt date/time"
	reasonDuplicateInFile = "duplicate trade detected for this file"
)

// Parse runs the full normalization pipeline over one CSV document:
// header resolution, per-row coercion and validation, and within-file
// deduplication. Rows are processed in file order; a row is either
// normalized or skipped with a reason, never silently dropped.
func Parse(csvText string, opts Options) (*ParseResult, error) {
	if opts.Delimiter == 0 {
		opts.Delimiter = ','
	}
	if opts.DecimalSeparator == "" {
		opts.DecimalSeparator = DecimalDot
	}

	if strings.TrimSpace(csvText) == "" {
		return nil, ErrNoDataRows
	}

	headers, rows, err := readRows(strings.NewReader(csvText), opts.Delimiter)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, ErrNoDataRows
	}

	mapping, unknownHeaders := ResolveHeaders(headers)

	result := &ParseResult{
		Trades:         []NormalizedTrade{},
		Skipped:        []SkippedRow{},
		HeaderMapping:  mapping,
		UnknownHeaders: unknownHeaders,
		Warnings:       []string{},
	}

	seen := make(map[string]bool)

	for i, row := range rows {
		rowNum := i + 1

		trade, skipReason, warning := normalizeRow(row, mapping, opts.DecimalSeparator)
		if warning != "" {
			result.Warnings = append(result.Warnings, fmt.Sprintf("Row %d: %s", rowNum, warning))
		}
		if skipReason != "" {
			result.Skipped = append(result.Skipped, SkippedRow{Row: rowNum, Reason: skipReason})
			continue
		}

		fp := TradeFingerprint(*trade)
		if seen[fp] {
			result.Skipped = append(result.Skipped, SkippedRow{Row: rowNum, Reason: reasonDuplicateInFile})
			continue
		}
		seen[fp] = true

		result.Trades = append(result.Trades, *trade)
	}

	if opts.PreviewLimit > 0 && len(result.Trades) > opts.PreviewLimit {
		result.Trades = result.Trades[:opts.PreviewLimit]
	}

	return result, nil
}

// normalizeRow coerces one raw row into a trade, or explains why it
// cannot. Pure function of (row, mapping, separator): no state is shared
// between rows.
func normalizeRow(row RawRow, mapping HeaderMapping, sep DecimalSeparator) (*NormalizedTrade, string, string) {
	// Ordered merge: columns are visited in file order and the first
	// non-empty cell wins for each canonical field; later columns mapped
	// to the same field are ignored.
	values := make(map[CanonicalField]string)
	for _, header := range row.Columns {
		field, ok := mapping.Field(header)
		if !ok {
			continue
		}
		cell := strings.TrimSpace(row.Values[header])
		if cell == "" {
			continue
		}
		if _, taken := values[field]; taken {
			continue
		}
		values[field] = cell
	}

	symbol := values[FieldSymbol]
	side := toSide(values[FieldSide])
	if symbol == "" || side == "" {
		return nil, reasonMissingRequired, ""
	}

	openedAt, openedOK := resolveTimestamp(dateParts{
		explicit:  values[FieldOpenedAt],
		date:      values[FieldOpenedAtDate],
		timeOfDay: values[FieldOpenedAtTime],
		day:       values[FieldOpenedAtDay],
		month:     values[FieldOpenedAtMonth],
		year:      values[FieldOpenedAtYear],
	})
	if !openedOK {
		// Never defaulted to "now": a fabricated timestamp would corrupt
		// day-bucketed analytics downstream.
		return nil, reasonUnparsedOpened, ""
	}

	var warning string
	var closedAt *time.Time
	closedParts := dateParts{
		explicit:  values[FieldClosedAt],
		date:      values[FieldClosedAtDate],
		timeOfDay: values[FieldClosedAtTime],
		day:       values[FieldClosedAtDay],
		month:     values[FieldClosedAtMonth],
		year:      values[FieldClosedAtYear],
	}
	if t, ok := resolveTimestamp(closedParts); ok {
		closedAt = &t
	} else if closedParts.present() {
		warning = "unable to parse closedAt date/time; trade kept without closedAt"
	}

	trade := &NormalizedTrade{
		Symbol:      symbol,
		Side:        side,
		Quantity:    parseDecimal(values[FieldQuantity], sep),
		EntryPrice:  parseDecimal(values[FieldEntryPrice], sep),
		ExitPrice:   parseDecimal(values[FieldExitPrice], sep),
		StopLoss:    parseDecimal(values[FieldStopLoss], sep),
		TakeProfit:  parseDecimal(values[FieldTakeProfit], sep),
		Fees:        parseDecimal(values[FieldFees], sep),
		ProfitLoss:  parseDecimal(values[FieldProfitLoss], sep),
		OpenedAt:    openedAt,
		ClosedAt:    closedAt,
		Notes:       values[FieldNotes],
		StrategyTag: values[FieldStrategyTag],
		ExternalID:  values[FieldExternalID],
		Raw:         row.Values,
	}
	return trade, "", warning
}

// toSide coerces a raw cell into a trade side. Exact vocabulary first,
// then substring fallback for values like "Buy to open".
func toSide(value string) models.TradeSide {
	raw := strings.ToLower(strings.TrimSpace(value))
	if raw == "" {
		return ""
	}
	switch raw {
	case "buy", "long", "bought", "call":
		return models.SideLong
	case "sell", "short", "sold", "put":
		return models.SideShort
	}
	switch {
	case strings.Contains(raw, "long"):
		return models.SideLong
	case strings.Contains(raw, "short"):
		return models.SideShort
	case strings.Contains(raw, "buy"):
		return models.SideLong
	case strings.Contains(raw, "sell"):
		return models.SideShort
	}
	return ""
}
