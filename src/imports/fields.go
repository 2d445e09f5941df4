package imports

import (
	"sort"
	"strings"
)

// CanonicalField is one of the fixed trade attributes the normalizer
// understands. Opening/closing timestamps may arrive combined or split
// across date/time/day/month/year columns; the split variants exist so
// the resolver can tag each piece for later reassembly.
type CanonicalField string

const (
	FieldSymbol        CanonicalField = "symbol"
	FieldSide          CanonicalField = "side"
	FieldQuantity      CanonicalField = "quantity"
	FieldEntryPrice    CanonicalField = "entryPrice"
	FieldExitPrice     CanonicalField = "exitPrice"
	FieldStopLoss      CanonicalField = "stopLoss"
	FieldTakeProfit    CanonicalField = "takeProfit"
	FieldFees          CanonicalField = "fees"
	FieldProfitLoss    CanonicalField = "profitLoss"
	FieldOpenedAt      CanonicalField = "openedAt"
	FieldOpenedAtTime  CanonicalField = "openedAtTime"
	FieldOpenedAtDate  CanonicalField = "openedAtDate"
	FieldOpenedAtDay   CanonicalField = "openedAtDay"
	FieldOpenedAtMonth CanonicalField = "openedAtMonth"
	FieldOpenedAtYear  CanonicalField = "openedAtYear"
	FieldClosedAt      CanonicalField = "closedAt"
	FieldClosedAtTime  CanonicalField = "closedAtTime"
	FieldClosedAtDate  CanonicalField = "closedAtDate"
	FieldClosedAtDay   CanonicalField = "closedAtDay"
	FieldClosedAtMonth CanonicalField = "closedAtMonth"
	FieldClosedAtYear  CanonicalField = "closedAtYear"
	FieldNotes         CanonicalField = "notes"
	FieldStrategyTag   CanonicalField = "strategyTag"
	FieldExternalID    CanonicalField = "externalId"
)

// CanonicalFields is the closed enumeration; every alias must map into it.
var CanonicalFields = map[CanonicalField]bool{
	FieldSymbol: true, FieldSide: true, FieldQuantity: true,
	FieldEntryPrice: true, FieldExitPrice: true, FieldStopLoss: true,
	FieldTakeProfit: true, FieldFees: true, FieldProfitLoss: true,
	FieldOpenedAt: true, FieldOpenedAtTime: true, FieldOpenedAtDate: true,
	FieldOpenedAtDay: true, FieldOpenedAtMonth: true, FieldOpenedAtYear: true,
	FieldClosedAt: true, FieldClosedAtTime: true, FieldClosedAtDate: true,
	FieldClosedAtDay: true, FieldClosedAtMonth: true, FieldClosedAtYear: true,
	FieldNotes: true, FieldStrategyTag: true, FieldExternalID: true,
}

// headerAliases maps normalized header strings to canonical fields. The
// vocabulary covers the common broker export spellings; extending support
// for a new broker means adding rows here, not new parsing code.
var headerAliases = map[string]CanonicalField{
	"symbol":     FieldSymbol,
	"ticker":     FieldSymbol,
	"instrument": FieldSymbol,
	"market":     FieldSymbol,
	"asset":      FieldSymbol,
	"pair":       FieldSymbol,
	"product":    FieldSymbol,

	"side":       FieldSide,
	"direction":  FieldSide,
	"type":       FieldSide,
	"order side": FieldSide,
	"buy/sell":   FieldSide,
	"position":   FieldSide,

	"qty":       FieldQuantity,
	"quantity":  FieldQuantity,
	"amount":    FieldQuantity,
	"size":      FieldQuantity,
	"volume":    FieldQuantity,
	"contracts": FieldQuantity,
	"lots":      FieldQuantity,

	"entry price":         FieldEntryPrice,
	"entry":               FieldEntryPrice,
	"price":               FieldEntryPrice,
	"open price":          FieldEntryPrice,
	"avg entry price":     FieldEntryPrice,
	"average entry price": FieldEntryPrice,

	"exit price":         FieldExitPrice,
	"close price":        FieldExitPrice,
	"avg exit price":     FieldExitPrice,
	"average exit price": FieldExitPrice,
	"closing price":      FieldExitPrice,

	"stop loss":  FieldStopLoss,
	"stop":       FieldStopLoss,
	"stop price": FieldStopLoss,

	"take profit":  FieldTakeProfit,
	"target":       FieldTakeProfit,
	"target price": FieldTakeProfit,

	"fee":              FieldFees,
	"fees":             FieldFees,
	"commission":       FieldFees,
	"commissions":      FieldFees,
	"cost":             FieldFees,
	"transaction cost": FieldFees,

	"pnl":          FieldProfitLoss,
	"p/l":          FieldProfitLoss,
	"profit":       FieldProfitLoss,
	"loss":         FieldProfitLoss,
	"profit/loss":  FieldProfitLoss,
	"pl":           FieldProfitLoss,
	"net profit":   FieldProfitLoss,
	"gross profit": FieldProfitLoss,
	"realized pnl": FieldProfitLoss,

	"open datetime":   FieldOpenedAt,
	"execution time":  FieldOpenedAt,
	"entry timestamp": FieldOpenedAt,
	"open timestamp":  FieldOpenedAt,

	"entry time": FieldOpenedAtTime,
	"open time":  FieldOpenedAtTime,

	"date":       FieldOpenedAtDate,
	"trade date": FieldOpenedAtDate,
	"entry date": FieldOpenedAtDate,
	"open date":  FieldOpenedAtDate,

	"day":       FieldOpenedAtDay,
	"entry day": FieldOpenedAtDay,
	"open day":  FieldOpenedAtDay,

	"month":       FieldOpenedAtMonth,
	"entry month": FieldOpenedAtMonth,
	"open month":  FieldOpenedAtMonth,

	"year":       FieldOpenedAtYear,
	"entry year": FieldOpenedAtYear,
	"open year":  FieldOpenedAtYear,

	"close datetime":  FieldClosedAt,
	"exit datetime":   FieldClosedAt,
	"close timestamp": FieldClosedAt,
	"exit timestamp":  FieldClosedAt,

	"exit time":  FieldClosedAtTime,
	"close time": FieldClosedAtTime,

	"exit date":  FieldClosedAtDate,
	"close date": FieldClosedAtDate,

	"exit day":  FieldClosedAtDay,
	"close day": FieldClosedAtDay,

	"exit month":  FieldClosedAtMonth,
	"close month": FieldClosedAtMonth,

	"exit year":  FieldClosedAtYear,
	"close year": FieldClosedAtYear,

	"comment": FieldNotes,
	"note":    FieldNotes,
	"notes":   FieldNotes,
	"memo":    FieldNotes,
	"remark":  FieldNotes,

	"tag":      FieldStrategyTag,
	"tags":     FieldStrategyTag,
	"strategy": FieldStrategyTag,
	"setup":    FieldStrategyTag,

	"id":          FieldExternalID,
	"trade id":    FieldExternalID,
	"ticket":      FieldExternalID,
	"order":       FieldExternalID,
	"order id":    FieldExternalID,
	"position id": FieldExternalID,
}

// HeaderMapping maps each observed raw header to a canonical field, or to
// nil when the header is not recognized.
type HeaderMapping map[string]*CanonicalField

// Field returns the canonical field a raw header resolves to, if any.
func (m HeaderMapping) Field(header string) (CanonicalField, bool) {
	if f, ok := m[header]; ok && f != nil {
		return *f, true
	}
	return "", false
}

// NormalizeHeader lower-cases a header, converts underscores and hyphens
// to spaces, collapses internal whitespace and trims the result.
func NormalizeHeader(header string) string {
	h := strings.NewReplacer("_", " ", "-", " ").Replace(header)
	h = strings.Join(strings.Fields(h), " ")
	return strings.ToLower(h)
}

// ResolveHeaders builds the HeaderMapping for the distinct headers of a
// file. The mapping is a pure function of the header set: shuffling the
// input order yields an identical result. Unrecognized headers map to nil
// and are returned sorted as informational unknowns.
func ResolveHeaders(headers []string) (HeaderMapping, []string) {
	mapping := make(HeaderMapping, len(headers))
	var unknown []string
	for _, header := range headers {
		if _, seen := mapping[header]; seen {
			continue
		}
		if field, ok := headerAliases[NormalizeHeader(header)]; ok {
			f := field
			mapping[header] = &f
			continue
		}
		mapping[header] = nil
		unknown = append(unknown, header)
	}
	sort.Strings(unknown)
	return mapping, unknown
}
