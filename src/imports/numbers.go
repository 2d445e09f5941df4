package imports

import (
	"strings"
	"unicode"

	"github.com/shopspring/decimal"
)

// DecimalSeparator is the caller-declared decimal-point convention of the
// file. It is honored, never inferred: the chosen rune is the decimal
// point and the other one is a removable thousands separator.
type DecimalSeparator string

const (
	DecimalDot   DecimalSeparator = "."
	DecimalComma DecimalSeparator = ","
)

func (s DecimalSeparator) Valid() bool {
	return s == DecimalDot || s == DecimalComma
}

func isCurrencySymbol(r rune) bool {
	switch r {
	case '$', '£', '€', '¥':
		return true
	}
	return false
}

// parseDecimal coerces a raw cell into a decimal under the given
// separator convention. Unparseable values yield nil, not an error: a bad
// numeric cell blanks the field rather than failing the row.
func parseDecimal(value string, sep DecimalSeparator) *decimal.Decimal {
	cleaned := strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) || isCurrencySymbol(r) {
			return -1
		}
		return r
	}, value)

	if sep == DecimalComma {
		cleaned = strings.ReplaceAll(cleaned, ".", "")
		cleaned = strings.ReplaceAll(cleaned, ",", ".")
	} else {
		cleaned = strings.ReplaceAll(cleaned, ",", "")
	}

	if cleaned == "" {
		return nil
	}
	d, err := decimal.NewFromString(cleaned)
	if err != nil {
		return nil
	}
	return &d
}

func decimalString(d *decimal.Decimal) string {
	if d == nil {
		return ""
	}
	return d.String()
}
