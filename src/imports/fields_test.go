package imports

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEveryAliasMapsToACanonicalField(t *testing.T) {
	for alias, field := range headerAliases {
		assert.True(t, CanonicalFields[field], "alias %q maps to unknown field %q", alias, field)
		assert.Equal(t, alias, NormalizeHeader(alias), "alias %q is not stored in normalized form", alias)
	}
}

func TestNormalizeHeader(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Symbol", "symbol"},
		{"  Entry   Price ", "entry price"},
		{"open_date", "open date"},
		{"Realized-PnL", "realized pnl"},
		{"ORDER_ID", "order id"},
		{"p/l", "p/l"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, NormalizeHeader(tt.in), "input %q", tt.in)
	}
}

func TestResolveHeaders(t *testing.T) {
	headers := []string{"Ticker", "Direction", "Qty", "Open Date", "Entry Time", "Mystery Column"}
	mapping, unknown := ResolveHeaders(headers)

	wantField := func(header string, field CanonicalField) {
		got, ok := mapping.Field(header)
		assert.True(t, ok, "header %q should resolve", header)
		assert.Equal(t, field, got, "header %q", header)
	}
	wantField("Ticker", FieldSymbol)
	wantField("Direction", FieldSide)
	wantField("Qty", FieldQuantity)
	wantField("Open Date", FieldOpenedAtDate)
	wantField("Entry Time", FieldOpenedAtTime)

	_, ok := mapping.Field("Mystery Column")
	assert.False(t, ok)
	assert.Equal(t, []string{"Mystery Column"}, unknown)
}

func TestResolveHeadersIsOrderIndependent(t *testing.T) {
	headers := []string{"Symbol", "Side", "Qty", "PnL", "Unknown A", "Unknown B"}
	shuffled := []string{"Unknown B", "PnL", "Symbol", "Unknown A", "Qty", "Side"}

	m1, u1 := ResolveHeaders(headers)
	m2, u2 := ResolveHeaders(shuffled)

	assert.Equal(t, m1, m2)
	assert.Equal(t, u1, u2)
}

func TestResolveHeadersFirstOccurrenceWins(t *testing.T) {
	// Duplicate header strings fix their mapping once.
	mapping, _ := ResolveHeaders([]string{"Symbol", "Symbol"})
	field, ok := mapping.Field("Symbol")
	assert.True(t, ok)
	assert.Equal(t, FieldSymbol, field)
	assert.Len(t, mapping, 1)
}
