package statement

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseToken(t *testing.T) {
	tests := []struct {
		in     string
		marker string
		want   string
		signed bool
		ok     bool
	}{
		{"1,234.56", "", "1234.56", false, true},
		{"25.99", "", "25.99", false, true},
		{"-45.00", "", "-45.00", true, true},
		{"+2,000.00", "", "2000.00", true, true},
		{"45.00-", "", "-45.00", true, true},
		{"(45.00)", "", "-45.00", true, true},
		{"$1,000.00", "", "1000.00", false, true},
		{"-$45.00", "", "-45.00", true, true},
		{"$-45.00", "", "-45.00", true, true},
		{"45.00CR", "", "45.00", true, true},
		{"45.00dr", "", "-45.00", true, true},
		{"45.00", "DR", "-45.00", true, true},
		{"12.5", "", "", false, false},
		{"1234", "", "", false, false},
		{"(45.00", "", "", false, false},
		{"-+45.00", "", "", false, false},
		{"STORE", "", "", false, false},
	}
	for _, tt := range tests {
		t.Run(tt.in+tt.marker, func(t *testing.T) {
			tok, ok := parseToken(tt.in, tt.marker)
			assert.Equal(t, tt.ok, ok)
			if !tt.ok {
				return
			}
			assert.Equal(t, tt.want, tok.value.StringFixed(2))
			assert.Equal(t, tt.signed, tok.signed)
		})
	}
}

func TestTrailingTokens(t *testing.T) {
	head, toks := trailingTokens(strings.Fields("Opening balance $1,000.00 CR"))
	assert.Equal(t, []string{"Opening", "balance"}, head)
	require.Len(t, toks, 1)
	assert.Equal(t, "1000.00", toks[0].value.StringFixed(2))
	assert.True(t, toks[0].signed)

	head, toks = trailingTokens(strings.Fields("EFTPOS STORE 123 -45.00 1,234.56"))
	assert.Equal(t, []string{"EFTPOS", "STORE", "123"}, head)
	require.Len(t, toks, 2)
	assert.Equal(t, "-45.00", toks[0].value.StringFixed(2))
	assert.Equal(t, "1234.56", toks[1].value.StringFixed(2))

	head, toks = trailingTokens(strings.Fields("Card $ 45.00"))
	assert.Equal(t, []string{"Card"}, head)
	assert.Len(t, toks, 1)

	head, toks = trailingTokens(strings.Fields("no money here"))
	assert.Len(t, head, 3)
	assert.Empty(t, toks)
}

func TestDescriptionKeywords(t *testing.T) {
	assert.True(t, isDebitDescription("EFTPOS Woolworths"))
	assert.True(t, isDebitDescription("Monthly account FEE"))
	assert.False(t, isDebitDescription("Coffee shop"))
	assert.True(t, isCreditDescription("Transfer from J Smith"))
	assert.False(t, isCreditDescription("Transfer to J Smith"))
	assert.True(t, isBalanceMarker("OPENING BALANCE"))
	assert.True(t, isBalanceMarker("Balance brought forward"))
	assert.False(t, isBalanceMarker("Balance transfer fee"))
}
