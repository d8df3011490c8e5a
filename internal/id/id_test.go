package id

import (
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func baseTxn() TransactionFields {
	return TransactionFields{
		FileID:          "file-1",
		BankID:          "commbank",
		AccountID:       "acc-1",
		TemplateID:      "commbank_manual_amount_balance",
		RowIndex:        3,
		Date:            "2024-01-03",
		DescriptionNorm: "eftpos store",
		Amount:          decimal.RequireFromString("-45"),
		Balance:         decimal.NewNullDecimal(decimal.RequireFromString("1234.56")),
	}
}

func baseDedupe() DedupeFields {
	return DedupeFields{
		BankID:          "commbank",
		AccountID:       "acc-1",
		TemplateID:      "commbank_manual_amount_balance",
		Date:            "2024-01-03",
		MerchantNorm:    "store",
		Amount:          decimal.RequireFromString("-45.00"),
		DescriptionNorm: "eftpos store",
	}
}

func TestTransactionID_Stable(t *testing.T) {
	a := TransactionID(baseTxn())
	assert.Equal(t, a, TransactionID(baseTxn()))
	_, err := Parse(a, TransactionPrefix)
	require.NoError(t, err)
}

func TestTransactionID_AmountUsesTwoDecimals(t *testing.T) {
	f := baseTxn()
	f.Amount = decimal.RequireFromString("-45.000")
	assert.Equal(t, TransactionID(baseTxn()), TransactionID(f))
}

func TestTransactionID_EveryFieldMatters(t *testing.T) {
	base := TransactionID(baseTxn())
	mutations := map[string]func(*TransactionFields){
		"file":     func(f *TransactionFields) { f.FileID = "file-2" },
		"bank":     func(f *TransactionFields) { f.BankID = "westpac" },
		"account":  func(f *TransactionFields) { f.AccountID = "acc-2" },
		"template": func(f *TransactionFields) { f.TemplateID = "other" },
		"row":      func(f *TransactionFields) { f.RowIndex = 4 },
		"date":     func(f *TransactionFields) { f.Date = "2024-01-04" },
		"desc":     func(f *TransactionFields) { f.DescriptionNorm = "eftpos shop" },
		"amount":   func(f *TransactionFields) { f.Amount = decimal.RequireFromString("-45.01") },
		"balance":  func(f *TransactionFields) { f.Balance = decimal.NullDecimal{} },
	}
	for name, mutate := range mutations {
		t.Run(name, func(t *testing.T) {
			f := baseTxn()
			mutate(&f)
			assert.NotEqual(t, base, TransactionID(f))
		})
	}
}

func TestDedupeKey_IgnoresTimeOfDay(t *testing.T) {
	f := baseDedupe()
	f.Date = "2024-01-03T09:30:00Z"
	assert.Equal(t, DedupeKey(baseDedupe()), DedupeKey(f))
}

func TestDedupeKey_EveryFieldMatters(t *testing.T) {
	base := DedupeKey(baseDedupe())
	mutations := map[string]func(*DedupeFields){
		"bank":     func(f *DedupeFields) { f.BankID = "westpac" },
		"account":  func(f *DedupeFields) { f.AccountID = "acc-2" },
		"template": func(f *DedupeFields) { f.TemplateID = "other" },
		"day":      func(f *DedupeFields) { f.Date = "2024-01-04" },
		"merchant": func(f *DedupeFields) { f.MerchantNorm = "shop" },
		"amount":   func(f *DedupeFields) { f.Amount = decimal.RequireFromString("45") },
		"desc":     func(f *DedupeFields) { f.DescriptionNorm = "eftpos shop" },
	}
	for name, mutate := range mutations {
		t.Run(name, func(t *testing.T) {
			f := baseDedupe()
			mutate(&f)
			assert.NotEqual(t, base, DedupeKey(f))
		})
	}
}

func TestInboxItemID(t *testing.T) {
	a := InboxItemID("UNKNOWN_MERCHANT", "txn_1")
	assert.Equal(t, a, InboxItemID("UNKNOWN_MERCHANT", "txn_1"))
	assert.NotEqual(t, a, InboxItemID("UNCERTAIN_TRANSFER", "txn_1"))
	assert.NotEqual(t, InboxItemID("PARSE_ISSUE", "f", "1"), InboxItemID("PARSE_ISSUE", "f1", ""))
	_, err := Parse(a, InboxItemPrefix)
	assert.NoError(t, err)
}

func TestFileHashAndID(t *testing.T) {
	h := FileHash("hello")
	assert.Equal(t, "2cf24dba5fb0a30e26e83b2ac5b9e29e1b161e5c1fa7425e73043362938b9824", h)

	fid := FileID(h)
	assert.Equal(t, fid, FileID(h))
	assert.NotEqual(t, fid, FileID(FileHash("hello!")))
	parsed, err := uuid.Parse(fid)
	require.NoError(t, err)
	assert.Equal(t, uuid.Version(5), parsed.Version())
}

func TestDay(t *testing.T) {
	tests := []struct{ in, want string }{
		{"2024-01-03", "2024-01-03"},
		{"2024-01-03T10:00:00Z", "2024-01-03"},
		{"", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Day(tt.in))
	}
}

func TestParse_Errors(t *testing.T) {
	bad := []string{"", "txn_", "dk_0123456789abcdef01234567", "txn_zz23456789abcdef01234567", "txn_0123"}
	for _, s := range bad {
		_, err := Parse(s, TransactionPrefix)
		assert.Error(t, err, "expected error for %q", s)
	}
}
