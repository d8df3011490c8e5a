package statement

import (
	"strings"
	"unicode"

	"github.com/ledgerlens/ledgerlens/internal/textnorm"
)

var debitKeywords = []string{
	"card payment", "direct debit", "debit", "payment to", "withdrawal",
	"transfer to", "eftpos", "purchase", "atm", "fee", "charge", "bpay",
}

var creditKeywords = []string{
	"salary", "deposit", "transfer from", "direct credit", "credit",
	"interest", "refund", "payment from", "reversal",
}

func isDebitDescription(desc string) bool {
	return containsAnyLower(desc, debitKeywords)
}

func isCreditDescription(desc string) bool {
	return containsAnyLower(desc, creditKeywords)
}

// containsAnyLower matches whole words only, so "fee" does not hit "coffee".
func containsAnyLower(s string, words []string) bool {
	fields := strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	padded := " " + strings.Join(fields, " ") + " "
	for _, w := range words {
		if strings.Contains(padded, " "+w+" ") {
			return true
		}
	}
	return false
}

// Balance marker rows carry a running balance but are not transactions.
var balanceMarkers = []string{
	"opening balance",
	"closing balance",
	"balance brought forward",
	"balance carried forward",
}

func isBalanceMarker(desc string) bool {
	return textnorm.ContainsCompact(desc, balanceMarkers)
}
