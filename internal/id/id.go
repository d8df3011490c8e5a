// Package id derives deterministic identifiers from content.
package id

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Identifier prefixes.
const (
	TransactionPrefix = "txn_"
	DedupePrefix      = "dk_"
	InboxItemPrefix   = "inb_"
)

// hexLen is how many hex characters of the digest an identifier keeps.
const hexLen = 24

// fileNamespace scopes UUIDv5 file ids to this tool.
var fileNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("https://ledgerlens.dev/ns/statement-file"))

// TransactionFields identify one row of one file.
type TransactionFields struct {
	FileID          string
	BankID          string
	AccountID       string
	TemplateID      string
	RowIndex        int
	Date            string
	DescriptionNorm string
	Amount          decimal.Decimal
	Balance         decimal.NullDecimal
}

// DedupeFields identify a real-world transaction regardless of which file
// reported it. File and row are deliberately absent.
type DedupeFields struct {
	BankID          string
	AccountID       string
	TemplateID      string
	Date            string // only the day part is used
	MerchantNorm    string
	Amount          decimal.Decimal
	DescriptionNorm string
}

// TransactionID returns a stable id like "txn_3f2a...". Every field
// participates, so textually identical rows of one file still differ by row.
func TransactionID(f TransactionFields) string {
	balance := ""
	if f.Balance.Valid {
		balance = f.Balance.Decimal.StringFixed(2)
	}
	return digest(TransactionPrefix,
		"file:"+f.FileID,
		"bank:"+f.BankID,
		"account:"+f.AccountID,
		"template:"+f.TemplateID,
		"row:"+strconv.Itoa(f.RowIndex),
		"date:"+f.Date,
		"desc:"+f.DescriptionNorm,
		"amount:"+f.Amount.StringFixed(2),
		"balance:"+balance,
	)
}

// DedupeKey returns a key like "dk_9c1b..." shared by the same transaction
// appearing in overlapping statements.
func DedupeKey(f DedupeFields) string {
	return digest(DedupePrefix,
		"bank:"+f.BankID,
		"account:"+f.AccountID,
		"template:"+f.TemplateID,
		"day:"+Day(f.Date),
		"merchant:"+f.MerchantNorm,
		"amount:"+f.Amount.StringFixed(2),
		"desc:"+f.DescriptionNorm,
	)
}

// InboxItemID returns an id like "inb_..." for an inbox item of kind
// anchored on ref (a transaction id, or a file id plus warning position).
func InboxItemID(kind string, ref ...string) string {
	parts := []string{"kind:" + kind}
	for i, r := range ref {
		parts = append(parts, fmt.Sprintf("ref%d:%s", i, r))
	}
	return digest(InboxItemPrefix, parts...)
}

// FileHash is the hex SHA-256 of the extracted text.
func FileHash(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}

// FileID derives a name-based UUID from a file hash, so re-importing the
// same text yields the same file id.
func FileID(fileHash string) string {
	return uuid.NewSHA1(fileNamespace, []byte(fileHash)).String()
}

// Day truncates an ISO timestamp or date to "YYYY-MM-DD".
// "2024-01-03T10:00:00Z" -> "2024-01-03"
func Day(date string) string {
	if len(date) > 10 && date[10] == 'T' {
		return date[:10]
	}
	return date
}

// Parse checks that s is an identifier with the given prefix and returns the
// hex part.
func Parse(s, prefix string) (string, error) {
	rest, ok := strings.CutPrefix(s, prefix)
	if !ok {
		return "", fmt.Errorf("invalid id %q: missing prefix %q", s, prefix)
	}
	if len(rest) != hexLen {
		return "", fmt.Errorf("invalid id %q: want %d hex chars, got %d", s, hexLen, len(rest))
	}
	if _, err := hex.DecodeString(rest); err != nil {
		return "", fmt.Errorf("invalid id %q: %w", s, err)
	}
	return rest, nil
}

func digest(prefix string, parts ...string) string {
	sum := sha256.Sum256([]byte(strings.Join(parts, "|")))
	return prefix + hex.EncodeToString(sum[:])[:hexLen]
}
