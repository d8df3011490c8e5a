package model

import (
	"github.com/shopspring/decimal"
)

// Category placeholders used until an external categorizer fills them.
const (
	DefaultCategory       = "Other"
	DefaultCategorySource = "default"
)

// RowSource locates a parsed row inside the section it came from.
type RowSource struct {
	RowIndex      int    `json:"rowIndex"`
	LineIndex     int    `json:"lineIndex"`
	ParserVersion string `json:"parserVersion"`
}

// ParsedTransaction is one raw statement row before normalization.
type ParsedTransaction struct {
	Date        string              `json:"date"`    // as printed, e.g. "03 Jan"
	ISODate     string              `json:"isoDate"` // "2024-01-03", empty when unresolved
	Description string              `json:"description"`
	Amount      decimal.Decimal     `json:"amount"` // negative = money out
	Balance     decimal.NullDecimal `json:"balance"`
	RawLine     string              `json:"rawLine"` // source block, may span lines
	Confidence  float64             `json:"confidence"`
	Source      RowSource           `json:"source"`
}

// FileSource ties a normalized transaction to the file that produced it.
type FileSource struct {
	FileID        string `json:"fileId"`
	FileHash      string `json:"fileHash,omitempty"`
	LineIndex     int    `json:"lineIndex"`
	RowIndex      int    `json:"rowIndex"`
	ParserVersion string `json:"parserVersion,omitempty"`
}

// Quality carries the parse signals of a normalized transaction.
type Quality struct {
	Warnings   []WarningReason `json:"warnings"`
	Confidence float64         `json:"confidence"`
	RawLine    string          `json:"rawLine"`
	RawText    string          `json:"rawText"`
}

// Flags are heuristic markers set during normalization.
type Flags struct {
	TransferCandidate bool `json:"transferCandidate"`
}

// TransferAnnotation is written by the transfer-matching collaborator.
type TransferAnnotation struct {
	State      string  `json:"state"`
	Decision   string  `json:"decision,omitempty"`
	Confidence float64 `json:"confidence"`
	MatchID    string  `json:"matchId,omitempty"`
	PairKey    string  `json:"pairKey,omitempty"`
	Signature  string  `json:"signature,omitempty"`
}

// NormalizedTransaction is a ledger row with stable identity.
type NormalizedTransaction struct {
	ID              string              `json:"id"`
	DedupeKey       string              `json:"dedupeKey"`
	BankID          string              `json:"bankId"`
	AccountID       string              `json:"accountId"`
	TemplateID      string              `json:"templateId"`
	Date            string              `json:"date"`
	DescriptionRaw  string              `json:"descriptionRaw"`
	DescriptionNorm string              `json:"descriptionNorm"`
	MerchantNorm    string              `json:"merchantNorm"`
	Amount          decimal.Decimal     `json:"amount"`
	Balance         decimal.NullDecimal `json:"balance"`
	Currency        string              `json:"currency"`
	Source          FileSource          `json:"source"`
	Quality         Quality             `json:"quality"`
	Category        string              `json:"category"`
	CategorySource  string              `json:"categorySource"`
	Flags           Flags               `json:"flags"`
	Transfer        *TransferAnnotation `json:"transfer"`
}

// HasDefaultCategory reports whether no categorizer has touched the row yet.
func (t NormalizedTransaction) HasDefaultCategory() bool {
	return t.CategorySource == "" || t.CategorySource == DefaultCategorySource
}

// ApplyCategory fills the category if it is still the default placeholder.
// It reports whether the transaction changed.
func (t *NormalizedTransaction) ApplyCategory(category, source string) bool {
	if !t.HasDefaultCategory() || category == "" || source == "" || source == DefaultCategorySource {
		return false
	}
	t.Category = category
	t.CategorySource = source
	return true
}

// ApplyTransfer attaches a transfer annotation if none is present.
func (t *NormalizedTransaction) ApplyTransfer(a TransferAnnotation) bool {
	if t.Transfer != nil {
		return false
	}
	t.Transfer = &a
	return true
}
