// Package normalize turns parsed rows into ledger rows with stable identity.
package normalize

import (
	"regexp"
	"strings"

	"github.com/ledgerlens/ledgerlens/internal/id"
	"github.com/ledgerlens/ledgerlens/internal/model"
	"github.com/ledgerlens/ledgerlens/internal/textnorm"
)

// HeaderMissingConfidence caps rows of files whose table header was never found.
const HeaderMissingConfidence = 0.7

// Context is the file-level information every row shares.
type Context struct {
	FileID     string
	FileHash   string
	BankID     string
	AccountID  string
	TemplateID string
	Currency   string
	// HeaderMissing is set when segmentation fell back to the whole text.
	HeaderMissing bool
}

var (
	// reference noise that differs between otherwise identical payments
	refNoise = []*regexp.Regexp{
		regexp.MustCompile(`\bvalue date:?\s*\d{1,2}[/.-]\d{1,2}[/.-]\d{2,4}`),
		regexp.MustCompile(`\bcard\s*(?:no\.?\s*)?x+\d{2,4}\b`),
		regexp.MustCompile(`\bref(?:erence)?\.?\s*(?:no\.?|number)?\s*[:#]?\s*[a-z0-9-]*\d[a-z0-9-]*`),
		regexp.MustCompile(`\b\d{4,}\b`),
	}
	channelPrefix = regexp.MustCompile(`^(?:visa debit purchase card|visa debit purchase|visa purchase|eftpos purchase|eftpos|direct debit|direct credit|fast transfer (?:to|from)|transfer (?:to|from)|osko (?:payment|withdrawal|deposit)|netbank transfer|commbank app transfer|bpay)\b\s*`)
	digits          = regexp.MustCompile(`\d+`)
	edgePunct       = " -*/#:.,"
	transferPattern = regexp.MustCompile(`\b(?:transfer (?:to|from)|fast transfer|internal transfer|netbank transfer|osko|tfr)\b`)
)

// DescriptionNorm lower-cases s, strips reference noise and collapses spaces.
// "EFTPOS Store 123 Ref 98765 Value Date: 01/01/2024" -> "eftpos store 123"
func DescriptionNorm(s string) string {
	out := strings.ToLower(textnorm.CleanLine(s))
	for _, re := range refNoise {
		out = re.ReplaceAllString(out, " ")
	}
	return strings.Trim(textnorm.CollapseSpace(out), edgePunct)
}

// MerchantNorm reduces a normalized description to the counterparty name.
// "eftpos store 123" -> "store"
func MerchantNorm(descNorm string) string {
	out := descNorm
	for {
		next := channelPrefix.ReplaceAllString(out, "")
		if next == out {
			break
		}
		out = next
	}
	out = digits.ReplaceAllString(out, " ")
	return strings.Trim(textnorm.CollapseSpace(out), edgePunct)
}

// IsTransferCandidate reports whether a normalized description reads like
// money moving between accounts.
func IsTransferCandidate(descNorm string) bool {
	return transferPattern.MatchString(descNorm)
}

// Normalize converts rows independently of one another. Warnings attach to
// rows by their row index only.
func Normalize(rows []model.ParsedTransaction, warnings []model.ParseWarning, ctx Context) []model.NormalizedTransaction {
	out := make([]model.NormalizedTransaction, 0, len(rows))
	for _, r := range rows {
		out = append(out, normalizeRow(r, warnings, ctx))
	}
	return out
}

func normalizeRow(r model.ParsedTransaction, warnings []model.ParseWarning, ctx Context) model.NormalizedTransaction {
	descNorm := DescriptionNorm(r.Description)
	merchant := MerchantNorm(descNorm)

	conf := r.Confidence
	if ctx.HeaderMissing && conf > HeaderMissingConfidence {
		conf = HeaderMissingConfidence
	}

	firstLine, _, _ := strings.Cut(r.RawLine, "\n")

	return model.NormalizedTransaction{
		ID: id.TransactionID(id.TransactionFields{
			FileID:          ctx.FileID,
			BankID:          ctx.BankID,
			AccountID:       ctx.AccountID,
			TemplateID:      ctx.TemplateID,
			RowIndex:        r.Source.RowIndex,
			Date:            r.ISODate,
			DescriptionNorm: descNorm,
			Amount:          r.Amount,
			Balance:         r.Balance,
		}),
		DedupeKey: id.DedupeKey(id.DedupeFields{
			BankID:          ctx.BankID,
			AccountID:       ctx.AccountID,
			TemplateID:      ctx.TemplateID,
			Date:            r.ISODate,
			MerchantNorm:    merchant,
			Amount:          r.Amount,
			DescriptionNorm: descNorm,
		}),
		BankID:          ctx.BankID,
		AccountID:       ctx.AccountID,
		TemplateID:      ctx.TemplateID,
		Date:            r.ISODate,
		DescriptionRaw:  r.Description,
		DescriptionNorm: descNorm,
		MerchantNorm:    merchant,
		Amount:          r.Amount,
		Balance:         r.Balance,
		Currency:        ctx.Currency,
		Source: model.FileSource{
			FileID:        ctx.FileID,
			FileHash:      ctx.FileHash,
			LineIndex:     r.Source.LineIndex,
			RowIndex:      r.Source.RowIndex,
			ParserVersion: r.Source.ParserVersion,
		},
		Quality: model.Quality{
			Warnings:   model.WarningsForRow(warnings, r.Source.RowIndex),
			Confidence: conf,
			RawLine:    firstLine,
			RawText:    r.RawLine,
		},
		Category:       model.DefaultCategory,
		CategorySource: model.DefaultCategorySource,
		Flags:          model.Flags{TransferCandidate: IsTransferCandidate(descNorm)},
	}
}
