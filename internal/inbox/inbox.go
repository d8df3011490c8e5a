// Package inbox derives the review queue from normalized transactions and
// parse records, and hides items that match user suppression rules.
package inbox

import (
	"fmt"
	"strconv"

	"github.com/ledgerlens/ledgerlens/internal/id"
	"github.com/ledgerlens/ledgerlens/internal/model"
)

// Default thresholds.
const (
	DefaultTransferConfidence = 0.8
	DefaultLowConfidence      = 0.7
)

// Options tunes classification.
type Options struct {
	// TransferConfidence is the annotation confidence below which a
	// transfer candidate stays in the inbox.
	TransferConfidence float64
	// LowConfidence flags warning-free rows the parser was unsure about.
	LowConfidence float64
}

// DefaultOptions returns the standard thresholds.
func DefaultOptions() Options {
	return Options{TransferConfidence: DefaultTransferConfidence, LowConfidence: DefaultLowConfidence}
}

// Input is everything classification looks at.
type Input struct {
	Transactions []model.NormalizedTransaction
	Files        []model.ParsedFile
	Review       model.ReviewState
}

// Totals counts items; Resolved items stay in All.
type Totals struct {
	All        int `json:"all"`
	Unresolved int `json:"unresolved"`
	Resolved   int `json:"resolved"`
}

// Result is the classified item list.
type Result struct {
	Items  []model.InboxItem `json:"items"`
	Totals Totals            `json:"totals"`
}

// Classify builds inbox items in a stable order: per transaction (merchant,
// transfer, low confidence), then per file warning.
func Classify(in Input, opts Options) Result {
	var items []model.InboxItem
	txnByRow := make(map[string]string, len(in.Transactions))

	for _, t := range in.Transactions {
		txnByRow[rowKey(t.Source.FileID, t.Source.RowIndex)] = t.ID
		if item, ok := unknownMerchant(t); ok {
			items = append(items, item)
		}
		if item, ok := uncertainTransfer(t, opts.TransferConfidence); ok {
			items = append(items, item)
		}
		if item, ok := lowConfidence(t, opts.LowConfidence); ok {
			items = append(items, item)
		}
	}

	seen := make(map[string]bool)
	for _, f := range in.Files {
		for _, w := range f.Warnings {
			item := parseIssue(f, w, txnByRow[rowKey(f.FileID, w.RowIndex)])
			if seen[item.ID] {
				continue
			}
			seen[item.ID] = true
			items = append(items, item)
		}
	}

	var res Result
	for i := range items {
		items[i].Resolved = in.Review.IsResolved(items[i].ID) ||
			(items[i].TransactionID != "" && in.Review.IsResolved(items[i].TransactionID))
		if items[i].Resolved {
			res.Totals.Resolved++
		} else {
			res.Totals.Unresolved++
		}
	}
	res.Items = items
	res.Totals.All = len(items)
	return res
}

func rowKey(fileID string, row int) string {
	return fileID + "#" + strconv.Itoa(row)
}

func unknownMerchant(t model.NormalizedTransaction) (model.InboxItem, bool) {
	if !t.HasDefaultCategory() {
		return model.InboxItem{}, false
	}
	meta := map[string]string{}
	put(meta, model.MetaMerchantRuleKey, t.MerchantNorm)
	put(meta, model.MetaMerchantNorm, t.MerchantNorm)
	return model.InboxItem{
		ID:            id.InboxItemID(string(model.KindUnknownMerchant), t.ID),
		Kind:          model.KindUnknownMerchant,
		TransactionID: t.ID,
		FileID:        t.Source.FileID,
		RowIndex:      t.Source.RowIndex,
		Reason:        "no category for merchant",
		Metadata:      meta,
	}, true
}

func uncertainTransfer(t model.NormalizedTransaction, threshold float64) (model.InboxItem, bool) {
	if !t.Flags.TransferCandidate {
		return model.InboxItem{}, false
	}
	reason := "transfer not matched"
	meta := map[string]string{}
	if a := t.Transfer; a != nil {
		if a.Confidence >= threshold {
			return model.InboxItem{}, false
		}
		reason = fmt.Sprintf("transfer confidence %.2f below %.2f", a.Confidence, threshold)
		put(meta, model.MetaTransferSignature, a.Signature)
		put(meta, model.MetaPairKey, a.PairKey)
		put(meta, model.MetaMatchID, a.MatchID)
	}
	if meta[model.MetaTransferSignature] == "" {
		put(meta, model.MetaTransferSignature, TransferSignature(t))
	}
	return model.InboxItem{
		ID:            id.InboxItemID(string(model.KindUncertainTransfer), t.ID),
		Kind:          model.KindUncertainTransfer,
		TransactionID: t.ID,
		FileID:        t.Source.FileID,
		RowIndex:      t.Source.RowIndex,
		Reason:        reason,
		Metadata:      meta,
	}, true
}

func lowConfidence(t model.NormalizedTransaction, threshold float64) (model.InboxItem, bool) {
	if len(t.Quality.Warnings) > 0 || t.Quality.Confidence >= threshold {
		return model.InboxItem{}, false
	}
	reason := string(model.WarningLowConfidence)
	meta := map[string]string{model.MetaWarningReason: reason}
	put(meta, model.MetaParseRuleKey, ParseRuleKey(t.TemplateID, model.WarningLowConfidence))
	return model.InboxItem{
		ID:            id.InboxItemID(string(model.KindParseIssue), t.ID, reason),
		Kind:          model.KindParseIssue,
		TransactionID: t.ID,
		FileID:        t.Source.FileID,
		RowIndex:      t.Source.RowIndex,
		Reason:        reason,
		Metadata:      meta,
	}, true
}

func parseIssue(f model.ParsedFile, w model.ParseWarning, txnID string) model.InboxItem {
	reason := string(w.Reason)
	meta := map[string]string{model.MetaWarningReason: reason}
	put(meta, model.MetaParseRuleKey, ParseRuleKey(f.TemplateID, w.Reason))
	return model.InboxItem{
		ID: id.InboxItemID(string(model.KindParseIssue),
			f.FileID, strconv.Itoa(w.RowIndex), strconv.Itoa(w.LineIndex), reason),
		Kind:          model.KindParseIssue,
		TransactionID: txnID,
		FileID:        f.FileID,
		RowIndex:      w.RowIndex,
		Reason:        reason,
		Metadata:      meta,
	}
}

// ParseRuleKey is the suppression key for a warning reason of one template.
// "commbank_auto_debit_credit:MISSING_PERIOD"
func ParseRuleKey(templateID string, reason model.WarningReason) string {
	if templateID == "" {
		return ""
	}
	return templateID + ":" + string(reason)
}

// TransferSignature derives a key from direction and merchant when no
// transfer annotation supplies one. Empty when the merchant is unknown.
func TransferSignature(t model.NormalizedTransaction) string {
	if t.MerchantNorm == "" {
		return ""
	}
	dir := "in"
	if t.Amount.IsNegative() {
		dir = "out"
	}
	return dir + ":" + t.MerchantNorm
}

func put(meta map[string]string, key, value string) {
	if value != "" {
		meta[key] = value
	}
}
