package model

import "time"

// InboxKind classifies an inbox item.
type InboxKind string

const (
	KindUnknownMerchant   InboxKind = "UNKNOWN_MERCHANT"
	KindUncertainTransfer InboxKind = "UNCERTAIN_TRANSFER"
	KindParseIssue        InboxKind = "PARSE_ISSUE"
)

// Metadata keys carried by inbox items.
const (
	MetaMerchantRuleKey   = "merchantRuleKey"
	MetaMerchantNorm      = "merchantNorm"
	MetaTransferSignature = "transferSignature"
	MetaPairKey           = "pairKey"
	MetaMatchID           = "matchId"
	MetaParseRuleKey      = "parseRuleKey"
	MetaWarningReason     = "reason"
)

// InboxItem is a flagged anomaly awaiting review. Items are recomputed on
// every request and never persisted.
type InboxItem struct {
	ID            string            `json:"id"`
	Kind          InboxKind         `json:"kind"`
	TransactionID string            `json:"transactionId,omitempty"`
	FileID        string            `json:"fileId,omitempty"`
	RowIndex      int               `json:"rowIndex"`
	Reason        string            `json:"reason,omitempty"`
	Metadata      map[string]string `json:"metadata"`
	Resolved      bool              `json:"resolved"`
}

// InboxOverrides holds user suppression rules per item kind.
type InboxOverrides struct {
	MerchantRules map[string]bool `json:"merchantRules" yaml:"merchant_rules"`
	TransferRules map[string]bool `json:"transferRules" yaml:"transfer_rules"`
	ParseRules    map[string]bool `json:"parseRules" yaml:"parse_rules"`
	UpdatedAt     time.Time       `json:"updatedAt" yaml:"updated_at"`
}

// Rules returns the rule map for kind, or nil for an unknown kind.
func (o InboxOverrides) Rules(kind InboxKind) map[string]bool {
	switch kind {
	case KindUnknownMerchant:
		return o.MerchantRules
	case KindUncertainTransfer:
		return o.TransferRules
	case KindParseIssue:
		return o.ParseRules
	}
	return nil
}

// OverridesPatch is a partial update. A nil field leaves that category
// untouched; a non-nil field (even an empty map) replaces it.
type OverridesPatch struct {
	MerchantRules *map[string]bool `json:"merchantRules,omitempty"`
	TransferRules *map[string]bool `json:"transferRules,omitempty"`
	ParseRules    *map[string]bool `json:"parseRules,omitempty"`
}

// Apply merges p into o and returns the result. o is not modified.
func (p OverridesPatch) Apply(o InboxOverrides) InboxOverrides {
	out := InboxOverrides{
		MerchantRules: cloneRules(o.MerchantRules),
		TransferRules: cloneRules(o.TransferRules),
		ParseRules:    cloneRules(o.ParseRules),
		UpdatedAt:     o.UpdatedAt,
	}
	if p.MerchantRules != nil {
		out.MerchantRules = cloneRules(*p.MerchantRules)
	}
	if p.TransferRules != nil {
		out.TransferRules = cloneRules(*p.TransferRules)
	}
	if p.ParseRules != nil {
		out.ParseRules = cloneRules(*p.ParseRules)
	}
	return out
}

// Empty reports whether the patch touches nothing.
func (p OverridesPatch) Empty() bool {
	return p.MerchantRules == nil && p.TransferRules == nil && p.ParseRules == nil
}

func cloneRules(m map[string]bool) map[string]bool {
	out := make(map[string]bool, len(m))
	for k, v := range m {
		if v {
			out[k] = true
		}
	}
	return out
}

// Resolution records that a reviewer dismissed an inbox item.
type Resolution struct {
	ResolvedAt time.Time `json:"resolvedAt" yaml:"resolved_at"`
	Note       string    `json:"note,omitempty" yaml:"note,omitempty"`
}

// ReviewState is the persisted set of resolved item or transaction ids.
type ReviewState struct {
	Resolved  map[string]Resolution `json:"resolved" yaml:"resolved"`
	UpdatedAt time.Time             `json:"updatedAt" yaml:"updated_at"`
}

// IsResolved reports whether id has been resolved.
func (s ReviewState) IsResolved(id string) bool {
	_, ok := s.Resolved[id]
	return ok
}
