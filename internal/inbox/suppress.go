package inbox

import "github.com/ledgerlens/ledgerlens/internal/model"

// keyOrder lists, per kind, the metadata keys tried for a rule key.
var keyOrder = map[model.InboxKind][]string{
	model.KindUnknownMerchant:   {model.MetaMerchantRuleKey, model.MetaMerchantNorm},
	model.KindUncertainTransfer: {model.MetaTransferSignature, model.MetaPairKey, model.MetaMatchID},
	model.KindParseIssue:        {model.MetaParseRuleKey},
}

// RuleKey returns the suppression key of item. ok is false when the item
// carries nothing usable; such items can never be suppressed.
func RuleKey(item model.InboxItem) (string, bool) {
	for _, k := range keyOrder[item.Kind] {
		if v := item.Metadata[k]; v != "" {
			return v, true
		}
	}
	if item.Kind == model.KindParseIssue && item.Reason != "" {
		return item.Reason, true
	}
	return "", false
}

// IsSuppressed reports whether a rule of the item's kind matches its key.
func IsSuppressed(item model.InboxItem, o model.InboxOverrides) bool {
	key, ok := RuleKey(item)
	if !ok {
		return false
	}
	return o.Rules(item.Kind)[key]
}

// Visible is the filtered inbox.
type Visible struct {
	Items            []model.InboxItem `json:"items"`
	SuppressedByRule int               `json:"suppressedByRule"`
	Resolved         int               `json:"resolved"`
}

// Filter keeps unresolved, unsuppressed items. Suppressed items are counted,
// never silently dropped.
func Filter(items []model.InboxItem, o model.InboxOverrides) Visible {
	var v Visible
	for _, it := range items {
		switch {
		case it.Resolved:
			v.Resolved++
		case IsSuppressed(it, o):
			v.SuppressedByRule++
		default:
			v.Items = append(v.Items, it)
		}
	}
	return v
}

// Counts groups visible items by kind.
func (v Visible) Counts() map[model.InboxKind]int {
	out := make(map[model.InboxKind]int)
	for _, it := range v.Items {
		out[it.Kind]++
	}
	return out
}
