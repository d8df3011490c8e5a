package normalize

import "github.com/ledgerlens/ledgerlens/internal/model"

// Deduplicate drops incoming rows already present in existing. Keys are
// counted, so a file that legitimately holds two identical payments keeps
// both unless the ledger already has two.
func Deduplicate(existing, incoming []model.NormalizedTransaction) (kept, dropped []model.NormalizedTransaction) {
	have := make(map[string]int, len(existing))
	for _, t := range existing {
		have[t.DedupeKey]++
	}
	seen := make(map[string]int, len(incoming))
	for _, t := range incoming {
		seen[t.DedupeKey]++
		if seen[t.DedupeKey] > have[t.DedupeKey] {
			kept = append(kept, t)
			continue
		}
		dropped = append(dropped, t)
	}
	return kept, dropped
}

// Merge appends the new rows of each file to the ledger in order.
func Merge(ledger []model.NormalizedTransaction, files ...[]model.NormalizedTransaction) []model.NormalizedTransaction {
	out := append([]model.NormalizedTransaction(nil), ledger...)
	for _, f := range files {
		kept, _ := Deduplicate(out, f)
		out = append(out, kept...)
	}
	return out
}
