// Package quality checks parsed rows against their own running balances.
package quality

import (
	"fmt"
	"slices"

	"github.com/shopspring/decimal"

	"github.com/ledgerlens/ledgerlens/internal/model"
	"github.com/ledgerlens/ledgerlens/internal/template"
)

// Epsilon is the largest balance drift still treated as consistent.
var Epsilon = decimal.RequireFromString("0.005")

// MismatchConfidence caps the confidence of rows that break continuity.
const MismatchConfidence = 0.5

// Status of a continuity check.
type Status string

const (
	StatusDisabled Status = "disabled"
	StatusUntested Status = "untested" // too few balance pairs to judge
	StatusPassed   Status = "passed"
	StatusFailed   Status = "failed"
)

// Mismatch is one adjacent pair whose balances disagree with the amount.
type Mismatch struct {
	RowIndex     int             `json:"rowIndex"`
	PrevRowIndex int             `json:"prevRowIndex"`
	LineIndex    int             `json:"lineIndex"`
	Expected     decimal.Decimal `json:"expected"`
	Actual       decimal.Decimal `json:"actual"`
	RawLine      string          `json:"rawLine,omitempty"`
}

func (m Mismatch) Error() string {
	return fmt.Sprintf("row %d: expected balance %s after row %d, got %s",
		m.RowIndex, m.Expected.StringFixed(2), m.PrevRowIndex, m.Actual.StringFixed(2))
}

// Report is the gate outcome for one statement.
type Report struct {
	Status      Status     `json:"status"`
	Checked     int        `json:"checked"`
	Consistent  int        `json:"consistent"`
	PassRatio   float64    `json:"passRatio"`
	NeedsReview bool       `json:"needsReview"`
	Reversed    bool       `json:"reversed"`
	Mismatches  []Mismatch `json:"mismatches,omitempty"`
}

// CheckContinuity walks rows in date order and verifies that each balance
// equals the previous balance plus the row amount.
func CheckContinuity(txns []model.ParsedTransaction, q template.QualityConfig) Report {
	if !q.EnableContinuityGate {
		return Report{Status: StatusDisabled}
	}

	ordered, reversed := chronological(txns)
	rep := Report{Reversed: reversed}

	for i := 1; i < len(ordered); i++ {
		prev, cur := ordered[i-1], ordered[i]
		if !prev.Balance.Valid || !cur.Balance.Valid {
			continue
		}
		rep.Checked++
		expected := prev.Balance.Decimal.Add(cur.Amount)
		if expected.Sub(cur.Balance.Decimal).Abs().LessThanOrEqual(Epsilon) {
			rep.Consistent++
			continue
		}
		rep.Mismatches = append(rep.Mismatches, Mismatch{
			RowIndex:     cur.Source.RowIndex,
			PrevRowIndex: prev.Source.RowIndex,
			LineIndex:    cur.Source.LineIndex,
			Expected:     expected,
			Actual:       cur.Balance.Decimal,
			RawLine:      cur.RawLine,
		})
	}

	if rep.Checked > 0 {
		rep.PassRatio = float64(rep.Consistent) / float64(rep.Checked)
	}
	switch {
	case rep.Checked == 0 || rep.Checked < q.MinContinuityChecked:
		rep.Status = StatusUntested
	case rep.PassRatio >= q.ContinuityThreshold:
		rep.Status = StatusPassed
	default:
		rep.Status = StatusFailed
		rep.NeedsReview = true
	}
	return rep
}

// chronological returns rows oldest first. Statements printed newest first
// are flipped before the stable date sort so same-day rows keep their
// printed relative order. Rows are only sorted when every row has a date.
func chronological(txns []model.ParsedTransaction) ([]model.ParsedTransaction, bool) {
	out := slices.Clone(txns)

	first, last := "", ""
	allDated := true
	for _, t := range out {
		if t.ISODate == "" {
			allDated = false
			continue
		}
		if first == "" {
			first = t.ISODate
		}
		last = t.ISODate
	}

	reversed := first != "" && first > last
	if reversed {
		slices.Reverse(out)
	}
	if allDated {
		slices.SortStableFunc(out, func(a, b model.ParsedTransaction) int {
			switch {
			case a.ISODate < b.ISODate:
				return -1
			case a.ISODate > b.ISODate:
				return 1
			}
			return 0
		})
	}
	return out, reversed
}

// Summary is the persisted form of the report.
func (r Report) Summary() model.ContinuitySummary {
	return model.ContinuitySummary{
		Status:      string(r.Status),
		Checked:     r.Checked,
		Consistent:  r.Consistent,
		PassRatio:   r.PassRatio,
		NeedsReview: r.NeedsReview,
	}
}

// Warnings returns one CONTINUITY_MISMATCH warning per mismatched row.
func (r Report) Warnings() []model.ParseWarning {
	var out []model.ParseWarning
	for _, m := range r.Mismatches {
		out = append(out, model.ParseWarning{
			Reason:    model.WarningContinuityMismatch,
			RawLine:   m.RawLine,
			Detail:    m.Error(),
			RowIndex:  m.RowIndex,
			LineIndex: m.LineIndex,
		})
	}
	return out
}

// Downgrade returns a copy of txns with mismatched rows capped at
// MismatchConfidence. The input is not modified.
func Downgrade(txns []model.ParsedTransaction, r Report) []model.ParsedTransaction {
	out := slices.Clone(txns)
	if len(r.Mismatches) == 0 {
		return out
	}
	bad := make(map[int]bool, len(r.Mismatches))
	for _, m := range r.Mismatches {
		bad[m.RowIndex] = true
	}
	for i := range out {
		if bad[out[i].Source.RowIndex] && out[i].Confidence > MismatchConfidence {
			out[i].Confidence = MismatchConfidence
		}
	}
	return out
}
