package model

// WarningReason enumerates data-shape anomalies found while parsing.
type WarningReason string

const (
	WarningAmbiguousAmount    WarningReason = "AMBIGUOUS_AMOUNT"
	WarningMissingDate        WarningReason = "MISSING_DATE"
	WarningInvalidDate        WarningReason = "INVALID_DATE"
	WarningUnparseableBlock   WarningReason = "UNPARSEABLE_BLOCK"
	WarningMissingPeriod      WarningReason = "MISSING_PERIOD"
	WarningMalformedPeriod    WarningReason = "MALFORMED_PERIOD"
	WarningHeaderNotFound     WarningReason = "HEADER_NOT_FOUND"
	WarningContinuityMismatch WarningReason = "CONTINUITY_MISMATCH"
	WarningLowConfidence      WarningReason = "LOW_CONFIDENCE"
)

// NoRow marks a warning that belongs to the document rather than a row.
const NoRow = -1

// ParseWarning describes one anomaly. RowIndex references the emitted row
// it belongs to, or NoRow.
type ParseWarning struct {
	Reason    WarningReason `json:"reason"`
	RawLine   string        `json:"rawLine"`
	Detail    string        `json:"detail,omitempty"`
	RowIndex  int           `json:"rowIndex"`
	LineIndex int           `json:"lineIndex"`
}

// DocumentWarning builds a warning that is not tied to any row.
func DocumentWarning(reason WarningReason, rawLine, detail string, lineIndex int) ParseWarning {
	return ParseWarning{Reason: reason, RawLine: rawLine, Detail: detail, RowIndex: NoRow, LineIndex: lineIndex}
}

// WarningsForRow returns the reasons of warnings tagged with rowIndex, in order.
func WarningsForRow(warnings []ParseWarning, rowIndex int) []WarningReason {
	var reasons []WarningReason
	for _, w := range warnings {
		if w.RowIndex == rowIndex && rowIndex != NoRow {
			reasons = append(reasons, w.Reason)
		}
	}
	return reasons
}
