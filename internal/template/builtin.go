package template

import "regexp"

// Built-in template ids.
const (
	CommBankManualAmountBalance = "commbank_manual_amount_balance"
	CommBankAutoDebitCredit     = "commbank_auto_debit_credit"
	CommBankSummaryInfer        = "commbank_summary_infer"
)

const monthAlt = `(?:Jan|Feb|Mar|Apr|May|Jun|Jul|Aug|Sep|Oct|Nov|Dec)`

// Noise every CommBank layout repeats on page breaks.
var commBankNoise = []*regexp.Regexp{
	regexp.MustCompile(`(?i)^page\s+\d+\s+of\s+\d+$`),
	regexp.MustCompile(`(?i)^continued (?:on|from) (?:next|previous) page`),
	regexp.MustCompile(`(?i)^commonwealth bank of australia\b.*\babn\b`),
	regexp.MustCompile(`(?i)^enquiries\b`),
	regexp.MustCompile(`(?i)^statement\s+\d+\s*\(page\s+\d+\s+of\s+\d+\)$`),
}

func builtins() []Config {
	return []Config{
		{
			ID:            CommBankManualAmountBalance,
			Bank:          "commbank",
			Version:       "2",
			HeaderAnchors: []string{"Date Transaction details Amount Balance"},
			Keywords:      []string{"date", "transaction details", "amount", "balance"},
			Segment: SegmentConfig{
				StartAfterHeader:   true,
				StopAnchors:        []string{"Any pending transactions haven't been included"},
				RemoveLinePatterns: commBankNoise,
			},
			Parse: ParseConfig{
				DatePattern:    regexp.MustCompile(`(?i)^(\d{1,2}\s+` + monthAlt + `\s+\d{4})\b`),
				DateLayouts:    []string{"2 Jan 2006"},
				Strategy:       AmountBalance,
				YearInference:  YearNone,
				MultilineBlock: true,
			},
			Quality: QualityConfig{
				EnableContinuityGate: true,
				ContinuityThreshold:  0.85,
				MinContinuityChecked: 5,
			},
		},
		{
			ID:            CommBankAutoDebitCredit,
			Bank:          "commbank",
			Version:       "1",
			HeaderAnchors: []string{"Date Transaction Debit Credit Balance"},
			Keywords:      []string{"date", "transaction", "debit", "credit", "balance"},
			Segment: SegmentConfig{
				StartAfterHeader:   true,
				StopAnchors:        []string{"Closing balance"},
				RemoveLinePatterns: commBankNoise,
			},
			Parse: ParseConfig{
				DatePattern:           regexp.MustCompile(`(?i)^(\d{1,2}\s+` + monthAlt + `)\b`),
				DateLayouts:           []string{"2 Jan"},
				HasDebitCreditColumns: true,
				Strategy:              DebitCreditBalance,
				YearInference:         YearFromPeriod,
				MultilineBlock:        true,
			},
			Quality: QualityConfig{
				EnableContinuityGate: true,
				ContinuityThreshold:  0.9,
				MinContinuityChecked: 5,
			},
		},
		{
			ID:            CommBankSummaryInfer,
			Bank:          "commbank",
			Version:       "1",
			HeaderAnchors: []string{"Date Description Amount Balance"},
			Keywords:      []string{"date", "description", "amount", "balance"},
			Segment: SegmentConfig{
				StartAfterHeader:   true,
				StopAnchors:        []string{"End of transaction summary"},
				RemoveLinePatterns: commBankNoise,
			},
			Parse: ParseConfig{
				DatePattern:    regexp.MustCompile(`^(\d{2}/\d{2}/\d{4})\b`),
				DateLayouts:    []string{"02/01/2006"},
				Strategy:       InferFromLastNumbers,
				YearInference:  YearNone,
				MultilineBlock: false,
			},
			Quality: QualityConfig{
				EnableContinuityGate: true,
				ContinuityThreshold:  0.8,
				MinContinuityChecked: 3,
			},
		},
	}
}
