package statement

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/ledgerlens/ledgerlens/internal/model"
	"github.com/ledgerlens/ledgerlens/internal/template"
)

// tolerance is how far a balance delta may drift from a printed amount and
// still count as agreeing with it.
var tolerance = decimal.RequireFromString("0.005")

type issue struct {
	reason model.WarningReason
	detail string
}

// resolution is the outcome of reading a row's trailing numbers.
type resolution struct {
	amount     decimal.Decimal
	balance    decimal.NullDecimal
	confidence float64
	issues     []issue
}

// running is the last balance seen, when known.
type running struct {
	balance decimal.Decimal
	known   bool
}

// resolve dispatches on the template strategy. ok is false when the tokens
// cannot be split at all.
func resolve(s template.Strategy, toks []token, desc string, prev running, hasDebitCredit bool) (resolution, bool, error) {
	if len(toks) == 0 {
		return resolution{}, false, nil
	}
	switch s {
	case template.AmountBalance:
		return resolveAmountBalance(toks, desc, prev), true, nil
	case template.DebitCreditBalance:
		return resolveDebitCredit(toks, desc, prev), true, nil
	case template.InferFromLastNumbers:
		return resolveInfer(toks, desc, prev, hasDebitCredit), true, nil
	default:
		return resolution{}, false, fmt.Errorf("%w: %w: %s", ErrMisconfigured, template.ErrUnknownStrategy, s)
	}
}

// columns is how many of n trailing money values the strategy reads.
func columns(s template.Strategy, n int, hasDebitCredit bool) int {
	switch s {
	case template.AmountBalance:
		return min(n, 2)
	case template.DebitCreditBalance:
		return min(n, 3)
	case template.InferFromLastNumbers:
		if hasDebitCredit {
			return min(n, 3)
		}
		return min(n, 2)
	default:
		return n
	}
}

// single handles rows with one money value: without a second column there is
// no telling amount from balance.
func single(t token, desc string) resolution {
	amount, _ := signed(t, desc)
	return resolution{
		amount:     amount,
		confidence: 0.5,
		issues:     []issue{{model.WarningAmbiguousAmount, "only one amount column: " + t.text}},
	}
}

func resolveAmountBalance(toks []token, desc string, prev running) resolution {
	n := len(toks)
	if n == 1 {
		return single(toks[0], desc)
	}
	amt, bal := toks[n-2], toks[n-1]
	res := resolution{balance: decimal.NewNullDecimal(bal.value)}

	switch {
	case amt.signed:
		res.amount, res.confidence = amt.value, 1.0
	case prev.known && agrees(prev.balance.Sub(amt.value), bal.value) && !agrees(prev.balance.Add(amt.value), bal.value):
		res.amount, res.confidence = amt.value.Neg(), 0.95
	case prev.known && agrees(prev.balance.Add(amt.value), bal.value):
		res.amount, res.confidence = amt.value, 0.95
	default:
		// keyword decides, otherwise an unsigned amount is money in
		res.amount, _ = signed(amt, desc)
		res.confidence = 0.9
	}
	return res
}

func resolveDebitCredit(toks []token, desc string, prev running) resolution {
	n := len(toks)
	switch {
	case n >= 3:
		return threeColumn(toks[n-3], toks[n-2], toks[n-1])
	case n == 1:
		return single(toks[0], desc)
	}

	// Two values: one of debit/credit was blank in the extracted text.
	x, bal := toks[0], toks[1]
	res := resolution{balance: decimal.NewNullDecimal(bal.value)}
	mag := x.value.Abs()
	switch {
	case x.signed:
		res.amount, res.confidence = x.value, 0.95
	case prev.known && agrees(prev.balance.Sub(mag), bal.value):
		res.amount, res.confidence = mag.Neg(), 0.95
	case prev.known && agrees(prev.balance.Add(mag), bal.value):
		res.amount, res.confidence = mag, 0.95
	default:
		var byKeyword bool
		res.amount, byKeyword = signed(x, desc)
		res.confidence = 0.5
		if byKeyword {
			res.confidence = 0.6
		}
		res.issues = append(res.issues, issue{model.WarningAmbiguousAmount, "debit or credit column unknown for " + x.text})
	}
	return res
}

func threeColumn(debit, credit, bal token) resolution {
	return resolution{
		amount:     credit.value.Abs().Sub(debit.value.Abs()),
		balance:    decimal.NewNullDecimal(bal.value),
		confidence: 1.0,
	}
}

func resolveInfer(toks []token, desc string, prev running, hasDebitCredit bool) resolution {
	n := len(toks)
	if hasDebitCredit && n >= 3 {
		return threeColumn(toks[n-3], toks[n-2], toks[n-1])
	}
	if n == 1 {
		if prev.known {
			bal := toks[0].value
			return resolution{
				amount:     bal.Sub(prev.balance),
				balance:    decimal.NewNullDecimal(bal),
				confidence: 0.7,
				issues:     []issue{{model.WarningAmbiguousAmount, "amount inferred from balance only"}},
			}
		}
		return single(toks[0], desc)
	}

	raw, bal := toks[n-2], toks[n-1]
	res := resolution{balance: decimal.NewNullDecimal(bal.value)}
	if !prev.known {
		var byKeyword bool
		res.amount, byKeyword = signed(raw, desc)
		switch {
		case raw.signed:
			res.confidence = 0.9
		case byKeyword:
			res.confidence = 0.8
		default:
			res.confidence = 0.7
		}
		return res
	}

	delta := bal.value.Sub(prev.balance)
	res.amount = delta
	if agrees(delta.Abs(), raw.value.Abs()) {
		res.confidence = 0.95
		return res
	}
	res.confidence = 0.6
	res.issues = append(res.issues, issue{
		model.WarningAmbiguousAmount,
		fmt.Sprintf("balance delta %s disagrees with printed amount %s", delta.StringFixed(2), raw.value.StringFixed(2)),
	})
	return res
}

// signed applies t's own sign, or a keyword sign when t is unsigned. byKeyword
// reports whether a keyword decided. Unsigned without keywords is money in.
func signed(t token, desc string) (decimal.Decimal, bool) {
	if t.signed {
		return t.value, false
	}
	debit, credit := isDebitDescription(desc), isCreditDescription(desc)
	switch {
	case debit && !credit:
		return t.value.Neg(), true
	case credit && !debit:
		return t.value, true
	}
	return t.value, false
}

func agrees(a, b decimal.Decimal) bool {
	return a.Sub(b).Abs().LessThanOrEqual(tolerance)
}
