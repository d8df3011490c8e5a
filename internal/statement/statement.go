// Package statement turns a segmented transaction table into parsed rows.
package statement

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ledgerlens/ledgerlens/internal/buildinfo"
	"github.com/ledgerlens/ledgerlens/internal/model"
	"github.com/ledgerlens/ledgerlens/internal/template"
	"github.com/ledgerlens/ledgerlens/internal/textnorm"
)

// ErrMisconfigured is returned when a template cannot drive the parser.
// Messy input never produces an error; it produces warnings.
var ErrMisconfigured = errors.New("template misconfigured")

// Confidence caps applied to rows whose date could not be fully resolved.
const (
	capNoYear      = 0.6
	capInvalidDate = 0.4
)

// Options carries per-document context.
type Options struct {
	// Document is the full extracted text, searched for the statement
	// period. The section itself is searched when empty.
	Document string
}

// Result holds the rows and warnings of one section.
type Result struct {
	Transactions   []model.ParsedTransaction `json:"transactions"`
	Warnings       []model.ParseWarning      `json:"warnings"`
	Period         *Period                   `json:"period,omitempty"`
	OpeningBalance decimal.NullDecimal       `json:"openingBalance"`
	ClosingBalance decimal.NullDecimal       `json:"closingBalance"`
}

// block is a dated row and its continuation lines.
type block struct {
	lines     []string
	lineIndex int
	date      string
	rest      string // first line after the date text
}

type parser struct {
	tpl     template.Config
	opts    Options
	section string
	res     Result
	prev    running

	periodChecked bool
	period        *Period
}

// Parse reads section with tpl. Only template misconfiguration is an error.
func Parse(section string, tpl template.Config, opts Options) (Result, error) {
	if err := checkTemplate(tpl); err != nil {
		return Result{}, err
	}
	p := &parser{tpl: tpl, opts: opts, section: section}
	if err := p.run(section); err != nil {
		return Result{}, err
	}
	return p.res, nil
}

func checkTemplate(tpl template.Config) error {
	if tpl.Parse.DatePattern == nil {
		return fmt.Errorf("%w: %s has no date pattern", ErrMisconfigured, tpl.ID)
	}
	if len(tpl.Parse.DateLayouts) == 0 {
		return fmt.Errorf("%w: %s has no date layouts", ErrMisconfigured, tpl.ID)
	}
	if !tpl.Parse.Strategy.Valid() {
		return fmt.Errorf("%w: %w: %s", ErrMisconfigured, template.ErrUnknownStrategy, tpl.Parse.Strategy)
	}
	return nil
}

func (p *parser) run(section string) error {
	var cur *block
	for i, raw := range textnorm.Lines(section) {
		line := textnorm.CollapseSpace(textnorm.CleanLine(raw))
		if line == "" {
			continue
		}

		if date, rest, ok := p.matchDate(line); ok {
			if cur != nil {
				if err := p.close(cur); err != nil {
					return err
				}
			}
			cur = &block{lines: []string{line}, lineIndex: i, date: date, rest: rest}
			continue
		}

		switch {
		case cur == nil:
			p.beforeFirstBlock(line, i)
		case p.tpl.Parse.MultilineBlock:
			cur.lines = append(cur.lines, line)
		default:
			p.undatedLine(line, i)
		}
	}
	if cur != nil {
		return p.close(cur)
	}
	return nil
}

func (p *parser) matchDate(line string) (date, rest string, ok bool) {
	loc := p.tpl.Parse.DatePattern.FindStringSubmatchIndex(line)
	if loc == nil || loc[0] != 0 {
		return "", "", false
	}
	start, end := loc[0], loc[1]
	if len(loc) >= 4 && loc[2] >= 0 {
		start, end = loc[2], loc[3]
	}
	return line[start:end], strings.TrimSpace(line[loc[1]:]), true
}

// beforeFirstBlock handles lines ahead of the first date. An opening
// balance seeds the running balance; other money-bearing lines lost
// their date.
func (p *parser) beforeFirstBlock(line string, lineIndex int) {
	head, toks := trailingTokens(strings.Fields(line))
	if len(toks) == 0 {
		return
	}
	if isBalanceMarker(strings.Join(head, " ")) {
		p.markBalance(head, toks)
		return
	}
	p.res.Warnings = append(p.res.Warnings, model.DocumentWarning(model.WarningMissingDate, line, "amount without a date", lineIndex))
}

// undatedLine handles continuation lines when blocks are single-line.
func (p *parser) undatedLine(line string, lineIndex int) {
	head, toks := trailingTokens(strings.Fields(line))
	if len(toks) > 0 && isBalanceMarker(strings.Join(head, " ")) {
		p.markBalance(head, toks)
		return
	}
	p.res.Warnings = append(p.res.Warnings, model.DocumentWarning(model.WarningUnparseableBlock, line, "line outside any row", lineIndex))
}

func (p *parser) markBalance(head []string, toks []token) {
	bal := toks[len(toks)-1].value
	p.prev = running{balance: bal, known: true}
	if textnorm.ContainsCompact(strings.Join(head, " "), []string{"closing balance", "carried forward"}) {
		p.res.ClosingBalance = decimal.NewNullDecimal(bal)
		return
	}
	if !p.res.OpeningBalance.Valid && len(p.res.Transactions) == 0 {
		p.res.OpeningBalance = decimal.NewNullDecimal(bal)
	}
}

// close resolves a finished block into a row, a balance update or a warning.
func (p *parser) close(b *block) error {
	rawLine := strings.Join(b.lines, "\n")

	// The last line carrying trailing money values holds the amounts; the
	// rest of the block is description.
	var (
		descParts []string
		toks      []token
	)
	bodies := append([]string{b.rest}, b.lines[1:]...)
	amountLine := -1
	for i := len(bodies) - 1; i >= 0; i-- {
		head, t := trailingTokens(strings.Fields(bodies[i]))
		if len(t) > 0 {
			// Money values to the left of the strategy's columns are part of
			// the description, e.g. a foreign amount printed beside the name.
			extra := len(t) - columns(p.tpl.Parse.Strategy, len(t), p.tpl.Parse.HasDebitCreditColumns)
			for _, x := range t[:extra] {
				head = append(head, x.text)
			}
			amountLine, toks = i, t[extra:]
			bodies[i] = strings.Join(head, " ")
			break
		}
	}
	for _, s := range bodies {
		if s = strings.TrimSpace(s); s != "" && s != "$" {
			descParts = append(descParts, s)
		}
	}
	desc := strings.Join(descParts, " ")

	if amountLine >= 0 && isBalanceMarker(desc) {
		p.markBalance(strings.Fields(desc), toks)
		return nil
	}

	res, ok, err := resolve(p.tpl.Parse.Strategy, toks, desc, p.prev, p.tpl.Parse.HasDebitCreditColumns)
	if err != nil {
		return err
	}
	if !ok {
		p.res.Warnings = append(p.res.Warnings, model.DocumentWarning(model.WarningUnparseableBlock, rawLine, "no amount found", b.lineIndex))
		return nil
	}

	row := len(p.res.Transactions)
	isoDate, confCap, dateIssue := p.resolveDate(b.date, rawLine, b.lineIndex)
	if dateIssue != nil {
		res.issues = append(res.issues, *dateIssue)
	}
	conf := res.confidence
	if confCap > 0 && conf > confCap {
		conf = confCap
	}

	p.res.Transactions = append(p.res.Transactions, model.ParsedTransaction{
		Date:        b.date,
		ISODate:     isoDate,
		Description: desc,
		Amount:      res.amount,
		Balance:     res.balance,
		RawLine:     rawLine,
		Confidence:  conf,
		Source: model.RowSource{
			RowIndex:      row,
			LineIndex:     b.lineIndex,
			ParserVersion: buildinfo.ParserVersion,
		},
	})
	for _, is := range res.issues {
		p.res.Warnings = append(p.res.Warnings, model.ParseWarning{
			Reason:    is.reason,
			RawLine:   rawLine,
			Detail:    is.detail,
			RowIndex:  row,
			LineIndex: b.lineIndex,
		})
	}

	switch {
	case res.balance.Valid:
		p.prev = running{balance: res.balance.Decimal, known: true}
	case p.prev.known:
		p.prev.balance = p.prev.balance.Add(res.amount)
	}
	return nil
}

// resolveDate returns the ISO date, a confidence cap (0 for none) and an
// issue to attach to the row.
func (p *parser) resolveDate(raw, rawLine string, lineIndex int) (string, float64, *issue) {
	norm := textnorm.CollapseSpace(raw)
	var (
		t   time.Time
		err error
	)
	for _, layout := range p.tpl.Parse.DateLayouts {
		if t, err = time.Parse(layout, norm); err == nil {
			break
		}
	}
	if err != nil {
		return "", capInvalidDate, &issue{model.WarningInvalidDate, fmt.Sprintf("%q matches no date layout", raw)}
	}
	if t.Year() != 0 {
		return t.Format("2006-01-02"), 0, nil
	}

	if p.tpl.Parse.YearInference != template.YearFromPeriod {
		return "", capNoYear, &issue{model.WarningInvalidDate, fmt.Sprintf("%q has no year", raw)}
	}
	period := p.statementPeriod()
	if period == nil {
		return "", capNoYear, nil
	}
	full, ok := period.resolveYear(t.Month(), t.Day())
	if !ok {
		return "", capInvalidDate, &issue{model.WarningInvalidDate, fmt.Sprintf("%q does not exist in %s", raw, period)}
	}
	return full.Format("2006-01-02"), 0, nil
}

// statementPeriod finds the period once per document and records a single
// warning when it is missing or unreadable.
func (p *parser) statementPeriod() *Period {
	if p.periodChecked {
		return p.period
	}
	p.periodChecked = true

	text := p.opts.Document
	if strings.TrimSpace(text) == "" {
		text = p.section
	}
	period, status, line, idx := findPeriod(text)
	switch status {
	case periodFound:
		p.period = &period
		p.res.Period = &period
	case periodMalformed:
		p.res.Warnings = append(p.res.Warnings, model.DocumentWarning(model.WarningMalformedPeriod, line, "period heading has no readable date range", idx))
	case periodMissing:
		p.res.Warnings = append(p.res.Warnings, model.DocumentWarning(model.WarningMissingPeriod, "", "no statement period heading", model.NoRow))
	}
	return p.period
}
