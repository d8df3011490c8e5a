// Package template describes statement layouts: how to find the transaction
// table, how to read dates and amounts, and how strict the quality gate is.
package template

import (
	"errors"
	"fmt"
	"regexp"
	"slices"
)

var (
	// ErrUnknownTemplate is returned for template ids that are not registered.
	ErrUnknownTemplate = errors.New("unknown template")
	// ErrUnknownStrategy is returned for amount/balance strategies or year
	// inference modes that do not exist.
	ErrUnknownStrategy = errors.New("unknown strategy")
	// ErrInvalidTemplate is returned when a template fails validation.
	ErrInvalidTemplate = errors.New("invalid template")
)

// Strategy decides how the trailing numbers of a row become amount and balance.
type Strategy int

const (
	// AmountBalance: the last two numbers are (amount, balance).
	AmountBalance Strategy = iota + 1
	// DebitCreditBalance: three columns (debit, credit, balance).
	DebitCreditBalance
	// InferFromLastNumbers: amount comes from the running-balance delta.
	InferFromLastNumbers
)

var strategyNames = map[Strategy]string{
	AmountBalance:        "amount_balance",
	DebitCreditBalance:   "debit_credit_balance",
	InferFromLastNumbers: "infer_from_last_numbers",
}

func (s Strategy) String() string {
	if name, ok := strategyNames[s]; ok {
		return name
	}
	return fmt.Sprintf("strategy(%d)", int(s))
}

// Valid reports whether s is one of the defined strategies.
func (s Strategy) Valid() bool {
	_, ok := strategyNames[s]
	return ok
}

// ParseStrategy maps a configuration name to a Strategy.
func ParseStrategy(name string) (Strategy, error) {
	for s, n := range strategyNames {
		if n == name {
			return s, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownStrategy, name)
}

// YearInference decides where the year of a year-less date comes from.
type YearInference int

const (
	// YearNone: dates carry their own year.
	YearNone YearInference = iota
	// YearFromPeriod: the year comes from the statement period heading.
	YearFromPeriod
)

func (y YearInference) String() string {
	switch y {
	case YearNone:
		return "none"
	case YearFromPeriod:
		return "from_period"
	}
	return fmt.Sprintf("year_inference(%d)", int(y))
}

// ParseYearInference maps a configuration name to a YearInference.
func ParseYearInference(name string) (YearInference, error) {
	switch name {
	case "", "none":
		return YearNone, nil
	case "from_period":
		return YearFromPeriod, nil
	}
	return 0, fmt.Errorf("%w: year inference %q", ErrUnknownStrategy, name)
}

// SegmentConfig bounds the transaction table inside the extracted text.
type SegmentConfig struct {
	StartAfterHeader   bool
	StopAnchors        []string
	RemoveLinePatterns []*regexp.Regexp
}

// ParseConfig controls row parsing.
type ParseConfig struct {
	// DatePattern must match at the start of a row; group 1 (or the whole
	// match) is the date text.
	DatePattern           *regexp.Regexp
	DateLayouts           []string // time.Parse layouts tried in order
	HasDebitCreditColumns bool
	Strategy              Strategy
	YearInference         YearInference
	MultilineBlock        bool
}

// QualityConfig controls the continuity gate.
type QualityConfig struct {
	EnableContinuityGate bool
	ContinuityThreshold  float64
	MinContinuityChecked int
}

// Config is one statement layout. Configs are immutable once registered.
type Config struct {
	ID            string
	Bank          string
	Version       string
	HeaderAnchors []string
	Keywords      []string // detector window keywords, matched case-insensitively
	Segment       SegmentConfig
	Parse         ParseConfig
	Quality       QualityConfig
}

// Validate checks the invariants every registered template must hold.
func (c Config) Validate() error {
	if c.ID == "" {
		return fmt.Errorf("%w: empty id", ErrInvalidTemplate)
	}
	if len(c.HeaderAnchors) == 0 && len(c.Keywords) == 0 {
		return fmt.Errorf("%w: %s has neither header anchors nor keywords", ErrInvalidTemplate, c.ID)
	}
	if c.Parse.DatePattern == nil {
		return fmt.Errorf("%w: %s has no date pattern", ErrInvalidTemplate, c.ID)
	}
	if len(c.Parse.DateLayouts) == 0 {
		return fmt.Errorf("%w: %s has no date layouts", ErrInvalidTemplate, c.ID)
	}
	if !c.Parse.Strategy.Valid() {
		return fmt.Errorf("%s: %w: %s", c.ID, ErrUnknownStrategy, c.Parse.Strategy)
	}
	switch c.Parse.YearInference {
	case YearNone, YearFromPeriod:
	default:
		return fmt.Errorf("%s: %w: %s", c.ID, ErrUnknownStrategy, c.Parse.YearInference)
	}
	if c.Quality.ContinuityThreshold < 0 || c.Quality.ContinuityThreshold > 1 {
		return fmt.Errorf("%w: %s continuity threshold %v outside [0,1]", ErrInvalidTemplate, c.ID, c.Quality.ContinuityThreshold)
	}
	if c.Quality.MinContinuityChecked < 0 {
		return fmt.Errorf("%w: %s negative min continuity checked", ErrInvalidTemplate, c.ID)
	}
	return nil
}

func (c Config) clone() Config {
	c.HeaderAnchors = slices.Clone(c.HeaderAnchors)
	c.Keywords = slices.Clone(c.Keywords)
	c.Segment.StopAnchors = slices.Clone(c.Segment.StopAnchors)
	c.Segment.RemoveLinePatterns = slices.Clone(c.Segment.RemoveLinePatterns)
	c.Parse.DateLayouts = slices.Clone(c.Parse.DateLayouts)
	return c
}
