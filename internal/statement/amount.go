package statement

import (
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

// amountPattern matches one printed money value. Accepted sign markers are a
// leading or trailing minus, a leading plus, parentheses and a CR/DR suffix.
// Cents are required so bare reference numbers are never read as money.
var amountPattern = regexp.MustCompile(`(?i)^(\()?([+-])?\$?([+-])?(\d{1,3}(?:,\d{3})+|\d+)\.(\d{2})(\))?(-)?(CR|DR)?$`)

// token is one trailing money value of a row.
type token struct {
	text   string
	value  decimal.Decimal // signed when a marker was present, else positive
	signed bool
}

// parseToken reads a single field. marker is a detached CR/DR field that
// followed it, if any.
func parseToken(field, marker string) (token, bool) {
	m := amountPattern.FindStringSubmatch(field)
	if m == nil {
		return token{}, false
	}
	open, sign1, sign2, whole, cents, closeParen, trail, suffix := m[1], m[2], m[3], m[4], m[5], m[6], m[7], m[8]
	if (open == "") != (closeParen == "") {
		return token{}, false
	}
	if sign1 != "" && sign2 != "" {
		return token{}, false
	}

	v, err := decimal.NewFromString(strings.ReplaceAll(whole, ",", "") + "." + cents)
	if err != nil {
		return token{}, false
	}

	if suffix == "" {
		suffix = marker
	}
	t := token{text: field, value: v}
	switch {
	case open != "", sign1 == "-", sign2 == "-", trail != "", strings.EqualFold(suffix, "DR"):
		t.value = v.Neg()
		t.signed = true
	case sign1 == "+", sign2 == "+", strings.EqualFold(suffix, "CR"):
		t.signed = true
	}
	return t, true
}

// trailingTokens splits fields into leading text and the run of money values
// at the end. Lone "$" fields and detached CR/DR markers are absorbed.
func trailingTokens(fields []string) ([]string, []token) {
	var toks []token
	i := len(fields) - 1
	for i >= 0 {
		f := fields[i]
		marker := ""
		if isMarker(f) && i > 0 {
			marker = f
			f = fields[i-1]
			if t, ok := parseToken(f, marker); ok {
				t.text = f + " " + marker
				toks = append(toks, t)
				i -= 2
				continue
			}
			break
		}
		if t, ok := parseToken(f, ""); ok {
			toks = append(toks, t)
			i--
			if i >= 0 && fields[i] == "$" {
				i--
			}
			continue
		}
		break
	}
	// collected back to front
	for l, r := 0, len(toks)-1; l < r; l, r = l+1, r-1 {
		toks[l], toks[r] = toks[r], toks[l]
	}
	return fields[:i+1], toks
}

func isMarker(f string) bool {
	return strings.EqualFold(f, "CR") || strings.EqualFold(f, "DR")
}
