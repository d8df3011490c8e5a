// Package detect picks the statement template for a piece of extracted text.
package detect

import (
	"strings"
	"unicode"

	"github.com/ledgerlens/ledgerlens/internal/template"
	"github.com/ledgerlens/ledgerlens/internal/textnorm"
)

// Unknown is returned when no template matches. Callers must not guess a
// template in that case.
const Unknown = "unknown"

// DefaultWindow is the number of consecutive lines keywords must share.
const DefaultWindow = 6

// Method says which test matched.
type Method string

const (
	MethodNone   Method = ""
	MethodAnchor Method = "anchor"
	MethodWindow Method = "window"
)

// Match is a detection result with the evidence behind it.
type Match struct {
	TemplateID string `json:"templateId"`
	Method     Method `json:"method,omitempty"`
	// Line is the first line of the matching window, or -1 for anchor hits.
	Line int `json:"line"`
}

// Detector tries templates in registry order.
type Detector struct {
	reg    *template.Registry
	window int
}

// Option configures a Detector.
type Option func(*Detector)

// WithWindow overrides the keyword window size.
func WithWindow(n int) Option {
	return func(d *Detector) {
		if n > 0 {
			d.window = n
		}
	}
}

// New creates a detector over reg.
func New(reg *template.Registry, opts ...Option) *Detector {
	d := &Detector{reg: reg, window: DefaultWindow}
	for _, o := range opts {
		o(d)
	}
	return d
}

// Detect returns the matching template id or Unknown.
func (d *Detector) Detect(text string) string {
	return d.DetectMatch(text).TemplateID
}

// DetectMatch is Detect plus which test matched.
func (d *Detector) DetectMatch(text string) Match {
	compact := textnorm.Compact(text)
	lines := textnorm.Lines(text)
	for i := range lines {
		lines[i] = words(lines[i])
	}

	// Anchors of every template are tried before any keyword window.
	tpls := d.reg.All()
	for _, tpl := range tpls {
		if anchorHit(compact, tpl.HeaderAnchors) {
			return Match{TemplateID: tpl.ID, Method: MethodAnchor, Line: -1}
		}
	}
	for _, tpl := range tpls {
		if at := d.windowHit(lines, tpl.Keywords); at >= 0 {
			return Match{TemplateID: tpl.ID, Method: MethodWindow, Line: at}
		}
	}
	return Match{TemplateID: Unknown, Method: MethodNone, Line: -1}
}

func anchorHit(compact string, anchors []string) bool {
	for _, a := range anchors {
		ca := textnorm.Compact(a)
		if ca != "" && strings.Contains(compact, ca) {
			return true
		}
	}
	return false
}

// windowHit returns the first line of a window that contains every keyword,
// or -1.
func (d *Detector) windowHit(lines, keywords []string) int {
	if len(keywords) == 0 || len(lines) == 0 {
		return -1
	}
	want := make([]string, 0, len(keywords))
	for _, k := range keywords {
		k = words(k)
		if k != "" {
			want = append(want, k)
		}
	}
	if len(want) == 0 {
		return -1
	}

	last := len(lines) - d.window
	if last < 0 {
		last = 0
	}
	for start := 0; start <= last; start++ {
		end := min(start+d.window, len(lines))
		joined := strings.Join(lines[start:end], " ")
		if containsAll(joined, want) {
			return start
		}
	}
	return -1
}

// containsAll reports whether every keyword occurs in s as whole words.
// Both sides come from words, so padding with spaces pins word edges:
// "date" does not match "update".
func containsAll(s string, keywords []string) bool {
	padded := " " + s + " "
	for _, k := range keywords {
		if !strings.Contains(padded, " "+k+" ") {
			return false
		}
	}
	return true
}

// words lower-cases s and reduces it to letter/digit runs separated by
// single spaces. "Date, Transaction-details" -> "date transaction details"
func words(s string) string {
	s = strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return unicode.ToLower(r)
		}
		return ' '
	}, textnorm.CleanLine(s))
	return textnorm.CollapseSpace(s)
}
