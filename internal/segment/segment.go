// Package segment cuts the transaction table out of extracted statement text.
package segment

import (
	"strings"

	"github.com/ledgerlens/ledgerlens/internal/template"
	"github.com/ledgerlens/ledgerlens/internal/textnorm"
)

// Debug records where the table was found. Line numbers are zero-based
// indexes into the normalized input lines.
type Debug struct {
	StartLine    *int `json:"startLine,omitempty"`
	EndLine      *int `json:"endLine,omitempty"`
	RemovedLines int  `json:"removedLines"`
	HeaderFound  bool `json:"headerFound"`
}

// Result is the candidate table body plus debug counters.
type Result struct {
	SectionText string `json:"sectionText"`
	Debug       Debug  `json:"debug"`
}

// Segment finds the header anchor, trims text to the table body and strips
// repeated page furniture. When no header is found the whole text is the
// candidate body.
func Segment(text string, tpl template.Config) Result {
	lines := textnorm.Lines(text)

	var res Result
	start := 0
	if h := headerLine(lines, tpl.HeaderAnchors); h >= 0 {
		res.Debug.HeaderFound = true
		if tpl.Segment.StartAfterHeader {
			start = h + 1
		} else {
			start = h
		}
		res.Debug.StartLine = intPtr(start)
	}

	var kept []string
	for i := start; i < len(lines); i++ {
		line := textnorm.CleanLine(lines[i])
		if textnorm.ContainsCompact(line, tpl.Segment.StopAnchors) {
			res.Debug.EndLine = intPtr(i)
			break
		}
		if isNoise(line, tpl) {
			res.Debug.RemovedLines++
			continue
		}
		if line == "" {
			continue
		}
		kept = append(kept, line)
	}

	res.SectionText = strings.TrimSpace(strings.Join(kept, "\n"))
	return res
}

// StripNoise removes header repeats and configured noise lines from an
// already segmented section and reports how many lines it dropped. Applying
// it to its own output removes nothing further.
func StripNoise(section string, tpl template.Config) (string, int) {
	var kept []string
	removed := 0
	for _, raw := range textnorm.Lines(section) {
		line := textnorm.CleanLine(raw)
		if isNoise(line, tpl) {
			removed++
			continue
		}
		if line == "" {
			continue
		}
		kept = append(kept, line)
	}
	return strings.TrimSpace(strings.Join(kept, "\n")), removed
}

func headerLine(lines, anchors []string) int {
	for i, l := range lines {
		if textnorm.ContainsCompact(l, anchors) {
			return i
		}
	}
	return -1
}

func isNoise(line string, tpl template.Config) bool {
	if line == "" {
		return false
	}
	if textnorm.ContainsCompact(line, tpl.HeaderAnchors) {
		return true
	}
	for _, re := range tpl.Segment.RemoveLinePatterns {
		if re.MatchString(line) {
			return true
		}
	}
	return false
}

func intPtr(i int) *int { return &i }
