// Package textnorm holds the small text transforms shared by segmentation,
// detection and normalization.
package textnorm

import (
	"strings"
	"unicode"
)

// NormalizeNewlines converts CRLF and lone CR line endings to LF.
func NormalizeNewlines(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	return strings.ReplaceAll(s, "\r", "\n")
}

// Lines splits text into lines after normalizing line endings.
func Lines(s string) []string {
	return strings.Split(NormalizeNewlines(s), "\n")
}

// Compact lower-cases s and drops everything that is not a letter or digit.
// "Date Transaction details" -> "datetransactiondetails"
func Compact(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return unicode.ToLower(r)
		}
		return -1
	}, s)
}

// CollapseSpace trims s and replaces every whitespace run with a single space.
func CollapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// ContainsCompact reports whether the compacted line contains any compacted anchor.
// Empty anchors never match.
func ContainsCompact(line string, anchors []string) bool {
	c := Compact(line)
	if c == "" {
		return false
	}
	for _, a := range anchors {
		ca := Compact(a)
		if ca != "" && strings.Contains(c, ca) {
			return true
		}
	}
	return false
}

// CleanLine replaces characters PDF extraction commonly leaves behind.
func CleanLine(s string) string {
	s = strings.ReplaceAll(s, "\u00A0", " ")
	s = strings.ReplaceAll(s, "\u200B", "")
	s = strings.ReplaceAll(s, "\t", " ")
	return strings.TrimSpace(s)
}
