// Package extract pulls the text layer out of statement PDFs. Scanned
// statements without a text layer come back empty; there is no OCR.
package extract

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/ledongthuc/pdf"
)

// ErrNoText is returned for PDFs without a usable text layer.
var ErrNoText = errors.New("pdf has no text layer")

// gapRatio is the horizontal gap, relative to the font size, read as a space.
const gapRatio = 0.15

// glyph is one positioned piece of text on a page.
type glyph struct {
	x, w, size float64
	s          string
}

// PDFText returns the text of every page, one output line per printed row.
func PDFText(path string) (text string, err error) {
	// The pdf package panics on some malformed files.
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("reading %s: malformed pdf: %v", path, r)
		}
	}()

	f, r, err := pdf.Open(path)
	if err != nil {
		return "", fmt.Errorf("opening pdf: %w", err)
	}
	defer f.Close()

	var pages []string
	for i := 1; i <= r.NumPage(); i++ {
		page := r.Page(i)
		if page.V.IsNull() {
			continue
		}
		if lines := pageLines(page.Content().Text); len(lines) > 0 {
			pages = append(pages, strings.Join(lines, "\n"))
		}
	}
	if len(pages) == 0 {
		return "", ErrNoText
	}
	return strings.Join(pages, "\n") + "\n", nil
}

// pageLines rebuilds rows from glyph positions: same baseline, left to right.
func pageLines(texts []pdf.Text) []string {
	rows := make(map[int][]glyph)
	for _, t := range texts {
		y := int(math.Round(t.Y))
		rows[y] = append(rows[y], glyph{x: t.X, w: t.W, size: t.FontSize, s: t.S})
	}

	ys := make([]int, 0, len(rows))
	for y := range rows {
		ys = append(ys, y)
	}
	// PDF y grows upwards
	sort.Sort(sort.Reverse(sort.IntSlice(ys)))

	var lines []string
	for _, y := range ys {
		if line := joinRow(rows[y]); line != "" {
			lines = append(lines, line)
		}
	}
	return lines
}

func joinRow(gs []glyph) string {
	sort.SliceStable(gs, func(a, b int) bool { return gs[a].x < gs[b].x })

	var b strings.Builder
	end := math.Inf(-1)
	for _, g := range gs {
		if strings.TrimSpace(g.s) == "" {
			continue
		}
		if b.Len() > 0 && g.x-end > gapRatio*math.Max(g.size, 1) {
			b.WriteByte(' ')
		}
		b.WriteString(g.s)
		end = g.x + g.w
	}
	return strings.TrimSpace(b.String())
}
