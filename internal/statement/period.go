package statement

import (
	"regexp"
	"time"

	"github.com/ledgerlens/ledgerlens/internal/textnorm"
)

// Period is the statement date range used to complete year-less dates.
type Period struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

var (
	// Only lines that open with a period heading count, so a transaction
	// that mentions a "period" is never read as one.
	periodHeading  = regexp.MustCompile(`(?i)^(?:statement\s+|billing\s+)?period\b`)
	periodTextDate = regexp.MustCompile(`(?i)\b(\d{1,2}\s+(?:Jan|Feb|Mar|Apr|May|Jun|Jul|Aug|Sep|Oct|Nov|Dec)[a-z]*\s+\d{4})\b`)
	periodSlash    = regexp.MustCompile(`\b(\d{1,2}/\d{1,2}/\d{4})\b`)
)

var periodLayouts = []string{"2 Jan 2006", "2 January 2006", "2/1/2006"}

type periodStatus int

const (
	periodMissing periodStatus = iota
	periodMalformed
	periodFound
)

// findPeriod scans text for the first period heading.
// The returned line is the heading for warnings.
func findPeriod(text string) (Period, periodStatus, string, int) {
	var (
		firstLine  string
		firstIndex = -1
	)
	for i, raw := range textnorm.Lines(text) {
		line := textnorm.CollapseSpace(textnorm.CleanLine(raw))
		if !periodHeading.MatchString(line) {
			continue
		}
		if firstIndex < 0 {
			firstLine, firstIndex = line, i
		}
		if p, ok := parsePeriodLine(line); ok {
			return p, periodFound, line, i
		}
	}
	if firstIndex >= 0 {
		return Period{}, periodMalformed, firstLine, firstIndex
	}
	return Period{}, periodMissing, "", -1
}

func parsePeriodLine(line string) (Period, bool) {
	dates := periodTextDate.FindAllString(line, 2)
	if len(dates) < 2 {
		dates = periodSlash.FindAllString(line, 2)
	}
	if len(dates) < 2 {
		return Period{}, false
	}
	start, ok := parsePeriodDate(dates[0])
	if !ok {
		return Period{}, false
	}
	end, ok := parsePeriodDate(dates[1])
	if !ok || end.Before(start) {
		return Period{}, false
	}
	return Period{Start: start, End: end}, true
}

func parsePeriodDate(s string) (time.Time, bool) {
	s = textnorm.CollapseSpace(s)
	for _, layout := range periodLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// resolveYear places month/day inside p. Dates outside the period go to the
// nearer of the start and end years.
func (p Period) resolveYear(month time.Month, day int) (time.Time, bool) {
	var best time.Time
	var bestDist time.Duration = -1
	for y := p.Start.Year(); y <= p.End.Year(); y++ {
		t := time.Date(y, month, day, 0, 0, 0, 0, time.UTC)
		if t.Month() != month {
			continue // 29 Feb in a non-leap year
		}
		if !t.Before(p.Start) && !t.After(p.End) {
			return t, true
		}
		d := distance(t, p)
		if bestDist < 0 || d < bestDist {
			best, bestDist = t, d
		}
	}
	return best, bestDist >= 0
}

func distance(t time.Time, p Period) time.Duration {
	if t.Before(p.Start) {
		return p.Start.Sub(t)
	}
	return t.Sub(p.End)
}

func (p Period) String() string {
	return p.Start.Format("2006-01-02") + ".." + p.End.Format("2006-01-02")
}

