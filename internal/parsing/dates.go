// Package parsing turns the loosely formatted fields of project records into
// comparable values: active-year spans, recency keys and split label lists.
package parsing

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/jonathan/portfolio-engine/internal/types"
)

// PresentSentinel marks an open-ended end date.
const PresentSentinel = "present"

// maxSpanYears bounds year expansion for obviously broken ranges.
const maxSpanYears = 150

var yearPattern = regexp.MustCompile(`\d{4}`)

var dateLayouts = []string{
	time.RFC3339,
	"2006-01-02",
	"2006-1-2",
	"2006-01",
	"2006/01/02",
	"1/2/2006",
	"01/02/2006",
	"1/2006",
	"January 2006",
	"Jan 2006",
	"January 2, 2006",
	"Jan 2, 2006",
	"2006",
}

// Span is the active period of a project.
type Span struct {
	Start     time.Time
	End       time.Time
	StartYear int
	EndYear   int
	// Open is set when the project is ongoing.
	Open bool
	// Dated is false when no field produced a year.
	Dated bool
	// firstYearOnly keeps the facet years of a legacy year field at its
	// first year even when the span is open-ended.
	firstYearOnly bool
}

// IsPresent reports whether s is the case-insensitive "present" sentinel.
func IsPresent(s string) bool {
	return strings.EqualFold(strings.TrimSpace(s), PresentSentinel)
}

// FirstYear extracts the first 4-digit run from s.
func FirstYear(s string) (int, bool) {
	m := yearPattern.FindString(s)
	if m == "" {
		return 0, false
	}
	y, err := strconv.Atoi(m)
	if err != nil {
		return 0, false
	}
	return y, true
}

// ParseDate parses the date formats found in the dataset. When no layout
// matches but a 4-digit year is present, January 1st of that year is used.
func ParseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" || IsPresent(s) {
		return time.Time{}, false
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	if y, ok := FirstYear(s); ok {
		return time.Date(y, time.January, 1, 0, 0, 0, 0, time.UTC), true
	}
	return time.Time{}, false
}

// ProjectSpan derives the active span of a project. start_date/end_date win
// over the legacy year field; a missing or "present" end date is open-ended
// and ends in now's year.
func ProjectSpan(p types.Project, now time.Time) Span {
	if p.StartDate != "" || p.EndDate != "" {
		if span, ok := rangeSpan(p.StartDate, p.EndDate, now); ok {
			return span
		}
	}
	return legacySpan(p.Year, now)
}

func rangeSpan(startRaw, endRaw string, now time.Time) (Span, bool) {
	start, startOK := ParseDate(startRaw)
	end, endOK := ParseDate(endRaw)
	open := strings.TrimSpace(endRaw) == "" || IsPresent(endRaw)

	switch {
	case startOK && open:
		return Span{
			Start:     start,
			StartYear: start.Year(),
			EndYear:   now.Year(),
			Open:      true,
			Dated:     true,
		}, true
	case startOK && endOK:
		if end.Before(start) {
			start, end = end, start
		}
		return Span{
			Start:     start,
			End:       end,
			StartYear: start.Year(),
			EndYear:   end.Year(),
			Dated:     true,
		}, true
	case startOK:
		// Unparseable end: treat as a single point.
		return Span{Start: start, End: start, StartYear: start.Year(), EndYear: start.Year(), Dated: true}, true
	case endOK:
		return Span{Start: end, End: end, StartYear: end.Year(), EndYear: end.Year(), Dated: true}, true
	}
	return Span{}, false
}

// legacySpan reads the free-form year field. A "present" after the first
// year ("2021-Present") makes the span open for ordering only.
func legacySpan(year string, now time.Time) Span {
	loc := yearPattern.FindStringIndex(year)
	if loc == nil {
		return Span{}
	}
	y, _ := strconv.Atoi(year[loc[0]:loc[1]])
	t, ok := ParseDate(year)
	if !ok || t.Year() != y {
		t = time.Date(y, time.January, 1, 0, 0, 0, 0, time.UTC)
	}
	if strings.Contains(strings.ToLower(year[loc[1]:]), PresentSentinel) {
		return Span{Start: t, StartYear: y, EndYear: max(y, now.Year()), Open: true, Dated: true, firstYearOnly: true}
	}
	return Span{Start: t, End: t, StartYear: y, EndYear: y, Dated: true}
}

// Years returns every calendar year the span covers, ascending.
func (s Span) Years() []int {
	if !s.Dated {
		return nil
	}
	if s.firstYearOnly {
		return []int{s.StartYear}
	}
	from, to := s.StartYear, s.EndYear
	if to < from {
		from, to = to, from
	}
	if to-from > maxSpanYears {
		from = to - maxSpanYears
	}
	years := make([]int, 0, to-from+1)
	for y := from; y <= to; y++ {
		years = append(years, y)
	}
	return years
}

// YearLabels returns the span's years as strings, or the "Unknown" bucket.
func (s Span) YearLabels() []string {
	years := s.Years()
	if len(years) == 0 {
		return []string{types.UnknownYear}
	}
	out := make([]string, len(years))
	for i, y := range years {
		out[i] = strconv.Itoa(y)
	}
	return out
}

// CompareRecency orders spans most recent first: open-ended before closed,
// then end date, then start date, both descending. Undated spans sort last.
// It returns a negative number when a is more recent than b.
func CompareRecency(a, b Span) int {
	if a.Dated != b.Dated {
		if a.Dated {
			return -1
		}
		return 1
	}
	if !a.Dated {
		return 0
	}
	if a.Open != b.Open {
		if a.Open {
			return -1
		}
		return 1
	}
	if !a.Open {
		if c := b.End.Compare(a.End); c != 0 {
			return c
		}
	}
	return b.Start.Compare(a.Start)
}
