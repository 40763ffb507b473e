// Package datephrase resolves date language ("early September", "last week")
// into inclusive YYYY-MM-DD bounds relative to a reference day.
//
// Ranges that read as periods ("last 3 months", "late march") are resolved here.
// Everything else ("3 days ago", "Jan 2, 2024", "friday") goes to go-dateparser,
// and the period it reports (day, week, month, year) becomes the range.
package datephrase

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/markusmobius/go-dateparser"
	"github.com/markusmobius/go-dateparser/date"
)

const layout = "2006-01-02"

var months = map[string]time.Month{
	"jan": time.January, "january": time.January,
	"feb": time.February, "february": time.February,
	"mar": time.March, "march": time.March,
	"apr": time.April, "april": time.April,
	"may": time.May,
	"jun": time.June, "june": time.June,
	"jul": time.July, "july": time.July,
	"aug": time.August, "august": time.August,
	"sep": time.September, "sept": time.September, "september": time.September,
	"oct": time.October, "october": time.October,
	"nov": time.November, "november": time.November,
	"dec": time.December, "december": time.December,
}

var (
	reLastN      = regexp.MustCompile(`^(?:last|past|previous) (\d{1,3}) (day|week|month)s?$`)
	reMonth      = regexp.MustCompile(`^(?:(early|beginning of|start of|mid|middle of|late|end of) )?([a-z]+)\.?(?: (?:of )?(\d{4}))?$`)
	reYear       = regexp.MustCompile(`^(\d{4})$`)
	reYearMonth  = regexp.MustCompile(`^(\d{4})-(\d{2})$`)
	reWhitespace = regexp.MustCompile(`[\s,]+`)
)

// Resolve converts phrase into inclusive bounds. today is interpreted in its own
// location; only its calendar date matters. ok is false when the phrase is not
// understood.
func Resolve(phrase string, today time.Time) (from, to string, ok bool) {
	p := clean(phrase)
	if p == "" {
		return "", "", false
	}
	day := truncate(today)

	if _, err := time.Parse(layout, p); err == nil {
		return p, p, true
	}

	lo, hi, matched, ok := relative(p, day)
	if !matched {
		lo, hi, matched, ok = calendar(p, day)
	}
	if !matched {
		lo, hi, ok = parsed(p, day)
	}
	if !ok {
		return "", "", false
	}
	return lo.Format(layout), hi.Format(layout), true
}

// parsed delegates to go-dateparser. Dates are preferred from the past:
// "friday" is the last Friday, "june 3" the last June 3rd.
func parsed(p string, day time.Time) (time.Time, time.Time, bool) {
	cfg := &dateparser.Configuration{
		CurrentTime:         day,
		PreferredDateSource: dateparser.Past,
		PreferredDayOfMonth: dateparser.First,
	}
	dt, err := dateparser.Parse(cfg, p)
	if err != nil || dt.Time.IsZero() {
		return time.Time{}, time.Time{}, false
	}
	t := truncate(dt.Time)

	switch dt.Period {
	case date.Day:
		return t, t, true
	case date.Week:
		start := weekStart(t)
		return start, start.AddDate(0, 0, 6), true
	case date.Month:
		start := monthStart(t)
		return start, monthEnd(start), true
	case date.Year:
		return time.Date(t.Year(), time.January, 1, 0, 0, 0, 0, time.UTC),
			time.Date(t.Year(), time.December, 31, 0, 0, 0, 0, time.UTC), true
	default:
		// Time of day only ("10:40").
		return time.Time{}, time.Time{}, false
	}
}

// relative handles periods counted back from day. matched is true when the
// phrase has a relative shape, even if it does not resolve ("last 0 days").
func relative(p string, day time.Time) (lo, hi time.Time, matched, ok bool) {
	switch p {
	case "this week":
		return weekStart(day), day, true, true
	case "last week", "previous week", "past week":
		start := weekStart(day).AddDate(0, 0, -7)
		return start, start.AddDate(0, 0, 6), true, true
	case "this month":
		return monthStart(day), day, true, true
	case "last month", "previous month", "past month":
		start := monthStart(day).AddDate(0, -1, 0)
		return start, monthEnd(start), true, true
	case "this year":
		return time.Date(day.Year(), time.January, 1, 0, 0, 0, 0, time.UTC), day, true, true
	case "last year", "previous year", "past year":
		y := day.Year() - 1
		return time.Date(y, time.January, 1, 0, 0, 0, 0, time.UTC),
			time.Date(y, time.December, 31, 0, 0, 0, 0, time.UTC), true, true
	}

	m := reLastN.FindStringSubmatch(p)
	if m == nil {
		return time.Time{}, time.Time{}, false, false
	}
	n, err := strconv.Atoi(m[1])
	if err != nil || n <= 0 {
		return time.Time{}, time.Time{}, true, false
	}
	switch m[2] {
	case "day":
		return day.AddDate(0, 0, -(n - 1)), day, true, true
	case "week":
		return day.AddDate(0, 0, -(7*n - 1)), day, true, true
	default:
		return monthsBack(day, n), day, true, true
	}
}

// monthsBack returns the day after the same day n months ago, clamped to the
// length of that month: 2024-03-31 minus one month starts on 2024-03-01.
func monthsBack(day time.Time, n int) time.Time {
	target := monthStart(day).AddDate(0, -n, 0)
	d := min(day.Day(), monthEnd(target).Day())
	return time.Date(target.Year(), target.Month(), d, 0, 0, 0, 0, time.UTC).AddDate(0, 0, 1)
}

// calendar handles bare years, YYYY-MM and month names with an optional
// early/mid/late qualifier. A month without a year is the latest one not after day.
func calendar(p string, day time.Time) (lo, hi time.Time, matched, ok bool) {
	if m := reYear.FindStringSubmatch(p); m != nil {
		y, _ := strconv.Atoi(m[1])
		return time.Date(y, time.January, 1, 0, 0, 0, 0, time.UTC),
			time.Date(y, time.December, 31, 0, 0, 0, 0, time.UTC), true, true
	}
	if m := reYearMonth.FindStringSubmatch(p); m != nil {
		y, _ := strconv.Atoi(m[1])
		mo, _ := strconv.Atoi(m[2])
		if mo < 1 || mo > 12 {
			return time.Time{}, time.Time{}, true, false
		}
		start := time.Date(y, time.Month(mo), 1, 0, 0, 0, 0, time.UTC)
		return start, monthEnd(start), true, true
	}

	m := reMonth.FindStringSubmatch(p)
	if m == nil {
		return time.Time{}, time.Time{}, false, false
	}
	month, known := months[m[2]]
	if !known {
		return time.Time{}, time.Time{}, false, false
	}

	year := day.Year()
	if m[3] != "" {
		year, _ = strconv.Atoi(m[3])
	} else if month > day.Month() {
		// "march" in October means the March that already happened.
		year--
	}
	start := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	end := monthEnd(start)

	switch m[1] {
	case "early", "beginning of", "start of":
		return start, start.AddDate(0, 0, 9), true, true
	case "mid", "middle of":
		return start.AddDate(0, 0, 10), start.AddDate(0, 0, 19), true, true
	case "late", "end of":
		return start.AddDate(0, 0, 20), end, true, true
	default:
		return start, end, true, true
	}
}

func clean(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.ReplaceAll(s, "-", " ")
	s = reWhitespace.ReplaceAllString(s, " ")
	for _, prefix := range []string{"in ", "on ", "during ", "from "} {
		s = strings.TrimPrefix(s, prefix)
	}
	// Restore ISO-ish separators the hyphen replacement broke.
	if iso := strings.Fields(s); len(iso) == 3 && allDigits(iso) {
		return strings.Join(iso, "-")
	}
	if ym := strings.Fields(s); len(ym) == 2 && allDigits(ym) && len(ym[0]) == 4 {
		return strings.Join(ym, "-")
	}
	return strings.TrimSpace(s)
}

func allDigits(parts []string) bool {
	for _, p := range parts {
		if p == "" {
			return false
		}
		for _, r := range p {
			if r < '0' || r > '9' {
				return false
			}
		}
	}
	return true
}

func truncate(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// weekStart returns the Monday of the week containing day.
func weekStart(day time.Time) time.Time {
	offset := (int(day.Weekday()) + 6) % 7
	return day.AddDate(0, 0, -offset)
}

func monthStart(day time.Time) time.Time {
	return time.Date(day.Year(), day.Month(), 1, 0, 0, 0, 0, time.UTC)
}

func monthEnd(start time.Time) time.Time {
	return monthStart(start).AddDate(0, 1, -1)
}
