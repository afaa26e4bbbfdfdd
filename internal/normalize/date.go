package normalize

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

// DateOnlyHour is the UTC hour date-only inputs are anchored to, so the calendar
// day survives conversion into any US timezone.
const DateOnlyHour = 12

var (
	isoDateRe = regexp.MustCompile(`^(\d{4})-(\d{2})-(\d{2})$`)
	usDateRe  = regexp.MustCompile(`^(\d{1,2})/(\d{1,2})/(\d{2}|\d{4})$`)
)

// date-time layouts tried when the input contains a "T"; zone-less layouts are read as UTC
var dateTimeLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
}

// StartDate canonicalizes a start date to RFC 3339 in UTC.
// Unrecognized input is returned trimmed but otherwise untouched.
func StartDate(raw string) string {
	s := strings.TrimSpace(raw)
	if s == "" {
		return ""
	}
	if t, ok := ParseStartDate(s); ok {
		return t.UTC().Format(time.RFC3339)
	}
	return s
}

// ParseStartDate accepts YYYY-MM-DD, ISO date-times and MM/DD/YYYY or MM/DD/YY
// (two-digit years are 20xx).
func ParseStartDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)

	if m := isoDateRe.FindStringSubmatch(s); m != nil {
		return calendarDate(m[1], m[2], m[3])
	}

	if strings.Contains(s, "T") {
		for _, layout := range dateTimeLayouts {
			if t, err := time.Parse(layout, s); err == nil {
				return t.UTC(), true
			}
		}
		return time.Time{}, false
	}

	if m := usDateRe.FindStringSubmatch(s); m != nil {
		year := m[3]
		if len(year) == 2 {
			year = "20" + year
		}
		return calendarDate(year, m[1], m[2])
	}

	return time.Time{}, false
}

// calendarDate builds noon UTC on the given day, rejecting overflow like 02/30
func calendarDate(year, month, day string) (time.Time, bool) {
	y, err1 := strconv.Atoi(year)
	mo, err2 := strconv.Atoi(month)
	d, err3 := strconv.Atoi(day)
	if err1 != nil || err2 != nil || err3 != nil {
		return time.Time{}, false
	}
	t := time.Date(y, time.Month(mo), d, DateOnlyHour, 0, 0, 0, time.UTC)
	if t.Year() != y || int(t.Month()) != mo || t.Day() != d {
		return time.Time{}, false
	}
	return t, true
}
