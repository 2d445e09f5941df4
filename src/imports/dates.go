package imports

import (
	"strconv"
	"strings"
	"time"
)

// timestampLayouts are tried in order until one parses validly. ISO 8601
// comes first; the US month-first slash form is guessed before the
// day-first form, so an unambiguous day value (>12) is what disambiguates
// European files.
var timestampLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
	"01/02/2006 15:04:05",
	"01/02/2006 15:04",
	"01/02/2006",
	"02/01/2006 15:04:05",
	"02/01/2006 15:04",
	"02/01/2006",
	"02.01.2006 15:04:05",
	"02.01.2006 15:04",
	"02.01.2006",
	"2006/01/02 15:04:05",
	"2006/01/02 15:04",
	"2006/01/02",
}

var timeOfDayLayouts = []string{
	"15:04:05",
	"15:04",
}

var monthsByName = map[string]time.Month{
	"january":   time.January,
	"february":  time.February,
	"march":     time.March,
	"april":     time.April,
	"may":       time.May,
	"june":      time.June,
	"july":      time.July,
	"august":    time.August,
	"september": time.September,
	"october":   time.October,
	"november":  time.November,
	"december":  time.December,
}

// parseTimestamp parses a combined date(+time) string. Naive values are
// interpreted as UTC.
func parseTimestamp(value string) (time.Time, bool) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return time.Time{}, false
	}
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, trimmed); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

func parseTimeOfDay(value string) (hour, minute, second int, ok bool) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return 0, 0, 0, false
	}
	for _, layout := range timeOfDayLayouts {
		if t, err := time.Parse(layout, trimmed); err == nil {
			return t.Hour(), t.Minute(), t.Second(), true
		}
	}
	return 0, 0, 0, false
}

// parseMonth accepts a numeric month or an English month name, full or
// three-letter ("Mar", "March").
func parseMonth(value string) (time.Month, bool) {
	s := strings.ToLower(strings.TrimSpace(value))
	if s == "" {
		return 0, false
	}
	if n, err := strconv.Atoi(s); err == nil {
		if n >= 1 && n <= 12 {
			return time.Month(n), true
		}
		return 0, false
	}
	if m, ok := monthsByName[s]; ok {
		return m, true
	}
	if len(s) >= 3 {
		for name, m := range monthsByName {
			if strings.HasPrefix(name, s) {
				return m, true
			}
		}
	}
	return 0, false
}

// parseYear windows two-digit years: >=70 lands in the 1900s, the rest in
// the 2000s.
func parseYear(value string) (int, bool) {
	s := strings.TrimSpace(value)
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return 0, false
	}
	if len(s) <= 2 {
		if n >= 70 {
			return 1900 + n, true
		}
		return 2000 + n, true
	}
	return n, true
}

// dateParts holds the raw cells that may contribute to one timestamp.
type dateParts struct {
	explicit  string // combined date+time column
	date      string
	timeOfDay string
	day       string
	month     string
	year      string
}

func (p dateParts) present() bool {
	return p.explicit != "" || p.date != "" || p.timeOfDay != "" ||
		p.day != "" || p.month != "" || p.year != ""
}

// resolveTimestamp assembles a timestamp from whatever combination of
// columns the file supplied. Resolution order: a directly-parseable
// combined value wins; then a date(+time) string pair; then split
// day/month/year parts with the time portion defaulting to midnight UTC.
func resolveTimestamp(p dateParts) (time.Time, bool) {
	if p.explicit != "" {
		if t, ok := parseTimestamp(p.explicit); ok {
			return t, true
		}
	}

	if p.date != "" || p.timeOfDay != "" {
		combined := strings.TrimSpace(p.date + " " + p.timeOfDay)
		if t, ok := parseTimestamp(combined); ok {
			return t, true
		}
	}

	if p.day != "" && p.month != "" && p.year != "" {
		return composeFromParts(p.day, p.month, p.year, p.timeOfDay)
	}

	return time.Time{}, false
}

func composeFromParts(dayStr, monthStr, yearStr, timeStr string) (time.Time, bool) {
	day, err := strconv.Atoi(strings.TrimSpace(dayStr))
	if err != nil || day < 1 || day > 31 {
		return time.Time{}, false
	}
	month, ok := parseMonth(monthStr)
	if !ok {
		return time.Time{}, false
	}
	year, ok := parseYear(yearStr)
	if !ok {
		return time.Time{}, false
	}

	hour, minute, second, _ := parseTimeOfDay(timeStr)

	t := time.Date(year, month, day, hour, minute, second, 0, time.UTC)
	// time.Date normalizes overflow (Feb 30 -> Mar 2); reject that.
	if t.Day() != day || t.Month() != month || t.Year() != year {
		return time.Time{}, false
	}
	return t, true
}
