package diary

import (
	"log"
	"strconv"
	"strings"
	"time"
)

const (
	minRangeYear   = 1990
	maxRangeYear   = 2100
	maxDaysAhead   = 1095
	daysInYear     = 365
	daysInLeapYear = 366
)

// RangeQuery holds the raw date range fields of a request, e.g. the
// year, month, day and daysahead query parameters. Empty means unset.
type RangeQuery struct {
	Year      string
	Month     string
	Day       string
	DaysAhead string
}

// RangeError reports an unusable date range. Message is safe to show to users.
type RangeError struct {
	Message string
}

func (e *RangeError) Error() string {
	return "diary: " + e.Message
}

// ParseDateRange turns q into a start time and a number of days.
//
// A full date selects that day. Year and month select the whole month, a year
// alone selects the whole year. With nothing set the range starts at the
// beginning of today (as of now, in loc) and lasts defaultDaysAhead days. A
// valid DaysAhead overrides the number of days, clamped to [0, 1095]; an
// unparseable one is ignored.
func ParseDateRange(q RangeQuery, now time.Time, loc *time.Location, defaultDaysAhead int) (time.Time, int, error) {
	if loc == nil {
		loc = time.UTC
	}
	if isSet(q.Day) && !isSet(q.Month) {
		log.Printf("Invalid request; can't specify day and no month")
		return time.Time{}, 0, &RangeError{Message: "Invalid request; can't specify day and no month"}
	}

	year, okY := parseField(q.Year)
	month, okM := parseField(q.Month)
	day, okD := parseField(q.Day)
	if !okY || !okM || !okD {
		log.Printf("Invalid value requested in date range, one of day %q, month %q, year %q", q.Day, q.Month, q.Year)
		return time.Time{}, 0, &RangeError{Message: "Invalid values"}
	}

	if year != 0 && (year > maxRangeYear || year < minRangeYear) {
		return time.Time{}, 0, &RangeError{Message: "Invalid values"}
	}

	var (
		start     time.Time
		daysAhead int
	)
	switch {
	case year != 0 && month != 0 && day != 0:
		if !validDate(year, month, day) {
			return time.Time{}, 0, invalidDate(year, month, day)
		}
		start = time.Date(year, time.Month(month), day, 0, 0, 0, 0, loc)
		daysAhead = 1
	case year != 0 && month != 0:
		if !validDate(year, month, 1) {
			return time.Time{}, 0, invalidDate(year, month, 1)
		}
		start = time.Date(year, time.Month(month), 1, 0, 0, 0, 0, loc)
		daysAhead = daysIn(year, time.Month(month))
	case year != 0:
		start = time.Date(year, time.January, 1, 0, 0, 0, 0, loc)
		daysAhead = daysInYear
		if isLeap(year) {
			daysAhead = daysInLeapYear
		}
	default:
		local := now.In(loc)
		start = time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)
		daysAhead = defaultDaysAhead
	}

	if isSet(q.DaysAhead) {
		if n, err := strconv.Atoi(strings.TrimSpace(q.DaysAhead)); err == nil {
			daysAhead = min(max(n, 0), maxDaysAhead)
		}
	}

	return start, daysAhead, nil
}

func isSet(s string) bool {
	return strings.TrimSpace(s) != ""
}

// parseField parses an optional integer field. Unset fields are 0.
func parseField(s string) (int, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, true
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, false
	}
	return n, true
}

func validDate(year, month, day int) bool {
	if month < 1 || month > 12 || day < 1 {
		return false
	}
	return day <= daysIn(year, time.Month(month))
}

func invalidDate(year, month, day int) error {
	log.Printf("Invalid date requested in date range: %04d-%02d-%02d", year, month, day)
	return &RangeError{Message: "Invalid date"}
}

func daysIn(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

func isLeap(year int) bool {
	return daysIn(year, time.February) == 29
}
