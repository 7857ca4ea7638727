// Package showingdates renders lists of showing start times as compact,
// human readable summaries such as "Mon 2nd–Wed 4th / 8pm".
package showingdates

import (
	"strconv"
	"strings"
	"time"
)

// Starter is anything with a single absolute start time, e.g. a diary showing.
type Starter interface {
	StartTime() time.Time
}

// FormatShowings formats the start times of showings. See Format.
func FormatShowings[S Starter](showings []S, loc *time.Location) string {
	starts := make([]time.Time, len(showings))
	for i, s := range showings {
		starts[i] = s.StartTime()
	}
	return Format(starts, loc)
}

// Format summarises starts, which must already be in ascending order.
//
// Each instant is converted to loc (UTC when nil) first. Consecutive instants
// sharing a year, month and time of day form one group; a change in any of
// those starts a new group, so groups never merge across an intervening one.
// Within a group, runs of three or more consecutive days collapse into an
// en-dash range while shorter runs are listed individually. Groups are
// joined with ", " and each ends with " / " and its time label.
//
// The input is not sorted: out of order starts yield groups that follow the
// input sequence.
func Format(starts []time.Time, loc *time.Location) string {
	if len(starts) == 0 {
		return ""
	}
	if loc == nil {
		loc = time.UTC
	}

	var out []string
	var group []time.Time
	for _, start := range starts {
		local := start.In(loc)
		if len(group) > 0 && !sameGroup(group[len(group)-1], local) {
			out = append(out, formatGroup(group))
			group = nil
		}
		group = append(group, local)
	}
	out = append(out, formatGroup(group))

	return strings.Join(out, ", ")
}

func sameGroup(a, b time.Time) bool {
	if a.Year() != b.Year() || a.Month() != b.Month() {
		return false
	}
	return a.Hour() == b.Hour() &&
		a.Minute() == b.Minute() &&
		a.Second() == b.Second() &&
		a.Nanosecond() == b.Nanosecond()
}

// formatGroup renders the days of one group followed by the group's time.
// All entries share year, month and time of day.
func formatGroup(days []time.Time) string {
	var b strings.Builder

	prev := days[0]
	seqLen := 1
	b.WriteString(DayLabel(prev))

	for _, d := range days[1:] {
		if d.Day() == prev.Day()+1 {
			seqLen++
			prev = d
			continue
		}
		// d breaks the run: close it, then start the next one at d
		switch {
		case seqLen == 1:
		case seqLen == 2:
			b.WriteString(", ")
			b.WriteString(DayLabel(prev))
		default:
			b.WriteString("–")
			b.WriteString(DayLabel(prev))
		}
		b.WriteString(", ")
		b.WriteString(DayLabel(d))
		seqLen = 1
		prev = d
	}

	switch {
	case seqLen == 2:
		b.WriteString(", ")
		b.WriteString(DayLabel(prev))
	case seqLen > 2:
		b.WriteString("–")
		b.WriteString(DayLabel(prev))
	}

	b.WriteString(" / ")
	b.WriteString(TimeLabel(days[0]))
	return b.String()
}

// DayLabel formats t as an abbreviated weekday and ordinal day, e.g. "Wed 1st".
func DayLabel(t time.Time) string {
	day := t.Day()
	return t.Format("Mon") + " " + strconv.Itoa(day) + OrdinalSuffix(day)
}

// TimeLabel formats the time of day of t on a 12 hour clock, e.g. "10am" or
// "8:30pm". Minutes are only shown when t is not on the hour.
func TimeLabel(t time.Time) string {
	if t.Minute() == 0 {
		return t.Format("3pm")
	}
	return t.Format("3:04pm")
}

// OrdinalSuffix returns the English ordinal suffix for day.
func OrdinalSuffix(day int) string {
	if n := day % 100; n >= 11 && n <= 13 {
		return "th"
	}
	switch day % 10 {
	case 1:
		return "st"
	case 2:
		return "nd"
	case 3:
		return "rd"
	default:
		return "th"
	}
}
