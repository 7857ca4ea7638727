package showingdates

import (
	"fmt"
	"testing"
	"time"
	_ "time/tzdata"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func london(t *testing.T) *time.Location {
	t.Helper()
	loc, err := time.LoadLocation("Europe/London")
	require.NoError(t, err)
	return loc
}

// at builds start times from (year, month, day, hour, minute) tuples.
func at(loc *time.Location, tuples ...[5]int) []time.Time {
	out := make([]time.Time, len(tuples))
	for i, v := range tuples {
		out[i] = time.Date(v[0], time.Month(v[1]), v[2], v[3], v[4], 0, 0, loc)
	}
	return out
}

func TestFormat(t *testing.T) {
	loc := london(t)

	tests := []struct {
		name   string
		starts [][5]int
		want   string
	}{
		{"no showings", nil, ""},
		{"one on the hour", [][5]int{{2012, 1, 1, 10, 0}}, "Sun 1st / 10am"},
		{"one off the hour", [][5]int{{2013, 2, 2, 20, 30}}, "Sat 2nd / 8:30pm"},
		{
			"two sequential",
			[][5]int{{2013, 2, 2, 20, 0}, {2013, 2, 3, 20, 0}},
			"Sat 2nd, Sun 3rd / 8pm",
		},
		{
			"two non sequential",
			[][5]int{{2013, 2, 2, 20, 0}, {2013, 2, 4, 20, 0}},
			"Sat 2nd, Mon 4th / 8pm",
		},
		{
			"two different times",
			[][5]int{{2013, 2, 2, 20, 0}, {2013, 2, 3, 20, 30}},
			"Sat 2nd / 8pm, Sun 3rd / 8:30pm",
		},
		{
			"three sequential",
			[][5]int{{2015, 2, 2, 20, 0}, {2015, 2, 3, 20, 0}, {2015, 2, 4, 20, 0}},
			"Mon 2nd–Wed 4th / 8pm",
		},
		{
			"range after pair",
			[][5]int{
				{2015, 2, 2, 20, 0}, {2015, 2, 3, 20, 0},
				{2015, 2, 5, 20, 0}, {2015, 2, 6, 20, 0}, {2015, 2, 7, 20, 0},
			},
			"Mon 2nd, Tue 3rd, Thu 5th–Sat 7th / 8pm",
		},
		{
			"pair after range",
			[][5]int{
				{2015, 2, 2, 20, 0}, {2015, 2, 3, 20, 0}, {2015, 2, 4, 20, 0},
				{2015, 2, 6, 20, 0}, {2015, 2, 7, 20, 0},
			},
			"Mon 2nd–Wed 4th, Fri 6th, Sat 7th / 8pm",
		},
		{
			"singles between ranges",
			[][5]int{
				{2015, 2, 2, 20, 0}, {2015, 2, 4, 20, 0},
				{2015, 2, 6, 20, 0}, {2015, 2, 7, 20, 0}, {2015, 2, 8, 20, 0},
				{2015, 2, 10, 20, 0},
			},
			"Mon 2nd, Wed 4th, Fri 6th–Sun 8th, Tue 10th / 8pm",
		},
		{
			"complex",
			[][5]int{
				{2015, 2, 1, 20, 0},
				{2015, 2, 2, 8, 0},
				{2015, 2, 2, 20, 0},
				{2015, 2, 3, 20, 0},
				{2015, 2, 4, 20, 0},
				{2015, 2, 5, 20, 0},
				{2015, 2, 17, 20, 0},
				{2015, 2, 18, 20, 0},
				{2015, 2, 20, 20, 0},
				{2015, 2, 21, 20, 0},
				{2015, 2, 23, 20, 0},
				{2015, 2, 24, 8, 15},
				{2015, 2, 28, 20, 0},
			},
			"Sun 1st / 8pm, Mon 2nd / 8am, Mon 2nd–Thu 5th, Tue 17th, " +
				"Wed 18th, Fri 20th, Sat 21st, Mon 23rd / 8pm, Tue 24th / 8:15am, " +
				"Sat 28th / 8pm",
		},
		{
			"sequence across month boundary",
			[][5]int{
				{2015, 2, 26, 20, 0}, {2015, 2, 27, 20, 0}, {2015, 2, 28, 20, 0},
				{2015, 3, 1, 20, 0}, {2015, 3, 2, 20, 0},
			},
			"Thu 26th–Sat 28th / 8pm, Sun 1st, Mon 2nd / 8pm",
		},
		{
			"same month in different years",
			[][5]int{{2014, 2, 2, 20, 0}, {2015, 2, 3, 20, 0}},
			"Sun 2nd / 8pm, Tue 3rd / 8pm",
		},
		{
			"noon and midnight",
			[][5]int{{2015, 2, 2, 12, 0}, {2015, 2, 3, 0, 5}},
			"Mon 2nd / 12pm, Tue 3rd / 12:05am",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Format(at(loc, tt.starts...), loc))
		})
	}
}

func TestFormatGroupsAreSequential(t *testing.T) {
	loc := london(t)
	starts := at(loc,
		[5]int{2015, 2, 2, 20, 0},
		[5]int{2015, 2, 3, 18, 0},
		[5]int{2015, 2, 4, 20, 0},
	)
	// The 2nd and 4th share a time but are separated by another group.
	assert.Equal(t, "Mon 2nd / 8pm, Tue 3rd / 6pm, Wed 4th / 8pm", Format(starts, loc))
}

func TestFormatConvertsToLocation(t *testing.T) {
	loc := london(t)
	// 23:30 UTC on 30 June is 00:30 BST on 1 July.
	starts := []time.Time{time.Date(2015, 6, 30, 23, 30, 0, 0, time.UTC)}

	assert.Equal(t, "Wed 1st / 12:30am", Format(starts, loc))
	assert.Equal(t, "Tue 30th / 11:30pm", Format(starts, time.UTC))
}

func TestFormatNilLocationIsUTC(t *testing.T) {
	starts := []time.Time{time.Date(2015, 2, 2, 20, 0, 0, 0, time.UTC)}
	assert.Equal(t, "Mon 2nd / 8pm", Format(starts, nil))
}

func TestFormatIsPure(t *testing.T) {
	loc := london(t)
	starts := at(loc,
		[5]int{2015, 2, 2, 20, 0},
		[5]int{2015, 2, 3, 20, 0},
		[5]int{2015, 2, 4, 20, 0},
	)
	first := Format(starts, loc)
	assert.Equal(t, first, Format(starts, loc))
	assert.Equal(t, 2015, starts[0].Year(), "input must not be modified")
}

type showing struct{ start time.Time }

func (s showing) StartTime() time.Time { return s.start }

func TestFormatShowings(t *testing.T) {
	loc := london(t)
	showings := []showing{
		{time.Date(2013, 2, 2, 20, 0, 0, 0, loc)},
		{time.Date(2013, 2, 3, 20, 0, 0, 0, loc)},
	}
	assert.Equal(t, "Sat 2nd, Sun 3rd / 8pm", FormatShowings(showings, loc))
	assert.Equal(t, "", FormatShowings([]showing{}, loc))
}

func TestOrdinalSuffix(t *testing.T) {
	want := map[int]string{
		1: "st", 2: "nd", 3: "rd",
		21: "st", 22: "nd", 23: "rd",
		31: "st",
	}
	for day := 1; day <= 31; day++ {
		expected, ok := want[day]
		if !ok {
			expected = "th"
		}
		t.Run(fmt.Sprint(day), func(t *testing.T) {
			assert.Equal(t, expected, OrdinalSuffix(day))
		})
	}
}

func TestTimeLabel(t *testing.T) {
	tests := []struct {
		hour, minute int
		want         string
	}{
		{0, 0, "12am"},
		{9, 5, "9:05am"},
		{10, 0, "10am"},
		{12, 30, "12:30pm"},
		{20, 0, "8pm"},
		{23, 59, "11:59pm"},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			ts := time.Date(2015, 2, 2, tt.hour, tt.minute, 0, 0, time.UTC)
			assert.Equal(t, tt.want, TimeLabel(ts))
		})
	}
}

func TestDayLabel(t *testing.T) {
	assert.Equal(t, "Wed 11th", DayLabel(time.Date(2015, 2, 11, 0, 0, 0, 0, time.UTC)))
	assert.Equal(t, "Sat 21st", DayLabel(time.Date(2015, 2, 21, 0, 0, 0, 0, time.UTC)))
}
