package commands

import (
	"bufio"
	"flag"
	"fmt"
	"io"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/ryosukesatoh/programme-feed/internal/showingdates"
)

// FormatDates handles the format-dates subcommand
func FormatDates(args []string) {
	fs := flag.NewFlagSet("format-dates", flag.ExitOnError)
	tz := fs.String("tz", "Europe/London", "IANA time zone to display dates in")
	sortInput := fs.Bool("sort", false, "Sort the timestamps before formatting")
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: programme-feed format-dates [OPTIONS] < starts.txt\n\n")
		fmt.Fprintf(os.Stderr, "Reads one RFC3339 start time per line and prints a summary like\n")
		fmt.Fprintf(os.Stderr, "\"Mon 2nd–Wed 4th / 8pm\".\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		fs.PrintDefaults()
	}
	fs.Parse(args)

	loc, err := time.LoadLocation(*tz)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Invalid time zone %q: %v\n", *tz, err)
		os.Exit(1)
	}

	if err := formatDates(os.Stdin, os.Stdout, loc, *sortInput); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func formatDates(in io.Reader, out io.Writer, loc *time.Location, sortInput bool) error {
	starts, err := readStarts(in)
	if err != nil {
		return err
	}
	if sortInput {
		slices.SortStableFunc(starts, func(a, b time.Time) int { return a.Compare(b) })
	}
	_, err = fmt.Fprintln(out, showingdates.Format(starts, loc))
	return err
}

func readStarts(in io.Reader) ([]time.Time, error) {
	var starts []time.Time
	scanner := bufio.NewScanner(in)
	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			continue
		}
		t, err := time.Parse(time.RFC3339, text)
		if err != nil {
			return nil, fmt.Errorf("line %d: invalid timestamp %q", line, text)
		}
		starts = append(starts, t)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read input: %w", err)
	}
	return starts, nil
}
