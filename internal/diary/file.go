package diary

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// YAML diary file structures

type diaryFile struct {
	Timezone string      `yaml:"timezone"`
	Events   []fileEvent `yaml:"events"`
}

type fileEvent struct {
	ID              int64         `yaml:"id"`
	Name            string        `yaml:"name"`
	PreTitle        string        `yaml:"pre_title"`
	PostTitle       string        `yaml:"post_title"`
	Pricing         string        `yaml:"pricing"`
	TicketLink      string        `yaml:"ticket_link"`
	FilmInformation string        `yaml:"film_information"`
	CopySummary     string        `yaml:"copy_summary"`
	Private         bool          `yaml:"private"`
	OutsideHire     bool          `yaml:"outside_hire"`
	Tags            []string      `yaml:"tags"`
	Showings        []fileShowing `yaml:"showings"`
}

type fileShowing struct {
	ID              int64  `yaml:"id"`
	Start           string `yaml:"start"`
	Confirmed       *bool  `yaml:"confirmed"`
	HideInProgramme bool   `yaml:"hide_in_programme"`
	Cancelled       bool   `yaml:"cancelled"`
	Discounted      bool   `yaml:"discounted"`
	SoldOut         bool   `yaml:"sold_out"`
}

// Layouts accepted for showing start times. Times without an offset are read
// in the diary's timezone.
var startLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
}

// FileSource serves showings from a YAML diary file. The file is read once.
type FileSource struct {
	events []*Event
}

// LoadFile reads and validates a YAML diary file. defaultLoc is used for
// naive start times unless the file names its own timezone.
func LoadFile(path string, defaultLoc *time.Location) (*FileSource, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("diary: failed to read %s: %w", path, err)
	}
	src, err := ParseFile(data, defaultLoc)
	if err != nil {
		return nil, fmt.Errorf("diary: %s: %w", path, err)
	}
	return src, nil
}

// ParseFile parses YAML diary data. See LoadFile.
func ParseFile(data []byte, defaultLoc *time.Location) (*FileSource, error) {
	var f diaryFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse diary: %w", err)
	}

	loc := defaultLoc
	if f.Timezone != "" {
		l, err := time.LoadLocation(f.Timezone)
		if err != nil {
			return nil, fmt.Errorf("invalid timezone %q: %w", f.Timezone, err)
		}
		loc = l
	}
	if loc == nil {
		loc = time.UTC
	}

	seen := make(map[int64]bool)
	seenShowings := make(map[int64]int64)
	events := make([]*Event, 0, len(f.Events))
	for i, fe := range f.Events {
		if fe.ID == 0 {
			return nil, fmt.Errorf("event %d (%q): id is required", i+1, fe.Name)
		}
		if seen[fe.ID] {
			return nil, fmt.Errorf("event %d: duplicate id %d", i+1, fe.ID)
		}
		seen[fe.ID] = true
		if strings.TrimSpace(fe.Name) == "" {
			return nil, fmt.Errorf("event %d: name is required", fe.ID)
		}

		ev := &Event{
			ID:              fe.ID,
			Name:            strings.TrimSpace(fe.Name),
			PreTitle:        fe.PreTitle,
			PostTitle:       fe.PostTitle,
			Pricing:         fe.Pricing,
			TicketLink:      fe.TicketLink,
			FilmInformation: fe.FilmInformation,
			CopySummary:     strings.TrimSpace(fe.CopySummary),
			Private:         fe.Private,
			OutsideHire:     fe.OutsideHire,
			Tags:            fe.Tags,
		}
		starts := make(map[int64]bool, len(fe.Showings))
		for j, fs := range fe.Showings {
			start, err := parseStart(fs.Start, loc)
			if err != nil {
				return nil, fmt.Errorf("event %d showing %d: %w", fe.ID, j+1, err)
			}
			if fs.ID != 0 {
				if other, ok := seenShowings[fs.ID]; ok {
					return nil, fmt.Errorf("event %d showing %d: duplicate showing id %d (also used by event %d)", fe.ID, j+1, fs.ID, other)
				}
				seenShowings[fs.ID] = fe.ID
			}
			if starts[start.Unix()] {
				return nil, fmt.Errorf("event %d showing %d: duplicate start %s", fe.ID, j+1, fs.Start)
			}
			starts[start.Unix()] = true
			confirmed := true
			if fs.Confirmed != nil {
				confirmed = *fs.Confirmed
			}
			ev.Showings = append(ev.Showings, Showing{
				ID:              fs.ID,
				EventID:         ev.ID,
				Start:           start,
				Confirmed:       confirmed,
				HideInProgramme: fs.HideInProgramme,
				Cancelled:       fs.Cancelled,
				Discounted:      fs.Discounted,
				SoldOut:         fs.SoldOut,
				Event:           ev,
			})
		}
		SortByStart(ev.Showings)
		events = append(events, ev)
	}

	return &FileSource{events: events}, nil
}

func parseStart(value string, loc *time.Location) (time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, fmt.Errorf("start is required")
	}
	for _, layout := range startLayouts {
		if t, err := time.ParseInLocation(layout, value, loc); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid start %q", value)
}

// Events returns the events of the diary in file order.
func (f *FileSource) Events() []Event {
	out := make([]Event, len(f.events))
	for i, ev := range f.events {
		out[i] = *ev
	}
	return out
}

func (f *FileSource) Showings(ctx context.Context, start, end time.Time) ([]Showing, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var out []Showing
	for _, ev := range f.events {
		out = append(out, InRange(ev.Showings, start, end)...)
	}
	SortByStart(out)
	return out, nil
}
