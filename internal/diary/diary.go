package diary

import (
	"context"
	"fmt"
	"sort"
	"time"
)

// Event is a diary entry, e.g. a film or a gig, with one or more showings.
type Event struct {
	ID              int64
	Name            string
	PreTitle        string
	PostTitle       string
	Pricing         string
	TicketLink      string
	FilmInformation string
	CopySummary     string
	Private         bool
	OutsideHire     bool
	Tags            []string
	Showings        []Showing
}

// Showing is a single scheduled occurrence of an event.
type Showing struct {
	ID              int64
	EventID         int64
	Start           time.Time
	Confirmed       bool
	HideInProgramme bool
	Cancelled       bool
	Discounted      bool
	SoldOut         bool

	// Event is the parent event. Sources always populate it.
	Event *Event
}

// StartTime returns the absolute start of the showing.
func (s Showing) StartTime() time.Time {
	return s.Start
}

// Source supplies showings from the venue diary.
type Source interface {
	// Showings returns showings starting in [start, end], each with Event set.
	Showings(ctx context.Context, start, end time.Time) ([]Showing, error)
}

// ErrUnsupportedSourceType is returned when an unsupported source type is specified
var ErrUnsupportedSourceType = fmt.Errorf("unsupported source type")

// Public keeps showings that should be visible to the general public: the
// event isn't private and the showing is confirmed and not hidden.
func Public(showings []Showing) []Showing {
	return filter(showings, func(s Showing) bool {
		if s.Event != nil && s.Event.Private {
			return false
		}
		return s.Confirmed && !s.HideInProgramme
	})
}

// NotCancelled drops cancelled showings.
func NotCancelled(showings []Showing) []Showing {
	return filter(showings, func(s Showing) bool { return !s.Cancelled })
}

// InRange keeps showings whose start lies in [start, end].
func InRange(showings []Showing, start, end time.Time) []Showing {
	return filter(showings, func(s Showing) bool {
		return !s.Start.Before(start) && !s.Start.After(end)
	})
}

// SortByStart sorts showings by start time, keeping the relative order of
// showings that start together.
func SortByStart(showings []Showing) {
	sort.SliceStable(showings, func(i, j int) bool {
		return showings[i].Start.Before(showings[j].Start)
	})
}

// EventShowings is one event together with a subset of its showings.
type EventShowings struct {
	Event    *Event
	Showings []Showing
}

// GroupByEvent groups showings by event in order of each event's first
// appearance. Showings keep their input order within a group.
func GroupByEvent(showings []Showing) []EventShowings {
	var groups []EventShowings
	index := make(map[int64]int)
	for _, s := range showings {
		i, ok := index[s.EventID]
		if !ok {
			i = len(groups)
			index[s.EventID] = i
			groups = append(groups, EventShowings{Event: s.Event})
		}
		groups[i].Showings = append(groups[i].Showings, s)
	}
	return groups
}

func filter(showings []Showing, keep func(Showing) bool) []Showing {
	out := make([]Showing, 0, len(showings))
	for _, s := range showings {
		if keep(s) {
			out = append(out, s)
		}
	}
	return out
}
