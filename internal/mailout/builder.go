package mailout

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/ryosukesatoh/programme-feed/internal/diary"
	"github.com/ryosukesatoh/programme-feed/internal/showingdates"
)

// ProgrammeBuilder builds the venue's forthcoming events mailout: a listing
// of every public showing over the next few weeks plus detailed copy for the
// events coming up soonest.
type ProgrammeBuilder struct {
	venue       string
	siteURL     string
	loc         *time.Location
	listingDays int
	detailDays  int
	now         func() time.Time
}

func NewProgrammeBuilder(venue, siteURL string, loc *time.Location, listingDays, detailDays int) *ProgrammeBuilder {
	if loc == nil {
		loc = time.UTC
	}
	return &ProgrammeBuilder{
		venue:       venue,
		siteURL:     siteURL,
		loc:         loc,
		listingDays: listingDays,
		detailDays:  detailDays,
		now:         time.Now,
	}
}

// Build assembles the mailout from showings, which may be in any order and
// may include private, unconfirmed or cancelled ones.
func (b *ProgrammeBuilder) Build(ctx context.Context, showings []diary.Showing) (*Mailout, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	now := b.now()
	end := now.AddDate(0, 0, b.listingDays)
	detailsEnd := now.AddDate(0, 0, b.detailDays)

	listed := make([]diary.Showing, 0, len(showings))
	for _, s := range diary.NotCancelled(diary.Public(diary.InRange(showings, now, end))) {
		if s.Event == nil {
			log.Printf("WARNING: skipping showing %d with no event", s.ID)
			continue
		}
		listed = append(listed, s)
	}
	diary.SortByStart(listed)

	m := &Mailout{
		Venue:          b.venue,
		SiteURL:        b.siteURL,
		Location:       b.loc,
		Subject:        b.subject(listed),
		Date:           now,
		StartDate:      now,
		EndDate:        end,
		DetailsEndDate: detailsEnd,
	}

	m.Listings = Listings(listed, b.loc)
	dates := make(map[int64]string, len(m.Listings))
	for _, l := range m.Listings {
		dates[l.Event.ID] = l.Dates
	}

	// Details cover each event once, from its first showing in the details
	// window that isn't sold out.
	seen := make(map[int64]bool)
	for _, s := range diary.InRange(listed, now, detailsEnd) {
		if s.SoldOut {
			continue
		}
		if !seen[s.EventID] {
			seen[s.EventID] = true
			m.Details = append(m.Details, Listing{
				Event:      *s.Event,
				Dates:      dates[s.EventID],
				Showings:   []diary.Showing{s},
				Discounted: s.Discounted,
			})
		}
		m.ShowCheapNightKey = m.ShowCheapNightKey || s.Discounted
	}

	return m, nil
}

func (b *ProgrammeBuilder) subject(listed []diary.Showing) string {
	commencing := ""
	if len(listed) > 0 {
		commencing = " commencing " + listed[0].Start.In(b.loc).Format("Monday 2 January")
	}
	return fmt.Sprintf("%s forthcoming events%s", b.venue, commencing)
}

// Listings groups showings by event, in order of each event's first showing,
// and summarises each event's showing dates in loc. Showings must be sorted
// by start and have their Event set.
func Listings(showings []diary.Showing, loc *time.Location) []Listing {
	var listings []Listing
	for _, group := range diary.GroupByEvent(showings) {
		l := Listing{
			Event:    *group.Event,
			Dates:    showingdates.FormatShowings(group.Showings, loc),
			Showings: group.Showings,
		}
		for _, s := range group.Showings {
			l.Discounted = l.Discounted || s.Discounted
		}
		listings = append(listings, l)
	}
	return listings
}
