package mailout

import (
	"context"
	"time"

	"github.com/ryosukesatoh/programme-feed/internal/diary"
)

// Mailout is the "forthcoming events" programme sent to members.
type Mailout struct {
	Venue          string
	SiteURL        string
	Location       *time.Location
	Subject        string
	Date           time.Time
	StartDate      time.Time
	EndDate        time.Time
	DetailsEndDate time.Time
	Listings       []Listing
	Details        []Listing

	// ShowCheapNightKey is set when a detailed showing is discounted, so the
	// key explaining the discount marker should be printed.
	ShowCheapNightKey bool
}

// Listing is one event with the summary of its showing dates.
type Listing struct {
	Event      diary.Event
	Dates      string
	Showings   []diary.Showing
	Discounted bool
}

// Builder turns diary showings into a mailout.
type Builder interface {
	Build(ctx context.Context, showings []diary.Showing) (*Mailout, error)
}
