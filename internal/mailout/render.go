package mailout

import (
	"fmt"
	"strings"
	"time"

	"github.com/ryosukesatoh/programme-feed/internal/diary"
	"github.com/ryosukesatoh/programme-feed/internal/showingdates"
)

// CheapNightMarker flags discounted listings.
const CheapNightMarker = "*"

// Title returns the event name with its pre and post titles, e.g.
// "Prodco presents: Metropolis, with live score".
func Title(ev diary.Event) string {
	title := ev.Name
	if ev.PreTitle != "" {
		title = ev.PreTitle + ": " + title
	}
	if ev.PostTitle != "" {
		title = title + ", " + ev.PostTitle
	}
	return title
}

// ShowingLabel formats a single showing like "Mon 2nd February / 8pm".
func ShowingLabel(s diary.Showing, loc *time.Location) string {
	if loc == nil {
		loc = time.UTC
	}
	t := s.Start.In(loc)
	return fmt.Sprintf("%s %s / %s", showingdates.DayLabel(t), t.Format("January"), showingdates.TimeLabel(t))
}

// RenderText renders the plain text body of the mailout.
func RenderText(m *Mailout) string {
	var sb strings.Builder

	sb.WriteString(m.Subject)
	sb.WriteString("\n")
	if m.SiteURL != "" {
		sb.WriteString(m.SiteURL)
		sb.WriteString("\n")
	}
	sb.WriteString("\n")

	if len(m.Listings) == 0 {
		sb.WriteString("No events are currently scheduled.\n")
		return sb.String()
	}

	writeHeading(&sb, "LISTINGS")
	for _, l := range m.Listings {
		sb.WriteString(Title(l.Event))
		sb.WriteString("\n  ")
		sb.WriteString(l.Dates)
		if l.Discounted {
			sb.WriteString(" " + CheapNightMarker)
		}
		sb.WriteString("\n")
	}

	if len(m.Details) > 0 {
		sb.WriteString("\n")
		writeHeading(&sb, "DETAILS")
		for i, l := range m.Details {
			if i > 0 {
				sb.WriteString("\n")
			}
			if l.Event.PreTitle != "" {
				sb.WriteString(l.Event.PreTitle + "\n")
			}
			sb.WriteString(strings.ToUpper(l.Event.Name) + "\n")
			if l.Event.PostTitle != "" {
				sb.WriteString(l.Event.PostTitle + "\n")
			}
			for _, s := range l.Showings {
				sb.WriteString(ShowingLabel(s, m.Location))
				if s.Discounted {
					sb.WriteString(" " + CheapNightMarker)
				}
				sb.WriteString("\n")
			}
			if l.Event.FilmInformation != "" {
				sb.WriteString(l.Event.FilmInformation + "\n")
			}
			if l.Event.CopySummary != "" {
				sb.WriteString("\n" + l.Event.CopySummary + "\n")
			}
			if l.Event.Pricing != "" {
				sb.WriteString("\nTickets: " + l.Event.Pricing + "\n")
			}
			if l.Event.TicketLink != "" {
				sb.WriteString(l.Event.TicketLink + "\n")
			}
		}
	}

	if m.ShowCheapNightKey {
		sb.WriteString("\n" + CheapNightMarker + " Cheap night\n")
	}

	return sb.String()
}

func writeHeading(sb *strings.Builder, heading string) {
	sb.WriteString(heading)
	sb.WriteString("\n")
	sb.WriteString(strings.Repeat("-", len(heading)))
	sb.WriteString("\n")
}
