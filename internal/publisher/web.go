package publisher

import (
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"html"
	"log"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/ryosukesatoh/programme-feed/internal/diary"
	"github.com/ryosukesatoh/programme-feed/internal/mailout"
)

const (
	defaultProgrammeDays = 365
	feedDays             = 7
)

// WebPublisher serves the latest mailout as an HTML page, plus a programme
// listing and an RSS feed read straight from the diary.
type WebPublisher struct {
	addr    string
	src     diary.Source
	venue   string
	siteURL string
	loc     *time.Location
	now     func() time.Time
	server  *http.Server
	mu      sync.RWMutex
	latest  *mailout.Mailout
}

func NewWebPublisher(addr string, src diary.Source, venue, siteURL string, loc *time.Location) *WebPublisher {
	if loc == nil {
		loc = time.UTC
	}
	wp := &WebPublisher{
		addr:    addr,
		src:     src,
		venue:   venue,
		siteURL: strings.TrimSuffix(siteURL, "/"),
		loc:     loc,
		now:     time.Now,
	}
	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", wp.handleIndex)
	mux.HandleFunc("GET /programme", wp.handleProgramme)
	mux.HandleFunc("GET /feed", wp.handleFeed)
	mux.HandleFunc("GET /health", wp.handleHealth)
	wp.server = &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return wp
}

// Start begins serving HTTP in the background. Call Shutdown to stop.
func (wp *WebPublisher) Start() error {
	ln, err := net.Listen("tcp", wp.addr)
	if err != nil {
		return fmt.Errorf("web: failed to listen on %s: %w", wp.addr, err)
	}
	go func() {
		log.Printf("Web publisher listening on %s", wp.addr)
		if err := wp.server.Serve(ln); err != nil && err != http.ErrServerClosed {
			log.Printf("Web publisher error: %v", err)
		}
	}()
	return nil
}

// Shutdown gracefully shuts down the HTTP server.
func (wp *WebPublisher) Shutdown(ctx context.Context) error {
	return wp.server.Shutdown(ctx)
}

func (wp *WebPublisher) Publish(_ context.Context, m *mailout.Mailout) error {
	wp.mu.Lock()
	wp.latest = m
	wp.mu.Unlock()
	log.Printf("Web publisher updated with %q", m.Subject)
	return nil
}

func (wp *WebPublisher) handleIndex(w http.ResponseWriter, r *http.Request) {
	wp.mu.RLock()
	m := wp.latest
	wp.mu.RUnlock()

	w.Header().Set("Content-Type", "text/html; charset=utf-8")

	if m == nil {
		fmt.Fprintf(w, `<!DOCTYPE html><html><body><h1>%s</h1><p>No mailout available yet. Check back later.</p></body></html>`, html.EscapeString(wp.venue))
		return
	}

	fmt.Fprint(w, buildHTMLBody(m))
}

// handleProgramme lists upcoming public showings, one line per event. The
// window is chosen with the year, month, day and daysahead query parameters.
func (wp *WebPublisher) handleProgramme(w http.ResponseWriter, r *http.Request) {
	if wp.src == nil {
		http.Error(w, "diary unavailable", http.StatusServiceUnavailable)
		return
	}

	q := r.URL.Query()
	start, daysAhead, err := diary.ParseDateRange(diary.RangeQuery{
		Year:      q.Get("year"),
		Month:     q.Get("month"),
		Day:       q.Get("day"),
		DaysAhead: q.Get("daysahead"),
	}, wp.now(), wp.loc, defaultProgrammeDays)
	if err != nil {
		var rangeErr *diary.RangeError
		if errors.As(err, &rangeErr) {
			http.Error(w, rangeErr.Message, http.StatusBadRequest)
			return
		}
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	showings, err := wp.publicShowings(r.Context(), start, start.AddDate(0, 0, daysAhead))
	if err != nil {
		log.Printf("Web publisher: failed to load programme: %v", err)
		http.Error(w, "failed to load programme", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("<!DOCTYPE html><html><head><meta charset=\"utf-8\"><title>%s programme</title></head><body>", html.EscapeString(wp.venue)))
	sb.WriteString(fmt.Sprintf("<h1>%s programme</h1>", html.EscapeString(wp.venue)))
	listings := mailout.Listings(showings, wp.loc)
	if len(listings) == 0 {
		sb.WriteString("<p>No events are currently scheduled.</p>")
	} else {
		sb.WriteString("<ul>")
		for _, l := range listings {
			sb.WriteString(fmt.Sprintf(`<li><a href="%s">%s</a> %s</li>`,
				html.EscapeString(wp.eventURL(l.Event.ID)),
				html.EscapeString(mailout.Title(l.Event)),
				html.EscapeString(l.Dates)))
		}
		sb.WriteString("</ul>")
	}
	sb.WriteString("</body></html>")
	fmt.Fprint(w, sb.String())
}

type rssGUID struct {
	IsPermaLink bool   `xml:"isPermaLink,attr"`
	Value       string `xml:",chardata"`
}

type rssItem struct {
	Title       string  `xml:"title"`
	Link        string  `xml:"link"`
	Description string  `xml:"description"`
	GUID        rssGUID `xml:"guid"`
	PubDate     string  `xml:"pubDate,omitempty"`
}

type rssChannel struct {
	Title       string    `xml:"title"`
	Link        string    `xml:"link"`
	Description string    `xml:"description"`
	Items       []rssItem `xml:"item"`
}

type rssFeed struct {
	XMLName xml.Name   `xml:"rss"`
	Version string     `xml:"version,attr"`
	Channel rssChannel `xml:"channel"`
}

// handleFeed serves an RSS feed of the coming week's public showings, one
// item per showing.
func (wp *WebPublisher) handleFeed(w http.ResponseWriter, r *http.Request) {
	if wp.src == nil {
		http.Error(w, "diary unavailable", http.StatusServiceUnavailable)
		return
	}

	now := wp.now()
	showings, err := wp.publicShowings(r.Context(), now, now.AddDate(0, 0, feedDays))
	if err != nil {
		log.Printf("Web publisher: failed to load feed: %v", err)
		http.Error(w, "failed to load feed", http.StatusInternalServerError)
		return
	}

	feed := rssFeed{
		Version: "2.0",
		Channel: rssChannel{
			Title:       wp.venue + " what's on",
			Link:        wp.siteURL + "/",
			Description: fmt.Sprintf("Events at %s in the coming week", wp.venue),
		},
	}
	for _, s := range showings {
		link := wp.eventURL(s.EventID)
		description := s.Start.In(wp.loc).Format("02/01/2006 15:04")
		if s.Event.CopySummary != "" {
			description += "\n" + s.Event.CopySummary
		}
		feed.Channel.Items = append(feed.Channel.Items, rssItem{
			Title:       s.Event.Name,
			Link:        link,
			Description: description,
			GUID:        rssGUID{IsPermaLink: false, Value: showingGUID(link, s)},
			PubDate:     s.Start.In(wp.loc).Format(time.RFC1123Z),
		})
	}

	w.Header().Set("Content-Type", "application/rss+xml; charset=utf-8")
	fmt.Fprint(w, xml.Header)
	enc := xml.NewEncoder(w)
	enc.Indent("", "  ")
	if err := enc.Encode(feed); err != nil {
		log.Printf("Web publisher: failed to encode feed: %v", err)
	}
}

// showingGUID identifies a showing within its event's link. Showings without
// an id, e.g. from a diary file that leaves them out, are keyed by start time.
func showingGUID(link string, s diary.Showing) string {
	if s.ID == 0 {
		return fmt.Sprintf("%s#showing-at-%d", link, s.Start.Unix())
	}
	return fmt.Sprintf("%s#showing-%d", link, s.ID)
}

func (wp *WebPublisher) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	fmt.Fprint(w, "ok")
}

// publicShowings returns the confirmed, public, uncancelled showings with an
// event in [start, end], sorted by start.
func (wp *WebPublisher) publicShowings(ctx context.Context, start, end time.Time) ([]diary.Showing, error) {
	all, err := wp.src.Showings(ctx, start, end)
	if err != nil {
		return nil, err
	}
	showings := make([]diary.Showing, 0, len(all))
	for _, s := range diary.NotCancelled(diary.Public(diary.InRange(all, start, end))) {
		if s.Event != nil {
			showings = append(showings, s)
		}
	}
	diary.SortByStart(showings)
	return showings, nil
}

func (wp *WebPublisher) eventURL(id int64) string {
	return fmt.Sprintf("%s/programme/event/id/%d/", wp.siteURL, id)
}
