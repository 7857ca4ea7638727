package publisher

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"html"
	"mime"
	"mime/multipart"
	"net/smtp"
	"net/textproto"
	"strings"
	"time"

	"github.com/ryosukesatoh/programme-feed/internal/mailout"
	"github.com/ryosukesatoh/programme-feed/internal/retry"
)

type sendMailFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

// EmailPublisher sends the mailout as a text and HTML email via SMTP.
type EmailPublisher struct {
	host        string
	port        int
	username    string
	password    string
	from        string
	to          []string
	sendMail    sendMailFunc
	retryConfig retry.Config
}

func NewEmailPublisher(host string, port int, username, password, from string, to []string) *EmailPublisher {
	return &EmailPublisher{
		host:        host,
		port:        port,
		username:    username,
		password:    password,
		from:        from,
		to:          to,
		sendMail:    smtp.SendMail,
		retryConfig: retry.DefaultConfig(),
	}
}

func (p *EmailPublisher) Publish(ctx context.Context, m *mailout.Mailout) error {
	msg, err := buildMessage(p.from, p.to, m)
	if err != nil {
		return fmt.Errorf("email: failed to build message: %w", err)
	}

	addr := fmt.Sprintf("%s:%d", p.host, p.port)
	var auth smtp.Auth
	if p.username != "" {
		auth = smtp.PlainAuth("", p.username, p.password, p.host)
	}

	err = retry.WithBackoff(ctx, p.retryConfig, func(ctx context.Context) error {
		err := p.sendMail(addr, auth, p.from, p.to, msg)
		// 5xx replies are permanent SMTP failures
		var reply *textproto.Error
		if errors.As(err, &reply) && reply.Code >= 500 {
			return retry.Permanent(err)
		}
		return err
	})
	if err != nil {
		return fmt.Errorf("email: failed to send: %w", err)
	}
	return nil
}

// buildMessage renders a multipart/alternative message with the plain text
// body first and the HTML body second.
func buildMessage(from string, to []string, m *mailout.Mailout) ([]byte, error) {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)

	parts := []struct {
		contentType string
		content     string
	}{
		{"text/plain; charset=\"UTF-8\"", mailout.RenderText(m)},
		{"text/html; charset=\"UTF-8\"", buildHTMLBody(m)},
	}
	for _, part := range parts {
		w, err := mw.CreatePart(textproto.MIMEHeader{
			"Content-Type":              {part.contentType},
			"Content-Transfer-Encoding": {"8bit"},
		})
		if err != nil {
			return nil, err
		}
		if _, err := w.Write([]byte(part.content)); err != nil {
			return nil, err
		}
	}
	if err := mw.Close(); err != nil {
		return nil, err
	}

	var msg bytes.Buffer
	fmt.Fprintf(&msg, "From: %s\r\n", from)
	fmt.Fprintf(&msg, "To: %s\r\n", strings.Join(to, ","))
	fmt.Fprintf(&msg, "Subject: %s\r\n", mime.QEncoding.Encode("utf-8", m.Subject))
	fmt.Fprintf(&msg, "Date: %s\r\n", m.Date.Format(time.RFC1123Z))
	msg.WriteString("MIME-Version: 1.0\r\n")
	fmt.Fprintf(&msg, "Content-Type: multipart/alternative; boundary=%q\r\n\r\n", mw.Boundary())
	msg.Write(body.Bytes())
	return msg.Bytes(), nil
}

func buildHTMLBody(m *mailout.Mailout) string {
	esc := html.EscapeString

	var sb strings.Builder
	sb.WriteString(`<!DOCTYPE html><html><head><meta charset="utf-8"><style>
body { font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, sans-serif; max-width: 700px; margin: 0 auto; padding: 20px; color: #333; }
h1 { color: #1a1a2e; border-bottom: 2px solid #e94560; padding-bottom: 10px; }
h2 { color: #16213e; }
.listings td { padding: 4px 8px; vertical-align: top; }
.event { border: 1px solid #ddd; border-radius: 8px; padding: 15px; margin-bottom: 15px; }
.event h3 { margin-top: 0; color: #0f3460; }
.meta { color: #666; font-size: 0.9em; margin-bottom: 10px; }
</style></head><body>`)
	sb.WriteString(fmt.Sprintf("<h1>%s</h1>", esc(m.Subject)))
	if m.SiteURL != "" {
		sb.WriteString(fmt.Sprintf(`<p><a href="%s">%s</a></p>`, esc(m.SiteURL), esc(m.SiteURL)))
	}

	if len(m.Listings) == 0 {
		sb.WriteString("<p>No events are currently scheduled.</p></body></html>")
		return sb.String()
	}

	sb.WriteString(`<h2>Listings</h2><table class="listings">`)
	for _, l := range m.Listings {
		dates := esc(l.Dates)
		if l.Discounted {
			dates += " " + mailout.CheapNightMarker
		}
		sb.WriteString(fmt.Sprintf("<tr><td>%s</td><td>%s</td></tr>", dates, esc(mailout.Title(l.Event))))
	}
	sb.WriteString("</table>")

	if len(m.Details) > 0 {
		sb.WriteString("<h2>Details</h2>")
	}
	for _, l := range m.Details {
		sb.WriteString(`<div class="event">`)
		title := esc(l.Event.Name)
		if l.Event.TicketLink != "" {
			title = fmt.Sprintf(`<a href="%s">%s</a>`, esc(l.Event.TicketLink), title)
		}
		if l.Event.PreTitle != "" {
			sb.WriteString(fmt.Sprintf(`<div class="meta">%s</div>`, esc(l.Event.PreTitle)))
		}
		sb.WriteString(fmt.Sprintf("<h3>%s</h3>", title))
		if l.Event.PostTitle != "" {
			sb.WriteString(fmt.Sprintf(`<div class="meta">%s</div>`, esc(l.Event.PostTitle)))
		}
		for _, s := range l.Showings {
			sb.WriteString(fmt.Sprintf("<p><strong>%s</strong></p>", esc(mailout.ShowingLabel(s, m.Location))))
		}
		if l.Event.FilmInformation != "" {
			sb.WriteString(fmt.Sprintf(`<div class="meta">%s</div>`, esc(l.Event.FilmInformation)))
		}
		if l.Event.CopySummary != "" {
			sb.WriteString(fmt.Sprintf("<p>%s</p>", esc(l.Event.CopySummary)))
		}
		if l.Event.Pricing != "" {
			sb.WriteString(fmt.Sprintf("<p>Tickets: %s</p>", esc(l.Event.Pricing)))
		}
		sb.WriteString("</div>")
	}

	if m.ShowCheapNightKey {
		sb.WriteString(fmt.Sprintf("<p>%s Cheap night</p>", mailout.CheapNightMarker))
	}
	sb.WriteString("</body></html>")
	return sb.String()
}
